package history

import (
	"github.com/lab-report-normalizer/internal/domain"
)

func sampleResult() domain.PipelineResult {
	return domain.PipelineResult{
		Status: domain.PipelineOK,
		Tests: []domain.NormalizedTest{{
			CanonicalName:        "Hemoglobin",
			Value:                10.2,
			Unit:                 "g/dL",
			Status:               domain.StatusLow,
			ReferenceRange:       domain.Range{Low: 12, High: 15},
			Category:             "Hematology",
			ResolutionMethod:     domain.MethodExact,
			ResolutionConfidence: 1,
			ParseConfidence:      1,
			StatusConfidence:     0.9,
			Confidence:           0.96,
		}},
		Hallucinated:         []string{},
		OverallConfidence:    0.96,
		ExtractionConfidence: 0.95,
		Warnings:             []string{},
		Stats:                domain.RunStats{Lines: 1, Parsed: 1, Resolved: 1, Validated: 1, Unresolved: []string{}},
	}
}
