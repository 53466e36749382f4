package domain

// PipelineStatus is the outcome state a caller inspects after a run.
type PipelineStatus string

const (
	PipelineOK                  PipelineStatus = "ok"
	PipelineWarning             PipelineStatus = "warning"
	PipelineParseFailed         PipelineStatus = "parse_failed"
	PipelineNormalizationFailed PipelineStatus = "normalization_failed"
	PipelineNoTestsFound        PipelineStatus = "no_tests_found"
)

// Succeeded reports whether at least one test was validated.
func (s PipelineStatus) Succeeded() bool {
	return s == PipelineOK || s == PipelineWarning
}

// RunStats counts survivors at every stage of a run.
type RunStats struct {
	Lines        int      `json:"lines"`
	Parsed       int      `json:"parsed"`
	Resolved     int      `json:"resolved"`
	Validated    int      `json:"validated"`
	Hallucinated int      `json:"hallucinated"`
	Unresolved   []string `json:"unresolved"`
}

// PipelineResult is the terminal artifact of one pipeline run.
type PipelineResult struct {
	Status               PipelineStatus   `json:"pipeline_status"`
	Tests                []NormalizedTest `json:"tests"`
	Hallucinated         []string         `json:"hallucinated"`
	OverallConfidence    float64          `json:"overall_confidence"`
	ExtractionConfidence float64          `json:"extraction_confidence"`
	Warnings             []string         `json:"warnings"`
	Stats                RunStats         `json:"stats"`
}
