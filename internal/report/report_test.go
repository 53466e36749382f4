package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-report-normalizer/internal/catalog"
	"github.com/lab-report-normalizer/internal/domain"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	g, err := NewGenerator(cat)
	require.NoError(t, err)
	return g
}

func labTest(name, category string, value float64, status domain.Status, low, high float64, unit string) domain.NormalizedTest {
	return domain.NormalizedTest{
		CanonicalName:  name,
		Value:          value,
		Unit:           unit,
		Status:         status,
		Category:       category,
		ReferenceRange: domain.Range{Low: low, High: high},
	}
}

func TestGenerateOverallStatus(t *testing.T) {
	g := newTestGenerator(t)

	hbLow := labTest("Hemoglobin", "hematology", 10.2, domain.StatusLow, 12, 15, "g/dL")
	hbNormal := labTest("Hemoglobin", "hematology", 13.5, domain.StatusNormal, 12, 15, "g/dL")
	glucose := labTest("Fasting Blood Glucose", "diabetes", 90, domain.StatusNormal, 70, 100, "mg/dL")
	cholHigh := labTest("Total Cholesterol", "lipid", 240, domain.StatusHigh, 125, 200, "mg/dL")

	tests := []struct {
		name        string
		tests       []domain.NormalizedTest
		wantStatus  string
		wantMessage string
	}{
		{"No tests", nil, StatusNoResults, "No test results were found to summarize."},
		{"All normal", []domain.NormalizedTest{hbNormal, glucose}, StatusAllClear, "All 2 labTest(s) are within normal ranges."},
		{"One abnormal", []domain.NormalizedTest{hbLow, glucose}, StatusAttentionNeeded, "Hemoglobin requires attention. 1 other labTest(s) are normal."},
		{"Several abnormal", []domain.NormalizedTest{hbLow, cholHigh, glucose}, StatusReviewRecommended, "2 labTest(s) show abnormal values and should be reviewed with your doctor."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := g.Generate(domain.PipelineResult{Tests: tt.tests})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, s.OverallStatus)
			assert.Equal(t, tt.wantMessage, s.OverallMessage)
			assert.Contains(t, s.Text, tt.wantMessage)
		})
	}
}

func TestGenerateInterpretationsAndFindings(t *testing.T) {
	g := newTestGenerator(t)

	result := domain.PipelineResult{
		Tests: []domain.NormalizedTest{
			labTest("Hemoglobin", "hematology", 10.2, domain.StatusLow, 12, 15, "g/dL"),
			labTest("Total Cholesterol", "lipid", 240, domain.StatusHigh, 125, 200, "mg/dL"),
			labTest("Fasting Blood Glucose", "diabetes", 90, domain.StatusNormal, 70, 100, "mg/dL"),
		},
		Warnings: []string{"hallucinated test removed: Triglycerides is not mentioned in the report text"},
	}

	s, err := g.Generate(result)
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalTests)
	assert.Equal(t, 1, s.NormalCount)
	assert.Equal(t, 2, s.AbnormalCount)

	require.Len(t, s.Interpretations, 3)
	assert.Equal(t, "Hemoglobin (10.2 g/dL) is below the normal range (12 - 15). This may need further evaluation.", s.Interpretations[0].Text)
	assert.Contains(t, s.Interpretations[1].Text, "is above the normal range (125 - 200)")
	assert.Equal(t, "Fasting Blood Glucose (90 mg/dL) is within the normal range (70 - 100).", s.Interpretations[2].Text)

	require.Len(t, s.Categories, 3)
	assert.Equal(t, []string{"diabetes", "hematology", "lipid"},
		[]string{s.Categories[0].Category, s.Categories[1].Category, s.Categories[2].Category})

	require.Len(t, s.Findings, 2)
	assert.Equal(t, "Hemoglobin", s.Findings[0].TestName)
	assert.Contains(t, s.Findings[0].Causes, "Iron deficiency")
	assert.NotEmpty(t, s.Findings[0].Advice)
	assert.Equal(t, "Reduce saturated fat and increase physical activity.", s.Findings[1].Advice)

	assert.Contains(t, s.Text, "Possible causes: Iron deficiency, Blood loss")
	assert.Contains(t, s.Text, "  - Hemoglobin: 10.2 g/dL (low, reference 12 - 15)")
	assert.Contains(t, s.Text, "! hallucinated test removed: Triglycerides")
}

func TestGenerateUnknownCategoryAndCatalogMiss(t *testing.T) {
	g := newTestGenerator(t)

	s, err := g.Generate(domain.PipelineResult{Tests: []domain.NormalizedTest{
		labTest("Mystery Marker", "", 9, domain.StatusHigh, 1, 5, ""),
	}})
	require.NoError(t, err)

	require.Len(t, s.Categories, 1)
	assert.Equal(t, "Other", s.Categories[0].Category)
	require.Len(t, s.Findings, 1)
	assert.Empty(t, s.Findings[0].Causes)
	assert.Equal(t, "Mystery Marker (9) is above the normal range (1 - 5). This should be discussed with your doctor.", s.Interpretations[0].Text)
}
