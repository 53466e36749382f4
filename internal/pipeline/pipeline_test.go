package pipeline

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-report-normalizer/internal/catalog"
	"github.com/lab-report-normalizer/internal/domain"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	p, err := NewDefault(cat, domain.DefaultScoringPolicy(), domain.DefaultParserConfig(), 64, nil)
	require.NoError(t, err)
	return p
}

func run(p *Pipeline, lines ...string) domain.PipelineResult {
	return p.Run(Input{Lines: lines, ExtractionConfidence: 0.95})
}

func TestExplicitLowHemoglobin(t *testing.T) {
	result := run(newTestPipeline(t), "Hemoglobin 10.2 g/dL (Low)")

	assert.Equal(t, domain.PipelineOK, result.Status)
	require.Len(t, result.Tests, 1)
	got := result.Tests[0]
	assert.Equal(t, "Hemoglobin", got.CanonicalName)
	assert.Equal(t, 10.2, got.Value)
	assert.Equal(t, "g/dL", got.Unit)
	assert.Equal(t, domain.StatusLow, got.Status)
	assert.Equal(t, domain.Range{Low: 12.0, High: 15.0}, got.ReferenceRange)
	assert.Equal(t, domain.MethodExact, got.ResolutionMethod)
	assert.Empty(t, result.Hallucinated)
	assert.Empty(t, result.Warnings)
	assert.Greater(t, result.OverallConfidence, 0.0)
}

func TestAliasWithoutUnit(t *testing.T) {
	result := run(newTestPipeline(t), "hb 10.2")

	assert.Equal(t, domain.PipelineOK, result.Status)
	require.Len(t, result.Tests, 1)
	got := result.Tests[0]
	assert.Equal(t, "Hemoglobin", got.CanonicalName)
	assert.Equal(t, domain.MethodAlias, got.ResolutionMethod)
	assert.Equal(t, 0.95, got.ResolutionConfidence)
	assert.Equal(t, domain.StatusLow, got.Status)
	assert.Less(t, got.ParseConfidence, 1.0)
	assert.GreaterOrEqual(t, got.ParseConfidence, 0.2)
	assert.Equal(t, "g/dL", got.Unit)
	assert.Empty(t, got.ReportedUnit)
}

func TestMisspelledNameResolvesFuzzily(t *testing.T) {
	result := run(newTestPipeline(t), "Hemglobin 10.2 g/dL", "Hb 10.4 g/dL")

	require.Len(t, result.Tests, 2)
	fuzzy := result.Tests[0]
	assert.Equal(t, "Hemoglobin", fuzzy.CanonicalName)
	assert.Equal(t, domain.MethodFuzzy, fuzzy.ResolutionMethod)
	assert.Equal(t, 0.75, fuzzy.ResolutionConfidence)
	assert.Equal(t, domain.PipelineOK, result.Status)
}

func TestQualifiedAndReorderedNamesResolve(t *testing.T) {
	p := newTestPipeline(t)

	tests := []struct {
		line          string
		wantCanonical string
		wantStatus    domain.Status
	}{
		{"Hemoglobin Level 10.2 g/dL", "Hemoglobin", domain.StatusLow},
		{"Blood Hemoglobin 10.2 g/dL", "Hemoglobin", domain.StatusLow},
		{"Count Platelet 250", "Platelet Count", domain.StatusNormal},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			result := run(p, tt.line)
			assert.Equal(t, domain.PipelineOK, result.Status)
			assert.Empty(t, result.Stats.Unresolved)
			assert.Empty(t, result.Hallucinated)
			require.Len(t, result.Tests, 1)
			got := result.Tests[0]
			assert.Equal(t, tt.wantCanonical, got.CanonicalName)
			assert.Equal(t, domain.MethodFuzzy, got.ResolutionMethod)
			assert.Equal(t, 0.90, got.ResolutionConfidence)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestValueFusedOntoName(t *testing.T) {
	result := run(newTestPipeline(t), "Hemoglobin10.2 g/dL")

	assert.Equal(t, domain.PipelineOK, result.Status)
	require.Len(t, result.Tests, 1)
	got := result.Tests[0]
	assert.Equal(t, "Hemoglobin", got.CanonicalName)
	assert.Equal(t, domain.MethodExact, got.ResolutionMethod)
	assert.Equal(t, 10.2, got.Value)
	assert.Equal(t, domain.StatusLow, got.Status)
}

func TestResolveStage(t *testing.T) {
	p := newTestPipeline(t)

	pt, ok := p.parser.Parse("Blood Hemoglobin 10.2 g/dL")
	require.True(t, ok)
	rt, ok := p.resolve(pt)
	require.True(t, ok)
	assert.Equal(t, pt, rt.Parsed)
	assert.Equal(t, "Hemoglobin", rt.Resolution.CanonicalName)
	assert.Equal(t, domain.MethodFuzzy, rt.Resolution.Method)

	nt, ok := p.normalize(rt, 0.95)
	require.True(t, ok)
	assert.Equal(t, domain.StatusLow, nt.Status)
	assert.Equal(t, rt.Resolution.Method, nt.ResolutionMethod)

	pt, ok = p.parser.Parse("XYZ-Unknown-Marker 5")
	require.True(t, ok)
	rt, ok = p.resolve(pt)
	assert.False(t, ok)
	assert.Equal(t, domain.MethodNone, rt.Resolution.Method)
	assert.Equal(t, pt, rt.Parsed)
}

func TestUnknownMarkerIsDroppedBeforeNormalization(t *testing.T) {
	result := run(newTestPipeline(t), "XYZ-Unknown-Marker 5 units")

	assert.Empty(t, result.Tests)
	assert.Empty(t, result.Hallucinated)
	assert.Equal(t, domain.PipelineNormalizationFailed, result.Status)
	assert.Equal(t, []string{"XYZ-Unknown-Marker"}, result.Stats.Unresolved)
	assert.Equal(t, 0.0, result.OverallConfidence)
}

func TestUngroundedNameIsHallucinated(t *testing.T) {
	p := newTestPipeline(t)

	withOther := run(p, "Hemglobin 10.2 g/dL", "Glucose 90 mg/dL")
	assert.Equal(t, domain.PipelineWarning, withOther.Status)
	assert.Equal(t, []string{"Hemoglobin"}, withOther.Hallucinated)
	require.Len(t, withOther.Tests, 1)
	assert.Equal(t, "Fasting Blood Glucose", withOther.Tests[0].CanonicalName)
	require.NotEmpty(t, withOther.Warnings)
	assert.Contains(t, withOther.Warnings[len(withOther.Warnings)-1], "Hemoglobin")

	alone := run(p, "Hemglobin 10.2 g/dL")
	assert.Equal(t, domain.PipelineNormalizationFailed, alone.Status)
	assert.Equal(t, []string{"Hemoglobin"}, alone.Hallucinated)
	assert.Empty(t, alone.Tests)
	assert.Equal(t, 0.0, alone.OverallConfidence)
}

func TestNoLines(t *testing.T) {
	p := newTestPipeline(t)

	for _, lines := range [][]string{nil, {}, {"", "   ", "\t"}} {
		result := run(p, lines...)
		assert.Equal(t, domain.PipelineNoTestsFound, result.Status)
		assert.Equal(t, 0.0, result.OverallConfidence)
		assert.NotNil(t, result.Tests)
		assert.NotNil(t, result.Hallucinated)
		assert.NotNil(t, result.Warnings)
	}
}

func TestParseFailed(t *testing.T) {
	result := run(newTestPipeline(t), "COMPLETE BLOOD COUNT", "Patient Name: Jane Doe Age: 41")
	assert.Equal(t, domain.PipelineParseFailed, result.Status)
	assert.Equal(t, 2, result.Stats.Lines)
	assert.Equal(t, 0, result.Stats.Parsed)
}

func TestUnitMismatchWarning(t *testing.T) {
	result := run(newTestPipeline(t), "Hemoglobin 102 g/L", "Glucose 90 mg/DL")

	assert.Equal(t, domain.PipelineOK, result.Status)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "unit mismatch for Hemoglobin: reported g/L, expected g/dL", result.Warnings[0])
}

func TestFullReport(t *testing.T) {
	report := `CITY DIAGNOSTICS
Patient Name: Jane Doe      Age: 41
Date: 04/05/2024

COMPLETE BLOOD COUNT
Hemoglobin 10.2 g/dL (Low) 12.0-15.0
Total WBC count 7,800 /cumm 4000-11000
Platelet Count 2,50,000 /cumm
Serum Creatinine: 1.6 mg/dL High
TSH 2.1 uIU/mL
Comments: clinically correlate`

	result := run(newTestPipeline(t), strings.Split(report, "\n")...)

	require.True(t, result.Status.Succeeded(), "status %s", result.Status)
	names := make([]string, 0, len(result.Tests))
	for _, tt := range result.Tests {
		names = append(names, tt.CanonicalName)
	}
	assert.Contains(t, names, "Hemoglobin")
	assert.Contains(t, names, "Serum Creatinine")
	assert.Contains(t, names, "Thyroid Stimulating Hormone")
	assert.Equal(t, len(result.Tests), result.Stats.Validated)
	assert.LessOrEqual(t, result.Stats.Validated, result.Stats.Resolved)
	assert.LessOrEqual(t, result.Stats.Resolved, result.Stats.Parsed)
	assert.LessOrEqual(t, result.Stats.Parsed, result.Stats.Lines)

	for _, tt := range result.Tests {
		if tt.CanonicalName == "Serum Creatinine" {
			assert.Equal(t, domain.StatusHigh, tt.Status)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p := newTestPipeline(t)
	lines := []string{"Hemoglobin 10.2 g/dL (Low)", "Hemglobin 11 g/dL", "Glucose 130", "XYZ-Unknown-Marker 5", "Sodium 150 mmol/L"}

	first := run(p, lines...)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, run(p, lines...)); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}

	fresh := run(newTestPipeline(t), lines...)
	if diff := cmp.Diff(first, fresh); diff != "" {
		t.Fatalf("fresh pipeline differs (-first +fresh):\n%s", diff)
	}
}

func TestConfidenceBounds(t *testing.T) {
	p := newTestPipeline(t)
	inputs := [][]string{
		{"Hemoglobin 10.2 g/dL (Low)"},
		{"hb 999999"},
		{"Glucose 0", "Sodium 1000"},
		{"Vitamin D 8 ng/mL", "Ferritin 600"},
	}

	for _, lines := range inputs {
		for _, ext := range []float64{-1, 0, 0.5, 1, 3} {
			result := p.Run(Input{Lines: lines, ExtractionConfidence: ext})
			assert.GreaterOrEqual(t, result.ExtractionConfidence, 0.0)
			assert.LessOrEqual(t, result.ExtractionConfidence, 1.0)
			assert.GreaterOrEqual(t, result.OverallConfidence, 0.0)
			assert.LessOrEqual(t, result.OverallConfidence, 1.0)
			assert.Equal(t, len(result.Tests) == 0, result.OverallConfidence == 0)
			for _, tt := range result.Tests {
				for _, c := range []float64{tt.Confidence, tt.ParseConfidence, tt.ResolutionConfidence, tt.StatusConfidence} {
					assert.GreaterOrEqual(t, c, 0.0)
					assert.LessOrEqual(t, c, 1.0)
				}
			}
		}
	}
}

func TestConcurrentRunsShareCatalog(t *testing.T) {
	p := newTestPipeline(t)
	want := run(p, "Hemoglobin 10.2 g/dL (Low)", "hb 10.2", "Hemglobin 10 g/dL")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := run(p, "Hemoglobin 10.2 g/dL (Low)", "hb 10.2", "Hemglobin 10 g/dL")
			assert.True(t, cmp.Equal(want, got))
		}()
	}
	wg.Wait()
}

type panickingParser struct{}

func (panickingParser) Parse(string) (domain.ParsedTest, bool) {
	panic("boom")
}

func TestRunRecoversFromPanics(t *testing.T) {
	base := newTestPipeline(t)
	p := New(base.catalog, panickingParser{}, base.resolver, base.classifier, nil)

	result := p.Run(Input{Lines: []string{"Hemoglobin 10.2"}, ExtractionConfidence: 0.9})
	assert.Equal(t, domain.PipelineNormalizationFailed, result.Status)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "boom")
	assert.Equal(t, 0.9, result.ExtractionConfidence)
}

func TestNewDefaultRejectsInvalidPolicy(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	policy := domain.DefaultScoringPolicy()
	policy.Resolution.FuzzyThreshold = 120
	_, err = NewDefault(cat, policy, domain.DefaultParserConfig(), 0, nil)
	assert.Error(t, err)
}
