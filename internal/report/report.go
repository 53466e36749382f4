// Package report turns a pipeline result into a patient-facing summary.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/lab-report-normalizer/internal/domain"
)

// Overall status labels.
const (
	StatusAllClear          = "All Clear"
	StatusAttentionNeeded   = "Attention Needed"
	StatusReviewRecommended = "Review Recommended"
	StatusNoResults         = "No Results"
)

const uncategorized = "Other"

//go:embed templates/summary.tmpl
var templateFiles embed.FS

// Interpretation explains one validated test in plain language.
type Interpretation struct {
	TestName string        `json:"test_name"`
	Status   domain.Status `json:"status"`
	Text     string        `json:"interpretation"`
}

// CategoryResult is one row of the per-category results table.
type CategoryResult struct {
	Name    string        `json:"name"`
	Value   float64       `json:"value"`
	Unit    string        `json:"unit"`
	RefLow  float64       `json:"ref_low"`
	RefHigh float64       `json:"ref_high"`
	Status  domain.Status `json:"status"`
}

// CategoryGroup collects the results of one catalog category.
type CategoryGroup struct {
	Category string           `json:"category"`
	Results  []CategoryResult `json:"results"`
}

// Finding lists likely causes and advice for one abnormal test.
type Finding struct {
	TestName string        `json:"test_name"`
	Status   domain.Status `json:"status"`
	Causes   []string      `json:"causes,omitempty"`
	Advice   string        `json:"advice,omitempty"`
}

// Summary is the rendered overview of one run.
type Summary struct {
	OverallStatus   string           `json:"overall_status"`
	OverallMessage  string           `json:"overall_message"`
	TotalTests      int              `json:"total_tests"`
	NormalCount     int              `json:"normal_count"`
	AbnormalCount   int              `json:"abnormal_count"`
	Interpretations []Interpretation `json:"interpretations"`
	Categories      []CategoryGroup  `json:"results_by_category"`
	Findings        []Finding        `json:"abnormal_findings"`
	Warnings        []string         `json:"warnings,omitempty"`
	Text            string           `json:"text"`
}

// Generator builds summaries using catalog guidance.
type Generator struct {
	catalog domain.ReferenceCatalog
	tmpl    *template.Template
}

// NewGenerator parses the summary template.
func NewGenerator(catalog domain.ReferenceCatalog) (*Generator, error) {
	tmpl, err := template.New("summary.tmpl").
		Funcs(template.FuncMap{
			"num":  formatNumber,
			"join": func(items []string) string { return strings.Join(items, ", ") },
		}).
		ParseFS(templateFiles, "templates/summary.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing summary template: %w", err)
	}
	return &Generator{catalog: catalog, tmpl: tmpl}, nil
}

// Generate summarizes the validated tests of result.
func (g *Generator) Generate(result domain.PipelineResult) (Summary, error) {
	s := Summary{
		TotalTests:      len(result.Tests),
		Interpretations: []Interpretation{},
		Categories:      []CategoryGroup{},
		Findings:        []Finding{},
		Warnings:        result.Warnings,
	}

	var abnormal []domain.NormalizedTest
	groups := make(map[string][]CategoryResult)
	for _, t := range result.Tests {
		if t.Status.IsAbnormal() {
			abnormal = append(abnormal, t)
		} else {
			s.NormalCount++
		}

		s.Interpretations = append(s.Interpretations, Interpretation{
			TestName: t.CanonicalName,
			Status:   t.Status,
			Text:     interpret(t),
		})

		category := t.Category
		if category == "" {
			category = uncategorized
		}
		groups[category] = append(groups[category], CategoryResult{
			Name:    t.CanonicalName,
			Value:   t.Value,
			Unit:    t.Unit,
			RefLow:  t.ReferenceRange.Low,
			RefHigh: t.ReferenceRange.High,
			Status:  t.Status,
		})
	}
	s.AbnormalCount = len(abnormal)

	categories := make([]string, 0, len(groups))
	for c := range groups {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		s.Categories = append(s.Categories, CategoryGroup{Category: c, Results: groups[c]})
	}

	for _, t := range abnormal {
		f := Finding{TestName: t.CanonicalName, Status: t.Status}
		if entry, ok := g.catalog.Lookup(t.CanonicalName); ok {
			f.Causes = entry.CausesFor(t.Status)
			f.Advice = entry.AdviceFor(t.Status)
		}
		s.Findings = append(s.Findings, f)
	}

	switch {
	case len(result.Tests) == 0:
		s.OverallStatus = StatusNoResults
		s.OverallMessage = "No test results were found to summarize."
	case len(abnormal) == 0:
		s.OverallStatus = StatusAllClear
		s.OverallMessage = fmt.Sprintf("All %d test(s) are within normal ranges.", len(result.Tests))
	case len(abnormal) == 1:
		s.OverallStatus = StatusAttentionNeeded
		s.OverallMessage = fmt.Sprintf("%s requires attention. %d other test(s) are normal.",
			abnormal[0].CanonicalName, s.NormalCount)
	default:
		s.OverallStatus = StatusReviewRecommended
		s.OverallMessage = fmt.Sprintf("%d test(s) show abnormal values and should be reviewed with your doctor.",
			len(abnormal))
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, s); err != nil {
		return Summary{}, fmt.Errorf("rendering summary: %w", err)
	}
	s.Text = buf.String()
	return s, nil
}

func interpret(t domain.NormalizedTest) string {
	reading := formatNumber(t.Value)
	if t.Unit != "" {
		reading += " " + t.Unit
	}
	bounds := formatNumber(t.ReferenceRange.Low) + " - " + formatNumber(t.ReferenceRange.High)

	switch t.Status {
	case domain.StatusLow:
		return fmt.Sprintf("%s (%s) is below the normal range (%s). This may need further evaluation.",
			t.CanonicalName, reading, bounds)
	case domain.StatusHigh:
		return fmt.Sprintf("%s (%s) is above the normal range (%s). This should be discussed with your doctor.",
			t.CanonicalName, reading, bounds)
	default:
		return fmt.Sprintf("%s (%s) is within the normal range (%s).", t.CanonicalName, reading, bounds)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
