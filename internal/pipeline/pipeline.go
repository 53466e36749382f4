// Package pipeline wires parsing, name resolution, status classification, confidence
// aggregation and the guardrail into a single run over the lines of one report.
package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/classifier"
	"github.com/lab-report-normalizer/internal/confidence"
	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/guardrail"
	"github.com/lab-report-normalizer/internal/parser"
	"github.com/lab-report-normalizer/internal/resolver"
	"github.com/lab-report-normalizer/internal/textnorm"
)

// Input is the extractor output consumed by one run.
type Input struct {
	Lines                []string `json:"lines"`
	ExtractionConfidence float64  `json:"extraction_confidence"`
}

// Pipeline runs reports against a shared, read-only catalog. Runs share no mutable
// state, so one Pipeline serves any number of concurrent callers.
type Pipeline struct {
	catalog    domain.ReferenceCatalog
	parser     domain.LineParser
	resolver   domain.NameResolver
	classifier domain.StatusClassifier
	logger     *logrus.Logger
}

// New assembles a pipeline from its stages.
func New(catalog domain.ReferenceCatalog, p domain.LineParser, r domain.NameResolver, c domain.StatusClassifier, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Pipeline{
		catalog:    catalog,
		parser:     p,
		resolver:   r,
		classifier: c,
		logger:     logger,
	}
}

// NewDefault builds the stock stages from policy and settings.
func NewDefault(catalog domain.ReferenceCatalog, policy domain.ScoringPolicy, parserCfg domain.ParserConfig, memoSize int, logger *logrus.Logger) (*Pipeline, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring policy: %w", err)
	}
	res, err := resolver.New(catalog, policy.Resolution, memoSize, logger)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}
	return New(
		catalog,
		parser.New(policy.Parse, parserCfg, logger),
		res,
		classifier.New(policy.Status),
		logger,
	), nil
}

// Catalog returns the catalog the pipeline resolves against.
func (p *Pipeline) Catalog() domain.ReferenceCatalog {
	return p.catalog
}

// Run processes one report. It never returns an error: every failure is expressed through
// the result status, and identical input always yields an identical result.
func (p *Pipeline) Run(in Input) (result domain.PipelineResult) {
	extraction := confidence.Clamp(in.ExtractionConfidence)

	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("panic", r).Error("Pipeline run aborted")
			result = domain.PipelineResult{
				Status:               domain.PipelineNormalizationFailed,
				Tests:                []domain.NormalizedTest{},
				Hallucinated:         []string{},
				ExtractionConfidence: confidence.Round(extraction),
				Warnings:             []string{fmt.Sprintf("internal error during normalization: %v", r)},
				Stats:                domain.RunStats{Lines: countLines(in.Lines), Unresolved: []string{}},
			}
		}
	}()

	result = domain.PipelineResult{
		Tests:                []domain.NormalizedTest{},
		Hallucinated:         []string{},
		ExtractionConfidence: confidence.Round(extraction),
		Warnings:             []string{},
		Stats:                domain.RunStats{Lines: countLines(in.Lines), Unresolved: []string{}},
	}

	if result.Stats.Lines == 0 {
		result.Status = domain.PipelineNoTestsFound
		p.logRun(result)
		return result
	}

	var parsed []domain.ParsedTest
	for _, line := range in.Lines {
		if pt, ok := p.parser.Parse(line); ok {
			parsed = append(parsed, pt)
		}
	}
	result.Stats.Parsed = len(parsed)
	if len(parsed) == 0 {
		result.Status = domain.PipelineParseFailed
		p.logRun(result)
		return result
	}

	resolved := make([]domain.ResolvedTest, 0, len(parsed))
	for _, pt := range parsed {
		rt, ok := p.resolve(pt)
		if !ok {
			result.Stats.Unresolved = append(result.Stats.Unresolved, unresolvedLabel(pt))
			continue
		}
		resolved = append(resolved, rt)
	}

	normalized := make([]domain.NormalizedTest, 0, len(resolved))
	for _, rt := range resolved {
		nt, ok := p.normalize(rt, extraction)
		if !ok {
			result.Stats.Unresolved = append(result.Stats.Unresolved, unresolvedLabel(rt.Parsed))
			continue
		}
		normalized = append(normalized, nt)
	}
	result.Stats.Resolved = len(normalized)

	verdict := guardrail.Validate(in.Lines, normalized)
	result.Hallucinated = append(result.Hallucinated, verdict.Hallucinated...)
	result.Stats.Hallucinated = len(verdict.Hallucinated)
	result.Stats.Validated = len(verdict.Validated)

	scores := make([]float64, len(verdict.Validated))
	for i := range verdict.Validated {
		scores[i] = verdict.Validated[i].Confidence
		verdict.Validated[i].Confidence = confidence.Round(scores[i])
	}

	for _, nt := range verdict.Validated {
		if nt.ReportedUnit != "" && textnorm.Unit(nt.ReportedUnit) != textnorm.Unit(nt.Unit) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("unit mismatch for %s: reported %s, expected %s", nt.CanonicalName, nt.ReportedUnit, nt.Unit))
		}
	}
	result.Warnings = append(result.Warnings, verdict.Warnings...)
	result.Tests = append(result.Tests, verdict.Validated...)
	result.OverallConfidence = confidence.Round(confidence.Overall(scores))

	switch {
	case len(result.Tests) == 0:
		result.Status = domain.PipelineNormalizationFailed
	case len(result.Hallucinated) > 0:
		result.Status = domain.PipelineWarning
	default:
		result.Status = domain.PipelineOK
	}

	p.logRun(result)
	return result
}

// resolve maps a parsed record onto the catalog. It reports false for method none.
func (p *Pipeline) resolve(pt domain.ParsedTest) (domain.ResolvedTest, bool) {
	res, ok := p.resolver.Resolve(pt.CandidateName)
	if !ok {
		p.logger.WithField("candidate", pt.CandidateName).Debug("Dropping unresolved candidate")
		return domain.ResolvedTest{Parsed: pt, Resolution: res}, false
	}
	p.logger.WithFields(logrus.Fields{
		"candidate": pt.CandidateName,
		"canonical": res.CanonicalName,
		"method":    res.Method,
	}).Debug("Resolved candidate")
	return domain.ResolvedTest{Parsed: pt, Resolution: res}, true
}

// normalize classifies one resolved record. Confidence is left unrounded so the
// run score can be computed before presentation rounding.
func (p *Pipeline) normalize(rt domain.ResolvedTest, extraction float64) (domain.NormalizedTest, bool) {
	pt, res := rt.Parsed, rt.Resolution
	entry, ok := p.catalog.Lookup(res.CanonicalName)
	if !ok {
		p.logger.WithField("canonical", res.CanonicalName).Warn("Resolved name missing from catalog")
		return domain.NormalizedTest{}, false
	}

	status, statusConf := p.classifier.Classify(pt.Value, entry.ReferenceRange)
	score := confidence.StageScores{
		Extraction: extraction,
		Parse:      pt.ParseConfidence,
		Resolution: res.Confidence,
		Status:     statusConf,
	}.Score()

	return domain.NormalizedTest{
		CanonicalName:        entry.CanonicalName,
		Value:                pt.Value,
		Unit:                 entry.Unit,
		ReportedUnit:         pt.Unit,
		Status:               status,
		ReferenceRange:       entry.ReferenceRange,
		PrintedRange:         pt.PrintedRange,
		Category:             entry.Category,
		ResolutionMethod:     res.Method,
		ResolutionConfidence: confidence.Round(res.Confidence),
		ParseConfidence:      confidence.Round(pt.ParseConfidence),
		StatusConfidence:     confidence.Round(statusConf),
		Confidence:           score,
		Aliases:              entry.Aliases,
		RawLine:              pt.RawLine,
	}, true
}

func (p *Pipeline) logRun(r domain.PipelineResult) {
	entry := p.logger.WithFields(logrus.Fields{
		"lines":              r.Stats.Lines,
		"parsed":             r.Stats.Parsed,
		"resolved":           r.Stats.Resolved,
		"validated":          r.Stats.Validated,
		"hallucinated":       r.Stats.Hallucinated,
		"status":             r.Status,
		"overall_confidence": r.OverallConfidence,
	})
	if len(r.Hallucinated) > 0 {
		entry.WithField("names", r.Hallucinated).Warn("Guardrail removed hallucinated tests")
	}
	entry.Info("Pipeline run completed")
}

func countLines(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

func unresolvedLabel(pt domain.ParsedTest) string {
	if pt.CandidateName != "" {
		return pt.CandidateName
	}
	return strings.TrimSpace(pt.RawLine)
}
