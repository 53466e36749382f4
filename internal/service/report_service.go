package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/batch"
	"github.com/lab-report-normalizer/internal/cache"
	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/extract"
	"github.com/lab-report-normalizer/internal/history"
	"github.com/lab-report-normalizer/internal/pipeline"
	"github.com/lab-report-normalizer/internal/report"
)

var (
	// ErrHistoryDisabled is returned by run lookups when no history store is configured.
	ErrHistoryDisabled = errors.New("run history is disabled")
	// ErrBatchTooLarge is returned when a batch exceeds the configured report limit.
	ErrBatchTooLarge = errors.New("batch exceeds the maximum number of reports")
	// ErrEmptyBatch is returned for a batch without reports.
	ErrEmptyBatch = errors.New("batch contains no reports")
	// ErrHistoryUnavailable wraps failures of the history store other than a missing run.
	ErrHistoryUnavailable = errors.New("run history unavailable")
)

// Run sources recorded in history.
const (
	SourceText     = "text"
	SourceLines    = "lines"
	SourceDocument = "document"
	SourceBatch    = "batch"
)

// Outcome is one processed report as returned to callers.
type Outcome struct {
	RunID   string                `json:"run_id"`
	Result  domain.PipelineResult `json:"result"`
	Summary *report.Summary       `json:"summary,omitempty"`
	Cached  bool                  `json:"cached"`
}

// BatchReport is one text report submitted in a batch.
type BatchReport struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ReportService ties extraction, normalization, caching and run history together.
type ReportService struct {
	logger    *logrus.Logger
	pipeline  *pipeline.Pipeline
	extractor extract.Extractor
	cache     cache.ResultCache
	history   history.Store
	summaries *report.Generator
	batchCfg  domain.BatchConfig
	batch     *batch.Processor[*Outcome]
}

// NewReportService creates a report service. resultCache and store may be nil, which
// disables caching and run history respectively.
func NewReportService(
	logger *logrus.Logger,
	p *pipeline.Pipeline,
	extractor extract.Extractor,
	resultCache cache.ResultCache,
	store history.Store,
	summaries *report.Generator,
	batchCfg domain.BatchConfig,
) *ReportService {
	if resultCache == nil {
		resultCache = cache.Nop{}
	}
	s := &ReportService{
		logger:    logger,
		pipeline:  p,
		extractor: extractor,
		cache:     resultCache,
		history:   store,
		summaries: summaries,
		batchCfg:  batchCfg,
	}
	s.batch = batch.NewProcessor(s.processJob, batchCfg.Concurrency, logger)
	return s
}

// Catalog returns the catalog reports are normalized against.
func (s *ReportService) Catalog() domain.ReferenceCatalog {
	return s.pipeline.Catalog()
}

// HistoryEnabled reports whether runs are recorded.
func (s *ReportService) HistoryEnabled() bool {
	return s.history != nil
}

// ExtractorState reports the extractor's circuit breaker state, or "unguarded".
func (s *ReportService) ExtractorState() string {
	if g, ok := s.extractor.(interface{ State() string }); ok {
		return g.State()
	}
	return "unguarded"
}

// ProcessText normalizes a plain text report. A non-nil extractionConfidence overrides the
// extractor's estimate.
func (s *ReportService) ProcessText(ctx context.Context, text string, extractionConfidence *float64) (*Outcome, error) {
	return s.processDocument(ctx, extract.Document{
		Name:        "text",
		ContentType: extract.ContentTypeText,
		Data:        []byte(text),
	}, extractionConfidence, SourceText)
}

// ProcessDocument extracts and normalizes an uploaded document.
func (s *ReportService) ProcessDocument(ctx context.Context, doc extract.Document) (*Outcome, error) {
	return s.processDocument(ctx, doc, nil, SourceDocument)
}

// ProcessLines normalizes lines that were already extracted.
func (s *ReportService) ProcessLines(ctx context.Context, lines []string, extractionConfidence float64) (*Outcome, error) {
	return s.run(ctx, lines, extractionConfidence, SourceLines)
}

// ProcessBatch normalizes several text reports concurrently. Each item carries either its
// outcome or its own error.
func (s *ReportService) ProcessBatch(ctx context.Context, reports []BatchReport) ([]batch.Item[*Outcome], error) {
	if len(reports) == 0 {
		return nil, ErrEmptyBatch
	}
	if s.batchCfg.MaxReports > 0 && len(reports) > s.batchCfg.MaxReports {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(reports), s.batchCfg.MaxReports)
	}

	jobs := make([]batch.Job, len(reports))
	for i, r := range reports {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("report-%d", i+1)
		}
		jobs[i] = batch.Job{
			ID: id,
			Document: extract.Document{
				Name:        id,
				ContentType: extract.ContentTypeText,
				Data:        []byte(r.Text),
			},
		}
	}
	return s.batch.Process(ctx, jobs), nil
}

// GetRun returns a recorded run.
func (s *ReportService) GetRun(ctx context.Context, id string) (*history.Record, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	rec, err := s.history.Get(ctx, id)
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	return rec, err
}

// ListRuns returns recorded runs newest first and the total number recorded.
func (s *ReportService) ListRuns(ctx context.Context, limit, offset int) ([]*history.Record, int64, error) {
	if s.history == nil {
		return nil, 0, ErrHistoryDisabled
	}
	records, err := s.history.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	total, err := s.history.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	return records, total, nil
}

// Close releases the cache and history store.
func (s *ReportService) Close() error {
	var errs []error
	if err := s.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing result cache: %w", err))
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing history store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *ReportService) processJob(ctx context.Context, job batch.Job) (*Outcome, error) {
	return s.processDocument(ctx, job.Document, nil, SourceBatch)
}

func (s *ReportService) processDocument(ctx context.Context, doc extract.Document, extractionConfidence *float64, source string) (*Outcome, error) {
	extraction, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extracting report: %w", err)
	}
	conf := extraction.Confidence
	if extractionConfidence != nil {
		conf = *extractionConfidence
	}
	return s.run(ctx, extraction.Lines, conf, source)
}

func (s *ReportService) run(ctx context.Context, lines []string, extractionConfidence float64, source string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.WithFields(logrus.Fields{"run_id": runID, "source": source})

	key := cache.Key(lines, extractionConfidence)
	result, cached, err := s.cache.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Result cache lookup failed")
		cached = false
	}
	if !cached {
		result = s.pipeline.Run(pipeline.Input{Lines: lines, ExtractionConfidence: extractionConfidence})
		if err := s.cache.Set(ctx, key, result); err != nil {
			log.WithError(err).Warn("Failed to cache result")
		}
	}

	outcome := &Outcome{RunID: runID, Result: result, Cached: cached}

	if s.summaries != nil {
		summary, err := s.summaries.Generate(result)
		if err != nil {
			log.WithError(err).Warn("Failed to generate summary")
		} else {
			outcome.Summary = &summary
		}
	}

	if s.history != nil {
		if err := s.history.Save(ctx, history.NewRecord(runID, source, result)); err != nil {
			log.WithError(err).Error("Failed to record run")
		}
	}

	log.WithFields(logrus.Fields{
		"status":      result.Status,
		"tests":       len(result.Tests),
		"cached":      cached,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Report processed")

	return outcome, nil
}
