// Package history records finished pipeline runs so they can be looked up later.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/domain"
)

// ErrNotFound is returned when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// Record is one persisted pipeline run.
type Record struct {
	ID                string                `json:"run_id"`
	CreatedAt         time.Time             `json:"created_at"`
	Source            string                `json:"source"`
	Status            domain.PipelineStatus `json:"pipeline_status"`
	TestCount         int                   `json:"test_count"`
	OverallConfidence float64               `json:"overall_confidence"`
	Result            domain.PipelineResult `json:"result"`
}

// NewRecord builds a record for a finished run.
func NewRecord(id, source string, result domain.PipelineResult) *Record {
	return &Record{
		ID:                id,
		CreatedAt:         time.Now().UTC(),
		Source:            source,
		Status:            result.Status,
		TestCount:         len(result.Tests),
		OverallConfidence: result.OverallConfidence,
		Result:            result,
	}
}

// Store defines the interface for run history storage.
type Store interface {
	// Save persists a run. Saving an existing ID fails.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a run by ID. It returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns runs newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of stored runs.
	Count(ctx context.Context) (int64, error)

	Close() error
}

// Open creates the store selected by cfg. Driver "none" or "" disables history and
// returns a nil store.
func Open(ctx context.Context, cfg domain.HistoryConfig, logger *logrus.Logger) (Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		if cfg.Migrate {
			runner, err := NewMigrationRunner(cfg.PostgresDSN, logger)
			if err != nil {
				return nil, err
			}
			err = runner.Up(ctx)
			if cerr := runner.Close(); cerr != nil {
				logger.WithError(cerr).Warn("Failed to close migration runner")
			}
			if err != nil {
				return nil, err
			}
		}
		return NewPostgresStoreFromURL(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record. The result column holds the JSON-encoded
// pipeline result.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var status string
	var payload []byte

	err := s.Scan(
		&rec.ID, &rec.CreatedAt, &rec.Source, &status,
		&rec.TestCount, &rec.OverallConfidence, &payload,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.PipelineStatus(status)
	if err := json.Unmarshal(payload, &rec.Result); err != nil {
		return nil, fmt.Errorf("decoding stored result for run %s: %w", rec.ID, err)
	}
	return rec, nil
}

func encodeResult(rec *Record) ([]byte, error) {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return nil, fmt.Errorf("encoding result for run %s: %w", rec.ID, err)
	}
	return payload, nil
}

func validateRecord(rec *Record) error {
	if rec == nil {
		return errors.New("record is required")
	}
	if rec.ID == "" {
		return errors.New("record ID is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}
