package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/lab-report-normalizer/internal/domain"
)

// ErrUnavailable is returned while the breaker refuses calls.
var ErrUnavailable = errors.New("extractor unavailable")

// Guarded bounds an Extractor by a per-call timeout and a circuit breaker.
type Guarded struct {
	inner   Extractor
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewGuarded wraps inner. Zero breaker settings fall back to conservative defaults.
func NewGuarded(inner Extractor, cfg domain.ExtractionConfig, logger *logrus.Logger) *Guarded {
	if cfg.BreakerMaxRequests == 0 {
		cfg.BreakerMaxRequests = 3
	}
	if cfg.BreakerInterval == 0 {
		cfg.BreakerInterval = 60 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 5
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	settings := gobreaker.Settings{
		Name:        "Extractor",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		// Unsupported documents are caller errors, not extractor faults.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnsupportedContent)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &Guarded{
		inner:   inner,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Extract runs the wrapped extractor within the timeout budget.
func (g *Guarded) Extract(ctx context.Context, doc Document) (Extraction, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.extractWithTimeout(ctx, doc)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Extraction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Extraction{}, err
	}
	return result.(Extraction), nil
}

// State reports the breaker state for health checks.
func (g *Guarded) State() string {
	return g.breaker.State().String()
}

func (g *Guarded) extractWithTimeout(ctx context.Context, doc Document) (Extraction, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type outcome struct {
		ext Extraction
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ext, err := g.inner.Extract(ctx, doc)
		done <- outcome{ext: ext, err: err}
	}()

	select {
	case out := <-done:
		return out.ext, out.err
	case <-ctx.Done():
		g.logger.WithFields(logrus.Fields{
			"document": doc.Name,
			"timeout":  g.timeout.String(),
		}).Warn("Extraction abandoned")
		return Extraction{}, fmt.Errorf("extracting %q: %w", doc.Name, ctx.Err())
	}
}
