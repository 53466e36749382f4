// Package batch runs many independent reports with bounded concurrency.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lab-report-normalizer/internal/extract"
)

// ErrPanic marks a job whose handler panicked.
var ErrPanic = errors.New("report processing panicked")

// Job is one report in a batch.
type Job struct {
	ID       string
	Document extract.Document
}

// Handler processes a single job.
type Handler[T any] func(ctx context.Context, job Job) (T, error)

// Item is the outcome of one job. Exactly one of Result or Err is meaningful.
type Item[T any] struct {
	ID     string `json:"id"`
	Result T      `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Err    error  `json:"-"`
}

// Succeeded reports whether the job produced a result.
func (i Item[T]) Succeeded() bool {
	return i.Err == nil
}

// Processor fans jobs out to a handler. A failing or panicking job only affects its own item.
type Processor[T any] struct {
	handler     Handler[T]
	concurrency int
	logger      *logrus.Logger
}

// NewProcessor creates a processor. A concurrency below one uses GOMAXPROCS.
func NewProcessor[T any](handler Handler[T], concurrency int, logger *logrus.Logger) *Processor[T] {
	if concurrency < 1 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Processor[T]{handler: handler, concurrency: concurrency, logger: logger}
}

// Process runs every job and returns one item per job, in job order.
//
// Cancelling ctx stops new jobs from starting; those jobs carry the context error. Jobs that
// already started run to completion with a context detached from the cancellation.
func (p *Processor[T]) Process(ctx context.Context, jobs []Job) []Item[T] {
	start := time.Now()
	items := make([]Item[T], len(jobs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, job := range jobs {
		items[i].ID = job.ID
		if err := ctx.Err(); err != nil {
			items[i].setErr(err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].setErr(err)
				return nil
			}
			items[i] = p.runOne(context.WithoutCancel(ctx), job)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if !it.Succeeded() {
			failed++
		}
	}
	p.logger.WithFields(logrus.Fields{
		"jobs":     len(jobs),
		"failed":   failed,
		"duration": time.Since(start).String(),
	}).Info("Batch completed")

	return items
}

func (p *Processor[T]) runOne(ctx context.Context, job Job) (item Item[T]) {
	item.ID = job.ID
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{"job": job.ID, "panic": r}).Error("Batch job panicked")
			var zero T
			item.Result = zero
			item.setErr(fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	result, err := p.handler(ctx, job)
	if err != nil {
		p.logger.WithFields(logrus.Fields{"job": job.ID, "error": err.Error()}).Warn("Batch job failed")
		item.setErr(err)
		return item
	}
	item.Result = result
	return item
}

func (i *Item[T]) setErr(err error) {
	i.Err = err
	i.Error = err.Error()
}
