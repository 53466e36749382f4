// Package service exposes report normalization to the API, MCP and CLI surfaces.
package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/cache"
	"github.com/lab-report-normalizer/internal/catalog"
	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/extract"
	"github.com/lab-report-normalizer/internal/history"
	"github.com/lab-report-normalizer/internal/pipeline"
	"github.com/lab-report-normalizer/internal/report"
)

// Build wires a ReportService from configuration: catalog, pipeline, guarded extractor,
// result cache and run history.
func Build(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*ReportService, error) {
	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"path":  cfg.Catalog.Path,
		"tests": cat.Len(),
	}).Info("Reference catalog loaded")

	p, err := pipeline.NewDefault(cat, cfg.Scoring, cfg.Parser, cfg.Cache.ResolverEntries, logger)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	summaries, err := report.NewGenerator(cat)
	if err != nil {
		return nil, err
	}

	resultCache, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		resultCache.Close()
		return nil, fmt.Errorf("opening run history: %w", err)
	}

	extractor := extract.NewGuarded(extract.NewTextExtractor(), cfg.Extraction, logger)

	return NewReportService(logger, p, extractor, resultCache, store, summaries, cfg.Batch), nil
}

func openCache(ctx context.Context, cfg domain.CacheConfig, logger *logrus.Logger) (cache.ResultCache, error) {
	switch {
	case cfg.RedisURL != "":
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.TTL, logger)
		if err != nil {
			return nil, fmt.Errorf("opening result cache: %w", err)
		}
		logger.Info("Using Redis result cache")
		return c, nil
	case cfg.ResultEntries > 0:
		return cache.NewMemoryCache(cfg.ResultEntries, cfg.TTL), nil
	default:
		return cache.Nop{}, nil
	}
}
