package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lab-report-normalizer/internal/domain"
)

// MemoryCache is a size-bounded in-process LRU with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, domain.PipelineResult]
}

// NewMemoryCache creates a cache holding at most size results for ttl each.
// A zero ttl keeps entries until they are evicted by size.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, domain.PipelineResult](size, nil, ttl)}
}

// Get returns the result stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) (domain.PipelineResult, bool, error) {
	r, ok := c.lru.Get(key)
	return r, ok, nil
}

// Set stores result under key.
func (c *MemoryCache) Set(_ context.Context, key string, result domain.PipelineResult) error {
	c.lru.Add(key, result)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
