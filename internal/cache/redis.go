package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/domain"
)

const keyPrefix = "labnorm:result:"

// RedisCache shares results between server replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// cachedResult wraps a result with its cache metadata.
type cachedResult struct {
	Result   domain.PipelineResult `json:"result"`
	CachedAt time.Time             `json:"cached_at"`
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, ttl, logger), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the result stored under key. Corrupt entries are deleted and reported as misses.
func (c *RedisCache) Get(ctx context.Context, key string) (domain.PipelineResult, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PipelineResult{}, false, nil
	}
	if err != nil {
		return domain.PipelineResult{}, false, fmt.Errorf("failed to get cached result: %w", err)
	}

	var cached cachedResult
	if err := json.Unmarshal(val, &cached); err != nil {
		c.logger.WithField("key", key).Warn("Removing corrupt cache entry")
		c.client.Del(ctx, keyPrefix+key)
		return domain.PipelineResult{}, false, nil
	}
	return cached.Result, true, nil
}

// Set stores result under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, result domain.PipelineResult) error {
	data, err := json.Marshal(cachedResult{Result: result, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal cached result: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
