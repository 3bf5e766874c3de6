// Package cache is a Redis read-through cache for the day summary the
// kiosk dashboard polls. Optional: the aggregator runs uncached when no
// Redis client is configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"genkan/internal/stats"
)

const defaultTTL = 30 * time.Second

// RedisSummaryCache stores JSON-encoded summaries under short TTLs. A hit
// can be up to one TTL stale, which the dashboard tolerates; correctness
// queries bypass the cache entirely.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*RedisSummaryCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *RedisSummaryCache) { c.ttl = ttl }
}

func NewRedisSummaryCache(client *redis.Client, opts ...Option) *RedisSummaryCache {
	c := &RedisSummaryCache{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached summary or (nil, nil) on a miss.
func (c *RedisSummaryCache) Get(ctx context.Context, key string) (*stats.Summary, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var summary stats.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		return nil, nil
	}
	return &summary, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, key string, summary *stats.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
