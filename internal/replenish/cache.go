package replenish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "replenish:run:"
	cacheKeyLatest = "replenish:run:latest"
)

// RunCache keeps recent run summaries in Redis so the ops surface can answer
// without touching PostgreSQL. Best effort: a cold or absent cache is never
// an error for the pipeline.
type RunCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunCache instantiates the cache helper.
func NewRunCache(client *redis.Client, ttl time.Duration) *RunCache {
	return &RunCache{client: client, ttl: ttl}
}

// StoreSummary caches the run under its day and marks it as latest.
func (c *RunCache) StoreSummary(ctx context.Context, run Run) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(run)
	if err != nil {
		return err
	}
	key := cacheKeyPrefix + run.Day.Format("2006-01-02")
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyLatest, raw, c.ttl).Err()
}

// GetSummary loads a cached run for a day. The second return value reports a
// cache hit.
func (c *RunCache) GetSummary(ctx context.Context, day time.Time) (Run, bool, error) {
	return c.get(ctx, cacheKeyPrefix+day.Format("2006-01-02"))
}

// LatestSummary loads the most recently stored run.
func (c *RunCache) LatestSummary(ctx context.Context) (Run, bool, error) {
	return c.get(ctx, cacheKeyLatest)
}

func (c *RunCache) get(ctx context.Context, key string) (Run, bool, error) {
	if c == nil || c.client == nil {
		return Run{}, false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	var run Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}
