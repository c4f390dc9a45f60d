// Package cache provides an optional Redis-backed read-through cache for
// rendered timelines. A nil *TimelineCache is safe to use and disables
// caching, so callers never need to branch on configuration.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TimelineCache stores serialized timeline documents keyed by patient.
type TimelineCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New connects to Redis at the given URL. An empty URL returns nil, which
// disables caching.
func New(ctx context.Context, url string, ttl time.Duration, logger zerolog.Logger) (*TimelineCache, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &TimelineCache{client: client, ttl: ttl, logger: logger}, nil
}

func timelineKey(patientID string) string {
	return "timeline:" + patientID
}

// Get unmarshals the cached timeline for a patient into dst. It returns
// false on a miss; cache errors are logged and treated as misses.
func (c *TimelineCache) Get(ctx context.Context, patientID string, dst any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, timelineKey(patientID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("patient_id", patientID).Msg("timeline cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn().Err(err).Str("patient_id", patientID).Msg("timeline cache entry corrupt")
		return false
	}
	return true
}

// Set stores the timeline for a patient. Failures are logged, never returned:
// the cache is a derived copy and the caller has the authoritative document.
func (c *TimelineCache) Set(ctx context.Context, patientID string, timeline any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(timeline)
	if err != nil {
		c.logger.Warn().Err(err).Str("patient_id", patientID).Msg("timeline cache encode failed")
		return
	}
	if err := c.client.Set(ctx, timelineKey(patientID), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("patient_id", patientID).Msg("timeline cache write failed")
	}
}

// Invalidate drops the cached timeline for a patient. Called after any write
// that changes timeline sources.
func (c *TimelineCache) Invalidate(ctx context.Context, patientID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, timelineKey(patientID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("patient_id", patientID).Msg("timeline cache invalidate failed")
	}
}

// Close releases the underlying connection.
func (c *TimelineCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
