// Package cache keeps short-lived copies of dashboard statistics in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nhle/compliance-notifier/internal/model"
)

const keyPrefix = "compliance:stats:"

// DefaultTTL bounds how stale a cached statistic may be.
const DefaultTTL = 30 * time.Second

// Client is the subset of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// StatsSource computes statistics when the cache misses.
type StatsSource interface {
	GetTaskStats(ctx context.Context, now time.Time, days int, userID *string) (model.TaskStats, error)
}

// NewClient returns a Redis client for cfg, or nil when no address is set.
func NewClient(cfg model.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Stats serves task statistics from Redis, falling back to the source on a
// miss or any Redis failure. A nil client disables caching.
type Stats struct {
	client Client
	source StatsSource
	ttl    time.Duration
	days   int
	log    logrus.FieldLogger
}

// NewStats returns a cache computing due-soon counts over a window of days,
// which must match the engine's window.
func NewStats(client Client, source StatsSource, ttl time.Duration, days int, log logrus.FieldLogger) *Stats {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if days <= 0 {
		days = model.DueSoonDays
	}
	return &Stats{client: client, source: source, ttl: ttl, days: days, log: log}
}

func key(userID *string) string {
	if userID == nil {
		return keyPrefix + "all"
	}
	return keyPrefix + "user:" + *userID
}

// Get returns statistics for all tasks, or those assigned to userID.
func (c *Stats) Get(ctx context.Context, now time.Time, userID *string) (model.TaskStats, error) {
	if c.client == nil {
		return c.source.GetTaskStats(ctx, now, c.days, userID)
	}

	k := key(userID)
	data, err := c.client.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		var stats model.TaskStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return stats, nil
		}
		c.log.WithField("key", k).Warn("discarding unreadable cached stats")
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).WithField("key", k).Warn("stats cache unavailable")
	}

	stats, err := c.source.GetTaskStats(ctx, now, c.days, userID)
	if err != nil {
		return model.TaskStats{}, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := c.client.Set(ctx, k, data, c.ttl).Err(); err != nil {
			c.log.WithError(err).WithField("key", k).Warn("storing stats in cache")
		}
	}
	return stats, nil
}

// Invalidate drops the global entry and the entries of the given users.
func (c *Stats) Invalidate(ctx context.Context, userIDs ...*string) {
	if c.client == nil {
		return
	}
	keys := []string{key(nil)}
	for _, id := range userIDs {
		if id != nil {
			keys = append(keys, key(id))
		}
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).Warn("invalidating stats cache")
	}
}
