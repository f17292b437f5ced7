// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// Counter is an atomic increment-with-expiry, keyed by clock-hour bucket.
// The document store backs single-process deployments; Redis backs
// horizontally scaled ones.
type Counter interface {
	Incr(ctx context.Context, bucket string) (int64, error)
}

// Quota admits AI requests while the hourly counter stays under the limit.
type Quota struct {
	counter Counter
	clock   clockwork.Clock
	limit   int64
}

// NewQuota creates the hourly quota gate. A nil clock uses the real clock.
func NewQuota(counter Counter, clock clockwork.Clock, limit int64) *Quota {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Quota{counter: counter, clock: clock, limit: limit}
}

// Admit increments the current hour's counter and reports whether the
// request is within quota. The increment happens before the check, so
// admission is race-free across concurrent callers.
func (q *Quota) Admit(ctx context.Context) error {
	bucket := q.clock.Now().UTC().Format("2006-01-02-15")
	n, err := q.counter.Incr(ctx, bucket)
	if err != nil {
		return fmt.Errorf("quota incr: %w", err)
	}
	if n > q.limit {
		return ErrQuotaExhausted
	}
	return nil
}

// StoreCounter counts in the document store. Stale hour buckets are reaped
// opportunistically on each increment.
type StoreCounter struct {
	store *store.Store
	clock clockwork.Clock
}

// NewStoreCounter creates the document-store-backed counter.
func NewStoreCounter(st *store.Store, clock clockwork.Clock) *StoreCounter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StoreCounter{store: st, clock: clock}
}

// Incr implements Counter.
func (c *StoreCounter) Incr(ctx context.Context, bucket string) (int64, error) {
	n, err := c.store.Increment(ctx, store.AIUsagePath(bucket), 1)
	if err != nil {
		return 0, err
	}
	c.reap(ctx)
	return n, nil
}

// reap deletes hour buckets older than 24 hours. Best effort.
func (c *StoreCounter) reap(ctx context.Context) {
	cutoff := c.clock.Now().UTC().Add(-24 * time.Hour).Format("2006-01-02-15")
	var stale []string
	err := c.store.List(ctx, store.AIUsagePrefix(), func(path string, _ []byte) error {
		bucket := strings.TrimPrefix(path, store.AIUsagePrefix())
		if bucket < cutoff {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Msg("ai usage reap scan failed")
		return
	}
	for _, path := range stale {
		if derr := c.store.Delete(ctx, path); derr != nil {
			logging.Warn().Err(derr).Str("path", path).Msg("ai usage reap delete failed")
		}
	}
}

// RedisCounter counts in Redis with a 24h key expiry, for deployments with
// more than one worker.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates the Redis-backed counter from a connection URL.
func NewRedisCounter(url string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisCounter{client: redis.NewClient(opts)}, nil
}

// Incr implements Counter.
func (c *RedisCounter) Incr(ctx context.Context, bucket string) (int64, error) {
	key := "ai_usage:" + bucket
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Close releases the Redis connection.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}
