// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package feeds

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/metrics"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// Cache status values recorded in feed metadata.
const (
	CacheStatusSuccess = "success"
	CacheStatusStale   = "stale"
	CacheStatusError   = "error"
)

// feedTTLs is how long a feed's cache stays fresh before the next read
// triggers a refresh.
var feedTTLs = map[string]time.Duration{
	FeedWildfires:     5 * time.Minute,
	FeedWeatherAlerts: 5 * time.Minute,
	FeedEarthquakes:   10 * time.Minute,
	FeedGDACS:         30 * time.Minute,
	FeedFEMA:          24 * time.Hour,
	FeedCalFire:       30 * time.Minute,
	FeedCalOES:        30 * time.Minute,
}

// CacheMetadata is the per-feed metadata document.
type CacheMetadata struct {
	LastUpdated time.Time `json:"last_updated"`
	Count       int       `json:"count"`
	Status      string    `json:"status"`
	// LastError holds the most recent fetch error when Status is stale or
	// error.
	LastError string `json:"last_error,omitempty"`
}

// Manager owns the per-feed cache documents. Every adapter fetch goes
// through a circuit breaker; when the upstream fails or the breaker is
// open, the last successful cache is served and the failure never reaches
// the HTTP layer.
type Manager struct {
	store    *store.Store
	clock    clockwork.Clock
	adapters map[string]FeedAdapter
	breakers map[string]*gobreaker.CircuitBreaker[[]models.DisasterEvent]

	// refreshing serializes refreshes per feed so concurrent requests for a
	// stale feed fetch once.
	mu         sync.Mutex
	refreshing map[string]*sync.Mutex
}

// NewManager creates a cache manager over the given adapters. A nil clock
// uses the real clock.
func NewManager(st *store.Store, clock clockwork.Clock, adapters ...FeedAdapter) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	m := &Manager{
		store:      st,
		clock:      clock,
		adapters:   make(map[string]FeedAdapter, len(adapters)),
		breakers:   make(map[string]*gobreaker.CircuitBreaker[[]models.DisasterEvent], len(adapters)),
		refreshing: make(map[string]*sync.Mutex, len(adapters)),
	}
	for _, a := range adapters {
		m.adapters[a.FeedType()] = a
		m.breakers[a.FeedType()] = gobreaker.NewCircuitBreaker[[]models.DisasterEvent](gobreaker.Settings{
			Name:    "feed_" + a.FeedType(),
			Timeout: 2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("feed circuit breaker state change")
			},
		})
		m.refreshing[a.FeedType()] = &sync.Mutex{}
	}
	return m
}

// FeedTypes returns the registered feed keys, sorted.
func (m *Manager) FeedTypes() []string {
	types := make([]string, 0, len(m.adapters))
	for t := range m.adapters {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Known reports whether feedType has a registered adapter.
func (m *Manager) Known(feedType string) bool {
	_, ok := m.adapters[feedType]
	return ok
}

// ShouldUpdate reports whether the feed's cache is stale per its TTL. A
// missing metadata document counts as stale.
func (m *Manager) ShouldUpdate(ctx context.Context, feedType string) bool {
	ttl, ok := feedTTLs[feedType]
	if !ok {
		return false
	}
	var meta CacheMetadata
	if err := m.store.Get(ctx, store.FeedCachePath(feedType, "metadata"), &meta); err != nil {
		return true
	}
	return m.clock.Now().Sub(meta.LastUpdated) >= ttl
}

// GetCachedData returns the last cached events for the feed without
// touching the upstream. A missing cache returns an empty slice.
func (m *Manager) GetCachedData(ctx context.Context, feedType string) ([]models.DisasterEvent, error) {
	var events []models.DisasterEvent
	err := m.store.Get(ctx, store.FeedCachePath(feedType, "data"), &events)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s cache: %w", feedType, err)
	}
	return events, nil
}

// UpdateCache overwrites the feed's data and metadata documents.
func (m *Manager) UpdateCache(ctx context.Context, feedType string, events []models.DisasterEvent) error {
	meta := CacheMetadata{
		LastUpdated: m.clock.Now().UTC(),
		Count:       len(events),
		Status:      CacheStatusSuccess,
	}
	ops := []store.Op{
		{Path: store.FeedCachePath(feedType, "data"), Value: events},
		{Path: store.FeedCachePath(feedType, "metadata"), Value: meta},
	}
	if err := m.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("write %s cache: %w", feedType, err)
	}
	return nil
}

// Refresh returns fresh events for the feed, fetching from the upstream
// only when the cache is stale. On fetch failure the last successful cache
// is returned and the metadata status downgraded to stale; Refresh returns
// an error only when there is no cache to fall back to.
func (m *Manager) Refresh(ctx context.Context, feedType string, windowDays int) ([]models.DisasterEvent, error) {
	adapter, ok := m.adapters[feedType]
	if !ok {
		return nil, fmt.Errorf("unknown feed type %q", feedType)
	}

	lock := m.feedLock(feedType)
	lock.Lock()
	defer lock.Unlock()

	if !m.ShouldUpdate(ctx, feedType) {
		return m.GetCachedData(ctx, feedType)
	}

	events, err := m.breakers[feedType].Execute(func() ([]models.DisasterEvent, error) {
		return adapter.Fetch(ctx, windowDays)
	})
	if err != nil {
		logging.Warn().Err(err).Str("feed", feedType).Msg("feed fetch failed, serving stale cache")
		metrics.FeedRefreshes.WithLabelValues(feedType, "error").Inc()
		m.markStale(ctx, feedType, err)
		cached, cerr := m.GetCachedData(ctx, feedType)
		if cerr != nil {
			return nil, cerr
		}
		if cached == nil {
			return nil, fmt.Errorf("fetch %s with empty cache: %w", feedType, err)
		}
		return cached, nil
	}

	if uerr := m.UpdateCache(ctx, feedType, events); uerr != nil {
		return nil, uerr
	}
	metrics.FeedRefreshes.WithLabelValues(feedType, "success").Inc()
	metrics.FeedEvents.WithLabelValues(feedType).Set(float64(len(events)))
	logging.Info().Str("feed", feedType).Int("count", len(events)).Msg("feed cache refreshed")
	return events, nil
}

// RefreshAll refreshes every registered feed, continuing past individual
// failures. The returned map holds the events served per feed.
func (m *Manager) RefreshAll(ctx context.Context, windowDays int) map[string][]models.DisasterEvent {
	out := make(map[string][]models.DisasterEvent, len(m.adapters))
	for _, feedType := range m.FeedTypes() {
		events, err := m.Refresh(ctx, feedType, windowDays)
		if err != nil {
			logging.Error().Err(err).Str("feed", feedType).Msg("feed refresh failed with no cached fallback")
			continue
		}
		out[feedType] = events
	}
	return out
}

// AllActive returns the merged events of every feed, refreshing stale
// caches. Expired weather alerts are filtered out at read time.
func (m *Manager) AllActive(ctx context.Context, windowDays int) []models.DisasterEvent {
	now := m.clock.Now()
	var all []models.DisasterEvent
	for _, events := range m.RefreshAll(ctx, windowDays) {
		for _, ev := range events {
			if ev.Expires != nil && ev.Expires.Before(now) {
				continue
			}
			all = append(all, ev)
		}
	}
	return all
}

// Status returns the metadata for every registered feed. Feeds never
// fetched report a zero LastUpdated and empty status.
func (m *Manager) Status(ctx context.Context) map[string]CacheMetadata {
	out := make(map[string]CacheMetadata, len(m.adapters))
	for feedType := range m.adapters {
		var meta CacheMetadata
		if err := m.store.Get(ctx, store.FeedCachePath(feedType, "metadata"), &meta); err != nil && err != store.ErrNotFound {
			logging.Error().Err(err).Str("feed", feedType).Msg("read feed metadata")
		}
		out[feedType] = meta
	}
	return out
}

// Clear removes a feed's cache documents, forcing the next read to fetch.
func (m *Manager) Clear(ctx context.Context, feedType string) error {
	return m.store.Batch(ctx, []store.Op{
		{Path: store.FeedCachePath(feedType, "data"), Delete: true},
		{Path: store.FeedCachePath(feedType, "metadata"), Delete: true},
	})
}

// markStale downgrades the feed's metadata after a failed fetch, keeping
// the previous data document intact.
func (m *Manager) markStale(ctx context.Context, feedType string, fetchErr error) {
	var meta CacheMetadata
	err := m.store.Get(ctx, store.FeedCachePath(feedType, "metadata"), &meta)
	if err != nil && err != store.ErrNotFound {
		logging.Error().Err(err).Str("feed", feedType).Msg("read feed metadata for stale mark")
		return
	}
	if err == store.ErrNotFound {
		meta.Status = CacheStatusError
	} else {
		meta.Status = CacheStatusStale
	}
	meta.LastError = fetchErr.Error()
	if serr := m.store.Set(ctx, store.FeedCachePath(feedType, "metadata"), meta); serr != nil {
		logging.Error().Err(serr).Str("feed", feedType).Msg("write stale feed metadata")
	}
}

func (m *Manager) feedLock(feedType string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.refreshing[feedType]
	if !ok {
		lock = &sync.Mutex{}
		m.refreshing[feedType] = lock
	}
	return lock
}
