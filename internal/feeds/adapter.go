// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package feeds ingests disaster events from the upstream public feeds and
// maintains the per-feed cache documents.
//
// Each upstream is a FeedAdapter: it owns its transport (HTTP JSON, CSV, or
// RSS) and its schema mapping, and produces normalized
// models.DisasterEvent records. Adapters must:
//
//   - clamp the query window to the upstream's allowed range
//   - drop records with invalid coordinates or missing timestamps
//   - namespace IDs with the source prefix
//   - assign an initial severity from source-specific fields
//   - attach official-source confidence via the injected scorer
//
// The Manager wraps adapters with circuit breakers and per-feed TTLs and
// guarantees stale-on-error fallback: an upstream failure never propagates
// past the cache layer.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// Feed type keys; these are the cache document names under
// public_data_cache/ and the values accepted by the cache API endpoints.
const (
	FeedWildfires     = "wildfires"
	FeedWeatherAlerts = "weather_alerts"
	FeedEarthquakes   = "earthquakes"
	FeedGDACS         = "gdacs"
	FeedFEMA          = "fema"
	FeedCalFire       = "cal_fire"
	FeedCalOES        = "cal_oes"
)

// FeedAdapter fetches and normalizes one upstream feed.
type FeedAdapter interface {
	// FeedType returns the cache key this adapter populates.
	FeedType() string
	// Fetch retrieves events from the upstream, clamping windowDays to the
	// upstream's allowed range.
	Fetch(ctx context.Context, windowDays int) ([]models.DisasterEvent, error)
}

// ConfidenceScorer is the scoring capability adapters consume. Implemented
// by the confidence package; injected at construction so the adapter and
// scorer packages stay acyclic.
type ConfidenceScorer interface {
	// ScoreOfficial fills the event's confidence score, level, and
	// breakdown via the official-source path.
	ScoreOfficial(event *models.DisasterEvent)
}

// httpClient is the shared transport wrapper for adapters: it applies the
// per-adapter rate limiter and the configured User-Agent.
type httpClient struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func newHTTPClient(client *http.Client, reqPerSec float64, userAgent string) *httpClient {
	if client == nil {
		client = http.DefaultClient
	}
	if reqPerSec <= 0 {
		reqPerSec = 1
	}
	return &httpClient{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(reqPerSec), 1),
		userAgent: userAgent,
	}
}

// get performs a rate-limited GET and returns the response body. Non-2xx
// statuses are errors; callers rely on that for breaker accounting.
func (c *httpClient) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json, application/geo+json, text/csv, application/rss+xml, */*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// clampWindow bounds windowDays to [min, max], defaulting to def when the
// caller passes zero or a negative value.
func clampWindow(windowDays, min, max, def int) int {
	if windowDays <= 0 {
		windowDays = def
	}
	if windowDays < min {
		return min
	}
	if windowDays > max {
		return max
	}
	return windowDays
}
