// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package routing computes disaster-aware evacuation routes.
//
// Active disasters become circular avoidance polygons sized by severity.
// The primary provider routes around them; a fallback provider takes over
// on routable-point and request-size errors, and a baseline provider
// contributes the unavoided shortest route for comparison. Every route is
// safety-scored against the same disaster list regardless of which
// provider produced it.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/feeds"
	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/metrics"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// providerTimeout bounds each external directions call.
const providerTimeout = 30 * time.Second

// ErrNoProviders means neither the primary nor the fallback produced
// routes.
var ErrNoProviders = errors.New("routing: no provider produced routes")

// Service computes disaster-aware routes.
type Service struct {
	store    *store.Store
	feeds    *feeds.Manager
	primary  DirectionsProvider
	fallback DirectionsProvider
	baseline DirectionsProvider
	clock    clockwork.Clock
}

// New creates the route service. Any provider may be nil; the service
// requires at least one of primary or fallback to produce routes.
func New(st *store.Store, feedMgr *feeds.Manager, primary, fallback, baseline DirectionsProvider, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		store:    st,
		feeds:    feedMgr,
		primary:  primary,
		fallback: fallback,
		baseline: baseline,
		clock:    clock,
	}
}

// Request is one route calculation.
type Request struct {
	OriginLat float64
	OriginLon float64
	DestLat   float64
	DestLon   float64
	// Alternatives requests 1..3 candidates; zero defaults to 2.
	Alternatives int
	// AvoidDisasters disables avoidance polygons when false; disasters are
	// still collected for safety scoring.
	AvoidDisasters bool
}

// Result is the route calculation response.
type Result struct {
	Routes  []models.Route          `json:"routes"`
	Buffers []models.DisasterBuffer `json:"disaster_buffers,omitempty"`
}

// Calculate collects nearby disasters, builds avoidance buffers, routes
// through the provider chain, and safety-scores every returned route.
func (s *Service) Calculate(ctx context.Context, req Request) (*Result, error) {
	if !validCoord(req.OriginLat, req.OriginLon) || !validCoord(req.DestLat, req.DestLon) {
		return nil, fmt.Errorf("%w: coordinates out of range", models.ErrInvalid)
	}
	alternatives := req.Alternatives
	if alternatives <= 0 {
		alternatives = 2
	}
	if alternatives > 3 {
		alternatives = 3
	}

	disasters := s.collectDisasters(ctx, req)
	buffers := BuildBuffers(req.OriginLat, req.OriginLon, disasters)

	query := Query{
		OriginLat:    req.OriginLat,
		OriginLon:    req.OriginLon,
		DestLat:      req.DestLat,
		DestLon:      req.DestLon,
		Alternatives: alternatives,
	}
	if req.AvoidDisasters {
		query.AvoidPolygons = AvoidancePolygons(buffers)
	}

	routes, err := s.routeWithFallback(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.baseline != nil {
		baseline, berr := s.callProvider(ctx, s.baseline, query)
		if berr != nil {
			logging.Warn().Err(berr).Msg("baseline route unavailable")
		} else {
			routes = append(routes, baseline...)
		}
	}

	directMi := query.directMi()
	now := s.clock.Now().UTC()
	for i := range routes {
		ScoreRoute(&routes[i], disasters, directMi)
		routes[i].EstimatedArrival = now.Add(time.Duration(routes[i].DurationSeconds * float64(time.Second)))
	}
	markBest(routes)

	return &Result{Routes: routes, Buffers: buffers}, nil
}

// routeWithFallback runs the primary provider, handing routable-point and
// request-size failures (and an unconfigured primary) to the fallback.
func (s *Service) routeWithFallback(ctx context.Context, query Query) ([]models.Route, error) {
	var primaryErr error
	if s.primary != nil {
		routes, err := s.callProvider(ctx, s.primary, query)
		if err == nil {
			return routes, nil
		}
		primaryErr = err
		if !fallbackEligible(err) && !errors.Is(err, ErrNotConfigured) {
			return nil, fmt.Errorf("primary provider: %w", err)
		}
	}

	if s.fallback == nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("primary provider: %w", primaryErr)
		}
		return nil, ErrNoProviders
	}

	if primaryErr != nil {
		logging.Warn().Err(primaryErr).Msg("primary routing provider failed, using fallback")
	}
	routes, err := s.callProvider(ctx, s.fallback, query)
	if err != nil {
		return nil, fmt.Errorf("%w (fallback: %v)", ErrNoProviders, err)
	}
	return routes, nil
}

func (s *Service) callProvider(ctx context.Context, p DirectionsProvider, query Query) ([]models.Route, error) {
	callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	routes, err := p.Directions(callCtx, query)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RouteRequests.WithLabelValues(string(p.Name()), outcome).Inc()
	return routes, err
}

// collectDisasters gathers buffer candidates within the padded
// origin-destination box: cached feed events plus user reports from the
// last 48 hours.
func (s *Service) collectDisasters(ctx context.Context, req Request) []models.DisasterEvent {
	box := geo.BoxAroundPair(req.OriginLat, req.OriginLon, req.DestLat, req.DestLon, bufferPadMi)
	now := s.clock.Now()
	cutoff := now.Add(-reportMaxAgeHours * time.Hour)

	var disasters []models.DisasterEvent
	if s.feeds != nil {
		for _, ev := range s.feeds.AllActive(ctx, 1) {
			if box.Contains(ev.Latitude, ev.Longitude) && bufferCandidate(&ev, now) {
				disasters = append(disasters, ev)
			}
		}
	}

	err := s.store.List(ctx, store.ReportPrefix(), func(_ string, value []byte) error {
		var report models.UserReport
		if uerr := json.Unmarshal(value, &report); uerr != nil {
			return nil
		}
		ev := report.DisasterEvent
		if !box.Contains(ev.Latitude, ev.Longitude) || !bufferedTypes[ev.Type] {
			return nil
		}
		if ev.Timestamp.Before(cutoff) {
			return nil
		}
		disasters = append(disasters, ev)
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Msg("route disaster scan failed")
	}
	return disasters
}

func validCoord(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
