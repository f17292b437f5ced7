// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package routing

import (
	"context"
	"errors"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// Provider errors that drive the fallback chain.
var (
	// ErrRoutablePoint means the provider could not snap origin or
	// destination to its road network.
	ErrRoutablePoint = errors.New("routing: no routable point")
	// ErrURITooLarge means the avoidance polygons overflowed the provider's
	// request size limit.
	ErrURITooLarge = errors.New("routing: request uri too large")
	// ErrNotConfigured means the provider has no API key.
	ErrNotConfigured = errors.New("routing: provider not configured")
)

// Query is one directions request, shared by all providers.
type Query struct {
	OriginLat, OriginLon float64
	DestLat, DestLon     float64
	// Alternatives requests 1..3 route candidates; providers that cannot
	// combine alternatives with avoidance polygons drop the alternatives.
	Alternatives int
	// AvoidPolygons is a GeoJSON MultiPolygon coordinate array. Empty means
	// no avoidance.
	AvoidPolygons [][][][]float64
}

func (q Query) directMi() float64 {
	return geo.HaversineMiles(q.OriginLat, q.OriginLon, q.DestLat, q.DestLon)
}

// DirectionsProvider is one external routing service.
type DirectionsProvider interface {
	Name() models.RouteProvider
	Directions(ctx context.Context, q Query) ([]models.Route, error)
}

// fallbackEligible reports whether a primary-provider error should trigger
// the secondary provider.
func fallbackEligible(err error) bool {
	return errors.Is(err, ErrRoutablePoint) || errors.Is(err, ErrURITooLarge)
}
