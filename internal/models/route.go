// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package models

import "time"

// RouteProvider identifies which external service produced a route.
type RouteProvider string

// Routing providers.
const (
	ProviderORS    RouteProvider = "ORS"
	ProviderHERE   RouteProvider = "HERE"
	ProviderGoogle RouteProvider = "Google"
)

// Route is a normalized route from any provider. Geometry is a GeoJSON-like
// [lon,lat] coordinate list; all distances are miles.
type Route struct {
	RouteID          string    `json:"route_id"`
	DistanceMi       float64   `json:"distance_mi"`
	DurationSeconds  float64   `json:"duration_seconds"`
	EstimatedArrival time.Time `json:"estimated_arrival"`

	Waypoints []RouteWaypoint `json:"waypoints,omitempty"`
	Geometry  [][]float64     `json:"geometry"`

	// SafetyScore is the weighted blend of minimum-distance, nearby count,
	// and path deviation, in [0,100].
	SafetyScore float64 `json:"safety_score"`

	IsFastest  bool `json:"is_fastest"`
	IsSafest   bool `json:"is_safest"`
	IsShortest bool `json:"is_shortest,omitempty"`
	IsBaseline bool `json:"is_baseline,omitempty"`

	IntersectsDisasters  bool     `json:"intersects_disasters"`
	DisastersNearby      int      `json:"disasters_nearby"`
	MinDisasterDistanceMi *float64 `json:"min_disaster_distance_mi,omitempty"`

	Provider RouteProvider `json:"provider"`
	Warning  string        `json:"warning,omitempty"`
}

// RouteWaypoint is one turn instruction on a route.
type RouteWaypoint struct {
	Instruction string  `json:"instruction"`
	DistanceMi  float64 `json:"distance_mi"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// DisasterBuffer is one avoidance polygon around an active disaster.
type DisasterBuffer struct {
	DisasterID   string       `json:"disaster_id"`
	DisasterType DisasterType `json:"disaster_type"`
	Severity     Severity     `json:"severity"`
	RadiusMi     float64      `json:"radius_mi"`
	// Polygon is a closed ring of [lon,lat] pairs.
	Polygon [][]float64 `json:"polygon"`
	// ContainsOrigin marks buffers excluded from avoidance because the
	// route origin lies inside them; the user must route out.
	ContainsOrigin bool `json:"contains_origin,omitempty"`
}
