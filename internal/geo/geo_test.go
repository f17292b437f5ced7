// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package geo

import (
	"math"
	"testing"
)

func TestHaversineMiles_KnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantMi                 float64
		tolerance              float64
	}{
		{"same point", 37.7749, -122.4194, 37.7749, -122.4194, 0, 0.001},
		{"SF to LA", 37.7749, -122.4194, 34.0522, -118.2437, 347.4, 5},
		{"SF to Oakland", 37.7749, -122.4194, 37.8044, -122.2712, 8.3, 0.5},
		{"equator degree", 0, 0, 0, 1, 69.1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineMiles(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantMi) > tt.tolerance {
				t.Errorf("HaversineMiles() = %.2f, want %.2f ± %.2f", got, tt.wantMi, tt.tolerance)
			}
		})
	}
}

func TestBoxAround_ContainsCenterAndRadius(t *testing.T) {
	box := BoxAround(37.77, -122.42, 50)

	if !box.Contains(37.77, -122.42) {
		t.Error("box should contain its center")
	}

	// A point 40 miles north is inside; 80 miles north is outside.
	inLat, inLon := DestinationPoint(37.77, -122.42, 0, 40)
	if !box.Contains(inLat, inLon) {
		t.Error("box should contain point 40 mi north")
	}
	outLat, outLon := DestinationPoint(37.77, -122.42, 0, 80)
	if box.Contains(outLat, outLon) {
		t.Error("box should not contain point 80 mi north")
	}
}

func TestBoxAround_ClampsToValidRanges(t *testing.T) {
	box := BoxAround(89.9, 0, 100)
	if box.MaxLat > 90 {
		t.Errorf("MaxLat = %f, want <= 90", box.MaxLat)
	}
}

func TestBoxAroundPair_CoversBothEndpoints(t *testing.T) {
	box := BoxAroundPair(37.77, -122.42, 34.05, -118.24, 31)
	if !box.Contains(37.77, -122.42) || !box.Contains(34.05, -118.24) {
		t.Error("padded box must contain both endpoints")
	}
	// Padding of ~31 mi must cover a point 20 mi beyond an endpoint.
	lat, lon := DestinationPoint(34.05, -118.24, 180, 20)
	if !box.Contains(lat, lon) {
		t.Error("padded box should contain point 20 mi south of destination")
	}
}

func TestDestinationPoint_RoundTrip(t *testing.T) {
	lat, lon := DestinationPoint(37.77, -122.42, 90, 25)
	d := HaversineMiles(37.77, -122.42, lat, lon)
	if math.Abs(d-25) > 0.1 {
		t.Errorf("distance to destination point = %.3f, want 25", d)
	}
}

func TestCirclePolygon_Shape(t *testing.T) {
	ring := CirclePolygon(37.77, -122.42, 5)

	if len(ring) != CirclePolygonPoints+1 {
		t.Fatalf("ring has %d vertices, want %d", len(ring), CirclePolygonPoints+1)
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		t.Error("ring must be closed")
	}

	// Every vertex should be ~5 miles from the center.
	for i, pt := range ring[:CirclePolygonPoints] {
		d := HaversineMiles(37.77, -122.42, pt[1], pt[0])
		if math.Abs(d-5) > 0.05 {
			t.Errorf("vertex %d is %.3f mi from center, want 5", i, d)
		}
	}
}

func TestPointInPolygon(t *testing.T) {
	ring := CirclePolygon(37.77, -122.42, 5)

	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"center", 37.77, -122.42, true},
		{"inside near edge", 37.80, -122.42, true},
		{"well outside", 38.5, -122.42, false},
		{"outside east", 37.77, -121.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.lat, tt.lon, ring); got != tt.want {
				t.Errorf("PointInPolygon(%f, %f) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestPointInPolygon_DegenerateRing(t *testing.T) {
	if PointInPolygon(0, 0, [][]float64{{0, 0}, {1, 1}}) {
		t.Error("two-vertex ring can contain nothing")
	}
}

func TestPolygonCentroid(t *testing.T) {
	ring := CirclePolygon(37.77, -122.42, 5)
	lat, lon := PolygonCentroid(ring)
	if math.Abs(lat-37.77) > 0.01 || math.Abs(lon+122.42) > 0.01 {
		t.Errorf("centroid = (%f, %f), want (~37.77, ~-122.42)", lat, lon)
	}
}

func TestPolylineIntersectsPolygon(t *testing.T) {
	ring := CirclePolygon(37.77, -122.42, 5)

	through := [][]float64{{-122.6, 37.77}, {-122.42, 37.77}, {-122.2, 37.77}}
	if !PolylineIntersectsPolygon(through, ring) {
		t.Error("line through center must intersect")
	}

	missing := [][]float64{{-122.6, 38.5}, {-122.2, 38.5}}
	if PolylineIntersectsPolygon(missing, ring) {
		t.Error("line far north must not intersect")
	}
}
