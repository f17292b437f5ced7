// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package geo provides the spherical geometry helpers shared by the
// proximity, corroboration, safe-zone, and routing services.
//
// All public distances are miles; coordinates are WGS84 decimal degrees.
package geo

import "math"

// EarthRadiusMi is the mean Earth radius in miles.
const EarthRadiusMi = 3958.8

// MilesPerKm converts kilometers to miles.
const MilesPerKm = 0.621371

// MilesPerMeter converts meters to miles.
const MilesPerMeter = 0.000621371

// HaversineMiles returns the great-circle distance between two points in
// miles.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMi * c
}

// BoundingBox is an axis-aligned lat/lon rectangle used as a cheap
// prefilter before exact haversine checks.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lon >= b.MinLon && lon <= b.MaxLon
}

// BoxAround returns a bounding box centered on (lat, lon) extending
// radiusMi in each direction. Longitude extent widens with latitude; near
// the poles the box degenerates to the full longitude range.
func BoxAround(lat, lon, radiusMi float64) BoundingBox {
	dLat := radiusMi / 69.0 // ~69 miles per degree of latitude
	cosLat := math.Cos(lat * math.Pi / 180)
	var dLon float64
	if cosLat < 0.01 {
		dLon = 180
	} else {
		dLon = radiusMi / (69.0 * cosLat)
	}
	return BoundingBox{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLon: math.Max(lon-dLon, -180),
		MaxLon: math.Min(lon+dLon, 180),
	}
}

// BoxAroundPair returns a bounding box covering both points padded by
// padMi miles on every side.
func BoxAroundPair(lat1, lon1, lat2, lon2, padMi float64) BoundingBox {
	minLat := math.Min(lat1, lat2)
	maxLat := math.Max(lat1, lat2)
	minLon := math.Min(lon1, lon2)
	maxLon := math.Max(lon1, lon2)

	dLat := padMi / 69.0
	midLat := (minLat + maxLat) / 2
	cosLat := math.Cos(midLat * math.Pi / 180)
	var dLon float64
	if cosLat < 0.01 {
		dLon = 180
	} else {
		dLon = padMi / (69.0 * cosLat)
	}

	return BoundingBox{
		MinLat: math.Max(minLat-dLat, -90),
		MaxLat: math.Min(maxLat+dLat, 90),
		MinLon: math.Max(minLon-dLon, -180),
		MaxLon: math.Min(maxLon+dLon, 180),
	}
}

// DestinationPoint returns the point reached by traveling distanceMi from
// (lat, lon) along the given bearing in degrees (0 = north, clockwise).
func DestinationPoint(lat, lon, bearingDeg, distanceMi float64) (float64, float64) {
	phi1 := lat * math.Pi / 180
	lambda1 := lon * math.Pi / 180
	theta := bearingDeg * math.Pi / 180
	delta := distanceMi / EarthRadiusMi

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) +
		math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	// Normalize longitude to [-180, 180].
	lon2 := lambda2 * 180 / math.Pi
	for lon2 > 180 {
		lon2 -= 360
	}
	for lon2 < -180 {
		lon2 += 360
	}

	return phi2 * 180 / math.Pi, lon2
}
