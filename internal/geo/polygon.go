// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package geo

// CirclePolygonPoints is the vertex count used for circular buffer
// approximations. 32 vertices keeps the polygon small enough for routing
// provider URI limits while staying visually round.
const CirclePolygonPoints = 32

// CirclePolygon approximates a circle of radiusMi around (lat, lon) as a
// closed ring of [lon, lat] pairs (GeoJSON vertex order). The first vertex
// is repeated at the end to close the ring.
func CirclePolygon(lat, lon, radiusMi float64) [][]float64 {
	ring := make([][]float64, 0, CirclePolygonPoints+1)
	for i := 0; i < CirclePolygonPoints; i++ {
		bearing := float64(i) * 360.0 / CirclePolygonPoints
		pLat, pLon := DestinationPoint(lat, lon, bearing, radiusMi)
		ring = append(ring, []float64{pLon, pLat})
	}
	ring = append(ring, []float64{ring[0][0], ring[0][1]})
	return ring
}

// PointInPolygon reports whether (lat, lon) lies inside the polygon using
// ray casting. The polygon is a ring of [lon, lat] pairs; it may be open or
// closed.
func PointInPolygon(lat, lon float64, polygon [][]float64) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}
	// Ignore an explicit closing vertex.
	if polygon[0][0] == polygon[n-1][0] && polygon[0][1] == polygon[n-1][1] {
		n--
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := polygon[i][0], polygon[i][1]
		xj, yj := polygon[j][0], polygon[j][1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PolygonCentroid returns the arithmetic mean of the polygon's vertices as
// (lat, lon). Good enough for the small, near-circular buffers used here.
func PolygonCentroid(polygon [][]float64) (float64, float64) {
	n := len(polygon)
	if n == 0 {
		return 0, 0
	}
	if n > 1 && polygon[0][0] == polygon[n-1][0] && polygon[0][1] == polygon[n-1][1] {
		n--
	}

	var sumLat, sumLon float64
	for i := 0; i < n; i++ {
		sumLon += polygon[i][0]
		sumLat += polygon[i][1]
	}
	return sumLat / float64(n), sumLon / float64(n)
}

// PolylineIntersectsPolygon reports whether any vertex of the line lies
// inside the polygon. Route geometries are dense enough that vertex tests
// are a reliable intersection proxy.
func PolylineIntersectsPolygon(line [][]float64, polygon [][]float64) bool {
	for _, pt := range line {
		if len(pt) < 2 {
			continue
		}
		if PointInPolygon(pt[1], pt[0], polygon) {
			return true
		}
	}
	return false
}
