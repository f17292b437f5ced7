// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package routing

import (
	"strings"
	"time"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

const (
	// bufferPadMi pads the origin-destination bounding box (~50 km).
	bufferPadMi = 31.07
	// circlePoints is the polygon vertex count approximating each buffer.
	circlePoints = 32
	// reportMaxAgeHours bounds which user reports contribute buffers.
	reportMaxAgeHours = 48
)

// bufferRadiusMi returns the avoidance radius for a severity band.
func bufferRadiusMi(severity models.Severity) float64 {
	switch severity {
	case models.SeverityCritical:
		return 5
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 2
	default:
		return 1
	}
}

// bufferedTypes are the disaster types that produce avoidance buffers.
// Weather alerts are handled separately by severity.
var bufferedTypes = map[models.DisasterType]bool{
	models.TypeWildfire:   true,
	models.TypeEarthquake: true,
	models.TypeFlood:      true,
	models.TypeHurricane:  true,
	models.TypeTornado:    true,
	models.TypeVolcano:    true,
}

// bufferCandidate reports whether the event should produce an avoidance
// buffer. Weather alerts qualify only at Severe/Extreme and only while
// unexpired.
func bufferCandidate(ev *models.DisasterEvent, now time.Time) bool {
	if bufferedTypes[ev.Type] {
		return true
	}
	if ev.Type != models.TypeWeatherAlert {
		return false
	}
	level := strings.ToLower(ev.AlertLevel)
	if level != "severe" && level != "extreme" {
		return false
	}
	if ev.Expires != nil && ev.Expires.Before(now) {
		return false
	}
	return true
}

// BuildBuffers converts candidate disasters into circular avoidance
// polygons. Buffers containing the origin are marked ContainsOrigin and
// must be excluded from avoidance: a user inside a disaster zone has to be
// routed out of it, and avoiding the zone they stand in yields no routes
// at all.
func BuildBuffers(originLat, originLon float64, disasters []models.DisasterEvent) []models.DisasterBuffer {
	buffers := make([]models.DisasterBuffer, 0, len(disasters))
	for _, ev := range disasters {
		radius := bufferRadiusMi(ev.Severity)
		buffers = append(buffers, models.DisasterBuffer{
			DisasterID:     ev.ID,
			DisasterType:   ev.Type,
			Severity:       ev.Severity,
			RadiusMi:       radius,
			Polygon:        circlePolygon(ev.Latitude, ev.Longitude, radius),
			ContainsOrigin: geo.HaversineMiles(originLat, originLon, ev.Latitude, ev.Longitude) <= radius,
		})
	}
	return buffers
}

// circlePolygon approximates a circle as a closed 32-vertex ring of
// [lon, lat] pairs.
func circlePolygon(lat, lon, radiusMi float64) [][]float64 {
	ring := make([][]float64, 0, circlePoints+1)
	for i := 0; i < circlePoints; i++ {
		bearing := float64(i) * 360 / circlePoints
		pLat, pLon := geo.DestinationPoint(lat, lon, bearing, radiusMi)
		ring = append(ring, []float64{pLon, pLat})
	}
	ring = append(ring, ring[0])
	return ring
}

// AvoidancePolygons assembles the GeoJSON MultiPolygon coordinate array
// from the buffers that do not contain the origin.
func AvoidancePolygons(buffers []models.DisasterBuffer) [][][][]float64 {
	var polygons [][][][]float64
	for _, b := range buffers {
		if b.ContainsOrigin {
			continue
		}
		polygons = append(polygons, [][][]float64{b.Polygon})
	}
	return polygons
}
