// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package routing

import (
	"math"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// Safety score weights and constants. The 6.2-mile scale is 10 km, the
// distance at which a disaster stops dominating the score.
const (
	minDistWeight   = 0.50
	nearbyWeight    = 0.30
	deviationWeight = 0.20

	distanceScaleMi  = 6.2
	nearbyRadiusMi   = 6.2
	nearbyPenalty    = 15.0
	deviationFreeRat = 1.1
	// deviationZeroRat is the route/direct ratio at which the deviation
	// factor hits zero.
	deviationZeroRat = 3.0
)

// ScoreRoute fills the route's safety fields from the disaster list and
// the direct haversine distance between origin and destination.
func ScoreRoute(route *models.Route, disasters []models.DisasterEvent, directMi float64) {
	minDist, nearby, intersects := routeProximity(route, disasters)

	distFactor := 100.0
	if minDist != nil {
		distFactor = 100 * (1 - math.Exp(-*minDist/distanceScaleMi))
	}
	nearbyFactor := math.Max(0, 100-nearbyPenalty*float64(nearby))
	devFactor := deviationFactor(route.DistanceMi, directMi)

	score := minDistWeight*distFactor + nearbyWeight*nearbyFactor + deviationWeight*devFactor
	route.SafetyScore = math.Round(score*10) / 10
	route.MinDisasterDistanceMi = minDist
	route.DisastersNearby = nearby
	route.IntersectsDisasters = intersects
}

// routeProximity computes the minimum geometry-to-disaster distance, the
// count of disasters within the nearby radius, and whether the route
// crosses any disaster's buffer circle.
func routeProximity(route *models.Route, disasters []models.DisasterEvent) (*float64, int, bool) {
	if len(disasters) == 0 || len(route.Geometry) == 0 {
		return nil, 0, false
	}

	var minDist *float64
	nearby := 0
	intersects := false
	for _, ev := range disasters {
		closest := math.MaxFloat64
		for _, pt := range route.Geometry {
			if len(pt) < 2 {
				continue
			}
			d := geo.HaversineMiles(pt[1], pt[0], ev.Latitude, ev.Longitude)
			if d < closest {
				closest = d
			}
		}
		if closest == math.MaxFloat64 {
			continue
		}
		if minDist == nil || closest < *minDist {
			c := closest
			minDist = &c
		}
		if closest <= nearbyRadiusMi {
			nearby++
		}
		if closest <= bufferRadiusMi(ev.Severity) {
			intersects = true
		}
	}
	return minDist, nearby, intersects
}

// deviationFactor scores how far the route strays from the direct line:
// 100 up to a 1.1 ratio, then linearly down to 0.
func deviationFactor(routeMi, directMi float64) float64 {
	if directMi <= 0 || routeMi <= 0 {
		return 100
	}
	ratio := routeMi / directMi
	if ratio <= deviationFreeRat {
		return 100
	}
	if ratio >= deviationZeroRat {
		return 0
	}
	return 100 * (deviationZeroRat - ratio) / (deviationZeroRat - deviationFreeRat)
}

// markBest flags the fastest and safest routes in place.
func markBest(routes []models.Route) {
	if len(routes) == 0 {
		return
	}
	fastest, safest := 0, 0
	for i := range routes {
		if routes[i].DurationSeconds < routes[fastest].DurationSeconds {
			fastest = i
		}
		if routes[i].SafetyScore > routes[safest].SafetyScore {
			safest = i
		}
	}
	routes[fastest].IsFastest = true
	routes[safest].IsSafest = true
}
