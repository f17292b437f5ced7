// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package confidence

import (
	"math"
	"sort"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// Corroboration limits.
const (
	corroborationRadiusMi  = 50.0
	corroborationWindowHrs = 24.0
	corroborationTopN      = 5
)

// Corroborate scores how strongly nearby events back up the candidate.
// Candidates are filtered to same-type events within 50 miles and ±24
// hours; each survivor scores distance × source × severity agreement, the
// top five are summed with diminishing weights, and the total maps to a
// bounded boost. Returns nil when no neighbor survives filtering.
func (s *Scorer) Corroborate(ev *models.DisasterEvent, candidates []models.DisasterEvent) *models.CorroborationBreakdown {
	type scored struct {
		score  float64
		source models.Source
	}
	var neighbors []scored

	for i := range candidates {
		n := &candidates[i]
		if n.ID == ev.ID || n.Type != ev.Type {
			continue
		}
		if !ev.Timestamp.IsZero() && !n.Timestamp.IsZero() {
			if math.Abs(ev.Timestamp.Sub(n.Timestamp).Hours()) > corroborationWindowHrs {
				continue
			}
		}
		dist := geo.HaversineMiles(ev.Latitude, ev.Longitude, n.Latitude, n.Longitude)
		dw := distanceWeight(dist)
		if dw == 0 {
			continue
		}
		neighbors = append(neighbors, scored{
			score:  dw * sourceWeight(n.Source) * severityMatch(ev, n),
			source: n.Source,
		})
	}

	if len(neighbors) == 0 {
		return nil
	}

	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].score > neighbors[j].score })

	total := 0.0
	for i, n := range neighbors {
		if i >= corroborationTopN {
			break
		}
		total += n.score / float64(i+1)
	}

	sources := make(map[string]int, len(neighbors))
	for _, n := range neighbors {
		sources[string(n.source)]++
	}

	return &models.CorroborationBreakdown{
		NeighborCount: len(neighbors),
		TotalScore:    total,
		Boost:         corroborationBoost(total),
		Sources:       sources,
	}
}

// distanceWeight: co-located neighbors count fully, the weight steps down
// to zero past 50 miles.
func distanceWeight(miles float64) float64 {
	switch {
	case miles <= 5:
		return 1.0
	case miles <= 15:
		return 0.8
	case miles <= 30:
		return 0.5
	case miles <= corroborationRadiusMi:
		return 0.2
	default:
		return 0
	}
}

// sourceWeight: official instrument feeds outweigh user reports, which
// outweigh the aggregator and state feeds.
func sourceWeight(src models.Source) float64 {
	switch {
	case src.IsOfficial():
		return 1.5
	case src.IsUserReport():
		return 1.0
	default:
		return 0.8
	}
}

// severityMatch: 1.2 exact band, 1.0 adjacent, 0.8 otherwise. Satellite
// wildfire neighbors without an assigned band compare via their brightness
// thresholds.
func severityMatch(ev, n *models.DisasterEvent) float64 {
	evBand := comparableSeverity(ev)
	nBand := comparableSeverity(n)
	gap := evBand.Rank() - nBand.Rank()
	if gap < 0 {
		gap = -gap
	}
	switch gap {
	case 0:
		return 1.2
	case 1:
		return 1.0
	default:
		return 0.8
	}
}

func comparableSeverity(ev *models.DisasterEvent) models.Severity {
	if ev.Severity != "" {
		return ev.Severity
	}
	if ev.Type == models.TypeWildfire && ev.Brightness != nil {
		switch b := *ev.Brightness; {
		case b >= 360:
			return models.SeverityCritical
		case b >= 340:
			return models.SeverityHigh
		case b >= 320:
			return models.SeverityMedium
		}
	}
	return models.SeverityLow
}

// corroborationBoost maps the weighted neighbor total onto a bounded score
// boost.
func corroborationBoost(total float64) float64 {
	switch {
	case total >= 4:
		return 0.35
	case total >= 3:
		return 0.30
	case total >= 2:
		return 0.20
	case total >= 1:
		return 0.10
	default:
		return 0.05
	}
}
