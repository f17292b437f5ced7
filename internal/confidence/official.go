// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package confidence

import (
	"strings"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// Per-source base scores for the official path. The three primary feeds
// carry instrument-grade data; the aggregator and state feeds score lower
// because their placement is coarser (state or county centroids).
var officialBaseScores = map[models.Source]float64{
	models.SourceNASAFirms: 0.92,
	models.SourceNOAA:      0.90,
	models.SourceUSGS:      0.98,
	models.SourceGDACS:     0.88,
	models.SourceFEMA:      0.85,
	models.SourceCalFire:   0.85,
	models.SourceCalOES:    0.80,
}

// ScoreOfficial fills the event's confidence score, level, and breakdown
// via the official-source path: base score plus recency, completeness, and
// intensity bonuses, clamped to 1. User-report sources are ignored.
func (s *Scorer) ScoreOfficial(ev *models.DisasterEvent) {
	base, ok := officialBaseScores[ev.Source]
	if !ok {
		return
	}

	recency := s.recencyBonus(ev)
	completeness := completenessBonus(ev)
	intensity := intensityBonus(ev)

	score := clamp01(base + recency + completeness + intensity)
	ev.ConfidenceScore = score
	// Official feeds always display as High regardless of the banded score.
	ev.ConfidenceLevel = models.ConfidenceHigh
	ev.ConfidenceBreakdown = &models.ConfidenceBreakdown{
		Path:              "official_source",
		BaseScore:         base,
		RecencyBonus:      recency,
		CompletenessBonus: completeness,
		IntensityBonus:    intensity,
	}
}

// recencyBonus rewards fresh observations: 0.05 under an hour, 0.03 under
// six, 0.01 under a day.
func (s *Scorer) recencyBonus(ev *models.DisasterEvent) float64 {
	if ev.Timestamp.IsZero() {
		return 0
	}
	age := s.clock.Now().Sub(ev.Timestamp)
	if age < 0 {
		age = 0
	}
	switch {
	case age.Hours() < 1:
		return 0.05
	case age.Hours() < 6:
		return 0.03
	case age.Hours() < 24:
		return 0.01
	default:
		return 0
	}
}

// completenessBonus scales with the fraction of the source's expected
// fields that are present, up to 0.03.
func completenessBonus(ev *models.DisasterEvent) float64 {
	var present, total int
	count := func(ok bool) {
		total++
		if ok {
			present++
		}
	}

	switch ev.Source {
	case models.SourceNASAFirms:
		count(ev.Brightness != nil)
		count(ev.FRP != nil)
		count(!ev.Timestamp.IsZero())
	case models.SourceNOAA:
		count(ev.Description != "")
		count(ev.LocationName != "")
		count(ev.AlertLevel != "")
		count(ev.Expires != nil)
	case models.SourceUSGS:
		count(ev.Magnitude != nil)
		count(ev.LocationName != "")
		count(ev.Description != "")
	case models.SourceGDACS:
		count(ev.AlertLevel != "")
		count(ev.Country != "")
		count(ev.Description != "")
	case models.SourceFEMA:
		count(ev.State != "")
		count(ev.Description != "")
	case models.SourceCalFire:
		count(ev.AcresBurned != nil)
		count(ev.PercentContained != nil)
		count(ev.LocationName != "")
	case models.SourceCalOES:
		count(ev.LocationName != "")
		count(ev.Description != "")
	default:
		return 0
	}

	if total == 0 {
		return 0
	}
	return float64(present) / float64(total) * 0.03
}

// intensityBonus rewards the strongest observations per source, 0.02 at the
// extreme band and 0.01 one band below.
func intensityBonus(ev *models.DisasterEvent) float64 {
	switch ev.Source {
	case models.SourceNASAFirms:
		b, f := deref(ev.Brightness), deref(ev.FRP)
		switch {
		case b > 360 || f > 100:
			return 0.02
		case b > 340 || f > 50:
			return 0.01
		}
	case models.SourceUSGS:
		m := deref(ev.Magnitude)
		switch {
		case m >= 7.0:
			return 0.02
		case m >= 6.0:
			return 0.01
		}
	case models.SourceNOAA:
		switch strings.ToLower(ev.AlertLevel) {
		case "extreme":
			return 0.02
		case "severe":
			return 0.01
		}
	case models.SourceGDACS:
		switch strings.ToLower(ev.AlertLevel) {
		case "red":
			return 0.02
		case "orange":
			return 0.01
		}
	case models.SourceCalFire:
		a := deref(ev.AcresBurned)
		switch {
		case a >= 10000:
			return 0.02
		case a >= 1000:
			return 0.01
		}
	}
	return 0
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
