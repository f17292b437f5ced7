// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package confidence

import (
	"testing"
	"time"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

func corroborationCandidate(t *testing.T) models.DisasterEvent {
	t.Helper()
	return models.DisasterEvent{
		ID:        "report_c",
		Source:    models.SourceUserReport,
		Type:      models.TypeWildfire,
		Latitude:  37.0,
		Longitude: -120.0,
		Severity:  models.SeverityHigh,
		Timestamp: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
}

func TestCorroborate_ExcludesStaleNeighbors(t *testing.T) {
	s, _ := newTestScorer()
	ev := corroborationCandidate(t)
	neighbors := []models.DisasterEvent{{
		ID: "old", Source: models.SourceNASAFirms, Type: models.TypeWildfire,
		Latitude: 37.0, Longitude: -120.0, Severity: models.SeverityHigh,
		Timestamp: ev.Timestamp.Add(-25 * time.Hour),
	}}
	if got := s.Corroborate(&ev, neighbors); got != nil {
		t.Errorf("neighbor older than 24h should not corroborate, got %+v", got)
	}
}

func TestCorroborate_ExcludesDistantNeighbors(t *testing.T) {
	s, _ := newTestScorer()
	ev := corroborationCandidate(t)
	neighbors := []models.DisasterEvent{{
		ID: "far", Source: models.SourceNASAFirms, Type: models.TypeWildfire,
		Latitude: 38.0, Longitude: -120.0, Severity: models.SeverityHigh, // ~69 mi north
		Timestamp: ev.Timestamp,
	}}
	if got := s.Corroborate(&ev, neighbors); got != nil {
		t.Errorf("neighbor beyond 50 mi should not corroborate, got %+v", got)
	}
}

func TestCorroborate_ExcludesSelfAndOtherTypes(t *testing.T) {
	s, _ := newTestScorer()
	ev := corroborationCandidate(t)
	neighbors := []models.DisasterEvent{
		ev, // identical ID
		{
			ID: "quake", Source: models.SourceUSGS, Type: models.TypeEarthquake,
			Latitude: 37.0, Longitude: -120.0, Severity: models.SeverityHigh,
			Timestamp: ev.Timestamp,
		},
	}
	if got := s.Corroborate(&ev, neighbors); got != nil {
		t.Errorf("self and cross-type events should not corroborate, got %+v", got)
	}
}

func TestCorroborate_TopFiveDiminishingWeights(t *testing.T) {
	s, _ := newTestScorer()
	ev := corroborationCandidate(t)
	var neighbors []models.DisasterEvent
	for i := 0; i < 8; i++ {
		neighbors = append(neighbors, models.DisasterEvent{
			ID: "n" + string(rune('0'+i)), Source: models.SourceNASAFirms, Type: models.TypeWildfire,
			Latitude: 37.0, Longitude: -120.0, Severity: models.SeverityHigh,
			Timestamp: ev.Timestamp,
		})
	}
	got := s.Corroborate(&ev, neighbors)
	if got == nil {
		t.Fatal("expected corroboration")
	}
	if got.NeighborCount != 8 {
		t.Errorf("neighbor_count = %d, want 8", got.NeighborCount)
	}
	// Each neighbor scores 1.0*1.5*1.2 = 1.8; only the top five count, with
	// weights 1, 1/2, 1/3, 1/4, 1/5.
	want := 1.8 * (1 + 0.5 + 1.0/3 + 0.25 + 0.2)
	if diff := got.TotalScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("total = %v, want %v", got.TotalScore, want)
	}
	if got.Boost != 0.35 {
		t.Errorf("boost = %v, want 0.35 for total >= 4", got.Boost)
	}
}

func TestCorroborationBoostBands(t *testing.T) {
	tests := []struct {
		total float64
		want  float64
	}{
		{4.5, 0.35},
		{3.2, 0.30},
		{2.0, 0.20},
		{1.1, 0.10},
		{0.4, 0.05},
	}
	for _, tt := range tests {
		if got := corroborationBoost(tt.total); got != tt.want {
			t.Errorf("corroborationBoost(%v) = %v, want %v", tt.total, got, tt.want)
		}
	}
}

func TestDistanceWeight(t *testing.T) {
	tests := []struct {
		miles float64
		want  float64
	}{
		{2, 1.0},
		{10, 0.8},
		{25, 0.5},
		{45, 0.2},
		{51, 0},
	}
	for _, tt := range tests {
		if got := distanceWeight(tt.miles); got != tt.want {
			t.Errorf("distanceWeight(%v) = %v, want %v", tt.miles, got, tt.want)
		}
	}
}

func TestSeverityMatch(t *testing.T) {
	ev := corroborationCandidate(t) // high
	tests := []struct {
		name     string
		severity models.Severity
		want     float64
	}{
		{"exact", models.SeverityHigh, 1.2},
		{"adjacent above", models.SeverityCritical, 1.0},
		{"adjacent below", models.SeverityMedium, 1.0},
		{"nonadjacent", models.SeverityLow, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := models.DisasterEvent{Type: models.TypeWildfire, Severity: tt.severity}
			if got := severityMatch(&ev, &n); got != tt.want {
				t.Errorf("severityMatch = %v, want %v", got, tt.want)
			}
		})
	}

	// Wildfire neighbors without a band compare via brightness thresholds.
	n := models.DisasterEvent{Type: models.TypeWildfire, Brightness: fp(345)}
	if got := severityMatch(&ev, &n); got != 1.2 {
		t.Errorf("brightness 345 should compare as high, match = %v", got)
	}
}
