// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package confidence

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

func fp(v float64) *float64 { return &v }

func newTestScorer() (*Scorer, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	return New(clock), clock
}

func TestScoreOfficial_FreshStrongWildfire(t *testing.T) {
	s, clock := newTestScorer()
	ev := models.DisasterEvent{
		ID:         "nasa_firms_x",
		Source:     models.SourceNASAFirms,
		Type:       models.TypeWildfire,
		Latitude:   37.0,
		Longitude:  -120.0,
		Brightness: fp(370),
		FRP:        fp(120),
		Timestamp:  clock.Now(),
	}
	s.ScoreOfficial(&ev)

	if ev.ConfidenceScore < 0.97 {
		t.Errorf("score = %v, want >= 0.97", ev.ConfidenceScore)
	}
	if ev.ConfidenceLevel != models.ConfidenceHigh {
		t.Errorf("level = %v, want High", ev.ConfidenceLevel)
	}
	b := ev.ConfidenceBreakdown
	if b == nil {
		t.Fatal("missing breakdown")
	}
	if b.RecencyBonus != 0.05 {
		t.Errorf("recency_bonus = %v, want 0.05", b.RecencyBonus)
	}
	if b.IntensityBonus != 0.02 {
		t.Errorf("intensity_bonus = %v, want 0.02", b.IntensityBonus)
	}
	if b.CompletenessBonus < 0.029 || b.CompletenessBonus > 0.03 {
		t.Errorf("completeness_bonus = %v, want ~0.03", b.CompletenessBonus)
	}
}

func TestScoreOfficial_PrimaryFeedsStayAboveNinety(t *testing.T) {
	s, clock := newTestScorer()
	old := clock.Now().Add(-72 * time.Hour)
	for _, src := range []models.Source{models.SourceNASAFirms, models.SourceNOAA, models.SourceUSGS} {
		ev := models.DisasterEvent{ID: string(src) + "_1", Source: src, Timestamp: old}
		s.ScoreOfficial(&ev)
		if ev.ConfidenceScore < 0.90 || ev.ConfidenceScore > 1.0 {
			t.Errorf("%s score = %v, want in [0.90, 1.0]", src, ev.ConfidenceScore)
		}
		if ev.ConfidenceLevel != models.ConfidenceHigh {
			t.Errorf("%s level = %v, want High", src, ev.ConfidenceLevel)
		}
	}
}

func TestScoreOfficial_RecencyBands(t *testing.T) {
	s, clock := newTestScorer()
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"30 minutes", 30 * time.Minute, 0.05},
		{"3 hours", 3 * time.Hour, 0.03},
		{"12 hours", 12 * time.Hour, 0.01},
		{"2 days", 48 * time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := models.DisasterEvent{Source: models.SourceUSGS, Timestamp: clock.Now().Add(-tt.age)}
			s.ScoreOfficial(&ev)
			if got := ev.ConfidenceBreakdown.RecencyBonus; got != tt.want {
				t.Errorf("recency bonus at age %v = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestScoreOfficial_IgnoresUserReports(t *testing.T) {
	s, _ := newTestScorer()
	ev := models.DisasterEvent{Source: models.SourceUserReport}
	s.ScoreOfficial(&ev)
	if ev.ConfidenceScore != 0 || ev.ConfidenceBreakdown != nil {
		t.Error("user report should not take the official path")
	}
}

func TestScoreUserReport_UnreliableAuthenticated(t *testing.T) {
	s, clock := newTestScorer()
	report := &models.UserReport{
		DisasterEvent: models.DisasterEvent{
			ID:          "report_1",
			Source:      models.SourceUserReportAuth,
			Type:        models.TypeWildfire,
			Latitude:    37.0,
			Longitude:   -120.0,
			Severity:    models.SeverityHigh,
			Timestamp:   clock.Now(),
			Description: "Smoke visible from highway",
		},
		AffectedPopulation: func() *int { n := 200; return &n }(),
	}
	s.ScoreUserReport(report, UserScoreOptions{CredibilityScore: fp(22)})

	b := report.ConfidenceBreakdown
	if b == nil {
		t.Fatal("missing breakdown")
	}
	if b.ScoreBeforePenalty < 0.77 || b.ScoreBeforePenalty > 0.79 {
		t.Errorf("heuristic = %v, want ~0.78", b.ScoreBeforePenalty)
	}
	if b.CredibilityMultiplier != 0.65 {
		t.Errorf("multiplier = %v, want 0.65", b.CredibilityMultiplier)
	}
	if report.ConfidenceScore < 0.45 || report.ConfidenceScore > 0.55 {
		t.Errorf("final = %v, want in [0.45, 0.55]", report.ConfidenceScore)
	}
	if report.ConfidenceLevel != models.ConfidenceLow {
		t.Errorf("level = %v, want Low", report.ConfidenceLevel)
	}
	if b.Corroboration != nil {
		t.Error("no neighbors should mean no corroboration section")
	}
}

func TestScoreUserReport_CorroboratedBySatellites(t *testing.T) {
	s, clock := newTestScorer()
	report := &models.UserReport{
		DisasterEvent: models.DisasterEvent{
			ID:          "report_2",
			Source:      models.SourceUserReportAuth,
			Type:        models.TypeWildfire,
			Latitude:    37.0,
			Longitude:   -120.0,
			Severity:    models.SeverityHigh,
			Timestamp:   clock.Now(),
			Description: "Active fire front",
		},
		AffectedPopulation: func() *int { n := 50; return &n }(),
	}

	var neighbors []models.DisasterEvent
	for i := 0; i < 3; i++ {
		neighbors = append(neighbors, models.DisasterEvent{
			ID:        "nasa_firms_n" + string(rune('0'+i)),
			Source:    models.SourceNASAFirms,
			Type:      models.TypeWildfire,
			Latitude:  37.0 + float64(i)*0.01,
			Longitude: -120.0,
			Severity:  models.SeverityHigh,
			Timestamp: clock.Now().Add(-2 * time.Hour),
		})
	}

	s.ScoreUserReport(report, UserScoreOptions{
		CredibilityScore: fp(70),
		UserDistanceMi:   fp(0.5),
		Neighbors:        neighbors,
	})

	b := report.ConfidenceBreakdown
	if b == nil || b.Corroboration == nil {
		t.Fatal("missing corroboration breakdown")
	}
	if b.Corroboration.Boost < 0.20 {
		t.Errorf("boost = %v, want >= 0.20", b.Corroboration.Boost)
	}
	if report.ConfidenceScore < 0.85 {
		t.Errorf("final = %v, want >= 0.85", report.ConfidenceScore)
	}
	if got := b.Corroboration.Sources["nasa_firms"]; got != 3 {
		t.Errorf("sources[nasa_firms] = %d, want 3", got)
	}
}

func TestScoreUserReport_AnonymousRecaptchaRange(t *testing.T) {
	s, clock := newTestScorer()
	for _, rc := range []float64{0, 0.5, 1.0} {
		report := &models.UserReport{DisasterEvent: models.DisasterEvent{
			ID: "anon", Source: models.SourceUserReport, Type: models.TypeFlood,
			Latitude: 30, Longitude: -90, Timestamp: clock.Now(),
		}}
		s.ScoreUserReport(report, UserScoreOptions{RecaptchaScore: fp(rc)})
		factor := report.ConfidenceBreakdown.Factors["source_credibility"] / weightSourceCredibility
		if factor < 0.5 || factor > 0.85 {
			t.Errorf("recaptcha %v maps to factor %v, want in [0.5, 0.85]", rc, factor)
		}
	}
}

func TestTemporalRecencyFactor(t *testing.T) {
	s, clock := newTestScorer()
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"10 minutes", 10 * time.Minute, 1.0},
		{"45 minutes", 45 * time.Minute, 0.9},
		{"3 hours", 3 * time.Hour, 0.8},
		{"20 hours", 20 * time.Hour, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &models.UserReport{DisasterEvent: models.DisasterEvent{Timestamp: clock.Now().Add(-tt.age)}}
			if got := s.temporalRecencyFactor(r); got != tt.want {
				t.Errorf("factor at %v = %v, want %v", tt.age, got, tt.want)
			}
		})
	}

	// Past a day the factor decays exponentially but never below 0.5.
	r := &models.UserReport{DisasterEvent: models.DisasterEvent{Timestamp: clock.Now().Add(-30 * 24 * time.Hour)}}
	if got := s.temporalRecencyFactor(r); got != 0.5 {
		t.Errorf("month-old factor = %v, want floor 0.5", got)
	}
	r.Timestamp = clock.Now().Add(-36 * time.Hour)
	got := s.temporalRecencyFactor(r)
	if got <= 0.5 || got >= 0.7 {
		t.Errorf("36h factor = %v, want between 0.5 and 0.7", got)
	}
}

func TestSpatialValidationFactor(t *testing.T) {
	tests := []struct {
		name string
		d    *float64
		want float64
	}{
		{"on scene", fp(0.2), 1.0},
		{"nearby", fp(3), 0.9},
		{"same region", fp(10), 0.7},
		{"distant", fp(25), 0.5},
		{"far", fp(45), 0.4},
		{"beyond 50", fp(80), 0.3},
		{"no location", nil, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := spatialValidationFactor(tt.d); got != tt.want {
				t.Errorf("factor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredibilityMultiplier(t *testing.T) {
	tests := []struct {
		level models.CredibilityLevel
		want  float64
	}{
		{models.CredibilityExpert, 1.0},
		{models.CredibilityVeteran, 1.0},
		{models.CredibilityTrusted, 0.95},
		{models.CredibilityNeutral, 0.90},
		{models.CredibilityCaution, 0.80},
		{models.CredibilityUnreliable, 0.65},
	}
	for _, tt := range tests {
		if got := CredibilityMultiplier(tt.level); got != tt.want {
			t.Errorf("CredibilityMultiplier(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestBlendAI(t *testing.T) {
	got := BlendAI(0.6, 0.9)
	want := 0.7*0.6 + 0.3*0.9
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("BlendAI(0.6, 0.9) = %v, want %v", got, want)
	}
	if BlendAI(1.0, 1.0) != 1.0 {
		t.Error("blend of 1.0s should clamp at 1.0")
	}
}

func TestScoreUserReport_ScoreAlwaysInRange(t *testing.T) {
	s, clock := newTestScorer()
	// Strong everything: clamp must hold the score at 1.0.
	report := &models.UserReport{DisasterEvent: models.DisasterEvent{
		ID: "max", Source: models.SourceUserReportAuth, Type: models.TypeWildfire,
		Latitude: 37, Longitude: -120, Severity: models.SeverityCritical,
		Timestamp: clock.Now(), Description: "x",
	}}
	var neighbors []models.DisasterEvent
	for i := 0; i < 10; i++ {
		neighbors = append(neighbors, models.DisasterEvent{
			ID: "n" + string(rune('0'+i)), Source: models.SourceUSGS, Type: models.TypeWildfire,
			Latitude: 37, Longitude: -120, Severity: models.SeverityCritical, Timestamp: clock.Now(),
		})
	}
	s.ScoreUserReport(report, UserScoreOptions{CredibilityScore: fp(95), UserDistanceMi: fp(0), Neighbors: neighbors})
	if report.ConfidenceScore < 0 || report.ConfidenceScore > 1 {
		t.Errorf("score = %v, want in [0,1]", report.ConfidenceScore)
	}
	if report.ConfidenceLevel != models.ConfidenceHigh {
		t.Errorf("level = %v, want High", report.ConfidenceLevel)
	}
}
