// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package timedecay

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var testNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func newTestService() *Service {
	return New(clockwork.NewFakeClockAt(testNow))
}

func TestCompute_Bands(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name        string
		age         time.Duration
		wantCat     string
		wantOpacity float64
	}{
		{"just now", 0, CategoryFresh, 1.0},
		{"59 minutes", 59 * time.Minute, CategoryFresh, 1.0},
		{"1 hour", time.Hour, CategoryRecent, 0.8},
		{"5h59m", 5*time.Hour + 59*time.Minute, CategoryRecent, 0.8},
		{"6 hours", 6 * time.Hour, CategoryOld, 0.6},
		{"23h59m", 23*time.Hour + 59*time.Minute, CategoryOld, 0.6},
		{"24 hours", 24 * time.Hour, CategoryStale, 0.4},
		{"47h59m", 47*time.Hour + 59*time.Minute, CategoryStale, 0.4},
		{"48 hours", 48 * time.Hour, CategoryVeryStale, 0.2},
		{"one week", 7 * 24 * time.Hour, CategoryVeryStale, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Compute(testNow.Add(-tt.age))
			if got.Category != tt.wantCat {
				t.Errorf("category = %q, want %q", got.Category, tt.wantCat)
			}
			if got.DecayScore != tt.wantOpacity {
				t.Errorf("decay_score = %f, want %f", got.DecayScore, tt.wantOpacity)
			}
			if got.AgeHours == nil {
				t.Fatal("age_hours should be set for a valid timestamp")
			}
			if *got.AgeHours < 0 {
				t.Errorf("age_hours = %f, want >= 0", *got.AgeHours)
			}
		})
	}
}

func TestCompute_MissingTimestamp(t *testing.T) {
	got := newTestService().Compute(time.Time{})

	if got.AgeHours != nil {
		t.Errorf("age_hours = %v, want nil", *got.AgeHours)
	}
	if got.Category != CategoryUnknown {
		t.Errorf("category = %q, want %q", got.Category, CategoryUnknown)
	}
	if got.DecayScore != 0.5 {
		t.Errorf("decay_score = %f, want 0.5", got.DecayScore)
	}
}

func TestCompute_FutureTimestampClampedToZeroAge(t *testing.T) {
	got := newTestService().Compute(testNow.Add(2 * time.Hour))
	if got.AgeHours == nil || *got.AgeHours != 0 {
		t.Errorf("future timestamp age = %v, want 0", got.AgeHours)
	}
	if got.Category != CategoryFresh {
		t.Errorf("category = %q, want fresh", got.Category)
	}
}

// Decay monotonicity: an older timestamp never yields a higher decay score.
func TestCompute_Monotonic(t *testing.T) {
	svc := newTestService()
	ages := []time.Duration{0, 30 * time.Minute, 2 * time.Hour, 12 * time.Hour, 30 * time.Hour, 72 * time.Hour}

	prev := 1.1
	for _, age := range ages {
		got := svc.Compute(testNow.Add(-age))
		if got.DecayScore > prev {
			t.Errorf("decay at age %v = %f, exceeds younger score %f", age, got.DecayScore, prev)
		}
		prev = got.DecayScore
	}
}
