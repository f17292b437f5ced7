// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package timedecay maps event age to a display category and opacity.
//
// The map client fades markers as events age; this package is the single
// source of that fade. It is a pure function of (timestamp, now); the clock
// is injected so tests are deterministic.
package timedecay

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// Categories in freshness order.
const (
	CategoryFresh     = "fresh"
	CategoryRecent    = "recent"
	CategoryOld       = "old"
	CategoryStale     = "stale"
	CategoryVeryStale = "very_stale"
	CategoryUnknown   = "unknown"
)

// Service computes time decay against an injected clock.
type Service struct {
	clock clockwork.Clock
}

// New creates a Service with the given clock. A nil clock uses real time.
func New(clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{clock: clock}
}

// Compute returns the decay record for an event timestamp. A zero timestamp
// is treated as missing: {age_hours: null, "unknown", 0.5}.
func (s *Service) Compute(ts time.Time) models.TimeDecay {
	if ts.IsZero() {
		return models.TimeDecay{Category: CategoryUnknown, DecayScore: 0.5}
	}

	age := s.clock.Now().UTC().Sub(ts.UTC()).Hours()
	if age < 0 {
		age = 0
	}

	category, opacity := bandFor(age)
	return models.TimeDecay{AgeHours: &age, Category: category, DecayScore: opacity}
}

// bandFor maps an age in hours to its category and opacity.
func bandFor(ageHours float64) (string, float64) {
	switch {
	case ageHours < 1:
		return CategoryFresh, 1.0
	case ageHours < 6:
		return CategoryRecent, 0.8
	case ageHours < 24:
		return CategoryOld, 0.6
	case ageHours < 48:
		return CategoryStale, 0.4
	default:
		return CategoryVeryStale, 0.2
	}
}
