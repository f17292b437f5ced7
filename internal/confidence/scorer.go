// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package confidence scores disaster events.
//
// Two paths exist. Official feeds get a per-source base score plus bounded
// recency, completeness, and intensity bonuses. User reports get a weighted
// five-factor heuristic, a credibility-band penalty for authenticated
// submitters, a corroboration boost from nearby same-type events, and an
// optional asynchronous AI blend. Scores live in [0,1]; the display level
// is always derived through models.ConfidenceLevelForScore.
package confidence

import (
	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// Factor weights of the user-report heuristic. They sum to 1.
const (
	weightSourceCredibility = 0.40
	weightTemporalRecency   = 0.20
	weightSpatialValidation = 0.20
	weightCompleteness      = 0.10
	weightTypeValidation    = 0.10
)

// aiBlendHeuristicWeight is the heuristic share of the final AI-blended
// score; the AI share is the remainder.
const aiBlendHeuristicWeight = 0.7

// Scorer computes confidence scores and breakdowns. It is stateless apart
// from the clock; neighbor candidates for corroboration are supplied by the
// caller.
type Scorer struct {
	clock clockwork.Clock
}

// New creates a Scorer. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Scorer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scorer{clock: clock}
}

// CredibilityMultiplier returns the score multiplier for a submitter's
// reputation band. Applied before corroboration, authenticated submissions
// only.
func CredibilityMultiplier(level models.CredibilityLevel) float64 {
	switch level {
	case models.CredibilityExpert, models.CredibilityVeteran:
		return 1.0
	case models.CredibilityTrusted:
		return 0.95
	case models.CredibilityNeutral:
		return 0.90
	case models.CredibilityCaution:
		return 0.80
	default:
		return 0.65
	}
}

// BlendAI folds an AI assessment into a heuristic score: 70% heuristic,
// 30% AI.
func BlendAI(heuristic, ai float64) float64 {
	return clamp01(aiBlendHeuristicWeight*heuristic + (1-aiBlendHeuristicWeight)*ai)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
