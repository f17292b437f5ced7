// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package confidence

import (
	"math"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// UserScoreOptions carries the submission context the heuristic factors
// read.
type UserScoreOptions struct {
	// CredibilityScore is the authenticated submitter's credibility in
	// [0,100]; nil for anonymous submissions.
	CredibilityScore *float64
	// RecaptchaScore is the anonymous submission's bot-check score in [0,1].
	RecaptchaScore *float64
	// UserDistanceMi is the reported distance between the submitter and the
	// event, when the client shared device location.
	UserDistanceMi *float64
	// Neighbors are corroboration candidates: events of any source near the
	// report. Filtering by type, distance, and time happens here.
	Neighbors []models.DisasterEvent
}

// ScoreUserReport fills the report's confidence score, level, and breakdown
// via the user-report path: weighted heuristic, credibility penalty,
// corroboration boost.
func (s *Scorer) ScoreUserReport(report *models.UserReport, opts UserScoreOptions) {
	factors := map[string]float64{
		"source_credibility": weightSourceCredibility * sourceCredibilityFactor(opts),
		"temporal_recency":   weightTemporalRecency * s.temporalRecencyFactor(report),
		"spatial_validation": weightSpatialValidation * spatialValidationFactor(opts.UserDistanceMi),
		"completeness":       weightCompleteness * completenessFactor(report),
		"type_validation":    weightTypeValidation * typeValidationFactor(report),
	}

	score := 0.0
	for _, v := range factors {
		score += v
	}

	breakdown := &models.ConfidenceBreakdown{
		Path:    "user_report",
		Factors: factors,
	}

	// Credibility penalty, authenticated submissions only.
	if opts.CredibilityScore != nil {
		level := models.CredibilityLevelForScore(*opts.CredibilityScore)
		mult := CredibilityMultiplier(level)
		breakdown.CredibilityMultiplier = mult
		breakdown.ScoreBeforePenalty = score
		score *= mult
		breakdown.ScoreAfterPenalty = score
	}

	if corr := s.Corroborate(&report.DisasterEvent, opts.Neighbors); corr != nil {
		breakdown.Corroboration = corr
		score += corr.Boost
	}

	score = clamp01(score)
	report.ConfidenceScore = score
	report.ConfidenceLevel = models.ConfidenceLevelForScore(score)
	report.ConfidenceBreakdown = breakdown
}

// sourceCredibilityFactor maps the submitter's standing into [0,1]:
// authenticated submitters map through their reputation band; anonymous
// submissions map their bot-check score into [0.5, 0.85]; with neither,
// 0.5.
func sourceCredibilityFactor(opts UserScoreOptions) float64 {
	if opts.CredibilityScore != nil {
		switch models.CredibilityLevelForScore(*opts.CredibilityScore) {
		case models.CredibilityExpert:
			return 1.0
		case models.CredibilityVeteran:
			return 0.95
		case models.CredibilityTrusted:
			return 0.9
		case models.CredibilityNeutral:
			return 0.85
		case models.CredibilityCaution:
			return 0.8
		default:
			return 0.7
		}
	}
	if opts.RecaptchaScore != nil {
		return 0.5 + 0.35*clamp01(*opts.RecaptchaScore)
	}
	return 0.5
}

// temporalRecencyFactor decays with report age: 1.0 inside 15 minutes,
// stepping to 0.7 at a day, then exponentially with a 0.5 floor.
func (s *Scorer) temporalRecencyFactor(report *models.UserReport) float64 {
	if report.Timestamp.IsZero() {
		return 0.5
	}
	age := s.clock.Now().Sub(report.Timestamp)
	if age < 0 {
		age = 0
	}
	hours := age.Hours()
	switch {
	case hours <= 0.25:
		return 1.0
	case hours <= 1:
		return 0.9
	case hours <= 6:
		return 0.8
	case hours <= 24:
		return 0.7
	default:
		return math.Max(0.5, 0.7*math.Pow(0.97, hours/24))
	}
}

// spatialValidationFactor is sharper near zero: an on-scene reporter scores
// 1.0, a distant one bottoms out at 0.3. Without device location, neutral
// 0.5.
func spatialValidationFactor(distanceMi *float64) float64 {
	if distanceMi == nil {
		return 0.5
	}
	d := *distanceMi
	switch {
	case d < 1:
		return 1.0
	case d <= 5:
		return 0.9
	case d <= 15:
		return 0.7
	case d <= 30:
		return 0.5
	case d <= 50:
		return 0.4
	default:
		return 0.3
	}
}

// completenessFactor weights the core fields (coordinates and type) at 0.8
// and the narrative bonus fields at 0.2.
func completenessFactor(report *models.UserReport) float64 {
	core := 0
	if report.Latitude != 0 || report.Longitude != 0 {
		core += 2
	}
	if report.Type != "" {
		core++
	}

	bonus := 0
	if report.Description != "" {
		bonus++
	}
	if report.Severity != "" {
		bonus++
	}
	if report.AffectedPopulation != nil {
		bonus++
	}

	return float64(core)/3*0.8 + float64(bonus)/3*0.2
}

// typeValidationFactor: recognized type 1.0, unrecognized 0.5, absent 0.3.
func typeValidationFactor(report *models.UserReport) float64 {
	if report.Type == "" {
		return 0.3
	}
	if models.KnownDisasterTypes[report.Type] {
		return 1.0
	}
	return 0.5
}
