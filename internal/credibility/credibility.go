// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package credibility maintains per-user reputation scores.
//
// Submissions move the score by a delta derived from the report's final
// confidence, adjusted by a recovery bonus for users digging out of a hole,
// diminishing returns for clustered reports, and spam triggers that
// short-circuit to a penalty. Every mutation clamps to [0,100], recomputes
// the level band, and appends a history entry.
package credibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// Spam trigger thresholds.
const (
	spamVolumeWindow    = 24 * time.Hour
	spamVolumeLimit     = 10
	spamDuplicateWindow = time.Hour
	spamDuplicateMi     = 1.0
	spamPatternLookback = 5
	spamPatternMaxScore = 0.6

	clusterWindowHrs = 24.0
	clusterRadiusMi  = 10.0
)

// Service applies reputation mutations against the document store.
type Service struct {
	store *store.Store
	clock clockwork.Clock
}

// New creates the credibility service. A nil clock uses the real clock.
func New(st *store.Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: st, clock: clock}
}

// SubmissionContext is the prior-report history the delta computation
// inspects for clustering and spam.
type SubmissionContext struct {
	// RecentReports are the user's prior reports, newest first. Only the
	// timestamp, coordinates, and confidence are read.
	RecentReports []models.UserReport
	// Latitude and Longitude of the candidate report.
	Latitude  float64
	Longitude float64
}

// SubmissionDelta computes the credibility delta for a new submission with
// final confidence score, before applying it. The returned reason string
// goes into the history entry.
func (s *Service) SubmissionDelta(current float64, confidence float64, sctx SubmissionContext) (float64, string) {
	now := s.clock.Now()

	// Spam triggers short-circuit.
	recent24h := 0
	for _, r := range sctx.RecentReports {
		if now.Sub(r.Timestamp) <= spamVolumeWindow {
			recent24h++
		}
	}
	if recent24h > spamVolumeLimit {
		return -5, "volume_spam"
	}
	for _, r := range sctx.RecentReports {
		if now.Sub(r.Timestamp) > spamDuplicateWindow {
			continue
		}
		if geo.HaversineMiles(sctx.Latitude, sctx.Longitude, r.Latitude, r.Longitude) <= spamDuplicateMi {
			return -5, "duplicate_report"
		}
	}
	if len(sctx.RecentReports) >= spamPatternLookback {
		allLow := true
		for _, r := range sctx.RecentReports[:spamPatternLookback] {
			if r.ConfidenceScore >= spamPatternMaxScore {
				allLow = false
				break
			}
		}
		if allLow {
			return -3, "pattern_spam"
		}
	}

	delta := baseDelta(confidence)

	// Recovery bonus for users climbing back.
	switch {
	case current < 30 && confidence >= 0.80:
		delta += 2
	case current < 50 && confidence >= 0.85:
		delta += 1
	}

	// Diminishing returns for clustered positive deltas.
	if delta > 0 {
		clustered := 0
		for _, r := range sctx.RecentReports {
			if now.Sub(r.Timestamp).Hours() > clusterWindowHrs {
				continue
			}
			if geo.HaversineMiles(sctx.Latitude, sctx.Longitude, r.Latitude, r.Longitude) <= clusterRadiusMi {
				clustered++
			}
		}
		delta *= clusterMultiplier(clustered)
	}

	return delta, fmt.Sprintf("submission_confidence_%.2f", confidence)
}

// baseDelta maps final confidence onto the submission delta table.
func baseDelta(confidence float64) float64 {
	switch {
	case confidence >= 0.90:
		return 5
	case confidence >= 0.80:
		return 3
	case confidence >= 0.70:
		return 2
	case confidence >= 0.60:
		return 1
	case confidence >= 0.50:
		return 0
	case confidence >= 0.40:
		return -1
	case confidence >= 0.30:
		return -2
	default:
		return -3
	}
}

// clusterMultiplier discounts positive deltas when the user has already
// reported nearby in the last day.
func clusterMultiplier(priorNearby int) float64 {
	switch priorNearby {
	case 0:
		return 1.0
	case 1:
		return 0.75
	case 2:
		return 0.50
	default:
		return 0.20
	}
}

// Apply mutates the user's credibility by delta, clamping to [0,100],
// recomputing the level, appending a history entry, and persisting the
// profile. Returns the updated profile.
func (s *Service) Apply(ctx context.Context, userID string, delta float64, reason string) (*models.UserProfile, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	old := profile.CredibilityScore
	profile.CredibilityScore = models.ClampCredibility(old + delta)
	profile.CredibilityLevel = models.CredibilityLevelForScore(profile.CredibilityScore)

	entry := models.CredibilityHistoryEntry{
		Old:       old,
		New:       profile.CredibilityScore,
		Delta:     delta,
		Reason:    reason,
		Timestamp: s.clock.Now().UTC(),
	}
	if err := s.store.Set(ctx, store.UserPath(userID), profile); err != nil {
		return nil, fmt.Errorf("persist credibility for %s: %w", userID, err)
	}
	if err := s.store.AppendToLog(ctx, store.CredibilityHistoryPath(userID), entry); err != nil {
		// History is an audit aid; a failed append must not undo the score.
		logging.Warn().Err(err).Str("user_id", userID).Msg("credibility history append failed")
	}

	logging.Info().
		Str("user_id", userID).
		Float64("old", old).
		Float64("new", profile.CredibilityScore).
		Float64("delta", delta).
		Str("reason", reason).
		Msg("credibility updated")
	return profile, nil
}

// ApplySubmission computes and applies the submission delta in one step,
// returning the applied delta for persistence on the report.
func (s *Service) ApplySubmission(ctx context.Context, userID string, confidence float64, sctx SubmissionContext) (float64, *models.UserProfile, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	delta, reason := s.SubmissionDelta(profile.CredibilityScore, confidence, sctx)
	updated, err := s.Apply(ctx, userID, delta, reason)
	if err != nil {
		return 0, nil, err
	}
	return delta, updated, nil
}

// ApplyEnhanceDelta applies the difference between the AI-era delta and the
// submission-era delta, so the net movement matches the final confidence.
func (s *Service) ApplyEnhanceDelta(ctx context.Context, userID string, submissionDelta, enhancedConfidence float64, sctx SubmissionContext) (float64, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return 0, err
	}
	newDelta, _ := s.SubmissionDelta(profile.CredibilityScore, enhancedConfidence, sctx)
	diff := newDelta - submissionDelta
	if diff == 0 {
		return 0, nil
	}
	if _, err := s.Apply(ctx, userID, diff, fmt.Sprintf("ai_enhanced_confidence_%.2f", enhancedConfidence)); err != nil {
		return 0, err
	}
	return diff, nil
}

// ApplyDeletion inverts the submission-era delta when an owner deletes
// their report.
func (s *Service) ApplyDeletion(ctx context.Context, userID string, submissionDelta float64) error {
	if submissionDelta == 0 {
		return nil
	}
	_, err := s.Apply(ctx, userID, -submissionDelta, "report_deleted")
	return err
}

// Profile loads the user's profile, initializing a default one for unknown
// users.
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.store.Get(ctx, store.UserPath(userID), &profile)
	if errors.Is(err, store.ErrNotFound) {
		now := s.clock.Now().UTC()
		profile = models.UserProfile{
			UserID:           userID,
			CreatedAt:        now,
			LastActive:       now,
			CredibilityScore: models.DefaultCredibility,
			CredibilityLevel: models.CredibilityLevelForScore(models.DefaultCredibility),
		}
		return &profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return &profile, nil
}

// History returns the user's credibility change log, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]models.CredibilityHistoryEntry, error) {
	var raw []json.RawMessage
	err := s.store.Get(ctx, store.CredibilityHistoryPath(userID), &raw)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", userID, err)
	}
	entries := make([]models.CredibilityHistoryEntry, 0, len(raw))
	for _, r := range raw {
		var e models.CredibilityHistoryEntry
		if uerr := json.Unmarshal(r, &e); uerr != nil {
			return nil, fmt.Errorf("decode history %s: %w", userID, uerr)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RecordSubmission bumps the user's report counters after a successful
// submission.
func (s *Service) RecordSubmission(ctx context.Context, userID string, confidence float64) error {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	profile.TotalReports++
	if confidence >= 0.8 {
		profile.SuccessfulReports++
	}
	if confidence < 0.3 {
		profile.FlaggedReports++
	}
	profile.LastReportTimestamp = &now
	profile.LastActive = now
	return s.store.Set(ctx, store.UserPath(userID), profile)
}
