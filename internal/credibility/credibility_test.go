// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package credibility

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

func newTestService(t *testing.T) (*Service, *clockwork.FakeClock) {
	t.Helper()
	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	return New(st, clock), clock
}

func priorReport(clock clockwork.Clock, age time.Duration, lat, lon, confidence float64) models.UserReport {
	return models.UserReport{DisasterEvent: models.DisasterEvent{
		Latitude:        lat,
		Longitude:       lon,
		Timestamp:       clock.Now().Add(-age),
		ConfidenceScore: confidence,
	}}
}

func TestBaseDelta(t *testing.T) {
	tests := []struct {
		confidence float64
		want       float64
	}{
		{0.95, 5},
		{0.90, 5},
		{0.85, 3},
		{0.75, 2},
		{0.65, 1},
		{0.55, 0},
		{0.45, -1},
		{0.35, -2},
		{0.10, -3},
	}
	for _, tt := range tests {
		if got := baseDelta(tt.confidence); got != tt.want {
			t.Errorf("baseDelta(%v) = %v, want %v", tt.confidence, got, tt.want)
		}
	}
}

func TestSubmissionDelta_RecoveryBonus(t *testing.T) {
	s, _ := newTestService(t)
	sctx := SubmissionContext{Latitude: 37, Longitude: -120}

	// Unreliable user with a strong report: +3 base, +2 recovery.
	delta, _ := s.SubmissionDelta(22, 0.82, sctx)
	if delta != 5 {
		t.Errorf("delta = %v, want 5 (base 3 + recovery 2)", delta)
	}

	// Caution-band user with excellent report: +3 base, +1 recovery.
	delta, _ = s.SubmissionDelta(45, 0.86, sctx)
	if delta != 4 {
		t.Errorf("delta = %v, want 4 (base 3 + recovery 1)", delta)
	}

	// Healthy user gets no recovery bonus.
	delta, _ = s.SubmissionDelta(80, 0.86, sctx)
	if delta != 3 {
		t.Errorf("delta = %v, want 3", delta)
	}
}

func TestSubmissionDelta_DiminishingReturns(t *testing.T) {
	s, clock := newTestService(t)

	tests := []struct {
		name        string
		priorNearby int
		want        float64
	}{
		{"first report", 0, 5},
		{"second nearby", 1, 3.75},
		{"third nearby", 2, 2.5},
		{"fourth nearby", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sctx := SubmissionContext{Latitude: 37, Longitude: -120}
			for i := 0; i < tt.priorNearby; i++ {
				sctx.RecentReports = append(sctx.RecentReports,
					priorReport(clock, time.Duration(i+2)*time.Hour, 37.01, -120.01, 0.9))
			}
			delta, _ := s.SubmissionDelta(70, 0.95, sctx)
			if delta != tt.want {
				t.Errorf("delta = %v, want %v", delta, tt.want)
			}
		})
	}

	// Negative deltas are not discounted.
	sctx := SubmissionContext{Latitude: 37, Longitude: -120}
	sctx.RecentReports = append(sctx.RecentReports, priorReport(clock, 2*time.Hour, 37.01, -120.01, 0.9))
	delta, _ := s.SubmissionDelta(70, 0.35, sctx)
	if delta != -2 {
		t.Errorf("negative delta = %v, want -2 undiscounted", delta)
	}
}

func TestSubmissionDelta_SpamTriggers(t *testing.T) {
	s, clock := newTestService(t)

	t.Run("volume spam", func(t *testing.T) {
		sctx := SubmissionContext{Latitude: 37, Longitude: -120}
		for i := 0; i < 11; i++ {
			sctx.RecentReports = append(sctx.RecentReports,
				priorReport(clock, time.Duration(i+1)*time.Hour, 40, -100, 0.9))
		}
		delta, reason := s.SubmissionDelta(70, 0.95, sctx)
		if delta != -5 || reason != "volume_spam" {
			t.Errorf("delta, reason = %v, %q; want -5, volume_spam", delta, reason)
		}
	})

	t.Run("duplicate report", func(t *testing.T) {
		sctx := SubmissionContext{
			Latitude: 37, Longitude: -120,
			RecentReports: []models.UserReport{priorReport(clock, 30*time.Minute, 37.001, -120.001, 0.9)},
		}
		delta, reason := s.SubmissionDelta(70, 0.95, sctx)
		if delta != -5 || reason != "duplicate_report" {
			t.Errorf("delta, reason = %v, %q; want -5, duplicate_report", delta, reason)
		}
	})

	t.Run("pattern spam", func(t *testing.T) {
		sctx := SubmissionContext{Latitude: 37, Longitude: -120}
		for i := 0; i < 5; i++ {
			sctx.RecentReports = append(sctx.RecentReports,
				priorReport(clock, time.Duration(i+2)*time.Hour, 40, -100, 0.4))
		}
		delta, reason := s.SubmissionDelta(70, 0.95, sctx)
		if delta != -3 || reason != "pattern_spam" {
			t.Errorf("delta, reason = %v, %q; want -3, pattern_spam", delta, reason)
		}
	})
}

func TestApply_ClampsAndRecordsHistory(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	profile, err := s.Apply(ctx, "user1", 60, "test_big_gain")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if profile.CredibilityScore != 100 {
		t.Errorf("score = %v, want clamped to 100", profile.CredibilityScore)
	}
	if profile.CredibilityLevel != models.CredibilityExpert {
		t.Errorf("level = %v, want Expert", profile.CredibilityLevel)
	}

	profile, err = s.Apply(ctx, "user1", -250, "test_big_loss")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if profile.CredibilityScore != 0 {
		t.Errorf("score = %v, want clamped to 0", profile.CredibilityScore)
	}

	history, err := s.History(ctx, "user1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Reason != "test_big_gain" || history[1].Reason != "test_big_loss" {
		t.Errorf("history reasons = %q, %q", history[0].Reason, history[1].Reason)
	}
	if history[0].Old != 50 || history[0].New != 100 {
		t.Errorf("first entry = %+v, want old 50 new 100", history[0])
	}
}

func TestApplyDeletion_InvertsSubmissionDelta(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	delta, profile, err := s.ApplySubmission(ctx, "user2", 0.92, SubmissionContext{Latitude: 37, Longitude: -120})
	if err != nil {
		t.Fatalf("apply submission: %v", err)
	}
	if delta != 5 {
		t.Fatalf("submission delta = %v, want 5", delta)
	}
	if profile.CredibilityScore != 55 {
		t.Fatalf("score = %v, want 55", profile.CredibilityScore)
	}

	if err := s.ApplyDeletion(ctx, "user2", delta); err != nil {
		t.Fatalf("apply deletion: %v", err)
	}
	restored, err := s.Profile(ctx, "user2")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if restored.CredibilityScore != 50 {
		t.Errorf("score after delete = %v, want restored 50", restored.CredibilityScore)
	}
}

func TestApplyEnhanceDelta_DeltaOfDelta(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	sctx := SubmissionContext{Latitude: 37, Longitude: -120}

	// Submission at 0.65 earned +1; AI raises confidence to 0.92 which would
	// have earned +5; the follow-up applies the +4 difference.
	submissionDelta, _, err := s.ApplySubmission(ctx, "user3", 0.65, sctx)
	if err != nil {
		t.Fatalf("apply submission: %v", err)
	}
	if submissionDelta != 1 {
		t.Fatalf("submission delta = %v, want 1", submissionDelta)
	}

	diff, err := s.ApplyEnhanceDelta(ctx, "user3", submissionDelta, 0.92, sctx)
	if err != nil {
		t.Fatalf("apply enhance delta: %v", err)
	}
	if diff != 4 {
		t.Errorf("diff = %v, want 4", diff)
	}
	profile, _ := s.Profile(ctx, "user3")
	if profile.CredibilityScore != 55 {
		t.Errorf("score = %v, want 55 (50 +1 +4)", profile.CredibilityScore)
	}
}

func TestProfile_DefaultsForUnknownUser(t *testing.T) {
	s, _ := newTestService(t)
	profile, err := s.Profile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.CredibilityScore != models.DefaultCredibility {
		t.Errorf("score = %v, want default %v", profile.CredibilityScore, models.DefaultCredibility)
	}
	if profile.CredibilityLevel != models.CredibilityNeutral {
		t.Errorf("level = %v, want Neutral", profile.CredibilityLevel)
	}
}

func TestRecordSubmission_Counters(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if err := s.RecordSubmission(ctx, "user4", 0.9); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordSubmission(ctx, "user4", 0.2); err != nil {
		t.Fatalf("record: %v", err)
	}

	profile, _ := s.Profile(ctx, "user4")
	if profile.TotalReports != 2 || profile.SuccessfulReports != 1 || profile.FlaggedReports != 1 {
		t.Errorf("counters = %d/%d/%d, want 2/1/1",
			profile.TotalReports, profile.SuccessfulReports, profile.FlaggedReports)
	}
	if profile.LastReportTimestamp == nil {
		t.Error("last report timestamp not set")
	}
}
