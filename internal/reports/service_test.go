// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/ai"
	"github.com/myr0nl/EvacuationHub-sub000/internal/audit"
	"github.com/myr0nl/EvacuationHub-sub000/internal/confidence"
	"github.com/myr0nl/EvacuationHub-sub000/internal/credibility"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
	"github.com/myr0nl/EvacuationHub-sub000/internal/timedecay"
)

// fakeAIProvider implements ai.Provider for enhance tests.
type fakeAIProvider struct {
	score float64
	err   error
}

func (f *fakeAIProvider) Name() string { return "fake" }

func (f *fakeAIProvider) Analyze(_ context.Context, _ string) (*ai.Assessment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Assessment{Score: f.score, Reasoning: "consistent with nearby data", Provider: "fake"}, nil
}

type fixture struct {
	service *Service
	store   *store.Store
	clock   *clockwork.FakeClock
	cred    *credibility.Service
}

func newFixture(t *testing.T, provider ai.Provider) *fixture {
	t.Helper()
	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))

	var analyzer *ai.Analyzer
	if provider != nil {
		quota := ai.NewQuota(ai.NewStoreCounter(st, clock), clock, 50)
		analyzer = ai.NewAnalyzer(ai.NewChain(provider, nil), quota, st)
	}

	cred := credibility.New(st, clock)
	svc := New(
		st,
		confidence.New(clock),
		cred,
		timedecay.New(clock),
		nil, // feeds: enhance degrades to user reports only
		analyzer,
		nil, // geocoder
		audit.New(st, clock),
		nil, // publisher: enhance invoked directly in tests
		clock,
	)
	return &fixture{service: svc, store: st, clock: clock, cred: cred}
}

func submitReq(principal *models.Principal) SubmitRequest {
	return SubmitRequest{
		Type:        models.TypeWildfire,
		Latitude:    37.0,
		Longitude:   -120.0,
		Severity:    models.SeverityHigh,
		Description: "Smoke column visible from the valley",
		Principal:   principal,
	}
}

func TestSubmit_Anonymous(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.service.Submit(context.Background(), submitReq(nil))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	r := res.Report
	if r.Source != models.SourceUserReport {
		t.Errorf("source = %v, want user_report", r.Source)
	}
	if r.ConfidenceScore <= 0 || r.ConfidenceScore > 1 {
		t.Errorf("confidence = %v, want in (0,1]", r.ConfidenceScore)
	}
	if r.AIAnalysisStatus != models.AIStatusNotApplicable {
		t.Errorf("ai status = %v, want not_applicable without provider", r.AIAnalysisStatus)
	}
	if res.CredibilityUpdate != nil {
		t.Error("anonymous submission should not carry a credibility update")
	}

	stored, err := f.service.Get(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.TimeDecay == nil || stored.TimeDecay.Category != timedecay.CategoryFresh {
		t.Errorf("time decay = %+v, want fresh", stored.TimeDecay)
	}
}

func TestSubmit_AuthenticatedAppliesCredibility(t *testing.T) {
	f := newFixture(t, &fakeAIProvider{score: 0.9})
	principal := &models.Principal{UserID: "user1", Email: "u@example.com"}

	res, err := f.service.Submit(context.Background(), submitReq(principal))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	r := res.Report
	if r.Source != models.SourceUserReportAuth {
		t.Errorf("source = %v, want user_report_authenticated", r.Source)
	}
	if r.UserCredibilityAtSubmission == nil || *r.UserCredibilityAtSubmission != 50 {
		t.Errorf("credibility snapshot = %v, want 50", r.UserCredibilityAtSubmission)
	}
	if r.SubmissionDelta == nil {
		t.Fatal("submission delta not recorded")
	}
	if res.CredibilityUpdate == nil {
		t.Fatal("missing credibility update")
	}
	if r.AIAnalysisStatus != models.AIStatusPending {
		t.Errorf("ai status = %v, want pending with provider and description", r.AIAnalysisStatus)
	}
}

func TestSubmit_RejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)

	req := submitReq(nil)
	req.Latitude = 91
	if _, err := f.service.Submit(context.Background(), req); err == nil {
		t.Error("latitude 91 should be rejected")
	}

	req = submitReq(nil)
	req.ImageURL = "https://127.0.0.1/x.jpg"
	if _, err := f.service.Submit(context.Background(), req); err == nil {
		t.Error("loopback image url should be rejected")
	}
}

func TestSubmit_NonEligibleRescoresNeighbors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, submitReq(nil))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	before := first.Report.ConfidenceScore

	// Same location, no provider configured: the second report lands
	// not_applicable and no enhancement will ever run for it. Its creation
	// is still corroborating evidence for the first report.
	second, err := f.service.Submit(ctx, submitReq(nil))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.Report.AIAnalysisStatus != models.AIStatusNotApplicable {
		t.Fatalf("ai status = %v, want not_applicable", second.Report.AIAnalysisStatus)
	}

	rescored, err := f.service.Get(ctx, first.Report.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if rescored.ConfidenceScore <= before {
		t.Errorf("neighbor confidence = %v, want above %v after corroborating report", rescored.ConfidenceScore, before)
	}
	if rescored.ConfidenceBreakdown == nil || rescored.ConfidenceBreakdown.Corroboration == nil {
		t.Error("rescored neighbor missing corroboration breakdown")
	}
}

func TestDelete_RestoresCredibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	principal := &models.Principal{UserID: "user2"}

	before, _ := f.cred.Profile(ctx, "user2")
	res, err := f.service.Submit(ctx, submitReq(principal))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	mid, _ := f.cred.Profile(ctx, "user2")
	if mid.CredibilityScore == before.CredibilityScore && *res.Report.SubmissionDelta != 0 {
		t.Fatal("submission should have moved credibility")
	}

	if err := f.service.Delete(ctx, res.Report.ID, *principal); err != nil {
		t.Fatalf("delete: %v", err)
	}
	after, _ := f.cred.Profile(ctx, "user2")
	if after.CredibilityScore != before.CredibilityScore {
		t.Errorf("credibility after delete = %v, want restored %v", after.CredibilityScore, before.CredibilityScore)
	}

	if _, err := f.service.Get(ctx, res.Report.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted = %v, want ErrNotFound", err)
	}
}

func TestDelete_OwnershipEnforced(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := &models.Principal{UserID: "owner"}

	res, err := f.service.Submit(ctx, submitReq(owner))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.service.Delete(ctx, res.Report.ID, models.Principal{UserID: "stranger"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger delete = %v, want ErrForbidden", err)
	}
	if err := f.service.Delete(ctx, res.Report.ID, models.Principal{UserID: "admin", IsAdmin: true}); err != nil {
		t.Errorf("admin delete = %v, want success", err)
	}
}

func TestBulkDeleteStale(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Two stale reports (72h) and one fresh (24h).
	var staleIDs []string
	for i := 0; i < 2; i++ {
		res, err := f.service.Submit(ctx, submitReq(nil))
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		staleIDs = append(staleIDs, res.Report.ID)
	}
	f.clock.Advance(48 * time.Hour)
	fresh, err := f.service.Submit(ctx, submitReq(nil))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.clock.Advance(24 * time.Hour)

	result, err := f.service.BulkDeleteStale(ctx, 48, models.Principal{UserID: "admin", IsAdmin: true})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.DeletedCount != 2 {
		t.Errorf("deleted_count = %d, want 2", result.DeletedCount)
	}
	for _, id := range staleIDs {
		found := false
		for _, got := range result.DeletedIDs {
			if got == id {
				found = true
			}
		}
		if !found {
			t.Errorf("deleted_ids missing %s", id)
		}
	}
	if _, err := f.service.Get(ctx, fresh.Report.ID); err != nil {
		t.Errorf("fresh report should survive, got %v", err)
	}

	// Idempotence: a second identical call removes nothing.
	again, err := f.service.BulkDeleteStale(ctx, 48, models.Principal{UserID: "admin", IsAdmin: true})
	if err != nil {
		t.Fatalf("second bulk delete: %v", err)
	}
	if again.DeletedCount != 0 {
		t.Errorf("second deleted_count = %d, want 0", again.DeletedCount)
	}
}

func TestBulkDeleteStale_RejectsBadWindow(t *testing.T) {
	f := newFixture(t, nil)
	admin := models.Principal{UserID: "admin", IsAdmin: true}
	if _, err := f.service.BulkDeleteStale(context.Background(), -1, admin); err == nil {
		t.Error("negative max_age_hours should be rejected")
	}
	if _, err := f.service.BulkDeleteStale(context.Background(), 9000, admin); err == nil {
		t.Error("max_age_hours above a year should be rejected")
	}
	if _, err := f.service.BulkDeleteStale(context.Background(), 0, admin); err != nil {
		t.Errorf("max_age_hours 0 should be accepted, got %v", err)
	}
}

func TestEnhance_CompletesAndBlends(t *testing.T) {
	f := newFixture(t, &fakeAIProvider{score: 1.0})
	ctx := context.Background()
	principal := &models.Principal{UserID: "user3"}

	res, err := f.service.Submit(ctx, submitReq(principal))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	heuristic := res.Report.ConfidenceScore

	enhanced, err := f.service.Enhance(ctx, res.Report.ID)
	if err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if enhanced.AIAnalysisStatus != models.AIStatusCompleted {
		t.Fatalf("ai status = %v, want completed", enhanced.AIAnalysisStatus)
	}
	b := enhanced.ConfidenceBreakdown
	if b == nil || b.AIScore == nil || *b.AIScore != 1.0 {
		t.Fatalf("breakdown ai score = %+v, want 1.0", b)
	}
	if b.AIProvider != "fake" {
		t.Errorf("provider = %q, want fake", b.AIProvider)
	}
	// Blend pulls the score toward the AI verdict: 0.7*h + 0.3*1.0 > h.
	if enhanced.ConfidenceScore <= heuristic {
		t.Errorf("blended %v should exceed heuristic %v for ai score 1.0", enhanced.ConfidenceScore, heuristic)
	}

	// Idempotent at completed: second call returns unchanged, no error.
	again, err := f.service.Enhance(ctx, res.Report.ID)
	if err != nil {
		t.Fatalf("re-enhance: %v", err)
	}
	if again.ConfidenceScore != enhanced.ConfidenceScore {
		t.Errorf("re-enhance changed score %v -> %v", enhanced.ConfidenceScore, again.ConfidenceScore)
	}
}

func TestEnhance_ProviderFailureKeepsHeuristic(t *testing.T) {
	f := newFixture(t, &fakeAIProvider{err: errors.New("model down")})
	ctx := context.Background()

	res, err := f.service.Submit(ctx, submitReq(&models.Principal{UserID: "user4"}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	enhanced, err := f.service.Enhance(ctx, res.Report.ID)
	if err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if enhanced.AIAnalysisStatus != models.AIStatusFailed {
		t.Errorf("ai status = %v, want failed", enhanced.AIAnalysisStatus)
	}
	if enhanced.AIFailureReason == "" {
		t.Error("failure reason not recorded")
	}
	if enhanced.ConfidenceScore <= 0 {
		t.Error("heuristic score should survive provider failure")
	}

	// Idempotent at failed: repeat reports quota-style rejection.
	if _, err := f.service.Enhance(ctx, res.Report.ID); !errors.Is(err, ErrQuota) {
		t.Errorf("re-enhance on failed = %v, want ErrQuota", err)
	}
}

func TestEnhance_NotApplicable(t *testing.T) {
	f := newFixture(t, &fakeAIProvider{score: 0.9})
	ctx := context.Background()

	req := submitReq(nil)
	req.Description = "" // nothing for the model to read
	res, err := f.service.Submit(ctx, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Report.AIAnalysisStatus != models.AIStatusNotApplicable {
		t.Fatalf("ai status = %v, want not_applicable", res.Report.AIAnalysisStatus)
	}
	if _, err := f.service.Enhance(ctx, res.Report.ID); !errors.Is(err, ErrNotApplicable) {
		t.Errorf("enhance = %v, want ErrNotApplicable", err)
	}
}

func TestList_MaxAgeFilter(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.service.Submit(ctx, submitReq(nil)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.clock.Advance(30 * time.Hour)
	if _, err := f.service.Submit(ctx, submitReq(nil)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	all, err := f.service.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("list all = %d, want 2", len(all))
	}
	if !all[0].Timestamp.After(all[1].Timestamp) {
		t.Error("list should be newest first")
	}

	recent, err := f.service.List(ctx, 24)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("list within 24h = %d, want 1", len(recent))
	}

	if _, err := f.service.List(ctx, 9000); err == nil {
		t.Error("max_age_hours above a year should be rejected")
	}
}

func TestUpdate_OwnershipAndRescore(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := &models.Principal{UserID: "user5"}

	res, err := f.service.Submit(ctx, submitReq(owner))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	sev := models.SeverityCritical
	if _, err := f.service.Update(ctx, res.Report.ID, UpdateRequest{
		Severity:  &sev,
		Principal: models.Principal{UserID: "stranger"},
	}); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger update = %v, want ErrForbidden", err)
	}

	updated, err := f.service.Update(ctx, res.Report.ID, UpdateRequest{
		Severity:  &sev,
		Principal: *owner,
	})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Severity != models.SeverityCritical {
		t.Errorf("severity = %v, want critical", updated.Severity)
	}
	if updated.UpdatedAt == nil {
		t.Error("updated_at not set")
	}
}
