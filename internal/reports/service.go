// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package reports owns the user-report lifecycle: fast submission, deferred
// AI enhancement, retroactive neighbor rescoring, and deletion with
// credibility inversion.
//
// The submit path is budgeted to stay fast: it scores against nearby user
// reports only and defers geocoding, full-corpus corroboration, and AI to
// the enhance worker, which consumes submissions from an in-process pub/sub
// channel.
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/ai"
	"github.com/myr0nl/EvacuationHub-sub000/internal/audit"
	"github.com/myr0nl/EvacuationHub-sub000/internal/confidence"
	"github.com/myr0nl/EvacuationHub-sub000/internal/credibility"
	"github.com/myr0nl/EvacuationHub-sub000/internal/feeds"
	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/geocode"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/metrics"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
	"github.com/myr0nl/EvacuationHub-sub000/internal/timedecay"
)

// Neighborhood and rescore bounds.
const (
	neighborRadiusMi   = 50.0
	rescoreMaxReports  = 20
	maxAgeHoursCeiling = 8760.0
)

// EnhanceTopic is the pub/sub topic submissions are enqueued on.
const EnhanceTopic = "reports.enhance"

// Service errors surfaced to the API layer.
var (
	ErrNotFound      = errors.New("reports: not found")
	ErrForbidden     = errors.New("reports: forbidden")
	ErrNotApplicable = errors.New("reports: ai analysis not applicable")
	ErrProcessing    = errors.New("reports: ai analysis in progress")
	ErrQuota         = errors.New("reports: ai quota exhausted")
)

// Service orchestrates the report lifecycle.
type Service struct {
	store       *store.Store
	scorer      *confidence.Scorer
	credibility *credibility.Service
	decay       *timedecay.Service
	feeds       *feeds.Manager
	analyzer    *ai.Analyzer
	geocoder    *geocode.Client
	audit       *audit.Logger
	publisher   message.Publisher
	clock       clockwork.Clock
}

// New wires the report service. analyzer, geocoder, and publisher may be
// nil; the corresponding enhance steps degrade gracefully.
func New(
	st *store.Store,
	scorer *confidence.Scorer,
	cred *credibility.Service,
	decay *timedecay.Service,
	feedMgr *feeds.Manager,
	analyzer *ai.Analyzer,
	geocoder *geocode.Client,
	auditLog *audit.Logger,
	publisher message.Publisher,
	clock clockwork.Clock,
) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		store:       st,
		scorer:      scorer,
		credibility: cred,
		decay:       decay,
		feeds:       feedMgr,
		analyzer:    analyzer,
		geocoder:    geocoder,
		audit:       auditLog,
		publisher:   publisher,
		clock:       clock,
	}
}

// SubmitRequest is a validated submission payload.
type SubmitRequest struct {
	Type               models.DisasterType
	Latitude           float64
	Longitude          float64
	Severity           models.Severity
	Description        string
	ImageURL           string
	AffectedPopulation *int

	// Principal is nil for anonymous submissions.
	Principal      *models.Principal
	RecaptchaScore *float64
	UserDistanceMi *float64
}

// CredibilityUpdate summarizes the submitter's reputation change.
type CredibilityUpdate struct {
	Delta    float64                 `json:"delta"`
	NewScore float64                 `json:"new_score"`
	NewLevel models.CredibilityLevel `json:"new_level"`
}

// SubmitResult is the 201 response body material.
type SubmitResult struct {
	Report            *models.UserReport `json:"report"`
	CredibilityUpdate *CredibilityUpdate `json:"credibility_update,omitempty"`
}

// Submit runs the fast path: validate, score against nearby user reports,
// persist, queue enhancement.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", models.ErrInvalid)
	}
	if err := ValidateImageURL(req.ImageURL); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	report := &models.UserReport{
		DisasterEvent: models.DisasterEvent{
			ID:          "report_" + uuid.NewString(),
			Source:      models.SourceUserReport,
			Type:        req.Type,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			Severity:    req.Severity,
			Timestamp:   now,
			Description: req.Description,
			ImageURL:    req.ImageURL,
		},
		AffectedPopulation: req.AffectedPopulation,
	}

	var credScore *float64
	if req.Principal != nil {
		report.Source = models.SourceUserReportAuth
		report.UserID = req.Principal.UserID
		profile, err := s.credibility.Profile(ctx, req.Principal.UserID)
		if err != nil {
			return nil, err
		}
		score := profile.CredibilityScore
		credScore = &score
		report.UserCredibilityAtSubmission = &score
	}

	// Latency budget: only nearby user reports corroborate at submit time.
	neighbors, err := s.nearbyUserReports(ctx, req.Latitude, req.Longitude, neighborRadiusMi, 0)
	if err != nil {
		logging.Warn().Err(err).Msg("neighbor lookup failed, scoring without corroboration")
		neighbors = nil
	}

	s.scorer.ScoreUserReport(report, confidence.UserScoreOptions{
		CredibilityScore: credScore,
		RecaptchaScore:   req.RecaptchaScore,
		UserDistanceMi:   req.UserDistanceMi,
		Neighbors:        eventsOf(neighbors),
	})

	if ai.Eligible(report) && s.analyzer.Configured() {
		report.AIAnalysisStatus = models.AIStatusPending
	} else {
		report.AIAnalysisStatus = models.AIStatusNotApplicable
	}

	result := &SubmitResult{Report: report}

	if req.Principal != nil {
		sctx := s.submissionContext(ctx, req.Principal.UserID, req.Latitude, req.Longitude)
		delta, profile, cerr := s.credibility.ApplySubmission(ctx, req.Principal.UserID, report.ConfidenceScore, sctx)
		if cerr != nil {
			// Credibility must not fail the submission.
			logging.Warn().Err(cerr).Str("user_id", req.Principal.UserID).Msg("submission credibility update failed")
		} else {
			report.SubmissionDelta = &delta
			result.CredibilityUpdate = &CredibilityUpdate{
				Delta:    delta,
				NewScore: profile.CredibilityScore,
				NewLevel: profile.CredibilityLevel,
			}
			if rerr := s.credibility.RecordSubmission(ctx, req.Principal.UserID, report.ConfidenceScore); rerr != nil {
				logging.Warn().Err(rerr).Msg("submission counter update failed")
			}
		}
	}

	ops := []store.Op{{Path: store.ReportPath(report.ID), Value: report}}
	if report.UserID != "" {
		ops = append(ops, store.Op{
			Path:  store.UserReportTrackPath(report.UserID, report.ID),
			Value: map[string]any{"timestamp": now},
		})
	}
	if err := s.store.Batch(ctx, ops); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	if report.AIAnalysisStatus == models.AIStatusPending && s.publisher != nil {
		msg := message.NewMessage(uuid.NewString(), []byte(report.ID))
		if perr := s.publisher.Publish(EnhanceTopic, msg); perr != nil {
			logging.Warn().Err(perr).Str("report_id", report.ID).Msg("enhance enqueue failed")
		}
	} else {
		// No enhancement will run for this report, but its creation is new
		// corroborating evidence for its neighbors; rescore them now.
		s.retroactiveRescore(ctx, report)
	}

	metrics.ReportsSubmitted.WithLabelValues(strconv.FormatBool(req.Principal != nil)).Inc()
	metrics.ReportConfidence.Observe(report.ConfidenceScore)

	logging.Info().
		Str("report_id", report.ID).
		Str("type", string(report.Type)).
		Float64("confidence", report.ConfidenceScore).
		Str("ai_status", string(report.AIAnalysisStatus)).
		Msg("report submitted")
	return result, nil
}

// Get loads one report with its time decay injected.
func (s *Service) Get(ctx context.Context, id string) (*models.UserReport, error) {
	var report models.UserReport
	err := s.store.Get(ctx, store.ReportPath(id), &report)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	decay := s.decay.Compute(report.Timestamp)
	report.TimeDecay = &decay
	return &report, nil
}

// List returns all reports, optionally bounded by age. maxAgeHours <= 0
// means no bound. Each report carries its time decay.
func (s *Service) List(ctx context.Context, maxAgeHours float64) ([]models.UserReport, error) {
	if maxAgeHours > maxAgeHoursCeiling {
		return nil, fmt.Errorf("%w: max_age_hours %v exceeds %v", models.ErrInvalid, maxAgeHours, maxAgeHoursCeiling)
	}
	now := s.clock.Now()
	var out []models.UserReport
	err := s.store.List(ctx, store.ReportPrefix(), func(path string, value []byte) error {
		var report models.UserReport
		if uerr := json.Unmarshal(value, &report); uerr != nil {
			logging.Warn().Err(uerr).Str("path", path).Msg("skipping undecodable report")
			return nil
		}
		if maxAgeHours > 0 && now.Sub(report.Timestamp).Hours() > maxAgeHours {
			return nil
		}
		decay := s.decay.Compute(report.Timestamp)
		report.TimeDecay = &decay
		out = append(out, report)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// UpdateRequest carries the mutable report fields.
type UpdateRequest struct {
	Description *string
	Severity    *models.Severity
	Principal   models.Principal
}

// Update mutates a report under the ownership rule and rescores it.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*models.UserReport, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.CanBeMutatedBy(req.Principal.UserID, req.Principal.IsAdmin) {
		return nil, ErrForbidden
	}

	if req.Description != nil {
		report.Description = *req.Description
	}
	if req.Severity != nil {
		report.Severity = *req.Severity
	}
	now := s.clock.Now().UTC()
	report.UpdatedAt = &now
	report.UpdatedByAdmin = req.Principal.IsAdmin && report.UserID != req.Principal.UserID

	neighbors, nerr := s.nearbyUserReports(ctx, report.Latitude, report.Longitude, neighborRadiusMi, 0)
	if nerr != nil {
		neighbors = nil
	}
	s.rescoreHeuristic(report, eventsOf(neighbors))

	if err := s.store.Set(ctx, store.ReportPath(id), report); err != nil {
		return nil, fmt.Errorf("persist update: %w", err)
	}
	return report, nil
}

// Delete removes a report under the ownership rule, inverting the
// submitter's credibility delta. Legacy reports without an owner are
// deletable by anyone; that path is logged.
func (s *Service) Delete(ctx context.Context, id string, principal models.Principal) error {
	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !report.CanBeDeletedBy(principal.UserID, principal.IsAdmin) {
		return ErrForbidden
	}
	if !report.Owned() {
		logging.Warn().Str("report_id", id).Str("requester", principal.UserID).Msg("legacy report deleted without ownership check")
	}

	ops := []store.Op{{Path: store.ReportPath(id), Delete: true}}
	if report.UserID != "" {
		ops = append(ops, store.Op{Path: store.UserReportTrackPath(report.UserID, id), Delete: true})
	}
	if err := s.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}

	if report.UserID != "" && report.SubmissionDelta != nil {
		if cerr := s.credibility.ApplyDeletion(ctx, report.UserID, *report.SubmissionDelta); cerr != nil {
			// Never fail the deletion on a credibility error.
			logging.Warn().Err(cerr).Str("user_id", report.UserID).Msg("credibility inversion failed")
		}
	}

	logging.Info().Str("report_id", id).Str("requester", principal.UserID).Msg("report deleted")
	return nil
}

// BulkDeleteResult summarizes an admin stale-report purge.
type BulkDeleteResult struct {
	DeletedCount int      `json:"deleted_count"`
	DeletedIDs   []string `json:"deleted_ids"`
	Failed       []string `json:"failed_ids,omitempty"`
}

// BulkDeleteStale removes every user report older than maxAgeHours. The
// operation is audited before and after; partial failures are reported
// per-item rather than aborting.
func (s *Service) BulkDeleteStale(ctx context.Context, maxAgeHours float64, actor models.Principal) (*BulkDeleteResult, error) {
	if maxAgeHours < 0 || maxAgeHours > maxAgeHoursCeiling {
		return nil, fmt.Errorf("%w: max_age_hours must be in [0, %v]", models.ErrInvalid, maxAgeHoursCeiling)
	}

	opID := s.audit.Begin(ctx, "bulk_delete_stale", actor.UserID, map[string]any{
		"max_age_hours": maxAgeHours,
	})

	cutoff := s.clock.Now().Add(-time.Duration(maxAgeHours * float64(time.Hour)))
	var stale []models.UserReport
	err := s.store.List(ctx, store.ReportPrefix(), func(_ string, value []byte) error {
		var report models.UserReport
		if uerr := json.Unmarshal(value, &report); uerr != nil {
			return nil
		}
		if report.Timestamp.Before(cutoff) {
			stale = append(stale, report)
		}
		return nil
	})
	if err != nil {
		s.audit.Finish(ctx, opID, audit.StatusFailed, map[string]any{"error": err.Error()})
		return nil, err
	}

	result := &BulkDeleteResult{DeletedIDs: []string{}}
	for _, report := range stale {
		ops := []store.Op{{Path: store.ReportPath(report.ID), Delete: true}}
		if report.UserID != "" {
			ops = append(ops, store.Op{Path: store.UserReportTrackPath(report.UserID, report.ID), Delete: true})
		}
		if derr := s.store.Batch(ctx, ops); derr != nil {
			logging.Error().Err(derr).Str("report_id", report.ID).Msg("bulk delete item failed")
			result.Failed = append(result.Failed, report.ID)
			continue
		}
		result.DeletedIDs = append(result.DeletedIDs, report.ID)
	}
	result.DeletedCount = len(result.DeletedIDs)

	status := audit.StatusCompleted
	if len(result.Failed) > 0 {
		status = audit.StatusPartial
	}
	s.audit.Finish(ctx, opID, status, map[string]any{
		"deleted_count": result.DeletedCount,
		"failed_count":  len(result.Failed),
	})
	return result, nil
}

// nearbyUserReports lists user reports within radiusMi of the point, bbox
// prefiltered. A zero limit means unbounded.
func (s *Service) nearbyUserReports(ctx context.Context, lat, lon, radiusMi float64, limit int) ([]models.UserReport, error) {
	box := geo.BoxAround(lat, lon, radiusMi)
	type candidate struct {
		report models.UserReport
		dist   float64
	}
	var candidates []candidate
	err := s.store.List(ctx, store.ReportPrefix(), func(_ string, value []byte) error {
		var report models.UserReport
		if uerr := json.Unmarshal(value, &report); uerr != nil {
			return nil
		}
		if !box.Contains(report.Latitude, report.Longitude) {
			return nil
		}
		dist := geo.HaversineMiles(lat, lon, report.Latitude, report.Longitude)
		if dist > radiusMi {
			return nil
		}
		candidates = append(candidates, candidate{report: report, dist: dist})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]models.UserReport, len(candidates))
	for i, c := range candidates {
		out[i] = c.report
	}
	return out, nil
}

// submissionContext gathers the submitter's recent reports for spam and
// clustering checks.
func (s *Service) submissionContext(ctx context.Context, userID string, lat, lon float64) credibility.SubmissionContext {
	sctx := credibility.SubmissionContext{Latitude: lat, Longitude: lon}
	err := s.store.List(ctx, store.UserReportTrackPrefix(userID), func(path string, _ []byte) error {
		id := path[len(store.UserReportTrackPrefix(userID)):]
		var report models.UserReport
		if gerr := s.store.Get(ctx, store.ReportPath(id), &report); gerr != nil {
			return nil
		}
		sctx.RecentReports = append(sctx.RecentReports, report)
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("submission context scan failed")
	}
	sort.Slice(sctx.RecentReports, func(i, j int) bool {
		return sctx.RecentReports[i].Timestamp.After(sctx.RecentReports[j].Timestamp)
	})
	return sctx
}

// rescoreHeuristic recomputes the heuristic confidence preserving any AI
// blend the report already carries.
func (s *Service) rescoreHeuristic(report *models.UserReport, neighbors []models.DisasterEvent) {
	var aiScore *float64
	var aiReasoning, aiProvider string
	if report.ConfidenceBreakdown != nil && report.ConfidenceBreakdown.AIScore != nil {
		aiScore = report.ConfidenceBreakdown.AIScore
		aiReasoning = report.ConfidenceBreakdown.AIReasoning
		aiProvider = report.ConfidenceBreakdown.AIProvider
	}

	s.scorer.ScoreUserReport(report, confidence.UserScoreOptions{
		CredibilityScore: report.UserCredibilityAtSubmission,
		Neighbors:        neighbors,
	})

	if aiScore != nil {
		blended := confidence.BlendAI(report.ConfidenceScore, *aiScore)
		report.ConfidenceScore = blended
		report.ConfidenceLevel = models.ConfidenceLevelForScore(blended)
		report.ConfidenceBreakdown.AIScore = aiScore
		report.ConfidenceBreakdown.AIReasoning = aiReasoning
		report.ConfidenceBreakdown.AIProvider = aiProvider
	}
}

func eventsOf(reports []models.UserReport) []models.DisasterEvent {
	events := make([]models.DisasterEvent, len(reports))
	for i := range reports {
		events[i] = reports[i].DisasterEvent
	}
	return events
}
