// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/myr0nl/EvacuationHub-sub000/internal/ai"
	"github.com/myr0nl/EvacuationHub-sub000/internal/confidence"
	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// enhanceTimeout bounds one enhancement run end to end.
const enhanceTimeout = 30 * time.Second

// Enhance runs the deferred phase for one report: geocode, full-corpus
// corroboration, AI blend, credibility delta-of-delta, retroactive rescore.
// It is idempotent at terminal states: completed returns the report
// unchanged, failed returns ErrQuota, not_applicable returns
// ErrNotApplicable, and a concurrent run returns ErrProcessing.
func (s *Service) Enhance(ctx context.Context, id string) (*models.UserReport, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch report.AIAnalysisStatus {
	case models.AIStatusCompleted:
		return report, nil
	case models.AIStatusFailed:
		return report, ErrQuota
	case models.AIStatusNotApplicable:
		return report, ErrNotApplicable
	case models.AIStatusProcessing:
		return report, ErrProcessing
	}

	report.AIAnalysisStatus = models.AIStatusProcessing
	if err := s.store.Set(ctx, store.ReportPath(id), report); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	if report.LocationName == "" && s.geocoder != nil {
		report.LocationName = s.geocoder.ReverseGeocode(ctx, report.Latitude, report.Longitude)
	}

	// Full 50-mile neighborhood: every cached feed plus user reports.
	neighbors := s.fullNeighborhood(ctx, report.Latitude, report.Longitude)
	s.rescoreHeuristic(report, neighbors)
	heuristic := report.ConfidenceScore

	assessment, aerr := s.analyzer.Analyze(ctx, ai.Input{
		Report:                report,
		LocationName:          report.LocationName,
		OfficialNearbyCount:   countOfficial(neighbors, report.Type),
		NearestOfficialMi:     nearestOfficialMi(report, neighbors),
		UserReportNearbyCount: countUserReports(neighbors, report.Type),
	})
	switch {
	case aerr == nil:
		blended := confidence.BlendAI(heuristic, assessment.Score)
		report.ConfidenceScore = blended
		report.ConfidenceLevel = models.ConfidenceLevelForScore(blended)
		if report.ConfidenceBreakdown == nil {
			report.ConfidenceBreakdown = &models.ConfidenceBreakdown{Path: "user_report"}
		}
		report.ConfidenceBreakdown.AIScore = &assessment.Score
		report.ConfidenceBreakdown.AIReasoning = assessment.Reasoning
		report.ConfidenceBreakdown.AIProvider = assessment.Provider
		report.AIAnalysisStatus = models.AIStatusCompleted
	case errors.Is(aerr, ai.ErrQuotaExhausted):
		report.AIAnalysisStatus = models.AIStatusFailed
		report.AIFailureReason = "hourly quota exhausted"
	default:
		// Provider failure: keep the (rescored) heuristic.
		report.AIAnalysisStatus = models.AIStatusFailed
		report.AIFailureReason = aerr.Error()
		logging.Warn().Err(aerr).Str("report_id", id).Msg("ai analysis failed, keeping heuristic score")
	}

	// Net the submitter's credibility to the final confidence.
	if report.UserID != "" && report.SubmissionDelta != nil && report.AIAnalysisStatus == models.AIStatusCompleted {
		sctx := s.submissionContext(ctx, report.UserID, report.Latitude, report.Longitude)
		diff, cerr := s.credibility.ApplyEnhanceDelta(ctx, report.UserID, *report.SubmissionDelta, report.ConfidenceScore, sctx)
		if cerr != nil {
			logging.Warn().Err(cerr).Str("user_id", report.UserID).Msg("enhance credibility update failed")
		} else if diff != 0 {
			total := *report.SubmissionDelta + diff
			report.SubmissionDelta = &total
		}
	}

	if err := s.store.Set(ctx, store.ReportPath(id), report); err != nil {
		return nil, fmt.Errorf("persist enhanced report: %w", err)
	}

	s.retroactiveRescore(ctx, report)

	if errors.Is(aerr, ai.ErrQuotaExhausted) {
		return report, ErrQuota
	}
	logging.Info().
		Str("report_id", id).
		Str("ai_status", string(report.AIAnalysisStatus)).
		Float64("confidence", report.ConfidenceScore).
		Msg("report enhanced")
	return report, nil
}

// retroactiveRescore refreshes the confidence of the 20 nearest user
// reports within 50 miles now that a new corroborating event exists. All
// writes go in one batch; failures are logged and never propagate.
func (s *Service) retroactiveRescore(ctx context.Context, trigger *models.UserReport) {
	nearby, err := s.nearbyUserReports(ctx, trigger.Latitude, trigger.Longitude, neighborRadiusMi, rescoreMaxReports+1)
	if err != nil {
		logging.Warn().Err(err).Msg("retroactive rescore scan failed")
		return
	}

	neighborhood := s.fullNeighborhood(ctx, trigger.Latitude, trigger.Longitude)

	var ops []store.Op
	rescored := 0
	for i := range nearby {
		r := &nearby[i]
		if r.ID == trigger.ID {
			continue
		}
		if rescored >= rescoreMaxReports {
			break
		}
		before := r.ConfidenceScore
		s.rescoreHeuristic(r, neighborhood)
		if r.ConfidenceScore == before {
			continue
		}
		ops = append(ops, store.Op{Path: store.ReportPath(r.ID), Value: r})
		rescored++
	}

	if len(ops) == 0 {
		return
	}
	if err := s.store.Batch(ctx, ops); err != nil {
		logging.Warn().Err(err).Int("count", len(ops)).Msg("retroactive rescore write failed")
		return
	}
	logging.Info().Int("count", len(ops)).Str("trigger", trigger.ID).Msg("neighbors rescored")
}

// fullNeighborhood merges cached feed events and user reports within the
// corroboration radius of the point.
func (s *Service) fullNeighborhood(ctx context.Context, lat, lon float64) []models.DisasterEvent {
	box := geo.BoxAround(lat, lon, neighborRadiusMi)
	var events []models.DisasterEvent

	if s.feeds != nil {
		for _, ev := range s.feeds.AllActive(ctx, 1) {
			if box.Contains(ev.Latitude, ev.Longitude) &&
				geo.HaversineMiles(lat, lon, ev.Latitude, ev.Longitude) <= neighborRadiusMi {
				events = append(events, ev)
			}
		}
	}

	reports, err := s.nearbyUserReports(ctx, lat, lon, neighborRadiusMi, 0)
	if err != nil {
		logging.Warn().Err(err).Msg("neighborhood report scan failed")
	} else {
		events = append(events, eventsOf(reports)...)
	}
	return events
}

func countOfficial(events []models.DisasterEvent, t models.DisasterType) int {
	n := 0
	for _, ev := range events {
		if ev.Source.IsOfficial() && ev.Type == t {
			n++
		}
	}
	return n
}

func countUserReports(events []models.DisasterEvent, t models.DisasterType) int {
	n := 0
	for _, ev := range events {
		if ev.Source.IsUserReport() && ev.Type == t {
			n++
		}
	}
	return n
}

func nearestOfficialMi(report *models.UserReport, events []models.DisasterEvent) *float64 {
	var nearest *float64
	for _, ev := range events {
		if !ev.Source.IsOfficial() || ev.Type != report.Type {
			continue
		}
		d := geo.HaversineMiles(report.Latitude, report.Longitude, ev.Latitude, ev.Longitude)
		if nearest == nil || d < *nearest {
			nearest = &d
		}
	}
	return nearest
}

// Worker consumes queued submissions and enhances them. It implements
// suture.Service.
type Worker struct {
	service    *Service
	subscriber message.Subscriber
}

// NewWorker creates the enhance worker.
func NewWorker(service *Service, subscriber message.Subscriber) *Worker {
	return &Worker{service: service, subscriber: subscriber}
}

// Serve consumes the enhance topic until the context is canceled.
func (w *Worker) Serve(ctx context.Context) error {
	messages, err := w.subscriber.Subscribe(ctx, EnhanceTopic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", EnhanceTopic, err)
	}
	logging.Info().Str("topic", EnhanceTopic).Msg("enhance worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			reportID := string(msg.Payload)
			runCtx, cancel := context.WithTimeout(ctx, enhanceTimeout)
			_, eerr := w.service.Enhance(runCtx, reportID)
			cancel()
			if eerr != nil && !errors.Is(eerr, ErrQuota) && !errors.Is(eerr, ErrNotApplicable) {
				logging.Warn().Err(eerr).Str("report_id", reportID).Msg("queued enhancement failed")
			}
			// Terminal either way; requeueing would repeat a terminal state.
			msg.Ack()
		}
	}
}

func (w *Worker) String() string { return "reports.enhance-worker" }
