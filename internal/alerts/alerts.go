// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package alerts scans for disasters near a user and materializes
// notifications.
//
// A scan never depends on the caller being authenticated; notification
// persistence does. Alert severity escalates with proximity: the same
// high-severity event is critical at 5 miles and merely informational at
// 40. Quiet hours suppress notification materialization, never scan
// responses.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/feeds"
	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/metrics"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// historyLimit caps the notification history response.
const historyLimit = 200

// ErrNotFound is returned for unknown notification IDs.
var ErrNotFound = errors.New("alerts: notification not found")

// Service runs proximity scans and manages notifications and preferences.
type Service struct {
	store *store.Store
	feeds *feeds.Manager
	clock clockwork.Clock
}

// New creates the alert service. A nil clock uses the real clock.
func New(st *store.Store, feedMgr *feeds.Manager, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: st, feeds: feedMgr, clock: clock}
}

// ScanRequest is one proximity query.
type ScanRequest struct {
	Latitude  float64
	Longitude float64
	// RadiusMi defaults to the user's preference (or the global default)
	// when zero.
	RadiusMi float64
	// UserID is empty for anonymous scans; set, it applies the user's
	// preferences and materializes notifications.
	UserID string
}

// ScanResult is the proximity scan response.
type ScanResult struct {
	Alerts            []models.ProximityAlert `json:"alerts"`
	Count             int                     `json:"count"`
	HighestSeverity   models.Severity         `json:"highest_severity,omitempty"`
	ClosestDistanceMi *float64                `json:"closest_distance_mi,omitempty"`
}

// Scan finds disasters near the point, applies the user's type and severity
// filters, escalates severity by distance, and sorts by distance. For
// authenticated users, previously-unseen high and critical alerts become
// notifications unless quiet hours suppress them.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", models.ErrInvalid)
	}
	metrics.AlertScans.Inc()

	prefs := models.DefaultAlertPreferences()
	if req.UserID != "" {
		p, err := s.Preferences(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		prefs = *p
	}
	if !prefs.Enabled && req.UserID != "" {
		return &ScanResult{Alerts: []models.ProximityAlert{}}, nil
	}

	radius := req.RadiusMi
	if radius == 0 {
		radius = prefs.RadiusMi
	}
	if radius < models.MinAlertRadiusMi || radius > models.MaxAlertRadiusMi {
		return nil, fmt.Errorf("%w: radius_mi must be in [%v, %v]", models.ErrInvalid, models.MinAlertRadiusMi, models.MaxAlertRadiusMi)
	}

	typeFilter := make(map[models.DisasterType]bool, len(prefs.DisasterTypes))
	for _, t := range prefs.DisasterTypes {
		typeFilter[t] = true
	}
	severityFilter := make(map[models.Severity]bool, len(prefs.SeverityFilter))
	for _, sv := range prefs.SeverityFilter {
		severityFilter[sv] = true
	}

	box := geo.BoxAround(req.Latitude, req.Longitude, radius)
	var alerts []models.ProximityAlert
	for _, ev := range s.candidateEvents(ctx) {
		if !box.Contains(ev.Latitude, ev.Longitude) {
			continue
		}
		if len(typeFilter) > 0 && !typeFilter[ev.Type] && ev.Type != models.TypeWeatherAlert {
			continue
		}
		dist := geo.HaversineMiles(req.Latitude, req.Longitude, ev.Latitude, ev.Longitude)
		if dist > radius {
			continue
		}
		alertSev := EscalateSeverity(ev.Severity, dist)
		if len(severityFilter) > 0 && !severityFilter[alertSev] {
			continue
		}
		alerts = append(alerts, models.ProximityAlert{
			DisasterID:    ev.ID,
			DisasterType:  ev.Type,
			Severity:      ev.Severity,
			AlertSeverity: alertSev,
			DistanceMi:    round1(dist),
			Latitude:      ev.Latitude,
			Longitude:     ev.Longitude,
			Source:        ev.Source,
			LocationName:  ev.LocationName,
			Timestamp:     ev.Timestamp,
		})
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].DistanceMi < alerts[j].DistanceMi })

	result := &ScanResult{Alerts: alerts, Count: len(alerts)}
	for _, a := range alerts {
		if result.HighestSeverity == "" || a.AlertSeverity.Rank() > result.HighestSeverity.Rank() {
			result.HighestSeverity = a.AlertSeverity
		}
	}
	if len(alerts) > 0 {
		d := alerts[0].DistanceMi
		result.ClosestDistanceMi = &d
	}

	if req.UserID != "" {
		s.materialize(ctx, req.UserID, prefs, alerts)
	}
	return result, nil
}

// candidateEvents merges active feed events and user reports.
func (s *Service) candidateEvents(ctx context.Context) []models.DisasterEvent {
	var events []models.DisasterEvent
	if s.feeds != nil {
		events = s.feeds.AllActive(ctx, 1)
	}
	err := s.store.List(ctx, store.ReportPrefix(), func(_ string, value []byte) error {
		var report models.UserReport
		if uerr := json.Unmarshal(value, &report); uerr != nil {
			return nil
		}
		events = append(events, report.DisasterEvent)
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Msg("alert scan report listing failed")
	}
	return events
}

// EscalateSeverity maps an event's own severity and its distance to the
// alert severity shown to the user.
func EscalateSeverity(severity models.Severity, distanceMi float64) models.Severity {
	rank := severity.Rank()
	switch {
	case rank >= models.SeverityHigh.Rank() && distanceMi <= 5:
		return models.SeverityCritical
	case rank >= models.SeverityHigh.Rank() && distanceMi <= 15:
		return models.SeverityHigh
	case rank >= models.SeverityMedium.Rank() && distanceMi <= 30:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// materialize persists previously-unseen high/critical alerts as
// notifications, unless quiet hours are active. Best-effort.
func (s *Service) materialize(ctx context.Context, userID string, prefs models.AlertPreferences, alerts []models.ProximityAlert) {
	if InQuietHours(prefs.QuietHours, s.clock.Now().UTC()) {
		return
	}
	now := s.clock.Now().UTC()
	for _, a := range alerts {
		if a.AlertSeverity.Rank() < models.SeverityHigh.Rank() {
			continue
		}
		if s.alreadyNotified(ctx, userID, a.DisasterID) {
			continue
		}
		n := models.Notification{
			ID:            uuid.NewString(),
			DisasterID:    a.DisasterID,
			DisasterType:  a.DisasterType,
			Severity:      a.Severity,
			AlertSeverity: a.AlertSeverity,
			DistanceMi:    a.DistanceMi,
			Latitude:      a.Latitude,
			Longitude:     a.Longitude,
			Source:        a.Source,
			Timestamp:     now,
			ExpiresAt:     now.Add(models.NotificationTTL),
		}
		path := store.NotificationPath(userID, n.ID)
		if err := s.store.SetWithTTL(ctx, path, n, models.NotificationTTL); err != nil {
			logging.Warn().Err(err).Str("user_id", userID).Msg("notification write failed")
			continue
		}
		metrics.NotificationsMaterialized.Inc()
	}
}

// alreadyNotified reports whether an unexpired notification for this
// disaster exists.
func (s *Service) alreadyNotified(ctx context.Context, userID, disasterID string) bool {
	seen := false
	err := s.store.List(ctx, store.NotificationPrefix(userID), func(_ string, value []byte) error {
		var n models.Notification
		if uerr := json.Unmarshal(value, &n); uerr != nil {
			return nil
		}
		if n.DisasterID == disasterID {
			seen = true
		}
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Msg("notification dedup scan failed")
	}
	return seen
}

// InQuietHours reports whether t falls inside the user's quiet window.
// Both bounds are inclusive. Start > End wraps midnight (22:00-07:00
// covers late evening and early morning).
func InQuietHours(q models.QuietHours, t time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, serr := parseHHMM(q.Start)
	end, eerr := parseHHMM(q.End)
	if serr != nil || eerr != nil {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	if start <= end {
		return minutes >= start && minutes <= end
	}
	return minutes >= start || minutes <= end
}

func parseHHMM(s string) (int, error) {
	ts, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return ts.Hour()*60 + ts.Minute(), nil
}

// Notifications returns the user's unexpired notifications, newest first,
// capped at 200.
func (s *Service) Notifications(ctx context.Context, userID string) ([]models.Notification, error) {
	now := s.clock.Now()
	var out []models.Notification
	err := s.store.List(ctx, store.NotificationPrefix(userID), func(_ string, value []byte) error {
		var n models.Notification
		if uerr := json.Unmarshal(value, &n); uerr != nil {
			return nil
		}
		if n.ExpiresAt.Before(now) {
			return nil
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > historyLimit {
		out = out[:historyLimit]
	}
	return out, nil
}

// Acknowledge marks a notification acknowledged. Idempotent: repeat calls
// keep the first acknowledgement time.
func (s *Service) Acknowledge(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	path := store.NotificationPath(userID, notificationID)
	var n models.Notification
	err := s.store.Get(ctx, path, &n)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if n.Acknowledged {
		return &n, nil
	}
	now := s.clock.Now().UTC()
	n.Acknowledged = true
	n.AcknowledgedAt = &now
	ttl := time.Until(n.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.store.SetWithTTL(ctx, path, n, ttl); err != nil {
		return nil, err
	}
	return &n, nil
}

// Preferences loads the user's alert preferences, falling back to defaults.
func (s *Service) Preferences(ctx context.Context, userID string) (*models.AlertPreferences, error) {
	var prefs models.AlertPreferences
	err := s.store.Get(ctx, store.AlertPreferencesPath(userID), &prefs)
	if errors.Is(err, store.ErrNotFound) {
		prefs = models.DefaultAlertPreferences()
		return &prefs, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// SavePreferences validates and persists the user's alert preferences.
func (s *Service) SavePreferences(ctx context.Context, userID string, prefs models.AlertPreferences) error {
	if prefs.RadiusMi < models.MinAlertRadiusMi || prefs.RadiusMi > models.MaxAlertRadiusMi {
		return fmt.Errorf("%w: radius_mi must be in [%v, %v]", models.ErrInvalid, models.MinAlertRadiusMi, models.MaxAlertRadiusMi)
	}
	if prefs.QuietHours.Enabled {
		if _, err := parseHHMM(prefs.QuietHours.Start); err != nil {
			return fmt.Errorf("%w: quiet_hours.start: %v", models.ErrInvalid, err)
		}
		if _, err := parseHHMM(prefs.QuietHours.End); err != nil {
			return fmt.Errorf("%w: quiet_hours.end: %v", models.ErrInvalid, err)
		}
	}
	return s.store.Set(ctx, store.AlertPreferencesPath(userID), prefs)
}

// MapSettings loads the user's map settings, falling back to defaults.
func (s *Service) MapSettings(ctx context.Context, userID string) (*models.MapSettings, error) {
	var settings models.MapSettings
	err := s.store.Get(ctx, store.MapSettingsPath(userID), &settings)
	if errors.Is(err, store.ErrNotFound) {
		settings = models.DefaultMapSettings()
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveMapSettings validates and persists the user's map settings.
func (s *Service) SaveMapSettings(ctx context.Context, userID string, settings models.MapSettings) error {
	if settings.ZoomRadiusMi < models.MinZoomRadiusMi || settings.ZoomRadiusMi > models.MaxZoomRadiusMi {
		return fmt.Errorf("%w: zoom_radius_mi must be in [%v, %v]", models.ErrInvalid, models.MinZoomRadiusMi, models.MaxZoomRadiusMi)
	}
	return s.store.Set(ctx, store.MapSettingsPath(userID), settings)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
