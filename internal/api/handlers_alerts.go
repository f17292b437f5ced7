// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/myr0nl/EvacuationHub-sub000/internal/alerts"
	"github.com/myr0nl/EvacuationHub-sub000/internal/auth"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

func (s *server) handleProximity(w http.ResponseWriter, r *http.Request) {
	lat, latErr := queryFloat(r, "lat", 0)
	lon, lonErr := queryFloat(r, "lon", 0)
	if latErr != nil || lonErr != nil || r.URL.Query().Get("lat") == "" || r.URL.Query().Get("lon") == "" {
		writeError(w, http.StatusBadRequest, "bad request", "lat and lon query parameters are required")
		return
	}
	radius, err := queryFloat(r, "radius", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "radius must be a number")
		return
	}

	var userID string
	if p := auth.PrincipalFrom(r.Context()); p != nil {
		userID = p.UserID
	}
	result, err := s.deps.Alerts.Scan(r.Context(), alerts.ScanRequest{
		Latitude:  lat,
		Longitude: lon,
		RadiusMi:  radius,
		UserID:    userID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleGetAlertPrefs(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	prefs, err := s.deps.Alerts.Preferences(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *server) handlePutAlertPrefs(w http.ResponseWriter, r *http.Request) {
	var prefs models.AlertPreferences
	if err := decodeBody(r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	p := auth.PrincipalFrom(r.Context())
	if err := s.deps.Alerts.SavePreferences(r.Context(), p.UserID, prefs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	notifications, err := s.deps.Alerts.Notifications(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (s *server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	notification, err := s.deps.Alerts.Acknowledge(r.Context(), p.UserID, chi.URLParam(r, "alert_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notification)
}

func (s *server) handleGetMapSettings(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	settings, err := s.deps.Alerts.MapSettings(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *server) handlePutMapSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.MapSettings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	p := auth.PrincipalFrom(r.Context())
	if err := s.deps.Alerts.SaveMapSettings(r.Context(), p.UserID, settings); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
