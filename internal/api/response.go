// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/ai"
	"github.com/myr0nl/EvacuationHub-sub000/internal/alerts"
	"github.com/myr0nl/EvacuationHub-sub000/internal/auth"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/reports"
	"github.com/myr0nl/EvacuationHub-sub000/internal/routing"
	"github.com/myr0nl/EvacuationHub-sub000/internal/safezones"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// errorBody is the error envelope on every non-2xx response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON serializes v with the given status. Serialization failures
// turn into a 500 because headers are not yet written.
func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("response serialization failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// writeError emits the error envelope.
func writeError(w http.ResponseWriter, status int, short, detail string) {
	writeJSON(w, status, errorBody{Error: short, Message: detail})
}

// writeServiceError maps service-layer errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrNotFound),
		errors.Is(err, alerts.ErrNotFound),
		errors.Is(err, safezones.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", "")
	case errors.Is(err, reports.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "you do not own this report")
	case errors.Is(err, reports.ErrQuota), errors.Is(err, ai.ErrQuotaExhausted):
		w.Header().Set("Retry-After", strconv.Itoa(3600))
		writeError(w, http.StatusTooManyRequests, "quota exhausted", "hourly AI quota exhausted")
	case errors.Is(err, reports.ErrNotApplicable):
		writeError(w, http.StatusConflict, "not applicable", "report is not eligible for AI analysis")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials", "")
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email taken", "an account with this email already exists")
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrRevokedToken):
		writeError(w, http.StatusUnauthorized, "invalid token", "")
	case errors.Is(err, routing.ErrNoProviders),
		errors.Is(err, routing.ErrNotConfigured),
		errors.Is(err, auth.ErrNotConfigured),
		errors.Is(err, ai.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "service unavailable", err.Error())
	case errors.Is(err, models.ErrInvalid):
		writeError(w, http.StatusBadRequest, "bad request", err.Error())
	default:
		// Unclassified errors are internal faults; the detail stays in the
		// log, not the response.
		logging.Error().Err(err).Msg("unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// queryFloat parses an optional float query parameter.
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
