// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"errors"
	"net/http"

	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// handleHealth is the liveness probe: the process is up and serving.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady is the readiness probe: the store answers reads.
func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Store.Get(r.Context(), "health/probe", &struct{}{})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusServiceUnavailable, "not ready", "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
