// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"net/http"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// publicDataMaxAge is the client cache window on public feed responses.
const publicDataMaxAge = "public, max-age=300"

// defaultWindowDays is the fetch window feed refreshes use when the
// request does not narrow it.
const defaultWindowDays = 1

type feedResponse struct {
	Feed   string                 `json:"feed"`
	Events []models.DisasterEvent `json:"events"`
	Count  int                    `json:"count"`
}

func (s *server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Feeds.Status(r.Context()))
}

// handleCacheClear drops one feed's cache, or every feed when no feed
// parameter is given.
func (s *server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	feed := r.URL.Query().Get("feed")
	targets := s.deps.Feeds.FeedTypes()
	if feed != "" {
		if !s.deps.Feeds.Known(feed) {
			writeError(w, http.StatusBadRequest, "bad request", "unknown feed: "+feed)
			return
		}
		targets = []string{feed}
	}
	for _, ft := range targets {
		if err := s.deps.Feeds.Clear(r.Context(), ft); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "feeds": targets})
}

// handleCacheRefresh forces a refetch of one feed, or all feeds when no
// feed parameter is given.
func (s *server) handleCacheRefresh(w http.ResponseWriter, r *http.Request) {
	window, err := queryInt(r, "window_days", defaultWindowDays)
	if err != nil || window < 1 {
		writeError(w, http.StatusBadRequest, "bad request", "window_days must be a positive integer")
		return
	}
	feed := r.URL.Query().Get("feed")
	if feed != "" {
		if !s.deps.Feeds.Known(feed) {
			writeError(w, http.StatusBadRequest, "bad request", "unknown feed: "+feed)
			return
		}
		if err := s.deps.Feeds.Clear(r.Context(), feed); err != nil {
			writeServiceError(w, err)
			return
		}
		events, err := s.deps.Feeds.Refresh(r.Context(), feed, window)
		if err != nil {
			writeError(w, http.StatusBadGateway, "upstream error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, feedResponse{Feed: feed, Events: events, Count: len(events)})
		return
	}
	for _, ft := range s.deps.Feeds.FeedTypes() {
		if err := s.deps.Feeds.Clear(r.Context(), ft); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	results := s.deps.Feeds.RefreshAll(r.Context(), window)
	counts := make(map[string]int, len(results))
	for ft, events := range results {
		counts[ft] = len(events)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "refreshed", "counts": counts})
}

// handlePublicFeed serves one cached feed with a short client cache
// window; a stale cache is refreshed inline.
func (s *server) handlePublicFeed(feedType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := s.deps.Feeds.Refresh(r.Context(), feedType, defaultWindowDays)
		if err != nil {
			writeError(w, http.StatusBadGateway, "upstream error", err.Error())
			return
		}
		w.Header().Set("Cache-Control", publicDataMaxAge)
		writeJSON(w, http.StatusOK, feedResponse{Feed: feedType, Events: events, Count: len(events)})
	}
}

// handlePublicAll merges every active feed event into one response.
func (s *server) handlePublicAll(w http.ResponseWriter, r *http.Request) {
	events := s.deps.Feeds.AllActive(r.Context(), defaultWindowDays)
	w.Header().Set("Cache-Control", publicDataMaxAge)
	writeJSON(w, http.StatusOK, feedResponse{Feed: "all", Events: events, Count: len(events)})
}
