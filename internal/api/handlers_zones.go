// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/safezones"
)

func (s *server) handleNearestZones(w http.ResponseWriter, r *http.Request) {
	if s.deps.Zones == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "safe zone lookups are not configured")
		return
	}
	lat, latErr := queryFloat(r, "lat", 0)
	lon, lonErr := queryFloat(r, "lon", 0)
	if latErr != nil || lonErr != nil || r.URL.Query().Get("lat") == "" || r.URL.Query().Get("lon") == "" {
		writeError(w, http.StatusBadRequest, "bad request", "lat and lon query parameters are required")
		return
	}
	limit, limErr := queryInt(r, "limit", 0)
	maxDist, distErr := queryFloat(r, "max_distance_mi", 0)
	if limErr != nil || distErr != nil {
		writeError(w, http.StatusBadRequest, "bad request", "limit and max_distance_mi must be numbers")
		return
	}

	var types []models.SafeZoneType
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, models.SafeZoneType(t))
			}
		}
	}

	zones, err := s.deps.Zones.GetNearest(r.Context(), safezones.NearestRequest{
		Latitude:        lat,
		Longitude:       lon,
		Limit:           limit,
		MaxDistanceMi:   maxDist,
		Types:           types,
		IncludeExternal: r.URL.Query().Get("include_external") != "false",
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": zones, "count": len(zones)})
}

// handleZoneSafety evaluates one zone against currently active disasters
// plus recent user reports.
func (s *server) handleZoneSafety(w http.ResponseWriter, r *http.Request) {
	if s.deps.Zones == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "safe zone lookups are not configured")
		return
	}
	threatRadius, err := queryFloat(r, "threat_radius_mi", 0)
	if err != nil || threatRadius < 0 {
		writeError(w, http.StatusBadRequest, "bad request", "threat_radius_mi must be a non-negative number")
		return
	}

	disasters := s.deps.Feeds.AllActive(r.Context(), defaultWindowDays)
	if userReports, rerr := s.deps.Reports.List(r.Context(), 48); rerr == nil {
		for _, report := range userReports {
			disasters = append(disasters, report.DisasterEvent)
		}
	}

	result, err := s.deps.Zones.IsZoneSafe(r.Context(), chi.URLParam(r, "zone_id"), disasters, threatRadius)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleUpsertZone(w http.ResponseWriter, r *http.Request) {
	if s.deps.Zones == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "safe zone lookups are not configured")
		return
	}
	var zone models.SafeZone
	if err := decodeBody(r, &zone); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	zone.ID = chi.URLParam(r, "zone_id")
	if err := s.deps.Zones.Upsert(r.Context(), zone); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

func (s *server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	if s.deps.Zones == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "safe zone lookups are not configured")
		return
	}
	if err := s.deps.Zones.Delete(r.Context(), chi.URLParam(r, "zone_id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
