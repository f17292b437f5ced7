// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"net/http"

	"github.com/myr0nl/EvacuationHub-sub000/internal/routing"
	"github.com/myr0nl/EvacuationHub-sub000/internal/validation"
)

type routeRequestBody struct {
	OriginLat    float64 `json:"origin_lat" validate:"latitude_deg"`
	OriginLon    float64 `json:"origin_lon" validate:"longitude_deg"`
	DestLat      float64 `json:"dest_lat" validate:"latitude_deg"`
	DestLon      float64 `json:"dest_lon" validate:"longitude_deg"`
	Alternatives int     `json:"alternatives" validate:"min=0,max=3"`
	// AvoidDisasters defaults to true; clients opt out explicitly.
	AvoidDisasters *bool `json:"avoid_disasters"`
}

func (s *server) handleCalculateRoutes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Routing == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "no routing provider configured")
		return
	}
	var body routeRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	if err := validation.ValidateStruct(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	avoid := true
	if body.AvoidDisasters != nil {
		avoid = *body.AvoidDisasters
	}
	result, err := s.deps.Routing.Calculate(r.Context(), routing.Request{
		OriginLat:      body.OriginLat,
		OriginLon:      body.OriginLon,
		DestLat:        body.DestLat,
		DestLon:        body.DestLon,
		Alternatives:   body.Alternatives,
		AvoidDisasters: avoid,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
