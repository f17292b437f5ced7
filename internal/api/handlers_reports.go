// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/myr0nl/EvacuationHub-sub000/internal/auth"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/reports"
	"github.com/myr0nl/EvacuationHub-sub000/internal/validation"
)

// maxAgeHoursCeiling bounds the max_age_hours query parameter (one year).
const maxAgeHoursCeiling = 8760

type submitReportBody struct {
	Type               models.DisasterType `json:"type" validate:"required"`
	Latitude           float64             `json:"latitude" validate:"latitude_deg"`
	Longitude          float64             `json:"longitude" validate:"longitude_deg"`
	Severity           models.Severity     `json:"severity" validate:"required,oneof=low medium high critical"`
	Description        string              `json:"description" validate:"max=2000"`
	ImageURL           string              `json:"image_url" validate:"omitempty,url"`
	AffectedPopulation *int                `json:"affected_population" validate:"omitempty,min=0"`
	RecaptchaScore     *float64            `json:"recaptcha_score" validate:"omitempty,min=0,max=1"`
	UserDistanceMi     *float64            `json:"user_distance_mi" validate:"omitempty,min=0"`
}

type reportListResponse struct {
	Reports []models.UserReport `json:"reports"`
	Count   int                 `json:"count"`
}

func (s *server) handleListReports(w http.ResponseWriter, r *http.Request) {
	maxAge, err := queryFloat(r, "max_age_hours", 24)
	if err != nil || maxAge < 0 || maxAge > maxAgeHoursCeiling {
		writeError(w, http.StatusBadRequest, "bad request", "max_age_hours must be a number in [0, 8760]")
		return
	}
	list, err := s.deps.Reports.List(r.Context(), maxAge)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportListResponse{Reports: list, Count: len(list)})
}

func (s *server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var body submitReportBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	if err := validation.ValidateStruct(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	result, err := s.deps.Reports.Submit(r.Context(), reports.SubmitRequest{
		Type:               body.Type,
		Latitude:           body.Latitude,
		Longitude:          body.Longitude,
		Severity:           body.Severity,
		Description:        body.Description,
		ImageURL:           body.ImageURL,
		AffectedPopulation: body.AffectedPopulation,
		Principal:          auth.PrincipalFrom(r.Context()),
		RecaptchaScore:     body.RecaptchaScore,
		UserDistanceMi:     body.UserDistanceMi,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description *string          `json:"description"`
		Severity    *models.Severity `json:"severity"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	report, err := s.deps.Reports.Update(r.Context(), chi.URLParam(r, "id"), reports.UpdateRequest{
		Description: body.Description,
		Severity:    body.Severity,
		Principal:   principalOrAnonymous(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Reports.Delete(r.Context(), chi.URLParam(r, "id"), principalOrAnonymous(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *server) handleEnhanceReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Reports.Enhance(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, reports.ErrProcessing) {
		// Enhancement is already running; the current report state comes
		// back with 202 rather than an error.
		writeJSON(w, http.StatusAccepted, report)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleBulkDeleteStale answers 200 on full success, 207 on partial
// failure, and 500 when nothing could be deleted despite candidates.
func (s *server) handleBulkDeleteStale(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MaxAgeHours float64 `json:"max_age_hours"`
	}
	if err := decodeBody(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	if body.MaxAgeHours == 0 {
		body.MaxAgeHours = 48
	}
	result, err := s.deps.Reports.BulkDeleteStale(r.Context(), body.MaxAgeHours, principalOrAnonymous(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	switch {
	case len(result.Failed) > 0 && result.DeletedCount == 0:
		status = http.StatusInternalServerError
	case len(result.Failed) > 0:
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

// principalOrAnonymous dereferences the context principal, zero when
// absent. Service-layer ownership rules treat the zero principal as an
// anonymous caller.
func principalOrAnonymous(r *http.Request) models.Principal {
	if p := auth.PrincipalFrom(r.Context()); p != nil {
		return *p
	}
	return models.Principal{}
}
