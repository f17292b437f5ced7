// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/reports"
)

func TestWriteServiceErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation failure", fmt.Errorf("%w: radius_mi must be in [1, 100]", models.ErrInvalid), http.StatusBadRequest},
		{"wrapped validation failure", fmt.Errorf("save preferences: %w", models.ErrInvalid), http.StatusBadRequest},
		{"not found", reports.ErrNotFound, http.StatusNotFound},
		{"forbidden", reports.ErrForbidden, http.StatusForbidden},
		{"unclassified internal fault", errors.New("value log read failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var body errorBody
			decodeResponse(t, rec, &body)
			if body.Error == "" {
				t.Error("response missing error envelope")
			}
			// Internal faults must not leak their detail to the client.
			if tt.want == http.StatusInternalServerError && body.Message != "" {
				t.Errorf("internal error leaked detail %q", body.Message)
			}
		})
	}
}
