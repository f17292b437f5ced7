// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/alerts"
	"github.com/myr0nl/EvacuationHub-sub000/internal/audit"
	"github.com/myr0nl/EvacuationHub-sub000/internal/auth"
	"github.com/myr0nl/EvacuationHub-sub000/internal/config"
	"github.com/myr0nl/EvacuationHub-sub000/internal/confidence"
	"github.com/myr0nl/EvacuationHub-sub000/internal/credibility"
	"github.com/myr0nl/EvacuationHub-sub000/internal/feeds"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/reports"
	"github.com/myr0nl/EvacuationHub-sub000/internal/safezones"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
	"github.com/myr0nl/EvacuationHub-sub000/internal/timedecay"
)

type fixture struct {
	handler http.Handler
	auth    *auth.Service
	store   *store.Store
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	feedMgr := feeds.NewManager(st, clock)
	scorer := confidence.New(clock)
	cred := credibility.New(st, clock)
	decay := timedecay.New(clock)
	auditLog := audit.New(st, clock)
	reportSvc := reports.New(st, scorer, cred, decay, feedMgr, nil, nil, auditLog, nil, clock)
	alertSvc := alerts.New(st, feedMgr, clock)
	zoneSvc := safezones.New(st, nil, clock)
	authSvc := auth.New(st, "test-secret", time.Hour, []string{"admin-user"}, clock)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Environment:     config.EnvDevelopment,
			MaxRequestBytes: 1 << 20,
		},
	}

	handler := New(Deps{
		Config:  cfg,
		Store:   st,
		Feeds:   feedMgr,
		Reports: reportSvc,
		Alerts:  alertSvc,
		Zones:   zoneSvc,
		Routing: nil,
		Auth:    authSvc,
	})
	return &fixture{handler: handler, auth: authSvc, store: st, clock: clock}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()
	token, err := f.auth.IssueToken(&models.Principal{UserID: "admin-user", Email: "admin@example.com"})
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	return token
}

func (f *fixture) userToken(t *testing.T) string {
	t.Helper()
	token, err := f.auth.IssueToken(&models.Principal{UserID: "regular-user", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("issue user token: %v", err)
	}
	return token
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
	rec = f.do(t, "GET", "/api/health/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}
}

func TestUnknownEndpointEnvelope(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorBody
	decodeResponse(t, rec, &body)
	if body.Error == "" {
		t.Error("404 response missing error envelope")
	}
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email":        "ada@example.com",
		"password":     "Str0ng!pass",
		"display_name": "Ada",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var session sessionResponse
	decodeResponse(t, rec, &session)
	if session.Token == "" || session.Profile == nil {
		t.Fatal("register response missing token or profile")
	}

	// Profile requires auth.
	rec = f.do(t, "GET", "/api/auth/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated profile status = %d, want 401", rec.Code)
	}
	rec = f.do(t, "GET", "/api/auth/profile", session.Token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("profile status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "Str0ng!pass",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}

	// Duplicate registration conflicts.
	rec = f.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email":    "ada@example.com",
		"password": "Str0ng!pass",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	token := f.userToken(t)

	rec := f.do(t, "POST", "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = f.do(t, "GET", "/api/auth/profile", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", rec.Code)
	}
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	token := f.userToken(t)

	rec := f.do(t, "POST", "/api/reports", token, map[string]any{
		"type":        "wildfire",
		"latitude":    34.05,
		"longitude":   -118.25,
		"severity":    "high",
		"description": "Smoke visible from the ridge",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var submitted reports.SubmitResult
	decodeResponse(t, rec, &submitted)
	if submitted.Report == nil || submitted.Report.ID == "" {
		t.Fatal("submit response missing report")
	}
	id := submitted.Report.ID

	rec = f.do(t, "GET", "/api/reports/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/reports", "", nil)
	var list reportListResponse
	decodeResponse(t, rec, &list)
	if list.Count != 1 {
		t.Errorf("list count = %d, want 1", list.Count)
	}

	// A stranger cannot delete an owned report.
	stranger, err := f.auth.IssueToken(&models.Principal{UserID: "stranger"})
	if err != nil {
		t.Fatal(err)
	}
	rec = f.do(t, "DELETE", "/api/reports/"+id, stranger, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("stranger delete status = %d, want 403", rec.Code)
	}

	rec = f.do(t, "DELETE", "/api/reports/"+id, token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("owner delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, "GET", "/api/reports/"+id, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted get status = %d, want 404", rec.Code)
	}
}

func TestEnhanceAnswers202WhileProcessing(t *testing.T) {
	f := newFixture(t)
	token := f.userToken(t)

	rec := f.do(t, "POST", "/api/reports", token, map[string]any{
		"type":        "wildfire",
		"latitude":    34.05,
		"longitude":   -118.25,
		"severity":    "high",
		"description": "Flames cresting the hill above the reservoir",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var submitted reports.SubmitResult
	decodeResponse(t, rec, &submitted)
	id := submitted.Report.ID

	// A concurrent enhancement run holds the report at processing.
	processing := *submitted.Report
	processing.AIAnalysisStatus = models.AIStatusProcessing
	if err := f.store.Set(context.Background(), store.ReportPath(id), &processing); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	rec = f.do(t, "POST", "/api/reports/"+id+"/enhance-ai", token, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("enhance status = %d, want 202, body %s", rec.Code, rec.Body.String())
	}
	var current models.UserReport
	decodeResponse(t, rec, &current)
	if current.AIAnalysisStatus != models.AIStatusProcessing {
		t.Errorf("ai status = %v, want processing", current.AIAnalysisStatus)
	}
}

func TestListReportsRejectsBadMaxAge(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"max_age_hours=-1", "max_age_hours=9000", "max_age_hours=abc"} {
		rec := f.do(t, "GET", "/api/reports?"+q, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestAdminGates(t *testing.T) {
	f := newFixture(t)

	// No token at all.
	rec := f.do(t, "POST", "/api/cache/clear", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous cache clear status = %d, want 401", rec.Code)
	}

	// Authenticated but not an admin.
	rec = f.do(t, "POST", "/api/cache/clear", f.userToken(t), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin cache clear status = %d, want 403", rec.Code)
	}

	// Admin allowed; no feeds registered means nothing to clear.
	rec = f.do(t, "POST", "/api/cache/clear", f.adminToken(t), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin cache clear status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, "POST", "/api/reports/bulk/delete-stale", f.userToken(t), map[string]any{"max_age_hours": 1})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin bulk delete status = %d, want 403", rec.Code)
	}
	rec = f.do(t, "POST", "/api/reports/bulk/delete-stale", f.adminToken(t), map[string]any{"max_age_hours": 1})
	if rec.Code != http.StatusOK {
		t.Errorf("admin bulk delete status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestProximityValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/alerts/proximity", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing coords status = %d, want 400", rec.Code)
	}

	rec = f.do(t, "GET", "/api/alerts/proximity?lat=34.05&lon=-118.25", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("scan status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result alerts.ScanResult
	decodeResponse(t, rec, &result)
	if result.Count != 0 {
		t.Errorf("empty store scan count = %d, want 0", result.Count)
	}
}

func TestAlertPreferencesRoundTripOverHTTP(t *testing.T) {
	f := newFixture(t)
	token := f.userToken(t)

	rec := f.do(t, "GET", "/api/alerts/preferences", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get prefs status = %d", rec.Code)
	}
	var prefs models.AlertPreferences
	decodeResponse(t, rec, &prefs)
	if !prefs.Enabled {
		t.Error("default preferences should be enabled")
	}

	prefs.RadiusMi = 30
	prefs.QuietHours = models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"}
	rec = f.do(t, "PUT", "/api/alerts/preferences", token, prefs)
	if rec.Code != http.StatusOK {
		t.Fatalf("put prefs status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, "GET", "/api/alerts/preferences", token, nil)
	var saved models.AlertPreferences
	decodeResponse(t, rec, &saved)
	if saved.RadiusMi != 30 || saved.QuietHours.Start != "22:00" {
		t.Errorf("saved prefs = %+v", saved)
	}

	// Out-of-range radius rejected.
	prefs.RadiusMi = 200
	rec = f.do(t, "PUT", "/api/alerts/preferences", token, prefs)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad radius status = %d, want 400", rec.Code)
	}
}

func TestRoutesUnavailableWithoutProviders(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "POST", "/api/routes", "", map[string]any{
		"origin_lat": 34.05, "origin_lon": -118.25,
		"dest_lat": 34.45, "dest_lon": -118.25,
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSafeZoneEndpoints(t *testing.T) {
	f := newFixture(t)
	admin := f.adminToken(t)

	rec := f.do(t, "PUT", "/api/safezones/zone-1", admin, map[string]any{
		"name":     "Evac Center North",
		"type":     "emergency_shelter",
		"location": map[string]float64{"lat": 34.10, "lon": -118.25},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, "GET", "/api/safezones/nearest?lat=34.05&lon=-118.25&include_external=false", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("nearest status = %d, body %s", rec.Code, rec.Body.String())
	}
	var nearest struct {
		Zones []models.SafeZone `json:"zones"`
		Count int               `json:"count"`
	}
	decodeResponse(t, rec, &nearest)
	if nearest.Count != 1 || nearest.Zones[0].ID != "zone-1" {
		t.Errorf("nearest = %+v", nearest)
	}

	rec = f.do(t, "GET", "/api/safezones/zone-1/safety", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("safety status = %d, body %s", rec.Code, rec.Body.String())
	}
	var safety models.ZoneSafetyResult
	decodeResponse(t, rec, &safety)
	if !safety.Safe {
		t.Error("zone with no disasters should be safe")
	}

	rec = f.do(t, "DELETE", "/api/safezones/zone-1", admin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = f.do(t, "GET", "/api/safezones/zone-1/safety", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted zone safety status = %d, want 404", rec.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/api/health", "", nil)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request ID header")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Errorf("CSP = %q", rec.Header().Get("Content-Security-Policy"))
	}
}

func TestRateLimitEnvelope(t *testing.T) {
	f := newFixture(t)
	// Register allows 3 per hour per IP; the fourth is limited.
	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = f.do(t, "POST", "/api/auth/register", "", map[string]string{
			"email":    "ada@example.com",
			"password": "weak",
		})
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("429 missing Retry-After")
	}
	var body errorBody
	decodeResponse(t, last, &body)
	if body.Error == "" {
		t.Error("429 missing error envelope")
	}
}
