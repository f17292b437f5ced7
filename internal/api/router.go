// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package api wires the HTTP surface: route registration, per-route rate
// limits, auth enforcement, and the JSON error envelope.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/myr0nl/EvacuationHub-sub000/internal/alerts"
	"github.com/myr0nl/EvacuationHub-sub000/internal/auth"
	"github.com/myr0nl/EvacuationHub-sub000/internal/config"
	"github.com/myr0nl/EvacuationHub-sub000/internal/feeds"
	"github.com/myr0nl/EvacuationHub-sub000/internal/middleware"
	"github.com/myr0nl/EvacuationHub-sub000/internal/reports"
	"github.com/myr0nl/EvacuationHub-sub000/internal/routing"
	"github.com/myr0nl/EvacuationHub-sub000/internal/safezones"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// Deps carries the constructed services the handlers delegate to. Routing
// and Zones may be nil when their providers are not configured; the
// corresponding endpoints then answer 503.
type Deps struct {
	Config  *config.Config
	Store   *store.Store
	Feeds   *feeds.Manager
	Reports *reports.Service
	Alerts  *alerts.Service
	Zones   *safezones.Service
	Routing *routing.Service
	Auth    *auth.Service
}

type server struct {
	deps Deps
}

// New builds the router with the full middleware stack and every route
// registered.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}
	cfg := deps.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.Server.IsProduction(), cfg.Server.CORSOrigins()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.MaxBytes(cfg.Server.MaxRequestBytes))

	optional := auth.Optional(deps.Auth)
	required := auth.Required(deps.Auth)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/health/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.With(limit(3, time.Hour), limit(10, 24*time.Hour)).
			Post("/register", s.handleRegister)
		r.With(limit(5, 15*time.Minute), limit(20, 24*time.Hour)).
			Post("/login", s.handleLogin)
		r.With(optional).Post("/logout", s.handleLogout)
		r.With(required).Get("/profile", s.handleGetProfile)
		r.With(required).Put("/profile", s.handleUpdateProfile)
	})

	r.Route("/api/reports", func(r chi.Router) {
		r.With(optional).Get("/", s.handleListReports)
		r.With(optional, limit(20, time.Hour), limit(100, 24*time.Hour)).
			Post("/", s.handleSubmitReport)
		r.With(required, auth.Admin, limit(5, time.Hour)).
			Post("/bulk/delete-stale", s.handleBulkDeleteStale)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetReport)
			r.With(optional).Put("/", s.handleUpdateReport)
			r.With(optional).Delete("/", s.handleDeleteReport)
			r.With(optional, limit(100, time.Hour)).
				Post("/enhance-ai", s.handleEnhanceReport)
		})
	})

	r.Route("/api/cache", func(r chi.Router) {
		r.Get("/status", s.handleCacheStatus)
		r.With(required, auth.Admin).Post("/clear", s.handleCacheClear)
		r.With(required, auth.Admin).Post("/refresh", s.handleCacheRefresh)
	})

	r.Route("/api/public-data", func(r chi.Router) {
		r.Get("/wildfires", s.handlePublicFeed(feeds.FeedWildfires))
		r.Get("/weather-alerts", s.handlePublicFeed(feeds.FeedWeatherAlerts))
		r.Get("/all", s.handlePublicAll)
	})

	r.Route("/api/alerts", func(r chi.Router) {
		r.With(optional, limit(600, time.Hour)).Get("/proximity", s.handleProximity)
		r.With(required, limit(100, time.Hour)).Get("/preferences", s.handleGetAlertPrefs)
		r.With(required, limit(20, time.Hour)).Put("/preferences", s.handlePutAlertPrefs)
		r.With(required, limit(100, time.Hour)).Get("/history", s.handleAlertHistory)
		r.With(required, limit(100, time.Hour)).
			Post("/{alert_id}/acknowledge", s.handleAcknowledge)
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.With(required, limit(100, time.Hour)).Get("/map", s.handleGetMapSettings)
		r.With(required, limit(20, time.Hour)).Put("/map", s.handlePutMapSettings)
	})

	r.Route("/api/safezones", func(r chi.Router) {
		r.Get("/nearest", s.handleNearestZones)
		r.Get("/{zone_id}/safety", s.handleZoneSafety)
		r.With(required, auth.Admin).Put("/{zone_id}", s.handleUpsertZone)
		r.With(required, auth.Admin).Delete("/{zone_id}", s.handleDeleteZone)
	})

	r.With(limit(60, time.Hour)).Post("/api/routes", s.handleCalculateRoutes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "unknown endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	})

	return r
}

// limit builds an IP-keyed rate limiter for one route. Stacked calls give
// dual-window limits (burst and daily).
func limit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limited", "too many requests, slow down")
		}),
	)
}
