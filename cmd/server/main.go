// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Command server runs the EvacuationHub API: feed aggregation, user
// reports with confidence scoring, proximity alerts, safe zones, and
// disaster-aware routing behind one HTTP surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/ai"
	"github.com/myr0nl/EvacuationHub-sub000/internal/alerts"
	"github.com/myr0nl/EvacuationHub-sub000/internal/api"
	"github.com/myr0nl/EvacuationHub-sub000/internal/audit"
	"github.com/myr0nl/EvacuationHub-sub000/internal/auth"
	"github.com/myr0nl/EvacuationHub-sub000/internal/config"
	"github.com/myr0nl/EvacuationHub-sub000/internal/confidence"
	"github.com/myr0nl/EvacuationHub-sub000/internal/credibility"
	"github.com/myr0nl/EvacuationHub-sub000/internal/feeds"
	"github.com/myr0nl/EvacuationHub-sub000/internal/geocode"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/reports"
	"github.com/myr0nl/EvacuationHub-sub000/internal/routing"
	"github.com/myr0nl/EvacuationHub-sub000/internal/safezones"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
	"github.com/myr0nl/EvacuationHub-sub000/internal/supervisor"
	"github.com/myr0nl/EvacuationHub-sub000/internal/timedecay"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	clock := clockwork.NewRealClock()
	scorer := confidence.New(clock)
	feedMgr := feeds.NewManager(st, clock, buildAdapters(cfg, scorer)...)

	cred := credibility.New(st, clock)
	decay := timedecay.New(clock)
	auditLog := audit.New(st, clock)

	analyzer, err := buildAnalyzer(ctx, cfg, st, clock)
	if err != nil {
		return fmt.Errorf("init ai: %w", err)
	}

	geocoder := geocode.New(
		&http.Client{Timeout: cfg.Geocode.RequestTimeout},
		cfg.Geocode.BaseURL,
		cfg.Feeds.UserAgent,
	)

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	reportSvc := reports.New(st, scorer, cred, decay, feedMgr, analyzer, geocoder, auditLog, pubsub, clock)
	alertSvc := alerts.New(st, feedMgr, clock)

	shelters := safezones.NewShelterClient("", nil, cfg.Feeds.UserAgent)
	zoneSvc := safezones.New(st, shelters, clock)

	routeSvc := buildRouting(cfg, st, feedMgr, clock)
	authSvc := auth.New(st, cfg.Security.JWTSecret, cfg.Security.TokenTTL, cfg.Security.AdminUserIDs, clock)

	handler := api.New(api.Deps{
		Config:  cfg,
		Store:   st,
		Feeds:   feedMgr,
		Reports: reportSvc,
		Alerts:  alertSvc,
		Zones:   zoneSvc,
		Routing: routeSvc,
		Auth:    authSvc,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(nil, supervisor.DefaultTreeConfig())
	tree.AddAPIService(supervisor.NewHTTPService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))
	tree.AddBackgroundService(supervisor.NewFeedRefreshService(feedMgr, cfg.Feeds.RefreshInterval))
	tree.AddBackgroundService(supervisor.NewStoreGCService(st, cfg.Store.GCInterval))
	tree.AddBackgroundService(reports.NewWorker(reportSvc, pubsub))

	logging.Info().
		Str("addr", server.Addr).
		Str("environment", cfg.Server.Environment).
		Msg("starting server")

	err = tree.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	logging.Info().Msg("shutdown complete")
	return nil
}

// buildAdapters constructs every configured feed adapter. FIRMS needs an
// API key; the other upstreams are open.
func buildAdapters(cfg *config.Config, scorer feeds.ConfidenceScorer) []feeds.FeedAdapter {
	client := &http.Client{Timeout: cfg.Feeds.FetchTimeout}
	ua := cfg.Feeds.UserAgent
	rps := cfg.Feeds.RequestsPerSecond

	adapters := []feeds.FeedAdapter{
		feeds.NewNOAAAdapter(client, scorer, ua, rps),
		feeds.NewUSGSAdapter(client, scorer, ua, rps),
		feeds.NewGDACSAdapter(client, scorer, ua, rps),
		feeds.NewFEMAAdapter(client, scorer, ua, rps),
		feeds.NewCalFireAdapter(client, scorer, ua, rps),
		feeds.NewCalOESAdapter(client, scorer, ua, rps),
	}
	if cfg.Feeds.FIRMSAPIKey != "" {
		adapters = append(adapters, feeds.NewFIRMSAdapter(client, scorer, cfg.Feeds.FIRMSAPIKey, ua, rps))
	} else {
		logging.Warn().Msg("FIRMS_API_KEY not set; wildfire hotspot feed disabled")
	}
	return adapters
}

// buildAnalyzer wires the AI provider chain and quota gate, or returns nil
// when no provider key is configured.
func buildAnalyzer(ctx context.Context, cfg *config.Config, st *store.Store, clock clockwork.Clock) (*ai.Analyzer, error) {
	if !cfg.AI.Configured() {
		logging.Info().Msg("no AI provider configured; enhancement runs without analysis")
		return nil, nil
	}

	var primary, fallback ai.Provider
	if cfg.AI.OpenAIAPIKey != "" {
		p, err := ai.NewOpenAIProvider(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		primary = p
	}
	if cfg.AI.GeminiAPIKey != "" {
		p, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		if primary == nil {
			primary = p
		} else {
			fallback = p
		}
	}

	var counter ai.Counter
	if cfg.Redis.URL != "" {
		rc, err := ai.NewRedisCounter(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("redis counter: %w", err)
		}
		counter = rc
	} else {
		counter = ai.NewStoreCounter(st, clock)
	}

	quota := ai.NewQuota(counter, clock, int64(cfg.AI.HourlyQuota))
	return ai.NewAnalyzer(ai.NewChain(primary, fallback), quota, st), nil
}

// buildRouting wires the provider chain, or returns nil when the primary
// provider has no key. The route endpoints then answer 503.
func buildRouting(cfg *config.Config, st *store.Store, feedMgr *feeds.Manager, clock clockwork.Clock) *routing.Service {
	if !cfg.Routing.Enabled() {
		logging.Info().Msg("ORS_API_KEY not set; routing disabled")
		return nil
	}
	client := &http.Client{Timeout: cfg.Routing.RequestTimeout}
	primary := routing.NewORSClient("", cfg.Routing.ORSAPIKey, client)

	var fallback, baseline routing.DirectionsProvider
	if cfg.Routing.HEREAPIKey != "" {
		fallback = routing.NewHEREClient("", cfg.Routing.HEREAPIKey, client)
	}
	if cfg.Routing.GoogleMapsAPIKey != "" {
		baseline = routing.NewGoogleClient("", cfg.Routing.GoogleMapsAPIKey, client)
	}
	return routing.New(st, feedMgr, primary, fallback, baseline, clock)
}
