// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package config holds all application configuration, loaded via Koanf v2
// with layered sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml)
//  3. Environment variables
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the root configuration record.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Security SecurityConfig `koanf:"security"`
	Feeds    FeedsConfig    `koanf:"feeds"`
	AI       AIConfig       `koanf:"ai"`
	Routing  RoutingConfig  `koanf:"routing"`
	Geocode  GeocodeConfig  `koanf:"geocode"`
	Redis    RedisConfig    `koanf:"redis"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
	// Environment is development or production.
	Environment string `koanf:"environment"`
	// FrontendURL is the single allowed CORS origin in production.
	FrontendURL string `koanf:"frontend_url"`
	// DevMobileURL is an optional extra CORS origin in development.
	DevMobileURL string `koanf:"dev_mobile_url"`
	// MaxRequestBytes caps request bodies (default 10 MiB).
	MaxRequestBytes int64 `koanf:"max_request_bytes"`
}

// IsProduction reports whether the server runs in production mode.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// CORSOrigins returns the allowed origins for the current environment.
func (c ServerConfig) CORSOrigins() []string {
	if c.IsProduction() {
		return []string{c.FrontendURL}
	}
	origins := []string{"http://localhost:3000", "http://localhost:3001"}
	if c.DevMobileURL != "" {
		origins = append(origins, c.DevMobileURL)
	}
	return origins
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	// Dir is the BadgerDB directory; empty means in-memory (tests only).
	Dir string `koanf:"dir"`
	// GCInterval is how often value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs and verifies identity tokens (HS256).
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTL bounds issued token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`
	// AdminUserIDs lists user IDs granted admin regardless of claims.
	AdminUserIDs []string `koanf:"admin_user_ids"`
}

// FeedsConfig holds upstream feed settings.
type FeedsConfig struct {
	// FIRMSAPIKey authenticates against the NASA FIRMS area API.
	FIRMSAPIKey string `koanf:"firms_api_key"`
	// UserAgent identifies us to upstreams that require one (NOAA).
	UserAgent string `koanf:"user_agent"`
	// FetchTimeout bounds a single upstream fetch.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	// RefreshInterval is the background refresher tick.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	// RequestsPerSecond throttles upstream fetches per adapter.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// AIConfig holds AI enhancement settings.
type AIConfig struct {
	OpenAIAPIKey string `koanf:"openai_api_key"`
	GeminiAPIKey string `koanf:"gemini_api_key"`
	OpenAIModel  string `koanf:"openai_model"`
	GeminiModel  string `koanf:"gemini_model"`
	// HourlyQuota caps AI requests per clock hour, process-wide.
	HourlyQuota int `koanf:"hourly_quota"`
	// RequestTimeout bounds a single provider call.
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// EnhanceTimeout bounds the whole enhance pipeline.
	EnhanceTimeout time.Duration `koanf:"enhance_timeout"`
}

// Configured reports whether at least one provider key is present.
func (c AIConfig) Configured() bool {
	return c.OpenAIAPIKey != "" || c.GeminiAPIKey != ""
}

// RoutingConfig holds routing provider settings.
type RoutingConfig struct {
	// ORSAPIKey is required to initialize the route service.
	ORSAPIKey string `koanf:"ors_api_key"`
	// HEREAPIKey enables the fallback provider.
	HEREAPIKey string `koanf:"here_api_key"`
	// GoogleMapsAPIKey enables the shortest-path baseline provider.
	GoogleMapsAPIKey string        `koanf:"google_maps_api_key"`
	RequestTimeout   time.Duration `koanf:"request_timeout"`
}

// Enabled reports whether the route service can be initialized.
func (c RoutingConfig) Enabled() bool {
	return c.ORSAPIKey != ""
}

// GeocodeConfig holds reverse-geocoder settings.
type GeocodeConfig struct {
	BaseURL        string        `koanf:"base_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// RedisConfig holds optional Redis settings for distributed counters.
type RedisConfig struct {
	// URL enables Redis-backed rate/quota counters when set.
	URL string `koanf:"url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field requirements. Called by Load.
func (c *Config) Validate() error {
	if c.Server.Environment != EnvDevelopment && c.Server.Environment != EnvProduction {
		return fmt.Errorf("server.environment must be %q or %q, got %q",
			EnvDevelopment, EnvProduction, c.Server.Environment)
	}
	if c.Server.IsProduction() && c.Server.FrontendURL == "" {
		return fmt.Errorf("FRONTEND_URL is required in production")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	if c.AI.HourlyQuota < 0 {
		return fmt.Errorf("ai.hourly_quota must be non-negative")
	}
	return nil
}
