// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/evacuationhub/config.yaml",
	"/etc/evacuationhub/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			Environment:     EnvDevelopment,
			MaxRequestBytes: 10 << 20, // 10 MiB
		},
		Store: StoreConfig{
			Dir:        "/data/evacuationhub",
			GCInterval: 10 * time.Minute,
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
		Feeds: FeedsConfig{
			UserAgent:         "EvacuationHub/1.0 (disaster intelligence service)",
			FetchTimeout:      20 * time.Second,
			RefreshInterval:   time.Minute,
			RequestsPerSecond: 1,
		},
		AI: AIConfig{
			OpenAIModel:    "gpt-4o-mini",
			GeminiModel:    "gemini-1.5-flash",
			HourlyQuota:    50,
			RequestTimeout: 15 * time.Second,
			EnhanceTimeout: 30 * time.Second,
		},
		Routing: RoutingConfig{
			RequestTimeout: 30 * time.Second,
		},
		Geocode: GeocodeConfig{
			BaseURL:        "https://nominatim.openstreetmap.org",
			RequestTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: optional config file.
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority).
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// sourced from environment variables.
var sliceConfigPaths = []string{
	"security.admin_user_ids",
}

// processSliceFields converts comma-separated env strings to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envAliases maps recognized flat environment variable names to koanf
// config paths. FLASK_ENV is accepted as a legacy alias for APP_ENV so
// deployments migrating from the previous stack keep working.
var envAliases = map[string]string{
	"APP_ENV":             "server.environment",
	"FLASK_ENV":           "server.environment",
	"FRONTEND_URL":        "server.frontend_url",
	"DEV_MOBILE_URL":      "server.dev_mobile_url",
	"HTTP_HOST":           "server.host",
	"HTTP_PORT":           "server.port",
	"STORE_DIR":           "store.dir",
	"JWT_SECRET":          "security.jwt_secret",
	"ADMIN_USER_IDS":      "security.admin_user_ids",
	"FIRMS_API_KEY":       "feeds.firms_api_key",
	"OPENAI_API_KEY":      "ai.openai_api_key",
	"GEMINI_API_KEY":      "ai.gemini_api_key",
	"AI_HOURLY_QUOTA":     "ai.hourly_quota",
	"ORS_API_KEY":         "routing.ors_api_key",
	"HERE_API_KEY":        "routing.here_api_key",
	"GOOGLE_MAPS_API_KEY": "routing.google_maps_api_key",
	"REDIS_URL":           "redis.url",
	"LOG_LEVEL":           "logging.level",
	"LOG_FORMAT":          "logging.format",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Recognized flat names use the alias table; EVACHUB_-prefixed names map
// positionally (EVACHUB_SERVER_PORT -> server.port). Everything else is
// dropped so unrelated environment noise cannot perturb the config.
func envTransformFunc(key string) string {
	if path, ok := envAliases[key]; ok {
		return path
	}
	if strings.HasPrefix(key, "EVACHUB_") {
		trimmed := strings.TrimPrefix(key, "EVACHUB_")
		parts := strings.SplitN(strings.ToLower(trimmed), "_", 2)
		if len(parts) == 2 {
			return parts[0] + "." + parts[1]
		}
		return strings.ToLower(trimmed)
	}
	return "" // ignore unrecognized variables
}
