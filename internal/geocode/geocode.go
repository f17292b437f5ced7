// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package geocode resolves coordinates to place names through a
// Nominatim-compatible reverse geocoding endpoint. Lookups are best-effort
// decoration: failures return an empty name, never an error the caller has
// to handle beyond logging.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
)

// nominatimBaseURL is the public Nominatim endpoint; deployments may point
// at their own mirror via config.
const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// Client is a rate-limited, breaker-guarded reverse geocoder. Nominatim's
// usage policy caps anonymous clients at one request per second.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[string]
}

// New creates a geocoding client. An empty baseURL uses the public
// Nominatim instance.
func New(client *http.Client, baseURL, userAgent string) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = nominatimBaseURL
	}
	return &Client{
		http:      client,
		baseURL:   baseURL,
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:    "geocode",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// nominatimResponse mirrors the subset of the reverse endpoint we read.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// ReverseGeocode returns a short place name for the coordinates, or "" when
// the lookup fails or the breaker is open.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) string {
	name, err := c.breaker.Execute(func() (string, error) {
		return c.lookup(ctx, lat, lon)
	})
	if err != nil {
		logging.Debug().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("reverse geocode failed")
		return ""
	}
	return name
}

func (c *Client) lookup(ctx context.Context, lat, lon float64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%f&lon=%f&zoom=10", c.baseURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nominatim returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var nr nominatimResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return shortName(nr), nil
}

// shortName prefers "locality, state" over the full display name, which
// runs to a dozen comma-separated components.
func shortName(nr nominatimResponse) string {
	locality := nr.Address.City
	if locality == "" {
		locality = nr.Address.Town
	}
	if locality == "" {
		locality = nr.Address.Village
	}
	if locality == "" {
		locality = nr.Address.County
	}
	switch {
	case locality != "" && nr.Address.State != "":
		return locality + ", " + nr.Address.State
	case locality != "":
		return locality
	default:
		return nr.DisplayName
	}
}
