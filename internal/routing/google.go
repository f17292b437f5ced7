// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package routing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

const defaultGoogleURL = "https://maps.googleapis.com/maps/api/directions/json"

// GoogleClient requests the shortest baseline route from the Google
// Directions API. It never sends avoidance polygons; the baseline exists
// to show what the unavoided route looks like and how it scores.
type GoogleClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGoogleClient creates the client. An empty baseURL uses the public API.
func NewGoogleClient(baseURL, apiKey string, client *http.Client) *GoogleClient {
	if baseURL == "" {
		baseURL = defaultGoogleURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleClient{baseURL: baseURL, apiKey: apiKey, client: client}
}

// Name implements DirectionsProvider.
func (c *GoogleClient) Name() models.RouteProvider { return models.ProviderGoogle }

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"` // seconds
			} `json:"duration"`
			Steps []struct {
				HTMLInstructions string `json:"html_instructions"`
				Distance         struct {
					Value float64 `json:"value"`
				} `json:"distance"`
				StartLocation struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"start_location"`
			} `json:"steps"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

// Directions implements DirectionsProvider. Avoidance polygons in the
// query are ignored.
func (c *GoogleClient) Directions(ctx context.Context, q Query) ([]models.Route, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{
		"origin":       {fmt.Sprintf("%f,%f", q.OriginLat, q.OriginLon)},
		"destination":  {fmt.Sprintf("%f,%f", q.DestLat, q.DestLon)},
		"mode":         {"driving"},
		"alternatives": {"false"},
		"key":          {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("baseline provider returned %d", resp.StatusCode)
	}

	var parsed googleResponse
	if uerr := json.Unmarshal(raw, &parsed); uerr != nil {
		return nil, fmt.Errorf("parse baseline response: %w", uerr)
	}
	switch parsed.Status {
	case "OK":
	case "NOT_FOUND", "ZERO_RESULTS":
		return nil, fmt.Errorf("%w: %s", ErrRoutablePoint, parsed.Status)
	default:
		return nil, fmt.Errorf("baseline provider status %s: %s", parsed.Status, parsed.ErrorMessage)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("baseline provider returned no routes")
	}

	r := parsed.Routes[0]
	route := models.Route{
		RouteID:    "google-0",
		Provider:   models.ProviderGoogle,
		IsShortest: true,
		IsBaseline: true,
	}
	for _, leg := range r.Legs {
		route.DistanceMi += leg.Distance.Value * geo.MilesPerMeter
		route.DurationSeconds += leg.Duration.Value
		for _, step := range leg.Steps {
			route.Waypoints = append(route.Waypoints, models.RouteWaypoint{
				Instruction: stripHTMLTags(step.HTMLInstructions),
				DistanceMi:  step.Distance.Value * geo.MilesPerMeter,
				Latitude:    step.StartLocation.Lat,
				Longitude:   step.StartLocation.Lng,
			})
		}
	}
	if r.OverviewPolyline.Points != "" {
		coords, derr := decodeGooglePolyline(r.OverviewPolyline.Points)
		if derr != nil {
			return nil, fmt.Errorf("decode overview polyline: %w", derr)
		}
		route.Geometry = coords
	}
	return []models.Route{route}, nil
}
