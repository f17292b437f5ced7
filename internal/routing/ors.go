// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package routing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

const defaultORSURL = "https://api.openrouteservice.org"

// ORS error codes that mean the coordinates could not be snapped to the
// road network.
var orsRoutableCodes = map[int]bool{
	2010: true, // could not find routable point
	2099: true, // unknown internal point error
}

// ORSClient calls the OpenRouteService directions API.
type ORSClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewORSClient creates the client. An empty baseURL uses the public API.
func NewORSClient(baseURL, apiKey string, client *http.Client) *ORSClient {
	if baseURL == "" {
		baseURL = defaultORSURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ORSClient{baseURL: baseURL, apiKey: apiKey, client: client}
}

// Name implements DirectionsProvider.
func (c *ORSClient) Name() models.RouteProvider { return models.ProviderORS }

type orsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
	Options     *orsOptions `json:"options,omitempty"`
	Alternative *orsAlts    `json:"alternative_routes,omitempty"`
}

type orsOptions struct {
	AvoidPolygons *orsMultiPolygon `json:"avoid_polygons,omitempty"`
}

type orsMultiPolygon struct {
	Type        string          `json:"type"`
	Coordinates [][][][]float64 `json:"coordinates"`
}

type orsAlts struct {
	TargetCount  int     `json:"target_count"`
	ShareFactor  float64 `json:"share_factor"`
	WeightFactor float64 `json:"weight_factor"`
}

type orsResponse struct {
	Features []struct {
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"` // meters
				Duration float64 `json:"duration"` // seconds
			} `json:"summary"`
			Segments []struct {
				Steps []struct {
					Instruction string  `json:"instruction"`
					Distance    float64 `json:"distance"`
				} `json:"steps"`
			} `json:"segments"`
		} `json:"properties"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Directions implements DirectionsProvider. ORS rejects alternative routes
// combined with avoidance polygons, so alternatives are dropped whenever
// polygons are present.
func (c *ORSClient) Directions(ctx context.Context, q Query) ([]models.Route, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	body := orsRequest{
		Coordinates: [][]float64{
			{q.OriginLon, q.OriginLat},
			{q.DestLon, q.DestLat},
		},
	}
	if len(q.AvoidPolygons) > 0 {
		body.Options = &orsOptions{AvoidPolygons: &orsMultiPolygon{
			Type:        "MultiPolygon",
			Coordinates: q.AvoidPolygons,
		}}
	} else if q.Alternatives > 1 {
		body.Alternative = &orsAlts{
			TargetCount:  q.Alternatives,
			ShareFactor:  0.6,
			WeightFactor: 1.4,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode directions request: %w", err)
	}

	url := c.baseURL + "/v2/directions/driving-car/geojson"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed orsResponse
	if uerr := json.Unmarshal(raw, &parsed); uerr != nil {
		return nil, fmt.Errorf("parse directions response (%d): %w", resp.StatusCode, uerr)
	}
	if parsed.Error != nil {
		if orsRoutableCodes[parsed.Error.Code] {
			return nil, fmt.Errorf("%w: %s", ErrRoutablePoint, parsed.Error.Message)
		}
		return nil, fmt.Errorf("directions error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("directions returned %d", resp.StatusCode)
	}

	routes := make([]models.Route, 0, len(parsed.Features))
	for i, f := range parsed.Features {
		route := models.Route{
			RouteID:         fmt.Sprintf("ors-%d", i),
			DistanceMi:      f.Properties.Summary.Distance * geo.MilesPerMeter,
			DurationSeconds: f.Properties.Summary.Duration,
			Geometry:        f.Geometry.Coordinates,
			Provider:        models.ProviderORS,
		}
		for _, seg := range f.Properties.Segments {
			for _, step := range seg.Steps {
				route.Waypoints = append(route.Waypoints, models.RouteWaypoint{
					Instruction: step.Instruction,
					DistanceMi:  step.Distance * geo.MilesPerMeter,
				})
			}
		}
		routes = append(routes, route)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("directions returned no routes")
	}
	return routes, nil
}
