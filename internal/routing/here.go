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
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

const defaultHEREURL = "https://router.hereapi.com/v8/routes"

// maxHEREURILen is the request URL length at which the avoidance areas are
// dropped preemptively; HERE answers 414 beyond roughly 8 KiB.
const maxHEREURILen = 8000

// HEREClient calls the HERE Routing v8 API. It is the fallback provider:
// when the avoidance areas make the request URI too large it retries once
// without them and marks the routes with a warning.
type HEREClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHEREClient creates the client. An empty baseURL uses the public API.
func NewHEREClient(baseURL, apiKey string, client *http.Client) *HEREClient {
	if baseURL == "" {
		baseURL = defaultHEREURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HEREClient{baseURL: baseURL, apiKey: apiKey, client: client}
}

// Name implements DirectionsProvider.
func (c *HEREClient) Name() models.RouteProvider { return models.ProviderHERE }

type hereResponse struct {
	Routes []struct {
		ID       string `json:"id"`
		Sections []struct {
			Summary struct {
				Duration float64 `json:"duration"` // seconds
				Length   float64 `json:"length"`   // meters
			} `json:"summary"`
			Polyline string `json:"polyline"`
			Actions  []struct {
				Instruction string  `json:"instruction"`
				Length      float64 `json:"length"`
			} `json:"actions"`
		} `json:"sections"`
	} `json:"routes"`
	Notices []struct {
		Title string `json:"title"`
		Code  string `json:"code"`
	} `json:"notices"`
}

// Directions implements DirectionsProvider.
func (c *HEREClient) Directions(ctx context.Context, q Query) ([]models.Route, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	routes, err := c.request(ctx, q, true)
	if err == nil || !fallbackEligible(err) || len(q.AvoidPolygons) == 0 {
		return routes, err
	}

	// Too many avoidance areas for a GET request: retry without them and
	// flag every returned route so callers know avoidance was skipped.
	logging.Warn().Err(err).Msg("retrying fallback route without avoidance areas")
	routes, err = c.request(ctx, q, false)
	if err != nil {
		return nil, err
	}
	for i := range routes {
		routes[i].Warning = "disaster avoidance areas omitted: request size limit"
	}
	return routes, nil
}

func (c *HEREClient) request(ctx context.Context, q Query, withAvoid bool) ([]models.Route, error) {
	params := url.Values{
		"transportMode": {"car"},
		"origin":        {fmt.Sprintf("%f,%f", q.OriginLat, q.OriginLon)},
		"destination":   {fmt.Sprintf("%f,%f", q.DestLat, q.DestLon)},
		"return":        {"polyline,summary,actions"},
		"apikey":        {c.apiKey},
	}
	if q.Alternatives > 1 {
		params.Set("alternatives", fmt.Sprintf("%d", q.Alternatives-1))
	}
	if withAvoid && len(q.AvoidPolygons) > 0 {
		params.Set("avoid[areas]", hereAvoidAreas(q.AvoidPolygons))
	}

	fullURL := c.baseURL + "?" + params.Encode()
	if len(fullURL) > maxHEREURILen {
		return nil, fmt.Errorf("%w: %d bytes", ErrURITooLarge, len(fullURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestURITooLong {
		return nil, fmt.Errorf("%w: provider returned 414", ErrURITooLarge)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fallback provider returned %d", resp.StatusCode)
	}

	var parsed hereResponse
	if uerr := json.Unmarshal(raw, &parsed); uerr != nil {
		return nil, fmt.Errorf("parse fallback response: %w", uerr)
	}
	for _, n := range parsed.Notices {
		if strings.Contains(strings.ToLower(n.Code), "couldnotmatchorigin") ||
			strings.Contains(strings.ToLower(n.Code), "couldnotmatchdestination") {
			return nil, fmt.Errorf("%w: %s", ErrRoutablePoint, n.Title)
		}
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("fallback provider returned no routes")
	}

	routes := make([]models.Route, 0, len(parsed.Routes))
	for i, r := range parsed.Routes {
		route := models.Route{
			RouteID:  fmt.Sprintf("here-%d", i),
			Provider: models.ProviderHERE,
		}
		for _, sec := range r.Sections {
			route.DistanceMi += sec.Summary.Length * geo.MilesPerMeter
			route.DurationSeconds += sec.Summary.Duration
			if sec.Polyline != "" {
				coords, derr := decodeFlexiblePolyline(sec.Polyline)
				if derr != nil {
					return nil, fmt.Errorf("decode section polyline: %w", derr)
				}
				route.Geometry = append(route.Geometry, coords...)
			}
			for _, a := range sec.Actions {
				route.Waypoints = append(route.Waypoints, models.RouteWaypoint{
					Instruction: a.Instruction,
					DistanceMi:  a.Length * geo.MilesPerMeter,
				})
			}
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// hereAvoidAreas renders the polygons in HERE's avoid[areas] syntax:
// polygon:lat,lon;lat,lon;...|polygon:...
func hereAvoidAreas(polygons [][][][]float64) string {
	var areas []string
	for _, poly := range polygons {
		if len(poly) == 0 {
			continue
		}
		var pts []string
		for _, pt := range poly[0] {
			if len(pt) < 2 {
				continue
			}
			pts = append(pts, fmt.Sprintf("%.5f,%.5f", pt[1], pt[0]))
		}
		areas = append(areas, "polygon:"+strings.Join(pts, ";"))
	}
	return strings.Join(areas, "|")
}
