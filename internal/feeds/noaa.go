// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// NOAAAdapter ingests active National Weather Service alerts
// (api.weather.gov). The NWS API requires a descriptive User-Agent.
type NOAAAdapter struct {
	http    *httpClient
	scorer  ConfidenceScorer
	baseURL string
}

// noaaBaseURL is the NWS active alerts endpoint.
const noaaBaseURL = "https://api.weather.gov"

// NewNOAAAdapter creates the weather alerts adapter.
func NewNOAAAdapter(client *http.Client, scorer ConfidenceScorer, userAgent string, reqPerSec float64) *NOAAAdapter {
	return &NOAAAdapter{
		http:    newHTTPClient(client, reqPerSec, userAgent),
		scorer:  scorer,
		baseURL: noaaBaseURL,
	}
}

// FeedType implements FeedAdapter.
func (a *NOAAAdapter) FeedType() string { return FeedWeatherAlerts }

// noaaResponse mirrors the subset of the NWS alert schema we read.
type noaaResponse struct {
	Features []struct {
		Properties struct {
			ID        string `json:"id"`
			Event     string `json:"event"`
			Severity  string `json:"severity"`
			Headline  string `json:"headline"`
			AreaDesc  string `json:"areaDesc"`
			Effective string `json:"effective"`
			Onset     string `json:"onset"`
			Expires   string `json:"expires"`
		} `json:"properties"`
		Geometry *struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Fetch implements FeedAdapter. The active-alerts endpoint has no window
// parameter; windowDays is ignored.
func (a *NOAAAdapter) Fetch(ctx context.Context, _ int) ([]models.DisasterEvent, error) {
	body, err := a.http.get(ctx, a.baseURL+"/alerts/active?status=actual")
	if err != nil {
		return nil, fmt.Errorf("noaa fetch: %w", err)
	}

	var resp noaaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("noaa decode: %w", err)
	}

	var events []models.DisasterEvent
	dropped := 0
	for _, f := range resp.Features {
		// Alerts without geometry cannot be placed on the map.
		if f.Geometry == nil {
			dropped++
			continue
		}
		lat, lon, ok := geometryCentroid(f.Geometry.Type, f.Geometry.Coordinates)
		if !ok {
			dropped++
			continue
		}

		ts := parseRFC3339(f.Properties.Onset)
		if ts.IsZero() {
			ts = parseRFC3339(f.Properties.Effective)
		}
		if ts.IsZero() {
			dropped++
			continue
		}

		ev := models.DisasterEvent{
			ID:           "noaa_" + f.Properties.ID,
			Source:       models.SourceNOAA,
			Type:         weatherEventType(f.Properties.Event),
			Latitude:     lat,
			Longitude:    lon,
			Severity:     WeatherSeverity(f.Properties.Severity),
			Timestamp:    ts,
			Description:  f.Properties.Headline,
			LocationName: f.Properties.AreaDesc,
			AlertLevel:   f.Properties.Severity,
			Country:      "US",
		}
		if !ev.ValidCoordinates() {
			dropped++
			continue
		}
		if exp := parseRFC3339(f.Properties.Expires); !exp.IsZero() {
			ev.Expires = &exp
		}

		a.scorer.ScoreOfficial(&ev)
		events = append(events, ev)
	}

	if dropped > 0 {
		logging.Debug().Int("dropped", dropped).Int("kept", len(events)).Msg("noaa alerts dropped for missing geometry or timestamps")
	}
	return events, nil
}

// geometryCentroid extracts a representative point from a GeoJSON Point or
// Polygon geometry.
func geometryCentroid(geomType string, raw json.RawMessage) (float64, float64, bool) {
	switch geomType {
	case "Point":
		var pt []float64
		if err := json.Unmarshal(raw, &pt); err != nil || len(pt) < 2 {
			return 0, 0, false
		}
		return pt[1], pt[0], true
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(raw, &rings); err != nil || len(rings) == 0 || len(rings[0]) == 0 {
			return 0, 0, false
		}
		lat, lon := geo.PolygonCentroid(rings[0])
		return lat, lon, true
	default:
		return 0, 0, false
	}
}

// WeatherSeverity maps NWS severity strings onto the unified bands.
func WeatherSeverity(s string) models.Severity {
	switch strings.ToLower(s) {
	case "extreme":
		return models.SeverityCritical
	case "severe":
		return models.SeverityHigh
	case "moderate":
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// weatherEventType maps NWS event names onto disaster types. Most alerts
// stay weather_alert; the named hazards get their own type so routing and
// alert filters can treat them specifically.
func weatherEventType(event string) models.DisasterType {
	e := strings.ToLower(event)
	switch {
	case strings.Contains(e, "tornado"):
		return models.TypeTornado
	case strings.Contains(e, "hurricane"), strings.Contains(e, "tropical storm"):
		return models.TypeHurricane
	case strings.Contains(e, "flood"):
		return models.TypeFlood
	case strings.Contains(e, "fire"):
		return models.TypeWildfire
	default:
		return models.TypeWeatherAlert
	}
}

// parseRFC3339 parses a timestamp, returning the zero time on failure.
func parseRFC3339(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
