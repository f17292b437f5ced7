// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package feeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// USGSAdapter ingests seismic events from the USGS FDSN event service
// (GeoJSON).
type USGSAdapter struct {
	http    *httpClient
	scorer  ConfidenceScorer
	baseURL string
}

// usgsBaseURL is the FDSN event query endpoint.
const usgsBaseURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// usgsMinMagnitude filters microquakes out of the feed.
const usgsMinMagnitude = 2.5

// NewUSGSAdapter creates the seismic adapter.
func NewUSGSAdapter(client *http.Client, scorer ConfidenceScorer, userAgent string, reqPerSec float64) *USGSAdapter {
	return &USGSAdapter{
		http:    newHTTPClient(client, reqPerSec, userAgent),
		scorer:  scorer,
		baseURL: usgsBaseURL,
	}
}

// FeedType implements FeedAdapter.
func (a *USGSAdapter) FeedType() string { return FeedEarthquakes }

// usgsResponse mirrors the subset of the FDSN GeoJSON schema we read.
type usgsResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Mag   *float64 `json:"mag"`
			Place string   `json:"place"`
			Time  int64    `json:"time"` // ms since epoch
			Title string   `json:"title"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
		} `json:"geometry"`
	} `json:"features"`
}

// Fetch implements FeedAdapter. The FDSN service accepts arbitrary windows;
// we clamp to 1..30 days.
func (a *USGSAdapter) Fetch(ctx context.Context, windowDays int) ([]models.DisasterEvent, error) {
	days := clampWindow(windowDays, 1, 30, 1)
	start := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	url := fmt.Sprintf("%s?format=geojson&starttime=%s&minmagnitude=%.1f", a.baseURL, start, usgsMinMagnitude)

	body, err := a.http.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("usgs fetch: %w", err)
	}

	var resp usgsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("usgs decode: %w", err)
	}

	var events []models.DisasterEvent
	dropped := 0
	for _, f := range resp.Features {
		if len(f.Geometry.Coordinates) < 2 || f.Properties.Time == 0 {
			dropped++
			continue
		}

		ev := models.DisasterEvent{
			ID:           "usgs_" + f.ID,
			Source:       models.SourceUSGS,
			Type:         models.TypeEarthquake,
			Latitude:     f.Geometry.Coordinates[1],
			Longitude:    f.Geometry.Coordinates[0],
			Timestamp:    time.UnixMilli(f.Properties.Time).UTC(),
			Description:  f.Properties.Title,
			LocationName: f.Properties.Place,
			Magnitude:    f.Properties.Mag,
		}
		if !ev.ValidCoordinates() {
			dropped++
			continue
		}
		ev.Severity = EarthquakeSeverity(f.Properties.Mag)

		a.scorer.ScoreOfficial(&ev)
		events = append(events, ev)
	}

	if dropped > 0 {
		logging.Debug().Int("dropped", dropped).Int("kept", len(events)).Msg("usgs records dropped for invalid coordinates or timestamps")
	}
	return events, nil
}

// EarthquakeSeverity maps moment magnitude to the unified severity bands.
func EarthquakeSeverity(mag *float64) models.Severity {
	if mag == nil {
		return models.SeverityLow
	}
	switch {
	case *mag >= 7.0:
		return models.SeverityCritical
	case *mag >= 6.0:
		return models.SeverityHigh
	case *mag >= 4.5:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
