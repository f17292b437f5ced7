// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package feeds

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// CalOESAdapter ingests California Office of Emergency Services news
// releases (RSS). Items carry no coordinates; the adapter geolocates by
// matching county names in the title and body against a county centroid
// table, and drops items that match no county.
type CalOESAdapter struct {
	http    *httpClient
	scorer  ConfidenceScorer
	baseURL string
	parser  *gofeed.Parser
}

// calOESBaseURL is the Cal OES newsroom RSS endpoint.
const calOESBaseURL = "https://news.caloes.ca.gov/feed/"

// NewCalOESAdapter creates the state emergency services adapter.
func NewCalOESAdapter(client *http.Client, scorer ConfidenceScorer, userAgent string, reqPerSec float64) *CalOESAdapter {
	return &CalOESAdapter{
		http:    newHTTPClient(client, reqPerSec, userAgent),
		scorer:  scorer,
		baseURL: calOESBaseURL,
		parser:  gofeed.NewParser(),
	}
}

// FeedType implements FeedAdapter.
func (a *CalOESAdapter) FeedType() string { return FeedCalOES }

// Fetch implements FeedAdapter. The RSS feed is a fixed rolling window;
// windowDays is ignored.
func (a *CalOESAdapter) Fetch(ctx context.Context, _ int) ([]models.DisasterEvent, error) {
	body, err := a.http.get(ctx, a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("cal_oes fetch: %w", err)
	}

	feed, err := a.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cal_oes parse: %w", err)
	}

	var events []models.DisasterEvent
	dropped := 0
	for _, item := range feed.Items {
		if item.PublishedParsed == nil {
			dropped++
			continue
		}
		text := item.Title + " " + item.Description
		county, centroid, ok := matchCaliforniaCounty(text)
		if !ok {
			dropped++
			continue
		}

		ev := models.DisasterEvent{
			ID:           "cal_oes_" + item.GUID,
			Source:       models.SourceCalOES,
			Type:         calOESEventType(text),
			Latitude:     centroid[0],
			Longitude:    centroid[1],
			Severity:     models.SeverityMedium,
			Timestamp:    item.PublishedParsed.UTC(),
			Description:  item.Title,
			LocationName: county + " County, CA",
			Country:      "US",
			State:        "CA",
		}

		a.scorer.ScoreOfficial(&ev)
		events = append(events, ev)
	}

	if dropped > 0 {
		logging.Debug().Int("dropped", dropped).Int("kept", len(events)).Msg("cal_oes items dropped for missing date or unmatched county")
	}
	return events, nil
}

// calOESEventType classifies a release by hazard keywords.
func calOESEventType(text string) models.DisasterType {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "fire"):
		return models.TypeWildfire
	case strings.Contains(t, "flood"):
		return models.TypeFlood
	case strings.Contains(t, "earthquake"):
		return models.TypeEarthquake
	case strings.Contains(t, "storm"), strings.Contains(t, "weather"):
		return models.TypeWeatherAlert
	case strings.Contains(t, "drought"):
		return models.TypeDrought
	default:
		return models.TypeOther
	}
}

// matchCaliforniaCounty finds the first county name mentioned in the text.
// Longer names are checked first so "San Luis Obispo" wins over a bare
// mention pattern.
func matchCaliforniaCounty(text string) (string, [2]float64, bool) {
	t := strings.ToLower(text)
	for _, c := range californiaCounties {
		if strings.Contains(t, strings.ToLower(c.name)) {
			return c.name, c.centroid, true
		}
	}
	return "", [2]float64{}, false
}

type countyCentroid struct {
	name     string
	centroid [2]float64 // [lat, lon]
}

// californiaCounties covers the counties that dominate Cal OES releases,
// multi-word names before their substrings.
var californiaCounties = []countyCentroid{
	{"San Luis Obispo", [2]float64{35.3871, -120.4517}},
	{"San Bernardino", [2]float64{34.8414, -116.1785}},
	{"Santa Barbara", [2]float64{34.6730, -120.0163}},
	{"San Francisco", [2]float64{37.7749, -122.4194}},
	{"Contra Costa", [2]float64{37.9191, -121.9278}},
	{"Santa Clara", [2]float64{37.2318, -121.6951}},
	{"Los Angeles", [2]float64{34.3219, -118.2247}},
	{"Santa Cruz", [2]float64{37.0122, -122.0016}},
	{"Sacramento", [2]float64{38.4500, -121.3443}},
	{"San Diego", [2]float64{33.0343, -116.7350}},
	{"Mendocino", [2]float64{39.4400, -123.3900}},
	{"Riverside", [2]float64{33.7437, -115.9938}},
	{"Monterey", [2]float64{36.2170, -121.2385}},
	{"Humboldt", [2]float64{40.7450, -123.8695}},
	{"Siskiyou", [2]float64{41.5927, -122.5404}},
	{"Alameda", [2]float64{37.6463, -121.8887}},
	{"Ventura", [2]float64{34.4561, -119.0834}},
	{"San Mateo", [2]float64{37.4337, -122.3255}},
	{"Imperial", [2]float64{33.0394, -115.3654}},
	{"Mariposa", [2]float64{37.5815, -119.9055}},
	{"Calaveras", [2]float64{38.1960, -120.5541}},
	{"El Dorado", [2]float64{38.7786, -120.5247}},
	{"Stanislaus", [2]float64{37.5591, -120.9977}},
	{"Tuolumne", [2]float64{38.0276, -119.9546}},
	{"Del Norte", [2]float64{41.7076, -123.9660}},
	{"Shasta", [2]float64{40.7909, -122.0388}},
	{"Plumas", [2]float64{40.0035, -120.8385}},
	{"Tehama", [2]float64{40.1257, -122.2340}},
	{"Fresno", [2]float64{36.7580, -119.6495}},
	{"Sonoma", [2]float64{38.5780, -122.9888}},
	{"Orange", [2]float64{33.7031, -117.7609}},
	{"Lassen", [2]float64{40.6737, -120.5943}},
	{"Madera", [2]float64{37.2181, -119.7627}},
	{"Butte", [2]float64{39.6254, -121.5370}},
	{"Napa", [2]float64{38.5070, -122.3302}},
	{"Kern", [2]float64{35.3426, -118.7271}},
	{"Marin", [2]float64{38.0538, -122.7456}},
	{"Tulare", [2]float64{36.2288, -118.7810}},
	{"Placer", [2]float64{39.0634, -120.7178}},
	{"Nevada", [2]float64{39.3013, -120.7690}},
	{"Solano", [2]float64{38.2668, -121.9399}},
	{"Mono", [2]float64{37.9392, -118.8867}},
	{"Inyo", [2]float64{36.5112, -117.4108}},
	{"Lake", [2]float64{39.0996, -122.7536}},
	{"Yolo", [2]float64{38.6865, -121.9018}},
	{"Glenn", [2]float64{39.5984, -122.3922}},
	{"Yuba", [2]float64{39.2690, -121.3513}},
	{"Sutter", [2]float64{39.0346, -121.6949}},
	{"Colusa", [2]float64{39.1776, -122.2371}},
	{"Amador", [2]float64{38.4464, -120.6511}},
	{"Sierra", [2]float64{39.5804, -120.5160}},
	{"Modoc", [2]float64{41.5898, -120.7249}},
	{"Trinity", [2]float64{40.6508, -123.1126}},
	{"Alpine", [2]float64{38.5974, -119.8207}},
	{"Kings", [2]float64{36.0753, -119.8155}},
	{"Merced", [2]float64{37.1948, -120.7177}},
	{"San Benito", [2]float64{36.6057, -121.0750}},
	{"San Joaquin", [2]float64{37.9349, -121.2712}},
}
