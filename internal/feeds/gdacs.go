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
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// GDACSAdapter ingests the Global Disaster Alert and Coordination System
// RSS feed. GDACS aggregates worldwide events across hazard types and tags
// each item with a georss point and a Green/Orange/Red alert level.
type GDACSAdapter struct {
	http    *httpClient
	scorer  ConfidenceScorer
	baseURL string
	parser  *gofeed.Parser
}

// gdacsBaseURL is the GDACS RSS endpoint.
const gdacsBaseURL = "https://www.gdacs.org/xml/rss.xml"

// NewGDACSAdapter creates the global multi-hazard adapter.
func NewGDACSAdapter(client *http.Client, scorer ConfidenceScorer, userAgent string, reqPerSec float64) *GDACSAdapter {
	return &GDACSAdapter{
		http:    newHTTPClient(client, reqPerSec, userAgent),
		scorer:  scorer,
		baseURL: gdacsBaseURL,
		parser:  gofeed.NewParser(),
	}
}

// FeedType implements FeedAdapter.
func (a *GDACSAdapter) FeedType() string { return FeedGDACS }

// Fetch implements FeedAdapter. The RSS feed is a fixed rolling window;
// windowDays is ignored.
func (a *GDACSAdapter) Fetch(ctx context.Context, _ int) ([]models.DisasterEvent, error) {
	body, err := a.http.get(ctx, a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("gdacs fetch: %w", err)
	}

	feed, err := a.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gdacs parse: %w", err)
	}

	var events []models.DisasterEvent
	dropped := 0
	for _, item := range feed.Items {
		lat, lon, ok := georssPoint(item)
		if !ok || item.PublishedParsed == nil {
			dropped++
			continue
		}

		eventType := gdacsEventType(extensionValue(item, "gdacs", "eventtype"))
		alertLevel := extensionValue(item, "gdacs", "alertlevel")

		id := extensionValue(item, "gdacs", "eventid")
		if id == "" {
			id = item.GUID
		}

		ev := models.DisasterEvent{
			ID:           "gdacs_" + id,
			Source:       models.SourceGDACS,
			Type:         eventType,
			Latitude:     lat,
			Longitude:    lon,
			Severity:     GDACSSeverity(alertLevel),
			Timestamp:    item.PublishedParsed.UTC(),
			Description:  item.Title,
			LocationName: extensionValue(item, "gdacs", "country"),
			AlertLevel:   alertLevel,
			Country:      extensionValue(item, "gdacs", "country"),
		}
		if !ev.ValidCoordinates() {
			dropped++
			continue
		}
		if eventType == models.TypeEarthquake {
			if mag, err := strconv.ParseFloat(extensionValue(item, "gdacs", "severity"), 64); err == nil && mag > 0 {
				ev.Magnitude = &mag
			}
		}

		a.scorer.ScoreOfficial(&ev)
		events = append(events, ev)
	}

	if dropped > 0 {
		logging.Debug().Int("dropped", dropped).Int("kept", len(events)).Msg("gdacs items dropped for missing point or timestamp")
	}
	return events, nil
}

// georssPoint extracts the "lat lon" pair from an item's georss:point
// extension.
func georssPoint(item *gofeed.Item) (float64, float64, bool) {
	pt := extensionValue(item, "georss", "point")
	fields := strings.Fields(pt)
	if len(fields) < 2 {
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(fields[0], 64)
	lon, lonErr := strconv.ParseFloat(fields[1], 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// extensionValue returns the first value of a namespaced RSS extension
// element, or "" when absent.
func extensionValue(item *gofeed.Item, namespace, name string) string {
	exts, ok := item.Extensions[namespace]
	if !ok {
		return ""
	}
	vals, ok := exts[name]
	if !ok || len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0].Value)
}

// GDACSSeverity maps the Green/Orange/Red alert scale to the unified
// severity bands.
func GDACSSeverity(alertLevel string) models.Severity {
	switch strings.ToLower(alertLevel) {
	case "red":
		return models.SeverityCritical
	case "orange":
		return models.SeverityHigh
	case "green":
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// gdacsEventType maps GDACS two-letter event codes to disaster types.
func gdacsEventType(code string) models.DisasterType {
	switch strings.ToUpper(code) {
	case "EQ":
		return models.TypeEarthquake
	case "TC":
		return models.TypeHurricane
	case "FL":
		return models.TypeFlood
	case "VO":
		return models.TypeVolcano
	case "DR":
		return models.TypeDrought
	case "WF":
		return models.TypeWildfire
	default:
		return models.TypeOther
	}
}
