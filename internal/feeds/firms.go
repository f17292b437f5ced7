// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package feeds

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// FIRMSAdapter ingests NASA FIRMS satellite wildfire detections (VIIRS
// near-real-time, CSV area API).
type FIRMSAdapter struct {
	http    *httpClient
	scorer  ConfidenceScorer
	apiKey  string
	baseURL string
}

// firmsBaseURL is the FIRMS area CSV endpoint.
const firmsBaseURL = "https://firms.modaps.eosdis.nasa.gov/api/area/csv"

// NewFIRMSAdapter creates the satellite wildfire adapter.
func NewFIRMSAdapter(client *http.Client, scorer ConfidenceScorer, apiKey, userAgent string, reqPerSec float64) *FIRMSAdapter {
	return &FIRMSAdapter{
		http:    newHTTPClient(client, reqPerSec, userAgent),
		scorer:  scorer,
		apiKey:  apiKey,
		baseURL: firmsBaseURL,
	}
}

// FeedType implements FeedAdapter.
func (a *FIRMSAdapter) FeedType() string { return FeedWildfires }

// Fetch implements FeedAdapter. The FIRMS area API allows 1..10 day
// windows.
func (a *FIRMSAdapter) Fetch(ctx context.Context, windowDays int) ([]models.DisasterEvent, error) {
	days := clampWindow(windowDays, 1, 10, 1)
	url := fmt.Sprintf("%s/%s/VIIRS_SNPP_NRT/world/%d", a.baseURL, a.apiKey, days)

	body, err := a.http.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("firms fetch: %w", err)
	}
	return a.parse(body)
}

// parse maps the FIRMS CSV schema to DisasterEvent records.
func (a *FIRMSAdapter) parse(body []byte) ([]models.DisasterEvent, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("firms csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var events []models.DisasterEvent
	dropped := 0
	for _, row := range rows[1:] {
		lat, latErr := strconv.ParseFloat(field(row, "latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field(row, "longitude"), 64)
		ts := parseFIRMSTime(field(row, "acq_date"), field(row, "acq_time"))
		if latErr != nil || lonErr != nil || ts.IsZero() {
			dropped++
			continue
		}

		ev := models.DisasterEvent{
			ID:        fmt.Sprintf("nasa_firms_%s_%s_%s", field(row, "acq_date"), field(row, "acq_time"), field(row, "latitude")+field(row, "longitude")),
			Source:    models.SourceNASAFirms,
			Type:      models.TypeWildfire,
			Latitude:  lat,
			Longitude: lon,
			Timestamp: ts,
		}
		if !ev.ValidCoordinates() {
			dropped++
			continue
		}

		if v, err := strconv.ParseFloat(field(row, "bright_ti4"), 64); err == nil {
			ev.Brightness = &v
		}
		if v, err := strconv.ParseFloat(field(row, "frp"), 64); err == nil {
			ev.FRP = &v
		}

		ev.Severity = WildfireSeverity(ev.Brightness, ev.FRP)
		ev.Description = fmt.Sprintf("Satellite thermal detection (confidence %s)", field(row, "confidence"))
		a.scorer.ScoreOfficial(&ev)

		events = append(events, ev)
	}

	if dropped > 0 {
		logging.Debug().Int("dropped", dropped).Int("kept", len(events)).Msg("firms records dropped for invalid coordinates or timestamps")
	}
	return events, nil
}

// parseFIRMSTime combines the acq_date (2026-08-24) and acq_time (HHMM)
// columns into a UTC timestamp.
func parseFIRMSTime(date, hhmm string) time.Time {
	if date == "" {
		return time.Time{}
	}
	for len(hhmm) < 4 {
		hhmm = "0" + hhmm
	}
	ts, err := time.Parse("2006-01-02 1504", date+" "+hhmm)
	if err != nil {
		// Fall back to date-only records.
		ts, err = time.Parse("2006-01-02", date)
		if err != nil {
			return time.Time{}
		}
	}
	return ts.UTC()
}

// WildfireSeverity maps satellite brightness (Kelvin) and fire radiative
// power (MW) to the unified severity bands.
func WildfireSeverity(brightness, frp *float64) models.Severity {
	b := 0.0
	if brightness != nil {
		b = *brightness
	}
	f := 0.0
	if frp != nil {
		f = *frp
	}
	switch {
	case b >= 360 || f >= 100:
		return models.SeverityCritical
	case b >= 340 || f >= 50:
		return models.SeverityHigh
	case b >= 320 || f >= 20:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
