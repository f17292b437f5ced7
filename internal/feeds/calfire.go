// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package feeds

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// CalFireAdapter ingests active California wildfire incidents from the
// CAL FIRE incidents API. California-only bounding is inherent to the
// upstream; the adapter does no further filtering.
type CalFireAdapter struct {
	http    *httpClient
	scorer  ConfidenceScorer
	baseURL string
}

// calFireBaseURL is the CAL FIRE incidents list endpoint.
const calFireBaseURL = "https://incidents.fire.ca.gov/umbraco/api/IncidentApi/List?inactive=false"

// NewCalFireAdapter creates the state wildfire adapter.
func NewCalFireAdapter(client *http.Client, scorer ConfidenceScorer, userAgent string, reqPerSec float64) *CalFireAdapter {
	return &CalFireAdapter{
		http:    newHTTPClient(client, reqPerSec, userAgent),
		scorer:  scorer,
		baseURL: calFireBaseURL,
	}
}

// FeedType implements FeedAdapter.
func (a *CalFireAdapter) FeedType() string { return FeedCalFire }

// calFireIncident mirrors the subset of the incidents schema we read.
type calFireIncident struct {
	UniqueID         string   `json:"UniqueId"`
	Name             string   `json:"Name"`
	Latitude         float64  `json:"Latitude"`
	Longitude        float64  `json:"Longitude"`
	AcresBurned      *float64 `json:"AcresBurned"`
	PercentContained *float64 `json:"PercentContained"`
	County           string   `json:"County"`
	Started          string   `json:"Started"`
	IsActive         bool     `json:"IsActive"`
	URL              string   `json:"Url"`
}

// Fetch implements FeedAdapter. The API returns only active incidents;
// windowDays is ignored.
func (a *CalFireAdapter) Fetch(ctx context.Context, _ int) ([]models.DisasterEvent, error) {
	body, err := a.http.get(ctx, a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("cal_fire fetch: %w", err)
	}

	var incidents []calFireIncident
	if err := json.Unmarshal(body, &incidents); err != nil {
		return nil, fmt.Errorf("cal_fire decode: %w", err)
	}

	var events []models.DisasterEvent
	dropped := 0
	for _, inc := range incidents {
		ts := parseFEMADate(inc.Started)
		if ts.IsZero() || (inc.Latitude == 0 && inc.Longitude == 0) {
			dropped++
			continue
		}

		ev := models.DisasterEvent{
			ID:               "cal_fire_" + inc.UniqueID,
			Source:           models.SourceCalFire,
			Type:             models.TypeWildfire,
			Latitude:         inc.Latitude,
			Longitude:        inc.Longitude,
			Severity:         CalFireSeverity(inc.AcresBurned, inc.PercentContained),
			Timestamp:        ts,
			Description:      inc.Name,
			LocationName:     inc.County + " County, CA",
			AcresBurned:      inc.AcresBurned,
			PercentContained: inc.PercentContained,
			Country:          "US",
			State:            "CA",
		}
		if !ev.ValidCoordinates() {
			dropped++
			continue
		}

		a.scorer.ScoreOfficial(&ev)
		events = append(events, ev)
	}

	if dropped > 0 {
		logging.Debug().Int("dropped", dropped).Int("kept", len(events)).Msg("cal_fire incidents dropped for missing coordinates or start date")
	}
	return events, nil
}

// CalFireSeverity maps fire size and containment onto severity. A large
// mostly-contained fire is less of a threat than a small uncontained one,
// so containment discounts one band.
func CalFireSeverity(acres, contained *float64) models.Severity {
	ac := 0.0
	if acres != nil {
		ac = *acres
	}
	var sev models.Severity
	switch {
	case ac >= 10000:
		sev = models.SeverityCritical
	case ac >= 1000:
		sev = models.SeverityHigh
	case ac >= 100:
		sev = models.SeverityMedium
	default:
		sev = models.SeverityLow
	}
	if contained != nil && *contained >= 90 && sev != models.SeverityLow {
		switch sev {
		case models.SeverityCritical:
			sev = models.SeverityHigh
		case models.SeverityHigh:
			sev = models.SeverityMedium
		case models.SeverityMedium:
			sev = models.SeverityLow
		}
	}
	return sev
}
