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

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// FEMAAdapter ingests federal disaster declarations from the OpenFEMA
// DisasterDeclarationsSummaries API. Declarations carry only a state code,
// so events are placed at the state centroid.
type FEMAAdapter struct {
	http    *httpClient
	scorer  ConfidenceScorer
	baseURL string
}

// femaBaseURL is the OpenFEMA declarations endpoint.
const femaBaseURL = "https://www.fema.gov/api/open/v2/DisasterDeclarationsSummaries"

// NewFEMAAdapter creates the federal declarations adapter.
func NewFEMAAdapter(client *http.Client, scorer ConfidenceScorer, userAgent string, reqPerSec float64) *FEMAAdapter {
	return &FEMAAdapter{
		http:    newHTTPClient(client, reqPerSec, userAgent),
		scorer:  scorer,
		baseURL: femaBaseURL,
	}
}

// FeedType implements FeedAdapter.
func (a *FEMAAdapter) FeedType() string { return FeedFEMA }

// femaResponse mirrors the subset of the OpenFEMA schema we read.
type femaResponse struct {
	DisasterDeclarationsSummaries []struct {
		DisasterNumber   int    `json:"disasterNumber"`
		State            string `json:"state"`
		DeclarationDate  string `json:"declarationDate"`
		IncidentType     string `json:"incidentType"`
		DeclarationTitle string `json:"declarationTitle"`
		DeclarationType  string `json:"declarationType"`
	} `json:"DisasterDeclarationsSummaries"`
}

// Fetch implements FeedAdapter. Declarations move slowly; the window clamps
// to 1..90 days with a 30-day default.
func (a *FEMAAdapter) Fetch(ctx context.Context, windowDays int) ([]models.DisasterEvent, error) {
	days := clampWindow(windowDays, 1, 90, 30)
	since := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	url := fmt.Sprintf("%s?$filter=declarationDate%%20ge%%20'%s'&$orderby=declarationDate%%20desc&$top=1000", a.baseURL, since)

	body, err := a.http.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fema fetch: %w", err)
	}

	var resp femaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("fema decode: %w", err)
	}

	var events []models.DisasterEvent
	dropped := 0
	seen := map[string]bool{}
	for _, d := range resp.DisasterDeclarationsSummaries {
		// One declaration spans many counties; keep one event per disaster
		// number.
		id := fmt.Sprintf("fema_%d", d.DisasterNumber)
		if seen[id] {
			continue
		}

		centroid, ok := stateCentroids[strings.ToUpper(d.State)]
		if !ok {
			dropped++
			continue
		}
		ts := parseFEMADate(d.DeclarationDate)
		if ts.IsZero() {
			dropped++
			continue
		}
		seen[id] = true

		events = append(events, models.DisasterEvent{
			ID:           id,
			Source:       models.SourceFEMA,
			Type:         femaIncidentType(d.IncidentType),
			Latitude:     centroid[0],
			Longitude:    centroid[1],
			Severity:     femaSeverity(d.DeclarationType),
			Timestamp:    ts,
			Description:  d.DeclarationTitle,
			LocationName: d.State,
			Country:      "US",
			State:        strings.ToUpper(d.State),
		})
		a.scorer.ScoreOfficial(&events[len(events)-1])
	}

	if dropped > 0 {
		logging.Debug().Int("dropped", dropped).Int("kept", len(events)).Msg("fema declarations dropped for unknown state or bad date")
	}
	return events, nil
}

// parseFEMADate handles both the date-only and full RFC3339 forms OpenFEMA
// emits.
func parseFEMADate(s string) time.Time {
	if ts := parseRFC3339(s); !ts.IsZero() {
		return ts
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// femaSeverity maps declaration types onto severity. Major disaster
// declarations (DR) outrank emergency (EM) and fire management (FM)
// declarations.
func femaSeverity(declarationType string) models.Severity {
	switch strings.ToUpper(declarationType) {
	case "DR":
		return models.SeverityHigh
	case "EM", "FM":
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// femaIncidentType maps OpenFEMA incident type names onto disaster types.
func femaIncidentType(incident string) models.DisasterType {
	i := strings.ToLower(incident)
	switch {
	case strings.Contains(i, "fire"):
		return models.TypeWildfire
	case strings.Contains(i, "flood"):
		return models.TypeFlood
	case strings.Contains(i, "hurricane"), strings.Contains(i, "typhoon"):
		return models.TypeHurricane
	case strings.Contains(i, "tornado"):
		return models.TypeTornado
	case strings.Contains(i, "earthquake"):
		return models.TypeEarthquake
	case strings.Contains(i, "volcan"):
		return models.TypeVolcano
	case strings.Contains(i, "drought"):
		return models.TypeDrought
	case strings.Contains(i, "storm"), strings.Contains(i, "snow"), strings.Contains(i, "freez"):
		return models.TypeWeatherAlert
	default:
		return models.TypeOther
	}
}

// stateCentroids places a declaration at its state's geographic center,
// keyed by USPS code. [lat, lon].
var stateCentroids = map[string][2]float64{
	"AL": {32.806671, -86.791130},
	"AK": {61.370716, -152.404419},
	"AZ": {33.729759, -111.431221},
	"AR": {34.969704, -92.373123},
	"CA": {36.116203, -119.681564},
	"CO": {39.059811, -105.311104},
	"CT": {41.597782, -72.755371},
	"DE": {39.318523, -75.507141},
	"DC": {38.897438, -77.026817},
	"FL": {27.766279, -81.686783},
	"GA": {33.040619, -83.643074},
	"HI": {21.094318, -157.498337},
	"ID": {44.240459, -114.478828},
	"IL": {40.349457, -88.986137},
	"IN": {39.849426, -86.258278},
	"IA": {42.011539, -93.210526},
	"KS": {38.526600, -96.726486},
	"KY": {37.668140, -84.670067},
	"LA": {31.169546, -91.867805},
	"ME": {44.693947, -69.381927},
	"MD": {39.063946, -76.802101},
	"MA": {42.230171, -71.530106},
	"MI": {43.326618, -84.536095},
	"MN": {45.694454, -93.900192},
	"MS": {32.741646, -89.678696},
	"MO": {38.456085, -92.288368},
	"MT": {46.921925, -110.454353},
	"NE": {41.125370, -98.268082},
	"NV": {38.313515, -117.055374},
	"NH": {43.452492, -71.563896},
	"NJ": {40.298904, -74.521011},
	"NM": {34.840515, -106.248482},
	"NY": {42.165726, -74.948051},
	"NC": {35.630066, -79.806419},
	"ND": {47.528912, -99.784012},
	"OH": {40.388783, -82.764915},
	"OK": {35.565342, -96.928917},
	"OR": {44.572021, -122.070938},
	"PA": {40.590752, -77.209755},
	"RI": {41.680893, -71.511780},
	"SC": {33.856892, -80.945007},
	"SD": {44.299782, -99.438828},
	"TN": {35.747845, -86.692345},
	"TX": {31.054487, -97.563461},
	"UT": {40.150032, -111.862434},
	"VT": {44.045876, -72.710686},
	"VA": {37.769337, -78.169968},
	"WA": {47.400902, -121.490494},
	"WV": {38.491226, -80.954453},
	"WI": {44.268543, -89.616508},
	"WY": {42.755966, -107.302490},
	"PR": {18.220833, -66.590149},
	"GU": {13.444304, 144.793732},
	"VI": {18.335765, -64.896335},
	"AS": {-14.270972, -170.132217},
	"MP": {15.097900, 145.673900},
}
