// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package safezones

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// defaultShelterURL is the FEMA National Shelter System open-shelters
// layer (ArcGIS feature query endpoint).
const defaultShelterURL = "https://gis.fema.gov/arcgis/rest/services/NSS/OpenShelters/MapServer/0/query"

const metersPerMile = 1609.344

// ShelterClient queries the FEMA National Shelter System. It implements
// ExternalProvider.
type ShelterClient struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]models.SafeZone]
	userAgent string
}

// NewShelterClient creates the NSS client. An empty baseURL uses the
// production endpoint; client may be nil.
func NewShelterClient(baseURL string, client *http.Client, userAgent string) *ShelterClient {
	if baseURL == "" {
		baseURL = defaultShelterURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	breaker := gobreaker.NewCircuitBreaker[[]models.SafeZone](gobreaker.Settings{
		Name:    "nss-shelters",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &ShelterClient{
		baseURL:   baseURL,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		breaker:   breaker,
		userAgent: userAgent,
	}
}

// arcgisResponse is the feature-query envelope. ArcGIS reports errors in
// the body with a 200 status, so Error must be checked explicitly.
type arcgisResponse struct {
	Features []arcgisFeature `json:"features"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type arcgisFeature struct {
	Attributes shelterAttributes `json:"attributes"`
	Geometry   *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"geometry"`
}

type shelterAttributes struct {
	ShelterID          int64   `json:"shelter_id"`
	ShelterName        string  `json:"shelter_name"`
	Address            string  `json:"address_1"`
	City               string  `json:"city"`
	State              string  `json:"state"`
	Zip                string  `json:"zip"`
	ShelterStatus      string  `json:"shelter_status_code"`
	EvacuationCapacity float64 `json:"evacuation_capacity"`
}

// QueryRadius returns open shelters within radiusMi of the point.
func (c *ShelterClient) QueryRadius(ctx context.Context, lat, lon, radiusMi float64) ([]models.SafeZone, error) {
	params := url.Values{
		"f":            {"json"},
		"outFields":    {"*"},
		"where":        {"1=1"},
		"geometryType": {"esriGeometryPoint"},
		"geometry":     {fmt.Sprintf("%f,%f", lon, lat)},
		"inSR":         {"4326"},
		"outSR":        {"4326"},
		"distance":     {fmt.Sprintf("%.0f", radiusMi*metersPerMile)},
		"units":        {"esriSRUnit_Meter"},
	}
	return c.query(ctx, params)
}

// LookupByID resolves one shelter by its NSS shelter_id.
func (c *ShelterClient) LookupByID(ctx context.Context, numericID int64) (*models.SafeZone, error) {
	params := url.Values{
		"f":         {"json"},
		"outFields": {"*"},
		"where":     {fmt.Sprintf("shelter_id=%d", numericID)},
		"outSR":     {"4326"},
	}
	zones, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, nil
	}
	return &zones[0], nil
}

func (c *ShelterClient) query(ctx context.Context, params url.Values) ([]models.SafeZone, error) {
	return c.breaker.Execute(func() ([]models.SafeZone, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("shelter service returned %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		var envelope arcgisResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("parse shelter response: %w", err)
		}
		if envelope.Error != nil {
			return nil, fmt.Errorf("shelter service error %d: %s", envelope.Error.Code, envelope.Error.Message)
		}

		zones := make([]models.SafeZone, 0, len(envelope.Features))
		for _, f := range envelope.Features {
			if f.Geometry == nil {
				continue
			}
			zones = append(zones, shelterToZone(f))
		}
		return zones, nil
	})
}

// shelterToZone maps one NSS feature to a SafeZone. Records without a
// stable shelter_id get a coordinate-encoded ID.
func shelterToZone(f arcgisFeature) models.SafeZone {
	a := f.Attributes
	id := fmt.Sprintf("%s%d", externalIDPrefix, a.ShelterID)
	if a.ShelterID == 0 {
		id = fmt.Sprintf("%s%.4f_%.4f", externalIDPrefix, f.Geometry.Y, f.Geometry.X)
	}

	var addrParts []string
	for _, p := range []string{a.Address, a.City, a.State, a.Zip} {
		if p != "" {
			addrParts = append(addrParts, p)
		}
	}

	return models.SafeZone{
		ID:                id,
		Name:              a.ShelterName,
		Type:              models.ZoneEmergencyShelter,
		Location:          models.GeoPoint{Lat: f.Geometry.Y, Lon: f.Geometry.X},
		Address:           strings.Join(addrParts, ", "),
		Capacity:          int(a.EvacuationCapacity),
		OperationalStatus: shelterStatus(a.ShelterStatus),
		Source:            models.ZoneSourceHIFLD,
	}
}

func shelterStatus(code string) models.OperationalStatus {
	switch strings.ToUpper(code) {
	case "OPEN":
		return models.ZoneOpen
	case "CLOSED":
		return models.ZoneClosed
	case "FULL":
		return models.ZoneAtCapacity
	default:
		return models.ZoneUnknown
	}
}
