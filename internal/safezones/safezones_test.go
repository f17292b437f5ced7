// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package safezones

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

type fakeExternal struct {
	zones    []models.SafeZone
	err      error
	lookups  int
	byID     map[int64]*models.SafeZone
	queryErr error
}

func (f *fakeExternal) QueryRadius(ctx context.Context, lat, lon, radiusMi float64) ([]models.SafeZone, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.zones, nil
}

func (f *fakeExternal) LookupByID(ctx context.Context, numericID int64) (*models.SafeZone, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[numericID], nil
}

const (
	originLat = 34.05
	originLon = -118.25
)

func newService(t *testing.T, external ExternalProvider) *Service {
	t.Helper()
	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	return New(st, external, clock)
}

func zoneAt(id string, zoneType models.SafeZoneType, distanceMi float64) models.SafeZone {
	lat, lon := geo.DestinationPoint(originLat, originLon, 0, distanceMi)
	return models.SafeZone{
		ID:       id,
		Name:     id,
		Type:     zoneType,
		Location: models.GeoPoint{Lat: lat, Lon: lon},
	}
}

func TestGetNearestSortsFiltersAndLimits(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	for _, z := range []models.SafeZone{
		zoneAt("shelter-far", models.ZoneEmergencyShelter, 20),
		zoneAt("shelter-near", models.ZoneEmergencyShelter, 2),
		zoneAt("hospital-mid", models.ZoneHospital, 8),
		zoneAt("shelter-out", models.ZoneEmergencyShelter, 80),
	} {
		if err := s.Upsert(ctx, z); err != nil {
			t.Fatalf("Upsert(%s): %v", z.ID, err)
		}
	}

	zones, err := s.GetNearest(ctx, NearestRequest{Latitude: originLat, Longitude: originLon})
	if err != nil {
		t.Fatalf("GetNearest: %v", err)
	}
	if len(zones) != 3 {
		t.Fatalf("got %d zones, want 3 (80mi zone outside default max distance)", len(zones))
	}
	if zones[0].ID != "shelter-near" || zones[1].ID != "hospital-mid" || zones[2].ID != "shelter-far" {
		t.Errorf("order = %s, %s, %s", zones[0].ID, zones[1].ID, zones[2].ID)
	}
	if zones[0].DistanceMi == nil || *zones[0].DistanceMi > 2.5 {
		t.Errorf("nearest distance = %v, want ~2", zones[0].DistanceMi)
	}

	// Type filter.
	zones, err = s.GetNearest(ctx, NearestRequest{
		Latitude: originLat, Longitude: originLon,
		Types: []models.SafeZoneType{models.ZoneHospital},
	})
	if err != nil {
		t.Fatalf("GetNearest typed: %v", err)
	}
	if len(zones) != 1 || zones[0].ID != "hospital-mid" {
		t.Errorf("typed result = %+v", zones)
	}

	// Limit.
	zones, _ = s.GetNearest(ctx, NearestRequest{Latitude: originLat, Longitude: originLon, Limit: 1})
	if len(zones) != 1 || zones[0].ID != "shelter-near" {
		t.Errorf("limited result = %+v", zones)
	}
}

func TestGetNearestMergesExternal(t *testing.T) {
	external := &fakeExternal{zones: []models.SafeZone{
		zoneAt("ext_42", models.ZoneEmergencyShelter, 5),
	}}
	s := newService(t, external)
	ctx := context.Background()

	if err := s.Upsert(ctx, zoneAt("local", models.ZoneEmergencyShelter, 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	zones, err := s.GetNearest(ctx, NearestRequest{
		Latitude: originLat, Longitude: originLon, IncludeExternal: true,
	})
	if err != nil {
		t.Fatalf("GetNearest: %v", err)
	}
	if len(zones) != 2 || zones[0].ID != "local" || zones[1].ID != "ext_42" {
		t.Fatalf("merged = %+v", zones)
	}

	// Provider failure degrades to local-only.
	external.queryErr = errors.New("upstream down")
	zones, err = s.GetNearest(ctx, NearestRequest{
		Latitude: originLat, Longitude: originLon, IncludeExternal: true,
	})
	if err != nil {
		t.Fatalf("GetNearest with failing external: %v", err)
	}
	if len(zones) != 1 || zones[0].ID != "local" {
		t.Errorf("degraded result = %+v", zones)
	}
}

func TestIsZoneSafe(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	zone := zoneAt("shelter", models.ZoneEmergencyShelter, 0)
	if err := s.Upsert(ctx, zone); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	nearLat, nearLon := geo.DestinationPoint(zone.Location.Lat, zone.Location.Lon, 90, 2)
	farLat, farLon := geo.DestinationPoint(zone.Location.Lat, zone.Location.Lon, 90, 30)
	disasters := []models.DisasterEvent{
		{ID: "fire-near", Type: models.TypeWildfire, Severity: models.SeverityHigh, Latitude: nearLat, Longitude: nearLon},
		{ID: "fire-far", Type: models.TypeWildfire, Severity: models.SeverityCritical, Latitude: farLat, Longitude: farLon},
	}

	result, err := s.IsZoneSafe(ctx, "shelter", disasters, 5)
	if err != nil {
		t.Fatalf("IsZoneSafe: %v", err)
	}
	if result.Safe {
		t.Error("zone with a fire 2 miles away reported safe")
	}
	if len(result.Threats) != 1 || result.Threats[0].DisasterID != "fire-near" {
		t.Errorf("threats = %+v", result.Threats)
	}
	if result.NearestThreat == nil || result.NearestThreat.DisasterID != "fire-near" {
		t.Errorf("nearest = %+v", result.NearestThreat)
	}

	// No disasters in radius.
	result, err = s.IsZoneSafe(ctx, "shelter", disasters[1:], 5)
	if err != nil {
		t.Fatalf("IsZoneSafe far-only: %v", err)
	}
	if !result.Safe || result.NearestThreat != nil || len(result.Threats) != 0 {
		t.Errorf("far-only result = %+v", result)
	}

	if _, err := s.IsZoneSafe(ctx, "missing", disasters, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown zone error = %v, want ErrNotFound", err)
	}
}

func TestResolveCoordinateEncodedExternalID(t *testing.T) {
	s := newService(t, nil)
	result, err := s.IsZoneSafe(context.Background(), "ext_34.0500_-118.2500", []models.DisasterEvent{
		{ID: "quake", Type: models.TypeEarthquake, Severity: models.SeverityHigh, Latitude: 34.05, Longitude: -118.25},
	}, 5)
	if err != nil {
		t.Fatalf("IsZoneSafe: %v", err)
	}
	if result.Safe || len(result.Threats) != 1 {
		t.Errorf("result = %+v", result)
	}

	if _, err := s.IsZoneSafe(context.Background(), "ext_999.0_-118.25", nil, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("out-of-range coordinate ID error = %v, want ErrNotFound", err)
	}
}

func TestNumericExternalLookupsAreMemoized(t *testing.T) {
	zone := zoneAt("ext_412", models.ZoneEmergencyShelter, 0)
	external := &fakeExternal{byID: map[int64]*models.SafeZone{412: &zone}}
	s := newService(t, external)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := s.IsZoneSafe(ctx, "ext_412", nil, 5)
		if err != nil {
			t.Fatalf("IsZoneSafe #%d: %v", i, err)
		}
		if !result.Safe {
			t.Fatalf("empty disaster list but not safe")
		}
	}
	if external.lookups != 1 {
		t.Errorf("lookups = %d, want 1 (memoized)", external.lookups)
	}

	if _, err := s.IsZoneSafe(ctx, "ext_999", nil, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown numeric ID error = %v, want ErrNotFound", err)
	}
}

func TestUpsertValidation(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	bad := zoneAt("", models.ZoneHospital, 1)
	if err := s.Upsert(ctx, bad); err == nil {
		t.Error("empty ID accepted")
	}
	bad = zoneAt("ext_1", models.ZoneHospital, 1)
	if err := s.Upsert(ctx, bad); err == nil {
		t.Error("external prefix accepted for local zone")
	}
	bad = zoneAt("ok", models.ZoneHospital, 1)
	bad.Name = ""
	if err := s.Upsert(ctx, bad); err == nil {
		t.Error("empty name accepted")
	}
	bad = zoneAt("ok", models.ZoneHospital, 1)
	bad.Location.Lat = 95
	if err := s.Upsert(ctx, bad); err == nil {
		t.Error("latitude 95 accepted")
	}

	good := zoneAt("ok", models.ZoneHospital, 1)
	if err := s.Upsert(ctx, good); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Delete(ctx, "ok"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "ok"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete error = %v, want ErrNotFound", err)
	}
}

func TestShelterClientParsesArcGISResponse(t *testing.T) {
	const payload = `{
		"features": [
			{
				"attributes": {
					"shelter_id": 412,
					"shelter_name": "Central High School",
					"address_1": "100 Main St",
					"city": "Pasadena",
					"state": "CA",
					"zip": "91101",
					"shelter_status_code": "OPEN",
					"evacuation_capacity": 350
				},
				"geometry": {"x": -118.14, "y": 34.15}
			},
			{
				"attributes": {
					"shelter_id": 0,
					"shelter_name": "Pop-up Site",
					"shelter_status_code": "FULL"
				},
				"geometry": {"x": -118.25, "y": 34.05}
			},
			{
				"attributes": {"shelter_id": 7, "shelter_name": "No geometry"}
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewShelterClient(srv.URL, srv.Client(), "test")
	zones, err := c.QueryRadius(context.Background(), 34.05, -118.25, 25)
	if err != nil {
		t.Fatalf("QueryRadius: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2 (geometryless record dropped)", len(zones))
	}
	first := zones[0]
	if first.ID != "ext_412" || first.Name != "Central High School" {
		t.Errorf("first zone = %+v", first)
	}
	if first.OperationalStatus != models.ZoneOpen || first.Capacity != 350 {
		t.Errorf("status/capacity = %s/%d", first.OperationalStatus, first.Capacity)
	}
	if first.Address != "100 Main St, Pasadena, CA, 91101" {
		t.Errorf("address = %q", first.Address)
	}
	second := zones[1]
	if second.ID != "ext_34.0500_-118.2500" {
		t.Errorf("coordinate-encoded ID = %q", second.ID)
	}
	if second.OperationalStatus != models.ZoneAtCapacity {
		t.Errorf("second status = %s", second.OperationalStatus)
	}
}

func TestShelterClientSurfacesEmbeddedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"code": 400, "message": "Invalid query"}}`))
	}))
	defer srv.Close()

	c := NewShelterClient(srv.URL, srv.Client(), "test")
	if _, err := c.QueryRadius(context.Background(), 34.05, -118.25, 25); err == nil {
		t.Error("embedded ArcGIS error not surfaced")
	}
}
