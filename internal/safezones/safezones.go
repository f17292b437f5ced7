// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package safezones locates shelters and emergency facilities and checks
// them against active disasters.
//
// Zones come from two places: locally curated records in the document
// store and the national shelter system queried on demand. External zones
// carry synthetic IDs, either numeric ("ext_412") or coordinate-encoded
// ("ext_34.0522_-118.2437") when the upstream record has no stable key.
package safezones

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/geo"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

const (
	defaultLimit         = 10
	maxLimit             = 50
	defaultMaxDistanceMi = 50.0
	defaultThreatRadius  = 5.0

	externalIDPrefix = "ext_"
)

// ErrNotFound is returned for unknown zone IDs.
var ErrNotFound = errors.New("safezones: zone not found")

// ExternalProvider is the national shelter system client. Both methods are
// optional capabilities; a nil provider disables external merge.
type ExternalProvider interface {
	// QueryRadius returns open shelters within radiusMi of the point.
	QueryRadius(ctx context.Context, lat, lon, radiusMi float64) ([]models.SafeZone, error)
	// LookupByID resolves one shelter by its upstream numeric ID.
	LookupByID(ctx context.Context, numericID int64) (*models.SafeZone, error)
}

// Service answers nearest-zone and zone-safety queries.
type Service struct {
	store    *store.Store
	external ExternalProvider
	clock    clockwork.Clock

	// numeric external-ID lookups are memoized; upstream shelter records
	// change rarely and the lookup endpoint is slow.
	mu      sync.Mutex
	numeric map[int64]*models.SafeZone
}

// New creates the safe-zone service. external may be nil.
func New(st *store.Store, external ExternalProvider, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		store:    st,
		external: external,
		clock:    clock,
		numeric:  make(map[int64]*models.SafeZone),
	}
}

// NearestRequest is one nearest-zones query.
type NearestRequest struct {
	Latitude      float64
	Longitude     float64
	Limit         int
	MaxDistanceMi float64
	// Types restricts results to the listed zone types; empty means all.
	Types []models.SafeZoneType
	// IncludeExternal merges national shelter system results.
	IncludeExternal bool
}

// GetNearest returns zones within MaxDistanceMi of the point, closest
// first, capped at Limit. External lookups are best-effort: a provider
// failure degrades to local-only results.
func (s *Service) GetNearest(ctx context.Context, req NearestRequest) ([]models.SafeZone, error) {
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", models.ErrInvalid)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	maxDist := req.MaxDistanceMi
	if maxDist <= 0 {
		maxDist = defaultMaxDistanceMi
	}

	typeFilter := make(map[models.SafeZoneType]bool, len(req.Types))
	for _, t := range req.Types {
		typeFilter[t] = true
	}

	zones, err := s.localZones(ctx)
	if err != nil {
		return nil, err
	}

	if req.IncludeExternal && s.external != nil {
		external, xerr := s.external.QueryRadius(ctx, req.Latitude, req.Longitude, maxDist)
		if xerr != nil {
			logging.Warn().Err(xerr).Msg("external shelter query failed, returning local zones only")
		} else {
			zones = mergeZones(zones, external)
		}
	}

	box := geo.BoxAround(req.Latitude, req.Longitude, maxDist)
	var out []models.SafeZone
	for _, z := range zones {
		if len(typeFilter) > 0 && !typeFilter[z.Type] {
			continue
		}
		if !box.Contains(z.Location.Lat, z.Location.Lon) {
			continue
		}
		d := geo.HaversineMiles(req.Latitude, req.Longitude, z.Location.Lat, z.Location.Lon)
		if d > maxDist {
			continue
		}
		z.DistanceMi = &d
		out = append(out, z)
	}

	sort.Slice(out, func(i, j int) bool { return *out[i].DistanceMi < *out[j].DistanceMi })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IsZoneSafe checks one zone against the supplied disasters. A zone is
// safe when no disaster lies within threatRadiusMi of it.
func (s *Service) IsZoneSafe(ctx context.Context, zoneID string, disasters []models.DisasterEvent, threatRadiusMi float64) (*models.ZoneSafetyResult, error) {
	if threatRadiusMi <= 0 {
		threatRadiusMi = defaultThreatRadius
	}
	zone, err := s.resolveZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	var threats []models.ZoneThreat
	for _, ev := range disasters {
		d := geo.HaversineMiles(zone.Location.Lat, zone.Location.Lon, ev.Latitude, ev.Longitude)
		if d > threatRadiusMi {
			continue
		}
		threats = append(threats, models.ZoneThreat{
			DisasterID:   ev.ID,
			DisasterType: ev.Type,
			Severity:     ev.Severity,
			DistanceMi:   d,
		})
	}
	sort.Slice(threats, func(i, j int) bool { return threats[i].DistanceMi < threats[j].DistanceMi })

	result := &models.ZoneSafetyResult{
		Safe:    len(threats) == 0,
		Threats: threats,
	}
	if len(threats) > 0 {
		result.NearestThreat = &threats[0]
	}
	return result, nil
}

// Upsert validates and stores a locally curated zone.
func (s *Service) Upsert(ctx context.Context, zone models.SafeZone) error {
	if zone.ID == "" || strings.HasPrefix(zone.ID, externalIDPrefix) {
		return fmt.Errorf("%w: zone id must be set and not use the external prefix", models.ErrInvalid)
	}
	if zone.Name == "" {
		return fmt.Errorf("%w: zone name is required", models.ErrInvalid)
	}
	if zone.Location.Lat < -90 || zone.Location.Lat > 90 ||
		zone.Location.Lon < -180 || zone.Location.Lon > 180 {
		return fmt.Errorf("%w: zone coordinates out of range", models.ErrInvalid)
	}
	if zone.OperationalStatus == "" {
		zone.OperationalStatus = models.ZoneUnknown
	}
	if zone.Source == "" {
		zone.Source = models.ZoneSourceManual
	}
	zone.LastUpdated = s.clock.Now().UTC()
	return s.store.Set(ctx, store.SafeZonePath(zone.ID), zone)
}

// Delete removes a locally curated zone.
func (s *Service) Delete(ctx context.Context, id string) error {
	var zone models.SafeZone
	err := s.store.Get(ctx, store.SafeZonePath(id), &zone)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, store.SafeZonePath(id))
}

// resolveZone fetches a zone by local ID, coordinate-encoded external ID,
// or numeric external ID. Numeric lookups are memoized for the process
// lifetime.
func (s *Service) resolveZone(ctx context.Context, id string) (*models.SafeZone, error) {
	if !strings.HasPrefix(id, externalIDPrefix) {
		var zone models.SafeZone
		err := s.store.Get(ctx, store.SafeZonePath(id), &zone)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &zone, nil
	}

	rest := strings.TrimPrefix(id, externalIDPrefix)
	if lat, lon, ok := parseCoordinateID(rest); ok {
		return &models.SafeZone{
			ID:                id,
			Name:              "External shelter",
			Type:              models.ZoneEmergencyShelter,
			Location:          models.GeoPoint{Lat: lat, Lon: lon},
			OperationalStatus: models.ZoneUnknown,
			Source:            models.ZoneSourceHIFLD,
		}, nil
	}

	numericID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	if s.external == nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	cached, ok := s.numeric[numericID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	zone, err := s.external.LookupByID(ctx, numericID)
	if err != nil {
		return nil, fmt.Errorf("external shelter lookup: %w", err)
	}
	if zone == nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	s.numeric[numericID] = zone
	s.mu.Unlock()
	return zone, nil
}

// parseCoordinateID decodes "lat_lon" from a coordinate-encoded external
// ID.
func parseCoordinateID(rest string) (float64, float64, bool) {
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(parts[0], 64)
	lon, lonErr := strconv.ParseFloat(parts[1], 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

func (s *Service) localZones(ctx context.Context) ([]models.SafeZone, error) {
	var zones []models.SafeZone
	err := s.store.List(ctx, store.SafeZonePrefix(), func(_ string, value []byte) error {
		var zone models.SafeZone
		if uerr := json.Unmarshal(value, &zone); uerr != nil {
			return nil
		}
		zones = append(zones, zone)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// mergeZones appends external zones, skipping any whose ID a local record
// already uses. Local curation wins over upstream data.
func mergeZones(local, external []models.SafeZone) []models.SafeZone {
	seen := make(map[string]bool, len(local))
	for _, z := range local {
		seen[z.ID] = true
	}
	for _, z := range external {
		if seen[z.ID] {
			continue
		}
		local = append(local, z)
	}
	return local
}
