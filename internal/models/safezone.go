// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package models

import "time"

// SafeZoneType classifies a safe zone.
type SafeZoneType string

// Safe zone types.
const (
	ZoneEvacuationCenter SafeZoneType = "evacuation_center"
	ZoneHospital         SafeZoneType = "hospital"
	ZoneFireStation      SafeZoneType = "fire_station"
	ZoneEmergencyShelter SafeZoneType = "emergency_shelter"
	ZonePoliceStation    SafeZoneType = "police_station"
	ZoneCommunityCenter  SafeZoneType = "community_center"
)

// OperationalStatus describes whether a safe zone can currently take people.
type OperationalStatus string

// Operational statuses.
const (
	ZoneOpen       OperationalStatus = "open"
	ZoneClosed     OperationalStatus = "closed"
	ZoneAtCapacity OperationalStatus = "at_capacity"
	ZoneDamaged    OperationalStatus = "damaged"
	ZoneUnknown    OperationalStatus = "unknown"
)

// SafeZoneSource identifies where a safe zone record came from.
type SafeZoneSource string

// Safe zone sources.
const (
	ZoneSourceManual  SafeZoneSource = "manual"
	ZoneSourceHIFLD   SafeZoneSource = "hifld_nss"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SafeZone is a shelter or emergency facility.
type SafeZone struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Type              SafeZoneType      `json:"type"`
	Location          GeoPoint          `json:"location"`
	Address           string            `json:"address,omitempty"`
	Capacity          int               `json:"capacity,omitempty"`
	Amenities         []string          `json:"amenities,omitempty"`
	Contact           string            `json:"contact,omitempty"`
	OperationalStatus OperationalStatus `json:"operational_status"`
	Source            SafeZoneSource    `json:"source"`
	LastUpdated       time.Time         `json:"last_updated"`

	// DistanceMi is populated on query responses.
	DistanceMi *float64 `json:"distance_mi,omitempty"`
}

// ZoneThreat is one active disaster threatening a safe zone.
type ZoneThreat struct {
	DisasterID   string       `json:"disaster_id"`
	DisasterType DisasterType `json:"disaster_type"`
	Severity     Severity     `json:"severity"`
	DistanceMi   float64      `json:"distance_mi"`
}

// ZoneSafetyResult is the outcome of checking a zone against active
// disasters.
type ZoneSafetyResult struct {
	Safe          bool         `json:"safe"`
	Threats       []ZoneThreat `json:"threats"`
	NearestThreat *ZoneThreat  `json:"nearest_threat,omitempty"`
}
