// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package models

import "time"

// QuietHours suppresses notification materialization inside a UTC window.
// When Start > End the window wraps midnight. Query responses are never
// affected, only persisted notifications.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // HH:MM
	End     string `json:"end"`   // HH:MM
}

// AlertPreferences holds a user's proximity alert settings.
type AlertPreferences struct {
	Enabled              bool           `json:"enabled"`
	RadiusMi             float64        `json:"radius_mi"`
	SeverityFilter       []Severity     `json:"severity_filter"`
	DisasterTypes        []DisasterType `json:"disaster_types"`
	NotificationChannels []string       `json:"notification_channels"`
	QuietHours           QuietHours     `json:"quiet_hours"`
}

// Alert radius bounds in miles.
const (
	MinAlertRadiusMi = 5.0
	MaxAlertRadiusMi = 50.0
)

// DefaultAlertPreferences returns the defaults applied for users who have
// never saved preferences.
func DefaultAlertPreferences() AlertPreferences {
	return AlertPreferences{
		Enabled:  true,
		RadiusMi: 25,
		SeverityFilter: []Severity{
			SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow,
		},
		DisasterTypes: []DisasterType{
			TypeEarthquake, TypeFlood, TypeWildfire, TypeHurricane,
			TypeTornado, TypeVolcano, TypeDrought,
		},
		NotificationChannels: []string{"in_app"},
		QuietHours:           QuietHours{Enabled: false, Start: "22:00", End: "07:00"},
	}
}

// MapSettings holds a user's map display settings.
type MapSettings struct {
	DisplayRadiusMi  float64 `json:"display_radius_mi"`
	ZoomRadiusMi     float64 `json:"zoom_radius_mi"`
	AutoZoom         bool    `json:"auto_zoom"`
	ShowAllDisasters bool    `json:"show_all_disasters"`
}

// Zoom radius bounds in miles.
const (
	MinZoomRadiusMi = 1.0
	MaxZoomRadiusMi = 100.0
)

// DefaultMapSettings returns the defaults for users without saved settings.
func DefaultMapSettings() MapSettings {
	return MapSettings{
		DisplayRadiusMi:  50,
		ZoomRadiusMi:     25,
		AutoZoom:         true,
		ShowAllDisasters: false,
	}
}

// NotificationTTL is how long a materialized notification lives.
const NotificationTTL = 24 * time.Hour

// Notification is a materialized proximity alert for an authenticated user.
// Created once per previously-unseen high/critical alert; never updated
// except for acknowledgement.
type Notification struct {
	ID             string       `json:"id"`
	DisasterID     string       `json:"disaster_id"`
	DisasterType   DisasterType `json:"disaster_type"`
	Severity       Severity     `json:"severity"`
	AlertSeverity  Severity     `json:"alert_severity"`
	DistanceMi     float64      `json:"distance_mi"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	Source         Source       `json:"source"`
	Timestamp      time.Time    `json:"timestamp"`
	Acknowledged   bool         `json:"acknowledged"`
	AcknowledgedAt *time.Time   `json:"acknowledged_at,omitempty"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

// ProximityAlert is one entry of a proximity scan response.
type ProximityAlert struct {
	DisasterID    string       `json:"disaster_id"`
	DisasterType  DisasterType `json:"disaster_type"`
	Severity      Severity     `json:"severity"`
	AlertSeverity Severity     `json:"alert_severity"`
	DistanceMi    float64      `json:"distance_mi"`
	Latitude      float64      `json:"latitude"`
	Longitude     float64      `json:"longitude"`
	Source        Source       `json:"source"`
	LocationName  string       `json:"location_name,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}
