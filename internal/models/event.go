// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package models defines the shared data records for EvacuationHub.
//
// All entities are plain records. Coordinates are WGS84 decimal degrees,
// distances are miles, and timestamps are UTC ISO-8601.
package models

import "time"

// Source identifies where a DisasterEvent originated.
type Source string

// Known event sources. Feed adapters namespace their event IDs with the
// source prefix so IDs stay globally unique across feeds.
const (
	SourceUserReport     Source = "user_report"
	SourceUserReportAuth Source = "user_report_authenticated"
	SourceNASAFirms      Source = "nasa_firms"
	SourceNOAA           Source = "noaa"
	SourceUSGS           Source = "usgs"
	SourceGDACS          Source = "gdacs"
	SourceFEMA           Source = "fema"
	SourceCalFire        Source = "cal_fire"
	SourceCalOES         Source = "cal_oes"
)

// IsOfficial reports whether the source is one of the high-trust official
// feeds that take the official-source confidence path.
func (s Source) IsOfficial() bool {
	switch s {
	case SourceNASAFirms, SourceNOAA, SourceUSGS:
		return true
	}
	return false
}

// IsUserReport reports whether the source is a user submission.
func (s Source) IsUserReport() bool {
	return s == SourceUserReport || s == SourceUserReportAuth
}

// DisasterType classifies an event.
type DisasterType string

// Recognized disaster types.
const (
	TypeWildfire     DisasterType = "wildfire"
	TypeEarthquake   DisasterType = "earthquake"
	TypeFlood        DisasterType = "flood"
	TypeHurricane    DisasterType = "hurricane"
	TypeTornado      DisasterType = "tornado"
	TypeVolcano      DisasterType = "volcano"
	TypeDrought      DisasterType = "drought"
	TypeWeatherAlert DisasterType = "weather_alert"
	TypeOther        DisasterType = "other"
)

// KnownDisasterTypes is the recognized set used by the type-validation
// confidence factor and the alert preference filter.
var KnownDisasterTypes = map[DisasterType]bool{
	TypeWildfire:     true,
	TypeEarthquake:   true,
	TypeFlood:        true,
	TypeHurricane:    true,
	TypeTornado:      true,
	TypeVolcano:      true,
	TypeDrought:      true,
	TypeWeatherAlert: true,
	TypeOther:        true,
}

// Severity is the unified severity band across all feeds.
type Severity string

// Severity bands, ordered low to critical.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal of the severity band (low=0 .. critical=3).
// Unknown severities rank as low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// ConfidenceLevel is the display band derived from a confidence score.
type ConfidenceLevel string

// Confidence level bands.
const (
	ConfidenceLow    ConfidenceLevel = "Low"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceHigh   ConfidenceLevel = "High"
)

// ConfidenceLevelForScore maps a score in [0,1] to its level band.
// This is the only way a level may be derived; >=0.8 High, >=0.6 Medium,
// else Low.
func ConfidenceLevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// TimeDecay describes how an event's age maps to display opacity.
type TimeDecay struct {
	// AgeHours is nil when the event timestamp is missing or invalid.
	AgeHours *float64 `json:"age_hours"`
	Category string   `json:"category"`
	// DecayScore is the display opacity in [0,1].
	DecayScore float64 `json:"decay_score"`
}

// ConfidenceBreakdown is the structured explanation attached to a scored
// event. Fields are populated per scoring path; absent sections are omitted
// from JSON.
type ConfidenceBreakdown struct {
	Path string `json:"path"` // official_source or user_report

	// Official-source path.
	BaseScore         float64 `json:"base_score,omitempty"`
	RecencyBonus      float64 `json:"recency_bonus,omitempty"`
	CompletenessBonus float64 `json:"completeness_bonus,omitempty"`
	IntensityBonus    float64 `json:"intensity_bonus,omitempty"`

	// User-report path factor scores, each already weighted into the total.
	Factors map[string]float64 `json:"factors,omitempty"`

	// Credibility penalty (authenticated submissions only).
	CredibilityMultiplier float64 `json:"credibility_multiplier,omitempty"`
	ScoreBeforePenalty    float64 `json:"score_before_penalty,omitempty"`
	ScoreAfterPenalty     float64 `json:"score_after_penalty,omitempty"`

	// Corroboration.
	Corroboration *CorroborationBreakdown `json:"corroboration,omitempty"`

	// AI enhancement.
	AIScore     *float64 `json:"ai_score,omitempty"`
	AIReasoning string   `json:"ai_reasoning,omitempty"`
	AIProvider  string   `json:"ai_provider,omitempty"`
}

// CorroborationBreakdown explains the corroboration boost.
type CorroborationBreakdown struct {
	NeighborCount int            `json:"neighbor_count"`
	TotalScore    float64        `json:"total_score"`
	Boost         float64        `json:"boost"`
	Sources       map[string]int `json:"sources,omitempty"`
}

// DisasterEvent is the unified representation every feed adapter produces
// and every query endpoint returns.
type DisasterEvent struct {
	ID        string       `json:"id"`
	Source    Source       `json:"source"`
	Type      DisasterType `json:"type"`
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Severity  Severity     `json:"severity"`
	// Timestamp is the event time, not the ingest time.
	Timestamp time.Time `json:"timestamp"`

	Description      string   `json:"description,omitempty"`
	LocationName     string   `json:"location_name,omitempty"`
	Magnitude        *float64 `json:"magnitude,omitempty"`
	Brightness       *float64 `json:"brightness,omitempty"`
	FRP              *float64 `json:"frp,omitempty"`
	AcresBurned      *float64 `json:"acres_burned,omitempty"`
	PercentContained *float64 `json:"percent_contained,omitempty"`
	AlertLevel       string   `json:"alert_level,omitempty"`
	Country          string   `json:"country,omitempty"`
	State            string   `json:"state,omitempty"`
	ImageURL         string   `json:"image_url,omitempty"`

	// Expiry is set only for weather alerts that carry an expiration.
	Expires *time.Time `json:"expires,omitempty"`

	// Derived fields.
	ConfidenceScore     float64              `json:"confidence_score"`
	ConfidenceLevel     ConfidenceLevel      `json:"confidence_level"`
	ConfidenceBreakdown *ConfidenceBreakdown `json:"confidence_breakdown,omitempty"`
	TimeDecay           *TimeDecay           `json:"time_decay,omitempty"`
}

// ValidCoordinates reports whether the event's coordinates are inside the
// WGS84 ranges.
func (e *DisasterEvent) ValidCoordinates() bool {
	return e.Latitude >= -90 && e.Latitude <= 90 &&
		e.Longitude >= -180 && e.Longitude <= 180
}
