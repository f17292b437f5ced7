// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package models

import "time"

// CredibilityLevel is the reputation band derived from a credibility score.
type CredibilityLevel string

// Credibility level bands.
const (
	CredibilityExpert     CredibilityLevel = "Expert"
	CredibilityVeteran    CredibilityLevel = "Veteran"
	CredibilityTrusted    CredibilityLevel = "Trusted"
	CredibilityNeutral    CredibilityLevel = "Neutral"
	CredibilityCaution    CredibilityLevel = "Caution"
	CredibilityUnreliable CredibilityLevel = "Unreliable"
)

// CredibilityLevelForScore maps a credibility score in [0,100] to its band.
// Expert >=90, Veteran >=75, Trusted >=60, Neutral >=50, Caution >=30,
// else Unreliable.
func CredibilityLevelForScore(score float64) CredibilityLevel {
	switch {
	case score >= 90:
		return CredibilityExpert
	case score >= 75:
		return CredibilityVeteran
	case score >= 60:
		return CredibilityTrusted
	case score >= 50:
		return CredibilityNeutral
	case score >= 30:
		return CredibilityCaution
	default:
		return CredibilityUnreliable
	}
}

// ClampCredibility bounds a credibility score to [0,100].
func ClampCredibility(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// CredibilityHistoryEntry is one append-only reputation change record.
type CredibilityHistoryEntry struct {
	Old       float64   `json:"old"`
	New       float64   `json:"new"`
	Delta     float64   `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Default credibility scores.
const (
	// DefaultCredibility is the starting score for new users.
	DefaultCredibility = 50.0
	// OAuthIdentityCredibility is the starting score when the identity
	// provider has verified the user's email.
	OAuthIdentityCredibility = 55.0
)

// UserProfile is the per-user account record.
type UserProfile struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`

	CredibilityScore float64          `json:"credibility_score"`
	CredibilityLevel CredibilityLevel `json:"credibility_level"`

	TotalReports        int        `json:"total_reports"`
	SuccessfulReports   int        `json:"successful_reports"`
	FlaggedReports      int        `json:"flagged_reports"`
	LastReportTimestamp *time.Time `json:"last_report_timestamp,omitempty"`
}

// Principal is the verified identity returned by the identity provider.
type Principal struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	IsAdmin       bool   `json:"is_admin"`
}
