// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package models

import "time"

// AIAnalysisStatus tracks the two-phase AI enhancement state machine
// persisted on each user report.
//
//	created -> pending          (description or image present, quota ok)
//	created -> not_applicable   (otherwise)
//	pending -> processing -> completed | failed
//
// completed, failed, and not_applicable are terminal.
type AIAnalysisStatus string

// AI analysis states.
const (
	AIStatusPending       AIAnalysisStatus = "pending"
	AIStatusProcessing    AIAnalysisStatus = "processing"
	AIStatusCompleted     AIAnalysisStatus = "completed"
	AIStatusFailed        AIAnalysisStatus = "failed"
	AIStatusNotApplicable AIAnalysisStatus = "not_applicable"
)

// Terminal reports whether the status admits no further transitions.
func (s AIAnalysisStatus) Terminal() bool {
	switch s {
	case AIStatusCompleted, AIStatusFailed, AIStatusNotApplicable:
		return true
	}
	return false
}

// UserReport is a DisasterEvent submitted by a user, with ownership and
// AI-enhancement bookkeeping.
//
// Ownership rule: a report with a non-empty UserID may be mutated or deleted
// only by that user or an administrator. A report with no UserID is a legacy
// report and is deletable by anyone.
type UserReport struct {
	DisasterEvent

	UserID string `json:"user_id,omitempty"`
	// AffectedPopulation is an optional submitter estimate.
	AffectedPopulation *int `json:"affected_population,omitempty"`
	// UserCredibilityAtSubmission snapshots the submitter's credibility for
	// auditing and for the enhance-time delta-of-delta recomputation.
	UserCredibilityAtSubmission *float64 `json:"user_credibility_at_submission,omitempty"`

	AIAnalysisStatus AIAnalysisStatus `json:"ai_analysis_status"`
	// AIFailureReason is set when AIAnalysisStatus is failed.
	AIFailureReason string `json:"ai_failure_reason,omitempty"`

	// SubmissionDelta is the credibility delta applied at submission time,
	// kept so delete can invert it and enhance can apply delta-of-delta.
	SubmissionDelta *float64 `json:"submission_delta,omitempty"`

	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	UpdatedByAdmin bool       `json:"updated_by_admin,omitempty"`
}

// Owned reports whether the report has an authenticated owner.
func (r *UserReport) Owned() bool {
	return r.UserID != ""
}

// CanBeMutatedBy reports whether the principal may mutate this report.
func (r *UserReport) CanBeMutatedBy(userID string, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	return r.Owned() && r.UserID == userID
}

// CanBeDeletedBy reports whether the principal may delete this report.
// Legacy reports (no owner) are deletable by anyone for backward
// compatibility.
func (r *UserReport) CanBeDeletedBy(userID string, isAdmin bool) bool {
	if !r.Owned() {
		return true
	}
	return r.CanBeMutatedBy(userID, isAdmin)
}
