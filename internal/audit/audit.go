// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package audit records administrative bulk operations. Records are written
// before the work starts and updated when it finishes, so an interrupted
// operation leaves a visible "started" marker. Writes are best-effort: an
// audit failure is logged and never blocks the operation itself.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// Operation outcomes.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Record is one audit log document.
type Record struct {
	OperationID string         `json:"operation_id"`
	Operation   string         `json:"operation"`
	ActorID     string         `json:"actor_id,omitempty"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// Logger writes audit records to the document store.
type Logger struct {
	store *store.Store
	clock clockwork.Clock
}

// New creates an audit logger. A nil clock uses the real clock.
func New(st *store.Store, clock clockwork.Clock) *Logger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Logger{store: st, clock: clock}
}

// Begin writes a "started" record and returns its operation ID.
func (l *Logger) Begin(ctx context.Context, operation, actorID string, details map[string]any) string {
	id := uuid.NewString()
	rec := Record{
		OperationID: id,
		Operation:   operation,
		ActorID:     actorID,
		Status:      StatusStarted,
		StartedAt:   l.clock.Now().UTC(),
		Details:     details,
	}
	if err := l.store.Set(ctx, store.AuditLogPath(id), rec); err != nil {
		logging.Warn().Err(err).Str("operation", operation).Msg("audit begin write failed")
	}
	return id
}

// Finish updates the record with the outcome. Unknown IDs write a fresh
// record rather than failing.
func (l *Logger) Finish(ctx context.Context, operationID, status string, details map[string]any) {
	var rec Record
	if err := l.store.Get(ctx, store.AuditLogPath(operationID), &rec); err != nil {
		rec = Record{OperationID: operationID, StartedAt: l.clock.Now().UTC()}
	}
	now := l.clock.Now().UTC()
	rec.Status = status
	rec.FinishedAt = &now
	if rec.Details == nil {
		rec.Details = details
	} else {
		for k, v := range details {
			rec.Details[k] = v
		}
	}
	if err := l.store.Set(ctx, store.AuditLogPath(operationID), rec); err != nil {
		logging.Warn().Err(err).Str("operation_id", operationID).Msg("audit finish write failed")
	}
}
