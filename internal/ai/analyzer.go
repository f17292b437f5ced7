// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// cacheTTL is how long an assessment for identical content is reused.
const cacheTTL = 24 * time.Hour

// Input is the context handed to the model alongside the report itself.
type Input struct {
	Report       *models.UserReport
	LocationName string

	// Corroboration context gathered by the enhance path.
	OfficialNearbyCount   int
	NearestOfficialMi     *float64
	UserReportNearbyCount int
}

// Analyzer gates and runs model analysis of user reports.
type Analyzer struct {
	chain *Chain
	quota *Quota
	store *store.Store
}

// NewAnalyzer wires the provider chain, quota gate, and assessment cache.
func NewAnalyzer(chain *Chain, quota *Quota, st *store.Store) *Analyzer {
	return &Analyzer{chain: chain, quota: quota, store: st}
}

// Configured reports whether any provider is available.
func (a *Analyzer) Configured() bool {
	return a != nil && a.chain.Configured()
}

// Eligible reports whether the report qualifies for AI analysis at all:
// only user reports carrying a description or image.
func Eligible(report *models.UserReport) bool {
	if !report.Source.IsUserReport() {
		return false
	}
	return report.Description != "" || report.ImageURL != ""
}

// Analyze returns an assessment for the report. Identical content within 24
// hours is served from the cache without spending quota. Quota exhaustion
// returns ErrQuotaExhausted; provider failure returns ErrAllProviders.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Assessment, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}
	if !Eligible(in.Report) {
		return nil, fmt.Errorf("report %s has no analyzable content", in.Report.ID)
	}

	hash := contentHash(in.Report)
	var cached Assessment
	err := a.store.Get(ctx, store.AICachePath(hash), &cached)
	if err == nil {
		logging.Debug().Str("report_id", in.Report.ID).Msg("ai assessment served from cache")
		return &cached, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		logging.Warn().Err(err).Msg("ai cache read failed")
	}

	if err := a.quota.Admit(ctx); err != nil {
		return nil, err
	}

	assessment, err := a.chain.Analyze(ctx, buildPrompt(in))
	if err != nil {
		return nil, err
	}

	if cerr := a.store.SetWithTTL(ctx, store.AICachePath(hash), assessment, cacheTTL); cerr != nil {
		logging.Warn().Err(cerr).Msg("ai cache write failed")
	}
	return assessment, nil
}

// contentHash keys the cache by what the model actually sees: narrative
// content, type, and coarse location.
func contentHash(report *models.UserReport) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%.2f|%.2f",
		report.Description, report.ImageURL, report.Type, report.Latitude, report.Longitude)
	return hex.EncodeToString(h.Sum(nil))
}

// buildPrompt renders the analysis request. The model is asked for a
// structured verdict only; all fusion math stays server-side.
func buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You assess the plausibility of a citizen disaster report. ")
	b.WriteString("Reply with JSON only: {\"score\": <0.0-1.0>, \"reasoning\": \"<one or two sentences>\"}.\n\n")

	r := in.Report
	fmt.Fprintf(&b, "Report type: %s\n", r.Type)
	if r.Severity != "" {
		fmt.Fprintf(&b, "Claimed severity: %s\n", r.Severity)
	}
	if in.LocationName != "" {
		fmt.Fprintf(&b, "Location: %s\n", in.LocationName)
	} else {
		fmt.Fprintf(&b, "Location: %.4f, %.4f\n", r.Latitude, r.Longitude)
	}
	if r.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", r.Description)
	}
	if r.ImageURL != "" {
		fmt.Fprintf(&b, "Image attached: %s\n", r.ImageURL)
	}

	fmt.Fprintf(&b, "\nNearby official events of the same type: %d\n", in.OfficialNearbyCount)
	if in.NearestOfficialMi != nil {
		fmt.Fprintf(&b, "Nearest official event: %.1f miles away\n", *in.NearestOfficialMi)
	}
	fmt.Fprintf(&b, "Nearby user reports of the same type: %d\n", in.UserReportNearbyCount)

	b.WriteString("\nScore the likelihood this report describes a real, current event.")
	return b.String()
}
