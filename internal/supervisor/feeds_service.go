// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package supervisor

import (
	"context"
	"time"

	"github.com/myr0nl/EvacuationHub-sub000/internal/feeds"
	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
)

// defaultRefreshWindowDays is the fetch window the background refresher
// asks upstreams for.
const defaultRefreshWindowDays = 1

// FeedRefreshService periodically refreshes every registered feed so API
// reads and alert scans hit a warm cache.
type FeedRefreshService struct {
	feeds    *feeds.Manager
	interval time.Duration
}

// NewFeedRefreshService builds the refresher. A non-positive interval
// defaults to five minutes.
func NewFeedRefreshService(mgr *feeds.Manager, interval time.Duration) *FeedRefreshService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FeedRefreshService{feeds: mgr, interval: interval}
}

// Serve implements suture.Service. The first refresh runs immediately so a
// fresh process serves data without waiting a full tick.
func (f *FeedRefreshService) Serve(ctx context.Context) error {
	f.refresh(ctx)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.refresh(ctx)
		}
	}
}

func (f *FeedRefreshService) refresh(ctx context.Context) {
	results := f.feeds.RefreshAll(ctx, defaultRefreshWindowDays)
	total := 0
	for _, events := range results {
		total += len(events)
	}
	logging.Debug().Int("feeds", len(results)).Int("events", total).Msg("feed refresh cycle complete")
}

func (f *FeedRefreshService) String() string { return "feed-refresher" }
