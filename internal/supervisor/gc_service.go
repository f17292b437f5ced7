// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// gcDiscardRatio is the badger value-log rewrite threshold.
const gcDiscardRatio = 0.5

// StoreGCService runs periodic badger value-log garbage collection.
// Badger never runs GC on its own; without this, expired notifications and
// feed caches accumulate in the value log indefinitely.
type StoreGCService struct {
	store    *store.Store
	interval time.Duration
}

// NewStoreGCService builds the GC ticker. A non-positive interval defaults
// to ten minutes.
func NewStoreGCService(st *store.Store, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{store: st, interval: interval}
}

// Serve implements suture.Service.
func (g *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.collect()
		}
	}
}

// collect loops RunValueLogGC until badger reports nothing left to rewrite;
// each successful call rewrites at most one value-log file.
func (g *StoreGCService) collect() {
	for {
		err := g.store.DB().RunValueLogGC(gcDiscardRatio)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			logging.Warn().Err(err).Msg("badger value-log GC failed")
		}
		return
	}
}

func (g *StoreGCService) String() string { return "store-gc" }
