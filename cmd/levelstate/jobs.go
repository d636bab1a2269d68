// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package main

import (
	"context"
	"time"

	"github.com/tomtom215/levelstate/internal/config"
	"github.com/tomtom215/levelstate/internal/flush"
	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/presence"
	"github.com/tomtom215/levelstate/internal/scheduler"
	"github.com/tomtom215/levelstate/internal/store"
)

type jobs struct {
	reap  *scheduler.Job
	flush *scheduler.Job
	gc    *scheduler.Job // nil when GC is disabled
}

func newJobs(cfg *config.Config, db *store.DB, reaper *presence.Reaper, flusher *flush.Flusher) (*jobs, error) {
	reap, err := scheduler.New("stale-reaper", cfg.Reaper.Interval, func(ctx context.Context) error {
		n, err := reaper.Reap(ctx, cfg.Reaper.StaleThreshold(), time.Now())
		if n > 0 {
			logging.Ctx(ctx).Info().Int("deleted", n).Msg("Stale presences reaped")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	flushFn := func(ctx context.Context) error {
		_, err := flusher.Flush(ctx)
		return err
	}
	if cfg.Flusher.PopulationSnapshot {
		flushFn = flusher.FlushAll
	}
	fl, err := scheduler.New("transition-flusher", cfg.Flusher.Interval(), flushFn)
	if err != nil {
		return nil, err
	}

	j := &jobs{reap: reap, flush: fl}
	if cfg.Store.GCInterval > 0 {
		j.gc, err = scheduler.New("store-gc", cfg.Store.GCInterval, func(context.Context) error {
			return db.RunGC()
		})
		if err != nil {
			return nil, err
		}
	}
	return j, nil
}
