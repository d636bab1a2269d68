// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/store"
)

// Reaper deletes presence rows of players still in a level that have not been
// refreshed within a threshold. Each deletion is reported to the notifier as
// a departure from that level. Rows of players in no level are kept unless
// they hold an undelivered change.
type Reaper struct {
	presences PresenceStore
	notifier  ChangeNotifier
	newID     func() string
	pageSize  int
}

// NewReaper returns a Reaper. pageSize <= 0 uses store.DefaultPageSize.
func NewReaper(presences PresenceStore, notifier ChangeNotifier, pageSize int) *Reaper {
	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}
	return &Reaper{
		presences: presences,
		notifier:  notifier,
		newID:     func() string { return uuid.New().String() },
		pageSize:  pageSize,
	}
}

// Reap deletes every in-level presence row whose last update is older than
// now-threshold and returns how many were deleted. A row refreshed by a
// concurrent sighting after it was scanned is left alone.
//
// A pass is not interrupted by cancellation of ctx once started; the error
// returned alongside a partial count is the first store or delivery error.
func (r *Reaper) Reap(ctx context.Context, threshold time.Duration, now time.Time) (int, error) {
	if threshold <= 0 {
		return 0, fmt.Errorf("%w: stale threshold must be positive", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	cutoff := now.UnixMilli() - threshold.Milliseconds()
	log := logging.Ctx(ctx).With().Str("component", "reaper").Int64("cutoff", cutoff).Logger()

	opts := store.ScanOptions[*models.PlayerPresence]{
		PageSize: r.pageSize,
		Filter: func(p *models.PlayerPresence) bool {
			return p.LastUpdated < cutoff && (p.LevelID != nil || p.Pending != nil)
		},
	}

	deleted, conflicts := 0, 0
	finish := func(err error) (int, error) {
		metrics.RecordReap(deleted, conflicts, time.Since(start))
		ev := log.Info()
		if err != nil {
			ev = log.Error().Err(err)
		}
		ev.Int("deleted", deleted).Int("conflicts", conflicts).Dur("duration", time.Since(start)).Msg("Stale presence reap finished")
		return deleted, err
	}

	for {
		page, err := r.presences.Scan(ctx, opts)
		if err != nil {
			return finish(fmt.Errorf("scan presences: %w", err))
		}
		for _, row := range page.Items {
			ok, err := r.reapRow(ctx, row, now)
			if err != nil {
				return finish(err)
			}
			if ok {
				deleted++
			} else {
				conflicts++
				log.Debug().Str("player_id", row.PlayerID).Msg("Player returned, skipping delete")
			}
		}
		if page.NextToken == "" {
			return finish(nil)
		}
		opts.Token = page.NextToken
	}
}

// reapRow removes one stale row. It returns false when a newer sighting
// arrived in between.
func (r *Reaper) reapRow(ctx context.Context, row *models.PlayerPresence, now time.Time) (bool, error) {
	expected := row.LastUpdated

	if row.Pending != nil {
		metrics.RecordOutboxRedrive()
		if err := deliver(ctx, r.presences, r.notifier, *row.Pending); err != nil {
			return false, fmt.Errorf("deliver pending change for %s: %w", row.PlayerID, err)
		}
	}

	var departure *models.LevelChange
	if row.LevelID != nil {
		departure = &models.LevelChange{
			ID:        r.newID(),
			PlayerID:  row.PlayerID,
			From:      row.LevelID,
			ChangedAt: now.UnixMilli(),
		}
		level := *row.LevelID
		// The departure is parked in the row first so a crash between here
		// and the delete is redriven like any other pending change.
		_, err := r.presences.CompareAndSwap(ctx, row.PlayerID, func(c *models.PlayerPresence) bool {
			return c != nil && c.LastUpdated <= expected && c.Pending == nil &&
				c.LevelID != nil && *c.LevelID == level
		}, &models.PlayerPresence{LastUpdated: expected, Pending: departure})
		if errors.Is(err, store.ErrConditionFailed) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if err := r.notifier.OnLevelChange(ctx, *departure); err != nil {
			return false, fmt.Errorf("deliver departure for %s: %w", row.PlayerID, err)
		}
	}

	departureID := ""
	if departure != nil {
		departureID = departure.ID
	}
	_, err := r.presences.DeleteIf(ctx, row.PlayerID, func(c *models.PlayerPresence) bool {
		if c.LastUpdated > expected || c.LevelID != nil {
			return false
		}
		return c.Pending == nil || c.Pending.ID == departureID
	})
	if errors.Is(err, store.ErrConditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
