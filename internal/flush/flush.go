// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package flush drains the transition counters into an archived snapshot
// and writes the read-only level population snapshot.
//
// Flush reads every counter, archives them, then deletes each key it read.
// An increment landing between the read and the delete of its key is lost.
// Rows created after the read are not deleted and go into the next snapshot.
package flush

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/levelstate/internal/archive"
	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/store"
)

const updateTimeLayout = "2006-01-02T15:04:05Z"

// TransitionSource is the subset of store.TransitionStore used by Flush.
type TransitionSource interface {
	ScanAll(ctx context.Context) ([]models.TransitionCounter, error)
	Delete(ctx context.Context, key models.TransitionKey) error
}

// PopulationSource is the subset of store.PopulationStore used by
// FlushPopulationSnapshot.
type PopulationSource interface {
	ScanAll(ctx context.Context, filter func(models.LevelPopulation) bool) ([]models.LevelPopulation, error)
}

// Flusher writes snapshots to an archive.
type Flusher struct {
	transitions  TransitionSource
	populations  PopulationSource
	archive      archive.Archive
	intervalSecs int
	now          func() time.Time
	newID        func() string
}

// New returns a Flusher. intervalSecs is stamped into every snapshot; the
// caller's scheduler decides the actual cadence.
func New(transitions TransitionSource, populations PopulationSource, arch archive.Archive, intervalSecs int) *Flusher {
	return &Flusher{
		transitions:  transitions,
		populations:  populations,
		archive:      arch,
		intervalSecs: intervalSecs,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// Flush archives every transition counter under
// models.TransitionSnapshotName and deletes the archived rows. Nothing is
// deleted if the archive write fails.
func (f *Flusher) Flush(ctx context.Context) (models.FlushSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.FlushSnapshot{}, err
	}
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	rows, err := f.transitions.ScanAll(ctx)
	if err != nil {
		err = fmt.Errorf("scan transitions: %w", err)
		metrics.RecordFlush("transitions", 0, time.Since(start), err)
		return models.FlushSnapshot{}, err
	}
	if rows == nil {
		rows = []models.TransitionCounter{}
	}

	snap := models.FlushSnapshot{
		UpdateTime:         f.updateTime(),
		UpdateID:           f.newID(),
		UpdateIntervalSecs: f.intervalSecs,
		Transitions:        rows,
	}
	if err := f.put(ctx, models.TransitionSnapshotName, snap); err != nil {
		metrics.RecordFlush("transitions", 0, time.Since(start), err)
		return models.FlushSnapshot{}, err
	}

	for _, row := range rows {
		if err := f.transitions.Delete(ctx, row.Key()); err != nil {
			err = fmt.Errorf("delete transition %s: %w", row.Key(), err)
			metrics.RecordFlush("transitions", len(rows), time.Since(start), err)
			return snap, err
		}
	}

	metrics.RecordFlush("transitions", len(rows), time.Since(start), nil)
	logging.Ctx(ctx).Info().
		Str("update_id", snap.UpdateID).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Transition counters flushed")
	return snap, nil
}

// FlushPopulationSnapshot archives the player count of every level with at
// least one player under models.PopulationSnapshotName. Counters are not
// reset.
func (f *Flusher) FlushPopulationSnapshot(ctx context.Context) (models.PopulationSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.PopulationSnapshot{}, err
	}
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	rows, err := f.populations.ScanAll(ctx, func(p models.LevelPopulation) bool {
		return p.PlayerCount > 0
	})
	if err != nil {
		err = fmt.Errorf("scan populations: %w", err)
		metrics.RecordFlush("populations", 0, time.Since(start), err)
		return models.PopulationSnapshot{}, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.LevelID] = r.PlayerCount
	}
	snap := models.PopulationSnapshot{
		UpdateTime:         f.updateTime(),
		UpdateID:           f.newID(),
		UpdateIntervalSecs: f.intervalSecs,
		LevelPlayerCounts:  counts,
	}
	if err := f.put(ctx, models.PopulationSnapshotName, snap); err != nil {
		metrics.RecordFlush("populations", 0, time.Since(start), err)
		return models.PopulationSnapshot{}, err
	}

	metrics.RecordFlush("populations", len(rows), time.Since(start), nil)
	logging.Ctx(ctx).Info().
		Str("update_id", snap.UpdateID).
		Int("levels", len(rows)).
		Msg("Level population snapshot written")
	return snap, nil
}

// FlushAll runs Flush and then FlushPopulationSnapshot. A failed transition
// flush does not prevent the population snapshot.
func (f *Flusher) FlushAll(ctx context.Context) error {
	_, terr := f.Flush(ctx)
	_, perr := f.FlushPopulationSnapshot(ctx)
	return errors.Join(terr, perr)
}

func (f *Flusher) updateTime() string {
	return f.now().UTC().Truncate(time.Second).Format(updateTimeLayout)
}

func (f *Flusher) put(ctx context.Context, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := f.archive.Put(ctx, name, data); err != nil {
		if errors.Is(err, archive.ErrUnavailable) {
			return fmt.Errorf("archive %s: %w: %w", name, store.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("archive %s: %w", name, err)
	}
	return nil
}
