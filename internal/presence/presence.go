// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package presence applies player sightings to the presence table and turns
// level changes into transition and population counter updates.
//
// Three workers live here:
//
//   - Updater accepts a sighting only if it is newer than the stored one.
//   - Recorder turns one level change into exactly-once counter deltas.
//   - Reaper removes presence rows that have gone quiet and records the
//     implied departure.
//
// None of them hold state between calls. Coordination happens only through
// the stores' conditional writes.
//
// A level change is written into the presence row (PlayerPresence.Pending)
// in the same compare-and-swap that accepts the sighting, then delivered to
// the ChangeNotifier and cleared. A delivery that fails leaves the change in
// the row, and the next touch of that row delivers it again.
package presence

import (
	"context"
	"errors"

	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/store"
)

var (
	// ErrInvariantViolation is returned for a level change without an id,
	// which could not be deduplicated.
	ErrInvariantViolation = errors.New("invariant violation: unrecordable level change")

	// ErrInvalidInput is returned for sightings that fail validation.
	ErrInvalidInput = errors.New("invalid presence input")
)

// Result is the outcome of Updater.ApplyEvent.
type Result int

const (
	// Rejected means a row with an equal or newer timestamp already exists.
	Rejected Result = iota

	// Applied means the sighting replaced the stored presence.
	Applied
)

// String returns the result name.
func (r Result) String() string {
	if r == Applied {
		return "applied"
	}
	return "rejected"
}

// PresenceStore is the subset of store.PresenceStore used here.
type PresenceStore interface {
	Get(ctx context.Context, playerID string) (*models.PlayerPresence, error)
	CompareAndSwap(ctx context.Context, playerID string, cond store.Predicate, next *models.PlayerPresence) (*models.PlayerPresence, error)
	DeleteIf(ctx context.Context, playerID string, cond store.Predicate) (*models.PlayerPresence, error)
	ClearPending(ctx context.Context, playerID, changeID string) error
	Scan(ctx context.Context, opts store.ScanOptions[*models.PlayerPresence]) (store.Page[*models.PlayerPresence], error)
}

// TransitionStore is the subset of store.TransitionStore used here.
type TransitionStore interface {
	Increment(ctx context.Context, key models.TransitionKey, deltaID string) (bool, error)
}

// PopulationStore is the subset of store.PopulationStore used here.
type PopulationStore interface {
	Add(ctx context.Context, levelID string, delta int64, deltaID string) (store.AddResult, error)
}

// ChangeNotifier receives level changes. Recorder is the in-process
// implementation; the event processor provides one that publishes to NATS.
type ChangeNotifier interface {
	OnLevelChange(ctx context.Context, change models.LevelChange) error
}

// ChangeNotifierFunc adapts a function to ChangeNotifier.
type ChangeNotifierFunc func(ctx context.Context, change models.LevelChange) error

// OnLevelChange calls f.
func (f ChangeNotifierFunc) OnLevelChange(ctx context.Context, change models.LevelChange) error {
	return f(ctx, change)
}

// deliver hands a pending change to n and clears it from the presence row.
func deliver(ctx context.Context, presences PresenceStore, n ChangeNotifier, change models.LevelChange) error {
	if err := n.OnLevelChange(ctx, change); err != nil {
		return err
	}
	return presences.ClearPending(ctx, change.PlayerID, change.ID)
}

func pendingID(p *models.PlayerPresence) string {
	if p == nil || p.Pending == nil {
		return ""
	}
	return p.Pending.ID
}
