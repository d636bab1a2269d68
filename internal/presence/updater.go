// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/store"
	"github.com/tomtom215/levelstate/internal/validation"
)

// maxSwapAttempts bounds the read/compare-and-swap loop for one sighting.
const maxSwapAttempts = 64

type applyInput struct {
	PlayerID        string  `validate:"required"`
	LevelID         *string `validate:"omitempty,levelid"`
	EventTimeMillis int64   `validate:"gte=0"`
}

// Updater applies sightings to the presence table.
type Updater struct {
	presences PresenceStore
	notifier  ChangeNotifier
	newID     func() string
}

// NewUpdater returns an Updater that reports level changes to notifier.
func NewUpdater(presences PresenceStore, notifier ChangeNotifier) *Updater {
	return &Updater{
		presences: presences,
		notifier:  notifier,
		newID:     func() string { return uuid.New().String() },
	}
}

// ApplyEvent records that playerID was in levelID (nil: in no level) at
// eventTimeMillis. The write is accepted only if no row exists or the stored
// timestamp is strictly older; otherwise the result is Rejected and nothing
// changes. When an accepted write changes the level, the change is delivered
// to the notifier before ApplyEvent returns.
//
// Errors are either ErrInvalidInput, a delivery error from the notifier, or a
// store.ErrStoreUnavailable; all of them leave the store consistent and the
// call may be repeated.
func (u *Updater) ApplyEvent(ctx context.Context, playerID string, levelID *string, eventTimeMillis int64) (Result, error) {
	in := applyInput{PlayerID: playerID, LevelID: levelID, EventTimeMillis: eventTimeMillis}
	if verr := validation.ValidateStruct(&in); verr != nil {
		return Rejected, fmt.Errorf("%w: %v", ErrInvalidInput, verr)
	}

	log := logging.Ctx(ctx).With().Str("player_id", playerID).Int64("event_time", eventTimeMillis).Logger()

	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		current, err := u.presences.Get(ctx, playerID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Rejected, err
		}

		// An undelivered change must reach the notifier before the row can
		// move on, or it would be overwritten.
		if current != nil && current.Pending != nil {
			metrics.RecordOutboxRedrive()
			log.Debug().Str("change_id", current.Pending.ID).Msg("Delivering pending level change")
			if err := deliver(ctx, u.presences, u.notifier, *current.Pending); err != nil {
				return Rejected, fmt.Errorf("deliver pending change: %w", err)
			}
			continue
		}

		if current != nil && current.LastUpdated >= eventTimeMillis {
			metrics.RecordPresenceUpdate(false)
			log.Debug().Int64("stored_time", current.LastUpdated).Msg("Level change ignored, a newer record exists")
			return Rejected, nil
		}

		var oldLevel *string
		if current != nil {
			oldLevel = current.LevelID
		}
		next := &models.PlayerPresence{LevelID: levelID, LastUpdated: eventTimeMillis}
		var change *models.LevelChange
		if !models.SameLevel(oldLevel, levelID) {
			change = &models.LevelChange{
				ID:        u.newID(),
				PlayerID:  playerID,
				From:      oldLevel,
				To:        levelID,
				ChangedAt: eventTimeMillis,
			}
			next.Pending = change
		}

		_, err = u.presences.CompareAndSwap(ctx, playerID, unchangedSince(current), next)
		if errors.Is(err, store.ErrConditionFailed) {
			continue
		}
		if err != nil {
			return Rejected, err
		}

		metrics.RecordPresenceUpdate(true)
		log.Debug().
			Str("from", models.Deref(oldLevel)).
			Str("to", models.Deref(levelID)).
			Bool("level_changed", change != nil).
			Msg("Presence applied")

		if change != nil {
			if err := deliver(ctx, u.presences, u.notifier, *change); err != nil {
				return Applied, fmt.Errorf("deliver level change: %w", err)
			}
		}
		return Applied, nil
	}

	return Rejected, fmt.Errorf("%w: presence for %s kept changing", store.ErrStoreUnavailable, playerID)
}

// unchangedSince accepts the row only if it is still the one observed.
func unchangedSince(observed *models.PlayerPresence) store.Predicate {
	return func(current *models.PlayerPresence) bool {
		if observed == nil || current == nil {
			return observed == nil && current == nil
		}
		return current.LastUpdated == observed.LastUpdated &&
			models.SameLevel(current.LevelID, observed.LevelID) &&
			pendingID(current) == pendingID(observed)
	}
}
