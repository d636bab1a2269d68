// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package presence

import (
	"context"
	"fmt"

	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
	"github.com/tomtom215/levelstate/internal/models"
)

// Delta id suffixes. Each level change produces at most one delta of each
// kind, so change.ID plus the suffix identifies it across redeliveries.
const (
	deltaTransition = "/transition"
	deltaDepart     = "/depart"
	deltaArrive     = "/arrive"
)

// Recorder turns level changes into transition and population deltas. It is
// safe to deliver the same change more than once.
type Recorder struct {
	transitions TransitionStore
	populations PopulationStore
}

// NewRecorder returns a Recorder writing to the given stores.
func NewRecorder(transitions TransitionStore, populations PopulationStore) *Recorder {
	return &Recorder{transitions: transitions, populations: populations}
}

// OnLevelChange records change: one increment of the (from, to) transition
// counter, a decrement of the source population and an increment of the
// destination population. Changes between equal levels, including two
// absent levels, are ignored.
func (r *Recorder) OnLevelChange(ctx context.Context, change models.LevelChange) error {
	if change.IsNoop() {
		return nil
	}
	if change.ID == "" {
		return fmt.Errorf("%w: change without id for player %s", ErrInvariantViolation, change.PlayerID)
	}
	key := change.Key()

	log := logging.Ctx(ctx).With().
		Str("change_id", change.ID).
		Str("player_id", change.PlayerID).
		Str("transition", key.String()).
		Logger()

	applied, err := r.transitions.Increment(ctx, key, change.ID+deltaTransition)
	if err != nil {
		return fmt.Errorf("increment transition %s: %w", key, err)
	}
	if !applied {
		metrics.RecordDeltaDuplicate("transition")
	}

	if change.From != nil {
		res, err := r.populations.Add(ctx, *change.From, -1, change.ID+deltaDepart)
		if err != nil {
			return fmt.Errorf("decrement population of %s: %w", *change.From, err)
		}
		if !res.Applied {
			metrics.RecordDeltaDuplicate("population")
		}
		if res.Clamped {
			metrics.RecordPopulationClamp()
			log.Warn().Str("level_id", *change.From).Msg("Population decrement below zero clamped")
		}
	}

	if change.To != nil {
		res, err := r.populations.Add(ctx, *change.To, 1, change.ID+deltaArrive)
		if err != nil {
			return fmt.Errorf("increment population of %s: %w", *change.To, err)
		}
		if !res.Applied {
			metrics.RecordDeltaDuplicate("population")
		}
	}

	metrics.RecordLevelChange(changeShape(key))
	log.Debug().Msg("Level change recorded")
	return nil
}

func changeShape(key models.TransitionKey) string {
	switch {
	case key.From == nil:
		return "arrival"
	case key.To == nil:
		return "departure"
	default:
		return "transition"
	}
}
