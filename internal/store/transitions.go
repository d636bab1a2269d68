// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/levelstate/internal/models"
)

// TransitionStore is the transition counter table.
type TransitionStore struct {
	db *DB
}

// Increment adds one to the counter for key, creating it with the present
// endpoints if needed. It reports false, without changing anything, when
// deltaID was already applied.
func (s *TransitionStore) Increment(ctx context.Context, key models.TransitionKey, deltaID string) (bool, error) {
	if key.BothAbsent() || deltaID == "" {
		return false, ErrInvalidKey
	}
	rowKey := []byte(prefixTransition + key.String())

	var applied bool
	err := s.db.update(ctx, "transition.increment", func(txn *badger.Txn) error {
		applied = false
		fresh, err := s.db.markApplied(txn, deltaID)
		if err != nil || !fresh {
			return err
		}

		row, err := getTransition(txn, rowKey)
		if err != nil {
			return err
		}
		if row == nil {
			row = &models.TransitionCounter{LevelFrom: key.From, LevelTo: key.To}
		}
		row.Count++

		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal transition: %w", err)
		}
		if err := txn.Set(rowKey, data); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Get returns the counter for key, or ErrNotFound.
func (s *TransitionStore) Get(ctx context.Context, key models.TransitionKey) (models.TransitionCounter, error) {
	var out models.TransitionCounter
	err := s.db.view(ctx, "transition.get", func(txn *badger.Txn) error {
		row, err := getTransition(txn, []byte(prefixTransition+key.String()))
		if err != nil {
			return err
		}
		if row == nil {
			return ErrNotFound
		}
		out = *row
		return nil
	})
	return out, err
}

// Delete removes the counter for key. Deleting a missing key is not an error.
func (s *TransitionStore) Delete(ctx context.Context, key models.TransitionKey) error {
	return s.db.update(ctx, "transition.delete", func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixTransition + key.String()))
	})
}

// Scan returns one page of counters.
func (s *TransitionStore) Scan(ctx context.Context, opts ScanOptions[models.TransitionCounter]) (Page[models.TransitionCounter], error) {
	return scanPage(ctx, s.db, "transition.scan", prefixTransition, opts, func(_ string, val []byte) (models.TransitionCounter, error) {
		return decodeJSON[models.TransitionCounter](val)
	})
}

// ScanAll drains every counter.
func (s *TransitionStore) ScanAll(ctx context.Context) ([]models.TransitionCounter, error) {
	return scanAll(ctx, ScanOptions[models.TransitionCounter]{}, s.Scan)
}

func getTransition(txn *badger.Txn, key []byte) (*models.TransitionCounter, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transition: %w", err)
	}
	var row models.TransitionCounter
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &row)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal transition: %w", err)
	}
	return &row, nil
}
