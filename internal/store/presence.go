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

// PresenceStore is the per-player presence table.
type PresenceStore struct {
	db *DB
}

// Predicate inspects the current row of a conditional write; current is nil
// when no row exists.
type Predicate func(current *models.PlayerPresence) bool

// Get returns the presence row for playerID, or ErrNotFound.
func (s *PresenceStore) Get(ctx context.Context, playerID string) (*models.PlayerPresence, error) {
	if playerID == "" {
		return nil, ErrInvalidKey
	}
	var row *models.PlayerPresence
	err := s.db.view(ctx, "presence.get", func(txn *badger.Txn) error {
		var err error
		row, err = getPresence(txn, playerID)
		if err != nil {
			return err
		}
		if row == nil {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// CompareAndSwap stores next for playerID if cond accepts the current row,
// and returns the row it replaced (nil when there was none). If cond rejects
// the current row nothing is written and ErrConditionFailed is returned.
func (s *PresenceStore) CompareAndSwap(ctx context.Context, playerID string, cond Predicate, next *models.PlayerPresence) (*models.PlayerPresence, error) {
	if playerID == "" || next == nil {
		return nil, ErrInvalidKey
	}
	stored := *next
	stored.PlayerID = playerID

	var previous *models.PlayerPresence
	err := s.db.update(ctx, "presence.cas", func(txn *badger.Txn) error {
		current, err := getPresence(txn, playerID)
		if err != nil {
			return err
		}
		if !cond(current) {
			return ErrConditionFailed
		}
		previous = current
		return putPresence(txn, &stored)
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// DeleteIf removes the row for playerID if cond accepts it and returns the
// deleted row. A missing row or a rejected predicate yields ErrConditionFailed.
func (s *PresenceStore) DeleteIf(ctx context.Context, playerID string, cond Predicate) (*models.PlayerPresence, error) {
	if playerID == "" {
		return nil, ErrInvalidKey
	}
	var deleted *models.PlayerPresence
	err := s.db.update(ctx, "presence.delete", func(txn *badger.Txn) error {
		current, err := getPresence(txn, playerID)
		if err != nil {
			return err
		}
		if current == nil || !cond(current) {
			return ErrConditionFailed
		}
		deleted = current
		return txn.Delete([]byte(prefixPresence + playerID))
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ClearPending removes the pending level change from playerID's row if it is
// still changeID. It is a no-op when the row is gone or holds another change.
func (s *PresenceStore) ClearPending(ctx context.Context, playerID, changeID string) error {
	if playerID == "" {
		return ErrInvalidKey
	}
	return s.db.update(ctx, "presence.clear_pending", func(txn *badger.Txn) error {
		current, err := getPresence(txn, playerID)
		if err != nil {
			return err
		}
		if current == nil || current.Pending == nil || current.Pending.ID != changeID {
			return nil
		}
		current.Pending = nil
		return putPresence(txn, current)
	})
}

// Scan returns one page of presence rows.
func (s *PresenceStore) Scan(ctx context.Context, opts ScanOptions[*models.PlayerPresence]) (Page[*models.PlayerPresence], error) {
	return scanPage(ctx, s.db, "presence.scan", prefixPresence, opts, func(key string, val []byte) (*models.PlayerPresence, error) {
		row, err := decodeJSON[models.PlayerPresence](val)
		if err != nil {
			return nil, err
		}
		row.PlayerID = key
		return &row, nil
	})
}

// ScanAll drains every page matching filter.
func (s *PresenceStore) ScanAll(ctx context.Context, filter func(*models.PlayerPresence) bool) ([]*models.PlayerPresence, error) {
	return scanAll(ctx, ScanOptions[*models.PlayerPresence]{Filter: filter}, s.Scan)
}

func getPresence(txn *badger.Txn, playerID string) (*models.PlayerPresence, error) {
	item, err := txn.Get([]byte(prefixPresence + playerID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get presence: %w", err)
	}
	var row models.PlayerPresence
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &row)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal presence: %w", err)
	}
	row.PlayerID = playerID
	return &row, nil
}

func putPresence(txn *badger.Txn, row *models.PlayerPresence) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	return txn.Set([]byte(prefixPresence+row.PlayerID), data)
}
