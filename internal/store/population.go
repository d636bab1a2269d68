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

// PopulationStore is the per-level player count table.
type PopulationStore struct {
	db *DB
}

type populationRow struct {
	PlayerCount int64 `json:"player_count"`
}

// AddResult describes the outcome of PopulationStore.Add.
type AddResult struct {
	// Applied is false when the delta had been applied before.
	Applied bool

	// Count is the stored count after the operation.
	Count int64

	// Clamped is true when the delta would have taken the count below zero.
	Clamped bool
}

// Add applies delta to levelID's count exactly once per deltaID. A missing
// row starts at zero and the result never goes below zero.
func (s *PopulationStore) Add(ctx context.Context, levelID string, delta int64, deltaID string) (AddResult, error) {
	if levelID == "" || deltaID == "" {
		return AddResult{}, ErrInvalidKey
	}
	key := []byte(prefixPopulation + levelID)

	var res AddResult
	err := s.db.update(ctx, "population.add", func(txn *badger.Txn) error {
		res = AddResult{}
		row, err := getPopulation(txn, key)
		if err != nil {
			return err
		}
		res.Count = row.PlayerCount

		fresh, err := s.db.markApplied(txn, deltaID)
		if err != nil || !fresh {
			return err
		}

		next := row.PlayerCount + delta
		if next < 0 {
			next = 0
			res.Clamped = true
		}
		data, err := json.Marshal(populationRow{PlayerCount: next})
		if err != nil {
			return fmt.Errorf("marshal population: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		res.Applied = true
		res.Count = next
		return nil
	})
	if err != nil {
		return AddResult{}, err
	}
	return res, nil
}

// Get returns the population of levelID, or ErrNotFound if it was never touched.
func (s *PopulationStore) Get(ctx context.Context, levelID string) (models.LevelPopulation, error) {
	out := models.LevelPopulation{LevelID: levelID}
	err := s.db.view(ctx, "population.get", func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(prefixPopulation + levelID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		row, err := getPopulation(txn, []byte(prefixPopulation+levelID))
		if err != nil {
			return err
		}
		out.PlayerCount = row.PlayerCount
		return nil
	})
	return out, err
}

// Scan returns one page of level populations.
func (s *PopulationStore) Scan(ctx context.Context, opts ScanOptions[models.LevelPopulation]) (Page[models.LevelPopulation], error) {
	return scanPage(ctx, s.db, "population.scan", prefixPopulation, opts, func(key string, val []byte) (models.LevelPopulation, error) {
		row, err := decodeJSON[populationRow](val)
		if err != nil {
			return models.LevelPopulation{}, err
		}
		return models.LevelPopulation{LevelID: key, PlayerCount: row.PlayerCount}, nil
	})
}

// ScanAll drains every population row matching filter.
func (s *PopulationStore) ScanAll(ctx context.Context, filter func(models.LevelPopulation) bool) ([]models.LevelPopulation, error) {
	return scanAll(ctx, ScanOptions[models.LevelPopulation]{Filter: filter}, s.Scan)
}

// getPopulation returns a zero row when key is missing.
func getPopulation(txn *badger.Txn, key []byte) (populationRow, error) {
	var row populationRow
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return row, nil
	}
	if err != nil {
		return row, fmt.Errorf("get population: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &row)
	})
	if err != nil {
		return row, fmt.Errorf("unmarshal population: %w", err)
	}
	return row, nil
}
