// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package store keeps presence, transition and population state in BadgerDB.
//
// The three tables share one database and are separated by key prefix:
//
//	presence:<playerID>       -> models.PlayerPresence
//	transition:<from>/<to>    -> models.TransitionCounter
//	population:<levelID>      -> populationRow
//	applied:<deltaID>         -> empty marker with TTL
//
// Every mutation is a single-row read-modify-write inside one Badger
// transaction. Badger's optimistic concurrency rejects a commit whose reads
// were invalidated by a concurrent commit (badger.ErrConflict); the store
// re-runs such a transaction, which re-evaluates its predicate against the
// new value. This gives per-row compare-and-swap without cross-row locking.
//
// Counter deltas carry an id. The id is recorded as a marker in the same
// transaction as the counter update, so re-applying a delta is a no-op.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
)

const (
	prefixPresence   = "presence:"
	prefixTransition = "transition:"
	prefixPopulation = "population:"
	prefixApplied    = "applied:"
)

// DB owns the BadgerDB handle shared by the three stores.
type DB struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the state database.
func Open(cfg *Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.NumCompactors = cfg.NumCompactors
	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("State store opened")

	return &DB{db: db, config: *cfg}, nil
}

// Presences returns the presence table.
func (d *DB) Presences() *PresenceStore {
	return &PresenceStore{db: d}
}

// Transitions returns the transition counter table.
func (d *DB) Transitions() *TransitionStore {
	return &TransitionStore{db: d}
}

// Populations returns the level population table.
func (d *DB) Populations() *PopulationStore {
	return &PopulationStore{db: d}
}

// IsOpen reports whether the database is usable.
func (d *DB) IsOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.closed
}

// Ping reports ErrClosed after Close.
func (d *DB) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.IsOpen() {
		return ErrClosed
	}
	return nil
}

// RunGC runs value log garbage collection until nothing is left to rewrite.
func (d *DB) RunGC() error {
	if !d.IsOpen() {
		return ErrClosed
	}
	for {
		err := d.db.RunValueLogGC(d.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close closes the database, waiting at most CloseTimeout.
func (d *DB) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	timeout := d.config.CloseTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	d.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- d.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("State store closed")
		return nil
	case <-time.After(timeout):
		logging.Warn().Dur("timeout", timeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}

// update runs fn in a read-write transaction, re-running it on write conflicts.
// Sentinel outcomes returned by fn pass through unchanged; anything else is
// reported as ErrStoreUnavailable.
func (d *DB) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := d.begin(ctx); err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		err := d.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) && attempt < d.config.ConflictRetries {
			metrics.RecordStoreConflict(op)
			continue
		}
		return classify(op, err)
	}
}

// view runs fn in a read-only snapshot transaction.
func (d *DB) view(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := d.begin(ctx); err != nil {
		return err
	}
	return classify(op, d.db.View(fn))
}

func (d *DB) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.IsOpen() {
		return ErrClosed
	}
	return nil
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConditionFailed),
		errors.Is(err, ErrInvalidPageToken),
		errors.Is(err, ErrInvalidKey),
		errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}

// markApplied records deltaID inside txn. It reports false when the marker
// already exists, meaning the delta was applied before.
func (d *DB) markApplied(txn *badger.Txn, deltaID string) (bool, error) {
	key := []byte(prefixApplied + deltaID)
	_, err := txn.Get(key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return false, fmt.Errorf("read marker: %w", err)
	}
	entry := badger.NewEntry(key, nil).WithTTL(d.config.MarkerTTL)
	if err := txn.SetEntry(entry); err != nil {
		return false, fmt.Errorf("write marker: %w", err)
	}
	return true, nil
}
