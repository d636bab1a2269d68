// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package store

import "time"

// Config holds BadgerDB settings for the state store.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	Path string

	// InMemory keeps everything in memory. Path is ignored.
	InMemory bool

	// SyncWrites forces fsync after every commit.
	SyncWrites bool

	// MemTableSize is the size of each memtable in bytes.
	MemTableSize int64

	// ValueLogFileSize is the size of each value log file in bytes.
	ValueLogFileSize int64

	// NumCompactors is the number of compaction workers (BadgerDB minimum: 2).
	NumCompactors int

	// Compression enables Snappy compression.
	Compression bool

	// MarkerTTL is how long an applied-delta marker is kept. A change that is
	// redelivered after its markers expire would be counted again, so this must
	// comfortably exceed the transport's redelivery horizon.
	MarkerTTL time.Duration

	// ConflictRetries bounds how often a single-row transaction is re-run
	// after a write conflict before the store reports itself unavailable.
	ConflictRetries int

	// GCRatio is the discard ratio for value log garbage collection.
	GCRatio float64

	// CloseTimeout bounds Close.
	CloseTimeout time.Duration
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/levelstate",
		SyncWrites:       true,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		Compression:      true,
		MarkerTTL:        24 * time.Hour,
		ConflictRetries:  16,
		GCRatio:          0.5,
		CloseTimeout:     30 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return &ConfigError{Field: "Path", Message: "store path is required"}
	}
	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2"}
	}
	if c.MarkerTTL < time.Minute {
		return &ConfigError{Field: "MarkerTTL", Message: "must be at least 1 minute"}
	}
	if c.ConflictRetries < 1 {
		return &ConfigError{Field: "ConflictRetries", Message: "must be at least 1"}
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be between 0 and 1"}
	}
	return nil
}

// ConfigError reports an invalid store setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "store config error: " + e.Field + ": " + e.Message
}
