// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package models holds the data types shared by the stores, workers and
// HTTP surface: presence rows, level changes, transition counters, level
// populations and the archive snapshots.
package models

// PlayerPresence is the last known level of one player.
//
// LastUpdated is the event time in epoch milliseconds of the write that
// produced the row. A write carrying a LastUpdated less than or equal to the
// stored value is stale and never applied.
type PlayerPresence struct {
	PlayerID    string       `json:"player_id"`
	LevelID     *string      `json:"level_id"`
	LastUpdated int64        `json:"last_updated"`
	Pending     *LevelChange `json:"pending,omitempty"`
}

// HasLevel reports whether the player is currently placed in a level.
func (p *PlayerPresence) HasLevel() bool {
	return p != nil && p.LevelID != nil
}

// LevelChange is emitted whenever a player's level changes, including
// implicit departures (To == nil) produced by the stale reaper.
//
// ID identifies the change across redeliveries; every counter delta derived
// from the change is keyed by it.
type LevelChange struct {
	ID        string  `json:"id"`
	PlayerID  string  `json:"player_id"`
	From      *string `json:"from"`
	To        *string `json:"to"`
	ChangedAt int64   `json:"changed_at"`
}

// Key returns the transition this change contributes to.
func (c LevelChange) Key() TransitionKey {
	return TransitionKey{From: c.From, To: c.To}
}

// IsNoop reports whether old and new level are identical.
func (c LevelChange) IsNoop() bool {
	return SameLevel(c.From, c.To)
}

// LevelPopulation is the count of players currently in a level.
type LevelPopulation struct {
	LevelID     string `json:"level_id"`
	PlayerCount int64  `json:"player_count"`
}

// SameLevel compares two optional level ids.
func SameLevel(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns *s, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
