// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package models

// Archive object names written by the flusher.
const (
	TransitionSnapshotName = "transition_information.json"
	PopulationSnapshotName = "level_information.json"
)

// FlushSnapshot is the archived result of one transition flush.
// UpdateTime is RFC3339 UTC with second precision and a trailing "Z".
type FlushSnapshot struct {
	UpdateTime         string              `json:"update_time"`
	UpdateID           string              `json:"update_id"`
	UpdateIntervalSecs int                 `json:"update_interval_secs"`
	Transitions        []TransitionCounter `json:"transitions"`
}

// PopulationSnapshot is the archived level population view. It is written
// without resetting anything.
type PopulationSnapshot struct {
	UpdateTime         string           `json:"update_time"`
	UpdateID           string           `json:"update_id"`
	UpdateIntervalSecs int              `json:"update_interval_secs"`
	LevelPlayerCounts  map[string]int64 `json:"level_player_counts"`
}
