// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package models

import "time"

// APIResponse is the envelope of every JSON response on the ops surface.
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error body.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MaintenanceResult reports the outcome of a manually triggered job.
type MaintenanceResult struct {
	Job        string    `json:"job"`
	RanAt      time.Time `json:"ran_at"`
	DurationMS int64     `json:"duration_ms"`
	Runs       int64     `json:"runs"`
	Failures   int64     `json:"failures"`
}

// PlayerView is the API rendering of a presence row.
type PlayerView struct {
	PlayerID    string  `json:"player_id"`
	LevelID     *string `json:"level_id"`
	LastUpdated int64   `json:"last_updated"`
	Pending     bool    `json:"pending_change"`
}
