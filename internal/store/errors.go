// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package store

import "errors"

var (
	// ErrNotFound is returned when a key has no row.
	ErrNotFound = errors.New("not found")

	// ErrConditionFailed is returned when a conditional write or delete
	// found a row that does not satisfy its predicate. It is an expected
	// concurrency outcome, not a failure.
	ErrConditionFailed = errors.New("condition failed")

	// ErrStoreUnavailable wraps every infrastructure failure. Callers treat
	// it as transient and retry the whole invocation.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrClosed is returned after Close. It also matches ErrStoreUnavailable.
	ErrClosed = errors.Join(ErrStoreUnavailable, errors.New("store closed"))

	// ErrInvalidPageToken is returned when a continuation token does not
	// belong to the scanned table.
	ErrInvalidPageToken = errors.New("invalid page token")

	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("invalid key")
)
