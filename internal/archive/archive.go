// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package archive stores snapshot documents under fixed object names.
//
// An archive keeps only the latest document for a name: Put overwrites.
// Nothing in the service reads snapshots back; operators and downstream
// jobs consume them directly from the backend.
//
// Backends:
//   - FileArchive writes files into a local directory.
//   - ObjectStoreArchive writes objects into a NATS JetStream object store bucket.
//
// Breaker wraps either backend with a circuit breaker.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable is returned when the backend cannot be reached or the
	// breaker in front of it is open.
	ErrUnavailable = errors.New("archive unavailable")

	// ErrInvalidName is returned for object names that are empty or contain
	// a path separator.
	ErrInvalidName = errors.New("invalid archive object name")
)

// Archive is a last-writer-wins put-by-name object store.
type Archive interface {
	Put(ctx context.Context, name string, data []byte) error
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
