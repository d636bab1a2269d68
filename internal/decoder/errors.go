// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package decoder

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for sighting extraction.
var (
	// ErrMissingTimestamp is returned when an event carrying level sightings has no collector_tstamp.
	ErrMissingTimestamp = errors.New("event has no collector timestamp")

	// ErrInvalidTimestamp is returned when collector_tstamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("invalid collector timestamp")
)

// FieldError describes why one column of a record could not be converted.
// Field is empty for record-level problems such as a wrong column count.
type FieldError struct {
	Field   string
	Value   string
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("field %s (%q): %s", e.Field, e.Value, e.Message)
}

// DecodeError carries every field error found in one record.
type DecodeError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "decode enriched event: " + strings.Join(msgs, "; ")
}

// IsDecodeError reports whether err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
