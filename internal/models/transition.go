// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTransitionKey is returned when a serialized key has no separator.
var ErrMalformedTransitionKey = errors.New("malformed transition key")

// transitionSeparator joins the endpoints of a serialized key. Level ids are
// validated to never contain it.
const transitionSeparator = "/"

// TransitionKey identifies a directed transition between two optional levels.
// A nil endpoint means "not in any level". Both endpoints nil is never a valid
// transition.
type TransitionKey struct {
	From *string
	To   *string
}

// BothAbsent reports whether neither endpoint is set.
func (k TransitionKey) BothAbsent() bool {
	return k.From == nil && k.To == nil
}

// String renders "from/to" with an empty string for a missing endpoint.
func (k TransitionKey) String() string {
	return Deref(k.From) + transitionSeparator + Deref(k.To)
}

// ParseTransitionKey reverses String. An empty side parses as nil.
func ParseTransitionKey(s string) (TransitionKey, error) {
	from, to, ok := strings.Cut(s, transitionSeparator)
	if !ok {
		return TransitionKey{}, fmt.Errorf("%w: %q", ErrMalformedTransitionKey, s)
	}
	var k TransitionKey
	if from != "" {
		k.From = StringPtr(from)
	}
	if to != "" {
		k.To = StringPtr(to)
	}
	return k, nil
}

// TransitionCounter is a stored transition row. The JSON field names match the
// archived snapshot rows.
type TransitionCounter struct {
	LevelFrom *string `json:"from"`
	LevelTo   *string `json:"to"`
	Count     int64   `json:"count"`
}

// Key returns the counter's transition key.
func (c TransitionCounter) Key() TransitionKey {
	return TransitionKey{From: c.LevelFrom, To: c.LevelTo}
}
