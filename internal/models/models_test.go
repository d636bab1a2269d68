// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package models

import (
	"errors"
	"testing"
)

func TestTransitionKey_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  TransitionKey
		want string
	}{
		{"both present", TransitionKey{From: StringPtr("dungeon-1"), To: StringPtr("forest-2")}, "dungeon-1/forest-2"},
		{"arrival", TransitionKey{To: StringPtr("dungeon-1")}, "/dungeon-1"},
		{"departure", TransitionKey{From: StringPtr("dungeon-1")}, "dungeon-1/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			parsed, err := ParseTransitionKey(tt.want)
			if err != nil {
				t.Fatalf("ParseTransitionKey: %v", err)
			}
			if !SameLevel(parsed.From, tt.key.From) || !SameLevel(parsed.To, tt.key.To) {
				t.Errorf("ParseTransitionKey(%q) = %v, want %v", tt.want, parsed, tt.key)
			}
		})
	}
}

func TestParseTransitionKey_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseTransitionKey("no-separator")
	if !errors.Is(err, ErrMalformedTransitionKey) {
		t.Errorf("expected ErrMalformedTransitionKey, got %v", err)
	}
}

func TestSameLevel(t *testing.T) {
	t.Parallel()

	a := StringPtr("a")
	if !SameLevel(nil, nil) {
		t.Error("nil/nil should be equal")
	}
	if SameLevel(a, nil) || SameLevel(nil, a) {
		t.Error("present/absent should differ")
	}
	if !SameLevel(a, StringPtr("a")) {
		t.Error("equal ids should compare equal")
	}
	if (LevelChange{From: a, To: StringPtr("a")}).IsNoop() != true {
		t.Error("same-level change should be a no-op")
	}
	if !(TransitionKey{}).BothAbsent() {
		t.Error("empty key should be both-absent")
	}
}
