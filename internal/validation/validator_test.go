// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package validation

import (
	"strings"
	"testing"
)

type sample struct {
	PlayerID string  `validate:"required"`
	LevelID  *string `validate:"omitempty,levelid"`
	At       int64   `validate:"gte=0"`
	Mode     string  `validate:"omitempty,oneof=direct stream"`
}

func ptr(s string) *string { return &s }

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{"valid", sample{PlayerID: "p", LevelID: ptr("dungeon"), At: 1}, ""},
		{"absent level", sample{PlayerID: "p"}, ""},
		{"missing player", sample{LevelID: ptr("l")}, "PlayerID is required"},
		{"separator in level", sample{PlayerID: "p", LevelID: ptr("a/b")}, "LevelID must be a non-empty level id"},
		{"empty level", sample{PlayerID: "p", LevelID: ptr("")}, "LevelID must be a non-empty level id"},
		{"negative time", sample{PlayerID: "p", At: -1}, "At must be greater than or equal to 0"},
		{"bad mode", sample{PlayerID: "p", Mode: "batch"}, "Mode must be one of: direct stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_NilInterface(t *testing.T) {
	t.Parallel()

	if err := Validate(&sample{PlayerID: "p"}); err != nil {
		t.Errorf("expected untyped nil, got %#v", err)
	}
	err := Validate(&sample{})
	verr, ok := err.(*RequestValidationError)
	if !ok {
		t.Fatalf("expected *RequestValidationError, got %T", err)
	}
	if _, ok := verr.Details()["fields"]; !ok {
		t.Error("expected fields in details")
	}
}
