// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package eventprocessor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/levelstate/internal/decoder"
	"github.com/tomtom215/levelstate/internal/store"
)

func setupDB(t *testing.T) *store.DB {
	t.Helper()
	cfg := store.DefaultConfig()
	cfg.Path = ""
	cfg.InMemory = true
	cfg.MemTableSize = 16 * 1024 * 1024
	cfg.ValueLogFileSize = 16 * 1024 * 1024
	db, err := store.Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// sightingRecord returns an enriched event record placing player in level
// at the given collector time ("2006-01-02 15:04:05.000").
func sightingRecord(t *testing.T, player, level, collectorTstamp string) string {
	t.Helper()
	values := map[string]string{
		"event_id":         fmt.Sprintf("ev-%s-%s-%s", player, level, collectorTstamp),
		"collector_tstamp": collectorTstamp,
		"contexts": `{"schema":"iglu:com.snowplowanalytics.snowplow/contexts/jsonschema/1-0-0","data":[` +
			`{"schema":"iglu:com.codecombat/level_context/jsonschema/1-0-0","data":{"user_id":"` + player + `","level_slug":"` + level + `"}}]}`,
	}
	cols := make([]string, len(decoder.EnrichedEventSchema))
	seen := 0
	for i, f := range decoder.EnrichedEventSchema {
		if v, ok := values[f.Name]; ok {
			cols[i] = v
			seen++
		}
	}
	if seen != len(values) {
		t.Fatalf("sightingRecord: schema is missing %d fields", len(values)-seen)
	}
	return strings.Join(cols, "\t")
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var bg = context.Background()
