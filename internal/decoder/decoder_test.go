// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package decoder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// buildRecord returns a record with every column empty except those in values.
func buildRecord(t *testing.T, values map[string]string) []byte {
	t.Helper()

	cols := make([]string, len(EnrichedEventSchema))
	seen := 0
	for i, f := range EnrichedEventSchema {
		if v, ok := values[f.Name]; ok {
			cols[i] = v
			seen++
		}
	}
	if seen != len(values) {
		t.Fatalf("buildRecord: %d of %d field names are not in the schema", len(values)-seen, len(values))
	}
	return []byte(strings.Join(cols, "\t"))
}

const levelContexts = `{"schema":"iglu:com.snowplowanalytics.snowplow/contexts/jsonschema/1-0-0","data":[` +
	`{"schema":"iglu:com.codecombat/level_context/jsonschema/1-0-0","data":{"user_id":"p1","level_slug":"dungeons-of-kithgard"}},` +
	`{"schema":"iglu:com.codecombat/level_context/jsonschema/1-0-0","data":{"user_id":"p2","level_slug":"gems-in-the-deep"}},` +
	`{"schema":"iglu:com.acme/sessionInfo/jsonschema/2-1-0","data":{"session":7}}]}`

func TestSchemaArity(t *testing.T) {
	t.Parallel()

	if got := len(EnrichedEventSchema); got != 131 {
		t.Fatalf("expected 131 fields, got %d", got)
	}
	if EnrichedEventSchema[latitudeIndex].Name != "geo_latitude" {
		t.Errorf("latitude index points at %s", EnrichedEventSchema[latitudeIndex].Name)
	}
	if EnrichedEventSchema[longitudeIndex].Name != "geo_longitude" {
		t.Errorf("longitude index points at %s", EnrichedEventSchema[longitudeIndex].Name)
	}
}

func TestDecode_TypedFields(t *testing.T) {
	t.Parallel()

	rec := buildRecord(t, map[string]string{
		"app_id":           "levels",
		"collector_tstamp": "2017-03-01 10:20:30.456",
		"txn_id":           "42",
		"geo_latitude":     "51.5",
		"geo_longitude":    "-0.12",
		"br_cookies":       "1",
		"dvce_ismobile":    "0",
		"contexts":         levelContexts,
	})

	ev, err := New().Decode(rec)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if ev["app_id"] != "levels" {
		t.Errorf("app_id = %v", ev["app_id"])
	}
	if ev["collector_tstamp"] != "2017-03-01T10:20:30.456Z" {
		t.Errorf("collector_tstamp = %v", ev["collector_tstamp"])
	}
	if ev["txn_id"] != int64(42) {
		t.Errorf("txn_id = %#v", ev["txn_id"])
	}
	if ev["geo_latitude"] != 51.5 {
		t.Errorf("geo_latitude = %#v", ev["geo_latitude"])
	}
	if ev["geo_location"] != "51.5,-0.12" {
		t.Errorf("geo_location = %v", ev["geo_location"])
	}
	if ev["br_cookies"] != true || ev["dvce_ismobile"] != false {
		t.Errorf("bools = %v %v", ev["br_cookies"], ev["dvce_ismobile"])
	}
	if _, ok := ev["platform"]; ok {
		t.Error("empty column should be omitted")
	}

	levels, ok := ev["contexts_com_codecombat_level_context_1"].([]interface{})
	if !ok || len(levels) != 2 {
		t.Fatalf("expected 2 grouped level contexts, got %#v", ev["contexts_com_codecombat_level_context_1"])
	}
	first := levels[0].(map[string]interface{})
	if first["user_id"] != "p1" {
		t.Errorf("group order not preserved: %v", first)
	}
	if _, ok := ev["contexts_com_acme_session_info_2"]; !ok {
		t.Error("expected contexts_com_acme_session_info_2")
	}
}

func TestDecode_NoGeoWithoutBothCoordinates(t *testing.T) {
	t.Parallel()

	ev, err := New().Decode(buildRecord(t, map[string]string{"geo_latitude": "10"}))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := ev["geo_location"]; ok {
		t.Error("geo_location should need both coordinates")
	}
}

func TestDecode_ArityMismatch(t *testing.T) {
	t.Parallel()

	_, err := New().Decode([]byte("a\tb\tc"))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if len(de.Errors) != 1 || !strings.Contains(de.Errors[0].Message, "expected 131 fields, received 3 fields") {
		t.Errorf("unexpected errors: %v", de.Errors)
	}
}

func TestDecode_CollectsAllFieldErrors(t *testing.T) {
	t.Parallel()

	rec := buildRecord(t, map[string]string{
		"br_cookies":     "yes",
		"txn_id":         "x1",
		"geo_latitude":   "north",
		"contexts":       `{"schema":"s","data":{}}`,
		"unstruct_event": `{"data":{"schema":"iglu:com.acme/click/jsonschema/1-0-0"}}`,
	})

	_, err := New().Decode(rec)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}

	got := map[string]bool{}
	for _, fe := range de.Errors {
		got[fe.Field] = true
	}
	for _, want := range []string{"br_cookies", "txn_id", "geo_latitude", "contexts", "unstruct_event"} {
		if !got[want] {
			t.Errorf("missing error for %s in %v", want, de.Errors)
		}
	}
	if !IsDecodeError(err) {
		t.Error("IsDecodeError should report true")
	}
}

func TestDecode_BadContextSchema(t *testing.T) {
	t.Parallel()

	rec := buildRecord(t, map[string]string{
		"contexts": `{"data":[{"schema":"not a schema","data":{}}]}`,
	})
	_, err := New().Decode(rec)
	if err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("expected schema mismatch error, got %v", err)
	}
}

func TestDecode_Unstruct(t *testing.T) {
	t.Parallel()

	rec := buildRecord(t, map[string]string{
		"unstruct_event": `{"schema":"iglu:com.snowplowanalytics.snowplow/unstruct_event/jsonschema/1-0-0",` +
			`"data":{"schema":"iglu:com.snowplowanalytics.snowplow/link_click/jsonschema/1-0-1","data":{"key":"value"}}}`,
	})
	ev, err := New().Decode(rec)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	payload, ok := ev["unstruct_event_com_snowplowanalytics_snowplow_link_click_1"].(map[string]interface{})
	if !ok || payload["key"] != "value" {
		t.Errorf("unexpected unstruct payload: %#v", ev)
	}
}

func TestNormalizeSchemaName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		schema string
		want   string
	}{
		{"unstruct_event", "com.acme.Test/linkClick/jsonschema/1-0-1", "unstruct_event_com_acme_test_link_click_1"},
		{"contexts", "iglu:com.acme/unduplicated/jsonschema/1-0-0", "contexts_com_acme_unduplicated_1"},
		{"contexts", "iglu:com.codecombat/level_context/jsonschema/1-0-0", "contexts_com_codecombat_level_context_1"},
		{"contexts", "iglu:com.acme/aBcD/jsonschema/10-2-0", "contexts_com_acme_a_bc_d_10"},
		{"contexts", "iglu:com.acme/ABTest/jsonschema/1-0-0", "contexts_com_acme_abtest_1"},
	}
	for _, tt := range tests {
		t.Run(tt.schema, func(t *testing.T) {
			got, err := NormalizeSchemaName(tt.prefix, tt.schema)
			if err != nil {
				t.Fatalf("NormalizeSchemaName: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := NormalizeSchemaName("contexts", "iglu:com.acme/only-two"); err == nil {
		t.Error("expected error for malformed schema")
	}
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	rec := buildRecord(t, map[string]string{
		"collector_tstamp": "2017-03-01 10:20:30.456",
		"contexts": `{"data":[` +
			`{"schema":"iglu:com.codecombat/level_context/jsonschema/1-0-0","data":{"user_id":"p1","level_slug":"l1"}},` +
			`{"schema":"iglu:com.codecombat/level_context/jsonschema/1-0-0","data":{"user_id":null,"level_slug":"l2"}},` +
			`{"schema":"iglu:com.codecombat/level_context/jsonschema/1-0-0","data":{"level_slug":"l3"}}]}`,
	})
	ev, err := New().Decode(rec)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, err := NewExtractor("", TimestampCollector).Extract(context.Background(), ev)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := time.Date(2017, 3, 1, 10, 20, 30, 456_000_000, time.UTC).UnixMilli()
	if len(got) != 1 {
		t.Fatalf("expected 1 sighting, got %d: %v", len(got), got)
	}
	if got[0].PlayerID != "p1" || got[0].LevelID != "l1" || got[0].EventTimeMillis != want {
		t.Errorf("unexpected sighting %+v (want t=%d)", got[0], want)
	}
}

func TestExtractor_NoContextAndIngestClock(t *testing.T) {
	t.Parallel()

	x := NewExtractor("", TimestampIngest)
	fixed := time.UnixMilli(99_000)
	x.now = func() time.Time { return fixed }

	got, err := x.Extract(context.Background(), Event{"app_id": "x"})
	if err != nil || got != nil {
		t.Fatalf("expected nothing, got %v, %v", got, err)
	}

	ev := Event{DefaultLevelContextKey: []interface{}{map[string]interface{}{"user_id": "p", "level_slug": "l"}}}
	got, err = x.Extract(context.Background(), ev)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 || got[0].EventTimeMillis != 99_000 {
		t.Errorf("expected ingest timestamp, got %v", got)
	}
}

func TestExtractor_MissingTimestamp(t *testing.T) {
	t.Parallel()

	ev := Event{DefaultLevelContextKey: []interface{}{map[string]interface{}{"user_id": "p", "level_slug": "l"}}}
	_, err := NewExtractor("", TimestampCollector).Extract(context.Background(), ev)
	if !errors.Is(err, ErrMissingTimestamp) {
		t.Errorf("expected ErrMissingTimestamp, got %v", err)
	}

	ev["collector_tstamp"] = "yesterday"
	_, err = NewExtractor("", TimestampCollector).Extract(context.Background(), ev)
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("expected ErrInvalidTimestamp, got %v", err)
	}
}
