// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package decoder

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
)

// DefaultLevelContextKey is the decoded field holding the level contexts.
const DefaultLevelContextKey = "contexts_com_codecombat_level_context_1"

// TimestampSource selects which clock stamps a sighting.
type TimestampSource string

const (
	// TimestampCollector uses the event's collector_tstamp.
	TimestampCollector TimestampSource = "collector"

	// TimestampIngest uses the wall clock at extraction time.
	TimestampIngest TimestampSource = "ingest"
)

// Sighting is one observation of a player in a level.
type Sighting struct {
	PlayerID        string
	LevelID         string
	EventTimeMillis int64
}

// Extractor pulls level sightings out of decoded events.
type Extractor struct {
	key    string
	source TimestampSource
	now    func() time.Time
}

// NewExtractor returns an Extractor reading the given context key.
// An empty key selects DefaultLevelContextKey.
func NewExtractor(key string, source TimestampSource) *Extractor {
	if key == "" {
		key = DefaultLevelContextKey
	}
	if source == "" {
		source = TimestampCollector
	}
	return &Extractor{key: key, source: source, now: time.Now}
}

// Extract returns the well-formed sightings in ev. Entries without a non-null
// user_id and level_slug are logged and skipped. Events without the level
// context yield no sightings and no error. An error is returned only when the
// event carries sightings but no usable timestamp.
func (x *Extractor) Extract(ctx context.Context, ev Event) ([]Sighting, error) {
	raw, ok := ev[x.key]
	if !ok {
		logging.Ctx(ctx).Trace().Str("key", x.key).Msg("event has no level context")
		return nil, nil
	}
	entries, ok := raw.([]interface{})
	if !ok {
		metrics.RecordSightingSkipped("malformed_context")
		logging.Ctx(ctx).Warn().Str("key", x.key).Msg("level context is not a list")
		return nil, nil
	}

	var (
		sightings []Sighting
		ts        int64
		tsLoaded  bool
	)
	for _, entry := range entries {
		doc, ok := entry.(map[string]interface{})
		if !ok {
			metrics.RecordSightingSkipped("malformed_context")
			logging.Ctx(ctx).Warn().Str("key", x.key).Msg("level context entry in unexpected format")
			continue
		}
		userRaw, hasUser := doc["user_id"]
		levelRaw, hasLevel := doc["level_slug"]
		if !hasUser || !hasLevel {
			metrics.RecordSightingSkipped("missing_field")
			logging.Ctx(ctx).Warn().Str("key", x.key).Msg("level context entry has no user_id or level_slug")
			continue
		}
		playerID, pOK := userRaw.(string)
		levelID, lOK := levelRaw.(string)
		if !pOK || !lOK || playerID == "" || levelID == "" {
			metrics.RecordSightingSkipped("null_value")
			logging.Ctx(ctx).Debug().
				Interface("user_id", userRaw).
				Interface("level_slug", levelRaw).
				Msg("level context entry is missing a player id or level id")
			continue
		}

		if !tsLoaded {
			var err error
			if ts, err = x.timestamp(ev); err != nil {
				return nil, err
			}
			tsLoaded = true
		}
		sightings = append(sightings, Sighting{PlayerID: playerID, LevelID: levelID, EventTimeMillis: ts})
	}
	return sightings, nil
}

func (x *Extractor) timestamp(ev Event) (int64, error) {
	if x.source == TimestampIngest {
		return x.now().UnixMilli(), nil
	}
	raw := ev.String("collector_tstamp")
	if raw == "" {
		return 0, ErrMissingTimestamp
	}
	return ParseTimestampMillis(raw)
}

// ParseTimestampMillis parses a converted timestamp field ("2006-01-02T15:04:05.000Z")
// into epoch milliseconds. Sub-millisecond precision is truncated.
func ParseTimestampMillis(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	return t.UnixMilli(), nil
}
