// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package eventprocessor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/levelstate/internal/decoder"
	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
	"github.com/tomtom215/levelstate/internal/presence"
	"github.com/tomtom215/levelstate/internal/store"
)

// SightingApplier is implemented by presence.Updater.
type SightingApplier interface {
	ApplyEvent(ctx context.Context, playerID string, levelID *string, eventTimeMillis int64) (presence.Result, error)
}

// BatchStats summarizes one processed message.
type BatchStats struct {
	Records        int
	DecodeFailures int
	Sightings      int
	Applied        int
	Rejected       int
	Failed         int
}

// summaryLevel is Info when any record or sighting was skipped, so the
// failure count is visible at the default log level.
func (s BatchStats) summaryLevel() zerolog.Level {
	if s.DecodeFailures+s.Failed > 0 {
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}

// EventBatchHandler applies a batch of enriched event records to the
// presence table. Each message payload holds newline-separated records.
type EventBatchHandler struct {
	decoder   *decoder.Decoder
	extractor *decoder.Extractor
	updater   SightingApplier
}

// NewEventBatchHandler creates a handler.
func NewEventBatchHandler(dec *decoder.Decoder, extractor *decoder.Extractor, updater SightingApplier) *EventBatchHandler {
	return &EventBatchHandler{decoder: dec, extractor: extractor, updater: updater}
}

// Handle implements message.NoPublishHandlerFunc.
//
// Records that fail to decode, and sightings the updater refuses as invalid,
// are logged and skipped. Only a store.ErrStoreUnavailable fails the message.
// The batch is processed to completion even if the message context is
// canceled.
func (h *EventBatchHandler) Handle(msg *message.Message) error {
	ctx := logging.ContextWithNewCorrelationID(context.WithoutCancel(msg.Context()))
	ctx = logging.ContextWithLogger(ctx, logging.LoggerFromContext(msg.Context()).With().Str("message_uuid", msg.UUID).Logger())

	start := time.Now()
	stats, err := h.Process(ctx, msg.Payload)
	metrics.RecordBatch(time.Since(start))
	if err != nil {
		metrics.RecordNATSMessage(TopicEnrichedEvents, "failed")
		return err
	}
	metrics.RecordNATSMessage(TopicEnrichedEvents, "processed")

	logging.Ctx(ctx).WithLevel(stats.summaryLevel()).
		Int("records", stats.Records).
		Int("decode_failures", stats.DecodeFailures).
		Int("sightings", stats.Sightings).
		Int("applied", stats.Applied).
		Int("rejected", stats.Rejected).
		Int("failed", stats.Failed).
		Dur("duration", time.Since(start)).
		Msg("Event batch processed")
	return nil
}

// Process applies every record in payload.
func (h *EventBatchHandler) Process(ctx context.Context, payload []byte) (BatchStats, error) {
	var stats BatchStats
	log := logging.Ctx(ctx)

	for i, line := range bytes.Split(payload, []byte{'\n'}) {
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		stats.Records++

		ev, err := h.decoder.Decode(line)
		metrics.RecordDecode(err)
		if err != nil {
			stats.DecodeFailures++
			log.Warn().Err(err).Int("line", i).Msg("Skipping undecodable record")
			continue
		}

		sightings, err := h.extractor.Extract(ctx, ev)
		if err != nil {
			stats.DecodeFailures++
			log.Warn().Err(err).Int("line", i).Str("event_id", ev.String("event_id")).Msg("Skipping record without usable timestamp")
			continue
		}

		for _, s := range sightings {
			stats.Sightings++
			level := s.LevelID
			result, err := h.updater.ApplyEvent(ctx, s.PlayerID, &level, s.EventTimeMillis)
			switch {
			case err == nil && result == presence.Applied:
				stats.Applied++
			case err == nil:
				stats.Rejected++
			case errors.Is(err, store.ErrStoreUnavailable):
				return stats, fmt.Errorf("apply sighting for player %s: %w", s.PlayerID, err)
			default:
				stats.Failed++
				log.Warn().Err(err).Str("player_id", s.PlayerID).Str("level_id", s.LevelID).Msg("Skipping sighting")
			}
		}
	}
	return stats, nil
}
