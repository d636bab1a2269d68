// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/presence"
	"github.com/tomtom215/levelstate/internal/store"
)

// JSONPublisher is implemented by Publisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, topic, id string, v interface{}) error
}

// ChangePublisher is a presence.ChangeNotifier that publishes each level
// change to the change topic. The change id is the message id, so JetStream
// drops a republish inside its duplicate window.
type ChangePublisher struct {
	pub   JSONPublisher
	topic string
}

// NewChangePublisher creates a ChangePublisher. An empty topic selects
// TopicLevelChanges.
func NewChangePublisher(pub JSONPublisher, topic string) (*ChangePublisher, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if topic == "" {
		topic = TopicLevelChanges
	}
	return &ChangePublisher{pub: pub, topic: topic}, nil
}

// OnLevelChange implements presence.ChangeNotifier. A failed publish is
// reported as store.ErrStoreUnavailable so the triggering message is retried;
// the change stays in the presence row until then.
func (c *ChangePublisher) OnLevelChange(ctx context.Context, change models.LevelChange) error {
	if err := c.pub.PublishJSON(ctx, c.topic, change.ID, change); err != nil {
		return fmt.Errorf("%w: publish level change %s: %v", store.ErrStoreUnavailable, change.ID, err)
	}
	return nil
}

// ChangeHandler feeds level changes from the change topic to a
// ChangeNotifier, normally presence.Recorder.
type ChangeHandler struct {
	recorder presence.ChangeNotifier
}

// NewChangeHandler creates a ChangeHandler.
func NewChangeHandler(recorder presence.ChangeNotifier) *ChangeHandler {
	return &ChangeHandler{recorder: recorder}
}

// Handle implements message.NoPublishHandlerFunc. Malformed payloads and
// changes without endpoints are permanent failures.
func (h *ChangeHandler) Handle(msg *message.Message) error {
	ctx := logging.ContextWithNewCorrelationID(context.WithoutCancel(msg.Context()))

	var change models.LevelChange
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		metrics.RecordNATSMessage(TopicLevelChanges, "malformed")
		return NewPermanentError("malformed level change", err)
	}
	if change.ID == "" || change.PlayerID == "" {
		metrics.RecordNATSMessage(TopicLevelChanges, "malformed")
		return NewPermanentError("level change without id or player", nil)
	}

	err := h.recorder.OnLevelChange(ctx, change)
	switch {
	case err == nil:
		metrics.RecordNATSMessage(TopicLevelChanges, "processed")
		return nil
	case errors.Is(err, presence.ErrInvariantViolation):
		metrics.RecordNATSMessage(TopicLevelChanges, "invalid")
		logging.Ctx(ctx).Error().Err(err).Str("change_id", change.ID).Msg("Dropping level change")
		return NewPermanentError("record level change", err)
	default:
		metrics.RecordNATSMessage(TopicLevelChanges, "failed")
		return fmt.Errorf("record level change %s: %w", change.ID, err)
	}
}
