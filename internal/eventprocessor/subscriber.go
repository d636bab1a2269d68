// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// Subscriber wraps a durable JetStream Watermill subscriber.
type Subscriber struct {
	subscriber message.Subscriber
	config     SubscriberConfig
}

// NewSubscriber creates a durable, queue-grouped JetStream subscriber that
// delivers from the start of the stream. Messages are acked synchronously
// once the handler returns without error.
func NewSubscriber(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: subscriber config required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverAll(),
	}

	// With a stream name the consumer binds to PLAYER_EVENTS; without one
	// Watermill provisions a stream per topic, which only tests rely on.
	js := wmNats.JetStreamConfig{
		AutoProvision: cfg.StreamName == "",
		DurablePrefix: cfg.DurableName,
	}
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
	}
	js.SubscribeOptions = subOpts

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      connectionOptions("subscriber", cfg.MaxReconnects, cfg.ReconnectWait, logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        js,
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return &Subscriber{subscriber: sub, config: *cfg}, nil
}

// Subscribe returns a channel of messages for the given topic.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, topic)
}

// Close shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// WatermillSubscriber returns the underlying Watermill subscriber.
func (s *Subscriber) WatermillSubscriber() message.Subscriber {
	return s.subscriber
}

// connectionOptions are the reconnect settings shared by the publisher and
// the subscriber connections. role labels their log lines.
func connectionOptions(role string, maxReconnects int, wait time.Duration, logger watermill.LoggerAdapter) []natsgo.Option {
	fields := watermill.LogFields{"role": role}
	return []natsgo.Option{
		natsgo.Name("levelstate-" + role),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.ReconnectWait(wait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS connection lost", err, fields)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS connection restored", fields.Add(watermill.LogFields{"url": nc.ConnectedUrl()}))
		}),
	}
}
