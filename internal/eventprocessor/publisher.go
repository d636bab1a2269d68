// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/levelstate/internal/metrics"
)

// Publisher wraps a Watermill publisher with a circuit breaker.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a JetStream publisher. The stream must already exist.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := connectionOptions("publisher", cfg.MaxReconnects, cfg.ReconnectWait, logger)
	natsOpts = append(natsOpts, natsgo.ReconnectBufSize(cfg.ReconnectBuffer))

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return NewPublisherFrom(pub, logger), nil
}

// NewPublisherFrom wraps an existing Watermill publisher.
func NewPublisherFrom(pub message.Publisher, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{publisher: pub, logger: logger}
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish sends msg to topic. The message UUID doubles as the JetStream
// Nats-Msg-Id so a republish inside the duplicate window is dropped.
func (p *Publisher) Publish(_ context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
	} else {
		err = p.publisher.Publish(topic, msg)
	}

	if err != nil {
		metrics.RecordNATSMessage(topic, "publish_failed")
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	metrics.RecordNATSMessage(topic, "published")
	return nil
}

// PublishJSON marshals v and publishes it with the given message id.
func (p *Publisher) PublishJSON(ctx context.Context, topic, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	msg := message.NewMessage(id, data)
	msg.Metadata.Set("content_type", "application/json")
	return p.Publish(ctx, topic, msg)
}

// Close shuts down the publisher. Further calls are no-ops.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// WatermillPublisher returns the underlying Watermill publisher, for
// middleware that needs a plain message.Publisher.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}

// HealthCheck implements HealthCheckable.
func (p *Publisher) HealthCheck(_ context.Context) ComponentHealth {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return ComponentHealth{Healthy: false, Error: "publisher is closed"}
	}
	details := map[string]interface{}{}
	if p.circuitBreaker != nil {
		state := CircuitBreakerState(p.circuitBreaker)
		details["circuit_breaker"] = state
		if state == gobreaker.StateOpen.String() {
			return ComponentHealth{Healthy: true, Degraded: true, Message: "circuit breaker open", Details: details}
		}
	}
	return ComponentHealth{Healthy: true, Message: "publisher is operational", Details: details}
}
