// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package eventprocessor

import (
	"fmt"
	"time"
)

// Subjects used by the service.
const (
	TopicEnrichedEvents = "events.enriched"
	TopicLevelChanges   = "presence.changes"
	TopicPoison         = "events.poison"
)

// ChangeMode selects how accepted level changes reach the Recorder.
type ChangeMode string

const (
	// ChangeModeDirect calls the Recorder in-process.
	ChangeModeDirect ChangeMode = "direct"

	// ChangeModeStream publishes changes to TopicLevelChanges and records
	// them from a router handler.
	ChangeModeStream ChangeMode = "stream"
)

// NATSConfig holds the NATS settings of the service.
type NATSConfig struct {
	// URL is the NATS server connection URL. Ignored when EmbeddedServer is set.
	URL string

	// EmbeddedServer starts an in-process NATS server with JetStream.
	EmbeddedServer bool

	// Server configures the embedded server.
	Server ServerConfig

	// Stream, Subscriber, Router and Breaker configure the pipeline.
	Stream     StreamConfig
	Subscriber SubscriberConfig
	Router     RouterConfig
	Breaker    CircuitBreakerConfig

	// ChangeMode selects direct or stream level change delivery.
	ChangeMode ChangeMode
}

// DefaultNATSConfig returns production defaults.
func DefaultNATSConfig() NATSConfig {
	url := "nats://127.0.0.1:4222"
	return NATSConfig{
		URL:            url,
		EmbeddedServer: true,
		Server:         DefaultServerConfig(),
		Stream:         DefaultStreamConfig(),
		Subscriber:     DefaultSubscriberConfig(url),
		Router:         DefaultRouterConfig(),
		Breaker:        DefaultCircuitBreakerConfig("nats-publisher"),
		ChangeMode:     ChangeModeDirect,
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *NATSConfig) Validate() error {
	if !c.EmbeddedServer && c.URL == "" {
		return fmt.Errorf("%w: NATS URL required without embedded server", ErrInvalidConfig)
	}
	if c.ChangeMode != ChangeModeDirect && c.ChangeMode != ChangeModeStream {
		return fmt.Errorf("%w: unknown change mode %q", ErrInvalidConfig, c.ChangeMode)
	}
	if c.Stream.Name == "" || len(c.Stream.Subjects) == 0 {
		return fmt.Errorf("%w: stream name and subjects required", ErrInvalidConfig)
	}
	if c.Subscriber.SubscribersCount < 1 {
		return fmt.Errorf("%w: subscribers count must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
	NoLog             bool
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20, // 256MB
		JetStreamMaxStore: 4 << 30,   // 4GB
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// StreamName binds the consumer to an existing stream instead of
	// letting Watermill provision one per topic.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "levelstate",
		QueueGroup:       "levelstate",
		SubscribersCount: 4,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       10,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		StreamName:       "PLAYER_EVENTS",
	}
}

// StreamConfig defines the player event stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
	MemoryStorage   bool
}

// DefaultStreamConfig returns production stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name: "PLAYER_EVENTS",
		Subjects: []string{
			"events.>",
			"presence.>",
		},
		MaxAge:          24 * time.Hour,
		MaxBytes:        2 << 30, // 2GB
		MaxMsgs:         -1,      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// Throttle configuration (messages per second, 0 = disabled)
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that failed permanently.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     30 * time.Second,
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    0,
		PoisonQueueTopic:     TopicPoison,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
