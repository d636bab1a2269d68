// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package config

import "time"

// Config holds all service configuration. It is immutable after Load and
// safe for concurrent reads.
type Config struct {
	Logging LoggingConfig `koanf:"logging"`
	Store   StoreConfig   `koanf:"store"`
	Reaper  ReaperConfig  `koanf:"reaper"`
	Flusher FlusherConfig `koanf:"flusher"`
	Archive ArchiveConfig `koanf:"archive"`
	NATS    NATSConfig    `koanf:"nats"`
	Decoder DecoderConfig `koanf:"decoder"`
	Changes ChangesConfig `koanf:"changes"`
	Server  ServerConfig  `koanf:"server"`
}

// LoggingConfig controls the zerolog global logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// StoreConfig configures the Badger state store.
type StoreConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`

	// MarkerTTL is how long applied-delta markers are kept. It must exceed
	// the longest time a level change can still be redelivered.
	MarkerTTL time.Duration `koanf:"marker_ttl" validate:"gte=1m"`

	// GCInterval is how often value log garbage collection runs. Zero disables it.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gte=0"`
}

// ReaperConfig configures the stale presence reaper.
type ReaperConfig struct {
	// StaleThresholdSeconds is the age after which a presence row is removed.
	StaleThresholdSeconds int `koanf:"stale_threshold_seconds" validate:"gt=0"`

	// Interval is how often the reaper runs.
	Interval time.Duration `koanf:"interval" validate:"gte=1s"`

	// PageSize is the scan page size.
	PageSize int `koanf:"page_size" validate:"gte=1,lte=10000"`
}

// StaleThreshold returns StaleThresholdSeconds as a duration.
func (r ReaperConfig) StaleThreshold() time.Duration {
	return time.Duration(r.StaleThresholdSeconds) * time.Second
}

// FlusherConfig configures the transition flusher.
type FlusherConfig struct {
	// IntervalSeconds is the flush period, also written into each snapshot.
	IntervalSeconds int `koanf:"interval_seconds" validate:"gt=0"`

	// PopulationSnapshot also writes level_information.json on every flush.
	PopulationSnapshot bool `koanf:"population_snapshot"`
}

// Interval returns IntervalSeconds as a duration.
func (f FlusherConfig) Interval() time.Duration {
	return time.Duration(f.IntervalSeconds) * time.Second
}

// ArchiveConfig selects where flush snapshots are written.
type ArchiveConfig struct {
	// Backend is file or objectstore.
	Backend string `koanf:"backend" validate:"oneof=file objectstore"`

	// Dir is the target directory of the file backend.
	Dir string `koanf:"dir"`

	// Bucket is the JetStream object store bucket of the objectstore backend.
	Bucket string `koanf:"bucket"`

	// BreakerFailureThreshold is the number of consecutive failed writes
	// that opens the circuit breaker.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold" validate:"gte=1"`

	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration `koanf:"breaker_timeout" validate:"gte=1s"`
}

// NATSConfig configures the event transport.
type NATSConfig struct {
	// URL is the NATS server URL. Ignored when EmbeddedServer is set.
	URL string `koanf:"url"`

	// EmbeddedServer runs NATS with JetStream in-process.
	EmbeddedServer bool `koanf:"embedded_server"`

	// Host and Port of the embedded server's client listener.
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"gte=-1,lte=65535"`

	// StoreDir is the JetStream storage directory of the embedded server.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory and MaxStore limit the embedded JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory" validate:"gte=0"`
	MaxStore  int64 `koanf:"max_store" validate:"gte=0"`

	// StreamRetention is how long events are kept in the stream.
	StreamRetention time.Duration `koanf:"stream_retention" validate:"gte=1m"`

	// SubscribersCount is the number of concurrent message processors.
	SubscribersCount int `koanf:"subscribers_count" validate:"gte=1,lte=256"`

	DurableName string `koanf:"durable_name" validate:"required"`
	QueueGroup  string `koanf:"queue_group" validate:"required"`

	// MaxDeliver bounds JetStream redeliveries of one message.
	MaxDeliver int `koanf:"max_deliver" validate:"gte=1"`

	// AckWait is how long JetStream waits for an ack before redelivering.
	AckWait time.Duration `koanf:"ack_wait" validate:"gte=1s"`

	// Router retry and throttle settings.
	RouterRetryCount           int           `koanf:"router_retry_count" validate:"gte=0"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval" validate:"gte=0"`
	RouterThrottlePerSecond    int64         `koanf:"router_throttle_per_second" validate:"gte=0"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout" validate:"gte=0"`
}

// DecoderConfig configures event decoding.
type DecoderConfig struct {
	// LevelContextKey is the decoded context field carrying level sightings.
	LevelContextKey string `koanf:"level_context_key" validate:"required"`

	// TimestampSource is collector (event collector_tstamp) or ingest
	// (wall clock when the record is processed).
	TimestampSource string `koanf:"timestamp_source" validate:"oneof=collector ingest"`
}

// ChangesConfig selects how level changes reach the transition recorder.
type ChangesConfig struct {
	// Mode is direct (in-process) or stream (via the presence.changes topic).
	Mode string `koanf:"mode" validate:"oneof=direct stream"`
}

// ServerConfig configures the operational HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gte=1s"`

	// MaintenanceRateLimit is the number of maintenance requests allowed
	// per MaintenanceRateWindow per client.
	MaintenanceRateLimit  int           `koanf:"maintenance_rate_limit" validate:"gte=1"`
	MaintenanceRateWindow time.Duration `koanf:"maintenance_rate_window" validate:"gte=1s"`
}

// Load is LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
