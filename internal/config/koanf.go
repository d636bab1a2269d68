// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/levelstate/config.yaml",
	"/etc/levelstate/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

const (
	staleThresholdEnvVar       = "STALE_THRESHOLD_SECONDS"
	legacyStaleThresholdEnvVar = "DELETE_OLDER_THAN_SECS"
	legacyStaleThresholdKey    = "reaper.delete_older_than_secs"
)

// defaultConfig returns the built-in defaults. They are applied first, then
// overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Store: StoreConfig{
			Path:       "/data/levelstate",
			InMemory:   false,
			SyncWrites: true,
			MarkerTTL:  24 * time.Hour,
			GCInterval: 10 * time.Minute,
		},
		Reaper: ReaperConfig{
			StaleThresholdSeconds: 300,
			Interval:              time.Minute,
			PageSize:              500,
		},
		Flusher: FlusherConfig{
			IntervalSeconds:    60,
			PopulationSnapshot: true,
		},
		Archive: ArchiveConfig{
			Backend:                 "file",
			Dir:                     "/data/archive",
			Bucket:                  "levelstate-archive",
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		NATS: NATSConfig{
			URL:                        "nats://127.0.0.1:4222",
			EmbeddedServer:             true,
			Host:                       "127.0.0.1",
			Port:                       4222,
			StoreDir:                   "/data/nats/jetstream",
			MaxMemory:                  256 << 20, // 256MB
			MaxStore:                   4 << 30,   // 4GB
			StreamRetention:            24 * time.Hour,
			SubscribersCount:           4,
			DurableName:                "levelstate",
			QueueGroup:                 "levelstate",
			MaxDeliver:                 10,
			AckWait:                    30 * time.Second,
			RouterRetryCount:           5,
			RouterRetryInitialInterval: 500 * time.Millisecond,
			RouterThrottlePerSecond:    0,
			RouterPoisonQueueTopic:     "events.poison",
			RouterCloseTimeout:         30 * time.Second,
		},
		Decoder: DecoderConfig{
			LevelContextKey: "contexts_com_codecombat_level_context_1",
			TimestampSource: "collector",
		},
		Changes: ChangesConfig{
			Mode: "direct",
		},
		Server: ServerConfig{
			Host:                  "0.0.0.0",
			Port:                  8080,
			Timeout:               30 * time.Second,
			MaintenanceRateLimit:  10,
			MaintenanceRateWindow: time.Minute,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
// defaults, then the optional YAML file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := applyLegacyKeys(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// applyLegacyKeys honours DELETE_OLDER_THAN_SECS unless the current name is
// also set.
func applyLegacyKeys(k *koanf.Koanf) error {
	if !k.Exists(legacyStaleThresholdKey) {
		return nil
	}
	if _, ok := os.LookupEnv(staleThresholdEnvVar); ok {
		return nil
	}
	if err := k.Set("reaper.stale_threshold_seconds", k.Get(legacyStaleThresholdKey)); err != nil {
		return fmt.Errorf("failed to apply %s: %w", legacyStaleThresholdEnvVar, err)
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Store
	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_sync_writes": "store.sync_writes",
	"store_marker_ttl":  "store.marker_ttl",
	"store_gc_interval": "store.gc_interval",

	// Reaper
	"stale_threshold_seconds": "reaper.stale_threshold_seconds",
	"delete_older_than_secs":  legacyStaleThresholdKey,
	"reaper_interval":         "reaper.interval",
	"reaper_page_size":        "reaper.page_size",

	// Flusher
	"flush_interval_seconds":    "flusher.interval_seconds",
	"flush_population_snapshot": "flusher.population_snapshot",

	// Archive
	"archive_backend":                   "archive.backend",
	"archive_dir":                       "archive.dir",
	"archive_bucket":                    "archive.bucket",
	"archive_breaker_failure_threshold": "archive.breaker_failure_threshold",
	"archive_breaker_timeout":           "archive.breaker_timeout",

	// NATS
	"nats_url":                   "nats.url",
	"nats_embedded":              "nats.embedded_server",
	"nats_host":                  "nats.host",
	"nats_port":                  "nats.port",
	"nats_store_dir":             "nats.store_dir",
	"nats_max_memory":            "nats.max_memory",
	"nats_max_store":             "nats.max_store",
	"nats_retention":             "nats.stream_retention",
	"nats_subscribers":           "nats.subscribers_count",
	"nats_durable_name":          "nats.durable_name",
	"nats_queue_group":           "nats.queue_group",
	"nats_max_deliver":           "nats.max_deliver",
	"nats_ack_wait":              "nats.ack_wait",
	"nats_router_retry_count":    "nats.router_retry_count",
	"nats_router_retry_interval": "nats.router_retry_initial_interval",
	"nats_router_throttle":       "nats.router_throttle_per_second",
	"nats_router_poison_topic":   "nats.router_poison_queue_topic",
	"nats_router_close_timeout":  "nats.router_close_timeout",

	// Decoder and change delivery
	"level_context_key": "decoder.level_context_key",
	"timestamp_source":  "decoder.timestamp_source",
	"changes_mode":      "changes.mode",

	// HTTP server
	"http_host":               "server.host",
	"http_port":               "server.port",
	"http_timeout":            "server.timeout",
	"maintenance_rate_limit":  "server.maintenance_rate_limit",
	"maintenance_rate_window": "server.maintenance_rate_window",
}

// envTransformFunc maps an environment variable to its koanf path. Unmapped
// variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
