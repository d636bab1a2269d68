// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

/*
Package config loads the service configuration.

# Sources

Configuration is layered with Koanf v2, each layer overriding the previous:

 1. Defaults from defaultConfig()
 2. An optional YAML file: $CONFIG_PATH, then config.yaml, config.yml,
    /etc/levelstate/config.yaml
 3. Environment variables listed in envMappings

Unlisted environment variables are ignored.

# Environment Variables

Presence and flushing:
  - STALE_THRESHOLD_SECONDS: Age after which a presence row is reaped (default: 300)
  - DELETE_OLDER_THAN_SECS: Legacy name for STALE_THRESHOLD_SECONDS, used only when the new name is unset
  - REAPER_INTERVAL: How often the reaper runs (default: 1m)
  - FLUSH_INTERVAL_SECONDS: Transition flush period (default: 60)
  - FLUSH_POPULATION_SNAPSHOT: Also write level_information.json (default: true)

Storage:
  - STORE_PATH, STORE_IN_MEMORY, STORE_SYNC_WRITES, STORE_MARKER_TTL, STORE_GC_INTERVAL
  - ARCHIVE_BACKEND: file or objectstore (default: file)
  - ARCHIVE_DIR, ARCHIVE_BUCKET

Events:
  - NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR, NATS_SUBSCRIBERS, NATS_DURABLE_NAME, ...
  - CHANGES_MODE: direct or stream (default: direct)
  - LEVEL_CONTEXT_KEY, TIMESTAMP_SOURCE (collector or ingest)

HTTP and logging:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, MAINTENANCE_RATE_LIMIT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

Load validates struct tags with go-playground/validator and then runs the
cross-field checks in validate.go. Failures are returned as *ConfigError.
*/
package config
