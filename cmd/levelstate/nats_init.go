// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/levelstate/internal/archive"
	"github.com/tomtom215/levelstate/internal/config"
	"github.com/tomtom215/levelstate/internal/eventprocessor"
	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/store"
)

// storeConfig maps the service configuration onto BadgerDB settings.
func storeConfig(cfg *config.Config) store.Config {
	sc := store.DefaultConfig()
	sc.Path = cfg.Store.Path
	sc.InMemory = cfg.Store.InMemory
	sc.SyncWrites = cfg.Store.SyncWrites
	sc.MarkerTTL = cfg.Store.MarkerTTL
	return sc
}

// natsConfig maps the service configuration onto the event pipeline.
func natsConfig(cfg *config.Config) eventprocessor.NATSConfig {
	nc := eventprocessor.DefaultNATSConfig()
	nc.URL = cfg.NATS.URL
	nc.EmbeddedServer = cfg.NATS.EmbeddedServer
	nc.ChangeMode = eventprocessor.ChangeMode(cfg.Changes.Mode)

	nc.Server.Host = cfg.NATS.Host
	nc.Server.Port = cfg.NATS.Port
	nc.Server.StoreDir = cfg.NATS.StoreDir
	if cfg.NATS.MaxMemory > 0 {
		nc.Server.JetStreamMaxMem = cfg.NATS.MaxMemory
	}
	if cfg.NATS.MaxStore > 0 {
		nc.Server.JetStreamMaxStore = cfg.NATS.MaxStore
	}

	nc.Stream.MaxAge = cfg.NATS.StreamRetention

	nc.Subscriber.URL = cfg.NATS.URL
	nc.Subscriber.SubscribersCount = cfg.NATS.SubscribersCount
	nc.Subscriber.DurableName = cfg.NATS.DurableName
	nc.Subscriber.QueueGroup = cfg.NATS.QueueGroup
	nc.Subscriber.MaxDeliver = cfg.NATS.MaxDeliver
	nc.Subscriber.AckWaitTimeout = cfg.NATS.AckWait
	nc.Subscriber.StreamName = nc.Stream.Name

	nc.Router.RetryMaxRetries = cfg.NATS.RouterRetryCount
	if cfg.NATS.RouterRetryInitialInterval > 0 {
		nc.Router.RetryInitialInterval = cfg.NATS.RouterRetryInitialInterval
	}
	nc.Router.ThrottlePerSecond = cfg.NATS.RouterThrottlePerSecond
	if cfg.NATS.RouterPoisonQueueTopic != "" {
		nc.Router.PoisonQueueTopic = cfg.NATS.RouterPoisonQueueTopic
	}
	if cfg.NATS.RouterCloseTimeout > 0 {
		nc.Router.CloseTimeout = cfg.NATS.RouterCloseTimeout
	}
	return nc
}

// initArchive builds the snapshot archive behind a circuit breaker. The
// objectstore backend needs the pipeline's JetStream connection.
func initArchive(ctx context.Context, cfg *config.Config, pipeline *eventprocessor.Pipeline) (archive.Archive, error) {
	var backend archive.Archive
	switch cfg.Archive.Backend {
	case "objectstore":
		obs, err := archive.NewObjectStoreArchive(ctx, pipeline.JetStream(), archive.ObjectStoreConfig{
			Bucket:      cfg.Archive.Bucket,
			Description: "levelstate flush snapshots",
			Replicas:    1,
		})
		if err != nil {
			return nil, fmt.Errorf("object store archive: %w", err)
		}
		backend = obs
	default:
		fa, err := archive.NewFileArchive(cfg.Archive.Dir)
		if err != nil {
			return nil, fmt.Errorf("file archive: %w", err)
		}
		backend = fa
	}

	bc := archive.DefaultBreakerConfig(cfg.Archive.Backend)
	bc.FailureThreshold = cfg.Archive.BreakerFailureThreshold
	bc.Timeout = cfg.Archive.BreakerTimeout

	logging.Info().
		Str("backend", cfg.Archive.Backend).
		Str("dir", cfg.Archive.Dir).
		Str("bucket", cfg.Archive.Bucket).
		Msg("Snapshot archive initialized")
	return archive.NewBreaker(backend, bc), nil
}
