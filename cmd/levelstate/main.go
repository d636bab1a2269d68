// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package main is the entry point of the levelstate service.
//
// levelstate consumes batches of enriched player events from NATS
// JetStream, keeps the last known level of every player in BadgerDB, counts
// level-to-level transitions and level populations, and periodically
// archives the transition counters as JSON snapshots.
//
// # Startup order
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. State store (BadgerDB)
//  4. Event pipeline (NATS connection, stream, router; embedded server optional)
//  5. Snapshot archive (directory or JetStream object store, behind a breaker)
//  6. Scheduled jobs (stale reaper, transition flusher, store GC)
//  7. Ops HTTP server
//  8. Supervisor tree, which starts everything above and restarts failures
//
// # Signals
//
// SIGINT and SIGTERM cancel the supervisor tree. The pipeline drains, the
// jobs finish their current run, the HTTP server shuts down, and the store
// is closed last.
//
// # Example
//
//	export NATS_EMBEDDED=true
//	export STORE_PATH=/var/lib/levelstate
//	export ARCHIVE_DIR=/var/lib/levelstate/archive
//	export STALE_THRESHOLD_SECONDS=300
//	export FLUSH_INTERVAL_SECONDS=60
//	./levelstate
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/levelstate/internal/api"
	"github.com/tomtom215/levelstate/internal/config"
	"github.com/tomtom215/levelstate/internal/decoder"
	"github.com/tomtom215/levelstate/internal/eventprocessor"
	"github.com/tomtom215/levelstate/internal/flush"
	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/presence"
	"github.com/tomtom215/levelstate/internal/store"
	"github.com/tomtom215/levelstate/internal/supervisor"
	"github.com/tomtom215/levelstate/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store_path", cfg.Store.Path).
		Bool("store_in_memory", cfg.Store.InMemory).
		Str("change_mode", cfg.Changes.Mode).
		Str("archive_backend", cfg.Archive.Backend).
		Int("stale_threshold_seconds", cfg.Reaper.StaleThresholdSeconds).
		Int("flush_interval_seconds", cfg.Flusher.IntervalSeconds).
		Msg("Configuration loaded")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("levelstate stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	sc := storeConfig(cfg)
	db, err := store.Open(&sc)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Msg("State store opened")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := presence.NewRecorder(db.Transitions(), db.Populations())
	pipeline, err := eventprocessor.NewPipeline(ctx, natsConfig(cfg), eventprocessor.PipelineDeps{
		Decoder:   decoder.New(),
		Extractor: decoder.NewExtractor(cfg.Decoder.LevelContextKey, decoder.TimestampSource(cfg.Decoder.TimestampSource)),
		Presences: db.Presences(),
		Recorder:  recorder,
	})
	if err != nil {
		return err
	}
	pipeline.Health().RegisterComponent("store", eventprocessor.PingCheck(db.Ping))

	arch, err := initArchive(ctx, cfg, pipeline)
	if err != nil {
		pipeline.Shutdown(ctx)
		return err
	}

	reaper := presence.NewReaper(db.Presences(), pipeline.Notifier(), cfg.Reaper.PageSize)
	flusher := flush.New(db.Transitions(), db.Populations(), arch, cfg.Flusher.IntervalSeconds)
	jobs, err := newJobs(cfg, db, reaper, flusher)
	if err != nil {
		pipeline.Shutdown(ctx)
		return err
	}

	handler := api.NewHandler(api.HandlerDeps{
		Presences:   db.Presences(),
		Populations: db.Populations(),
		Transitions: db.Transitions(),
		FlushJob:    jobs.flush,
		ReapJob:     jobs.reap,
		Readiness:   pipeline.Health(),
	})
	routerCfg := api.DefaultRouterConfig()
	routerCfg.RequestTimeout = cfg.Server.Timeout
	routerCfg.MaintenanceRateLimit = cfg.Server.MaintenanceRateLimit
	routerCfg.MaintenanceRateWindow = cfg.Server.MaintenanceRateWindow

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           api.NewRouter(handler, routerCfg).Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  30 * time.Second,
	})
	if err != nil {
		pipeline.Shutdown(ctx)
		return err
	}

	tree.AddDataService(services.NewJobService(jobs.reap.Name(), jobs.reap))
	tree.AddDataService(services.NewJobService(jobs.flush.Name(), jobs.flush))
	if jobs.gc != nil {
		tree.AddDataService(services.NewJobService(jobs.gc.Name(), jobs.gc))
	}
	tree.AddMessagingService(services.NewPipelineService(pipeline, cfg.NATS.RouterCloseTimeout))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	treeErr := <-errCh
	if errors.Is(treeErr, context.Canceled) {
		treeErr = nil
	}
	if treeErr != nil {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	// The supervisor stops the pipeline on cancellation; this covers a tree
	// that exited on its own.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	pipeline.Shutdown(shutdownCtx)

	return treeErr
}
