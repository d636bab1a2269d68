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

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/levelstate/internal/decoder"
	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/presence"
)

// PipelineDeps are the domain components the pipeline drives.
type PipelineDeps struct {
	Decoder   *decoder.Decoder
	Extractor *decoder.Extractor
	Presences presence.PresenceStore

	// Recorder receives level changes, directly or via the change topic.
	Recorder presence.ChangeNotifier
}

// Pipeline owns the NATS side of the service: the optional embedded server,
// the connection, the stream, the publisher, the subscriber and the router
// with its handlers.
type Pipeline struct {
	cfg        NATSConfig
	server     *EmbeddedServer
	conn       *natsgo.Conn
	js         jetstream.JetStream
	stream     *StreamInitializer
	publisher  *Publisher
	subscriber *Subscriber
	router     *Router
	notifier   presence.ChangeNotifier
	updater    *presence.Updater
	health     *HealthChecker

	mu      sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPipeline connects to NATS, ensures the stream exists and registers the
// handlers. Nothing is consumed until Start.
func NewPipeline(ctx context.Context, cfg NATSConfig, deps PipelineDeps) (p *Pipeline, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Decoder == nil || deps.Extractor == nil || deps.Presences == nil || deps.Recorder == nil {
		return nil, fmt.Errorf("%w: pipeline dependencies missing", ErrInvalidConfig)
	}

	p = &Pipeline{cfg: cfg, health: NewHealthChecker(5 * time.Second)}
	defer func() {
		if err != nil {
			p.closeAll(context.Background())
		}
	}()

	url := cfg.URL
	if cfg.EmbeddedServer {
		if p.server, err = NewEmbeddedServer(&cfg.Server); err != nil {
			return nil, err
		}
		url = p.server.ClientURL()
		p.health.RegisterComponent("nats_server", p.server)
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	p.conn, err = natsgo.Connect(url,
		natsgo.Name("levelstate"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	if p.js, err = jetstream.New(p.conn); err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if p.stream, err = NewStreamInitializer(p.js, &cfg.Stream); err != nil {
		return nil, err
	}
	if _, err = p.stream.EnsureStream(ctx); err != nil {
		return nil, err
	}
	p.health.RegisterComponent("stream", p.stream)

	wmLogger := logging.NewWatermillAdapter()

	if p.publisher, err = NewPublisher(DefaultPublisherConfig(url), wmLogger); err != nil {
		return nil, err
	}
	p.publisher.SetCircuitBreaker(NewCircuitBreaker(cfg.Breaker))
	p.health.RegisterComponent("publisher", p.publisher)

	subCfg := cfg.Subscriber
	subCfg.URL = url
	if subCfg.StreamName == "" {
		subCfg.StreamName = cfg.Stream.Name
	}
	if p.subscriber, err = NewSubscriber(&subCfg, wmLogger); err != nil {
		return nil, err
	}

	if p.router, err = NewRouter(&cfg.Router, p.publisher.WatermillPublisher(), wmLogger); err != nil {
		return nil, err
	}
	p.health.RegisterComponent("router", p.router)

	p.notifier = deps.Recorder
	if cfg.ChangeMode == ChangeModeStream {
		changes, err := NewChangePublisher(p.publisher, TopicLevelChanges)
		if err != nil {
			return nil, err
		}
		p.notifier = changes
		p.router.AddConsumerHandler("level-changes", TopicLevelChanges, p.subscriber.WatermillSubscriber(),
			NewChangeHandler(deps.Recorder).Handle)
	}

	p.updater = presence.NewUpdater(deps.Presences, p.notifier)
	p.router.AddConsumerHandler("event-batches", TopicEnrichedEvents, p.subscriber.WatermillSubscriber(),
		NewEventBatchHandler(deps.Decoder, deps.Extractor, p.updater).Handle)

	return p, nil
}

// Start runs the router in the background and returns once every handler
// is subscribed.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("event pipeline is shut down")
	}
	if p.running {
		p.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		if err := p.router.Run(runCtx); err != nil {
			logging.Error().Err(err).Msg("Router stopped with error")
		}
	}()

	select {
	case <-p.router.Running():
		logging.Info().Str("change_mode", string(p.cfg.ChangeMode)).Msg("Event pipeline started")
		return nil
	case <-p.done:
		p.markStopped()
		return fmt.Errorf("router exited during startup")
	case <-ctx.Done():
		return fmt.Errorf("context canceled while starting router: %w", ctx.Err())
	}
}

// Shutdown stops the router and releases every NATS resource. It is safe to
// call more than once.
func (p *Pipeline) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	logging.Info().Msg("Shutting down event pipeline...")
	p.closeAll(ctx)
	p.markStopped()
	logging.Info().Msg("Event pipeline shutdown complete")
}

func (p *Pipeline) markStopped() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Pipeline) closeAll(ctx context.Context) {
	if p.router != nil {
		if err := p.router.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing router")
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		select {
		case <-p.done:
		case <-ctx.Done():
		}
	}
	if p.subscriber != nil {
		if err := p.subscriber.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing subscriber")
		}
	}
	if p.publisher != nil {
		if err := p.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing publisher")
		}
	}
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Embedded NATS server shutdown timed out")
		}
	}
}

// IsRunning reports whether the router is consuming.
func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Notifier returns the ChangeNotifier level changes are sent to. The stale
// reaper must use the same one as the updater.
func (p *Pipeline) Notifier() presence.ChangeNotifier {
	return p.notifier
}

// Updater returns the presence updater the batch handler applies sightings with.
func (p *Pipeline) Updater() *presence.Updater {
	return p.updater
}

// JetStream returns the JetStream context, for the object store archive.
func (p *Pipeline) JetStream() jetstream.JetStream {
	return p.js
}

// Publisher returns the JetStream publisher.
func (p *Pipeline) Publisher() *Publisher {
	return p.publisher
}

// Health returns the health checker with every pipeline component registered.
func (p *Pipeline) Health() *HealthChecker {
	return p.health
}
