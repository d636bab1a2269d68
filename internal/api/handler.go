// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package api

import (
	"context"
	"time"

	"github.com/tomtom215/levelstate/internal/eventprocessor"
	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/scheduler"
	"github.com/tomtom215/levelstate/internal/store"
)

// PresenceReader reads single presence rows.
type PresenceReader interface {
	Get(ctx context.Context, playerID string) (*models.PlayerPresence, error)
}

// PopulationReader reads level populations.
type PopulationReader interface {
	Get(ctx context.Context, levelID string) (models.LevelPopulation, error)
	Scan(ctx context.Context, opts store.ScanOptions[models.LevelPopulation]) (store.Page[models.LevelPopulation], error)
}

// TransitionReader pages through unflushed transition counters.
type TransitionReader interface {
	Scan(ctx context.Context, opts store.ScanOptions[models.TransitionCounter]) (store.Page[models.TransitionCounter], error)
}

// MaintenanceJob is a scheduled job that can also be triggered on demand.
// *scheduler.Job implements it.
type MaintenanceJob interface {
	Name() string
	RunNow(ctx context.Context) error
	Stats() scheduler.Stats
}

// ReadinessChecker reports component health for the readiness probe.
// *eventprocessor.HealthChecker implements it.
type ReadinessChecker interface {
	CheckAll(ctx context.Context) eventprocessor.OverallHealth
}

// HandlerDeps are the collaborators of Handler. Nil readers and jobs make
// their routes answer 503.
type HandlerDeps struct {
	Presences   PresenceReader
	Populations PopulationReader
	Transitions TransitionReader
	FlushJob    MaintenanceJob
	ReapJob     MaintenanceJob
	Readiness   ReadinessChecker
}

// Handler holds the HTTP handlers.
type Handler struct {
	deps      HandlerDeps
	startTime time.Time
}

// NewHandler returns a Handler over deps.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{deps: deps, startTime: time.Now()}
}
