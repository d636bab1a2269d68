// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	// RequestTimeout bounds read routes. Maintenance routes run to completion.
	RequestTimeout time.Duration

	MaintenanceRateLimit  int
	MaintenanceRateWindow time.Duration
}

// DefaultRouterConfig returns the router defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RequestTimeout:        30 * time.Second,
		MaintenanceRateLimit:  6,
		MaintenanceRateWindow: time.Minute,
	}
}

// Router wires Handler into a chi mux.
type Router struct {
	handler *Handler
	config  RouterConfig
}

// NewRouter returns a Router for h.
func NewRouter(h *Handler, cfg RouterConfig) *Router {
	return &Router{handler: h, config: cfg}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Group(func(r chi.Router) {
		if router.config.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(router.config.RequestTimeout))
		}
		r.Get("/api/v1/levels", router.handler.ListLevels)
		r.Get("/api/v1/levels/{levelID}", router.handler.GetLevel)
		r.Get("/api/v1/players/{playerID}", router.handler.GetPlayer)
		r.Get("/api/v1/transitions", router.handler.ListTransitions)
	})

	r.Route("/api/v1/maintenance", func(r chi.Router) {
		r.Use(RateLimit(router.config.MaintenanceRateLimit, router.config.MaintenanceRateWindow))
		r.Post("/flush", router.handler.MaintenanceFlush)
		r.Post("/reap", router.handler.MaintenanceReap)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}
