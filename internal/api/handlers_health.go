// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package api

import (
	"net/http"
	"time"
)

// LiveStatus is the liveness probe body.
type LiveStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthLive answers 200 while the process can serve HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	respondSuccess(w, http.StatusOK, LiveStatus{
		Status:        "alive",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}, started)
}

// HealthReady answers 200 when every registered component is healthy or
// degraded, and 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deps.Readiness == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "readiness checks not configured", nil)
		return
	}

	overall := h.deps.Readiness.CheckAll(r.Context())
	status := http.StatusOK
	if !overall.Healthy {
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, status, overall, started)
}
