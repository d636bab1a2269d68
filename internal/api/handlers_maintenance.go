// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/store"
)

// MaintenanceFlush runs the transition flush job now.
func (h *Handler) MaintenanceFlush(w http.ResponseWriter, r *http.Request) {
	h.runMaintenance(w, r, h.deps.FlushJob)
}

// MaintenanceReap runs the stale presence reaper now.
func (h *Handler) MaintenanceReap(w http.ResponseWriter, r *http.Request) {
	h.runMaintenance(w, r, h.deps.ReapJob)
}

func (h *Handler) runMaintenance(w http.ResponseWriter, r *http.Request, job MaintenanceJob) {
	started := time.Now()
	if job == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "job not configured", nil)
		return
	}

	logging.Ctx(r.Context()).Info().Str("job", job.Name()).Msg("Maintenance run requested")

	if err := job.RunNow(r.Context()); err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", job.Name()+" failed: store unavailable", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "JOB_FAILED", job.Name()+" failed", err)
		return
	}

	stats := job.Stats()
	respondSuccess(w, http.StatusOK, models.MaintenanceResult{
		Job:        job.Name(),
		RanAt:      started.UTC(),
		DurationMS: time.Since(started).Milliseconds(),
		Runs:       stats.Runs,
		Failures:   stats.Failures,
	}, started)
}
