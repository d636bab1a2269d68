// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/store"
)

const defaultPageSize = 100

// PageRequest holds the paging query parameters of list routes.
type PageRequest struct {
	PageSize  int    `validate:"gte=1,lte=1000"`
	PageToken string `validate:"omitempty,max=1024"`
}

// PageResponse is one page of a list route.
type PageResponse[T any] struct {
	Items     []T    `json:"items"`
	NextToken string `json:"next_token,omitempty"`
}

type playerRequest struct {
	PlayerID string `validate:"required,max=256"`
}

type levelRequest struct {
	LevelID string `validate:"required,max=256,levelid"`
}

func parsePageRequest(r *http.Request) PageRequest {
	return PageRequest{
		PageSize:  getIntParam(r, "page_size", defaultPageSize),
		PageToken: r.URL.Query().Get("page_token"),
	}
}

// ListLevels pages through level populations. Levels with no players are
// omitted unless include_empty=true.
func (h *Handler) ListLevels(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deps.Populations == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "population store not configured", nil)
		return
	}

	req := parsePageRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	opts := store.ScanOptions[models.LevelPopulation]{PageSize: req.PageSize, Token: req.PageToken}
	if r.URL.Query().Get("include_empty") != "true" {
		opts.Filter = func(p models.LevelPopulation) bool { return p.PlayerCount > 0 }
	}

	page, err := h.deps.Populations.Scan(r.Context(), opts)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, PageResponse[models.LevelPopulation]{
		Items:     nonNil(page.Items),
		NextToken: page.NextToken,
	}, started)
}

// GetLevel returns the population of one level. Unknown levels report zero.
func (h *Handler) GetLevel(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deps.Populations == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "population store not configured", nil)
		return
	}

	req := levelRequest{LevelID: chi.URLParam(r, "levelID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	pop, err := h.deps.Populations.Get(r.Context(), req.LevelID)
	if errors.Is(err, store.ErrNotFound) {
		pop, err = models.LevelPopulation{LevelID: req.LevelID}, nil
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, pop, started)
}

// GetPlayer returns the presence row of one player.
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deps.Presences == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "presence store not configured", nil)
		return
	}

	req := playerRequest{PlayerID: chi.URLParam(r, "playerID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	row, err := h.deps.Presences.Get(r.Context(), req.PlayerID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "player has no presence", nil)
		return
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.PlayerView{
		PlayerID:    row.PlayerID,
		LevelID:     row.LevelID,
		LastUpdated: row.LastUpdated,
		Pending:     row.Pending != nil,
	}, started)
}

// ListTransitions pages through the transition counters accumulated since
// the last flush.
func (h *Handler) ListTransitions(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deps.Transitions == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "transition store not configured", nil)
		return
	}

	req := parsePageRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	page, err := h.deps.Transitions.Scan(r.Context(), store.ScanOptions[models.TransitionCounter]{
		PageSize: req.PageSize,
		Token:    req.PageToken,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, PageResponse[models.TransitionCounter]{
		Items:     nonNil(page.Items),
		NextToken: page.NextToken,
	}, started)
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidPageToken):
		respondError(w, http.StatusBadRequest, "INVALID_PAGE_TOKEN", "page_token is not valid for this route", nil)
	case errors.Is(err, store.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "store unavailable", err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", err)
	}
}

// nonNil keeps empty pages rendering as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
