// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/levelstate/internal/logging"
	"github.com/tomtom215/levelstate/internal/metrics"
)

// BreakerConfig holds circuit breaker settings for an archive backend.
type BreakerConfig struct {
	Name             string
	Backend          string        // metrics label, e.g. "file" or "objectstore"
	MaxRequests      uint32        // allowed in half-open state
	Interval         time.Duration // reset interval for counts
	Timeout          time.Duration // time to stay open
	FailureThreshold uint32        // consecutive failures before opening
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig(backend string) BreakerConfig {
	return BreakerConfig{
		Name:             "archive-" + backend,
		Backend:          backend,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 3,
	}
}

// Breaker protects an Archive with a circuit breaker. While open, Put fails
// fast with ErrUnavailable.
type Breaker struct {
	next    Archive
	backend string
	cb      *gobreaker.CircuitBreaker[struct{}]
}

// NewBreaker wraps next.
func NewBreaker(next Archive, cfg BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidName)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerState(name, int(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Archive circuit breaker state changed")
		},
	}
	metrics.RecordCircuitBreakerState(cfg.Name, int(gobreaker.StateClosed))
	return &Breaker{
		next:    next,
		backend: cfg.Backend,
		cb:      gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// State returns the breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Put forwards to the wrapped archive unless the breaker is open.
func (b *Breaker) Put(ctx context.Context, name string, data []byte) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Put(ctx, name, data)
	})
	metrics.RecordArchiveWrite(b.backend, err)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
