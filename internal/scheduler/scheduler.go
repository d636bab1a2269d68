// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package scheduler runs a function on a fixed interval.
//
// The reaper, the flusher and store garbage collection each get their own
// Job. A Job never overlaps with itself: a tick that arrives while a run is
// in progress is dropped, and RunNow waits for the current run to finish.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/levelstate/internal/logging"
)

// ErrInvalidInterval is returned by New for a non-positive interval.
var ErrInvalidInterval = errors.New("scheduler interval must be positive")

// Func is one run of a job.
type Func func(ctx context.Context) error

// Stats describes the last run of a job.
type Stats struct {
	Runs         int64
	Failures     int64
	LastRun      time.Time
	LastDuration time.Duration
	LastError    error
}

// Job calls its function every interval between Start and Stop.
type Job struct {
	name     string
	interval time.Duration
	fn       Func

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu      sync.Mutex
	running bool
	stats   Stats

	// runMu serializes runs
	runMu sync.Mutex
}

// New returns a stopped Job.
func New(name string, interval time.Duration, fn Func) (*Job, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Job{name: name, interval: interval, fn: fn}, nil
}

// Name returns the job name.
func (j *Job) Name() string {
	return j.name
}

// Interval returns the run interval.
func (j *Job) Interval() time.Duration {
	return j.interval
}

// Start begins the background loop. Starting a running job is a no-op.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}

	j.ctx, j.cancel = context.WithCancel(ctx)
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go j.loop()

	logging.Info().Str("job", j.name).Dur("interval", j.interval).Msg("Scheduled job started")
	return nil
}

// Stop ends the loop and waits for an in-flight run to complete.
func (j *Job) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.cancel()
	j.running = false
	j.mu.Unlock()

	j.wg.Wait()
	logging.Info().Str("job", j.name).Msg("Scheduled job stopped")
}

// IsRunning reports whether the loop is active.
func (j *Job) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// Stats returns a copy of the run statistics.
func (j *Job) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

// RunNow runs the job immediately in the calling goroutine, after any
// in-flight run, and returns its error.
func (j *Job) RunNow(ctx context.Context) error {
	j.runMu.Lock()
	defer j.runMu.Unlock()
	return j.run(ctx)
}

func (j *Job) loop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			if !j.runMu.TryLock() {
				logging.Debug().Str("job", j.name).Msg("Previous run still in progress, skipping tick")
				continue
			}
			_ = j.run(j.ctx)
			j.runMu.Unlock()
		}
	}
}

func (j *Job) run(ctx context.Context) error {
	start := time.Now()
	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx = logging.ContextWithLogger(ctx, logging.With().Str("job", j.name).Logger())
	err := j.fn(ctx)
	elapsed := time.Since(start)

	j.mu.Lock()
	j.stats.Runs++
	j.stats.LastRun = start
	j.stats.LastDuration = elapsed
	j.stats.LastError = err
	if err != nil {
		j.stats.Failures++
	}
	j.mu.Unlock()

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Dur("duration", elapsed).Msg("Scheduled job failed")
	}
	return err
}
