// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package services

import (
	"context"
	"fmt"
)

// StartStopper matches the scheduler.Job lifecycle.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// JobService wraps a periodic job (reaper, flusher, store GC) as a
// supervised service.
//
//	job, _ := scheduler.New("stale-reaper", time.Minute, reap)
//	tree.AddDataService(services.NewJobService("stale-reaper", job))
type JobService struct {
	job  StartStopper
	name string
}

// NewJobService creates a JobService named name.
func NewJobService(name string, job StartStopper) *JobService {
	return &JobService{job: job, name: name}
}

// Serve implements suture.Service. Stop blocks until an in-flight run has
// finished.
func (s *JobService) Serve(ctx context.Context) error {
	if err := s.job.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()
	s.job.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *JobService) String() string {
	return s.name
}
