// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package services

import (
	"context"
	"fmt"
	"time"
)

// PipelineRunner matches the eventprocessor.Pipeline lifecycle.
type PipelineRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// PipelineService wraps the NATS event pipeline as a supervised service.
type PipelineService struct {
	pipeline        PipelineRunner
	shutdownTimeout time.Duration
	name            string
}

// NewPipelineService creates a pipeline service. A non-positive
// shutdownTimeout selects ten seconds.
func NewPipelineService(pipeline PipelineRunner, shutdownTimeout time.Duration) *PipelineService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &PipelineService{
		pipeline:        pipeline,
		shutdownTimeout: shutdownTimeout,
		name:            "event-pipeline",
	}
}

// Serve implements suture.Service.
func (s *PipelineService) Serve(ctx context.Context) error {
	if err := s.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("event pipeline start failed: %w", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.pipeline.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *PipelineService) String() string {
	return s.name
}
