// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_RejectsBadInterval(t *testing.T) {
	t.Parallel()

	if _, err := New("x", 0, func(context.Context) error { return nil }); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestJob_RunsOnInterval(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	job, err := New("ticker", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !job.IsRunning() {
		t.Error("job should be running")
	}
	if err := job.Start(context.Background()); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	job.Stop()
	job.Stop()

	if runs.Load() < 3 {
		t.Errorf("expected at least 3 runs, got %d", runs.Load())
	}
	if job.IsRunning() {
		t.Error("job should be stopped")
	}

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Error("job ran after Stop")
	}
}

func TestJob_RunNowRecordsStats(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	fail := true
	job, err := New("manual", time.Hour, func(context.Context) error {
		time.Sleep(5 * time.Millisecond)
		if fail {
			return boom
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := job.RunNow(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("RunNow = %v, want boom", err)
	}
	fail = false
	if err := job.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	stats := job.Stats()
	if stats.Runs != 2 || stats.Failures != 1 || stats.LastError != nil || stats.LastRun.IsZero() || stats.LastDuration < 5*time.Millisecond {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestJob_RunsDoNotOverlap(t *testing.T) {
	t.Parallel()

	var active, maxActive atomic.Int64
	job, err := New("slow", 2*time.Millisecond, func(context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		active.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := job.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			_ = job.RunNow(context.Background())
		}
		close(done)
	}()
	<-done
	time.Sleep(20 * time.Millisecond)
	job.Stop()

	if maxActive.Load() != 1 {
		t.Errorf("runs overlapped: max concurrent = %d", maxActive.Load())
	}
}
