// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package flush

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/levelstate/internal/archive"
	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/store"
)

type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newMemArchive() *memArchive {
	return &memArchive{objects: map[string][]byte{}}
}

func (m *memArchive) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.objects[name] = append([]byte(nil), data...)
	return nil
}

func (m *memArchive) get(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[name]
}

func setupDB(t *testing.T) *store.DB {
	t.Helper()
	cfg := store.DefaultConfig()
	cfg.Path = ""
	cfg.InMemory = true
	cfg.MemTableSize = 16 * 1024 * 1024
	cfg.ValueLogFileSize = 16 * 1024 * 1024
	db, err := store.Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestFlusher(db *store.DB, arch archive.Archive) *Flusher {
	f := New(db.Transitions(), db.Populations(), arch, 60)
	f.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 45, 987654321, time.FixedZone("X", 3600)) }
	n := 0
	f.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return f
}

func increment(t *testing.T, db *store.DB, key string, times int) {
	t.Helper()
	k, err := models.ParseTransitionKey(key)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < times; i++ {
		if _, err := db.Transitions().Increment(context.Background(), k, fmt.Sprintf("%s#%d", key, i)); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
}

func TestFlush_RoundTrip(t *testing.T) {
	db := setupDB(t)
	arch := newMemArchive()
	f := newTestFlusher(db, arch)
	ctx := context.Background()

	increment(t, db, "/L1", 3)
	increment(t, db, "L1/L2", 2)
	increment(t, db, "L2/", 1)

	snap, err := f.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if snap.UpdateTime != "2026-03-01T11:30:45Z" {
		t.Errorf("UpdateTime = %s", snap.UpdateTime)
	}
	if snap.UpdateID != "id-1" || snap.UpdateIntervalSecs != 60 {
		t.Errorf("unexpected metadata %+v", snap)
	}

	var archived models.FlushSnapshot
	raw := arch.get(models.TransitionSnapshotName)
	if err := json.Unmarshal(raw, &archived); err != nil {
		t.Fatalf("archived snapshot is not JSON: %v", err)
	}
	if !strings.Contains(string(raw), "\n  \"update_time\"") {
		t.Errorf("snapshot should be indented with two spaces:\n%s", raw)
	}

	got := map[string]int64{}
	for _, row := range archived.Transitions {
		got[row.Key().String()] = row.Count
	}
	want := map[string]int64{"/L1": 3, "L1/L2": 2, "L2/": 1}
	if len(got) != len(want) {
		t.Fatalf("archived rows %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("row %s = %d, want %d", k, got[k], v)
		}
	}

	rest, err := db.Transitions().ScanAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("flushed rows should be deleted, %d left", len(rest))
	}

	snap, err = f.Flush(ctx)
	if err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if snap.Transitions == nil || len(snap.Transitions) != 0 {
		t.Errorf("empty flush should carry an empty list, got %#v", snap.Transitions)
	}
	if !strings.Contains(string(arch.get(models.TransitionSnapshotName)), `"transitions": []`) {
		t.Errorf("empty list should serialize as []:\n%s", arch.get(models.TransitionSnapshotName))
	}
}

func TestFlush_AbsentEndpointsSerializeAsNull(t *testing.T) {
	db := setupDB(t)
	arch := newMemArchive()
	f := newTestFlusher(db, arch)

	increment(t, db, "/L1", 1)
	if _, err := f.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(arch.get(models.TransitionSnapshotName)), `"from": null`) {
		t.Errorf("absent source should be null:\n%s", arch.get(models.TransitionSnapshotName))
	}
}

func TestFlush_ArchiveFailureKeepsRows(t *testing.T) {
	db := setupDB(t)
	arch := newMemArchive()
	arch.err = fmt.Errorf("%w: bucket gone", archive.ErrUnavailable)
	f := newTestFlusher(db, arch)
	ctx := context.Background()

	increment(t, db, "A/B", 2)
	_, err := f.Flush(ctx)
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	row, err := db.Transitions().Get(ctx, models.TransitionKey{From: models.StringPtr("A"), To: models.StringPtr("B")})
	if err != nil || row.Count != 2 {
		t.Errorf("rows must survive a failed archive write: %+v %v", row, err)
	}

	arch.err = nil
	snap, err := f.Flush(ctx)
	if err != nil || len(snap.Transitions) != 1 {
		t.Fatalf("retry: %+v %v", snap, err)
	}
}

func TestFlush_IncrementAfterFlushGoesToNextSnapshot(t *testing.T) {
	db := setupDB(t)
	arch := newMemArchive()
	f := newTestFlusher(db, arch)
	ctx := context.Background()

	increment(t, db, "A/B", 1)
	if _, err := f.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	k, _ := models.ParseTransitionKey("A/B")
	if _, err := db.Transitions().Increment(ctx, k, "later"); err != nil {
		t.Fatal(err)
	}
	snap, err := f.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Transitions) != 1 || snap.Transitions[0].Count != 1 {
		t.Errorf("expected the later increment alone, got %+v", snap.Transitions)
	}
}

func TestFlushPopulationSnapshot(t *testing.T) {
	db := setupDB(t)
	arch := newMemArchive()
	f := newTestFlusher(db, arch)
	ctx := context.Background()

	pop := db.Populations()
	_, _ = pop.Add(ctx, "L1", 1, "a")
	_, _ = pop.Add(ctx, "L1", 1, "b")
	_, _ = pop.Add(ctx, "L2", 1, "c")
	_, _ = pop.Add(ctx, "L2", -1, "d")

	snap, err := f.FlushPopulationSnapshot(ctx)
	if err != nil {
		t.Fatalf("FlushPopulationSnapshot: %v", err)
	}
	if len(snap.LevelPlayerCounts) != 1 || snap.LevelPlayerCounts["L1"] != 2 {
		t.Errorf("unexpected counts %v", snap.LevelPlayerCounts)
	}

	var archived models.PopulationSnapshot
	if err := json.Unmarshal(arch.get(models.PopulationSnapshotName), &archived); err != nil {
		t.Fatalf("archived population snapshot: %v", err)
	}
	if archived.LevelPlayerCounts["L1"] != 2 || archived.UpdateTime != "2026-03-01T11:30:45Z" {
		t.Errorf("unexpected archived snapshot %+v", archived)
	}

	row, err := pop.Get(ctx, "L1")
	if err != nil || row.PlayerCount != 2 {
		t.Errorf("population must not be reset: %+v %v", row, err)
	}
}

func TestFlushAll_JoinsErrors(t *testing.T) {
	db := setupDB(t)
	arch := newMemArchive()
	arch.err = errors.New("boom")
	f := newTestFlusher(db, arch)

	err := f.FlushAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Count(err.Error(), "boom") != 2 {
		t.Errorf("both snapshots should report the failure: %v", err)
	}
}

func TestFlush_CanceledBeforeStart(t *testing.T) {
	db := setupDB(t)
	f := newTestFlusher(db, newMemArchive())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Flush(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
