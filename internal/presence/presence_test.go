// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/levelstate/internal/models"
	"github.com/tomtom215/levelstate/internal/store"
)

func setupDB(t *testing.T) *store.DB {
	t.Helper()
	cfg := store.DefaultConfig()
	cfg.Path = ""
	cfg.InMemory = true
	cfg.MemTableSize = 16 * 1024 * 1024
	cfg.ValueLogFileSize = 16 * 1024 * 1024
	cfg.ConflictRetries = 64
	db, err := store.Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// flakyNotifier fails the first failures deliveries and then forwards to next.
type flakyNotifier struct {
	mu       sync.Mutex
	failures int
	calls    int
	next     ChangeNotifier
}

func (f *flakyNotifier) OnLevelChange(ctx context.Context, change models.LevelChange) error {
	f.mu.Lock()
	f.calls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("notifier offline")
	}
	return f.next.OnLevelChange(ctx, change)
}

func transitionCount(t *testing.T, db *store.DB, key string) int64 {
	t.Helper()
	k, err := models.ParseTransitionKey(key)
	if err != nil {
		t.Fatalf("ParseTransitionKey(%q): %v", key, err)
	}
	row, err := db.Transitions().Get(context.Background(), k)
	if errors.Is(err, store.ErrNotFound) {
		return 0
	}
	if err != nil {
		t.Fatalf("transition %q: %v", key, err)
	}
	return row.Count
}

func population(t *testing.T, db *store.DB, level string) int64 {
	t.Helper()
	row, err := db.Populations().Get(context.Background(), level)
	if errors.Is(err, store.ErrNotFound) {
		return 0
	}
	if err != nil {
		t.Fatalf("population %q: %v", level, err)
	}
	return row.PlayerCount
}

func newPipeline(db *store.DB) (*Updater, *Recorder) {
	rec := NewRecorder(db.Transitions(), db.Populations())
	return NewUpdater(db.Presences(), rec), rec
}

func TestUpdater_Scenarios(t *testing.T) {
	db := setupDB(t)
	upd, _ := newPipeline(db)
	ctx := context.Background()

	// Arrival.
	res, err := upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1000)
	if err != nil || res != Applied {
		t.Fatalf("arrival: %v %v", res, err)
	}
	if got := transitionCount(t, db, "/L1"); got != 1 {
		t.Errorf("/L1 = %d, want 1", got)
	}
	if got := population(t, db, "L1"); got != 1 {
		t.Errorf("population L1 = %d, want 1", got)
	}

	// Move.
	if res, err = upd.ApplyEvent(ctx, "P", models.StringPtr("L2"), 2000); err != nil || res != Applied {
		t.Fatalf("move: %v %v", res, err)
	}
	if got := transitionCount(t, db, "L1/L2"); got != 1 {
		t.Errorf("L1/L2 = %d, want 1", got)
	}
	if population(t, db, "L1") != 0 || population(t, db, "L2") != 1 {
		t.Errorf("populations after move: L1=%d L2=%d", population(t, db, "L1"), population(t, db, "L2"))
	}

	// Delayed event.
	if res, err = upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1500); err != nil || res != Rejected {
		t.Fatalf("stale: %v %v", res, err)
	}
	row, _ := db.Presences().Get(ctx, "P")
	if models.Deref(row.LevelID) != "L2" || row.LastUpdated != 2000 {
		t.Errorf("stale event changed the row: %+v", row)
	}
	if got := transitionCount(t, db, "L2/L1"); got != 0 {
		t.Errorf("stale event recorded a transition")
	}

	// Departure.
	if res, err = upd.ApplyEvent(ctx, "P", nil, 3000); err != nil || res != Applied {
		t.Fatalf("leave: %v %v", res, err)
	}
	if got := transitionCount(t, db, "L2/"); got != 1 {
		t.Errorf("L2/ = %d, want 1", got)
	}
	if got := population(t, db, "L2"); got != 0 {
		t.Errorf("population L2 = %d, want 0", got)
	}
	row, _ = db.Presences().Get(ctx, "P")
	if row.LevelID != nil || row.LastUpdated != 3000 || row.Pending != nil {
		t.Errorf("unexpected row after leaving: %+v", row)
	}
}

func TestUpdater_EqualTimestampRejected(t *testing.T) {
	db := setupDB(t)
	upd, _ := newPipeline(db)
	ctx := context.Background()

	if _, err := upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1000); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		res, err := upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1000)
		if err != nil || res != Rejected {
			t.Fatalf("replay %d: %v %v", i, res, err)
		}
	}
	res, err := upd.ApplyEvent(ctx, "P", models.StringPtr("L9"), 1000)
	if err != nil || res != Rejected {
		t.Fatalf("same timestamp, other level: %v %v", res, err)
	}
	if transitionCount(t, db, "/L1") != 1 || population(t, db, "L1") != 1 {
		t.Error("replays must not change counters")
	}
}

func TestUpdater_SameLevelRefreshOnlyMovesTimestamp(t *testing.T) {
	db := setupDB(t)
	upd, _ := newPipeline(db)
	ctx := context.Background()

	_, _ = upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1000)
	res, err := upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 5000)
	if err != nil || res != Applied {
		t.Fatalf("refresh: %v %v", res, err)
	}
	row, _ := db.Presences().Get(ctx, "P")
	if row.LastUpdated != 5000 || row.Pending != nil {
		t.Errorf("unexpected row %+v", row)
	}
	if transitionCount(t, db, "/L1") != 1 || population(t, db, "L1") != 1 {
		t.Error("refresh must not record a transition")
	}
}

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := make([]int, 0, n)
			q = append(q, p[:i]...)
			q = append(q, n-1)
			q = append(q, p[i:]...)
			out = append(out, q)
		}
	}
	return out
}

func TestUpdater_OrderIndependentFinalState(t *testing.T) {
	type sighting struct {
		level *string
		at    int64
	}
	events := []sighting{
		{models.StringPtr("L1"), 100},
		{models.StringPtr("L2"), 200},
		{nil, 300},
		{models.StringPtr("L3"), 400},
	}

	for _, perm := range permutations(len(events)) {
		perm := perm
		t.Run(fmt.Sprint(perm), func(t *testing.T) {
			db := setupDB(t)
			upd, _ := newPipeline(db)
			ctx := context.Background()
			for _, i := range perm {
				if _, err := upd.ApplyEvent(ctx, "P", events[i].level, events[i].at); err != nil {
					t.Fatalf("ApplyEvent: %v", err)
				}
			}
			row, err := db.Presences().Get(ctx, "P")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if models.Deref(row.LevelID) != "L3" || row.LastUpdated != 400 {
				t.Errorf("final row %+v, want L3@400", row)
			}
			if population(t, db, "L3") != 1 {
				t.Errorf("population L3 = %d, want 1", population(t, db, "L3"))
			}
			for _, l := range []string{"L1", "L2"} {
				if population(t, db, l) != 0 {
					t.Errorf("population %s = %d, want 0", l, population(t, db, l))
				}
			}
		})
	}
}

func TestUpdater_TransitionConservation(t *testing.T) {
	db := setupDB(t)
	upd, _ := newPipeline(db)
	ctx := context.Background()

	levels := []*string{models.StringPtr("A"), models.StringPtr("B"), nil, models.StringPtr("C")}
	for step := 0; step < 40; step++ {
		player := fmt.Sprintf("p%d", step%5)
		level := levels[(step*7+step/5)%len(levels)]
		if _, err := upd.ApplyEvent(ctx, player, level, int64(1000+step)); err != nil {
			t.Fatalf("ApplyEvent: %v", err)
		}
	}

	rows, err := db.Transitions().ScanAll(ctx)
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	net := map[string]int64{}
	for _, r := range rows {
		if r.LevelTo != nil {
			net[*r.LevelTo] += r.Count
		}
		if r.LevelFrom != nil {
			net[*r.LevelFrom] -= r.Count
		}
	}

	inLevel := map[string]int64{}
	all, err := db.Presences().ScanAll(ctx, nil)
	if err != nil {
		t.Fatalf("ScanAll presences: %v", err)
	}
	for _, p := range all {
		if p.LevelID != nil {
			inLevel[*p.LevelID]++
		}
	}

	for _, l := range []string{"A", "B", "C"} {
		if net[l] != inLevel[l] {
			t.Errorf("level %s: arrivals-departures = %d, players present = %d", l, net[l], inLevel[l])
		}
		if got := population(t, db, l); got != inLevel[l] {
			t.Errorf("population %s = %d, players present = %d", l, got, inLevel[l])
		}
	}
}

func TestUpdater_ConcurrentPlayersAndEvents(t *testing.T) {
	db := setupDB(t)
	upd, _ := newPipeline(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		for ts := int64(1); ts <= 8; ts++ {
			wg.Add(1)
			go func(player string, ts int64) {
				defer wg.Done()
				level := fmt.Sprintf("L%d", ts%3)
				if _, err := upd.ApplyEvent(ctx, player, &level, ts); err != nil {
					t.Errorf("ApplyEvent %s@%d: %v", player, ts, err)
				}
			}(fmt.Sprintf("p%d", p), ts)
		}
	}
	wg.Wait()

	var total int64
	for _, l := range []string{"L0", "L1", "L2"} {
		total += population(t, db, l)
	}
	if total != 4 {
		t.Errorf("sum of populations = %d, want 4", total)
	}
	for p := 0; p < 4; p++ {
		row, err := db.Presences().Get(ctx, fmt.Sprintf("p%d", p))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if row.LastUpdated != 8 || models.Deref(row.LevelID) != "L2" {
			t.Errorf("player p%d: %+v, want L2@8", p, row)
		}
	}
}

func TestUpdater_FailedDeliveryIsRedriven(t *testing.T) {
	db := setupDB(t)
	rec := NewRecorder(db.Transitions(), db.Populations())
	flaky := &flakyNotifier{failures: 1, next: rec}
	upd := NewUpdater(db.Presences(), flaky)
	ctx := context.Background()

	res, err := upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1000)
	if err == nil || res != Applied {
		t.Fatalf("expected applied with delivery error, got %v %v", res, err)
	}
	row, _ := db.Presences().Get(ctx, "P")
	if row.Pending == nil {
		t.Fatal("undelivered change should stay in the row")
	}
	if transitionCount(t, db, "/L1") != 0 {
		t.Error("counter must not move before delivery")
	}

	// A stale event still pushes the pending change through.
	res, err = upd.ApplyEvent(ctx, "P", models.StringPtr("L0"), 500)
	if err != nil || res != Rejected {
		t.Fatalf("stale: %v %v", res, err)
	}
	if transitionCount(t, db, "/L1") != 1 || population(t, db, "L1") != 1 {
		t.Error("pending arrival should be recorded on the next touch")
	}
	row, _ = db.Presences().Get(ctx, "P")
	if row.Pending != nil {
		t.Errorf("pending should be cleared, got %+v", row.Pending)
	}

	// Redelivering the same change does not double count.
	if err := rec.OnLevelChange(ctx, models.LevelChange{ID: "x", PlayerID: "P", To: models.StringPtr("L1")}); err != nil {
		t.Fatal(err)
	}
	if err := rec.OnLevelChange(ctx, models.LevelChange{ID: "x", PlayerID: "P", To: models.StringPtr("L1")}); err != nil {
		t.Fatal(err)
	}
	if got := transitionCount(t, db, "/L1"); got != 2 {
		t.Errorf("/L1 = %d, want 2", got)
	}
}

func TestUpdater_PendingDeliveredBeforeNextChange(t *testing.T) {
	db := setupDB(t)
	rec := NewRecorder(db.Transitions(), db.Populations())
	flaky := &flakyNotifier{failures: 1, next: rec}
	upd := NewUpdater(db.Presences(), flaky)
	ctx := context.Background()

	_, _ = upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1000)
	if _, err := upd.ApplyEvent(ctx, "P", models.StringPtr("L2"), 2000); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if transitionCount(t, db, "/L1") != 1 || transitionCount(t, db, "L1/L2") != 1 {
		t.Error("both transitions should be recorded")
	}
	if population(t, db, "L1") != 0 || population(t, db, "L2") != 1 {
		t.Errorf("populations: L1=%d L2=%d", population(t, db, "L1"), population(t, db, "L2"))
	}
}

func TestUpdater_InvalidInput(t *testing.T) {
	db := setupDB(t)
	upd, _ := newPipeline(db)

	tests := []struct {
		name   string
		player string
		level  *string
		at     int64
	}{
		{"empty player", "", models.StringPtr("L1"), 1},
		{"separator in level", "P", models.StringPtr("a/b"), 1},
		{"empty level", "P", models.StringPtr(""), 1},
		{"negative time", "P", nil, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := upd.ApplyEvent(context.Background(), tt.player, tt.level, tt.at)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRecorder_IgnoresSameLevelChanges(t *testing.T) {
	db := setupDB(t)
	rec := NewRecorder(db.Transitions(), db.Populations())

	tests := []struct {
		name   string
		change models.LevelChange
	}{
		{"both absent", models.LevelChange{ID: "c1", PlayerID: "P"}},
		{"same level", models.LevelChange{ID: "c2", PlayerID: "P", From: models.StringPtr("L"), To: models.StringPtr("L")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := rec.OnLevelChange(context.Background(), tt.change); err != nil {
				t.Errorf("expected no-op, got %v", err)
			}
		})
	}

	all, _ := db.Transitions().ScanAll(context.Background())
	if len(all) != 0 {
		t.Errorf("no transition should be written, got %v", all)
	}
	pops, _ := db.Populations().ScanAll(context.Background(), nil)
	if len(pops) != 0 {
		t.Errorf("no population should be written, got %v", pops)
	}
}

func TestRecorder_InvariantViolation(t *testing.T) {
	db := setupDB(t)
	rec := NewRecorder(db.Transitions(), db.Populations())

	err := rec.OnLevelChange(context.Background(), models.LevelChange{PlayerID: "P", To: models.StringPtr("L")})
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	if got := population(t, db, "L"); got != 0 {
		t.Errorf("population = %d, want 0", got)
	}
}

func TestRecorder_DepartureWithoutArrivalClamps(t *testing.T) {
	db := setupDB(t)
	rec := NewRecorder(db.Transitions(), db.Populations())

	if err := rec.OnLevelChange(context.Background(), models.LevelChange{ID: "d", PlayerID: "P", From: models.StringPtr("L")}); err != nil {
		t.Fatal(err)
	}
	if got := population(t, db, "L"); got != 0 {
		t.Errorf("population = %d, want 0", got)
	}
	if got := transitionCount(t, db, "L/"); got != 1 {
		t.Errorf("L/ = %d, want 1", got)
	}
}

func TestReaper_RemovesStaleRows(t *testing.T) {
	db := setupDB(t)
	upd, rec := newPipeline(db)
	reaper := NewReaper(db.Presences(), rec, 2)
	ctx := context.Background()

	_, _ = upd.ApplyEvent(ctx, "old-in-level", models.StringPtr("L1"), 1000)
	_, _ = upd.ApplyEvent(ctx, "old-absent", nil, 1000)
	_, _ = upd.ApplyEvent(ctx, "fresh", models.StringPtr("L2"), 9000)
	_, _ = upd.ApplyEvent(ctx, "edge", models.StringPtr("L2"), 5000)

	n, err := reaper.Reap(ctx, 5*time.Second, time.UnixMilli(10000))
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if _, err := db.Presences().Get(ctx, "old-in-level"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old-in-level should be gone, got %v", err)
	}
	for _, p := range []string{"old-absent", "fresh", "edge"} {
		if _, err := db.Presences().Get(ctx, p); err != nil {
			t.Errorf("%s should remain: %v", p, err)
		}
	}
	if got := transitionCount(t, db, "L1/"); got != 1 {
		t.Errorf("reaped player should record a departure, L1/ = %d", got)
	}
	if got := population(t, db, "L1"); got != 0 {
		t.Errorf("population L1 = %d, want 0", got)
	}
	if got := population(t, db, "L2"); got != 2 {
		t.Errorf("population L2 = %d, want 2", got)
	}

	n, err = reaper.Reap(ctx, 5*time.Second, time.UnixMilli(10000))
	if err != nil || n != 0 {
		t.Errorf("second pass: %d %v", n, err)
	}
}

func TestReaper_PlayerReturnsDuringReap(t *testing.T) {
	db := setupDB(t)
	rec := NewRecorder(db.Transitions(), db.Populations())
	var upd *Updater
	returned := false
	notifier := ChangeNotifierFunc(func(ctx context.Context, change models.LevelChange) error {
		if change.To == nil && !returned {
			returned = true
			if _, err := upd.ApplyEvent(ctx, change.PlayerID, models.StringPtr("L3"), 20000); err != nil {
				return err
			}
		}
		return rec.OnLevelChange(ctx, change)
	})
	upd = NewUpdater(db.Presences(), notifier)
	reaper := NewReaper(db.Presences(), notifier, 0)
	ctx := context.Background()

	_, _ = upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1000)

	n, err := reaper.Reap(ctx, time.Second, time.UnixMilli(10000))
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if n != 0 {
		t.Errorf("returned player must not be deleted, got %d deletions", n)
	}
	row, err := db.Presences().Get(ctx, "P")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if models.Deref(row.LevelID) != "L3" || row.LastUpdated != 20000 {
		t.Errorf("unexpected row %+v", row)
	}
	if transitionCount(t, db, "L1/") != 1 || transitionCount(t, db, "/L3") != 1 {
		t.Error("departure and re-arrival should each be recorded once")
	}
	if population(t, db, "L1") != 0 || population(t, db, "L3") != 1 {
		t.Errorf("populations: L1=%d L3=%d", population(t, db, "L1"), population(t, db, "L3"))
	}
}

func TestReaper_FailedDepartureIsRedriven(t *testing.T) {
	db := setupDB(t)
	rec := NewRecorder(db.Transitions(), db.Populations())
	upd := NewUpdater(db.Presences(), rec)
	flaky := &flakyNotifier{failures: 1, next: rec}
	reaper := NewReaper(db.Presences(), flaky, 0)
	ctx := context.Background()

	_, _ = upd.ApplyEvent(ctx, "P", models.StringPtr("L1"), 1000)

	if _, err := reaper.Reap(ctx, time.Second, time.UnixMilli(10000)); err == nil {
		t.Fatal("expected delivery error")
	}
	row, err := db.Presences().Get(ctx, "P")
	if err != nil {
		t.Fatalf("row should survive a failed departure: %v", err)
	}
	if row.Pending == nil || row.LevelID != nil {
		t.Fatalf("departure should be parked in the row, got %+v", row)
	}

	n, err := reaper.Reap(ctx, time.Second, time.UnixMilli(10000))
	if err != nil || n != 1 {
		t.Fatalf("second pass: %d %v", n, err)
	}
	if transitionCount(t, db, "L1/") != 1 || population(t, db, "L1") != 0 {
		t.Error("departure should be recorded exactly once")
	}
}

func TestReaper_RejectsBadThreshold(t *testing.T) {
	db := setupDB(t)
	reaper := NewReaper(db.Presences(), NewRecorder(db.Transitions(), db.Populations()), 0)
	if _, err := reaper.Reap(context.Background(), 0, time.Now()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
