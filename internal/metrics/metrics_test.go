// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDecode(t *testing.T) {
	okBefore := testutil.ToFloat64(EventsDecoded)
	failBefore := testutil.ToFloat64(EventsDecodeFailed)

	RecordDecode(nil)
	RecordDecode(errors.New("bad record"))
	RecordDecode(errors.New("bad record"))

	if got := testutil.ToFloat64(EventsDecoded) - okBefore; got != 1 {
		t.Errorf("decoded delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(EventsDecodeFailed) - failBefore; got != 2 {
		t.Errorf("failed delta = %v, want 2", got)
	}
}

func TestRecordPresenceUpdate(t *testing.T) {
	applied := PresenceUpdates.WithLabelValues("applied")
	rejected := PresenceUpdates.WithLabelValues("rejected")
	a0, r0 := testutil.ToFloat64(applied), testutil.ToFloat64(rejected)

	RecordPresenceUpdate(true)
	RecordPresenceUpdate(false)
	RecordPresenceUpdate(false)

	if got := testutil.ToFloat64(applied) - a0; got != 1 {
		t.Errorf("applied delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rejected) - r0; got != 2 {
		t.Errorf("rejected delta = %v, want 2", got)
	}
}

func TestRecordReap(t *testing.T) {
	d0 := testutil.ToFloat64(ReapedPresences)
	c0 := testutil.ToFloat64(ReapConflicts)

	RecordReap(3, 1, 20*time.Millisecond)

	if got := testutil.ToFloat64(ReapedPresences) - d0; got != 3 {
		t.Errorf("reaped delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(ReapConflicts) - c0; got != 1 {
		t.Errorf("conflict delta = %v, want 1", got)
	}
}

func TestRecordFlush(t *testing.T) {
	rows := FlushRows.WithLabelValues("transitions")
	errs := FlushErrors.WithLabelValues("transitions")
	r0, e0 := testutil.ToFloat64(rows), testutil.ToFloat64(errs)

	RecordFlush("transitions", 5, time.Millisecond, nil)
	RecordFlush("transitions", 7, time.Millisecond, errors.New("archive down"))

	if got := testutil.ToFloat64(rows) - r0; got != 5 {
		t.Errorf("rows delta = %v, want 5 (failed flush must not count rows)", got)
	}
	if got := testutil.ToFloat64(errs) - e0; got != 1 {
		t.Errorf("errors delta = %v, want 1", got)
	}
	if testutil.ToFloat64(LastFlushTimestamp.WithLabelValues("transitions")) == 0 {
		t.Error("expected last flush timestamp to be set")
	}
}

func TestRecordArchiveWrite(t *testing.T) {
	ok := ArchiveWrites.WithLabelValues("file", "success")
	bad := ArchiveWrites.WithLabelValues("file", "error")
	o0, b0 := testutil.ToFloat64(ok), testutil.ToFloat64(bad)

	RecordArchiveWrite("file", nil)
	RecordArchiveWrite("file", errors.New("disk full"))

	if testutil.ToFloat64(ok)-o0 != 1 || testutil.ToFloat64(bad)-b0 != 1 {
		t.Error("expected one success and one error")
	}
}
