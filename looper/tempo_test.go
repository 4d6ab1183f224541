package looper

import (
	"testing"
	"time"
)

func TestTempoAnchorUnsetByDefault(t *testing.T) {
	var tempo TempoAnchor
	if tempo.IsSet() {
		t.Fatal("a zero-value TempoAnchor should be unset")
	}
	if _, _, ok := tempo.NextLoopTime(time.Now()); ok {
		t.Fatal("NextLoopTime should fail when no tempo is set")
	}
}

func TestTempoAnchorSetAndClear(t *testing.T) {
	var tempo TempoAnchor
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tempo.Set(epoch, 2*time.Second)

	if !tempo.IsSet() {
		t.Fatal("tempo should be set after Set")
	}
	gotEpoch, ok := tempo.Epoch()
	if !ok || !gotEpoch.Equal(epoch) {
		t.Fatalf("Epoch() = %v, %v; want %v, true", gotEpoch, ok, epoch)
	}

	tempo.Clear()
	if tempo.IsSet() {
		t.Fatal("tempo should be unset after Clear")
	}
}

func TestTempoAnchorNextLoopTimeAlignsForward(t *testing.T) {
	var tempo TempoAnchor
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	duration := 2 * time.Second
	tempo.Set(epoch, duration)

	// Exactly at the epoch: the "next" loop is the very first one.
	start, end, ok := tempo.NextLoopTime(epoch)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !start.Equal(epoch) {
		t.Fatalf("start = %v, want %v", start, epoch)
	}
	if !end.Equal(epoch.Add(duration)) {
		t.Fatalf("end = %v, want %v", end, epoch.Add(duration))
	}

	// Mid-loop: should round up to the next boundary.
	mid := epoch.Add(2500 * time.Millisecond)
	start, end, ok = tempo.NextLoopTime(mid)
	if !ok {
		t.Fatal("expected ok=true")
	}
	wantStart := epoch.Add(4 * time.Second)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantStart.Add(duration)) {
		t.Fatalf("end = %v, want %v", end, wantStart.Add(duration))
	}
}

func TestTempoAnchorNextLoopTimeOnBoundary(t *testing.T) {
	var tempo TempoAnchor
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	duration := time.Second
	tempo.Set(epoch, duration)

	now := epoch.Add(3 * time.Second)
	start, _, ok := tempo.NextLoopTime(now)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !start.Equal(now) {
		t.Fatalf("a time exactly on a loop boundary should return itself as start, got %v want %v", start, now)
	}
}
