package looper

import "time"

// TempoAnchor is the process-wide (epoch, duration) pair: set when the
// first loop closes, cleared only when every bloop returns to fully idle.
// epoch.IsSet() iff duration.IsSet(); that invariant is maintained by
// always setting or clearing both together.
type TempoAnchor struct {
	epoch    time.Time
	duration time.Duration
	set      bool
}

// IsSet reports whether a tempo has been established.
func (t *TempoAnchor) IsSet() bool { return t.set }

// Epoch returns the loop epoch and whether it is set.
func (t *TempoAnchor) Epoch() (time.Time, bool) { return t.epoch, t.set }

// Duration returns the loop duration and whether it is set.
func (t *TempoAnchor) Duration() (time.Duration, bool) { return t.duration, t.set }

// Set establishes the tempo from the first closed loop.
func (t *TempoAnchor) Set(epoch time.Time, duration time.Duration) {
	t.epoch = epoch
	t.duration = duration
	t.set = true
}

// Clear resets the tempo; called once every bloop is idle again.
func (t *TempoAnchor) Clear() {
	t.epoch = time.Time{}
	t.duration = 0
	t.set = false
}

// NextLoopTime returns the next aligned (start, end) window at or after
// now, given the established tempo. ok is false if the tempo is unset.
func (t *TempoAnchor) NextLoopTime(now time.Time) (start, end time.Time, ok bool) {
	if !t.set || t.duration <= 0 {
		return time.Time{}, time.Time{}, false
	}
	elapsed := now.Sub(t.epoch)
	loopsElapsed := float64(elapsed) / float64(t.duration)
	k := int64(loopsElapsed)
	if float64(k) < loopsElapsed {
		k++
	}
	if k < 0 {
		k = 0
	}
	start = t.epoch.Add(time.Duration(k) * t.duration)
	end = start.Add(t.duration)
	return start, end, true
}
