package looper

import (
	"testing"
	"time"

	"bloopgo/midi"
)

func sink(out *[]midi.Message) OutputSink {
	return func(m midi.Message) error {
		*out = append(*out, m)
		return nil
	}
}

func TestBloopIdleByDefault(t *testing.T) {
	b := NewBloop(0, nil, 0)
	now := time.Now()
	if !b.IsIdle(now) {
		t.Fatal("a freshly constructed bloop should be idle")
	}
	if _, ok := b.Tick(now); ok {
		t.Fatal("Tick on an idle bloop should report no wake time")
	}
}

func TestBloopRecordsAndPlaysBackOneLoop(t *testing.T) {
	var out []midi.Message
	b := NewBloop(5, sink(&out), 0)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.StartRecording(start, nil)

	// Before the window opens: tick just reports the start time.
	wake, ok := b.Tick(start.Add(-time.Millisecond))
	if !ok || !wake.Equal(start) {
		t.Fatalf("pre-window tick: wake=%v ok=%v, want %v true", wake, ok, start)
	}

	// Open the gate with a tick just past start (a tick at exactly start
	// only reports start), then record a single NoteOn 250ms in.
	noteAt := start.Add(250 * time.Millisecond)
	b.Tick(start.Add(time.Millisecond))
	b.RecvMIDI(noteAt, 0, midi.NoteOn(0, 60, 100))
	if len(out) != 1 {
		t.Fatalf("listening bloop should pass the NoteOn straight through, got %d messages", len(out))
	}
	out = nil

	// Close the recording at start+500ms, which fixes the loop duration.
	b.StartPlaying(500 * time.Millisecond)

	// Advance to just after the first playback iteration's note.
	replayAt := start.Add(500*time.Millisecond + 250*time.Millisecond)
	b.Tick(replayAt)

	found := false
	for _, m := range out {
		var ch, key, vel uint8
		if m.GetNoteOn(&ch, &key, &vel) && key == 60 && ch == 5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the recorded NoteOn replayed on output channel 5, got %v", out)
	}
}

func TestBloopSuppressesReleaseWhileHeldElsewhere(t *testing.T) {
	var out []midi.Message
	b := NewBloop(0, sink(&out), 0)

	now := time.Now()
	b.RecvMIDI(now, 0, midi.NoteOn(0, 60, 100))
	b.RecvMIDI(now, 1, midi.NoteOn(1, 60, 90))
	out = nil

	b.RecvMIDI(now, 0, midi.NoteOff(0, 60))
	if len(out) != 0 {
		t.Fatalf("release should be suppressed while channel 1 still holds key 60, got %v", out)
	}

	b.RecvMIDI(now, 1, midi.NoteOff(1, 60))
	if len(out) != 1 {
		t.Fatalf("release should pass once the last holder releases, got %v", out)
	}
}

func TestBloopToggleListeningStopsPassThrough(t *testing.T) {
	var out []midi.Message
	b := NewBloop(0, sink(&out), 0)
	now := time.Now()

	b.ToggleListening(now)
	if b.IsListening() {
		t.Fatal("toggling a listening bloop should stop listening")
	}

	b.RecvMIDI(now, 0, midi.NoteOn(0, 60, 100))
	if len(out) != 0 {
		t.Fatalf("no messages should pass while not listening, got %v", out)
	}
}

func TestBloopCancelRecordingClearsArmedWindow(t *testing.T) {
	b := NewBloop(0, nil, 0)
	now := time.Now()
	later := now.Add(time.Second)
	b.StartRecording(later, nil)
	if !b.IsArmed(now) {
		t.Fatal("bloop should be armed before its recording window opens")
	}
	b.CancelRecording()
	if b.IsArmed(now) || b.IsRecording(now) {
		t.Fatal("CancelRecording should clear the armed/recording window entirely")
	}
}

// recordTwoNoteLoop arms b, opens its gate just past start, and records two
// presses (neither released inside the loop) 50ms apart, closing the loop
// at 200ms. The user then releases both keys, so from there on only
// playback holds them. It returns the instant right after the first note
// replays but before the second — the window in which the first note's
// playback cursor is still live, so isKeyHeld/playbackKeysPressed can be
// observed correctly.
func recordTwoNoteLoop(b *Bloop, start time.Time) time.Time {
	b.StartRecording(start, nil)
	b.Tick(start.Add(time.Millisecond))
	b.RecvMIDI(start, 0, midi.NoteOn(0, 60, 100))
	b.RecvMIDI(start.Add(50*time.Millisecond), 0, midi.NoteOn(0, 61, 100))
	b.StartPlaying(200 * time.Millisecond)
	b.RecvMIDI(start.Add(200*time.Millisecond), 0, midi.NoteOff(0, 60))
	b.RecvMIDI(start.Add(200*time.Millisecond), 0, midi.NoteOff(0, 61))
	return start.Add(220 * time.Millisecond)
}

func TestBloopCancelAllPlaybacksReleasesHeldKeys(t *testing.T) {
	var out []midi.Message
	b := NewBloop(0, sink(&out), 0)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	midPlayback := recordTwoNoteLoop(b, start)

	b.Tick(midPlayback)
	if !b.IsPlaying() {
		t.Fatal("bloop should be playing back after its loop closes")
	}

	out = nil
	b.CancelAllPlaybacks(midPlayback)
	if b.IsPlaying() {
		t.Fatal("CancelAllPlaybacks should stop every playback")
	}

	released := false
	for _, m := range out {
		var ch, key, vel uint8
		if m.GetNoteOn(&ch, &key, &vel) && key == 60 && vel == 0 {
			released = true
		}
	}
	if !released {
		t.Fatalf("CancelAllPlaybacks should release keys the playback was holding, got %v", out)
	}
}

func TestBloopTogglePlaybackActiveMutesWithoutStopping(t *testing.T) {
	var out []midi.Message
	b := NewBloop(0, sink(&out), 0)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	midPlayback := recordTwoNoteLoop(b, start)
	b.Tick(midPlayback)

	if !b.IsPlaying() {
		t.Fatal("expected playback to be active")
	}

	out = nil
	b.TogglePlaybackActive(midPlayback)
	if b.IsPlaybackActive() {
		t.Fatal("TogglePlaybackActive should mute playback")
	}
	if !b.IsPlaying() {
		t.Fatal("muting should not stop playback, only silence it")
	}

	released := false
	for _, m := range out {
		var ch, key, vel uint8
		if m.GetNoteOn(&ch, &key, &vel) && key == 60 && vel == 0 {
			released = true
		}
	}
	if !released {
		t.Fatal("muting playback should release the keys it was holding")
	}
}

func TestBloopLookbackPreRollSplicesOntoBuffer(t *testing.T) {
	var out []midi.Message
	lookback := 100 * time.Millisecond
	b := NewBloop(0, sink(&out), lookback)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// A press of key 60 50ms before the armed recording window opens, and a
	// press of key 61 100ms before that (outside the lookback window). Both
	// are released before the window opens, so neither is held at the start
	// and only the recording buffer can replay them.
	before := start.Add(-50 * time.Millisecond)
	tooEarly := start.Add(-150 * time.Millisecond)

	b.StartRecording(start, nil)
	b.RecvMIDI(tooEarly, 0, midi.NoteOn(0, 61, 100))
	b.RecvMIDI(tooEarly.Add(10*time.Millisecond), 0, midi.NoteOff(0, 61))
	b.RecvMIDI(before, 0, midi.NoteOn(0, 60, 100))
	b.RecvMIDI(before.Add(10*time.Millisecond), 0, midi.NoteOff(0, 60))

	b.Tick(start.Add(time.Millisecond))
	b.StartPlaying(200 * time.Millisecond)

	// Only what the replay emits counts, not the live pass-through above.
	out = nil
	replayAt := start.Add(200*time.Millisecond + 50*time.Millisecond)
	b.Tick(replayAt)

	saw60, saw61 := false, false
	for _, m := range out {
		var ch, key, vel uint8
		if m.GetNoteOn(&ch, &key, &vel) {
			if key == 60 {
				saw60 = true
			}
			if key == 61 {
				saw61 = true
			}
		}
	}
	if !saw60 {
		t.Fatal("a press within the look-back window should be spliced onto the recording buffer")
	}
	if saw61 {
		t.Fatal("a press outside the look-back window must not be recorded")
	}
}
