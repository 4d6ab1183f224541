package looper

import (
	"testing"

	"bloopgo/midi"
)

func TestGateBlocksPressWhenNotListening(t *testing.T) {
	var g PassThroughGate
	if g.Filter(0, midi.NoteOn(0, 60, 100)) {
		t.Fatal("a press should not cross a non-listening gate")
	}
}

func TestGateAllowsPressWhenListening(t *testing.T) {
	g := PassThroughGate{Listening: true}
	if !g.Filter(0, midi.NoteOn(0, 60, 100)) {
		t.Fatal("a press should cross a listening gate")
	}
}

func TestGateAlwaysAllowsReleaseOfHeldKey(t *testing.T) {
	g := PassThroughGate{Listening: true}
	g.Filter(0, midi.NoteOn(0, 60, 100))
	g.Listening = false
	if !g.Filter(0, midi.NoteOff(0, 60)) {
		t.Fatal("release of a key this gate let through must always cross, even once not listening")
	}
}

func TestGateSuppressesReleaseWhileOtherChannelStillHolds(t *testing.T) {
	g := PassThroughGate{Listening: true}
	g.Filter(0, midi.NoteOn(0, 60, 100))
	g.Filter(1, midi.NoteOn(1, 60, 80))

	if g.Filter(0, midi.NoteOff(0, 60)) {
		t.Fatal("release on channel 0 should be suppressed while channel 1 still holds the key")
	}
	if !g.Filter(1, midi.NoteOff(1, 60)) {
		t.Fatal("release on channel 1 should cross once it is the last holder")
	}
}

func TestGateAftertouchOnlyForHeldKeys(t *testing.T) {
	g := PassThroughGate{Listening: true}
	if g.Filter(0, midi.PolyAfterTouch(0, 60, 50)) {
		t.Fatal("aftertouch for an unheld key should not cross")
	}
	g.Filter(0, midi.NoteOn(0, 60, 100))
	if !g.Filter(0, midi.PolyAfterTouch(0, 60, 50)) {
		t.Fatal("aftertouch for a held key should cross")
	}
}

func TestGatePrivateFilterDoesNotMutateListeningFlag(t *testing.T) {
	g := PassThroughGate{Listening: false}
	if !g.filter(0, midi.NoteOn(0, 60, 100), true) {
		t.Fatal("private filter with listening=true override should let the press through")
	}
	if g.Listening {
		t.Fatal("private filter must not mutate the real Listening flag")
	}
	// The Held bitmap is still updated, so a look-ahead release is tracked.
	if !g.Held.Get(60).Any() {
		t.Fatal("private filter should still record Held state for the key")
	}
}
