package looper

import "bloopgo/midi"

// CommandKind enumerates the requests the scheduler understands. Every
// mutation of scheduler- or bloop-level state arrives as one of these,
// funneled through a single Queue so the scheduler goroutine never shares
// state with its callers.
type CommandKind int

const (
	// RefreshUI asks the scheduler to publish a fresh UIState snapshot.
	RefreshUI CommandKind = iota
	// Midi carries one received MIDI message to fan out to every bloop.
	Midi
	// DoKey is the control surface's one overloaded per-bloop action key:
	// its effect depends on the targeted bloop's current state.
	DoKey
	// ToggleListening flips a bloop's pass-through gate.
	ToggleListening
	// TogglePlayback mutes/unmutes a bloop's active playback.
	TogglePlayback
	// CancelPlaying stops all of a bloop's in-flight and queued playback.
	CancelPlaying
	// StartRecording arms a bloop to begin recording at the next aligned
	// loop boundary (or immediately, if no tempo is established yet).
	StartRecording
	// StartPlaying closes a bloop's open-ended recording and fixes the
	// tempo from its elapsed recording time. It is ignored once a tempo is
	// established.
	StartPlaying
	// ClearAll cancels every bloop's recording and playback and resets
	// the tempo anchor.
	ClearAll
	// SetOutputPort names a different output port. The scheduler only
	// logs it; the output sink keeps sending to the port opened at startup.
	SetOutputPort
)

// Command is one request placed on the scheduler's command queue.
type Command struct {
	Kind CommandKind

	// BloopIndex targets DoKey, ToggleListening, TogglePlayback,
	// CancelPlaying, StartRecording and StartPlaying.
	BloopIndex int

	// MIDI carries the payload for Midi.
	MIDI midi.ChannelMessage

	// OutputPortName carries the payload for SetOutputPort.
	OutputPortName string
}
