// Package midi is the external MIDI collaborator: device enumeration,
// controller input listening and LED output, and the looper's MIDI message
// vocabulary. The pad-to-command mapping lives in package control, and the
// scheduler's output sink is opened in main. None of this is part of the
// loop scheduler; see package looper for that.
package midi

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Key is a 7-bit MIDI note number.
type Key uint8

// NewKey masks v to the 7-bit MIDI key range.
func NewKey(v uint8) Key { return Key(v & 0x7F) }

// Channel is a 4-bit MIDI channel.
type Channel uint8

// NewChannel masks v to the 4-bit MIDI channel range.
func NewChannel(v uint8) Channel { return Channel(v & 0x0F) }

// Velocity is a 7-bit MIDI velocity. A value of 0 on a note-on is
// semantically a release.
type Velocity uint8

// NewVelocity masks v to the 7-bit MIDI velocity range.
func NewVelocity(v uint8) Velocity { return Velocity(v & 0x7F) }

// Message is a parsed channel-voice MIDI message, backed by gomidi's wire
// encoding so it can be sent straight to an output port.
type Message = gomidi.Message

// NoteOn builds a note-on message. A velocity of 0 is sent verbatim (it is
// interpreted as a release by every receiver, including our own effect
// derivation in effect.go).
func NoteOn(ch Channel, key Key, vel Velocity) Message {
	return gomidi.NoteOn(uint8(ch), uint8(key), uint8(vel))
}

// NoteOff builds a note-off message.
func NoteOff(ch Channel, key Key) Message {
	return gomidi.NoteOff(uint8(ch), uint8(key))
}

// ControlChange builds a control-change message.
func ControlChange(ch Channel, cc, value uint8) Message {
	return gomidi.ControlChange(uint8(ch), cc, value)
}

// ProgramChange builds a program-change message.
func ProgramChange(ch Channel, program uint8) Message {
	return gomidi.ProgramChange(uint8(ch), program)
}

// ChannelAfterTouch builds a channel (non-polyphonic) aftertouch message.
func ChannelAfterTouch(ch Channel, pressure uint8) Message {
	return gomidi.AfterTouch(uint8(ch), pressure)
}

// PolyAfterTouch builds a polyphonic (per-key) aftertouch message.
func PolyAfterTouch(ch Channel, key Key, pressure uint8) Message {
	return gomidi.PolyAfterTouch(uint8(ch), uint8(key), pressure)
}

// PitchBend builds a pitch-bend message. value is relative to center
// (-8192..8191), matching gomidi's convention.
func PitchBend(ch Channel, value int16) Message {
	return gomidi.Pitchbend(uint8(ch), value)
}

// Rechannel returns msg re-addressed to channel ch, leaving everything else
// about it untouched. Non-channel-voice messages (no status byte in the
// 0x80-0xEF range) are returned unmodified. Bloops use this so a recorded
// message always replays on the bloop's configured output channel,
// regardless of which channel it was originally received on.
func Rechannel(msg Message, ch Channel) Message {
	raw := msg.Bytes()
	if len(raw) == 0 {
		return msg
	}
	status := raw[0]
	if status < 0x80 || status >= 0xF0 {
		return msg
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	out[0] = (status & 0xF0) | byte(ch&0x0F)
	return Message(out)
}

// TimedMessage pairs a message with the instant it was received or should
// be (re)played.
type TimedMessage struct {
	Time    time.Time
	Message Message
}

// ChannelMessage pairs a message with the channel it arrived on. gomidi
// already encodes the channel in the status byte, but callers that parsed
// it via a Get* accessor have it in hand and the looper's recv path wants
// it explicit, mirroring the original implementation's separate
// LiveEvent::Midi{channel, message}.
type ChannelMessage struct {
	Channel Channel
	Message Message
}

// ParseChannelVoice extracts the channel and a bool indicating whether msg
// is a channel-voice message this looper understands (note on/off,
// aftertouch, CC, program change, pitch bend). Non-channel-voice messages
// (system common/realtime, sysex) return ok=false and must be ignored by
// callers, per spec: "Non-channel MIDI events are ignored by the core."
func ParseChannelVoice(msg Message) (channel Channel, ok bool) {
	var ch, a, b uint8
	var relative int16
	var absolute uint16
	switch {
	case msg.GetNoteOn(&ch, &a, &b):
		return Channel(ch), true
	case msg.GetNoteOff(&ch, &a, &b):
		return Channel(ch), true
	case msg.GetPolyAfterTouch(&ch, &a, &b):
		return Channel(ch), true
	case msg.GetAfterTouch(&ch, &a):
		return Channel(ch), true
	case msg.GetControlChange(&ch, &a, &b):
		return Channel(ch), true
	case msg.GetProgramChange(&ch, &a):
		return Channel(ch), true
	case msg.GetPitchBend(&ch, &relative, &absolute):
		return Channel(ch), true
	default:
		return 0, false
	}
}
