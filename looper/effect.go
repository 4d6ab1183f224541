package looper

import "bloopgo/midi"

// EffectKind is the canonical press/release/aftertouch view of a raw MIDI
// message. All scheduling logic in this package operates on KeyEffect, not
// the raw message, per spec.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectPress
	EffectRelease
	EffectAftertouch
)

// KeyEffect is the derived key-level meaning of a MIDI message.
type KeyEffect struct {
	Kind EffectKind
	Key  midi.Key
	Vel  midi.Velocity
}

// EffectOf derives the KeyEffect of msg. A NoteOn with velocity 0 is
// equivalent to a NoteOff. Polyphonic aftertouch yields EffectAftertouch;
// everything else (CC, program change, channel aftertouch, pitch bend)
// yields EffectNone.
func EffectOf(msg midi.Message) KeyEffect {
	var ch, key, vel uint8
	if msg.GetNoteOn(&ch, &key, &vel) {
		if vel == 0 {
			return KeyEffect{Kind: EffectRelease, Key: midi.Key(key)}
		}
		return KeyEffect{Kind: EffectPress, Key: midi.Key(key), Vel: midi.Velocity(vel)}
	}
	if msg.GetNoteOff(&ch, &key, &vel) {
		return KeyEffect{Kind: EffectRelease, Key: midi.Key(key)}
	}
	if msg.GetPolyAfterTouch(&ch, &key, &vel) {
		return KeyEffect{Kind: EffectAftertouch, Key: midi.Key(key)}
	}
	return KeyEffect{Kind: EffectNone}
}
