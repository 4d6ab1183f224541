package looper

import "bloopgo/midi"

// PassThroughGate is a pure filter deciding whether an incoming message
// crosses a gate — either the pass-through gate to the output, or the
// recording gate into a loop's buffer. As a side effect it updates Held to
// correctly bracket note-on/off pairs across channels.
type PassThroughGate struct {
	Held      PerKey[ChannelSet]
	Listening bool
}

// Filter reports whether msg should cross the gate, updating Held.
func (g *PassThroughGate) Filter(ch midi.Channel, msg midi.Message) bool {
	return g.filter(ch, msg, g.Listening)
}

// filter implements the gate with an explicit listening flag, so the
// look-back pre-roll (bloop.go) can ask "would this have passed had the
// gate already been listening" without flipping the real flag.
func (g *PassThroughGate) filter(ch midi.Channel, msg midi.Message, listening bool) bool {
	eff := EffectOf(msg)
	switch eff.Kind {
	case EffectPress:
		if !listening {
			return false
		}
		g.Held.At(eff.Key).SetOn(ch)
		return true

	case EffectRelease:
		g.Held.At(eff.Key).SetOff(ch)
		return !g.Held.Get(eff.Key).Any()

	case EffectAftertouch:
		return g.Held.Get(eff.Key).Any()

	default:
		return listening
	}
}
