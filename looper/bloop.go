package looper

import (
	"sort"
	"time"

	"bloopgo/debug"
	"bloopgo/midi"
)

// PlaybackCursor is one in-flight replay of a bloop's recording buffer.
type PlaybackCursor struct {
	Offset      time.Duration
	Index       int
	KeysPressed KeySet
}

func newPlaybackCursor(offset time.Duration) *PlaybackCursor {
	return &PlaybackCursor{Offset: offset}
}

// OutputSink receives messages a bloop has decided to actually send, on its
// own output channel. Errors are logged by the caller, never propagated
// into the scheduler's hot path (spec §7: transient send failure is logged
// and dropped).
type OutputSink func(midi.Message) error

// Bloop is one independently-armable loop slot: one recording buffer, one
// or more active playback cursors, a pass-through gate and a recording
// gate, per spec §3.
type Bloop struct {
	outChannel midi.Channel
	sink       OutputSink
	lookback   time.Duration
	intercept  Interceptor

	pass            PassThroughGate
	rec             PassThroughGate
	playbackActive  bool

	keys PerKey[KeyStatus]

	buffer  []midi.TimedMessage
	preRoll []midi.TimedMessage

	recStartState []pressedKey
	recEndState   KeySet

	recStart    *time.Time
	recEnd      *time.Time
	playbacks   []*PlaybackCursor
	nextPlayAt  *time.Time
}

type pressedKey struct {
	key midi.Key
	vel midi.Velocity
}

// NewBloop creates an idle bloop that sends on outChannel via sink,
// retaining up to lookback of pre-roll before an armed recording start.
func NewBloop(outChannel midi.Channel, sink OutputSink, lookback time.Duration) *Bloop {
	return &Bloop{
		outChannel:     outChannel,
		sink:           sink,
		lookback:       lookback,
		intercept:      NopInterceptor{},
		pass:           PassThroughGate{Listening: true},
		playbackActive: true,
	}
}

// SetInterceptor installs a pre-send interceptor (see intercept.go). Pass
// NopInterceptor{} to restore the default forward-everything behavior.
func (b *Bloop) SetInterceptor(i Interceptor) {
	if i == nil {
		i = NopInterceptor{}
	}
	b.intercept = i
}

// --- derived state (spec §4.2) ---

// IsArmed reports whether the bloop is waiting for its recording window to
// begin at now.
func (b *Bloop) IsArmed(now time.Time) bool {
	return b.recStart != nil && now.Before(*b.recStart)
}

// IsRecording reports whether now falls within the recording window.
func (b *Bloop) IsRecording(now time.Time) bool {
	if b.recStart == nil || now.Before(*b.recStart) {
		return false
	}
	if b.recEnd == nil {
		return true
	}
	return now.Before(*b.recEnd)
}

// IsPlaying reports whether any playback is active or queued.
func (b *Bloop) IsPlaying() bool {
	return len(b.playbacks) > 0 || b.nextPlayAt != nil
}

// IsIdle reports whether none of armed/recording/playing hold.
func (b *Bloop) IsIdle(now time.Time) bool {
	return !b.IsArmed(now) && !b.IsRecording(now) && !b.IsPlaying()
}

// IsListening reports whether the pass-through gate currently forwards
// input to the output.
func (b *Bloop) IsListening() bool { return b.pass.Listening }

// IsPlaybackActive reports whether playback is currently audible.
func (b *Bloop) IsPlaybackActive() bool { return b.playbackActive }

// --- key accounting (spec §4.1) ---

// isKeyHeld reports whether key is held by user input, or by some active
// playback cursor.
func (b *Bloop) isKeyHeld(key midi.Key) bool {
	if b.keys.Get(key).Input.Any() {
		return true
	}
	if !b.playbackActive {
		return false
	}
	for _, pb := range b.playbacks {
		if pb.KeysPressed.Contains(key) {
			return true
		}
	}
	return false
}

// playbackKeysPressed is the union, over every in-flight playback cursor,
// of keys it currently asserts — independent of playbackActive, since
// toggling playback needs the full held set regardless of its prior value.
func (b *Bloop) playbackKeysPressed() KeySet {
	var u KeySet
	for _, pb := range b.playbacks {
		u = u.Union(pb.KeysPressed)
	}
	return u
}

// send enqueues message on the bloop's own output channel, suppressing a
// release if some other source is still holding the key (the single
// invariant that prevents hung notes and double-presses, spec §4.1).
func (b *Bloop) send(at time.Time, msg midi.Message) {
	eff := EffectOf(msg)
	if eff.Kind == EffectRelease && b.isKeyHeld(eff.Key) {
		return
	}

	out := midi.Rechannel(msg, b.outChannel)
	action, delay := b.intercept.Intercept(at, &out)
	switch action {
	case ActionDrop:
		return
	case ActionDelay:
		_ = delay // the delay is not honored; the message is sent immediately.
	}

	if b.sink != nil {
		if err := b.sink(out); err != nil {
			debug.Log("bloop", "send failed, dropping message: %v", err)
		}
	}
}

func (b *Bloop) releaseKeys(at time.Time, keys KeySet) {
	for _, k := range keys.IterKeys() {
		b.send(at, midi.NoteOn(b.outChannel, k, 0))
	}
}

// --- commands (spec §4.2) ---

// CancelRecording clears the recording window without discarding buffered
// content (a playback already in flight keeps using it).
func (b *Bloop) CancelRecording() {
	if b.recStart != nil {
		b.recStart = nil
		b.recEnd = nil
		b.rec.Listening = false
	}
}

// CancelAllPlaybacks stops every in-flight and queued playback, releasing
// whatever keys they were asserting.
func (b *Bloop) CancelAllPlaybacks(at time.Time) {
	toRelease := b.playbackKeysPressed()
	b.playbacks = nil
	b.nextPlayAt = nil
	b.releaseKeys(at, toRelease)
}

// ToggleListening flips the pass-through gate; while recording, the
// recording gate mirrors the change (spec's resolution of the open
// question in §9).
func (b *Bloop) ToggleListening(now time.Time) {
	b.pass.Listening = !b.pass.Listening
	if b.IsRecording(now) {
		b.rec.Listening = b.pass.Listening
	}
}

// TogglePlaybackActive mutes or unmutes playback without stopping it:
// asserted keys are synthesized on or released to match.
func (b *Bloop) TogglePlaybackActive(at time.Time) {
	b.playbackActive = !b.playbackActive
	if b.playbackActive {
		for _, k := range b.playbackKeysPressed().IterKeys() {
			if !b.keys.Get(k).Input.Any() {
				vel := b.keys.Get(k).LastVelocity
				b.send(at, midi.NoteOn(b.outChannel, k, vel))
			}
		}
	} else {
		b.releaseKeys(at, b.playbackKeysPressed())
	}
}

// StartRecording arms the bloop for a recording window [start, end).
// end may be nil for an open-ended recording (tempo not yet known).
func (b *Bloop) StartRecording(start time.Time, end *time.Time) {
	b.recStart = &start
	b.recEnd = end
}

// StartPlaying closes the recording window after duration and schedules
// the first playback iteration. Requires a recording to be in progress.
func (b *Bloop) StartPlaying(duration time.Duration) {
	b.rec.Listening = false

	var endState KeySet
	for k := 0; k < 128; k++ {
		if b.keys.Get(midi.Key(k)).Input.Any() {
			endState.Insert(midi.Key(k))
		}
	}
	b.recEndState = endState

	if b.recStart == nil {
		return
	}
	end := b.recStart.Add(duration)
	b.recEnd = &end
	b.nextPlayAt = &end
}

// RecvMIDI is the single ingestion point for inbound MIDI: it pushes the
// message through the pass-through gate (output) and, independently,
// through the recording gate (buffer).
func (b *Bloop) RecvMIDI(now time.Time, ch midi.Channel, msg midi.Message) {
	passed := b.pass.Filter(ch, msg)
	b.applyEffect(&b.keys, msg, ch, false)
	if passed {
		b.send(now, msg)
	}

	switch {
	case b.rec.Listening:
		if b.rec.Filter(ch, msg) {
			b.applyEffect(&b.keys, msg, ch, true)
			b.buffer = append(b.buffer, midi.TimedMessage{Time: now, Message: msg})
		}

	case b.recStart != nil && b.lookback > 0 && !now.Before(b.recStart.Add(-b.lookback)):
		// Look-back pre-roll: a keystroke shortly before the official
		// rec_start shouldn't be lost when the gate clears the buffer on
		// open. We provisionally run the recorder gate as if it were
		// already listening and stash qualifying messages; bloop.tick
		// splices them onto the buffer when the gate really opens.
		if b.rec.filter(ch, msg, true) {
			if eff := EffectOf(msg); eff.Kind == EffectPress {
				b.keys.At(eff.Key).LastVelocity = eff.Vel
			}
			b.preRoll = append(b.preRoll, midi.TimedMessage{Time: now, Message: msg})
		}
	}
}

func (b *Bloop) applyEffect(keys *PerKey[KeyStatus], msg midi.Message, ch midi.Channel, recording bool) {
	eff := EffectOf(msg)
	switch eff.Kind {
	case EffectPress:
		status := keys.At(eff.Key)
		if recording {
			status.Recording.SetOn(ch)
		} else {
			status.Input.SetOn(ch)
		}
		status.LastVelocity = eff.Vel
	case EffectRelease:
		status := keys.At(eff.Key)
		if recording {
			status.Recording.SetOff(ch)
		} else {
			status.Input.SetOff(ch)
		}
	}
}

// Tick drains due events and returns the next instant the scheduler must
// wake this bloop at. ok is false if there is nothing to wait for (no
// recording window armed, or an open-ended recording with no end yet).
func (b *Bloop) Tick(now time.Time) (wake time.Time, ok bool) {
	if b.recStart == nil {
		return time.Time{}, false
	}
	startTime := *b.recStart

	if !now.After(startTime) {
		return startTime, true
	}

	if b.IsRecording(now) && !b.rec.Listening {
		b.openRecordingGate(startTime)
	}

	if b.recEnd == nil {
		return time.Time{}, false
	}
	endTime := *b.recEnd
	loopDuration := endTime.Sub(startTime)

	if b.rec.Listening {
		if !now.After(endTime) {
			return endTime, true
		}
		b.StartPlaying(loopDuration)
	}

	if b.nextPlayAt != nil && !b.nextPlayAt.After(now) {
		queued := *b.nextPlayAt
		b.nextPlayAt = nil

		// Catch up to the present so a new iteration never observes a
		// prior iteration's events still pending at the same instant.
		b.Tick(queued)

		pb := newPlaybackCursor(queued.Sub(startTime))
		for _, pk := range b.recStartState {
			pb.KeysPressed.Insert(pk.key)
			if b.playbackActive {
				b.send(queued, midi.NoteOn(b.outChannel, pk.key, pk.vel))
			}
		}
		b.playbacks = append(b.playbacks, pb)

		next := queued.Add(loopDuration)
		b.nextPlayAt = &next
	}

	var wakeSet bool
	if b.nextPlayAt != nil {
		wake = *b.nextPlayAt
		wakeSet = true
	}

	type staged struct {
		at  time.Time
		msg midi.Message
	}
	var events []staged

	live := b.playbacks[:0]
	for _, pb := range b.playbacks {
		for pb.Index < len(b.buffer) {
			evt := b.buffer[pb.Index]
			evtTime := evt.Time.Add(pb.Offset)
			if evtTime.After(now) {
				if !wakeSet || evtTime.Before(wake) {
					wake = evtTime
					wakeSet = true
				}
				break
			}

			pb.KeysPressed.Update(EffectOf(evt.Message))
			if eff := EffectOf(evt.Message); eff.Kind == EffectPress {
				b.keys.At(eff.Key).LastVelocity = eff.Vel
			}
			if b.playbackActive {
				events = append(events, staged{at: evt.Time, msg: evt.Message})
			}
			pb.Index++
		}
		if pb.Index < len(b.buffer) {
			live = append(live, pb)
		}
	}
	b.playbacks = live

	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })
	for _, e := range events {
		b.send(now, e.msg)
	}

	return wake, wakeSet
}

// openRecordingGate opens the recording gate: mirror the pass gate's
// listening state, clear the buffer, splice in any look-back pre-roll, and
// snapshot which keys (with velocity) were already held at the start.
func (b *Bloop) openRecordingGate(startTime time.Time) {
	b.rec.Listening = b.pass.Listening

	cutoff := startTime.Add(-b.lookback)
	buffer := b.buffer[:0]
	for _, m := range b.preRoll {
		if !m.Time.Before(cutoff) {
			buffer = append(buffer, m)
		}
	}
	b.buffer = buffer
	b.preRoll = nil

	var startState []pressedKey
	for k := 0; k < 128; k++ {
		key := midi.Key(k)
		status := b.keys.Get(key)
		if status.Input.Any() {
			startState = append(startState, pressedKey{key: key, vel: status.LastVelocity})
		}
	}
	b.recStartState = startState
}

// BloopUIState is one bloop's derived, read-only view exposed to the UI layer.
type BloopUIState struct {
	Listening        bool
	WaitingToRecord  bool
	Recording        bool
	PlayingBack      bool
	PlaybackActive   bool
}

func (b *Bloop) UIState(now time.Time) BloopUIState {
	return BloopUIState{
		Listening:       b.pass.Listening,
		WaitingToRecord: b.IsArmed(now),
		Recording:       b.IsRecording(now),
		PlayingBack:     b.IsPlaying(),
		PlaybackActive:  b.playbackActive,
	}
}
