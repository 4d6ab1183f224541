// Package control binds a physical control surface to the scheduler: it
// turns PadEvents into looper.Commands and mirrors bloop state back onto
// the surface's LEDs. It is the only package that knows about both midi
// device I/O and looper domain commands; neither of those packages knows
// about the other.
package control

import (
	"context"
	"time"

	"bloopgo/looper"
	"bloopgo/midi"
	"bloopgo/theme"
)

// Layout maps a Launchpad-style 8x8 grid onto bloops: column i is bloop
// i's column, row 0 is its DoKey pad, row 1 is its ToggleListening pad,
// row 2 is its CancelPlaying pad. The side column's top pad clears
// everything.
type Layout struct {
	DoKeyRow    int
	ListenRow   int
	CancelRow   int
	ClearAllRow int
	ClearAllCol int
}

// DefaultLayout matches the 8x8 grid most Launchpad-family devices expose.
func DefaultLayout() Layout {
	return Layout{
		DoKeyRow:    0,
		ListenRow:   1,
		CancelRow:   2,
		ClearAllRow: 7,
		ClearAllCol: 8,
	}
}

// Bindings drives one control surface and one note-input device against a
// Scheduler until Close is called. Either ctrl or noteInput may be nil;
// when noteInput is nil, note events (if any) are read from ctrl instead,
// so a single keyboard acting as both still works.
type Bindings struct {
	sched     *looper.Scheduler
	ctrl      midi.Controller
	noteInput midi.Controller
	uiCh      <-chan looper.UIState
	theme     *theme.Theme
	layout    Layout
	cancel    context.CancelFunc
	done      chan struct{}
}

// New starts translating ctrl's pad events and noteInput's (or, absent a
// separate noteInput, ctrl's) note events into commands against sched,
// and begins mirroring bloop state back onto ctrl's LEDs. It subscribes
// its own dedicated UIState channel from sched, so its LED-refresh timer
// never competes with any other consumer (the TUI, the console) for a
// shared snapshot.
func New(sched *looper.Scheduler, ctrl, noteInput midi.Controller, th *theme.Theme) *Bindings {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bindings{
		sched:     sched,
		ctrl:      ctrl,
		noteInput: noteInput,
		uiCh:      sched.Subscribe(),
		theme:     th,
		layout:    DefaultLayout(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go b.run(ctx)
	return b
}

// Close stops the binding goroutine. It does not close the controller(s)
// or the scheduler; callers own those lifecycles.
func (b *Bindings) Close() {
	b.cancel()
	<-b.done
}

func (b *Bindings) run(ctx context.Context) {
	defer close(b.done)

	ledTick := time.NewTicker(150 * time.Millisecond)
	defer ledTick.Stop()

	var padCh <-chan midi.PadEvent
	if b.ctrl != nil {
		padCh = b.ctrl.PadEvents()
	}

	var noteCh <-chan midi.NoteEvent
	switch {
	case b.noteInput != nil:
		noteCh = b.noteInput.NoteEvents()
	case b.ctrl != nil:
		noteCh = b.ctrl.NoteEvents()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case pad, ok := <-padCh:
			if !ok {
				return
			}
			b.handlePad(pad)

		case note, ok := <-noteCh:
			if !ok {
				return
			}
			b.handleNote(note)

		case <-ledTick.C:
			b.refreshLEDs()
		}
	}
}

func (b *Bindings) handlePad(pad midi.PadEvent) {
	if pad.Row == b.layout.ClearAllRow && pad.Col == b.layout.ClearAllCol {
		b.sched.Submit(looper.Command{Kind: looper.ClearAll})
		return
	}

	i := pad.Col
	switch pad.Row {
	case b.layout.DoKeyRow:
		b.sched.Submit(looper.Command{Kind: looper.DoKey, BloopIndex: i})
	case b.layout.ListenRow:
		b.sched.Submit(looper.Command{Kind: looper.ToggleListening, BloopIndex: i})
	case b.layout.CancelRow:
		b.sched.Submit(looper.Command{Kind: looper.CancelPlaying, BloopIndex: i})
	}
}

func (b *Bindings) handleNote(note midi.NoteEvent) {
	var msg midi.Message
	if note.Velocity > 0 {
		msg = midi.NoteOn(midi.Channel(note.Channel), midi.Key(note.Note), midi.Velocity(note.Velocity))
	} else {
		msg = midi.NoteOff(midi.Channel(note.Channel), midi.Key(note.Note))
	}
	ch, ok := midi.ParseChannelVoice(msg)
	if !ok {
		return
	}
	cm := midi.ChannelMessage{Channel: ch, Message: msg}
	b.sched.Submit(looper.Command{Kind: looper.Midi, MIDI: cm})
}

// refreshLEDs asks the scheduler for a fresh snapshot and repaints each
// bloop's DoKey pad according to its current state. It runs on a timer
// rather than on every UIState publish so LED traffic stays bounded
// regardless of how often the scheduler refreshes its own snapshot. If no
// control surface is connected there is nothing to paint.
func (b *Bindings) refreshLEDs() {
	if b.ctrl == nil {
		return
	}
	b.sched.Submit(looper.Command{Kind: looper.RefreshUI})
	state := <-b.uiCh

	var updates []midi.LEDUpdate
	for i, bl := range state.Bloops {
		color := b.colorFor(bl)
		updates = append(updates, midi.LEDUpdate{Row: b.layout.DoKeyRow, Col: i, Color: color})
	}
	b.ctrl.SetLEDBatch(updates)
}

func (b *Bindings) colorFor(bl looper.BloopUIState) [3]uint8 {
	switch {
	case bl.Recording:
		return b.theme.RGB(theme.RoleWarning)
	case bl.WaitingToRecord:
		return b.theme.RGB(theme.RoleCursor)
	case bl.PlayingBack && bl.PlaybackActive:
		return b.theme.RGB(theme.RoleSuccess)
	case bl.PlayingBack && !bl.PlaybackActive:
		return b.theme.RGB(theme.RoleMuted)
	case !bl.Listening:
		return b.theme.RGB(theme.RoleAccent)
	default:
		return [3]uint8{0, 0, 0}
	}
}
