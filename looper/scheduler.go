package looper

import (
	"sync"
	"time"

	"bloopgo/debug"
	"bloopgo/midi"
)

// Scheduler owns every bloop and the single goroutine that ticks them,
// dispatches commands, and maintains the shared tempo anchor. It is the
// sole writer of all bloop state; everything else communicates with it
// through Commands and reads it back through UIState.
type Scheduler struct {
	bloops []*Bloop
	tempo  TempoAnchor

	commands *Queue[Command]

	uiMu   sync.Mutex
	uiSubs []chan UIState

	done chan struct{}
}

// NewScheduler creates a scheduler with bloopCount bloops, each sending on
// outChannels[i] (cycled if shorter than bloopCount) via sink, retaining
// lookback of pre-roll before an armed recording window opens.
func NewScheduler(bloopCount int, outChannels []midi.Channel, sink OutputSink, lookback time.Duration) *Scheduler {
	if len(outChannels) == 0 {
		outChannels = []midi.Channel{0}
	}
	bloops := make([]*Bloop, bloopCount)
	for i := range bloops {
		ch := outChannels[i%len(outChannels)]
		bloops[i] = NewBloop(ch, sink, lookback)
	}
	return &Scheduler{
		bloops:   bloops,
		commands: NewQueue[Command](),
		done:     make(chan struct{}),
	}
}

// Submit enqueues a command for the scheduler goroutine to process.
func (s *Scheduler) Submit(cmd Command) {
	s.commands.Push(cmd)
}

// Subscribe registers a new independent subscription for UIState
// snapshots and returns its receive end. Each subscription is its own
// size-1 "newest wins" channel: a consumer that falls behind sees only
// the latest state, never a backlog, and never steals an update from
// another subscriber. Every long-lived consumer (the TUI, the console,
// a control-surface LED feedback loop) must call Subscribe once and keep
// the result, rather than sharing one channel between readers.
func (s *Scheduler) Subscribe() <-chan UIState {
	ch := make(chan UIState, 1)
	s.uiMu.Lock()
	s.uiSubs = append(s.uiSubs, ch)
	s.uiMu.Unlock()
	return ch
}

// Stop halts the scheduler goroutine and waits for it to exit, releasing
// any keys still held by in-flight playback.
func (s *Scheduler) Stop() {
	s.commands.Close()
	<-s.done
}

// Run is the scheduler's main loop: it ticks every bloop to find the
// earliest wake-up any of them needs, then waits on the command queue up
// to that deadline (or indefinitely, if nothing needs waking), per the
// original dispatcher's recv_deadline/recv split.
func (s *Scheduler) Run() {
	defer close(s.done)

	for {
		now := time.Now()
		var deadline time.Time
		haveDeadline := false
		for _, b := range s.bloops {
			wake, ok := b.Tick(now)
			if !ok {
				continue
			}
			if !haveDeadline || wake.Before(deadline) {
				deadline = wake
				haveDeadline = true
			}
		}

		if !haveDeadline {
			// No bloop needs waking: block until a command arrives.
			deadline = now.Add(365 * 24 * time.Hour)
		}

		cmd, ok, closed := s.commands.Pop(deadline)
		if closed {
			now = time.Now()
			for _, b := range s.bloops {
				b.CancelAllPlaybacks(now)
			}
			return
		}
		if !ok {
			continue // deadline passed with nothing queued; loop ticks again
		}

		s.dispatch(cmd)
	}
}

func (s *Scheduler) dispatch(cmd Command) {
	now := time.Now()

	switch cmd.Kind {
	case DoKey, ToggleListening, TogglePlayback, CancelPlaying, StartRecording, StartPlaying:
		if cmd.BloopIndex < 0 || cmd.BloopIndex >= len(s.bloops) {
			debug.Log("scheduler", "ignoring command %d for out-of-range bloop #%d", cmd.Kind, cmd.BloopIndex)
			return
		}
	}

	switch cmd.Kind {
	case RefreshUI:
		s.publishUIState(now)

	case Midi:
		for _, b := range s.bloops {
			b.RecvMIDI(now, cmd.MIDI.Channel, cmd.MIDI.Message)
		}

	case DoKey:
		b := s.bloops[cmd.BloopIndex]
		switch {
		case b.IsRecording(now):
			s.dispatch(Command{Kind: StartPlaying, BloopIndex: cmd.BloopIndex})
		case b.IsPlaying():
			s.dispatch(Command{Kind: TogglePlayback, BloopIndex: cmd.BloopIndex})
		default:
			s.dispatch(Command{Kind: StartRecording, BloopIndex: cmd.BloopIndex})
		}

	case ToggleListening:
		s.bloops[cmd.BloopIndex].ToggleListening(now)

	case TogglePlayback:
		s.bloops[cmd.BloopIndex].TogglePlaybackActive(now)

	case CancelPlaying:
		s.bloops[cmd.BloopIndex].CancelAllPlaybacks(now)

	case StartRecording:
		s.startRecording(now, cmd.BloopIndex)

	case StartPlaying:
		s.startPlaying(now, cmd.BloopIndex)

	case ClearAll:
		for _, b := range s.bloops {
			b.CancelRecording()
			b.CancelAllPlaybacks(now)
		}
		s.tempo.Clear()

	case SetOutputPort:
		debug.Log("scheduler", "output port change requested: %s (not applied; the output sink is fixed at startup)", cmd.OutputPortName)
	}
}

// startRecording arms bloops[i]. If no tempo is established yet, it first
// looks for another bloop still mid-recording and closes it out now to
// infer (epoch, duration) from its elapsed time, mirroring the original's
// "stop recording on another bloop to learn the tempo" behavior.
func (s *Scheduler) startRecording(now time.Time, i int) {
	if !s.tempo.IsSet() {
		for _, other := range s.bloops {
			if other.rec.Listening {
				if other.recStart != nil {
					start := *other.recStart
					duration := now.Sub(start)
					s.tempo.Set(start, duration)
					other.StartPlaying(duration)
				}
				break
			}
		}
	}

	if start, end, ok := s.tempo.NextLoopTime(now); ok {
		debug.Log("scheduler", "schedule recording start on #%d at %s", i, start)
		s.bloops[i].StartRecording(start, &end)
	} else {
		debug.Log("scheduler", "schedule recording start on #%d immediately", i)
		s.bloops[i].StartRecording(now, nil)
	}
}

// startPlaying closes bloops[i]'s open-ended recording immediately and,
// if no tempo is set yet, fixes the tempo anchor from its elapsed time.
// If the tempo is already known this request is stale and ignored, per
// the original dispatcher.
func (s *Scheduler) startPlaying(now time.Time, i int) {
	if s.tempo.IsSet() {
		return
	}
	b := s.bloops[i]
	if b.recStart == nil {
		return
	}
	start := *b.recStart
	duration := now.Sub(start)
	s.tempo.Set(start, duration)
	b.StartPlaying(duration)
}

func (s *Scheduler) publishUIState(now time.Time) {
	state := UIState{}
	if epoch, ok := s.tempo.Epoch(); ok {
		state.Epoch = epoch
		state.EpochSet = true
	}
	if duration, ok := s.tempo.Duration(); ok {
		state.Duration = duration
		state.DurationSet = true
	}
	state.Bloops = make([]BloopUIState, len(s.bloops))
	for i, b := range s.bloops {
		state.Bloops[i] = b.UIState(now)
	}

	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	for _, sub := range s.uiSubs {
		select {
		case sub <- state:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- state:
			default:
			}
		}
	}
}
