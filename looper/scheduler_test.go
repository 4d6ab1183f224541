package looper

import (
	"testing"
	"time"

	"bloopgo/midi"
)

func TestSchedulerRefreshUIReportsIdleBloops(t *testing.T) {
	s := NewScheduler(2, []midi.Channel{0, 1}, nil, 0)
	ch := s.Subscribe()
	go s.Run()
	defer s.Stop()

	s.Submit(Command{Kind: RefreshUI})

	select {
	case state := <-ch:
		if state.EpochSet || state.DurationSet {
			t.Fatal("a fresh scheduler should report no tempo anchor")
		}
		if len(state.Bloops) != 2 {
			t.Fatalf("expected 2 bloops in snapshot, got %d", len(state.Bloops))
		}
		for i, b := range state.Bloops {
			if b.Recording || b.PlayingBack || b.WaitingToRecord {
				t.Fatalf("bloop %d should be fully idle, got %+v", i, b)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for UIState")
	}
}

func TestSchedulerStartRecordingWithNoTempoArmsImmediately(t *testing.T) {
	s := NewScheduler(1, nil, nil, 0)
	ch := s.Subscribe()
	go s.Run()
	defer s.Stop()

	s.Submit(Command{Kind: StartRecording, BloopIndex: 0})
	s.Submit(Command{Kind: RefreshUI})

	select {
	case state := <-ch:
		b := state.Bloops[0]
		if !b.WaitingToRecord && !b.Recording {
			t.Fatalf("bloop should be armed or already recording, got %+v", b)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for UIState")
	}
}

func TestSchedulerClearAllResetsTempo(t *testing.T) {
	s := NewScheduler(2, nil, nil, 0)
	ch := s.Subscribe()
	go s.Run()
	defer s.Stop()

	s.Submit(Command{Kind: StartRecording, BloopIndex: 0})
	s.Submit(Command{Kind: StartRecording, BloopIndex: 1}) // infers tempo from bloop 0
	s.Submit(Command{Kind: ClearAll})
	s.Submit(Command{Kind: RefreshUI})

	select {
	case state := <-ch:
		if state.EpochSet || state.DurationSet {
			t.Fatal("ClearAll should reset the tempo anchor")
		}
		for i, b := range state.Bloops {
			if b.Recording || b.PlayingBack || b.WaitingToRecord {
				t.Fatalf("bloop %d should be idle after ClearAll, got %+v", i, b)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for UIState")
	}
}

func TestSchedulerMidiFansOutToEveryBloop(t *testing.T) {
	var out []midi.Message
	sink := func(m midi.Message) error {
		out = append(out, m)
		return nil
	}
	s := NewScheduler(3, nil, sink, 0)
	ch := s.Subscribe()
	go s.Run()
	defer s.Stop()

	// All bloops listen by default, so a press should be forwarded once
	// per bloop (3 bloops => 3 sent messages); the RefreshUI submitted
	// after it confirms the dispatch loop drained the command.
	s.Submit(Command{Kind: Midi, MIDI: midi.ChannelMessage{Channel: 0, Message: midi.NoteOn(0, 64, 100)}})
	s.Submit(Command{Kind: RefreshUI})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for UIState")
	}

	if len(out) != 3 {
		t.Fatalf("expected 3 forwarded messages (one per bloop), got %d", len(out))
	}
}
