package looper

import (
	"testing"

	"bloopgo/midi"
)

func TestKeySetInsertContainsRemove(t *testing.T) {
	var s KeySet

	if s.Contains(60) {
		t.Fatal("empty set should not contain key 60")
	}
	if added := s.Insert(60); !added {
		t.Fatal("Insert should report true for a new member")
	}
	if !s.Contains(60) {
		t.Fatal("set should contain 60 after Insert")
	}
	if added := s.Insert(60); added {
		t.Fatal("Insert should report false for an existing member")
	}
	if removed := s.Remove(60); !removed {
		t.Fatal("Remove should report true for an existing member")
	}
	if s.Contains(60) {
		t.Fatal("set should not contain 60 after Remove")
	}
}

func TestKeySetSpansBothWords(t *testing.T) {
	var s KeySet
	s.Insert(0)
	s.Insert(127)
	if !s.Contains(0) || !s.Contains(127) {
		t.Fatal("KeySet must address the full 0-127 range across both words")
	}
	if s.Contains(64) {
		t.Fatal("unrelated key should not be reported as contained")
	}
}

func TestKeySetUnion(t *testing.T) {
	var a, b KeySet
	a.Insert(10)
	b.Insert(20)
	u := a.Union(b)
	if !u.Contains(10) || !u.Contains(20) {
		t.Fatal("Union should contain members of both sets")
	}
	if u.Contains(30) {
		t.Fatal("Union should not contain unrelated keys")
	}
}

func TestKeySetIterKeysAscending(t *testing.T) {
	var s KeySet
	for _, k := range []midi.Key{5, 90, 1, 127, 0} {
		s.Insert(k)
	}
	got := s.IterKeys()
	want := []midi.Key{0, 1, 5, 90, 127}
	if len(got) != len(want) {
		t.Fatalf("IterKeys len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IterKeys()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestKeySetUpdate(t *testing.T) {
	var s KeySet
	s.Update(KeyEffect{Kind: EffectPress, Key: 64})
	if !s.Contains(64) {
		t.Fatal("Update with a press should insert the key")
	}
	s.Update(KeyEffect{Kind: EffectAftertouch, Key: 64})
	if !s.Contains(64) {
		t.Fatal("Update with aftertouch should be a no-op")
	}
	s.Update(KeyEffect{Kind: EffectRelease, Key: 64})
	if s.Contains(64) {
		t.Fatal("Update with a release should remove the key")
	}
}

func TestChannelSetOnOff(t *testing.T) {
	var s ChannelSet
	if s.Any() {
		t.Fatal("empty ChannelSet should report Any() == false")
	}
	s.SetOn(3)
	s.SetOn(9)
	if !s.Any() {
		t.Fatal("ChannelSet should report Any() == true once a channel is set")
	}
	s.SetOff(3)
	if !s.Any() {
		t.Fatal("channel 9 should still be set")
	}
	s.SetOff(9)
	if s.Any() {
		t.Fatal("ChannelSet should be empty once every channel is cleared")
	}
}

func TestPerKeyGetSetAt(t *testing.T) {
	var p PerKey[int]
	p.Set(42, 7)
	if got := p.Get(42); got != 7 {
		t.Fatalf("Get(42) = %d, want 7", got)
	}
	*p.At(42) += 1
	if got := p.Get(42); got != 8 {
		t.Fatalf("Get(42) after At-mutation = %d, want 8", got)
	}
	if got := p.Get(0); got != 0 {
		t.Fatalf("unrelated slot should be zero value, got %d", got)
	}
}
