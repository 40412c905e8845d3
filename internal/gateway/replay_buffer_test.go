package gateway

import "testing"

func TestReplayBuffer_After(t *testing.T) {
	rb := NewReplayBuffer(100)

	for i := int64(1); i <= 10; i++ {
		rb.Push(i, "BTCUSDT", []byte("msg"))
	}

	got := rb.After(7)
	if len(got) != 3 {
		t.Fatalf("After(7): expected 3, got %d", len(got))
	}
	for i, e := range got {
		if want := int64(i) + 8; e.Seq != want {
			t.Errorf("entry[%d].Seq = %d, want %d", i, e.Seq, want)
		}
	}
}

func TestReplayBuffer_Wraparound(t *testing.T) {
	rb := NewReplayBuffer(5)

	// Push 8 entries; the first 3 are evicted
	for i := int64(1); i <= 8; i++ {
		rb.Push(i, "ETHUSDT", []byte("msg"))
	}

	if rb.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", rb.Len())
	}
	got := rb.After(0)
	if len(got) != 5 {
		t.Fatalf("After(0): expected 5, got %d", len(got))
	}
	if got[0].Seq != 4 || got[4].Seq != 8 {
		t.Errorf("got seqs %d..%d, want 4..8", got[0].Seq, got[4].Seq)
	}
}

func TestReplayBuffer_Empty(t *testing.T) {
	rb := NewReplayBuffer(10)
	if got := rb.After(0); len(got) != 0 {
		t.Fatalf("empty buffer should return 0 entries, got %d", len(got))
	}
}
