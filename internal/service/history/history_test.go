package history

import (
	"testing"
	"time"
)

func TestAddDropsOldest(t *testing.T) {
	h := New(2)
	h.Add("welcome", "Welcome aboard.")
	h.Add("", "")
	h.Add("next_stop", "Next stop: Bergen.")
	h.Add("terminal", "Final stop: Voss.")

	got := h.Entries()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Text != "Next stop: Bergen." || got[1].Text != "Final stop: Voss." {
		t.Errorf("entries = %+v", got)
	}
}

func TestEntriesIsCopy(t *testing.T) {
	h := New(0)
	h.Add("preset", "Mind the gap.")
	got := h.Entries()
	got[0].Text = "changed"
	if h.Entries()[0].Text != "Mind the gap." {
		t.Error("Entries() must return a copy")
	}
}

func TestClearAndTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h := New(3)
	h.now = func() time.Time { return at }
	h.Add("repeat", "Next stop: Oslo S.")
	if e := h.Entries()[0]; !e.At.Equal(at) || e.Kind != "repeat" {
		t.Errorf("entry = %+v", e)
	}
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len() = %d after Clear", h.Len())
	}
}
