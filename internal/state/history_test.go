package state

import (
	"fmt"
	"testing"
)

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory(5)

	h.Add(HistoryEntry{ID: "a"})
	h.Add(HistoryEntry{ID: "b"})
	h.Add(HistoryEntry{ID: "c"})

	entries := h.Entries()
	want := []string{"c", "b", "a"}
	if len(entries) != len(want) {
		t.Fatalf("len(Entries()) = %d, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].ID != w {
			t.Errorf("Entries()[%d].ID = %q, want %q", i, entries[i].ID, w)
		}
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(HistoryLimit)

	for i := 0; i < HistoryLimit+5; i++ {
		h.Add(HistoryEntry{ID: fmt.Sprintf("item-%d", i)})
	}

	if h.Len() != HistoryLimit {
		t.Fatalf("Len() = %d, want %d", h.Len(), HistoryLimit)
	}

	entries := h.Entries()
	if entries[0].ID != fmt.Sprintf("item-%d", HistoryLimit+4) {
		t.Errorf("newest = %q, want item-%d", entries[0].ID, HistoryLimit+4)
	}
	if entries[len(entries)-1].ID != "item-5" {
		t.Errorf("oldest = %q, want item-5", entries[len(entries)-1].ID)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(0) // falls back to the default limit

	h.Add(HistoryEntry{ID: "a"})
	h.Clear()

	if h.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", h.Len())
	}
}
