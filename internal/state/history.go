package state

import (
	"container/list"
	"sync"
)

// HistoryLimit bounds the rolling content history.
const HistoryLimit = 20

// History is a bounded, most-recent-first record of displayed content.
// Oldest entries are evicted once the limit is reached.
type History struct {
	limit int
	order *list.List
	mu    sync.RWMutex
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &History{
		limit: limit,
		order: list.New(),
	}
}

// Add pushes an entry to the front, evicting from the back as needed.
func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.order.PushFront(e)
	for h.order.Len() > h.limit {
		if back := h.order.Back(); back != nil {
			h.order.Remove(back)
		}
	}
}

// Entries returns a most-recent-first copy of the history.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := make([]HistoryEntry, 0, h.order.Len())
	for elem := h.order.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, elem.Value.(HistoryEntry))
	}
	return entries
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.order.Len()
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.order.Init()
}
