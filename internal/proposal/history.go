package proposal

import "sync"

// DefaultHistoryCapacity bounds History when no capacity is given.
const DefaultHistoryCapacity = 5

// History keeps the most recent proposals, evicting the oldest once full.
// It is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	capacity int
	items    []GeneratedProposal
}

// NewHistory returns an empty History. capacity <= 0 uses the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity, items: make([]GeneratedProposal, 0, capacity)}
}

// Append adds p and trims to capacity atomically.
func (h *History) Append(p GeneratedProposal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.appendLocked(p)
}

// Seed appends ps in order, as if each had been appended. It is used to
// restore history from the archive.
func (h *History) Seed(ps []GeneratedProposal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range ps {
		h.appendLocked(p)
	}
}

func (h *History) appendLocked(p GeneratedProposal) {
	if len(h.items) == h.capacity {
		copy(h.items, h.items[1:])
		h.items = h.items[:h.capacity-1]
	}
	h.items = append(h.items, p)
}

// List returns a copy of the retained proposals, most recent last.
func (h *History) List() []GeneratedProposal {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]GeneratedProposal, len(h.items))
	copy(out, h.items)
	return out
}

// Len reports how many proposals are retained.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Capacity reports the maximum number of retained proposals.
func (h *History) Capacity() int { return h.capacity }
