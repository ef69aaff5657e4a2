package chat

// BoundedHistory is a fixed-capacity ring of turns. When full, pushing a turn evicts the oldest one.
//
// BoundedHistory is not safe for concurrent use; callers serialize access.
type BoundedHistory struct {
	turns []Turn
	start int // Index of the oldest turn
	count int
}

// NewBoundedHistory creates a history that holds historySize user/assistant exchanges, i.e. 2*historySize turns
func NewBoundedHistory(historySize int) *BoundedHistory {
	capacity := 2 * historySize
	if capacity < 0 {
		capacity = 0
	}
	return &BoundedHistory{turns: make([]Turn, capacity)}
}

// Push appends a turn, discarding the oldest turn if the history is at capacity
func (h *BoundedHistory) Push(turn Turn) {
	if len(h.turns) == 0 {
		return
	}
	if h.count < len(h.turns) {
		h.turns[(h.start+h.count)%len(h.turns)] = turn
		h.count++
		return
	}
	h.turns[h.start] = turn
	h.start = (h.start + 1) % len(h.turns)
}

// List returns a copy of the turns, oldest first
func (h *BoundedHistory) List() []Turn {
	out := make([]Turn, h.count)
	for i := range out {
		out[i] = h.turns[(h.start+i)%len(h.turns)]
	}
	return out
}

// Clear removes all turns
func (h *BoundedHistory) Clear() {
	clear(h.turns)
	h.start = 0
	h.count = 0
}

func (h *BoundedHistory) Len() int { return h.count }
func (h *BoundedHistory) Cap() int { return len(h.turns) }
