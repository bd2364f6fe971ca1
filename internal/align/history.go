package align

import (
	"fmt"
	"sync"
	"time"
)

// DefaultHistorySize is the number of windows kept for the data loss display
const DefaultHistorySize = 30

// LossPoint is the loss summary of one live window
type LossPoint struct {
	Start        time.Duration // Window start, time of day
	StartCounter uint8
	Rows         int
	Fill         int // Slots filled with a held value
	Empty        int // Rows no device reported in
}

// LossHistory is a fixed-capacity ring buffer of the most recent loss points.
// It is safe for concurrent use.
type LossHistory struct {
	mu     sync.Mutex
	points []LossPoint
	head   int // Index of the oldest point
	size   int
}

// NewLossHistory creates a history holding at most capacity points
func NewLossHistory(capacity int) (*LossHistory, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid history capacity %d", capacity)
	}
	return &LossHistory{points: make([]LossPoint, capacity)}, nil
}

// Push appends p, evicting the oldest point when the history is full
func (h *LossHistory) Push(p LossPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size < len(h.points) {
		h.points[(h.head+h.size)%len(h.points)] = p
		h.size++
		return
	}

	h.points[h.head] = p
	h.head = (h.head + 1) % len(h.points)
}

// Snapshot returns the stored points, oldest first
func (h *LossHistory) Snapshot() []LossPoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]LossPoint, h.size)
	for i := range out {
		out[i] = h.points[(h.head+i)%len(h.points)]
	}
	return out
}

// Len returns the number of stored points
func (h *LossHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Cap returns the history capacity
func (h *LossHistory) Cap() int {
	return len(h.points)
}

// Clear removes all points
func (h *LossHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = 0
	h.size = 0
}

// Totals sums fill and empty counts over the stored points
func (h *LossHistory) Totals() (rows, fill, empty int) {
	for _, p := range h.Snapshot() {
		rows += p.Rows
		fill += p.Fill
		empty += p.Empty
	}
	return
}
