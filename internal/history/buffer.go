package history

import (
	"sync"

	"webhook-tester/internal/webhook"
)

// Buffer keeps the most recent events in a fixed-size ring. Snapshots are
// returned newest first.
type Buffer struct {
	mu     sync.RWMutex
	events []webhook.Event
	head   int // slot the next event is written to
	count  int
}

// New creates a buffer holding at most capacity events. A capacity of zero
// (or less) keeps nothing.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{events: make([]webhook.Event, capacity)}
}

// Record inserts event as the newest entry, overwriting the oldest one when
// the buffer is full.
func (b *Buffer) Record(event webhook.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	capacity := len(b.events)
	if capacity == 0 {
		return
	}
	b.events[b.head] = event
	b.head = (b.head + 1) % capacity
	if b.count < capacity {
		b.count++
	}
}

// Snapshot returns a copy of the buffered events, newest first.
func (b *Buffer) Snapshot() []webhook.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]webhook.Event, 0, b.count)
	capacity := len(b.events)
	for i := 1; i <= b.count; i++ {
		out = append(out, b.events[(b.head-i+capacity)%capacity])
	}
	return out
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int {
	return len(b.events)
}
