package webhook

import (
	"sync"
	"time"
)

// Clock hands out ingestion times that never go backwards, even when the wall
// clock is stepped back.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock returns a Clock reading time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockFunc returns a Clock reading now, for tests.
func NewClockFunc(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current time, or the previously returned time if the
// underlying clock reads earlier than that.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now()
	if t.Before(c.last) {
		return c.last
	}
	c.last = t
	return t
}
