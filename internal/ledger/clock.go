package ledger

import "sync/atomic"

// Clock is the monotonic logical clock that stamps ledger events.
//
// Only the Run goroutine advances it, and only after a transaction commits,
// so a rolled-back request never leaves a gap in the event log.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from the last committed seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Current returns the last committed seq.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Advance moves the clock past n newly committed events.
func (c *Clock) Advance(n int) int64 {
	return c.seq.Add(int64(n))
}
