package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every analyzed module in a run is
// stamped with a seq from Next, in input order, so stored runs sort the same
// way no matter how the work was scheduled.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
