package contract

import "sync/atomic"

// Clock is a monotonic logical clock for journal sequence numbers.
//
// Sequence numbers order events independently of host timestamps, so
// replay reproduces the same order regardless of wall time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
