package testutil

import (
	"fmt"
	"sync"
)

// HostClock is a deterministic host timestamp source for tests and
// scenarios. Evaluation events read Now; scenarios move it forward with
// Advance or Set. It never runs backwards.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type HostClock struct {
	mu  sync.Mutex
	now int64
}

// NewHostClock creates a clock reading start.
func NewHostClock(start int64) *HostClock {
	return &HostClock{now: start}
}

// Now returns the current timestamp.
func (c *HostClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
// Negative d is treated as zero.
func (c *HostClock) Advance(d int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now += d
	}
	return c.now
}

// Set moves the clock to t. Moving backwards is an error.
func (c *HostClock) Set(t int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.now {
		return fmt.Errorf("clock cannot move backwards from %d to %d", c.now, t)
	}
	c.now = t
	return nil
}
