// Package core provides the Lamport logical clock shared by every device's
// operations in the synchronized document.
package core

import (
	"sync/atomic"
)

// Clock is a Lamport logical clock. It provides monotonically increasing,
// causally-ordered timestamps: every stored operation is stamped with a
// clock value strictly greater than any value observed so far, whether that
// value was produced locally (Tick) or reported by a client (Update).
//
// Update uses a compare-and-swap retry loop rather than a plain
// load-then-store: two concurrent requests reporting different remote
// clocks must not be able to clobber each other's max(local, remote)+1
// computation between the load and the store.
type Clock struct {
	time atomic.Uint64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockWithTime creates a clock with an initial value, used to seed the
// clock from persisted state during bootstrap/recovery.
func NewClockWithTime(initialTime uint64) *Clock {
	c := &Clock{}
	c.time.Store(initialTime)
	return c
}

// Tick advances the clock by one and returns the new value. Must be called
// once per locally-originated operation before it is stamped and stored.
func (c *Clock) Tick() uint64 {
	return c.time.Add(1)
}

// Update folds in a remote clock value reported by a client: the clock
// becomes max(local, remote)+1.
func (c *Clock) Update(remoteTime uint64) uint64 {
	for {
		current := c.time.Load()
		base := current
		if remoteTime > base {
			base = remoteTime
		}
		next := base + 1
		if c.time.CompareAndSwap(current, next) {
			return next
		}
	}
}

// Now returns the current clock value without advancing it.
func (c *Clock) Now() uint64 {
	return c.time.Load()
}
