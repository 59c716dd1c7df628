package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a StepClock returns unless told otherwise.
var Epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// StepClock is a deterministic wall clock for tests. Each call to Now
// returns the previous instant plus a fixed step, so created_at values are
// distinct and predictable in golden output.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	next  time.Time
	step  time.Duration
	start time.Time
}

// NewStepClock creates a clock starting at start and advancing by step.
// A zero start means Epoch.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = Epoch
	}
	return &StepClock{next: start, step: step, start: start}
}

// Now returns the current instant and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Peek returns the instant the next call to Now will return.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to its start.
//
// Used for test reuse. After Reset(), the next call to Now() returns start.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.start
}
