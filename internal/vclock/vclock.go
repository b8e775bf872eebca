// Package vclock is a manually advanced [civicache.Clock] for replayed
// scripts and tests.
package vclock

import (
	"slices"
	"sync"
	"time"

	"github.com/calvinalkan/civicache/pkg/civicache"
)

// Clock is a manual [civicache.Clock]. Time only moves on Advance, and
// callbacks scheduled with AfterFunc run synchronously inside Advance, in
// deadline order.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*timer
	nextSeq int
}

// NewClock returns a clock initialized to a fixed UTC start time.
func NewClock() *Clock {
	return &Clock{
		current: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Now implements [civicache.Clock].
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

// AfterFunc implements [civicache.Clock].
func (c *Clock) AfterFunc(d time.Duration, fn func()) civicache.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSeq++

	t := &timer{
		clock:    c,
		deadline: c.current.Add(d),
		seq:      c.nextSeq,
		fn:       fn,
	}
	c.timers = append(c.timers, t)

	return t
}

// Advance moves time forward by d and fires every timer that became due.
// Callbacks run without the clock lock held.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	var due []*timer

	c.timers = slices.DeleteFunc(c.timers, func(t *timer) bool {
		if t.deadline.After(now) {
			return false
		}

		due = append(due, t)

		return true
	})
	c.mu.Unlock()

	slices.SortFunc(due, func(a, b *timer) int {
		if cmp := a.deadline.Compare(b.deadline); cmp != 0 {
			return cmp
		}

		return a.seq - b.seq
	})

	for _, t := range due {
		// an earlier callback in this batch may have stopped t
		c.mu.Lock()
		stopped := t.stopped
		t.fired = !stopped
		c.mu.Unlock()

		if stopped {
			continue
		}

		t.fn()
	}
}

// Scheduled returns the number of timers not yet fired or stopped.
func (c *Clock) Scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.timers)
}

type timer struct {
	clock    *Clock
	deadline time.Time
	seq      int
	fn       func()
	stopped  bool
	fired    bool
}

// Stop reports whether it prevented the callback from running. It also
// works on a timer that is due in the Advance call currently running.
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}

	t.stopped = true
	t.clock.timers = slices.DeleteFunc(t.clock.timers, func(o *timer) bool { return o == t })

	return true
}
