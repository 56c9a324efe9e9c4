package engine

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical clock for event ordering.
//
// Every enqueued event is stamped with a strictly increasing seq number, so
// log lines and published transitions can be correlated without relying on
// wall-clock time.
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

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TimeSource provides the wall time used for click debouncing.
// testutil.FakeClock implements it for tests.
type TimeSource interface {
	Now() time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time { return time.Now() }
