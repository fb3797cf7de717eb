// Package clock provides the millisecond time base used by the animation
// engine. A single writer advances a free-running counter; readers only load
// it.
package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// Source is a monotonic millisecond counter. It wraps after ~49 days; all
// arithmetic on it is modular.
type Source interface {
	Now() uint32
}

// counter holds the shared tick count and the collaborator-facing reset mark.
type counter struct {
	ms   atomic.Uint32
	mark atomic.Uint32
}

func (c *counter) Now() uint32 { return c.ms.Load() }

// Reset restarts ElapsedMs from zero. The free-running count is untouched so
// independent Timers keep their own marks.
func (c *counter) Reset() { c.mark.Store(c.ms.Load()) }

// ElapsedMs returns the milliseconds since the last Reset.
func (c *counter) ElapsedMs() uint32 { return c.ms.Load() - c.mark.Load() }

// Clock is advanced by a background goroutine standing in for the timer
// interrupt. Run must be started once.
type Clock struct {
	counter
	period time.Duration
}

func New() *Clock {
	return &Clock{period: time.Millisecond}
}

// Run updates the counter from the monotonic wall clock until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	start := time.Now()
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.ms.Store(uint32(time.Since(start) / time.Millisecond))
		}
	}
}

// Manual is a Source driven explicitly, for tests and offline rendering.
type Manual struct {
	counter
}

func NewManual(startMs uint32) *Manual {
	m := &Manual{}
	m.ms.Store(startMs)
	m.mark.Store(startMs)
	return m
}

func (m *Manual) Advance(d time.Duration) {
	m.ms.Add(uint32(d / time.Millisecond))
}

func (m *Manual) Set(ms uint32) {
	m.ms.Store(ms)
}

// Timer is an independent elapsed-time mark on a Source. Patterns that need
// more than one deadline keep one Timer each.
type Timer struct {
	src  Source
	mark uint32
}

func NewTimer(src Source) Timer {
	return Timer{src: src, mark: src.Now()}
}

func (t *Timer) Reset() { t.mark = t.src.Now() }

func (t *Timer) Elapsed() uint32 { return t.src.Now() - t.mark }

// Due reports whether at least ms milliseconds have passed since Reset.
func (t *Timer) Due(ms uint32) bool { return t.Elapsed() >= ms }
