package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default window settings for the catalog API
const (
	DefaultMaxCalls = 2
	DefaultPeriod   = time.Second
)

// Window is a sliding window limiter: at most maxCalls admissions fall inside
// any interval of length period. Callers reserve an admission slot under the
// lock, so slots are handed out in the order Acquire was entered.
type Window struct {
	maxCalls int
	period   time.Duration

	mu    sync.Mutex
	slots []time.Time // admission times of the last maxCalls calls, ascending
	now   func() time.Time
}

// NewWindow creates a limiter; non-positive arguments fall back to the defaults
func NewWindow(maxCalls int, period time.Duration) *Window {
	if maxCalls <= 0 {
		maxCalls = DefaultMaxCalls
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Window{
		maxCalls: maxCalls,
		period:   period,
		slots:    make([]time.Time, 0, maxCalls),
		now:      time.Now,
	}
}

// Acquire blocks until one more call fits in the window. It only fails when
// ctx ends first; the reserved slot is then left unused.
func (w *Window) Acquire(ctx context.Context) error {
	wait := w.reserve()
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve records the next admission time and returns how long the caller must wait for it
func (w *Window) reserve() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	slot := now
	if len(w.slots) == w.maxCalls {
		// The oldest of the last maxCalls admissions must leave the window first
		if exit := w.slots[0].Add(w.period); exit.After(slot) {
			slot = exit
		}
		w.slots = w.slots[1:]
	}
	w.slots = append(w.slots, slot)

	return slot.Sub(now)
}

// MaxCalls returns the number of calls admitted per period
func (w *Window) MaxCalls() int {
	return w.maxCalls
}

// Period returns the window length
func (w *Window) Period() time.Duration {
	return w.period
}
