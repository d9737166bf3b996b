package provider

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval is the default spacing between outbound call starts
// (5 requests per second).
const DefaultMinInterval = 200 * time.Millisecond

// IntervalLimiter enforces a minimum interval between call starts across
// the whole process. One shared instance wraps every provider call, so
// switching providers mid-process never resets the pacing.
//
// Callers queue rather than fail when they arrive faster than the limit
// allows. The queue is unbounded, which is acceptable because the pipeline
// never has more than one call in flight.
type IntervalLimiter struct {
	mu        sync.Mutex
	interval  time.Duration
	lastStart time.Time
}

// NewIntervalLimiter creates a limiter with the given minimum interval.
// Non-positive intervals fall back to DefaultMinInterval.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	return &IntervalLimiter{interval: interval}
}

// Interval returns the configured minimum interval.
func (l *IntervalLimiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until at least the configured interval has elapsed since the
// previous call start, then records the new start. It returns early with
// ctx.Err() if the context is cancelled while waiting.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	now := time.Now()
	next := l.lastStart.Add(l.interval)
	if next.Before(now) {
		next = now
	}
	// Reserve the slot before sleeping so concurrent waiters space out
	// even though the pipeline itself is single-flight.
	l.lastStart = next
	wait := next.Sub(now)
	l.mu.Unlock()

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
