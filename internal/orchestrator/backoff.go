package orchestrator

import (
	"sync"
	"time"
)

const (
	// DefaultBackoffInitial is the first restart delay after a spawn failure.
	DefaultBackoffInitial = 5 * time.Second

	// DefaultBackoffMax caps the restart delay growth.
	DefaultBackoffMax = 5 * time.Minute
)

// backoffTracker tracks per-server restart delays: each consecutive failure
// doubles the delay up to the cap, and a success resets it.
type backoffTracker struct {
	mu      sync.Mutex
	initial time.Duration
	max     time.Duration
	next    map[string]time.Time
	delay   map[string]time.Duration

	now func() time.Time
}

func newBackoffTracker(initial, max time.Duration) *backoffTracker {
	return &backoffTracker{
		initial: initial,
		max:     max,
		next:    make(map[string]time.Time),
		delay:   make(map[string]time.Duration),
		now:     time.Now,
	}
}

// CanAttempt reports whether the server is past its restart delay.
// A server with no recorded failure can always be attempted.
func (b *backoffTracker) CanAttempt(server string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	deadline, ok := b.next[server]
	if !ok {
		return true
	}
	return !b.now().Before(deadline)
}

// RecordFailure schedules the next allowed attempt, doubling the delay.
func (b *backoffTracker) RecordFailure(server string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay, ok := b.delay[server]
	switch {
	case !ok:
		delay = b.initial
	default:
		delay *= 2
		if delay > b.max {
			delay = b.max
		}
	}

	b.delay[server] = delay
	b.next[server] = b.now().Add(delay)

	return delay
}

// RecordSuccess clears any backoff state for the server.
func (b *backoffTracker) RecordSuccess(server string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.delay, server)
	delete(b.next, server)
}
