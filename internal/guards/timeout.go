package guards

import (
	"context"
	"errors"
	"time"
)

// TimeoutSignal is a cancellation signal that fires after a fixed duration.
// Guarded calls race against the signal: the wrapped operation receives the
// signal's context and must release its resources when the signal aborts.
type TimeoutSignal struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTimeoutSignal creates a signal that aborts after d has elapsed.
// Callers must call Stop when the guarded call completes to release the timer.
func NewTimeoutSignal(parent context.Context, d time.Duration) *TimeoutSignal {
	ctx, cancel := context.WithTimeout(parent, d)
	return &TimeoutSignal{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the context bound to the signal, for passing to the
// guarded operation.
func (s *TimeoutSignal) Context() context.Context {
	return s.ctx
}

// Done returns a channel that is closed when the signal aborts,
// whether by timeout or by parent cancellation.
func (s *TimeoutSignal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Aborted reports whether the signal has fired due to its timeout elapsing.
func (s *TimeoutSignal) Aborted() bool {
	return errors.Is(s.ctx.Err(), context.DeadlineExceeded)
}

// Stop releases the resources associated with the signal.
func (s *TimeoutSignal) Stop() {
	s.cancel()
}
