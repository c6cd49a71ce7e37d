package guards

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/errors"
)

// BreakerSettings contains the tunables for a circuit breaker.
// NewBreakerSettings should be used to obtain defaults.
type BreakerSettings struct {
	// FailureThreshold is the failure count that opens the breaker,
	// provided recent volume has also reached VolumeThreshold.
	FailureThreshold int

	// VolumeThreshold is the minimum number of recent requests (within
	// MonitoringPeriod) required before failures can open the breaker.
	VolumeThreshold int

	// ResetTimeout is how long an open breaker waits after the last failure
	// before allowing a half-open trial call.
	ResetTimeout time.Duration

	// MonitoringPeriod is the sliding window over which request volume is counted.
	MonitoringPeriod time.Duration

	// RequestTimeout bounds each call executed through the breaker.
	RequestTimeout time.Duration
}

// NewBreakerSettings returns the default circuit breaker tunables.
func NewBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold: 5,
		VolumeThreshold:  10,
		ResetTimeout:     60 * time.Second,
		MonitoringPeriod: 60 * time.Second,
		RequestTimeout:   5 * time.Second,
	}
}

// TransitionFunc is invoked after a breaker changes state.
// Callbacks are delivered one at a time, in transition order, outside the
// breaker's lock; they may call back into the breaker.
type TransitionFunc func(server string, from domain.BreakerState, to domain.BreakerState)

// breakerTransition is a queued state-change notification awaiting delivery.
type breakerTransition struct {
	from domain.BreakerState
	to   domain.BreakerState
}

// CircuitBreaker is a per-server three-state failure isolation policy.
// All state transitions are serialized under an internal mutex.
type CircuitBreaker struct {
	server       string
	settings     BreakerSettings
	onTransition TransitionFunc

	mu            sync.Mutex
	state         domain.BreakerState
	failures      int
	successes     int
	totalRequests int
	lastFailure   time.Time
	timestamps    []time.Time
	trialInFlight bool
	queued        []breakerTransition
	notifying     bool

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker for the named server.
// onTransition may be nil.
func NewCircuitBreaker(server string, settings BreakerSettings, onTransition TransitionFunc) *CircuitBreaker {
	return &CircuitBreaker{
		server:       server,
		settings:     settings,
		onTransition: onTransition,
		state:        domain.BreakerClosed,
		now:          time.Now,
	}
}

// Execute runs fn through the breaker. When the breaker is open and the reset
// timeout has not elapsed, fn is never invoked and ErrCircuitOpen is returned.
// fn receives a context bound to the breaker's request timeout; if the timeout
// fires before fn completes the call fails with ErrGuardTimeout and counts as
// a failure.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	trial, err := b.allow()
	if err != nil {
		return err
	}

	signal := NewTimeoutSignal(ctx, b.settings.RequestTimeout)
	defer signal.Stop()

	result := make(chan error, 1)
	go func() {
		result <- fn(signal.Context())
	}()

	var callErr error
	select {
	case callErr = <-result:
	case <-signal.Done():
		if signal.Aborted() {
			callErr = fmt.Errorf(
				"%w: '%s' did not respond within %s",
				errors.ErrGuardTimeout, b.server, b.settings.RequestTimeout,
			)
		} else {
			callErr = signal.Context().Err()
		}
	}

	b.record(trial, callErr)

	return callErr
}

// Status returns a point-in-time snapshot of the breaker.
func (b *CircuitBreaker) Status() domain.BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.pruneLocked(now)

	var sinceLastFailure time.Duration
	if !b.lastFailure.IsZero() {
		sinceLastFailure = now.Sub(b.lastFailure)
	}

	return domain.BreakerStatus{
		Server:           b.server,
		State:            b.state,
		Failures:         b.failures,
		Successes:        b.successes,
		RecentRequests:   len(b.timestamps),
		TotalRequests:    b.totalRequests,
		SinceLastFailure: sinceLastFailure,
	}
}

// allow decides whether a call may proceed, transitioning OPEN -> HALF_OPEN
// when the reset timeout has elapsed. The returned bool marks the call as the
// half-open trial.
func (b *CircuitBreaker) allow() (bool, error) {
	b.mu.Lock()

	now := b.now()
	b.pruneLocked(now)

	switch b.state {
	case domain.BreakerOpen:
		if now.Sub(b.lastFailure) < b.settings.ResetTimeout {
			b.mu.Unlock()
			return false, fmt.Errorf("%w: '%s'", errors.ErrCircuitOpen, b.server)
		}
		b.transitionLocked(domain.BreakerHalfOpen)
		b.trialInFlight = true
		b.mu.Unlock()
		return true, nil
	case domain.BreakerHalfOpen:
		if b.trialInFlight {
			b.mu.Unlock()
			return false, fmt.Errorf("%w: '%s' trial call in flight", errors.ErrCircuitOpen, b.server)
		}
		b.trialInFlight = true
		b.mu.Unlock()
		return true, nil
	default:
		b.mu.Unlock()
		return false, nil
	}
}

// record accounts for a completed call and applies the resulting transition.
func (b *CircuitBreaker) record(trial bool, callErr error) {
	b.mu.Lock()

	now := b.now()
	b.timestamps = append(b.timestamps, now)
	b.totalRequests++
	b.pruneLocked(now)

	if trial {
		b.trialInFlight = false
	}

	if callErr == nil {
		b.successes++
		b.failures = 0
		if b.state == domain.BreakerHalfOpen {
			b.transitionLocked(domain.BreakerClosed)
		}
		b.mu.Unlock()
		return
	}

	b.failures++
	b.lastFailure = now

	switch b.state {
	case domain.BreakerHalfOpen:
		b.transitionLocked(domain.BreakerOpen)
	case domain.BreakerClosed:
		if b.failures >= b.settings.FailureThreshold && len(b.timestamps) >= b.settings.VolumeThreshold {
			b.transitionLocked(domain.BreakerOpen)
		}
	}

	b.mu.Unlock()
}

// pruneLocked drops request timestamps older than the monitoring period.
// Callers must hold b.mu.
func (b *CircuitBreaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.settings.MonitoringPeriod)
	idx := 0
	for idx < len(b.timestamps) && !b.timestamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		b.timestamps = append([]time.Time(nil), b.timestamps[idx:]...)
	}
}

// transitionLocked applies a state change and queues the transition callback.
// Queued callbacks are drained in order by a single notifier goroutine so
// observers never see transitions inverted. Callers must hold b.mu.
func (b *CircuitBreaker) transitionLocked(to domain.BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to

	if b.onTransition == nil {
		return
	}

	b.queued = append(b.queued, breakerTransition{from: from, to: to})
	if !b.notifying {
		b.notifying = true
		go b.drainTransitions()
	}
}

// drainTransitions delivers queued transition callbacks one at a time,
// exiting once the queue is empty. The callback runs without b.mu held.
func (b *CircuitBreaker) drainTransitions() {
	for {
		b.mu.Lock()
		if len(b.queued) == 0 {
			b.notifying = false
			b.mu.Unlock()
			return
		}
		next := b.queued[0]
		b.queued = b.queued[1:]
		b.mu.Unlock()

		b.onTransition(b.server, next.from, next.to)
	}
}

// BreakerRegistry owns one circuit breaker per server, created lazily on
// first guarded call. Unrelated servers never contend on each other's locks.
type BreakerRegistry struct {
	mu           sync.Mutex
	breakers     map[string]*CircuitBreaker
	settings     BreakerSettings
	onTransition TransitionFunc
}

// NewBreakerRegistry creates an empty breaker registry using the given
// settings for every breaker it creates.
func NewBreakerRegistry(settings BreakerSettings, onTransition TransitionFunc) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:     map[string]*CircuitBreaker{},
		settings:     settings,
		onTransition: onTransition,
	}
}

// For returns the breaker for the named server, creating it if required.
func (r *BreakerRegistry) For(server string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[server]
	if !ok {
		b = NewCircuitBreaker(server, r.settings, r.onTransition)
		r.breakers[server] = b
	}

	return b
}

// Status returns the status snapshot for the named server's breaker.
// The second return value is false when no guarded call has touched the server yet.
func (r *BreakerRegistry) Status(server string) (domain.BreakerStatus, bool) {
	r.mu.Lock()
	b, ok := r.breakers[server]
	r.mu.Unlock()

	if !ok {
		return domain.BreakerStatus{}, false
	}

	return b.Status(), true
}

// List returns status snapshots for every breaker created so far.
func (r *BreakerRegistry) List() []domain.BreakerStatus {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	statuses := make([]domain.BreakerStatus, 0, len(breakers))
	for _, b := range breakers {
		statuses = append(statuses, b.Status())
	}

	return statuses
}
