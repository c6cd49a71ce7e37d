package domain

import "time"

const (
	// BreakerClosed allows calls through and counts failures.
	BreakerClosed BreakerState = "CLOSED"

	// BreakerOpen rejects calls without invoking the wrapped operation.
	BreakerOpen BreakerState = "OPEN"

	// BreakerHalfOpen allows a single trial call after the reset timeout.
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerState is one of the three circuit breaker states.
type BreakerState string

// BreakerStatus is a point-in-time snapshot of a server's circuit breaker,
// exposed for observability and tests.
type BreakerStatus struct {
	Server           string        `json:"server"`
	State            BreakerState  `json:"state"`
	Failures         int           `json:"failures"`
	Successes        int           `json:"successes"`
	RecentRequests   int           `json:"recent_requests"`
	TotalRequests    int           `json:"total_requests"`
	SinceLastFailure time.Duration `json:"since_last_failure"`
}
