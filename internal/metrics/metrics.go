// Package metrics exposes the orchestrator's counters and gauges in the
// Prometheus text exposition format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mozilla-ai/mcpfleet/internal/domain"
)

const (
	// SpawnResultOK labels a successful spawn attempt.
	SpawnResultOK = "ok"

	// SpawnResultError labels a failed spawn attempt.
	SpawnResultError = "error"
)

// Metrics owns the collectors for supervision observability, registered on a
// private registry so the exposition contains exactly what the daemon emits.
type Metrics struct {
	registry *prometheus.Registry

	spawnAttempts     *prometheus.CounterVec
	probeUp           *prometheus.GaugeVec
	probeDuration     *prometheus.GaugeVec
	breakerState      *prometheus.GaugeVec
	breakerFailures   *prometheus.GaugeVec
	egressBlocked     *prometheus.CounterVec
	rateLimitRejected *prometheus.CounterVec
}

// New creates and registers all supervision collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		spawnAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpfleet_spawn_attempts_total",
			Help: "Server process spawn attempts by result.",
		}, []string{"server", "result"}),
		probeUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcpfleet_probe_up",
			Help: "Result of the most recent health probe (1 healthy, 0 unhealthy).",
		}, []string{"server"}),
		probeDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcpfleet_probe_duration_ms",
			Help: "Wall time of the most recent health probe in milliseconds.",
		}, []string{"server"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcpfleet_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"server"}),
		breakerFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcpfleet_breaker_failures",
			Help: "Current consecutive failure count of the circuit breaker.",
		}, []string{"server"}),
		egressBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpfleet_egress_blocked_total",
			Help: "Outbound calls denied by the egress allowlist.",
		}, []string{"context"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpfleet_ratelimit_rejected_total",
			Help: "Guarded calls rejected by the per-server rate limiter.",
		}, []string{"server"}),
	}

	m.registry.MustRegister(
		m.spawnAttempts,
		m.probeUp,
		m.probeDuration,
		m.breakerState,
		m.breakerFailures,
		m.egressBlocked,
		m.rateLimitRejected,
	)

	return m
}

// Handler returns the HTTP handler serving the text exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSpawnAttempt counts one spawn attempt for the server.
func (m *Metrics) RecordSpawnAttempt(server string, result string) {
	m.spawnAttempts.WithLabelValues(server, result).Inc()
}

// RecordProbe records the outcome and duration of a health probe.
func (m *Metrics) RecordProbe(server string, ok bool, elapsed time.Duration) {
	up := 0.0
	if ok {
		up = 1.0
	}
	m.probeUp.WithLabelValues(server).Set(up)
	m.probeDuration.WithLabelValues(server).Set(float64(elapsed.Milliseconds()))
}

// RecordBreaker records the breaker state and failure count for the server.
func (m *Metrics) RecordBreaker(server string, state domain.BreakerState, failures int) {
	m.breakerState.WithLabelValues(server).Set(breakerStateValue(state))
	m.breakerFailures.WithLabelValues(server).Set(float64(failures))
}

// RecordEgressBlocked counts one blocked outbound call for the given context.
func (m *Metrics) RecordEgressBlocked(callContext string) {
	m.egressBlocked.WithLabelValues(callContext).Inc()
}

// RecordRateLimited counts one rate limiter rejection for the server.
func (m *Metrics) RecordRateLimited(server string) {
	m.rateLimitRejected.WithLabelValues(server).Inc()
}

func breakerStateValue(state domain.BreakerState) float64 {
	switch state {
	case domain.BreakerHalfOpen:
		return 1
	case domain.BreakerOpen:
		return 2
	default:
		return 0
	}
}
