package domain

const (
	// ReadinessOK means every enabled server is currently healthy.
	ReadinessOK ReadinessState = "ok"

	// ReadinessDegraded means at least one enabled server is unhealthy.
	ReadinessDegraded ReadinessState = "degraded"

	// ReadinessDown means startup failed outright (no server could spawn).
	ReadinessDown ReadinessState = "down"
)

// ReadinessState classifies the fleet-wide aggregate derived from per-server health.
type ReadinessState string

// Readiness is the orchestrator-wide aggregate reported by the readiness endpoint.
// It is derived on demand and never persisted.
type Readiness struct {
	Ready  bool           `json:"ready"`
	Status ReadinessState `json:"status"`
}
