package domain

import "time"

const (
	HealthStatusOK          HealthStatus = "ok"
	HealthStatusTimeout     HealthStatus = "timeout"
	HealthStatusUnreachable HealthStatus = "unreachable"
	HealthStatusMissingEnv  HealthStatus = "missing_env"
	HealthStatusUnknown     HealthStatus = "unknown"
)

// HealthStatus represents the internal state of an MCP server's availability.
type HealthStatus string

// Healthy reports whether the status counts towards aggregate readiness.
func (s HealthStatus) Healthy() bool {
	return s == HealthStatusOK
}

// ServerHealth tracks the internal health state for an MCP server.
// Reason carries a short cause when the status is not OK
// (e.g. "timeout", "exit code 3", "missing required environment variables").
type ServerHealth struct {
	Name           string
	Status         HealthStatus
	Reason         string
	Latency        *time.Duration
	LastChecked    *time.Time
	LastSuccessful *time.Time
}
