package orchestrator

import (
	"sync/atomic"

	"github.com/mozilla-ai/mcpfleet/internal/contracts"
	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
)

// readinessReporter derives the fleet-wide readiness aggregate from tracked
// per-server health. A fleet with no enabled servers is considered ready.
type readinessReporter struct {
	registry *registry.Registry
	tracker  contracts.MCPHealthMonitor

	// startupFailed is set when no enabled server could be started at all.
	startupFailed atomic.Bool
}

func newReadinessReporter(reg *registry.Registry, tracker contracts.MCPHealthMonitor) *readinessReporter {
	return &readinessReporter{
		registry: reg,
		tracker:  tracker,
	}
}

// Readiness returns the current aggregate readiness.
func (r *readinessReporter) Readiness() domain.Readiness {
	if r.startupFailed.Load() {
		return domain.Readiness{Ready: false, Status: domain.ReadinessDown}
	}

	enabled := r.registry.EnabledServers()
	if len(enabled) == 0 {
		return domain.Readiness{Ready: true, Status: domain.ReadinessOK}
	}

	for _, entry := range enabled {
		health, err := r.tracker.Status(entry.Name)
		if err != nil || !health.Status.Healthy() {
			return domain.Readiness{Ready: false, Status: domain.ReadinessDegraded}
		}
	}

	return domain.Readiness{Ready: true, Status: domain.ReadinessOK}
}
