package orchestrator

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpfleet/internal/api"
	"github.com/mozilla-ai/mcpfleet/internal/audit"
	"github.com/mozilla-ai/mcpfleet/internal/egress"
	"github.com/mozilla-ai/mcpfleet/internal/guards"
	"github.com/mozilla-ai/mcpfleet/internal/health"
	"github.com/mozilla-ai/mcpfleet/internal/metrics"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
	"github.com/mozilla-ai/mcpfleet/internal/supervisor"
)

// Dependencies contains required dependencies for the Orchestrator.
// NewDependencies should be used to create instances of Dependencies.
type Dependencies struct {
	// APIAddr specifies the network address for the API server to bind (e.g., "0.0.0.0:8090").
	APIAddr string

	// Logger for orchestrator and subcomponent operations.
	Logger hclog.Logger

	// Registry exposes the resolved server definitions.
	Registry *registry.Registry

	// Tracker records per-server health.
	Tracker *registry.HealthTracker

	// Checker runs the configured health probes.
	Checker *health.Checker

	// Guards wraps guarded tool calls.
	Guards *guards.GuardSet

	// Egress controls outbound connections.
	Egress *egress.Controller

	// Supervisor manages child processes for stdio probes.
	Supervisor supervisor.ProcessSupervisor

	// Metrics collects the Prometheus instrumentation.
	Metrics *metrics.Metrics

	// Audit records security and lifecycle events.
	Audit audit.Recorder
}

// NewDependencies creates Dependencies after validation.
func NewDependencies(deps Dependencies) (Dependencies, error) {
	if err := deps.Validate(); err != nil {
		return Dependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d Dependencies) Validate() error {
	var errs []error

	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		errs = append(errs, fmt.Errorf("logger cannot be nil"))
	}
	if d.Registry == nil {
		errs = append(errs, fmt.Errorf("registry cannot be nil"))
	}
	if d.Tracker == nil {
		errs = append(errs, fmt.Errorf("health tracker cannot be nil"))
	}
	if d.Checker == nil {
		errs = append(errs, fmt.Errorf("health checker cannot be nil"))
	}
	if d.Guards == nil {
		errs = append(errs, fmt.Errorf("guard set cannot be nil"))
	}
	if d.Egress == nil {
		errs = append(errs, fmt.Errorf("egress controller cannot be nil"))
	}
	if d.Supervisor == nil || reflect.ValueOf(d.Supervisor).IsNil() {
		errs = append(errs, fmt.Errorf("process supervisor cannot be nil"))
	}
	if d.Metrics == nil {
		errs = append(errs, fmt.Errorf("metrics cannot be nil"))
	}
	if d.Audit == nil {
		errs = append(errs, fmt.Errorf("audit recorder cannot be nil"))
	}
	if err := api.IsValidAddr(d.APIAddr); err != nil {
		errs = append(errs, fmt.Errorf("invalid API address '%s': %w", d.APIAddr, err))
	}

	return errors.Join(errs...)
}
