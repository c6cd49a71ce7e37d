package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpfleet/internal/contracts"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
)

// APIDependencies contains all dependencies required to create an APIServer.
// Use NewAPIDependencies to create instances.
type APIDependencies struct {
	// Logger provides structured logging for API server operations.
	Logger hclog.Logger

	// ClientManager handles MCP client connections.
	ClientManager contracts.MCPClientAccessor

	// HealthMonitor tracks server health status.
	HealthMonitor contracts.MCPHealthMonitor

	// Registry exposes the resolved server definitions.
	Registry *registry.Registry

	// Guard wraps tool calls with the composed guard policies.
	Guard contracts.CallGuard

	// Breakers exposes circuit breaker snapshots.
	Breakers contracts.BreakerInspector

	// Egress manages the outbound allowlist.
	Egress contracts.EgressManager

	// Readiness derives the fleet-wide readiness aggregate.
	Readiness contracts.ReadinessReporter

	// MetricsHandler serves the Prometheus exposition; may be nil to
	// disable the /metrics endpoint.
	MetricsHandler http.Handler

	// Addr specifies the network address to bind.
	Addr string
}

// NewAPIDependencies creates APIDependencies after validating all fields.
func NewAPIDependencies(deps APIDependencies) (APIDependencies, error) {
	if err := deps.Validate(); err != nil {
		return APIDependencies{}, err
	}
	return deps, nil
}

// Validate ensures all required dependencies are present.
func (d *APIDependencies) Validate() error {
	var errs []error

	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		errs = append(errs, fmt.Errorf("logger cannot be nil"))
	}
	if d.ClientManager == nil || reflect.ValueOf(d.ClientManager).IsNil() {
		errs = append(errs, fmt.Errorf("client manager cannot be nil"))
	}
	if d.HealthMonitor == nil || reflect.ValueOf(d.HealthMonitor).IsNil() {
		errs = append(errs, fmt.Errorf("health monitor cannot be nil"))
	}
	if d.Registry == nil {
		errs = append(errs, fmt.Errorf("registry cannot be nil"))
	}
	if d.Guard == nil || reflect.ValueOf(d.Guard).IsNil() {
		errs = append(errs, fmt.Errorf("call guard cannot be nil"))
	}
	if d.Breakers == nil || reflect.ValueOf(d.Breakers).IsNil() {
		errs = append(errs, fmt.Errorf("breaker inspector cannot be nil"))
	}
	if d.Egress == nil || reflect.ValueOf(d.Egress).IsNil() {
		errs = append(errs, fmt.Errorf("egress manager cannot be nil"))
	}
	if d.Readiness == nil || reflect.ValueOf(d.Readiness).IsNil() {
		errs = append(errs, fmt.Errorf("readiness reporter cannot be nil"))
	}
	if strings.TrimSpace(d.Addr) == "" {
		errs = append(errs, fmt.Errorf("address cannot be empty"))
	}

	return errors.Join(errs...)
}
