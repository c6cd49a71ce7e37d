// Package contracts defines the interfaces shared between the orchestrator
// and the API surface, keeping each side mockable in tests.
package contracts

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/client"

	"github.com/mozilla-ai/mcpfleet/internal/domain"
)

// MCPHealthMonitor provides a way to interact with the health status of MCP servers.
type MCPHealthMonitor interface {
	// Status returns the health status for a single tracked server.
	Status(name string) (domain.ServerHealth, error)

	// List returns a copy of all known server health records.
	List() []domain.ServerHealth

	// Update records a health check for a tracked server.
	Update(name string, status domain.HealthStatus, latency *time.Duration, reason string) error
}

// MCPClientAccessor provides a way to interact with MCP servers through a client.
type MCPClientAccessor interface {
	// Add registers a client and its tools by server name.
	Add(name string, c *client.Client, tools []string)

	// Client returns the client for the given server name.
	// It returns a boolean to indicate whether the client was found.
	Client(name string) (*client.Client, bool)

	// Tools returns the tools for the given server name.
	// It returns a boolean to indicate whether the tools were found.
	Tools(name string) ([]string, bool)

	// List returns all known server names.
	List() []string

	// Remove deletes the client and its tools by server name.
	Remove(name string)
}

// CallGuard wraps a server interaction with the composed guard policies
// (scope, rate limit, circuit breaker, timeout).
type CallGuard interface {
	// Call runs fn against the named server with every guard applied.
	Call(ctx context.Context, server string, scope string, fn func(ctx context.Context) error) error
}

// BreakerInspector exposes circuit breaker snapshots for observability.
type BreakerInspector interface {
	// Status returns the breaker snapshot for a server; false when no
	// guarded call has touched the server yet.
	Status(server string) (domain.BreakerStatus, bool)

	// List returns snapshots for every breaker created so far.
	List() []domain.BreakerStatus
}

// EgressManager exposes the runtime-mutable egress allowlist.
type EgressManager interface {
	// Allowlist returns a copy of the current allowlist.
	Allowlist() []string

	// UpdateAllowlist atomically replaces the allowlist.
	UpdateAllowlist(entries []string)

	// IsAllowed reports whether the hostname may be dialed.
	IsAllowed(hostname string) bool
}

// ReadinessReporter derives the fleet-wide readiness aggregate.
type ReadinessReporter interface {
	// Readiness returns the current aggregate readiness.
	Readiness() domain.Readiness
}
