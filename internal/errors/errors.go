// Package errors defines domain-level errors used throughout the application.
// These errors represent supervision and guard failures and are mapped to appropriate HTTP status codes at the API boundary.
//
// NOTE: Important for developers
// When adding a new error here, you MUST consider how it should be handled when returned from API endpoints.
//
// Unmapped errors will default to HTTP 500 Internal Server Error.
//
// Don't forget to:
// 1. Add your error to mapError (internal/api/server.go)
// 2. Add a test case to TestMapError (internal/api/server_test.go)
// 3. Consider if existing handler tests need updates
package errors

import (
	"errors"
)

var (
	// ErrBadRequest indicates that the client provided invalid input or made a malformed request.
	// This typically results from validation failures or incorrect request parameters.
	// Recommended to map to HTTP 400 Bad Request.
	ErrBadRequest = errors.New("bad request")

	// ErrConfigValidation indicates the layered configuration is malformed or violates the schema.
	// This is a startup-time failure: the process must abort rather than run with a broken fleet definition.
	// Never returned from API endpoints (the daemon does not start).
	ErrConfigValidation = errors.New("configuration validation failed")

	// ErrMissingEnvironment indicates an enabled server could not resolve all required environment variables.
	// The server is skipped (excluded from the enabled set); the process keeps running.
	// Recommended to map to HTTP 409 Conflict if surfaced through the API.
	ErrMissingEnvironment = errors.New("missing required environment variables")

	// ErrServerNotFound indicates that the requested MCP server does not exist or is not configured.
	// This occurs when trying to access operations on a server that hasn't been registered.
	// Recommended to map to HTTP 404 Not Found.
	ErrServerNotFound = errors.New("server not found")

	// ErrToolsNotFound indicates that no tools are configured or available for the specified server.
	// This can happen when a server exists but has no tools defined.
	// Recommended to map to HTTP 404 Not Found.
	ErrToolsNotFound = errors.New("tools not found")

	// ErrToolForbidden indicates that the requested tool either does not exist for the MCP server,
	// or exists but is not allowed to be called.
	// Recommended to map to HTTP 403 Forbidden.
	ErrToolForbidden = errors.New("tool not allowed")

	// ErrScopeForbidden indicates the caller-declared scope is not permitted for the target server.
	// Raised by the scope guard before any call reaches the server.
	// Recommended to map to HTTP 403 Forbidden.
	ErrScopeForbidden = errors.New("scope not permitted")

	// ErrToolListFailed indicates that listing tools from an MCP server failed.
	// This represents a communication or protocol error with the external MCP server.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrToolListFailed = errors.New("tool list failed")

	// ErrToolCallFailed indicates that calling a tool on an MCP server failed.
	// This represents a communication or execution error with the external MCP server.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrToolCallFailed = errors.New("tool call failed")

	// ErrCircuitOpen indicates the server's circuit breaker rejected the call
	// without attempting the underlying operation.
	// Recommended to map to HTTP 503 Service Unavailable.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrRateLimitExceeded indicates the server's token bucket was exhausted for the current window.
	// Distinct from ErrCircuitOpen so callers can tell throttling from failure isolation.
	// Recommended to map to HTTP 429 Too Many Requests.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrGuardTimeout indicates a guarded call was aborted by its timeout signal
	// before the underlying operation completed.
	// Recommended to map to HTTP 504 Gateway Timeout.
	ErrGuardTimeout = errors.New("guarded call timed out")

	// ErrProbeTimeout indicates a health probe did not complete within its configured timeout.
	// Downgrades the server's health; never crashes the orchestrator.
	// Recommended to map to HTTP 502 Bad Gateway if surfaced through the API.
	ErrProbeTimeout = errors.New("probe timed out")

	// ErrProbeFailure indicates a health probe completed but reported the server unhealthy
	// (non-2xx HTTP status or non-zero exit code).
	// Recommended to map to HTTP 502 Bad Gateway if surfaced through the API.
	ErrProbeFailure = errors.New("probe failed")

	// ErrEgressBlocked indicates an outbound call was denied by the egress allowlist.
	// Recommended to map to HTTP 403 Forbidden.
	ErrEgressBlocked = errors.New("egress blocked")

	// ErrSpawnFailed indicates a child process failed to start.
	// The server is marked unhealthy and retried on a later cycle; the process keeps running.
	// Recommended to map to HTTP 502 Bad Gateway if surfaced through the API.
	ErrSpawnFailed = errors.New("server process failed to start")

	// ErrHealthNotTracked indicates that health monitoring is not enabled for the specified server.
	// This occurs when trying to get health status for a server that isn't being monitored.
	// Recommended to map to HTTP 404 Not Found.
	ErrHealthNotTracked = errors.New("server health is not being tracked")
)
