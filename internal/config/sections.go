package config

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// ProbeTypeHTTP selects the HTTP GET health probe.
	ProbeTypeHTTP = "http"

	// ProbeTypeStdio selects the subprocess exit-code health probe.
	ProbeTypeStdio = "stdio"
)

// RuntimeConfigSection contains supervision tunables for the orchestrator.
type RuntimeConfigSection struct {
	// CallTimeout bounds a single guarded tool call.
	CallTimeout *Duration `json:"callTimeout,omitempty" toml:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`

	// HealthInterval is the period of the scheduled health-check loop.
	HealthInterval *Duration `json:"healthInterval,omitempty" toml:"health_interval,omitempty" yaml:"health_interval,omitempty"`

	// ProbeTimeout is the default per-probe timeout, overridable per server.
	ProbeTimeout *Duration `json:"probeTimeout,omitempty" toml:"probe_timeout,omitempty" yaml:"probe_timeout,omitempty"`

	// ShutdownGrace is how long terminating child processes are given
	// before being force-killed.
	ShutdownGrace *Duration `json:"shutdownGrace,omitempty" toml:"shutdown_grace,omitempty" yaml:"shutdown_grace,omitempty"`

	// MaxConcurrentProbes caps how many probes run at once per health cycle.
	MaxConcurrentProbes *int `json:"maxConcurrentProbes,omitempty" toml:"max_concurrent_probes,omitempty" yaml:"max_concurrent_probes,omitempty"`
}

// SecurityConfigSection contains egress and scope policy settings.
type SecurityConfigSection struct {
	// EgressAllowlist restricts outbound HTTP to the listed hostnames.
	// Entries are exact hostnames or wildcard patterns like "*.example.com".
	// An empty list means unrestricted.
	EgressAllowlist []string `json:"egressAllowlist,omitempty" toml:"egress_allowlist,omitempty" yaml:"egress_allowlist,omitempty"`

	// AllowUnscoped permits guarded calls against servers that declare no
	// scopes. Defaults to true.
	AllowUnscoped *bool `json:"allowUnscoped,omitempty" toml:"allow_unscoped,omitempty" yaml:"allow_unscoped,omitempty"`
}

// APIConfigSection contains API server configuration settings.
type APIConfigSection struct {
	// Address to bind the API server (e.g., "0.0.0.0:8090")
	// Maps to CLI flag --addr
	Addr *string `json:"addr,omitempty" toml:"addr,omitempty" yaml:"addr,omitempty"`

	// Nested timeout configuration for API operations
	Timeout *APITimeoutConfigSection `json:"timeout,omitempty" toml:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Nested CORS configuration for cross-origin requests
	CORS *CORSConfigSection `json:"cors,omitempty" toml:"cors,omitempty" yaml:"cors,omitempty"`
}

// APITimeoutConfigSection contains timeout settings for API operations.
type APITimeoutConfigSection struct {
	// Shutdown timeout for graceful API server shutdown
	Shutdown *Duration `json:"shutdown,omitempty" toml:"shutdown,omitempty" yaml:"shutdown,omitempty"`
}

// CORSConfigSection contains Cross-Origin Resource Sharing (CORS) configuration.
type CORSConfigSection struct {
	// Enable CORS support
	Enable *bool `json:"enable,omitempty" toml:"enable,omitempty" yaml:"enable,omitempty"`

	// Allowed origins for CORS requests
	Origins []string `json:"allowOrigins,omitempty" toml:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`

	// Allowed HTTP methods for CORS requests
	Methods []string `json:"allowMethods,omitempty" toml:"allow_methods,omitempty" yaml:"allow_methods,omitempty"`

	// Allowed headers for CORS requests
	Headers []string `json:"allowHeaders,omitempty" toml:"allow_headers,omitempty" yaml:"allow_headers,omitempty"`

	// Headers exposed to the client
	ExposeHeaders []string `json:"exposeHeaders,omitempty" toml:"expose_headers,omitempty" yaml:"expose_headers,omitempty"`

	// Allow credentials in CORS requests
	Credentials *bool `json:"allowCredentials,omitempty" toml:"allow_credentials,omitempty" yaml:"allow_credentials,omitempty"`

	// Maximum age for CORS preflight cache
	MaxAge *Duration `json:"maxAge,omitempty" toml:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// CallTimeoutOrDefault returns the guarded call timeout, falling back to def when not set.
func (r *RuntimeConfigSection) CallTimeoutOrDefault(def time.Duration) time.Duration {
	if r == nil || r.CallTimeout == nil {
		return def
	}
	return time.Duration(*r.CallTimeout)
}

// HealthIntervalOrDefault returns the health-check interval, falling back to def when not set.
func (r *RuntimeConfigSection) HealthIntervalOrDefault(def time.Duration) time.Duration {
	if r == nil || r.HealthInterval == nil {
		return def
	}
	return time.Duration(*r.HealthInterval)
}

// ProbeTimeoutOrDefault returns the default probe timeout, falling back to def when not set.
func (r *RuntimeConfigSection) ProbeTimeoutOrDefault(def time.Duration) time.Duration {
	if r == nil || r.ProbeTimeout == nil {
		return def
	}
	return time.Duration(*r.ProbeTimeout)
}

// ShutdownGraceOrDefault returns the child shutdown grace period, falling back to def when not set.
func (r *RuntimeConfigSection) ShutdownGraceOrDefault(def time.Duration) time.Duration {
	if r == nil || r.ShutdownGrace == nil {
		return def
	}
	return time.Duration(*r.ShutdownGrace)
}

// MaxConcurrentProbesOrDefault returns the probe concurrency cap, falling back to def when not set.
func (r *RuntimeConfigSection) MaxConcurrentProbesOrDefault(def int) int {
	if r == nil || r.MaxConcurrentProbes == nil {
		return def
	}
	return *r.MaxConcurrentProbes
}

// Validate implements Validator for RuntimeConfigSection.
func (r *RuntimeConfigSection) Validate() error {
	if r == nil {
		return nil
	}

	var validationErrors []error

	if r.CallTimeout != nil && *r.CallTimeout <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("call timeout must be positive"))
	}
	if r.HealthInterval != nil && *r.HealthInterval <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("health interval must be positive"))
	}
	if r.ProbeTimeout != nil && *r.ProbeTimeout <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("probe timeout must be positive"))
	}
	if r.ShutdownGrace != nil && *r.ShutdownGrace <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("shutdown grace must be positive"))
	}
	if r.MaxConcurrentProbes != nil && *r.MaxConcurrentProbes <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("max concurrent probes must be positive"))
	}

	return errors.Join(validationErrors...)
}

// AllowUnscopedOrDefault returns the unscoped-call policy, falling back to defaultAllow if not set.
func (s *SecurityConfigSection) AllowUnscopedOrDefault(defaultAllow bool) bool {
	if s == nil || s.AllowUnscoped == nil {
		return defaultAllow
	}
	return *s.AllowUnscoped
}

// Allowlist returns the configured egress allowlist, nil-safe.
func (s *SecurityConfigSection) Allowlist() []string {
	if s == nil {
		return nil
	}
	return s.EgressAllowlist
}

// Validate implements Validator for SecurityConfigSection.
func (s *SecurityConfigSection) Validate() error {
	if s == nil {
		return nil
	}

	var validationErrors []error

	for _, entry := range s.EgressAllowlist {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			validationErrors = append(validationErrors, fmt.Errorf("egress allowlist entry cannot be empty"))
			continue
		}
		if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("egress allowlist entry must be a hostname, not a URL: %s", trimmed),
			)
			continue
		}
		if strings.Count(trimmed, "*") > 1 || (strings.Contains(trimmed, "*") && !strings.HasPrefix(trimmed, "*.")) {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("egress allowlist wildcard must be of the form '*.domain': %s", trimmed),
			)
			continue
		}
	}

	return errors.Join(validationErrors...)
}

// AddrOrDefault returns the API bind address, falling back to def when not set.
func (a *APIConfigSection) AddrOrDefault(def string) string {
	if a == nil || a.Addr == nil || strings.TrimSpace(*a.Addr) == "" {
		return def
	}
	return *a.Addr
}

// Validate implements Validator for APIConfigSection.
// Validates API configuration values.
func (a *APIConfigSection) Validate() error {
	if a == nil {
		return nil
	}

	var validationErrors []error

	// Validate address.
	if a.Addr != nil {
		if *a.Addr == "" {
			validationErrors = append(validationErrors, fmt.Errorf("API address cannot be empty"))
		} else if !isValidAddr(*a.Addr) {
			validationErrors = append(validationErrors, fmt.Errorf("API address \"%s\" appears to be invalid (expected format: host:port)", *a.Addr))
		}
	}

	// Validate subsections.
	if a.Timeout != nil {
		if err := a.Timeout.Validate(); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("timeout configuration error: %w", err))
		}
	}

	if a.CORS != nil {
		if err := a.CORS.Validate(); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("CORS configuration error: %w", err))
		}
	}

	return errors.Join(validationErrors...)
}

// ShutdownOrDefault returns the API shutdown timeout, falling back to def when not set.
func (a *APITimeoutConfigSection) ShutdownOrDefault(def time.Duration) time.Duration {
	if a == nil || a.Shutdown == nil {
		return def
	}
	return time.Duration(*a.Shutdown)
}

// Validate implements Validator for APITimeoutConfigSection.
// Validates API timeout configuration values.
func (a *APITimeoutConfigSection) Validate() error {
	if a.Shutdown != nil {
		if *a.Shutdown <= 0 {
			return fmt.Errorf("API shutdown timeout must be positive")
		}
	}
	return nil
}

// EnableOrDefault returns the CORS enable setting, falling back to defaultEnable if not set.
func (c *CORSConfigSection) EnableOrDefault(defaultEnable bool) bool {
	if c == nil || c.Enable == nil {
		return defaultEnable
	}
	return *c.Enable
}

// Validate implements Validator for CORSConfigSection.
// Validates CORS configuration values.
func (c *CORSConfigSection) Validate() error {
	var validationErrors []error

	// Validate origins.
	for _, origin := range c.Origins {
		// Wildcard origin check.
		// See: https://developer.mozilla.org/en-US/docs/Web/HTTP/Reference/Headers/Access-Control-Allow-Origin#sect
		if origin == "*" {
			continue
		}

		if origin == "" {
			validationErrors = append(validationErrors, fmt.Errorf("CORS origin cannot be empty"))
			continue
		}

		if !isValidAddr(origin) {
			validationErrors = append(validationErrors, fmt.Errorf("invalid origin address: %s", origin))
			continue
		}
	}

	// Validate methods.
	validMethods := ValidHTTPRequestMethods()
	for _, method := range c.Methods {
		// Wildcard method check.
		// See: https://developer.mozilla.org/en-US/docs/Web/HTTP/Reference/Headers/Access-Control-Allow-Methods#sect
		if method == "*" {
			continue
		}

		if method == "" {
			validationErrors = append(validationErrors, fmt.Errorf("CORS method cannot be empty"))
			continue
		}

		if _, ok := validMethods[method]; !ok {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("CORS method %s is not a valid HTTP request method", method),
			)
			continue
		}
	}

	// Validate max age.
	if c.MaxAge != nil {
		if *c.MaxAge <= 0 {
			validationErrors = append(validationErrors, fmt.Errorf("CORS max age must be positive"))
		}
	}

	return errors.Join(validationErrors...)
}

// ValidHTTPRequestMethods returns a map of all valid HTTP request methods.
// See: https://developer.mozilla.org/en-US/docs/Web/HTTP/Reference/Methods
func ValidHTTPRequestMethods() map[string]struct{} {
	return map[string]struct{}{
		http.MethodGet:     {},
		http.MethodHead:    {},
		http.MethodPost:    {},
		http.MethodPut:     {},
		http.MethodDelete:  {},
		http.MethodConnect: {},
		http.MethodOptions: {},
		http.MethodTrace:   {},
		http.MethodPatch:   {},
	}
}

// isValidAddr performs basic validation for host:port format using stdlib.
func isValidAddr(addr string) bool {
	// Use net.SplitHostPort for proper parsing
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}

	// Special case: ":" (empty host, empty port) is valid for bind-all-interfaces
	if host == "" && port == "" {
		return true
	}

	// Port must not be empty (except for the special case above)
	if port == "" {
		return false
	}

	// Host validation: either empty (wildcard), valid IP, or valid hostname
	if host != "" {
		// Check for invalid characters in hostname (spaces, etc.)
		if strings.ContainsAny(host, " \t\n\r") {
			return false
		}

		// Try parsing as IP first
		if net.ParseIP(host) == nil {
			// If not an IP, should be a valid hostname (basic check)
			if len(host) == 0 || len(host) > 253 {
				return false
			}
		}
	}

	return true
}
