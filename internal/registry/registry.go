// Package registry holds the resolved set of server definitions and the
// last-known health per server. It is the single source of truth for which
// servers are enabled, which are skipped for missing credentials, and how
// each one is currently doing.
package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mozilla-ai/mcpfleet/internal/config"
)

// SkippedServer describes an enabled server excluded from the fleet because
// required environment variables did not resolve.
type SkippedServer struct {
	// Name is the server name.
	Name string `json:"name"`

	// Missing lists the environment variable names that are unset or empty.
	Missing []string `json:"missing"`
}

// Registry exposes the resolved server definitions from a merged Config.
// It is immutable after construction; health is tracked separately by the
// HealthTracker.
type Registry struct {
	cfg *config.Config
}

// New creates a registry over the merged configuration.
func New(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Registry{cfg: cfg}, nil
}

// AllServers returns a copy of every configured server entry, sorted by name.
func (r *Registry) AllServers() []config.ServerEntry {
	servers := r.cfg.ListServers()
	slices.SortFunc(servers, func(a, b config.ServerEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return servers
}

// Server returns the entry with the given name.
func (r *Registry) Server(name string) (config.ServerEntry, bool) {
	return r.cfg.Server(name)
}

// EnabledServers returns the servers that are active (via their enabled flag
// or a feature flag keyed by their name) AND resolve all required environment
// variables, sorted by name.
func (r *Registry) EnabledServers() []config.ServerEntry {
	var enabled []config.ServerEntry
	for _, entry := range r.AllServers() {
		if !entry.IsEnabled(r.cfg.Features) {
			continue
		}
		if !config.HasRequiredEnvs(entry.Env) {
			continue
		}
		enabled = append(enabled, entry)
	}
	return enabled
}

// SkippedServers returns the servers that are active but excluded because
// required environment variables are unset or empty, sorted by name.
func (r *Registry) SkippedServers() []SkippedServer {
	var skipped []SkippedServer
	for _, entry := range r.AllServers() {
		if !entry.IsEnabled(r.cfg.Features) {
			continue
		}
		missing := config.MissingEnvVars(entry.Env)
		if len(missing) == 0 {
			continue
		}
		skipped = append(skipped, SkippedServer{
			Name:    entry.Name,
			Missing: missing,
		})
	}
	return skipped
}

// ResolvedEnv returns the server's environment with ${VAR} tokens
// interpolated against the process environment.
func (r *Registry) ResolvedEnv(name string) (map[string]string, bool) {
	entry, ok := r.cfg.Server(name)
	if !ok {
		return nil, false
	}
	return config.ResolveEnv(entry.Env), true
}

// Config returns the underlying merged configuration.
func (r *Registry) Config() *config.Config {
	return r.cfg
}

// ScopesByServer returns the configured scope lists keyed by server name,
// for building the scope guard.
func (r *Registry) ScopesByServer() map[string][]string {
	scopes := map[string][]string{}
	for _, entry := range r.cfg.ListServers() {
		if len(entry.Scopes) > 0 {
			scopes[entry.Name] = slices.Clone(entry.Scopes)
		}
	}
	return scopes
}

// RateLimits returns the configured requests-per-second budgets keyed by
// server name, for building the rate limiter registry.
func (r *Registry) RateLimits() map[string]int {
	limits := map[string]int{}
	for _, entry := range r.cfg.ListServers() {
		if rps, ok := entry.RPSLimit(); ok {
			limits[entry.Name] = rps
		}
	}
	return limits
}

const (
	// StateEnabled marks a server that will be spawned and probed.
	StateEnabled = "enabled"

	// StateSkipped marks an enabled server excluded for missing env vars.
	StateSkipped = "skipped"

	// StateDisabled marks a server switched off by its flag or a feature flag.
	StateDisabled = "disabled"
)

// ServerStatus is the resolution state for one configured server, as shown
// by the CLI.
type ServerStatus struct {
	Name       string   `json:"name"                 yaml:"name"`
	State      string   `json:"state"                yaml:"state"`
	Probe      string   `json:"probe"                yaml:"probe"`
	Scopes     []string `json:"scopes,omitempty"     yaml:"scopes,omitempty"`
	RateLimit  *int     `json:"rateLimit,omitempty"  yaml:"rateLimit,omitempty"`
	MissingEnv []string `json:"missingEnv,omitempty" yaml:"missingEnv,omitempty"`
}

// Statuses returns the resolution state for every configured server,
// sorted by name.
func (r *Registry) Statuses() []ServerStatus {
	servers := r.AllServers()

	statuses := make([]ServerStatus, 0, len(servers))
	for _, entry := range servers {
		status := ServerStatus{
			Name:   entry.Name,
			State:  StateEnabled,
			Probe:  entry.ProbeKind(),
			Scopes: slices.Clone(entry.Scopes),
		}

		if rps, ok := entry.RPSLimit(); ok {
			status.RateLimit = &rps
		}

		switch {
		case !entry.IsEnabled(r.cfg.Features):
			status.State = StateDisabled
		case !config.HasRequiredEnvs(entry.Env):
			status.State = StateSkipped
			status.MissingEnv = config.MissingEnvVars(entry.Env)
		}

		statuses = append(statuses, status)
	}

	return statuses
}
