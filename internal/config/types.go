package config

import (
	"slices"
	"strings"
)

var _ Loader = (*DefaultLoader)(nil)

// Loader resolves the layered configuration files into a single merged Config.
type Loader interface {
	Load(layers Layers) (*Config, error)
}

// Layers names the files participating in a layered load, in ascending
// precedence order. Base must exist; Overlay and Local are optional and
// skipped when absent.
type Layers struct {
	// Base is the path to the committed base config file (mcpfleet.toml).
	Base string

	// Overlay is the path to the environment-specific overlay file
	// (mcpfleet.<env>.toml), selected by the --env flag.
	Overlay string

	// Local is the path to the uncommitted local override file holding
	// per-server env and args overrides.
	Local string
}

type DefaultLoader struct{}

// Config represents the merged mcpfleet configuration file structure.
type Config struct {
	// Features toggles servers by name, independently of each entry's
	// enabled flag. Either source activates a server.
	Features map[string]bool `json:"features,omitempty" toml:"features,omitempty" yaml:"features,omitempty"`

	// Servers declares the supervised MCP servers.
	Servers []ServerEntry `json:"servers" toml:"servers" yaml:"servers"`

	// Runtime holds supervision tunables (timeouts, intervals, grace periods).
	Runtime *RuntimeConfigSection `json:"runtime,omitempty" toml:"runtime,omitempty" yaml:"runtime,omitempty"`

	// Security holds the egress allowlist and scope policy defaults.
	Security *SecurityConfigSection `json:"security,omitempty" toml:"security,omitempty" yaml:"security,omitempty"`

	// API holds API server configuration (address, timeouts, CORS).
	API *APIConfigSection `json:"api,omitempty" toml:"api,omitempty" yaml:"api,omitempty"`

	configFilePath string `toml:"-"`
}

// ServerEntry represents the declarative configuration of a single MCP server.
type ServerEntry struct {
	// Name is the unique name of the server, e.g. 'github-server'.
	Name string `json:"name" toml:"name" yaml:"name"`

	// Command is the executable spawned for stdio servers.
	// Exactly one of Command or URL must be set.
	Command string `json:"command,omitempty" toml:"command,omitempty" yaml:"command,omitempty"`

	// Args are passed to Command at spawn time.
	Args []string `json:"args,omitempty" toml:"args,omitempty" yaml:"args,omitempty"`

	// URL is the base URL of a remote server that is probed but not spawned.
	URL string `json:"url,omitempty" toml:"url,omitempty" yaml:"url,omitempty"`

	// Env maps variable names to values, which may reference the process
	// environment with ${NAME} tokens.
	Env map[string]string `json:"env,omitempty" toml:"env,omitempty" yaml:"env,omitempty"`

	// Enabled activates the server. A server is also activated by a feature
	// flag matching its name.
	Enabled *bool `json:"enabled,omitempty" toml:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Scopes lists the authorization scopes accepted for guarded tool calls.
	Scopes []string `json:"scopes,omitempty" toml:"scopes,omitempty" yaml:"scopes,omitempty"`

	// Limits holds per-server rate limits.
	Limits *LimitsConfigSection `json:"limits,omitempty" toml:"limits,omitempty" yaml:"limits,omitempty"`

	// Probe declares how the server's health is checked.
	Probe *ProbeConfigSection `json:"probe,omitempty" toml:"probe,omitempty" yaml:"probe,omitempty"`
}

// LimitsConfigSection contains per-server rate limiting settings.
type LimitsConfigSection struct {
	// RPS is the sustained requests-per-second budget for guarded calls.
	RPS *int `json:"rps,omitempty" toml:"rps,omitempty" yaml:"rps,omitempty"`
}

// ProbeConfigSection declares the health probe for a server.
type ProbeConfigSection struct {
	// Type selects the probe mechanism: "http" or "stdio".
	// Defaults to "http" when the server declares a URL, "stdio" otherwise.
	Type string `json:"type,omitempty" toml:"type,omitempty" yaml:"type,omitempty"`

	// URL overrides the probed URL for http probes. Falls back to the
	// server URL when unset.
	URL string `json:"url,omitempty" toml:"url,omitempty" yaml:"url,omitempty"`

	// Timeout bounds a single probe attempt.
	Timeout *Duration `json:"timeout,omitempty" toml:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// IsEnabled reports whether the entry is active, either via its own enabled
// flag or via a feature flag keyed by the server name.
func (e *ServerEntry) IsEnabled(features map[string]bool) bool {
	if e.Enabled != nil && *e.Enabled {
		return true
	}
	return features[e.Name]
}

// ProbeKind returns the effective probe type for the entry, applying the
// URL-based default when no explicit type is configured.
func (e *ServerEntry) ProbeKind() string {
	if e.Probe != nil && strings.TrimSpace(e.Probe.Type) != "" {
		return strings.ToLower(strings.TrimSpace(e.Probe.Type))
	}
	if strings.TrimSpace(e.URL) != "" {
		return ProbeTypeHTTP
	}
	return ProbeTypeStdio
}

// ProbeURL returns the URL an http probe should target, preferring the
// probe-specific URL over the server URL.
func (e *ServerEntry) ProbeURL() string {
	if e.Probe != nil && strings.TrimSpace(e.Probe.URL) != "" {
		return strings.TrimSpace(e.Probe.URL)
	}
	return strings.TrimSpace(e.URL)
}

// RPSLimit returns the configured rate limit and whether one is set.
func (e *ServerEntry) RPSLimit() (int, bool) {
	if e.Limits == nil || e.Limits.RPS == nil {
		return 0, false
	}
	return *e.Limits.RPS, true
}

// ListServers returns a copy of the currently configured server entries.
// This provides read-only access to the internal configuration without exposing direct mutation of the underlying slice.
func (c *Config) ListServers() []ServerEntry {
	return slices.Clone(c.Servers)
}

// Server returns the entry with the given name.
func (c *Config) Server(name string) (ServerEntry, bool) {
	name = strings.TrimSpace(name)
	for _, entry := range c.Servers {
		if entry.Name == name {
			return entry, true
		}
	}
	return ServerEntry{}, false
}

// FilePath returns the path of the base config file this Config was loaded from.
func (c *Config) FilePath() string {
	return c.configFilePath
}
