package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	internalerrors "github.com/mozilla-ai/mcpfleet/internal/errors"
	"github.com/mozilla-ai/mcpfleet/internal/override"
)

// Load merges the layered configuration files into a single Config.
// The base file is required; the overlay and local override files are
// applied only when present. Later layers win on key collision: features
// merge per flag name, server entries merge per server name, and scalar
// sections merge field-wise.
func (d *DefaultLoader) Load(layers Layers) (*Config, error) {
	base := strings.TrimSpace(layers.Base)
	if base == "" {
		return nil, fmt.Errorf("%w: base config path cannot be empty", ErrConfigLoadFailed)
	}

	cfg, err := decodeConfigFile(base)
	if err != nil {
		return nil, err
	}

	if overlay := strings.TrimSpace(layers.Overlay); overlay != "" {
		overlayCfg, err := decodeOptionalConfigFile(overlay)
		if err != nil {
			return nil, err
		}
		if overlayCfg != nil {
			cfg = mergeConfigs(cfg, overlayCfg)
		}
	}

	if local := strings.TrimSpace(layers.Local); local != "" {
		loader := &override.DefaultLoader{}
		mod, err := loader.Load(local)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigLoadFailed, err)
		}
		applyOverrides(cfg, mod.List())
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerrors.ErrConfigValidation, err)
	}

	cfg.configFilePath = base

	return cfg, nil
}

// decodeConfigFile loads and decodes a required config file.
func decodeConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: base config file cannot be found (%s)", ErrConfigLoadFailed, path)
		}
		return nil, fmt.Errorf("%w: failed to stat config file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	var cfg *Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config from file (%s): %w", ErrConfigLoadFailed, path, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: config file is empty (%s)", ErrConfigLoadFailed, path)
	}

	return cfg, nil
}

// decodeOptionalConfigFile loads a config layer that may be absent.
// Returns nil without error when the file does not exist.
func decodeOptionalConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to stat config file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	var cfg *Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config from file (%s): %w", ErrConfigLoadFailed, path, err)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	return cfg, nil
}

// mergeConfigs overlays one config onto another, returning the merged result.
// Neither input is modified.
func mergeConfigs(base *Config, overlay *Config) *Config {
	merged := &Config{
		Features: maps.Clone(base.Features),
		Servers:  slices.Clone(base.Servers),
		Runtime:  mergeRuntime(base.Runtime, overlay.Runtime),
		Security: mergeSecurity(base.Security, overlay.Security),
		API:      mergeAPI(base.API, overlay.API),
	}

	if len(overlay.Features) > 0 {
		if merged.Features == nil {
			merged.Features = map[string]bool{}
		}
		maps.Copy(merged.Features, overlay.Features)
	}

	for _, entry := range overlay.Servers {
		idx := slices.IndexFunc(merged.Servers, func(e ServerEntry) bool {
			return e.Name == entry.Name
		})
		if idx == -1 {
			merged.Servers = append(merged.Servers, entry)
			continue
		}
		merged.Servers[idx] = mergeServerEntry(merged.Servers[idx], entry)
	}

	return merged
}

// mergeServerEntry overlays the set fields of one server entry onto another.
// Env maps merge per key, args are replaced wholesale when the overlay sets them.
func mergeServerEntry(base ServerEntry, overlay ServerEntry) ServerEntry {
	merged := base

	if strings.TrimSpace(overlay.Command) != "" {
		merged.Command = overlay.Command
	}
	if strings.TrimSpace(overlay.URL) != "" {
		merged.URL = overlay.URL
	}
	if len(overlay.Args) > 0 {
		merged.Args = slices.Clone(overlay.Args)
	}
	if len(overlay.Env) > 0 {
		env := maps.Clone(merged.Env)
		if env == nil {
			env = map[string]string{}
		}
		maps.Copy(env, overlay.Env)
		merged.Env = env
	}
	if overlay.Enabled != nil {
		merged.Enabled = overlay.Enabled
	}
	if len(overlay.Scopes) > 0 {
		merged.Scopes = slices.Clone(overlay.Scopes)
	}
	if overlay.Limits != nil {
		merged.Limits = mergeLimits(merged.Limits, overlay.Limits)
	}
	if overlay.Probe != nil {
		merged.Probe = mergeProbe(merged.Probe, overlay.Probe)
	}

	return merged
}

func mergeLimits(base *LimitsConfigSection, overlay *LimitsConfigSection) *LimitsConfigSection {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	merged := *base
	if overlay.RPS != nil {
		merged.RPS = overlay.RPS
	}
	return &merged
}

func mergeProbe(base *ProbeConfigSection, overlay *ProbeConfigSection) *ProbeConfigSection {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	merged := *base
	if strings.TrimSpace(overlay.Type) != "" {
		merged.Type = overlay.Type
	}
	if strings.TrimSpace(overlay.URL) != "" {
		merged.URL = overlay.URL
	}
	if overlay.Timeout != nil {
		merged.Timeout = overlay.Timeout
	}
	return &merged
}

func mergeRuntime(base *RuntimeConfigSection, overlay *RuntimeConfigSection) *RuntimeConfigSection {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	merged := *base
	if overlay.CallTimeout != nil {
		merged.CallTimeout = overlay.CallTimeout
	}
	if overlay.HealthInterval != nil {
		merged.HealthInterval = overlay.HealthInterval
	}
	if overlay.ProbeTimeout != nil {
		merged.ProbeTimeout = overlay.ProbeTimeout
	}
	if overlay.ShutdownGrace != nil {
		merged.ShutdownGrace = overlay.ShutdownGrace
	}
	if overlay.MaxConcurrentProbes != nil {
		merged.MaxConcurrentProbes = overlay.MaxConcurrentProbes
	}
	return &merged
}

func mergeSecurity(base *SecurityConfigSection, overlay *SecurityConfigSection) *SecurityConfigSection {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	merged := *base
	if len(overlay.EgressAllowlist) > 0 {
		merged.EgressAllowlist = slices.Clone(overlay.EgressAllowlist)
	}
	if overlay.AllowUnscoped != nil {
		merged.AllowUnscoped = overlay.AllowUnscoped
	}
	return &merged
}

func mergeAPI(base *APIConfigSection, overlay *APIConfigSection) *APIConfigSection {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	merged := *base
	if overlay.Addr != nil {
		merged.Addr = overlay.Addr
	}
	if overlay.Timeout != nil {
		if merged.Timeout == nil {
			merged.Timeout = overlay.Timeout
		} else {
			timeout := *merged.Timeout
			if overlay.Timeout.Shutdown != nil {
				timeout.Shutdown = overlay.Timeout.Shutdown
			}
			merged.Timeout = &timeout
		}
	}
	if overlay.CORS != nil {
		merged.CORS = mergeCORS(merged.CORS, overlay.CORS)
	}
	return &merged
}

func mergeCORS(base *CORSConfigSection, overlay *CORSConfigSection) *CORSConfigSection {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	merged := *base
	if overlay.Enable != nil {
		merged.Enable = overlay.Enable
	}
	if len(overlay.Origins) > 0 {
		merged.Origins = slices.Clone(overlay.Origins)
	}
	if len(overlay.Methods) > 0 {
		merged.Methods = slices.Clone(overlay.Methods)
	}
	if len(overlay.Headers) > 0 {
		merged.Headers = slices.Clone(overlay.Headers)
	}
	if len(overlay.ExposeHeaders) > 0 {
		merged.ExposeHeaders = slices.Clone(overlay.ExposeHeaders)
	}
	if overlay.Credentials != nil {
		merged.Credentials = overlay.Credentials
	}
	if overlay.MaxAge != nil {
		merged.MaxAge = overlay.MaxAge
	}
	return &merged
}

// applyOverrides folds local override entries into matching server entries.
// Overrides naming servers absent from the merged config are ignored, the
// local file may be shared across projects with differing server sets.
func applyOverrides(cfg *Config, overrides []override.ServerOverride) {
	for _, ov := range overrides {
		idx := slices.IndexFunc(cfg.Servers, func(e ServerEntry) bool {
			return e.Name == ov.Name
		})
		if idx == -1 {
			continue
		}

		entry := cfg.Servers[idx]
		if len(ov.Args) > 0 {
			entry.Args = slices.Clone(ov.Args)
		}
		if len(ov.Env) > 0 {
			env := maps.Clone(entry.Env)
			if env == nil {
				env = map[string]string{}
			}
			maps.Copy(env, ov.Env)
			entry.Env = env
		}
		cfg.Servers[idx] = entry
	}
}

// validate orchestrates validation of configuration structure,
// collecting all violations rather than stopping at the first.
func (c *Config) validate() error {
	var validationErrors []error

	if err := c.validateServers(); err != nil {
		validationErrors = append(validationErrors, err)
	}

	if c.Runtime != nil {
		if err := c.Runtime.Validate(); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("runtime configuration error: %w", err))
		}
	}

	if c.Security != nil {
		if err := c.Security.Validate(); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("security configuration error: %w", err))
		}
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("API configuration error: %w", err))
		}
	}

	return errors.Join(validationErrors...)
}

// validateServers checks every server entry, collecting all violations.
func (c *Config) validateServers() error {
	var validationErrors []error

	seen := map[string]struct{}{}
	for _, entry := range c.Servers {
		if _, ok := seen[entry.Name]; ok {
			validationErrors = append(validationErrors, fmt.Errorf("duplicate server name '%s'", entry.Name))
		}
		seen[entry.Name] = struct{}{}

		if err := entry.validate(); err != nil {
			validationErrors = append(validationErrors, err)
		}
	}

	return errors.Join(validationErrors...)
}

// validate checks a single server entry.
func (e *ServerEntry) validate() error {
	var validationErrors []error

	name := strings.TrimSpace(e.Name)
	if name == "" {
		validationErrors = append(validationErrors, fmt.Errorf("server entry has empty name"))
		name = "(unnamed)"
	}

	hasCommand := strings.TrimSpace(e.Command) != ""
	hasURL := strings.TrimSpace(e.URL) != ""
	switch {
	case !hasCommand && !hasURL:
		validationErrors = append(validationErrors, fmt.Errorf("server '%s' must set one of command or url", name))
	case hasCommand && hasURL:
		validationErrors = append(validationErrors, fmt.Errorf("server '%s' cannot set both command and url", name))
	}

	if e.Probe != nil {
		probeType := strings.ToLower(strings.TrimSpace(e.Probe.Type))
		switch probeType {
		case "", ProbeTypeHTTP, ProbeTypeStdio:
		default:
			validationErrors = append(
				validationErrors,
				fmt.Errorf("server '%s' has unknown probe type '%s'", name, e.Probe.Type),
			)
		}
		if probeType == ProbeTypeStdio && !hasCommand {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("server '%s' declares a stdio probe without a command", name),
			)
		}
		if e.Probe.Timeout != nil && *e.Probe.Timeout <= 0 {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("server '%s' probe timeout must be positive", name),
			)
		}
	}

	if e.ProbeKind() == ProbeTypeHTTP && e.ProbeURL() == "" {
		validationErrors = append(
			validationErrors,
			fmt.Errorf("server '%s' requires a probe url for http probes", name),
		)
	}

	if e.Limits != nil && e.Limits.RPS != nil && *e.Limits.RPS <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("server '%s' rps limit must be positive", name))
	}

	for _, scope := range e.Scopes {
		if strings.TrimSpace(scope) == "" {
			validationErrors = append(validationErrors, fmt.Errorf("server '%s' has an empty scope", name))
		}
	}

	return errors.Join(validationErrors...)
}
