// Package override manages the uncommitted local override layer of the
// layered configuration: per-server environment variables and command
// arguments kept outside version control, typically credentials.
package override

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mozilla-ai/mcpfleet/internal/perms"
)

// ServerOverride stores local override data for a single MCP server.
type ServerOverride struct {
	Name string            `toml:"-"`
	Args []string          `toml:"args,omitempty"`
	Env  map[string]string `toml:"env,omitempty"`
}

func (s *ServerOverride) Equals(b ServerOverride) bool {
	if s.Name != b.Name {
		return false
	}

	if !equalSlices(s.Args, b.Args) {
		return false
	}

	if len(s.Env) != len(b.Env) || !maps.Equal(s.Env, b.Env) {
		return false
	}

	return true
}

func (s *ServerOverride) IsEmpty() bool {
	return len(s.Args) == 0 && len(s.Env) == 0
}

func equalSlices(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	sortedA := slices.Clone(a)
	slices.Sort(sortedA)

	sortedB := slices.Clone(b)
	slices.Sort(sortedB)

	return slices.Equal(sortedA, sortedB)
}

type DefaultLoader struct{}

func (d *DefaultLoader) Load(path string) (Modifier, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	cfg, err := loadConfig(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load local override config: %w", err)
		}

		// Config doesn't exist yet, so create a new instance to interact with.
		cfg = NewConfig(path)
	}

	return cfg, nil
}

// Config stores local override data for all configured MCP servers.
type Config struct {
	Servers  map[string]ServerOverride `toml:"servers"`
	filePath string                    `toml:"-"`
}

// NewConfig returns a newly initialized local override Config.
func NewConfig(path string) *Config {
	return &Config{
		Servers:  map[string]ServerOverride{},
		filePath: strings.TrimSpace(path),
	}
}

func (c *Config) List() []ServerOverride {
	servers := slices.Collect(maps.Values(c.Servers))

	slices.SortFunc(servers, func(a, b ServerOverride) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	return servers
}

func (c *Config) Get(name string) (ServerOverride, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ServerOverride{}, false
	}

	if srv, ok := c.Servers[name]; ok {
		return ServerOverride{
			Name: name,
			Args: slices.Clone(srv.Args),
			Env:  maps.Clone(srv.Env),
		}, true
	}

	return ServerOverride{}, false
}

// Upsert updates the local override for the given server name.
// If the override is empty and does not exist in config, it does nothing.
// If the override is empty and previously existed in config, it deletes the entry.
// If the override differs from the existing one in config, it updates it.
// If the override is new and non-empty, it adds it.
// Returns the operation performed (Created, Updated, Deleted, or Noop),
// and writes changes to disk if applicable.
func (c *Config) Upsert(ov ServerOverride) (UpsertResult, error) {
	if strings.TrimSpace(ov.Name) == "" {
		return Noop, fmt.Errorf("server name cannot be empty")
	}

	if len(c.Servers) == 0 {
		// We've currently got no servers stored in config.
		c.Servers = map[string]ServerOverride{}
	}

	current, exists := c.Servers[ov.Name]
	var op UpsertResult

	switch {
	case !exists && ov.IsEmpty():
		return Noop, nil // Nothing existing and trying to save an empty override.
	case exists && current.Equals(ov):
		return Noop, nil // No change to existing.
	case ov.IsEmpty():
		delete(c.Servers, ov.Name) // Trying to save an empty override over an existing one that wasn't.
		op = Deleted
	case exists:
		op = Updated
		c.Servers[ov.Name] = ov
	default:
		op = Created
		c.Servers[ov.Name] = ov
	}

	if err := c.SaveConfig(); err != nil {
		return Noop, fmt.Errorf("error saving local override config: %w", err)
	}

	return op, nil
}

// loadConfig loads a local override file from disk, using the specified path.
func loadConfig(path string) (*Config, error) {
	cfg := NewConfig(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("local override file '%s' does not exist: %w", path, err)
		}

		return nil, fmt.Errorf("could not stat local override file '%s': %w", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("local override file '%s' could not be parsed: %w", path, err)
	}

	// Manually set the name field for each ServerOverride.
	for name, server := range cfg.Servers {
		server.Name = name
		cfg.Servers[name] = server
	}

	return cfg, nil
}

// SaveConfig writes the Config to disk as a TOML file, creating parent
// directories and setting secure file permissions.
func (c *Config) SaveConfig() error {
	path := c.filePath
	if path == "" {
		return fmt.Errorf("config file path not present")
	}

	// Ensure the directory exists before creating the file.
	if err := os.MkdirAll(filepath.Dir(path), perms.SecureDir); err != nil {
		return fmt.Errorf("could not ensure local override directory exists for '%s': %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perms.SecureFile)
	if err != nil {
		return fmt.Errorf("could not create file '%s': %w", path, err)
	}

	// Defer the closing of the file once it's opened.
	// Ensuring that if an error occurs during closing, then it can be passed back to the caller.
	defer func(f *os.File) {
		closeErr := f.Close()
		if closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}(f)

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("could not encode local override to file '%s': %w", path, err)
	}

	return nil
}
