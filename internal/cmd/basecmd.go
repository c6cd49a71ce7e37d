package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/flags"
)

type BaseCmd struct {
	logger hclog.Logger
}

// SetLogger updates the command's logger
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the current logger for the command
func (c *BaseCmd) Logger() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	// Get log level from flags first, then environment, then default
	logLevel := flags.LogLevel
	if logLevel == "" {
		logLevel = strings.ToLower(os.Getenv(flags.EnvVarLogLevel))
		if logLevel == "" {
			logLevel = flags.DefaultLogLevel
		}
	}

	// Get log path from flags first, then environment
	logPath := flags.LogPath
	if logPath == "" {
		logPath = strings.TrimSpace(os.Getenv(flags.EnvVarLogPath))
	}

	// Configure logger output
	var output io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file (%s): %v, using stderr\n", logPath, err)
		} else {
			output = f
		}
	}

	// Using flags/env for fallback logger
	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "mcpfleet",
		Level:  hclog.LevelFromString(logLevel),
		Output: output,
	})

	return c.logger
}

// ConfigLayers resolves the layered config file paths from the global flags.
// The overlay file lives next to the base file as mcpfleet.<env>.toml and is
// only selected when an environment name is set.
func (c *BaseCmd) ConfigLayers() config.Layers {
	layers := config.Layers{
		Base:  flags.ConfigFile,
		Local: flags.LocalFile,
	}

	env := strings.TrimSpace(flags.EnvName)
	if env != "" {
		dir := filepath.Dir(flags.ConfigFile)
		base := filepath.Base(flags.ConfigFile)
		ext := filepath.Ext(base)
		name := strings.TrimSuffix(base, ext)
		layers.Overlay = filepath.Join(dir, fmt.Sprintf("%s.%s%s", name, env, ext))
	}

	return layers
}

// LoadConfig runs the full layered load with schema validation applied.
func (c *BaseCmd) LoadConfig(loader config.Loader) (*config.Config, error) {
	validating := config.NewValidatingLoader(loader, config.ServerSchemaPredicate())
	return validating.Load(c.ConfigLayers())
}
