package env

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
	"github.com/mozilla-ai/mcpfleet/internal/flags"
	"github.com/mozilla-ai/mcpfleet/internal/override"
)

type ClearCmd struct {
	*cmd.BaseCmd
	Force     bool
	ovrLoader override.Loader
}

// NewClearCmd creates a newly configured (Cobra) command.
func NewClearCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ClearCmd{
		BaseCmd:   baseCmd,
		ovrLoader: opts.OverrideLoader,
	}

	cobraCmd := &cobra.Command{
		Use:   "clear <server-name>",
		Short: "Clears locally overridden environment variables for an MCP server",
		Long: "Clears environment variables for a specified MCP server from the " +
			"local override file (e.g. `mcpfleet.local.toml`)",
		RunE: c.run,
		Args: cobra.MinimumNArgs(1), // server-name
	}

	cobraCmd.Flags().BoolVar(
		&c.Force,
		"force",
		false,
		"Force clearing of all environment variables for the specified server without confirmation",
	)

	return cobraCmd, nil
}

// run is configured (via NewClearCmd) to be called by the Cobra framework when the command is executed.
func (c *ClearCmd) run(cobraCmd *cobra.Command, args []string) error {
	serverName := strings.TrimSpace(args[0])
	if serverName == "" {
		return fmt.Errorf("server-name is required")
	}

	if !c.Force {
		return fmt.Errorf("this is a destructive operation. To clear all environment variables for '%s', "+
			"please re-run the command with the --force flag", serverName)
	}

	cfg, err := c.ovrLoader.Load(flags.LocalFile)
	if err != nil {
		return fmt.Errorf("failed to load local override config: %w", err)
	}

	s, ok := cfg.Get(serverName)
	if !ok {
		return fmt.Errorf("server '%s' not found in configuration", serverName)
	}

	s.Env = make(map[string]string)
	res, err := cfg.Upsert(s)
	if err != nil {
		return fmt.Errorf("error clearing environment variables for server '%s': %w", serverName, err)
	}

	if _, err := fmt.Fprintf(
		cobraCmd.OutOrStdout(),
		"✓ Environment variables cleared for server '%s' (operation: %s)\n", serverName, string(res),
	); err != nil {
		return err
	}

	return nil
}
