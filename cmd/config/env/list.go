package env

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
	"github.com/mozilla-ai/mcpfleet/internal/flags"
	"github.com/mozilla-ai/mcpfleet/internal/override"
)

type ListCmd struct {
	*cmd.BaseCmd
	ovrLoader override.Loader
}

// NewListCmd creates a newly configured (Cobra) command.
func NewListCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		BaseCmd:   baseCmd,
		ovrLoader: opts.OverrideLoader,
	}

	cobraCmd := &cobra.Command{
		Use:   "list <server-name>",
		Short: "Lists locally overridden environment variables for an MCP server",
		Long: "Lists locally overridden environment variables for a specific MCP server, " +
			"using the local override file (e.g. `mcpfleet.local.toml`)",
		RunE: c.run,
		Args: cobra.MinimumNArgs(1), // server-name
	}

	return cobraCmd, nil
}

// run is configured (via NewListCmd) to be called by the Cobra framework when the command is executed.
func (c *ListCmd) run(cobraCmd *cobra.Command, args []string) error {
	serverName := strings.TrimSpace(args[0])
	if serverName == "" {
		return fmt.Errorf("server-name is required")
	}

	cfg, err := c.ovrLoader.Load(flags.LocalFile)
	if err != nil {
		return fmt.Errorf("failed to load local override config: %w", err)
	}

	server, ok := cfg.Get(serverName)
	if !ok {
		return fmt.Errorf("server '%s' not found in configuration", serverName)
	}

	out := cobraCmd.OutOrStdout()
	fmt.Fprintf(out, "Environment variables for '%s':\n", serverName)
	if len(server.Env) == 0 {
		fmt.Fprintln(out, "  (No environment variables set)")
		return nil
	}

	for _, k := range slices.Sorted(maps.Keys(server.Env)) {
		fmt.Fprintf(out, "  %s = %s\n", k, server.Env[k])
	}

	return nil
}
