package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/output"
	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/printer"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
)

// ServersCmd should be used to represent the 'servers' command.
type ServersCmd struct {
	*cmd.BaseCmd
	Format    cmd.OutputFormat
	cfgLoader config.Loader
}

// NewServersCmd creates a newly configured (Cobra) command.
func NewServersCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ServersCmd{
		BaseCmd:   baseCmd,
		Format:    cmd.FormatText,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "servers [--format]",
		Short: "Lists all configured MCP servers and their resolved state",
		Long: "Lists every server from the layered configuration with its resolved state " +
			"(enabled, skipped, or disabled), probe type, rate limit, scopes and any " +
			"missing environment variables.",
		RunE: c.run,
	}

	allowed := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Output format, one of: %s", allowed.String()),
	)

	return cobraCommand, nil
}

// run is configured (via NewServersCmd) to be called by the Cobra framework when the command is executed.
func (c *ServersCmd) run(cobraCmd *cobra.Command, _ []string) error {
	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		return err
	}

	reg, err := registry.New(cfg)
	if err != nil {
		return err
	}

	statuses := reg.Statuses()

	handler, err := output.ForFormat(c.Format.String(), cobraCmd.OutOrStdout(), printer.NewServerStatusPrinter())
	if err != nil {
		return err
	}

	return handler.HandleResults(statuses...)
}
