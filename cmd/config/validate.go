package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
)

type ValidateCmd struct {
	*cmd.BaseCmd
	cfgLoader config.Loader
}

// NewValidateCmd creates a newly configured (Cobra) command.
func NewValidateCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ValidateCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validates the layered configuration files",
		Long: "Validates the layered configuration files: loads the base, environment overlay " +
			"and local override layers, merges them, and checks the result against the server " +
			"schema. Exits non-zero and reports every violation when the configuration is invalid.",
		RunE: c.run,
	}

	return cobraCmd, nil
}

// run is configured (via NewValidateCmd) to be called by the Cobra framework when the command is executed.
func (c *ValidateCmd) run(cobraCmd *cobra.Command, _ []string) error {
	layers := c.ConfigLayers()

	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	reg, err := registry.New(cfg)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	var enabled, skipped, disabled int
	for _, s := range reg.Statuses() {
		switch s.State {
		case registry.StateEnabled:
			enabled++
		case registry.StateSkipped:
			skipped++
		case registry.StateDisabled:
			disabled++
		}
	}

	out := cobraCmd.OutOrStdout()
	fmt.Fprintf(out, "✓ configuration is valid\n")
	fmt.Fprintf(out, "  base:    %s\n", layers.Base)
	if layers.Overlay != "" {
		fmt.Fprintf(out, "  overlay: %s\n", layers.Overlay)
	}
	if layers.Local != "" {
		fmt.Fprintf(out, "  local:   %s\n", layers.Local)
	}
	fmt.Fprintf(out, "  servers: %d enabled, %d skipped, %d disabled\n", enabled, skipped, disabled)

	return nil
}
