package config

import (
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpfleet/cmd/config/env"
	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
)

// NewCmd creates the parent 'config' command.
func NewCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	cobraCmd := &cobra.Command{
		Use:   "config",
		Short: "Manages MCP server configuration",
		Long: "Manages MCP server configuration, dealing with validation of the layered " +
			"configuration files and local environment variable overrides",
	}

	// Sub-commands for: mcpfleet config
	fns := []func(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error){
		NewValidateCmd, // validate
		env.NewCmd,     // env
	}

	for _, fn := range fns {
		tempCmd, err := fn(baseCmd, opt...)
		if err != nil {
			return nil, err
		}
		cobraCmd.AddCommand(tempCmd)
	}

	return cobraCmd, nil
}
