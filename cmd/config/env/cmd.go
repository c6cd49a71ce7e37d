package env

import (
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
)

// NewCmd creates the parent 'env' command.
func NewCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	cobraCmd := &cobra.Command{
		Use:   "env",
		Short: "Manages local environment variable overrides for MCP servers",
		Long: "Manages local environment variable overrides for MCP servers, " +
			"dealing with setting, clearing and listing values in the uncommitted " +
			"local override file",
	}

	// Sub-commands for: mcpfleet config env
	fns := []func(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error){
		NewSetCmd,   // set
		NewClearCmd, // clear
		NewListCmd,  // list
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
