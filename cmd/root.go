package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configcmd "github.com/mozilla-ai/mcpfleet/cmd/config"
	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
	"github.com/mozilla-ai/mcpfleet/internal/flags"
)

var version = "dev" // Set at build time using -ldflags

type RootCmd struct {
	*cmd.BaseCmd
}

func Execute() {
	rootCmd, err := NewRootCmd(&cmd.BaseCmd{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating root command: %s\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	c := &RootCmd{
		BaseCmd: baseCmd,
	}

	rootCmd := &cobra.Command{
		Use:          "mcpfleet <command> [args]",
		Short:        "'mcpfleet' supervises a fleet of MCP servers.",
		Long:         c.longDescription(),
		SilenceUsage: true,
		Version:      version,
	}

	// Global flags
	if err := flags.InitFlags(rootCmd.PersistentFlags()); err != nil {
		return nil, err
	}

	fns := []func(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error){
		NewDaemonCmd,
		NewHealthCmd,
		NewServersCmd,
		configcmd.NewCmd,
	}

	for _, fn := range fns {
		tempCmd, err := fn(baseCmd, opt...)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(tempCmd)
	}

	return rootCmd, nil
}

func (c *RootCmd) longDescription() string {
	return `'mcpfleet' runs and supervises a fleet of MCP servers: it spawns the
configured server processes, health checks them, guards calls with rate
limits and circuit breakers, and exposes the fleet over an HTTP API.`
}
