package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpfleet/internal/api"
	"github.com/mozilla-ai/mcpfleet/internal/audit"
	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/flags"
	"github.com/mozilla-ai/mcpfleet/internal/orchestrator"
)

// DaemonCmd should be used to represent the 'daemon' command.
type DaemonCmd struct {
	*cmd.BaseCmd
	Dev       bool
	Addr      string
	cfgLoader config.Loader
}

// NewDaemonCmd creates a newly configured (Cobra) command.
func NewDaemonCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &DaemonCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "daemon [--dev] [--addr]",
		Short: "Launches an mcpfleet daemon instance",
		Long: "Launches an mcpfleet daemon instance, which starts the configured MCP servers, " +
			"supervises their health, and provides guarded routing via HTTP API",
		RunE: c.run,
	}

	cobraCommand.Flags().BoolVar(
		&c.Dev,
		"dev",
		false,
		"Run the daemon in development-focused mode",
	)

	cobraCommand.Flags().StringVar(
		&c.Addr,
		"addr",
		"0.0.0.0:8090",
		"Address for the daemon to bind (not applicable in --dev mode)",
	)

	cobraCommand.MarkFlagsMutuallyExclusive("dev", "addr")

	return cobraCommand, nil
}

// run is configured (via NewDaemonCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *DaemonCmd) run(cobraCmd *cobra.Command, _ []string) error {
	logger := c.Logger()

	// Validate flags.
	addr := strings.TrimSpace(c.Addr)

	// Override address for dev mode.
	if c.Dev {
		devAddr := "localhost:8090"
		logger.Info("Development-focused mode", "addr", addr, "override", devAddr)
		addr = devAddr
	}

	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		return err
	}

	// The [api] config section supplies the bind address unless the flag
	// was given explicitly.
	if !c.Dev && !cobraCmd.Flags().Changed("addr") {
		addr = cfg.API.AddrOrDefault(addr)
	}

	if err := api.IsValidAddr(addr); err != nil {
		return err
	}

	recorder, err := newAuditRecorder(c)
	if err != nil {
		return err
	}

	apiOpts := api.OptionsFromConfig(cfg.API)

	orch, err := orchestrator.Build(
		logger,
		cfg,
		recorder,
		addr,
		orchestrator.WithAPIOptions(apiOpts...),
	)
	if err != nil {
		return fmt.Errorf("failed to create mcpfleet daemon instance: %w", err)
	}

	// Create the signal handling context for the application.
	daemonCtx, daemonCtxCancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer daemonCtxCancel()

	// Watch the config layers so an edited allowlist takes effect without
	// a restart. Other config changes still require one.
	watcher, err := config.NewWatcher(logger, c.ConfigLayers(), 0)
	if err != nil {
		return err
	}
	if err := watcher.Start(daemonCtx); err != nil {
		return err
	}
	go func() {
		for ev := range watcher.Events() {
			logger.Info("Config file changed on disk", "path", ev.Path, "op", ev.Op)

			updated, err := c.LoadConfig(c.cfgLoader)
			if err != nil {
				logger.Warn("Ignoring config change, reload failed", "error", err)
				continue
			}

			entries := updated.Security.Allowlist()
			orch.ApplyAllowlist(entries)
			logger.Info("Applied updated egress allowlist", "entries", len(entries))
		}
	}()

	runErr := make(chan error, 1)
	go func() {
		if err := orch.StartAndManage(daemonCtx); err != nil && !errors.Is(err, context.Canceled) {
			runErr <- err
		}
		close(runErr)
	}()

	// Print --dev mode banner if required.
	if c.Dev {
		logger.Info("Launching daemon in dev mode", "addr", addr)
		banner := fmt.Sprintf("mcpfleet daemon running in 'dev' mode.\n\n"+
			"  Local API:\thttp://%s/api/v1\n"+
			"  OpenAPI UI:\thttp://%s/docs\n"+
			"  Config file:\t%s\n"+
			"  Override file:\t%s\n",
			addr, addr, flags.ConfigFile, flags.LocalFile)

		if flags.LogPath != "" {
			banner += fmt.Sprintf("  Log file:\t%s => (%s)\n", flags.LogPath, flags.LogLevel)
		}

		banner += "\nPress Ctrl+C to stop.\n\n"
		fmt.Print(banner)
	}

	select {
	case <-daemonCtx.Done():
		logger.Info("Shutting down daemon")
		err := <-runErr // Wait for cleanup and deferred logging.
		return err      // Graceful Ctrl+C / SIGTERM.
	case err := <-runErr:
		if err != nil {
			logger.Error("daemon exited with error", "error", err)
		}
		return err // Propagate daemon failure.
	}
}

// newAuditRecorder opens the configured audit log, or a nop recorder when
// audit logging is disabled via an empty path.
func newAuditRecorder(c *DaemonCmd) (audit.Recorder, error) {
	path := strings.TrimSpace(flags.AuditLog)
	if path == "" {
		return audit.NopRecorder{}, nil
	}

	recorder, err := audit.NewFileRecorder(c.Logger(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return recorder, nil
}
