package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpfleet/internal/audit"
	"github.com/mozilla-ai/mcpfleet/internal/cmd"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/options"
	"github.com/mozilla-ai/mcpfleet/internal/cmd/output"
	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/egress"
	"github.com/mozilla-ai/mcpfleet/internal/health"
	"github.com/mozilla-ai/mcpfleet/internal/orchestrator"
	"github.com/mozilla-ai/mcpfleet/internal/printer"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
	"github.com/mozilla-ai/mcpfleet/internal/supervisor"
)

// HealthCmd should be used to represent the 'health' command.
type HealthCmd struct {
	*cmd.BaseCmd
	CI        bool
	Format    cmd.OutputFormat
	cfgLoader config.Loader
}

// NewHealthCmd creates a newly configured (Cobra) command.
func NewHealthCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &HealthCmd{
		BaseCmd:   baseCmd,
		Format:    cmd.FormatText,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "health [--ci] [--format]",
		Short: "Probes the health of all enabled MCP servers",
		Long: "Probes the health of all enabled MCP servers once, without starting the daemon. " +
			"Prints one line per server and a summary. With --ci, exits non-zero when any " +
			"server is unhealthy or skipped for missing environment variables.",
		RunE: c.run,
	}

	cobraCommand.Flags().BoolVar(
		&c.CI,
		"ci",
		false,
		"Exit non-zero when any server fails its health check",
	)

	allowed := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Output format, one of: %s", allowed.String()),
	)

	return cobraCommand, nil
}

// run is configured (via NewHealthCmd) to be called by the Cobra framework when the command is executed.
func (c *HealthCmd) run(cobraCmd *cobra.Command, _ []string) error {
	logger := c.Logger()

	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		return err
	}

	reg, checker, err := buildChecker(c, cfg)
	if err != nil {
		return err
	}

	enabled := reg.EnabledServers()
	skipped := reg.SkippedServers()

	maxConcurrent := cfg.Runtime.MaxConcurrentProbesOrDefault(orchestrator.DefaultMaxConcurrentProbes())
	results := checker.CheckAll(context.Background(), enabled, maxConcurrent)

	reports := make([]health.ProbeReport, 0, len(results)+len(skipped))
	healthy := 0
	for _, res := range results {
		if res.Result.OK {
			healthy++
		}
		reports = append(reports, res.Report())
	}

	// Skipped servers count as failures: a fleet that silently drops a
	// server for unresolved credentials is not healthy for CI purposes.
	for _, s := range skipped {
		entry, _ := reg.Server(s.Name)
		reports = append(reports, health.ProbeReport{
			Server: s.Name,
			Probe:  entry.ProbeKind(),
			OK:     false,
			Detail: fmt.Sprintf("missing required environment variables: %s", strings.Join(s.Missing, ", ")),
		})
	}

	total := len(reports)
	failed := total - healthy

	p := printer.NewHealthReportPrinter()
	p.SetFooter(func(w io.Writer, _ int) {
		_, _ = fmt.Fprintf(w, "\n%d/%d servers healthy\n", healthy, total)
	})

	handler, err := output.ForFormat(c.Format.String(), cobraCmd.OutOrStdout(), p)
	if err != nil {
		return err
	}

	if err := handler.HandleResults(reports...); err != nil {
		return err
	}

	logger.Debug("Health sweep complete", "total", total, "healthy", healthy, "failed", failed)

	// With no servers configured there is nothing to fail on.
	if c.CI && failed > 0 {
		return fmt.Errorf("%d of %d servers unhealthy", failed, total)
	}

	return nil
}

// buildChecker wires the probe dependencies for a one-shot sweep.
// Egress enforcement still applies, but blocked probes are not audited.
func buildChecker(c *HealthCmd, cfg *config.Config) (*registry.Registry, *health.Checker, error) {
	logger := c.Logger()

	egressController, err := egress.NewController(logger, audit.NopRecorder{}, cfg.Security.Allowlist())
	if err != nil {
		return nil, nil, err
	}

	sup, err := supervisor.NewExecSupervisor(logger)
	if err != nil {
		return nil, nil, err
	}

	checker, err := health.NewChecker(
		logger,
		sup,
		egressController,
		health.WithDefaultTimeout(cfg.Runtime.ProbeTimeoutOrDefault(health.DefaultProbeTimeout)),
	)
	if err != nil {
		return nil, nil, err
	}

	reg, err := registry.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	return reg, checker, nil
}
