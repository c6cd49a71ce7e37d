// Package orchestrator supervises the configured MCP servers: it spawns them,
// establishes client sessions, runs the scheduled health loop with restart
// backoff, and hosts the HTTP API.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdnotify "github.com/coreos/go-systemd/v22/daemon"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/mozilla-ai/mcpfleet/internal/api"
	"github.com/mozilla-ai/mcpfleet/internal/audit"
	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/domain"
)

// Orchestrator owns the full supervision lifecycle for the configured fleet.
// New should be used to create instances of Orchestrator.
type Orchestrator struct {
	logger        hclog.Logger
	deps          Dependencies
	opts          Options
	clientManager *ClientManager
	backoff       *backoffTracker
	readiness     *readinessReporter
	apiServer     *api.APIServer
}

// New creates an orchestrator and its API server from validated dependencies.
func New(deps Dependencies, opt ...Option) (*Orchestrator, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies for orchestrator: %w", err)
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid orchestrator options: %w", err)
	}

	clientManager := NewClientManager()
	readiness := newReadinessReporter(deps.Registry, deps.Tracker)

	apiDeps := api.APIDependencies{
		Logger:         deps.Logger,
		ClientManager:  clientManager,
		HealthMonitor:  deps.Tracker,
		Registry:       deps.Registry,
		Guard:          deps.Guards,
		Breakers:       deps.Guards.Breakers(),
		Egress:         deps.Egress,
		Readiness:      readiness,
		MetricsHandler: deps.Metrics.Handler(),
		Addr:           deps.APIAddr,
	}

	apiServer, err := api.NewAPIServer(apiDeps, opts.APIOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}

	return &Orchestrator{
		logger:        deps.Logger.Named("orchestrator"),
		deps:          deps,
		opts:          opts,
		clientManager: clientManager,
		backoff:       newBackoffTracker(opts.BackoffInitial, opts.BackoffMax),
		readiness:     readiness,
		apiServer:     apiServer,
	}, nil
}

// Readiness returns the current fleet-wide aggregate readiness.
func (o *Orchestrator) Readiness() domain.Readiness {
	return o.readiness.Readiness()
}

// ApplyAllowlist replaces the egress allowlist at runtime, e.g. after a
// config file change on disk.
func (o *Orchestrator) ApplyAllowlist(entries []string) {
	o.deps.Egress.UpdateAllowlist(entries)
}

// StartAndManage runs the orchestrator until the context is canceled:
// spawn all enabled servers, start the API server and the health loop,
// then shut everything down gracefully.
func (o *Orchestrator) StartAndManage(ctx context.Context) error {
	o.recordSkippedServers()

	enabled := o.deps.Registry.EnabledServers()
	o.logger.Info("Starting MCP servers", "count", len(enabled))

	spawnable := spawnableServers(enabled)
	if err := o.spawnAll(ctx, spawnable); err != nil {
		return err
	}

	if len(spawnable) > 0 && len(o.clientManager.List()) == 0 {
		// Nothing could be started at all. Keep running so the health loop
		// can retry under backoff, but report down until something recovers.
		o.readiness.startupFailed.Store(true)
		o.logger.Error("No MCP server could be started")
	}

	apiCtx, cancelAPI := context.WithCancel(ctx)
	defer cancelAPI()

	readyChan := make(chan struct{})
	apiErrCh := make(chan error, 1)
	go func() {
		apiErrCh <- o.apiServer.Start(apiCtx, readyChan)
	}()

	select {
	case <-readyChan:
	case err := <-apiErrCh:
		return fmt.Errorf("API server failed to start: %w", err)
	}

	if sent, err := sdnotify.SdNotify(false, sdnotify.SdNotifyReady); err != nil {
		o.logger.Warn("Could not notify service manager", "error", err)
	} else if sent {
		o.logger.Debug("Notified service manager: ready")
	}

	o.healthLoop(ctx)

	_, _ = sdnotify.SdNotify(false, sdnotify.SdNotifyStopping)
	o.shutdown()

	cancelAPI()
	if err := <-apiErrCh; err != nil && !strings.Contains(err.Error(), context.Canceled.Error()) {
		o.logger.Error("API server exited with error", "error", err)
	}

	return ctx.Err()
}

// recordSkippedServers audits and tracks enabled servers excluded for
// unresolved required environment variables.
func (o *Orchestrator) recordSkippedServers() {
	for _, skipped := range o.deps.Registry.SkippedServers() {
		reason := fmt.Sprintf("missing required environment variables: %s", strings.Join(skipped.Missing, ", "))

		o.logger.Warn("Skipping MCP server", "name", skipped.Name, "missing", skipped.Missing)
		o.deps.Audit.Record(audit.EventServerSkipped, skipped.Name, map[string]any{
			"missing": skipped.Missing,
		})

		if err := o.deps.Tracker.Update(skipped.Name, domain.HealthStatusMissingEnv, nil, reason); err != nil {
			o.logger.Error("Could not record skipped server health", "name", skipped.Name, "error", err)
		}
	}
}

// spawnAll launches every spawnable server concurrently. Individual spawn
// failures are recorded and retried later rather than aborting startup.
func (o *Orchestrator) spawnAll(ctx context.Context, servers []config.ServerEntry) error {
	g, gCtx := errgroup.WithContext(ctx)

	for _, entry := range servers {
		g.Go(func() error {
			if err := o.launchServer(gCtx, entry); err != nil {
				o.logger.Error("Server launch failed", "name", entry.Name, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// healthLoop probes all enabled servers on the configured interval until the
// context is canceled. The first cycle runs immediately.
func (o *Orchestrator) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(o.opts.HealthCheckInterval)
	defer ticker.Stop()

	o.healthCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Stopping MCP server health checks")
			return
		case <-ticker.C:
			o.healthCycle(ctx)
		}
	}
}

// healthCycle probes every enabled server, records results in issuance order,
// and restarts failed stdio servers subject to backoff.
func (o *Orchestrator) healthCycle(ctx context.Context) {
	servers := o.deps.Registry.EnabledServers()
	if len(servers) == 0 {
		return
	}

	tokens := make(map[string]uint64, len(servers))
	for _, entry := range servers {
		token, err := o.deps.Tracker.BeginCheck(entry.Name)
		if err != nil {
			continue
		}
		tokens[entry.Name] = token
	}

	results := o.deps.Checker.CheckAll(ctx, servers, o.opts.MaxConcurrentProbes)

	anyHealthy := false
	for i, res := range results {
		entry := servers[i]
		latency := res.Result.Elapsed

		o.deps.Metrics.RecordProbe(entry.Name, res.Result.OK, res.Result.Elapsed)

		if token, ok := tokens[entry.Name]; ok {
			if err := o.deps.Tracker.Record(entry.Name, token, res.Result.Status(), &latency, res.Result.Err); err != nil {
				o.logger.Error("Could not record health result", "name", entry.Name, "error", err)
			}
		}

		if res.Result.OK {
			anyHealthy = true
			continue
		}

		o.logger.Warn("Health probe failed", "name", entry.Name, "cause", res.Result.Err, "elapsed", res.Result.Elapsed)
		o.maybeRestart(ctx, entry)
	}

	if anyHealthy {
		o.readiness.startupFailed.Store(false)
	}
}

// maybeRestart relaunches a failed stdio server when its backoff window allows.
// URL-only servers are probed but never spawned.
func (o *Orchestrator) maybeRestart(ctx context.Context, entry config.ServerEntry) {
	if entry.Command == "" {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if !o.backoff.CanAttempt(entry.Name) {
		return
	}

	if _, running := o.clientManager.Client(entry.Name); running {
		o.deps.Audit.Record(audit.EventServerExited, entry.Name, map[string]any{
			"cause": "health probe failure",
		})
		o.closeClient(entry.Name)
	}

	o.logger.Info("Restarting MCP server", "name", entry.Name)
	if err := o.launchServer(ctx, entry); err != nil {
		o.logger.Error("Restart failed", "name", entry.Name, "error", err)
	}
}

// shutdown closes every MCP client session, each bounded by the grace period.
func (o *Orchestrator) shutdown() {
	names := o.clientManager.List()
	o.logger.Info("Shutting down MCP servers", "count", len(names))

	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			o.logger.Info("Closing client connection to MCP server", "name", name)
			o.closeClient(name)
			return nil
		})
	}
	_ = g.Wait()
}

// spawnableServers filters out URL-only entries, which are health checked but
// never spawned as child processes.
func spawnableServers(servers []config.ServerEntry) []config.ServerEntry {
	out := make([]config.ServerEntry, 0, len(servers))
	for _, entry := range servers {
		if entry.Command != "" {
			out = append(out, entry)
		}
	}

	return out
}
