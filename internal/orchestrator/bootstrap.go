package orchestrator

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpfleet/internal/audit"
	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/egress"
	"github.com/mozilla-ai/mcpfleet/internal/guards"
	"github.com/mozilla-ai/mcpfleet/internal/health"
	"github.com/mozilla-ai/mcpfleet/internal/metrics"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
	"github.com/mozilla-ai/mcpfleet/internal/supervisor"
)

// Build wires a complete orchestrator from resolved configuration: registry,
// health tracker, probes, guards, egress controller, metrics and audit log.
func Build(
	logger hclog.Logger,
	cfg *config.Config,
	recorder audit.Recorder,
	apiAddr string,
	opt ...Option,
) (*Orchestrator, error) {
	reg, err := registry.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build server registry: %w", err)
	}

	m := metrics.New()

	egressController, err := egress.NewController(
		logger,
		recorder,
		cfg.Security.Allowlist(),
		egress.WithBlockedCallback(m.RecordEgressBlocked),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create egress controller: %w", err)
	}

	sup, err := supervisor.NewExecSupervisor(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create process supervisor: %w", err)
	}

	checker, err := health.NewChecker(
		logger,
		sup,
		egressController,
		health.WithDefaultTimeout(cfg.Runtime.ProbeTimeoutOrDefault(health.DefaultProbeTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health checker: %w", err)
	}

	settings := guards.NewBreakerSettings()
	settings.RequestTimeout = cfg.Runtime.CallTimeoutOrDefault(settings.RequestTimeout)

	var breakers *guards.BreakerRegistry
	breakers = guards.NewBreakerRegistry(settings, func(server string, from, to domain.BreakerState) {
		logger.Named("guards").Info("Circuit breaker transition", "server", server, "from", from, "to", to)
		recorder.Record(audit.EventBreakerTransition, server, map[string]any{
			"from": string(from),
			"to":   string(to),
		})

		if status, ok := breakers.Status(server); ok {
			m.RecordBreaker(server, to, status.Failures)
		}
	})

	scopes := guards.NewScopeGuard(
		reg.ScopesByServer(),
		cfg.Security.AllowUnscopedOrDefault(true),
	)

	guardSet, err := guards.NewGuardSet(
		logger,
		scopes,
		guards.NewRateLimiters(reg.RateLimits()),
		breakers,
		guards.WithRateLimitedCallback(m.RecordRateLimited),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guard set: %w", err)
	}

	names := make([]string, 0, len(cfg.Servers))
	for _, entry := range reg.AllServers() {
		names = append(names, entry.Name)
	}

	deps, err := NewDependencies(Dependencies{
		APIAddr:    apiAddr,
		Logger:     logger,
		Registry:   reg,
		Tracker:    registry.NewHealthTracker(names),
		Checker:    checker,
		Guards:     guardSet,
		Egress:     egressController,
		Supervisor: sup,
		Metrics:    m,
		Audit:      recorder,
	})
	if err != nil {
		return nil, err
	}

	opt = append([]Option{
		WithHealthCheckInterval(cfg.Runtime.HealthIntervalOrDefault(DefaultHealthCheckInterval())),
		WithShutdownGrace(cfg.Runtime.ShutdownGraceOrDefault(DefaultShutdownGrace())),
		WithMaxConcurrentProbes(cfg.Runtime.MaxConcurrentProbesOrDefault(DefaultMaxConcurrentProbes())),
	}, opt...)

	return New(deps, opt...)
}
