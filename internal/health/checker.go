// Package health runs probes against supervised servers: HTTP GET for
// URL-reachable servers, subprocess exit-code checks for stdio servers.
package health

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/egress"
	"github.com/mozilla-ai/mcpfleet/internal/supervisor"
)

// DefaultProbeTimeout bounds a single probe when neither the server nor the
// runtime section configures one.
const DefaultProbeTimeout = 5 * time.Second

// Checker dispatches health probes per server configuration.
type Checker struct {
	logger         hclog.Logger
	httpClient     *http.Client
	supervisor     supervisor.ProcessSupervisor
	egress         *egress.Controller
	defaultTimeout time.Duration
}

// CheckerOption configures optional Checker behavior.
type CheckerOption func(*Checker)

// WithHTTPClient replaces the HTTP client used for http probes.
func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) {
		c.httpClient = client
	}
}

// WithDefaultTimeout sets the fallback per-probe timeout.
func WithDefaultTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) {
		c.defaultTimeout = d
	}
}

// NewChecker creates a health checker. The egress controller vets every http
// probe URL before any request is made.
func NewChecker(
	logger hclog.Logger,
	sup supervisor.ProcessSupervisor,
	egressController *egress.Controller,
	opt ...CheckerOption,
) (*Checker, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if sup == nil || reflect.ValueOf(sup).IsNil() {
		return nil, fmt.Errorf("process supervisor cannot be nil")
	}
	if egressController == nil {
		return nil, fmt.Errorf("egress controller cannot be nil")
	}

	c := &Checker{
		logger:         logger.Named("health"),
		httpClient:     &http.Client{},
		supervisor:     sup,
		egress:         egressController,
		defaultTimeout: DefaultProbeTimeout,
	}

	for _, o := range opt {
		if o != nil {
			o(c)
		}
	}

	return c, nil
}

// CheckServer probes a single server according to its configured probe type
// and timeout.
func (c *Checker) CheckServer(ctx context.Context, entry config.ServerEntry) domain.ProbeResult {
	timeout := c.defaultTimeout
	if entry.Probe != nil && entry.Probe.Timeout != nil {
		timeout = time.Duration(*entry.Probe.Timeout)
	}

	switch entry.ProbeKind() {
	case config.ProbeTypeHTTP:
		url := entry.ProbeURL()
		if !c.egress.ValidateURL(url, "health_probe:"+entry.Name) {
			return domain.ProbeResult{Err: "egress blocked"}
		}
		return c.HTTPProbe(ctx, url, timeout)
	case config.ProbeTypeStdio:
		env := envSlice(config.ResolveEnv(entry.Env))
		return c.StdioProbe(ctx, entry.Command, entry.Args, env, timeout)
	default:
		return domain.ProbeResult{Err: fmt.Sprintf("unknown probe type '%s'", entry.ProbeKind())}
	}
}

// CheckResult pairs a server entry with its probe outcome.
type CheckResult struct {
	Server config.ServerEntry
	Result domain.ProbeResult
}

// CheckAll probes every given server concurrently, bounded by maxConcurrent.
// Results are returned in the same order as the input.
func (c *Checker) CheckAll(ctx context.Context, servers []config.ServerEntry, maxConcurrent int) []CheckResult {
	if maxConcurrent <= 0 {
		maxConcurrent = len(servers)
	}

	results := make([]CheckResult, len(servers))

	var g errgroup.Group
	g.SetLimit(maxConcurrent)

	for i, entry := range servers {
		g.Go(func() error {
			result := c.CheckServer(ctx, entry)
			c.logger.Debug(
				"Probe complete",
				"server", entry.Name,
				"ok", result.OK,
				"elapsed", result.Elapsed,
				"error", result.Err,
			)
			results[i] = CheckResult{Server: entry, Result: result}
			return nil
		})
	}

	_ = g.Wait()

	return results
}

// envSlice converts a resolved env map to "KEY=VALUE" pairs.
func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
