package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpfleet/internal/audit"
	"github.com/mozilla-ai/mcpfleet/internal/config"
	internalerrors "github.com/mozilla-ai/mcpfleet/internal/errors"
	"github.com/mozilla-ai/mcpfleet/internal/metrics"
)

// launchServer starts a single stdio MCP server, establishes its client
// session and registers it with the client manager. Failures are recorded
// on the backoff tracker so the health loop retries later.
func (o *Orchestrator) launchServer(ctx context.Context, entry config.ServerEntry) error {
	name := entry.Name

	env, ok := o.deps.Registry.ResolvedEnv(name)
	if !ok {
		return fmt.Errorf("%w: %s: unknown server", internalerrors.ErrSpawnFailed, name)
	}

	o.logger.Info(
		"Starting MCP server",
		"name", name,
		"command", entry.Command,
		"args", entry.Args,
	)

	stdioClient, err := client.NewStdioMCPClient(entry.Command, envSlice(env), entry.Args...)
	if err != nil {
		o.recordSpawnFailure(name, err)
		return fmt.Errorf("%w: '%s': %w", internalerrors.ErrSpawnFailed, name, err)
	}

	// Pipe child stderr into the logger so operator-visible diagnostics
	// are not lost.
	if stderr, ok := client.GetStderr(stdioClient); ok {
		go o.scanStderr(ctx, name, stderr)
	}

	initCtx, cancel := context.WithTimeout(ctx, o.opts.ClientInitTimeout)
	defer cancel()

	initResult, err := stdioClient.Initialize(
		initCtx,
		mcp.InitializeRequest{
			Params: mcp.InitializeParams{
				ProtocolVersion: "latest",
				ClientInfo:      mcp.Implementation{Name: "mcpfleet", Version: "0.1.0"},
			},
		})
	if err != nil {
		_ = stdioClient.Close()
		o.recordSpawnFailure(name, err)
		return fmt.Errorf("%w: '%s': initialize: %w", internalerrors.ErrSpawnFailed, name, err)
	}

	tools, err := listToolNames(initCtx, stdioClient)
	if err != nil {
		o.logger.Warn("Could not list tools for server", "name", name, "error", err)
	}

	o.clientManager.Add(name, stdioClient, tools)
	o.backoff.RecordSuccess(name)
	o.deps.Metrics.RecordSpawnAttempt(name, metrics.SpawnResultOK)
	o.deps.Audit.Record(audit.EventServerSpawned, name, map[string]any{
		"serverInfo": fmt.Sprintf("%s@%s", initResult.ServerInfo.Name, initResult.ServerInfo.Version),
		"tools":      len(tools),
	})

	o.logger.Info("MCP server ready", "name", name, "tools", len(tools))

	return nil
}

// recordSpawnFailure captures the audit, metrics and backoff bookkeeping for
// a failed start attempt.
func (o *Orchestrator) recordSpawnFailure(name string, err error) {
	delay := o.backoff.RecordFailure(name)
	o.deps.Metrics.RecordSpawnAttempt(name, metrics.SpawnResultError)
	o.deps.Audit.Record(audit.EventSpawnFailed, name, map[string]any{
		"error":     err.Error(),
		"nextRetry": delay.String(),
	})

	o.logger.Error("Failed to start MCP server", "name", name, "error", err, "retry_in", delay)
}

// scanStderr forwards child stderr lines to the logger until the stream
// closes or the context is canceled.
func (o *Orchestrator) scanStderr(ctx context.Context, name string, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
			o.logger.Debug("stderr", "server", name, "line", scanner.Text())
		}
	}
}

// listToolNames collects the tool names a server advertises after initialization.
func listToolNames(ctx context.Context, mcpClient *client.Client) ([]string, error) {
	result, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("no result listing tools")
	}

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)

	return names, nil
}

// envSlice converts a resolved environment map to KEY=VALUE form.
func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)

	return out
}

// closeClient closes an MCP client session, bounded by the shutdown grace period.
func (o *Orchestrator) closeClient(name string) {
	c, ok := o.clientManager.Client(name)
	if !ok {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Close(); err != nil {
			o.logger.Error("Error closing client connection to MCP server", "name", name, "error", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(o.opts.ShutdownGrace):
		o.logger.Warn("Timed out closing client connection to MCP server", "name", name)
	}

	o.clientManager.Remove(name)
}
