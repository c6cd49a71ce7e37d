package api

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/errors"
)

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

// serversTestConfig declares a small fleet covering the enabled, skipped
// and disabled resolution states.
func serversTestConfig() *config.Config {
	return &config.Config{
		Features: map[string]bool{
			"fetch": true,
		},
		Servers: []config.ServerEntry{
			{
				Name:    "time",
				Command: "uvx",
				Args:    []string{"mcp-server-time"},
				Enabled: boolPtr(true),
				Scopes:  []string{"read"},
				Limits:  &config.LimitsConfigSection{RPS: intPtr(5)},
			},
			{
				Name:    "git",
				Command: "uvx",
				Args:    []string{"mcp-server-git"},
				Enabled: boolPtr(true),
				Env: map[string]string{
					"GIT_TOKEN": "${MCPFLEET_API_TEST_UNSET_TOKEN}",
				},
			},
			{
				Name: "fetch",
				URL:  "http://localhost:9010",
			},
			{
				Name:    "archived",
				Command: "uvx",
				Args:    []string{"mcp-server-archived"},
				Enabled: boolPtr(false),
			},
		},
	}
}

func TestHandleServers(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)
	deps.Registry = testRegistry(t, serversTestConfig())

	resp, err := handleServers(deps)
	require.NoError(t, err)
	require.Len(t, resp.Body.Servers, 4)

	byName := make(map[string]Server, len(resp.Body.Servers))
	names := make([]string, 0, len(resp.Body.Servers))
	for _, s := range resp.Body.Servers {
		byName[s.Name] = s
		names = append(names, s.Name)
	}

	// Sorted by name.
	require.Equal(t, []string{"archived", "fetch", "git", "time"}, names)

	require.Equal(t, ServerStateEnabled, byName["time"].State)
	require.Equal(t, "stdio", byName["time"].Probe)
	require.Equal(t, []string{"read"}, byName["time"].Scopes)
	require.NotNil(t, byName["time"].RateLimit)
	require.Equal(t, 5, *byName["time"].RateLimit)

	require.Equal(t, ServerStateSkipped, byName["git"].State)
	require.Equal(t, []string{"MCPFLEET_API_TEST_UNSET_TOKEN"}, byName["git"].MissingEnv)

	// Activated by feature flag, probed over HTTP.
	require.Equal(t, ServerStateEnabled, byName["fetch"].State)
	require.Equal(t, "http", byName["fetch"].Probe)

	require.Equal(t, ServerStateDisabled, byName["archived"].State)
	require.Empty(t, byName["archived"].MissingEnv)
}

func TestServerFromEntry_DisabledBeatsSkipped(t *testing.T) {
	t.Parallel()

	// A disabled server with unresolved env reports disabled, not skipped.
	entry := config.ServerEntry{
		Name:    "dormant",
		Command: "uvx",
		Env: map[string]string{
			"TOKEN": "${MCPFLEET_API_TEST_UNSET_TOKEN}",
		},
	}

	s := serverFromEntry(entry, nil)
	require.Equal(t, ServerStateDisabled, s.State)
	require.Empty(t, s.MissingEnv)
}

func TestHandleServerBreaker(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)
	deps.Registry = testRegistry(t, serversTestConfig())
	deps.Breakers = &mockBreakerInspector{
		statuses: map[string]domain.BreakerStatus{
			"time": {
				Server:   "time",
				State:    domain.BreakerOpen,
				Failures: 4,
			},
		},
	}

	resp, err := handleServerBreaker(deps, "time")
	require.NoError(t, err)
	require.Equal(t, domain.BreakerOpen, resp.Body.State)
	require.Equal(t, 4, resp.Body.Failures)
}

func TestHandleServerBreaker_UntouchedServerReportsClosed(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)
	deps.Registry = testRegistry(t, serversTestConfig())
	deps.Breakers = &mockBreakerInspector{}

	resp, err := handleServerBreaker(deps, "git")
	require.NoError(t, err)
	require.Equal(t, "git", resp.Body.Server)
	require.Equal(t, domain.BreakerClosed, resp.Body.State)
	require.Zero(t, resp.Body.Failures)
}

func TestHandleServerBreaker_UnknownServer(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)
	deps.Registry = testRegistry(t, serversTestConfig())

	_, err := handleServerBreaker(deps, "ghost")
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrServerNotFound)
}

func TestHandleServerTools_UnknownServer(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)

	_, err := handleServerTools(context.Background(), deps, "ghost")
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrServerNotFound)
}

func TestHandleServerToolCall_UnknownServer(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)

	_, err := handleServerToolCall(context.Background(), deps, "ghost", "get_current_time", "read", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrServerNotFound)
}

func TestHandleServerToolCall_NoToolsRegistered(t *testing.T) {
	t.Parallel()

	accessor := newMockClientAccessor()
	accessor.Add("time", nil, nil)

	deps := testAPIDependencies(t)
	deps.ClientManager = accessor

	_, err := handleServerToolCall(context.Background(), deps, "time", "get_current_time", "read", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrToolsNotFound)
}

func TestHandleServerToolCall_ToolNotAllowed(t *testing.T) {
	t.Parallel()

	accessor := newMockClientAccessor()
	accessor.Add("time", nil, []string{"get_current_time"})

	deps := testAPIDependencies(t)
	deps.ClientManager = accessor

	_, err := handleServerToolCall(context.Background(), deps, "time", "delete_everything", "read", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrToolForbidden)
}

func TestHandleServerToolCall_GuardRejection(t *testing.T) {
	t.Parallel()

	accessor := newMockClientAccessor()
	accessor.Add("time", nil, []string{"get_current_time"})

	deps := testAPIDependencies(t)
	deps.ClientManager = accessor
	deps.Guard = guardFunc(func(server, scope string) error {
		require.Equal(t, "time", server)
		require.Equal(t, "write", scope)
		return errors.ErrScopeForbidden
	})

	_, err := handleServerToolCall(context.Background(), deps, "time", "get_current_time", "write", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrScopeForbidden)
}

func TestExtractMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  []mcp.Content
		expected string
	}{
		{
			name: "nil content",
		},
		{
			name:     "single text item",
			content:  []mcp.Content{mcp.TextContent{Type: "text", Text: "12:00"}},
			expected: "12:00",
		},
		{
			name: "first text item wins",
			content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: "first"},
				mcp.TextContent{Type: "text", Text: "second"},
			},
			expected: "first",
		},
		{
			name:    "no text items",
			content: []mcp.Content{mcp.ImageContent{Type: "image"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, extractMessage(tc.content))
		})
	}
}
