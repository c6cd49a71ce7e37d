package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/domain"
	"github.com/mozilla-ai/mcpfleet/internal/errors"
)

const (
	ServerStateEnabled  ServerState = "enabled"
	ServerStateSkipped  ServerState = "skipped"
	ServerStateDisabled ServerState = "disabled"
)

// ServerState describes why a configured server is or is not running.
type ServerState string

// Server summarizes a configured MCP server and its resolution state.
type Server struct {
	Name       string      `json:"name"`
	State      ServerState `json:"state"`
	Probe      string      `doc:"Probe type used for health checks (http or stdio)" json:"probe"`
	Scopes     []string    `json:"scopes,omitempty"`
	RateLimit  *int        `doc:"Requests per second ceiling, when configured"      json:"rateLimit,omitempty"`
	MissingEnv []string    `doc:"Required environment variables that did not resolve" json:"missingEnv,omitempty"`
}

// ServersResponse represents the wrapped API response for a list of servers.
type ServersResponse struct {
	Body struct {
		Servers []Server `doc:"All configured servers and their resolution state" json:"servers"`
	}
}

// ServerToolsRequest represents the incoming API request for giving the configured tools schemas for a server.
type ServerToolsRequest struct {
	Name string `doc:"Name of the server to lookup tools for" example:"time" path:"name"`
}

// ServerToolCallRequest represents the incoming API request to call a tool on a particular server.
type ServerToolCallRequest struct {
	Server string         `doc:"Name of the server"       example:"time"             path:"server"`
	Tool   string         `doc:"Name of the tool to call" example:"get_current_time" path:"tool"`
	Scope  string         `doc:"Capability scope declared by the caller" example:"read" header:"X-Scope"`
	Body   map[string]any `doc:"Body of the tool to call"                            path:"body"`
}

// ServerBreakerRequest represents the incoming API request for a server's circuit breaker snapshot.
type ServerBreakerRequest struct {
	Name string `doc:"Name of the server" example:"time" path:"name"`
}

// ServerBreakerResponse represents the wrapped API response for a circuit breaker snapshot.
type ServerBreakerResponse struct {
	Body domain.BreakerStatus
}

// RegisterServerRoutes sets up server-related API endpoint routes.
func RegisterServerRoutes(routerAPI huma.API, deps APIDependencies, apiPathPrefix string) {
	serversAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Servers"}

	// Add route at the root of the group (no path specified).
	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "listServers",
			Method:      http.MethodGet,
			Summary:     "List all configured servers",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*ServersResponse, error) {
			return handleServers(deps)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "getServerHealthStatus",
			Method:      http.MethodGet,
			Path:        "/{name}/health",
			Summary:     "Get the health status of a server",
			Tags:        append(tags, "Health"),
		},
		func(ctx context.Context, input *ServerHealthRequest) (*ServerHealthResponse, error) {
			return handleHealthServer(deps.HealthMonitor, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "getServerBreaker",
			Method:      http.MethodGet,
			Path:        "/{name}/breaker",
			Summary:     "Get the circuit breaker state for a server",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerBreakerRequest) (*ServerBreakerResponse, error) {
			return handleServerBreaker(deps, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "listTools",
			Method:      http.MethodGet,
			Path:        "/{name}/tools",
			Summary:     "List server tools",
			Tags:        append(tags, "Tools"),
		},
		func(ctx context.Context, input *ServerToolsRequest) (*ToolsResponse, error) {
			return handleServerTools(ctx, deps, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "callTool",
			Method:      http.MethodPost,
			Path:        "/{server}/tools/{tool}",
			Summary:     "Call a tool for a server",
			Description: "The call runs through the full guard chain: scope check, rate limit, circuit breaker and timeout.",
			Tags:        append(tags, "Tools"),
		},
		func(ctx context.Context, input *ServerToolCallRequest) (*ToolCallResponse, error) {
			return handleServerToolCall(ctx, deps, input.Server, input.Tool, input.Scope, input.Body)
		},
	)
}

// handleServers returns all configured MCP servers with their resolution state.
func handleServers(deps APIDependencies) (*ServersResponse, error) {
	entries := deps.Registry.AllServers()
	features := deps.Registry.Config().Features

	servers := make([]Server, 0, len(entries))
	for _, entry := range entries {
		servers = append(servers, serverFromEntry(entry, features))
	}

	slices.SortFunc(servers, func(a, b Server) int {
		return strings.Compare(a.Name, b.Name)
	})

	resp := &ServersResponse{}
	resp.Body.Servers = servers

	return resp, nil
}

// serverFromEntry converts a config entry to its API representation.
func serverFromEntry(entry config.ServerEntry, features map[string]bool) Server {
	s := Server{
		Name:   entry.Name,
		State:  ServerStateEnabled,
		Probe:  entry.ProbeKind(),
		Scopes: slices.Clone(entry.Scopes),
	}

	if rps, ok := entry.RPSLimit(); ok {
		s.RateLimit = &rps
	}

	switch {
	case !entry.IsEnabled(features):
		s.State = ServerStateDisabled
	case !config.HasRequiredEnvs(entry.Env):
		s.State = ServerStateSkipped
		s.MissingEnv = config.MissingEnvVars(entry.Env)
	}

	return s
}

// handleServerBreaker returns the circuit breaker snapshot for a server.
// A configured server that has not yet seen a guarded call reports a closed breaker.
func handleServerBreaker(deps APIDependencies, name string) (*ServerBreakerResponse, error) {
	if _, ok := deps.Registry.Server(name); !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrServerNotFound, name)
	}

	status, ok := deps.Breakers.Status(name)
	if !ok {
		status = domain.BreakerStatus{
			Server: name,
			State:  domain.BreakerClosed,
		}
	}

	resp := &ServerBreakerResponse{}
	resp.Body = status

	return resp, nil
}

// handleServerTools returns the schemas for the allowed tools that exist for a given server.
func handleServerTools(ctx context.Context, deps APIDependencies, name string) (*ToolsResponse, error) {
	accessor := deps.ClientManager

	mcpClient, clientOk := accessor.Client(name)
	if !clientOk {
		return nil, fmt.Errorf("%w: %s", errors.ErrServerNotFound, name)
	}

	allowedTools, toolsOk := accessor.Tools(name)
	if !toolsOk || len(allowedTools) == 0 {
		return nil, fmt.Errorf("%w: %s", errors.ErrToolsNotFound, name)
	}

	result, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrToolListFailed, name)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %s: no result", errors.ErrToolListFailed, name)
	}

	// Only return data on allowed tools.
	tools := make([]Tool, 0, len(result.Tools))
	for _, tool := range result.Tools {
		if slices.Contains(allowedTools, tool.Name) {
			data, err := DomainTool(tool).ToAPIType()
			if err != nil {
				return nil, err
			}
			tools = append(tools, data)
		}
	}

	resp := &ToolsResponse{}
	resp.Body = Tools{Tools: tools}

	return resp, nil
}

// handleServerToolCall handles making a call to a specific tool which exists on an MCP server.
// The call itself runs inside the guard chain so that scope, rate limit,
// breaker and timeout policies all apply before the server is touched.
func handleServerToolCall(
	ctx context.Context,
	deps APIDependencies,
	server string,
	tool string,
	scope string,
	data map[string]any,
) (*ToolCallResponse, error) {
	accessor := deps.ClientManager

	mcpClient, clientOk := accessor.Client(server)
	if !clientOk {
		return nil, fmt.Errorf("%w: %s", errors.ErrServerNotFound, server)
	}

	allowedTools, toolsOk := accessor.Tools(server)
	if !toolsOk || len(allowedTools) == 0 {
		return nil, fmt.Errorf("%w: %s", errors.ErrToolsNotFound, server)
	}

	if !slices.Contains(allowedTools, tool) {
		return nil, fmt.Errorf("%w: %s/%s", errors.ErrToolForbidden, server, tool)
	}

	var message string
	err := deps.Guard.Call(ctx, server, scope, func(ctx context.Context) error {
		result, err := mcpClient.CallTool(ctx, mcp.CallToolRequest{
			Params: mcp.CallToolParams{
				Name:      tool,
				Arguments: data,
			},
		})
		if err != nil {
			return fmt.Errorf("%w: %s/%s: %w", errors.ErrToolCallFailed, server, tool, err)
		}
		if result == nil {
			return fmt.Errorf("%w: %s/%s: result was nil", errors.ErrToolCallFailed, server, tool)
		}
		if result.IsError {
			return fmt.Errorf("%w: %s/%s: %v", errors.ErrToolCallFailed, server, tool, extractMessage(result.Content))
		}

		message = extractMessage(result.Content)

		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &ToolCallResponse{}
	resp.Body = message

	return resp, nil
}

// extractMessage attempts to extract a single message from content that is returned from a tool call.
func extractMessage(content []mcp.Content) string {
	message := ""
	if len(content) == 0 {
		return message
	}

	// The mcp-go library returns a slice of content items. For most tools, this will be a single text item.
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			// We will return the text from the first text content item we find.
			return tc.Text
		}
	}

	return message
}
