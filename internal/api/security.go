package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/mcpfleet/internal/contracts"
	"github.com/mozilla-ai/mcpfleet/internal/errors"
)

// EgressAllowlistResponse represents the wrapped API response for the egress allowlist.
type EgressAllowlistResponse struct {
	Body struct {
		Allowlist []string `doc:"Hostnames and wildcard patterns that outbound connections may target" json:"allowlist"`
	}
}

// EgressAllowlistUpdateRequest represents the incoming API request to replace the egress allowlist.
type EgressAllowlistUpdateRequest struct {
	Body struct {
		Allowlist []string `doc:"Replacement allowlist, applied atomically" json:"allowlist"`
	}
}

// RegisterSecurityRoutes sets up security-related API endpoint routes.
func RegisterSecurityRoutes(routerAPI huma.API, egress contracts.EgressManager, apiPathPrefix string) {
	securityAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Security"}

	huma.Register(
		securityAPI,
		huma.Operation{
			OperationID: "getEgressAllowlist",
			Method:      http.MethodGet,
			Path:        "/egress",
			Summary:     "Get the egress allowlist",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*EgressAllowlistResponse, error) {
			resp := &EgressAllowlistResponse{}
			resp.Body.Allowlist = egress.Allowlist()

			return resp, nil
		},
	)

	huma.Register(
		securityAPI,
		huma.Operation{
			OperationID: "updateEgressAllowlist",
			Method:      http.MethodPut,
			Path:        "/egress",
			Summary:     "Replace the egress allowlist",
			Description: "The new allowlist takes effect atomically for all subsequent outbound connections.",
			Tags:        tags,
		},
		func(ctx context.Context, input *EgressAllowlistUpdateRequest) (*EgressAllowlistResponse, error) {
			return handleEgressUpdate(egress, input.Body.Allowlist)
		},
	)
}

// handleEgressUpdate validates and applies a replacement allowlist.
func handleEgressUpdate(egress contracts.EgressManager, entries []string) (*EgressAllowlistResponse, error) {
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			return nil, fmt.Errorf("%w: allowlist entries cannot be empty", errors.ErrBadRequest)
		}
	}

	egress.UpdateAllowlist(entries)

	resp := &EgressAllowlistResponse{}
	resp.Body.Allowlist = egress.Allowlist()

	return resp, nil
}
