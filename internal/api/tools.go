package api

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolCallResponse represents the wrapped API response for calling a tool.
type ToolCallResponse struct {
	Body string
}

// Tools represents a collection of Tool.
type Tools struct {
	Tools []Tool `json:"tools"`
}

// ToolsResponse represents the wrapped API response for a collection of tools.
type ToolsResponse struct {
	Body Tools
}

// ToolMinimal represents minimal tool information with name and title only.
type ToolMinimal struct {
	// Name of the tool.
	Name string `doc:"Name of the tool" json:"name"`

	// Title is a human-readable and easily understood title for the tool.
	Title string `doc:"Human-readable title" json:"title,omitempty"`
}

// ToolSummary represents summary tool information including name, title, and description.
type ToolSummary struct {
	ToolMinimal

	// Description is a human-readable description of the tool.
	// This can be used by clients to improve the LLM's understanding of available tools.
	// It can be thought of like a "hint" to the model.
	Description string `doc:"Description of what the tool does" json:"description"`
}

// Tool represents complete tool information including all schemas and annotations.
// This embeds ToolSummary (which embeds ToolMinimal) providing a full tool definition.
type Tool struct {
	ToolSummary

	// InputSchema is JSONSchema defining the expected parameters for the tool.
	InputSchema *JSONSchema `doc:"Input parameters schema" json:"inputSchema,omitempty"`

	// OutputSchema is an optional JSONSchema defining the structure of the tool's
	// output returned in the structured content field of a tool call result.
	OutputSchema *JSONSchema `doc:"Output structure schema" json:"outputSchema,omitempty"`

	// Annotations provide optional additional tool information.
	// Display name precedence order is: title, annotations.title when present, then tool name.
	Annotations *ToolAnnotations `doc:"Additional hints about the tool" json:"annotations,omitempty"`
}

// JSONSchema defines the structure for a JSON schema object.
type JSONSchema struct {
	// Type defines the type for this schema, e.g. "object".
	Type string `json:"type"`

	// Properties represents a property name and associated object definition.
	Properties map[string]any `json:"properties,omitempty"`

	// Required lists the (keys of) Properties that are required.
	Required []string `json:"required,omitempty"`
}

// ToolAnnotations provides additional properties describing a Tool to clients.
// NOTE: all properties in ToolAnnotations are **hints**.
// They are not guaranteed to provide a faithful description of tool behavior.
// Clients should never make tool use decisions based on ToolAnnotations received from untrusted servers.
type ToolAnnotations struct {
	// Title is a human-readable title for the tool.
	Title *string `json:"title,omitempty"`

	// ReadOnlyHint if true, the tool should not modify its environment.
	ReadOnlyHint *bool `json:"readOnlyHint,omitempty"`

	// DestructiveHint if true, the tool may perform destructive updates to its environment.
	DestructiveHint *bool `json:"destructiveHint,omitempty"`

	// IdempotentHint if true, calling the tool repeatedly with the same arguments
	// will have no additional effect on its environment.
	IdempotentHint *bool `json:"idempotentHint,omitempty"`

	// OpenWorldHint if true, this tool may interact with an "open world" of external entities.
	OpenWorldHint *bool `json:"openWorldHint,omitempty"`
}

// DomainTool wraps mcp.Tool for conversion to Tool via ToAPIType.
type DomainTool mcp.Tool

// ToAPIType converts a wrapped domain type to Tool.
func (d DomainTool) ToAPIType() (Tool, error) {
	inputSchema := &JSONSchema{
		Type:       d.InputSchema.Type,
		Properties: d.InputSchema.Properties,
		Required:   d.InputSchema.Required,
	}

	var outputSchema *JSONSchema
	if d.OutputSchema.Type != "" {
		outputSchema = &JSONSchema{
			Type:       d.OutputSchema.Type,
			Properties: d.OutputSchema.Properties,
			Required:   d.OutputSchema.Required,
		}
	}

	annotations := &ToolAnnotations{
		Title:           &d.Annotations.Title,
		ReadOnlyHint:    d.Annotations.ReadOnlyHint,
		DestructiveHint: d.Annotations.DestructiveHint,
		IdempotentHint:  d.Annotations.IdempotentHint,
		OpenWorldHint:   d.Annotations.OpenWorldHint,
	}

	// Nil the annotations if they're essentially zero value so they can be omitted in the result.
	if annotations.IsZero() {
		annotations = nil
	}

	return Tool{
		ToolSummary: ToolSummary{
			ToolMinimal: ToolMinimal{
				Name:  d.Name,
				Title: d.Annotations.Title,
			},
			Description: d.Description,
		},
		InputSchema:  inputSchema,
		OutputSchema: outputSchema,
		Annotations:  annotations,
	}, nil
}

// IsZero reports whether the ToolAnnotations struct has no meaningful values set.
// This is useful to avoid emitting empty "annotations" objects in JSON output.
func (a *ToolAnnotations) IsZero() bool {
	if a == nil {
		return true
	}

	if a.Title != nil && *a.Title != "" {
		return false
	}

	if a.ReadOnlyHint != nil || a.DestructiveHint != nil || a.IdempotentHint != nil || a.OpenWorldHint != nil {
		return false
	}

	return true
}
