package modules

import (
	"context"
	"time"
)

// =============================================================================
// Module Interface
// =============================================================================

// Module defines the interface that all upstream integrations implement.
// A module owns one upstream API and exposes one or more tools backed by it.
type Module interface {
	Name() string
	Description() string
	APIVersion() string

	Tools() []Tool
	// ExecuteTool runs a tool. Failures are returned as *ToolError; the
	// registry turns them into failure envelopes.
	ExecuteTool(ctx context.Context, name string, params map[string]any) (Result, error)
}

// =============================================================================
// Tool Definition
// =============================================================================

// ToolAnnotations carries the MCP tool behavior hints.
type ToolAnnotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool `json:"openWorldHint,omitempty"`
}

func boolPtr(v bool) *bool { return &v }

var (
	// AnnotateReadOnly: get, inspect tools
	AnnotateReadOnly = &ToolAnnotations{
		ReadOnlyHint:  boolPtr(true),
		OpenWorldHint: boolPtr(true),
	}
	// AnnotateCreate: create tools (non-idempotent write)
	AnnotateCreate = &ToolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(false),
		OpenWorldHint:   boolPtr(true),
	}
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema InputSchema      `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`

	// Timeout bounds a single execution, upstream call included.
	Timeout time.Duration `json:"-"`
}

// InputSchema defines the input parameters for a tool
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single property in the input schema
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// =============================================================================
// Result Types
// =============================================================================

// ToolCallResult represents the MCP result of a tool call.
type ToolCallResult struct {
	Content           []ContentBlock `json:"content"`
	StructuredContent any            `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
}

// ContentBlock represents a content block in the result
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
