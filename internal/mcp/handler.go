package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/AnandVishesh1301/temboXpoke/internal/jsonrpc"
	"github.com/AnandVishesh1301/temboXpoke/internal/middleware"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
)

const (
	serverName    = "Tembo Task Manager"
	serverVersion = "0.1.0"

	latestProtocolVersion = "2025-06-18"
)

// supportedProtocolVersions is ordered newest first.
var supportedProtocolVersions = []string{latestProtocolVersion, "2025-03-26", "2024-11-05"}

const instructions = "Create Tembo coding tasks and scheduled automations, and check whether " +
	"GitHub pull requests can be merged. Every tool returns an object with an ok field; " +
	"on failure it also carries error, kind and, when an upstream replied, status."

type Handler struct {
	registry *modules.Registry
	logger   *slog.Logger
}

func NewHandler(registry *modules.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// ProcessRequest routes a JSON-RPC request to the appropriate handler.
// Called by the transport middleware.
func (h *Handler) ProcessRequest(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "notifications/initialized", "initialized":
		return nil, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return &ToolsListResult{Tools: h.registry.Tools()}, nil
	case "tools/call":
		return h.handleToolCall(ctx, req)
	default:
		return nil, &jsonrpc.Error{Code: MethodNotFound, Message: "Method not found"}
	}
}

// decodeParams decodes the raw params of req into dst.
func decodeParams(req *jsonrpc.Request, dst any) *jsonrpc.Error {
	if len(req.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params, dst); err != nil {
		return &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params structure"}
	}
	return nil
}

// decodeArguments decodes tool arguments keeping numbers as json.Number, so
// free-form values reach the upstream unchanged.
func decodeArguments(raw json.RawMessage) (map[string]any, *jsonrpc.Error) {
	args := make(map[string]any)
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "arguments must be an object"}
	}
	return args, nil
}

func (h *Handler) handleInitialize(req *jsonrpc.Request) (*InitializeResult, *jsonrpc.Error) {
	var params InitializeParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}

	version := latestProtocolVersion
	if slices.Contains(supportedProtocolVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}
	h.logger.Info("client initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol", version,
	)

	return &InitializeResult{
		ProtocolVersion: version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
		Instructions: instructions,
	}, nil
}

func (h *Handler) handleToolCall(ctx context.Context, req *jsonrpc.Request) (*ToolCallResult, *jsonrpc.Error) {
	var params ToolCallParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if params.Name == "" {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "name is required"}
	}
	if _, ok := h.registry.Lookup(params.Name); !ok {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown tool: %s", params.Name)}
	}
	args, rpcErr := decodeArguments(params.Arguments)
	if rpcErr != nil {
		return nil, rpcErr
	}

	result := h.registry.Run(ctx, params.Name, args)

	text, err := modules.ToJSON(result)
	if err != nil {
		h.logger.Error("failed to encode tool result",
			"tool", params.Name,
			"request_id", middleware.GetRequestID(ctx),
			"err", err,
		)
		return nil, &jsonrpc.Error{Code: InternalError, Message: err.Error()}
	}

	return &ToolCallResult{
		Content:           []ContentBlock{{Type: "text", Text: text}},
		StructuredContent: result,
		IsError:           !result.OK(),
	}, nil
}
