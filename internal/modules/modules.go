package modules

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/go-faster/errors"

	"github.com/AnandVishesh1301/temboXpoke/internal/middleware"
	"github.com/AnandVishesh1301/temboXpoke/internal/observability"
)

// =============================================================================
// Registry
// =============================================================================

// defaultTimeout applies to tools that do not declare their own.
const defaultTimeout = 30 * time.Second

type entry struct {
	module Module
	tool   Tool
}

// Registry maps tool names to the modules that own them.
// It is populated at startup and read-only afterwards.
type Registry struct {
	modules map[string]Module
	tools   map[string]entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
		tools:   make(map[string]entry),
	}
}

// Register adds a module and all of its tools.
// A tool name already owned by another module is rejected.
func (r *Registry) Register(m Module) error {
	if _, ok := r.modules[m.Name()]; ok {
		return errors.Errorf("module %q already registered", m.Name())
	}
	for _, t := range m.Tools() {
		if prev, ok := r.tools[t.Name]; ok {
			return errors.Errorf("tool %q already registered by module %q", t.Name, prev.module.Name())
		}
	}
	r.modules[m.Name()] = m
	for _, t := range m.Tools() {
		r.tools[t.Name] = entry{module: m, tool: t}
		r.order = append(r.order, t.Name)
	}
	return nil
}

// ListModules returns registered module names in sorted order.
func (r *Registry) ListModules() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Modules returns registered modules sorted by name.
func (r *Registry) Modules() []Module {
	out := make([]Module, 0, len(r.modules))
	for _, name := range r.ListModules() {
		out = append(out, r.modules[name])
	}
	return out
}

// Lookup returns the tool definition for name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	e, ok := r.tools[name]
	return e.tool, ok
}

// Tools returns every tool in registration order.
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name].tool)
	}
	return tools
}

// ToolNames returns every tool name in registration order.
func (r *Registry) ToolNames() []string {
	return append([]string(nil), r.order...)
}

// =============================================================================
// Tool Execution
// =============================================================================

// Run executes a tool and always returns an envelope. Handler errors and
// panics become failure envelopes; nothing is returned to the transport as
// a Go error.
//
// The tool's timeout is derived from a context detached from the caller's
// cancellation, so the deadline is the only thing that aborts the call.
func (r *Registry) Run(ctx context.Context, toolName string, params map[string]any) (result Result) {
	start := time.Now()
	requestID := middleware.GetRequestID(ctx)
	var subject string
	if authCtx := middleware.GetAuthContext(ctx); authCtx != nil {
		subject = authCtx.Subject
	}

	e, ok := r.tools[toolName]
	if !ok {
		return Failure(Fail(KindInternal, "Unknown tool: %s", toolName))
	}
	moduleName := e.module.Name()

	timeout := e.tool.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	ctx, span := observability.StartToolSpan(ctx, moduleName, toolName, subject)

	defer func() {
		if p := recover(); p != nil {
			observability.LogSecurityEvent(requestID, "tool_panic_recovered", map[string]any{
				"module": moduleName,
				"tool":   toolName,
				"error":  fmt.Sprintf("%v", p),
				"stack":  string(debug.Stack()),
			})
			result = Failure(Fail(KindInternal, "internal error while running %s", toolName))
		}

		status, errMsg, kind := "success", "", ""
		if !result.OK() {
			status, errMsg = "error", result.ErrorMessage()
			kind, _ = result["kind"].(string)
		}
		d := time.Since(start)
		observability.LogToolCall(requestID, subject, moduleName, toolName, d.Milliseconds(), status, errMsg)
		observability.RecordToolCall(ctx, moduleName, toolName, status, d)
		observability.EndToolSpan(span, result.OK(), kind)
	}()

	if params == nil {
		params = map[string]any{}
	}

	res, err := e.module.ExecuteTool(ctx, toolName, params)
	if err != nil {
		return Failure(err)
	}
	if res == nil {
		return Failure(Fail(KindInternal, "%s returned no result", toolName))
	}
	if _, ok := res["ok"]; !ok {
		res["ok"] = true
	}
	return res
}
