// Package registry exposes a fixed set of schema-described tools to an
// external agent loop, guarded by pre-invocation hooks and observed by
// post-invocation hooks. Tool failures never cross the registry boundary
// as Go errors; every outcome is a Result.
package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Result kinds, per the error taxonomy: validation rejections fail closed
// before any side effect; upstream failures and timeouts are recovered
// locally and surfaced as data.
const (
	KindValidation = "validation"
	KindUpstream   = "upstream"
	KindTimeout    = "timeout"
)

// Result is the normalized outcome of a tool invocation.
type Result struct {
	Success bool
	Kind    string // empty on success
	Err     string
	Payload map[string]any
}

// Ok returns a successful Result carrying payload.
func Ok(payload map[string]any) Result {
	if payload == nil {
		payload = map[string]any{}
	}
	return Result{Success: true, Payload: payload}
}

// Fail returns a failed Result of the given kind. The echo map carries
// identifying fields (query, url, path, slug) back to the caller.
func Fail(kind, msg string, echo map[string]any) Result {
	if echo == nil {
		echo = map[string]any{}
	}
	return Result{Success: false, Kind: kind, Err: msg, Payload: echo}
}

// Failf is Fail with formatting.
func Failf(kind string, echo map[string]any, format string, args ...any) Result {
	return Fail(kind, fmt.Sprintf(format, args...), echo)
}

// Handler executes a tool. Handlers must honor ctx and return a Result for
// every failure mode instead of an error.
type Handler func(ctx context.Context, args Args) Result

// Tool pairs an MCP schema declaration with its handler.
type Tool struct {
	Spec    mcp.Tool
	Handler Handler
}

// ToolCall is the pre-invocation view handed to hooks.
type ToolCall struct {
	Name  string
	Input Args
	Start time.Time
}

// Registry holds tools and hooks. It is populated once at startup and then
// only read; the agent loop invokes at most one tool at a time, so no
// locking is needed.
type Registry struct {
	tools map[string]Tool
	order []string
	pre   []PreToolUse
	post  []PostToolUse
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice is a programming
// error and returns one.
func (r *Registry) Register(t Tool) error {
	if t.Spec.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Spec.Name)
	}
	if _, ok := r.tools[t.Spec.Name]; ok {
		return fmt.Errorf("tool %q already registered", t.Spec.Name)
	}
	r.tools[t.Spec.Name] = t
	r.order = append(r.order, t.Spec.Name)
	return nil
}

// Use appends hooks. A hook may implement either or both interfaces.
func (r *Registry) Use(hooks ...any) {
	for _, h := range hooks {
		if pre, ok := h.(PreToolUse); ok {
			r.pre = append(r.pre, pre)
		}
		if post, ok := h.(PostToolUse); ok {
			r.post = append(r.post, post)
		}
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the named tool through the hook chain. A pre-hook veto
// aborts before the handler runs and surfaces as a validation failure.
// Handler panics are recovered into upstream failures so a misbehaving
// tool cannot take down the loop.
func (r *Registry) Dispatch(ctx context.Context, name string, input map[string]any) Result {
	tool, ok := r.tools[name]
	if !ok {
		return Failf(KindValidation, nil, "unknown tool: %s", name)
	}

	call := ToolCall{Name: name, Input: Args(input), Start: time.Now()}
	for _, h := range r.pre {
		if err := h.PreToolUse(call); err != nil {
			res := Fail(KindValidation, err.Error(), nil)
			r.observe(call, res)
			return res
		}
	}

	res := r.invoke(ctx, tool, call.Input)
	r.observe(call, res)
	return res
}

func (r *Registry) invoke(ctx context.Context, tool Tool, args Args) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Failf(KindUpstream, nil, "tool %s panicked: %v", tool.Spec.Name, p)
		}
	}()
	return tool.Handler(ctx, args)
}

func (r *Registry) observe(call ToolCall, res Result) {
	elapsed := time.Since(call.Start)
	for _, h := range r.post {
		h.PostToolUse(call, res, elapsed)
	}
}
