package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// PreToolUse is consulted before a tool handler runs. A non-nil error
// vetoes the call; the handler is never invoked.
type PreToolUse interface {
	PreToolUse(call ToolCall) error
}

// PostToolUse observes a completed call. Implementations must not mutate
// the call input or the result.
type PostToolUse interface {
	PostToolUse(call ToolCall, res Result, elapsed time.Duration)
}

// BlockedError is the distinct error kind returned by SafetyHook vetoes,
// so callers can tell a safety rejection from a generic failure.
type BlockedError struct {
	Tool   string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked %s: %s", e.Tool, e.Reason)
}

// Default denylist for execute_command, matched as substrings. Covers
// destructive filesystem ops, raw device writes, and privilege escalation.
var defaultDenylist = []string{"rm -rf", "mkfs", "> /dev/", "sudo"}

// pathArgTools maps tool names to the argument that must be traversal-free.
var pathArgTools = map[string]string{
	"read_file":  "path",
	"write_file": "path",
}

// SafetyHook validates tool inputs before any side effect occurs.
type SafetyHook struct {
	denylist []string
}

// NewSafetyHook builds a SafetyHook with the default denylist plus extra
// entries from configuration.
func NewSafetyHook(extra ...string) *SafetyHook {
	deny := make([]string, 0, len(defaultDenylist)+len(extra))
	deny = append(deny, defaultDenylist...)
	for _, e := range extra {
		e = strings.TrimSpace(e)
		if e != "" {
			deny = append(deny, e)
		}
	}
	return &SafetyHook{denylist: deny}
}

// PreToolUse rejects denylisted commands and parent-directory traversal in
// file paths. Fail-closed: the veto fires before the handler can spawn a
// process or touch the filesystem.
func (h *SafetyHook) PreToolUse(call ToolCall) error {
	if call.Name == "execute_command" {
		command := call.Input.String("command", "")
		for _, deny := range h.denylist {
			if strings.Contains(command, deny) {
				return &BlockedError{Tool: call.Name, Reason: fmt.Sprintf("command contains %q", deny)}
			}
		}
	}

	if argName, ok := pathArgTools[call.Name]; ok {
		path := call.Input.String(argName, "")
		if strings.Contains(path, "..") {
			return &BlockedError{Tool: call.Name, Reason: "directory traversal not allowed"}
		}
	}

	return nil
}

// CallRecord is one entry in the LoggingHook's in-memory call log.
type CallRecord struct {
	Tool    string
	Success bool
	Kind    string
	Elapsed time.Duration
}

// LoggingHook records every tool call for observability. It observes only:
// neither input nor result is touched. The mutex guards the MCP path, where
// the transport may deliver calls from its own goroutine.
type LoggingHook struct {
	verbose bool
	logger  *slog.Logger

	mu    sync.Mutex
	calls []CallRecord
}

// NewLoggingHook creates a LoggingHook. With verbose set, per-call lines go
// to the log at Info instead of Debug.
func NewLoggingHook(verbose bool) *LoggingHook {
	return &LoggingHook{verbose: verbose, logger: slog.Default()}
}

func (h *LoggingHook) PreToolUse(call ToolCall) error {
	if h.verbose {
		h.logger.Info("tool call", "tool", call.Name, "input", fmt.Sprintf("%v", map[string]any(call.Input)))
	}
	return nil
}

func (h *LoggingHook) PostToolUse(call ToolCall, res Result, elapsed time.Duration) {
	h.mu.Lock()
	h.calls = append(h.calls, CallRecord{
		Tool:    call.Name,
		Success: res.Success,
		Kind:    res.Kind,
		Elapsed: elapsed,
	})
	h.mu.Unlock()

	if h.verbose {
		h.logger.Info("tool done", "tool", call.Name, "success", res.Success, "elapsed", elapsed.Round(time.Millisecond))
	} else {
		h.logger.Debug("tool done", "tool", call.Name, "success", res.Success, "elapsed", elapsed.Round(time.Millisecond))
	}
}

// Records returns a snapshot of the call log.
func (h *LoggingHook) Records() []CallRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]CallRecord, len(h.calls))
	copy(out, h.calls)
	return out
}

// Summary renders a one-line usage summary: call count, success count,
// total elapsed time.
func (h *LoggingHook) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var successful int
	var total time.Duration
	for _, c := range h.calls {
		if c.Success {
			successful++
		}
		total += c.Elapsed
	}
	return fmt.Sprintf("%d/%d tool calls successful, %.2fs total", successful, len(h.calls), total.Seconds())
}
