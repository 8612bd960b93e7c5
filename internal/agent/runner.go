// Package agent drives the Anthropic tool-use loop: it sends the task to the
// model, dispatches requested tool calls through the registry, and feeds the
// results back until the model stops or the turn limit is reached.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"github.com/pluginradar/radar/internal/registry"
)

// Messenger is the slice of the Anthropic client the runner needs.
type Messenger interface {
	New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

type messagesClient struct {
	client anthropic.Client
}

func (c messagesClient) New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.client.Messages.New(ctx, params)
}

// Runner executes one agent task against a tool registry.
type Runner struct {
	messages Messenger
	registry *registry.Registry
	model    anthropic.Model
	maxTurns int
	log      *slog.Logger
}

// New builds a Runner backed by the Anthropic API.
func New(apiKey, model string, maxTurns int, reg *registry.Registry, log *slog.Logger) *Runner {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewWithMessenger(messagesClient{client: client}, model, maxTurns, reg, log)
}

// NewWithMessenger builds a Runner on an explicit Messenger. Tests use this
// to substitute a fake model.
func NewWithMessenger(m Messenger, model string, maxTurns int, reg *registry.Registry, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if maxTurns <= 0 {
		maxTurns = 15
	}
	return &Runner{
		messages: m,
		registry: reg,
		model:    anthropic.Model(model),
		maxTurns: maxTurns,
		log:      log,
	}
}

// RunResult is the outcome of a completed agent run.
type RunResult struct {
	Response   string
	Turns      int
	StopReason string
}

// Run executes the task until the model produces a final answer or the turn
// limit is hit. Tool failures are reported back to the model as tool results,
// never as Go errors; only transport failures abort the run.
func (r *Runner) Run(ctx context.Context, taskType, query string) (*RunResult, error) {
	system := []anthropic.TextBlockParam{{Text: SystemPrompt(taskType)}}
	msgs := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
	}

	toolList := r.registry.List()
	specs := make([]mcptypes.Tool, len(toolList))
	for i, t := range toolList {
		specs[i] = t.Spec
	}
	tools := convertTools(specs)

	var lastText string
	for turn := 1; turn <= r.maxTurns; turn++ {
		msg, err := r.messages.New(ctx, anthropic.MessageNewParams{
			Model:     r.model,
			MaxTokens: 4096,
			System:    system,
			Messages:  msgs,
			Tools:     tools,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic request (turn %d): %w", turn, err)
		}

		var textParts []string
		var toolUses []anthropic.ToolUseBlock
		for _, block := range msg.Content {
			switch b := block.AsAny().(type) {
			case anthropic.TextBlock:
				textParts = append(textParts, b.Text)
			case anthropic.ToolUseBlock:
				toolUses = append(toolUses, b)
			}
		}
		if len(textParts) > 0 {
			lastText = strings.Join(textParts, "\n")
		}

		if msg.StopReason != anthropic.StopReasonToolUse || len(toolUses) == 0 {
			return &RunResult{
				Response:   lastText,
				Turns:      turn,
				StopReason: string(msg.StopReason),
			}, nil
		}

		msgs = append(msgs, msg.ToParam())

		results := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, tu := range toolUses {
			var input map[string]any
			if len(tu.Input) > 0 {
				if err := json.Unmarshal(tu.Input, &input); err != nil {
					r.log.Warn("unparseable tool input", "tool", tu.Name, "error", err)
				}
			}
			res := r.registry.Dispatch(ctx, tu.Name, input)
			r.log.Debug("tool call", "tool", tu.Name, "success", res.Success, "kind", res.Kind)
			results = append(results, toolResultBlock(tu.ID, res))
		}
		msgs = append(msgs, anthropic.MessageParam{
			Role:    anthropic.MessageParamRoleUser,
			Content: results,
		})
	}

	return &RunResult{
		Response:   lastText,
		Turns:      r.maxTurns,
		StopReason: "max_turns",
	}, nil
}

// toolResultBlock serializes a registry Result into a JSON tool result.
func toolResultBlock(toolUseID string, res registry.Result) anthropic.ContentBlockParamUnion {
	body := make(map[string]any, len(res.Payload)+3)
	for k, v := range res.Payload {
		body[k] = v
	}
	body["success"] = res.Success
	if !res.Success {
		body["error"] = res.Err
		body["kind"] = res.Kind
	}

	text := ""
	if data, err := json.Marshal(body); err != nil {
		text = fmt.Sprintf(`{"success":false,"error":"unserializable tool result: %v"}`, err)
	} else {
		text = string(data)
	}

	return anthropic.ContentBlockParamUnion{
		OfToolResult: &anthropic.ToolResultBlockParam{
			ToolUseID: toolUseID,
			IsError:   anthropic.Bool(!res.Success),
			Content: []anthropic.ToolResultBlockParamContentUnion{
				{OfText: &anthropic.TextBlockParam{Text: text}},
			},
		},
	}
}
