package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pluginradar/radar/internal/registry"
)

// NewMCPServer exposes every registry tool over the Model Context Protocol.
// Tool outcomes map to MCP results: failures become IsError results carrying
// the same JSON body the agent loop would see, never protocol errors.
func NewMCPServer(reg *registry.Registry) *server.MCPServer {
	s := server.NewMCPServer(
		"radar",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("radar: research, enrich, and compare DSP audio plugins."),
		server.WithRecovery(),
	)

	for _, t := range reg.List() {
		s.AddTool(t.Spec, dispatchHandler(reg, t.Spec.Name))
	}

	return s
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is done.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}

func dispatchHandler(reg *registry.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := reg.Dispatch(ctx, name, req.GetArguments())

		body := make(map[string]any, len(res.Payload)+3)
		for k, v := range res.Payload {
			body[k] = v
		}
		body["success"] = res.Success
		if !res.Success {
			body["error"] = res.Err
			body["kind"] = res.Kind
		}

		data, err := json.Marshal(body)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal tool result: %v", err)), nil
		}
		if !res.Success {
			return mcpError(string(data)), nil
		}
		return mcpText(string(data)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
