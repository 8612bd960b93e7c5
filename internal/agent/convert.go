package agent

import (
	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// convertTools maps MCP tool schemas to the Anthropic tool-use format.
// InputSchema.Type defaults to "object" on the Anthropic side when omitted.
func convertTools(tools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.InputSchema.Properties,
		}
		if len(t.InputSchema.Required) > 0 {
			schema.Required = t.InputSchema.Required
		}

		out[i] = anthropic.ToolUnionParamOfTool(schema, t.Name)
		if t.Description != "" {
			out[i].OfTool.Description = anthropic.String(t.Description)
		}
	}
	return out
}
