package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pluginradar/radar/internal/registry"
)

// allowedQueries is the fixed allow-list of Convex query functions the
// agent may call. Anything else is rejected before a request is made.
var allowedQueries = map[string]bool{
	"plugins:list":       true,
	"plugins:get":        true,
	"plugins:search":     true,
	"manufacturers:list": true,
	"comparisons:list":   true,
}

func allowedQueryNames() []string {
	names := make([]string, 0, len(allowedQueries))
	for name := range allowedQueries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func convexTool(deps Deps) registry.Tool {
	return registry.Tool{
		Spec: mcp.NewTool("query_convex",
			mcp.WithDescription("Query the PluginRadar Convex database for plugins, manufacturers, and comparisons"),
			mcp.WithString("query_name",
				mcp.Description("Query to execute, one of: "+strings.Join(allowedQueryNames(), ", ")),
				mcp.Required(),
				mcp.Enum(allowedQueryNames()...),
			),
			mcp.WithObject("args", mcp.Description("Query arguments (optional)")),
		),
		Handler: func(ctx context.Context, args registry.Args) registry.Result {
			queryName := args.String("query_name", "")
			echo := map[string]any{"query": queryName}

			if !allowedQueries[queryName] {
				return registry.Failf(registry.KindValidation, echo, "unknown query: %s", queryName)
			}

			value, err := deps.Convex.Query(ctx, queryName, args.Map("args"))
			if err != nil {
				return registry.Failf(registry.KindUpstream, echo, "query failed: %v", err)
			}

			var data any
			if len(value) > 0 {
				if err := json.Unmarshal(value, &data); err != nil {
					return registry.Failf(registry.KindUpstream, echo, "malformed query response: %v", err)
				}
			}
			return registry.Ok(map[string]any{"query": queryName, "data": data})
		},
	}
}
