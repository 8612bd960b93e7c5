package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pluginradar/radar/internal/registry"
)

const (
	defaultSearchResults = 5
	maxSearchResults     = 10
)

func searchTool(deps Deps) registry.Tool {
	return registry.Tool{
		Spec: mcp.NewTool("web_search",
			mcp.WithDescription("Search the web for information about DSP plugins, manufacturers, reviews, tutorials, etc."),
			mcp.WithString("query", mcp.Description("Search query (e.g. 'FabFilter Pro-Q 4 review')"), mcp.Required()),
			mcp.WithNumber("max_results", mcp.Description("Max results (1-10)"), mcp.DefaultNumber(defaultSearchResults)),
		),
		Handler: func(ctx context.Context, args registry.Args) registry.Result {
			query := args.String("query", "")
			if query == "" {
				return registry.Fail(registry.KindValidation, "query is required", nil)
			}

			maxResults := args.Int("max_results", defaultSearchResults)
			if maxResults < 1 {
				maxResults = 1
			}
			if maxResults > maxSearchResults {
				maxResults = maxSearchResults
			}

			echo := map[string]any{"query": query}
			results, err := deps.Search.Search(ctx, query, maxResults)
			if err != nil {
				return registry.Failf(registry.KindUpstream, echo, "search failed: %v", err)
			}

			list := make([]map[string]any, 0, len(results))
			for _, r := range results {
				list = append(list, map[string]any{
					"title":   r.Title,
					"url":     r.URL,
					"snippet": r.Snippet,
				})
			}
			return registry.Ok(map[string]any{"query": query, "results": list})
		},
	}
}
