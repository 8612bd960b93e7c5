package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pluginradar/radar/internal/records"
	"github.com/pluginradar/radar/internal/registry"
)

func saveEnrichmentTool(deps Deps) registry.Tool {
	return registry.Tool{
		Spec: mcp.NewTool("save_enrichment",
			mcp.WithDescription("Save enriched plugin data (features, specs, reviews) for a plugin slug; merges with any existing record"),
			mcp.WithString("plugin_slug", mcp.Description("Plugin slug identifier"), mcp.Required()),
			mcp.WithObject("data", mcp.Description("Enrichment data (features, specs, pros/cons, etc.)"), mcp.Required()),
		),
		Handler: func(ctx context.Context, args registry.Args) registry.Result {
			slug := args.String("plugin_slug", "")
			echo := map[string]any{"plugin_slug": slug}
			if err := records.ValidateSlug(slug); err != nil {
				return registry.Fail(registry.KindValidation, err.Error(), echo)
			}

			data := args.Map("data")
			if data == nil {
				return registry.Fail(registry.KindValidation, "data is required and must be an object", echo)
			}

			path, err := deps.Records.SaveEnrichment(slug, data)
			if err != nil {
				return registry.Failf(registry.KindUpstream, echo, "saving enrichment: %v", err)
			}
			return registry.Ok(map[string]any{"path": path, "plugin_slug": slug})
		},
	}
}

func saveComparisonTool(deps Deps) registry.Tool {
	return registry.Tool{
		Spec: mcp.NewTool("save_comparison",
			mcp.WithDescription("Save a plugin comparison report; replaces any existing record for the slug"),
			mcp.WithString("slug", mcp.Description("Comparison slug (e.g. 'pro-q-4-vs-kirchhoff-eq')"), mcp.Required()),
			mcp.WithObject("comparison_data", mcp.Description("Comparison data with plugins, analysis, verdict, etc."), mcp.Required()),
		),
		Handler: func(ctx context.Context, args registry.Args) registry.Result {
			slug := args.String("slug", "")
			echo := map[string]any{"slug": slug}
			if err := records.ValidateSlug(slug); err != nil {
				return registry.Fail(registry.KindValidation, err.Error(), echo)
			}

			data := args.Map("comparison_data")
			if data == nil {
				return registry.Fail(registry.KindValidation, "comparison_data is required and must be an object", echo)
			}

			path, err := deps.Records.SaveComparison(slug, data)
			if err != nil {
				return registry.Failf(registry.KindUpstream, echo, "saving comparison: %v", err)
			}
			return registry.Ok(map[string]any{"path": path, "slug": slug})
		},
	}
}
