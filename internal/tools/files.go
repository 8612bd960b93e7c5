package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pluginradar/radar/internal/registry"
)

// resolvePath resolves a tool-supplied path against the project root.
// Absolute paths are kept as given; the traversal check lives in the
// safety hook, which runs before any handler.
func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func readFileTool(deps Deps) registry.Tool {
	return registry.Tool{
		Spec: mcp.NewTool("read_file",
			mcp.WithDescription("Read a file from the project directory"),
			mcp.WithString("path", mcp.Description("File path (relative to project root)"), mcp.Required()),
		),
		Handler: func(ctx context.Context, args registry.Args) registry.Result {
			path := args.String("path", "")
			echo := map[string]any{"path": path}
			if path == "" {
				return registry.Fail(registry.KindValidation, "path is required", echo)
			}

			resolved := resolvePath(deps.ProjectRoot, path)
			content, err := os.ReadFile(resolved)
			if os.IsNotExist(err) {
				return registry.Failf(registry.KindUpstream, echo, "file not found: %s", path)
			}
			if err != nil {
				return registry.Failf(registry.KindUpstream, echo, "reading file: %v", err)
			}

			return registry.Ok(map[string]any{
				"path":    resolved,
				"content": string(content),
				"size":    len(content),
			})
		},
	}
}

func writeFileTool(deps Deps) registry.Tool {
	return registry.Tool{
		Spec: mcp.NewTool("write_file",
			mcp.WithDescription("Write content to a file in the project directory"),
			mcp.WithString("path", mcp.Description("File path (relative to project root)"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Content to write"), mcp.Required()),
		),
		Handler: func(ctx context.Context, args registry.Args) registry.Result {
			path := args.String("path", "")
			echo := map[string]any{"path": path}
			if path == "" {
				return registry.Fail(registry.KindValidation, "path is required", echo)
			}
			if !args.Has("content") {
				return registry.Fail(registry.KindValidation, "content is required", echo)
			}
			content := args.String("content", "")

			resolved := resolvePath(deps.ProjectRoot, path)
			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return registry.Failf(registry.KindUpstream, echo, "creating parent directory: %v", err)
			}
			if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
				return registry.Failf(registry.KindUpstream, echo, "writing file: %v", err)
			}

			return registry.Ok(map[string]any{
				"path": resolved,
				"size": len(content),
			})
		},
	}
}
