// Package tools implements the research agent's capability surface: web
// search, URL fetch, Convex queries, project file access, shell execution,
// and record persistence. Each tool is registered with an MCP schema and a
// handler that normalizes every failure into a registry.Result.
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pluginradar/radar/internal/brave"
	"github.com/pluginradar/radar/internal/records"
	"github.com/pluginradar/radar/internal/registry"
)

// Searcher is the web search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]brave.Result, error)
}

// Querier is the remote structured-data collaborator.
type Querier interface {
	Query(ctx context.Context, path string, args map[string]any) (json.RawMessage, error)
}

// Deps carries the collaborators each tool needs.
type Deps struct {
	ProjectRoot string
	Records     *records.Store
	Search      Searcher
	Convex      Querier

	// HTTPClient serves fetch_url. Optional; a default with a 60s timeout
	// is used when nil.
	HTTPClient *http.Client
}

// RegisterAll registers the full tool set on reg.
func RegisterAll(reg *registry.Registry, deps Deps) error {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	all := []registry.Tool{
		searchTool(deps),
		fetchTool(deps),
		convexTool(deps),
		readFileTool(deps),
		writeFileTool(deps),
		executeCommandTool(deps),
		saveEnrichmentTool(deps),
		saveComparisonTool(deps),
	}
	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
