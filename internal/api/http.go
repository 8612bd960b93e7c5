// Package api exposes the record stores over two read surfaces: a local
// bearer-protected HTTP API and an MCP stdio server bridging the tool
// registry.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pluginradar/radar/internal/records"
	"github.com/pluginradar/radar/internal/registry"
	"github.com/pluginradar/radar/internal/storage"
)

// AppDeps holds the handler dependencies.
type AppDeps struct {
	Records  *records.Store
	Store    *storage.Store
	Registry *registry.Registry
	Token    string
}

// NewAppHandler builds the HTTP API. /health is open; everything else
// requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/tools", handleListTools(deps))

		r.Get("/enrichment", handleListEnrichment(deps))
		r.Get("/enrichment/{slug}", handleGetEnrichment(deps))

		r.Get("/comparisons", handleListComparisons(deps))
		r.Get("/comparisons/{slug}", handleGetComparison(deps))

		r.Get("/runs", handleListRuns(deps))
		r.Get("/runs/{id}", handleGetRun(deps))
		r.Get("/runs/{id}/calls", handleGetRunCalls(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func handleListTools(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		tools := deps.Registry.List()
		out := make([]map[string]string, 0, len(tools))
		for _, t := range tools {
			out = append(out, map[string]string{
				"name":        t.Spec.Name,
				"description": t.Spec.Description,
			})
		}
		writeJSON(w, map[string]any{"tools": out})
	}
}

func handleListEnrichment(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		slugs, err := deps.Records.ListEnrichment()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing enrichment records: %v", err)
			return
		}
		writeJSON(w, map[string]any{"slugs": slugs})
	}
}

func handleGetEnrichment(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		doc, err := deps.Records.GetEnrichment(slug)
		if err != nil {
			recordError(w, slug, err)
			return
		}
		writeJSON(w, doc)
	}
}

func handleListComparisons(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		slugs, err := deps.Records.ListComparisons()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing comparisons: %v", err)
			return
		}
		writeJSON(w, map[string]any{"slugs": slugs})
	}
}

func handleGetComparison(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		doc, err := deps.Records.GetComparison(slug)
		if err != nil {
			recordError(w, slug, err)
			return
		}
		writeJSON(w, doc)
	}
}

func handleListRuns(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 200 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be an integer between 1 and 200")
				return
			}
			limit = n
		}
		runs, err := deps.Store.GetRecentRuns(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing runs: %v", err)
			return
		}
		writeJSON(w, map[string]any{"runs": runs})
	}
}

func handleGetRun(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		run, err := deps.Store.GetRun(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run %q not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading run: %v", err)
			return
		}
		writeJSON(w, run)
	}
}

func handleGetRunCalls(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetRun(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run %q not found", id)
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading run: %v", err)
			return
		}
		calls, err := deps.Store.GetToolCalls(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading tool calls: %v", err)
			return
		}
		writeJSON(w, map[string]any{"calls": calls})
	}
}

func recordError(w http.ResponseWriter, slug string, err error) {
	if errors.Is(err, records.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "record %q not found", slug)
		return
	}
	if errors.Is(err, records.ErrInvalidSlug) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid slug %q", slug)
		return
	}
	httpError(w, http.StatusInternalServerError, "api_error", "loading record: %v", err)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
