package tools

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pluginradar/radar/internal/extract"
	"github.com/pluginradar/radar/internal/registry"
)

const (
	defaultFetchChars = 10000
	maxFetchBodySize  = 5 << 20 // 5MB
	fetchTimeout      = 60 * time.Second
)

func fetchTool(deps Deps) registry.Tool {
	return registry.Tool{
		Spec: mcp.NewTool("fetch_url",
			mcp.WithDescription("Fetch and extract readable content from a URL (plugin page, review, documentation, PDF manual)"),
			mcp.WithString("url", mcp.Description("URL to fetch"), mcp.Required()),
			mcp.WithNumber("max_chars", mcp.Description("Max characters to return"), mcp.DefaultNumber(defaultFetchChars)),
		),
		Handler: func(ctx context.Context, args registry.Args) registry.Result {
			rawURL := args.String("url", "")
			echo := map[string]any{"url": rawURL}

			parsed, err := url.Parse(rawURL)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return registry.Fail(registry.KindValidation, "url must be a well-formed absolute URL", echo)
			}

			maxChars := args.Int("max_chars", defaultFetchChars)
			if maxChars <= 0 {
				maxChars = defaultFetchChars
			}

			reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
			if err != nil {
				return registry.Failf(registry.KindValidation, echo, "invalid url: %v", err)
			}

			resp, err := deps.HTTPClient.Do(req)
			if err != nil {
				if reqCtx.Err() == context.DeadlineExceeded {
					return registry.Failf(registry.KindTimeout, echo, "fetch timed out after %s", fetchTimeout)
				}
				return registry.Failf(registry.KindUpstream, echo, "fetch failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return registry.Failf(registry.KindUpstream, echo, "url returned HTTP %d", resp.StatusCode)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodySize))
			if err != nil {
				return registry.Failf(registry.KindUpstream, echo, "reading response: %v", err)
			}

			text, err := extract.Text(resp.Header.Get("Content-Type"), body)
			if err != nil {
				return registry.Failf(registry.KindUpstream, echo, "extracting content: %v", err)
			}

			return registry.Ok(map[string]any{
				"url":     rawURL,
				"content": extract.Truncate(text, maxChars),
			})
		},
	}
}
