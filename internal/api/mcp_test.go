package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"github.com/pluginradar/radar/internal/registry"
)

func callToolRequest(name string, args map[string]any) mcptypes.CallToolRequest {
	req := mcptypes.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcptypes.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d", len(res.Content))
	}
	tc, ok := res.Content[0].(mcptypes.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestDispatchHandlerSuccess(t *testing.T) {
	reg := registry.New()
	spec := mcptypes.NewTool("echo",
		mcptypes.WithDescription("Echoes its input back."),
		mcptypes.WithString("value", mcptypes.Required()),
	)
	if err := reg.Register(registry.Tool{
		Spec: spec,
		Handler: func(_ context.Context, args registry.Args) registry.Result {
			return registry.Ok(map[string]any{"echoed": args.String("value", "")})
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := dispatchHandler(reg, "echo")(context.Background(), callToolRequest("echo", map[string]any{"value": "hi"}))
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if res.IsError {
		t.Fatal("unexpected IsError")
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if body["success"] != true || body["echoed"] != "hi" {
		t.Errorf("body = %v", body)
	}
}

func TestDispatchHandlerFailure(t *testing.T) {
	reg := registry.New()
	spec := mcptypes.NewTool("broken", mcptypes.WithDescription("Always fails."))
	if err := reg.Register(registry.Tool{
		Spec: spec,
		Handler: func(context.Context, registry.Args) registry.Result {
			return registry.Fail(registry.KindUpstream, "service down", nil)
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := dispatchHandler(reg, "broken")(context.Background(), callToolRequest("broken", nil))
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError")
	}
	text := resultText(t, res)
	if !strings.Contains(text, "service down") || !strings.Contains(text, registry.KindUpstream) {
		t.Errorf("result text = %q", text)
	}
}

func TestNewMCPServerRegistersTools(t *testing.T) {
	reg := registry.New()
	for _, name := range []string{"web_search", "fetch_url"} {
		spec := mcptypes.NewTool(name, mcptypes.WithDescription("tool"))
		if err := reg.Register(registry.Tool{
			Spec:    spec,
			Handler: func(context.Context, registry.Args) registry.Result { return registry.Ok(nil) },
		}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	if s := NewMCPServer(reg); s == nil {
		t.Fatal("nil server")
	}
}
