package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pluginradar/radar/internal/brave"
	"github.com/pluginradar/radar/internal/records"
	"github.com/pluginradar/radar/internal/registry"
)

type fakeSearcher struct {
	results []brave.Result
	err     error
	gotQ    string
	gotN    int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, count int) ([]brave.Result, error) {
	f.gotQ, f.gotN = query, count
	return f.results, f.err
}

type fakeQuerier struct {
	value json.RawMessage
	err   error
	calls int
}

func (f *fakeQuerier) Query(ctx context.Context, path string, args map[string]any) (json.RawMessage, error) {
	f.calls++
	return f.value, f.err
}

func newTestRegistry(t *testing.T, deps Deps) *registry.Registry {
	t.Helper()
	if deps.ProjectRoot == "" {
		deps.ProjectRoot = t.TempDir()
	}
	if deps.Records == nil {
		store, err := records.Open(t.TempDir())
		if err != nil {
			t.Fatalf("records.Open: %v", err)
		}
		deps.Records = store
	}
	if deps.Search == nil {
		deps.Search = &fakeSearcher{}
	}
	if deps.Convex == nil {
		deps.Convex = &fakeQuerier{}
	}

	reg := registry.New()
	reg.Use(registry.NewSafetyHook())
	if err := RegisterAll(reg, deps); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return reg
}

var ctx = context.Background()

func TestRegisterAllNames(t *testing.T) {
	reg := newTestRegistry(t, Deps{})

	want := []string{
		"execute_command", "fetch_url", "query_convex", "read_file",
		"save_comparison", "save_enrichment", "web_search", "write_file",
	}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names = %v, want %v", got, want)
		}
	}
}

func TestWebSearch(t *testing.T) {
	searcher := &fakeSearcher{results: []brave.Result{
		{Title: "review", URL: "https://x/a", Snippet: "good"},
	}}
	reg := newTestRegistry(t, Deps{Search: searcher})

	res := reg.Dispatch(ctx, "web_search", map[string]any{"query": "Pro-Q 4", "max_results": float64(25)})
	if !res.Success {
		t.Fatalf("web_search failed: %s", res.Err)
	}
	if searcher.gotN != 10 {
		t.Errorf("max_results clamped to %d, want 10", searcher.gotN)
	}
	list, ok := res.Payload["results"].([]map[string]any)
	if !ok || len(list) != 1 {
		t.Fatalf("results = %v", res.Payload["results"])
	}
	if list[0]["title"] != "review" {
		t.Errorf("title = %v", list[0]["title"])
	}
}

func TestWebSearchEmptyQuery(t *testing.T) {
	reg := newTestRegistry(t, Deps{})

	res := reg.Dispatch(ctx, "web_search", map[string]any{})
	if res.Success || res.Kind != registry.KindValidation {
		t.Errorf("result = %+v, want validation failure", res)
	}
}

func TestWebSearchUpstreamFailure(t *testing.T) {
	reg := newTestRegistry(t, Deps{Search: &fakeSearcher{err: errors.New("no network")}})

	res := reg.Dispatch(ctx, "web_search", map[string]any{"query": "q"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Kind != registry.KindUpstream {
		t.Errorf("Kind = %q", res.Kind)
	}
	if res.Payload["query"] != "q" {
		t.Errorf("query not echoed: %v", res.Payload)
	}
}

func TestFetchURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>Plugin   manual</p><script>x</script></body></html>")
	}))
	defer ts.Close()

	reg := newTestRegistry(t, Deps{})

	res := reg.Dispatch(ctx, "fetch_url", map[string]any{"url": ts.URL, "max_chars": float64(6)})
	if !res.Success {
		t.Fatalf("fetch_url failed: %s", res.Err)
	}
	if res.Payload["content"] != "Plugin" {
		t.Errorf("content = %q, want truncated %q", res.Payload["content"], "Plugin")
	}
}

func TestFetchURLMalformed(t *testing.T) {
	reg := newTestRegistry(t, Deps{})

	for _, bad := range []string{"", "not a url", "/relative/only"} {
		res := reg.Dispatch(ctx, "fetch_url", map[string]any{"url": bad})
		if res.Success || res.Kind != registry.KindValidation {
			t.Errorf("fetch_url(%q) = %+v, want validation failure", bad, res)
		}
	}
}

func TestFetchURLHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	reg := newTestRegistry(t, Deps{})

	res := reg.Dispatch(ctx, "fetch_url", map[string]any{"url": ts.URL + "/gone"})
	if res.Success || res.Kind != registry.KindUpstream {
		t.Errorf("result = %+v, want upstream failure", res)
	}
}

func TestQueryConvexAllowList(t *testing.T) {
	q := &fakeQuerier{}
	reg := newTestRegistry(t, Deps{Convex: q})

	res := reg.Dispatch(ctx, "query_convex", map[string]any{"query_name": "plugins:dropAll"})
	if res.Success || res.Kind != registry.KindValidation {
		t.Errorf("result = %+v, want validation failure", res)
	}
	if q.calls != 0 {
		t.Errorf("querier called %d times for rejected query, want 0", q.calls)
	}
}

func TestQueryConvexSuccess(t *testing.T) {
	q := &fakeQuerier{value: json.RawMessage(`[{"slug":"pro-q-4"}]`)}
	reg := newTestRegistry(t, Deps{Convex: q})

	res := reg.Dispatch(ctx, "query_convex", map[string]any{"query_name": "plugins:list"})
	if !res.Success {
		t.Fatalf("query_convex failed: %s", res.Err)
	}
	rows, ok := res.Payload["data"].([]any)
	if !ok || len(rows) != 1 {
		t.Errorf("data = %v", res.Payload["data"])
	}
}

func TestReadWriteFile(t *testing.T) {
	root := t.TempDir()
	reg := newTestRegistry(t, Deps{ProjectRoot: root})

	res := reg.Dispatch(ctx, "write_file", map[string]any{
		"path":    "notes/todo.md",
		"content": "research Serum 2",
	})
	if !res.Success {
		t.Fatalf("write_file failed: %s", res.Err)
	}
	if res.Payload["size"] != len("research Serum 2") {
		t.Errorf("size = %v", res.Payload["size"])
	}

	wantPath := filepath.Join(root, "notes", "todo.md")
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("written file missing: %v", err)
	}

	res = reg.Dispatch(ctx, "read_file", map[string]any{"path": "notes/todo.md"})
	if !res.Success {
		t.Fatalf("read_file failed: %s", res.Err)
	}
	if res.Payload["content"] != "research Serum 2" {
		t.Errorf("content = %v", res.Payload["content"])
	}
}

func TestReadFileMissing(t *testing.T) {
	reg := newTestRegistry(t, Deps{})

	res := reg.Dispatch(ctx, "read_file", map[string]any{"path": "nope.txt"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Err, "not found") {
		t.Errorf("Err = %q, want a not-found message", res.Err)
	}
}

func TestPathTraversalRejectedBeforeFilesystem(t *testing.T) {
	root := t.TempDir()
	reg := newTestRegistry(t, Deps{ProjectRoot: root})

	res := reg.Dispatch(ctx, "read_file", map[string]any{"path": "../../etc/passwd"})
	if res.Success || res.Kind != registry.KindValidation {
		t.Errorf("result = %+v, want validation failure", res)
	}

	res = reg.Dispatch(ctx, "write_file", map[string]any{"path": "../escape.txt", "content": "x"})
	if res.Success || res.Kind != registry.KindValidation {
		t.Errorf("result = %+v, want validation failure", res)
	}
	if _, err := os.Stat(filepath.Join(root, "..", "escape.txt")); err == nil {
		t.Error("traversal write touched the filesystem")
	}
}

func TestExecuteCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires bash")
	}
	reg := newTestRegistry(t, Deps{})

	res := reg.Dispatch(ctx, "execute_command", map[string]any{"command": "echo hello"})
	if !res.Success {
		t.Fatalf("execute_command failed: %s", res.Err)
	}
	if res.Payload["stdout"] != "hello\n" {
		t.Errorf("stdout = %q", res.Payload["stdout"])
	}
	if res.Payload["exit_code"] != 0 {
		t.Errorf("exit_code = %v", res.Payload["exit_code"])
	}
}

func TestExecuteCommandNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires bash")
	}
	reg := newTestRegistry(t, Deps{})

	res := reg.Dispatch(ctx, "execute_command", map[string]any{"command": "echo oops >&2; exit 3"})
	if res.Success {
		t.Fatal("expected failure for non-zero exit")
	}
	if res.Payload["exit_code"] != 3 {
		t.Errorf("exit_code = %v, want 3", res.Payload["exit_code"])
	}
	if res.Payload["stderr"] != "oops\n" {
		t.Errorf("stderr = %q", res.Payload["stderr"])
	}
}

func TestExecuteCommandTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires bash")
	}
	reg := newTestRegistry(t, Deps{})

	start := time.Now()
	res := reg.Dispatch(ctx, "execute_command", map[string]any{"command": "sleep 10", "timeout": float64(1)})
	elapsed := time.Since(start)

	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.Kind != registry.KindTimeout {
		t.Errorf("Kind = %q, want %q", res.Kind, registry.KindTimeout)
	}
	if elapsed > 3*time.Second {
		t.Errorf("returned after %s, want within timeout plus epsilon", elapsed)
	}
}

func TestExecuteCommandTimeoutWithBackgroundChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires bash")
	}
	reg := newTestRegistry(t, Deps{})

	// A backgrounded child inherits the output pipes; if only the shell
	// is killed, Run blocks until the child exits on its own.
	start := time.Now()
	res := reg.Dispatch(ctx, "execute_command", map[string]any{"command": "sleep 30 & sleep 30", "timeout": float64(1)})
	elapsed := time.Since(start)

	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.Kind != registry.KindTimeout {
		t.Errorf("Kind = %q, want %q", res.Kind, registry.KindTimeout)
	}
	if elapsed > 4*time.Second {
		t.Errorf("returned after %s, want within timeout plus epsilon", elapsed)
	}
}

func TestDangerousCommandBlocked(t *testing.T) {
	root := t.TempDir()
	marker := filepath.Join(root, "ran")
	reg := newTestRegistry(t, Deps{ProjectRoot: root})

	res := reg.Dispatch(ctx, "execute_command", map[string]any{
		"command": "touch " + marker + " && rm -rf /tmp/x",
	})
	if res.Success || res.Kind != registry.KindValidation {
		t.Errorf("result = %+v, want validation failure", res)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("subprocess ran despite safety veto")
	}
}

func TestSaveEnrichmentTool(t *testing.T) {
	store, err := records.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	reg := newTestRegistry(t, Deps{Records: store})

	res := reg.Dispatch(ctx, "save_enrichment", map[string]any{
		"plugin_slug": "foo",
		"data":        map[string]any{"price": 199},
	})
	if !res.Success {
		t.Fatalf("save_enrichment failed: %s", res.Err)
	}

	res = reg.Dispatch(ctx, "save_enrichment", map[string]any{
		"plugin_slug": "foo",
		"data":        map[string]any{"price": 149, "currency": "USD"},
	})
	if !res.Success {
		t.Fatalf("second save_enrichment failed: %s", res.Err)
	}

	doc, err := store.GetEnrichment("foo")
	if err != nil {
		t.Fatalf("GetEnrichment: %v", err)
	}
	if doc["price"] != float64(149) || doc["currency"] != "USD" {
		t.Errorf("doc = %v", doc)
	}
}

func TestSaveEnrichmentBadSlug(t *testing.T) {
	reg := newTestRegistry(t, Deps{})

	res := reg.Dispatch(ctx, "save_enrichment", map[string]any{
		"plugin_slug": "../escape",
		"data":        map[string]any{"x": 1},
	})
	if res.Success || res.Kind != registry.KindValidation {
		t.Errorf("result = %+v, want validation failure", res)
	}
}

func TestSaveComparisonTool(t *testing.T) {
	store, err := records.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	reg := newTestRegistry(t, Deps{Records: store})

	res := reg.Dispatch(ctx, "save_comparison", map[string]any{
		"slug":            "a-vs-b",
		"comparison_data": map[string]any{"verdict": "a wins"},
	})
	if !res.Success {
		t.Fatalf("save_comparison failed: %s", res.Err)
	}

	doc, err := store.GetComparison("a-vs-b")
	if err != nil {
		t.Fatalf("GetComparison: %v", err)
	}
	if doc["verdict"] != "a wins" {
		t.Errorf("doc = %v", doc)
	}
}
