package storage

import (
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_runs_created", "idx_runs_task_type", "idx_run_tool_calls_run_id"}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)

	run := Run{
		ID:         "run-1",
		CreatedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		TaskType:   "research",
		Query:      "Research FabFilter Pro-Q 4",
		Model:      "claude-sonnet-4-5-20250929",
		Response:   "summary text",
		Turns:      6,
		DurationMs: 4200,
	}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Query != run.Query {
		t.Errorf("Query = %q", got.Query)
	}
	if got.Status != "completed" {
		t.Errorf("Status = %q, want default completed", got.Status)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	if got.Turns != 6 || got.DurationMs != 4200 {
		t.Errorf("Turns/DurationMs = %d/%d", got.Turns, got.DurationMs)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetRun("ghost"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetRecentRunsOrder(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		run := Run{
			ID:        fmt.Sprintf("run-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			TaskType:  "research",
			Query:     fmt.Sprintf("query %d", i),
		}
		if err := s.SaveRun(run); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := s.GetRecentRuns(3)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != "run-4" || runs[2].ID != "run-2" {
		t.Errorf("order = %s..%s, want newest first", runs[0].ID, runs[2].ID)
	}
}

func TestToolCallsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	run := Run{ID: "run-1", CreatedAt: time.Now().UTC(), TaskType: "comparison", Query: "q"}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	calls := []ToolCall{
		{ID: "c-1", RunID: "run-1", Seq: 0, Tool: "web_search", Success: true, ElapsedMs: 812},
		{ID: "c-2", RunID: "run-1", Seq: 1, Tool: "execute_command", Success: false, Kind: "validation", ElapsedMs: 1},
	}
	if err := s.SaveToolCalls(calls); err != nil {
		t.Fatalf("SaveToolCalls: %v", err)
	}

	got, err := s.GetToolCalls("run-1")
	if err != nil {
		t.Fatalf("GetToolCalls: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d calls, want 2", len(got))
	}
	if got[0].Tool != "web_search" || !got[0].Success {
		t.Errorf("first call = %+v", got[0])
	}
	if got[1].Kind != "validation" || got[1].Success {
		t.Errorf("second call = %+v", got[1])
	}
}

func TestSaveToolCallsEmpty(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveToolCalls(nil); err != nil {
		t.Errorf("SaveToolCalls(nil) = %v, want nil", err)
	}
}
