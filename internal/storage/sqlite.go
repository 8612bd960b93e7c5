// Package storage persists agent run history in SQLite.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for runs and their tool calls.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "radar.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Runs ---

// SaveRun stores a completed run.
func (s *Store) SaveRun(r Run) error {
	status := r.Status
	if status == "" {
		status = "completed"
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, created_at, task_type, query, model, response, status, turns, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.TaskType, r.Query,
		r.Model, r.Response, status, r.Turns, r.DurationMs,
	)
	return err
}

// GetRun loads a single run by ID.
func (s *Store) GetRun(id string) (Run, error) {
	var r Run
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, task_type, query, model, response, status, turns, duration_ms
		FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &createdAt, &r.TaskType, &r.Query, &r.Model, &r.Response, &r.Status, &r.Turns, &r.DurationMs)
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = t
	return r, nil
}

// GetRecentRuns returns the most recent runs, newest first.
func (s *Store) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, task_type, query, model, response, status, turns, duration_ms
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.TaskType, &r.Query, &r.Model, &r.Response, &r.Status, &r.Turns, &r.DurationMs); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Tool calls ---

// SaveToolCalls stores the tool call log for a run in one transaction.
func (s *Store) SaveToolCalls(calls []ToolCall) error {
	if len(calls) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, c := range calls {
		success := 0
		if c.Success {
			success = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO run_tool_calls (id, run_id, seq, tool, success, kind, elapsed_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.RunID, c.Seq, c.Tool, success, c.Kind, c.ElapsedMs,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetToolCalls returns a run's tool calls in invocation order.
func (s *Store) GetToolCalls(runID string) ([]ToolCall, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, seq, tool, success, kind, elapsed_ms
		FROM run_tool_calls WHERE run_id = ? ORDER BY seq ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ToolCall
	for rows.Next() {
		var c ToolCall
		var success int
		if err := rows.Scan(&c.ID, &c.RunID, &c.Seq, &c.Tool, &success, &c.Kind, &c.ElapsedMs); err != nil {
			return nil, err
		}
		c.Success = success == 1
		results = append(results, c)
	}
	return results, rows.Err()
}
