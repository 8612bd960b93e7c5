package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Run is one completed agent invocation.
type Run struct {
	ID         string
	CreatedAt  time.Time
	TaskType   string // "research", "comparison", "trending"
	Query      string
	Model      string
	Response   string
	Status     string // "completed", "failed"
	Turns      int
	DurationMs int64
}

// ToolCall is one tool invocation recorded during a run.
type ToolCall struct {
	ID        string
	RunID     string
	Seq       int
	Tool      string
	Success   bool
	Kind      string // failure kind, empty on success
	ElapsedMs int64
}
