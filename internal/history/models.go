// Package history records release runs in the local database.
package history

import (
	"database/sql"
	"time"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusAborted = "aborted"
)

// Run sources.
const (
	SourceCLI   = "cli"
	SourceWatch = "watch"
	SourceTUI   = "tui"
)

// Step statuses.
const (
	StepOK      = "ok"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// Run is one recorded invocation of a workflow.
type Run struct {
	ID         string
	Command    string
	Project    string
	Root       string
	Source     string
	Status     string
	Error      sql.NullString
	StartedAt  string
	FinishedAt sql.NullString
	Steps      []StepResult
}

// StepResult is the outcome of a single step within a run.
type StepResult struct {
	Position int
	Name     string
	Status   string
	Duration time.Duration
}

// timeFormat is how timestamps are stored. RFC 3339 keeps them readable in
// the raw database and parseable by SQLite's datetime().
const timeFormat = time.RFC3339Nano

// Started returns the parsed start time, or the zero time when unparseable.
func (r *Run) Started() time.Time {
	t, err := time.Parse(timeFormat, r.StartedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Finished returns the parsed finish time and whether the run has one.
func (r *Run) Finished() (time.Time, bool) {
	if !r.FinishedAt.Valid {
		return time.Time{}, false
	}
	t, err := time.Parse(timeFormat, r.FinishedAt.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Elapsed returns the wall-clock duration of a finished run, zero otherwise.
func (r *Run) Elapsed() time.Duration {
	end, ok := r.Finished()
	if !ok {
		return 0
	}
	return end.Sub(r.Started())
}
