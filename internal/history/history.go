package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository provides read and write access to recorded runs.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository using db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StartRun inserts a run in the running state and returns its id.
func (r *Repository) StartRun(command, project, root, source string) (string, error) {
	id := uuid.NewString()
	started := time.Now().UTC().Format(timeFormat)
	_, err := r.db.Exec(
		"INSERT INTO runs (id, command, project, root, source, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, command, project, root, source, StatusRunning, started)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun finalizes a run and records its step results atomically. Any
// previously recorded steps for the run are replaced.
func (r *Repository) FinishRun(id, status string, runErr error, steps []StepResult) error {
	trx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = trx.Rollback() }()

	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	finished := time.Now().UTC().Format(timeFormat)
	res, err := trx.Exec("UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		status, errText, finished, id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %q not found", id)
	}

	if _, err := trx.Exec("DELETE FROM run_steps WHERE run_id = ?", id); err != nil {
		return err
	}
	for _, s := range steps {
		if _, err := trx.Exec(
			"INSERT INTO run_steps (run_id, position, name, status, duration_ms) VALUES (?, ?, ?, ?, ?)",
			id, s.Position, s.Name, s.Status, s.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("insert run step: %w", err)
		}
	}
	return trx.Commit()
}

// Recent returns the latest n runs, newest first, with their steps attached.
func (r *Repository) Recent(n int) ([]Run, error) {
	rows, err := r.db.Query(
		"SELECT id, command, project, root, source, status, error, started_at, finished_at FROM runs ORDER BY datetime(started_at) DESC, id LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Command, &run.Project, &run.Root, &run.Source, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.attachSteps(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get returns the run whose id matches idPrefix. A prefix is accepted as long
// as it is unambiguous; a missing run returns nil.
func (r *Repository) Get(idPrefix string) (*Run, error) {
	rows, err := r.db.Query(
		"SELECT id, command, project, root, source, status, error, started_at, finished_at FROM runs WHERE id LIKE ? || '%' LIMIT 2", idPrefix)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var matches []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Command, &run.Project, &run.Root, &run.Source, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		run := matches[0]
		if err := r.attachSteps(&run); err != nil {
			return nil, err
		}
		return &run, nil
	default:
		return nil, fmt.Errorf("run id %q is ambiguous", idPrefix)
	}
}

// PruneOlderThan deletes runs started before cutoff and returns how many were
// removed.
func (r *Repository) PruneOlderThan(cutoff time.Time) (int64, error) {
	trx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = trx.Rollback() }()

	bound := cutoff.UTC().Format(timeFormat)
	if _, err := trx.Exec(
		"DELETE FROM run_steps WHERE run_id IN (SELECT id FROM runs WHERE datetime(started_at) < datetime(?))", bound); err != nil {
		return 0, err
	}
	res, err := trx.Exec("DELETE FROM runs WHERE datetime(started_at) < datetime(?)", bound)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, trx.Commit()
}

// attachSteps loads step results for a run in position order.
func (r *Repository) attachSteps(run *Run) error {
	rows, err := r.db.Query(
		"SELECT position, name, status, duration_ms FROM run_steps WHERE run_id = ? ORDER BY position ASC", run.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var s StepResult
		var ms int64
		if err := rows.Scan(&s.Position, &s.Name, &s.Status, &ms); err != nil {
			return err
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		run.Steps = append(run.Steps, s)
	}
	return rows.Err()
}
