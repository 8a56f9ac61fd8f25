package history

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// _ import for sqlite driver registration
	_ "modernc.org/sqlite"

	"github.com/pyship/pyship/internal/config"
)

// ExportDatabase copies the active history database to dstPath.
func ExportDatabase(dstPath string) error {
	src, err := config.DBPath()
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source db: %w", err)
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("create dst dir: %w", err)
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create dst db: %w", err)
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy db: %w", err)
	}
	return nil
}

// ImportDatabase copies srcPath into the default database location. If
// overwrite is false and the destination exists, an error is returned.
func ImportDatabase(srcPath string, overwrite bool) error {
	dst, err := config.DBPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil && !overwrite {
		return errors.New("destination database exists; use --overwrite to replace")
	}
	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dst dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create dst: %w", err)
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy db: %w", err)
	}
	return nil
}

// MergeDatabase imports runs from srcPath into the repository, skipping run
// ids that already exist.
func (r *Repository) MergeDatabase(srcPath string) (int, error) {
	src, err := sql.Open("sqlite", srcPath)
	if err != nil {
		return 0, fmt.Errorf("open src: %w", err)
	}
	defer func() { _ = src.Close() }()

	rows, err := src.Query("SELECT id, command, project, root, source, status, error, started_at, finished_at FROM runs")
	if err != nil {
		return 0, fmt.Errorf("read src runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	imported := 0
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Command, &run.Project, &run.Root, &run.Source, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return imported, err
		}
		n, err := r.insertIfAbsent(src, run)
		if err != nil {
			return imported, err
		}
		imported += n
	}
	return imported, rows.Err()
}

func (r *Repository) insertIfAbsent(src *sql.DB, run Run) (int, error) {
	res, err := r.db.Exec(
		`INSERT INTO runs (id, command, project, root, source, status, error, started_at, finished_at)
			SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
			WHERE NOT EXISTS(SELECT 1 FROM runs WHERE id = ?)`,
		run.ID, run.Command, run.Project, run.Root, run.Source, run.Status, run.Error, run.StartedAt, run.FinishedAt, run.ID)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	steps, err := src.Query("SELECT position, name, status, duration_ms FROM run_steps WHERE run_id = ? ORDER BY position ASC", run.ID)
	if err != nil {
		return 1, err
	}
	defer func() { _ = steps.Close() }()
	for steps.Next() {
		var pos int
		var name, status string
		var ms int64
		if err := steps.Scan(&pos, &name, &status, &ms); err != nil {
			return 1, err
		}
		if _, err := r.db.Exec(
			"INSERT INTO run_steps (run_id, position, name, status, duration_ms) VALUES (?, ?, ?, ?, ?)",
			run.ID, pos, name, status, ms); err != nil {
			return 1, fmt.Errorf("insert run step: %w", err)
		}
	}
	return 1, steps.Err()
}
