package db

import (
	"os"
	"testing"

	"github.com/pyship/pyship/internal/config"
)

func TestInitDBCreatesFileAndSchema(t *testing.T) {
	tmp := t.TempDir()
	_ = os.Setenv(config.EnvHome, tmp)
	defer func() { _ = os.Unsetenv(config.EnvHome) }()

	dbPath, err := config.DBPath()
	if err != nil {
		t.Fatalf("DBPath(): %v", err)
	}

	// remove any existing file
	_ = os.Remove(dbPath)

	db, err := InitDB()
	if err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("db file not created: %v", err)
	}

	for _, table := range []string{"runs", "run_steps"} {
		var count int
		r := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := r.Scan(&count); err != nil {
			t.Fatalf("query schema: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected table %q to exist", table)
		}
	}

	// Basic smoke test: ensure we can insert a run
	_, err = db.Exec("INSERT INTO runs (id, command, project, started_at) VALUES (?, ?, ?, datetime('now'))", "r1", "build", "widget")
	if err != nil {
		t.Fatalf("insert run failed: %v", err)
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	tmp := t.TempDir()
	_ = os.Setenv(config.EnvHome, tmp)
	defer func() { _ = os.Unsetenv(config.EnvHome) }()

	db, err := InitDB()
	if err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := ApplyMigrations(db); err != nil {
		t.Fatalf("second ApplyMigrations(): %v", err)
	}
}

func TestEnsureRunColumnsUpgradesOldLayout(t *testing.T) {
	tmp := t.TempDir()
	_ = os.Setenv(config.EnvHome, tmp)
	defer func() { _ = os.Unsetenv(config.EnvHome) }()

	db, err := InitDB()
	if err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Simulate a database created before source/error existed.
	stmts := []string{
		"DROP TABLE runs",
		"CREATE TABLE runs (id TEXT PRIMARY KEY, command TEXT NOT NULL, project TEXT NOT NULL, root TEXT NOT NULL DEFAULT '', status TEXT NOT NULL DEFAULT 'running', started_at TIMESTAMP NOT NULL, finished_at TIMESTAMP)",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("prepare old layout: %v", err)
		}
	}

	if err := ApplyMigrations(db); err != nil {
		t.Fatalf("ApplyMigrations(): %v", err)
	}

	if _, err := db.Exec("UPDATE runs SET source = 'tui', error = 'boom' WHERE id = 'none'"); err != nil {
		t.Fatalf("upgraded columns missing: %v", err)
	}
}
