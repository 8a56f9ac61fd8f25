// Package ci holds tests for the repository's helper scripts.
package ci

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// findLintScript walks up from the working directory to the repo-local
// scripts/lint.sh.
func findLintScript(t *testing.T) string {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	for {
		candidate := filepath.Join(cwd, "scripts", "lint.sh")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	t.Fatalf("scripts/lint.sh not found in repository tree")
	return ""
}

// runLintWithPath runs lint.sh with PATH narrowed to path so the test
// controls exactly which tools the script can see.
func runLintWithPath(t *testing.T, path string) (string, error) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("script tests skipped on Windows")
	}
	script := findLintScript(t)
	cmd := exec.Command("bash", script)
	cmd.Env = append(os.Environ(), "PATH="+path)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func writeFakeTool(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
}

func TestLintScriptWithoutLocalOrDocker(t *testing.T) {
	tmp := t.TempDir()
	out, err := runLintWithPath(t, tmp)
	if err != nil {
		// the script exits zero when nothing can run
		t.Fatalf("script failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "golangci-lint not found locally") {
		t.Fatalf("expected golangci-lint-not-found message, got: %s", out)
	}
	if !strings.Contains(out, "Docker not available; cannot run docker fallback") {
		t.Fatalf("expected docker-not-available message, got: %s", out)
	}
}

func TestLintScriptLocalFailureWithoutDocker(t *testing.T) {
	tmp := t.TempDir()
	writeFakeTool(t, tmp, "golangci-lint", "#!/bin/sh\necho 'error: unsupported version' >&2\nexit 1\n")

	out, err := runLintWithPath(t, tmp)
	if err != nil {
		t.Fatalf("script failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "unsupported version") {
		t.Fatalf("expected the linter's own error in the output, got: %s", out)
	}
	if !strings.Contains(out, "Docker not available; cannot run docker fallback") {
		t.Fatalf("expected docker-not-available message, got: %s", out)
	}
}

func TestLintScriptDockerFallback(t *testing.T) {
	tmp := t.TempDir()
	writeFakeTool(t, tmp, "golangci-lint", "#!/bin/sh\necho 'error: unsupported version' >&2\nexit 1\n")
	writeFakeTool(t, tmp, "docker", "#!/bin/sh\necho 'mock docker called'\nexit 0\n")

	out, err := runLintWithPath(t, tmp)
	if err != nil {
		t.Fatalf("script failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "Attempting Docker-based golangci-lint") {
		t.Fatalf("expected Docker fallback attempt, got: %s", out)
	}
	if !strings.Contains(out, "mock docker called") {
		t.Fatalf("expected mock docker to be invoked, got: %s", out)
	}
}

func TestLintScriptLocalSuccessSkipsFallback(t *testing.T) {
	tmp := t.TempDir()
	writeFakeTool(t, tmp, "golangci-lint", "#!/bin/sh\nexit 0\n")

	out, err := runLintWithPath(t, tmp)
	if err != nil {
		t.Fatalf("script failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "golangci-lint passed") {
		t.Fatalf("expected pass message, got: %s", out)
	}
	if strings.Contains(out, "Attempting Docker-based golangci-lint") {
		t.Fatalf("fallback must not run after a local pass, got: %s", out)
	}
}
