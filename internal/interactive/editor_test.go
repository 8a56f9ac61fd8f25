package interactive

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeFakeEditor(t *testing.T, dir, body string) string {
	t.Helper()
	name := "fake-editor.sh"
	if runtime.GOOS == "windows" {
		name = "fake-editor.bat"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestOpenEditor_Success(t *testing.T) {
	d := t.TempDir()
	marker := filepath.Join(d, "marker.txt")
	var script string
	if runtime.GOOS == "windows" {
		script = "@echo off\r\necho ok > \"" + marker + "\"\r\nexit /b 0\r\n"
	} else {
		script = "#!/bin/sh\nprintf 'ok' > \"" + marker + "\"\nexit 0\n"
	}
	t.Setenv("EDITOR", writeFakeEditor(t, d, script))

	if err := OpenEditor(filepath.Join(d, "dummy.txt")); err != nil {
		t.Fatalf("OpenEditor failed: %v", err)
	}

	b, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("marker not written: %v", err)
	}
	if strings.TrimSpace(string(b)) != "ok" {
		t.Fatalf("unexpected marker content: %q", string(b))
	}
}

func TestOpenEditor_Failure(t *testing.T) {
	d := t.TempDir()
	var script string
	if runtime.GOOS == "windows" {
		script = "@echo off\r\nexit /b 1\r\n"
	} else {
		script = "#!/bin/sh\nexit 1\n"
	}
	t.Setenv("EDITOR", writeFakeEditor(t, d, script))

	if err := OpenEditor(filepath.Join(d, "dummy.txt")); err == nil {
		t.Fatalf("expected error from failing editor, got nil")
	}
}
