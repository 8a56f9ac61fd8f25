package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/pyship/pyship/internal/executor"
)

// resetFlags restores every changed flag in the command tree so values do
// not leak between Execute calls.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and captured output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeIn(t, "", args...)
}

// executeIn is execute with stdin content.
func executeIn(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	resetFlags(rootCmd)
	return out.String(), errOut.String(), err
}

// setupProject creates a small Python project tree and an isolated pyship
// home, with token variables cleared.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write(filepath.Join(root, "widget", "__init__.py"), "__version__ = \"0.1.0\"\n")
	write(filepath.Join(root, "tests", "test_widget.py"), "def test_ok():\n    assert True\n")
	write(filepath.Join(root, "pyproject.toml"), "[project]\nname = \"widget\"\nversion = \"0.1.0\"\n")

	t.Setenv("PYSHIP_HOME", t.TempDir())
	t.Setenv("PYPI_TOKEN", "")
	os.Unsetenv("PYPI_TOKEN")
	t.Setenv("TEST_PYPI_TOKEN", "")
	os.Unsetenv("TEST_PYPI_TOKEN")
	return root
}

// fakeTools puts stub executables for the whole toolchain on PATH. The
// python stub refuses -m so module fallbacks read as absent.
func fakeTools(t *testing.T, names ...string) {
	t.Helper()
	if len(names) == 0 {
		names = []string{"python3", "pytest", "black", "flake8", "mypy", "pyproject-build", "twine"}
	}
	bin := t.TempDir()
	for _, name := range names {
		var path, content string
		if runtime.GOOS == "windows" {
			path = filepath.Join(bin, name+".bat")
			content = "@echo off\r\nif \"%1\"==\"-m\" exit /b 1\r\necho " + name + " 1.0.0\r\n"
		} else {
			path = filepath.Join(bin, name)
			content = "#!/bin/sh\nif [ \"$1\" = \"-m\" ]; then exit 1; fi\necho " + name + " 1.0.0\n"
		}
		require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	}
	t.Setenv("PATH", bin)
}

// cmdRunner is an executor.Runner that records what would have run.
type cmdRunner struct {
	mu    sync.Mutex
	cmds  [][]string
	lines []string
}

func (f *cmdRunner) Run(_ context.Context, cmd executor.Command, _ io.Writer, _ io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	argv := make([]string, len(cmd.Argv))
	copy(argv, cmd.Argv)
	f.cmds = append(f.cmds, argv)
	return nil
}

func (f *cmdRunner) RunShell(_ context.Context, line, _ string, _ io.Writer, _ io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	return nil
}

func (f *cmdRunner) heads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.cmds))
	for _, c := range f.cmds {
		out = append(out, c[0])
	}
	return out
}

// withFakeRunner swaps the runner factory for the duration of the test.
func withFakeRunner(t *testing.T) *cmdRunner {
	t.Helper()
	fake := &cmdRunner{}
	orig := newRunner
	newRunner = func(_, _ bool) executor.Runner { return fake }
	t.Cleanup(func() { newRunner = orig })
	return fake
}

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
