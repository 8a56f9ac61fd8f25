// Package executor provides child process execution for workflow steps.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Command describes one child process invocation.
type Command struct {
	// Argv is the program and its arguments, executed without a shell.
	Argv []string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env holds extra KEY=VALUE entries appended to the inherited
	// environment. Values never appear in dry-run or verbose output, so
	// secrets can be passed here.
	Env []string
}

// Runner is an interface for executing commands. It allows tests to inject
// fake implementations without spawning real processes.
type Runner interface {
	Run(ctx context.Context, cmd Command, stdout io.Writer, stderr io.Writer) error
	RunShell(ctx context.Context, line string, dir string, stdout io.Writer, stderr io.Writer) error
}

// Executor runs child processes, streaming their output to the provided
// writers. With UsePTY set (Unix only) processes run under a pseudo-terminal
// so tools keep their color output; stdout and stderr are merged in that mode.
type Executor struct {
	DryRun  bool
	Verbose bool
	Shell   string // optional override for hook lines (e.g., "zsh")
	UsePTY  bool
}

// New returns a Runner backed by the real Executor implementation.
func New(dry, verbose bool) Runner {
	return &Executor{DryRun: dry, Verbose: verbose}
}

// NotFoundError reports a tool that is not installed or not on PATH.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found in PATH", e.Tool)
}

// tailBuffer keeps the last max bytes written to it, for error reporting
// without holding full process output in memory.
type tailBuffer struct {
	max int
	buf []byte
}

func newTail(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }

// Run executes cmd.Argv directly, without shell interpretation.
func (e *Executor) Run(ctx context.Context, cmd Command, stdout io.Writer, stderr io.Writer) error {
	if len(cmd.Argv) == 0 {
		return fmt.Errorf("empty command")
	}
	for i, a := range cmd.Argv {
		if err := ValidateLine(a); err != nil {
			return fmt.Errorf("invalid arg[%d]: %w", i, err)
		}
	}
	display := shellquote.Join(cmd.Argv...)
	if e.DryRun {
		_, _ = fmt.Fprintf(stdout, "dry-run: %s\n", display)
		return nil
	}
	if e.Verbose {
		_, _ = fmt.Fprintf(stdout, "+ %s\n", display)
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	return e.runStreaming(c, cmd.Argv[0], stdout, stderr)
}

// RunShell executes a single hook line through the platform shell
// (`bash -c` on Unix, `cmd /C` on Windows). The line is sanitized and
// validated first.
func (e *Executor) RunShell(ctx context.Context, line string, dir string, stdout io.Writer, stderr io.Writer) error {
	line, err := validateAndSanitize(line)
	if err != nil {
		return err
	}
	// Reject lines the shell splitter cannot parse (e.g. unbalanced quotes)
	// before the shell produces a less helpful error.
	if _, err := shellquote.Split(line); err != nil {
		return fmt.Errorf("invalid hook line: %w", err)
	}

	if e.DryRun {
		_, _ = fmt.Fprintf(stdout, "dry-run: %s\n", line)
		return nil
	}
	if e.Verbose {
		_, _ = fmt.Fprintf(stdout, "+ %s\n", line)
	}

	shell, args := shellInvocation(line, e.Shell)
	if err := validateShell(shell, args); err != nil {
		return err
	}
	c := exec.CommandContext(ctx, shell, args...)
	c.Dir = dir
	return e.runStreaming(c, line, stdout, stderr)
}

// runStreaming starts c with output attached to the writers and wraps any
// failure with the tail of what the process wrote.
func (e *Executor) runStreaming(c *exec.Cmd, desc string, stdout io.Writer, stderr io.Writer) error {
	tail := newTail(2048)
	var runErr error
	if e.UsePTY && ptySupported {
		runErr = runPTY(c, io.MultiWriter(stdout, tail))
	} else {
		c.Stdout = stdout
		c.Stderr = io.MultiWriter(stderr, tail)
		runErr = c.Run()
	}
	if runErr != nil {
		return wrapRunError(runErr, desc, tail.String())
	}
	return nil
}

func wrapRunError(err error, desc, tail string) error {
	if errors.Is(err, exec.ErrNotFound) {
		prog := desc
		if i := strings.IndexByte(prog, ' '); i > 0 {
			prog = prog[:i]
		}
		return &NotFoundError{Tool: prog}
	}
	tail = strings.TrimSpace(tail)
	if tail != "" {
		return fmt.Errorf("%s: %w (output=%q)", desc, err, tail)
	}
	return fmt.Errorf("%s: %w", desc, err)
}

// shellInvocation returns the shell executable and arguments for the
// platform. Optional `override` lets callers request an alternate shell.
func shellInvocation(line string, overrideShell string) (string, []string) {
	if overrideShell != "" {
		switch overrideShell {
		case "pwsh", "powershell":
			// Prefer the cross-platform pwsh when available; on Windows the
			// OS-provided powershell is an acceptable fallback.
			if p, err := exec.LookPath("pwsh"); err == nil {
				return p, []string{"-Command", line}
			}
			if runtime.GOOS == "windows" {
				return "powershell", []string{"-Command", line}
			}
			return "pwsh", []string{"-Command", line}
		default:
			return overrideShell, []string{"-c", line}
		}
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", line}
	}
	return "bash", []string{"-c", line}
}

func validateShell(shell string, args []string) error {
	// Ensure the shell is available on PATH to avoid opaque start errors.
	if _, err := exec.LookPath(shell); err != nil {
		return fmt.Errorf("shell not found in PATH: %s", shell)
	}
	for i, a := range args {
		if strings.IndexFunc(a, func(r rune) bool { return r == 0 || (r < 32 && r != '\t') || r == 0x7f }) != -1 {
			return fmt.Errorf("invalid shell arg[%d]: contains control characters", i)
		}
	}
	return nil
}

// sanitizeLine normalizes common unicode characters that often get inserted
// by editors (e.g., smart quotes, NBSP, zero-width spaces) and converts them
// to their ASCII equivalents where sensible.
func sanitizeLine(s string) string {
	r := strings.NewReplacer(
		"‘", "'", // left single quote
		"’", "'", // right single quote
		"“", "\"", // left double quote
		"”", "\"", // right double quote
		" ", " ", // NO-BREAK SPACE
		"​", "", // zero width space
		"‎", "", // left-to-right mark
		"‏", "", // right-to-left mark
	)
	rp := r.Replace(s)
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, rp)
}

// Sanitize normalizes common unicode punctuation and removes embedded null
// and other invisible runes. Exported for callers that sanitize user-edited
// hook lines at save time.
func Sanitize(s string) string {
	return sanitizeLine(s)
}

func validateAndSanitize(line string) (string, error) {
	line = sanitizeLine(line)
	if err := ValidateLine(line); err != nil {
		return "", err
	}
	return line, nil
}

// ValidateLine checks for characters that will cause execution to fail
// (newlines and control characters) and returns an error describing the
// problem if one is found.
func ValidateLine(s string) error {
	if strings.Contains(s, "\n") {
		return fmt.Errorf("contains newline characters; each command must be a single line")
	}
	if strings.IndexFunc(s, func(r rune) bool { return r == 0 || (r < 32 && r != '\t') || r == 0x7f }) != -1 {
		return fmt.Errorf("contains control characters; remove non-printable characters")
	}
	return nil
}
