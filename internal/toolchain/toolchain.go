// Package toolchain discovers the Python tools a workflow depends on.
package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tool describes one external tool pyship invokes.
type Tool struct {
	// Name is the tool's display and lookup name.
	Name string
	// Bin is the executable looked up on PATH when it differs from Name.
	Bin string
	// Module is the `python -m` fallback when the executable is absent.
	Module  string
	Purpose string
	// Install is the remediation hint shown when the tool is missing.
	Install string
}

func (t Tool) binary() string {
	if t.Bin != "" {
		return t.Bin
	}
	return t.Name
}

// Status is the result of probing one tool.
type Status struct {
	Tool    Tool
	Path    string
	Version string
	Err     error
}

// OK reports whether the tool was found.
func (s Status) OK() bool { return s.Err == nil }

// Hooks for tests.
var (
	lookPath      = exec.LookPath
	versionOutput = func(ctx context.Context, name string, args ...string) (string, error) {
		out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
		return strings.TrimSpace(string(out)), err
	}
)

// tools lists every known tool in doctor display order.
var tools = []Tool{
	{Name: "pytest", Module: "pytest", Purpose: "test runner", Install: "pip install pytest"},
	{Name: "black", Module: "black", Purpose: "code formatter", Install: "pip install black"},
	{Name: "flake8", Module: "flake8", Purpose: "style checker", Install: "pip install flake8"},
	{Name: "mypy", Module: "mypy", Purpose: "type checker", Install: "pip install mypy"},
	{Name: "build", Bin: "pyproject-build", Module: "build", Purpose: "PEP 517 package builder", Install: "pip install build"},
	{Name: "twine", Module: "twine", Purpose: "package uploader", Install: "pip install twine"},
}

// Tools returns the known tools.
func Tools() []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}

// Lookup returns the tool definition for name.
func Lookup(name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Hint returns the install hint for a tool name, or "" when unknown.
func Hint(name string) string {
	if t, ok := Lookup(name); ok {
		return t.Install
	}
	return ""
}

// Interpreter resolves the Python interpreter. An explicit override wins;
// otherwise python3 is preferred over python.
func Interpreter(override string) (string, error) {
	candidates := []string{"python3", "python"}
	if override != "" {
		candidates = []string{override}
	}
	for _, c := range candidates {
		if _, err := lookPath(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("python interpreter not found in PATH (tried %s)", strings.Join(candidates, ", "))
}

// Resolve returns the argv prefix that invokes t, preferring the executable
// on PATH over `python -m`. It never spawns anything; a module that turns out
// not to be installed surfaces when the command itself runs.
func Resolve(python string, t Tool) ([]string, error) {
	if _, err := lookPath(t.binary()); err == nil {
		return []string{t.binary()}, nil
	}
	if t.Module != "" && python != "" {
		if _, err := lookPath(python); err == nil {
			return []string{python, "-m", t.Module}, nil
		}
	}
	return nil, fmt.Errorf("%s not found (%s)", t.Name, t.Install)
}

// Probe checks whether a tool is runnable, preferring its executable and
// falling back to `python -m` when a module name is known.
func Probe(ctx context.Context, python string, t Tool) Status {
	s := Status{Tool: t}
	if path, err := lookPath(t.binary()); err == nil {
		s.Path = path
		s.Version = firstLine(probeVersion(ctx, t.binary()))
		return s
	}
	if t.Module != "" && python != "" {
		if out, err := versionOutput(ctx, python, "-m", t.Module, "--version"); err == nil {
			s.Path = python + " -m " + t.Module
			s.Version = firstLine(out)
			return s
		}
	}
	s.Err = fmt.Errorf("%s not found (%s)", t.Name, t.Install)
	return s
}

// Inspect probes the interpreter and every known tool.
func Inspect(ctx context.Context, pythonOverride string) (string, []Status) {
	python, err := Interpreter(pythonOverride)
	statuses := make([]Status, 0, len(tools)+1)

	pyStatus := Status{Tool: Tool{Name: "python", Purpose: "interpreter", Install: "install Python 3.8+ from python.org"}}
	if err != nil {
		pyStatus.Err = err
	} else {
		if path, perr := lookPath(python); perr == nil {
			pyStatus.Path = path
		}
		pyStatus.Version = firstLine(probeVersion(ctx, python))
	}
	statuses = append(statuses, pyStatus)

	for _, t := range tools {
		statuses = append(statuses, Probe(ctx, python, t))
	}
	return python, statuses
}

func probeVersion(ctx context.Context, bin string) string {
	out, err := versionOutput(ctx, bin, "--version")
	if err != nil {
		return ""
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
