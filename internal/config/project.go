package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pyship/pyship/internal/nameutil"
)

// FileName is the per-project configuration file looked up in the project root.
const FileName = ".pyship.yaml"

// Step names accepted as hook keys.
var hookSteps = map[string]bool{
	"clean":   true,
	"lint":    true,
	"test":    true,
	"build":   true,
	"publish": true,
}

// Project holds per-project settings read from .pyship.yaml. All fields are
// optional; zero values fall back to detection against the project tree.
type Project struct {
	// Name is the distribution name as published on the index. Defaults to
	// the detected package directory name.
	Name string `yaml:"name"`
	// Package is the directory type-checked by mypy, e.g. "src/mypkg".
	Package string `yaml:"package"`
	// Tests is the directory passed to pytest. Defaults to "tests".
	Tests string `yaml:"tests"`
	// Python overrides interpreter discovery ("python3" then "python").
	Python string `yaml:"python"`
	// PytestArgs are extra arguments appended to every pytest invocation.
	PytestArgs []string `yaml:"pytest_args"`

	Lint  Lint            `yaml:"lint"`
	Hooks map[string]Hook `yaml:"hooks"`
}

// Lint toggles individual checkers. Unset means enabled.
type Lint struct {
	Black  *bool `yaml:"black"`
	Flake8 *bool `yaml:"flake8"`
	Mypy   *bool `yaml:"mypy"`
}

func enabled(v *bool) bool { return v == nil || *v }

func (l Lint) BlackEnabled() bool  { return enabled(l.Black) }
func (l Lint) Flake8Enabled() bool { return enabled(l.Flake8) }
func (l Lint) MypyEnabled() bool   { return enabled(l.Mypy) }

// Hook lists shell lines run around a step.
type Hook struct {
	Before []string `yaml:"before"`
	After  []string `yaml:"after"`
}

// DefaultProject returns the settings pyship assumes when no config file is
// present, with the package directory detected from the tree under root.
func DefaultProject(root string) *Project {
	pkg := DetectPackage(root)
	name := filepath.Base(root)
	if pkg != "" {
		name = filepath.Base(pkg)
	}
	return &Project{
		Name:       name,
		Package:    pkg,
		Tests:      "tests",
		PytestArgs: []string{"-v"},
	}
}

// LoadProject reads root/.pyship.yaml over the detected defaults. A missing
// file is not an error.
func LoadProject(root string) (*Project, error) {
	cfg := DefaultProject(root)

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	return parseProject(cfg, data, FileName)
}

// LoadProjectFile reads an explicit config file over the detected defaults.
// Unlike LoadProject, the file must exist.
func LoadProjectFile(root, path string) (*Project, error) {
	cfg := DefaultProject(root)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseProject(cfg, data, path)
}

func parseProject(cfg *Project, data []byte, name string) (*Project, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	// Names pasted into YAML pick up zero-width junk surprisingly often.
	if s, changed := nameutil.SanitizeName(cfg.Name); changed {
		cfg.Name = s
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Validate rejects settings that would silently misbehave later.
func (p *Project) Validate() error {
	if err := nameutil.ValidateName(p.Name); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	keys := make([]string, 0, len(p.Hooks))
	for k := range p.Hooks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !hookSteps[k] {
			return fmt.Errorf("hooks: unknown step %q", k)
		}
	}
	return nil
}

// DetectPackage locates the Python package directory under root. The src
// layout wins over the flat layout; tests and tool directories never match.
func DetectPackage(root string) string {
	if pkg := packageIn(filepath.Join(root, "src")); pkg != "" {
		return filepath.Join("src", pkg)
	}
	return packageIn(root)
}

var skipDirs = map[string]bool{
	"tests":    true,
	"test":     true,
	"docs":     true,
	"build":    true,
	"dist":     true,
	"examples": true,
	"venv":     true,
	".venv":    true,
}

func packageIn(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if skipDirs[name] || name[0] == '.' || name[0] == '_' {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name, "__init__.py")); err == nil {
			return name
		}
	}
	return ""
}
