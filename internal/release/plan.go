// Package release turns the workflow commands into executable pipelines:
// which steps run, in what order, and with which pre-flight checks.
package release

import (
	"sort"

	"github.com/pyship/pyship/internal/pypi"
)

// Step names used in plans, step results, and hook config.
const (
	StepClean   = "clean"
	StepLint    = "lint"
	StepTest    = "test"
	StepBuild   = "build"
	StepPublish = "publish"
)

// Plan is the resolved shape of one workflow command.
type Plan struct {
	// Command is the CLI name the plan belongs to.
	Command string
	// Steps run in order; each step only starts after the previous succeeded.
	Steps []string
	// Index is set when the plan ends with an upload.
	Index *pypi.Index
	// Confirm asks before running. Only release sets it; the staging index
	// and the explicit pypi command are treated as deliberate.
	Confirm bool
}

// Publishes reports whether the plan ends with an upload.
func (p Plan) Publishes() bool { return p.Index != nil }

var plans = map[string]Plan{
	"clean": {Command: "clean", Steps: []string{StepClean}},
	"lint":  {Command: "lint", Steps: []string{StepLint}},
	"test":  {Command: "test", Steps: []string{StepTest}},
	"build": {Command: "build", Steps: []string{StepClean, StepBuild}},
	"test-pypi": {
		Command: "test-pypi",
		Steps:   []string{StepClean, StepBuild, StepPublish},
		Index:   &pypi.TestPyPI,
	},
	"pypi": {
		Command: "pypi",
		Steps:   []string{StepClean, StepBuild, StepPublish},
		Index:   &pypi.PyPI,
	},
	"all": {Command: "all", Steps: []string{StepClean, StepLint, StepTest, StepBuild}},
	"release": {
		Command: "release",
		Steps:   []string{StepClean, StepLint, StepTest, StepBuild, StepPublish},
		Index:   &pypi.PyPI,
		Confirm: true,
	},
}

// PlanFor returns the plan for a workflow command.
func PlanFor(command string) (Plan, bool) {
	p, ok := plans[command]
	return p, ok
}

// Commands returns the workflow command names, sorted.
func Commands() []string {
	out := make([]string, 0, len(plans))
	for name := range plans {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
