// Package pipeline runs named steps in dependency order. Steps execute
// sequentially and the run stops at the first failed step; tasks inside a
// step run concurrently and all of them finish even when one fails, so a
// step's report covers every task.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work inside a step.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Step is a named phase of a run. Before and After tasks run sequentially
// around the concurrent Tasks; After only runs when everything else in the
// step succeeded.
type Step struct {
	Name   string
	Needs  []string
	Before []Task
	Tasks  []Task
	After  []Task
}

// Status describes how a step ended.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult reports one executed (or skipped) step.
type StepResult struct {
	Name     string
	Status   Status
	Duration time.Duration
	Err      error
}

// Result reports a whole run. Err is the error of the step that stopped the
// run, nil when every step succeeded.
type Result struct {
	Steps []StepResult
	Err   error
}

// Failed reports whether the run stopped early.
func (r Result) Failed() bool { return r.Err != nil }

// Options tunes execution and lets callers observe step boundaries.
type Options struct {
	// Parallelism caps concurrent tasks within a step. Zero means no cap.
	Parallelism int
	OnStepStart func(name string)
	OnStepDone  func(res StepResult)
}

// Pipeline is a validated set of steps with a resolved execution order.
type Pipeline struct {
	steps map[string]Step
	order []string
}

// New validates the steps and resolves their execution order. Order follows
// declaration order except where Needs forces a step later.
func New(steps ...Step) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, errors.New("pipeline needs at least one step")
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	position := make(map[string]int, len(steps))
	byName := make(map[string]Step, len(steps))

	for i, s := range steps {
		if s.Name == "" {
			return nil, errors.New("step with empty name")
		}
		if _, ok := byName[s.Name]; ok {
			return nil, errors.Errorf("duplicate step %q", s.Name)
		}
		if err := g.AddVertex(s.Name); err != nil {
			return nil, errors.Wrapf(err, "step %q", s.Name)
		}
		byName[s.Name] = s
		position[s.Name] = i
	}

	for _, s := range steps {
		for _, need := range s.Needs {
			if _, ok := byName[need]; !ok {
				return nil, errors.Errorf("step %q needs unknown step %q", s.Name, need)
			}
			if err := g.AddEdge(need, s.Name); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, errors.Errorf("step %q cannot depend on %q: dependency cycle", s.Name, need)
				}
				return nil, errors.Wrapf(err, "step %q needs %q", s.Name, need)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return position[a] < position[b]
	})
	if err != nil {
		return nil, errors.Wrap(err, "resolve step order")
	}

	return &Pipeline{steps: byName, order: order}, nil
}

// Order returns the step names in execution order.
func (p *Pipeline) Order() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Execute runs the steps in order. The first failed step stops the run and
// every remaining step is reported as skipped.
func (p *Pipeline) Execute(ctx context.Context, opts Options) Result {
	var res Result
	for _, name := range p.order {
		step := p.steps[name]

		if res.Err != nil || ctx.Err() != nil {
			if res.Err == nil {
				res.Err = errors.Wrap(ctx.Err(), "run interrupted")
			}
			sr := StepResult{Name: name, Status: StatusSkipped}
			res.Steps = append(res.Steps, sr)
			if opts.OnStepDone != nil {
				opts.OnStepDone(sr)
			}
			continue
		}

		if opts.OnStepStart != nil {
			opts.OnStepStart(name)
		}
		start := time.Now()
		err := runStep(ctx, step, opts.Parallelism)
		sr := StepResult{Name: name, Duration: time.Since(start)}
		if err != nil {
			sr.Status = StatusFailed
			sr.Err = errors.Wrap(err, name)
			res.Err = sr.Err
		} else {
			sr.Status = StatusOK
		}
		res.Steps = append(res.Steps, sr)
		if opts.OnStepDone != nil {
			opts.OnStepDone(sr)
		}
	}
	return res
}

func runStep(ctx context.Context, step Step, parallelism int) error {
	for _, t := range step.Before {
		if err := t.Run(ctx); err != nil {
			return errors.Wrap(err, t.Name)
		}
	}

	if err := runTasks(ctx, step.Tasks, parallelism); err != nil {
		return err
	}

	for _, t := range step.After {
		if err := t.Run(ctx); err != nil {
			return errors.Wrap(err, t.Name)
		}
	}
	return nil
}

// runTasks starts every task and always waits for all of them. A plain
// errgroup (no derived context) keeps siblings running when one task fails,
// so a failing checker does not hide the others' findings.
func runTasks(ctx context.Context, tasks []Task, parallelism int) error {
	switch len(tasks) {
	case 0:
		return nil
	case 1:
		// The step wrap in Execute already names the work.
		return tasks[0].Run(ctx)
	}

	var grp errgroup.Group
	if parallelism > 0 {
		grp.SetLimit(parallelism)
	}
	taskErrs := make([]error, len(tasks))
	for i, t := range tasks {
		i, t := i, t
		grp.Go(func() error {
			taskErrs[i] = t.Run(ctx)
			return nil
		})
	}
	_ = grp.Wait()

	var failed []string
	var firstErr error
	for i, err := range taskErrs {
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = errors.Wrap(err, tasks[i].Name)
		}
		failed = append(failed, errors.Wrap(err, tasks[i].Name).Error())
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return firstErr
	}
	return errors.Errorf("%d tasks failed: %s", len(failed), strings.Join(failed, "; "))
}
