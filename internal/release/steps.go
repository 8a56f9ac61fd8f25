package release

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pyship/pyship/internal/artifacts"
	"github.com/pyship/pyship/internal/config"
	"github.com/pyship/pyship/internal/credentials"
	"github.com/pyship/pyship/internal/executor"
	"github.com/pyship/pyship/internal/pipeline"
	"github.com/pyship/pyship/internal/pypi"
	"github.com/pyship/pyship/internal/security"
	"github.com/pyship/pyship/internal/toolchain"
)

// buildSteps turns a plan into pipeline steps. Tool resolution happens here,
// before anything runs, so a missing tool stops the run with zero side
// effects. Steps are chained: each needs the one declared before it.
func (o *Orchestrator) buildSteps(plan Plan, python string, token credentials.Token) ([]pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(plan.Steps))
	prev := ""
	for _, name := range plan.Steps {
		var (
			step pipeline.Step
			err  error
		)
		switch name {
		case StepClean:
			step = o.stepClean()
		case StepLint:
			step, err = o.stepLint(python)
		case StepTest:
			step, err = o.stepTest(python)
		case StepBuild:
			step, err = o.stepBuild(python)
		case StepPublish:
			step, err = o.stepPublish(python, *plan.Index, token)
		default:
			err = fmt.Errorf("no builder for step %q", name)
		}
		if err != nil {
			return nil, err
		}
		if prev != "" {
			step.Needs = []string{prev}
		}
		o.attachHooks(&step)
		steps = append(steps, step)
		prev = name
	}
	return steps, nil
}

// attachHooks adds the project's before/after hook lines to a step. After
// hooks run behind anything the builder itself queued (artifact listing).
func (o *Orchestrator) attachHooks(step *pipeline.Step) {
	hook, ok := o.cfg.Project.Hooks[step.Name]
	if !ok {
		return
	}
	for i, line := range hook.Before {
		step.Before = append(step.Before, o.hookTask("before", i, line))
	}
	for i, line := range hook.After {
		step.After = append(step.After, o.hookTask("after", i, line))
	}
}

func (o *Orchestrator) hookTask(kind string, i int, line string) pipeline.Task {
	return pipeline.Task{
		Name: fmt.Sprintf("%s hook %d", kind, i+1),
		Run: func(ctx context.Context) error {
			if !o.cfg.ForceHooks {
				if err := security.CheckHookLine(line); err != nil {
					return fmt.Errorf("refusing %q: %w (use --force to override)", line, err)
				}
			}
			if !o.cfg.DryRun {
				fmt.Fprintf(o.cfg.Out, "-> %s\n", line)
			}
			return o.cfg.Runner.RunShell(ctx, line, o.cfg.Root, o.cfg.Out, o.cfg.Err)
		},
	}
}

func (o *Orchestrator) stepClean() pipeline.Step {
	task := pipeline.Task{Name: "clean", Run: func(ctx context.Context) error {
		if o.cfg.DryRun {
			targets, err := artifacts.Targets(o.cfg.Root)
			if err != nil {
				return err
			}
			for _, rel := range targets {
				fmt.Fprintf(o.cfg.Out, "dry-run: would remove %s\n", rel)
			}
			if len(targets) == 0 {
				fmt.Fprintln(o.cfg.Out, "dry-run: nothing to remove")
			}
			return nil
		}
		removed, err := artifacts.Clean(o.cfg.Root)
		if err != nil {
			return err
		}
		for _, rel := range removed {
			fmt.Fprintf(o.cfg.Out, "removed %s\n", rel)
		}
		if len(removed) == 0 {
			fmt.Fprintln(o.cfg.Out, "nothing to remove")
		}
		return nil
	}}
	return pipeline.Step{Name: StepClean, Tasks: []pipeline.Task{task}}
}

// stepLint runs the enabled checkers concurrently. Each checker's output is
// buffered and flushed whole once it finishes, so findings never interleave.
func (o *Orchestrator) stepLint(python string) (pipeline.Step, error) {
	var (
		tasks []pipeline.Task
		mu    sync.Mutex
	)
	add := func(toolName string, extra ...string) error {
		tool, _ := toolchain.Lookup(toolName)
		argv, err := toolchain.Resolve(python, tool)
		if err != nil {
			return err
		}
		argv = append(argv, extra...)
		tasks = append(tasks, pipeline.Task{Name: toolName, Run: func(ctx context.Context) error {
			var buf bytes.Buffer
			runErr := o.cfg.Runner.Run(ctx, executor.Command{Argv: argv, Dir: o.cfg.Root}, &buf, &buf)
			mu.Lock()
			defer mu.Unlock()
			if buf.Len() > 0 {
				fmt.Fprintln(o.cfg.Out, styleStep.Render("["+toolName+"]"))
				_, _ = io.Copy(o.cfg.Out, &buf)
			}
			return runErr
		}})
		return nil
	}

	lint := o.cfg.Project.Lint
	if lint.BlackEnabled() {
		if err := add("black", "--check", "."); err != nil {
			return pipeline.Step{}, err
		}
	}
	if lint.Flake8Enabled() {
		if err := add("flake8", "."); err != nil {
			return pipeline.Step{}, err
		}
	}
	if lint.MypyEnabled() {
		target := o.cfg.Project.Package
		if target == "" {
			target = "."
		}
		if err := add("mypy", target); err != nil {
			return pipeline.Step{}, err
		}
	}
	if len(tasks) == 0 {
		tasks = append(tasks, pipeline.Task{Name: "lint", Run: func(context.Context) error {
			fmt.Fprintf(o.cfg.Out, "lint: all checkers disabled in %s\n", config.FileName)
			return nil
		}})
	}
	return pipeline.Step{Name: StepLint, Tasks: tasks}, nil
}

func (o *Orchestrator) stepTest(python string) (pipeline.Step, error) {
	tool, _ := toolchain.Lookup("pytest")
	argv, err := toolchain.Resolve(python, tool)
	if err != nil {
		return pipeline.Step{}, err
	}
	argv = append(argv, o.cfg.Project.PytestArgs...)
	if t := o.cfg.Project.Tests; t != "" {
		argv = append(argv, t)
	}
	task := pipeline.Task{Name: "pytest", Run: func(ctx context.Context) error {
		return o.cfg.Runner.Run(ctx, executor.Command{Argv: argv, Dir: o.cfg.Root}, o.cfg.Out, o.cfg.Err)
	}}
	return pipeline.Step{Name: StepTest, Tasks: []pipeline.Task{task}}, nil
}

func (o *Orchestrator) stepBuild(python string) (pipeline.Step, error) {
	tool, _ := toolchain.Lookup("build")
	argv, err := toolchain.Resolve(python, tool)
	if err != nil {
		return pipeline.Step{}, err
	}
	step := pipeline.Step{Name: StepBuild, Tasks: []pipeline.Task{{
		Name: "build",
		Run: func(ctx context.Context) error {
			err := o.cfg.Runner.Run(ctx, executor.Command{Argv: argv, Dir: o.cfg.Root}, o.cfg.Out, o.cfg.Err)
			if err == nil || o.cfg.DryRun {
				return err
			}
			return o.setupPyFallback(ctx, python, err)
		},
	}}}
	if !o.cfg.DryRun {
		step.After = []pipeline.Task{{Name: "artifacts", Run: o.printArtifacts}}
	}
	return step, nil
}

// setupPyFallback retries a failed build through setup.py. Only the exact
// missing-module failure qualifies; a real build error must not run twice.
func (o *Orchestrator) setupPyFallback(ctx context.Context, python string, buildErr error) error {
	if python == "" || !strings.Contains(buildErr.Error(), "No module named build") {
		return buildErr
	}
	if _, err := os.Stat(filepath.Join(o.cfg.Root, "setup.py")); err != nil {
		return buildErr
	}
	fmt.Fprintln(o.cfg.Err, "build module not installed; falling back to setup.py")
	argv := []string{python, "setup.py", "sdist", "bdist_wheel"}
	return o.cfg.Runner.Run(ctx, executor.Command{Argv: argv, Dir: o.cfg.Root}, o.cfg.Out, o.cfg.Err)
}

func (o *Orchestrator) printArtifacts(context.Context) error {
	arts, err := artifacts.List(filepath.Join(o.cfg.Root, "dist"))
	if err != nil {
		return err
	}
	if len(arts) == 0 {
		fmt.Fprintln(o.cfg.Err, "warning: build produced no artifacts in dist/")
		return nil
	}
	fmt.Fprintln(o.cfg.Out, "built:")
	for _, a := range arts {
		fmt.Fprintf(o.cfg.Out, "  %s (%s, sha256 %s)\n", a.Name, a.HumanSize(), a.SHA256[:12])
	}
	return nil
}

// stepPublish uploads dist/ with twine. The token travels in the child
// process environment only; it is never part of the argv and never printed.
func (o *Orchestrator) stepPublish(python string, idx pypi.Index, token credentials.Token) (pipeline.Step, error) {
	tool, _ := toolchain.Lookup("twine")
	base, err := toolchain.Resolve(python, tool)
	if err != nil {
		return pipeline.Step{}, err
	}
	task := pipeline.Task{Name: "twine", Run: func(ctx context.Context) error {
		argv := append([]string(nil), base...)
		argv = append(argv, "upload", "--non-interactive", "--repository-url", idx.UploadURL)
		if o.cfg.SkipExisting {
			argv = append(argv, "--skip-existing")
		}

		if o.cfg.DryRun {
			argv = append(argv, "dist/*")
			return o.cfg.Runner.Run(ctx, executor.Command{Argv: argv, Dir: o.cfg.Root}, o.cfg.Out, o.cfg.Err)
		}

		arts, err := artifacts.List(filepath.Join(o.cfg.Root, "dist"))
		if err != nil {
			return err
		}
		if len(arts) == 0 {
			return fmt.Errorf("dist/ is empty; run `pyship build` first")
		}
		if name, version, ok := artifacts.Metadata(arts); ok {
			if err := o.preflightVersion(ctx, idx, name, version); err != nil {
				return err
			}
		}

		fmt.Fprintf(o.cfg.Out, "uploading to %s (token from %s):\n", idx.Display, token.Source)
		for _, a := range arts {
			fmt.Fprintf(o.cfg.Out, "  %s (%s)\n", a.Name, a.HumanSize())
		}
		argv = append(argv, artifacts.Paths(arts)...)
		env := []string{"TWINE_USERNAME=__token__", "TWINE_PASSWORD=" + token.Value}
		return o.cfg.Runner.Run(ctx, executor.Command{Argv: argv, Dir: o.cfg.Root, Env: env}, o.cfg.Out, o.cfg.Err)
	}}
	return pipeline.Step{Name: StepPublish, Tasks: []pipeline.Task{task}}, nil
}

// preflightVersion asks the index whether this exact release already exists.
// An unreachable index only warns; twine gets the final say.
func (o *Orchestrator) preflightVersion(ctx context.Context, idx pypi.Index, name, version string) error {
	exists, err := o.cfg.CheckRelease(ctx, idx, name, version)
	if err != nil {
		fmt.Fprintf(o.cfg.Err, "warning: could not check %s for %s %s: %v\n", idx.Display, name, version, err)
		return nil
	}
	if !exists {
		return nil
	}
	if o.cfg.SkipExisting {
		fmt.Fprintf(o.cfg.Out, "%s %s already on %s; duplicates will be skipped\n", name, version, idx.Display)
		return nil
	}
	return fmt.Errorf("%s %s is already on %s; bump the version or pass --skip-existing", name, version, idx.Display)
}
