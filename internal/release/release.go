package release

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pyship/pyship/internal/config"
	"github.com/pyship/pyship/internal/credentials"
	"github.com/pyship/pyship/internal/executor"
	"github.com/pyship/pyship/internal/history"
	"github.com/pyship/pyship/internal/interactive"
	"github.com/pyship/pyship/internal/pipeline"
	"github.com/pyship/pyship/internal/pypi"
	"github.com/pyship/pyship/internal/toolchain"
)

// Config wires an Orchestrator. Root and Project must be set; nil writers
// fall back to the standard streams.
type Config struct {
	Root    string
	Project *config.Project
	Runner  executor.Runner

	Out io.Writer
	Err io.Writer
	In  io.Reader

	// History records runs when non-nil. Dry runs are never recorded.
	History *history.Repository
	// Source tags recorded runs (cli, watch, tui).
	Source string

	DryRun       bool
	AssumeYes    bool
	SkipExisting bool
	// ForceHooks runs hook lines even when the safety screen rejects them.
	ForceHooks bool

	// CheckRelease reports whether name/version is already on idx. Nil uses
	// the index JSON API.
	CheckRelease func(ctx context.Context, idx pypi.Index, name, version string) (bool, error)
}

// Orchestrator executes workflow commands against one project.
type Orchestrator struct {
	cfg Config
}

// New fills Config defaults and returns an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Err == nil {
		cfg.Err = os.Stderr
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Source == "" {
		cfg.Source = history.SourceCLI
	}
	if cfg.CheckRelease == nil {
		cfg.CheckRelease = checkOnIndex
	}
	return &Orchestrator{cfg: cfg}
}

func checkOnIndex(ctx context.Context, idx pypi.Index, name, version string) (bool, error) {
	client := pypi.NewClient(pypi.DefaultClientConfig(idx))
	return client.ReleaseExists(ctx, name, version)
}

// Run executes the named workflow command from start to finish: credential
// and confirmation gates, the step pipeline, history recording, and the
// summary. The returned error is the failure that stopped the run.
func (o *Orchestrator) Run(ctx context.Context, command string) error {
	plan, ok := PlanFor(command)
	if !ok {
		return fmt.Errorf("unknown command %q", command)
	}

	// Publishing requires a token before anything runs, so a half-finished
	// run can never be how a token problem gets discovered.
	var token credentials.Token
	if plan.Publishes() {
		tok, found, err := credentials.Resolve(*plan.Index)
		if err != nil {
			return fmt.Errorf("resolve %s token: %w", plan.Index.Display, err)
		}
		if !found {
			fmt.Fprint(o.cfg.Err, credentials.MissingMessage(*plan.Index))
			return fmt.Errorf("%s not set", plan.Index.TokenEnv)
		}
		token = tok
	}

	if plan.Confirm && !o.cfg.AssumeYes && !o.cfg.DryRun {
		prompt := fmt.Sprintf("Release %s to %s?", o.cfg.Project.Name, plan.Index.Display)
		if !interactive.Confirm(o.cfg.In, o.cfg.Out, prompt) {
			fmt.Fprintln(o.cfg.Out, "release aborted")
			return nil
		}
	}

	// Interpreter discovery is best effort here: each step resolves the
	// tools it needs and reports what is missing.
	python, _ := toolchain.Interpreter(o.cfg.Project.Python)

	steps, err := o.buildSteps(plan, python, token)
	if err != nil {
		return err
	}
	pipe, err := pipeline.New(steps...)
	if err != nil {
		return err
	}

	runID := o.startHistory(plan)
	start := time.Now()
	res := pipe.Execute(ctx, pipeline.Options{
		OnStepStart: o.printStepStart,
		OnStepDone:  o.printStepDone,
	})
	o.finishHistory(ctx, runID, res)

	o.printSummary(plan, res, time.Since(start))
	if res.Err != nil {
		o.printHints(res.Err)
	}
	return res.Err
}

// startHistory records the run start and returns its id, or "" when
// recording is off. Recording problems never stop a run.
func (o *Orchestrator) startHistory(plan Plan) string {
	if o.cfg.History == nil || o.cfg.DryRun {
		return ""
	}
	id, err := o.cfg.History.StartRun(plan.Command, o.cfg.Project.Name, o.cfg.Root, o.cfg.Source)
	if err != nil {
		fmt.Fprintf(o.cfg.Err, "warning: history: %v\n", err)
		return ""
	}
	return id
}

func (o *Orchestrator) finishHistory(ctx context.Context, runID string, res pipeline.Result) {
	if runID == "" {
		return
	}
	status := history.StatusOK
	switch {
	case ctx.Err() != nil:
		status = history.StatusAborted
	case res.Err != nil:
		status = history.StatusFailed
	}
	steps := make([]history.StepResult, 0, len(res.Steps))
	for i, s := range res.Steps {
		steps = append(steps, history.StepResult{
			Position: i,
			Name:     s.Name,
			Status:   string(s.Status),
			Duration: s.Duration,
		})
	}
	if err := o.cfg.History.FinishRun(runID, status, res.Err, steps); err != nil {
		fmt.Fprintf(o.cfg.Err, "warning: history: %v\n", err)
	}
}
