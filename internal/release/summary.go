package release

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pyship/pyship/internal/executor"
	"github.com/pyship/pyship/internal/pipeline"
	"github.com/pyship/pyship/internal/toolchain"
)

var (
	styleStep = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5a4"))
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	styleFail = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))
	styleSkip = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
)

func statusStyle(s pipeline.Status) lipgloss.Style {
	switch s {
	case pipeline.StatusOK:
		return styleOK
	case pipeline.StatusFailed:
		return styleFail
	default:
		return styleSkip
	}
}

func (o *Orchestrator) printStepStart(name string) {
	fmt.Fprintf(o.cfg.Out, "%s %s\n", styleStep.Render("==>"), name)
}

func (o *Orchestrator) printStepDone(res pipeline.StepResult) {
	switch res.Status {
	case pipeline.StatusOK:
		fmt.Fprintf(o.cfg.Out, "%s %s (%s)\n", styleOK.Render("ok"), res.Name, formatDuration(res.Duration))
	case pipeline.StatusFailed:
		fmt.Fprintf(o.cfg.Out, "%s %s (%s)\n", styleFail.Render("failed"), res.Name, formatDuration(res.Duration))
	}
	// Skipped steps only show up in the summary.
}

// printSummary recaps multi-step runs and always prints the final verdict.
func (o *Orchestrator) printSummary(plan Plan, res pipeline.Result, total time.Duration) {
	if len(res.Steps) > 1 {
		fmt.Fprintln(o.cfg.Out)
		for _, s := range res.Steps {
			dur := "-"
			if s.Status != pipeline.StatusSkipped {
				dur = formatDuration(s.Duration)
			}
			status := statusStyle(s.Status).Render(fmt.Sprintf("%-8s", string(s.Status)))
			fmt.Fprintf(o.cfg.Out, "  %s %-8s %s\n", status, s.Name, styleSkip.Render(dur))
		}
	}

	switch {
	case o.cfg.DryRun:
		fmt.Fprintln(o.cfg.Out, styleSkip.Render(plan.Command+" dry-run complete; nothing was executed"))
	case res.Err != nil:
		fmt.Fprintf(o.cfg.Out, "%s after %s\n", styleFail.Render(plan.Command+" failed"), formatDuration(total))
	default:
		fmt.Fprintf(o.cfg.Out, "%s in %s\n", styleOK.Render(plan.Command+" ok"), formatDuration(total))
	}
}

// printHints appends remediation for failures with a known fix.
func (o *Orchestrator) printHints(runErr error) {
	var nf *executor.NotFoundError
	if errors.As(runErr, &nf) {
		if hint := toolchain.Hint(nf.Tool); hint != "" {
			fmt.Fprintf(o.cfg.Err, "hint: %s\n", hint)
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
