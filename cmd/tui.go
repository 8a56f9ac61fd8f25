package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pyship/pyship/cmd/tui/ui"
	"github.com/pyship/pyship/internal/db"
	"github.com/pyship/pyship/internal/history"
	"github.com/pyship/pyship/internal/release"
)

// tuiActions is the curated order of the dashboard's workflow list.
var tuiActions = []struct {
	command string
	desc    string
}{
	{"all", "Clean, lint, test and build"},
	{"test", "Run pytest"},
	{"lint", "Run black, flake8 and mypy"},
	{"build", "Clean, then build sdist and wheel"},
	{"clean", "Remove build artifacts and caches"},
	{"test-pypi", "Build and upload to TestPyPI"},
	{"pypi", "Build and upload to PyPI"},
	{"release", "Full pipeline, then upload to PyPI"},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive dashboard for running workflows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := projectRoot(cmd)
		if err != nil {
			return err
		}
		project, err := loadProject(cmd, root)
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		force, _ := cmd.Flags().GetBool("force")

		// One history connection for the whole session. Runs inside the
		// dashboard are serialized, so sharing it is safe.
		var repo *history.Repository
		if dbConn, err := db.InitDB(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: history disabled: %v\n", err)
		} else {
			repo = history.NewRepository(dbConn)
			defer func() { _ = repo.Close() }()
		}

		actions := make([]ui.Action, 0, len(tuiActions))
		for _, a := range tuiActions {
			plan, ok := release.PlanFor(a.command)
			if !ok {
				continue
			}
			actions = append(actions, ui.Action{
				Command: a.command,
				Title:   a.command,
				Desc:    a.desc,
				Confirm: plan.Publishes(),
			})
		}

		cfg := ui.Config{
			Project: project.Name,
			Actions: actions,
			Run: func(ctx context.Context, command string, w io.Writer) error {
				orch := release.New(release.Config{
					Root:    root,
					Project: project,
					Runner:  newRunner(false, verbose),
					Out:     w,
					Err:     w,
					History: repo,
					Source:  history.SourceTUI,
					// The dashboard asked for confirmation already.
					AssumeYes:  true,
					ForceHooks: force,
				})
				return orch.Run(ctx, command)
			},
			History: func(limit int) ([]history.Run, error) {
				if repo == nil {
					return nil, fmt.Errorf("history is disabled")
				}
				return repo.Recent(limit)
			},
		}

		p := ui.NewProgram(cfg)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	},
}

func init() {
	tuiCmd.Flags().Bool("force", false, "Run hook lines even when the safety screen rejects them")
	rootCmd.AddCommand(tuiCmd)
}
