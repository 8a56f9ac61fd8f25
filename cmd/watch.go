package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyship/pyship/internal/db"
	"github.com/pyship/pyship/internal/history"
	"github.com/pyship/pyship/internal/release"
	"github.com/pyship/pyship/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [command]",
	Short: "Re-run checks when sources change",
	Long: `Watch the project tree and re-run a workflow command whenever Python
sources or project files change. Without an argument, lint and test
run in sequence. Publishing commands are not allowed under watch.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commands := []string{"lint", "test"}
		if len(args) == 1 {
			plan, ok := release.PlanFor(args[0])
			if !ok {
				return fmt.Errorf("unknown command %q (expected one of %s)", args[0], strings.Join(release.Commands(), ", "))
			}
			if plan.Publishes() {
				return fmt.Errorf("watch does not publish; run `pyship %s` yourself when ready", args[0])
			}
			commands = []string{args[0]}
		}

		dry, _ := cmd.Flags().GetBool("dry-run")
		verbose, _ := cmd.Flags().GetBool("verbose")
		force, _ := cmd.Flags().GetBool("force")

		root, err := projectRoot(cmd)
		if err != nil {
			return err
		}
		project, err := loadProject(cmd, root)
		if err != nil {
			return err
		}

		var repo *history.Repository
		if !dry {
			if dbConn, err := db.InitDB(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: history disabled: %v\n", err)
			} else {
				repo = history.NewRepository(dbConn)
				defer func() { _ = repo.Close() }()
			}
		}

		out := cmd.OutOrStdout()
		orch := release.New(release.Config{
			Root:       root,
			Project:    project,
			Runner:     newRunner(dry, verbose),
			Out:        out,
			Err:        cmd.ErrOrStderr(),
			In:         cmd.InOrStdin(),
			History:    repo,
			Source:     history.SourceWatch,
			DryRun:     dry,
			ForceHooks: force,
		})

		runAll := func(ctx context.Context) {
			for _, c := range commands {
				if err := orch.Run(ctx, c); err != nil {
					// Keep watching; the summary already reported the failure.
					break
				}
			}
			if ctx.Err() == nil {
				fmt.Fprintln(out, "waiting for changes...")
			}
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		w, err := watch.New(watch.Config{
			Root: root,
			Out:  cmd.ErrOrStderr(),
			OnChange: func(ctx context.Context, paths []string) {
				changed := paths[0]
				if len(paths) > 1 {
					changed = fmt.Sprintf("%s (+%d more)", paths[0], len(paths)-1)
				}
				fmt.Fprintf(out, "\n-> %s changed\n", changed)
				runAll(ctx)
			},
		})
		if err != nil {
			return err
		}

		// One run up front so a broken tree is reported immediately.
		runAll(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if err := w.Start(ctx); err != nil {
			return err
		}
		slog.Debug("watching", "dirs", len(w.WatchedDirs()))
		fmt.Fprintf(out, "watching %s for changes (Ctrl-C to stop)\n", project.Name)

		<-ctx.Done()
		w.Stop()
		stats := w.Stats()
		fmt.Fprintf(out, "\nstopped after %d change-triggered runs\n", stats.Runs)
		return nil
	},
}

func init() {
	watchCmd.Flags().Bool("force", false, "Run hook lines even when the safety screen rejects them")
	rootCmd.AddCommand(watchCmd)
}
