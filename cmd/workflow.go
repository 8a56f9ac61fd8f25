package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pyship/pyship/internal/config"
	"github.com/pyship/pyship/internal/db"
	"github.com/pyship/pyship/internal/executor"
	"github.com/pyship/pyship/internal/history"
	"github.com/pyship/pyship/internal/release"
)

// newRunner builds the process runner. Tests swap it for a fake.
var newRunner = func(dry, verbose bool) executor.Runner {
	return executor.New(dry, verbose)
}

// projectRoot resolves the project directory from --chdir.
func projectRoot(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("chdir")
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project directory %s is not a directory", abs)
	}
	return abs, nil
}

// loadProject reads the project settings, honoring --config.
func loadProject(cmd *cobra.Command, root string) (*config.Project, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadProjectFile(root, path)
	}
	return config.LoadProject(root)
}

// signalContext derives a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// runWorkflow executes one workflow command with the flags common to all
// workflow subcommands. Flags a subcommand does not register read as false.
func runWorkflow(cmd *cobra.Command, command string) error {
	dry, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	yes, _ := cmd.Flags().GetBool("yes")
	skipExisting, _ := cmd.Flags().GetBool("skip-existing")
	force, _ := cmd.Flags().GetBool("force")

	root, err := projectRoot(cmd)
	if err != nil {
		return err
	}
	project, err := loadProject(cmd, root)
	if err != nil {
		return err
	}
	slog.Debug("project loaded", "root", root, "name", project.Name, "package", project.Package)

	var repo *history.Repository
	if !dry {
		if dbConn, err := db.InitDB(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: history disabled: %v\n", err)
		} else {
			repo = history.NewRepository(dbConn)
			defer func() { _ = repo.Close() }()
		}
	}

	orch := release.New(release.Config{
		Root:         root,
		Project:      project,
		Runner:       newRunner(dry, verbose),
		Out:          cmd.OutOrStdout(),
		Err:          cmd.ErrOrStderr(),
		In:           cmd.InOrStdin(),
		History:      repo,
		DryRun:       dry,
		AssumeYes:    yes,
		SkipExisting: skipExisting,
		ForceHooks:   force,
	})

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	slog.Debug("starting workflow", "command", command, "dry_run", dry)
	return orch.Run(ctx, command)
}
