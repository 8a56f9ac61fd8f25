package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pyship/pyship/internal/db"
	"github.com/pyship/pyship/internal/history"
)

var (
	histOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	histFail = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

func styledStatus(s string) string {
	switch s {
	case history.StatusOK:
		return histOK.Render(fmt.Sprintf("%-8s", s))
	case history.StatusFailed, history.StatusAborted:
		return histFail.Render(fmt.Sprintf("%-8s", s))
	default:
		return fmt.Sprintf("%-8s", s)
	}
}

func openHistory() (*history.Repository, error) {
	dbConn, err := db.InitDB()
	if err != nil {
		return nil, err
	}
	return history.NewRepository(dbConn), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded workflow runs",
	Long:  "List recent workflow runs with their outcome. Dry runs are never recorded.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		repo, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close() }()

		runs, err := repo.Recent(limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "no runs recorded yet")
			return nil
		}
		for _, r := range runs {
			age := r.StartedAt
			if t := r.Started(); !t.IsZero() {
				age = humanize.Time(t)
			}
			fmt.Fprintf(out, "%s  %-10s %s %-14s %s\n",
				shortID(r.ID), r.Command, styledStatus(r.Status), age, r.Project)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run step by step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close() }()

		run, err := repo.Get(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("no run matching %q", args[0])
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run      %s\n", run.ID)
		fmt.Fprintf(out, "command  %s\n", run.Command)
		fmt.Fprintf(out, "project  %s (%s)\n", run.Project, run.Root)
		fmt.Fprintf(out, "source   %s\n", run.Source)
		fmt.Fprintf(out, "status   %s\n", run.Status)
		if run.Error.Valid && run.Error.String != "" {
			fmt.Fprintf(out, "error    %s\n", run.Error.String)
		}
		fmt.Fprintf(out, "started  %s\n", run.StartedAt)
		if d := run.Elapsed(); d > 0 {
			fmt.Fprintf(out, "elapsed  %s\n", d.Round(10*time.Millisecond))
		}
		if len(run.Steps) > 0 {
			fmt.Fprintln(out)
			for _, s := range run.Steps {
				fmt.Fprintf(out, "  %-8s %s %s\n",
					s.Name, styledStatus(s.Status), s.Duration.Round(10*time.Millisecond))
			}
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [--dst <path>]",
	Short: "Copy the history database to a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dst, _ := cmd.Flags().GetString("dst")
		// Default destination: ./pyship-history-YYYY-MM-DD.db, suffixed
		// with -N rather than overwriting an existing file.
		if dst == "" {
			date := time.Now().UTC().Format("2006-01-02")
			base := fmt.Sprintf("pyship-history-%s.db", date)
			dst = filepath.Join(".", base)
			si := 1
			for {
				if _, err := os.Stat(dst); os.IsNotExist(err) {
					break
				}
				dst = filepath.Join(".", fmt.Sprintf("pyship-history-%s-%d.db", date, si))
				si++
			}
		}
		// Make sure the database exists before copying it.
		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		_ = dbConn.Close()
		if err := history.ExportDatabase(dst); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported history to %s\n", dst)
		return nil
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Restore or merge a history database",
	Long:  "Replace the history database with the given file, or merge its runs into the current one with --merge.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		merge, _ := cmd.Flags().GetBool("merge")
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		if merge && overwrite {
			return fmt.Errorf("--merge and --overwrite are mutually exclusive")
		}
		out := cmd.OutOrStdout()

		if merge {
			repo, err := openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()
			n, err := repo.MergeDatabase(src)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "merged %d runs from %s\n", n, src)
			return nil
		}

		if err := history.ImportDatabase(src, overwrite); err != nil {
			return err
		}
		fmt.Fprintf(out, "imported history from %s\n", src)
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a cutoff",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days < 1 {
			return fmt.Errorf("--days must be at least 1")
		}
		repo, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close() }()

		n, err := repo.PruneOlderThan(time.Now().AddDate(0, 0, -days))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d runs older than %d days\n", n, days)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to list")
	historyExportCmd.Flags().String("dst", "", "Destination file (default: ./pyship-history-<date>.db)")
	historyImportCmd.Flags().Bool("merge", false, "Merge runs into the current database instead of replacing it")
	historyImportCmd.Flags().Bool("overwrite", false, "Replace an existing database")
	historyPruneCmd.Flags().Int("days", 90, "Delete runs older than this many days")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
