package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pyship",
	Short: "pyship automates the release workflow of Python packages",
	Long: `pyship sequences a Python package's release workflow (clean, lint,
test, build, publish) by driving the ecosystem's own tools: pytest,
black, flake8, mypy, python -m build and twine.

Publishing requires an API token in PYPI_TOKEN or TEST_PYPI_TOKEN, or
one stored with "pyship token set". Start with "pyship guide".`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// Bare "pyship" prints the same usage text as "pyship help".
		_ = cmd.Help()
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("chdir", "C", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().String("config", "", "Project config file (default: <project>/.pyship.yaml)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Print every command without executing anything")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Diagnostic logging on stderr")
}
