package cmd

import (
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build artifacts (dist/, build/, caches)",
	Long:  "Remove dist/, build/, *.egg-info/, __pycache__/, .pytest_cache/, .mypy_cache/ and .coverage from the project directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, "clean")
	},
}

func init() {
	cleanCmd.Flags().Bool("force", false, "Run hook lines even when the safety screen rejects them")
	rootCmd.AddCommand(cleanCmd)
}
