package cmd

import (
	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Run black --check, flake8 and mypy",
	Long:  "Run the three lint checkers concurrently. All of them must pass; checkers can be disabled per project in .pyship.yaml.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, "lint")
	},
}

func init() {
	lintCmd.Flags().Bool("force", false, "Run hook lines even when the safety screen rejects them")
	rootCmd.AddCommand(lintCmd)
}
