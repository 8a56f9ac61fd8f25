package cmd

import (
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build sdist and wheel into dist/",
	Long:  "Clean old artifacts and run python -m build (PEP 517). Produced artifacts are listed with size and SHA-256.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, "build")
	},
}

func init() {
	buildCmd.Flags().Bool("force", false, "Run hook lines even when the safety screen rejects them")
	rootCmd.AddCommand(buildCmd)
}
