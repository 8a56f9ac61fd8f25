package cmd

import (
	"github.com/spf13/cobra"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run clean, lint, test and build",
	Long:  "The full pre-release gauntlet without publishing: clean, lint, test, build.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, "all")
	},
}

func init() {
	allCmd.Flags().Bool("force", false, "Run hook lines even when the safety screen rejects them")
	rootCmd.AddCommand(allCmd)
}
