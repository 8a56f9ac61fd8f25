package cmd

import (
	"github.com/spf13/cobra"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Run the full workflow and publish to PyPI",
	Long: `Run clean, lint, test and build, then upload to PyPI after a
confirmation prompt. --yes skips the prompt for CI use.

Requires PYPI_TOKEN in the environment or a token stored with
"pyship token set pypi".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, "release")
	},
}

func init() {
	releaseCmd.Flags().BoolP("yes", "y", false, "Publish without asking for confirmation")
	releaseCmd.Flags().Bool("skip-existing", false, "Forward twine --skip-existing instead of aborting on an already published version")
	releaseCmd.Flags().Bool("force", false, "Run hook lines even when the safety screen rejects them")
	rootCmd.AddCommand(releaseCmd)
}
