package cmd

import (
	"github.com/spf13/cobra"
)

var testPypiCmd = &cobra.Command{
	Use:   "test-pypi",
	Short: "Build and upload to TestPyPI",
	Long: `Clean, build and upload dist/* to TestPyPI with twine.

Requires TEST_PYPI_TOKEN in the environment or a token stored with
"pyship token set testpypi".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, "test-pypi")
	},
}

var pypiCmd = &cobra.Command{
	Use:   "pypi",
	Short: "Build and upload to PyPI",
	Long: `Clean, build and upload dist/* to PyPI with twine.

Requires PYPI_TOKEN in the environment or a token stored with
"pyship token set pypi". Use "pyship release" to run lint and test
first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorkflow(cmd, "pypi")
	},
}

func init() {
	for _, c := range []*cobra.Command{testPypiCmd, pypiCmd} {
		c.Flags().Bool("skip-existing", false, "Forward twine --skip-existing instead of aborting on an already published version")
		c.Flags().Bool("force", false, "Run hook lines even when the safety screen rejects them")
		rootCmd.AddCommand(c)
	}
}
