package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pyship/pyship/internal/config"
	"github.com/pyship/pyship/internal/interactive"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .pyship.yaml",
	Long:  "Write a commented .pyship.yaml into the project directory, seeded with the detected package layout.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		edit, _ := cmd.Flags().GetBool("edit")

		root, err := projectRoot(cmd)
		if err != nil {
			return err
		}
		path := filepath.Join(root, config.FileName)
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := os.WriteFile(path, []byte(config.Starter(root)), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

		if edit {
			return interactive.OpenEditor(path)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("edit", false, "Open the file in $EDITOR after writing")
	rootCmd.AddCommand(initCmd)
}
