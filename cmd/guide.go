package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	xterm "golang.org/x/term"

	"github.com/pyship/pyship/internal/docs"
)

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show the publishing guide",
	Long:  "Render the built-in guide to publishing a package on TestPyPI and PyPI.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		if raw {
			fmt.Fprint(cmd.OutOrStdout(), docs.Guide())
			return nil
		}
		width := 80
		if w, _, err := xterm.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			if w > 100 {
				w = 100
			}
			width = w
		}
		fmt.Fprint(cmd.OutOrStdout(), docs.RenderGuide(width))
		return nil
	},
}

func init() {
	guideCmd.Flags().Bool("raw", false, "Print the unrendered markdown")
	rootCmd.AddCommand(guideCmd)
}
