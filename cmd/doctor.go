package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pyship/pyship/internal/toolchain"
)

var (
	doctorName    = lipgloss.NewStyle().Foreground(lipgloss.Color("#0ea5a4")).Bold(true)
	doctorMissing = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the Python toolchain is installed",
	Long:  "Probe the interpreter and every tool pyship drives, with versions and install hints for anything missing.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := projectRoot(cmd)
		if err != nil {
			return err
		}
		project, err := loadProject(cmd, root)
		if err != nil {
			return err
		}

		_, statuses := toolchain.Inspect(cmd.Context(), project.Python)

		out := cmd.OutOrStdout()
		missing := 0
		for _, s := range statuses {
			name := doctorName.Render(fmt.Sprintf("%-8s", s.Tool.Name))
			if s.OK() {
				version := s.Version
				if version == "" {
					version = "(version unknown)"
				}
				fmt.Fprintf(out, "%s %-28s %s\n", name, version, s.Path)
			} else {
				missing++
				fmt.Fprintf(out, "%s %-28s %s\n", name, doctorMissing.Render("missing"), s.Tool.Install)
			}
		}
		if missing > 0 {
			return fmt.Errorf("%d of %d tools missing", missing, len(statuses))
		}
		fmt.Fprintln(out, "\nall tools present")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
