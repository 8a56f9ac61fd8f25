package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyship/pyship/internal/credentials"
	"github.com/pyship/pyship/internal/interactive"
	"github.com/pyship/pyship/internal/pypi"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage stored index API tokens",
	Long: `Manage API tokens stored in the pyship home (chmod 600).

Environment variables (PYPI_TOKEN, TEST_PYPI_TOKEN) always take
precedence over stored tokens. Tokens are only ever shown redacted.`,
}

func indexArg(name string) (pypi.Index, error) {
	idx, ok := pypi.IndexByName(name)
	if !ok {
		names := make([]string, 0, 2)
		for _, i := range pypi.Indexes() {
			names = append(names, i.Name)
		}
		return pypi.Index{}, fmt.Errorf("unknown index %q (expected %s)", name, strings.Join(names, " or "))
	}
	return idx, nil
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <pypi|testpypi>",
	Short: "Store an API token for an index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := indexArg(args[0])
		if err != nil {
			return err
		}
		prompt := fmt.Sprintf("Paste the %s API token (from %s): ", idx.Display, idx.TokenURL)
		token, err := interactive.ReadSecret(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
		if err != nil {
			return err
		}
		if err := credentials.Set(idx, token); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "stored %s token (%s)\n", idx.Display, credentials.Redact(strings.TrimSpace(token)))
		fmt.Fprintf(out, "note: %s in the environment takes precedence when set\n", idx.TokenEnv)
		return nil
	},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which tokens are configured (redacted)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, idx := range pypi.Indexes() {
			tok, found, err := credentials.Resolve(idx)
			if err != nil {
				return err
			}
			if found {
				fmt.Fprintf(out, "%-9s %s (%s)\n", idx.Name, credentials.Redact(tok.Value), tok.Source)
			} else {
				fmt.Fprintf(out, "%-9s not set\n", idx.Name)
			}
		}
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear <pypi|testpypi>",
	Short: "Remove a stored API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := indexArg(args[0])
		if err != nil {
			return err
		}
		if err := credentials.Clear(idx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared stored %s token\n", idx.Display)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenShowCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	rootCmd.AddCommand(tokenCmd)
}
