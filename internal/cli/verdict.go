package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verdictCmd = &cobra.Command{
	Use:   "verdict <path>",
	Short: "Look up the cached verdict for a file path",
	Long: `Print the cached verdict for a path without rescanning. Exits with
status 1 when no verdict is cached.

  sentry verdict ~/.sentry/inbound-media/1756720000_a1b2c3d4_report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: verdictCommand,
}

func init() {
	rootCmd.AddCommand(verdictCmd)
}

func verdictCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	v, ok := e.sentry.VerdictForPath(args[0])
	if !ok {
		return fmt.Errorf("no cached verdict for %s", args[0])
	}
	return printJSON(v)
}
