package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	stateDir   string
)

var rootCmd = &cobra.Command{
	Use:   "sentry",
	Short: "Sentry - content-safety preflight for the site agent",
	Long: `Sentry scans everything headed into the construction-site agent's
context window before the agent reads it: email bodies and attachments,
project-management items, chat uploads, operator commands. Verdicts are
deterministic, cached, and auditable; nothing flagged reaches the agent
without an operator decision.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (default: ~/.sentry/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state", "", "Override the scanner state directory")
}

func Execute() error {
	return rootCmd.Execute()
}
