package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mechamoby/sentry/internal/ingest/email"
	"github.com/mechamoby/sentry/internal/ingest/project"
	"github.com/mechamoby/sentry/internal/manifest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingest pass over a source",
}

var ingestEmailCmd = &cobra.Command{
	Use:   "email",
	Short: "Scan .eml files waiting in the mail drop directory",
	RunE:  ingestEmailCommand,
}

var ingestProjectCmd = &cobra.Command{
	Use:   "project",
	Short: "Poll the project-management API for new items and scan them",
	RunE:  ingestProjectCommand,
}

var ingestDirCmd = &cobra.Command{
	Use:   "dir <path>",
	Short: "Scan every regular file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  ingestDirCommand,
}

func init() {
	ingestCmd.AddCommand(ingestEmailCmd)
	ingestCmd.AddCommand(ingestProjectCmd)
	ingestCmd.AddCommand(ingestDirCmd)
	rootCmd.AddCommand(ingestCmd)
}

func ingestEmailCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	proc, err := email.NewProcessor(e.sentry, e.manifests, e.cfg.AttachmentsDir, opLogger())
	if err != nil {
		return err
	}
	manifests, err := proc.PollDir(e.cfg.MailDropDir)
	if err != nil {
		return err
	}
	printIngestSummary("email", manifests)
	return nil
}

func ingestProjectCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Project.BaseURL == "" {
		return fmt.Errorf("project.base_url not configured")
	}
	token, err := e.cfg.ProjectToken()
	if err != nil {
		return err
	}

	client := project.NewClient(e.cfg.Project.BaseURL, token)
	poller, err := project.NewPoller(client, e.sentry, e.manifests, e.cfg.AttachmentsDir, opLogger())
	if err != nil {
		return err
	}

	var all []*manifest.Manifest
	for _, id := range e.cfg.Project.ProjectIDs {
		manifests, err := poller.PollProject(id)
		if err != nil {
			return fmt.Errorf("poll project %d: %w", id, err)
		}
		all = append(all, manifests...)
	}
	printIngestSummary("project", all)
	return nil
}

func ingestDirCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	scanned, flagged := 0, 0
	err = filepath.WalkDir(args[0], func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		v := e.sentry.ScanFile(path, "")
		scanned++
		if v.Flagged() {
			flagged++
			fmt.Printf("%-10s %-6s %s\n", v.Decision, v.Risk, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("\nScanned %d files, %d flagged.\n", scanned, flagged)
	return nil
}

func printIngestSummary(source string, manifests []*manifest.Manifest) {
	flagged := 0
	for _, m := range manifests {
		if m.Flagged() {
			flagged++
			fmt.Printf("%-10s %-6s %s %s\n", m.AggregateVerdict, m.AggregateRisk, m.ItemType, m.Subject)
		}
	}
	fmt.Printf("\n%s: %d units scanned, %d flagged.\n", source, len(manifests), flagged)
}

// opLogger writes operational (non-audit) logs to stderr.
func opLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
