package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mechamoby/sentry/internal/approval"
	"github.com/mechamoby/sentry/internal/verdict"
)

var (
	reviewSource string
	reviewLimit  int
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review held attachments and release or keep them",
	Long: `Walk recent manifests for a source and prompt for each attachment
that was challenged, quarantined, or denied. Releasing an item overwrites
its cached verdict with an operator allow; keeping it changes nothing.

  sentry review --source email
  sentry review --source upload --limit 50`,
	RunE: reviewCommand,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewSource, "source", "email", "Ingest source to review (email, project, upload)")
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 20, "How many recent manifests to walk")
	rootCmd.AddCommand(reviewCmd)
}

func reviewCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	manifests, err := e.manifests.Recent(reviewSource, reviewLimit)
	if err != nil {
		return err
	}

	held, released := 0, 0
	for _, m := range manifests {
		for _, att := range m.Attachments {
			if att.Verdict == nil || !att.Verdict.Flagged() || att.Path == "" {
				continue
			}
			// Skip anything an earlier review already released.
			if current, ok := e.sentry.VerdictForPath(att.Path); ok && !current.Flagged() {
				continue
			}
			held++

			res := approval.Ask(approval.Prompt{
				Target:  att.Filename,
				Source:  m.Source,
				Verdict: string(att.Verdict.Decision),
				Risk:    string(att.Verdict.Risk),
				Reasons: att.Verdict.Reasons,
			})
			if !res.Released {
				continue
			}

			v := verdict.New(verdict.Allow, verdict.RiskLow, "released_by_operator")
			v.Path = att.Path
			v.SHA256 = att.Verdict.SHA256
			v.Size = att.Verdict.Size
			if err := e.sentry.SaveVerdict(att.Path, v); err != nil {
				return fmt.Errorf("release %s: %w", att.Filename, err)
			}
			released++
		}
	}

	fmt.Printf("\nReviewed %d held items, released %d.\n", held, released)
	return nil
}
