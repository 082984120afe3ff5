package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"

	"github.com/mechamoby/sentry/internal/logger"
)

var (
	logFilterVerdict string
	logFilterFlagged bool
	logLast          int
	logSummary       bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the scan audit log",
	Long: `View the scan audit trail with filtering and summary options.

Examples:
  sentry log                        # Show all entries
  sentry log --last 20              # Show last 20 entries
  sentry log --verdict deny         # Show only denied scans
  sentry log --flagged              # Show everything that was not allowed
  sentry log --summary              # Show summary statistics`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterVerdict, "verdict", "", "Filter by verdict (allow, challenge, quarantine, deny)")
	logCmd.Flags().BoolVar(&logFilterFlagged, "flagged", false, "Show only flagged entries")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	events, err := readScanLog(e.cfg.AuditLog)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No scan log entries found.")
		return nil
	}

	filtered := filterEvents(events)
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(events)
		return nil
	}
	printEvents(filtered)
	return nil
}

func readScanLog(path string) ([]logger.ScanEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []logger.ScanEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event logger.ScanEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func filterEvents(events []logger.ScanEvent) []logger.ScanEvent {
	if logFilterVerdict == "" && !logFilterFlagged {
		return events
	}

	var filtered []logger.ScanEvent
	for _, e := range events {
		if logFilterVerdict != "" && !strings.EqualFold(e.Verdict, logFilterVerdict) {
			continue
		}
		if logFilterFlagged && strings.EqualFold(e.Verdict, "allow") {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(events []logger.ScanEvent) {
	for _, e := range events {
		icon := verdictIcon(e.Verdict)
		fmt.Printf("%s %s [%s] %s\n", icon, formatTimestamp(e.Timestamp), e.Kind, e.Target)
		if e.Channel != "" || e.Sender != "" {
			fmt.Printf("     From: %s via %s\n", e.Sender, e.Channel)
		}
		fmt.Printf("     Verdict: %s (%s)\n", e.Verdict, e.Risk)
		for _, r := range e.Reasons {
			fmt.Printf("     Reason: %s\n", r)
		}
		fmt.Println()
	}
}

func printSummary(all []logger.ScanEvent) {
	counts := map[string]int{}
	for _, e := range all {
		counts[strings.ToLower(e.Verdict)]++
	}

	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("  Sentry Scan Summary")
	fmt.Println("═══════════════════════════════════════════")
	fmt.Printf("  Total scans:  %d\n", len(all))
	fmt.Printf("  allow:        %d\n", counts["allow"])
	fmt.Printf("  challenge:    %d\n", counts["challenge"])
	fmt.Printf("  quarantine:   %d\n", counts["quarantine"])
	fmt.Printf("  deny:         %d\n", counts["deny"])
	fmt.Println("═══════════════════════════════════════════")

	if len(all) > 0 {
		fmt.Printf("  First scan:   %s\n", formatTimestamp(all[0].Timestamp))
		fmt.Printf("  Last scan:    %s\n", formatTimestamp(all[len(all)-1].Timestamp))
	}

	var denied []logger.ScanEvent
	for _, e := range all {
		if strings.EqualFold(e.Verdict, "deny") || strings.EqualFold(e.Verdict, "quarantine") {
			denied = append(denied, e)
		}
	}
	if len(denied) > 0 {
		fmt.Println()
		fmt.Println("  Held items:")
		limit := len(denied)
		if limit > 10 {
			limit = 10
		}
		for _, e := range denied[len(denied)-limit:] {
			fmt.Printf("    %s %s %s\n", formatTimestamp(e.Timestamp), e.Verdict, e.Target)
		}
	}
	fmt.Println()
}

func verdictIcon(v string) string {
	switch strings.ToLower(v) {
	case "allow":
		return "✅"
	case "challenge":
		return "⚠️ "
	default:
		return "❌"
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
