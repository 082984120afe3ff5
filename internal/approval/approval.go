// Package approval prompts the operator to disposition a quarantined or
// challenged item from the terminal. Non-interactive runs keep items held;
// nothing is ever auto-released.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type Result struct {
	Released   bool
	UserAction string
}

// Prompt describes one held item for review.
type Prompt struct {
	Target  string
	Source  string
	Verdict string
	Risk    string
	Reasons []string
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask presents one held item and reads the operator's choice. Without a
// terminal the item stays held.
func Ask(p Prompt) Result {
	if !IsInteractive() {
		return Result{
			Released:   false,
			UserAction: "auto_hold_non_interactive",
		}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║              ⚠️  REVIEW REQUIRED                              ║")
	fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "Item:    %s\n", p.Target)
	if p.Source != "" {
		fmt.Fprintf(os.Stderr, "Source:  %s\n", p.Source)
	}
	fmt.Fprintf(os.Stderr, "Verdict: %s (%s risk)\n", p.Verdict, p.Risk)

	if len(p.Reasons) > 0 {
		fmt.Fprintln(os.Stderr, "Reasons:")
		for _, reason := range p.Reasons {
			fmt.Fprintf(os.Stderr, "  • %s\n", reason)
		}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  [r] Release - mark this item safe for the agent")
	fmt.Fprintln(os.Stderr, "  [k] Keep - leave it held")
	fmt.Fprintln(os.Stderr, "")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Fprint(os.Stderr, "Your choice [r/k]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return Result{
				Released:   false,
				UserAction: "error_reading_input",
			}
		}

		input = strings.TrimSpace(strings.ToLower(input))

		switch input {
		case "r", "release", "yes", "y":
			return Result{
				Released:   true,
				UserAction: "release",
			}
		case "k", "keep", "no", "n":
			return Result{
				Released:   false,
				UserAction: "keep",
			}
		default:
			fmt.Fprintln(os.Stderr, "Invalid input. Please enter 'r' to release or 'k' to keep.")
		}
	}
}
