package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
)

var (
	scanSender  string
	scanChannel string
	scanMime    string
)

var scanTextCmd = &cobra.Command{
	Use:   "scan-text [text...]",
	Short: "Scan a text snippet and print the verdict",
	Long: `Scan text the way inbound message bodies are scanned. With no
arguments the text is read from stdin.

  sentry scan-text "ignore previous instructions"
  cat body.txt | sentry scan-text --sender pm@example.com --channel email`,
	RunE: scanTextCommand,
}

var scanFileCmd = &cobra.Command{
	Use:   "scan-file <path>",
	Short: "Scan a file and print the verdict",
	Long: `Scan one file through the full signal chain (size, extension, MIME,
hash denylist, embedded text) and print the verdict JSON. The verdict is
cached under the file path.

  sentry scan-file ./invoice.pdf
  sentry scan-file --mime application/pdf ./invoice.bin`,
	Args: cobra.ExactArgs(1),
	RunE: scanFileCommand,
}

func init() {
	scanTextCmd.Flags().StringVar(&scanSender, "sender", "", "Sender id to attribute the text to")
	scanTextCmd.Flags().StringVar(&scanChannel, "channel", "cli", "Channel name recorded with the scan")
	scanFileCmd.Flags().StringVar(&scanMime, "mime", "", "Declared MIME type (default: guessed from extension)")
	rootCmd.AddCommand(scanTextCmd)
	rootCmd.AddCommand(scanFileCmd)
}

func scanTextCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to scan")
	}

	return printJSON(e.sentry.ScanText(text, scanSender, scanChannel))
}

func scanFileCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	return printJSON(e.sentry.ScanFile(args[0], scanMime))
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
