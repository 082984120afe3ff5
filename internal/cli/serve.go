package cli

import (
	"github.com/spf13/cobra"

	"github.com/mechamoby/sentry/internal/ingest/email"
	"github.com/mechamoby/sentry/internal/ingest/upload"
	"github.com/mechamoby/sentry/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scanner HTTP API",
	Long: `Serve the scan, verdict, ingest, and upload endpoints over HTTP.
The agent runtime talks to this API; nothing here is meant to face the
public internet.

  sentry serve
  sentry serve --addr 127.0.0.1:9000`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command, args []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	log := opLogger()
	uploads, err := upload.NewReceiver(e.sentry, e.manifests, e.cfg.UploadDir, e.cfg.InboundMedia, log)
	if err != nil {
		return err
	}
	mail, err := email.NewProcessor(e.sentry, e.manifests, e.cfg.AttachmentsDir, log)
	if err != nil {
		return err
	}

	addr := e.cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(server.Config{
		ListenAddr:  addr,
		Sentry:      e.sentry,
		Manifests:   e.manifests,
		Uploads:     uploads,
		Mail:        mail,
		MailDropDir: e.cfg.MailDropDir,
		Log:         log,
	})
	return srv.ListenAndServe()
}
