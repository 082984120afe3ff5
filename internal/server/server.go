// Package server exposes the scanner over a small HTTP API for the agent
// runtime and its tooling. Handlers speak JSON both ways. Argument errors
// come back as HTTP 200 with an "error" field; existing callers branch on
// the body, not the status code.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"

	"github.com/mechamoby/sentry/internal/ingest/email"
	"github.com/mechamoby/sentry/internal/ingest/upload"
	"github.com/mechamoby/sentry/internal/manifest"
	"github.com/mechamoby/sentry/internal/scan"
	"github.com/mechamoby/sentry/internal/verdict"
)

// Config wires the server's collaborators. Mail and MailDropDir are
// optional; without them the email ingest endpoint reports an error.
type Config struct {
	ListenAddr string

	Sentry    *scan.Sentry
	Manifests *manifest.Store
	Uploads   *upload.Receiver
	Mail      *email.Processor

	// MailDropDir is the directory the email ingest endpoint polls.
	MailDropDir string

	Log zerolog.Logger
}

// Server is the HTTP front end for the scanner.
type Server struct {
	cfg      Config
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

func New(cfg Config) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8787"
	}
	return &Server{cfg: cfg}
}

// Handler returns the route table. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sentry/scan/text", s.handleScanText)
	mux.HandleFunc("POST /api/sentry/scan/file", s.handleScanFile)
	mux.HandleFunc("GET /api/sentry/verdict", s.handleGetVerdict)
	mux.HandleFunc("POST /api/sentry/verdict", s.handlePutVerdict)
	mux.HandleFunc("POST /api/sentry/ingest/email", s.handleIngestEmail)
	mux.HandleFunc("GET /api/sentry/ingest/report", s.handleIngestReport)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	return mux
}

// ListenAddr returns the bound address. Only valid after ListenAndServe.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.cfg.Log.Info().Str("addr", ln.Addr().String()).Msg("sentry api listening")
	return s.server.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ── handlers ─────────────────────────────────────────────────────────────

func (s *Server) handleScanText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text    string `json:"text"`
		Sender  string `json:"sender"`
		Channel string `json:"channel"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "invalid json body")
		return
	}
	if req.Text == "" {
		writeError(w, "missing text")
		return
	}
	if req.Channel == "" {
		req.Channel = "api"
	}
	writeJSON(w, s.cfg.Sentry.ScanText(req.Text, req.Sender, req.Channel))
}

func (s *Server) handleScanFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
		Mime string `json:"mime"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "invalid json body")
		return
	}
	if req.Path == "" {
		writeError(w, "missing path")
		return
	}
	writeJSON(w, s.cfg.Sentry.ScanFile(req.Path, req.Mime))
}

func (s *Server) handleGetVerdict(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, "missing path")
		return
	}
	v, ok := s.cfg.Sentry.VerdictForPath(path)
	if !ok {
		writeJSON(w, map[string]bool{"found": false})
		return
	}
	writeJSON(w, struct {
		Found bool `json:"found"`
		verdict.Verdict
	}{Found: true, Verdict: v})
}

func (s *Server) handlePutVerdict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string          `json:"path"`
		Verdict verdict.Verdict `json:"verdict"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "invalid json body")
		return
	}
	if req.Path == "" {
		writeError(w, "missing path")
		return
	}
	if err := s.cfg.Sentry.SaveVerdict(req.Path, req.Verdict); err != nil {
		writeError(w, "save verdict: "+err.Error())
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleIngestEmail(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Mail == nil || s.cfg.MailDropDir == "" {
		writeError(w, "email ingest not configured")
		return
	}
	manifests, err := s.cfg.Mail.PollDir(s.cfg.MailDropDir)
	if err != nil {
		writeError(w, "poll: "+err.Error())
		return
	}
	flagged := 0
	for _, m := range manifests {
		if m.Flagged() {
			flagged++
		}
	}
	writeJSON(w, struct {
		OK        bool                 `json:"ok"`
		Scanned   int                  `json:"scanned"`
		Flagged   int                  `json:"flagged"`
		Manifests []*manifest.Manifest `json:"manifests"`
	}{OK: true, Scanned: len(manifests), Flagged: flagged, Manifests: manifests})
}

func (s *Server) handleIngestReport(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		writeError(w, "missing source")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		fmt.Sscanf(raw, "%d", &limit)
	}
	manifests, err := s.cfg.Manifests.Recent(source, limit)
	if err != nil {
		writeError(w, "read manifests: "+err.Error())
		return
	}
	flagged := 0
	for _, m := range manifests {
		if m.Flagged() {
			flagged++
		}
	}
	writeJSON(w, struct {
		Source    string               `json:"source"`
		Count     int                  `json:"count"`
		Flagged   int                  `json:"flagged"`
		Manifests []*manifest.Manifest `json:"manifests"`
	}{Source: source, Count: len(manifests), Flagged: flagged, Manifests: manifests})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Uploads == nil {
		writeError(w, "upload ingest not configured")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "missing file field")
		return
	}
	defer file.Close()

	res, err := s.cfg.Uploads.Save(header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, "save upload: "+err.Error())
		return
	}
	writeJSON(w, res)
}

// ── json plumbing ────────────────────────────────────────────────────────

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{"error": "encode response"}`)
	}
	w.Write(data)
}

func writeError(w http.ResponseWriter, msg string) {
	writeJSON(w, map[string]string{"error": msg})
}
