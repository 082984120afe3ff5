// Package email scans inbound mail before the agent sees it. Messages
// arrive as raw RFC 822 bytes (typically .eml files in a drop directory);
// the processor parses the MIME tree, scans the assembled body text and
// every attachment, and persists a manifest plus the attachment files.
package email

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mechamoby/sentry/internal/manifest"
	"github.com/mechamoby/sentry/internal/scan"
)

// Processor scans one mail message at a time. It is transport-agnostic:
// callers hand it raw message bytes from whatever fetch path they run.
type Processor struct {
	sentry    *scan.Sentry
	manifests *manifest.Store
	seen      *seenStore
	attachDir string
	log       zerolog.Logger
}

// NewProcessor stores attachments under attachDir and manifests in the
// given store. Message-id dedup state lives in the scanner's state dir.
func NewProcessor(s *scan.Sentry, store *manifest.Store, attachDir string, log zerolog.Logger) (*Processor, error) {
	if err := os.MkdirAll(attachDir, 0o700); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	seen, err := newSeenStore(filepath.Join(s.StateDir(), "seen_messages.json"))
	if err != nil {
		return nil, err
	}
	return &Processor{
		sentry:    s,
		manifests: store,
		seen:      seen,
		attachDir: attachDir,
		log:       log,
	}, nil
}

// ProcessMessage parses and scans one raw RFC 822 message. A message whose
// Message-ID was already processed returns (nil, nil). The returned
// manifest is already finalized and persisted.
func (p *Processor) ProcessMessage(raw []byte) (*manifest.Manifest, error) {
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	msgID := strings.TrimSpace(msg.Header.Get("Message-ID"))
	if msgID != "" && p.seen.has(msgID) {
		return nil, nil
	}

	sender := senderAddress(msg.Header.Get("From"))
	subject := decodeHeader(msg.Header.Get("Subject"))

	// Attachments from different messages keep separate directories, so
	// two senders both attaching "invoice.pdf" never collide.
	unitDir := filepath.Join(p.attachDir, unitKey(msgID, raw))

	var bodyParts []string
	var attachments []manifest.Attachment
	if err := p.walkMessage(msg, unitDir, &bodyParts, &attachments); err != nil {
		return nil, err
	}

	body := strings.Join(bodyParts, "\n---\n")
	m := &manifest.Manifest{
		Source:      "email",
		MessageID:   msgID,
		Subject:     subject,
		Sender:      sender,
		Date:        msg.Header.Get("Date"),
		BodyVerdict: p.sentry.ScanText(body, sender, "email"),
		Attachments: attachments,
	}
	m.Finalize()

	if _, err := p.manifests.Save(m); err != nil {
		return nil, err
	}
	if msgID != "" {
		if err := p.seen.add(msgID); err != nil {
			p.log.Warn().Err(err).Msg("persist seen message ids")
		}
	}

	p.log.Info().
		Str("message_id", msgID).
		Str("sender", sender).
		Str("verdict", string(m.AggregateVerdict)).
		Int("attachments", len(m.Attachments)).
		Msg("email scanned")
	return m, nil
}

// PollDir processes every .eml file in dir once, deleting files that were
// handled (including dedup skips). Parse failures leave the file in place.
func (p *Processor) PollDir(dir string) ([]*manifest.Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mail drop dir: %w", err)
	}

	var out []*manifest.Manifest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".eml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			p.log.Warn().Err(err).Str("file", e.Name()).Msg("read dropped message")
			continue
		}
		m, err := p.ProcessMessage(raw)
		if err != nil {
			p.log.Warn().Err(err).Str("file", e.Name()).Msg("process dropped message")
			continue
		}
		os.Remove(path)
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// walkMessage descends the MIME tree collecting text parts and scanning
// attachments.
func (p *Processor) walkMessage(msg *mail.Message, unitDir string, bodyParts *[]string, attachments *[]manifest.Attachment) error {
	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart message without boundary")
		}
		reader := multipart.NewReader(msg.Body, boundary)
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read mime part: %w", err)
			}
			p.handlePart(part, unitDir, bodyParts, attachments)
		}
	}

	text, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	*bodyParts = append(*bodyParts, text)
	return nil
}

func (p *Processor) handlePart(part *multipart.Part, unitDir string, bodyParts *[]string, attachments *[]manifest.Attachment) {
	defer part.Close()

	mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/octet-stream"
	}

	// Nested multipart (alternative, related) recurses without depth
	// tracking; hostile nesting bottoms out on reader errors.
	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return
		}
		nested := multipart.NewReader(part, boundary)
		for {
			inner, err := nested.NextPart()
			if err != nil {
				return
			}
			p.handlePart(inner, unitDir, bodyParts, attachments)
		}
	}

	filename := decodeHeader(part.FileName())
	if filename == "" && strings.HasPrefix(mediaType, "text/") {
		text, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			return
		}
		// HTML-only messages are common. Tags are stripped so a phrase
		// broken up by inline markup still hits the pattern tables.
		if mediaType == "text/html" {
			text = stripTags(text)
		}
		*bodyParts = append(*bodyParts, text)
		return
	}
	if filename == "" {
		// Inline non-text part with no name; nothing to scan it as.
		return
	}

	att := manifest.Attachment{Filename: filename, Mime: mediaType}
	path, size, err := p.saveAttachment(part, unitDir, filename)
	if err != nil {
		att.Error = err.Error()
		*attachments = append(*attachments, att)
		return
	}
	att.Path = path
	att.Size = size
	v := p.sentry.ScanFile(path, mediaType)
	att.Verdict = &v
	*attachments = append(*attachments, att)
}

func (p *Processor) saveAttachment(part *multipart.Part, unitDir, filename string) (string, int64, error) {
	decoded, err := decodeReader(part, part.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(unitDir, 0o700); err != nil {
		return "", 0, fmt.Errorf("create message attachment dir: %w", err)
	}
	path := filepath.Join(unitDir, sanitizeFilename(filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create attachment file: %w", err)
	}
	size, err := io.Copy(f, decoded)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("write attachment: %w", err)
	}
	return path, size, nil
}

// ── helpers ──────────────────────────────────────────────────────────────

func decodeReader(r io.Reader, transferEncoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r), nil
	case "quoted-printable":
		return quotedprintable.NewReader(r), nil
	case "", "7bit", "8bit", "binary":
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported transfer encoding %q", transferEncoding)
	}
}

func decodeBody(r io.Reader, transferEncoding string) (string, error) {
	decoded, err := decodeReader(r, transferEncoding)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeHeader(raw string) string {
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return out
}

// unitKey names the per-message attachment directory: the first sixteen
// hex characters of the Message-ID hash, or of the raw message bytes when
// the header is absent.
func unitKey(msgID string, raw []byte) string {
	h := sha256.New()
	if msgID != "" {
		h.Write([]byte(msgID))
	} else {
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags flattens HTML to its text content. Tag boundaries become
// spaces so adjacent text nodes do not fuse into new tokens.
func stripTags(s string) string {
	return htmlTagPattern.ReplaceAllString(s, " ")
}

func senderAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.TrimSpace(from)
	}
	return addr.Address
}

// sanitizeFilename strips directory components and anything that could
// escape the attachment dir.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == ".." {
		return "attachment"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == ' ':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
