// Package upload receives operator-submitted files (chat uploads, drag and
// drop) and scans them before they land in the agent's media directory.
// The original bytes stay in the upload directory; a copy is mirrored into
// inbound media for the agent, and the verdict is saved under both paths
// because the cache is keyed by path, not content.
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mechamoby/sentry/internal/manifest"
	"github.com/mechamoby/sentry/internal/scan"
	"github.com/mechamoby/sentry/internal/verdict"
)

// Receiver stores and scans uploaded files.
type Receiver struct {
	sentry    *scan.Sentry
	manifests *manifest.Store
	uploadDir string
	mediaDir  string
	log       zerolog.Logger
}

func NewReceiver(s *scan.Sentry, store *manifest.Store, uploadDir, mediaDir string, log zerolog.Logger) (*Receiver, error) {
	if err := os.MkdirAll(uploadDir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.MkdirAll(mediaDir, 0o700); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Receiver{sentry: s, manifests: store, uploadDir: uploadDir, mediaDir: mediaDir, log: log}, nil
}

// Result reports where an upload was stored and how it was judged.
type Result struct {
	StoredPath string          `json:"stored_path"`
	MediaPath  string          `json:"media_path"`
	Verdict    verdict.Verdict `json:"sentry"`
}

// Save stores the upload under a timestamped unique name, scans it, copies
// it into the inbound-media directory, and mirrors the verdict under the
// media path with an explicit second cache save. Lookups by either path
// then hit without a rescan.
func (r *Receiver) Save(filename, declaredMime string, content io.Reader) (*Result, error) {
	stored := fmt.Sprintf("%d_%s_%s",
		time.Now().Unix(),
		uuid.NewString()[:8],
		sanitizeFilename(filename))
	uploadPath := filepath.Join(r.uploadDir, stored)

	f, err := os.OpenFile(uploadPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	size, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(uploadPath)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	v := r.sentry.ScanFile(uploadPath, declaredMime)

	mediaPath := filepath.Join(r.mediaDir, stored)
	if err := copyFile(uploadPath, mediaPath); err != nil {
		return nil, fmt.Errorf("mirror upload to media: %w", err)
	}
	if err := r.sentry.SaveVerdict(mediaPath, v); err != nil {
		r.log.Warn().Err(err).Str("path", mediaPath).Msg("save media alias verdict")
	}

	m := &manifest.Manifest{
		Source:      "upload",
		Subject:     filename,
		BodyVerdict: verdict.New(verdict.Allow, verdict.RiskLow, "clean_text"),
		Attachments: []manifest.Attachment{{
			Filename: filename,
			Path:     mediaPath,
			Size:     size,
			Mime:     declaredMime,
			Verdict:  &v,
		}},
	}
	m.Finalize()
	if _, err := r.manifests.Save(m); err != nil {
		return nil, err
	}

	r.log.Info().
		Str("file", filename).
		Str("stored", stored).
		Str("verdict", string(v.Decision)).
		Msg("upload scanned")
	return &Result{StoredPath: uploadPath, MediaPath: mediaPath, Verdict: v}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
