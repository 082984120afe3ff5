package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/mechamoby/sentry/internal/unicode"
	"github.com/mechamoby/sentry/internal/verdict"
)

var suspiciousExtensions = map[string]bool{
	".exe": true, ".dll": true, ".bat": true, ".cmd": true, ".ps1": true,
	".js": true, ".vbs": true, ".scr": true, ".jar": true, ".msi": true,
	".com": true,
}

var safeMimePrefixes = []string{
	"application/pdf",
	"text/plain",
	"text/",
	"image/",
	"application/vnd.openxmlformats-officedocument",
	"application/msword",
}

var textualExtensions = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".json": true, ".xml": true,
	".html": true, ".htm": true, ".py": true, ".sh": true,
}

var macroExtensions = map[string]bool{
	".docm": true, ".xlsm": true, ".pptm": true,
}

// textSampleBytes bounds the embedded pattern scan to the head of the file.
const textSampleBytes = 64 * 1024

// ScanFile classifies one file on disk. A path that is not a regular file
// yields an immediate deny; any other collected signal is weighed by
// severity: hash-denylist and suspicious-extension hits quarantine, all
// other signals challenge. The verdict is cached under the file's path
// before returning.
func (s *Sentry) ScanFile(path, declaredMime string) verdict.Verdict {
	pol := s.Policy()

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		v := verdict.New(verdict.Deny, verdict.RiskHigh, "file_missing")
		v.Path = path
		s.logEvent("file", path, "", "", v)
		return v
	}

	var reasons []string

	size := info.Size()
	if size > pol.MaxBytes {
		reasons = append(reasons, "oversize_file")
	}

	ext := strings.ToLower(filepath.Ext(path))
	mimeType := resolveMime(declaredMime, ext)

	if suspiciousExtensions[ext] {
		reasons = append(reasons, "suspicious_extension:"+ext)
	}
	if !safeMime(mimeType) {
		reasons = append(reasons, "untrusted_mime:"+mimeType)
	}
	if ext == ".pdf" && mimeType != "application/pdf" && mimeType != "application/octet-stream" {
		reasons = append(reasons, "mime_mismatch_pdf")
	}

	digest, err := hashFile(path)
	if err != nil {
		// Hashing failed mid-scan: fail closed rather than propagate.
		v := verdict.New(verdict.Deny, verdict.RiskHigh, "scan_error")
		v.Path = path
		v.Size = size
		_ = s.verdicts.Put(path, v)
		s.logEvent("file", path, "", "", v)
		return v
	}
	for _, pref := range pol.DenyHashPrefixes {
		if pref != "" && strings.HasPrefix(digest, strings.ToLower(pref)) {
			reasons = append(reasons, "hash_denylist_match")
			break
		}
	}

	if strings.HasPrefix(mimeType, "text/") || textualExtensions[ext] {
		lowered := strings.ToLower(unicode.Clean(textSample(path)))
		reasons = append(reasons, matchTags(promptInjectionPatterns, lowered, "prompt_injection_payload")...)
		reasons = append(reasons, matchTags(malwareCommandPatterns, lowered, "malware_payload")...)
	}

	// No macro inspection, just the extension hint.
	if macroExtensions[ext] {
		reasons = append(reasons, "macro_enabled_office")
	}

	var decision verdict.Decision
	var risk verdict.Risk
	switch {
	case hasQuarantineSignal(reasons):
		decision, risk = verdict.Quarantine, verdict.RiskHigh
	case len(reasons) > 0:
		decision, risk = verdict.Challenge, verdict.RiskMedium
	default:
		decision, risk = verdict.Allow, verdict.RiskLow
		reasons = []string{"clean_file"}
	}

	v := verdict.New(decision, risk, reasons...)
	v.SHA256 = digest
	v.Size = size
	v.Path = path

	_ = s.verdicts.Put(path, v)
	s.logEvent("file", path, "", "", v)
	return v
}

// resolveMime picks declared over guessed-by-extension over the generic
// fallback, discarding any media-type parameters.
func resolveMime(declared, ext string) string {
	m := declared
	if m == "" {
		m = mime.TypeByExtension(ext)
	}
	if m == "" {
		return "application/octet-stream"
	}
	if base, _, ok := strings.Cut(m, ";"); ok {
		m = strings.TrimSpace(base)
	}
	return m
}

func safeMime(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	for _, prefix := range safeMimePrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

func hasQuarantineSignal(reasons []string) bool {
	for _, r := range reasons {
		if r == "hash_denylist_match" || strings.HasPrefix(r, "suspicious_extension:") {
			return true
		}
	}
	return false
}

// hashFile streams the file through SHA-256 so memory stays bounded
// regardless of file size.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// textSample reads up to the first 64 KiB of the file. Read errors yield an
// empty sample; the structural signals still apply.
func textSample(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, textSampleBytes)
	n, _ := io.ReadFull(f, buf)
	return string(buf[:n])
}
