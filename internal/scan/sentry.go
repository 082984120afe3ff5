// Package scan implements the content-safety preflight classifiers: a text
// classifier for prompt-injection and malware-command signatures, and a
// file classifier combining structural, identity, and content signals.
// Both always return a verdict; classification failures fail closed.
package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mechamoby/sentry/internal/cache"
	"github.com/mechamoby/sentry/internal/logger"
	"github.com/mechamoby/sentry/internal/policy"
	"github.com/mechamoby/sentry/internal/verdict"
)

// Sentry ties the classifiers to their state directory: the policy file,
// the verdict cache, and an optional audit trail.
type Sentry struct {
	stateDir   string
	policyPath string
	verdicts   *cache.Store
	audit      *logger.AuditLogger
}

// New prepares the state directory, seeding a default policy file when none
// exists so the scanner is always runnable out of the box.
func New(stateDir string) (*Sentry, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	verdicts, err := cache.New(filepath.Join(stateDir, "verdicts"))
	if err != nil {
		return nil, err
	}

	s := &Sentry{
		stateDir:   stateDir,
		policyPath: filepath.Join(stateDir, "policy.json"),
		verdicts:   verdicts,
	}
	policy.Load(s.policyPath)
	return s, nil
}

// SetAuditLogger attaches a scan audit trail. Nil disables audit logging.
func (s *Sentry) SetAuditLogger(l *logger.AuditLogger) { s.audit = l }

// Policy loads the current policy. The file is re-read per call so an
// operator edit takes effect without a restart.
func (s *Sentry) Policy() *policy.Policy { return policy.Load(s.policyPath) }

// PolicyPath returns the location of the backing policy file.
func (s *Sentry) PolicyPath() string { return s.policyPath }

// StateDir returns the scanner's state directory.
func (s *Sentry) StateDir() string { return s.stateDir }

// VerdictForPath returns the cached verdict for a path string, or false if
// that exact identity was never scanned or saved.
func (s *Sentry) VerdictForPath(path string) (verdict.Verdict, bool) {
	return s.verdicts.Get(path)
}

// SaveVerdict stores a verdict computed out-of-band under the given path,
// e.g. to mirror a scan result under an alias path that will later be
// queried.
func (s *Sentry) SaveVerdict(path string, v verdict.Verdict) error {
	return s.verdicts.Put(path, v)
}

func (s *Sentry) logEvent(kind, target, sender, channel string, v verdict.Verdict) {
	if s.audit == nil {
		return
	}
	// Audit failures never affect the verdict.
	_ = s.audit.Log(logger.ScanEvent{
		Kind:    kind,
		Target:  target,
		Sender:  sender,
		Channel: channel,
		Verdict: string(v.Decision),
		Risk:    string(v.Risk),
		Reasons: v.Reasons,
	})
}

const auditExcerptLen = 200

func excerpt(text string) string {
	if len(text) <= auditExcerptLen {
		return text
	}
	return text[:auditExcerptLen]
}
