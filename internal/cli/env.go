package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mechamoby/sentry/internal/config"
	"github.com/mechamoby/sentry/internal/logger"
	"github.com/mechamoby/sentry/internal/manifest"
	"github.com/mechamoby/sentry/internal/scan"
)

// env bundles the collaborators most commands need. Close flushes the
// audit log.
type env struct {
	cfg       *config.Config
	sentry    *scan.Sentry
	manifests *manifest.Store
	audit     *logger.AuditLogger
}

func buildEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}

	s, err := scan.New(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("init scanner: %w", err)
	}

	audit, err := logger.New(cfg.AuditLog)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	s.SetAuditLogger(audit)

	manifests, err := manifest.NewStore(filepath.Join(cfg.StateDir, "manifests"))
	if err != nil {
		audit.Close()
		return nil, fmt.Errorf("init manifest store: %w", err)
	}

	return &env{cfg: cfg, sentry: s, manifests: manifests, audit: audit}, nil
}

func (e *env) Close() {
	if e.audit != nil {
		e.audit.Close()
	}
}
