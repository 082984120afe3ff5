// Package config resolves the process configuration: where state lives,
// where ingest drivers read and write, and where the API listens. The
// scanner policy is separate state (JSON under the state dir); this file
// only configures the process around it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".sentry"
	DefaultConfigFile = "config.yaml"
	DefaultLogFile    = "sentry_scan_log.jsonl"
	DefaultListenAddr = "127.0.0.1:8787"
)

type Config struct {
	// StateDir holds the policy file, verdict cache, dedup and watermark
	// state, and manifests.
	StateDir string `yaml:"state_dir"`

	UploadDir      string `yaml:"upload_dir"`
	InboundMedia   string `yaml:"inbound_media_dir"`
	MailDropDir    string `yaml:"mail_drop_dir"`
	AttachmentsDir string `yaml:"attachments_dir"`

	ListenAddr string `yaml:"listen_addr"`
	AuditLog   string `yaml:"audit_log"`

	Project ProjectConfig `yaml:"project"`
}

// ProjectConfig configures the project-management API poller.
type ProjectConfig struct {
	BaseURL string `yaml:"base_url"`
	// TokenPath points at a file holding the bearer token, kept out of the
	// config file itself.
	TokenPath  string  `yaml:"token_path"`
	ProjectIDs []int64 `yaml:"project_ids"`
}

// Load reads the config file (default ~/.sentry/config.yaml), laying file
// values over defaults. A missing file is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := defaults(configDir)

	if path == "" {
		path = filepath.Join(configDir, DefaultConfigFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.fillEmpty(configDir)
	return cfg, nil
}

func defaults(configDir string) *Config {
	return &Config{
		StateDir:       filepath.Join(configDir, "state"),
		UploadDir:      filepath.Join(configDir, "uploads"),
		InboundMedia:   filepath.Join(configDir, "inbound-media"),
		MailDropDir:    filepath.Join(configDir, "mail-drop"),
		AttachmentsDir: filepath.Join(configDir, "attachments"),
		ListenAddr:     DefaultListenAddr,
		AuditLog:       filepath.Join(configDir, DefaultLogFile),
	}
}

// fillEmpty restores defaults for fields the file left blank, so a partial
// config never produces empty paths.
func (c *Config) fillEmpty(configDir string) {
	d := defaults(configDir)
	if c.StateDir == "" {
		c.StateDir = d.StateDir
	}
	if c.UploadDir == "" {
		c.UploadDir = d.UploadDir
	}
	if c.InboundMedia == "" {
		c.InboundMedia = d.InboundMedia
	}
	if c.MailDropDir == "" {
		c.MailDropDir = d.MailDropDir
	}
	if c.AttachmentsDir == "" {
		c.AttachmentsDir = d.AttachmentsDir
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.AuditLog == "" {
		c.AuditLog = d.AuditLog
	}
}

// ProjectToken reads the bearer token file, trimmed of surrounding
// whitespace. The token stays out of the config file itself.
func (c *Config) ProjectToken() (string, error) {
	if c.Project.TokenPath == "" {
		return "", fmt.Errorf("project token path not configured")
	}
	data, err := os.ReadFile(c.Project.TokenPath)
	if err != nil {
		return "", fmt.Errorf("read project token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
