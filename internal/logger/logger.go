// Package logger appends one JSON line per scan to a durable audit trail.
package logger

import (
	"os"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/mechamoby/sentry/internal/redact"
)

// ScanEvent is one audit record. Target is a file path for file scans or a
// short excerpt for text scans; excerpts pass through redaction before the
// write so pasted credentials never land in the log.
type ScanEvent struct {
	Timestamp string   `json:"timestamp"`
	Kind      string   `json:"kind"` // "text" or "file"
	Target    string   `json:"target,omitempty"`
	Channel   string   `json:"channel,omitempty"`
	Sender    string   `json:"sender,omitempty"`
	Verdict   string   `json:"verdict"`
	Risk      string   `json:"risk"`
	Reasons   []string `json:"reasons,omitempty"`
}

type AuditLogger struct {
	file *os.File
	mu   sync.Mutex
}

func New(path string) (*AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: file}, nil
}

func (l *AuditLogger) Log(event ScanEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	event.Target = redact.Redact(event.Target)
	event.Reasons = redact.RedactAll(event.Reasons)

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
