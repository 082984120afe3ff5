// Package manifest records the outcome of scanning one ingested unit (an
// email, a project item, an upload): the body verdict, per-attachment
// verdicts, and the aggregated worst-case pair. Manifests are the audit
// trail the review tooling reads back.
package manifest

import (
	"time"

	"github.com/mechamoby/sentry/internal/verdict"
)

// Attachment is one scanned (or failed) attachment inside a unit.
type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Mime     string `json:"mime,omitempty"`

	// Verdict is nil when the attachment could not be fetched or scanned;
	// Error then carries the failure. Errored attachments are excluded from
	// aggregation rather than defaulted.
	Verdict *verdict.Verdict `json:"sentry,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Manifest is the persisted scan record for one ingested unit.
type Manifest struct {
	Source    string `json:"source"`
	MessageID string `json:"message_id,omitempty"`
	ItemType  string `json:"item_type,omitempty"`
	ItemID    string `json:"item_id,omitempty"`

	Subject string `json:"subject,omitempty"`
	Sender  string `json:"sender,omitempty"`
	Date    string `json:"date,omitempty"`
	Folder  string `json:"folder,omitempty"`

	BodyVerdict verdict.Verdict `json:"body_sentry"`
	Attachments []Attachment    `json:"attachments"`

	AggregateVerdict verdict.Decision `json:"aggregate_verdict"`
	AggregateRisk    verdict.Risk     `json:"aggregate_risk"`

	ScannedAt int64 `json:"scanned_at"`
}

// Finalize computes the aggregate pair from the body verdict and the
// successfully scanned attachments, and stamps the scan time if unset.
func (m *Manifest) Finalize() {
	scanned := make([]verdict.Verdict, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		if a.Verdict != nil {
			scanned = append(scanned, *a.Verdict)
		}
	}
	m.AggregateVerdict, m.AggregateRisk = verdict.Aggregate(m.BodyVerdict, scanned)
	if m.ScannedAt == 0 {
		m.ScannedAt = time.Now().Unix()
	}
}

// Flagged reports whether the unit as a whole requires operator attention.
func (m *Manifest) Flagged() bool {
	return m.AggregateVerdict != verdict.Allow
}
