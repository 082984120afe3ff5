// Package project polls a construction project-management API for new
// items (RFIs, submittals, correspondence) and runs their bodies and
// attachments through the scanner before the agent reads them. Fetch is
// behind a small Source interface so the poller tests without a live API.
package project

// ItemAttachment is one downloadable file attached to a project item.
type ItemAttachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Mime     string `json:"content_type,omitempty"`
}

// Item is one project artifact worth scanning.
type Item struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`

	// Body is the item's free text: an RFI question, a correspondence
	// body, a submittal description.
	Body string `json:"body"`

	CreatedBy   string           `json:"created_by,omitempty"`
	CreatedAt   string           `json:"created_at,omitempty"`
	Attachments []ItemAttachment `json:"attachments,omitempty"`
}

// Source fetches items and attachment bytes for one project. Implemented
// by the REST client; tests substitute a fake.
type Source interface {
	// Items returns items of the given type with an id strictly greater
	// than sinceID, oldest first.
	Items(projectID int64, itemType string, sinceID int64) ([]Item, error)

	// Download returns the raw attachment bytes. Project attachments are
	// small relative to the scanner's size ceiling, so buffering is fine.
	Download(att ItemAttachment) ([]byte, error)
}

// ItemTypes are the artifact kinds the poller walks, in scan order.
var ItemTypes = []string{"rfis", "submittals", "correspondence"}
