package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"

	"github.com/mechamoby/sentry/internal/manifest"
	"github.com/mechamoby/sentry/internal/scan"
)

// Poller walks each configured project's item types, scans anything newer
// than the stored watermark, and advances the watermark only after the
// manifest is persisted.
type Poller struct {
	source     Source
	sentry     *scan.Sentry
	manifests  *manifest.Store
	attachDir  string
	watermarks *watermarkStore
	log        zerolog.Logger
}

func NewPoller(src Source, s *scan.Sentry, store *manifest.Store, attachDir string, log zerolog.Logger) (*Poller, error) {
	if err := os.MkdirAll(attachDir, 0o700); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	wm, err := newWatermarkStore(filepath.Join(s.StateDir(), "procore_watermarks.json"))
	if err != nil {
		return nil, err
	}
	return &Poller{
		source:     src,
		sentry:     s,
		manifests:  store,
		attachDir:  attachDir,
		watermarks: wm,
		log:        log,
	}, nil
}

// PollProject runs one pass over every item type for one project and
// returns the manifests for the new items it scanned.
func (p *Poller) PollProject(projectID int64) ([]*manifest.Manifest, error) {
	var out []*manifest.Manifest
	for _, itemType := range ItemTypes {
		key := watermarkKey(projectID, itemType)
		since := p.watermarks.get(key)

		items, err := p.source.Items(projectID, itemType, since)
		if err != nil {
			// One failing item type must not stall the others.
			p.log.Warn().Err(err).
				Int64("project", projectID).
				Str("type", itemType).
				Msg("list project items")
			continue
		}

		for _, item := range items {
			m := p.scanItem(projectID, item)
			if _, err := p.manifests.Save(m); err != nil {
				return out, fmt.Errorf("save manifest for %s %d: %w", item.Type, item.ID, err)
			}
			out = append(out, m)
			if item.ID > p.watermarks.get(key) {
				if err := p.watermarks.set(key, item.ID); err != nil {
					p.log.Warn().Err(err).Msg("persist watermark")
				}
			}
		}
	}
	return out, nil
}

func (p *Poller) scanItem(projectID int64, item Item) *manifest.Manifest {
	m := &manifest.Manifest{
		Source:      "project",
		ItemType:    item.Type,
		ItemID:      strconv.FormatInt(item.ID, 10),
		Subject:     item.Title,
		Sender:      item.CreatedBy,
		Date:        item.CreatedAt,
		Folder:      strconv.FormatInt(projectID, 10),
		BodyVerdict: p.sentry.ScanText(item.Title+"\n"+item.Body, item.CreatedBy, "procore"),
	}

	for _, att := range item.Attachments {
		entry := manifest.Attachment{Filename: att.Filename, Mime: att.Mime}
		data, err := p.source.Download(att)
		if err != nil {
			entry.Error = err.Error()
			m.Attachments = append(m.Attachments, entry)
			continue
		}

		name := fmt.Sprintf("%d_%s_%d_%s", projectID, item.Type, item.ID, sanitizeFilename(att.Filename))
		path := filepath.Join(p.attachDir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			entry.Error = fmt.Sprintf("persist attachment: %v", err)
			m.Attachments = append(m.Attachments, entry)
			continue
		}
		entry.Path = path
		entry.Size = int64(len(data))
		v := p.sentry.ScanFile(path, att.Mime)
		entry.Verdict = &v
		m.Attachments = append(m.Attachments, entry)
	}

	m.Finalize()
	if m.Flagged() {
		p.log.Info().
			Str("type", item.Type).
			Int64("id", item.ID).
			Str("verdict", string(m.AggregateVerdict)).
			Msg("project item flagged")
	}
	return m
}

func watermarkKey(projectID int64, itemType string) string {
	return fmt.Sprintf("%d:%s", projectID, itemType)
}

// watermarkStore persists the highest-seen item id per project and item
// type. Losing the file only causes rescans; verdicts for already-seen
// content come back from the verdict cache.
type watermarkStore struct {
	path string
	ids  map[string]int64
}

func newWatermarkStore(path string) (*watermarkStore, error) {
	s := &watermarkStore{path: path, ids: map[string]int64{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read watermarks: %w", err)
	}
	if err := json.Unmarshal(data, &s.ids); err != nil {
		s.ids = map[string]int64{}
	}
	return s, nil
}

func (s *watermarkStore) get(key string) int64 {
	return s.ids[key]
}

func (s *watermarkStore) set(key string, id int64) error {
	s.ids[key] = id
	data, err := json.MarshalIndent(s.ids, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." {
		return "attachment"
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == '-' || r == '_' || r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
