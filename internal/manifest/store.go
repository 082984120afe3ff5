package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/segmentio/encoding/json"
)

// Store persists manifests under a root directory, one subdirectory per
// ingest source.
type Store struct {
	root string
}

// NewStore creates the manifest root if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Save writes the manifest under its source directory. The filename embeds
// the scan time so directory order roughly follows arrival order; the id
// keeps same-second units distinct.
func (s *Store) Save(m *Manifest) (string, error) {
	dir := filepath.Join(s.root, safeComponent(m.Source))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create source dir: %w", err)
	}

	name := fmt.Sprintf("%d_%s.json", m.ScannedAt, safeComponent(m.unitID()))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return "", fmt.Errorf("create temp manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename manifest: %w", err)
	}
	return path, nil
}

// Recent returns up to limit manifests for a source, most recent scan
// first. Unreadable or malformed files are skipped.
func (s *Store) Recent(source string, limit int) ([]*Manifest, error) {
	dir := filepath.Join(s.root, safeComponent(source))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest dir: %w", err)
	}

	var out []*Manifest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		out = append(out, &m)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScannedAt > out[j].ScannedAt
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Manifest) unitID() string {
	switch {
	case m.MessageID != "":
		return m.MessageID
	case m.ItemID != "":
		return m.ItemType + "_" + m.ItemID
	default:
		return "unit"
	}
}

// safeComponent flattens a value into a single path component.
func safeComponent(s string) string {
	if s == "" {
		return "unknown"
	}
	var sb strings.Builder
	for _, r := range s {
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
