package email

import (
	"fmt"
	"os"
	"sync"

	"github.com/segmentio/encoding/json"
)

// seenStore tracks processed Message-IDs so a retried fetch or a redelivered
// drop file is not scanned and manifested twice. State is a flat JSON array
// so it can be inspected and pruned by hand.
type seenStore struct {
	path string

	mu  sync.Mutex
	ids map[string]bool
}

func newSeenStore(path string) (*seenStore, error) {
	s := &seenStore{path: path, ids: map[string]bool{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seen state: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		// Corrupt state means we may rescan a few messages; not worth failing
		// ingest over.
		return s, nil
	}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s, nil
}

func (s *seenStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id]
}

func (s *seenStore) add(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = true

	ids := make([]string, 0, len(s.ids))
	for k := range s.ids {
		ids = append(ids, k)
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
