// Package cache persists the most recent verdict for each scanned target,
// keyed by a stable hash of the target's identity string. The key is the
// path string, not the content hash: two copies of the same file under
// different paths are cached independently, and callers that mirror a file
// to an alias path must explicitly re-save the verdict under the alias.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"

	"github.com/mechamoby/sentry/internal/verdict"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create verdict cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put stores the verdict for identity, overwriting any previous entry for
// the same identity. The write goes through a temp file and rename so
// concurrent writers to distinct keys never observe partial records;
// concurrent writers to the same key race and the last writer wins.
func (s *Store) Put(identity string, v verdict.Verdict) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}

	final := s.entryPath(identity)
	tmp, err := os.CreateTemp(s.dir, ".verdict-*")
	if err != nil {
		return fmt.Errorf("write verdict: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write verdict: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write verdict: %w", err)
	}
	return os.Rename(tmp.Name(), final)
}

// Get returns the stored verdict for identity, or false if the identity was
// never scanned. Lookup is exact on the identity string: an alias path that
// was never saved returns absent even when its content was scanned under
// another path.
func (s *Store) Get(identity string) (verdict.Verdict, bool) {
	data, err := os.ReadFile(s.entryPath(identity))
	if err != nil {
		return verdict.Verdict{}, false
	}
	var v verdict.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return verdict.Verdict{}, false
	}
	return v, true
}

func (s *Store) entryPath(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}
