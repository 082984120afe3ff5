package policy

import (
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"
)

// Load reads the policy file at path. A missing file is seeded with the
// default policy so the scanner always has a loadable policy on disk. A
// corrupt file yields the defaults in memory without rewriting the file,
// so an operator's half-finished edit is never clobbered.
func Load(path string) *Policy {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			p := Default()
			_ = Save(path, p)
			return p
		}
		return Default()
	}

	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return Default()
	}
	if p.MaxBytes <= 0 {
		p.MaxBytes = DefaultMaxBytes
	}
	return &p
}

// Save writes the policy as indented JSON so operators can edit it by hand.
func Save(path string, p *Policy) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
