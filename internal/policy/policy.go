// Package policy is the single source of truth for scanner-tunable
// thresholds and lists: the file-size ceiling, the content-hash denylist,
// trusted channels/senders, and the keyword tiers consumed by the operator
// command classifier.
package policy

// DefaultMaxBytes is the file-size ceiling applied when no policy file
// overrides it: 25 MiB.
const DefaultMaxBytes = 25 * 1024 * 1024

type Policy struct {
	MaxBytes         int64    `json:"maxBytes"`
	DenyHashPrefixes []string `json:"denyHashPrefixes"`
	TrustedChannels  []string `json:"trustedChannels"`
	TrustedSenderIDs []string `json:"trustedSenderIds,omitempty"`

	// Keyword tiers for the operator command classifier. Distinct from the
	// injection/malware pattern families in the scan package.
	DenyKeywords   []string `json:"denyKeywords,omitempty"`
	RedKeywords    []string `json:"redKeywords,omitempty"`
	YellowKeywords []string `json:"yellowKeywords,omitempty"`
}

func Default() *Policy {
	return &Policy{
		MaxBytes:         DefaultMaxBytes,
		DenyHashPrefixes: []string{},
		TrustedChannels:  []string{"webchat", "telegram"},
	}
}

// TrustedSender reports whether id is in the explicit trusted-sender set.
func (p *Policy) TrustedSender(id string) bool {
	if id == "" {
		return false
	}
	for _, s := range p.TrustedSenderIDs {
		if s == id {
			return true
		}
	}
	return false
}

// TrustedChannel reports whether ch is in the trusted-channel set.
func (p *Policy) TrustedChannel(ch string) bool {
	for _, c := range p.TrustedChannels {
		if c == ch {
			return true
		}
	}
	return false
}
