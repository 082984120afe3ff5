// Package verdict defines the scanner's decision model: the per-target
// Verdict record and the manifest-level aggregation rule that reduces one
// body verdict plus N attachment verdicts into a single worst-case pair.
package verdict

import "time"

// Decision is the scanner's gate for one target, ordered by severity.
type Decision string

const (
	Allow      Decision = "allow"
	Challenge  Decision = "challenge"
	Quarantine Decision = "quarantine"
	Deny       Decision = "deny"
)

// Risk is the coarse risk level attached to a verdict, ordered by severity.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Severity returns a numeric ordinal for decision comparison.
// Higher number = more restrictive.
func (d Decision) Severity() int {
	switch d {
	case Deny:
		return 3
	case Quarantine:
		return 2
	case Challenge:
		return 1
	case Allow:
		return 0
	default:
		return 0
	}
}

// Severity returns a numeric ordinal for risk comparison.
func (r Risk) Severity() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	case RiskLow:
		return 0
	default:
		return 0
	}
}

// Verdict is the classifier output for one scanned target. It is a pure
// function of the input plus the loaded policy; CreatedAt is informational
// and never drives cache expiry.
type Verdict struct {
	Decision Decision `json:"verdict"`
	Risk     Risk     `json:"risk"`
	Reasons  []string `json:"reasons"`

	// File scans only.
	SHA256 string `json:"sha256,omitempty"`
	Size   int64  `json:"size,omitempty"`
	Path   string `json:"path,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

// New returns a verdict stamped with the current time.
func New(d Decision, r Risk, reasons ...string) Verdict {
	return Verdict{
		Decision:  d,
		Risk:      r,
		Reasons:   reasons,
		CreatedAt: time.Now().Unix(),
	}
}

// Flagged reports whether the verdict requires operator attention.
func (v Verdict) Flagged() bool {
	return v.Decision != Allow
}
