package scan

import (
	"strings"

	"github.com/mechamoby/sentry/internal/unicode"
	"github.com/mechamoby/sentry/internal/verdict"
)

// ScanText classifies a block of free text for prompt-injection attempts
// and malware-deployment command shapes. Sender and channel are recorded in
// the audit trail; the only decision branch that reads them is the
// sender-presence downgrade below. Pure over (text, sender presence).
func (s *Sentry) ScanText(text, sender, channel string) verdict.Verdict {
	lowered := strings.ToLower(unicode.Clean(text))

	reasons := matchTags(promptInjectionPatterns, lowered, "prompt_injection")
	reasons = append(reasons, matchTags(malwareCommandPatterns, lowered, "malware_pattern")...)

	var v verdict.Verdict
	if len(reasons) > 0 {
		// A supplied sender identity downgrades deny to challenge. This is a
		// coarse trust proxy, kept for caller compatibility; the command
		// classifier does the real trusted-sender lookup.
		decision := verdict.Deny
		if sender != "" {
			decision = verdict.Challenge
		}
		v = verdict.New(decision, verdict.RiskHigh, reasons...)
	} else {
		v = verdict.New(verdict.Allow, verdict.RiskLow, "clean_text")
	}

	s.logEvent("text", excerpt(text), sender, channel, v)
	return v
}
