// Package unicode normalizes untrusted text before pattern scanning.
// Inbound bodies and document samples can hide injection phrasings behind
// zero-width characters, bidi overrides, and compatibility forms; the
// classifiers scan the cleaned form so those tricks do not split a match.
package unicode

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Clean applies NFKC normalization and strips invisible and control runes.
// Common whitespace (space, tab, CR, LF) is preserved.
func Clean(s string) string {
	normalized := norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if shouldStrip(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// shouldStrip reports runes in Unicode categories Cf (format), Co (private
// use), and Cc (control), except common whitespace.
func shouldStrip(r rune) bool {
	if r == '\n' || r == '\t' || r == '\r' || r == ' ' {
		return false
	}
	return unicode.In(r, unicode.Cf, unicode.Co, unicode.Cc)
}
