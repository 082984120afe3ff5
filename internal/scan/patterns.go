package scan

import "regexp"

// pattern pairs a compiled regexp with its source text. Reason tags embed
// the source so an operator reading a manifest can see exactly which
// signature fired.
type pattern struct {
	re  *regexp.Regexp
	tag string
}

func compilePatterns(sources []string) []pattern {
	compiled := make([]pattern, len(sources))
	for i, src := range sources {
		compiled[i] = pattern{re: regexp.MustCompile(src), tag: src}
	}
	return compiled
}

// Inputs are lowercased before matching, so the patterns are written in
// lowercase without (?i).
var promptInjectionPatterns = compilePatterns([]string{
	`ignore\s+(all\s+)?(previous|prior|above)\s+instructions`,
	`reveal\s+(your\s+)?(system|developer)\s+prompt`,
	`bypass\s+(policy|safeguards|security)`,
	`disable\s+(security|guardrails|safeguards)`,
	`you\s+are\s+now\s+(developer|admin|root)`,
})

var malwareCommandPatterns = compilePatterns([]string{
	`powershell\s+-enc(odedcommand)?`,
	`cmd\.exe\s+/c`,
	`curl\s+https?://.+\|\s*(sh|bash)`,
	`wget\s+https?://.+\|\s*(sh|bash)`,
	`base64\s+-d`,
	`from\s+base64\s+import`,
})

// matchTags returns one "<family>:<pattern>" reason per matching pattern.
func matchTags(patterns []pattern, lowered, family string) []string {
	var tags []string
	for _, p := range patterns {
		if p.re.MatchString(lowered) {
			tags = append(tags, family+":"+p.tag)
		}
	}
	return tags
}
