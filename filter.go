package sitewatch

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Lengths are counted in characters (runes), not bytes.
// Lines shorter than minLineLength are treated as residual noise.
// Lines that look like timestamps are dropped only when shorter than
// maxTimestampLineLength, so dates inside real content survive.
const (
	minLineLength          = 3
	maxTimestampLineLength = 100
)

var timestampRe = regexp.MustCompile(strings.Join([]string{
	`\d{1,2}:\d{2}(?::\d{2})?(?:\s*[AP]M)?`,
	`\d{4}-\d{2}-\d{2}`,
	`\d{2}/\d{2}/\d{4}`,
	`\d{1,2}/\d{1,2}/\d{2,4}`,
	`(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)`,
	`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2}`,
	`Last updated?:?\s*.*`,
	`Updated?:?\s*\d+\s*(?:seconds?|minutes?|hours?|days?)\s*ago`,
	`Published?:?\s*.*`,
}, "|"))

var boilerplateRe = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`advertisement`,
	`sponsored`,
	`ad\s*choice`,
	`cookie\s*policy`,
	`accept\s*cookies`,
	`subscribe\s*now`,
	`sign\s*up`,
	`newsletter`,
	`follow\s*us`,
	`share\s*this`,
	`×\s*close`,
	`skip\s*to\s*content`,
	`skip\s*ad`,
}, "|"))

// FilterNoise removes lines that are likely to change between fetches
// without the page content really changing: advertising and navigation
// boilerplate, short timestamp lines, and short fragments.
//
// Lines are trimmed and empty lines dropped; survivors keep their relative
// order and are joined with newlines. FilterNoise is idempotent.
func FilterNoise(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isNoise(line string) bool {
	if boilerplateRe.MatchString(line) {
		return true
	}
	n := utf8.RuneCountInString(line)
	if n < maxTimestampLineLength && timestampRe.MatchString(line) {
		return true
	}
	return n < minLineLength
}
