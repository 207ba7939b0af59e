package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize maps a display string to its canonical comparison key:
// Unicode canonical decomposition, combining marks stripped, lower-cased,
// surrounding whitespace trimmed. Two targets are the same word iff their
// normalized keys are equal within the same bucket; every dedup decision
// in the system goes through this function.
func Normalize(text string) string {
	folded, _, err := transform.String(stripMarks, text)
	if err != nil {
		// transform only fails on malformed input; fall back to the raw
		// string so the key is still deterministic.
		folded = text
	}
	return strings.TrimSpace(strings.ToLower(folded))
}
