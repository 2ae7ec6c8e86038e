// Package normalize canonicalises free text before keyword matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ligatures = strings.NewReplacer("œ", "oe", "æ", "ae", "ß", "ss")

// Text lower-cases s, strips diacritics and collapses every run of
// punctuation or whitespace into a single space. The result has no
// leading or trailing space; an empty result is valid.
func Text(s string) string {
	if s == "" {
		return ""
	}
	lowered := ligatures.Replace(strings.ToLower(s))

	// A transformer is stateful, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// ContainsWord reports whether phrase occurs in normalized text on word
// boundaries. Both arguments must already be normalized.
func ContainsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// IndexWord returns the byte offset of phrase in text on word boundaries, or -1.
func IndexWord(text, phrase string) int {
	if phrase == "" {
		return -1
	}
	idx := strings.Index(" "+text+" ", " "+phrase+" ")
	if idx < 0 {
		return -1
	}
	return idx
}
