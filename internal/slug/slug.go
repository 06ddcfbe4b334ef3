// Package slug turns product names into URL path segments.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make lowercases name, folds accented letters to their base letter and
// collapses every run of characters outside [a-z0-9] into a single '-'.
// Leading and trailing separators are dropped, so the result is empty only
// when name has no letters or digits.
//
//	Make("Business Cards – Premium (500)") == "business-cards-premium-500"
func Make(name string) string {
	folded := fold(name)

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// fold strips combining marks after canonical decomposition ("é" -> "e").
// On transformer failure the input is returned unchanged.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
