package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s into a comparison key: diacritics stripped, lowercased,
// trimmed, inner whitespace collapsed to one space.
func Normalize(s string) string {
	// transform chains keep state, so one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Slugify turns a display name into a URL segment, e.g. "Líquidos" into "liquidos".
func Slugify(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "-")
}
