// Package normalize folds user-entered text into stable keys for lookups and sorting.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Email returns the canonical form used for the unique email index.
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SortKey folds a title for case and accent insensitive ordering.
// "Élan Vital" and "elan vital" produce the same key.
func SortKey(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
