package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from a category or product name.
// Accents are stripped after canonical decomposition, so "Electrónica y
// Computación" becomes "electronica-y-computacion". ñ is kept as n.
func Generate(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		folded = strings.ToLower(name)
	}
	return strings.Trim(nonAlnum.ReplaceAllString(folded, "-"), "-")
}
