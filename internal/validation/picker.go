package validation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/reefwatch/sharkmark/internal/catalog"
)

// removeDiacritics strips diacritical marks ("Niño" -> "Nino") so the
// picker matches names the way people type them.
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// normalizeName lowercases and folds a display name for matching.
func normalizeName(name string) string {
	return strings.ToLower(removeDiacritics(name))
}

// FilterSharks returns the catalog entries whose display name contains
// the query, case-insensitively and ignoring diacritics. An empty
// query returns the full catalog.
func FilterSharks(sharks []catalog.Shark, query string) []catalog.Shark {
	query = normalizeName(strings.TrimSpace(query))
	if query == "" {
		return sharks
	}
	matched := make([]catalog.Shark, 0, len(sharks))
	for _, s := range sharks {
		if strings.Contains(normalizeName(s.DisplayName), query) {
			matched = append(matched, s)
		}
	}
	return matched
}
