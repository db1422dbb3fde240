package address

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeComponent canonicalizes one address component for comparison:
// lowercase, diacritics stripped, punctuation removed, unit designators
// collapsed to their common abbreviations, whitespace squeezed.
func NormalizeComponent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}
	s = strings.NewReplacer(",", "", ".", "", "#", "apt ").Replace(s)
	s = strings.ReplaceAll(s, "apartment", "apt")
	s = strings.ReplaceAll(s, "unit", "apt")
	s = strings.ReplaceAll(s, "suite", "ste")
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores two already-normalized strings in [0, 1] using
// character-level longest-common-subsequence matching. Two empty strings are
// identical; one empty string matches nothing.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// BuildFullAddress joins the non-empty components into a single display line.
func BuildFullAddress(a Address) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.Region, a.Postal, a.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}
