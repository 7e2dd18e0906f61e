package mailer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
	"–", "-", "—", "-",
)

// SanitizeCredential folds raw to ASCII for SMTP AUTH. Smart quotes and dashes
// map to their ASCII forms, the rest is NFKD-decomposed and any non-ASCII rune
// is removed. The boolean reports whether the value changed.
func SanitizeCredential(raw string) (string, bool) {
	if raw == "" {
		return raw, false
	}
	asciiOnly := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(asciiOnly, punctuation.Replace(raw))
	if err != nil {
		out = strings.Map(func(r rune) rune {
			if r > unicode.MaxASCII {
				return -1
			}
			return r
		}, raw)
	}
	return out, out != raw
}
