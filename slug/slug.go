// Package slug derives URL-safe identifiers and short excerpts from free text.
package slug

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make lower-cases s, folds accented letters to their base form, turns runs of
// whitespace into a hyphen, drops anything that is not a letter, digit,
// underscore or hyphen, collapses repeated hyphens and trims them from the ends.
// "Héllo,  Wörld!" becomes "hello-world".
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := true // suppresses a leading hyphen
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsSpace(r) || r == '-':
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastHyphen = false
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Truncate shortens text to at most max runes, ending with suffix when cut.
func Truncate(text string, max int, suffix string) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	keep := max - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
	}
	rs := []rune(text)
	return strings.TrimRightFunc(string(rs[:keep]), unicode.IsSpace) + suffix
}

// Excerpt is the default post summary: the first 150 characters of content.
func Excerpt(content string) string {
	return Truncate(strings.TrimSpace(content), 150, "...")
}
