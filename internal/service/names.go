package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldName lower-cases a name, strips diacritics and punctuation and collapses
// whitespace, so "  José  O'Neil " becomes "jose oneil".
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

// lettersOnly drops everything but letters from a folded name.
func lettersOnly(folded string) []rune {
	out := make([]rune, 0, len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) {
			out = append(out, r)
		}
	}
	return out
}
