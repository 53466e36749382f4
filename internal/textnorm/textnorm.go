// Package textnorm folds test names and report lines into a comparable form.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold applies NFKC normalization, lowercases, drops control characters and
// collapses runs of whitespace into single spaces.
func Fold(text string) string {
	normed := norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(normed))
	space := false
	for _, r := range normed {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// FoldAll folds every string in texts into a new slice.
func FoldAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Fold(t)
	}
	return out
}

// Unit folds a unit token for comparison; the micro sign and Greek mu both fold to "u".
func Unit(unit string) string {
	u := Fold(unit)
	u = strings.NewReplacer("µ", "u", "μ", "u", " ", "").Replace(u)
	return u
}
