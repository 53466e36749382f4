// Package guardrail rejects normalized tests whose names are not attested in the source text.
package guardrail

import (
	"fmt"
	"strings"

	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/textnorm"
)

// Verdict splits normalized tests into grounded and hallucinated ones.
type Verdict struct {
	Validated []domain.NormalizedTest
	// Hallucinated holds the canonical names of rejected tests, first occurrence order, no repeats.
	Hallucinated []string
	Warnings     []string
}

// Validate keeps each test whose canonical name or one of its aliases occurs in at least one
// raw line, ignoring case and spacing. Every other test is reported as hallucinated.
func Validate(rawLines []string, tests []domain.NormalizedTest) Verdict {
	haystack := textnorm.FoldAll(rawLines)

	v := Verdict{Validated: make([]domain.NormalizedTest, 0, len(tests))}
	seen := make(map[string]bool)
	for _, t := range tests {
		if Grounded(haystack, t) {
			v.Validated = append(v.Validated, t)
			continue
		}
		if seen[t.CanonicalName] {
			continue
		}
		seen[t.CanonicalName] = true
		v.Hallucinated = append(v.Hallucinated, t.CanonicalName)
		v.Warnings = append(v.Warnings, fmt.Sprintf("hallucinated test removed: %s is not mentioned in the report text", t.CanonicalName))
	}
	return v
}

// Grounded reports whether t is attested in any of the already folded lines.
func Grounded(foldedLines []string, t domain.NormalizedTest) bool {
	needles := make([]string, 0, len(t.Aliases)+1)
	for _, s := range append([]string{t.CanonicalName}, t.Aliases...) {
		if n := textnorm.Fold(s); n != "" {
			needles = append(needles, n)
		}
	}
	for _, line := range foldedLines {
		for _, n := range needles {
			if strings.Contains(line, n) {
				return true
			}
		}
	}
	return false
}
