// Package resolver maps candidate test names onto canonical catalog names.
package resolver

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/agnivade/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/textnorm"
)

var parenthesised = regexp.MustCompile(`\(([^()]*)\)`)

// fuzzyKey is one comparable spelling of a catalog entry.
type fuzzyKey struct {
	text      string
	canonical string
}

type memoEntry struct {
	res domain.Resolution
	ok  bool
}

// Resolver runs the exact, alias and fuzzy tiers against a catalog.
// It is safe for concurrent use.
type Resolver struct {
	catalog domain.ReferenceCatalog
	policy  domain.ResolutionPolicy
	metric  *metrics.SorensenDice
	keys    []fuzzyKey
	folded  map[string]string // canonical name -> folded canonical name
	memo    *lru.Cache[string, memoEntry]
	logger  *logrus.Logger
}

var _ domain.NameResolver = (*Resolver)(nil)

// New creates a resolver over catalog. memoSize bounds the memo of past candidates;
// zero disables it.
func New(catalog domain.ReferenceCatalog, policy domain.ResolutionPolicy, memoSize int, logger *logrus.Logger) (*Resolver, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	r := &Resolver{
		catalog: catalog,
		policy:  policy,
		metric:  metrics.NewSorensenDice(),
		folded:  make(map[string]string, catalog.Len()),
		logger:  logger,
	}
	r.metric.CaseSensitive = false
	r.metric.NgramSize = 2

	for _, e := range catalog.Entries() {
		folded := textnorm.Fold(e.CanonicalName)
		r.folded[e.CanonicalName] = folded
		r.keys = append(r.keys, fuzzyKey{text: folded, canonical: e.CanonicalName})
		for _, alias := range e.Aliases {
			r.keys = append(r.keys, fuzzyKey{text: textnorm.Fold(alias), canonical: e.CanonicalName})
		}
	}

	if memoSize > 0 {
		memo, err := lru.New[string, memoEntry](memoSize)
		if err != nil {
			return nil, fmt.Errorf("creating resolution memo: %w", err)
		}
		r.memo = memo
	}

	return r, nil
}

// Resolve maps candidate onto a canonical name. It reports false when no tier matched.
func (r *Resolver) Resolve(candidate string) (domain.Resolution, bool) {
	folded := textnorm.Fold(candidate)
	if folded == "" {
		return domain.Resolution{Method: domain.MethodNone}, false
	}

	if r.memo != nil {
		if hit, ok := r.memo.Get(folded); ok {
			return hit.res, hit.ok
		}
	}

	res, ok := r.resolve(folded)
	if r.memo != nil {
		r.memo.Add(folded, memoEntry{res: res, ok: ok})
	}
	return res, ok
}

func (r *Resolver) resolve(folded string) (domain.Resolution, bool) {
	forms := candidateForms(folded)

	for _, form := range forms {
		if e, ok := r.catalog.Lookup(form); ok {
			return domain.Resolution{
				CanonicalName: e.CanonicalName,
				Method:        domain.MethodExact,
				Confidence:    r.policy.ExactConfidence,
				Score:         100,
			}, true
		}
	}
	for _, form := range forms {
		if e, ok := r.catalog.LookupAlias(form); ok {
			return domain.Resolution{
				CanonicalName: e.CanonicalName,
				Method:        domain.MethodAlias,
				Confidence:    r.policy.AliasConfidence,
				Score:         100,
			}, true
		}
	}

	canonical, score := r.bestFuzzy(folded, forms)
	if canonical == "" || score < r.policy.FuzzyThreshold {
		r.logger.WithFields(logrus.Fields{
			"candidate":  folded,
			"best_score": score,
			"best_match": canonical,
		}).Debug("No catalog match for candidate")
		return domain.Resolution{Method: domain.MethodNone, Score: score}, false
	}

	confidence := r.policy.FuzzyLowConfidence
	if score >= r.policy.FuzzyHighBand {
		confidence = r.policy.FuzzyHighConfidence
	}

	r.logger.WithFields(logrus.Fields{
		"candidate": folded,
		"canonical": canonical,
		"score":     score,
	}).Debug("Fuzzy match")

	return domain.Resolution{
		CanonicalName: canonical,
		Method:        domain.MethodFuzzy,
		Confidence:    confidence,
		Score:         score,
	}, true
}

// bestFuzzy returns the canonical name with the highest similarity to any form of the
// candidate. A key scores the better of its bigram and token-set similarity. Ties go to the smaller edit distance to the canonical name, then to the
// lexicographically smaller name.
func (r *Resolver) bestFuzzy(folded string, forms []string) (string, int) {
	perEntry := make(map[string]int)
	for _, key := range r.keys {
		for _, form := range forms {
			score := max(r.similarity(form, key.text), r.tokenSetScore(form, key.text))
			if score > perEntry[key.canonical] {
				perEntry[key.canonical] = score
			}
		}
	}

	best, bestScore, bestDist := "", -1, math.MaxInt
	for canonical, score := range perEntry {
		if score < bestScore {
			continue
		}
		dist := levenshtein.ComputeDistance(folded, r.folded[canonical])
		switch {
		case score > bestScore,
			dist < bestDist,
			dist == bestDist && canonical < best:
			best, bestScore, bestDist = canonical, score, dist
		}
	}
	if bestScore < 0 {
		bestScore = 0
	}
	return best, bestScore
}

// similarity is the Sørensen–Dice bigram coefficient scaled to 0-100.
func (r *Resolver) similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return int(math.Round(strutil.Similarity(a, b, r.metric) * 100))
}

// tokenSetScore compares the words two strings share against each side's sorted
// remaining words, so extra qualifier words and word order do not lower the score.
// A candidate whose words contain or are contained in the key's words scores 100.
func (r *Resolver) tokenSetScore(a, b string) int {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for w := range wa {
		if wb[w] {
			common = append(common, w)
		} else {
			onlyA = append(onlyA, w)
		}
	}
	for w := range wb {
		if !wa[w] {
			onlyB = append(onlyB, w)
		}
	}
	if len(common) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(common, " ")
	restA, restB := strings.Join(onlyA, " "), strings.Join(onlyB, " ")
	best := r.similarity(strings.TrimSpace(sect+" "+restA), strings.TrimSpace(sect+" "+restB))
	if sect == "" {
		return best
	}

	// Going from sect to "sect rest" inserts len(rest)+1 runes and deletes none.
	n := utf8.RuneCountInString(sect)
	for _, rest := range []string{restA, restB} {
		inserted := utf8.RuneCountInString(rest) + 1
		score := int(math.Round(100 * (1 - float64(inserted)/float64(2*n+inserted))))
		best = max(best, score)
	}
	return best
}

func wordSet(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		words[w] = true
	}
	return words
}

// candidateForms lists the spellings tried for a folded candidate: the whole text,
// the text without parenthesised parts and each parenthesised part on its own.
func candidateForms(folded string) []string {
	forms := []string{folded}
	seen := map[string]bool{folded: true}
	add := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		s = strings.Trim(s, " -/.,:")
		if s != "" && !seen[s] {
			seen[s] = true
			forms = append(forms, s)
		}
	}

	if !strings.Contains(folded, "(") {
		return forms
	}
	add(parenthesised.ReplaceAllString(folded, " "))
	for _, m := range parenthesised.FindAllStringSubmatch(folded, -1) {
		add(m[1])
	}
	return forms
}
