// Package parser extracts candidate test records from single lines of report text.
package parser

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/textnorm"
)

const number = `\d{1,3}(?:,\d{2,3})+(?:\.\d+)?|\d+(?:\.\d+)?|\.\d+`

var (
	// Words start with a letter and may carry digits ("Vitamin B12", "HbA1c").
	namePattern = regexp.MustCompile(`^\p{L}[\p{L}\p{N}]*(?:[ \t\-/.,'&()]+\p{L}[\p{L}\p{N}]*)*\)?`)

	// Bullets and list numbering in front of the name ("* ", "3) ", "12. ").
	leadingNoise = regexp.MustCompile(`^(?:[^\p{L}\p{N}]+|\d{1,2}[.)]\s+)+`)

	numberPattern = regexp.MustCompile(number)

	// A printed range directly after the value or unit: "12.0-15.0", "(12 - 15)", "[70 to 100]".
	adjacentRange = regexp.MustCompile(`^\s*[\(\[]?\s*(` + number + `)\s*(?:-|–|to)\s*(` + number + `)\s*[\)\]]?`)

	// A printed range anywhere further along the line.
	looseRange = regexp.MustCompile(`(` + number + `)\s*(?:-|–|to)\s*(` + number + `)`)

	unitPattern = regexp.MustCompile(`^\s*([\p{L}%µ/×][\p{L}\p{N}%/\-^.µ]*)`)

	statusPattern = regexp.MustCompile(`(?i)\b(low|high|normal)\b`)

	// Words that turn a status word into a label ("Normal range 12-15").
	statusLabel = regexp.MustCompile(`(?i)^\s*(?:range|ranges|value|values|limit|limits|reference|ref)\b`)

	// A digit run fused onto the end of the last name word ("Hemoglobin10").
	trailingDigits = regexp.MustCompile(`\p{L}(\d+)$`)

	// Text that shows the fused digits belong to the value: the rest of a number,
	// or a bare unit.
	gluedFraction = regexp.MustCompile(`^[.,]\d`)
	gluedUnit     = regexp.MustCompile(`^\s+(?:%|[\p{L}µ]*/[\p{L}\p{N}]+)`)
)

// Parser reads one line at a time. It holds no per-line state and is safe for concurrent use.
type Parser struct {
	policy domain.ParsePolicy
	skip   map[string]struct{}
	maxLen int
	digits float64
	logger *logrus.Logger
}

var _ domain.LineParser = (*Parser)(nil)

// New creates a parser. A nil logger discards debug output.
func New(policy domain.ParsePolicy, cfg domain.ParserConfig, logger *logrus.Logger) *Parser {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	skip := make(map[string]struct{}, len(cfg.SkipKeywords))
	for _, kw := range cfg.SkipKeywords {
		if kw = textnorm.Fold(kw); kw != "" {
			skip[kw] = struct{}{}
		}
	}

	return &Parser{
		policy: policy,
		skip:   skip,
		maxLen: cfg.MaxLineLength,
		digits: cfg.MaxDigitRatio,
		logger: logger,
	}
}

// Parse extracts a candidate record from line. It reports false when the line holds no
// numeric value or looks like header and metadata content.
func (p *Parser) Parse(line string) (domain.ParsedTest, bool) {
	text := strings.TrimSpace(line)
	if text == "" {
		return domain.ParsedTest{}, false
	}
	if p.maxLen > 0 && len([]rune(text)) > p.maxLen {
		p.logger.WithField("length", len(text)).Debug("Skipping overlong line")
		return domain.ParsedTest{}, false
	}
	if p.digits > 0 && digitRatio(text) > p.digits {
		p.logger.WithField("line", text).Debug("Skipping mostly numeric line")
		return domain.ParsedTest{}, false
	}

	body := leadingNoise.ReplaceAllString(text, "")
	lead := splitGluedValue(body, namePattern.FindString(body))
	name := cleanName(lead)
	rest := body[len(lead):]

	if kw, hit := p.headerKeyword(name); hit {
		p.logger.WithFields(logrus.Fields{"line": text, "keyword": kw}).Debug("Skipping header line")
		return domain.ParsedTest{}, false
	}

	loc := numberPattern.FindStringIndex(rest)
	if loc == nil {
		return domain.ParsedTest{}, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(rest[loc[0]:loc[1]], ",", ""), 64)
	if err != nil {
		return domain.ParsedTest{}, false
	}

	after := rest[loc[1]:]
	unit, n := matchUnit(after)
	after = after[n:]

	printed, n := matchRange(adjacentRange, after, true)
	after = after[n:]
	if unit == "" {
		unit, _ = matchUnit(after)
	}
	if printed == nil {
		printed, _ = matchRange(looseRange, after, false)
	}

	parsed := domain.ParsedTest{
		CandidateName:  name,
		Value:          value,
		Unit:           unit,
		ExplicitStatus: explicitStatus(rest[loc[1]:]),
		RawLine:        line,
		PrintedRange:   printed,
	}
	parsed.ParseConfidence = p.score(parsed)
	return parsed, true
}

// ParseLines parses every line in order and keeps only the lines that produced a record.
func (p *Parser) ParseLines(lines []string) []domain.ParsedTest {
	parsed := make([]domain.ParsedTest, 0, len(lines))
	for _, line := range lines {
		if pt, ok := p.Parse(line); ok {
			parsed = append(parsed, pt)
		}
	}
	return parsed
}

func (p *Parser) score(t domain.ParsedTest) float64 {
	pp := p.policy
	score := pp.Base
	if len([]rune(t.CandidateName)) > pp.MinNameLength {
		score += pp.NameBonus
	}
	if t.Value >= pp.MinPlausibleValue && t.Value <= pp.MaxPlausibleValue {
		score += pp.ValueBonus
	}
	if t.Unit != "" {
		score += pp.UnitBonus
	}
	if t.ExplicitStatus != domain.StatusNone {
		score += pp.StatusBonus
	}
	return min(max(score, pp.Floor), pp.Ceiling)
}

func (p *Parser) headerKeyword(name string) (string, bool) {
	if len(p.skip) == 0 || name == "" {
		return "", false
	}
	words := strings.FieldsFunc(textnorm.Fold(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := p.skip[w]; ok {
			return w, true
		}
	}
	return "", false
}

// splitGluedValue gives digits fused onto the last name word back to the value when the
// text after the name continues a number or starts with a unit.
func splitGluedValue(body, lead string) string {
	m := trailingDigits.FindStringSubmatchIndex(lead)
	if m == nil {
		return lead
	}
	rest := body[len(lead):]
	if gluedFraction.MatchString(rest) || gluedUnit.MatchString(rest) {
		return lead[:m[2]]
	}
	return lead
}

// explicitStatus returns the first low/high/normal marker in s that is not part of a
// label such as "Normal range" or "High value".
func explicitStatus(s string) domain.Status {
	for _, m := range statusPattern.FindAllStringSubmatchIndex(s, -1) {
		if statusLabel.MatchString(s[m[1]:]) {
			continue
		}
		return domain.Status(strings.ToLower(s[m[2]:m[3]]))
	}
	return domain.StatusNone
}

func cleanName(name string) string {
	name = strings.TrimRight(name, " \t-/.,'&(")
	if strings.HasSuffix(name, ")") && !strings.Contains(name, "(") {
		name = strings.TrimRight(name, ") \t")
	}
	return strings.TrimSpace(name)
}

// matchUnit returns the unit token at the start of s and how many bytes it consumed.
func matchUnit(s string) (string, int) {
	m := unitPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return "", 0
	}
	unit := strings.TrimRight(s[m[2]:m[3]], ".-")
	if unit == "" || isStatusWord(unit) {
		return "", 0
	}
	return unit, m[1]
}

func isStatusWord(s string) bool {
	switch strings.ToLower(s) {
	case "low", "high", "normal":
		return true
	}
	return false
}

func matchRange(re *regexp.Regexp, s string, anchored bool) (*domain.Range, int) {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return nil, 0
	}
	low, errLow := strconv.ParseFloat(strings.ReplaceAll(s[m[2]:m[3]], ",", ""), 64)
	high, errHigh := strconv.ParseFloat(strings.ReplaceAll(s[m[4]:m[5]], ",", ""), 64)
	if errLow != nil || errHigh != nil || low > high {
		return nil, 0
	}
	consumed := 0
	if anchored {
		consumed = m[1]
	}
	return &domain.Range{Low: low, High: high}, consumed
}

func digitRatio(s string) float64 {
	var total, digits int
	for _, r := range s {
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}
