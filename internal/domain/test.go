package domain

// Status is the classification of a value against its reference range.
type Status string

const (
	StatusLow    Status = "low"
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
	// StatusNone marks a parsed line that carried no explicit status word.
	StatusNone Status = "none"
)

// IsAbnormal reports whether the status lies outside the reference range.
func (s Status) IsAbnormal() bool {
	return s == StatusLow || s == StatusHigh
}

// ResolutionMethod records which matching tier produced a canonical name.
type ResolutionMethod string

const (
	MethodExact ResolutionMethod = "exact"
	MethodAlias ResolutionMethod = "alias"
	MethodFuzzy ResolutionMethod = "fuzzy"
	MethodNone  ResolutionMethod = "none"
)

// Range is a closed reference interval [Low, High].
type Range struct {
	Low  float64 `json:"low" yaml:"low" mapstructure:"low"`
	High float64 `json:"high" yaml:"high" mapstructure:"high"`
}

// Width returns High - Low.
func (r Range) Width() float64 {
	return r.High - r.Low
}

// Contains reports whether v lies inside the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

// ParsedTest is a candidate test record extracted from a single raw line.
type ParsedTest struct {
	CandidateName   string  `json:"candidate_name"`
	Value           float64 `json:"value"`
	Unit            string  `json:"unit,omitempty"`
	ExplicitStatus  Status  `json:"explicit_status"`
	RawLine         string  `json:"raw_line"`
	ParseConfidence float64 `json:"parse_confidence"`
	// PrintedRange is a reference range printed next to the value on the same line.
	PrintedRange *Range `json:"printed_range,omitempty"`
}

// Resolution is the outcome of mapping a candidate name onto the catalog.
type Resolution struct {
	CanonicalName string           `json:"canonical_name"`
	Method        ResolutionMethod `json:"method"`
	Confidence    float64          `json:"confidence"`
	// Score is the 0-100 similarity that decided the match (100 for exact and alias).
	Score int `json:"score"`
}

// ResolvedTest pairs a parsed record with its catalog resolution.
type ResolvedTest struct {
	Parsed     ParsedTest `json:"parsed"`
	Resolution Resolution `json:"resolution"`
}

// NormalizedTest is a parsed, resolved and classified test result.
type NormalizedTest struct {
	CanonicalName        string           `json:"name"`
	Value                float64          `json:"value"`
	Unit                 string           `json:"unit"`
	ReportedUnit         string           `json:"reported_unit,omitempty"`
	Status               Status           `json:"status"`
	ReferenceRange       Range            `json:"ref_range"`
	PrintedRange         *Range           `json:"printed_range,omitempty"`
	Category             string           `json:"category"`
	ResolutionMethod     ResolutionMethod `json:"resolution_method"`
	ResolutionConfidence float64          `json:"resolution_confidence"`
	ParseConfidence      float64          `json:"parse_confidence"`
	StatusConfidence     float64          `json:"status_confidence"`
	Confidence           float64          `json:"confidence"`

	// Aliases and RawLine travel with the test so grounding checks need no catalog access.
	Aliases []string `json:"-"`
	RawLine string   `json:"-"`
}
