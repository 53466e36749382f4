package domain

// CatalogEntry is the reference definition of one supported test.
type CatalogEntry struct {
	CanonicalName  string   `json:"name"`
	Aliases        []string `json:"aliases"`
	Unit           string   `json:"unit"`
	ReferenceRange Range    `json:"reference_range"`
	Category       string   `json:"category"`
	Explanation    string   `json:"explanation,omitempty"`
	Causes         Guidance `json:"causes,omitempty"`
	Advice         Advice   `json:"advice,omitempty"`
}

// Guidance lists possible causes per abnormal direction.
type Guidance struct {
	Low  []string `json:"low,omitempty" yaml:"low"`
	High []string `json:"high,omitempty" yaml:"high"`
}

// Advice holds a recommendation per abnormal direction.
type Advice struct {
	Low  string `json:"low,omitempty" yaml:"low"`
	High string `json:"high,omitempty" yaml:"high"`
}

// CausesFor returns the causes listed for an abnormal status.
func (e CatalogEntry) CausesFor(s Status) []string {
	switch s {
	case StatusLow:
		return e.Causes.Low
	case StatusHigh:
		return e.Causes.High
	}
	return nil
}

// AdviceFor returns the recommendation for an abnormal status.
func (e CatalogEntry) AdviceFor(s Status) string {
	switch s {
	case StatusLow:
		return e.Advice.Low
	case StatusHigh:
		return e.Advice.High
	}
	return ""
}
