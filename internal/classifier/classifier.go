// Package classifier places a measured value relative to its reference range.
package classifier

import (
	"math"

	"github.com/lab-report-normalizer/internal/domain"
)

// Classifier scores how clearly a value sits inside or outside a reference range.
type Classifier struct {
	policy domain.StatusPolicy
}

var _ domain.StatusClassifier = (*Classifier)(nil)

// New creates a classifier with the given confidence bands.
func New(policy domain.StatusPolicy) *Classifier {
	return &Classifier{policy: policy}
}

// Classify returns the status of value against rng and a confidence in [0,1].
//
// Inside the range, values in the middle band get CenteredConfidence and values in the outer
// BoundaryFraction of the width interpolate from BoundaryMinConfidence at the edge up to
// BoundaryMaxConfidence. Outside the range, confidence grows with the distance past the
// nearer bound: from WeakMinConfidence to ClearMinConfidence up to ClearFraction of the
// width, then on to ClearMaxConfidence at SaturationFraction, where it stays.
func (c *Classifier) Classify(value float64, rng domain.Range) (domain.Status, float64) {
	p := c.policy
	status := statusOf(value, rng)

	width := rng.Width()
	if width <= 0 {
		if status == domain.StatusNormal {
			return status, clamp(p.DegenerateNormalConfidence)
		}
		return status, clamp(p.DegenerateAbnormalConfidence)
	}

	if status == domain.StatusNormal {
		d := math.Min(value-rng.Low, rng.High-value) / width
		if d >= p.BoundaryFraction {
			return status, clamp(p.CenteredConfidence)
		}
		return status, clamp(lerp(p.BoundaryMinConfidence, p.BoundaryMaxConfidence, d/p.BoundaryFraction))
	}

	var distance float64
	if status == domain.StatusLow {
		distance = rng.Low - value
	} else {
		distance = value - rng.High
	}
	r := distance / width

	if r < p.ClearFraction {
		return status, clamp(lerp(p.WeakMinConfidence, p.ClearMinConfidence, r/p.ClearFraction))
	}
	t := math.Min((r-p.ClearFraction)/(p.SaturationFraction-p.ClearFraction), 1)
	return status, clamp(lerp(p.ClearMinConfidence, p.ClearMaxConfidence, t))
}

func statusOf(value float64, rng domain.Range) domain.Status {
	switch {
	case value < rng.Low:
		return domain.StatusLow
	case value > rng.High:
		return domain.StatusHigh
	default:
		return domain.StatusNormal
	}
}

func lerp(from, to, t float64) float64 {
	return from + (to-from)*t
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
