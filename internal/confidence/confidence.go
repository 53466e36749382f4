// Package confidence combines per-stage confidences into per-test and per-run scores.
// Every stage contributes equally.
package confidence

import "math"

// StageScores holds the confidence reported by each pipeline stage for one test.
type StageScores struct {
	Extraction float64 `json:"extraction"`
	Parse      float64 `json:"parse"`
	Resolution float64 `json:"resolution"`
	Status     float64 `json:"status"`
}

// Score returns the per-test confidence for s.
func (s StageScores) Score() float64 {
	return Aggregate(s.Extraction, s.Parse, s.Resolution, s.Status)
}

// Aggregate returns the arithmetic mean of the four stage confidences, each clamped to [0,1].
func Aggregate(extraction, parse, resolution, status float64) float64 {
	return (Clamp(extraction) + Clamp(parse) + Clamp(resolution) + Clamp(status)) / 4
}

// Overall returns the mean of per-test scores, or 0 when there are none.
func Overall(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += Clamp(s)
	}
	return Clamp(sum / float64(len(scores)))
}

// Clamp bounds v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Round returns v rounded to two decimals, the precision used in results.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
