package domain

import (
	"errors"
	"fmt"
)

// ScoringPolicy gathers every threshold and increment used by the scoring stages.
type ScoringPolicy struct {
	Parse      ParsePolicy      `mapstructure:"parse"`
	Resolution ResolutionPolicy `mapstructure:"resolution"`
	Status     StatusPolicy     `mapstructure:"status"`
}

// ParsePolicy drives the per-line parse confidence.
type ParsePolicy struct {
	Base              float64 `mapstructure:"base"`
	NameBonus         float64 `mapstructure:"name_bonus"`
	MinNameLength     int     `mapstructure:"min_name_length"` // name must be longer than this
	ValueBonus        float64 `mapstructure:"value_bonus"`
	MinPlausibleValue float64 `mapstructure:"min_plausible_value"`
	MaxPlausibleValue float64 `mapstructure:"max_plausible_value"`
	UnitBonus         float64 `mapstructure:"unit_bonus"`
	StatusBonus       float64 `mapstructure:"status_bonus"`
	Floor             float64 `mapstructure:"floor"`
	Ceiling           float64 `mapstructure:"ceiling"`
}

// ResolutionPolicy drives name matching.
type ResolutionPolicy struct {
	ExactConfidence     float64 `mapstructure:"exact_confidence"`
	AliasConfidence     float64 `mapstructure:"alias_confidence"`
	FuzzyThreshold      int     `mapstructure:"fuzzy_threshold"`
	FuzzyHighBand       int     `mapstructure:"fuzzy_high_band"`
	FuzzyHighConfidence float64 `mapstructure:"fuzzy_high_confidence"`
	FuzzyLowConfidence  float64 `mapstructure:"fuzzy_low_confidence"`
}

// StatusPolicy drives the status confidence bands. Fractions are relative to the range width.
type StatusPolicy struct {
	CenteredConfidence    float64 `mapstructure:"centered_confidence"`
	BoundaryFraction      float64 `mapstructure:"boundary_fraction"`
	BoundaryMinConfidence float64 `mapstructure:"boundary_min_confidence"`
	BoundaryMaxConfidence float64 `mapstructure:"boundary_max_confidence"`

	ClearFraction      float64 `mapstructure:"clear_fraction"`
	WeakMinConfidence  float64 `mapstructure:"weak_min_confidence"`
	ClearMinConfidence float64 `mapstructure:"clear_min_confidence"`
	ClearMaxConfidence float64 `mapstructure:"clear_max_confidence"`
	// SaturationFraction is the distance at which ClearMaxConfidence is reached.
	SaturationFraction float64 `mapstructure:"saturation_fraction"`

	DegenerateNormalConfidence   float64 `mapstructure:"degenerate_normal_confidence"`
	DegenerateAbnormalConfidence float64 `mapstructure:"degenerate_abnormal_confidence"`
}

// DefaultScoringPolicy returns the stock scoring policy.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Parse: ParsePolicy{
			Base:              0.5,
			NameBonus:         0.15,
			MinNameLength:     3,
			ValueBonus:        0.15,
			MinPlausibleValue: 0,
			MaxPlausibleValue: 100000,
			UnitBonus:         0.10,
			StatusBonus:       0.10,
			Floor:             0.2,
			Ceiling:           1.0,
		},
		Resolution: ResolutionPolicy{
			ExactConfidence:     1.0,
			AliasConfidence:     0.95,
			FuzzyThreshold:      80,
			FuzzyHighBand:       90,
			FuzzyHighConfidence: 0.90,
			FuzzyLowConfidence:  0.75,
		},
		Status: StatusPolicy{
			CenteredConfidence:           0.95,
			BoundaryFraction:             0.2,
			BoundaryMinConfidence:        0.70,
			BoundaryMaxConfidence:        0.85,
			ClearFraction:                0.2,
			WeakMinConfidence:            0.65,
			ClearMinConfidence:           0.85,
			ClearMaxConfidence:           0.95,
			SaturationFraction:           1.0,
			DegenerateNormalConfidence:   0.5,
			DegenerateAbnormalConfidence: 0.7,
		},
	}
}

// Validate checks that the policy is internally consistent.
func (p ScoringPolicy) Validate() error {
	var errs []error
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, NewValidationError(name, "must be within [0,1]", v))
		}
	}

	pp := p.Parse
	unit("scoring.parse.base", pp.Base)
	unit("scoring.parse.name_bonus", pp.NameBonus)
	unit("scoring.parse.value_bonus", pp.ValueBonus)
	unit("scoring.parse.unit_bonus", pp.UnitBonus)
	unit("scoring.parse.status_bonus", pp.StatusBonus)
	unit("scoring.parse.floor", pp.Floor)
	unit("scoring.parse.ceiling", pp.Ceiling)
	if pp.Floor > pp.Ceiling {
		errs = append(errs, NewValidationError("scoring.parse.floor", "must not exceed ceiling", pp.Floor))
	}
	if pp.MinPlausibleValue > pp.MaxPlausibleValue {
		errs = append(errs, NewValidationError("scoring.parse.min_plausible_value", "must not exceed max_plausible_value", pp.MinPlausibleValue))
	}

	rp := p.Resolution
	unit("scoring.resolution.exact_confidence", rp.ExactConfidence)
	unit("scoring.resolution.alias_confidence", rp.AliasConfidence)
	unit("scoring.resolution.fuzzy_high_confidence", rp.FuzzyHighConfidence)
	unit("scoring.resolution.fuzzy_low_confidence", rp.FuzzyLowConfidence)
	if rp.FuzzyThreshold < 0 || rp.FuzzyThreshold > 100 {
		errs = append(errs, NewValidationError("scoring.resolution.fuzzy_threshold", "must be within [0,100]", rp.FuzzyThreshold))
	}
	if rp.FuzzyHighBand < rp.FuzzyThreshold || rp.FuzzyHighBand > 100 {
		errs = append(errs, NewValidationError("scoring.resolution.fuzzy_high_band", "must be within [fuzzy_threshold,100]", rp.FuzzyHighBand))
	}

	sp := p.Status
	unit("scoring.status.centered_confidence", sp.CenteredConfidence)
	unit("scoring.status.boundary_min_confidence", sp.BoundaryMinConfidence)
	unit("scoring.status.boundary_max_confidence", sp.BoundaryMaxConfidence)
	unit("scoring.status.weak_min_confidence", sp.WeakMinConfidence)
	unit("scoring.status.clear_min_confidence", sp.ClearMinConfidence)
	unit("scoring.status.clear_max_confidence", sp.ClearMaxConfidence)
	unit("scoring.status.degenerate_normal_confidence", sp.DegenerateNormalConfidence)
	unit("scoring.status.degenerate_abnormal_confidence", sp.DegenerateAbnormalConfidence)
	if sp.BoundaryFraction <= 0 || sp.BoundaryFraction > 0.5 {
		errs = append(errs, NewValidationError("scoring.status.boundary_fraction", "must be within (0,0.5]", sp.BoundaryFraction))
	}
	if sp.ClearFraction <= 0 {
		errs = append(errs, NewValidationError("scoring.status.clear_fraction", "must be positive", sp.ClearFraction))
	}
	if sp.SaturationFraction <= sp.ClearFraction {
		errs = append(errs, NewValidationError("scoring.status.saturation_fraction", "must exceed clear_fraction", sp.SaturationFraction))
	}
	if sp.BoundaryMinConfidence > sp.BoundaryMaxConfidence {
		errs = append(errs, fmt.Errorf("scoring.status: boundary_min_confidence %.2f exceeds boundary_max_confidence %.2f",
			sp.BoundaryMinConfidence, sp.BoundaryMaxConfidence))
	}
	if sp.WeakMinConfidence > sp.ClearMinConfidence || sp.ClearMinConfidence > sp.ClearMaxConfidence {
		errs = append(errs, fmt.Errorf("scoring.status: abnormal bands must satisfy weak_min <= clear_min <= clear_max"))
	}

	return errors.Join(errs...)
}
