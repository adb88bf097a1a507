package envelope

import (
	"math"

	"github.com/zonewise/shade/errs"
)

// A ZoningConstraint is the dimensional part of a zoning district's rules.
// Lengths are in Unit; ratios are unitless.
type ZoningConstraint struct {
	FrontSetback float64 `json:"front_setback" yaml:"front_setback"`
	SideSetback  float64 `json:"side_setback" yaml:"side_setback"`
	RearSetback  float64 `json:"rear_setback" yaml:"rear_setback"`
	MaxHeight    float64 `json:"max_height" yaml:"max_height"`

	// MaxFAR is the floor area ratio limit, or nil if the district has none.
	MaxFAR *float64 `json:"max_far,omitempty" yaml:"max_far"`

	// MaxLotCoverage is the fraction of the lot a footprint may cover, or
	// nil if unlimited.
	MaxLotCoverage *float64 `json:"max_lot_coverage,omitempty" yaml:"max_lot_coverage"`

	Unit Unit `json:"unit" yaml:"unit"`
}

// Ratio returns a pointer to v, for the optional ratio fields.
func Ratio(v float64) *float64 {
	return &v
}

// Validate checks that every figure is within its domain.
func (z ZoningConstraint) Validate() error {
	if !z.Unit.Valid() {
		return errs.New(errs.InvalidInput, "unknown unit %q", string(z.Unit))
	}
	for _, s := range []struct {
		name string
		v    float64
	}{
		{"front setback", z.FrontSetback},
		{"side setback", z.SideSetback},
		{"rear setback", z.RearSetback},
	} {
		if math.IsNaN(s.v) || math.IsInf(s.v, 0) || s.v < 0 {
			return errs.New(errs.InvalidInput, "%s must be a non-negative length, got %v", s.name, s.v)
		}
	}
	if !(z.MaxHeight > 0) || math.IsInf(z.MaxHeight, 0) {
		return errs.New(errs.InvalidInput, "max height must be positive, got %v", z.MaxHeight)
	}
	if z.MaxFAR != nil && (!(*z.MaxFAR > 0) || math.IsInf(*z.MaxFAR, 0)) {
		return errs.New(errs.InvalidInput, "max FAR must be positive, got %v", *z.MaxFAR)
	}
	if c := z.MaxLotCoverage; c != nil && !(*c > 0 && *c <= 1) {
		return errs.New(errs.InvalidInput, "max lot coverage must be in (0, 1], got %v", *c)
	}
	return nil
}

// InMeters returns z with every length converted to meters.
func (z ZoningConstraint) InMeters() ZoningConstraint {
	u := z.Unit
	z.FrontSetback = u.ToMeters(z.FrontSetback)
	z.SideSetback = u.ToMeters(z.SideSetback)
	z.RearSetback = u.ToMeters(z.RearSetback)
	z.MaxHeight = u.ToMeters(z.MaxHeight)
	z.Unit = Meters
	return z
}
