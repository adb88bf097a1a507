package envelope

import (
	"github.com/zonewise/shade/errs"
	"github.com/zonewise/shade/geom"
)

// A Strategy turns zoning setbacks into one inset distance per lot edge.
type Strategy interface {
	// Name identifies the strategy in logs and results.
	Name() string

	// Setbacks returns the non-negative setback of every edge of lot, in
	// meters. roles is nil when the parcel carries no edge metadata; z is
	// already in meters.
	Setbacks(lot geom.Polygon, roles []EdgeRole, z ZoningConstraint) ([]float64, error)
}

// PerEdge applies the front, side or rear setback to each edge according
// to its role. Edges of unknown role get the side setback.
type PerEdge struct{}

func (PerEdge) Name() string { return "per_edge" }

func (PerEdge) Setbacks(lot geom.Polygon, roles []EdgeRole, z ZoningConstraint) ([]float64, error) {
	if len(roles) != len(lot) {
		return nil, errs.New(errs.InvalidInput, "per-edge setbacks need a role for each of the %d lot edges", len(lot))
	}
	d := make([]float64, len(lot))
	for i, r := range roles {
		switch r {
		case Front:
			d[i] = z.FrontSetback
		case Rear:
			d[i] = z.RearSetback
		default:
			d[i] = z.SideSetback
		}
	}
	return d, nil
}

// UniformAverage insets every edge by the same distance: the average of the
// three setbacks weighted by the length of lot line each applies to on the
// lot's minimum bounding rectangle. The short side of that rectangle is
// taken as the frontage. For a W×D rectangular lot this is
//
//	d = (W·(front+rear) + 2·D·side) / (2·(W+D))
//
// which is the uniform distance whose perimeter strip matches the area the
// per-edge setbacks would take, to first order.
type UniformAverage struct{}

func (UniformAverage) Name() string { return "uniform_average" }

func (UniformAverage) Setbacks(lot geom.Polygon, _ []EdgeRole, z ZoningConstraint) ([]float64, error) {
	w, depth, _ := lot.OrientedExtent()
	if w+depth <= 0 {
		return nil, errs.New(errs.InvalidPolygon, "lot has no extent")
	}
	avg := (w*(z.FrontSetback+z.RearSetback) + 2*depth*z.SideSetback) / (2 * (w + depth))
	d := make([]float64, len(lot))
	for i := range d {
		d[i] = avg
	}
	return d, nil
}

// SelectStrategy returns PerEdge when the parcel's edge roles are known or
// can be inferred from its frontage, and UniformAverage otherwise.
func SelectStrategy(p *Parcel) Strategy {
	if p.Roles() != nil {
		return PerEdge{}
	}
	return UniformAverage{}
}
