// Package envelope computes the maximum buildable volume of a parcel under
// dimensional zoning rules: setbacks, a height limit, an optional floor area
// ratio and an optional lot coverage limit.
//
// All computation is in meters on a local tangent plane. Results are
// converted to the caller's unit only by Envelope.Export.
package envelope

import (
	"errors"
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zonewise/shade/errs"
	"github.com/zonewise/shade/geom"
	"github.com/zonewise/shade/mesh"
)

// CollapsePolicy says what Build does when the setbacks consume the lot.
type CollapsePolicy uint8

const (
	// FailOnCollapse returns a NoBuildableArea error.
	FailOnCollapse CollapsePolicy = iota

	// ShrinkToFit scales all setbacks down by the largest factor that
	// leaves a valid buildable polygon, and reports the factor in
	// Metrics.SetbackScale.
	ShrinkToFit
)

// Default option values.
const (
	DefaultMinBuildableArea   = 1.0 // m²
	DefaultAverageFloorHeight = 3.0 // m
)

// Options control Build. The zero value is ready to use.
type Options struct {
	// Strategy forces a setback strategy. If nil, SelectStrategy picks one.
	Strategy Strategy

	CollapsePolicy CollapsePolicy

	// MinBuildableArea is the smallest footprint, in m², that counts as
	// buildable. Zero means DefaultMinBuildableArea.
	MinBuildableArea float64

	// AverageFloorHeight, in meters, converts height to floors and to gross
	// floor area when there is no FAR limit. Zero means
	// DefaultAverageFloorHeight.
	AverageFloorHeight float64

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.MinBuildableArea <= 0 {
		out.MinBuildableArea = DefaultMinBuildableArea
	}
	if out.AverageFloorHeight <= 0 {
		out.AverageFloorHeight = DefaultAverageFloorHeight
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return out
}

// HeightLimit names the rule that bounds the effective height.
type HeightLimit string

const (
	LimitMaxHeight HeightLimit = "max_height"
	LimitFAR       HeightLimit = "far"
)

// Metrics summarizes an envelope. Lengths are meters and areas m².
type Metrics struct {
	LotArea       float64
	BuildableArea float64

	// MaxGFA is the permitted gross floor area: lot area × FAR when there
	// is a FAR limit, otherwise the footprint extruded to the effective
	// height and divided by the average floor height.
	MaxGFA float64

	EffectiveHeight float64

	// HeightFromFAR is the height at which the buildable footprint reaches
	// the FAR limit, or +Inf without one.
	HeightFromFAR   float64
	HeightLimitedBy HeightLimit

	// Floors is the number of whole stories of average height that fit.
	Floors int

	// SetbackScale is 1 unless ShrinkToFit reduced the setbacks.
	SetbackScale float64

	// CoverageLimitedArea is the usable footprint: the buildable area,
	// capped by the lot coverage limit if there is one.
	CoverageLimitedArea float64
}

// FARUtilization returns the fraction of the permitted gross floor area a
// proposal of gfa m² would use.
func (m Metrics) FARUtilization(gfa float64) float64 {
	if m.MaxGFA <= 0 {
		return 0
	}
	return gfa / m.MaxGFA
}

// An Envelope is the buildable volume of a parcel: its buildable footprint
// extruded to the effective height.
type Envelope struct {
	// Lot and BuildablePolygon are counterclockwise, in local meters.
	Lot              geom.Polygon
	BuildablePolygon geom.Polygon
	EffectiveHeight  float64
	Mesh             *mesh.Mesh
	Metrics          Metrics

	// Projection maps the local plane back to WGS84.
	Projection geom.Projection

	// Strategy is the name of the setback strategy used.
	Strategy string
}

// Build computes the envelope of parcel under z.
//
// It returns an InvalidPolygon error if the lot is malformed or too large for
// its local plane, InvalidInput if
// z is, NoBuildableArea if the setbacks leave less than MinBuildableArea, and
// DegeneratePolygon if the inset self-intersects without collapsing.
// Identical inputs produce identical envelopes.
func Build(parcel *Parcel, z ZoningConstraint, opts *Options) (*Envelope, error) {
	o := opts.withDefaults()
	if err := z.Validate(); err != nil {
		return nil, err
	}
	zm := z.InMeters()
	lot, proj := parcel.Local()
	if err := checkProjection(parcel); err != nil {
		return nil, err
	}

	strategy := o.Strategy
	if strategy == nil {
		strategy = SelectStrategy(parcel)
	}
	roles := parcel.Roles()
	setbacks, err := strategy.Setbacks(lot, roles, zm)
	if err != nil {
		return nil, err
	}
	o.Logger.Debug("setbacks", "strategy", strategy.Name(), "distances", setbacks)

	buildable, scale, err := inset(lot, roles, setbacks, zm, o)
	if err != nil {
		return nil, err
	}
	if scale != 1 {
		o.Logger.Debug("setbacks shrunk to fit", "scale", scale)
	}

	lotArea := lot.Area()
	buildableArea := buildable.Area()
	m := Metrics{
		LotArea:             lotArea,
		BuildableArea:       buildableArea,
		SetbackScale:        scale,
		HeightFromFAR:       math.Inf(1),
		HeightLimitedBy:     LimitMaxHeight,
		CoverageLimitedArea: buildableArea,
	}
	if c := zm.MaxLotCoverage; c != nil {
		m.CoverageLimitedArea = math.Min(buildableArea, *c*lotArea)
	}
	h := zm.MaxHeight
	if zm.MaxFAR != nil {
		m.HeightFromFAR = lotArea * *zm.MaxFAR / buildableArea
		if m.HeightFromFAR < h {
			h = m.HeightFromFAR
			m.HeightLimitedBy = LimitFAR
		}
	}
	m.EffectiveHeight = h
	if zm.MaxFAR != nil {
		m.MaxGFA = lotArea * *zm.MaxFAR
	} else {
		m.MaxGFA = m.CoverageLimitedArea * h / o.AverageFloorHeight
	}
	m.Floors = int(math.Floor(h/o.AverageFloorHeight + 1e-9))

	buildable = buildable.EnsureCCW()
	mm, err := Extrude(buildable, h)
	if err != nil {
		return nil, err
	}
	o.Logger.Debug("envelope built",
		"lot_area", lotArea, "buildable_area", buildableArea,
		"height", h, "limited_by", m.HeightLimitedBy, "triangles", mm.TriangleCount())

	return &Envelope{
		Lot:              lot.EnsureCCW(),
		BuildablePolygon: buildable,
		EffectiveHeight:  h,
		Mesh:             mm,
		Metrics:          m,
		Projection:       proj,
		Strategy:         strategy.Name(),
	}, nil
}

// MaxProjectionError is the largest relative difference between a parcel's
// planar and geodesic areas that Build accepts.
const MaxProjectionError = 0.01

// checkProjection rejects parcels whose local plane distorts their area by
// more than MaxProjectionError.
func checkProjection(parcel *Parcel) error {
	planar, geodesic := parcel.Area(), parcel.GeodesicArea()
	if geodesic <= 0 {
		return errs.New(errs.InvalidPolygon, "parcel has no area on the sphere")
	}
	if d := math.Abs(planar-geodesic) / geodesic; d > MaxProjectionError {
		return errs.New(errs.InvalidPolygon, "parcel is too large for a local plane: planar area %.0f m² differs from geodesic area %.0f m² by %.1f%%", planar, geodesic, 100*d)
	}
	return nil
}

// inset applies setbacks to lot under the collapse policy and returns the
// buildable polygon and the setback scale used.
//
// Besides the geometric inset, opposing setbacks are checked against the
// lot's width and depth: two side setbacks that meet or exceed the width, or
// front plus rear that meet or exceed the depth, leave nothing to build
// whatever the strategy.
func inset(lot geom.Polygon, roles []EdgeRole, setbacks []float64, z ZoningConstraint, o Options) (geom.Polygon, float64, error) {
	width, depth := lotDimensions(lot, roles)
	try := func(scale float64) (geom.Polygon, error) {
		if s := 2 * z.SideSetback * scale; s > 0 && s >= width {
			return nil, errs.New(errs.NoBuildableArea, "side setbacks of %.2f m total meet or exceed the %.2f m lot width", s, width)
		}
		if s := (z.FrontSetback + z.RearSetback) * scale; s > 0 && s >= depth {
			return nil, errs.New(errs.NoBuildableArea, "front and rear setbacks of %.2f m total meet or exceed the %.2f m lot depth", s, depth)
		}
		d := make([]float64, len(setbacks))
		for i, s := range setbacks {
			d[i] = -s * scale
		}
		p, err := geom.OffsetEdges(lot, d)
		if err != nil {
			return nil, err
		}
		if p.Area() < o.MinBuildableArea {
			return nil, errs.New(errs.NoBuildableArea, "setbacks leave %.2f m² of buildable area, below the %.2f m² minimum", p.Area(), o.MinBuildableArea)
		}
		return p, nil
	}

	p, err := try(1)
	switch {
	case err == nil:
		return p, 1, nil
	case errs.KindOf(err) == errs.InvalidPolygon:
		return nil, 0, err
	case o.CollapsePolicy != ShrinkToFit:
		if errs.KindOf(err) == errs.DegeneratePolygon && errors.Is(err, geom.ErrCollapsed) {
			return nil, 0, errs.Wrap(errs.NoBuildableArea, err, "setbacks leave no buildable area on the lot")
		}
		return nil, 0, err
	}

	// Bisect for the largest scale that still works. Scale 0 is the lot
	// itself, which is valid whenever the lot is larger than the minimum.
	if _, err := try(0); err != nil {
		return nil, 0, err
	}
	lo, hi := 0.0, 1.0
	for range 50 {
		mid := (lo + hi) / 2
		if _, err := try(mid); err == nil {
			lo = mid
		} else {
			hi = mid
		}
	}
	p, err = try(lo)
	if err != nil {
		return nil, 0, err
	}
	return p, lo, nil
}

// lotDimensions returns the lot's width along its frontage and its depth
// across it. Without a known front edge the short side of the minimum
// bounding rectangle is taken as the frontage.
func lotDimensions(lot geom.Polygon, roles []EdgeRole) (width, depth float64) {
	for i, r := range roles {
		if r != Front {
			continue
		}
		a, b := lot.Edge(i)
		u := r2.Unit(r2.Sub(b, a))
		v := r2.Vec{X: -u.Y, Y: u.X}
		umin, umax := math.Inf(1), math.Inf(-1)
		vmin, vmax := math.Inf(1), math.Inf(-1)
		for _, p := range lot {
			pu, pv := r2.Dot(p, u), r2.Dot(p, v)
			umin, umax = math.Min(umin, pu), math.Max(umax, pu)
			vmin, vmax = math.Min(vmin, pv), math.Max(vmax, pv)
		}
		return umax - umin, vmax - vmin
	}
	width, depth, _ = lot.OrientedExtent()
	return width, depth
}
