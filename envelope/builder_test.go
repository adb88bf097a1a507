package envelope

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/errs"
	"github.com/zonewise/shade/geom"
)

var malabar = geom.LonLat{Lon: -80.5687, Lat: 28.004}

func rect(w, d float64) geom.Polygon {
	return geom.Polygon{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: d}, {X: 0, Y: d}}
}

// scenarioZoning is the 30 m × 45 m reference case.
func scenarioZoning() ZoningConstraint {
	return ZoningConstraint{
		FrontSetback: 7.5,
		SideSetback:  3,
		RearSetback:  6,
		MaxHeight:    10.5,
		MaxFAR:       Ratio(1.2),
		Unit:         Meters,
	}
}

func scenarioParcel(t *testing.T, opts ...ParcelOption) *Parcel {
	t.Helper()
	p, err := NewLocalParcel(rect(30, 45), malabar, opts...)
	require.NoError(t, err)
	return p
}

func TestScenario(t *testing.T) {
	for _, tt := range []struct {
		name     string
		opts     []ParcelOption
		strategy string
	}{
		{"front edge", []ParcelOption{WithFrontEdge(0)}, "per_edge"},
		{"explicit roles", []ParcelOption{WithRoles(Front, Side, Rear, Side)}, "per_edge"},
		{"no metadata", nil, "uniform_average"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Build(scenarioParcel(t, tt.opts...), scenarioZoning(), nil)
			require.NoError(t, err)

			m := env.Metrics
			assert.Equal(t, tt.strategy, env.Strategy)
			assert.InDelta(t, 1350, m.LotArea, 1e-9)
			assert.InDelta(t, 756, m.BuildableArea, 1e-6)
			assert.InDelta(t, 1350*1.2/756, m.HeightFromFAR, 1e-6)
			assert.InDelta(t, 2.142857, env.EffectiveHeight, 1e-6)
			assert.Equal(t, LimitFAR, m.HeightLimitedBy)
			assert.InDelta(t, 1620, m.MaxGFA, 1e-9)
			assert.Equal(t, 0, m.Floors)
			assert.Equal(t, 1.0, m.SetbackScale)
			assert.True(t, env.BuildablePolygon.IsCCW())
			assert.True(t, env.BuildablePolygon.Within(env.Lot, 1e-9))
		})
	}
}

func TestScenarioPerEdgeFootprint(t *testing.T) {
	env, err := Build(scenarioParcel(t, WithFrontEdge(0)), scenarioZoning(), nil)
	require.NoError(t, err)
	b := env.BuildablePolygon.Bounds()
	assert.InDelta(t, 3, b.Min.X, 1e-9)
	assert.InDelta(t, 27, b.Max.X, 1e-9)
	assert.InDelta(t, 7.5, b.Min.Y, 1e-9)
	assert.InDelta(t, 39, b.Max.Y, 1e-9)
}

func TestChamferedCornerLot(t *testing.T) {
	// A 1 m corner cut is swallowed by the side setback.
	lot := geom.Polygon{{X: 0, Y: 0}, {X: 29, Y: 0}, {X: 30, Y: 1}, {X: 30, Y: 45}, {X: 0, Y: 45}}
	parcel, err := NewLocalParcel(lot, malabar, WithFrontEdge(0))
	require.NoError(t, err)
	assert.Equal(t, []EdgeRole{Front, Side, Side, Rear, Side}, parcel.Roles())

	for _, policy := range []CollapsePolicy{FailOnCollapse, ShrinkToFit} {
		env, err := Build(parcel, scenarioZoning(), &Options{CollapsePolicy: policy})
		require.NoError(t, err)
		assert.Equal(t, 1.0, env.Metrics.SetbackScale)
		assert.InDelta(t, 1349.5, env.Metrics.LotArea, 1e-9)
		assert.InDelta(t, 756, env.Metrics.BuildableArea, 1e-6)
		assert.Len(t, env.BuildablePolygon, 4)
		assert.True(t, env.BuildablePolygon.Within(env.Lot, 1e-9))
		b := env.BuildablePolygon.Bounds()
		assert.InDelta(t, 3, b.Min.X, 1e-9)
		assert.InDelta(t, 27, b.Max.X, 1e-9)
		assert.InDelta(t, 7.5, b.Min.Y, 1e-9)
		assert.InDelta(t, 39, b.Max.Y, 1e-9)
	}
}

func TestParcelTooLargeForLocalPlane(t *testing.T) {
	// Across 300 km the local plane overstates the area by over a percent.
	parcel, err := NewLocalParcel(rect(300e3, 300e3), malabar, WithFrontEdge(0))
	require.NoError(t, err)
	_, err = Build(parcel, scenarioZoning(), nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidPolygon), "err = %v", err)

	// At 10 km the two agree well within the limit.
	parcel, err = NewLocalParcel(rect(10e3, 10e3), malabar, WithFrontEdge(0))
	require.NoError(t, err)
	_, err = Build(parcel, scenarioZoning(), nil)
	assert.NoError(t, err)
}

func TestOpposingSetbacksExceedLot(t *testing.T) {
	tests := []struct {
		name string
		opts []ParcelOption
		mod  func(*ZoningConstraint)
	}{
		{"side per edge", []ParcelOption{WithFrontEdge(0)}, func(z *ZoningConstraint) { z.SideSetback = 16 }},
		{"side uniform", nil, func(z *ZoningConstraint) { z.SideSetback = 16 }},
		{"side exactly half", []ParcelOption{WithFrontEdge(0)}, func(z *ZoningConstraint) { z.SideSetback = 15 }},
		{"front and rear", []ParcelOption{WithFrontEdge(0)}, func(z *ZoningConstraint) { z.FrontSetback, z.RearSetback = 25, 20 }},
		{"front and rear uniform", nil, func(z *ZoningConstraint) { z.FrontSetback, z.RearSetback = 25, 20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := scenarioZoning()
			tt.mod(&z)
			_, err := Build(scenarioParcel(t, tt.opts...), z, nil)
			assert.True(t, errors.Is(err, errs.ErrNoBuildableArea), "err = %v", err)
		})
	}
}

func TestEffectiveHeight(t *testing.T) {
	parcel := scenarioParcel(t, WithFrontEdge(0))

	z := scenarioZoning()
	z.MaxFAR = nil
	env, err := Build(parcel, z, nil)
	require.NoError(t, err)
	assert.Equal(t, 10.5, env.EffectiveHeight)
	assert.Equal(t, LimitMaxHeight, env.Metrics.HeightLimitedBy)
	assert.True(t, math.IsInf(env.Metrics.HeightFromFAR, 1))
	assert.InDelta(t, 756*10.5/3, env.Metrics.MaxGFA, 1e-6)
	assert.Equal(t, 3, env.Metrics.Floors)

	// A generous FAR leaves the height limit in charge.
	z.MaxFAR = Ratio(20)
	env, err = Build(parcel, z, nil)
	require.NoError(t, err)
	assert.Equal(t, 10.5, env.EffectiveHeight)
	assert.Equal(t, LimitMaxHeight, env.Metrics.HeightLimitedBy)
	assert.InDelta(t, 1350*20/756.0, env.Metrics.HeightFromFAR, 1e-6)
	assert.InDelta(t, 27000, env.Metrics.MaxGFA, 1e-6)
}

func TestLotCoverage(t *testing.T) {
	z := scenarioZoning()
	z.MaxFAR = nil
	z.MaxLotCoverage = Ratio(0.4)
	env, err := Build(scenarioParcel(t, WithFrontEdge(0)), z, &Options{AverageFloorHeight: 3.5})
	require.NoError(t, err)
	assert.InDelta(t, 540, env.Metrics.CoverageLimitedArea, 1e-9)
	assert.InDelta(t, 540*10.5/3.5, env.Metrics.MaxGFA, 1e-6)
	assert.Equal(t, 3, env.Metrics.Floors)
	assert.InDelta(t, 0.5, env.Metrics.FARUtilization(810), 1e-9)
}

func TestTriangleCount(t *testing.T) {
	lots := map[string]geom.Polygon{
		"rectangle": rect(30, 45),
		"L": {
			{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 20},
			{X: 20, Y: 20}, {X: 20, Y: 40}, {X: 0, Y: 40},
		},
		"pentagon": {{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 38, Y: 20}, {X: 15, Y: 35}, {X: -8, Y: 20}},
	}
	z := ZoningConstraint{FrontSetback: 2, SideSetback: 2, RearSetback: 2, MaxHeight: 12}
	for name, lot := range lots {
		t.Run(name, func(t *testing.T) {
			parcel, err := NewLocalParcel(lot, malabar)
			require.NoError(t, err)
			env, err := Build(parcel, z, nil)
			require.NoError(t, err)

			base, err := geom.Triangulate(env.BuildablePolygon)
			require.NoError(t, err)
			n := len(env.BuildablePolygon)
			assert.Equal(t, 2*len(base)+2*n, env.Mesh.TriangleCount())
			assert.Len(t, env.Mesh.Normals, env.Mesh.TriangleCount())
		})
	}
}

func TestIdempotent(t *testing.T) {
	build := func() *Envelope {
		p, err := NewParcel(malabarRing(), WithFrontEdge(0))
		require.NoError(t, err)
		env, err := Build(p, rs10(), nil)
		require.NoError(t, err)
		return env
	}
	a, b := build(), build()
	assert.True(t, reflect.DeepEqual(a, b), "two builds from identical inputs differ")
}

func TestShrinkToFit(t *testing.T) {
	z := scenarioZoning()
	z.SideSetback = 16
	parcel := scenarioParcel(t, WithFrontEdge(0))

	_, err := Build(parcel, z, nil)
	require.True(t, errors.Is(err, errs.ErrNoBuildableArea), "default policy: err = %v", err)

	env, err := Build(parcel, z, &Options{CollapsePolicy: ShrinkToFit})
	require.NoError(t, err)
	s := env.Metrics.SetbackScale
	assert.Greater(t, s, 0.93)
	assert.Less(t, s, 0.9375)
	assert.GreaterOrEqual(t, env.Metrics.BuildableArea, DefaultMinBuildableArea)
	assert.Less(t, env.Metrics.BuildableArea, 1.01)
}

func TestDegenerateInsetPropagates(t *testing.T) {
	// A narrow tab turns inside out under a 3 m setback while the body of the
	// lot keeps its area.
	tab := geom.Polygon{
		{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 11, Y: 20},
		{X: 11, Y: 22}, {X: 9, Y: 22}, {X: 9, Y: 20}, {X: 0, Y: 20},
	}
	parcel, err := NewLocalParcel(tab, malabar)
	require.NoError(t, err)
	z := ZoningConstraint{FrontSetback: 3, SideSetback: 3, RearSetback: 3, MaxHeight: 10}
	_, err = Build(parcel, z, &Options{Strategy: UniformAverage{}})
	assert.True(t, errors.Is(err, errs.ErrDegeneratePolygon), "err = %v", err)
	assert.False(t, errors.Is(err, errs.ErrNoBuildableArea), "err = %v", err)
}

func TestInvalidInput(t *testing.T) {
	parcel := scenarioParcel(t)

	z := scenarioZoning()
	z.SideSetback = -1
	_, err := Build(parcel, z, nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput), "negative setback: err = %v", err)

	z = scenarioZoning()
	z.MaxHeight = 0
	_, err = Build(parcel, z, nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput), "zero height: err = %v", err)

	z = scenarioZoning()
	z.MaxLotCoverage = Ratio(1.5)
	_, err = Build(parcel, z, nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput), "coverage over 1: err = %v", err)

	z = scenarioZoning()
	z.Unit = "furlong"
	_, err = Build(parcel, z, nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput), "bad unit: err = %v", err)

	_, err = Build(parcel, scenarioZoning(), &Options{Strategy: PerEdge{}})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput), "per-edge without roles: err = %v", err)
}

func TestFeet(t *testing.T) {
	// The same lot and rules expressed in feet give the same envelope.
	const ft = 1 / metersPerFoot
	lot := rect(30, 45)
	parcel, err := NewLocalParcel(lot, malabar, WithFrontEdge(0))
	require.NoError(t, err)
	z := ZoningConstraint{
		FrontSetback: 7.5 * ft,
		SideSetback:  3 * ft,
		RearSetback:  6 * ft,
		MaxHeight:    10.5 * ft,
		MaxFAR:       Ratio(1.2),
		Unit:         Feet,
	}
	env, err := Build(parcel, z, nil)
	require.NoError(t, err)
	assert.InDelta(t, 756, env.Metrics.BuildableArea, 1e-6)
	assert.InDelta(t, 2.142857, env.EffectiveHeight, 1e-6)

	ex := env.Export(Feet)
	assert.Equal(t, Feet, ex.Unit)
	assert.InDelta(t, 756*ft*ft, ex.BuildableArea, 1e-6)
	assert.InDelta(t, 1350*ft*ft, ex.LotArea, 1e-6)
	assert.InDelta(t, env.EffectiveHeight*ft, ex.EffectiveHeight, 1e-9)
	assert.Len(t, ex.Vertices, 3*len(env.Mesh.Verts))
	assert.Len(t, ex.Indices, 3*env.Mesh.TriangleCount())
	assert.Len(t, ex.Normals, 3*env.Mesh.TriangleCount())
	assert.Len(t, ex.Footprint, len(env.BuildablePolygon))

	maxZ := 0.0
	for i := 2; i < len(ex.Vertices); i += 3 {
		maxZ = math.Max(maxZ, ex.Vertices[i])
	}
	assert.InDelta(t, ex.EffectiveHeight, maxZ, 1e-9)
}

func TestExtrudeNormals(t *testing.T) {
	base := rect(10, 20)
	m, err := Extrude(base, 5)
	require.NoError(t, err)
	require.Equal(t, 2*2+2*4, m.TriangleCount())
	for i := range m.Tris {
		// Stored normals agree with the winding.
		tri := m.Triangle(i)
		n := tri.Normal()
		assert.Greater(t, n.X*m.Normals[i].X+n.Y*m.Normals[i].Y+n.Z*m.Normals[i].Z, 0.0, "triangle %d", i)
		// And point away from the prism's center.
		c := tri.Centroid()
		out := m.Normals[i]
		assert.Greater(t, (c.X-5)*out.X+(c.Y-10)*out.Y+(c.Z-2.5)*out.Z, 0.0, "triangle %d", i)
	}

	// Clockwise input is normalized first.
	cw, err := Extrude(base.Reverse(), 5)
	require.NoError(t, err)
	assert.Equal(t, m.TriangleCount(), cw.TriangleCount())
	assert.Equal(t, r3.Vec{Z: 1}, cw.Normals[len(cw.Normals)-2*4-1])
}
