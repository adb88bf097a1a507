package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zonewise/shade/errs"
)

func rect(x0, y0, x1, y1 float64) Polygon {
	return Polygon{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// regular returns a regular n-gon of circumradius r centered at c.
func regular(n int, r float64, c r2.Vec) Polygon {
	p := make(Polygon, n)
	for i := range p {
		a := 2 * math.Pi * float64(i) / float64(n)
		p[i] = r2.Add(c, r2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)})
	}
	return p
}

func TestAreaAndCentroid(t *testing.T) {
	p := rect(0, 0, 30, 45)
	if got := p.SignedArea(); got != 1350 {
		t.Errorf("SignedArea() = %v, want 1350", got)
	}
	if got := p.Reverse().SignedArea(); got != -1350 {
		t.Errorf("reversed SignedArea() = %v, want -1350", got)
	}
	if got, want := p.Centroid(), (r2.Vec{X: 15, Y: 22.5}); got != want {
		t.Errorf("Centroid() = %v, want %v", got, want)
	}
	if got := p.Perimeter(); got != 150 {
		t.Errorf("Perimeter() = %v, want 150", got)
	}
	b := p.Bounds()
	if b.Min != (r2.Vec{}) || b.Max != (r2.Vec{X: 30, Y: 45}) {
		t.Errorf("Bounds() = %v", b)
	}
}

func TestClean(t *testing.T) {
	p := Polygon{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 0},
		{X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}
	want := rect(0, 0, 10, 10)
	if diff := cmp.Diff(want, p.Clean(Tolerance)); diff != "" {
		t.Errorf("Clean() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Polygon
	}{
		{"two vertices", Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		{"collinear", Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}},
		{"repeated vertex", Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}},
		{"bowtie", Polygon{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10}}},
		{"nan", Polygon{{X: 0, Y: 0}, {X: math.NaN(), Y: 0}, {X: 1, Y: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if !errors.Is(err, errs.ErrInvalidPolygon) {
				t.Errorf("Validate() = %v, want invalid polygon", err)
			}
		})
	}
	if err := rect(0, 0, 1, 1).Validate(); err != nil {
		t.Errorf("Validate(unit square) = %v, want nil", err)
	}
}

func TestContainsAndWithin(t *testing.T) {
	outer := rect(0, 0, 10, 10)
	if !outer.Contains(r2.Vec{X: 5, Y: 5}) {
		t.Error("center not contained")
	}
	if outer.Contains(r2.Vec{X: 11, Y: 5}) {
		t.Error("outside point contained")
	}
	if !rect(1, 1, 9, 9).Within(outer, 1e-9) {
		t.Error("inner square not within outer")
	}
	if !outer.Within(outer, 1e-9) {
		t.Error("square not within itself")
	}
	if rect(5, 5, 15, 15).Within(outer, 1e-9) {
		t.Error("overlapping square reported within")
	}
}

func TestOrientedExtent(t *testing.T) {
	p := rect(-15, -22.5, 15, 22.5)
	rot := make(Polygon, len(p))
	const a = math.Pi / 6
	for i, v := range p {
		rot[i] = r2.Rotate(v, a, r2.Vec{})
	}
	short, long, _ := rot.OrientedExtent()
	if !scalar.EqualWithinAbs(short, 30, 1e-9) || !scalar.EqualWithinAbs(long, 45, 1e-9) {
		t.Errorf("OrientedExtent() = %v, %v, want 30, 45", short, long)
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	ring := []LonLat{
		{Lon: -80.5690, Lat: 28.0038},
		{Lon: -80.5687, Lat: 28.0038},
		{Lon: -80.5687, Lat: 28.0042},
		{Lon: -80.5690, Lat: 28.0042},
		{Lon: -80.5690, Lat: 28.0038},
	}
	p, pr := LocalProjection(ring, LonLat{})
	if len(p) != 4 {
		t.Fatalf("projected %d vertices, want the closing vertex dropped", len(p))
	}
	c := p.Centroid()
	if r2.Norm(c) > 1e-6 {
		t.Errorf("centroid of projected ring = %v, want origin", c)
	}
	back := pr.InverseRing(p)
	for i, ll := range back {
		if !scalar.EqualWithinAbs(ll.Lon, ring[i].Lon, 1e-10) || !scalar.EqualWithinAbs(ll.Lat, ring[i].Lat, 1e-10) {
			t.Errorf("vertex %d round trip = %v, want %v", i, ll, ring[i])
		}
	}

	// 0.0004° of latitude is ~44.5 m everywhere.
	b := p.Bounds()
	if h := b.Max.Y - b.Min.Y; !scalar.EqualWithinAbs(h, 0.0004*EarthRadius*deg2rad, 1e-6) {
		t.Errorf("north-south extent = %v m", h)
	}
}

func TestWrapLon(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{
		{0, 0}, {179.5, 179.5}, {180, -180}, {-181, 179}, {540, -180}, {-359, 1},
	} {
		if got := wrapLon(tt.in); !scalar.EqualWithinAbs(got, tt.want, 1e-12) {
			t.Errorf("wrapLon(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
