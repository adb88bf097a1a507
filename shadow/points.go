package shadow

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/errs"
	"github.com/zonewise/shade/geom"
)

func checkSpacing(spacing float64) error {
	if !(spacing > 0) || math.IsInf(spacing, 1) {
		return errs.New(errs.InvalidInput, "grid spacing must be positive, got %v", spacing)
	}
	return nil
}

// GroundGrid returns the points of a square lattice with the given spacing
// covering b at height z, starting at b.Min. Points run along X first, then
// Y.
func GroundGrid(b r2.Box, spacing, z float64) ([]r3.Vec, error) {
	if err := checkSpacing(spacing); err != nil {
		return nil, err
	}
	if b.Max.X < b.Min.X || b.Max.Y < b.Min.Y {
		return nil, errs.New(errs.InvalidInput, "empty grid bounds %v", b)
	}
	// The tolerance keeps a lattice that exactly spans b from losing its
	// last row to rounding.
	nx := int(math.Floor((b.Max.X-b.Min.X)/spacing+1e-9)) + 1
	ny := int(math.Floor((b.Max.Y-b.Min.Y)/spacing+1e-9)) + 1
	pts := make([]r3.Vec, 0, nx*ny)
	for j := range ny {
		for i := range nx {
			pts = append(pts, r3.Vec{
				X: b.Min.X + float64(i)*spacing,
				Y: b.Min.Y + float64(j)*spacing,
				Z: z,
			})
		}
	}
	return pts, nil
}

// PolygonGrid returns the points of GroundGrid over poly's bounds that lie
// inside poly.
func PolygonGrid(poly geom.Polygon, spacing, z float64) ([]r3.Vec, error) {
	if err := poly.Validate(); err != nil {
		return nil, err
	}
	all, err := GroundGrid(poly.Bounds(), spacing, z)
	if err != nil {
		return nil, err
	}
	pts := all[:0]
	for _, p := range all {
		if poly.Contains(r2.Vec{X: p.X, Y: p.Y}) {
			pts = append(pts, p)
		}
	}
	return pts, nil
}

// FacadePoints returns points on the walls of poly extruded to height,
// moved standoff meters outward so they don't sit on the wall itself. Each
// wall is divided into cells of about spacing by spacing, with a point at
// the center of each cell. Walls are visited in order, bottom row first.
func FacadePoints(poly geom.Polygon, height, spacing, standoff float64) ([]r3.Vec, error) {
	if err := poly.Validate(); err != nil {
		return nil, err
	}
	if err := checkSpacing(spacing); err != nil {
		return nil, err
	}
	if !(height > 0) || math.IsInf(height, 1) {
		return nil, errs.New(errs.InvalidInput, "facade height must be positive, got %v", height)
	}
	if standoff < 0 || math.IsNaN(standoff) {
		return nil, errs.New(errs.InvalidInput, "negative facade standoff %v", standoff)
	}
	poly = poly.EnsureCCW()
	rows := max(1, int(math.Round(height/spacing)))
	dz := height / float64(rows)
	var pts []r3.Vec
	for i := range poly {
		a, b := poly.Edge(i)
		d := r2.Sub(b, a)
		length := r2.Norm(d)
		u := r2.Scale(1/length, d)
		// Outward is to the right of a counterclockwise ring.
		out := r2.Scale(standoff, r2.Vec{X: u.Y, Y: -u.X})
		cols := max(1, int(math.Round(length/spacing)))
		dl := length / float64(cols)
		for k := range rows {
			z := (float64(k) + 0.5) * dz
			for c := range cols {
				p := r2.Add(r2.Add(a, r2.Scale((float64(c)+0.5)*dl, u)), out)
				pts = append(pts, r3.Vec{X: p.X, Y: p.Y, Z: z})
			}
		}
	}
	return pts, nil
}
