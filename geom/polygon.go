// Package geom is the planar geometry kernel: polygon offsetting, ear
// clipping triangulation, and the local tangent-plane projection used to move
// between WGS84 parcels and meters.
//
// All planar coordinates are meters in a local frame where X is east and Y is
// north.
package geom

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zonewise/shade/errs"
)

// Tolerance is the length tolerance, in meters, used for coincident points
// and collinearity. Parcel geometry is at the centimeter scale at best, so
// anything below a micrometer is noise.
const Tolerance = 1e-6

// minArea is the area below which a ring is considered to have no interior.
const minArea = 1e-9

// A Polygon is a simple ring of vertices. The ring is implicitly closed: the
// last vertex connects back to the first. Edge i runs from vertex i to vertex
// i+1.
type Polygon []r2.Vec

// Clone returns a copy of p.
func (p Polygon) Clone() Polygon {
	return append(Polygon(nil), p...)
}

// Edge returns the endpoints of edge i, wrapping around.
func (p Polygon) Edge(i int) (a, b r2.Vec) {
	n := len(p)
	return p[i%n], p[(i+1)%n]
}

// SignedArea returns the area of p by the shoelace formula. It is positive
// for counterclockwise rings.
func (p Polygon) SignedArea() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		a, b := p.Edge(i)
		sum += r2.Cross(a, b)
	}
	return sum / 2
}

// Area returns the unsigned area of p.
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea())
}

// IsCCW reports whether p winds counterclockwise.
func (p Polygon) IsCCW() bool {
	return p.SignedArea() > 0
}

// Reverse returns p with the opposite winding.
func (p Polygon) Reverse() Polygon {
	n := len(p)
	rev := make(Polygon, n)
	for i, v := range p {
		rev[n-1-i] = v
	}
	return rev
}

// EnsureCCW returns p if it is counterclockwise and a reversed copy
// otherwise.
func (p Polygon) EnsureCCW() Polygon {
	if p.SignedArea() < 0 {
		return p.Reverse()
	}
	return p
}

// Perimeter returns the total edge length of p.
func (p Polygon) Perimeter() float64 {
	var sum float64
	for i := range p {
		a, b := p.Edge(i)
		sum += r2.Norm(r2.Sub(b, a))
	}
	return sum
}

// Centroid returns the area centroid of p. For rings with no area it
// returns the vertex average.
func (p Polygon) Centroid() r2.Vec {
	if len(p) == 0 {
		return r2.Vec{}
	}
	a := p.SignedArea()
	if math.Abs(a) < minArea {
		var sum r2.Vec
		for _, v := range p {
			sum = r2.Add(sum, v)
		}
		return r2.Scale(1/float64(len(p)), sum)
	}
	var c r2.Vec
	for i := range p {
		u, v := p.Edge(i)
		c = r2.Add(c, r2.Scale(r2.Cross(u, v), r2.Add(u, v)))
	}
	return r2.Scale(1/(6*a), c)
}

// Bounds returns the axis-aligned bounding box of p.
func (p Polygon) Bounds() r2.Box {
	if len(p) == 0 {
		return r2.Box{}
	}
	b := r2.Box{Min: p[0], Max: p[0]}
	for _, v := range p[1:] {
		b.Min.X = math.Min(b.Min.X, v.X)
		b.Min.Y = math.Min(b.Min.Y, v.Y)
		b.Max.X = math.Max(b.Max.X, v.X)
		b.Max.Y = math.Max(b.Max.Y, v.Y)
	}
	return b
}

// Clean returns a copy of p without repeated vertices (including a closing
// vertex equal to the first) and without vertices that lie within tol of the
// line through their neighbors.
func (p Polygon) Clean(tol float64) Polygon {
	out := make(Polygon, 0, len(p))
	for _, v := range p {
		if len(out) > 0 && r2.Norm(r2.Sub(v, out[len(out)-1])) <= tol {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && r2.Norm(r2.Sub(out[0], out[len(out)-1])) <= tol {
		out = out[:len(out)-1]
	}

	// Removing one collinear vertex can make its neighbor collinear, so
	// repeat until nothing changes.
	for changed := true; changed && len(out) >= 3; {
		changed = false
		for i := 0; i < len(out) && len(out) >= 3; i++ {
			n := len(out)
			a, b, c := out[(i+n-1)%n], out[i], out[(i+1)%n]
			if distToLine(b, a, c) <= tol {
				out = append(out[:i], out[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return out
}

// Validate checks that p is a usable simple polygon: at least three distinct
// vertices, non-zero area, and no self-intersections.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return errs.New(errs.InvalidPolygon, "polygon has %d vertices, need at least 3", len(p))
	}
	distinct := make(map[r2.Vec]struct{}, len(p))
	for i, v := range p {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return errs.New(errs.InvalidPolygon, "polygon has a non-finite vertex %v", v)
		}
		if _, next := p.Edge(i); next == v {
			return errs.New(errs.InvalidPolygon, "polygon repeats vertex %d", i)
		}
		distinct[v] = struct{}{}
	}
	if len(distinct) < 3 {
		return errs.New(errs.InvalidPolygon, "polygon has %d distinct vertices, need at least 3", len(distinct))
	}
	if p.Area() < minArea {
		return errs.New(errs.InvalidPolygon, "polygon has zero area")
	}
	if p.SelfIntersects() {
		return errs.New(errs.InvalidPolygon, "polygon boundary crosses itself")
	}
	return nil
}

// SelfIntersects reports whether any two non-adjacent edges of p touch or
// cross.
func (p Polygon) SelfIntersects() bool {
	n := len(p)
	for i := 0; i < n; i++ {
		a, b := p.Edge(i)
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				// Adjacent through the closing vertex.
				continue
			}
			c, d := p.Edge(j)
			if segmentsIntersect(a, b, c, d) {
				return true
			}
		}
	}
	return false
}

// Contains reports whether pt is strictly inside p, by ray crossing.
// Points on the boundary may go either way.
func (p Polygon) Contains(pt r2.Vec) bool {
	in := false
	for i := range p {
		a, b := p.Edge(i)
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if pt.X < x {
				in = !in
			}
		}
	}
	return in
}

// DistanceToBoundary returns the distance from pt to the nearest edge of p.
func (p Polygon) DistanceToBoundary(pt r2.Vec) float64 {
	best := math.Inf(1)
	for i := range p {
		a, b := p.Edge(i)
		best = math.Min(best, distToSegment(pt, a, b))
	}
	return best
}

// Within reports whether p lies inside q, allowing p to touch q's boundary
// within tol.
func (p Polygon) Within(q Polygon, tol float64) bool {
	for _, v := range p {
		if !q.Contains(v) && q.DistanceToBoundary(v) > tol {
			return false
		}
	}
	for i := range p {
		a, b := p.Edge(i)
		for j := range q {
			c, d := q.Edge(j)
			if segmentsCross(a, b, c, d, tol) {
				return false
			}
		}
	}
	return true
}

// OrientedExtent returns the short and long side lengths of the
// minimum-area rectangle enclosing p, and the direction (radians from +X) of
// the short side. For a typical lot the short side is the frontage.
func (p Polygon) OrientedExtent() (short, long, angle float64) {
	hull := convexHull(p)
	bestArea := math.Inf(1)
	for i := range hull {
		a, b := hull.Edge(i)
		e := r2.Sub(b, a)
		if r2.Norm(e) <= Tolerance {
			continue
		}
		u := r2.Unit(e)
		v := r2.Vec{X: -u.Y, Y: u.X}
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, pt := range hull {
			pu, pv := r2.Dot(pt, u), r2.Dot(pt, v)
			minU, maxU = math.Min(minU, pu), math.Max(maxU, pu)
			minV, maxV = math.Min(minV, pv), math.Max(maxV, pv)
		}
		w, h := maxU-minU, maxV-minV
		if w*h < bestArea {
			bestArea = w * h
			if w <= h {
				short, long, angle = w, h, math.Atan2(u.Y, u.X)
			} else {
				short, long, angle = h, w, math.Atan2(v.Y, v.X)
			}
		}
	}
	return short, long, angle
}

// convexHull returns the counterclockwise convex hull of pts by Andrew's
// monotone chain.
func convexHull(pts []r2.Vec) Polygon {
	if len(pts) < 3 {
		return append(Polygon(nil), pts...)
	}
	s := append([]r2.Vec(nil), pts...)
	sort.Slice(s, func(i, j int) bool {
		if s[i].X != s[j].X {
			return s[i].X < s[j].X
		}
		return s[i].Y < s[j].Y
	})
	var hull Polygon
	for pass := 0; pass < 2; pass++ {
		start := len(hull)
		for _, pt := range s {
			for len(hull) >= start+2 && orient(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
				hull = hull[:len(hull)-1]
			}
			hull = append(hull, pt)
		}
		hull = hull[:len(hull)-1]
		for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
			s[i], s[j] = s[j], s[i]
		}
	}
	return hull
}

// orient returns twice the signed area of triangle abc: positive when c is
// left of a→b.
func orient(a, b, c r2.Vec) float64 {
	return r2.Cross(r2.Sub(b, a), r2.Sub(c, a))
}

func distToLine(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l := r2.Norm(ab)
	if l <= Tolerance {
		return r2.Norm(r2.Sub(p, a))
	}
	return math.Abs(r2.Cross(ab, r2.Sub(p, a))) / l
}

func distToSegment(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	return r2.Norm(r2.Sub(p, r2.Add(a, r2.Scale(t, ab))))
}

// segmentsIntersect reports whether closed segments ab and cd share a point.
func segmentsIntersect(a, b, c, d r2.Vec) bool {
	d1, d2 := orient(c, d, a), orient(c, d, b)
	d3, d4 := orient(a, b, c), orient(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(c, d, a)) ||
		(d2 == 0 && onSegment(c, d, b)) ||
		(d3 == 0 && onSegment(a, b, c)) ||
		(d4 == 0 && onSegment(a, b, d))
}

// segmentsCross reports whether ab and cd cross at a single interior point,
// each endpoint being more than tol from the other segment's line.
func segmentsCross(a, b, c, d r2.Vec, tol float64) bool {
	side := func(p, q, r r2.Vec) int {
		l := r2.Norm(r2.Sub(q, p))
		if l == 0 {
			return 0
		}
		s := orient(p, q, r) / l
		switch {
		case s > tol:
			return 1
		case s < -tol:
			return -1
		}
		return 0
	}
	s1, s2 := side(c, d, a), side(c, d, b)
	s3, s4 := side(a, b, c), side(a, b, d)
	return s1*s2 < 0 && s3*s4 < 0
}

// onSegment reports whether p, known to be collinear with ab, lies within
// the segment's bounding box.
func onSegment(a, b, p r2.Vec) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}
