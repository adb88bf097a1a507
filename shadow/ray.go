package shadow

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the minimum distance along a ray, in meters, at which a hit
// counts. It keeps a point on a surface from shadowing itself.
const Epsilon = 1e-6

// edgeEpsilon is how close, in barycentric units, a hit may come to a
// triangle edge before it counts as grazing the edge. Grazing hits are
// misses, except on edges a triangle shares with a coplanar neighbor.
const edgeEpsilon = 1e-6

// An edgeMask has bit i set if edge i of a triangle, from vertex i to
// vertex i+1, is closed: hits on it count rather than graze.
type edgeMask uint8

// lo returns the smallest barycentric coordinate accepted across edge i.
func (m edgeMask) lo(i int) float64 {
	if m&(1<<i) != 0 {
		return -edgeEpsilon
	}
	return edgeEpsilon
}

type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec // Must be normalized
}

// IntersectTriangle returns the distance along r to its intersection with
// tri. Hits closer than Epsilon and hits that only graze an edge of tri are
// not intersections.
func (r *Ray) IntersectTriangle(tri *r3.Triangle) (t float64, ok bool) {
	return r.intersect(tri, 0)
}

// intersect is IntersectTriangle with the edges in closed counted as part
// of tri.
func (r *Ray) intersect(tri *r3.Triangle, closed edgeMask) (t float64, ok bool) {
	// Möller–Trumbore intersection, based on Wikipedia implementation
	// and the Scratchapixel implementation.
	const detEpsilon = 1e-12
	edge1 := r3.Sub(tri[1], tri[0])
	edge2 := r3.Sub(tri[2], tri[0])
	h := r3.Cross(r.Dir, edge2)
	det := r3.Dot(edge1, h)
	// If the determinant is close to 0, the ray is parallel to the plane
	// of the triangle. Either sign is a hit: shadows are cast by the back
	// of a face as well as the front.
	if det > -detEpsilon && det < detEpsilon {
		return 0, false
	}
	invDet := 1 / det
	// u is the weight of tri[1] and v of tri[2]. u = 0 on edge 2, v = 0 on
	// edge 0 and u+v = 1 on edge 1.
	s := r3.Sub(r.Origin, tri[0])
	u := invDet * r3.Dot(s, h)
	if u < closed.lo(2) || u > 1+edgeEpsilon {
		return 0, false
	}
	q := r3.Cross(s, edge1)
	v := invDet * r3.Dot(r.Dir, q)
	if v < closed.lo(0) || u+v > 1-closed.lo(1) {
		return 0, false
	}
	// t is the distance on the ray to the intersection point.
	t = invDet * r3.Dot(edge2, q)
	if t <= Epsilon {
		// There is a line intersection but not a ray intersection.
		return 0, false
	}
	return t, true
}

func (r *Ray) Along(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// HitsBox reports whether r passes through the box b, using the slab method.
func (r *Ray) HitsBox(b r3.Box) bool {
	tmin, tmax := 0.0, math.Inf(1)
	slab := func(o, d, lo, hi float64) bool {
		if d == 0 {
			return lo <= o && o <= hi
		}
		t0, t1 := (lo-o)/d, (hi-o)/d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math.Max(tmin, t0)
		tmax = math.Min(tmax, t1)
		return tmin <= tmax
	}
	return slab(r.Origin.X, r.Dir.X, b.Min.X, b.Max.X) &&
		slab(r.Origin.Y, r.Dir.Y, b.Min.Y, b.Max.Y) &&
		slab(r.Origin.Z, r.Dir.Z, b.Min.Z, b.Max.Z)
}
