package shadow

import (
	"cmp"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/mesh"
)

// A Layer is an occluding mesh in the scene, in the same local frame as the
// sample points:
//
//	Z/up
//	|  Y/north
//	| /
//	|/____ X/east
type Layer struct {
	Mesh *mesh.Mesh

	// Transmissivity returns the fraction of direct sunlight that passes
	// through this layer on the given date, from 0 to 1. Nil means opaque.
	// Any hit on a layer still counts as shadow for sun hours; only
	// insolation sees the transmitted light.
	Transmissivity func(date time.Time) float64

	// Foliage marks vegetation, which is reported separately from
	// shadow cast by buildings.
	Foliage bool
}

// Opaque returns an opaque layer for each of meshes.
func Opaque(meshes ...*mesh.Mesh) []Layer {
	layers := make([]Layer, len(meshes))
	for i, m := range meshes {
		layers[i] = Layer{Mesh: m}
	}
	return layers
}

// Foliage returns a layer for tree canopy m.
func Foliage(m *mesh.Mesh) Layer {
	return Layer{Mesh: m, Transmissivity: FoliageTransmissivity, Foliage: true}
}

// FoliageTransmissivity models deciduous canopy over the year.
//
// Based on Transmissivity of solar radiation through crowns of single urban
// trees—application for outdoor thermal comfort modelling. Konarska, et al.
//
// Foliated and defoliated trees have ~5% and ~50% transmissivity,
// respectively. The meteorological seasons interpolate between these.
//
// TODO: This assumes northern hemisphere, and mid-latitudes at that.
func FoliageTransmissivity(date time.Time) float64 {
	day := date.YearDay()
	const (
		// Assume a normal year. This is all approximate anyway.
		Feb28 = 59
		May31 = 151
		Aug31 = 243
		Nov30 = 334
	)
	switch {
	case day <= Feb28: // Winter
		return 0.5
	case day <= May31: // Spring
		return 0.5 + float64(day-Feb28)/(May31-Feb28)*(0.05-0.5)
	case day <= Aug31: // Summer
		return 0.05
	case day <= Nov30: // Fall
		return 0.05 + float64(day-Aug31)/(Nov30-Aug31)*(0.5-0.05)
	}
	return 0.5 // Winter
}

// A prepared layer has its triangles unpacked for tracing.
type prepared struct {
	tris    []r3.Triangle
	closed  []edgeMask
	box     r3.Box
	trans   func(time.Time) float64
	foliage bool
}

func prepare(l Layer) prepared {
	p := prepared{
		tris:    make([]r3.Triangle, l.Mesh.TriangleCount()),
		trans:   l.Transmissivity,
		foliage: l.Foliage,
	}
	for i := range p.tris {
		p.tris[i] = l.Mesh.Triangle(i)
	}
	p.closed = closedEdges(p.tris)
	// Pad the box so hits on its faces survive rounding in the slab test.
	b := l.Mesh.Bounds()
	pad := r3.Vec{X: Epsilon, Y: Epsilon, Z: Epsilon}
	p.box = r3.Box{Min: r3.Sub(b.Min, pad), Max: r3.Add(b.Max, pad)}
	return p
}

// occludes reports whether r hits any triangle of l. last is the index of
// the triangle that last occluded a ray from this worker, or -1; it is tried
// first and updated on a hit.
func (l *prepared) occludes(r *Ray, last *int) bool {
	if len(l.tris) == 0 || !r.HitsBox(l.box) {
		return false
	}
	if *last >= 0 {
		if _, ok := r.intersect(&l.tris[*last], l.closed[*last]); ok {
			return true
		}
	}
	for i := range l.tris {
		if i == *last {
			continue
		}
		if _, ok := r.intersect(&l.tris[i], l.closed[i]); ok {
			*last = i
			return true
		}
	}
	return false
}

// closedEdges finds the edges each triangle shares with a coplanar
// neighbor, such as the diagonal of a quad split in two. A ray through such
// an edge passes through the surface, not past it. Edges match by vertex
// position, since STL meshes repeat their vertices.
func closedEdges(tris []r3.Triangle) []edgeMask {
	type side struct {
		tri, edge int
	}
	sides := make(map[[2]r3.Vec][]side)
	for i, t := range tris {
		for e := range 3 {
			a, b := t[e], t[(e+1)%3]
			if compareVec(a, b) > 0 {
				a, b = b, a
			}
			k := [2]r3.Vec{a, b}
			sides[k] = append(sides[k], side{i, e})
		}
	}

	normals := make([]r3.Vec, len(tris))
	for i, t := range tris {
		if n := t.Normal(); r3.Norm(n) > 0 {
			normals[i] = r3.Unit(n)
		}
	}
	closed := make([]edgeMask, len(tris))
	for _, ss := range sides {
		for i, s := range ss {
			for _, o := range ss[i+1:] {
				if math.Abs(r3.Dot(normals[s.tri], normals[o.tri])) < 1-1e-9 {
					continue
				}
				closed[s.tri] |= 1 << s.edge
				closed[o.tri] |= 1 << o.edge
			}
		}
	}
	return closed
}

func compareVec(a, b r3.Vec) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.Z, b.Z)
}

func (l *prepared) transmissivity(t time.Time) float64 {
	if l.trans == nil {
		return 0
	}
	return l.trans(t)
}
