// Package mesh is a minimal indexed triangle mesh shared by the envelope
// builder, which produces meshes, and the shadow engine, which consumes them.
package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// A Mesh is an indexed triangle mesh. Triangles are wound counterclockwise
// when seen from outside, so the right-hand normal points outward.
type Mesh struct {
	Header string

	Verts []r3.Vec
	Tris  [][3]int

	// Normals holds one outward unit normal per triangle. It may be nil, in
	// which case Normal derives it from the winding.
	Normals []r3.Vec
}

// TriangleCount returns the number of triangles in m.
func (m *Mesh) TriangleCount() int {
	return len(m.Tris)
}

// Triangle returns the vertices of triangle i.
func (m *Mesh) Triangle(i int) r3.Triangle {
	t := m.Tris[i]
	return r3.Triangle{m.Verts[t[0]], m.Verts[t[1]], m.Verts[t[2]]}
}

// Normal returns the unit normal of triangle i.
func (m *Mesh) Normal(i int) r3.Vec {
	if m.Normals != nil {
		return m.Normals[i]
	}
	return unitNormal(m.Triangle(i))
}

// ComputeNormals sets Normals from the winding of every triangle.
// Degenerate triangles get a zero normal.
func (m *Mesh) ComputeNormals() {
	m.Normals = make([]r3.Vec, len(m.Tris))
	for i := range m.Tris {
		m.Normals[i] = unitNormal(m.Triangle(i))
	}
}

func unitNormal(t r3.Triangle) r3.Vec {
	n := t.Normal()
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// Bounds returns the axis-aligned bounding box of m's vertices. Unlike
// r3.Box.Union, flat meshes (such as a ground plane) keep their extent.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Verts) == 0 {
		return r3.Box{}
	}
	inf := math.Inf(1)
	b := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, v := range m.Verts {
		b.Min.X = math.Min(b.Min.X, v.X)
		b.Min.Y = math.Min(b.Min.Y, v.Y)
		b.Min.Z = math.Min(b.Min.Z, v.Z)
		b.Max.X = math.Max(b.Max.X, v.X)
		b.Max.Y = math.Max(b.Max.Y, v.Y)
		b.Max.Z = math.Max(b.Max.Z, v.Z)
	}
	return b
}

// Translate returns a copy of m moved by d.
func (m *Mesh) Translate(d r3.Vec) *Mesh {
	out := &Mesh{
		Header:  m.Header,
		Verts:   make([]r3.Vec, len(m.Verts)),
		Tris:    append([][3]int(nil), m.Tris...),
		Normals: append([]r3.Vec(nil), m.Normals...),
	}
	for i, v := range m.Verts {
		out.Verts[i] = r3.Add(v, d)
	}
	return out
}

// Merge concatenates meshes into one, re-indexing triangles. Normals are
// kept only if every input carries them.
func Merge(meshes ...*Mesh) *Mesh {
	out := new(Mesh)
	haveNormals := true
	for _, m := range meshes {
		if m.Normals == nil {
			haveNormals = false
		}
	}
	for _, m := range meshes {
		base := len(out.Verts)
		out.Verts = append(out.Verts, m.Verts...)
		for _, t := range m.Tris {
			out.Tris = append(out.Tris, [3]int{t[0] + base, t[1] + base, t[2] + base})
		}
		if haveNormals {
			out.Normals = append(out.Normals, m.Normals...)
		}
	}
	return out
}

// Flatten returns m as flat coordinate arrays: x,y,z per vertex, three
// indices per triangle and x,y,z per triangle normal.
func (m *Mesh) Flatten() (verts []float64, indices []int, normals []float64) {
	verts = make([]float64, 0, 3*len(m.Verts))
	for _, v := range m.Verts {
		verts = append(verts, v.X, v.Y, v.Z)
	}
	indices = make([]int, 0, 3*len(m.Tris))
	for _, t := range m.Tris {
		indices = append(indices, t[0], t[1], t[2])
	}
	normals = make([]float64, 0, 3*len(m.Tris))
	for i := range m.Tris {
		n := m.Normal(i)
		normals = append(normals, n.X, n.Y, n.Z)
	}
	return verts, indices, normals
}
