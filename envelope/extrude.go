package envelope

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/geom"
	"github.com/zonewise/shade/mesh"
)

// Extrude builds the closed prism of base from z=0 to z=height. The mesh
// has 2×len(base) vertices: the bottom ring followed by the top ring.
// Triangles are the triangulated base twice (bottom facing down, top facing
// up) plus two per boundary edge, all with outward normals.
func Extrude(base geom.Polygon, height float64) (*mesh.Mesh, error) {
	base = base.EnsureCCW()
	tris, err := geom.Triangulate(base)
	if err != nil {
		return nil, err
	}
	n := len(base)
	m := &mesh.Mesh{
		Header:  "zoning envelope",
		Verts:   make([]r3.Vec, 2*n),
		Tris:    make([][3]int, 0, 2*len(tris)+2*n),
		Normals: make([]r3.Vec, 0, 2*len(tris)+2*n),
	}
	for i, v := range base {
		m.Verts[i] = r3.Vec{X: v.X, Y: v.Y}
		m.Verts[n+i] = r3.Vec{X: v.X, Y: v.Y, Z: height}
	}

	down, up := r3.Vec{Z: -1}, r3.Vec{Z: 1}
	for _, t := range tris {
		m.Tris = append(m.Tris, [3]int{t[0], t[2], t[1]})
		m.Normals = append(m.Normals, down)
	}
	for _, t := range tris {
		m.Tris = append(m.Tris, [3]int{n + t[0], n + t[1], n + t[2]})
		m.Normals = append(m.Normals, up)
	}
	for i := range base {
		j := (i + 1) % n
		// The outward side of a counterclockwise edge is on its right.
		d := r2.Unit(r2.Sub(base[j], base[i]))
		out := r3.Vec{X: d.Y, Y: -d.X}
		m.Tris = append(m.Tris, [3]int{i, j, n + j}, [3]int{i, n + j, n + i})
		m.Normals = append(m.Normals, out, out)
	}
	return m, nil
}
