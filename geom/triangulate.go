package geom

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zonewise/shade/errs"
)

// Triangulate decomposes the simple polygon p into triangles by ear
// clipping. Each triangle is a triple of indices into p, wound
// counterclockwise regardless of p's winding. A polygon of n vertices with
// no collinear vertices yields n-2 triangles.
//
// Only single-ring polygons are supported; there is no notion of holes.
func Triangulate(p Polygon) ([][3]int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(p)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if !p.IsCCW() {
		for i := range idx {
			idx[i] = n - 1 - i
		}
	}

	tris := make([][3]int, 0, n-2)
	// Resume the scan where the last ear was clipped. Restarting from 0
	// every time fans all triangles out of the first vertex.
	i := 0
	for len(idx) > 3 {
		m := len(idx)
		clipped := false
		for k := 0; k < m; k++ {
			j := (i + k) % m
			a, b, c := idx[(j+m-1)%m], idx[j], idx[(j+1)%m]
			if !isEar(p, idx, a, b, c) {
				continue
			}
			tris = append(tris, [3]int{a, b, c})
			idx = append(idx[:j], idx[j+1:]...)
			i = j
			clipped = true
			break
		}
		if clipped {
			continue
		}
		// No proper ear. This only happens with collinear vertices left
		// behind by earlier clips; drop one, which removes no area.
		j := collinearVertex(p, idx)
		if j < 0 {
			return nil, errs.New(errs.DegeneratePolygon, "triangulation found no ear among %d remaining vertices", m)
		}
		idx = append(idx[:j], idx[j+1:]...)
	}
	if orient(p[idx[0]], p[idx[1]], p[idx[2]]) > 0 {
		tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	}
	return tris, nil
}

// isEar reports whether b is a convex vertex whose triangle abc contains no
// other remaining vertex.
func isEar(p Polygon, idx []int, a, b, c int) bool {
	pa, pb, pc := p[a], p[b], p[c]
	if orient(pa, pb, pc) <= Tolerance*Tolerance {
		return false
	}
	for _, k := range idx {
		if k == a || k == b || k == c {
			continue
		}
		v := p[k]
		if v == pa || v == pb || v == pc {
			continue
		}
		if inTriangle(v, pa, pb, pc) {
			return false
		}
	}
	return true
}

// inTriangle reports whether v is inside or on the counterclockwise
// triangle abc.
func inTriangle(v, a, b, c r2.Vec) bool {
	return orient(a, b, v) >= 0 && orient(b, c, v) >= 0 && orient(c, a, v) >= 0
}

func collinearVertex(p Polygon, idx []int) int {
	m := len(idx)
	for j := range idx {
		a, b, c := p[idx[(j+m-1)%m]], p[idx[j]], p[idx[(j+1)%m]]
		if distToLine(b, a, c) <= Tolerance {
			return j
		}
	}
	return -1
}
