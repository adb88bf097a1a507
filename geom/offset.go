package geom

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zonewise/shade/errs"
)

// ErrCollapsed is the cause attached to a DegeneratePolygon error when an
// inset leaves no interior at all, as opposed to an inset that merely
// self-intersects.
var ErrCollapsed = errors.New("polygon collapsed")

// Offset moves every edge of p by distance along its outward normal:
// negative distances inset (shrink) the polygon and positive distances
// outset it with mitered corners.
//
// Edges that an inset overruns, such as a short chamfer at a corner, are
// dropped and their neighbors extended to meet. If the inset polygon
// collapses or would have to self-intersect, Offset returns a
// DegeneratePolygon error rather than a repaired shape. Collapse is reported
// with ErrCollapsed as the cause.
func Offset(p Polygon, distance float64) (Polygon, error) {
	d := make([]float64, len(p))
	for i := range d {
		d[i] = distance
	}
	return OffsetEdges(p, d)
}

// OffsetEdges is like Offset, but moves edge i by distances[i]. The result
// has the same winding as p.
func OffsetEdges(p Polygon, distances []float64) (Polygon, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(p)
	if len(distances) != n {
		return nil, errs.New(errs.InvalidPolygon, "offset needs one distance per edge: got %d for %d edges", len(distances), n)
	}

	// Work on a counterclockwise ring. Reversing the ring maps edge k of the
	// reversed ring onto edge n-2-k of the original.
	src, dist := p, distances
	cw := !p.IsCCW()
	if cw {
		src = p.Reverse()
		dist = make([]float64, n)
		for k := range dist {
			dist[k] = distances[(2*n-2-k)%n]
		}
	}

	lines := make([]offsetLine, n)
	length := make([]float64, n)
	for i := range src {
		a, b := src.Edge(i)
		e := r2.Sub(b, a)
		u := r2.Unit(e)
		left := r2.Vec{X: -u.Y, Y: u.X} // Inward for a CCW ring
		lines[i] = offsetLine{r2.Add(a, r2.Scale(-dist[i], left)), u}
		length[i] = r2.Norm(e)
	}
	sourceEdge := func(i int) int {
		if cw {
			return (2*n - 2 - i) % n
		}
		return i
	}

	// An edge that comes out reversed has been overrun by its neighbors.
	// Where the neighbors turn left, the edge simply vanishes: drop it and
	// let the neighbors meet, starting with the edge that vanished earliest,
	// until no edge is reversed. A reversed edge whose neighbors turn right
	// or run antiparallel cannot vanish without the polygon crossing itself.
	active := make([]int, n)
	for i := range active {
		active[i] = i
	}
	var out Polygon
	for {
		if len(active) < 3 {
			return nil, errs.Wrap(errs.DegeneratePolygon, ErrCollapsed, "offset leaves no interior")
		}
		var start, end []int
		var err error
		out, start, end, err = offsetCorners(src, lines, active)
		if err != nil {
			return nil, err
		}
		if out.SignedArea() < minArea {
			return nil, errs.Wrap(errs.DegeneratePolygon, ErrCollapsed, "offset leaves no interior")
		}

		m := len(active)
		victim, blocked := -1, -1
		var earliest float64
		for j, i := range active {
			l := r2.Dot(r2.Sub(out[end[j]], out[start[j]]), lines[i].dir)
			if l >= -Tolerance {
				continue
			}
			prev, next := lines[active[(j+m-1)%m]], lines[active[(j+1)%m]]
			if r2.Cross(prev.dir, next.dir) <= 1e-12 {
				if blocked < 0 {
					blocked = i
				}
				continue
			}
			// Edge lengths shrink linearly with the offset, so the most
			// overrun edge relative to its length vanished first.
			if r := l / length[i]; victim < 0 || r < earliest {
				victim, earliest = j, r
			}
		}
		if victim < 0 {
			if blocked >= 0 {
				return nil, errs.New(errs.DegeneratePolygon, "offset eliminates edge %d and makes the polygon self-intersect", sourceEdge(blocked))
			}
			break
		}
		active = slices.Delete(active, victim, victim+1)
	}

	out = out.Clean(Tolerance)
	if len(out) < 3 || out.Area() < minArea {
		return nil, errs.Wrap(errs.DegeneratePolygon, ErrCollapsed, "offset leaves no interior")
	}
	if out.SelfIntersects() {
		return nil, errs.New(errs.DegeneratePolygon, "offset polygon crosses itself")
	}
	inset := true
	for _, d := range dist {
		if d > 0 {
			inset = false
			break
		}
	}
	if inset && !out.Within(src, 1e-6*math.Max(1, src.Perimeter())) {
		return nil, errs.New(errs.DegeneratePolygon, "inset polygon escapes the original boundary")
	}

	if cw {
		out = out.Reverse()
	}
	return out, nil
}

type offsetLine struct {
	origin, dir r2.Vec
}

// offsetCorners intersects the shifted lines of the active edges, in ring
// order. Each output corner is where the lines of two consecutive active
// edges meet. Collinear neighbors with unequal distances get a
// perpendicular step instead. start[j] and end[j] record which output
// vertices bound the offset copy of edge active[j].
func offsetCorners(src Polygon, lines []offsetLine, active []int) (out Polygon, start, end []int, err error) {
	m := len(active)
	start = make([]int, m)
	end = make([]int, m)
	for j, i := range active {
		pj := (j + m - 1) % m
		prev, cur := lines[active[pj]], lines[i]
		cross := r2.Cross(prev.dir, cur.dir)
		if math.Abs(cross) < 1e-12 {
			// Only edges adjacent in src can be parallel here: an edge is
			// dropped only when its neighbors turn left.
			if r2.Dot(prev.dir, cur.dir) < 0 {
				return nil, nil, nil, errs.New(errs.DegeneratePolygon, "polygon doubles back on itself at vertex %d", i)
			}
			v := src[i]
			p1 := r2.Add(prev.origin, r2.Scale(r2.Dot(r2.Sub(v, prev.origin), prev.dir), prev.dir))
			p2 := r2.Add(cur.origin, r2.Scale(r2.Dot(r2.Sub(v, cur.origin), cur.dir), cur.dir))
			end[pj] = len(out)
			out = append(out, p1)
			if r2.Norm(r2.Sub(p1, p2)) > Tolerance {
				out = append(out, p2)
			}
			start[j] = len(out) - 1
			continue
		}
		t := r2.Cross(r2.Sub(cur.origin, prev.origin), cur.dir) / cross
		end[pj] = len(out)
		start[j] = len(out)
		out = append(out, r2.Add(prev.origin, r2.Scale(t, prev.dir)))
	}
	return out, start, end, nil
}
