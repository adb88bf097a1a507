package envelope

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zonewise/shade/errs"
	"github.com/zonewise/shade/geom"
)

// EdgeRole says which kind of lot line an edge is.
type EdgeRole uint8

const (
	RoleUnknown EdgeRole = iota
	Front
	Side
	Rear
)

var roleNames = [...]string{
	RoleUnknown: "unknown",
	Front:       "front",
	Side:        "side",
	Rear:        "rear",
}

func (r EdgeRole) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("EdgeRole(%d)", uint8(r))
}

func (r EdgeRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *EdgeRole) UnmarshalText(b []byte) error {
	for i, name := range roleNames {
		if string(b) == name {
			*r = EdgeRole(i)
			return nil
		}
	}
	return fmt.Errorf("unknown edge role %q", b)
}

// A Parcel is a lot boundary. Edge i runs from vertex i to vertex i+1, and
// the ring closes implicitly. Parcels are immutable.
type Parcel struct {
	ring  []geom.LonLat
	roles []EdgeRole
	front int // -1 if unknown

	local geom.Polygon
	proj  geom.Projection
}

// A ParcelOption supplies optional metadata to NewParcel.
type ParcelOption func(*Parcel)

// WithRoles sets the role of every edge.
func WithRoles(roles ...EdgeRole) ParcelOption {
	return func(p *Parcel) {
		p.roles = append([]EdgeRole(nil), roles...)
	}
}

// WithFrontEdge marks edge i as the frontage. The rear and side edges are
// inferred from it.
func WithFrontEdge(i int) ParcelOption {
	return func(p *Parcel) {
		p.front = i
	}
}

// NewParcel returns the parcel bounded by ring, given in WGS84 degrees.
// A closing vertex equal to the first is dropped.
func NewParcel(ring []geom.LonLat, opts ...ParcelOption) (*Parcel, error) {
	ring = geom.OpenRing(ring)
	for i, ll := range ring {
		if !(ll.Lat >= -90 && ll.Lat <= 90) || !(ll.Lon >= -180 && ll.Lon <= 180) {
			return nil, errs.New(errs.InvalidPolygon, "parcel vertex %d (%v, %v) is not a valid position", i, ll.Lon, ll.Lat)
		}
	}
	local, proj := geom.LocalProjection(ring, geom.LonLat{})
	return newParcel(append([]geom.LonLat(nil), ring...), local, proj, opts)
}

// NewLocalParcel returns a parcel given directly in local meters (X east,
// Y north) around origin.
func NewLocalParcel(p geom.Polygon, origin geom.LonLat, opts ...ParcelOption) (*Parcel, error) {
	proj := geom.NewProjection(origin)
	return newParcel(proj.InverseRing(p), p.Clone(), proj, opts)
}

func newParcel(ring []geom.LonLat, local geom.Polygon, proj geom.Projection, opts []ParcelOption) (*Parcel, error) {
	p := &Parcel{ring: ring, front: -1, local: local, proj: proj}
	for _, opt := range opts {
		opt(p)
	}
	if err := local.Validate(); err != nil {
		return nil, err
	}
	n := len(local)
	if p.roles != nil && len(p.roles) != n {
		return nil, errs.New(errs.InvalidInput, "parcel has %d edges but %d edge roles", n, len(p.roles))
	}
	if p.front >= n {
		return nil, errs.New(errs.InvalidInput, "front edge %d out of range for a parcel with %d edges", p.front, n)
	}
	return p, nil
}

// Ring returns the parcel's vertices in WGS84 degrees.
func (p *Parcel) Ring() []geom.LonLat {
	return append([]geom.LonLat(nil), p.ring...)
}

// Local returns the parcel polygon in local meters and the projection that
// maps it back to WGS84.
func (p *Parcel) Local() (geom.Polygon, geom.Projection) {
	return p.local.Clone(), p.proj
}

// FrontEdge returns the frontage edge index, if known.
func (p *Parcel) FrontEdge() (int, bool) {
	if p.front >= 0 {
		return p.front, true
	}
	for i, r := range p.roles {
		if r == Front {
			return i, true
		}
	}
	return -1, false
}

// Roles returns the role of every edge: the explicit roles if supplied,
// roles inferred from the front edge if that is known, and nil otherwise.
//
// Inference marks as rear every edge running within 45° of antiparallel to
// the front edge, or the single most nearly antiparallel edge if none is
// that close. All remaining edges are sides.
func (p *Parcel) Roles() []EdgeRole {
	if p.roles != nil {
		return append([]EdgeRole(nil), p.roles...)
	}
	if p.front < 0 {
		return nil
	}
	n := len(p.local)
	dir := func(i int) r2.Vec {
		a, b := p.local.Edge(i)
		return r2.Unit(r2.Sub(b, a))
	}
	f := dir(p.front)
	roles := make([]EdgeRole, n)
	best, bestDot := -1, math.Inf(1)
	anyRear := false
	for i := range roles {
		if i == p.front {
			roles[i] = Front
			continue
		}
		roles[i] = Side
		d := r2.Dot(dir(i), f)
		if d <= -math.Sqrt2/2 {
			roles[i] = Rear
			anyRear = true
		}
		if d < bestDot {
			best, bestDot = i, d
		}
	}
	if !anyRear && best >= 0 {
		roles[best] = Rear
	}
	return roles
}

// Area returns the parcel's area in square meters on the local plane.
func (p *Parcel) Area() float64 {
	return p.local.Area()
}

// GeodesicArea returns the parcel's area in square meters on the sphere.
// It agrees with Area to well under a percent for parcels under a
// kilometer across and serves as a check on the local projection.
func (p *Parcel) GeodesicArea() float64 {
	pts := make([]s2.Point, len(p.ring))
	for i, ll := range p.ring {
		pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(ll.Lat, ll.Lon))
	}
	loop := s2.LoopFromPoints(pts)
	// s2 loops enclose the region to their left; a clockwise ring would
	// otherwise describe the rest of the planet.
	loop.Normalize()
	return loop.Area() * geom.EarthRadius * geom.EarthRadius
}
