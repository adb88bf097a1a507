package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// EarthRadius is the mean Earth radius in meters (IUGG).
const EarthRadius = 6371008.8

const deg2rad = math.Pi / 180

// LonLat is a WGS84 position in degrees, east and north positive.
type LonLat struct {
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// OpenRing returns ring without a trailing vertex that repeats the first.
func OpenRing(ring []LonLat) []LonLat {
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		return ring[:n-1]
	}
	return ring
}

// A Projection maps WGS84 positions to a local tangent plane in meters,
// centered on Origin, with X east and Y north. It is an equirectangular
// approximation: at parcel scale (under a kilometer) the distortion is far
// below survey precision, but it should not be used across cities.
type Projection struct {
	Origin LonLat

	cosLat float64
}

// NewProjection returns the projection centered at origin.
func NewProjection(origin LonLat) Projection {
	return Projection{Origin: origin, cosLat: math.Cos(origin.Lat * deg2rad)}
}

// CentroidOrigin returns a projection origin for ring: the area centroid of
// the ring in degree space, or the vertex average for rings with no area.
func CentroidOrigin(ring []LonLat) LonLat {
	ring = OpenRing(ring)
	if len(ring) == 0 {
		return LonLat{}
	}
	// Center on the first vertex first so rings near the antimeridian and
	// large absolute coordinates don't lose precision.
	ref := ring[0]
	p := make(Polygon, len(ring))
	for i, ll := range ring {
		p[i] = r2.Vec{X: wrapLon(ll.Lon - ref.Lon), Y: ll.Lat - ref.Lat}
	}
	c := p.Centroid()
	return LonLat{Lon: wrapLon(ref.Lon + c.X), Lat: ref.Lat + c.Y}
}

// LocalProjection projects ring onto the tangent plane at origin. A zero
// origin means the ring's centroid.
func LocalProjection(ring []LonLat, origin LonLat) (Polygon, Projection) {
	ring = OpenRing(ring)
	if origin == (LonLat{}) {
		origin = CentroidOrigin(ring)
	}
	pr := NewProjection(origin)
	return pr.ForwardRing(ring), pr
}

// Forward maps ll to local meters.
func (pr Projection) Forward(ll LonLat) r2.Vec {
	return r2.Vec{
		X: EarthRadius * wrapLon(ll.Lon-pr.Origin.Lon) * deg2rad * pr.cosLat,
		Y: EarthRadius * (ll.Lat - pr.Origin.Lat) * deg2rad,
	}
}

// Inverse maps local meters back to WGS84.
func (pr Projection) Inverse(v r2.Vec) LonLat {
	return LonLat{
		Lon: wrapLon(pr.Origin.Lon + v.X/(EarthRadius*pr.cosLat)/deg2rad),
		Lat: pr.Origin.Lat + v.Y/EarthRadius/deg2rad,
	}
}

// ForwardRing projects every vertex of ring.
func (pr Projection) ForwardRing(ring []LonLat) Polygon {
	p := make(Polygon, len(ring))
	for i, ll := range ring {
		p[i] = pr.Forward(ll)
	}
	return p
}

// InverseRing unprojects every vertex of p.
func (pr Projection) InverseRing(p Polygon) []LonLat {
	ring := make([]LonLat, len(p))
	for i, v := range p {
		ring[i] = pr.Inverse(v)
	}
	return ring
}

// wrapLon wraps a longitude or longitude difference into [-180, 180).
func wrapLon(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
