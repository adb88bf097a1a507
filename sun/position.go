// Package sun computes the apparent position of the sun for a place and
// time, and the paths it traces across the sky over a day.
//
// Positions come from the NOAA solar calculator's algorithm, which is good
// to about a hundredth of a degree between 1901 and 2099. Angles are in
// radians. Azimuth is measured clockwise from north and altitude is the
// refracted angle above the horizon.
package sun

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/errs"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// The algorithm's valid range, [MinTime, MaxTime).
var (
	MinTime = time.Date(1901, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxTime = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// A Sample is the sun's position at an instant.
type Sample struct {
	Time time.Time `json:"time"`

	// Azimuth is the compass bearing of the sun in radians, clockwise
	// from north: 0 is north and π/2 is east.
	Azimuth float64 `json:"azimuth"`

	// Altitude is the angle of the sun above the horizon in radians,
	// including atmospheric refraction. It is negative at night.
	Altitude float64 `json:"altitude"`
}

// Degrees returns the azimuth and altitude in degrees.
func (s Sample) Degrees() (azimuth, altitude float64) {
	return s.Azimuth * rad2deg, s.Altitude * rad2deg
}

// Direction returns the unit vector pointing at the sun in a local frame
// with X east, Y north and Z up.
func (s Sample) Direction() r3.Vec {
	al, az := s.Altitude, s.Azimuth
	return r3.Unit(r3.Vec{
		X: math.Sin(az) * math.Cos(al),
		Y: math.Cos(az) * math.Cos(al),
		Z: math.Sin(al),
	})
}

// Position returns the sun's position at t as seen from latitude lat and
// longitude lon, in degrees with north and east positive.
//
// It returns a SolarRange error if t is outside [MinTime, MaxTime), and an
// InvalidInput error for coordinates off the globe.
func Position(t time.Time, lat, lon float64) (Sample, error) {
	if err := checkCoords(lat, lon); err != nil {
		return Sample{}, err
	}
	if err := checkRange(t); err != nil {
		return Sample{}, err
	}
	az, alt := position(t, lat, lon)
	return Sample{Time: t, Azimuth: az, Altitude: alt}, nil
}

func checkCoords(lat, lon float64) error {
	if !(lat >= -90 && lat <= 90) || !(lon >= -180 && lon <= 180) {
		return errs.New(errs.InvalidInput, "(%v, %v) is not a latitude and longitude", lat, lon)
	}
	return nil
}

func checkRange(t time.Time) error {
	if t.Before(MinTime) || !t.Before(MaxTime) {
		return errs.New(errs.SolarRange, "%s is outside the ephemeris range %d–%d", t.UTC().Format(time.RFC3339), MinTime.Year(), MaxTime.Year()-1)
	}
	return nil
}

// position is the NOAA solar position algorithm. It returns azimuth and
// refracted altitude in radians.
func position(t time.Time, lat, lon float64) (azimuth, altitude float64) {
	t = t.UTC()
	jd := float64(t.Unix())/86400 + float64(t.Nanosecond())/86400e9 + 2440587.5
	T := (jd - 2451545) / 36525 // Julian centuries since J2000.0

	// Geometric mean longitude and anomaly of the sun, in degrees, and
	// the eccentricity of Earth's orbit.
	L0 := math.Mod(280.46646+T*(36000.76983+T*0.0003032), 360)
	M := (357.52911 + T*(35999.05029-0.0001537*T)) * deg2rad
	e := 0.016708634 - T*(0.000042037+0.0000001267*T)

	// Equation of center, then apparent longitude corrected for nutation
	// and aberration.
	C := math.Sin(M)*(1.914602-T*(0.004817+0.000014*T)) +
		math.Sin(2*M)*(0.019993-0.000101*T) +
		math.Sin(3*M)*0.000289
	omega := (125.04 - 1934.136*T) * deg2rad
	lambda := (L0 + C - 0.00569 - 0.00478*math.Sin(omega)) * deg2rad

	// Obliquity of the ecliptic, corrected.
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	eps := (eps0 + 0.00256*math.Cos(omega)) * deg2rad

	decl := math.Asin(math.Sin(eps) * math.Sin(lambda))

	// Equation of time, in minutes.
	y := math.Tan(eps / 2)
	y *= y
	l0 := L0 * deg2rad
	eot := 4 * rad2deg * (y*math.Sin(2*l0) -
		2*e*math.Sin(M) +
		4*e*y*math.Sin(M)*math.Cos(2*l0) -
		0.5*y*y*math.Sin(4*l0) -
		1.25*e*e*math.Sin(2*M))

	// True solar time and hour angle.
	minutes := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60 + float64(t.Nanosecond())/60e9
	tst := math.Mod(minutes+eot+4*lon, 1440)
	if tst < 0 {
		tst += 1440
	}
	ha := (tst/4 - 180) * deg2rad

	phi := lat * deg2rad
	cosZenith := math.Sin(phi)*math.Sin(decl) + math.Cos(phi)*math.Cos(decl)*math.Cos(ha)
	cosZenith = math.Max(-1, math.Min(1, cosZenith))
	elev := 90 - math.Acos(cosZenith)*rad2deg
	elev += refraction(elev)

	az := math.Atan2(math.Sin(ha), math.Cos(ha)*math.Sin(phi)-math.Tan(decl)*math.Cos(phi)) + math.Pi
	az = math.Mod(az, 2*math.Pi)
	return az, elev * deg2rad
}

// refraction returns the atmospheric refraction correction in degrees for a
// geometric elevation in degrees.
func refraction(elev float64) float64 {
	var arcsec float64
	switch {
	case elev > 85:
		return 0
	case elev > 5:
		te := math.Tan(elev * deg2rad)
		arcsec = 58.1/te - 0.07/(te*te*te) + 0.000086/math.Pow(te, 5)
	case elev > -0.575:
		arcsec = 1735 + elev*(-518.2+elev*(103.4+elev*(-12.79+elev*0.711)))
	default:
		arcsec = -20.772 / math.Tan(elev*deg2rad)
	}
	return arcsec / 3600
}
