package envelope

import (
	"fmt"
	"strings"
)

// Unit is a linear unit of measure for zoning figures and exported results.
// The zero value means meters.
type Unit string

const (
	Meters Unit = "m"
	Feet   Unit = "ft"
)

const metersPerFoot = 0.3048

// ParseUnit accepts the usual spellings of meters and feet.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "meter", "meters", "metre", "metres":
		return Meters, nil
	case "ft", "foot", "feet":
		return Feet, nil
	}
	return "", fmt.Errorf("unknown unit %q (want m or ft)", s)
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == "" || u == Meters || u == Feet
}

// Meters returns the length of one u in meters.
func (u Unit) Meters() float64 {
	if u == Feet {
		return metersPerFoot
	}
	return 1
}

// ToMeters converts a length in u to meters.
func (u Unit) ToMeters(v float64) float64 {
	return v * u.Meters()
}

// FromMeters converts a length in meters to u.
func (u Unit) FromMeters(v float64) float64 {
	return v / u.Meters()
}

// AreaFromMeters converts an area in square meters to square u.
func (u Unit) AreaFromMeters(a float64) float64 {
	k := u.Meters()
	return a / (k * k)
}

func (u Unit) String() string {
	if u == "" {
		return string(Meters)
	}
	return string(u)
}
