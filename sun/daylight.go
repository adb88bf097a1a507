package sun

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// Daylight returns the times of sunrise and sunset on date's calendar day
// at (lat, lon), in date's location. Sunrise and sunset are when the upper
// limb of the sun crosses the horizon, as computed by suncalc. ok is false
// during polar day or night, when the sun doesn't cross the horizon.
func Daylight(date time.Time, lat, lon float64) (sunrise, sunset time.Time, ok bool) {
	y, m, d := date.Date()
	loc := date.Location()
	// suncalc picks the solar day nearest the instant given, so ask at
	// local noon.
	noon := time.Date(y, m, d, 12, 0, 0, 0, loc)
	times := suncalc.GetTimes(noon, lat, lon)
	rise, set := times[suncalc.Sunrise].Value, times[suncalc.Sunset].Value
	if rise.IsZero() || set.IsZero() || !set.After(rise) {
		return time.Time{}, time.Time{}, false
	}
	// Polar days come back as NaN, which converts to nonsense times far
	// from the requested date.
	if d := rise.Sub(noon); d < -24*time.Hour || d > 0 {
		return time.Time{}, time.Time{}, false
	}
	if d := set.Sub(noon); d < 0 || d > 24*time.Hour {
		return time.Time{}, time.Time{}, false
	}
	return rise.In(loc), set.In(loc), true
}

// DaylightHours returns the time between sunrise and sunset in hours, 0
// during polar night and 24 during polar day.
func DaylightHours(date time.Time, lat, lon float64) float64 {
	rise, set, ok := Daylight(date, lat, lon)
	if ok {
		return set.Sub(rise).Hours()
	}
	y, m, d := date.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, date.Location())
	if s, err := Position(noon, lat, lon); err == nil && s.Altitude > 0 {
		return 24
	}
	return 0
}
