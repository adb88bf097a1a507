package sun

import (
	"iter"
	"math"
	"slices"
	"time"

	"github.com/zonewise/shade/errs"
)

// DefaultInterval is the day path step when PathOptions.Interval is zero.
const DefaultInterval = 30 * time.Minute

// PathOptions select the samples of a day path.
type PathOptions struct {
	// Interval between samples. Zero means DefaultInterval.
	Interval time.Duration

	// StartHour and EndHour bound the half-open window [StartHour,
	// EndHour) of local wall-clock hours sampled. Both zero means the whole
	// day.
	StartHour, EndHour float64
}

func (o PathOptions) withDefaults() (PathOptions, error) {
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.StartHour == 0 && o.EndHour == 0 {
		o.EndHour = 24
	}
	if o.Interval < time.Second {
		return o, errs.New(errs.InvalidInput, "sample interval %v is too short", o.Interval)
	}
	if !(o.StartHour >= 0 && o.StartHour < o.EndHour && o.EndHour <= 24) {
		return o, errs.New(errs.InvalidInput, "hour window [%v, %v) is not within a day", o.StartHour, o.EndHour)
	}
	return o, nil
}

// DayPath returns the daytime sun positions on date's calendar day at
// (lat, lon). Steps are taken in wall-clock time in date's location, from
// StartHour by Interval, so that on daylight saving transitions the samples
// still fall on round local times; wall-clock times the transition skips
// are omitted. Only samples with the sun above the horizon are yielded,
// in time order.
//
// The sequence is computed lazily and can be iterated any number of times.
func DayPath(date time.Time, lat, lon float64, opts PathOptions) (iter.Seq[Sample], error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := checkCoords(lat, lon); err != nil {
		return nil, err
	}
	y, m, d := date.Date()
	loc := date.Location()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if err := checkRange(midnight); err != nil {
		return nil, err
	}
	if err := checkRange(midnight.AddDate(0, 0, 1).Add(-time.Nanosecond)); err != nil {
		return nil, err
	}

	start := time.Duration(math.Round(o.StartHour * float64(time.Hour)))
	end := time.Duration(math.Round(o.EndHour * float64(time.Hour)))
	return func(yield func(Sample) bool) {
		for off := start; off < end; off += o.Interval {
			hh, mm, ns := int(off/time.Hour), int(off%time.Hour/time.Minute), int(off%time.Minute)
			t := time.Date(y, m, d, hh, mm, 0, ns, loc)
			if t.Hour() != hh || t.Minute() != mm {
				continue // Skipped by a DST transition
			}
			az, alt := position(t, lat, lon)
			if alt <= 0 {
				continue
			}
			if !yield(Sample{Time: t, Azimuth: az, Altitude: alt}) {
				return
			}
		}
	}, nil
}

// Collect returns the samples of seq as a slice.
func Collect(seq iter.Seq[Sample]) []Sample {
	return slices.Collect(seq)
}
