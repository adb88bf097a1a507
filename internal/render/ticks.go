package render

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
)

// timeOfDayTicks renders a time.Duration since midnight as a time of day.
type timeOfDayTicks struct {
	targetTicks int // Create around targetTicks number of ticks
}

func (o timeOfDayTicks) Ticks(min, max float64) []plot.Tick {
	dayBase := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return durationTickMarks(min, max, o.targetTicks, func(t, _ time.Duration) string {
		return dayBase.Add(t).Format("3:04PM")
	})
}

// durationTicks renders a time.Duration as hours and minutes.
type durationTicks struct {
	targetTicks int // Create around targetTicks number of ticks
}

func (o durationTicks) Ticks(min, max float64) []plot.Tick {
	return durationTickMarks(min, max, o.targetTicks, func(t, best time.Duration) string {
		switch {
		case best%time.Hour == 0:
			return fmt.Sprintf("%dh", int(t.Hours()))
		case best%time.Minute == 0:
			return fmt.Sprintf("%dh%dm", int(t.Hours()), int(t.Minutes())%60)
		}
		return t.String()
	})
}

// durationTickMarks places major ticks labeled by label and unlabeled minor
// ticks over [min, max], which are time.Durations.
func durationTickMarks(min, max float64, targetTicks int, label func(t, best time.Duration) string) []plot.Tick {
	minD, maxD := time.Duration(min), time.Duration(max)
	best, minor := optimizeDurationTicks(minD, maxD, targetTicks)
	if minor == 0 {
		minor = best
	}
	var ticks []plot.Tick
	first := int((minD + minor - 1) / minor)
	last := int(maxD / minor)
	minorFactor := int(best / minor)
	for i := first; i <= last; i++ {
		t := time.Duration(i) * minor
		l := ""
		if i%minorFactor == 0 {
			l = label(t, best)
		}
		ticks = append(ticks, plot.Tick{Value: float64(t), Label: l})
	}
	return ticks
}

var durationScales = []time.Duration{12 * time.Hour, 3 * time.Hour, time.Hour, 30 * time.Minute, 10 * time.Minute, 5 * time.Minute, time.Minute}

func optimizeDurationTicks(minD, maxD time.Duration, targetTicks int) (best, minor time.Duration) {
	// Compute how many ticks would appear in [minD, maxD] for each
	// scale and pick the closest to targetTicks.
	bestNDelta := 0
	for i, scale := range durationScales {
		first := int((minD + scale - 1) / scale)
		last := int(maxD / scale)
		if n := last - first + 1; n > 0 {
			delta := n - targetTicks
			if delta < 0 {
				delta = -delta
			}
			if best == 0 || delta < bestNDelta {
				best, bestNDelta = scale, delta
				if i+1 < len(durationScales) {
					minor = durationScales[i+1]
				} else {
					minor = 0
				}
			}
		}
	}
	if best == 0 {
		best, minor = durationScales[0], durationScales[1]
	}
	return best, minor
}

// dayOfYearTicks marks the first of each month, labeling each quarter.
type dayOfYearTicks struct{}

func (dayOfYearTicks) Ticks(min, max float64) []plot.Tick {
	minT, maxT := plot.UTCUnixTime(min), plot.UTCUnixTime(max)
	var ticks []plot.Tick
	lastMajorYear := 0
	for t := time.Date(minT.Year(), minT.Month(), 1, 12, 0, 0, 0, time.UTC); !t.After(maxT); t = t.AddDate(0, 1, 0) {
		if t.Before(minT) {
			continue
		}
		label := ""
		if (t.Month()-1)%3 == 0 {
			if lastMajorYear == t.Year() {
				label = t.Format("1/02")
			} else {
				lastMajorYear = t.Year()
				label = t.Format("1/02/2006")
			}
		}
		ticks = append(ticks, plot.Tick{Value: float64(t.Unix()), Label: label})
	}
	return ticks
}

// solsticeTicks marks the equinoxes and solstices.
type solsticeTicks struct{}

func (solsticeTicks) Ticks(min, max float64) []plot.Tick {
	minT, maxT := plot.UTCUnixTime(min), plot.UTCUnixTime(max)
	ticks := []plot.Tick{{Value: min, Label: minT.Format("1/02/2006")}}
	add := func(year int, month time.Month, day int) {
		t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
		if t.Before(minT) || t.After(maxT) {
			return
		}
		ticks = append(ticks, plot.Tick{Value: float64(t.Unix()), Label: t.Format("1/02")})
	}
	for year := minT.Year(); year <= maxT.Year(); year++ {
		add(year, 3, 20)
		add(year, 6, 21)
		add(year, 9, 22)
		add(year, 12, 22)
	}
	return ticks
}

// dayTicks picks a day axis marker suited to a span of days.
func dayTicks(days int) plot.Ticker {
	switch {
	case days >= 300:
		return solsticeTicks{}
	case days >= 60:
		return dayOfYearTicks{}
	}
	return plot.TimeTicks{Format: "1/02", Time: plot.UTCUnixTime}
}
