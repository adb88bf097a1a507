package shadow

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/errs"
	"github.com/zonewise/shade/sun"
)

type StudyOptions struct {
	Options

	// Path selects the sampling of each day. Its Interval overrides
	// Options.Interval.
	Path sun.PathOptions

	// Cache, if non-nil, memoizes day paths across studies.
	Cache *sun.Cache
}

// A StudyPoint is the exposure of one point summed over a study.
type StudyPoint struct {
	Index    int    `json:"index"`
	Position r3.Vec `json:"position"`

	SunHours     float64 `json:"sun_hours"`
	FoliageHours float64 `json:"foliage_hours"`
	Insolation   float64 `json:"insolation"`

	// AvgSunHours is SunHours per day.
	AvgSunHours float64 `json:"avg_sun_hours"`
}

// A StudyResult is the exposure of a set of points over a range of days.
type StudyResult struct {
	From   time.Time    `json:"from"`
	To     time.Time    `json:"to"`
	Days   int          `json:"days"`
	Points []StudyPoint `json:"points"`

	// DaylightHours is the total time the sun was up at the site.
	DaylightHours float64 `json:"daylight_hours"`

	// Partial is set if the study was cancelled. The totals then cover the
	// first Days days only.
	Partial   bool  `json:"partial"`
	Cancelled error `json:"-"`
}

// Study traces points over every calendar day from from through to,
// inclusive, in from's location, and totals the exposure of each point.
func Study(ctx context.Context, layers []Layer, points []r3.Vec, lat, lon float64, from, to time.Time, opts *StudyOptions) (*StudyResult, error) {
	var o StudyOptions
	if opts != nil {
		o = *opts
	}
	loc := from.Location()
	y, m, d := from.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, loc)
	y, m, d = to.In(loc).Date()
	last := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if last.Before(first) {
		return nil, errs.New(errs.InvalidInput, "study ends %s before it starts %s", last.Format(time.DateOnly), first.Format(time.DateOnly))
	}
	o.Interval = o.Path.Interval
	if o.Interval == 0 {
		o.Interval = sun.DefaultInterval
	}
	base, err := o.Options.withDefaults()
	if err != nil {
		return nil, err
	}

	res := &StudyResult{From: first, To: last, Points: make([]StudyPoint, len(points))}
	for i, p := range points {
		res.Points[i] = StudyPoint{Index: i, Position: p}
	}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			res.Partial = true
			res.Cancelled = errs.Wrap(errs.Cancelled, err, "study cancelled after %d days", res.Days)
			break
		}
		samples, err := daySamples(o, day, lat, lon)
		if err != nil {
			return nil, err
		}
		g, err := Compute(ctx, layers, samples, points, &base)
		if err != nil {
			return nil, err
		}
		if g.Partial {
			res.Partial = true
			res.Cancelled = g.Cancelled
			break
		}
		for i, p := range g.Points {
			sp := &res.Points[i]
			sp.SunHours += p.SunHours
			sp.FoliageHours += p.FoliageHours
			sp.Insolation += p.Insolation
		}
		res.DaylightHours += float64(len(samples)) * base.Interval.Hours()
		res.Days++
		base.Logger.Debug("study day", "date", day.Format(time.DateOnly), "samples", len(samples))
	}
	if res.Days > 0 {
		for i := range res.Points {
			res.Points[i].AvgSunHours = res.Points[i].SunHours / float64(res.Days)
		}
	}
	return res, nil
}

func daySamples(o StudyOptions, day time.Time, lat, lon float64) ([]sun.Sample, error) {
	if o.Cache != nil {
		return o.Cache.DayPath(day, lat, lon, o.Path)
	}
	seq, err := sun.DayPath(day, lat, lon, o.Path)
	if err != nil {
		return nil, err
	}
	return sun.Collect(seq), nil
}
