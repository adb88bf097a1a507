package render

import (
	"slices"
	"time"

	"gonum.org/v1/plot/plotter"
)

// A run is a span of consecutive sunlit samples on one day of a calendar.
type run struct {
	col        int
	start, end time.Duration // Time of day; end is exclusive

	// next is the index of the run on the following day this one
	// continues into, or -1.
	next   int
	linked bool
}

// sunlitRuns finds the runs of sunlit cells, ordered by day and then time.
// Columns count days from startDay, the day of the earliest cell.
func sunlitRuns(cells []Cell, interval time.Duration) (runs []run, startDay time.Time) {
	cells = slices.Clone(cells)
	slices.SortFunc(cells, func(a, b Cell) int { return a.Time.Compare(b.Time) })

	for i, c := range cells {
		day, tod := splitTime(c.Time)
		if i == 0 {
			startDay = day
		}
		if !c.Sunlit {
			continue
		}
		col := int(day.Sub(startDay) / (24 * time.Hour))
		if n := len(runs); n > 0 && runs[n-1].col == col && runs[n-1].end == tod {
			runs[n-1].end += interval
			continue
		}
		runs = append(runs, run{col: col, start: tod, end: tod + interval, next: -1})
	}
	return runs, startDay
}

// exposureOutlines traces the sunlit regions of a calendar. Runs on
// neighboring days that overlap in time of day join into one outline,
// which steps along the start and end of each run. A run that overlaps
// several runs on the next day continues into the earliest; the others
// start outlines of their own.
func exposureOutlines(cells []Cell, interval time.Duration) []plotter.XYs {
	runs, startDay := sunlitRuns(cells, interval)
	for i := range runs {
		r := &runs[i]
		for j := i + 1; j < len(runs) && runs[j].col <= r.col+1; j++ {
			n := &runs[j]
			if n.col == r.col+1 && !n.linked && n.start < r.end && r.start < n.end {
				r.next, n.linked = j, true
				break
			}
		}
	}

	// Heat map cells are centered on their sample, so edges sit half a
	// step early.
	half := interval / 2
	const halfDay = 12 * 60 * 60
	var outlines []plotter.XYs
	for i := range runs {
		if runs[i].linked {
			continue
		}
		var lower, upper plotter.XYs
		for j := i; j >= 0; j = runs[j].next {
			r := runs[j]
			x := float64(startDay.AddDate(0, 0, r.col).Unix())
			lower = append(lower,
				plotter.XY{X: x - halfDay, Y: float64(r.start - half)},
				plotter.XY{X: x + halfDay, Y: float64(r.start - half)})
			upper = append(upper,
				plotter.XY{X: x - halfDay, Y: float64(r.end - half)},
				plotter.XY{X: x + halfDay, Y: float64(r.end - half)})
		}
		slices.Reverse(upper)
		outlines = append(outlines, append(lower, upper...))
	}
	return outlines
}
