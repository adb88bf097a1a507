// Package render draws sun-hours maps and exposure calendars with
// gonum/plot, and writes POV-Ray scenes of a site.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/zonewise/shade/geom"
)

// Page size of saved plots.
const (
	Width  = 20 * vg.Centimeter
	Height = 15 * vg.Centimeter
)

// newPlot returns a plot with white text and axes on black.
func newPlot(title string) *plot.Plot {
	plt := plot.New()
	plt.Title.Text = title
	plt.BackgroundColor = color.Black
	for _, elt := range []*color.Color{
		&plt.Title.TextStyle.Color,
		&plt.X.Color,
		&plt.X.Tick.Color,
		&plt.X.Tick.Label.Color,
		&plt.X.Label.TextStyle.Color,
		&plt.Y.Color,
		&plt.Y.Tick.Color,
		&plt.Y.Tick.Label.Color,
		&plt.Y.Label.TextStyle.Color,
		&plt.Legend.TextStyle.Color,
	} {
		*elt = color.White
	}
	return plt
}

// Save writes plt to path. The format comes from the extension.
func Save(plt *plot.Plot, path string) error {
	return plt.Save(Width, Height, path)
}

// WritePNG writes plt to w as a PNG.
func WritePNG(plt *plot.Plot, w io.Writer) error {
	wt, err := plt.WriterTo(Width, Height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// A Lattice is a value per point of a regular ground grid, as laid out by
// shadow.GroundGrid: X varies fastest.
type Lattice struct {
	nx, ny int
	x0, y0 float64
	dx, dy float64
	z      []float64
	min    float64
	max    float64
}

// NewLattice arranges values over points, which must form a complete
// X-major lattice.
func NewLattice(points []r3.Vec, values []float64) (*Lattice, error) {
	if len(points) == 0 || len(points) != len(values) {
		return nil, fmt.Errorf("lattice of %d points and %d values", len(points), len(values))
	}
	nx := 1
	for nx < len(points) && points[nx].Y == points[0].Y {
		nx++
	}
	if len(points)%nx != 0 {
		return nil, fmt.Errorf("%d points do not form rows of %d", len(points), nx)
	}
	l := &Lattice{
		nx: nx, ny: len(points) / nx,
		x0: points[0].X, y0: points[0].Y,
		dx: 1, dy: 1,
		z:   values,
		min: math.Inf(1), max: math.Inf(-1),
	}
	if l.nx > 1 {
		l.dx = points[1].X - points[0].X
	}
	if l.ny > 1 {
		l.dy = points[nx].Y - points[0].Y
	}
	for _, v := range values {
		l.min = math.Min(l.min, v)
		l.max = math.Max(l.max, v)
	}
	if l.max == l.min {
		// A flat map still needs a range to color.
		l.max = l.min + 1
	}
	return l, nil
}

func (l *Lattice) Dims() (c, r int)   { return l.nx, l.ny }
func (l *Lattice) Z(c, r int) float64 { return l.z[r*l.nx+c] }
func (l *Lattice) X(c int) float64    { return l.x0 + float64(c)*l.dx }
func (l *Lattice) Y(r int) float64    { return l.y0 + float64(r)*l.dy }
func (l *Lattice) Min() float64       { return l.min }
func (l *Lattice) Max() float64       { return l.max }

// SunHoursMap draws a heat map of the values on l with the outlines of
// polys on top, in local meters.
func SunHoursMap(title string, l *Lattice, polys ...geom.Polygon) (*plot.Plot, error) {
	plt := newPlot(title)
	plt.X.Label.Text = "East (m)"
	plt.Y.Label.Text = "North (m)"

	hm := plotter.NewHeatMap(l, palette.Heat(256, 1))
	hm.Rasterized = true
	plt.Add(hm)

	for _, p := range polys {
		xys := make(plotter.XYs, len(p)+1)
		for i, v := range p {
			xys[i] = plotter.XY{X: v.X, Y: v.Y}
		}
		xys[len(p)] = xys[0]
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.Color = color.RGBA{B: 255, G: 200, A: 255}
		line.Width = vg.Points(1.5)
		plt.Add(line)
	}
	return plt, nil
}

// A Cell is one sample of a calendar.
type Cell struct {
	Time  time.Time
	Value float64 // Zero is drawn as no sun

	// Sunlit cells are outlined.
	Sunlit bool
}

// Calendar draws cells as a heat map of day against time of day, with the
// sunlit cells outlined. interval is the spacing of samples within a day.
// Times are placed by their wall clock in their own location.
func Calendar(title string, cells []Cell, interval time.Duration) (*plot.Plot, error) {
	plt := newPlot(title)
	if len(cells) == 0 {
		return plt, nil
	}

	type xy struct {
		day      time.Time
		row, col int
		value    float64
	}

	// Columns start at the first day. Rows narrow to the lit times.
	var cMax, rMin, rMax int
	startDay, _ := splitTime(cells[0].Time)
	first := true
	xys := make([]xy, len(cells))
	for i, c := range cells {
		p := &xys[i]
		day, tod := splitTime(c.Time)
		p.day = day
		p.value = c.Value
		p.col = int(day.Sub(startDay) / (24 * time.Hour))
		p.row = int(tod / interval)
		cMax = max(cMax, p.col)
		if p.value > 0 {
			if first || p.row < rMin {
				rMin = p.row
			}
			if first || p.row > rMax {
				rMax = p.row
			}
			first = false
		}
	}

	grid := &calendarGrid{startDay: startDay, startTOD: time.Duration(rMin) * interval, increment: interval}
	grid.value = make([][]float64, cMax+1)
	for c := range grid.value {
		grid.value[c] = make([]float64, rMax-rMin+1)
	}
	for _, p := range xys {
		if p.row < rMin || p.row > rMax {
			continue
		}
		grid.value[p.col][p.row-rMin] = p.value
		grid.max = math.Max(grid.max, p.value)
	}

	hm := plotter.NewHeatMap(grid, palette.Heat(256, 1))
	hm.Underflow = color.Black
	hm.Rasterized = true
	plt.Add(hm)

	if outlines := exposureOutlines(cells, interval); len(outlines) > 0 {
		xyers := make([]plotter.XYer, len(outlines))
		for i, o := range outlines {
			xyers[i] = o
		}
		poly, err := plotter.NewPolygon(xyers...)
		if err != nil {
			return nil, err
		}
		poly.Color = nil
		poly.LineStyle.Color = color.RGBA{R: 255, G: 255, A: 255}
		poly.LineStyle.Width = vg.Points(0.75)
		plt.Add(poly)
	}

	plt.X.Tick.Marker = dayTicks(cMax + 1)
	plt.Y.Tick.Marker = timeOfDayTicks{targetTicks: 8}
	return plt, nil
}

type calendarGrid struct {
	value     [][]float64
	startDay  time.Time
	startTOD  time.Duration
	increment time.Duration
	max       float64
}

func (g *calendarGrid) Dims() (c, r int) {
	return len(g.value), len(g.value[0])
}

func (g *calendarGrid) Z(c, r int) float64 {
	return g.value[c][r]
}

func (g *calendarGrid) X(c int) float64 {
	return float64(g.startDay.AddDate(0, 0, c).Unix())
}

func (g *calendarGrid) Y(r int) float64 {
	return float64(g.startTOD + time.Duration(r)*g.increment)
}

func (g *calendarGrid) Min() float64 {
	// A tiny positive minimum draws zero, when the sun isn't reaching
	// the point, in the underflow color.
	return math.SmallestNonzeroFloat64
}

func (g *calendarGrid) Max() float64 {
	if g.max == 0 {
		return 1
	}
	return g.max
}

// DailyHours plots hours per day, such as average sun hours over a study.
func DailyHours(title string, days []time.Time, hours []float64) (*plot.Plot, error) {
	plt := newPlot(title)
	xys := make(plotter.XYs, len(days))
	for i, d := range days {
		day, _ := splitTime(d)
		xys[i] = plotter.XY{X: float64(day.Unix()), Y: float64(time.Duration(hours[i] * float64(time.Hour)))}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 255, G: 200, A: 255}
	plt.Add(line)
	plt.X.Tick.Marker = dayTicks(len(days))
	plt.Y.Tick.Marker = durationTicks{targetTicks: 6}
	plt.Y.Min = 0
	return plt, nil
}

// splitTime splits t into day and time of day. The day is at noon UTC to
// "center" it on that date, since gonum renders in UTC, and the time of day
// is the wall clock time since midnight in t's location.
func splitTime(t time.Time) (day time.Time, tod time.Duration) {
	day = time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
	tod = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
	return day, tod
}
