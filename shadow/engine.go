// Package shadow traces sun rays from sample points through occluding
// meshes to measure how long each point sees the sun.
package shadow

import (
	"context"
	"io"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/errs"
	"github.com/zonewise/shade/sun"
)

// DefaultBatchSize is the number of points a worker traces between
// cancellation checks.
const DefaultBatchSize = 64

type Options struct {
	// Interval is the time each sample stands for. Zero means
	// sun.DefaultInterval.
	Interval time.Duration

	// Workers is the number of tracing goroutines. Zero means GOMAXPROCS.
	Workers int

	// BatchSize is the number of points per batch. Zero means
	// DefaultBatchSize.
	BatchSize int

	// Progress, if non-nil, is called after each batch with the number of
	// points traced so far. Calls are serialized.
	Progress func(done, total int)

	Logger *slog.Logger

	// ElevationMeters is the site elevation used for insolation.
	ElevationMeters float64
}

func (opts *Options) withDefaults() (Options, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	switch {
	case o.Interval < 0:
		return o, errs.New(errs.InvalidInput, "negative sample interval %v", o.Interval)
	case o.Workers < 0:
		return o, errs.New(errs.InvalidInput, "negative worker count %d", o.Workers)
	case o.BatchSize < 0:
		return o, errs.New(errs.InvalidInput, "negative batch size %d", o.BatchSize)
	}
	if o.Interval == 0 {
		o.Interval = sun.DefaultInterval
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o, nil
}

// A Point is the exposure of one sample point.
type Point struct {
	// Index is the position of this point in the input.
	Index    int    `json:"index"`
	Position r3.Vec `json:"position"`

	// SunHours is the time this point sees the sun directly.
	SunHours float64 `json:"sun_hours"`

	// FoliageHours is the time this point is shaded by foliage alone.
	FoliageHours float64 `json:"foliage_hours"`

	// Insolation is the radiant exposure on a plane facing the sun, in
	// Wh/m², counting diffuse light and light through foliage.
	Insolation float64 `json:"insolation"`

	// Exposure[i] reports whether Samples[i] reaches this point.
	Exposure []bool `json:"exposure"`
}

// A Grid is the result of tracing a set of points against a day's samples.
type Grid struct {
	Points   []Point       `json:"points"`
	Samples  []sun.Sample  `json:"samples"`
	Interval time.Duration `json:"interval"`

	// Partial is set if the run was cancelled before every point was
	// traced. Points then holds the completed points in input order and
	// Cancelled holds the reason.
	Partial   bool  `json:"partial"`
	Cancelled error `json:"-"`
}

// SunHours returns the sun hours of each point in g.
func (g *Grid) SunHours() []float64 {
	out := make([]float64, len(g.Points))
	for i := range g.Points {
		out[i] = g.Points[i].SunHours
	}
	return out
}

// workChunk is a batch of points for a worker to trace.
type workChunk struct {
	batch      int
	start, end int
}

// workerScratch holds per-worker state.
type workerScratch struct {
	// last[l] is the triangle of layer l that last shaded a ray, or -1.
	last []int
}

// tracer holds the read-only inputs shared by all workers.
type tracer struct {
	scene   []prepared
	samples []sun.Sample
	points  []r3.Vec
	hours   float64

	elevation float64

	// Per sample: the direction to the sun, whether it is up and the
	// transmissivity of each layer.
	dirs  []r3.Vec
	up    []bool
	trans [][]float64

	out []Point
}

// Compute traces every point against every sample with the sun above the
// horizon and returns the exposure of each point, in input order.
//
// Points are split into batches traced by a pool of workers. ctx is checked
// between batches. A cancelled run is not an error: Compute returns the
// points completed so far with Partial set.
func Compute(ctx context.Context, layers []Layer, samples []sun.Sample, points []r3.Vec, opts *Options) (*Grid, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	tr := &tracer{
		scene:     make([]prepared, len(layers)),
		samples:   samples,
		points:    points,
		hours:     o.Interval.Hours(),
		elevation: o.ElevationMeters,
		dirs:      make([]r3.Vec, len(samples)),
		up:        make([]bool, len(samples)),
		trans:     make([][]float64, len(samples)),
		out:       make([]Point, len(points)),
	}
	for i, l := range layers {
		if l.Mesh == nil {
			return nil, errs.New(errs.InvalidInput, "layer %d has no mesh", i)
		}
		tr.scene[i] = prepare(l)
	}
	for i, p := range points {
		if !finite(p) {
			return nil, errs.New(errs.InvalidInput, "point %d is not finite: %v", i, p)
		}
	}
	for i, s := range samples {
		tr.up[i] = s.Altitude > 0
		if !tr.up[i] {
			continue
		}
		tr.dirs[i] = s.Direction()
		tr.trans[i] = make([]float64, len(layers))
		for l := range tr.scene {
			tr.trans[i][l] = tr.scene[l].transmissivity(s.Time)
		}
	}

	g := &Grid{Samples: samples, Interval: o.Interval}
	nBatches := (len(points) + o.BatchSize - 1) / o.BatchSize
	workers := min(o.Workers, nBatches)
	o.Logger.Debug("tracing shadow grid",
		"points", len(points), "samples", len(samples), "layers", len(layers),
		"workers", workers, "batches", nBatches)

	work := make(chan workChunk)
	done := make(chan workChunk)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := &workerScratch{last: make([]int, len(tr.scene))}
			for i := range scratch.last {
				scratch.last[i] = -1
			}
			for c := range work {
				if ctx.Err() != nil {
					continue
				}
				tr.traceChunk(c, scratch)
				done <- c
			}
		}()
	}
	go func() {
		defer close(work)
		for b := range nBatches {
			if ctx.Err() != nil {
				return
			}
			c := workChunk{batch: b, start: b * o.BatchSize, end: min((b+1)*o.BatchSize, len(points))}
			select {
			case <-ctx.Done():
				return
			case work <- c:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	completed := make([]bool, nBatches)
	traced := 0
	for c := range done {
		completed[c.batch] = true
		traced += c.end - c.start
		if o.Progress != nil {
			o.Progress(traced, len(points))
		}
	}

	if traced == len(points) {
		g.Points = tr.out
		return g, nil
	}
	g.Partial = true
	g.Cancelled = errs.Wrap(errs.Cancelled, ctx.Err(), "shadow grid cancelled after %d of %d points", traced, len(points))
	g.Points = make([]Point, 0, traced)
	for b, ok := range completed {
		if ok {
			g.Points = append(g.Points, tr.out[b*o.BatchSize:min((b+1)*o.BatchSize, len(points))]...)
		}
	}
	o.Logger.Info("shadow grid cancelled", "traced", traced, "points", len(points))
	return g, nil
}

// traceChunk traces points [c.start, c.end).
func (tr *tracer) traceChunk(c workChunk, scratch *workerScratch) {
	for i := c.start; i < c.end; i++ {
		pt := &tr.out[i]
		pt.Index = i
		pt.Position = tr.points[i]
		pt.Exposure = make([]bool, len(tr.samples))
		sunlit, foliage := 0, 0
		for s := range tr.samples {
			if !tr.up[s] {
				continue
			}
			r := Ray{Origin: tr.points[i], Dir: tr.dirs[s]}
			light := 1.0
			hitBuilding, hitFoliage := false, false
			for l := range tr.scene {
				if hitBuilding && light == 0 {
					break
				}
				layer := &tr.scene[l]
				if !layer.occludes(&r, &scratch.last[l]) {
					continue
				}
				light *= tr.trans[s][l]
				if layer.foliage {
					hitFoliage = true
				} else {
					hitBuilding = true
				}
			}
			switch {
			case !hitBuilding && !hitFoliage:
				pt.Exposure[s] = true
				sunlit++
			case !hitBuilding:
				foliage++
			}
			pt.Insolation += sun.GlobalIrradiance(tr.samples[s].Altitude, tr.elevation, light) * tr.hours
		}
		pt.SunHours = float64(sunlit) * tr.hours
		pt.FoliageHours = float64(foliage) * tr.hours
	}
}

func finite(v r3.Vec) bool {
	for _, x := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
