// Command shade builds the zoning envelope of a parcel and maps the sun hours
// it leaves on the ground around it.
//
// Usage:
//
//	shade [-config job.yaml] [-out dir] [-no-shadow]
//
// With no job file, shade runs the embedded default job.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/envelope"
	"github.com/zonewise/shade/errs"
	"github.com/zonewise/shade/internal/config"
	"github.com/zonewise/shade/internal/diskcache"
	"github.com/zonewise/shade/internal/render"
	"github.com/zonewise/shade/mesh"
	"github.com/zonewise/shade/shadow"
	"github.com/zonewise/shade/sun"
)

func main() {
	configPath := flag.String("config", "", "Path to job YAML (empty = use defaults)")
	outputDir := flag.String("out", "", "Output directory (empty = use config)")
	noShadow := flag.Bool("no-shadow", false, "Build the envelope only")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, !*noShadow, logger); err != nil {
		logger.Error("shade failed", "kind", errs.KindOf(err).String(), "error", err)
		os.Exit(1)
	}
}

// run executes the job in cfg, writing its outputs to cfg.Output.Dir.
func run(ctx context.Context, cfg *config.Config, withShadow bool, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o777); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := cfg.WriteYAML(filepath.Join(cfg.Output.Dir, "job.yaml")); err != nil {
		return err
	}

	parcel, err := cfg.NewParcel()
	if err != nil {
		return err
	}
	env, err := envelope.Build(parcel, cfg.Zoning, cfg.BuildOptions(logger))
	if err != nil {
		return err
	}
	u := cfg.Zoning.Unit
	m := env.Metrics
	logger.Info("envelope built",
		"strategy", env.Strategy,
		"lot_area", u.AreaFromMeters(m.LotArea),
		"buildable_area", u.AreaFromMeters(m.BuildableArea),
		"max_gfa", u.AreaFromMeters(m.MaxGFA),
		"height", u.FromMeters(m.EffectiveHeight),
		"limited_by", m.HeightLimitedBy,
		"floors", m.Floors,
		"unit", u,
		"geodesic_lot_area_m2", parcel.GeodesicArea(),
	)

	if err := writeOutput(cfg, cfg.Output.STL, func(f *os.File) error {
		return env.Mesh.WriteSTL(f)
	}); err != nil {
		return err
	}
	if err := writeOutput(cfg, cfg.Output.JSON, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(env.Export(u))
	}); err != nil {
		return err
	}

	if !withShadow {
		return nil
	}
	return runShadow(ctx, cfg, env, logger)
}

// sunHoursRow is one line of the sun hours CSV.
type sunHoursRow struct {
	X            float64 `csv:"x_m"`
	Y            float64 `csv:"y_m"`
	Z            float64 `csv:"z_m"`
	SunHours     float64 `csv:"sun_hours"`
	AvgSunHours  float64 `csv:"avg_sun_hours"`
	FoliageHours float64 `csv:"foliage_hours"`
	Insolation   float64 `csv:"insolation_wh_m2"`
}

// studyEntry is the cached part of a study.
type studyEntry struct {
	Days          int
	DaylightHours float64
	Points        []shadow.StudyPoint
}

func runShadow(ctx context.Context, cfg *config.Config, env *envelope.Envelope, logger *slog.Logger) error {
	layers := shadow.Opaque(env.Mesh)
	for _, n := range cfg.Shadow.Neighbors {
		m, err := readSTL(n.Path)
		if err != nil {
			return err
		}
		m = m.Translate(r3.Vec{X: n.Offset[0], Y: n.Offset[1], Z: n.Offset[2]})
		if n.Foliage {
			layers = append(layers, shadow.Foliage(m))
		} else {
			layers = append(layers, shadow.Opaque(m)...)
		}
	}

	if err := writeOutput(cfg, cfg.Output.POV, func(f *os.File) error {
		return writeScene(f, cfg, env, layers)
	}); err != nil {
		return err
	}

	b := env.Lot.Bounds()
	margin := r2.Vec{X: cfg.Shadow.Margin, Y: cfg.Shadow.Margin}
	area := r2.Box{Min: r2.Sub(b.Min, margin), Max: r2.Add(b.Max, margin)}
	points, err := shadow.GroundGrid(area, cfg.Shadow.Spacing, cfg.Shadow.PointHeight)
	if err != nil {
		return err
	}

	site := cfg.Derived.Site
	opts := &shadow.StudyOptions{
		Options: shadow.Options{
			Workers:         cfg.Shadow.Workers,
			BatchSize:       cfg.Shadow.BatchSize,
			Logger:          logger,
			ElevationMeters: cfg.Site.ElevationM,
			Progress: func(done, total int) {
				logger.Debug("shadow progress", "done", done, "total", total)
			},
		},
		Path:  cfg.PathOptions(),
		Cache: sun.NewCache(),
	}

	var entry studyEntry
	var cache *diskcache.Cache
	var key diskcache.Key
	if cfg.Output.CacheDir != "" {
		cache = diskcache.New(cfg.Output.CacheDir, logger)
		meshes := make([]*mesh.Mesh, len(layers))
		for i, l := range layers {
			meshes[i] = l.Mesh
		}
		key, err = diskcache.MakeKey(meshes, points, site, cfg.Derived.From.Format(time.DateOnly),
			cfg.Derived.To.Format(time.DateOnly), cfg.Site.Timezone, opts.Path, cfg.Site.ElevationM)
		if err != nil {
			return err
		}
	}
	if cache == nil || !cache.Load(key, &entry) {
		start := time.Now()
		res, err := shadow.Study(ctx, layers, points, site.Lat, site.Lon, cfg.Derived.From, cfg.Derived.To, opts)
		if err != nil {
			return err
		}
		if res.Partial {
			logger.Warn("study cancelled; writing partial results", "days", res.Days, "error", res.Cancelled)
		}
		hits, misses := opts.Cache.Stats()
		logger.Info("study done", "days", res.Days, "points", len(points),
			"elapsed", time.Since(start), "path_cache_hits", hits, "path_cache_misses", misses)
		entry = studyEntry{res.Days, res.DaylightHours, res.Points}
		if cache != nil && !res.Partial {
			if err := cache.Save(key, entry); err != nil {
				logger.Warn("saving study to cache", "error", err)
			}
		}
	}

	rows := make([]sunHoursRow, len(entry.Points))
	avg := make([]float64, len(entry.Points))
	for i, p := range entry.Points {
		rows[i] = sunHoursRow{p.Position.X, p.Position.Y, p.Position.Z, p.SunHours, p.AvgSunHours, p.FoliageHours, p.Insolation}
		avg[i] = p.AvgSunHours
	}
	if err := writeOutput(cfg, cfg.Output.CSV, func(f *os.File) error {
		return gocsv.Marshal(rows, f)
	}); err != nil {
		return err
	}

	if cfg.Output.PNG == "" || entry.Days == 0 {
		return nil
	}
	lattice, err := render.NewLattice(points, avg)
	if err != nil {
		return err
	}
	plt, err := render.SunHoursMap(fmt.Sprintf("Average daily sun hours, %s to %s",
		cfg.Shadow.From, cfg.Shadow.To), lattice, env.Lot, env.BuildablePolygon)
	if err != nil {
		return err
	}
	if err := render.Save(plt, filepath.Join(cfg.Output.Dir, cfg.Output.PNG)); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.Output.PNG, err)
	}
	return probe(ctx, cfg, env, layers, opts, logger)
}

// probe traces the center of the lot day by day and draws its exposure
// calendar and daily sun hours next to the map.
func probe(ctx context.Context, cfg *config.Config, env *envelope.Envelope, layers []shadow.Layer, opts *shadow.StudyOptions, logger *slog.Logger) error {
	c := env.Lot.Centroid()
	pt := []r3.Vec{{X: c.X, Y: c.Y, Z: cfg.Shadow.PointHeight}}
	site := cfg.Derived.Site
	interval := opts.Path.Interval
	if interval == 0 {
		interval = sun.DefaultInterval
	}
	o := opts.Options
	o.Interval = interval
	o.Progress = nil

	var cells []render.Cell
	var days []time.Time
	var hours []float64
	for day := cfg.Derived.From; !day.After(cfg.Derived.To); day = day.AddDate(0, 0, 1) {
		samples, err := opts.Cache.DayPath(day, site.Lat, site.Lon, opts.Path)
		if err != nil {
			return err
		}
		g, err := shadow.Compute(ctx, layers, samples, pt, &o)
		if err != nil {
			return err
		}
		if g.Partial {
			logger.Warn("probe cancelled", "date", day.Format(time.DateOnly))
			break
		}
		for i, s := range samples {
			lit := g.Points[0].Exposure[i]
			light := 0.0
			if lit {
				light = 1
			}
			cells = append(cells, render.Cell{
				Time:   s.Time,
				Value:  sun.GlobalIrradiance(s.Altitude, cfg.Site.ElevationM, light),
				Sunlit: lit,
			})
		}
		days = append(days, day)
		hours = append(hours, g.Points[0].SunHours)
	}
	if len(days) == 0 {
		return nil
	}

	base := strings.TrimSuffix(cfg.Output.PNG, filepath.Ext(cfg.Output.PNG))
	cal, err := render.Calendar("Irradiance at lot center (W/m²)", cells, interval)
	if err != nil {
		return err
	}
	if err := render.Save(cal, filepath.Join(cfg.Output.Dir, base+"-calendar.png")); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	if len(days) < 2 {
		return nil
	}
	daily, err := render.DailyHours("Sun hours at lot center", days, hours)
	if err != nil {
		return err
	}
	if err := render.Save(daily, filepath.Join(cfg.Output.Dir, base+"-daily.png")); err != nil {
		return fmt.Errorf("writing daily hours: %w", err)
	}
	return nil
}

// writeScene writes a POV-Ray scene of the layers with the sun at its
// highest on the first day of the study.
func writeScene(f *os.File, cfg *config.Config, env *envelope.Envelope, layers []shadow.Layer) error {
	site := cfg.Derived.Site
	seq, err := sun.DayPath(cfg.Derived.From, site.Lat, site.Lon, cfg.PathOptions())
	if err != nil {
		return err
	}
	var noon sun.Sample
	for s := range seq {
		if s.Altitude > noon.Altitude {
			noon = s
		}
	}
	if noon.Altitude <= 0 {
		// No sun all day, but the scene still shows the site.
		noon.Altitude = math.Pi / 2
	}
	c := env.Lot.Centroid()
	scene := &render.Scene{
		Sun:    noon.Direction(),
		Target: r3.Vec{X: c.X, Y: c.Y, Z: cfg.Shadow.PointHeight},
		Camera: r3.Vec{Y: -3 * cfg.Shadow.Margin, Z: 2 * cfg.Shadow.Margin},
	}
	for _, l := range layers {
		scene.Meshes = append(scene.Meshes, l.Mesh)
	}
	return render.WritePOV(f, scene)
}

func readSTL(path string) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := mesh.ReadSTL(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return m, nil
}

// writeOutput creates the named output file and fills it with write. An
// empty name skips the output.
func writeOutput(cfg *config.Config, name string, write func(f *os.File) error) (err error) {
	if name == "" {
		return nil
	}
	path := filepath.Join(cfg.Output.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
