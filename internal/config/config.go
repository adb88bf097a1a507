// Package config loads shade job files.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zonewise/shade/envelope"
	"github.com/zonewise/shade/geom"
	"github.com/zonewise/shade/sun"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is a shade job: a parcel, its zoning, and the analyses to run.
type Config struct {
	Site   SiteConfig                `yaml:"site"`
	Parcel ParcelConfig              `yaml:"parcel"`
	Zoning envelope.ZoningConstraint `yaml:"zoning"`
	Build  BuildConfig               `yaml:"build"`
	Shadow ShadowConfig              `yaml:"shadow"`
	Output OutputConfig              `yaml:"output"`
	Log    LogConfig                 `yaml:"log"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SiteConfig locates the study.
type SiteConfig struct {
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
	ElevationM float64 `yaml:"elevation_m"`
	Timezone   string  `yaml:"timezone"` // IANA name; empty means UTC
}

// ParcelConfig is the lot boundary and its edge metadata.
type ParcelConfig struct {
	Ring      []geom.LonLat       `yaml:"ring"`
	FrontEdge int                 `yaml:"front_edge"` // -1 if unknown
	Roles     []envelope.EdgeRole `yaml:"roles"`      // Per edge; overrides FrontEdge
}

// BuildConfig holds envelope builder options.
type BuildConfig struct {
	Strategy           string  `yaml:"strategy"` // auto, per_edge, uniform_average
	Collapse           string  `yaml:"collapse"` // fail, shrink
	MinBuildableArea   float64 `yaml:"min_buildable_area"`
	AverageFloorHeight float64 `yaml:"average_floor_height"`
}

// ShadowConfig holds the sun-hours study.
type ShadowConfig struct {
	From        string        `yaml:"from"` // YYYY-MM-DD
	To          string        `yaml:"to"`
	Interval    time.Duration `yaml:"interval"`
	StartHour   float64       `yaml:"start_hour"`
	EndHour     float64       `yaml:"end_hour"`
	Spacing     float64       `yaml:"spacing"`
	PointHeight float64       `yaml:"point_height"`
	Margin      float64       `yaml:"margin"`
	Workers     int           `yaml:"workers"`
	BatchSize   int           `yaml:"batch_size"`
	Neighbors   []LayerConfig `yaml:"neighbors"`
}

// LayerConfig is a neighboring mesh read from a binary STL file, in meters in
// the parcel's local frame.
type LayerConfig struct {
	Path    string     `yaml:"path"`
	Foliage bool       `yaml:"foliage"`
	Offset  [3]float64 `yaml:"offset"`
}

// OutputConfig names the files written. Empty names are skipped.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	STL      string `yaml:"stl"`
	JSON     string `yaml:"json"`
	CSV      string `yaml:"csv"`
	PNG      string `yaml:"png"`
	POV      string `yaml:"pov"`
	CacheDir string `yaml:"cache_dir"` // Empty disables the grid cache
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Location *time.Location
	Site     geom.LonLat
	From, To time.Time
	LogLevel slog.Level
}

// Load loads a job from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays the YAML in data on cfg. Only keys present in data change,
// with two exceptions. A new parcel ring clears the front edge, the roles
// and the site position that described the old lot, unless data sets them
// too. A zoning section replaces the zoning whole, so that limits it leaves
// out are absent rather than inherited.
func Parse(data []byte, cfg *Config) error {
	var keys struct {
		Site   map[string]any `yaml:"site"`
		Parcel map[string]any `yaml:"parcel"`
		Zoning *yaml.Node     `yaml:"zoning"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return err
	}
	if _, ok := keys.Parcel["ring"]; ok {
		cfg.Parcel = ParcelConfig{FrontEdge: -1}
		cfg.Site.Lat, cfg.Site.Lon = 0, 0
	}
	if keys.Zoning != nil {
		cfg.Zoning = envelope.ZoningConstraint{}
	}
	return yaml.Unmarshal(data, cfg)
}

// computeDerived validates c and fills in c.Derived.
func (c *Config) computeDerived() error {
	var err error
	d := &c.Derived
	if d.Location, err = time.LoadLocation(c.Site.Timezone); err != nil {
		return fmt.Errorf("site timezone: %w", err)
	}
	if c.Site.Lat == 0 && c.Site.Lon == 0 {
		d.Site = geom.CentroidOrigin(c.Parcel.Ring)
	} else {
		d.Site = geom.LonLat{Lon: c.Site.Lon, Lat: c.Site.Lat}
	}
	if d.From, err = time.ParseInLocation(time.DateOnly, c.Shadow.From, d.Location); err != nil {
		return fmt.Errorf("shadow.from: %w", err)
	}
	if d.To, err = time.ParseInLocation(time.DateOnly, c.Shadow.To, d.Location); err != nil {
		return fmt.Errorf("shadow.to: %w", err)
	}
	if d.To.Before(d.From) {
		return fmt.Errorf("shadow.to %s is before shadow.from %s", c.Shadow.To, c.Shadow.From)
	}
	if err := d.LogLevel.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if _, err := c.strategy(); err != nil {
		return err
	}
	if _, err := c.collapse(); err != nil {
		return err
	}
	return c.Zoning.Validate()
}

// NewLogger returns a logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Derived.LogLevel}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewParcel builds the parcel with its edge metadata.
func (c *Config) NewParcel() (*envelope.Parcel, error) {
	var opts []envelope.ParcelOption
	switch {
	case len(c.Parcel.Roles) > 0:
		opts = append(opts, envelope.WithRoles(c.Parcel.Roles...))
	case c.Parcel.FrontEdge >= 0:
		opts = append(opts, envelope.WithFrontEdge(c.Parcel.FrontEdge))
	}
	return envelope.NewParcel(c.Parcel.Ring, opts...)
}

// BuildOptions returns the envelope builder options.
func (c *Config) BuildOptions(logger *slog.Logger) *envelope.Options {
	// Both were checked by Load.
	s, _ := c.strategy()
	p, _ := c.collapse()
	return &envelope.Options{
		Strategy:           s,
		CollapsePolicy:     p,
		MinBuildableArea:   c.Build.MinBuildableArea,
		AverageFloorHeight: c.Build.AverageFloorHeight,
		Logger:             logger,
	}
}

// PathOptions returns the day path sampling.
func (c *Config) PathOptions() sun.PathOptions {
	return sun.PathOptions{
		Interval:  c.Shadow.Interval,
		StartHour: c.Shadow.StartHour,
		EndHour:   c.Shadow.EndHour,
	}
}

func (c *Config) strategy() (envelope.Strategy, error) {
	switch c.Build.Strategy {
	case "", "auto":
		return nil, nil
	case envelope.PerEdge{}.Name():
		return envelope.PerEdge{}, nil
	case envelope.UniformAverage{}.Name():
		return envelope.UniformAverage{}, nil
	}
	return nil, fmt.Errorf("build.strategy: unknown strategy %q", c.Build.Strategy)
}

func (c *Config) collapse() (envelope.CollapsePolicy, error) {
	switch c.Build.Collapse {
	case "", "fail":
		return envelope.FailOnCollapse, nil
	case "shrink":
		return envelope.ShrinkToFit, nil
	}
	return 0, fmt.Errorf("build.collapse: unknown policy %q", c.Build.Collapse)
}

// WriteYAML saves c as YAML, for a record of the job that produced a set of
// outputs.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
