package sun

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

// CoordPrecision is the number of decimal places of latitude and longitude
// a Cache keys on. 1e-4° is about 11 m, far below the distance over which
// the sun's position changes measurably.
const CoordPrecision = 4

// A Cache memoizes day paths. Coordinates are rounded to CoordPrecision
// decimal places and paths are computed at the rounded coordinates, so
// nearby sites share entries. A Cache is safe for concurrent use and is
// owned by its creator; the package keeps no cache of its own.
type Cache struct {
	mu     sync.Mutex
	paths  map[pathKey][]Sample
	hits   int
	misses int
}

type pathKey struct {
	year       int
	month      time.Month
	day        int
	loc        string
	lat, lon   float64
	start, end float64
	interval   time.Duration
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{paths: make(map[pathKey][]Sample)}
}

// DayPath is like the package-level DayPath, but materialized and
// memoized. The returned slice is shared and must not be modified.
func (c *Cache) DayPath(date time.Time, lat, lon float64, opts PathOptions) ([]Sample, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	lat, lon = scalar.Round(lat, CoordPrecision), scalar.Round(lon, CoordPrecision)
	y, m, d := date.Date()
	key := pathKey{y, m, d, date.Location().String(), lat, lon, o.StartHour, o.EndHour, o.Interval}

	c.mu.Lock()
	path, ok := c.paths[key]
	if ok {
		c.hits++
	}
	c.mu.Unlock()
	if ok {
		return path, nil
	}

	seq, err := DayPath(date, lat, lon, o)
	if err != nil {
		return nil, err
	}
	path = Collect(seq)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	if prev, ok := c.paths[key]; ok {
		// Another goroutine filled it first. Keep one copy.
		return prev, nil
	}
	c.paths[key] = path
	return path, nil
}

// Stats returns the number of lookups served from the cache and computed.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}
