// Package diskcache is a content-addressed cache of gob-encoded values on
// disk, keyed by the inputs that produced them.
package diskcache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// A Key names a cache entry by a hash of the inputs that produce it.
type Key string

// MakeKey hashes the gob encoding of args.
func MakeKey(args ...any) (Key, error) {
	h := sha256.New()
	enc := gob.NewEncoder(h)
	for i, arg := range args {
		if err := enc.Encode(arg); err != nil {
			return "", fmt.Errorf("encoding cache key argument %d: %w", i, err)
		}
	}
	return Key(hex.EncodeToString(h.Sum(nil))), nil
}

type Cache struct {
	dir    string
	logger *slog.Logger
}

// New returns a cache stored in dir, which is created on first save.
func New(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{dir, logger}
}

func (c *Cache) path(k Key) string {
	return filepath.Join(c.dir, string(k))
}

// Load decodes the entry for k into out and reports whether it was found.
// A corrupt entry is reported as missing.
func (c *Cache) Load(k Key, out any) bool {
	f, err := os.Open(c.path(k))
	if err != nil {
		return false
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(out); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", string(k), "error", err)
		return false
	}
	c.logger.Debug("cache hit", "key", string(k))
	return true
}

// Save stores val under k. The entry appears atomically, so a concurrent
// Load never sees a partial write.
func (c *Cache) Save(k Key, val any) error {
	if err := os.MkdirAll(c.dir, 0o777); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	f, err := os.CreateTemp(c.dir, string(k)+".*.tmp")
	if err != nil {
		return fmt.Errorf("saving to cache: %w", err)
	}
	defer os.Remove(f.Name())
	if err := gob.NewEncoder(f).Encode(val); err != nil {
		f.Close()
		return fmt.Errorf("encoding cache value: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("saving to cache: %w", err)
	}
	if err := os.Rename(f.Name(), c.path(k)); err != nil {
		return fmt.Errorf("saving to cache: %w", err)
	}
	return nil
}
