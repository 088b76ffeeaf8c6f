package guide

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Cache is the single on-disk guide file. Raw feed bytes are persisted
// verbatim so a cache hit replays exactly what the portal served. An
// advisory file lock serializes check-and-refresh across processes sharing
// the cache dir.
type Cache struct {
	path string
	ttl  time.Duration
	lock *flock.Flock
}

// NewCache returns a cache at path with the given freshness window.
func NewCache(path string, ttl time.Duration) *Cache {
	return &Cache{
		path: path,
		ttl:  ttl,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the cache file location.
func (c *Cache) Path() string { return c.path }

// Lock takes the advisory lock; the caller must call the returned release
// func. Lock failures (exotic filesystems) degrade to no locking.
func (c *Cache) Lock() func() {
	if err := c.lock.Lock(); err != nil {
		return func() {}
	}
	return func() { c.lock.Unlock() }
}

// Fresh reports whether the cache file exists and its mtime is within the
// freshness window. A missing file is always stale.
func (c *Cache) Fresh(now time.Time) bool {
	fi, err := os.Stat(c.path)
	if err != nil {
		return false
	}
	return now.Sub(fi.ModTime()) < c.ttl
}

// Read returns the cached raw feed bytes.
func (c *Cache) Read() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("guide cache read: %w", err)
	}
	return data, nil
}

// Write persists raw feed bytes with a temp-file-then-rename so a reader
// never sees a partial guide.
func (c *Cache) Write(raw []byte) error {
	dir := filepath.Dir(filepath.Clean(c.path))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("guide cache mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".guide-*.xml.tmp")
	if err != nil {
		return fmt.Errorf("guide cache: create temp: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(raw)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("guide cache: write: %w", writeErr)
		}
		return fmt.Errorf("guide cache: close: %w", closeErr)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("guide cache: chmod: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("guide cache: rename: %w", err)
	}
	return nil
}

// Remove deletes the cache file. Missing file is not an error.
func (c *Cache) Remove() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("guide cache remove: %w", err)
	}
	return nil
}
