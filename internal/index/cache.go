package index

import (
	"context"
	"fmt"

	"shutter/internal/fileutil"
)

// Cache is a snapshot of the records stored under one directory, keyed by
// canonical path key.
type Cache struct {
	dir     string
	records map[string]Record
}

// LoadCache reads every record under dir with a single prefix query.
func LoadCache(ctx context.Context, store *Store, dir string) (*Cache, error) {
	prefix, err := fileutil.DirPrefix(dir)
	if err != nil {
		return nil, fmt.Errorf("cache key for %q: %w", dir, err)
	}
	rows, err := store.ListPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	records := make(map[string]Record, len(rows))
	for _, rec := range rows {
		records[rec.Path] = rec
	}
	return &Cache{dir: prefix, records: records}, nil
}

// Key normalizes path the same way records are stored.
func Key(path string) (string, error) {
	return fileutil.PathKey(path)
}

// Contains reports whether path has a complete record. Unknown paths,
// incomplete records, and paths that cannot be normalized are all false.
func (c *Cache) Contains(path string) bool {
	rec, ok := c.Lookup(path)
	return ok && rec.Complete()
}

// Lookup returns the cached record for path.
func (c *Cache) Lookup(path string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	key, err := Key(path)
	if err != nil {
		return Record{}, false
	}
	rec, ok := c.records[key]
	return rec, ok
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Dir returns the directory prefix the cache was loaded for.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}
