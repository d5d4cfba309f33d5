package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache is a file-backed record cache. Each entry is one JSON file named by
// the SHA-256 of its lookup key, so concurrent runs never contend on a
// shared index.
type Cache struct {
	dir string
	ttl time.Duration
}

// cacheEntry is the on-disk shape. TTL is stored per entry so a config
// change to the TTL only affects entries written after it.
type cacheEntry struct {
	FetchedAt  time.Time `json:"fetched_at"`
	TTLSeconds int       `json:"ttl_seconds"`
	Record     *Record   `json:"record"`
}

// NewCache creates a cache rooted at dir. The directory is created on
// first write, not here, so a disabled cache never touches the filesystem.
func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl}
}

// Key derives the cache file key for a lookup. The key covers everything
// that shapes the response: ID type, the ID itself, and the query signature
// (database plus filter shape), so a query change invalidates naturally.
func Key(idType, id, querySig string) string {
	sum := sha256.Sum256([]byte(idType + "|" + id + "|" + querySig))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached record for key, or (nil, false) when absent,
// expired, or unreadable. Expired and corrupt entries are removed so they
// are not re-examined on the next run.
func (c *Cache) Get(key string) (*Record, bool) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		os.Remove(path)
		return nil, false
	}

	ttl := time.Duration(entry.TTLSeconds) * time.Second
	if time.Since(entry.FetchedAt) > ttl {
		os.Remove(path)
		return nil, false
	}
	return entry.Record, true
}

// Put stores a record under key. Writes go through a temp file and rename
// so a concurrent reader never sees a partial entry.
func (c *Cache) Put(key string, record *Record) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	entry := cacheEntry{
		FetchedAt:  time.Now().UTC(),
		TTLSeconds: int(c.ttl.Seconds()),
		Record:     record,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Clear removes every cache entry and returns the number removed.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove cache entry %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Info summarizes the cache state for the cache info command.
type Info struct {
	Dir     string `json:"dir"`
	Entries int    `json:"entries"`
	Expired int    `json:"expired"`
	Bytes   int64  `json:"bytes"`
}

// Stat walks the cache and counts live and expired entries without
// removing anything.
func (c *Cache) Stat() (Info, error) {
	info := Info{Dir: c.dir}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return info, nil
		}
		return info, fmt.Errorf("read cache dir: %w", err)
	}

	for _, dirEntry := range entries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != ".json" {
			continue
		}
		info.Entries++
		if fi, err := dirEntry.Info(); err == nil {
			info.Bytes += fi.Size()
		}

		data, err := os.ReadFile(filepath.Join(c.dir, dirEntry.Name()))
		if err != nil {
			continue
		}
		var entry cacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			info.Expired++
			continue
		}
		if time.Since(entry.FetchedAt) > time.Duration(entry.TTLSeconds)*time.Second {
			info.Expired++
		}
	}
	return info, nil
}
