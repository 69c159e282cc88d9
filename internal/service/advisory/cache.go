package advisory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// Cache keeps the last live advisory per severity and mirrors it to a JSON
// file so fallbacks survive restarts.
type Cache struct {
	path  string
	mu    sync.RWMutex
	items map[string]string
}

// LoadCache reads path into a new cache. A missing file yields an empty
// cache. A malformed file also yields an empty cache together with the decode
// error so callers can log it.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, items: make(map[string]string)}
	if path == "" {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read advisory cache: %w", err)
	}

	var items map[string]string
	if err := json.Unmarshal(raw, &items); err != nil {
		return c, fmt.Errorf("decode advisory cache %s: %w", path, err)
	}
	if items != nil {
		c.items = items
	}
	return c, nil
}

// Get returns the cached advisory for severity.
func (c *Cache) Get(severity string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.items[severity]
	return text, ok
}

// Put stores text under severity and rewrites the cache file.
func (c *Cache) Put(severity, text string) error {
	c.mu.Lock()
	c.items[severity] = text
	snapshot := maps.Clone(c.items)
	c.mu.Unlock()

	if c.path == "" {
		return nil
	}
	return writeJSONAtomic(c.path, snapshot)
}

// Snapshot copies the cached advisories.
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.items)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode advisory cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create advisory cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".advisories-*.json")
	if err != nil {
		return fmt.Errorf("create advisory cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write advisory cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close advisory cache: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
