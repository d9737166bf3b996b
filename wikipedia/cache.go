package wikipedia

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// CacheKey builds the deterministic lookup key for a movie. All three
// parts participate so remakes with the same title stay distinct.
func CacheKey(title, year, director string) string {
	return fmt.Sprintf("%s|%s|%s", title, year, director)
}

// Cache is a JSON-file backed cache of lookup results. Negative results
// are cached too, so a rerun never repeats a failed search.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]*MatchResult
	dirty   bool
}

// NewCache creates a cache persisted at path. Call Load before first use.
func NewCache(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]*MatchResult),
	}
}

// Load reads the cache file. A missing or corrupt file starts an empty
// cache; enrichment is best-effort so cache loss is never fatal.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read wikipedia cache: %w", err)
	}

	entries := make(map[string]*MatchResult)
	if err := json.Unmarshal(data, &entries); err != nil {
		// Corrupt cache loses cached lookups, nothing else.
		return nil
	}

	c.entries = entries
	return nil
}

// Get returns the cached result for key, if present.
func (c *Cache) Get(key string) (*MatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[key]
	return result, ok
}

// Put stores a result under key.
func (c *Cache) Put(key string, result *MatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = result
	c.dirty = true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Save writes the cache file if any entry changed since the last save.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wikipedia cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write wikipedia cache: %w", err)
	}

	c.dirty = false
	return nil
}
