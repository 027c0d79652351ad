package ignore

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of parsed gitignore files kept
// across crawls. Watch mode re-crawls frequently, so reparsing every
// nested .gitignore each pass is wasted work.
const DefaultCacheSize = 256

// cacheEntry holds compiled rules for one gitignore file version.
type cacheEntry struct {
	modTime int64
	size    int64
	rules   []rule
}

// Cache is an LRU cache of parsed gitignore files keyed by path.
// Entries are invalidated when the file's mtime or size changes.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
}

// NewCache creates a cache holding up to size parsed gitignore files.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// AddFile appends the rules of the gitignore file at path to m, scoped
// to base. Parsed rules are cached and reused while the file on disk is
// unchanged.
func (c *Cache) AddFile(m *Matcher, path, base string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat gitignore file: %w", err)
	}

	key := path + "\x00" + base
	if entry, ok := c.entries.Get(key); ok {
		if entry.modTime == info.ModTime().UnixNano() && entry.size == info.Size() {
			m.appendRules(entry.rules)
			return nil
		}
	}

	parsed := New()
	if err := parsed.AddFromFile(path, base); err != nil {
		return err
	}

	c.entries.Add(key, cacheEntry{
		modTime: info.ModTime().UnixNano(),
		size:    info.Size(),
		rules:   parsed.rules,
	})

	m.appendRules(parsed.rules)
	return nil
}

// Len returns the number of cached gitignore files.
func (c *Cache) Len() int {
	return c.entries.Len()
}
