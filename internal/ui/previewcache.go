package ui

// PreviewCache holds file contents for the preview pane. It is a plain
// bounded map: once it grows past its limit the next Put sweeps it
// empty and starts over. Entries are trivially rebuildable from disk,
// so wholesale clearing beats bookkeeping per entry.
//
// The cache is confined to the bubbletea update loop and needs no lock.
type PreviewCache struct {
	max     int
	entries map[string]string
}

// DefaultPreviewCacheSize bounds the preview cache. Thirty-two files
// covers a screenful of results with room for scrolling.
const DefaultPreviewCacheSize = 32

// NewPreviewCache creates a cache holding at most max entries.
func NewPreviewCache(max int) *PreviewCache {
	if max < 1 {
		max = 1
	}
	return &PreviewCache{
		max:     max,
		entries: make(map[string]string),
	}
}

// Get returns the cached content for path.
func (c *PreviewCache) Get(path string) (string, bool) {
	content, ok := c.entries[path]
	return content, ok
}

// Put stores content for path, sweeping first if the cache is full.
func (c *PreviewCache) Put(path, content string) {
	if _, exists := c.entries[path]; !exists && len(c.entries) >= c.max {
		c.Sweep()
	}
	c.entries[path] = content
}

// Sweep drops every entry.
func (c *PreviewCache) Sweep() {
	clear(c.entries)
}

// Len returns the number of cached entries.
func (c *PreviewCache) Len() int {
	return len(c.entries)
}
