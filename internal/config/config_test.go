package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, int64(2*1024*1024), cfg.Crawler.MaxFileSize)
	assert.True(t, cfg.Crawler.IgnoreLockFiles)
	assert.Equal(t, 1000, cfg.Chunk.MaxChunkSize)
	assert.Equal(t, 100, cfg.Chunk.OverlapSize)
	assert.Equal(t, 50, cfg.Chunk.MinChunkSize)
	assert.Equal(t, 20, cfg.Search.MaxResults)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestCrawlWorkersDerived(t *testing.T) {
	c := CrawlerConfig{Workers: 0}
	assert.GreaterOrEqual(t, c.CrawlWorkers(), 8)

	c.Workers = 3
	assert.Equal(t, 3, c.CrawlWorkers())
}

func TestLoadWithoutFile(t *testing.T) {
	// Given: a root with no .sema.yaml
	dir := t.TempDir()

	// When: loading
	cfg, err := Load(dir)

	// Then: defaults apply
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunk.MaxChunkSize)
}

func TestLoadMergesProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
chunk:
  max_chunk_size: 2000
  overlap_size: 50
search:
  max_results: 5
crawler:
  file_extensions: ["go", "md"]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), content, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 2000, cfg.Chunk.MaxChunkSize)
	assert.Equal(t, 50, cfg.Chunk.OverlapSize)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, []string{"go", "md"}, cfg.Crawler.FileExtensions)

	// Defaults preserved where not set
	assert.Equal(t, 50, cfg.Chunk.MinChunkSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
chunk:
  max_chunk_size: 100
  overlap_size: 200
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), content, 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap_size")
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{not yaml"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEMA_MAX_RESULTS", "7")
	t.Setenv("SEMA_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Search.MaxResults)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateChunkBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunk.MaxChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.Chunk.OverlapSize = -1 }},
		{"min above max", func(c *Config) { c.Chunk.MinChunkSize = 5000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "fast" }},
		{"zero max file size", func(c *Config) { c.Crawler.MaxFileSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDebounceDuration(t *testing.T) {
	w := WatchConfig{Debounce: "250ms"}
	assert.Equal(t, 250*time.Millisecond, w.DebounceDuration())

	w.Debounce = ""
	assert.Equal(t, 500*time.Millisecond, w.DebounceDuration())
}

func TestEnsureConfigCreates(t *testing.T) {
	dir := t.TempDir()

	created, err := EnsureConfig(dir)
	require.NoError(t, err)
	assert.True(t, created)

	// Second call is a no-op
	created, err = EnsureConfig(dir)
	require.NoError(t, err)
	assert.False(t, created)

	// Round-trip: the generated file loads and validates
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestDataDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", ".sema"), DataDir("/repo"))
}
