// Package config loads and validates sema configuration.
//
// Configuration is resolved in order of increasing precedence: hardcoded
// defaults, project config (.sema.yaml in the indexed root), then SEMA_*
// environment variables. Invalid configuration is rejected at load time,
// before any indexing begins.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DataDirName is the per-root directory holding the chunk store and
// lexical index. Deleting it forces a full reindex.
const DataDirName = ".sema"

// Config represents the complete sema configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Crawler CrawlerConfig `yaml:"crawler" json:"crawler"`
	Chunk   ChunkConfig   `yaml:"chunk" json:"chunk"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CrawlerConfig configures file discovery.
type CrawlerConfig struct {
	// MaxFileSize is the maximum file size in bytes to index.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`

	// FollowSymlinks enables following symbolic links during the walk.
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`

	// IncludeHidden includes dotfiles and dot-directories.
	IncludeHidden bool `yaml:"include_hidden" json:"include_hidden"`

	// IgnoreGitignore disables .gitignore filtering.
	IgnoreGitignore bool `yaml:"ignore_gitignore" json:"ignore_gitignore"`

	// FileExtensions is an allow-list of extensions. Empty means the
	// built-in text-extension table; "*" allows everything.
	FileExtensions []string `yaml:"file_extensions" json:"file_extensions"`

	// ExcludePatterns are glob patterns matched against relative paths.
	ExcludePatterns []string `yaml:"exclude_patterns" json:"exclude_patterns"`

	// IgnoreLockFiles skips package-manager lock files.
	IgnoreLockFiles bool `yaml:"ignore_lock_files" json:"ignore_lock_files"`

	// Workers is the walk worker count. 0 means max(8, 2*NumCPU).
	Workers int `yaml:"workers" json:"workers"`
}

// ChunkConfig configures content chunking.
type ChunkConfig struct {
	// MaxChunkSize is the maximum chunk size in bytes.
	MaxChunkSize int `yaml:"max_chunk_size" json:"max_chunk_size"`

	// OverlapSize controls how many trailing lines carry over between
	// consecutive chunks.
	OverlapSize int `yaml:"overlap_size" json:"overlap_size"`

	// MinChunkSize is the minimum viable content size; smaller files
	// yield zero chunks.
	MinChunkSize int `yaml:"min_chunk_size" json:"min_chunk_size"`
}

// SearchConfig configures query execution.
type SearchConfig struct {
	// MaxResults is the default result limit.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// SnippetLength is the maximum snippet length in characters.
	SnippetLength int `yaml:"snippet_length" json:"snippet_length"`
}

// WatchConfig configures the --watch mode.
type WatchConfig struct {
	// Debounce is the event coalescing window (e.g. "500ms").
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level"`
}

// defaultExcludePatterns are always excluded.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/*.min.js",
	"**/*.min.css",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Crawler: CrawlerConfig{
			MaxFileSize:     2 * 1024 * 1024,
			FollowSymlinks:  false,
			IncludeHidden:   false,
			IgnoreGitignore: false,
			FileExtensions:  nil,
			ExcludePatterns: defaultExcludePatterns,
			IgnoreLockFiles: true,
			Workers:         0, // derived from hardware at construction
		},
		Chunk: ChunkConfig{
			MaxChunkSize: 1000,
			OverlapSize:  100,
			MinChunkSize: 50,
		},
		Search: SearchConfig{
			MaxResults:    20,
			SnippetLength: 150,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// CrawlWorkers returns the effective crawl worker count.
func (c *CrawlerConfig) CrawlWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	n := 2 * runtime.NumCPU()
	if n < 8 {
		n = 8
	}
	return n
}

// DebounceDuration returns the parsed debounce window.
// Falls back to 500ms if the configured value is unusable.
func (w *WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// ConfigFileName is the per-project configuration file.
const ConfigFileName = ".sema.yaml"

// DataDir returns the data directory for the given root.
func DataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// Load loads configuration for the given root directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Project config (.sema.yaml in root)
//  3. Environment variables (SEMA_*)
func Load(root string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(root); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .sema.yaml or .sema.yml.
func (c *Config) loadFromFile(root string) error {
	yamlPath := filepath.Join(root, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(root, ".sema.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Crawler
	if other.Crawler.MaxFileSize != 0 {
		c.Crawler.MaxFileSize = other.Crawler.MaxFileSize
	}
	if other.Crawler.FollowSymlinks {
		c.Crawler.FollowSymlinks = true
	}
	if other.Crawler.IncludeHidden {
		c.Crawler.IncludeHidden = true
	}
	if other.Crawler.IgnoreGitignore {
		c.Crawler.IgnoreGitignore = true
	}
	if len(other.Crawler.FileExtensions) > 0 {
		c.Crawler.FileExtensions = other.Crawler.FileExtensions
	}
	if len(other.Crawler.ExcludePatterns) > 0 {
		// Merge with defaults rather than replace
		c.Crawler.ExcludePatterns = append(c.Crawler.ExcludePatterns, other.Crawler.ExcludePatterns...)
	}
	if other.Crawler.Workers != 0 {
		c.Crawler.Workers = other.Crawler.Workers
	}

	// Chunking
	if other.Chunk.MaxChunkSize != 0 {
		c.Chunk.MaxChunkSize = other.Chunk.MaxChunkSize
	}
	if other.Chunk.OverlapSize != 0 {
		c.Chunk.OverlapSize = other.Chunk.OverlapSize
	}
	if other.Chunk.MinChunkSize != 0 {
		c.Chunk.MinChunkSize = other.Chunk.MinChunkSize
	}

	// Search
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.SnippetLength != 0 {
		c.Search.SnippetLength = other.Search.SnippetLength
	}

	// Watch
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
}

// applyEnvOverrides applies SEMA_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SEMA_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Crawler.MaxFileSize = n
		}
	}
	if v := os.Getenv("SEMA_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Crawler.Workers = n
		}
	}
	if v := os.Getenv("SEMA_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("SEMA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Crawler.MaxFileSize <= 0 {
		return fmt.Errorf("crawler.max_file_size must be positive, got %d", c.Crawler.MaxFileSize)
	}
	if c.Crawler.Workers < 0 {
		return fmt.Errorf("crawler.workers must be non-negative, got %d", c.Crawler.Workers)
	}

	if c.Chunk.MaxChunkSize <= 0 {
		return fmt.Errorf("chunk.max_chunk_size must be positive, got %d", c.Chunk.MaxChunkSize)
	}
	if c.Chunk.OverlapSize < 0 {
		return fmt.Errorf("chunk.overlap_size must be non-negative, got %d", c.Chunk.OverlapSize)
	}
	if c.Chunk.OverlapSize >= c.Chunk.MaxChunkSize {
		return fmt.Errorf("chunk.overlap_size must be smaller than max_chunk_size, got %d >= %d",
			c.Chunk.OverlapSize, c.Chunk.MaxChunkSize)
	}
	if c.Chunk.MinChunkSize < 0 {
		return fmt.Errorf("chunk.min_chunk_size must be non-negative, got %d", c.Chunk.MinChunkSize)
	}
	if c.Chunk.MinChunkSize > c.Chunk.MaxChunkSize {
		return fmt.Errorf("chunk.min_chunk_size must not exceed max_chunk_size, got %d > %d",
			c.Chunk.MinChunkSize, c.Chunk.MaxChunkSize)
	}

	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.SnippetLength <= 0 {
		return fmt.Errorf("search.snippet_length must be positive, got %d", c.Search.SnippetLength)
	}

	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("watch.debounce is not a valid duration: %q", c.Watch.Debounce)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EnsureConfig writes a default .sema.yaml into root if none exists.
// Returns true if a file was created.
func EnsureConfig(root string) (bool, error) {
	yamlPath := filepath.Join(root, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return false, nil
	}
	if _, err := os.Stat(filepath.Join(root, ".sema.yml")); err == nil {
		return false, nil
	}

	if err := NewConfig().WriteYAML(yamlPath); err != nil {
		return false, err
	}
	return true, nil
}
