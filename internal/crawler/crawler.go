// Package crawler discovers indexable text files under a root
// directory. It walks directories in parallel, applies gitignore and
// config-based filters, and streams results on a channel.
package crawler

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sema-sh/sema/internal/config"
	"github.com/sema-sh/sema/internal/ignore"
)

// Crawler discovers indexable files in a directory tree.
type Crawler struct {
	cfg        config.CrawlerConfig
	ignores    *ignore.Cache
	extensions map[string]bool
	wildcard   bool
}

// dirWork is one directory waiting to be listed, together with the
// gitignore rules accumulated from its ancestors.
type dirWork struct {
	abs     string
	rel     string
	matcher *ignore.Matcher
}

// New creates a crawler for the given configuration.
func New(cfg config.CrawlerConfig) (*Crawler, error) {
	ignores, err := ignore.NewCache(ignore.DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}

	c := &Crawler{
		cfg:     cfg,
		ignores: ignores,
	}

	if len(cfg.FileExtensions) > 0 {
		c.extensions = make(map[string]bool, len(cfg.FileExtensions))
		for _, ext := range cfg.FileExtensions {
			clean := strings.TrimPrefix(strings.TrimPrefix(ext, "*."), ".")
			if clean == "*" || ext == "*" {
				c.wildcard = true
				continue
			}
			c.extensions[strings.ToLower(clean)] = true
		}
	} else {
		c.extensions = defaultTextExtensions
	}

	return c, nil
}

// Crawl walks the tree rooted at root and streams discovered files.
// The channel is closed when the walk completes. A missing root is not
// an error: it logs a warning and yields nothing.
func (c *Crawler) Crawl(ctx context.Context, root string) (<-chan Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	workers := c.cfg.CrawlWorkers()
	results := make(chan Result, workers*10)

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("crawl root does not exist, nothing to index",
				slog.String("root", absRoot))
			close(results)
			return results, nil
		}
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	// Directory queue. pending counts directories not yet fully listed;
	// when it drains, the queue closes and the workers exit.
	dirs := make(chan dirWork, 4096)
	var pending sync.WaitGroup

	pending.Add(1)
	dirs <- dirWork{abs: absRoot, rel: ".", matcher: ignore.New()}
	go func() {
		pending.Wait()
		close(dirs)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for work := range dirs {
				c.processDir(gctx, work, dirs, &pending, results)
				pending.Done()
			}
			return nil
		})
	}

	go func() {
		defer close(results)
		if err := g.Wait(); err != nil && err != context.Canceled {
			select {
			case results <- Result{Error: err}:
			default:
			}
		}
	}()

	return results, nil
}

// processDir lists one directory, emits its indexable files, and
// enqueues its subdirectories.
func (c *Crawler) processDir(ctx context.Context, work dirWork, dirs chan<- dirWork, pending *sync.WaitGroup, results chan<- Result) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	entries, err := os.ReadDir(work.abs)
	if err != nil {
		// Unreadable directories are skipped, not fatal
		slog.Debug("skipping unreadable directory",
			slog.String("path", work.abs),
			slog.String("error", err.Error()))
		return
	}

	matcher := work.matcher
	gitignorePath := filepath.Join(work.abs, ".gitignore")
	if !c.cfg.IgnoreGitignore {
		if _, err := os.Stat(gitignorePath); err == nil {
			base := work.rel
			if base == "." {
				base = ""
			}
			matcher = work.matcher.Clone()
			if err := c.ignores.AddFile(matcher, gitignorePath, base); err != nil {
				slog.Debug("failed to parse gitignore",
					slog.String("path", gitignorePath),
					slog.String("error", err.Error()))
			}
		}
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		name := entry.Name()
		rel := name
		if work.rel != "." {
			rel = work.rel + "/" + name
		}

		if entry.IsDir() {
			if c.shouldSkipDir(name, rel, matcher) {
				continue
			}
			pending.Add(1)
			child := dirWork{abs: filepath.Join(work.abs, name), rel: rel, matcher: matcher}
			select {
			case dirs <- child:
			default:
				// Queue full, hand off asynchronously to avoid
				// deadlocking the worker pool
				go func() { dirs <- child }()
			}
			continue
		}

		if entry.Type()&fs.ModeSymlink != 0 && !c.cfg.FollowSymlinks {
			continue
		}

		if !c.shouldIncludeFile(name, rel, matcher) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() == 0 || info.Size() > c.cfg.MaxFileSize {
			continue
		}

		abs := filepath.Join(work.abs, name)
		if isBinaryFile(abs) {
			continue
		}

		record := &FileRecord{
			Path:    rel,
			AbsPath: abs,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		select {
		case results <- Result{File: record}:
		case <-ctx.Done():
			return
		}
	}
}

// shouldSkipDir decides whether to descend into a directory.
func (c *Crawler) shouldSkipDir(name, rel string, matcher *ignore.Matcher) bool {
	// The data directory is never indexed
	if name == config.DataDirName || name == ".git" {
		return true
	}

	if !c.cfg.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}

	for _, pattern := range c.cfg.ExcludePatterns {
		if matchPattern(pattern, name, rel) {
			return true
		}
	}

	if !c.cfg.IgnoreGitignore && matcher.Match(rel, true) {
		return true
	}

	return false
}

// shouldIncludeFile applies the name-based filters: lock files, the
// extension allow-list, exclude patterns, hidden files, and gitignore.
func (c *Crawler) shouldIncludeFile(name, rel string, matcher *ignore.Matcher) bool {
	if c.cfg.IgnoreLockFiles {
		if lockFileNames[name] || strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, "-lock") {
			return false
		}
	}

	if !c.cfg.IncludeHidden && strings.HasPrefix(name, ".") {
		return false
	}

	for _, pattern := range c.cfg.ExcludePatterns {
		if matchPattern(pattern, name, rel) {
			return false
		}
	}

	if !c.cfg.IgnoreGitignore && matcher.Match(rel, false) {
		return false
	}

	if c.wildcard {
		return true
	}

	if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
		return c.extensions[strings.ToLower(ext)]
	}

	return extensionlessNames[strings.ToLower(name)]
}

// matchPattern checks a config exclude pattern against a file or
// directory. Plain names match any path segment; glob patterns match
// the base name.
func matchPattern(pattern, name, rel string) bool {
	if strings.ContainsAny(pattern, "*?[") {
		matched, err := filepath.Match(pattern, name)
		return err == nil && matched
	}

	if name == pattern {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if part == pattern {
			return true
		}
	}
	return false
}
