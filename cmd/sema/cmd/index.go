package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sema-sh/sema/internal/config"
	"github.com/sema-sh/sema/internal/embed"
	"github.com/sema-sh/sema/internal/index"
	"github.com/sema-sh/sema/internal/output"
	"github.com/sema-sh/sema/internal/watcher"
)

func newIndexCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "index [directory]",
		Short: "Index a directory tree",
		Long: `Index a directory tree into the local chunk store and lexical index.

Reruns are incremental: files are re-chunked only when their content
hash changes, and files that disappeared are purged.

Examples:
  sema index
  sema index ~/projects/service
  sema index --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			return runIndex(cmd.Context(), cmd, root, watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and reindex on file changes")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, root string, watch bool) error {
	out := output.New(cmd.OutOrStdout())

	created, err := config.EnsureConfig(root)
	if err != nil {
		return err
	}
	if created {
		out.Statusf("", "Created %s with defaults", config.ConfigFileName)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	dataDir := config.DataDir(root)
	lock, err := index.AcquireLock(dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	st, err := openStores(root)
	if err != nil {
		return err
	}
	defer st.Close()

	embedder := embed.NewHashEmbedder()
	defer func() { _ = embedder.Close() }()

	coord, err := index.NewCoordinator(root, cfg, st.chunks, st.lexical)
	if err != nil {
		return err
	}
	coord.WithSemantic(st.vectors, embedder)

	start := time.Now()
	stats, err := coord.Run(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	st.saveVectors()
	out.IndexSummary(stats, time.Since(start))

	if !watch {
		return nil
	}
	return runWatch(ctx, out, root, cfg, coord, st)
}

// runWatch blocks, applying debounced filesystem batches as
// incremental updates until the context is cancelled.
func runWatch(ctx context.Context, out *output.Writer, root string, cfg *config.Config, coord *index.Coordinator, st *stores) error {
	w, err := watcher.New(root, cfg.Watch.DebounceDuration())
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	out.Statusf("", "Watching %s for changes (ctrl-c to stop)", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			stats, err := coord.Update(ctx, batchPaths(batch))
			if err != nil {
				out.Errorf("update failed: %v", err)
				continue
			}
			st.saveVectors()
			if changed := stats.FilesNew + stats.FilesChanged + stats.FilesDeleted; changed > 0 {
				out.Statusf("", "%s  %d files updated, %d chunks indexed",
					time.Now().Format("15:04:05"), changed, stats.ChunksIndexed)
			}
			slog.Debug("watch batch applied",
				slog.Int("events", len(batch)),
				slog.Int("indexed", stats.ChunksIndexed))
		}
	}
}

// batchPaths deduplicates event paths from one debounced batch.
func batchPaths(batch []watcher.FileEvent) []string {
	seen := make(map[string]struct{}, len(batch))
	paths := make([]string, 0, len(batch))
	for _, ev := range batch {
		if _, dup := seen[ev.Path]; dup {
			continue
		}
		seen[ev.Path] = struct{}{}
		paths = append(paths, ev.Path)
	}
	return paths
}
