package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sema-sh/sema/internal/search"
	"github.com/sema-sh/sema/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	format    string // "text", "json"
	group     bool
	directory string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search the indexed tree with ranked full-text matching.

Results carry a snippet centered on the first match with query terms
highlighted. Prefix the query with ' to skip the semantic side-index
and rank purely lexically.

Examples:
  sema search "connection pool"
  sema search "retry backoff" --limit 5 --group
  sema search "'exact term" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 = configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&opts.group, "group", "g", false, "Collapse to the best result per file")
	cmd.Flags().StringVarP(&opts.directory, "directory", "C", ".", "Indexed root to search")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	root, err := resolveRoot([]string{opts.directory})
	if err != nil {
		return err
	}

	env, err := openSearchEnv(root)
	if err != nil {
		return err
	}
	defer env.Close()

	results, err := env.service.Search(ctx, query, search.Options{
		Limit:       opts.limit,
		GroupByFile: opts.group,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	slog.Info("search complete",
		slog.String("query", query),
		slog.Int("results", len(results)))

	w := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		return ui.RenderJSON(w, results)
	case "text":
		plain := noColor || !ui.IsTTY(os.Stdout)
		ui.RenderText(w, results, plain)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}
}
