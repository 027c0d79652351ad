package cmd

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sema-sh/sema/internal/output"
)

func newStatsCmd() *cobra.Command {
	var directory string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  `Show file and chunk counts, lexical document count, and on-disk sizes for the index.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveRoot([]string{directory})
			if err != nil {
				return err
			}
			return runStats(cmd, root)
		},
	}

	cmd.Flags().StringVarP(&directory, "directory", "C", ".", "Indexed root to inspect")

	return cmd
}

func runStats(cmd *cobra.Command, root string) error {
	env, err := openSearchEnv(root)
	if err != nil {
		return err
	}
	defer env.Close()

	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	stats, err := env.stores.chunks.Stats(ctx)
	if err != nil {
		return err
	}
	docCount, err := env.stores.lexical.DocCount()
	if err != nil {
		return err
	}

	out.Statusf("", "Index for %s", root)
	out.KeyValue("Files", stats.FileCount)
	out.KeyValue("Chunks", stats.ChunkCount)
	out.KeyValue("Indexed bytes", output.ByteSize(stats.SizeBytes))
	out.KeyValue("Lexical docs", docCount)
	out.KeyValue("Vectors", env.stores.vectors.Len())
	out.KeyValue("On disk", output.ByteSize(dirSize(env.stores.dataDir)))

	return nil
}

// dirSize sums file sizes under dir. Errors are treated as zero; this
// is informational output.
func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
