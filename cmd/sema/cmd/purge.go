package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sema-sh/sema/internal/config"
	"github.com/sema-sh/sema/internal/output"
)

func newPurgeCmd() *cobra.Command {
	var (
		directory string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the index",
		Long: `Delete the .sema/ data directory for a root.

The index is a recoverable cache: nothing is lost beyond the time to
rebuild it with 'sema index'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveRoot([]string{directory})
			if err != nil {
				return err
			}
			return runPurge(cmd, root, force)
		},
	}

	cmd.Flags().StringVarP(&directory, "directory", "C", ".", "Indexed root to purge")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	return cmd
}

func runPurge(cmd *cobra.Command, root string, force bool) error {
	out := output.New(cmd.OutOrStdout())
	dataDir := config.DataDir(root)

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		out.Status("", "No index to purge.")
		return nil
	}

	if !force {
		fmt.Fprintf(cmd.OutOrStdout(), "Delete %s? [y/N] ", dataDir)
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			out.Status("", "Aborted.")
			return nil
		}
	}

	if err := os.RemoveAll(dataDir); err != nil {
		return fmt.Errorf("failed to delete %s: %w", dataDir, err)
	}
	out.Successf("Deleted %s", dataDir)
	return nil
}
