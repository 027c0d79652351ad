// Package cmd provides the CLI commands for sema.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sema-sh/sema/internal/logging"
	"github.com/sema-sh/sema/internal/output"
	"github.com/sema-sh/sema/internal/profiling"
	"github.com/sema-sh/sema/internal/ui"
	"github.com/sema-sh/sema/pkg/version"
)

var (
	debugMode      bool
	noColor        bool
	loggingCleanup func()

	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()
)

// NewRootCmd creates the root command for the sema CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sema [directory]",
		Short: "Ranked full-text search over local file trees",
		Long: `Sema indexes a directory tree into a local chunk store and lexical
index, then serves ranked full-text search over it with snippets and
highlighting. A hash-based semantic side-index refines the ranking.

Run 'sema' in a project directory to index it and search interactively.
Everything lives under .sema/ in the indexed root; delete that
directory at any time to force a full reindex.`,
		Version: version.Version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), cmd, args)
		},
	}

	cmd.SetVersionTemplate("sema version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.sema/logs/")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startLoggingAndProfiling
	cmd.PersistentPostRunE = stopLoggingAndProfiling

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newPurgeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLoggingAndProfiling(_ *cobra.Command, _ []string) error {
	cleanup, err := logging.SetupDefault(debugMode)
	if err != nil {
		// Logging must never block the actual work.
		slog.Warn("failed to set up file logging", slog.String("error", err.Error()))
	} else {
		loggingCleanup = cleanup
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return err
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
				cpuCleanup = nil
			}
			return err
		}
	}

	return nil
}

func stopLoggingAndProfiling(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return err
		}
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command under the given context.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// runInteractive is the bare 'sema' flow: index if needed, then drop
// into the interactive search interface.
func runInteractive(ctx context.Context, cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	// Interactive mode needs a terminal on both ends.
	if !ui.IsTTY(os.Stdout) || ui.DetectCI() {
		return cmd.Help()
	}

	out := output.New(cmd.OutOrStdout())

	if !indexExists(root) {
		out.Statusf("", "No index found, indexing %s ...", root)
		if err := runIndex(ctx, cmd, root, false); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
	}

	env, err := openSearchEnv(root)
	if err != nil {
		return err
	}
	defer env.Close()

	return ui.Run(ctx, env.service, root, noColor)
}
