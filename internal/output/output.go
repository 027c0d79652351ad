// Package output provides plain CLI output formatting for the
// non-interactive commands.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sema-sh/sema/internal/index"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out io.Writer
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✓", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("✗", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// IndexSummary prints the outcome of an indexing run.
func (w *Writer) IndexSummary(stats *index.Stats, elapsed time.Duration) {
	w.Successf("Indexed %d files (%d chunks) in %s",
		stats.FilesSeen, stats.ChunksIndexed, elapsed.Round(10*time.Millisecond))

	var parts []string
	if stats.FilesNew > 0 {
		parts = append(parts, fmt.Sprintf("%d new", stats.FilesNew))
	}
	if stats.FilesChanged > 0 {
		parts = append(parts, fmt.Sprintf("%d changed", stats.FilesChanged))
	}
	if stats.FilesUnchanged > 0 {
		parts = append(parts, fmt.Sprintf("%d unchanged", stats.FilesUnchanged))
	}
	if stats.FilesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", stats.FilesDeleted))
	}
	if len(parts) > 0 {
		w.Status("", strings.Join(parts, ", "))
	}

	if stats.Errors > 0 {
		w.Warningf("%d files skipped due to errors", stats.Errors)
	}
}

// KeyValue prints an aligned label/value pair for stats listings.
func (w *Writer) KeyValue(label string, value any) {
	_, _ = fmt.Fprintf(w.out, "  %-16s %v\n", label+":", value)
}

// ByteSize formats a byte count in human units.
func ByteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
