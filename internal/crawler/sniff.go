package crawler

import (
	"fmt"
	"os"

	"github.com/blevesearch/mmap-go"

	semaerrors "github.com/sema-sh/sema/internal/errors"
)

// sniffSize is how many leading bytes are inspected for binary content.
const sniffSize = 128

// isBinaryFile checks whether a file looks binary by inspecting its
// leading bytes through a read-only memory map: NUL or control bytes
// outside tab/LF/CR mean binary. Unreadable files are treated as text;
// the read during indexing reports the real error.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		buf := make([]byte, sniffSize)
		n, readErr := f.Read(buf)
		if readErr != nil || n == 0 {
			return false
		}
		return hasBinaryBytes(buf[:n])
	}
	defer func() { _ = m.Unmap() }()

	window := []byte(m)
	if len(window) > sniffSize {
		window = window[:sniffSize]
	}
	return hasBinaryBytes(window)
}

func hasBinaryBytes(window []byte) bool {
	for _, b := range window {
		if b == 0 {
			return true
		}
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			return true
		}
	}
	return false
}

// ReadFile loads a file's content, enforcing the size limit. Files are
// memory-mapped read-only and copied out in one allocation, which
// avoids double-buffering on the large-file path.
func ReadFile(path string, maxSize int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", semaerrors.New(semaerrors.ErrCodeFilePermission,
				fmt.Sprintf("permission denied: %s", path), err)
		}
		return "", semaerrors.New(semaerrors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to open file: %s", path), err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > maxSize {
		return "", semaerrors.New(semaerrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file exceeds size limit: %d bytes", info.Size()), nil).
			WithDetail("path", path).
			WithDetail("max_bytes", fmt.Sprintf("%d", maxSize))
	}
	if info.Size() == 0 {
		return "", nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		// Fall back to a plain read; some filesystems refuse mmap
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return "", fmt.Errorf("failed to read file: %w", readErr)
		}
		return string(data), nil
	}
	defer func() { _ = m.Unmap() }()

	return string(m), nil
}
