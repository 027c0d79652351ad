package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	semaerrors "github.com/sema-sh/sema/internal/errors"
)

// lockFileName is the advisory lock inside the data directory. It
// serializes index writers; concurrent runs against the same tree
// would interleave batches.
const lockFileName = "sema.lock"

// Lock is an exclusive advisory lock on a data directory.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the writer lock for the data directory without
// blocking. A held lock yields a retryable error.
func AcquireLock(dataDir string) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, semaerrors.New(semaerrors.ErrCodeIndexLocked,
			fmt.Sprintf("failed to acquire index lock: %s", err), err)
	}
	if !locked {
		return nil, semaerrors.New(semaerrors.ErrCodeIndexLocked,
			"another indexing run holds the lock", nil).
			WithSuggestion("wait for the other sema process to finish, or remove a stale " + lockFileName)
	}

	return &Lock{fl: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
