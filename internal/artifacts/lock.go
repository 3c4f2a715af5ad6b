package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is held inside a run directory while the run writes to it.
const LockFileName = ".slyce.lock"

// ErrRunLocked is returned when another process holds a run directory.
var ErrRunLocked = errors.New("run directory is locked by another process")

// LockRunDir takes an exclusive, non-blocking lock on dir. Callers must
// Unlock the returned lock when they are done writing.
func LockRunDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure run directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrRunLocked)
	}
	return lock, nil
}

// RunDirLocked reports whether another process currently holds dir.
func RunDirLocked(dir string) (bool, error) {
	path := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe run lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}
