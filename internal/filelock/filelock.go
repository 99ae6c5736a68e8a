// Package filelock provides a blocking, cross-process exclusive lock on a
// file. Locks are advisory and are released when the holder exits.
package filelock

import (
	"fmt"
	"os"
)

// Lock is a held exclusive lock.
type Lock struct {
	f *os.File
}

// Acquire opens path, creating it if needed, and blocks until an exclusive
// lock on it is held.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Release unlocks and closes the lock file. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	unlockErr := unlockFile(f)
	closeErr := f.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", f.Name(), unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close lock file %s: %w", f.Name(), closeErr)
	}
	return nil
}

// With runs fn while holding the lock on path. The lock is released on every
// return path, including a panic in fn.
func With(path string, fn func() error) (err error) {
	l, err := Acquire(path)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := l.Release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn()
}
