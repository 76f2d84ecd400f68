// Package filelock coordinates file access between this process and the
// external agent tools it spawns. Both sides may touch the progress log and
// the task file, so mutations go through flock-guarded atomic replaces or
// appends.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock wraps an flock advisory lock on a path.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// New creates a lock handle for the given path. The lock file is created
// on first acquisition.
func New(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Lock blocks until an exclusive lock is held.
func (l *FileLock) Lock() error {
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	return nil
}

// TryLock attempts an exclusive lock without blocking. It returns false
// when another process holds the lock.
func (l *FileLock) TryLock() (bool, error) {
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", l.path, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// AtomicWrite replaces the file at path via a temp file and rename, so a
// reader never observes a partial write. Parent directories are created as
// needed.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// The temp file must live in the target directory so the rename stays
	// on one filesystem and remains atomic.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := true
	defer func() {
		if cleanup {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	cleanup = false
	return nil
}

// LockAndWrite performs AtomicWrite while holding the path's companion
// lock. The lock file is the target path plus a ".lock" suffix, so lockers
// of the same target always contend on the same file.
func LockAndWrite(path string, data []byte) error {
	lock := New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	return AtomicWrite(path, data)
}

// LockAndAppend appends data to the file while holding its companion lock,
// creating the file if needed. Appends do not need the temp-file dance;
// the lock alone keeps concurrent appenders from interleaving.
func LockAndAppend(path string, data []byte) error {
	lock := New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}
