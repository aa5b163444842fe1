package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteLock serializes writers of one store. ID allocation scans existing
// records, so two creators for the same prefix must not interleave.
type WriteLock interface {
	Lock() (unlock func() error, err error)
}

type fileWriteLock struct {
	path string
}

// NewFileWriteLock returns a WriteLock backed by an advisory lock on path.
func NewFileWriteLock(path string) WriteLock {
	return &fileWriteLock{path: path}
}

// Lock acquires an exclusive lock, blocking until it is available.
func (l *fileWriteLock) Lock() (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(l.path)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring store lock: %w", err)
	}
	return fl.Unlock, nil
}

// noopLock is used with in-memory filesystems where there is no other process.
type noopLock struct{}

// NewNoopWriteLock returns a WriteLock that never blocks.
func NewNoopWriteLock() WriteLock { return noopLock{} }

func (noopLock) Lock() (func() error, error) {
	return func() error { return nil }, nil
}
