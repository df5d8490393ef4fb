// Package flock implements the advisory project lock.
package flock

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Locker = (*Locker)(nil)

// Locker implements ports.Locker with a lock file in the state directory.
// The file records which run holds it so contention can name the holder.
type Locker struct{}

// New creates a new Locker.
func New() *Locker {
	return &Locker{}
}

// TryLock takes the lock of the project in root without waiting.
func (l *Locker) TryLock(root string) (ports.Unlock, error) {
	dir := domain.StateDir(root)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create state directory"), "path", dir)
	}
	path := filepath.Join(dir, domain.LockFileName)

	//nolint:gosec // Path is constructed from the project root
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, domain.FilePerm)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open lock file"), "path", path)
	}

	held, err := tryLock(f)
	if err != nil {
		_ = f.Close()
		return nil, zerr.With(zerr.Wrap(err, "failed to lock"), "path", path)
	}
	if !held {
		holder := readHolder(f)
		_ = f.Close()
		return nil, &domain.BusyError{Path: path, Holder: holder}
	}

	if err := writeHolder(f); err != nil {
		_ = unlock(f)
		_ = f.Close()
		return nil, zerr.With(err, "path", path)
	}

	return func() error {
		_ = f.Truncate(0)
		if err := unlock(f); err != nil {
			_ = f.Close()
			return zerr.With(zerr.Wrap(err, "failed to unlock"), "path", path)
		}
		return f.Close()
	}, nil
}

func writeHolder(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return zerr.Wrap(err, "failed to record lock holder")
	}
	record := fmt.Sprintf("pid=%d run=%s\n", os.Getpid(), uuid.NewString())
	if _, err := f.WriteAt([]byte(record), 0); err != nil {
		return zerr.Wrap(err, "failed to record lock holder")
	}
	return nil
}

func readHolder(f *os.File) string {
	data, err := io.ReadAll(io.NewSectionReader(f, 0, 1024))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
