// Package store persists the lockfile and the runtime loader table.
package store

import (
	"encoding/json"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/rocks/internal/adapters/fs"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.LockfileStore = (*LockfileStore)(nil)
	_ ports.LoaderStore   = (*LoaderStore)(nil)
)

// LockfileStore implements ports.LockfileStore with rocks.lock next to the
// manifest.
type LockfileStore struct{}

// NewLockfileStore creates a new LockfileStore.
func NewLockfileStore() *LockfileStore {
	return &LockfileStore{}
}

// Load reads the lockfile in root. Returns nil, nil if there is none.
func (s *LockfileStore) Load(root string) (*domain.LockfileDocument, error) {
	data, err := readOptional(filepath.Join(root, domain.LockfileFileName))
	if err != nil || data == nil {
		return nil, err
	}
	return domain.DecodeLockfile(data)
}

// Save atomically replaces the lockfile in root.
func (s *LockfileStore) Save(root string, doc *domain.LockfileDocument) error {
	data, err := domain.EncodeLockfile(doc)
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(filepath.Join(root, domain.LockfileFileName), data)
}

// LoaderStore implements ports.LoaderStore with .rocks/loader.json.
type LoaderStore struct{}

// NewLoaderStore creates a new LoaderStore.
func NewLoaderStore() *LoaderStore {
	return &LoaderStore{}
}

// Save writes the table to the state directory in root.
func (s *LoaderStore) Save(root string, table map[string]map[string]string) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal loader table")
	}
	return fs.WriteFileAtomic(domain.LoaderPath(root), append(data, '\n'))
}

// Load reads the table. Returns nil, nil if there is none.
func (s *LoaderStore) Load(root string) (map[string]map[string]string, error) {
	path := domain.LoaderPath(root)
	data, err := readOptional(path)
	if err != nil || data == nil {
		return nil, err
	}

	var table map[string]map[string]string
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to unmarshal loader table"), "path", path)
	}
	return table, nil
}

func readOptional(path string) ([]byte, error) {
	//nolint:gosec // Path is constructed from the project root
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read file"), "path", path)
	}
	return data, nil
}
