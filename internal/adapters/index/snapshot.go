package index

import (
	"context"
	"errors"
	"io/fs"
	"maps"
	"os"
	"slices"
	"sync"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.PackageIndex = (*Snapshot)(nil)

// SnapshotFile is the YAML structure of an index snapshot.
type SnapshotFile struct {
	Packages map[string][]VersionDTO `yaml:"packages"`
}

// Snapshot is an index read from a YAML file on first use.
type Snapshot struct {
	path string

	once sync.Once
	mem  *Memory
	err  error
}

// NewSnapshot creates an index backed by the file at path.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Query implements ports.PackageIndex. A missing file makes the index
// unavailable rather than empty.
func (s *Snapshot) Query(ctx context.Context, name string) ([]domain.IndexEntry, error) {
	s.once.Do(func() {
		s.mem, s.err = LoadSnapshot(s.path)
	})
	if s.err != nil {
		return nil, s.err
	}
	return s.mem.Query(ctx, name)
}

// LoadSnapshot reads a snapshot file into memory.
func LoadSnapshot(path string) (*Memory, error) {
	//nolint:gosec // Path is configured by the user
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, "snapshot not found"), "path", path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read index snapshot"), "path", path)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes a snapshot document.
func ParseSnapshot(data []byte) (*Memory, error) {
	var file SnapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse index snapshot")
	}

	mem := NewMemory()
	for _, name := range slices.Sorted(maps.Keys(file.Packages)) {
		if err := domain.ValidatePackageName(name); err != nil {
			return nil, err
		}
		entries, err := toEntries(name, file.Packages[name])
		if err != nil {
			return nil, err
		}
		mem.Add(entries...)
	}
	return mem, nil
}
