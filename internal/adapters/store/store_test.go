package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/adapters/store"
	"go.trai.ch/rocks/internal/core/domain"
)

func TestLockfileStore_SaveAndLoad(t *testing.T) {
	root := t.TempDir()
	s := store.NewLockfileStore()

	doc, err := s.Load(root)
	require.NoError(t, err)
	assert.Nil(t, doc)

	want := &domain.LockfileDocument{
		SchemaVersion: domain.LockfileSchemaVersion,
		Roots: []domain.LockedRoot{
			{Scope: domain.ScopeRuntime, Name: "lfs", Constraint: ">= 1.8", ID: "lfs@1.8.0"},
		},
		Packages: map[domain.PackageID]domain.LockedPackage{
			"lfs@1.8.0": {
				Name:      "lfs",
				Version:   "1.8.0",
				Source:    domain.IndexSource(),
				Integrity: "sha256-abc",
				Build:     domain.BuildEnvelope{Spec: &domain.DefaultSpec{}},
			},
		},
	}
	require.NoError(t, s.Save(root, want))
	assert.FileExists(t, filepath.Join(root, domain.LockfileFileName))

	got, err := s.Load(root)
	require.NoError(t, err)
	assert.Equal(t, want.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, want.Roots, got.Roots)
	require.Contains(t, got.Packages, domain.PackageID("lfs@1.8.0"))
	assert.Equal(t, "sha256-abc", got.Packages["lfs@1.8.0"].Integrity)

	// No temporary files are left behind.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLockfileStore_LoadCorrupt(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, domain.LockfileFileName), []byte("{not json"), 0o600))

	_, err := store.NewLockfileStore().Load(root)
	require.ErrorIs(t, err, domain.ErrLockfileCorrupt)
}

func TestLoaderStore_SaveAndLoad(t *testing.T) {
	root := t.TempDir()
	s := store.NewLoaderStore()

	table, err := s.Load(root)
	require.NoError(t, err)
	assert.Nil(t, table)

	want := map[string]map[string]string{
		domain.RootScope: {"lfs": "/tree/lfs@1.8.0"},
		"x@1.0.0":        {"lib": "/tree/lib@1.4.0"},
	}
	require.NoError(t, s.Save(root, want))
	assert.FileExists(t, filepath.Join(root, ".rocks", "loader.json"))

	table, err = s.Load(root)
	require.NoError(t, err)
	assert.Equal(t, want, table)
}
