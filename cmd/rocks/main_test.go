package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/core/domain"
)

const emptyManifest = `[package]
name = "app"
version = "0.1.0"
`

func TestRun(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	tests := []struct {
		name         string
		setup        func(t *testing.T, dir string)
		args         []string
		expectedExit int
		check        func(t *testing.T, dir string)
	}{
		{
			name:         "Version needs no project",
			args:         []string{"rocks", "version"},
			expectedExit: 0,
		},
		{
			name: "Lock writes a lockfile",
			setup: func(t *testing.T, dir string) {
				t.Helper()
				writeManifest(t, dir)
			},
			args:         []string{"rocks", "lock"},
			expectedExit: 0,
			check: func(t *testing.T, dir string) {
				t.Helper()
				assert.FileExists(t, filepath.Join(dir, domain.LockfileFileName))
			},
		},
		{
			name: "Build without a lockfile fails",
			setup: func(t *testing.T, dir string) {
				t.Helper()
				writeManifest(t, dir)
			},
			args:         []string{"rocks", "build"},
			expectedExit: 1,
		},
		{
			name:         "Unknown command fails",
			args:         []string{"rocks", "frobnicate"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.setup != nil {
				tt.setup(t, tmpDir)
			}

			os.Args = slices.Concat(tt.args, []string{"--root", tmpDir, "--log-format", "json"})
			exitCode := run()
			assert.Equal(t, tt.expectedExit, exitCode)

			if tt.check != nil {
				tt.check(t, tmpDir)
			}
		})
	}
}

func TestRun_StateDirIsAFile(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	tmpDir := t.TempDir()
	writeManifest(t, tmpDir)

	// Create .rocks as a file (not a directory) so the project lock cannot be taken
	err := os.WriteFile(filepath.Join(tmpDir, domain.StateDirName), []byte("not a directory"), 0o600)
	require.NoError(t, err)

	os.Args = []string{"rocks", "install", "--root", tmpDir}
	assert.Equal(t, 1, run())
}

func writeManifest(t *testing.T, dir string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, domain.ManifestFileName), []byte(emptyManifest), 0o600)
	require.NoError(t, err)
}
