package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/adapters/config"
	"go.trai.ch/rocks/internal/core/domain"
)

const sampleManifest = `
[package]
name = "app"
version = "0.1.0"

[dependencies]
lfs = "~> 1.8"
penlight = { version = ">= 1.5", pin = true }
argparse = { git = "https://github.com/example/argparse.git", rev = "v0.7.1" }
local = { path = "../local" }

[test_dependencies]
busted = "2"

[build_dependencies]
tree-sitter-cli = "*"

[build.lfs]
type = "native-module"
external = ["zlib"]
`

func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestManifestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.ManifestFileName, sampleManifest)

	m, err := config.NewManifestLoader().Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "app", m.Name)
	assert.Equal(t, "0.1.0", m.Version)
	assert.Equal(t, []string{"argparse", "lfs", "local", "penlight"}, m.DirectNames(domain.ScopeRuntime))
	assert.Equal(t, []string{"busted"}, m.DirectNames(domain.ScopeTest))
	assert.Equal(t, []string{"tree-sitter-cli"}, m.DirectNames(domain.ScopeBuild))

	byName := map[string]domain.PackageSpec{}
	for _, s := range m.Dependencies {
		byName[s.Name] = s
	}

	assert.True(t, byName["penlight"].Pin)
	assert.True(t, byName["penlight"].Constraint.Satisfies(domain.MustParseVersion("1.14.0")))
	assert.False(t, byName["penlight"].Constraint.Satisfies(domain.MustParseVersion("1.4.0")))

	require.NotNil(t, byName["argparse"].Source)
	assert.Equal(t, domain.Source{
		Kind: domain.SourceGit,
		URL:  "https://github.com/example/argparse.git",
		Ref:  "v0.7.1",
	}, *byName["argparse"].Source)
	assert.True(t, byName["argparse"].Constraint.IsAny())

	require.NotNil(t, byName["local"].Source)
	assert.Equal(t, domain.SourcePath, byName["local"].Source.Kind)

	require.Contains(t, m.Build, "lfs")
	native, ok := m.Build["lfs"].(*domain.NativeModuleSpec)
	require.True(t, ok)
	assert.Equal(t, []string{"zlib"}, native.External)
}

func TestManifestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "syntax",
			content: "[dependencies\n",
			wantErr: domain.ErrManifest,
		},
		{
			name:    "bad constraint",
			content: "[dependencies]\nlfs = \">= nope\"\n",
			wantErr: domain.ErrManifest,
		},
		{
			name:    "two sources",
			content: "[dependencies]\nx = { git = \"a\", path = \"b\" }\n",
			wantErr: domain.ErrManifest,
		},
		{
			name:    "unknown field",
			content: "[dependencies]\nx = { branch = \"main\" }\n",
			wantErr: domain.ErrManifest,
		},
		{
			name:    "unknown build kind",
			content: "[build.x]\ntype = \"cmake\"\n",
			wantErr: domain.ErrManifest,
		},
		{
			name:    "invalid name",
			content: "[dependencies]\n\"bad name\" = \"1\"\n",
			wantErr: domain.ErrManifest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			createFile(t, dir, domain.ManifestFileName, tt.content)

			_, err := config.NewManifestLoader().Load(dir)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestManifestLoader_Load_Missing(t *testing.T) {
	_, err := config.NewManifestLoader().Load(t.TempDir())
	require.ErrorIs(t, err, domain.ErrManifestNotFound)
}

func TestManifestLoader_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.ManifestFileName, sampleManifest)

	loader := config.NewManifestLoader()
	m, err := loader.Load(dir)
	require.NoError(t, err)

	spec, err := domain.ParsePackageSpec("inspect >= 3.1")
	require.NoError(t, err)
	m.Upsert(domain.ScopeRuntime, spec)
	require.True(t, m.Remove(domain.ScopeTest, "busted"))

	require.NoError(t, loader.Save(dir, m))

	again, err := loader.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"argparse", "inspect", "lfs", "local", "penlight"}, again.DirectNames(domain.ScopeRuntime))
	assert.Empty(t, again.DirectNames(domain.ScopeTest))
	assert.Equal(t, m.Name, again.Name)
	assert.True(t, domain.SameBuildSpec(m.Build["lfs"], again.Build["lfs"]))

	for _, s := range again.Dependencies {
		if s.Name == "penlight" {
			assert.True(t, s.Pin)
		}
		if s.Name == "argparse" {
			require.NotNil(t, s.Source)
			assert.Equal(t, "v0.7.1", s.Source.Ref)
		}
	}
}
