package config_test

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/adapters/config"
	"go.trai.ch/rocks/internal/core/domain"
)

func TestLoadSettings_Defaults(t *testing.T) {
	dir := t.TempDir()
	v := viper.New()
	v.Set(config.KeyRoot, dir)

	s, err := config.LoadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, dir, s.Root)
	assert.Equal(t, runtime.NumCPU(), s.Parallelism)
	assert.Equal(t, domain.CancelWait, s.Cancel)
	assert.Zero(t, s.BuildTimeout)
	assert.Equal(t, 30*time.Second, s.NetworkTimeout)
	assert.Equal(t, "luarocks", s.CompatTool)
	assert.Equal(t, filepath.Join(dir, ".rocks", "index.yaml"), s.IndexFile)
}

func TestLoadSettings_Precedence(t *testing.T) {
	dir := t.TempDir()
	createFile(t, filepath.Join(dir, ".rocks"), "config.yaml", `
parallelism: 3
build_timeout: 2m
cancel: terminate
compat_tool: luarocks-5.4
index: https://file.example.com
`)
	t.Setenv("ROCKS_PARALLELISM", "7")

	v := viper.New()
	v.Set(config.KeyRoot, dir)

	s, err := config.LoadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, 7, s.Parallelism, "environment wins over the file")
	assert.Equal(t, 2*time.Minute, s.BuildTimeout)
	assert.Equal(t, domain.CancelTerminate, s.Cancel)
	assert.Equal(t, "luarocks-5.4", s.CompatTool)
	assert.Equal(t, "https://file.example.com", s.IndexURL)
}

func TestLoadSettings_RootDiscovery(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.ManifestFileName, "[package]\nname = \"app\"\n")
	nested := filepath.Join(dir, "src", "app")
	createFile(t, nested, "init.lua", "")

	v := viper.New()
	v.Set(config.KeyRoot, nested)

	s, err := config.LoadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Root)
}

func TestLoadSettings_InvalidCancel(t *testing.T) {
	v := viper.New()
	v.Set(config.KeyRoot, t.TempDir())
	v.Set(config.KeyCancel, "abandon")

	_, err := config.LoadSettings(v)
	require.Error(t, err)
}

func TestFindRoot_NotFound(t *testing.T) {
	_, err := config.FindRoot(t.TempDir())
	require.ErrorIs(t, err, domain.ErrManifestNotFound)
}
