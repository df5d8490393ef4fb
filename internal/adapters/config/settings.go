// Package config loads the project manifest and the user settings.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/zerr"
)

// Settings keys, shared by the settings file, ROCKS_* environment variables
// and command line flags.
const (
	KeyRoot           = "root"
	KeyParallelism    = "parallelism"
	KeyBuildTimeout   = "build_timeout"
	KeyNetworkTimeout = "network_timeout"
	KeyCancel         = "cancel"
	KeyIndex          = "index"
	KeyIndexFile      = "index_file"
	KeyCompatTool     = "compat_tool"
	KeyLogFormat      = "log_format"
)

const (
	envPrefix             = "ROCKS"
	defaultNetworkTimeout = 30 * time.Second
	defaultCompatTool     = "luarocks"
)

// SetDefaults registers the built-in value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyParallelism, 0)
	v.SetDefault(KeyBuildTimeout, time.Duration(0))
	v.SetDefault(KeyNetworkTimeout, defaultNetworkTimeout)
	v.SetDefault(KeyCancel, string(domain.CancelWait))
	v.SetDefault(KeyIndex, "")
	v.SetDefault(KeyIndexFile, filepath.Join(domain.StateDirName, domain.IndexSnapshotFileName))
	v.SetDefault(KeyCompatTool, defaultCompatTool)
	v.SetDefault(KeyLogFormat, "auto")
}

// LoadSettings resolves the project root and merges, from lowest to highest
// precedence, the defaults, .rocks/config.yaml, ROCKS_* variables and any
// flags already bound to v.
func LoadSettings(v *viper.Viper) (*domain.Settings, error) {
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root, err := resolveRoot(v.GetString(KeyRoot))
	if err != nil {
		return nil, err
	}

	v.SetConfigFile(filepath.Join(domain.StateDir(root), domain.SettingsFileName))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(err, "failed to read settings"), "path", v.ConfigFileUsed())
	}

	cancel, err := domain.ParseCancelPolicy(v.GetString(KeyCancel))
	if err != nil {
		return nil, err
	}

	parallelism := v.GetInt(KeyParallelism)
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	indexFile := v.GetString(KeyIndexFile)
	if indexFile != "" && !filepath.IsAbs(indexFile) {
		indexFile = filepath.Join(root, indexFile)
	}

	return &domain.Settings{
		Root:           root,
		Parallelism:    parallelism,
		BuildTimeout:   v.GetDuration(KeyBuildTimeout),
		Cancel:         cancel,
		IndexURL:       v.GetString(KeyIndex),
		IndexFile:      indexFile,
		CompatTool:     v.GetString(KeyCompatTool),
		LogFormat:      v.GetString(KeyLogFormat),
		NetworkTimeout: v.GetDuration(KeyNetworkTimeout),
	}, nil
}

// resolveRoot returns the directory holding the nearest manifest at or above
// start. Without a manifest, start itself is the root.
func resolveRoot(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", zerr.Wrap(err, "failed to determine working directory")
		}
		start = wd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to resolve project root"), "path", start)
	}

	if found, err := FindRoot(abs); err == nil {
		return found, nil
	}
	return abs, nil
}

// FindRoot walks up from dir to the first directory containing rocks.toml.
func FindRoot(dir string) (string, error) {
	current := dir
	for {
		if _, err := os.Stat(filepath.Join(current, domain.ManifestFileName)); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", zerr.With(zerr.Wrap(domain.ErrManifestNotFound, dir), "cwd", dir)
}
