package config

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/spf13/viper"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
)

const (
	// SettingsNodeID is the unique identifier for the settings Graft node.
	SettingsNodeID graft.ID = "adapter.config.settings"
	// ManifestNodeID is the unique identifier for the manifest loader Graft node.
	ManifestNodeID graft.ID = "adapter.config.manifest"
)

func init() {
	graft.Register(graft.Node[*domain.Settings]{
		ID:        SettingsNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*domain.Settings, error) {
			return LoadSettings(viper.GetViper())
		},
	})

	graft.Register(graft.Node[ports.ManifestLoader]{
		ID:        ManifestNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ManifestLoader, error) {
			return NewManifestLoader(), nil
		},
	})
}
