package tree

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/config"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
)

const (
	// NodeID is the unique identifier for the install tree Graft node.
	NodeID graft.ID = "adapter.tree"
	// PackerNodeID is the unique identifier for the rock packer Graft node.
	PackerNodeID graft.ID = "adapter.tree.packer"
)

func init() {
	graft.Register(graft.Node[ports.InstallTree]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID},
		Run: func(ctx context.Context) (ports.InstallTree, error) {
			settings, err := graft.Dep[*domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			return New(domain.TreeDir(settings.Root)), nil
		},
	})

	graft.Register(graft.Node[ports.Packer]{
		ID:        PackerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID},
		Run: func(ctx context.Context) (ports.Packer, error) {
			settings, err := graft.Dep[*domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			return New(domain.TreeDir(settings.Root)), nil
		},
	})
}
