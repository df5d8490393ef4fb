package backend

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/config" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/adapters/fs"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
)

// NodeID is the unique identifier for the backend registry Graft node.
const NodeID graft.ID = "engine.backend"

func init() {
	graft.Register(graft.Node[*Registry]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID, fs.ResolverNodeID},
		Run: func(ctx context.Context) (*Registry, error) {
			settings, err := graft.Dep[*domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			resolver, err := graft.Dep[ports.InputResolver](ctx)
			if err != nil {
				return nil, err
			}
			return NewStandardRegistry(resolver, settings.CompatTool), nil
		},
	})
}
