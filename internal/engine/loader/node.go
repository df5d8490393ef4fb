package loader

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/store" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/adapters/tree"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/core/ports"
)

// NodeID is the unique identifier for the loader Graft node.
const NodeID graft.ID = "engine.loader"

func init() {
	graft.Register(graft.Node[*Loader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{tree.NodeID, store.LoaderNodeID},
		Run: func(ctx context.Context) (*Loader, error) {
			t, err := graft.Dep[ports.InstallTree](ctx)
			if err != nil {
				return nil, err
			}
			s, err := graft.Dep[ports.LoaderStore](ctx)
			if err != nil {
				return nil, err
			}
			return New(t, s), nil
		},
	})
}
