package lockfile

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the lockfile manager Graft node.
const NodeID graft.ID = "engine.lockfile"

func init() {
	graft.Register(graft.Node[*Manager]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Manager, error) {
			return New(), nil
		},
	})
}
