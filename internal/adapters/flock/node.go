package flock

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/core/ports"
)

// NodeID is the unique identifier for the project lock Graft node.
const NodeID graft.ID = "adapter.flock"

func init() {
	graft.Register(graft.Node[ports.Locker]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Locker, error) {
			return New(), nil
		},
	})
}
