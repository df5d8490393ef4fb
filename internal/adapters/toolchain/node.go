package toolchain

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/shell"
	"go.trai.ch/rocks/internal/core/ports"
)

// NodeID is the unique identifier for the toolchain detector Graft node.
const NodeID graft.ID = "adapter.toolchain"

func init() {
	graft.Register(graft.Node[ports.ToolchainDetector]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ToolchainDetector, error) {
			// Probe output is parsed, not shown, so the runner has no logger.
			return New(shell.NewExecutor(nil)), nil
		},
	})
}
