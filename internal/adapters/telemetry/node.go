package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/core/ports"
)

// NoopNodeID is the unique identifier for the no-op telemetry Graft node.
const NoopNodeID graft.ID = "adapter.telemetry.noop"

func init() {
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NoopNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Telemetry, error) {
			return NewNoop(), nil
		},
	})
}
