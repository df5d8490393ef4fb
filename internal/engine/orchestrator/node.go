package orchestrator

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/fetch"              //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/adapters/fs"                 //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/adapters/logger"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/adapters/shell"              //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/adapters/toolchain"          //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/adapters/tree"               //nolint:depguard // Wired in engine wiring
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/rocks/internal/engine/backend"
)

// NodeID is the unique identifier for the orchestrator Graft node.
const NodeID graft.ID = "engine.orchestrator"

func init() {
	graft.Register(graft.Node[*Orchestrator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			backend.NodeID,
			fetch.NodeID,
			tree.NodeID,
			toolchain.NodeID,
			fs.HasherNodeID,
			shell.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Orchestrator, error) {
			registry, err := graft.Dep[*backend.Registry](ctx)
			if err != nil {
				return nil, err
			}
			fetcher, err := graft.Dep[ports.Fetcher](ctx)
			if err != nil {
				return nil, err
			}
			installTree, err := graft.Dep[ports.InstallTree](ctx)
			if err != nil {
				return nil, err
			}
			detector, err := graft.Dep[ports.ToolchainDetector](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			runner, err := graft.Dep[ports.CommandRunner](ctx)
			if err != nil {
				return nil, err
			}
			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(registry, fetcher, installTree, detector, hasher, runner, telemetry, log), nil
		},
	})
}
