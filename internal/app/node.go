package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/config" //nolint:depguard // Wired in app layer
	"go.trai.ch/rocks/internal/adapters/fetch"  //nolint:depguard // Wired in app layer
	"go.trai.ch/rocks/internal/adapters/flock"  //nolint:depguard // Wired in app layer
	"go.trai.ch/rocks/internal/adapters/logger" //nolint:depguard // Wired in app layer
	"go.trai.ch/rocks/internal/adapters/store"  //nolint:depguard // Wired in app layer
	"go.trai.ch/rocks/internal/adapters/tree"   //nolint:depguard // Wired in app layer
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/rocks/internal/engine/loader"
	"go.trai.ch/rocks/internal/engine/lockfile"
	"go.trai.ch/rocks/internal/engine/orchestrator"
	"go.trai.ch/rocks/internal/engine/resolver"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.SettingsNodeID,
			config.ManifestNodeID,
			store.LockfileNodeID,
			flock.NodeID,
			fetch.NodeID,
			tree.PackerNodeID,
			resolver.NodeID,
			lockfile.NodeID,
			orchestrator.NodeID,
			loader.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.SettingsNodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			settings, err := graft.Dep[*domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			return NewComponents(a, log, settings), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	settings, err := graft.Dep[*domain.Settings](ctx)
	if err != nil {
		return nil, err
	}
	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}
	lockfiles, err := graft.Dep[ports.LockfileStore](ctx)
	if err != nil {
		return nil, err
	}
	locker, err := graft.Dep[ports.Locker](ctx)
	if err != nil {
		return nil, err
	}
	fetcher, err := graft.Dep[ports.Fetcher](ctx)
	if err != nil {
		return nil, err
	}
	packer, err := graft.Dep[ports.Packer](ctx)
	if err != nil {
		return nil, err
	}
	res, err := graft.Dep[*resolver.Resolver](ctx)
	if err != nil {
		return nil, err
	}
	lock, err := graft.Dep[*lockfile.Manager](ctx)
	if err != nil {
		return nil, err
	}
	orch, err := graft.Dep[*orchestrator.Orchestrator](ctx)
	if err != nil {
		return nil, err
	}
	ld, err := graft.Dep[*loader.Loader](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(settings, manifests, lockfiles, locker, fetcher, packer, res, lock, orch, ld, log), nil
}
