package store

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/core/ports"
)

const (
	// LockfileNodeID is the unique identifier for the lockfile store Graft node.
	LockfileNodeID graft.ID = "adapter.store.lockfile"
	// LoaderNodeID is the unique identifier for the loader table store Graft node.
	LoaderNodeID graft.ID = "adapter.store.loader"
)

func init() {
	graft.Register(graft.Node[ports.LockfileStore]{
		ID:        LockfileNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.LockfileStore, error) {
			return NewLockfileStore(), nil
		},
	})

	graft.Register(graft.Node[ports.LoaderStore]{
		ID:        LoaderNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.LoaderStore, error) {
			return NewLoaderStore(), nil
		},
	})
}
