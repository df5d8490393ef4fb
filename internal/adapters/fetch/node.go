package fetch

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/config"
	"go.trai.ch/rocks/internal/adapters/fs"
	"go.trai.ch/rocks/internal/adapters/httputil"
	"go.trai.ch/rocks/internal/adapters/shell"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
)

// NodeID is the unique identifier for the source fetcher Graft node.
const NodeID graft.ID = "adapter.fetch"

func init() {
	graft.Register(graft.Node[ports.Fetcher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID, fs.WalkerNodeID, fs.HasherNodeID, shell.NodeID},
		Run: func(ctx context.Context) (ports.Fetcher, error) {
			settings, err := graft.Dep[*domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			walker, err := graft.Dep[*fs.Walker](ctx)
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
			return New(
				settings.Root,
				domain.ArtifactCacheDir(settings.Root),
				walker,
				hasher,
				runner,
				httputil.NewClient(settings.NetworkTimeout),
			), nil
		},
	})
}
