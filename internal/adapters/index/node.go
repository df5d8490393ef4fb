package index

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/config"
	"go.trai.ch/rocks/internal/adapters/httputil"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
)

// NodeID is the unique identifier for the package index Graft node.
const NodeID graft.ID = "adapter.index"

func init() {
	graft.Register(graft.Node[ports.PackageIndex]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID},
		Run: func(ctx context.Context) (ports.PackageIndex, error) {
			settings, err := graft.Dep[*domain.Settings](ctx)
			if err != nil {
				return nil, err
			}

			var indexes []ports.PackageIndex
			if settings.IndexFile != "" {
				indexes = append(indexes, NewSnapshot(settings.IndexFile))
			}
			if settings.IndexURL != "" {
				indexes = append(indexes, NewHTTP(settings.IndexURL, httputil.NewClient(settings.NetworkTimeout)))
			}
			return NewChain(indexes...), nil
		},
	})
}
