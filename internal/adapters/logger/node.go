package logger

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rocks/internal/adapters/config"
	"go.trai.ch/rocks/internal/adapters/detector"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
)

// NodeID is the unique identifier for the logger Graft node.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID},
		Run: func(ctx context.Context) (ports.Logger, error) {
			settings, err := graft.Dep[*domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			l := New()
			format := detector.ResolveFormat(detector.DetectEnvironment(), settings.LogFormat)
			l.SetJSON(format == detector.FormatJSON)
			return l, nil
		},
	})
}
