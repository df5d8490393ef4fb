package progrock

import (
	"sync"

	"github.com/vito/progrock"
	"go.trai.ch/rocks/internal/core/ports"
)

var _ progrock.Writer = (*StatusLog)(nil)

// StatusLog is a progrock.Writer that reports each finished vertex once to
// a logger. Vertex output is not forwarded.
type StatusLog struct {
	log ports.Logger

	mu   sync.Mutex
	done map[string]bool
}

// NewStatusLog creates a StatusLog reporting to log.
func NewStatusLog(log ports.Logger) *StatusLog {
	return &StatusLog{log: log, done: make(map[string]bool)}
}

// WriteStatus logs the vertices that completed in update.
func (s *StatusLog) WriteStatus(update *progrock.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range update.Vertexes {
		if v.Completed == nil || s.done[v.Id] {
			continue
		}
		s.done[v.Id] = true
		switch {
		case v.Error != nil:
			s.log.Warn(v.Name + " failed: " + *v.Error)
		case v.Cached:
			s.log.Info(v.Name + " up to date")
		default:
			s.log.Info(v.Name + " done")
		}
	}
	return nil
}

// Close does nothing.
func (s *StatusLog) Close() error {
	return nil
}
