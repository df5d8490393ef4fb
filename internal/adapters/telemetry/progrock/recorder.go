// Package progrock records package builds on a progrock tape.
package progrock

import (
	"context"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/rocks/internal/core/ports"
)

var _ ports.Telemetry = (*Recorder)(nil)

// Recorder implements ports.Telemetry with one progrock vertex per unit of
// work. Vertex digests derive from the unit's name, so inputs given by name
// link to the vertices that built them.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a new Recorder writing to a fresh tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Record starts recording a new vertex.
func (r *Recorder) Record(ctx context.Context, name string, opts ...ports.VertexOption) (context.Context, ports.Vertex) {
	cfg := &ports.VertexConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var vopts []progrock.VertexOpt
	if len(cfg.Inputs) > 0 {
		inputs := make([]digest.Digest, len(cfg.Inputs))
		for i, in := range cfg.Inputs {
			inputs[i] = vertexDigest(in)
		}
		vopts = append(vopts, progrock.WithInputs(inputs...))
	}

	v := r.rec.Vertex(vertexDigest(name), name, vopts...)
	vertex := &Vertex{vertex: v}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	return r.w.Close()
}

func vertexDigest(name string) digest.Digest {
	return digest.FromString(name)
}
