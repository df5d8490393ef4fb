// Package backend holds the build backends, one per build kind, and the
// registry that selects them.
package backend

import (
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

// Registry maps build kinds to backends.
type Registry struct {
	backends map[domain.BuildKind]ports.Backend
}

// NewRegistry creates a registry holding the given backends. A later backend
// for the same kind replaces an earlier one.
func NewRegistry(backends ...ports.Backend) *Registry {
	r := &Registry{backends: make(map[domain.BuildKind]ports.Backend, len(backends))}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// NewStandardRegistry returns a registry with every built-in backend.
// compatTool names the legacy tool the external-compat backend delegates to.
func NewStandardRegistry(resolver ports.InputResolver, compatTool string) *Registry {
	lua := NewDefault(resolver)
	return NewRegistry(
		lua,
		NewNativeModule(lua),
		NewParserGrammar(resolver),
		NewExternalCompat(resolver, compatTool),
		NewCustomScript(),
	)
}

// Register adds b under its kind.
func (r *Registry) Register(b ports.Backend) {
	r.backends[b.Kind()] = b
}

// Lookup returns the backend for kind.
func (r *Registry) Lookup(kind domain.BuildKind) (ports.Backend, error) {
	b, ok := r.backends[kind]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownBackend, string(kind)), "kind", string(kind))
	}
	return b, nil
}

// For returns the backend for spec.
func (r *Registry) For(spec domain.BuildSpec) (ports.Backend, error) {
	if spec == nil {
		return r.Lookup(domain.BuildDefault)
	}
	return r.Lookup(spec.Kind())
}

// Kinds returns the registered kinds in a stable order.
func (r *Registry) Kinds() []domain.BuildKind {
	kinds := make([]domain.BuildKind, 0, len(r.backends))
	for k := range r.backends {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
