// Package lockfile converts between resolved graphs and their durable
// lockfile form and decides how much of a lock can be reused.
package lockfile

import (
	"maps"
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/zerr"
)

// Manager reads, writes and reconciles lockfile documents.
type Manager struct{}

// New creates a new Manager.
func New() *Manager {
	return &Manager{}
}

// WriteOption configures Write.
type WriteOption func(*domain.LockfileDocument)

// WithBuildOverrides records the manifest's per-package build overrides so a
// later Reconcile can tell when they change.
func WithBuildOverrides(overrides map[string]domain.BuildSpec) WriteOption {
	return func(doc *domain.LockfileDocument) {
		if len(overrides) == 0 {
			return
		}
		doc.BuildOverrides = make(map[string]domain.BuildEnvelope, len(overrides))
		for name, spec := range overrides {
			doc.BuildOverrides[name] = domain.BuildEnvelope{Spec: spec}
		}
	}
}

// Write captures graph as a lockfile document.
func (m *Manager) Write(graph *domain.Graph, opts ...WriteOption) (*domain.LockfileDocument, error) {
	if graph == nil {
		return nil, zerr.New("cannot lock an empty resolution")
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	doc := &domain.LockfileDocument{
		SchemaVersion: domain.LockfileSchemaVersion,
		Roots:         make([]domain.LockedRoot, 0, len(graph.Roots())),
		Packages:      make(map[domain.PackageID]domain.LockedPackage, graph.Len()),
	}
	for _, r := range graph.Roots() {
		doc.Roots = append(doc.Roots, domain.LockedRoot{
			Scope:      r.Scope,
			Name:       r.Name,
			Constraint: r.Constraint.String(),
			Source:     r.Source,
			Pinned:     r.Pinned,
			ID:         r.ID,
		})
	}
	for _, node := range graph.Nodes() {
		if node.Integrity == "" {
			return nil, zerr.With(zerr.New("package has no integrity hash"), "package", node.ID.String())
		}
		locked := domain.LockedPackage{
			Name:       node.Name.String(),
			Version:    node.Version.String(),
			Source:     node.Source,
			Artifact:   node.Artifact,
			Integrity:  node.Integrity,
			Build:      domain.BuildEnvelope{Spec: node.BuildSpecOrDefault()},
			Pinned:     node.Pinned,
			Entrypoint: node.Entrypoint,
			Scopes:     slices.Clone(node.Scopes),
		}
		for _, dep := range node.Dependencies {
			locked.Dependencies = append(locked.Dependencies, domain.LockedDependency{
				Name:       dep.Name,
				ID:         dep.ID,
				Kind:       dep.Kind,
				Constraint: dep.Constraint.String(),
			})
		}
		doc.Packages[node.ID] = locked
	}
	for _, opt := range opts {
		opt(doc)
	}
	return doc, nil
}

// Read rebuilds the graph a document describes. It never migrates: any
// schema other than the current one is a *domain.SchemaVersionError, and
// any inconsistency is a *domain.CorruptLockfileError.
func (m *Manager) Read(doc *domain.LockfileDocument) (*domain.Graph, error) {
	if doc == nil {
		return nil, &domain.CorruptLockfileError{Reason: "empty document"}
	}
	if doc.SchemaVersion != domain.LockfileSchemaVersion {
		return nil, &domain.SchemaVersionError{Found: doc.SchemaVersion, Expected: domain.LockfileSchemaVersion}
	}

	graph := domain.NewGraph()
	for _, id := range slices.Sorted(maps.Keys(doc.Packages)) {
		node, err := readPackage(id, doc.Packages[id], doc.Packages)
		if err != nil {
			return nil, err
		}
		if err := graph.AddNode(node); err != nil {
			return nil, &domain.CorruptLockfileError{Reason: "duplicate package " + id.String(), Err: err}
		}
	}

	for _, r := range doc.Roots {
		c, err := domain.ParseConstraint(r.Constraint)
		if err != nil {
			return nil, &domain.CorruptLockfileError{Reason: "root " + r.Name, Err: err}
		}
		if _, ok := doc.Packages[r.ID]; !ok {
			return nil, &domain.CorruptLockfileError{Reason: "root " + r.Name + " points at unknown package " + r.ID.String()}
		}
		graph.AddRoot(domain.RootRequirement{
			Scope:      r.Scope,
			Name:       r.Name,
			Constraint: c,
			Source:     r.Source,
			Pinned:     r.Pinned,
			ID:         r.ID,
		})
	}

	if err := graph.Validate(); err != nil {
		return nil, &domain.CorruptLockfileError{Reason: "inconsistent graph", Err: err}
	}
	return graph, nil
}

func readPackage(
	id domain.PackageID,
	p domain.LockedPackage,
	all map[domain.PackageID]domain.LockedPackage,
) (*domain.ResolvedPackage, error) {
	corrupt := func(reason string, err error) error {
		return &domain.CorruptLockfileError{Reason: id.String() + ": " + reason, Err: err}
	}

	v, err := domain.ParseVersion(p.Version)
	if err != nil {
		return nil, corrupt("bad version", err)
	}
	if err := p.Source.Validate(); err != nil {
		return nil, corrupt("bad source", err)
	}
	if want := domain.NewPackageID(p.Name, v, p.Source); want != id {
		return nil, corrupt("identity does not match "+want.String(), nil)
	}
	if p.Integrity == "" {
		return nil, corrupt("missing integrity hash", nil)
	}

	node := &domain.ResolvedPackage{
		ID:         id,
		Name:       domain.NewInternedString(p.Name),
		Version:    v,
		Source:     p.Source,
		Artifact:   p.Artifact,
		Integrity:  p.Integrity,
		Build:      p.Build.Spec,
		Pinned:     p.Pinned,
		Entrypoint: p.Entrypoint,
		Scopes:     slices.Clone(p.Scopes),
	}
	for _, dep := range p.Dependencies {
		c, err := domain.ParseConstraint(dep.Constraint)
		if err != nil {
			return nil, corrupt("bad constraint on "+dep.Name, err)
		}
		if _, ok := all[dep.ID]; !ok {
			return nil, corrupt("dependency "+dep.ID.String()+" is not locked", nil)
		}
		kind := dep.Kind
		if kind == "" {
			kind = domain.DependencyRuntime
		}
		node.Dependencies = append(node.Dependencies, domain.Dependency{
			Name:       dep.Name,
			ID:         dep.ID,
			Kind:       kind,
			Constraint: c,
		})
	}
	return node, nil
}

// Encode renders doc in its durable JSON form.
func (m *Manager) Encode(doc *domain.LockfileDocument) ([]byte, error) {
	return domain.EncodeLockfile(doc)
}

// Decode parses the durable JSON form. Schema checks happen in Read.
func (m *Manager) Decode(data []byte) (*domain.LockfileDocument, error) {
	return domain.DecodeLockfile(data)
}

// VerifyIntegrity checks a recomputed hash against the locked one.
func (m *Manager) VerifyIntegrity(id domain.PackageID, expected, actual string) error {
	return VerifyIntegrity(id, expected, actual)
}

// VerifyIntegrity fails closed: an empty expectation is a mismatch too.
func VerifyIntegrity(id domain.PackageID, expected, actual string) error {
	return domain.VerifyIntegrity(id, expected, actual)
}
