package lockfile

import (
	"maps"
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
)

// Outcome is the verdict of Reconcile.
type Outcome int

const (
	// Unchanged means the lock already satisfies the manifest.
	Unchanged Outcome = iota
	// NeedsPartialResolve means only the affected names must be re-resolved.
	NeedsPartialResolve
	// NeedsFullResolve means nothing in the lock can be reused.
	NeedsFullResolve
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case NeedsPartialResolve:
		return "partial"
	case NeedsFullResolve:
		return "full"
	default:
		return "unknown"
	}
}

// Reconciliation describes how a lock relates to the current manifest.
type Reconciliation struct {
	Outcome Outcome
	// Affected lists the direct dependency names whose declaration changed,
	// sorted and without duplicates.
	Affected []string
	Reason   string
}

// Reconcile compares the manifest's direct requirements against the roots
// recorded in doc.
func (m *Manager) Reconcile(doc *domain.LockfileDocument, manifest *domain.Manifest) Reconciliation {
	switch {
	case doc == nil:
		return Reconciliation{Outcome: NeedsFullResolve, Reason: "no lockfile"}
	case doc.SchemaVersion != domain.LockfileSchemaVersion:
		return Reconciliation{Outcome: NeedsFullResolve, Reason: "lockfile schema changed"}
	case manifest == nil:
		return Reconciliation{Outcome: NeedsFullResolve, Reason: "no manifest"}
	}

	affected := make(map[string]bool)
	kept := 0
	for _, scope := range domain.ManifestScopes() {
		locked := make(map[string]domain.LockedRoot)
		for _, r := range doc.Roots {
			if r.Scope == scope {
				locked[r.Name] = r
			}
		}
		for _, spec := range manifest.Scope(scope) {
			r, ok := locked[spec.Name]
			delete(locked, spec.Name)
			if !ok || !sameDeclaration(r, spec) || !lockedSatisfies(doc, r, spec) {
				affected[spec.Name] = true
				continue
			}
			kept++
		}
		for name := range locked {
			affected[name] = true
		}
	}

	for name := range overrideChanges(doc.BuildOverrides, manifest.Build) {
		affected[name] = true
	}

	names := slices.Sorted(maps.Keys(affected))
	switch {
	case len(names) == 0:
		return Reconciliation{Outcome: Unchanged}
	case kept == 0:
		return Reconciliation{Outcome: NeedsFullResolve, Affected: names, Reason: "every direct dependency changed"}
	default:
		return Reconciliation{Outcome: NeedsPartialResolve, Affected: names, Reason: "direct dependencies changed"}
	}
}

func sameDeclaration(r domain.LockedRoot, spec domain.PackageSpec) bool {
	if r.Constraint != spec.Constraint.String() || r.Pinned != spec.Pin {
		return false
	}
	return sourceOrIndex(r.Source).Same(sourceOrIndex(spec.Source))
}

func sourceOrIndex(s *domain.Source) domain.Source {
	if s == nil {
		return domain.IndexSource()
	}
	return *s
}

func lockedSatisfies(doc *domain.LockfileDocument, r domain.LockedRoot, spec domain.PackageSpec) bool {
	p, ok := doc.Packages[r.ID]
	if !ok {
		return false
	}
	v, err := domain.ParseVersion(p.Version)
	return err == nil && spec.Constraint.Satisfies(v)
}

func overrideChanges(locked map[string]domain.BuildEnvelope, current map[string]domain.BuildSpec) map[string]bool {
	changed := make(map[string]bool)
	for name, env := range locked {
		spec, ok := current[name]
		if !ok || !domain.SameBuildSpec(env.Spec, spec) {
			changed[name] = true
		}
	}
	for name := range current {
		if _, ok := locked[name]; !ok {
			changed[name] = true
		}
	}
	return changed
}
