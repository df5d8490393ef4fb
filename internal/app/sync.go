package app

import (
	"context"
	"errors"
	"maps"
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/engine/lockfile"
	"go.trai.ch/rocks/internal/engine/resolver"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// SyncReport describes how a command changed the lockfile.
type SyncReport struct {
	// Outcome is how much of the previous lockfile had to be re-resolved.
	Outcome lockfile.Outcome
	Added   []domain.PackageID
	Removed []domain.PackageID
	// Written reports whether the lockfile was rewritten.
	Written bool
}

// Changed reports whether any locked package was added or removed.
func (s *SyncReport) Changed() bool {
	return len(s.Added) > 0 || len(s.Removed) > 0
}

type lockOptions struct {
	unlock    []string
	unlockAll bool
}

// sync brings the lockfile in line with m and returns the graph to build.
func (a *App) sync(ctx context.Context, m *domain.Manifest, opts lockOptions) (*domain.Graph, *SyncReport, error) {
	doc, err := a.lockfiles.Load(a.settings.Root)
	if err != nil {
		return nil, nil, err
	}

	var prior *domain.Graph
	if doc != nil {
		prior, err = a.lock.Read(doc)
		var schemaErr *domain.SchemaVersionError
		switch {
		case errors.As(err, &schemaErr):
			a.logger.Warn("lockfile was written by another version of rocks, resolving from scratch")
			prior = nil
		case err != nil:
			return nil, nil, err
		}
	}

	if err := checkUnlock(m, prior, opts.unlock); err != nil {
		return nil, nil, err
	}

	rec := a.lock.Reconcile(doc, m)
	report := &SyncReport{Outcome: rec.Outcome}

	graph := prior
	if rec.Outcome != lockfile.Unchanged || opts.unlockAll || len(opts.unlock) > 0 {
		req := resolver.Request{Manifest: m, Prior: prior, UnlockAll: opts.unlockAll}
		switch rec.Outcome {
		case lockfile.NeedsFullResolve:
			req.Prior = nil
		case lockfile.NeedsPartialResolve:
			req.Unlock = append(req.Unlock, rec.Affected...)
		}
		req.Unlock = append(req.Unlock, opts.unlock...)
		switch {
		case opts.unlockAll:
			report.Outcome = lockfile.NeedsFullResolve
		case rec.Outcome == lockfile.Unchanged:
			report.Outcome = lockfile.NeedsPartialResolve
		}

		graph, err = a.resolver.Resolve(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		report.Written = true
	}

	changed, err := a.fillIntegrity(ctx, graph, prior)
	if err != nil {
		return nil, nil, err
	}
	report.Written = report.Written || changed
	report.Added, report.Removed = diff(prior, graph)

	if report.Written {
		out, err := a.lock.Write(graph, lockfile.WithBuildOverrides(m.Build))
		if err != nil {
			return nil, nil, err
		}
		if err := a.lockfiles.Save(a.settings.Root, out); err != nil {
			return nil, nil, err
		}
	}
	return graph, report, nil
}

// checkUnlock rejects update targets that are neither declared nor locked.
func checkUnlock(m *domain.Manifest, prior *domain.Graph, names []string) error {
	known := make(map[string]bool)
	for _, scope := range domain.ManifestScopes() {
		for _, spec := range m.Scope(scope) {
			known[spec.Name] = true
		}
	}
	if prior != nil {
		for _, node := range prior.Nodes() {
			known[node.Name.String()] = true
		}
	}
	for _, name := range names {
		if !known[name] {
			return zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "not a dependency of the project"), "package", name)
		}
	}
	return nil
}

// fillIntegrity computes the integrity of every node that has none and
// re-hashes local path sources, whose content can change under a lock.
// Unchanged remote identities reuse the prior lock's hash. It reports
// whether any hash differs from the prior lock.
func (a *App) fillIntegrity(ctx context.Context, graph, prior *domain.Graph) (bool, error) {
	if graph == nil {
		return false, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.settings.Parallelism, 1))

	changed := make([]bool, graph.Len())
	for i, node := range graph.Nodes() {
		if node.Source.Kind != domain.SourcePath {
			if node.Integrity != "" {
				continue
			}
			if prior != nil {
				if old, ok := prior.Node(node.ID); ok && old.Integrity != "" {
					node.Integrity = old.Integrity
					continue
				}
			}
		}
		g.Go(func() error {
			integrity, err := a.fetcher.Digest(ctx, node)
			if err != nil {
				return err
			}
			changed[i] = integrity != node.Integrity
			node.Integrity = integrity
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return slices.Contains(changed, true), nil
}

// diff lists the identities only after holds and only before holds.
func diff(before, after *domain.Graph) (added, removed []domain.PackageID) {
	ids := func(g *domain.Graph) map[domain.PackageID]bool {
		set := make(map[domain.PackageID]bool)
		if g == nil {
			return set
		}
		for _, node := range g.Nodes() {
			set[node.ID] = true
		}
		return set
	}
	old, cur := ids(before), ids(after)
	for _, id := range slices.Sorted(maps.Keys(cur)) {
		if !old[id] {
			added = append(added, id)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(old)) {
		if !cur[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}
