// Package resolver turns a manifest into a resolved dependency graph.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	rootRequirer      = domain.RootScope
	buildScopePrefix  = "build:"
	splitScopeDivider = "/"
)

// Request describes one resolution.
type Request struct {
	Manifest *domain.Manifest
	// Prior is the graph of the existing lockfile, if any. Its choices are
	// preferred so that an update moves as little as possible.
	Prior *domain.Graph
	// Unlock lists names whose prior choice is not preferred.
	Unlock []string
	// UnlockAll ignores every unpinned prior choice.
	UnlockAll bool
}

// Resolver performs chronological backtracking over index candidates.
type Resolver struct {
	index  ports.PackageIndex
	logger ports.Logger
}

// New creates a new Resolver.
func New(index ports.PackageIndex, logger ports.Logger) *Resolver {
	return &Resolver{index: index, logger: logger}
}

// run holds what one Resolve call shares between scopes.
type run struct {
	*Resolver
	req      Request
	graph    *domain.Graph
	entries  map[string][]domain.IndexEntry
	missing  map[string]bool
	prior    preferences
	chosen   map[string][]domain.Version
	pending  []domain.PackageID
	buildFor map[domain.PackageID]*domain.IndexEntry
}

// Resolve computes the graph for req. It fails with *domain.ConflictError
// or *domain.CycleError and never returns a partial graph.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*domain.Graph, error) {
	if req.Manifest == nil {
		return nil, zerr.Wrap(domain.ErrManifest, "no manifest to resolve")
	}
	if err := req.Manifest.Validate(); err != nil {
		return nil, err
	}

	rn := &run{
		Resolver: r,
		req:      req,
		graph:    domain.NewGraph(),
		entries:  make(map[string][]domain.IndexEntry),
		missing:  make(map[string]bool),
		prior:    newPreferences(req),
		chosen:   make(map[string][]domain.Version),
		buildFor: make(map[domain.PackageID]*domain.IndexEntry),
	}

	if err := rn.resolveRuntime(ctx); err != nil {
		return nil, err
	}
	for _, scope := range []string{domain.ScopeTest, domain.ScopeBuild} {
		specs := req.Manifest.Scope(scope)
		if len(specs) == 0 {
			continue
		}
		assigned, err := rn.solve(ctx, scope, rootRequirements(specs))
		if err != nil {
			return nil, err
		}
		rn.materialize(scope, assigned)
		rn.addRoots(scope, specs, assigned)
	}
	if err := rn.resolveBuildScopes(ctx); err != nil {
		return nil, err
	}

	rn.graph.Prune()
	if err := rn.graph.Validate(); err != nil {
		return nil, err
	}
	return rn.graph, nil
}

// resolveRuntime tries the project's runtime requirements as one scope and
// splits them per direct dependency when they cannot agree.
func (rn *run) resolveRuntime(ctx context.Context) error {
	specs := rn.req.Manifest.Scope(domain.ScopeRuntime)
	if len(specs) == 0 {
		return nil
	}

	assigned, err := rn.solve(ctx, domain.ScopeRuntime, rootRequirements(specs))
	if err == nil {
		rn.materialize(domain.ScopeRuntime, assigned)
		rn.addRoots(domain.ScopeRuntime, specs, assigned)
		return nil
	}

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || len(specs) < 2 || rootConflict(conflict) {
		return err
	}

	rn.logger.Warn(fmt.Sprintf("dependencies disagree on %s, resolving each direct dependency separately", conflict.Name))

	for _, spec := range sortedSpecs(specs) {
		scope := domain.ScopeRuntime + splitScopeDivider + spec.Name
		assigned, err := rn.solve(ctx, scope, rootRequirements([]domain.PackageSpec{spec}))
		if err != nil {
			return err
		}
		rn.materialize(scope, assigned)
		rn.addRoots(domain.ScopeRuntime, []domain.PackageSpec{spec}, assigned)
	}
	return nil
}

// rootConflict reports whether the project itself demands the impossible,
// in which case splitting cannot help.
func rootConflict(c *domain.ConflictError) bool {
	for _, r := range c.Requirers {
		if len(r.Chain) > 1 {
			return false
		}
	}
	return true
}

// resolveBuildScopes resolves the build-time requirements of every node as a
// scope of its own, until no node with unresolved build requirements remains.
func (rn *run) resolveBuildScopes(ctx context.Context) error {
	done := make(map[domain.PackageID]bool)
	for len(rn.pending) > 0 {
		id := rn.pending[0]
		rn.pending = rn.pending[1:]
		if done[id] {
			continue
		}
		done[id] = true

		entry := rn.buildFor[id]
		if entry == nil || len(entry.BuildDependencies) == 0 {
			continue
		}

		scope := buildScopePrefix + id.String()
		roots := rootRequirements(entry.BuildDependencies)
		for i := range roots {
			roots[i].chain = []string{rootRequirer, id.String()}
		}
		assigned, err := rn.solve(ctx, scope, roots)
		if err != nil {
			return err
		}
		rn.materialize(scope, assigned)

		node, _ := rn.graph.Node(id)
		for _, spec := range entry.BuildDependencies {
			chosen := assigned[spec.Name]
			node.Dependencies = append(node.Dependencies, domain.Dependency{
				Name:       spec.Name,
				ID:         chosen.ID(),
				Kind:       domain.DependencyBuild,
				Constraint: spec.Constraint,
			})
		}
	}
	return nil
}

func rootRequirements(specs []domain.PackageSpec) []requirement {
	out := make([]requirement, 0, len(specs))
	for _, spec := range sortedSpecs(specs) {
		out = append(out, requirement{
			name:       spec.Name,
			constraint: spec.Constraint,
			source:     spec.Source,
			chain:      []string{rootRequirer},
		})
	}
	return out
}

func sortedSpecs(specs []domain.PackageSpec) []domain.PackageSpec {
	out := slices.Clone(specs)
	slices.SortStableFunc(out, func(a, b domain.PackageSpec) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// solve runs the backtracking search for one scope and returns the chosen
// entry per name.
func (rn *run) solve(ctx context.Context, scope string, roots []requirement) (map[string]*domain.IndexEntry, error) {
	state := newSearchState(roots)
	var stack []*choicePoint
	var firstConflict *domain.ConflictError
	var firstCycle *domain.CycleError

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var failure error
		if len(state.queue) == 0 {
			return state.assigned, nil
		}

		req := state.queue[0]
		state.queue = state.queue[1:]

		cp, err := rn.step(ctx, scope, &state, req)
		if cp != nil {
			stack = append(stack, cp)
		}
		if err != nil {
			if !isSearchFailure(err) {
				return nil, err
			}
			failure = err
		}

		for failure != nil {
			var conflict *domain.ConflictError
			var cycle *domain.CycleError
			switch {
			case errors.As(failure, &conflict):
				if firstConflict == nil {
					firstConflict = conflict
				}
			case errors.As(failure, &cycle):
				if firstCycle == nil {
					firstCycle = cycle
				}
			}

			next, ok := backtrack(&stack)
			if !ok {
				return nil, rn.searchError(firstConflict, firstCycle)
			}
			state = next.state.clone()
			failure = rn.assign(&state, next.req, next.candidates[next.next-1])
		}
	}
}

func isSearchFailure(err error) bool {
	return errors.Is(err, domain.ErrResolutionConflict) || errors.Is(err, domain.ErrCycleDetected)
}

// backtrack pops exhausted choice points and advances the newest one that
// still has alternatives.
func backtrack(stack *[]*choicePoint) (*choicePoint, bool) {
	for len(*stack) > 0 {
		top := (*stack)[len(*stack)-1]
		if top.next < len(top.candidates) {
			top.next++
			return top, true
		}
		*stack = (*stack)[:len(*stack)-1]
	}
	return nil, false
}

func (rn *run) searchError(conflict *domain.ConflictError, cycle *domain.CycleError) error {
	switch {
	case conflict != nil && rn.missing[conflict.Name]:
		notFound := zerr.With(zerr.Wrap(domain.ErrPackageNotFound, conflict.Name), "package", conflict.Name)
		return errors.Join(conflict, notFound)
	case conflict != nil:
		return conflict
	case cycle != nil:
		return cycle
	default:
		return zerr.Wrap(domain.ErrResolutionConflict, "search exhausted")
	}
}

// step processes one requirement. It returns a new choice point when a
// decision was taken.
func (rn *run) step(ctx context.Context, scope string, state *searchState, req requirement) (*choicePoint, error) {
	constraint := domain.Intersect(state.constraints[req.name], req.constraint)
	state.constraints[req.name] = constraint
	state.addRequirer(req.name, domain.Requirer{Chain: req.chain, Constraint: req.constraint.String()})

	source := domain.IndexSource()
	if req.source != nil {
		source = *req.source
	}
	if prev, ok := state.sources[req.name]; ok && req.source != nil && !prev.Same(source) {
		return nil, rn.conflict(scope, state, req.name, constraint)
	}
	if _, ok := state.sources[req.name]; !ok || req.source != nil {
		state.sources[req.name] = source
	}

	if constraint.IsUnsatisfiable() {
		return nil, rn.conflict(scope, state, req.name, constraint)
	}

	if chosen, ok := state.assigned[req.name]; ok {
		if !constraint.Satisfies(chosen.Version) || !chosen.Source.Same(state.sources[req.name]) {
			return nil, rn.conflict(scope, state, req.name, constraint)
		}
		if cycle := state.addEdge(req.parent, req.name); cycle != nil {
			return nil, rn.cycle(state, cycle)
		}
		return nil, nil
	}

	candidates, err := rn.candidates(ctx, scope, state, req.name, constraint)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, rn.conflict(scope, state, req.name, constraint)
	}

	cp := &choicePoint{state: state.clone(), req: req, candidates: candidates, next: 1}
	if err := rn.assign(state, req, candidates[0]); err != nil {
		return cp, err
	}
	return cp, nil
}

// assign records entry as the choice for req.name and queues its requirements.
func (rn *run) assign(state *searchState, req requirement, entry *domain.IndexEntry) error {
	state.assigned[req.name] = entry
	state.chains[req.name] = req.chain
	if cycle := state.addEdge(req.parent, req.name); cycle != nil {
		return rn.cycle(state, cycle)
	}

	pinned := rn.sharedEdges(entry.ID())
	chain := append(slices.Clip(req.chain), entry.ID().String())
	for _, dep := range entry.Dependencies {
		r := requirement{
			name:       dep.Name,
			constraint: dep.Constraint,
			source:     dep.Source,
			parent:     req.name,
			chain:      chain,
		}
		if prior, ok := pinned[dep.Name]; ok {
			r.constraint = domain.Intersect(dep.Constraint, domain.Exact(prior.Version))
			if !prior.Source.IsIndex() {
				r.source = &prior.Source
			}
		}
		state.queue = append(state.queue, r)
	}
	return nil
}

// sharedEdges returns the runtime dependencies of id as another scope already
// materialized them. A node has one set of edges, so a scope reusing it must
// agree on those versions or backtrack.
func (rn *run) sharedEdges(id domain.PackageID) map[string]*domain.ResolvedPackage {
	node, ok := rn.graph.Node(id)
	if !ok {
		return nil
	}
	pinned := make(map[string]*domain.ResolvedPackage, len(node.Dependencies))
	for _, dep := range node.Dependencies {
		if dep.Kind != domain.DependencyRuntime {
			continue
		}
		if child, ok := rn.graph.Node(dep.ID); ok {
			pinned[dep.Name] = child
		}
	}
	return pinned
}

func (rn *run) conflict(scope string, state *searchState, name string, c domain.Constraint) error {
	return &domain.ConflictError{
		Scope:      scope,
		Name:       name,
		Constraint: c.String(),
		Requirers:  slices.Clone(state.requirers[name]),
	}
}

func (rn *run) cycle(state *searchState, names []string) error {
	path := make([]string, 0, len(names))
	for _, n := range names {
		if e, ok := state.assigned[n]; ok {
			path = append(path, e.ID().String())
		} else {
			path = append(path, n)
		}
	}
	return &domain.CycleError{Path: path}
}

// materialize adds the nodes chosen by one scope to the graph. A node that
// another scope already produced keeps its edges and gains the scope; assign
// has pinned this scope's choices to those edges.
func (rn *run) materialize(scope string, assigned map[string]*domain.IndexEntry) {
	names := make([]string, 0, len(assigned))
	for name := range assigned {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		entry := assigned[name]
		id := entry.ID()
		rn.chosen[name] = appendVersion(rn.chosen[name], entry.Version)

		if node, ok := rn.graph.Node(id); ok {
			node.AddScope(scope)
			continue
		}

		node := &domain.ResolvedPackage{
			ID:        id,
			Name:      domain.NewInternedString(name),
			Version:   entry.Version,
			Source:    entry.Source,
			Artifact:  entry.Artifact,
			Integrity: entry.Integrity,
			Build:     entry.Build,
			Scopes:    []string{scope},
		}
		if override, ok := rn.req.Manifest.Build[name]; ok && override != nil {
			node.Build = override
		}
		for _, dep := range entry.Dependencies {
			node.Dependencies = append(node.Dependencies, domain.Dependency{
				Name:       dep.Name,
				ID:         assigned[dep.Name].ID(),
				Kind:       domain.DependencyRuntime,
				Constraint: dep.Constraint,
			})
		}
		// AddNode cannot fail: the identity was checked above.
		_ = rn.graph.AddNode(node)

		rn.buildFor[id] = entry
		rn.pending = append(rn.pending, id)
	}
}

func appendVersion(vs []domain.Version, v domain.Version) []domain.Version {
	if slices.ContainsFunc(vs, v.Equal) {
		return vs
	}
	return append(vs, v)
}

// addRoots records the project's direct requirements and marks their
// nodes as entrypoints.
func (rn *run) addRoots(scope string, specs []domain.PackageSpec, assigned map[string]*domain.IndexEntry) {
	for _, spec := range specs {
		entry := assigned[spec.Name]
		id := entry.ID()
		rn.graph.AddRoot(domain.RootRequirement{
			Scope:      scope,
			Name:       spec.Name,
			Constraint: spec.Constraint,
			Source:     spec.Source,
			Pinned:     spec.Pin,
			ID:         id,
		})
		if node, ok := rn.graph.Node(id); ok {
			node.Entrypoint = true
			node.Pinned = node.Pinned || spec.Pin
		}
	}
}
