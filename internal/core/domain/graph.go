// Package domain contains the core domain models of the package manager: versions,
// constraints, the resolved dependency graph and the lockfile document.
package domain

import (
	"cmp"
	"iter"
	"maps"
	"slices"

	"go.trai.ch/zerr"
)

// RootRequirement is a dependency the project declares directly, together
// with the node the resolver chose for it.
type RootRequirement struct {
	Scope      string
	Name       string
	Constraint Constraint
	Source     *Source
	Pinned     bool
	ID         PackageID
}

// Graph is the resolved dependency graph. Nodes are keyed by identity, so
// two versions of one name can coexist.
type Graph struct {
	nodes          map[PackageID]*ResolvedPackage
	roots          []RootRequirement
	executionOrder []PackageID
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[PackageID]*ResolvedPackage),
	}
}

// AddNode adds a package to the graph.
// It returns an error if a node with the same identity already exists.
func (g *Graph) AddNode(p *ResolvedPackage) error {
	if _, exists := g.nodes[p.ID]; exists {
		return zerr.With(zerr.Wrap(ErrDuplicateNode, p.ID.String()), "package", p.ID.String())
	}
	g.nodes[p.ID] = p
	g.executionOrder = nil
	return nil
}

// Node returns the package with the given identity.
func (g *Graph) Node(id PackageID) (*ResolvedPackage, bool) {
	p, ok := g.nodes[id]
	return p, ok
}

// Nodes returns every package sorted by identity.
func (g *Graph) Nodes() []*ResolvedPackage {
	ids := slices.Sorted(maps.Keys(g.nodes))
	out := make([]*ResolvedPackage, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// AddRoot records a direct project requirement.
func (g *Graph) AddRoot(r RootRequirement) {
	g.roots = append(g.roots, r)
	slices.SortStableFunc(g.roots, func(a, b RootRequirement) int {
		if c := cmp.Compare(a.Scope, b.Scope); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// Roots returns the direct requirements sorted by scope and name.
func (g *Graph) Roots() []RootRequirement {
	return slices.Clone(g.roots)
}

// RootsIn returns the direct requirements of one manifest scope.
func (g *Graph) RootsIn(scope string) []RootRequirement {
	var out []RootRequirement
	for _, r := range g.roots {
		if r.Scope == scope {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks that every edge points at a node and that the graph is
// acyclic. It populates the execution order, dependencies first.
func (g *Graph) Validate() error {
	g.executionOrder = make([]PackageID, 0, len(g.nodes))
	visited := make(map[PackageID]int) // 0: unvisited, 1: visiting, 2: visited
	var path []PackageID

	var visit func(u PackageID) error
	visit = func(u PackageID) error {
		visited[u] = 1
		path = append(path, u)

		node := g.nodes[u]
		for _, dep := range node.DependencyIDs() {
			if _, exists := g.nodes[dep]; !exists {
				err := zerr.With(zerr.Wrap(ErrMissingDependency, dep.String()), "dependency", dep.String())
				return zerr.With(err, "package", u.String())
			}
			if visited[dep] == 1 {
				return buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		if visited[id] == 0 {
			if err := visit(id); err != nil {
				g.executionOrder = nil
				return err
			}
		}
	}
	return nil
}

func buildCycleError(path []PackageID, dep PackageID) error {
	start := slices.Index(path, dep)
	cycle := make([]string, 0, len(path)-start+1)
	for _, id := range path[start:] {
		cycle = append(cycle, id.String())
	}
	cycle = append(cycle, dep.String())
	return &CycleError{Path: cycle}
}

// Walk returns an iterator that yields packages dependencies first.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[*ResolvedPackage] {
	return func(yield func(*ResolvedPackage) bool) {
		for _, id := range g.executionOrder {
			if !yield(g.nodes[id]) {
				return
			}
		}
	}
}

// Dependents returns the packages that depend directly on id, sorted.
func (g *Graph) Dependents(id PackageID) []PackageID {
	var out []PackageID
	for other, node := range g.nodes {
		if slices.Contains(node.DependencyIDs(), id) {
			out = append(out, other)
		}
	}
	slices.Sort(out)
	return out
}

// Prune removes every node that no root reaches.
func (g *Graph) Prune() {
	reachable := make(map[PackageID]bool, len(g.nodes))
	var stack []PackageID
	for _, r := range g.roots {
		if r.ID != "" {
			stack = append(stack, r.ID)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		if node, ok := g.nodes[id]; ok {
			stack = append(stack, node.DependencyIDs()...)
		}
	}
	for id := range g.nodes {
		if !reachable[id] {
			delete(g.nodes, id)
		}
	}
	g.executionOrder = nil
}
