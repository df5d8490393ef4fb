package resolver

import (
	"maps"
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
)

// requirement is one pending constraint on a name inside a scope.
type requirement struct {
	name       string
	constraint domain.Constraint
	source     *domain.Source
	// parent is the name of the requiring package, empty for scope roots.
	parent string
	chain  []string
}

// searchState is a partial assignment. It is copied, never shared, so a
// choice point can restore it exactly.
type searchState struct {
	assigned    map[string]*domain.IndexEntry
	constraints map[string]domain.Constraint
	sources     map[string]domain.Source
	requirers   map[string][]domain.Requirer
	chains      map[string][]string
	edges       map[string][]string
	queue       []requirement
}

func newSearchState(roots []requirement) searchState {
	return searchState{
		assigned:    make(map[string]*domain.IndexEntry),
		constraints: make(map[string]domain.Constraint),
		sources:     make(map[string]domain.Source),
		requirers:   make(map[string][]domain.Requirer),
		chains:      make(map[string][]string),
		edges:       make(map[string][]string),
		queue:       slices.Clone(roots),
	}
}

func (s searchState) clone() searchState {
	return searchState{
		assigned:    maps.Clone(s.assigned),
		constraints: maps.Clone(s.constraints),
		sources:     maps.Clone(s.sources),
		requirers:   maps.Clone(s.requirers),
		chains:      maps.Clone(s.chains),
		edges:       maps.Clone(s.edges),
		queue:       slices.Clone(s.queue),
	}
}

// addRequirer records who constrained name. Slices are never appended in
// place so snapshots stay untouched.
func (s searchState) addRequirer(name string, r domain.Requirer) {
	s.requirers[name] = append(slices.Clip(s.requirers[name]), r)
}

// addEdge records parent -> child and returns the cycle it closes, if any.
func (s searchState) addEdge(parent, child string) []string {
	if parent == "" {
		return nil
	}
	if path := s.path(child, parent); path != nil {
		return append([]string{parent}, path...)
	}
	if !slices.Contains(s.edges[parent], child) {
		s.edges[parent] = append(slices.Clip(s.edges[parent]), child)
	}
	return nil
}

// path returns a path from -> to through recorded edges, or nil.
func (s searchState) path(from, to string) []string {
	if from == to {
		return []string{from}
	}
	seen := map[string]bool{from: true}
	var walk func(n string) []string
	walk = func(n string) []string {
		for _, next := range s.edges[n] {
			if next == to {
				return []string{n, to}
			}
			if seen[next] {
				continue
			}
			seen[next] = true
			if rest := walk(next); rest != nil {
				return append([]string{n}, rest...)
			}
		}
		return nil
	}
	return walk(from)
}

// choicePoint remembers the state a decision was taken from and the
// alternatives that remain.
type choicePoint struct {
	state      searchState
	req        requirement
	candidates []*domain.IndexEntry
	next       int
}
