package resolver

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/zerr"
)

// preferences are the prior lockfile's choices, per scope and per name.
type preferences struct {
	byScope map[string]map[string]*domain.ResolvedPackage
	byName  map[string]*domain.ResolvedPackage
	unlock  map[string]bool
	all     bool
}

func newPreferences(req Request) preferences {
	p := preferences{
		byScope: make(map[string]map[string]*domain.ResolvedPackage),
		byName:  make(map[string]*domain.ResolvedPackage),
		unlock:  make(map[string]bool),
		all:     req.UnlockAll,
	}
	for _, name := range req.Unlock {
		p.unlock[name] = true
	}
	if req.Prior == nil {
		return p
	}
	for _, node := range req.Prior.Nodes() {
		name := node.Name.String()
		if _, ok := p.byName[name]; !ok {
			p.byName[name] = node
		}
		for _, scope := range node.Scopes {
			if p.byScope[scope] == nil {
				p.byScope[scope] = make(map[string]*domain.ResolvedPackage)
			}
			p.byScope[scope][name] = node
		}
	}
	return p
}

// lookup returns the prior choice for name in scope, falling back to any
// scope that chose the name. Unlocked names have no prior choice unless
// they are pinned.
func (p preferences) lookup(scope, name string) *domain.ResolvedPackage {
	node := p.byScope[scope][name]
	if node == nil {
		node = p.byName[name]
	}
	if node == nil {
		return nil
	}
	if !node.Pinned && (p.all || p.unlock[name]) {
		return nil
	}
	return node
}

// entriesFor queries the index once per name and run.
func (rn *run) entriesFor(ctx context.Context, name string) ([]domain.IndexEntry, error) {
	if entries, ok := rn.entries[name]; ok {
		return entries, nil
	}
	entries, err := rn.index.Query(ctx, name)
	switch {
	case errors.Is(err, domain.ErrPackageNotFound):
		rn.missing[name] = true
		entries = nil
	case err != nil:
		return nil, zerr.With(zerr.Wrap(err, "failed to query package index"), "package", name)
	}
	rn.entries[name] = entries
	return entries, nil
}

// candidates returns the entries for name that satisfy c and come from the
// scope's source, best first: the prior lock's choice, then versions other
// scopes already chose, then the rest from highest to lowest version.
// Entries with equal versions keep the index's order.
func (rn *run) candidates(
	ctx context.Context,
	scope string,
	state *searchState,
	name string,
	c domain.Constraint,
) ([]*domain.IndexEntry, error) {
	entries, err := rn.entriesFor(ctx, name)
	if err != nil {
		return nil, err
	}

	source := state.sources[name]
	var matching []*domain.IndexEntry
	for i := range entries {
		e := &entries[i]
		if e.Source.Same(source) && c.Satisfies(e.Version) {
			matching = append(matching, e)
		}
	}
	if len(matching) == 0 && !source.IsIndex() {
		if synthetic := syntheticEntry(name, source, c); synthetic != nil {
			matching = append(matching, synthetic)
		}
	}

	slices.SortStableFunc(matching, func(a, b *domain.IndexEntry) int {
		return b.Version.Compare(a.Version)
	})

	var preferred []domain.Version
	if prior := rn.prior.lookup(scope, name); prior != nil && prior.Source.Same(source) {
		preferred = append(preferred, prior.Version)
	}
	preferred = append(preferred, rn.chosen[name]...)

	ordered := make([]*domain.IndexEntry, 0, len(matching))
	for _, v := range preferred {
		if i := slices.IndexFunc(matching, func(e *domain.IndexEntry) bool { return e.Version.Equal(v) }); i >= 0 {
			ordered = append(ordered, matching[i])
			matching = slices.Delete(matching, i, i+1)
		}
	}
	return append(ordered, matching...), nil
}

// syntheticEntry stands in for a package declared with an explicit git,
// path or archive source that the index does not describe. Its version is
// the exact version the constraint names, or 0.0.0 when it names none.
func syntheticEntry(name string, source domain.Source, c domain.Constraint) *domain.IndexEntry {
	var v domain.Version
	if exact, ok := exactVersion(c); ok {
		v = exact
	}
	if !c.Satisfies(v) {
		return nil
	}
	return &domain.IndexEntry{
		Name:     name,
		Version:  v,
		Source:   source,
		Artifact: source.URL,
	}
}

func exactVersion(c domain.Constraint) (domain.Version, bool) {
	v, err := domain.ParseVersion(strings.TrimLeft(c.String(), "="))
	return v, err == nil
}
