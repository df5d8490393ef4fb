// Package loader derives the runtime lookup table that lets two requirers
// load different installed versions of the same package.
package loader

import (
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

// Table maps a requiring scope and a package name to an install path.
// The scope is domain.RootScope for the project itself and the requiring
// package's identity otherwise.
type Table map[string]map[string]string

// Lookup returns the install path name resolves to when required from scope.
func (t Table) Lookup(scope, name string) (string, error) {
	if path, ok := t[scope][name]; ok {
		return path, nil
	}
	return "", zerr.With(zerr.With(zerr.Wrap(domain.ErrLoaderEntryNotFound, name), "scope", scope), "package", name)
}

// Scopes returns the requiring scopes of the table, the project first.
func (t Table) Scopes() []string {
	scopes := make([]string, 0, len(t))
	for s := range t {
		if s != domain.RootScope {
			scopes = append(scopes, s)
		}
	}
	slices.Sort(scopes)
	if _, ok := t[domain.RootScope]; ok {
		scopes = append([]string{domain.RootScope}, scopes...)
	}
	return scopes
}

func (t Table) set(scope, name, path string) {
	names, ok := t[scope]
	if !ok {
		names = make(map[string]string)
		t[scope] = names
	}
	if _, taken := names[name]; !taken {
		names[name] = path
	}
}

// Loader builds and persists the table.
type Loader struct {
	tree  ports.InstallTree
	store ports.LoaderStore
}

// New creates a new Loader.
func New(tree ports.InstallTree, store ports.LoaderStore) *Loader {
	return &Loader{tree: tree, store: store}
}

// Generate derives the table from a resolved graph. Only runtime edges are
// recorded, and only towards packages the install tree holds.
func (l *Loader) Generate(graph *domain.Graph) (Table, error) {
	paths := make(map[domain.PackageID]string, graph.Len())
	installed := func(id domain.PackageID) (string, bool, error) {
		if p, ok := paths[id]; ok {
			return p, p != "", nil
		}
		entry, err := l.tree.Lookup(id)
		if err != nil {
			return "", false, err
		}
		path := ""
		if entry != nil {
			path = entry.Path
			if path == "" {
				path = l.tree.Path(id)
			}
		}
		paths[id] = path
		return path, path != "", nil
	}

	table := make(Table)

	// The runtime scope wins over test when both declare a name.
	for _, scope := range []string{domain.ScopeRuntime, domain.ScopeTest} {
		for _, root := range graph.RootsIn(scope) {
			path, ok, err := installed(root.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				table.set(domain.RootScope, root.Name, path)
			}
		}
	}

	for _, node := range graph.Nodes() {
		for _, dep := range node.Dependencies {
			if dep.Kind == domain.DependencyBuild {
				continue
			}
			path, ok, err := installed(dep.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				table.set(node.ID.String(), dep.Name, path)
			}
		}
	}
	return table, nil
}

// Write generates the table for graph and saves it in the project at root.
func (l *Loader) Write(root string, graph *domain.Graph) (Table, error) {
	table, err := l.Generate(graph)
	if err != nil {
		return nil, err
	}
	if err := l.store.Save(root, table); err != nil {
		return nil, err
	}
	return table, nil
}

// Read loads the saved table. A project without one has an empty table.
func (l *Loader) Read(root string) (Table, error) {
	raw, err := l.store.Load(root)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return Table{}, nil
	}
	return Table(raw), nil
}

// Where returns the install path of name as seen from scope.
func (l *Loader) Where(root, scope, name string) (string, error) {
	table, err := l.Read(root)
	if err != nil {
		return "", err
	}
	if scope == "" {
		scope = domain.RootScope
	}
	return table.Lookup(scope, name)
}
