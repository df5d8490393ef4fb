package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports/mocks"
	"go.trai.ch/rocks/internal/engine/resolver"
	"go.uber.org/mock/gomock"
)

// fixture is an in-test package index keyed by name.
type fixture map[string][]domain.IndexEntry

func (f fixture) add(name, version string, deps ...string) fixture {
	entry := domain.IndexEntry{
		Name:      name,
		Version:   domain.MustParseVersion(version),
		Source:    domain.IndexSource(),
		Integrity: "sha256-" + name + version,
	}
	for _, d := range deps {
		spec, err := domain.ParsePackageSpec(d)
		if err != nil {
			panic(err)
		}
		entry.Dependencies = append(entry.Dependencies, spec)
	}
	f[name] = append(f[name], entry)
	return f
}

func (f fixture) addBuildDep(name, version, dep string) fixture {
	for i, e := range f[name] {
		if e.Version.Equal(domain.MustParseVersion(version)) {
			spec, err := domain.ParsePackageSpec(dep)
			if err != nil {
				panic(err)
			}
			f[name][i].BuildDependencies = append(f[name][i].BuildDependencies, spec)
		}
	}
	return f
}

func newResolver(t *testing.T, f fixture) *resolver.Resolver {
	t.Helper()
	ctrl := gomock.NewController(t)

	index := mocks.NewMockPackageIndex(ctrl)
	index.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, name string) ([]domain.IndexEntry, error) {
			entries, ok := f[name]
			if !ok {
				return nil, domain.ErrPackageNotFound
			}
			return entries, nil
		}).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	return resolver.New(index, logger)
}

func manifest(t *testing.T, deps ...string) *domain.Manifest {
	t.Helper()
	m := &domain.Manifest{}
	for _, d := range deps {
		spec, err := domain.ParsePackageSpec(d)
		require.NoError(t, err)
		m.Dependencies = append(m.Dependencies, spec)
	}
	return m
}

func ids(g *domain.Graph) []domain.PackageID {
	out := make([]domain.PackageID, 0, g.Len())
	for _, n := range g.Nodes() {
		out = append(out, n.ID)
	}
	return out
}

func TestResolve_PicksHighestSatisfying(t *testing.T) {
	f := fixture{}.add("A", "1.0.0").add("A", "1.5.0").add("A", "2.0.0")
	r := newResolver(t, f)

	g, err := r.Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "A >= 1.0, < 2.0")})
	require.NoError(t, err)

	assert.Equal(t, []domain.PackageID{"A@1.5.0"}, ids(g))
	node, ok := g.Node("A@1.5.0")
	require.True(t, ok)
	assert.True(t, node.Entrypoint)
	assert.Equal(t, "sha256-A1.5.0", node.Integrity)
	assert.Equal(t, []string{domain.ScopeRuntime}, node.Scopes)

	roots := g.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, domain.PackageID("A@1.5.0"), roots[0].ID)
}

func TestResolve_PessimisticConstraintAllowsPatchUpdates(t *testing.T) {
	f := fixture{}.add("a", "1.2.3").add("a", "1.2.9").add("a", "1.3.0")

	g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "a ~> 1.2.3")})
	require.NoError(t, err)

	assert.Equal(t, []domain.PackageID{"a@1.2.9"}, ids(g))
}

func TestResolve_Deterministic(t *testing.T) {
	f := fixture{}.
		add("app-a", "1.0", "lib >= 1.0").
		add("app-b", "1.0", "lib < 3", "util").
		add("lib", "1.0").add("lib", "2.0", "util ~> 1").add("lib", "3.0").
		add("util", "1.0").add("util", "1.4")
	m := manifest(t, "app-b", "app-a")

	first, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: m})
	require.NoError(t, err)
	second, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: m})
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, []domain.PackageID{"app-a@1.0.0", "app-b@1.0.0", "lib@2.0.0", "util@1.4.0"}, ids(first))
}

func TestResolve_Backtracks(t *testing.T) {
	// a@2 needs c >= 2 but b pins c below 2; only a@1 works.
	f := fixture{}.
		add("a", "1.0", "c >= 1").
		add("a", "2.0", "c >= 2").
		add("b", "1.0", "c < 2").
		add("c", "1.0").add("c", "2.0")

	g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "a", "b")})
	require.NoError(t, err)

	assert.Equal(t, []domain.PackageID{"a@1.0.0", "b@1.0.0", "c@1.0.0"}, ids(g))
	for _, n := range g.Nodes() {
		for _, d := range n.Dependencies {
			dep, ok := g.Node(d.ID)
			require.True(t, ok)
			assert.True(t, d.Constraint.Satisfies(dep.Version), "%s -> %s", n.ID, d.ID)
		}
	}
}

func TestResolve_ConflictAtRoot(t *testing.T) {
	f := fixture{}.add("a", "1.0")

	_, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "a >= 2")})
	require.ErrorIs(t, err, domain.ErrResolutionConflict)

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "a", conflict.Name)
	assert.Equal(t, domain.ScopeRuntime, conflict.Scope)
	require.Len(t, conflict.Requirers, 1)
	assert.Equal(t, []string{domain.RootScope}, conflict.Requirers[0].Chain)
}

func TestResolve_UnknownPackage(t *testing.T) {
	_, err := newResolver(t, fixture{}).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "ghost")})
	require.ErrorIs(t, err, domain.ErrResolutionConflict)
	require.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func TestResolve_TransitiveConflictInsideOneDependency(t *testing.T) {
	f := fixture{}.
		add("a", "1.0", "b", "c").
		add("b", "1.0", "d >= 2").
		add("c", "1.0", "d < 2").
		add("d", "1.0").add("d", "2.0").
		add("e", "1.0")

	_, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "a", "e")})
	require.ErrorIs(t, err, domain.ErrResolutionConflict)

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "d", conflict.Name)
	assert.Len(t, conflict.Requirers, 2)
}

func TestResolve_Cycle(t *testing.T) {
	f := fixture{}.add("a", "1.0", "b").add("b", "1.0", "a")

	_, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "a")})
	require.ErrorIs(t, err, domain.ErrCycleDetected)

	var cycle *domain.CycleError
	require.ErrorAs(t, err, &cycle)
	require.GreaterOrEqual(t, len(cycle.Path), 3)
	assert.Equal(t, cycle.Path[0], cycle.Path[len(cycle.Path)-1])
}

func TestResolve_CoexistingVersions(t *testing.T) {
	f := fixture{}.
		add("x", "1.0", "p >= 2.0").
		add("y", "1.0", "p < 2.0").
		add("p", "1.0").add("p", "2.0")

	g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "x", "y")})
	require.NoError(t, err)

	assert.Equal(t, []domain.PackageID{"p@1.0.0", "p@2.0.0", "x@1.0.0", "y@1.0.0"}, ids(g))

	x, _ := g.Node("x@1.0.0")
	y, _ := g.Node("y@1.0.0")
	assert.Equal(t, []domain.PackageID{"p@2.0.0"}, x.DependencyIDs())
	assert.Equal(t, []domain.PackageID{"p@1.0.0"}, y.DependencyIDs())
	assert.Equal(t, []string{"runtime/x"}, x.Scopes)
	assert.Equal(t, []string{"runtime/y"}, y.Scopes)
}

func TestResolve_SharedPackageAcrossSplitScopes(t *testing.T) {
	f := fixture{}.
		add("x", "1.0", "p >= 2.0", "q").
		add("y", "1.0", "p < 2.0", "q").
		add("p", "1.0").add("p", "2.0").
		add("q", "1.0").add("q", "1.1")

	g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "x", "y")})
	require.NoError(t, err)

	q, ok := g.Node("q@1.1.0")
	require.True(t, ok)
	assert.Equal(t, []string{"runtime/x", "runtime/y"}, q.Scopes)
}

func TestResolve_SharedPackageKeepsOneSetOfEdges(t *testing.T) {
	f := fixture{}.
		add("x", "1.0", "p >= 2.0", "q").
		add("y", "1.0", "p < 2.0", "q", "r < 2.0").
		add("p", "1.0").add("p", "2.0").
		add("q", "1.0", "r").add("q", "1.1", "r").
		add("r", "1.0").add("r", "2.0")

	g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "x", "y")})
	require.NoError(t, err)

	shared, ok := g.Node("q@1.1.0")
	require.True(t, ok)
	assert.Equal(t, []string{"runtime/x"}, shared.Scopes)

	other, ok := g.Node("q@1.0.0")
	require.True(t, ok)
	assert.Equal(t, []string{"runtime/y"}, other.Scopes)
	assert.Equal(t, []domain.PackageID{"r@1.0.0"}, other.DependencyIDs())

	perScope := make(map[string]map[string]domain.PackageID)
	for _, node := range g.Nodes() {
		for _, scope := range node.Scopes {
			if perScope[scope] == nil {
				perScope[scope] = make(map[string]domain.PackageID)
			}
			prev, dup := perScope[scope][node.Name.String()]
			assert.False(t, dup, "scope %s holds %s and %s", scope, prev, node.ID)
			perScope[scope][node.Name.String()] = node.ID
		}
		for _, dep := range node.Dependencies {
			child, ok := g.Node(dep.ID)
			require.True(t, ok)
			for _, scope := range node.Scopes {
				assert.Contains(t, child.Scopes, scope, "%s -> %s", node.ID, child.ID)
			}
		}
	}
}

func TestResolve_PriorLockMinimalChurn(t *testing.T) {
	f := fixture{}.
		add("a", "1.0").add("a", "1.1").
		add("b", "2.0").add("b", "2.1")
	m := manifest(t, "a", "b")

	prior := domain.NewGraph()
	for _, id := range []struct {
		name, version string
	}{{"a", "1.0"}, {"b", "2.0"}} {
		v := domain.MustParseVersion(id.version)
		require.NoError(t, prior.AddNode(&domain.ResolvedPackage{
			ID:      domain.NewPackageID(id.name, v, domain.IndexSource()),
			Name:    domain.NewInternedString(id.name),
			Version: v,
			Source:  domain.IndexSource(),
			Scopes:  []string{domain.ScopeRuntime},
		}))
	}

	t.Run("keeps prior choices", func(t *testing.T) {
		g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: m, Prior: prior})
		require.NoError(t, err)
		assert.Equal(t, []domain.PackageID{"a@1.0.0", "b@2.0.0"}, ids(g))
	})

	t.Run("unlocks only named packages", func(t *testing.T) {
		g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{
			Manifest: m, Prior: prior, Unlock: []string{"b"},
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.PackageID{"a@1.0.0", "b@2.1.0"}, ids(g))
	})

	t.Run("unlock all", func(t *testing.T) {
		g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{
			Manifest: m, Prior: prior, UnlockAll: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.PackageID{"a@1.1.0", "b@2.1.0"}, ids(g))
	})

	t.Run("pinned survives unlock all", func(t *testing.T) {
		pinned := domain.NewGraph()
		for _, n := range prior.Nodes() {
			cp := *n
			cp.Pinned = n.Name.String() == "a"
			require.NoError(t, pinned.AddNode(&cp))
		}
		g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{
			Manifest: m, Prior: pinned, UnlockAll: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.PackageID{"a@1.0.0", "b@2.1.0"}, ids(g))
	})

	t.Run("prior choice no longer satisfying is dropped", func(t *testing.T) {
		g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{
			Manifest: manifest(t, "a >= 1.1", "b"), Prior: prior,
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.PackageID{"a@1.1.0", "b@2.0.0"}, ids(g))
	})
}

func TestResolve_TestAndBuildScopes(t *testing.T) {
	f := fixture{}.
		add("lib", "1.0").add("lib", "2.0").
		add("busted", "2.0", "lib < 2").
		add("luacheck", "1.0")

	m := manifest(t, "lib")
	m.TestDependencies = []domain.PackageSpec{{Name: "busted"}}
	m.BuildDependencies = []domain.PackageSpec{{Name: "luacheck", Pin: true}}

	g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: m})
	require.NoError(t, err)

	assert.Equal(t, []domain.PackageID{"busted@2.0.0", "lib@1.0.0", "lib@2.0.0", "luacheck@1.0.0"}, ids(g))
	assert.Len(t, g.RootsIn(domain.ScopeTest), 1)

	luacheck, _ := g.Node("luacheck@1.0.0")
	assert.True(t, luacheck.Pinned)
	assert.True(t, luacheck.Entrypoint)

	lib1, _ := g.Node("lib@1.0.0")
	assert.False(t, lib1.Entrypoint)
	assert.Equal(t, []string{domain.ScopeTest}, lib1.Scopes)
}

func TestResolve_PackageBuildDependencies(t *testing.T) {
	f := fixture{}.
		add("native", "1.0").
		add("compiler-helper", "0.5").add("compiler-helper", "0.6")
	f.addBuildDep("native", "1.0", "compiler-helper < 0.6")

	g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: manifest(t, "native")})
	require.NoError(t, err)

	native, _ := g.Node("native@1.0.0")
	require.Len(t, native.Dependencies, 1)
	assert.Equal(t, domain.DependencyBuild, native.Dependencies[0].Kind)
	assert.Equal(t, domain.PackageID("compiler-helper@0.5.0"), native.Dependencies[0].ID)

	helper, _ := g.Node("compiler-helper@0.5.0")
	assert.Equal(t, []string{"build:native@1.0.0"}, helper.Scopes)
}

func TestResolve_BuildOverride(t *testing.T) {
	f := fixture{}.add("grammar", "1.0")
	m := manifest(t, "grammar")
	m.Build = map[string]domain.BuildSpec{"grammar": &domain.ParserGrammarSpec{Language: "lua"}}

	g, err := newResolver(t, f).Resolve(context.Background(), resolver.Request{Manifest: m})
	require.NoError(t, err)

	node, _ := g.Node("grammar@1.0.0")
	assert.Equal(t, domain.BuildParserGrammar, node.BuildSpecOrDefault().Kind())
}

func TestResolve_PathSourceWithoutIndexEntry(t *testing.T) {
	m := &domain.Manifest{Dependencies: []domain.PackageSpec{{
		Name:   "vendored",
		Source: &domain.Source{Kind: domain.SourcePath, URL: "./vendor/vendored"},
	}}}

	g, err := newResolver(t, fixture{}).Resolve(context.Background(), resolver.Request{Manifest: m})
	require.NoError(t, err)

	nodes := g.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "vendored", nodes[0].Name.String())
	assert.Equal(t, domain.SourcePath, nodes[0].Source.Kind)
	assert.Contains(t, nodes[0].ID.String(), "#")
}

func TestResolve_Cancelled(t *testing.T) {
	f := fixture{}.add("a", "1.0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newResolver(t, f).Resolve(ctx, resolver.Request{Manifest: manifest(t, "a")})
	require.ErrorIs(t, err, context.Canceled)
}
