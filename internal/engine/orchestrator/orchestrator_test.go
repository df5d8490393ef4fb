package orchestrator_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/rocks/internal/core/ports/mocks"
	"go.trai.ch/rocks/internal/engine/backend"
	"go.trai.ch/rocks/internal/engine/orchestrator"
	"go.uber.org/mock/gomock"
)

type orchestratorMocks struct {
	backend  *mocks.MockBackend
	fetcher  *mocks.MockFetcher
	tree     *mocks.MockInstallTree
	detector *mocks.MockToolchainDetector
	hasher   *mocks.MockHasher
	runner   *mocks.MockCommandRunner
}

// setupOrchestratorTest creates an orchestrator whose single backend and
// every adapter are mocks.
func setupOrchestratorTest(t *testing.T) (*orchestrator.Orchestrator, orchestratorMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := orchestratorMocks{
		backend:  mocks.NewMockBackend(ctrl),
		fetcher:  mocks.NewMockFetcher(ctrl),
		tree:     mocks.NewMockInstallTree(ctrl),
		detector: mocks.NewMockToolchainDetector(ctrl),
		hasher:   mocks.NewMockHasher(ctrl),
		runner:   mocks.NewMockCommandRunner(ctrl),
	}

	vertex := mocks.NewMockVertex(ctrl)
	vertex.EXPECT().Stdout().Return(io.Discard).AnyTimes()
	vertex.EXPECT().Stderr().Return(io.Discard).AnyTimes()
	vertex.EXPECT().Log(gomock.Any(), gomock.Any()).AnyTimes()
	vertex.EXPECT().Cached().AnyTimes()
	vertex.EXPECT().Complete(gomock.Any()).AnyTimes()

	telemetry := mocks.NewMockTelemetry(ctrl)
	telemetry.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
			return ctx, vertex
		},
	).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	m.backend.EXPECT().Kind().Return(domain.BuildDefault).AnyTimes()
	m.hasher.EXPECT().Fingerprint(gomock.Any(), gomock.Any()).Return("fp", nil).AnyTimes()

	o := orchestrator.New(
		backend.NewRegistry(m.backend),
		m.fetcher,
		m.tree,
		m.detector,
		m.hasher,
		m.runner,
		telemetry,
		logger,
	)
	return o, m
}

// happyPath stubs a tree without prior builds, a fetcher that returns the
// locked integrity and staging areas named after the package.
func (m orchestratorMocks) happyPath() {
	m.backend.EXPECT().Requirements(gomock.Any()).Return(domain.ToolchainRequirements{}).AnyTimes()
	m.tree.EXPECT().Lookup(gomock.Any()).Return(nil, nil).AnyTimes()
	m.tree.EXPECT().Stage(gomock.Any()).DoAndReturn(func(p *domain.ResolvedPackage) (*domain.Staging, error) {
		return &domain.Staging{ID: p.ID, Dir: "/stage/" + p.ID.String()}, nil
	}).AnyTimes()
	m.tree.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(s *domain.Staging, _ domain.InstallEntry) (string, error) {
			return "/tree/" + s.ID.String(), nil
		},
	).AnyTimes()
	m.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.ResolvedPackage, _ string) (string, error) {
			return p.Integrity, nil
		},
	).AnyTimes()
}

func (m orchestratorMocks) succeedSteps() {
	m.backend.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	m.backend.EXPECT().Build(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	m.backend.EXPECT().Install(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func pkg(name string, deps ...*domain.ResolvedPackage) *domain.ResolvedPackage {
	v := domain.MustParseVersion("1.0.0")
	p := &domain.ResolvedPackage{
		ID:        domain.NewPackageID(name, v, domain.IndexSource()),
		Name:      domain.NewInternedString(name),
		Version:   v,
		Source:    domain.IndexSource(),
		Integrity: "sha256-" + name,
	}
	for _, d := range deps {
		p.Dependencies = append(p.Dependencies, domain.Dependency{
			Name: d.Name.String(),
			ID:   d.ID,
			Kind: domain.DependencyRuntime,
		})
	}
	return p
}

func graphOf(t *testing.T, nodes ...*domain.ResolvedPackage) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
	require.NoError(t, g.Validate())
	return g
}

func status(t *testing.T, report *domain.BuildReport, p *domain.ResolvedPackage) domain.BuildResult {
	t.Helper()
	res, ok := report.Result(p.ID)
	require.True(t, ok, "no result for %s", p.ID)
	return res
}

// jobMatcher implements gomock.Matcher for build jobs of one package.
type jobMatcher struct {
	id domain.PackageID
}

func (m jobMatcher) Matches(x any) bool {
	job, ok := x.(*ports.BuildJob)
	return ok && job.Package.ID == m.id
}

func (m jobMatcher) String() string {
	return "build job for " + m.id.String()
}

func jobFor(p *domain.ResolvedPackage) gomock.Matcher {
	return jobMatcher{id: p.ID}
}

func TestOrchestrator_BuildsDependenciesFirst(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Graph: a -> b -> c, a -> c.
		c := pkg("c")
		b := pkg("b", c)
		a := pkg("a", b, c)
		g := graphOf(t, a, b, c)
		o, m := setupOrchestratorTest(t)
		m.happyPath()

		var mu sync.Mutex
		var order []domain.PackageID
		m.backend.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		m.backend.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, job *ports.BuildJob) error {
				mu.Lock()
				order = append(order, job.Package.ID)
				mu.Unlock()
				assert.Equal(t, "/stage/"+job.Package.ID.String()+"/source", job.SourceDir)
				return nil
			},
		).Times(3)
		m.backend.EXPECT().Install(gomock.Any(), gomock.Any()).Return(nil).Times(3)

		report, err := o.Build(t.Context(), g, orchestrator.Options{Parallelism: 4})
		require.NoError(t, err)

		assert.Equal(t, []domain.PackageID{c.ID, b.ID, a.ID}, order)
		require.Len(t, report.Results, 3)
		for _, p := range []*domain.ResolvedPackage{a, b, c} {
			res := status(t, report, p)
			assert.Equal(t, domain.VertexStatusCompleted, res.Status)
			assert.Equal(t, "/tree/"+p.ID.String(), res.InstallPath)
			assert.Equal(t, domain.VertexStatusCompleted, o.Status(p.ID))
		}
	})
}

func TestOrchestrator_PublishesEntry(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := pkg("a")
		g := graphOf(t, a)
		o, m := setupOrchestratorTest(t)
		m.succeedSteps()

		m.backend.EXPECT().Requirements(gomock.Any()).Return(domain.ToolchainRequirements{}).AnyTimes()
		m.tree.EXPECT().Lookup(a.ID).Return(nil, nil)
		m.tree.EXPECT().Stage(a).Return(&domain.Staging{ID: a.ID, Dir: "/stage/a"}, nil)
		m.fetcher.EXPECT().Fetch(gomock.Any(), a, "/stage/a/source").Return("sha256-a", nil)
		m.tree.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ *domain.Staging, entry domain.InstallEntry) (string, error) {
				assert.Equal(t, a.ID, entry.ID)
				assert.Equal(t, "a", entry.Name)
				assert.Equal(t, "1.0.0", entry.Version)
				assert.Equal(t, "sha256-a", entry.Integrity)
				assert.Equal(t, "fp", entry.Fingerprint)
				assert.Equal(t, domain.BuildDefault, entry.Kind)
				assert.False(t, entry.Timestamp.IsZero())
				return "/tree/a", nil
			},
		)

		report, err := o.Build(t.Context(), g, orchestrator.Options{})
		require.NoError(t, err)
		assert.True(t, report.OK())
	})
}

func TestOrchestrator_FailureSkipsDependents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Graph: a -> b -> c, d independent. c fails.
		c := pkg("c")
		b := pkg("b", c)
		a := pkg("a", b)
		d := pkg("d")
		g := graphOf(t, a, b, c, d)
		o, m := setupOrchestratorTest(t)
		m.happyPath()

		toolErr := &domain.BuildToolError{Backend: domain.BuildDefault, Tool: "cc", ExitCode: 2, Diagnostic: "boom"}
		m.backend.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(nil).Times(2)
		m.backend.EXPECT().Build(gomock.Any(), jobFor(c)).Return(toolErr)
		m.backend.EXPECT().Build(gomock.Any(), jobFor(d)).Return(nil)
		m.backend.EXPECT().Install(gomock.Any(), jobFor(d)).Return(nil)
		m.tree.EXPECT().Discard(gomock.Any()).DoAndReturn(func(s *domain.Staging) error {
			assert.Equal(t, c.ID, s.ID)
			return nil
		})

		report, err := o.Build(t.Context(), g, orchestrator.Options{Parallelism: 2})
		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrBuildFailed)
		require.ErrorIs(t, err, domain.ErrBuildToolFailure)

		failed := status(t, report, c)
		assert.Equal(t, domain.VertexStatusFailed, failed.Status)
		assert.Equal(t, "boom", failed.Diagnostic)

		for _, p := range []*domain.ResolvedPackage{a, b} {
			res := status(t, report, p)
			assert.Equal(t, domain.VertexStatusSkipped, res.Status)
			assert.Equal(t, c.ID, res.FailedAncestor)
			require.ErrorIs(t, res.Err, domain.ErrSkipped)
		}
		assert.Equal(t, domain.VertexStatusCompleted, status(t, report, d).Status)
	})
}

func TestOrchestrator_CacheHit(t *testing.T) {
	a := pkg("a")

	t.Run("matching entry is reused", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			o, m := setupOrchestratorTest(t)
			m.backend.EXPECT().Requirements(gomock.Any()).Return(domain.ToolchainRequirements{}).AnyTimes()
			m.tree.EXPECT().Lookup(a.ID).Return(&domain.InstallEntry{
				ID:          a.ID,
				Integrity:   "sha256-a",
				Fingerprint: "fp",
				Path:        "/tree/a",
			}, nil)

			report, err := o.Build(t.Context(), graphOf(t, a), orchestrator.Options{})
			require.NoError(t, err)

			res := status(t, report, a)
			assert.Equal(t, domain.VertexStatusCached, res.Status)
			assert.Equal(t, "/tree/a", res.InstallPath)
		})
	})

	t.Run("changed fingerprint rebuilds", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			o, m := setupOrchestratorTest(t)
			m.tree.EXPECT().Lookup(a.ID).Return(&domain.InstallEntry{
				ID:          a.ID,
				Integrity:   "sha256-a",
				Fingerprint: "old",
			}, nil)
			m.happyPath()
			m.succeedSteps()

			report, err := o.Build(t.Context(), graphOf(t, a), orchestrator.Options{})
			require.NoError(t, err)
			assert.Equal(t, domain.VertexStatusCompleted, status(t, report, a).Status)
		})
	})

	t.Run("force ignores the tree", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			o, m := setupOrchestratorTest(t)
			m.tree.EXPECT().Lookup(gomock.Any()).Times(0)
			m.backend.EXPECT().Requirements(gomock.Any()).Return(domain.ToolchainRequirements{}).AnyTimes()
			m.tree.EXPECT().Stage(a).Return(&domain.Staging{ID: a.ID, Dir: "/stage/a"}, nil)
			m.fetcher.EXPECT().Fetch(gomock.Any(), a, gomock.Any()).Return("sha256-a", nil)
			m.tree.EXPECT().Publish(gomock.Any(), gomock.Any()).Return("/tree/a", nil)
			m.succeedSteps()

			report, err := o.Build(t.Context(), graphOf(t, a), orchestrator.Options{Force: true})
			require.NoError(t, err)
			assert.Equal(t, domain.VertexStatusCompleted, status(t, report, a).Status)
		})
	})
}

func TestOrchestrator_IntegrityMismatch(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := pkg("a")
		o, m := setupOrchestratorTest(t)
		m.backend.EXPECT().Requirements(gomock.Any()).Return(domain.ToolchainRequirements{}).AnyTimes()
		m.tree.EXPECT().Lookup(a.ID).Return(nil, nil)
		m.tree.EXPECT().Stage(a).Return(&domain.Staging{ID: a.ID, Dir: "/stage/a"}, nil)
		m.fetcher.EXPECT().Fetch(gomock.Any(), a, gomock.Any()).Return("sha256-tampered", nil)
		m.tree.EXPECT().Discard(gomock.Any()).Return(nil)

		report, err := o.Build(t.Context(), graphOf(t, a), orchestrator.Options{})
		require.ErrorIs(t, err, domain.ErrIntegrityMismatch)

		res := status(t, report, a)
		assert.Equal(t, domain.VertexStatusFailed, res.Status)
		var integrityErr *domain.IntegrityError
		require.ErrorAs(t, res.Err, &integrityErr)
		assert.Equal(t, "sha256-a", integrityErr.Expected)
		assert.Equal(t, "sha256-tampered", integrityErr.Actual)
	})
}

func TestOrchestrator_ToolchainFailsBeforeAnyTool(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := pkg("a")
		b := pkg("b")
		o, m := setupOrchestratorTest(t)
		m.backend.EXPECT().Requirements(gomock.Any()).
			Return(domain.ToolchainRequirements{Compiler: true, Libraries: []string{"ssl"}}).AnyTimes()
		m.tree.EXPECT().Lookup(gomock.Any()).Return(nil, nil).AnyTimes()
		m.detector.EXPECT().Detect(gomock.Any(), gomock.Any()).Return(nil, &domain.ExternalDependencyError{
			Dependency: "ssl",
			Tried:      []string{"pkg-config ssl", "SSL_DIR"},
		}).Times(1)

		report, err := o.Build(t.Context(), graphOf(t, a, b), orchestrator.Options{})
		require.ErrorIs(t, err, domain.ErrUnresolvedExternalDependency)

		for _, p := range []*domain.ResolvedPackage{a, b} {
			res := status(t, report, p)
			assert.Equal(t, domain.VertexStatusFailed, res.Status)
			var extErr *domain.ExternalDependencyError
			require.ErrorAs(t, res.Err, &extErr)
			assert.Equal(t, p.ID, extErr.Package)
			assert.Equal(t, "ssl", extErr.Dependency)
		}
	})
}

func TestOrchestrator_DetectedToolchainReachesBackend(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := pkg("a")
		o, m := setupOrchestratorTest(t)
		tc := &domain.Toolchain{Compiler: "/usr/bin/cc"}
		m.detector.EXPECT().Detect(gomock.Any(), domain.ToolchainRequirements{Compiler: true}).Return(tc, nil)
		m.backend.EXPECT().Requirements(gomock.Any()).Return(domain.ToolchainRequirements{Compiler: true}).AnyTimes()
		m.happyPath()
		m.backend.EXPECT().Prepare(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, job *ports.BuildJob) error {
				assert.Same(t, tc, job.Toolchain)
				assert.Equal(t, []string{"LUA_PATH=x"}, job.Env)
				return nil
			},
		)
		m.backend.EXPECT().Build(gomock.Any(), gomock.Any()).Return(nil)
		m.backend.EXPECT().Install(gomock.Any(), gomock.Any()).Return(nil)

		_, err := o.Build(t.Context(), graphOf(t, a), orchestrator.Options{Env: []string{"LUA_PATH=x"}})
		require.NoError(t, err)
	})
}

func TestOrchestrator_Timeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := pkg("a")
		b := pkg("b", a)
		o, m := setupOrchestratorTest(t)
		m.happyPath()
		m.backend.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(nil)
		m.backend.EXPECT().Build(gomock.Any(), jobFor(a)).DoAndReturn(
			func(ctx context.Context, _ *ports.BuildJob) error {
				<-ctx.Done()
				return ctx.Err()
			},
		)
		m.tree.EXPECT().Discard(gomock.Any()).Return(nil)

		start := time.Now()
		report, err := o.Build(t.Context(), graphOf(t, a, b), orchestrator.Options{Timeout: 30 * time.Second})
		require.ErrorIs(t, err, domain.ErrTimeout)
		assert.Equal(t, 30*time.Second, time.Since(start))

		res := status(t, report, a)
		assert.Equal(t, domain.VertexStatusFailed, res.Status)
		var timeoutErr *domain.TimeoutError
		require.ErrorAs(t, res.Err, &timeoutErr)
		assert.Equal(t, 30*time.Second, timeoutErr.After)

		skipped := status(t, report, b)
		assert.Equal(t, domain.VertexStatusSkipped, skipped.Status)
		assert.Equal(t, a.ID, skipped.FailedAncestor)
	})
}

func TestOrchestrator_CancelWait(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Graph: b -> a. a is running when the run is cancelled.
		a := pkg("a")
		b := pkg("b", a)
		o, m := setupOrchestratorTest(t)
		m.happyPath()

		release := make(chan struct{})
		m.backend.EXPECT().Prepare(gomock.Any(), jobFor(a)).Return(nil)
		m.backend.EXPECT().Build(gomock.Any(), jobFor(a)).DoAndReturn(
			func(ctx context.Context, _ *ports.BuildJob) error {
				<-release
				assert.NoError(t, ctx.Err())
				return nil
			},
		)
		m.backend.EXPECT().Install(gomock.Any(), jobFor(a)).Return(nil)

		ctx, cancel := context.WithCancel(t.Context())
		type outcome struct {
			report *domain.BuildReport
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			report, err := o.Build(ctx, graphOf(t, a, b), orchestrator.Options{Cancel: domain.CancelWait})
			done <- outcome{report, err}
		}()

		synctest.Wait()
		cancel()
		synctest.Wait()
		close(release)

		out := <-done
		require.ErrorIs(t, out.err, domain.ErrCancelled)
		require.ErrorIs(t, out.err, context.Canceled)

		assert.Equal(t, domain.VertexStatusCompleted, status(t, out.report, a).Status)
		skipped := status(t, out.report, b)
		assert.Equal(t, domain.VertexStatusSkipped, skipped.Status)
		require.ErrorIs(t, skipped.Err, domain.ErrCancelled)
		assert.Empty(t, skipped.FailedAncestor)
	})
}

func TestOrchestrator_CancelTerminate(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := pkg("a")
		b := pkg("b", a)
		o, m := setupOrchestratorTest(t)
		m.happyPath()

		m.backend.EXPECT().Prepare(gomock.Any(), jobFor(a)).Return(nil)
		m.backend.EXPECT().Build(gomock.Any(), jobFor(a)).DoAndReturn(
			func(ctx context.Context, _ *ports.BuildJob) error {
				<-ctx.Done()
				return ctx.Err()
			},
		)
		m.tree.EXPECT().Discard(gomock.Any()).Return(nil)

		ctx, cancel := context.WithCancel(t.Context())
		errCh := make(chan error, 1)
		var report *domain.BuildReport
		go func() {
			var err error
			report, err = o.Build(ctx, graphOf(t, a, b), orchestrator.Options{Cancel: domain.CancelTerminate})
			errCh <- err
		}()

		synctest.Wait()
		cancel()

		err := <-errCh
		require.ErrorIs(t, err, domain.ErrCancelled)

		res := status(t, report, a)
		assert.Equal(t, domain.VertexStatusFailed, res.Status)
		require.ErrorIs(t, res.Err, context.Canceled)
		assert.Equal(t, domain.VertexStatusSkipped, status(t, report, b).Status)
	})
}

func TestOrchestrator_Parallelism(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		nodes := []*domain.ResolvedPackage{pkg("a"), pkg("b"), pkg("c"), pkg("d"), pkg("e")}
		o, m := setupOrchestratorTest(t)
		m.happyPath()

		var mu sync.Mutex
		running, peak := 0, 0
		m.backend.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		m.backend.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, *ports.BuildJob) error {
				mu.Lock()
				running++
				peak = max(peak, running)
				mu.Unlock()

				time.Sleep(time.Second)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			},
		).Times(len(nodes))
		m.backend.EXPECT().Install(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		start := time.Now()
		report, err := o.Build(t.Context(), graphOf(t, nodes...), orchestrator.Options{Parallelism: 2})
		require.NoError(t, err)

		assert.Equal(t, 2, peak)
		assert.Equal(t, 3*time.Second, time.Since(start))
		assert.Len(t, report.Results, len(nodes))
	})
}

func TestOrchestrator_Targets(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := pkg("c")
		b := pkg("b", c)
		a := pkg("a", b)
		x := pkg("x")
		g := graphOf(t, a, b, c, x)
		o, m := setupOrchestratorTest(t)
		m.happyPath()
		m.succeedSteps()

		report, err := o.Build(t.Context(), g, orchestrator.Options{Targets: []domain.PackageID{b.ID}})
		require.NoError(t, err)

		var built []domain.PackageID
		for _, res := range report.Results {
			built = append(built, res.ID)
		}
		assert.Equal(t, []domain.PackageID{b.ID, c.ID}, built)

		_, err = o.Build(t.Context(), g, orchestrator.Options{Targets: []domain.PackageID{"missing@1.0.0"}})
		require.ErrorIs(t, err, domain.ErrNodeNotFound)
	})
}

func TestOrchestrator_UnknownBackendFailsNode(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := pkg("a")
		a.Build = &domain.NativeModuleSpec{}
		b := pkg("b")
		o, m := setupOrchestratorTest(t)
		m.happyPath()
		m.succeedSteps()

		report, err := o.Build(t.Context(), graphOf(t, a, b), orchestrator.Options{})
		require.ErrorIs(t, err, domain.ErrUnknownBackend)
		assert.Equal(t, domain.VertexStatusFailed, status(t, report, a).Status)
		assert.Equal(t, domain.VertexStatusCompleted, status(t, report, b).Status)
	})
}

func TestOrchestrator_InvalidGraph(t *testing.T) {
	a := pkg("a", pkg("ghost"))
	g := domain.NewGraph()
	require.NoError(t, g.AddNode(a))
	o, _ := setupOrchestratorTest(t)

	_, err := o.Build(t.Context(), g, orchestrator.Options{})
	require.ErrorIs(t, err, domain.ErrMissingDependency)
}
