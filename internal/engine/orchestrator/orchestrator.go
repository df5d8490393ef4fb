// Package orchestrator builds a resolved graph into the install tree.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/rocks/internal/engine/lockfile"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// sourceDirName is the directory inside a staging area that holds the
// fetched package source.
const sourceDirName = "source"

// BackendRegistry selects the backend for a build spec.
type BackendRegistry interface {
	For(spec domain.BuildSpec) (ports.Backend, error)
}

// Options tune one build run.
type Options struct {
	// Parallelism bounds concurrent builds. Zero or less means one per CPU.
	Parallelism int
	// Timeout bounds each package build. Zero disables it.
	Timeout time.Duration
	// Cancel decides what happens to running builds on cancellation.
	Cancel domain.CancelPolicy
	// Force rebuilds packages the install tree already holds.
	Force bool
	// Env is passed to every build tool and is part of the fingerprint.
	Env []string
	// Targets restricts the run to these packages and their dependencies.
	// Empty means the whole graph.
	Targets []domain.PackageID
}

// Orchestrator runs package builds in dependency order.
type Orchestrator struct {
	registry  BackendRegistry
	fetcher   ports.Fetcher
	tree      ports.InstallTree
	detector  ports.ToolchainDetector
	hasher    ports.Hasher
	runner    ports.CommandRunner
	telemetry ports.Telemetry
	logger    ports.Logger

	mu     sync.RWMutex
	status map[domain.PackageID]domain.VertexStatus
}

// New creates a new Orchestrator with the given dependencies.
func New(
	registry BackendRegistry,
	fetcher ports.Fetcher,
	tree ports.InstallTree,
	detector ports.ToolchainDetector,
	hasher ports.Hasher,
	runner ports.CommandRunner,
	telemetry ports.Telemetry,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		fetcher:   fetcher,
		tree:      tree,
		detector:  detector,
		hasher:    hasher,
		runner:    runner,
		telemetry: telemetry,
		logger:    logger,
		status:    make(map[domain.PackageID]domain.VertexStatus),
	}
}

// Status returns the last known state of a package in the current or most
// recent run.
func (o *Orchestrator) Status(id domain.PackageID) domain.VertexStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status[id]
}

func (o *Orchestrator) setStatus(id domain.PackageID, status domain.VertexStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status[id] = status
}

// Build installs every package of graph, dependencies first.
//
// The report always covers every planned package. The error is non-nil
// when any package failed or was skipped; on cancellation it also matches
// domain.ErrCancelled.
func (o *Orchestrator) Build(ctx context.Context, graph *domain.Graph, opts Options) (*domain.BuildReport, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	state, err := o.newRunState(ctx, graph, opts)
	if err != nil {
		return nil, err
	}

	detectCtx, vertex := o.telemetry.Record(ctx, "Detecting toolchains")
	state.detectToolchains(detectCtx)
	vertex.Complete(nil)

	state.runExecutionLoop()
	state.skipUndispatched()

	if ctx.Err() != nil {
		return state.report, errors.Join(domain.ErrCancelled, ctx.Err(), state.report.Err())
	}
	return state.report, state.report.Err()
}

type result struct {
	id          domain.PackageID
	status      domain.VertexStatus
	err         error
	diagnostic  string
	duration    time.Duration
	installPath string
}

type toolchainResult struct {
	toolchain *domain.Toolchain
	err       error
}

type runState struct {
	o           *Orchestrator
	graph       *domain.Graph
	opts        Options
	ctx         context.Context
	buildCtx    context.Context
	parallelism int

	planned  map[domain.PackageID]bool
	inDegree map[domain.PackageID]int
	ready    []domain.PackageID
	active   int
	finished map[domain.PackageID]bool

	backends   map[domain.PackageID]ports.Backend
	backendErr map[domain.PackageID]error
	reqKeys    map[domain.PackageID]string
	reqs       map[string]domain.ToolchainRequirements
	toolchains map[string]toolchainResult

	resultsCh chan result
	report    *domain.BuildReport
}

func (o *Orchestrator) newRunState(ctx context.Context, graph *domain.Graph, opts Options) (*runState, error) {
	planned, err := collectDependencies(graph, opts.Targets)
	if err != nil {
		return nil, err
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	buildCtx := ctx
	if opts.Cancel != domain.CancelTerminate {
		buildCtx = context.WithoutCancel(ctx)
	}

	state := &runState{
		o:           o,
		graph:       graph,
		opts:        opts,
		ctx:         ctx,
		buildCtx:    buildCtx,
		parallelism: parallelism,
		planned:     planned,
		inDegree:    make(map[domain.PackageID]int, len(planned)),
		finished:    make(map[domain.PackageID]bool, len(planned)),
		backends:    make(map[domain.PackageID]ports.Backend, len(planned)),
		backendErr:  make(map[domain.PackageID]error),
		reqKeys:     make(map[domain.PackageID]string, len(planned)),
		reqs:        make(map[string]domain.ToolchainRequirements),
		toolchains:  make(map[string]toolchainResult),
		resultsCh:   make(chan result, parallelism),
		report:      &domain.BuildReport{},
	}

	for id := range planned {
		node, _ := graph.Node(id)
		degree := 0
		for _, dep := range node.DependencyIDs() {
			if planned[dep] {
				degree++
			}
		}
		state.inDegree[id] = degree
		if degree == 0 {
			state.ready = append(state.ready, id)
		}

		spec := node.BuildSpecOrDefault()
		b, err := o.registry.For(spec)
		if err != nil {
			state.backendErr[id] = err
			continue
		}
		state.backends[id] = b
		req := b.Requirements(spec)
		key := requirementKey(req)
		state.reqKeys[id] = key
		state.reqs[key] = req
	}
	slices.Sort(state.ready)

	for id := range planned {
		o.setStatus(id, domain.VertexStatusPending)
	}
	return state, nil
}

// collectDependencies returns targets and everything they depend on, or
// the whole graph when no target is given.
func collectDependencies(graph *domain.Graph, targets []domain.PackageID) (map[domain.PackageID]bool, error) {
	planned := make(map[domain.PackageID]bool, graph.Len())
	if len(targets) == 0 {
		for node := range graph.Walk() {
			planned[node.ID] = true
		}
		return planned, nil
	}

	queue := make([]domain.PackageID, 0, len(targets))
	for _, id := range targets {
		if _, ok := graph.Node(id); !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrNodeNotFound, id.String()), "package", id.String())
		}
		if !planned[id] {
			planned[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node, _ := graph.Node(current)
		for _, dep := range node.DependencyIDs() {
			if !planned[dep] {
				planned[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return planned, nil
}

func requirementKey(r domain.ToolchainRequirements) string {
	if r.IsEmpty() {
		return ""
	}
	libs := slices.Sorted(slices.Values(r.Libraries))
	tools := slices.Sorted(slices.Values(r.Tools))
	return fmt.Sprintf("cc=%t;headers=%t;grammar=%t;libs=%s;tools=%s",
		r.Compiler, r.RuntimeHeaders, r.GrammarCompiler,
		strings.Join(libs, ","), strings.Join(tools, ","))
}

// detectToolchains resolves every distinct requirement set concurrently.
// A failed detection only fails the packages that need it.
func (state *runState) detectToolchains(ctx context.Context) {
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for _, key := range slices.Sorted(maps.Keys(state.reqs)) {
		if key == "" {
			state.toolchains[key] = toolchainResult{toolchain: &domain.Toolchain{}}
			continue
		}
		req := state.reqs[key]
		g.Go(func() error {
			tc, err := state.o.detector.Detect(ctx, req)
			mu.Lock()
			state.toolchains[key] = toolchainResult{toolchain: tc, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (state *runState) runExecutionLoop() {
	done := state.ctx.Done()
	for {
		state.schedule()

		if state.active == 0 && (len(state.ready) == 0 || state.ctx.Err() != nil) {
			return
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-done:
			// Dispatch stops; in-flight builds still report back.
			done = nil
		}
	}
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		id := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.o.setStatus(id, domain.VertexStatusRunning)

		node, _ := state.graph.Node(id)
		go state.executeNode(node)
	}
}

func (state *runState) handleResult(res result) {
	state.active--
	state.finish(domain.BuildResult{
		ID:          res.id,
		Status:      res.status,
		Err:         res.err,
		Diagnostic:  res.diagnostic,
		Duration:    res.duration,
		InstallPath: res.installPath,
	})

	if res.status == domain.VertexStatusFailed {
		state.skipDependents(res.id)
		return
	}

	for _, dependent := range state.graph.Dependents(res.id) {
		if !state.planned[dependent] {
			continue
		}
		state.inDegree[dependent]--
		if state.inDegree[dependent] == 0 && !state.finished[dependent] {
			state.ready = append(state.ready, dependent)
		}
	}
	slices.Sort(state.ready)
}

func (state *runState) finish(res domain.BuildResult) {
	state.finished[res.ID] = true
	state.report.Add(res)
	state.o.setStatus(res.ID, res.Status)
}

// skipDependents marks every transitive dependent of failed as skipped.
// A package already settled keeps its first outcome.
func (state *runState) skipDependents(failed domain.PackageID) {
	queue := state.graph.Dependents(failed)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if !state.planned[id] || state.finished[id] {
			continue
		}
		state.finish(domain.BuildResult{
			ID:             id,
			Status:         domain.VertexStatusSkipped,
			FailedAncestor: failed,
			Err:            zerr.With(zerr.Wrap(domain.ErrSkipped, id.String()), "failed_dependency", failed.String()),
		})
		queue = append(queue, state.graph.Dependents(id)...)
	}
}

// skipUndispatched settles every package the run never reached.
func (state *runState) skipUndispatched() {
	cause := domain.ErrSkipped
	if state.ctx.Err() != nil {
		cause = domain.ErrCancelled
	}
	for _, id := range slices.Sorted(maps.Keys(state.planned)) {
		if state.finished[id] {
			continue
		}
		state.finish(domain.BuildResult{
			ID:     id,
			Status: domain.VertexStatusSkipped,
			Err:    zerr.With(zerr.Wrap(cause, id.String()), "package", id.String()),
		})
	}
}

func (state *runState) executeNode(node *domain.ResolvedPackage) {
	// The vertex completes before the result is sent so the loop never
	// returns while a recording is still open.
	res := func() result {
		start := time.Now()
		deps := node.DependencyIDs()
		inputs := make([]string, len(deps))
		for i, dep := range deps {
			inputs[i] = dep.String()
		}

		ctx, vertex := state.o.telemetry.Record(state.buildCtx, node.ID.String(), ports.WithInputs(inputs...))
		res := state.build(ctx, node, vertex)
		res.duration = time.Since(start)

		if res.status == domain.VertexStatusCached {
			vertex.Cached()
		}
		vertex.Complete(res.err)
		return res
	}()

	state.resultsCh <- res
}

func (state *runState) build(ctx context.Context, node *domain.ResolvedPackage, vertex ports.Vertex) result {
	id := node.ID
	failed := func(err error) result {
		res := result{id: id, status: domain.VertexStatusFailed, err: err}
		var toolErr *domain.BuildToolError
		if errors.As(err, &toolErr) {
			res.diagnostic = toolErr.Diagnostic
		}
		return res
	}

	backend, ok := state.backends[id]
	if !ok {
		return failed(state.backendErr[id])
	}

	fingerprint, err := state.o.hasher.Fingerprint(node, state.opts.Env)
	if err != nil {
		return failed(zerr.With(zerr.Wrap(err, "failed to compute build fingerprint"), "package", id.String()))
	}

	if !state.opts.Force {
		if path, hit := state.cached(node, fingerprint); hit {
			return result{id: id, status: domain.VertexStatusCached, installPath: path}
		}
	}

	tc, err := state.toolchainFor(id)
	if err != nil {
		return failed(err)
	}

	staging, err := state.o.tree.Stage(node)
	if err != nil {
		return failed(err)
	}

	path, err := state.stageAndPublish(ctx, node, backend, staging, tc, fingerprint, vertex)
	if err != nil {
		if discardErr := state.o.tree.Discard(staging); discardErr != nil {
			state.o.logger.Warn(fmt.Sprintf("failed to discard staging for %s: %v", id, discardErr))
		}
		return failed(err)
	}
	return result{id: id, status: domain.VertexStatusCompleted, installPath: path}
}

// cached reports whether the install tree already holds this exact build.
func (state *runState) cached(node *domain.ResolvedPackage, fingerprint string) (string, bool) {
	entry, err := state.o.tree.Lookup(node.ID)
	if err != nil {
		state.o.logger.Warn(fmt.Sprintf("ignoring unreadable install entry for %s: %v", node.ID, err))
		return "", false
	}
	if entry == nil || entry.Integrity != node.Integrity || entry.Fingerprint != fingerprint {
		return "", false
	}
	if entry.Path != "" {
		return entry.Path, true
	}
	return state.o.tree.Path(node.ID), true
}

func (state *runState) toolchainFor(id domain.PackageID) (*domain.Toolchain, error) {
	res, ok := state.toolchains[state.reqKeys[id]]
	if !ok {
		return &domain.Toolchain{}, nil
	}
	if res.err == nil {
		return res.toolchain, nil
	}
	var extErr *domain.ExternalDependencyError
	if errors.As(res.err, &extErr) {
		return nil, &domain.ExternalDependencyError{Package: id, Dependency: extErr.Dependency, Tried: extErr.Tried}
	}
	return nil, zerr.With(res.err, "package", id.String())
}

func (state *runState) stageAndPublish(
	ctx context.Context,
	node *domain.ResolvedPackage,
	backend ports.Backend,
	staging *domain.Staging,
	tc *domain.Toolchain,
	fingerprint string,
	vertex ports.Vertex,
) (string, error) {
	buildCtx := ctx
	if state.opts.Timeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, state.opts.Timeout)
		defer cancel()
	}
	timedOut := func(err error) error {
		if errors.Is(buildCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return &domain.TimeoutError{Package: node.ID, After: state.opts.Timeout}
		}
		return err
	}

	src := filepath.Join(staging.Dir, sourceDirName)
	integrity, err := state.o.fetcher.Fetch(buildCtx, node, src)
	if err != nil {
		return "", timedOut(err)
	}
	if err := lockfile.VerifyIntegrity(node.ID, node.Integrity, integrity); err != nil {
		return "", err
	}

	spec := node.BuildSpecOrDefault()
	job := &ports.BuildJob{
		Package:   node,
		Spec:      spec,
		SourceDir: src,
		Staging:   staging,
		Toolchain: tc,
		Runner:    state.o.runner,
		Env:       slices.Clone(state.opts.Env),
		Stdout:    vertex.Stdout(),
		Stderr:    vertex.Stderr(),
	}
	for _, step := range []func(context.Context, *ports.BuildJob) error{
		backend.Prepare,
		backend.Build,
		backend.Install,
	} {
		if err := step(buildCtx, job); err != nil {
			return "", timedOut(err)
		}
	}

	return state.o.tree.Publish(staging, domain.InstallEntry{
		ID:          node.ID,
		Name:        node.Name.String(),
		Version:     node.Version.String(),
		Integrity:   integrity,
		Fingerprint: fingerprint,
		Kind:        spec.Kind(),
		Timestamp:   time.Now(),
	})
}
