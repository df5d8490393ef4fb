// Package app implements the application layer for rocks.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/rocks/internal/engine/loader"
	"go.trai.ch/rocks/internal/engine/lockfile"
	"go.trai.ch/rocks/internal/engine/orchestrator"
	"go.trai.ch/rocks/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	settings     *domain.Settings
	manifests    ports.ManifestLoader
	lockfiles    ports.LockfileStore
	locker       ports.Locker
	fetcher      ports.Fetcher
	packer       ports.Packer
	resolver     *resolver.Resolver
	lock         *lockfile.Manager
	orchestrator *orchestrator.Orchestrator
	loader       *loader.Loader
	logger       ports.Logger
}

// New creates a new App instance.
func New(
	settings *domain.Settings,
	manifests ports.ManifestLoader,
	lockfiles ports.LockfileStore,
	locker ports.Locker,
	fetcher ports.Fetcher,
	packer ports.Packer,
	res *resolver.Resolver,
	lock *lockfile.Manager,
	orch *orchestrator.Orchestrator,
	ld *loader.Loader,
	log ports.Logger,
) *App {
	return &App{
		settings:     settings,
		manifests:    manifests,
		lockfiles:    lockfiles,
		locker:       locker,
		fetcher:      fetcher,
		packer:       packer,
		resolver:     res,
		lock:         lock,
		orchestrator: orch,
		loader:       ld,
		logger:       log,
	}
}

// BuildOptions configure the build step of a command.
type BuildOptions struct {
	// Force rebuilds packages the install tree already holds.
	Force bool
	// Packages restricts the build to these names and their dependencies.
	Packages []string
}

// Result is what a command changed: the lockfile and the install tree.
type Result struct {
	Sync  *SyncReport
	Build *domain.BuildReport
}

// Lock resolves the manifest and writes the lockfile without building.
func (a *App) Lock(ctx context.Context) (*SyncReport, error) {
	var sync *SyncReport
	err := a.withLock(func() error {
		m, err := a.manifests.Load(a.settings.Root)
		if err != nil {
			return err
		}
		_, sync, err = a.sync(ctx, m, lockOptions{})
		return err
	})
	return sync, err
}

// Install brings the lockfile up to date with the manifest and builds every
// locked package.
func (a *App) Install(ctx context.Context, opts BuildOptions) (*Result, error) {
	return a.lockAndBuild(ctx, nil, lockOptions{}, opts)
}

// Update re-resolves the named packages, or every unpinned package when no
// name is given, then builds.
func (a *App) Update(ctx context.Context, names []string, opts BuildOptions) (*Result, error) {
	return a.lockAndBuild(ctx, nil, lockOptions{unlock: names, unlockAll: len(names) == 0}, opts)
}

// Add declares specs in scope, then installs. The manifest is only written
// once the new requirements resolve.
func (a *App) Add(ctx context.Context, scope string, specs []string, opts BuildOptions) (*Result, error) {
	if !slices.Contains(domain.ManifestScopes(), scope) {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifest, "unknown dependency scope"), "scope", scope)
	}
	parsed := make([]domain.PackageSpec, 0, len(specs))
	for _, s := range specs {
		spec, err := domain.ParsePackageSpec(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, spec)
	}

	return a.lockAndBuild(ctx, func(m *domain.Manifest) error {
		for _, spec := range parsed {
			m.Upsert(scope, spec)
		}
		return nil
	}, lockOptions{}, opts)
}

// Remove drops names from scope, then installs.
func (a *App) Remove(ctx context.Context, scope string, names []string, opts BuildOptions) (*Result, error) {
	return a.lockAndBuild(ctx, func(m *domain.Manifest) error {
		for _, name := range names {
			if !m.Remove(scope, name) {
				err := zerr.With(zerr.Wrap(domain.ErrManifest, "not a declared dependency"), "package", name)
				return zerr.With(err, "scope", scope)
			}
		}
		return nil
	}, lockOptions{}, opts)
}

// Build installs exactly what the lockfile records. It fails when there is
// no lockfile or when the lockfile no longer matches the manifest.
func (a *App) Build(ctx context.Context, opts BuildOptions) (*Result, error) {
	var res *Result
	err := a.withLock(func() error {
		m, err := a.manifests.Load(a.settings.Root)
		if err != nil {
			return err
		}
		doc, err := a.lockfiles.Load(a.settings.Root)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrLockfileNotFound
		}
		graph, err := a.lock.Read(doc)
		if err != nil {
			return err
		}
		if rec := a.lock.Reconcile(doc, m); rec.Outcome != lockfile.Unchanged {
			return zerr.With(zerr.Wrap(domain.ErrLockfileOutdated, rec.Reason), "packages", rec.Affected)
		}

		res = &Result{}
		res.Build, err = a.build(ctx, graph, opts)
		return err
	})
	return res, err
}

// Where returns the install path of name as required from scope. An empty
// scope is the project itself.
func (a *App) Where(scope, name string) (string, error) {
	return a.loader.Where(a.settings.Root, scope, name)
}

// Pack installs name and archives its published layout as a rock in
// destDir, the project root when empty. It returns the archive path.
func (a *App) Pack(ctx context.Context, name, destDir string) (string, *Result, error) {
	if destDir == "" {
		destDir = a.settings.Root
	}

	var (
		path string
		res  *Result
	)
	err := a.withLock(func() error {
		m, err := a.manifests.Load(a.settings.Root)
		if err != nil {
			return err
		}
		graph, sync, err := a.sync(ctx, m, lockOptions{})
		if err != nil {
			return err
		}
		id, err := packTarget(graph, name)
		if err != nil {
			return err
		}

		res = &Result{Sync: sync}
		res.Build, err = a.build(ctx, graph, BuildOptions{Packages: []string{name}})
		if err != nil {
			return err
		}
		path, err = a.packer.Pack(id, destDir)
		if err != nil {
			return err
		}
		a.logger.Info(fmt.Sprintf("packed %s", id))
		return nil
	})
	return path, res, err
}

// packTarget picks the identity of name the project requires directly, or
// the newest locked one.
func packTarget(graph *domain.Graph, name string) (domain.PackageID, error) {
	for _, root := range graph.RootsIn(domain.ScopeRuntime) {
		if root.Name == name {
			return root.ID, nil
		}
	}
	var best *domain.ResolvedPackage
	for _, node := range graph.Nodes() {
		if node.Name.String() == name && (best == nil || node.Version.Compare(best.Version) > 0) {
			best = node
		}
	}
	if best == nil {
		return "", zerr.With(zerr.Wrap(domain.ErrNodeNotFound, name), "package", name)
	}
	return best.ID, nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Cache also removes downloaded source archives.
	Cache bool
}

// Clean removes the install tree and the runtime loader table.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	return a.withLock(func() error {
		var errs error

		remove := func(path string, name string) {
			a.logger.Info(fmt.Sprintf("removing %s...", name))
			if err := os.RemoveAll(path); err != nil {
				errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
				return
			}
			a.logger.Info(fmt.Sprintf("removed %s", name))
		}

		remove(domain.TreeDir(a.settings.Root), "install tree")
		remove(domain.LoaderPath(a.settings.Root), "loader table")
		if options.Cache {
			remove(domain.ArtifactCacheDir(a.settings.Root), "artifact cache")
		}
		return errs
	})
}

// lockAndBuild applies edit to the manifest, brings the lockfile up to
// date, saves an edited manifest and builds, all under the project lock.
func (a *App) lockAndBuild(
	ctx context.Context,
	edit func(*domain.Manifest) error,
	lopts lockOptions,
	opts BuildOptions,
) (*Result, error) {
	var res *Result
	err := a.withLock(func() error {
		m, err := a.manifests.Load(a.settings.Root)
		if err != nil {
			return err
		}
		if edit != nil {
			if err := edit(m); err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return err
			}
		}

		graph, sync, err := a.sync(ctx, m, lopts)
		if err != nil {
			return err
		}
		if edit != nil {
			if err := a.manifests.Save(a.settings.Root, m); err != nil {
				return err
			}
		}

		res = &Result{Sync: sync}
		res.Build, err = a.build(ctx, graph, opts)
		return err
	})
	return res, err
}

func (a *App) build(ctx context.Context, graph *domain.Graph, opts BuildOptions) (*domain.BuildReport, error) {
	targets, err := targetIDs(graph, opts.Packages)
	if err != nil {
		return nil, err
	}

	report, buildErr := a.orchestrator.Build(ctx, graph, orchestrator.Options{
		Parallelism: a.settings.Parallelism,
		Timeout:     a.settings.BuildTimeout,
		Cancel:      a.settings.Cancel,
		Force:       opts.Force,
		Targets:     targets,
	})
	if report == nil {
		return nil, buildErr
	}

	// The loader table reflects whatever the tree now holds, even after a
	// partial failure.
	if _, err := a.loader.Write(a.settings.Root, graph); err != nil {
		return report, errors.Join(buildErr, err)
	}
	return report, buildErr
}

// targetIDs maps package names to every locked identity of that name.
func targetIDs(graph *domain.Graph, names []string) ([]domain.PackageID, error) {
	var ids []domain.PackageID
	for _, name := range names {
		found := false
		for _, node := range graph.Nodes() {
			if node.Name.String() == name {
				ids = append(ids, node.ID)
				found = true
			}
		}
		if !found {
			return nil, zerr.With(zerr.Wrap(domain.ErrNodeNotFound, name), "package", name)
		}
	}
	return ids, nil
}

// withLock runs fn while holding the project's advisory lock.
func (a *App) withLock(fn func() error) (err error) {
	unlock, err := a.locker.TryLock(a.settings.Root)
	if err != nil {
		return err
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil {
			err = errors.Join(err, zerr.Wrap(unlockErr, "failed to release project lock"))
		}
	}()
	return fn()
}
