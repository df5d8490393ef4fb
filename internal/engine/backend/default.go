package backend

import (
	"context"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

// moduleRoots are searched for Lua modules when a spec declares none.
var moduleRoots = []string{"src", "lua"}

var _ ports.Backend = (*Default)(nil)

// Default installs plain source files.
type Default struct {
	resolver ports.InputResolver
}

// NewDefault creates the default backend.
func NewDefault(resolver ports.InputResolver) *Default {
	return &Default{resolver: resolver}
}

// Kind implements ports.Backend.
func (b *Default) Kind() domain.BuildKind { return domain.BuildDefault }

// Requirements implements ports.Backend. Plain files need nothing.
func (b *Default) Requirements(domain.BuildSpec) domain.ToolchainRequirements {
	return domain.ToolchainRequirements{}
}

// Prepare checks that every declared file exists inside the source tree.
func (b *Default) Prepare(_ context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.DefaultSpec](job, b.Kind())
	if err != nil {
		return err
	}
	return b.check(job.SourceDir, spec)
}

func (b *Default) check(sourceDir string, spec *domain.DefaultSpec) error {
	files := slices.Concat(
		slices.Collect(maps.Values(spec.Modules)),
		slices.Collect(maps.Values(spec.Bin)),
		slices.Collect(maps.Values(spec.Conf)),
		spec.CopyDirectories,
	)
	slices.Sort(files)
	for _, f := range files {
		p, err := within(sourceDir, f)
		if err != nil {
			return fail(b.Kind(), "prepare", err)
		}
		if !exists(p) {
			return fail(b.Kind(), "prepare", zerr.With(zerr.New("declared file does not exist"), "path", f))
		}
	}
	return nil
}

// Build implements ports.Backend. There is nothing to compile.
func (b *Default) Build(context.Context, *ports.BuildJob) error {
	return nil
}

// Install copies modules, scripts, configuration and extra directories into
// the staging layout.
func (b *Default) Install(_ context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.DefaultSpec](job, b.Kind())
	if err != nil {
		return err
	}
	return b.install(job, spec, true)
}

// install stages spec. With discover set, an empty module map falls back to
// every Lua file under the conventional module roots.
func (b *Default) install(job *ports.BuildJob, spec *domain.DefaultSpec, discover bool) error {
	layout := job.Staging.Layout

	modules := spec.Modules
	if len(modules) == 0 && discover {
		found, err := b.discover(job.SourceDir)
		if err != nil {
			return fail(b.Kind(), "install", err)
		}
		modules = found
	}

	for _, name := range slices.Sorted(maps.Keys(modules)) {
		src, err := within(job.SourceDir, modules[name])
		if err != nil {
			return fail(b.Kind(), "install", err)
		}
		if err := copyFile(src, filepath.Join(layout.Src, modulePath(name, modules[name])), domain.FilePerm); err != nil {
			return fail(b.Kind(), "install", err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(spec.Bin)) {
		src, err := within(job.SourceDir, spec.Bin[name])
		if err != nil {
			return fail(b.Kind(), "install", err)
		}
		if err := copyFile(src, filepath.Join(layout.Bin, filepath.Base(name)), 0o755); err != nil { //nolint:mnd // Scripts are executable
			return fail(b.Kind(), "install", err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(spec.Conf)) {
		src, err := within(job.SourceDir, spec.Conf[name])
		if err != nil {
			return fail(b.Kind(), "install", err)
		}
		dst, err := within(layout.Conf, name)
		if err != nil {
			return fail(b.Kind(), "install", err)
		}
		if err := copyFile(src, dst, domain.FilePerm); err != nil {
			return fail(b.Kind(), "install", err)
		}
	}

	for _, dir := range spec.CopyDirectories {
		src, err := within(job.SourceDir, dir)
		if err != nil {
			return fail(b.Kind(), "install", err)
		}
		if err := copyTree(src, copyDestination(layout, dir)); err != nil {
			return fail(b.Kind(), "install", err)
		}
	}
	return nil
}

// discover maps module names to the Lua files found under the module roots,
// or at the top of the source tree when there are none.
func (b *Default) discover(sourceDir string) (map[string]string, error) {
	patterns := make([]string, 0, len(moduleRoots))
	for _, root := range moduleRoots {
		patterns = append(patterns, root+"/**/*.lua")
	}
	files, err := b.resolver.ResolveInputs(patterns, sourceDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		files, err = b.resolver.ResolveInputs([]string{"*.lua"}, sourceDir)
		if err != nil {
			return nil, err
		}
	}

	modules := make(map[string]string, len(files))
	for _, f := range files {
		rel := f
		for _, root := range moduleRoots {
			if after, ok := strings.CutPrefix(f, root+"/"); ok {
				rel = after
				break
			}
		}
		name := strings.TrimSuffix(rel, ".lua")
		name = strings.TrimSuffix(name, "/init")
		modules[strings.ReplaceAll(name, "/", ".")] = f
	}
	return modules, nil
}

// modulePath is where module name is installed below src/. A file named
// init.lua keeps its name so "require" finds the package directory.
func modulePath(name, file string) string {
	rel := strings.ReplaceAll(name, ".", "/")
	if path.Base(filepath.ToSlash(file)) == "init.lua" {
		return filepath.FromSlash(rel + "/init.lua")
	}
	return filepath.FromSlash(rel + path.Ext(filepath.ToSlash(file)))
}

// copyDestination places documentation under doc/ and any other copied
// directory under etc/.
func copyDestination(layout domain.InstallLayout, dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	switch strings.ToLower(base) {
	case "doc", "docs":
		return layout.Doc
	default:
		return filepath.Join(layout.Etc, base)
	}
}

func isZeroDefault(spec domain.DefaultSpec) bool {
	return len(spec.Modules) == 0 && len(spec.Bin) == 0 && len(spec.Conf) == 0 && len(spec.CopyDirectories) == 0
}
