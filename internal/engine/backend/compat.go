package backend

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultCompatTool is the legacy tool used when neither the build spec nor the
// settings name one.
const DefaultCompatTool = "luarocks"

var _ ports.Backend = (*ExternalCompat)(nil)

// ExternalCompat hands the whole build to a legacy tool and then maps the
// tree it produced onto the install layout.
type ExternalCompat struct {
	resolver ports.InputResolver
	tool     string
}

// NewExternalCompat creates the compat backend delegating to tool.
func NewExternalCompat(resolver ports.InputResolver, tool string) *ExternalCompat {
	if tool == "" {
		tool = DefaultCompatTool
	}
	return &ExternalCompat{resolver: resolver, tool: tool}
}

// Kind implements ports.Backend.
func (b *ExternalCompat) Kind() domain.BuildKind { return domain.BuildExternalCompat }

func (b *ExternalCompat) toolName(spec domain.BuildSpec) string {
	if s, ok := spec.(*domain.ExternalCompatSpec); ok && s.Tool != "" {
		return s.Tool
	}
	return b.tool
}

// Requirements implements ports.Backend.
func (b *ExternalCompat) Requirements(spec domain.BuildSpec) domain.ToolchainRequirements {
	return domain.ToolchainRequirements{Tools: []string{b.toolName(spec)}}
}

// rockspec locates the legacy build description inside the source tree.
func (b *ExternalCompat) rockspec(job *ports.BuildJob, spec *domain.ExternalCompatSpec) (string, error) {
	if spec.Rockspec != "" {
		p, err := within(job.SourceDir, spec.Rockspec)
		if err != nil {
			return "", err
		}
		if !exists(p) {
			return "", zerr.With(zerr.New("rockspec does not exist"), "path", spec.Rockspec)
		}
		return spec.Rockspec, nil
	}
	found, err := b.resolver.ResolveInputs([]string{"*.rockspec", "rockspec/*.rockspec", "rockspecs/*.rockspec"}, job.SourceDir)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", zerr.With(zerr.New("no rockspec found"), "dir", job.SourceDir)
	}
	return found[0], nil
}

// Prepare checks that a rockspec is present.
func (b *ExternalCompat) Prepare(_ context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.ExternalCompatSpec](job, b.Kind())
	if err != nil {
		return err
	}
	if _, err := b.rockspec(job, spec); err != nil {
		return fail(b.Kind(), "prepare", err)
	}
	return nil
}

func treeDir(job *ports.BuildJob) string {
	return filepath.Join(job.Staging.WorkDir, "compat")
}

// Build runs "<tool> make --tree <dir> <rockspec>" in the source tree.
func (b *ExternalCompat) Build(ctx context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.ExternalCompatSpec](job, b.Kind())
	if err != nil {
		return err
	}
	rockspec, err := b.rockspec(job, spec)
	if err != nil {
		return fail(b.Kind(), "build", err)
	}
	args := append([]string{"make", "--tree", treeDir(job), filepath.FromSlash(rockspec)}, spec.Args...)
	return run(ctx, job, b.Kind(), ports.Command{
		Name: tool(job, b.toolName(spec)),
		Args: args,
		Dir:  job.SourceDir,
	})
}

// Install maps share/lua/<ver> to src, lib/lua/<ver> to lib and bin to bin.
func (b *ExternalCompat) Install(_ context.Context, job *ports.BuildJob) error {
	tree := treeDir(job)
	layout := job.Staging.Layout

	for _, m := range []struct{ from, to string }{
		{filepath.Join(tree, "share", "lua"), layout.Src},
		{filepath.Join(tree, "lib", "lua"), layout.Lib},
	} {
		versions, err := os.ReadDir(m.from)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fail(b.Kind(), "install", err)
		}
		names := make([]string, 0, len(versions))
		for _, v := range versions {
			if v.IsDir() {
				names = append(names, v.Name())
			}
		}
		slices.Sort(names)
		for _, v := range names {
			if err := copyTree(filepath.Join(m.from, v), m.to); err != nil {
				return fail(b.Kind(), "install", err)
			}
		}
	}

	if bin := filepath.Join(tree, "bin"); exists(bin) {
		if err := copyTree(bin, layout.Bin); err != nil {
			return fail(b.Kind(), "install", err)
		}
	}
	return nil
}
