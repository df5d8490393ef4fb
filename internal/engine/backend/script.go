package backend

import (
	"context"
	"maps"
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Backend = (*CustomScript)(nil)

// CustomScript runs the package's own build steps. Steps install by writing
// into the directories named by the layout environment variables.
type CustomScript struct{}

// NewCustomScript creates the custom script backend.
func NewCustomScript() *CustomScript {
	return &CustomScript{}
}

// Kind implements ports.Backend.
func (b *CustomScript) Kind() domain.BuildKind { return domain.BuildCustomScript }

// Requirements implements ports.Backend.
func (b *CustomScript) Requirements(spec domain.BuildSpec) domain.ToolchainRequirements {
	if s, ok := spec.(*domain.CustomScriptSpec); ok {
		return domain.ToolchainRequirements{Tools: slices.Clone(s.Tools)}
	}
	return domain.ToolchainRequirements{}
}

// Prepare checks every step before any of them runs.
func (b *CustomScript) Prepare(_ context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.CustomScriptSpec](job, b.Kind())
	if err != nil {
		return err
	}
	if len(spec.Steps) == 0 {
		return fail(b.Kind(), "prepare", zerr.New("no build steps declared"))
	}
	for i, step := range spec.Steps {
		if len(step.Run) == 0 || step.Run[0] == "" {
			return fail(b.Kind(), "prepare", zerr.With(zerr.New("build step has no command"), "step", i+1))
		}
		if _, err := within(job.SourceDir, step.Dir); err != nil {
			return fail(b.Kind(), "prepare", zerr.With(err, "step", i+1))
		}
	}
	return nil
}

// Build runs the steps in order and stops at the first failure.
func (b *CustomScript) Build(ctx context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.CustomScriptSpec](job, b.Kind())
	if err != nil {
		return err
	}
	if err := ensureLayout(job.Staging.Layout); err != nil {
		return fail(b.Kind(), "build", err)
	}

	base := layoutEnv(job.Staging.Layout)
	for _, step := range spec.Steps {
		dir, err := within(job.SourceDir, step.Dir)
		if err != nil {
			return fail(b.Kind(), "build", err)
		}
		env := slices.Clone(base)
		for _, k := range slices.Sorted(maps.Keys(step.Env)) {
			env = append(env, k+"="+step.Env[k])
		}
		cmd := ports.Command{
			Name: tool(job, step.Run[0]),
			Args: slices.Clone(step.Run[1:]),
			Dir:  dir,
			Env:  env,
		}
		if err := run(ctx, job, b.Kind(), cmd); err != nil {
			return err
		}
	}
	return nil
}

// Install implements ports.Backend. The steps already wrote the layout.
func (b *CustomScript) Install(context.Context, *ports.BuildJob) error {
	return nil
}

func layoutEnv(l domain.InstallLayout) []string {
	return []string{
		"PREFIX=" + l.Root,
		"LUADIR=" + l.Src,
		"LIBDIR=" + l.Lib,
		"BINDIR=" + l.Bin,
		"CONFDIR=" + l.Conf,
		"ETCDIR=" + l.Etc,
		"DOCDIR=" + l.Doc,
	}
}
