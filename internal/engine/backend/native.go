package backend

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Backend = (*NativeModule)(nil)

// NativeModule compiles C modules into shared objects with the host compiler.
type NativeModule struct {
	lua  *Default
	goos string
}

// NewNativeModule creates the native module backend. Lua files that come
// with the modules are installed through lua.
func NewNativeModule(lua *Default) *NativeModule {
	return &NativeModule{lua: lua, goos: runtime.GOOS}
}

// Kind implements ports.Backend.
func (b *NativeModule) Kind() domain.BuildKind { return domain.BuildNativeModule }

// Requirements implements ports.Backend.
func (b *NativeModule) Requirements(spec domain.BuildSpec) domain.ToolchainRequirements {
	req := domain.ToolchainRequirements{Compiler: true, RuntimeHeaders: true}
	if s, ok := spec.(*domain.NativeModuleSpec); ok {
		req.Libraries = append(req.Libraries, s.External...)
	}
	return req
}

// Prepare checks module names and that every C source is inside the tree.
func (b *NativeModule) Prepare(_ context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.NativeModuleSpec](job, b.Kind())
	if err != nil {
		return err
	}
	if len(spec.Modules) == 0 {
		return fail(b.Kind(), "prepare", zerr.New("no native modules declared"))
	}
	for _, m := range spec.Modules {
		if m.Name == "" || strings.ContainsAny(m.Name, `/\`) {
			return fail(b.Kind(), "prepare", zerr.With(zerr.New("invalid module name"), "module", m.Name))
		}
		if len(m.Sources) == 0 {
			return fail(b.Kind(), "prepare", zerr.With(zerr.New("module has no sources"), "module", m.Name))
		}
		for _, src := range m.Sources {
			p, err := within(job.SourceDir, src)
			if err != nil {
				return fail(b.Kind(), "prepare", err)
			}
			if !exists(p) {
				return fail(b.Kind(), "prepare", zerr.With(zerr.New("source file does not exist"), "path", src))
			}
		}
	}
	if !isZeroDefault(spec.Lua) {
		return b.lua.check(job.SourceDir, &spec.Lua)
	}
	return nil
}

// Build compiles and links each module in one compiler invocation.
func (b *NativeModule) Build(ctx context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.NativeModuleSpec](job, b.Kind())
	if err != nil {
		return err
	}
	cc, err := compiler(job)
	if err != nil {
		return err
	}

	var extCFlags, extLibs []string
	for _, name := range spec.External {
		lib, ok := job.Toolchain.Library(name)
		if !ok {
			return &domain.ExternalDependencyError{Package: job.Package.ID, Dependency: name}
		}
		extCFlags = append(extCFlags, lib.CFlags...)
		extLibs = append(extLibs, lib.Libs...)
	}

	for _, m := range spec.Modules {
		out := filepath.Join(job.Staging.WorkDir, "lib", modulePath(m.Name, "x.so"))
		if err := ensureDir(filepath.Dir(out)); err != nil {
			return fail(b.Kind(), "build", err)
		}
		args := b.compileArgs(job, m, extCFlags, extLibs, out)
		if err := run(ctx, job, b.Kind(), ports.Command{Name: cc, Args: args, Dir: job.SourceDir}); err != nil {
			return err
		}
	}
	return nil
}

func (b *NativeModule) compileArgs(job *ports.BuildJob, m domain.NativeModule, cflags, libs []string, out string) []string {
	args := []string{"-O2", "-fPIC"}
	if b.goos == "darwin" {
		args = append(args, "-bundle", "-undefined", "dynamic_lookup")
	} else {
		args = append(args, "-shared")
	}
	for _, inc := range job.Toolchain.RuntimeIncludes {
		args = append(args, "-I"+inc)
	}
	for _, inc := range m.Incdirs {
		args = append(args, "-I"+inc)
	}
	for _, def := range m.Defines {
		args = append(args, "-D"+def)
	}
	args = append(args, cflags...)
	args = append(args, "-o", out)
	args = append(args, m.Sources...)
	for _, dir := range m.Libdirs {
		args = append(args, "-L"+dir)
	}
	for _, lib := range m.Libraries {
		args = append(args, "-l"+lib)
	}
	return append(args, libs...)
}

// Install copies the shared objects to lib/ and the Lua files to src/.
func (b *NativeModule) Install(_ context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.NativeModuleSpec](job, b.Kind())
	if err != nil {
		return err
	}
	built := filepath.Join(job.Staging.WorkDir, "lib")
	if err := copyTree(built, job.Staging.Layout.Lib); err != nil {
		return fail(b.Kind(), "install", err)
	}
	if isZeroDefault(spec.Lua) {
		return nil
	}
	return b.lua.install(job, &spec.Lua, false)
}
