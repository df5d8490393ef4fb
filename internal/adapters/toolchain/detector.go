// Package toolchain locates compilers, runtime headers, native libraries and
// build tools on the host.
package toolchain

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const pkgConfig = "pkg-config"

// runtimePackages are the pkg-config names probed for runtime headers, in
// order of preference.
var runtimePackages = []string{"lua5.4", "lua5.3", "lua5.1", "luajit", "lua"}

// compilers are tried in order when CC is not set.
var compilers = []string{"cc", "gcc", "clang"}

var _ ports.ToolchainDetector = (*Detector)(nil)

// Detector implements ports.ToolchainDetector. pkg-config runs through the
// command runner; everything else is an environment or PATH lookup.
type Detector struct {
	runner   ports.CommandRunner
	getenv   func(string) string
	lookPath func(string) (string, error)
	statDir  func(string) bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithEnv replaces the environment lookup.
func WithEnv(getenv func(string) string) Option {
	return func(d *Detector) { d.getenv = getenv }
}

// WithLookPath replaces the PATH lookup.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(d *Detector) { d.lookPath = lookPath }
}

// WithDirCheck replaces the directory existence check.
func WithDirCheck(statDir func(string) bool) Option {
	return func(d *Detector) { d.statDir = statDir }
}

// New creates a Detector.
func New(runner ports.CommandRunner, opts ...Option) *Detector {
	d := &Detector{
		runner:   runner,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		statDir: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && info.IsDir()
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect probes everything req asks for concurrently. When something is
// missing, the error names the first missing piece in the order compiler,
// runtime headers, grammar compiler, libraries, tools.
func (d *Detector) Detect(ctx context.Context, req domain.ToolchainRequirements) (*domain.Toolchain, error) {
	tc := &domain.Toolchain{
		Libraries: make(map[string]domain.ExternalLibrary, len(req.Libraries)),
		Tools:     make(map[string]string, len(req.Tools)),
	}
	if req.IsEmpty() {
		return tc, nil
	}

	var (
		mu     sync.Mutex
		probes []func(context.Context) error
	)

	if req.Compiler {
		probes = append(probes, func(context.Context) error {
			cc, err := d.compiler()
			mu.Lock()
			tc.Compiler = cc
			mu.Unlock()
			return err
		})
	}
	if req.RuntimeHeaders {
		probes = append(probes, func(ctx context.Context) error {
			incs, err := d.runtimeHeaders(ctx)
			mu.Lock()
			tc.RuntimeIncludes = incs
			mu.Unlock()
			return err
		})
	}
	if req.GrammarCompiler {
		probes = append(probes, func(context.Context) error {
			path, err := d.grammarCompiler()
			mu.Lock()
			tc.GrammarCompiler = path
			mu.Unlock()
			return err
		})
	}
	for _, name := range req.Libraries {
		probes = append(probes, func(ctx context.Context) error {
			lib, err := d.library(ctx, name)
			if err == nil {
				mu.Lock()
				tc.Libraries[name] = lib
				mu.Unlock()
			}
			return err
		})
	}
	for _, name := range req.Tools {
		probes = append(probes, func(context.Context) error {
			path, err := d.tool(name)
			if err == nil {
				mu.Lock()
				tc.Tools[name] = path
				mu.Unlock()
			}
			return err
		})
	}

	errs := make([]error, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, probe := range probes {
		g.Go(func() error {
			errs[i] = probe(gctx)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return tc, nil
}

func (d *Detector) compiler() (string, error) {
	if cc := strings.Fields(d.getenv("CC")); len(cc) > 0 {
		if path, err := d.lookPath(cc[0]); err == nil {
			return path, nil
		}
	}
	for _, name := range compilers {
		if path, err := d.lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", &domain.ExternalDependencyError{
		Dependency: "C compiler",
		Tried:      append([]string{"$CC"}, compilers...),
	}
}

func (d *Detector) runtimeHeaders(ctx context.Context) ([]string, error) {
	var tried []string
	for _, name := range runtimePackages {
		tried = append(tried, pkgConfig+" "+name)
		out, err := d.pkgConfig(ctx, "--cflags-only-I", name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		var incs []string
		for _, f := range strings.Fields(out) {
			if inc, ok := strings.CutPrefix(f, "-I"); ok && inc != "" {
				incs = append(incs, inc)
			}
		}
		// An empty list means the headers are in the default search path.
		return incs, nil
	}

	tried = append(tried, "$LUA_INCDIR")
	if dir := d.getenv("LUA_INCDIR"); dir != "" && d.statDir(dir) {
		return []string{dir}, nil
	}
	return nil, &domain.ExternalDependencyError{Dependency: "Lua headers", Tried: tried}
}

func (d *Detector) grammarCompiler() (string, error) {
	if ts := d.getenv("TREE_SITTER"); ts != "" {
		if path, err := d.lookPath(ts); err == nil {
			return path, nil
		}
	}
	if path, err := d.lookPath("tree-sitter"); err == nil {
		return path, nil
	}
	return "", &domain.ExternalDependencyError{
		Dependency: "tree-sitter",
		Tried:      []string{"$TREE_SITTER", "tree-sitter"},
	}
}

func (d *Detector) library(ctx context.Context, name string) (domain.ExternalLibrary, error) {
	out, err := d.pkgConfig(ctx, "--cflags", "--libs", name)
	if err == nil {
		lib := domain.ExternalLibrary{Name: name, Origin: pkgConfig}
		for _, f := range strings.Fields(out) {
			if strings.HasPrefix(f, "-l") || strings.HasPrefix(f, "-L") || strings.HasPrefix(f, "-Wl,") {
				lib.Libs = append(lib.Libs, f)
			} else {
				lib.CFlags = append(lib.CFlags, f)
			}
		}
		return lib, nil
	}
	if ctx.Err() != nil {
		return domain.ExternalLibrary{}, ctx.Err()
	}

	prefix := envPrefix(name)
	incdir := d.getenv(prefix + "_INCDIR")
	libdir := d.getenv(prefix + "_LIBDIR")
	if dir := d.getenv(prefix + "_DIR"); dir != "" {
		if incdir == "" {
			incdir = dir + "/include"
		}
		if libdir == "" {
			libdir = dir + "/lib"
		}
	}
	if incdir != "" && libdir != "" && d.statDir(incdir) && d.statDir(libdir) {
		return domain.ExternalLibrary{
			Name:   name,
			CFlags: []string{"-I" + incdir},
			Libs:   []string{"-L" + libdir, "-l" + name},
			Origin: "env",
		}, nil
	}

	return domain.ExternalLibrary{}, &domain.ExternalDependencyError{
		Dependency: name,
		Tried:      []string{pkgConfig + " " + name, "$" + prefix + "_DIR", "$" + prefix + "_INCDIR", "$" + prefix + "_LIBDIR"},
	}
}

func (d *Detector) tool(name string) (string, error) {
	if path, err := d.lookPath(name); err == nil {
		return path, nil
	}
	return "", &domain.ExternalDependencyError{Dependency: name, Tried: []string{"PATH"}}
}

func (d *Detector) pkgConfig(ctx context.Context, args ...string) (string, error) {
	if d.runner == nil {
		return "", zerr.New("no command runner")
	}
	var out bytes.Buffer
	err := d.runner.Run(ctx, ports.Command{Name: pkgConfig, Args: args, Stdout: &out})
	return out.String(), err
}

// envPrefix turns a library name into its environment variable prefix.
func envPrefix(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
