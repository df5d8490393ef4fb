package backend

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

const stubTemplate = `-- Generated by rocks for the %[1]s grammar. Do not edit.
local root = debug.getinfo(1, "S").source:sub(2):gsub("[^/]*$", "") .. %[2]q
return {
  language = %[1]q,
  parser = root .. "etc/parser/%[1]s.so",
  queries = root .. "etc/queries/%[1]s",
}
`

var _ ports.Backend = (*ParserGrammar)(nil)

// ParserGrammar builds a tree-sitter parser into a loadable object.
type ParserGrammar struct {
	resolver ports.InputResolver
	goos     string
}

// NewParserGrammar creates the grammar backend.
func NewParserGrammar(resolver ports.InputResolver) *ParserGrammar {
	return &ParserGrammar{resolver: resolver, goos: runtime.GOOS}
}

// Kind implements ports.Backend.
func (b *ParserGrammar) Kind() domain.BuildKind { return domain.BuildParserGrammar }

// Requirements implements ports.Backend.
func (b *ParserGrammar) Requirements(spec domain.BuildSpec) domain.ToolchainRequirements {
	req := domain.ToolchainRequirements{Compiler: true}
	if s, ok := spec.(*domain.ParserGrammarSpec); ok && s.Generate {
		req.GrammarCompiler = true
	}
	return req
}

func (b *ParserGrammar) grammarDir(job *ports.BuildJob, spec *domain.ParserGrammarSpec) (string, error) {
	dir, err := within(job.SourceDir, spec.Source)
	if err != nil {
		return "", fail(b.Kind(), "prepare", err)
	}
	return dir, nil
}

// Prepare generates the parser sources when asked to and checks that
// src/parser.c exists.
func (b *ParserGrammar) Prepare(ctx context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.ParserGrammarSpec](job, b.Kind())
	if err != nil {
		return err
	}
	if err := domain.ValidatePackageName(spec.Language); err != nil {
		return fail(b.Kind(), "prepare", zerr.With(err, "language", spec.Language))
	}
	dir, err := b.grammarDir(job, spec)
	if err != nil {
		return err
	}

	if spec.Generate {
		if job.Toolchain == nil || job.Toolchain.GrammarCompiler == "" {
			return &domain.ExternalDependencyError{Package: job.Package.ID, Dependency: "tree-sitter"}
		}
		cmd := ports.Command{Name: job.Toolchain.GrammarCompiler, Args: []string{"generate"}, Dir: dir}
		if err := run(ctx, job, b.Kind(), cmd); err != nil {
			return err
		}
	}

	if !exists(filepath.Join(dir, "src", "parser.c")) {
		return fail(b.Kind(), "prepare", zerr.With(zerr.New("grammar has no src/parser.c"), "dir", dir))
	}
	return nil
}

// Build compiles the parser and the optional external scanner.
func (b *ParserGrammar) Build(ctx context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.ParserGrammarSpec](job, b.Kind())
	if err != nil {
		return err
	}
	cc, err := compiler(job)
	if err != nil {
		return err
	}
	dir, err := b.grammarDir(job, spec)
	if err != nil {
		return err
	}

	out := filepath.Join(job.Staging.WorkDir, "parser", spec.Language+".so")
	if err := ensureDir(filepath.Dir(out)); err != nil {
		return fail(b.Kind(), "build", err)
	}

	args := []string{"-O2", "-fPIC"}
	if b.goos == "darwin" {
		args = append(args, "-bundle", "-undefined", "dynamic_lookup")
	} else {
		args = append(args, "-shared")
	}
	args = append(args, "-Isrc", "-o", out, filepath.Join("src", "parser.c"))
	if exists(filepath.Join(dir, "src", "scanner.c")) {
		args = append(args, filepath.Join("src", "scanner.c"))
	}
	return run(ctx, job, b.Kind(), ports.Command{Name: cc, Args: args, Dir: dir})
}

// Install places the parser under etc/parser, the queries under
// etc/queries/<language> and a Lua stub describing both under src/.
func (b *ParserGrammar) Install(_ context.Context, job *ports.BuildJob) error {
	spec, err := specAs[*domain.ParserGrammarSpec](job, b.Kind())
	if err != nil {
		return err
	}
	dir, err := b.grammarDir(job, spec)
	if err != nil {
		return err
	}
	layout := job.Staging.Layout

	parser := filepath.Join(job.Staging.WorkDir, "parser", spec.Language+".so")
	if err := copyFile(parser, filepath.Join(layout.Etc, "parser", spec.Language+".so"), 0o755); err != nil { //nolint:mnd // Shared object
		return fail(b.Kind(), "install", err)
	}

	queries := spec.Queries
	if queries == "" {
		queries = "queries"
	}
	files, err := b.resolver.ResolveInputs([]string{path.Join(filepath.ToSlash(queries), "*.scm")}, dir)
	if err != nil {
		return fail(b.Kind(), "install", err)
	}
	for _, f := range files {
		dst := filepath.Join(layout.Etc, "queries", spec.Language, path.Base(f))
		if err := copyFile(filepath.Join(dir, filepath.FromSlash(f)), dst, domain.FilePerm); err != nil {
			return fail(b.Kind(), "install", err)
		}
	}

	module := spec.Module
	if module == "" {
		module = "parser." + spec.Language
	}
	stub := filepath.Join(layout.Src, modulePath(module, "stub.lua"))
	if err := ensureDir(filepath.Dir(stub)); err != nil {
		return fail(b.Kind(), "install", err)
	}
	up := strings.Repeat("../", strings.Count(module, ".")+1)
	body := fmt.Sprintf(stubTemplate, spec.Language, up)
	if err := os.WriteFile(stub, []byte(body), domain.FilePerm); err != nil {
		return fail(b.Kind(), "install", zerr.With(zerr.Wrap(err, "failed to write binding stub"), "path", stub))
	}
	return nil
}
