package backend

import (
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

// within joins rel onto root and refuses results outside root.
func within(root, rel string) (string, error) {
	if rel == "" {
		return root, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", zerr.With(zerr.Wrap(domain.ErrPathOutsideRoot, rel), "root", root)
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

func copyFile(src, dst string, perm iofs.FileMode) error {
	in, err := os.Open(src) //nolint:gosec // Path is inside the package source tree
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open file"), "path", src)
	}
	defer in.Close() //nolint:errcheck // Best effort close in defer

	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", filepath.Dir(dst))
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // Staging path
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create file"), "path", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, "failed to copy file"), "path", dst)
	}
	return out.Close()
}

// copyTree copies every regular file below src into dst, keeping modes.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, domain.DirPerm)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// specAs narrows the job's spec to the variant a backend serves.
func specAs[T domain.BuildSpec](job *ports.BuildJob, kind domain.BuildKind) (T, error) {
	spec, ok := job.Spec.(T)
	if !ok {
		var zero T
		err := zerr.With(zerr.Wrap(domain.ErrUnknownBuildKind, "build spec does not match backend"), "backend", string(kind))
		return zero, err
	}
	return spec, nil
}

// fail reports a backend failure that is not a tool exit.
func fail(kind domain.BuildKind, step string, err error) error {
	return &domain.BuildToolError{Backend: kind, Tool: step, ExitCode: -1, Err: err}
}

// run executes cmd for job and attributes tool failures to the backend.
// Context errors pass through untouched so the caller can tell a timeout
// or cancellation from a tool failure.
func run(ctx context.Context, job *ports.BuildJob, kind domain.BuildKind, cmd ports.Command) error {
	cmd.Env = append(slices.Clone(job.Env), cmd.Env...)
	if cmd.Stdout == nil {
		cmd.Stdout = job.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = job.Stderr
	}

	err := job.Runner.Run(ctx, cmd)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	var toolErr *domain.BuildToolError
	if errors.As(err, &toolErr) {
		if toolErr.Backend == "" {
			toolErr.Backend = kind
		}
		if toolErr.Tool == "" {
			toolErr.Tool = cmd.Name
		}
		return toolErr
	}
	return &domain.BuildToolError{Backend: kind, Tool: cmd.Name, ExitCode: -1, Err: err}
}

// compiler returns the detected C compiler or the missing-dependency error.
func compiler(job *ports.BuildJob) (string, error) {
	if job.Toolchain == nil || job.Toolchain.Compiler == "" {
		return "", &domain.ExternalDependencyError{Package: job.Package.ID, Dependency: "C compiler"}
	}
	return job.Toolchain.Compiler, nil
}

// tool returns the detected path of name, or name itself for PATH lookup.
func tool(job *ports.BuildJob, name string) string {
	if path, ok := job.Toolchain.Tool(name); ok {
		return path
	}
	return name
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", dir)
	}
	return nil
}

// ensureLayout creates every directory of the staging layout.
func ensureLayout(layout domain.InstallLayout) error {
	for _, dir := range layout.Dirs() {
		if err := ensureDir(dir); err != nil {
			return err
		}
	}
	return nil
}
