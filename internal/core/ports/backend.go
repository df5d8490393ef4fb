package ports

import (
	"context"
	"io"

	"go.trai.ch/rocks/internal/core/domain"
)

// BuildJob is everything a backend needs to build one package.
type BuildJob struct {
	Package   *domain.ResolvedPackage
	Spec      domain.BuildSpec
	SourceDir string
	Staging   *domain.Staging
	Toolchain *domain.Toolchain
	Runner    CommandRunner
	// Env is added to the environment of every tool the backend runs.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Backend turns a fetched source tree into an installed layout.
//
//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks
type Backend interface {
	// Kind returns the build kind the backend serves.
	Kind() domain.BuildKind

	// Requirements lists what must be detected on the host before Prepare runs.
	Requirements(spec domain.BuildSpec) domain.ToolchainRequirements

	// Prepare checks the source tree and generates anything Build needs.
	Prepare(ctx context.Context, job *BuildJob) error

	// Build compiles the package.
	Build(ctx context.Context, job *BuildJob) error

	// Install copies the results into job.Staging.Layout.
	Install(ctx context.Context, job *BuildJob) error
}
