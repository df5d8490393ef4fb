package domain

import (
	"fmt"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

var (
	// ErrInvalidVersion is returned when a version string cannot be parsed.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrInvalidConstraint is returned when a version constraint cannot be parsed.
	ErrInvalidConstraint = zerr.New("invalid version constraint")

	// ErrInvalidPackageSpec is returned when a dependency declaration cannot be parsed.
	ErrInvalidPackageSpec = zerr.New("invalid package spec")

	// ErrInvalidSource is returned when a source descriptor is malformed.
	ErrInvalidSource = zerr.New("invalid source descriptor")

	// ErrManifest is returned when the project manifest is malformed.
	ErrManifest = zerr.New("manifest error")

	// ErrManifestNotFound is returned when no manifest exists in the project root.
	ErrManifestNotFound = zerr.New("could not find rocks.toml")

	// ErrDuplicateDependency is returned when a manifest declares the same name twice in one scope.
	ErrDuplicateDependency = zerr.New("dependency declared more than once")

	// ErrResolutionConflict is returned when no assignment satisfies every constraint.
	ErrResolutionConflict = zerr.New("resolution conflict")

	// ErrCycleDetected is returned when a cycle is detected in the dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrPackageNotFound is returned when the index knows nothing about a package.
	ErrPackageNotFound = zerr.New("package not found in index")

	// ErrIndexUnavailable is returned when no package index is configured or reachable.
	ErrIndexUnavailable = zerr.New("package index unavailable")

	// ErrDuplicateNode is returned when a graph already holds a node with the same identity.
	ErrDuplicateNode = zerr.New("package already present in graph")

	// ErrMissingDependency is returned when a node references a dependency that is not in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrNodeNotFound is returned when a requested package identity is not in the graph.
	ErrNodeNotFound = zerr.New("package not found in graph")

	// ErrLockfileCorrupt is returned when the lockfile cannot be decoded or is inconsistent.
	ErrLockfileCorrupt = zerr.New("lockfile is corrupt")

	// ErrSchemaVersionMismatch is returned when the lockfile was written with another schema.
	ErrSchemaVersionMismatch = zerr.New("lockfile schema version mismatch")

	// ErrLockfileNotFound is returned when a build is requested without a lockfile.
	ErrLockfileNotFound = zerr.New("lockfile not found, run rocks lock first")

	// ErrLockfileOutdated is returned when a build is requested but the lockfile no longer matches the manifest.
	ErrLockfileOutdated = zerr.New("lockfile is out of date with the manifest")

	// ErrIntegrityMismatch is returned when an artifact's hash differs from the locked hash.
	ErrIntegrityMismatch = zerr.New("integrity mismatch")

	// ErrUnresolvedExternalDependency is returned when a toolchain component or native library cannot be located.
	ErrUnresolvedExternalDependency = zerr.New("unresolved external dependency")

	// ErrBuildToolFailure is returned when a backend's underlying tool fails.
	ErrBuildToolFailure = zerr.New("build tool failed")

	// ErrUnknownBackend is returned when no backend is registered for a build kind.
	ErrUnknownBackend = zerr.New("no backend registered for build kind")

	// ErrUnknownBuildKind is returned when a build spec names an unknown variant.
	ErrUnknownBuildKind = zerr.New("unknown build kind")

	// ErrSkipped marks a node that was never attempted because a dependency failed.
	ErrSkipped = zerr.New("skipped because a dependency failed")

	// ErrCancelled marks a node that was never dispatched because the build was cancelled.
	ErrCancelled = zerr.New("build cancelled before dispatch")

	// ErrBusy is returned when another process holds the project lock.
	ErrBusy = zerr.New("project is locked by another process")

	// ErrTimeout is returned when a build exceeds its deadline.
	ErrTimeout = zerr.New("build timed out")

	// ErrBuildFailed is returned when at least one node did not succeed.
	ErrBuildFailed = zerr.New("build failed")

	// ErrPathOutsideRoot is returned when a path escapes the directory it must stay in.
	ErrPathOutsideRoot = zerr.New("path is outside its root directory")

	// ErrSourceFetchFailed is returned when a package's source cannot be acquired.
	ErrSourceFetchFailed = zerr.New("failed to fetch package source")

	// ErrInstallTreeFailed is returned when the install tree cannot be updated.
	ErrInstallTreeFailed = zerr.New("failed to update install tree")

	// ErrNotInstalled is returned when a package has no published install.
	ErrNotInstalled = zerr.New("package is not installed")

	// ErrLoaderEntryNotFound is returned when the loader table has no entry for a scope and name.
	ErrLoaderEntryNotFound = zerr.New("no install path for package in scope")
)

// Requirer describes one constraint placed on a name and the chain of
// requirers that led to it, starting at the scope root.
type Requirer struct {
	Chain      []string
	Constraint string
}

func (r Requirer) String() string {
	return strings.Join(r.Chain, " -> ") + " requires " + r.Constraint
}

// ConflictError reports an unsatisfiable constraint on a package name.
type ConflictError struct {
	Scope      string
	Name       string
	Constraint string
	Requirers  []Requirer
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolution conflict on %s (%s) in scope %s", e.Name, e.Constraint, e.Scope)
	for _, r := range e.Requirers {
		b.WriteString("\n  ")
		b.WriteString(r.String())
	}
	return b.String()
}

// Unwrap returns the sentinel for classification with errors.Is.
func (e *ConflictError) Unwrap() error { return ErrResolutionConflict }

// CycleError reports a dependency cycle. Path starts and ends at the same name.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// Unwrap returns the sentinel for classification with errors.Is.
func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// SchemaVersionError reports a lockfile written with an unsupported schema.
type SchemaVersionError struct {
	Found    int
	Expected int
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("lockfile schema version %d is not supported (expected %d), regenerate the lockfile",
		e.Found, e.Expected)
}

// Unwrap returns the sentinel for classification with errors.Is.
func (e *SchemaVersionError) Unwrap() error { return ErrSchemaVersionMismatch }

// CorruptLockfileError reports a lockfile that cannot be turned into a graph.
type CorruptLockfileError struct {
	Reason string
	Err    error
}

func (e *CorruptLockfileError) Error() string {
	if e.Err != nil {
		return "lockfile is corrupt: " + e.Reason + ": " + e.Err.Error()
	}
	return "lockfile is corrupt: " + e.Reason
}

// Unwrap returns the sentinel and the underlying cause.
func (e *CorruptLockfileError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLockfileCorrupt, e.Err}
	}
	return []error{ErrLockfileCorrupt}
}

// IntegrityError reports an artifact whose content hash differs from the lockfile.
type IntegrityError struct {
	Package  PackageID
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity mismatch for %s: expected %q, got %q", e.Package, e.Expected, e.Actual)
}

// Unwrap returns the sentinel for classification with errors.Is.
func (e *IntegrityError) Unwrap() error { return ErrIntegrityMismatch }

// ExternalDependencyError reports a toolchain component or native library
// that could not be located.
type ExternalDependencyError struct {
	Package    PackageID
	Dependency string
	Tried      []string
}

func (e *ExternalDependencyError) Error() string {
	msg := "unresolved external dependency " + e.Dependency
	if e.Package != "" {
		msg += " for " + string(e.Package)
	}
	if len(e.Tried) > 0 {
		msg += " (tried " + strings.Join(e.Tried, ", ") + ")"
	}
	return msg
}

// Unwrap returns the sentinel for classification with errors.Is.
func (e *ExternalDependencyError) Unwrap() error { return ErrUnresolvedExternalDependency }

// BuildToolError reports a failing backend tool. ExitCode is -1 when no
// process exit status is available.
type BuildToolError struct {
	Backend    BuildKind
	Tool       string
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *BuildToolError) Error() string {
	msg := fmt.Sprintf("%s backend: %s failed with exit status %d", e.Backend, e.Tool, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the sentinel and the underlying cause.
func (e *BuildToolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrBuildToolFailure, e.Err}
	}
	return []error{ErrBuildToolFailure}
}

// TimeoutError reports a build that exceeded its deadline.
type TimeoutError struct {
	Package PackageID
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("build of %s timed out after %s", e.Package, e.After)
}

// Unwrap returns the sentinel for classification with errors.Is.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// BusyError reports lock contention on the project state.
type BusyError struct {
	Path   string
	Holder string
}

func (e *BusyError) Error() string {
	if e.Holder != "" {
		return fmt.Sprintf("project is locked by another process (%s): %s", e.Holder, e.Path)
	}
	return "project is locked by another process: " + e.Path
}

// Unwrap returns the sentinel for classification with errors.Is.
func (e *BusyError) Unwrap() error { return ErrBusy }

// VerifyIntegrity compares a recomputed hash with the locked one. It fails
// closed: an empty expectation is a mismatch too.
func VerifyIntegrity(id PackageID, expected, actual string) error {
	if expected == "" || expected != actual {
		return &IntegrityError{Package: id, Expected: expected, Actual: actual}
	}
	return nil
}
