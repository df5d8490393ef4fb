package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// SourceKind names where a package's source comes from.
type SourceKind string

const (
	// SourceIndex is a package published in the package index.
	SourceIndex SourceKind = "index"
	// SourceGit is a package cloned from a git repository.
	SourceGit SourceKind = "git"
	// SourcePath is a package read from a local directory.
	SourcePath SourceKind = "path"
	// SourceArchive is a package downloaded as a tar.gz archive.
	SourceArchive SourceKind = "archive"
)

// Source describes where a package's source is acquired from.
type Source struct {
	Kind SourceKind `json:"kind"`
	URL  string     `json:"url,omitempty"`
	Ref  string     `json:"ref,omitempty"`
}

// IndexSource returns the source descriptor for index packages.
func IndexSource() Source {
	return Source{Kind: SourceIndex}
}

// IsIndex reports whether the source is the package index.
func (s Source) IsIndex() bool {
	return s.Kind == "" || s.Kind == SourceIndex
}

// Same reports whether s and other denote the same source.
func (s Source) Same(other Source) bool {
	if s.IsIndex() || other.IsIndex() {
		return s.IsIndex() && other.IsIndex()
	}
	return s == other
}

// String renders the source as a single token.
func (s Source) String() string {
	switch {
	case s.IsIndex():
		return string(SourceIndex)
	case s.Ref != "":
		return string(s.Kind) + "+" + s.URL + "#" + s.Ref
	default:
		return string(s.Kind) + "+" + s.URL
	}
}

// Validate checks that the descriptor is usable.
func (s Source) Validate() error {
	switch s.Kind {
	case "", SourceIndex:
		return nil
	case SourceGit, SourcePath, SourceArchive:
		if s.URL == "" {
			return zerr.With(zerr.Wrap(ErrInvalidSource, "missing url"), "kind", string(s.Kind))
		}
		return nil
	default:
		return zerr.With(zerr.Wrap(ErrInvalidSource, "unknown kind"), "kind", string(s.Kind))
	}
}

// PackageID is the identity of a resolved package: name, version and,
// for packages not taken from the index, a short hash of the source.
type PackageID string

// NewPackageID builds the identity for name at version from source.
func NewPackageID(name string, v Version, source Source) PackageID {
	id := name + "@" + v.String()
	if !source.IsIndex() {
		id += "#" + fmt.Sprintf("%016x", xxhash.Sum64String(source.String()))[:8]
	}
	return PackageID(id)
}

// Name returns the package name part of the identity.
func (id PackageID) Name() string {
	name, _, _ := strings.Cut(string(id), "@")
	return name
}

func (id PackageID) String() string {
	return string(id)
}

// DependencyKind distinguishes runtime edges from build-time edges.
type DependencyKind string

const (
	// DependencyRuntime is needed when the package is loaded.
	DependencyRuntime DependencyKind = "runtime"
	// DependencyBuild is only needed while the package is built.
	DependencyBuild DependencyKind = "build"
)

// Dependency is an edge from a resolved package to the node chosen for one
// of its requirements.
type Dependency struct {
	Name       string
	ID         PackageID
	Kind       DependencyKind
	Constraint Constraint
}

// ResolvedPackage is a node of the resolved graph.
type ResolvedPackage struct {
	ID           PackageID
	Name         InternedString
	Version      Version
	Source       Source
	Artifact     string
	Integrity    string
	Build        BuildSpec
	Dependencies []Dependency
	Pinned       bool
	Entrypoint   bool
	Scopes       []string
}

// DependencyIDs returns the identities this package depends on, in
// declaration order and without duplicates.
func (p *ResolvedPackage) DependencyIDs() []PackageID {
	ids := make([]PackageID, 0, len(p.Dependencies))
	for _, d := range p.Dependencies {
		if !slices.Contains(ids, d.ID) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// AddScope records that scope chose this package.
func (p *ResolvedPackage) AddScope(scope string) {
	if slices.Contains(p.Scopes, scope) {
		return
	}
	p.Scopes = append(p.Scopes, scope)
	slices.Sort(p.Scopes)
}

// BuildSpecOrDefault returns the package's build spec, falling back to the
// default backend.
func (p *ResolvedPackage) BuildSpecOrDefault() BuildSpec {
	if p.Build == nil {
		return &DefaultSpec{}
	}
	return p.Build
}

// PackageSpec is a declared requirement on a package name.
type PackageSpec struct {
	Name       string
	Constraint Constraint
	Source     *Source
	Pin        bool
}

// SourceOrIndex returns the declared source, or the index when none was given.
func (s PackageSpec) SourceOrIndex() Source {
	if s.Source == nil {
		return IndexSource()
	}
	return *s.Source
}

func (s PackageSpec) String() string {
	if s.Constraint.IsAny() {
		return s.Name
	}
	return s.Name + " " + s.Constraint.String()
}

// ParsePackageSpec parses "name", "name <constraint>" or "name@version".
func ParsePackageSpec(s string) (PackageSpec, error) {
	trimmed := strings.TrimSpace(s)
	if name, version, ok := strings.Cut(trimmed, "@"); ok {
		v, err := ParseVersion(version)
		if err != nil {
			return PackageSpec{}, zerr.With(zerr.Wrap(ErrInvalidPackageSpec, err.Error()), "spec", s)
		}
		if err := ValidatePackageName(name); err != nil {
			return PackageSpec{}, zerr.With(err, "spec", s)
		}
		return PackageSpec{Name: name, Constraint: Exact(v)}, nil
	}

	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return strings.ContainsRune(" \t=<>!~^*,", r)
	})
	name, rest := trimmed, ""
	if end >= 0 {
		name, rest = trimmed[:end], trimmed[end:]
	}
	if err := ValidatePackageName(name); err != nil {
		return PackageSpec{}, zerr.With(err, "spec", s)
	}
	c, err := ParseConstraint(rest)
	if err != nil {
		return PackageSpec{}, zerr.With(zerr.Wrap(ErrInvalidPackageSpec, err.Error()), "spec", s)
	}
	return PackageSpec{Name: name, Constraint: c}, nil
}

// ValidatePackageName checks that name is a usable package name.
func ValidatePackageName(name string) error {
	if name == "" {
		return zerr.Wrap(ErrInvalidPackageSpec, "empty package name")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return zerr.With(zerr.Wrap(ErrInvalidPackageSpec, "invalid character in package name"), "name", name)
		}
	}
	return nil
}
