package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

const (
	// ScopeRuntime holds the project's regular dependencies.
	ScopeRuntime = "runtime"
	// ScopeTest holds dependencies needed only to run the project's tests.
	ScopeTest = "test"
	// ScopeBuild holds dependencies needed only to build the project.
	ScopeBuild = "build"
)

// ManifestScopes lists the manifest scopes in resolution order.
func ManifestScopes() []string {
	return []string{ScopeRuntime, ScopeTest, ScopeBuild}
}

// Manifest is the project's declaration of what it depends on.
type Manifest struct {
	Name              string
	Version           string
	Dependencies      []PackageSpec
	TestDependencies  []PackageSpec
	BuildDependencies []PackageSpec
	// Build overrides the build description of named packages.
	Build map[string]BuildSpec
}

// Scope returns the requirements declared for one manifest scope.
func (m *Manifest) Scope(scope string) []PackageSpec {
	switch scope {
	case ScopeRuntime:
		return m.Dependencies
	case ScopeTest:
		return m.TestDependencies
	case ScopeBuild:
		return m.BuildDependencies
	default:
		return nil
	}
}

// SetScope replaces the requirements of one manifest scope.
func (m *Manifest) SetScope(scope string, specs []PackageSpec) {
	switch scope {
	case ScopeRuntime:
		m.Dependencies = specs
	case ScopeTest:
		m.TestDependencies = specs
	case ScopeBuild:
		m.BuildDependencies = specs
	}
}

// Validate checks names, sources and duplicate declarations.
func (m *Manifest) Validate() error {
	for _, scope := range ManifestScopes() {
		seen := make(map[string]bool)
		for _, spec := range m.Scope(scope) {
			if err := ValidatePackageName(spec.Name); err != nil {
				return zerr.With(zerr.Wrap(ErrManifest, err.Error()), "scope", scope)
			}
			if seen[spec.Name] {
				err := zerr.With(zerr.Wrap(ErrDuplicateDependency, spec.Name), "scope", scope)
				return zerr.With(err, "package", spec.Name)
			}
			seen[spec.Name] = true
			if spec.Source != nil {
				if err := spec.Source.Validate(); err != nil {
					return zerr.With(zerr.With(err, "scope", scope), "package", spec.Name)
				}
			}
			if spec.Constraint.IsUnsatisfiable() {
				err := zerr.With(zerr.Wrap(ErrManifest, "constraint can never be satisfied"), "scope", scope)
				return zerr.With(err, "package", spec.Name)
			}
		}
	}
	return nil
}

// Upsert adds spec to scope, replacing an existing declaration of the same name.
func (m *Manifest) Upsert(scope string, spec PackageSpec) {
	specs := slices.Clone(m.Scope(scope))
	if i := slices.IndexFunc(specs, func(s PackageSpec) bool { return s.Name == spec.Name }); i >= 0 {
		specs[i] = spec
	} else {
		specs = append(specs, spec)
	}
	m.SetScope(scope, specs)
}

// Remove drops name from scope and reports whether it was declared.
func (m *Manifest) Remove(scope, name string) bool {
	specs := m.Scope(scope)
	i := slices.IndexFunc(specs, func(s PackageSpec) bool { return s.Name == name })
	if i < 0 {
		return false
	}
	m.SetScope(scope, slices.Delete(slices.Clone(specs), i, i+1))
	return true
}

// DirectNames returns the sorted names declared in scope.
func (m *Manifest) DirectNames(scope string) []string {
	var names []string
	for _, s := range m.Scope(scope) {
		names = append(names, s.Name)
	}
	slices.Sort(names)
	return names
}
