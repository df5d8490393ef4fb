package config

import (
	"bytes"
	"encoding/json"
	"errors"
	iofs "io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"go.trai.ch/rocks/internal/adapters/fs"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ManifestLoader = (*ManifestLoader)(nil)

// ManifestLoader implements ports.ManifestLoader for rocks.toml.
type ManifestLoader struct{}

// NewManifestLoader creates a new ManifestLoader.
func NewManifestLoader() *ManifestLoader {
	return &ManifestLoader{}
}

// Rocksfile is the on-disk structure of rocks.toml.
type Rocksfile struct {
	Package           PackageDTO                `toml:"package"`
	Dependencies      map[string]DependencyDTO  `toml:"dependencies"`
	TestDependencies  map[string]DependencyDTO  `toml:"test_dependencies"`
	BuildDependencies map[string]DependencyDTO  `toml:"build_dependencies"`
	Build             map[string]map[string]any `toml:"build"`
}

// PackageDTO describes the project itself.
type PackageDTO struct {
	Name    string `toml:"name"`
	Version string `toml:"version,omitempty"`
}

// DependencyDTO is one dependency declaration. In the file it is either a
// bare constraint string or a table.
type DependencyDTO struct {
	Version string `toml:"version,omitempty"`
	Pin     bool   `toml:"pin,omitempty"`
	Git     string `toml:"git,omitempty"`
	Rev     string `toml:"rev,omitempty"`
	Path    string `toml:"path,omitempty"`
	Archive string `toml:"archive,omitempty"`
}

// UnmarshalTOML implements toml.Unmarshaler.
func (d *DependencyDTO) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*d = DependencyDTO{Version: v}
		return nil
	case map[string]any:
		for key, raw := range v {
			switch key {
			case "pin":
				b, ok := raw.(bool)
				if !ok {
					return zerr.With(zerr.New("dependency field must be a boolean"), "field", key)
				}
				d.Pin = b
			case "version", "git", "rev", "path", "archive":
				s, ok := raw.(string)
				if !ok {
					return zerr.With(zerr.New("dependency field must be a string"), "field", key)
				}
				d.setString(key, s)
			default:
				return zerr.With(zerr.New("unknown dependency field"), "field", key)
			}
		}
		return nil
	default:
		return zerr.New("dependency must be a version string or a table")
	}
}

func (d *DependencyDTO) setString(key, value string) {
	switch key {
	case "version":
		d.Version = value
	case "git":
		d.Git = value
	case "rev":
		d.Rev = value
	case "path":
		d.Path = value
	case "archive":
		d.Archive = value
	}
}

// Load reads rocks.toml from root.
func (l *ManifestLoader) Load(root string) (*domain.Manifest, error) {
	path := filepath.Join(root, domain.ManifestFileName)
	//nolint:gosec // Path is the project manifest
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestNotFound, root), "path", path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read manifest"), "path", path)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates a rocks.toml document.
func ParseManifest(data []byte) (*domain.Manifest, error) {
	var file Rocksfile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, zerr.Wrap(domain.ErrManifest, "failed to parse rocks.toml: "+err.Error())
	}

	m := &domain.Manifest{
		Name:    file.Package.Name,
		Version: file.Package.Version,
	}
	for _, scope := range []struct {
		name string
		deps map[string]DependencyDTO
	}{
		{domain.ScopeRuntime, file.Dependencies},
		{domain.ScopeTest, file.TestDependencies},
		{domain.ScopeBuild, file.BuildDependencies},
	} {
		specs := make([]domain.PackageSpec, 0, len(scope.deps))
		for _, name := range slices.Sorted(maps.Keys(scope.deps)) {
			spec, err := scope.deps[name].toSpec(name)
			if err != nil {
				return nil, zerr.With(zerr.With(err, "scope", scope.name), "package", name)
			}
			specs = append(specs, spec)
		}
		m.SetScope(scope.name, specs)
	}

	if len(file.Build) > 0 {
		m.Build = make(map[string]domain.BuildSpec, len(file.Build))
		for name, raw := range file.Build {
			spec, err := domain.BuildSpecFromMap(raw)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(domain.ErrManifest, err.Error()), "package", name)
			}
			m.Build[name] = spec
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d DependencyDTO) toSpec(name string) (domain.PackageSpec, error) {
	c, err := domain.ParseConstraint(d.Version)
	if err != nil {
		return domain.PackageSpec{}, zerr.Wrap(domain.ErrManifest, err.Error())
	}
	spec := domain.PackageSpec{Name: name, Constraint: c, Pin: d.Pin}

	var sources []domain.Source
	if d.Git != "" {
		sources = append(sources, domain.Source{Kind: domain.SourceGit, URL: d.Git, Ref: d.Rev})
	}
	if d.Path != "" {
		sources = append(sources, domain.Source{Kind: domain.SourcePath, URL: d.Path})
	}
	if d.Archive != "" {
		sources = append(sources, domain.Source{Kind: domain.SourceArchive, URL: d.Archive})
	}
	switch {
	case len(sources) > 1:
		return domain.PackageSpec{}, zerr.Wrap(domain.ErrManifest, "only one of git, path and archive may be set")
	case len(sources) == 1:
		spec.Source = &sources[0]
	case d.Rev != "":
		return domain.PackageSpec{}, zerr.Wrap(domain.ErrManifest, "rev requires git")
	}
	return spec, nil
}

// Save writes m to rocks.toml in root. Comments of an existing file are not
// preserved.
func (l *ManifestLoader) Save(root string, m *domain.Manifest) error {
	data, err := EncodeManifest(m)
	if err != nil {
		return err
	}
	path := filepath.Join(root, domain.ManifestFileName)
	return fs.WriteFileAtomic(path, data)
}

// EncodeManifest renders m as a rocks.toml document.
func EncodeManifest(m *domain.Manifest) ([]byte, error) {
	out := struct {
		Package           PackageDTO                `toml:"package"`
		Dependencies      map[string]any            `toml:"dependencies,omitempty"`
		TestDependencies  map[string]any            `toml:"test_dependencies,omitempty"`
		BuildDependencies map[string]any            `toml:"build_dependencies,omitempty"`
		Build             map[string]map[string]any `toml:"build,omitempty"`
	}{
		Package:           PackageDTO{Name: m.Name, Version: m.Version},
		Dependencies:      encodeScope(m.Dependencies),
		TestDependencies:  encodeScope(m.TestDependencies),
		BuildDependencies: encodeScope(m.BuildDependencies),
	}

	if len(m.Build) > 0 {
		out.Build = make(map[string]map[string]any, len(m.Build))
		for name, spec := range m.Build {
			raw, err := domain.MarshalBuildSpec(spec)
			if err != nil {
				return nil, zerr.With(err, "package", name)
			}
			fields := map[string]any{}
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, zerr.With(zerr.Wrap(err, "failed to encode build override"), "package", name)
			}
			out.Build[name] = fields
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return nil, zerr.Wrap(err, "failed to encode rocks.toml")
	}
	return buf.Bytes(), nil
}

// encodeScope writes a bare constraint string where that is all there is.
func encodeScope(specs []domain.PackageSpec) map[string]any {
	if len(specs) == 0 {
		return nil
	}
	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		version := ""
		if !spec.Constraint.IsAny() {
			version = spec.Constraint.String()
		}
		if spec.Source == nil && !spec.Pin {
			out[spec.Name] = version
			continue
		}

		table := map[string]any{}
		if version != "" {
			table["version"] = version
		}
		if spec.Pin {
			table["pin"] = true
		}
		if src := spec.Source; src != nil {
			switch src.Kind {
			case domain.SourceGit:
				table["git"] = src.URL
				if src.Ref != "" {
					table["rev"] = src.Ref
				}
			case domain.SourcePath:
				table["path"] = src.URL
			case domain.SourceArchive:
				table["archive"] = src.URL
			}
		}
		out[spec.Name] = table
	}
	return out
}
