// Package index implements the package index port over memory, a YAML
// snapshot file and an HTTP JSON endpoint.
package index

import (
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/zerr"
)

// VersionDTO is one published version as snapshot files and the HTTP
// index describe it.
type VersionDTO struct {
	Version           string         `yaml:"version"                      json:"version"`
	Integrity         string         `yaml:"integrity,omitempty"          json:"integrity,omitempty"`
	Artifact          string         `yaml:"artifact,omitempty"           json:"artifact,omitempty"`
	Source            *domain.Source `yaml:"source,omitempty"             json:"source,omitempty"`
	Dependencies      []string       `yaml:"dependencies,omitempty"       json:"dependencies,omitempty"`
	BuildDependencies []string       `yaml:"build_dependencies,omitempty" json:"build_dependencies,omitempty"`
	Build             map[string]any `yaml:"build,omitempty"              json:"build,omitempty"`
}

// PackageDTO is the HTTP index response for one package name.
type PackageDTO struct {
	Name     string       `json:"name"`
	Versions []VersionDTO `json:"versions"`
}

// toEntries converts the DTOs of name in their listed order.
func toEntries(name string, versions []VersionDTO) ([]domain.IndexEntry, error) {
	entries := make([]domain.IndexEntry, 0, len(versions))
	for _, dto := range versions {
		entry, err := dto.toEntry(name)
		if err != nil {
			return nil, zerr.With(zerr.With(err, "package", name), "version", dto.Version)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (dto VersionDTO) toEntry(name string) (domain.IndexEntry, error) {
	v, err := domain.ParseVersion(dto.Version)
	if err != nil {
		return domain.IndexEntry{}, err
	}

	entry := domain.IndexEntry{
		Name:      name,
		Version:   v,
		Source:    domain.IndexSource(),
		Artifact:  dto.Artifact,
		Integrity: dto.Integrity,
	}
	if dto.Source != nil {
		if err := dto.Source.Validate(); err != nil {
			return domain.IndexEntry{}, err
		}
		entry.Source = *dto.Source
	}

	if entry.Dependencies, err = parseSpecs(dto.Dependencies); err != nil {
		return domain.IndexEntry{}, err
	}
	if entry.BuildDependencies, err = parseSpecs(dto.BuildDependencies); err != nil {
		return domain.IndexEntry{}, err
	}

	if dto.Build != nil {
		if entry.Build, err = domain.BuildSpecFromMap(dto.Build); err != nil {
			return domain.IndexEntry{}, err
		}
	}
	return entry, nil
}

func parseSpecs(raw []string) ([]domain.PackageSpec, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	specs := make([]domain.PackageSpec, 0, len(raw))
	for _, s := range raw {
		spec, err := domain.ParsePackageSpec(s)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
