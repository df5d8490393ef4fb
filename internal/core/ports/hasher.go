package ports

import "go.trai.ch/rocks/internal/core/domain"

// Hasher computes content integrity and build fingerprints.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// Fingerprint summarises every build input of pkg other than its source:
	// build spec, dependency identities and tool environment.
	Fingerprint(pkg *domain.ResolvedPackage, env []string) (string, error)

	// DirectoryIntegrity returns the integrity of a directory tree.
	DirectoryIntegrity(dir string) (string, error)

	// FileIntegrity returns the integrity of a single file.
	FileIntegrity(path string) (string, error)
}
