package ports

import "go.trai.ch/rocks/internal/core/domain"

// InstallTree stores built packages, one directory per identity.
//
//go:generate go run go.uber.org/mock/mockgen -source=tree.go -destination=mocks/mock_tree.go -package=mocks
type InstallTree interface {
	// Path returns the directory a published identity lives in.
	Path(id domain.PackageID) string

	// Lookup returns the published entry for id. Returns nil, nil if absent.
	Lookup(id domain.PackageID) (*domain.InstallEntry, error)

	// Stage creates a fresh private staging directory for pkg.
	Stage(pkg *domain.ResolvedPackage) (*domain.Staging, error)

	// Publish atomically moves the staged layout to its final location and
	// returns that location.
	Publish(staging *domain.Staging, entry domain.InstallEntry) (string, error)

	// Discard removes a staging directory and everything in it.
	Discard(staging *domain.Staging) error

	// List returns every published entry.
	List() ([]domain.InstallEntry, error)

	// Remove deletes a published identity.
	Remove(id domain.PackageID) error
}

// Packer archives published packages for redistribution.
type Packer interface {
	// Pack writes the published layout of id as a rock archive into destDir
	// and returns the archive path.
	Pack(id domain.PackageID, destDir string) (string, error)
}
