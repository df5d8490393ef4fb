// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/rocks/internal/core/domain"
)

// PackageIndex answers which versions of a package exist.
//
//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=mocks/mock_index.go -package=mocks
type PackageIndex interface {
	// Query returns every published version of name, in the index's own order.
	// It returns domain.ErrPackageNotFound when the name is unknown.
	Query(ctx context.Context, name string) ([]domain.IndexEntry, error)
}

// Fetcher acquires package sources.
type Fetcher interface {
	// Fetch places the package's source tree in dest and returns the
	// integrity of what was acquired. Content that does not match the
	// package's locked integrity is rejected with *domain.IntegrityError
	// before it is unpacked into dest.
	Fetch(ctx context.Context, pkg *domain.ResolvedPackage, dest string) (string, error)

	// Digest returns the integrity of the package's source without unpacking it.
	Digest(ctx context.Context, pkg *domain.ResolvedPackage) (string, error)
}
