package ports

import "go.trai.ch/rocks/internal/core/domain"

// ManifestLoader reads and writes the project manifest.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ManifestLoader interface {
	// Load reads the manifest in root.
	Load(root string) (*domain.Manifest, error)

	// Save writes m to the manifest in root.
	Save(root string, m *domain.Manifest) error
}

// LockfileStore persists the lockfile document.
type LockfileStore interface {
	// Load reads the lockfile in root. Returns nil, nil if there is none.
	Load(root string) (*domain.LockfileDocument, error)

	// Save atomically replaces the lockfile in root.
	Save(root string, doc *domain.LockfileDocument) error
}

// LoaderStore persists the runtime loader table.
type LoaderStore interface {
	// Save writes the table to the state directory in root.
	Save(root string, table map[string]map[string]string) error

	// Load reads the table. Returns nil, nil if there is none.
	Load(root string) (map[string]map[string]string, error)
}
