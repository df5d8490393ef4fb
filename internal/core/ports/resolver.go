package ports

// InputResolver expands file patterns.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type InputResolver interface {
	// ResolveInputs expands patterns relative to root into sorted relative paths.
	ResolveInputs(patterns []string, root string) ([]string, error)
}
