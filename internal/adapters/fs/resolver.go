package fs

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver implements the InputResolver interface using doublestar globs.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveInputs expands the given patterns relative to root. Patterns may
// use "**". A literal path that does not exist is an error; a glob that
// matches nothing is not. Only regular files are returned, as sorted
// slash-separated paths relative to root.
func (r *Resolver) ResolveInputs(inputs []string, root string) ([]string, error) {
	fsys := os.DirFS(root)
	uniquePaths := make(map[string]bool)

	for _, input := range inputs {
		pattern := filepath.ToSlash(filepath.Clean(input))
		if !doublestar.ValidatePattern(pattern) {
			return nil, zerr.With(zerr.New("invalid glob pattern"), "pattern", input)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "pattern", input)
		}

		if len(matches) == 0 && !hasMeta(pattern) {
			return nil, zerr.With(zerr.New("input not found"), "path", filepath.Join(root, input))
		}

		for _, match := range matches {
			uniquePaths[match] = true
		}
	}

	result := make([]string, 0, len(uniquePaths))
	for path := range uniquePaths {
		result = append(result, path)
	}
	slices.Sort(result)

	return result, nil
}

func hasMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
