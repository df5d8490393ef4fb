package index

import (
	"context"
	"errors"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PackageIndex = (*Chain)(nil)

// Chain asks each index in turn. The first index that knows a name answers
// for it; later indexes are not merged in.
type Chain struct {
	indexes []ports.PackageIndex
}

// NewChain creates a Chain over indexes.
func NewChain(indexes ...ports.PackageIndex) *Chain {
	return &Chain{indexes: indexes}
}

// Query implements ports.PackageIndex.
func (c *Chain) Query(ctx context.Context, name string) ([]domain.IndexEntry, error) {
	if len(c.indexes) == 0 {
		return nil, zerr.Wrap(domain.ErrIndexUnavailable, "no package index configured")
	}

	available := false
	var lastErr error
	for _, idx := range c.indexes {
		entries, err := idx.Query(ctx, name)
		switch {
		case err == nil:
			return entries, nil
		case errors.Is(err, domain.ErrPackageNotFound):
			available = true
			lastErr = err
		case errors.Is(err, domain.ErrIndexUnavailable):
			if lastErr == nil {
				lastErr = err
			}
		default:
			return nil, err
		}
	}

	if available {
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, name), "package", name)
	}
	return nil, lastErr
}
