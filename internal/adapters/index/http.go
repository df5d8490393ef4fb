package index

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"

	"go.trai.ch/rocks/internal/adapters/httputil"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PackageIndex = (*HTTP)(nil)

// HTTP queries a remote index at <base>/<name>.json. Answers are cached for
// the life of the value, so one resolution sees one consistent index.
type HTTP struct {
	base   string
	client *httputil.Client

	mu    sync.Mutex
	cache map[string][]domain.IndexEntry
}

// NewHTTP creates an HTTP index rooted at base.
func NewHTTP(base string, client *httputil.Client) *HTTP {
	return &HTTP{
		base:   strings.TrimSuffix(base, "/"),
		client: client,
		cache:  make(map[string][]domain.IndexEntry),
	}
}

// Query implements ports.PackageIndex.
func (h *HTTP) Query(ctx context.Context, name string) ([]domain.IndexEntry, error) {
	h.mu.Lock()
	cached, ok := h.cache[name]
	h.mu.Unlock()
	if ok {
		return cached, nil
	}

	var dto PackageDTO
	err := h.client.Get(ctx, h.base+"/"+url.PathEscape(name)+".json", func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(&dto); err != nil {
			return zerr.Wrap(err, "failed to decode index response")
		}
		return nil
	})
	switch {
	case errors.Is(err, httputil.ErrNotFound):
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, name), "package", name)
	case errors.Is(err, httputil.ErrNetwork):
		return nil, zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, err.Error()), "index", h.base)
	case err != nil:
		return nil, err
	}

	entries, err := toEntries(name, dto.Versions)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.cache[name] = entries
	h.mu.Unlock()
	return entries, nil
}
