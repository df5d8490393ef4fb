package fs

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/opencontainers/go-digest"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

// integrityPrefix is the subresource-integrity algorithm tag.
const integrityPrefix = "sha256-"

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes content integrity (sha256, SRI encoded) and build
// fingerprints (xxhash).
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// Fingerprint summarises the build spec, the dependency identities and the
// tool environment of pkg. The source itself is covered by its integrity.
func (h *Hasher) Fingerprint(pkg *domain.ResolvedPackage, env []string) (string, error) {
	hasher := xxhash.New()

	_, _ = hasher.WriteString(pkg.ID.String())
	_, _ = hasher.Write([]byte{0})

	spec, err := domain.MarshalBuildSpec(pkg.BuildSpecOrDefault())
	if err != nil {
		return "", zerr.With(err, "package", pkg.ID.String())
	}
	_, _ = hasher.Write(spec)
	_, _ = hasher.Write([]byte{0})

	deps := pkg.DependencyIDs()
	slices.Sort(deps)
	for _, dep := range deps {
		_, _ = hasher.WriteString(dep.String())
		_, _ = hasher.Write([]byte{0})
	}
	_, _ = hasher.Write([]byte{0})

	sorted := slices.Clone(env)
	slices.Sort(sorted)
	for _, kv := range sorted {
		_, _ = hasher.WriteString(kv)
		_, _ = hasher.Write([]byte{0})
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// FileIntegrity returns the SRI integrity of a single file.
func (h *Hasher) FileIntegrity(path string) (string, error) {
	d := digest.SHA256.Digester()
	if err := copyFile(d.Hash(), path); err != nil {
		return "", err
	}
	return encodeIntegrity(d), nil
}

// DirectoryIntegrity returns the SRI integrity of a directory tree. Each
// file contributes its relative path, its executable bit and its content,
// ordered by relative path, so the result does not depend on where the tree
// lives.
func (h *Hasher) DirectoryIntegrity(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to stat source"), "path", dir)
	}
	if !info.IsDir() {
		return h.FileIntegrity(dir)
	}

	d := digest.SHA256.Digester()
	w := d.Hash()
	for rel, err := range h.walker.WalkFiles(dir, nil) {
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, "failed to walk source"), "path", dir)
		}
		if rel == domain.EntryFileName {
			continue
		}

		path := filepath.Join(dir, filepath.FromSlash(rel))
		fi, err := os.Stat(path)
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, "failed to stat file"), "path", path)
		}
		mode := "-"
		if fi.Mode()&0o111 != 0 {
			mode = "x"
		}

		_, _ = io.WriteString(w, rel)
		_, _ = w.Write([]byte{0})
		_, _ = io.WriteString(w, mode)
		_, _ = w.Write([]byte{0})
		_, _ = fmt.Fprintf(w, "%d", fi.Size())
		_, _ = w.Write([]byte{0})
		if err := copyFile(w, path); err != nil {
			return "", err
		}
	}
	return encodeIntegrity(d), nil
}

// ParseIntegrity returns the raw digest bytes of an SRI string.
func ParseIntegrity(s string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(s, integrityPrefix)
	if !ok {
		return nil, zerr.With(zerr.New("unsupported integrity algorithm"), "integrity", s)
	}
	sum, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "malformed integrity"), "integrity", s)
	}
	return sum, nil
}

func encodeIntegrity(d digest.Digester) string {
	return integrityPrefix + base64.StdEncoding.EncodeToString(d.Hash().Sum(nil))
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	if _, err := io.Copy(w, f); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return nil
}
