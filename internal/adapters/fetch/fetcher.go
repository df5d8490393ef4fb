// Package fetch acquires package sources from local paths, git repositories
// and tar.gz archives.
package fetch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/rocks/internal/adapters/fs"
	"go.trai.ch/rocks/internal/adapters/httputil"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fetcher = (*Fetcher)(nil)

// Fetcher implements ports.Fetcher. Archives are downloaded once into the
// artifact cache; their integrity is that of the archive file. Path and git
// sources have the integrity of their file tree.
type Fetcher struct {
	root     string
	cacheDir string
	walker   *fs.Walker
	hasher   ports.Hasher
	runner   ports.CommandRunner
	client   *httputil.Client
}

// New creates a Fetcher for the project in root.
func New(
	root, cacheDir string,
	walker *fs.Walker,
	hasher ports.Hasher,
	runner ports.CommandRunner,
	client *httputil.Client,
) *Fetcher {
	return &Fetcher{
		root:     root,
		cacheDir: cacheDir,
		walker:   walker,
		hasher:   hasher,
		runner:   runner,
		client:   client,
	}
}

// Fetch places the source of pkg in dest, which must not exist yet or be empty.
//
// When pkg carries a locked integrity, the acquired content is checked
// against it before anything lands in dest: an archive is hashed before it
// is unpacked, and a mismatch is a *domain.IntegrityError.
func (f *Fetcher) Fetch(ctx context.Context, pkg *domain.ResolvedPackage, dest string) (string, error) {
	integrity, err := f.fetch(ctx, pkg, dest)
	if err != nil {
		return "", f.wrap(err, pkg)
	}
	return integrity, nil
}

func (f *Fetcher) fetch(ctx context.Context, pkg *domain.ResolvedPackage, dest string) (string, error) {
	switch pkg.Source.Kind {
	case domain.SourcePath:
		src := f.localPath(pkg.Source.URL)
		integrity, err := f.hasher.DirectoryIntegrity(src)
		if err != nil {
			return "", err
		}
		if err := verify(pkg, integrity); err != nil {
			return "", err
		}
		if err := copyTree(f.walker, src, dest); err != nil {
			return "", err
		}
		return integrity, nil
	case domain.SourceGit:
		if err := f.clone(ctx, pkg.Source, dest); err != nil {
			return "", err
		}
		integrity, err := f.hasher.DirectoryIntegrity(dest)
		if err != nil {
			return "", err
		}
		return integrity, verify(pkg, integrity)
	default:
		archive, err := f.download(ctx, pkg)
		if err != nil {
			return "", err
		}
		integrity, err := f.hasher.FileIntegrity(archive)
		if err != nil {
			return "", err
		}
		if err := verify(pkg, integrity); err != nil {
			f.evict(archive)
			return "", err
		}
		if err := extract(archive, dest); err != nil {
			return "", err
		}
		return integrity, nil
	}
}

// verify checks integrity against the locked hash of pkg, if it has one.
func verify(pkg *domain.ResolvedPackage, integrity string) error {
	if pkg.Integrity == "" {
		return nil
	}
	return domain.VerifyIntegrity(pkg.ID, pkg.Integrity, integrity)
}

// evict drops a downloaded archive from the artifact cache so the next run
// downloads it again. Archives outside the cache are left alone.
func (f *Fetcher) evict(archive string) {
	if filepath.Dir(archive) == filepath.Clean(f.cacheDir) {
		_ = os.Remove(archive)
	}
}

// Digest returns the integrity of the source of pkg without keeping an
// unpacked copy.
func (f *Fetcher) Digest(ctx context.Context, pkg *domain.ResolvedPackage) (string, error) {
	integrity, err := f.digest(ctx, pkg)
	if err != nil {
		return "", f.wrap(err, pkg)
	}
	return integrity, nil
}

func (f *Fetcher) digest(ctx context.Context, pkg *domain.ResolvedPackage) (string, error) {
	switch pkg.Source.Kind {
	case domain.SourcePath:
		return f.hasher.DirectoryIntegrity(f.localPath(pkg.Source.URL))
	case domain.SourceGit:
		tmp, err := os.MkdirTemp("", "rocks-git-*")
		if err != nil {
			return "", zerr.Wrap(err, "failed to create temporary directory")
		}
		defer os.RemoveAll(tmp) //nolint:errcheck // Best effort cleanup

		dest := filepath.Join(tmp, "src")
		if err := f.clone(ctx, pkg.Source, dest); err != nil {
			return "", err
		}
		return f.hasher.DirectoryIntegrity(dest)
	default:
		archive, err := f.download(ctx, pkg)
		if err != nil {
			return "", err
		}
		return f.hasher.FileIntegrity(archive)
	}
}

// wrap classifies err as a fetch failure unless it already carries a
// classification callers act on.
func (f *Fetcher) wrap(err error, pkg *domain.ResolvedPackage) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrUnresolvedExternalDependency) ||
		errors.Is(err, domain.ErrIntegrityMismatch) {
		return err
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrSourceFetchFailed, err.Error()),
		"package", pkg.ID.String()), "source", pkg.Source.String())
}

func (f *Fetcher) localPath(p string) string {
	p = strings.TrimPrefix(p, "file://")
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(f.root, p)
}

// clone checks out src into dest with the git command line.
func (f *Fetcher) clone(ctx context.Context, src domain.Source, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", dest)
	}
	if err := f.runner.Run(ctx, ports.Command{
		Name: "git",
		Args: []string{"clone", "--quiet", src.URL, dest},
	}); err != nil {
		return err
	}
	if src.Ref == "" {
		return nil
	}
	return f.runner.Run(ctx, ports.Command{
		Name: "git",
		Args: []string{"-C", dest, "checkout", "--quiet", src.Ref},
	})
}

// download returns the cached archive of pkg, fetching it first if needed.
func (f *Fetcher) download(ctx context.Context, pkg *domain.ResolvedPackage) (string, error) {
	location := pkg.Artifact
	if pkg.Source.Kind == domain.SourceArchive {
		location = pkg.Source.URL
	}
	if location == "" {
		return "", zerr.With(zerr.New("package has no artifact"), "package", pkg.ID.String())
	}

	if !isRemote(location) {
		path := f.localPath(location)
		if _, err := os.Stat(path); err != nil {
			return "", zerr.With(zerr.Wrap(err, "archive not found"), "path", path)
		}
		return path, nil
	}

	key := digest.FromString(location).Encoded()[:24]
	cached := filepath.Join(f.cacheDir, key+archiveSuffix(location))
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	if err := os.MkdirAll(f.cacheDir, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create artifact cache"), "path", f.cacheDir)
	}
	tmp, err := os.CreateTemp(f.cacheDir, ".download-*")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create download file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename

	err = f.client.Get(ctx, location, func(r io.Reader) error {
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if err := tmp.Truncate(0); err != nil {
			return err
		}
		_, err := io.Copy(tmp, r)
		return err
	})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), cached); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to store artifact"), "path", cached)
	}
	return cached, nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func archiveSuffix(location string) string {
	for _, suffix := range []string{".tar.gz", ".tgz"} {
		if strings.HasSuffix(location, suffix) {
			return suffix
		}
	}
	return ".tar.gz"
}
