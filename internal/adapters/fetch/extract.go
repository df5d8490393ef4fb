package fetch

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.trai.ch/rocks/internal/adapters/fs"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/zerr"
)

// extract unpacks a tar.gz archive into dest. When every entry sits below
// one top-level directory, that directory becomes dest.
func extract(archive, dest string) error {
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", parent)
	}
	tmp, err := os.MkdirTemp(parent, ".extract-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create extraction directory")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck // Best effort cleanup

	if err := untar(archive, tmp); err != nil {
		return err
	}

	src := tmp
	if entries, err := os.ReadDir(tmp); err == nil && len(entries) == 1 && entries[0].IsDir() {
		src = filepath.Join(tmp, entries[0].Name())
	}

	// An empty dest may already exist; anything else is refused by Rename.
	_ = os.Remove(dest)
	if err := os.Rename(src, dest); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to move extracted source"), "path", dest)
	}
	return nil
}

func untar(archive, dest string) error {
	f, err := os.Open(archive) //nolint:gosec // Archive path comes from the artifact cache
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open archive"), "path", archive)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	gz, err := gzip.NewReader(f)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "invalid gzip archive"), "path", archive)
	}
	defer gz.Close() //nolint:errcheck // Best effort close in defer

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return zerr.With(zerr.Wrap(err, "invalid tar archive"), "path", archive)
		}

		target, err := within(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, domain.DirPerm); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", target)
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if _, err := within(dest, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", target)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to create symlink"), "path", target)
			}
		default:
			// Devices, fifos and global headers carry no source.
		}
	}
}

// within resolves name below root and rejects entries that escape it.
func within(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", zerr.With(zerr.Wrap(domain.ErrPathOutsideRoot, "archive entry escapes destination"), "entry", name)
	}
	return target, nil
}

func writeEntry(r io.Reader, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", target)
	}
	//nolint:gosec // Target is checked to stay inside the destination
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create file"), "path", target)
	}
	//nolint:gosec // Archive size is bounded by the download
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, "failed to write file"), "path", target)
	}
	return out.Close()
}

// copyTree copies the files the walker yields from src into dest.
func copyTree(walker *fs.Walker, src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "source directory not found"), "path", src)
	}
	if !info.IsDir() {
		return zerr.With(zerr.New("source is not a directory"), "path", src)
	}
	if err := os.MkdirAll(dest, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", dest)
	}

	for rel, err := range walker.WalkFiles(src, nil) {
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to walk source"), "path", src)
		}
		from := filepath.Join(src, filepath.FromSlash(rel))
		fi, err := os.Stat(from)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to stat file"), "path", from)
		}
		in, err := os.Open(from) //nolint:gosec // Path comes from walking the source tree
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to open file"), "path", from)
		}
		err = writeEntry(in, filepath.Join(dest, filepath.FromSlash(rel)), fi.Mode().Perm())
		_ = in.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
