// Package tree implements the install tree: one directory per package
// identity, filled through private staging directories.
package tree

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InstallTree = (*Tree)(nil)

// Tree implements ports.InstallTree on the local file system.
type Tree struct {
	dir    string
	rename func(oldpath, newpath string) error
}

// New creates a Tree rooted at dir, usually domain.TreeDir of a project.
func New(dir string) *Tree {
	return &Tree{dir: filepath.Clean(dir), rename: os.Rename}
}

// Dir returns the root directory of the tree.
func (t *Tree) Dir() string {
	return t.dir
}

// Path returns the directory a published identity lives in.
func (t *Tree) Path(id domain.PackageID) string {
	return filepath.Join(t.dir, dirName(id))
}

// dirName turns an identity into a single path element.
func dirName(id domain.PackageID) string {
	return strings.NewReplacer("#", "-", "/", "_", string(filepath.Separator), "_").Replace(id.String())
}

// Lookup returns the entry recorded for id, or nil when it is not installed.
func (t *Tree) Lookup(id domain.PackageID) (*domain.InstallEntry, error) {
	entry, err := readEntry(t.Path(id))
	if err != nil || entry == nil {
		return nil, err
	}
	if entry.ID != id {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrInstallTreeFailed, "entry records another identity"),
			"package", id.String()), "recorded", entry.ID.String())
	}
	return entry, nil
}

func readEntry(dir string) (*domain.InstallEntry, error) {
	path := filepath.Join(dir, domain.EntryFileName)
	//nolint:gosec // Path is constructed from the tree directory and an identity
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read install entry"), "path", path)
	}

	var entry domain.InstallEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to unmarshal install entry"), "path", path)
	}
	entry.Path = dir
	return &entry, nil
}

// Stage creates a fresh staging directory for pkg below the tree. Its
// install layout is empty and its work directory exists.
func (t *Tree) Stage(pkg *domain.ResolvedPackage) (*domain.Staging, error) {
	parent := filepath.Join(t.dir, domain.StagingDirName)
	if err := os.MkdirAll(parent, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInstallTreeFailed, err.Error()), "path", parent)
	}

	dir, err := os.MkdirTemp(parent, dirName(pkg.ID)+"-*")
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInstallTreeFailed, err.Error()), "package", pkg.ID.String())
	}

	staging := &domain.Staging{
		ID:      pkg.ID,
		Dir:     dir,
		WorkDir: filepath.Join(dir, "work"),
		Layout:  domain.NewInstallLayout(filepath.Join(dir, "install")),
	}
	for _, d := range []string{staging.WorkDir, staging.Layout.Root} {
		if err := os.MkdirAll(d, domain.DirPerm); err != nil {
			_ = os.RemoveAll(dir)
			return nil, zerr.With(zerr.Wrap(domain.ErrInstallTreeFailed, err.Error()), "path", d)
		}
	}
	return staging, nil
}

// Publish writes the entry record into the staged layout and renames the
// layout into place, replacing an earlier install of the same identity.
func (t *Tree) Publish(staging *domain.Staging, entry domain.InstallEntry) (string, error) {
	target := t.Path(staging.ID)
	fail := func(err error) (string, error) {
		return "", zerr.With(zerr.Wrap(domain.ErrInstallTreeFailed, err.Error()), "package", staging.ID.String())
	}

	entry.ID = staging.ID
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fail(err)
	}
	//nolint:gosec // Entry records are not secret
	if err := os.WriteFile(filepath.Join(staging.Layout.Root, domain.EntryFileName), data, domain.FilePerm); err != nil {
		return fail(err)
	}

	// The previous install is moved aside first so the rename below never
	// lands inside it. It is moved back if the new layout cannot take its
	// place.
	replaced := ""
	if _, err := os.Stat(target); err == nil {
		replaced = filepath.Join(staging.Dir, "replaced")
		if err := t.rename(target, replaced); err != nil {
			return fail(err)
		}
	}
	if err := t.rename(staging.Layout.Root, target); err != nil {
		if replaced != "" {
			if restoreErr := t.rename(replaced, target); restoreErr != nil {
				err = errors.Join(err, restoreErr)
			}
		}
		return fail(err)
	}
	_ = os.RemoveAll(staging.Dir)
	return target, nil
}

// Discard removes a staging directory and everything in it.
func (t *Tree) Discard(staging *domain.Staging) error {
	if staging == nil || staging.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(staging.Dir); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrInstallTreeFailed, err.Error()), "path", staging.Dir)
	}
	return nil
}

// List returns every published entry ordered by identity. Directories
// without an entry record, such as interrupted staging, are ignored.
func (t *Tree) List() ([]domain.InstallEntry, error) {
	dirs, err := os.ReadDir(t.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to list install tree"), "path", t.dir)
	}

	var entries []domain.InstallEntry
	for _, d := range dirs {
		if !d.IsDir() || d.Name() == domain.StagingDirName {
			continue
		}
		entry, err := readEntry(filepath.Join(t.dir, d.Name()))
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	slices.SortFunc(entries, func(a, b domain.InstallEntry) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return entries, nil
}

// Remove deletes a published identity. Removing an absent identity is not
// an error.
func (t *Tree) Remove(id domain.PackageID) error {
	path := t.Path(id)
	if err := os.RemoveAll(path); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrInstallTreeFailed, err.Error()), "path", path)
	}
	return nil
}

// Clear removes the whole tree, staging included.
func (t *Tree) Clear() error {
	if err := os.RemoveAll(t.dir); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrInstallTreeFailed, err.Error()), "path", t.dir)
	}
	return nil
}
