// Package fs provides file system adapters for walking, globbing and hashing
// package sources.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every regular file below root in lexical order of the
// full relative path, as a slash-separated path relative to root. VCS
// metadata, the rocks state directory and any name matching ignores are
// skipped.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var files []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}
			if skip, action := w.shouldSkip(d, ignores); skip {
				return action
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			yield("", err)
			return
		}

		// WalkDir orders siblings by name, which puts "a/x" before "a.lua".
		slices.Sort(files)
		for _, rel := range files {
			if !yield(rel, nil) {
				return
			}
		}
	}
}

// shouldSkip reports whether d is excluded. For directories the returned
// action prunes the subtree.
func (w *Walker) shouldSkip(d fs.DirEntry, ignores []string) (bool, error) {
	name := d.Name()

	if d.IsDir() {
		switch name {
		case ".git", ".jj", ".hg", ".rocks":
			return true, filepath.SkipDir
		}
	}

	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			if d.IsDir() {
				return true, filepath.SkipDir
			}
			return true, nil
		}
	}
	return false, nil
}
