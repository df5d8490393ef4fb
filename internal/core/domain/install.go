package domain

import (
	"path/filepath"
	"time"
)

// InstallLayout is the directory structure of one installed package.
type InstallLayout struct {
	Root string
	Src  string
	Lib  string
	Bin  string
	Etc  string
	Conf string
	Doc  string
}

// NewInstallLayout returns the layout rooted at root.
func NewInstallLayout(root string) InstallLayout {
	return InstallLayout{
		Root: root,
		Src:  filepath.Join(root, "src"),
		Lib:  filepath.Join(root, "lib"),
		Bin:  filepath.Join(root, "bin"),
		Etc:  filepath.Join(root, "etc"),
		Conf: filepath.Join(root, "conf"),
		Doc:  filepath.Join(root, "doc"),
	}
}

// Dirs returns every directory of the layout below the root.
func (l InstallLayout) Dirs() []string {
	return []string{l.Src, l.Lib, l.Bin, l.Etc, l.Conf, l.Doc}
}

// Staging is a private directory a build writes into before it is
// published to the install tree.
type Staging struct {
	ID      PackageID
	Dir     string
	WorkDir string
	Layout  InstallLayout
}

// InstallEntry records a published package in the install tree.
type InstallEntry struct {
	ID          PackageID `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Integrity   string    `json:"integrity,omitzero"`
	Fingerprint string    `json:"fingerprint,omitzero"`
	Kind        BuildKind `json:"kind,omitzero"`
	Path        string    `json:"-"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
}
