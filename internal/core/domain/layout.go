package domain

import "path/filepath"

const (
	// ManifestFileName is the project manifest.
	ManifestFileName = "rocks.toml"
	// LockfileFileName is the lockfile written next to the manifest.
	LockfileFileName = "rocks.lock"
	// StateDirName holds everything rocks writes besides the lockfile.
	StateDirName = ".rocks"
	// LockFileName is the advisory lock inside the state directory.
	LockFileName = "lock"
	// LoaderFileName is the runtime loader table inside the state directory.
	LoaderFileName = "loader.json"
	// SettingsFileName is the optional settings file inside the state directory.
	SettingsFileName = "config.yaml"
	// IndexSnapshotFileName is the default local index snapshot.
	IndexSnapshotFileName = "index.yaml"
	// TreeDirName is the install tree inside the state directory.
	TreeDirName = "tree"
	// StagingDirName holds in-progress builds inside the install tree.
	StagingDirName = ".staging"
	// CacheDirName holds downloaded artifacts inside the state directory.
	CacheDirName = "cache"
	// EntryFileName describes a published package inside its install directory.
	EntryFileName = ".rocks-entry.json"
	// RootScope is the loader scope of the project itself.
	RootScope = "@root"
)

// DirPerm is the permission used for directories rocks creates.
const DirPerm = 0o750

// FilePerm is the permission used for files rocks creates.
const FilePerm = 0o644

// StateDir returns the state directory of a project.
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// TreeDir returns the install tree of a project.
func TreeDir(root string) string {
	return filepath.Join(root, StateDirName, TreeDirName)
}

// ArtifactCacheDir returns the artifact cache of a project.
func ArtifactCacheDir(root string) string {
	return filepath.Join(root, StateDirName, CacheDirName, "artifacts")
}

// LoaderPath returns the runtime loader table of a project.
func LoaderPath(root string) string {
	return filepath.Join(root, StateDirName, LoaderFileName)
}
