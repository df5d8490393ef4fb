package domain

// IndexEntry is one published version of a package as the index describes it.
type IndexEntry struct {
	Name              string
	Version           Version
	Source            Source
	Artifact          string
	Integrity         string
	Dependencies      []PackageSpec
	BuildDependencies []PackageSpec
	Build             BuildSpec
}

// ID returns the identity a node built from this entry receives.
func (e *IndexEntry) ID() PackageID {
	return NewPackageID(e.Name, e.Version, e.Source)
}
