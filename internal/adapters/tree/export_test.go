package tree

// SetRename replaces the rename used to publish layouts.
func SetRename(t *Tree, rename func(oldpath, newpath string) error) {
	t.rename = rename
}
