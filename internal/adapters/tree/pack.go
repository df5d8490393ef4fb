package tree

import (
	"archive/tar"
	"encoding/json"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"
	"go.trai.ch/rocks/internal/adapters/fs"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Packer = (*Tree)(nil)

// RockManifestName is the archive member listing every packed file.
const RockManifestName = "rock_manifest"

// RockManifest describes the content of a packed rock.
type RockManifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	// Files maps each archive member to its digest.
	Files map[string]string `json:"files"`
}

// Pack archives the published layout of id as <name>-<version>.<arch>.rock
// in destDir and returns the archive path. Sources land under lua/, the
// content of etc/ at the archive root, and the other directories keep their
// names. The arch is "all" unless lib/ holds native modules.
func (t *Tree) Pack(id domain.PackageID, destDir string) (string, error) {
	entry, err := t.Lookup(id)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", zerr.With(domain.ErrNotInstalled, "package", id.String())
	}
	fail := func(err error) (string, error) {
		return "", zerr.With(zerr.Wrap(err, "failed to pack rock"), "package", id.String())
	}

	if err := os.MkdirAll(destDir, domain.DirPerm); err != nil {
		return fail(err)
	}
	tmp, err := os.CreateTemp(destDir, ".pack-*")
	if err != nil {
		return fail(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	native, err := writeRock(tmp, entry)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fail(err)
	}

	arch := "all"
	if native {
		arch = runtime.GOOS + "-" + runtime.GOARCH
	}
	target := filepath.Join(destDir, entry.Name+"-"+entry.Version+"."+arch+".rock")
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fail(err)
	}
	return target, nil
}

// writeRock streams the layout of entry into w as a gzip compressed tar and
// reports whether it carries native modules.
func writeRock(w io.Writer, entry *domain.InstallEntry) (bool, error) {
	layout := domain.NewInstallLayout(entry.Path)
	sections := []struct {
		dir    string
		prefix string
	}{
		{layout.Src, "lua"},
		{layout.Lib, "lib"},
		{layout.Bin, "bin"},
		{layout.Conf, "conf"},
		{layout.Doc, "doc"},
		{layout.Etc, ""},
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	manifest := RockManifest{Name: entry.Name, Version: entry.Version, Files: make(map[string]string)}
	walker := fs.NewWalker()
	native := false

	for _, sec := range sections {
		if _, err := os.Stat(sec.dir); err != nil {
			continue
		}
		for rel, err := range walker.WalkFiles(sec.dir, nil) {
			if err != nil {
				return false, err
			}
			// doc/ is packed from the layout, not from etc/.
			if sec.prefix == "" && strings.HasPrefix(rel, "doc/") {
				continue
			}
			name := path.Join(sec.prefix, rel)
			if _, dup := manifest.Files[name]; dup {
				continue
			}
			sum, err := addFile(tw, filepath.Join(sec.dir, filepath.FromSlash(rel)), name)
			if err != nil {
				return false, err
			}
			manifest.Files[name] = sum.String()
			if sec.dir == layout.Lib && isNative(rel) {
				native = true
			}
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return false, err
	}
	if err := writeMember(tw, RockManifestName, 0o644, data); err != nil {
		return false, err
	}
	if err := tw.Close(); err != nil {
		return false, err
	}
	return native, gz.Close()
}

// packTime is the modification time of every member, so packing the same
// layout twice yields the same archive.
var packTime = time.Unix(0, 0).UTC()

func addFile(tw *tar.Writer, src, name string) (digest.Digest, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	mode := int64(0o644)
	if info.Mode()&0o111 != 0 {
		mode = 0o755
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     mode,
		Size:     info.Size(),
		ModTime:  packTime,
		Typeflag: tar.TypeReg,
	}); err != nil {
		return "", err
	}

	//nolint:gosec // Path comes from walking a published layout
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	d := digest.SHA256.Digester()
	if _, err := io.Copy(io.MultiWriter(tw, d.Hash()), f); err != nil {
		return "", err
	}
	return d.Digest(), nil
}

func writeMember(tw *tar.Writer, name string, mode int64, data []byte) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     mode,
		Size:     int64(len(data)),
		ModTime:  packTime,
		Typeflag: tar.TypeReg,
	}); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

func isNative(rel string) bool {
	switch filepath.Ext(rel) {
	case ".so", ".dll", ".dylib":
		return true
	}
	return false
}
