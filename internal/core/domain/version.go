package domain

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// Version is an ordered tuple of non-negative integers.
//
// The first three components are major, minor and patch. Revision is the
// package spec revision written after a dash ("1.2.3-2"). Pre holds
// prerelease qualifiers written after a tilde ("1.2.3~1.4"); a version with
// qualifiers ranks below the bare triple.
type Version struct {
	Major    uint64
	Minor    uint64
	Patch    uint64
	Revision uint64
	Pre      []uint64
}

// versionShape records which parts of a version were written explicitly.
// Constraint operators need it: "~>1.2" differs from "~>1.2.0".
type versionShape struct {
	parts       int
	hasRevision bool
}

// ParseVersion parses the textual form MAJOR[.MINOR[.PATCH]][-REVISION][~PRE[.PRE...]].
func ParseVersion(s string) (Version, error) {
	v, _, err := parseVersion(s)
	return v, err
}

// MustParseVersion is like ParseVersion but panics on malformed input.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseVersion(raw string) (Version, versionShape, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return Version{}, versionShape{}, invalidVersion(raw, "empty version")
	}

	var v Version
	var shape versionShape

	core, pre, hasPre := strings.Cut(s, "~")
	core, rev, hasRev := strings.Cut(core, "-")

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return Version{}, versionShape{}, invalidVersion(raw, "more than three core components")
	}
	for i, p := range parts {
		n, err := parseComponent(p)
		if err != nil {
			return Version{}, versionShape{}, invalidVersion(raw, err.Error())
		}
		switch i {
		case 0:
			v.Major = n
		case 1:
			v.Minor = n
		case 2:
			v.Patch = n
		}
	}
	shape.parts = len(parts)

	if hasRev {
		n, err := parseComponent(rev)
		if err != nil {
			return Version{}, versionShape{}, invalidVersion(raw, "revision: "+err.Error())
		}
		v.Revision = n
		shape.hasRevision = true
	}

	if hasPre {
		for _, p := range strings.Split(pre, ".") {
			n, err := parseComponent(p)
			if err != nil {
				return Version{}, versionShape{}, invalidVersion(raw, "prerelease: "+err.Error())
			}
			v.Pre = append(v.Pre, n)
		}
	}

	return v, shape, nil
}

func parseComponent(p string) (uint64, error) {
	if p == "" {
		return 0, zerr.New("empty component")
	}
	return strconv.ParseUint(p, 10, 64)
}

func invalidVersion(raw, reason string) error {
	return zerr.With(zerr.Wrap(ErrInvalidVersion, reason), "version", raw)
}

// Compare returns -1, 0 or +1 depending on whether v ranks below, equal to
// or above other.
func (v Version) Compare(other Version) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Patch, other.Patch); c != 0 {
		return c
	}
	switch {
	case len(v.Pre) == 0 && len(other.Pre) > 0:
		return 1
	case len(v.Pre) > 0 && len(other.Pre) == 0:
		return -1
	}
	if c := slices.Compare(v.Pre, other.Pre); c != 0 {
		return c
	}
	return cmp.Compare(v.Revision, other.Revision)
}

// Less reports whether v ranks strictly below other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// IsPrerelease reports whether v carries prerelease qualifiers.
func (v Version) IsPrerelease() bool {
	return len(v.Pre) > 0
}

// String renders the canonical form. The revision is omitted when zero.
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(v.Major, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Minor, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Patch, 10))
	if v.Revision > 0 {
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(v.Revision, 10))
	}
	for i, p := range v.Pre {
		if i == 0 {
			b.WriteByte('~')
		} else {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(p, 10))
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SortVersionsDesc sorts versions from highest to lowest. Equal versions
// keep their relative order.
func SortVersionsDesc(vs []Version) {
	slices.SortStableFunc(vs, func(a, b Version) int {
		return b.Compare(a)
	})
}
