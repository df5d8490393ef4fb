package domain

import (
	"math"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Constraint is a predicate over versions, stored as a sorted union of
// disjoint intervals. The zero value accepts every version.
type Constraint struct {
	intervals     []interval
	unsatisfiable bool
	text          string
}

type bound struct {
	v         Version
	inclusive bool
	open      bool
}

type interval struct {
	lo bound
	hi bound
}

var fullInterval = interval{lo: bound{open: true}, hi: bound{open: true}}

// Any returns the constraint satisfied by every version.
func Any() Constraint {
	return Constraint{}
}

// Exact returns the constraint satisfied only by v.
func Exact(v Version) Constraint {
	return Constraint{
		intervals: []interval{{lo: bound{v: v, inclusive: true}, hi: bound{v: v, inclusive: true}}},
		text:      "==" + v.String(),
	}
}

// ParseConstraint parses a comma separated conjunction of clauses.
//
// Supported clauses: "*", "=v", "==v", "v", "!=v", ">v", ">=v", "<v",
// "<=v", "~>v", "^v" and prefix wildcards such as "1.2.*".
func ParseConstraint(s string) (Constraint, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "*" {
		return Any(), nil
	}

	result := Any()
	texts := make([]string, 0, 2)
	for clause := range strings.SplitSeq(trimmed, ",") {
		clause = strings.Join(strings.Fields(clause), "")
		if clause == "" {
			return Constraint{}, invalidConstraint(s, "empty clause")
		}
		c, err := parseClause(clause)
		if err != nil {
			return Constraint{}, invalidConstraint(s, err.Error())
		}
		result = Intersect(result, c)
		texts = append(texts, clause)
	}
	result.text = strings.Join(texts, ",")
	return result, nil
}

// MustParseConstraint is like ParseConstraint but panics on malformed input.
func MustParseConstraint(s string) Constraint {
	c, err := ParseConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseClause(clause string) (Constraint, error) {
	if clause == "*" {
		return Any(), nil
	}

	if prefix, ok := strings.CutSuffix(clause, ".*"); ok {
		v, shape, err := parseVersion(prefix)
		if err != nil {
			return Constraint{}, err
		}
		return between(v, bump(v, shape.parts)), nil
	}

	ops := []string{"==", ">=", "<=", "!=", "~>", "=", ">", "<", "^"}
	op := ""
	for _, candidate := range ops {
		if strings.HasPrefix(clause, candidate) {
			op = candidate
			break
		}
	}
	v, shape, err := parseVersion(strings.TrimPrefix(clause, op))
	if err != nil {
		return Constraint{}, err
	}

	exactLo := bound{v: v, inclusive: true}
	exactHi := bound{v: ceilRevision(v, shape), inclusive: true}

	switch op {
	case "", "=", "==":
		return fromIntervals(interval{lo: exactLo, hi: exactHi}), nil
	case "!=":
		return fromIntervals(
			interval{lo: bound{open: true}, hi: bound{v: v}},
			interval{lo: bound{v: exactHi.v}, hi: bound{open: true}},
		), nil
	case ">":
		return fromIntervals(interval{lo: bound{v: exactHi.v}, hi: bound{open: true}}), nil
	case ">=":
		return fromIntervals(interval{lo: exactLo, hi: bound{open: true}}), nil
	case "<":
		hi := v
		if !shape.hasRevision && !v.IsPrerelease() {
			hi = floor(v)
		}
		return fromIntervals(interval{lo: bound{open: true}, hi: bound{v: hi}}), nil
	case "<=":
		return fromIntervals(interval{lo: bound{open: true}, hi: exactHi}), nil
	case "~>":
		return between(v, bump(v, shape.parts)), nil
	case "^":
		return between(v, caret(v, shape.parts)), nil
	}
	return Constraint{}, zerr.With(zerr.New("unknown operator"), "clause", clause)
}

func invalidConstraint(raw, reason string) error {
	return zerr.With(zerr.Wrap(ErrInvalidConstraint, reason), "constraint", raw)
}

func fromIntervals(ivs ...interval) Constraint {
	out := make([]interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.empty() {
			out = append(out, iv)
		}
	}
	if len(out) == 0 {
		return Constraint{unsatisfiable: true}
	}
	return Constraint{intervals: out}
}

// between returns [lo, floor(hi)).
func between(lo, hi Version) Constraint {
	return fromIntervals(interval{lo: bound{v: lo, inclusive: true}, hi: bound{v: floor(hi)}})
}

// ceilRevision returns the highest version sharing v's written components.
// An operand without a revision matches every revision of its triple.
func ceilRevision(v Version, shape versionShape) Version {
	if shape.hasRevision {
		return v
	}
	v.Revision = math.MaxUint64
	return v
}

// floor returns the lowest version of v's triple, below all its prereleases.
func floor(v Version) Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Pre: []uint64{0}}
}

// bump returns the pessimistic upper bound: the next major for a bare
// major, the next minor otherwise.
func bump(v Version, parts int) Version {
	if parts == 1 {
		return Version{Major: v.Major + 1}
	}
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// caret increments the first non-zero written core component.
func caret(v Version, parts int) Version {
	switch {
	case v.Major > 0 || parts == 1:
		return Version{Major: v.Major + 1}
	case v.Minor > 0 || parts == 2:
		return Version{Minor: v.Minor + 1}
	default:
		return Version{Patch: v.Patch + 1}
	}
}

func (c Constraint) ranges() []interval {
	if c.unsatisfiable {
		return nil
	}
	if c.intervals == nil {
		return []interval{fullInterval}
	}
	return c.intervals
}

// Satisfies reports whether v satisfies c.
func Satisfies(v Version, c Constraint) bool {
	return c.Satisfies(v)
}

// Satisfies reports whether v satisfies c.
func (c Constraint) Satisfies(v Version) bool {
	for _, iv := range c.ranges() {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// Intersect returns the constraint satisfied by versions satisfying both a
// and b. The result may be unsatisfiable.
func Intersect(a, b Constraint) Constraint {
	var out []interval
	for _, x := range a.ranges() {
		for _, y := range b.ranges() {
			iv := interval{lo: maxLower(x.lo, y.lo), hi: minUpper(x.hi, y.hi)}
			if !iv.empty() {
				out = append(out, iv)
			}
		}
	}
	slices.SortFunc(out, func(x, y interval) int {
		return compareLower(x.lo, y.lo)
	})

	result := Constraint{intervals: out, unsatisfiable: len(out) == 0}
	if !result.unsatisfiable && len(out) == 1 && out[0].lo.open && out[0].hi.open {
		result.intervals = nil
	}
	result.text = joinText(a.text, b.text)
	return result
}

func joinText(a, b string) string {
	switch {
	case a == "" || a == b:
		return b
	case b == "":
		return a
	default:
		return a + "," + b
	}
}

// IsUnsatisfiable reports whether no version satisfies c.
func (c Constraint) IsUnsatisfiable() bool {
	return c.unsatisfiable
}

// IsAny reports whether every version satisfies c.
func (c Constraint) IsAny() bool {
	return !c.unsatisfiable && c.intervals == nil
}

// String returns the textual form the constraint was built from.
func (c Constraint) String() string {
	switch {
	case c.text != "":
		return c.text
	case c.unsatisfiable:
		return "<unsatisfiable>"
	default:
		return "*"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Constraint) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Constraint) UnmarshalText(text []byte) error {
	parsed, err := ParseConstraint(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (iv interval) contains(v Version) bool {
	if !iv.lo.open {
		c := v.Compare(iv.lo.v)
		if c < 0 || (c == 0 && !iv.lo.inclusive) {
			return false
		}
	}
	if !iv.hi.open {
		c := v.Compare(iv.hi.v)
		if c > 0 || (c == 0 && !iv.hi.inclusive) {
			return false
		}
	}
	return true
}

func (iv interval) empty() bool {
	if iv.lo.open || iv.hi.open {
		return false
	}
	c := iv.lo.v.Compare(iv.hi.v)
	return c > 0 || (c == 0 && !(iv.lo.inclusive && iv.hi.inclusive))
}

func compareLower(a, b bound) int {
	switch {
	case a.open && b.open:
		return 0
	case a.open:
		return -1
	case b.open:
		return 1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.inclusive == b.inclusive:
		return 0
	case a.inclusive:
		return -1
	default:
		return 1
	}
}

func maxLower(a, b bound) bound {
	if compareLower(a, b) >= 0 {
		return a
	}
	return b
}

func minUpper(a, b bound) bound {
	switch {
	case a.open:
		return b
	case b.open:
		return a
	}
	c := a.v.Compare(b.v)
	switch {
	case c < 0:
		return a
	case c > 0:
		return b
	case !a.inclusive:
		return a
	default:
		return b
	}
}
