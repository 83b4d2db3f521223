package pubgrub

import (
	"strings"

	"github.com/Masterminds/semver"
)

// bound is one endpoint of an interval. A nil version stands for the
// unbounded side.
type bound struct {
	v         *semver.Version
	inclusive bool
}

// interval is a contiguous span of versions, possibly unbounded on either
// side.
type interval struct {
	lo, hi bound
}

// VersionRange is an immutable set of versions, held as a union of disjoint,
// non-touching intervals sorted ascending. Every operation returns a new
// range in this normal form, so structural equality implies semantic
// equality; that is what makes incompatibility deduplication a cheap string
// compare.
type VersionRange struct {
	ivs []interval
}

// EmptyRange returns the range containing no versions.
func EmptyRange() VersionRange {
	return VersionRange{}
}

// AnyRange returns the range containing every version.
func AnyRange() VersionRange {
	return VersionRange{ivs: []interval{{}}}
}

// Exactly returns the range containing only v.
func Exactly(v *semver.Version) VersionRange {
	return VersionRange{ivs: []interval{{
		lo: bound{v: v, inclusive: true},
		hi: bound{v: v, inclusive: true},
	}}}
}

// AtLeast returns the range of versions >= v.
func AtLeast(v *semver.Version) VersionRange {
	return VersionRange{ivs: []interval{{lo: bound{v: v, inclusive: true}}}}
}

// GreaterThan returns the range of versions > v.
func GreaterThan(v *semver.Version) VersionRange {
	return VersionRange{ivs: []interval{{lo: bound{v: v}}}}
}

// AtMost returns the range of versions <= v.
func AtMost(v *semver.Version) VersionRange {
	return VersionRange{ivs: []interval{{hi: bound{v: v, inclusive: true}}}}
}

// Below returns the range of versions < v.
func Below(v *semver.Version) VersionRange {
	return VersionRange{ivs: []interval{{hi: bound{v: v}}}}
}

// cmpLo orders two lower bounds. An unbounded side sorts before everything;
// at equal versions an inclusive bound starts earlier.
func cmpLo(a, b bound) int {
	switch {
	case a.v == nil && b.v == nil:
		return 0
	case a.v == nil:
		return -1
	case b.v == nil:
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

// cmpHi orders two upper bounds. An unbounded side sorts after everything;
// at equal versions an inclusive bound extends further.
func cmpHi(a, b bound) int {
	switch {
	case a.v == nil && b.v == nil:
		return 0
	case a.v == nil:
		return 1
	case b.v == nil:
		return -1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.inclusive == b.inclusive:
		return 0
	case a.inclusive:
		return 1
	default:
		return -1
	}
}

func (iv interval) empty() bool {
	if iv.lo.v == nil || iv.hi.v == nil {
		return false
	}
	c := iv.lo.v.Compare(iv.hi.v)
	if c != 0 {
		return c > 0
	}
	return !(iv.lo.inclusive && iv.hi.inclusive)
}

func (iv interval) contains(v *semver.Version) bool {
	if iv.lo.v != nil {
		c := v.Compare(iv.lo.v)
		if c < 0 || (c == 0 && !iv.lo.inclusive) {
			return false
		}
	}
	if iv.hi.v != nil {
		c := v.Compare(iv.hi.v)
		if c > 0 || (c == 0 && !iv.hi.inclusive) {
			return false
		}
	}
	return true
}

func intersectIntervals(a, b interval) (interval, bool) {
	lo := a.lo
	if cmpLo(b.lo, lo) > 0 {
		lo = b.lo
	}
	hi := a.hi
	if cmpHi(b.hi, hi) < 0 {
		hi = b.hi
	}
	iv := interval{lo: lo, hi: hi}
	if iv.empty() {
		return interval{}, false
	}
	return iv, true
}

// Intersect returns the versions present in both ranges.
func (r VersionRange) Intersect(o VersionRange) VersionRange {
	var out []interval
	i, j := 0, 0
	for i < len(r.ivs) && j < len(o.ivs) {
		if iv, ok := intersectIntervals(r.ivs[i], o.ivs[j]); ok {
			out = append(out, iv)
		}
		// Advance whichever interval ends first; the other may still
		// overlap the next one.
		if cmpHi(r.ivs[i].hi, o.ivs[j].hi) <= 0 {
			i++
		} else {
			j++
		}
	}
	return VersionRange{ivs: out}
}

// Complement returns the versions not present in the range.
func (r VersionRange) Complement() VersionRange {
	if len(r.ivs) == 0 {
		return AnyRange()
	}
	var out []interval
	first := r.ivs[0]
	if first.lo.v != nil {
		out = append(out, interval{
			hi: bound{v: first.lo.v, inclusive: !first.lo.inclusive},
		})
	}
	for k := 0; k < len(r.ivs)-1; k++ {
		a, b := r.ivs[k], r.ivs[k+1]
		out = append(out, interval{
			lo: bound{v: a.hi.v, inclusive: !a.hi.inclusive},
			hi: bound{v: b.lo.v, inclusive: !b.lo.inclusive},
		})
	}
	last := r.ivs[len(r.ivs)-1]
	if last.hi.v != nil {
		out = append(out, interval{
			lo: bound{v: last.hi.v, inclusive: !last.hi.inclusive},
		})
	}
	return VersionRange{ivs: out}
}

// Union returns the versions present in either range. Touching intervals
// merge as a consequence of the complement round trip, keeping the result
// normalized.
func (r VersionRange) Union(o VersionRange) VersionRange {
	return r.Complement().Intersect(o.Complement()).Complement()
}

// Contains reports whether v is in the range.
func (r VersionRange) Contains(v *semver.Version) bool {
	for _, iv := range r.ivs {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the range contains no versions.
func (r VersionRange) IsEmpty() bool {
	return len(r.ivs) == 0
}

// IsAny reports whether the range contains every version.
func (r VersionRange) IsAny() bool {
	return len(r.ivs) == 1 && r.ivs[0].lo.v == nil && r.ivs[0].hi.v == nil
}

// SubsetOf reports whether every version in r is also in o.
func (r VersionRange) SubsetOf(o VersionRange) bool {
	return r.Intersect(o).Equal(r)
}

// Disjoint reports whether the two ranges share no versions.
func (r VersionRange) Disjoint(o VersionRange) bool {
	return r.Intersect(o).IsEmpty()
}

func boundsEqual(a, b bound) bool {
	if (a.v == nil) != (b.v == nil) {
		return false
	}
	if a.v == nil {
		return true
	}
	return a.inclusive == b.inclusive && a.v.Equal(b.v)
}

// Equal reports structural equality, which for normalized ranges coincides
// with semantic equality.
func (r VersionRange) Equal(o VersionRange) bool {
	if len(r.ivs) != len(o.ivs) {
		return false
	}
	for i := range r.ivs {
		if !boundsEqual(r.ivs[i].lo, o.ivs[i].lo) || !boundsEqual(r.ivs[i].hi, o.ivs[i].hi) {
			return false
		}
	}
	return true
}

// singleton reports whether the range admits exactly one version, and which.
func (r VersionRange) singleton() (*semver.Version, bool) {
	if len(r.ivs) != 1 {
		return nil, false
	}
	iv := r.ivs[0]
	if iv.lo.v == nil || iv.hi.v == nil || !iv.lo.inclusive || !iv.hi.inclusive {
		return nil, false
	}
	if !iv.lo.v.Equal(iv.hi.v) {
		return nil, false
	}
	return iv.lo.v, true
}

func (iv interval) String() string {
	switch {
	case iv.lo.v == nil && iv.hi.v == nil:
		return "*"
	case iv.lo.v != nil && iv.hi.v != nil && iv.lo.inclusive && iv.hi.inclusive && iv.lo.v.Equal(iv.hi.v):
		return "==" + iv.lo.v.String()
	}
	var parts []string
	if iv.lo.v != nil {
		op := ">"
		if iv.lo.inclusive {
			op = ">="
		}
		parts = append(parts, op+iv.lo.v.String())
	}
	if iv.hi.v != nil {
		op := "<"
		if iv.hi.inclusive {
			op = "<="
		}
		parts = append(parts, op+iv.hi.v.String())
	}
	return strings.Join(parts, ", ")
}

func (r VersionRange) String() string {
	if len(r.ivs) == 0 {
		return "none"
	}
	parts := make([]string, len(r.ivs))
	for i, iv := range r.ivs {
		parts[i] = iv.String()
	}
	return strings.Join(parts, " || ")
}
