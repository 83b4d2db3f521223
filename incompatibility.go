package pubgrub

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver"
)

// causeKind records why an incompatibility exists.
type causeKind uint8

const (
	// causeRoot: the seed incompatibility requiring the root package.
	causeRoot causeKind = iota
	// causeNoVersions: no version of a package matches a required range.
	causeNoVersions
	// causeDependency: a package version depends on another package.
	causeDependency
	// causeDerived: learned during conflict resolution from two parents.
	causeDerived
)

// incompatID addresses an incompatibility within its store's arena.
type incompatID int

const noCause incompatID = -1

// An Incompatibility is a set of terms, at most one per package, that cannot
// all hold in any solution. Derived incompatibilities record their two
// parents by arena id, so the explainer can walk the derivation graph
// without ownership cycles.
type Incompatibility struct {
	id    incompatID
	terms []Term
	kind  causeKind
	// parents, set when kind == causeDerived
	p1, p2 incompatID
}

// Terms returns the incompatibility's terms.
func (inc *Incompatibility) Terms() []Term {
	return inc.terms
}

// ID returns the incompatibility's position in its store, or -1 if it was
// never recorded.
func (inc *Incompatibility) ID() int {
	return int(inc.id)
}

// isTerminal reports whether the incompatibility proves the root
// requirements unsatisfiable: it has no terms, or its sole term positively
// requires the root package, which always holds.
func (inc *Incompatibility) isTerminal() bool {
	if len(inc.terms) == 0 {
		return true
	}
	return len(inc.terms) == 1 && inc.terms[0].Positive && inc.terms[0].Pkg == rootPackage
}

// notRootIncompat seeds resolution: "the root package is not selected at v"
// can never hold, which forces the root selection on the first propagation.
func notRootIncompat(v *semver.Version) *Incompatibility {
	return &Incompatibility{
		id:    noCause,
		terms: []Term{{Pkg: rootPackage, Range: Exactly(v), Positive: false}},
		kind:  causeRoot,
	}
}

// noVersionsIncompat records that no version of pkg inside r is available.
func noVersionsIncompat(pkg Package, r VersionRange) *Incompatibility {
	return &Incompatibility{
		id:    noCause,
		terms: []Term{{Pkg: pkg, Range: r, Positive: true}},
		kind:  causeNoVersions,
	}
}

// dependencyIncompat records that pkg at v requires dep within r: pkg@v and
// "dep outside r" cannot hold together.
func dependencyIncompat(pkg Package, v *semver.Version, dep Package, r VersionRange) *Incompatibility {
	return &Incompatibility{
		id: noCause,
		terms: []Term{
			{Pkg: pkg, Range: Exactly(v), Positive: true},
			{Pkg: dep, Range: r, Positive: false},
		},
		kind: causeDependency,
	}
}

// derivedIncompat builds a learned incompatibility from the resolution of
// two parents. Terms are merged per package by intersection; positive root
// terms are dropped (the root is always selected, so they never constrain),
// as are vacuously true terms.
func derivedIncompat(terms []Term, p1, p2 incompatID) *Incompatibility {
	var merged []Term
	index := make(map[Package]int, len(terms))
	for _, t := range terms {
		if i, ok := index[t.Pkg]; ok {
			merged[i] = merged[i].Intersect(t)
			continue
		}
		index[t.Pkg] = len(merged)
		merged = append(merged, t)
	}
	out := merged[:0]
	for _, t := range merged {
		if len(merged) > 1 && t.Positive && t.Pkg == rootPackage {
			continue
		}
		if !t.Positive && t.Range.IsEmpty() {
			continue
		}
		out = append(out, t)
	}
	return &Incompatibility{id: noCause, terms: out, kind: causeDerived, p1: p1, p2: p2}
}

// key returns a canonical representation of the term set, used for
// deduplication on insert.
func (inc *Incompatibility) key() string {
	parts := make([]string, len(inc.terms))
	for i, t := range inc.terms {
		polarity := "+"
		if !t.Positive {
			polarity = "-"
		}
		parts[i] = string(t.Pkg) + polarity + t.Range.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// String renders the incompatibility as the sentence fragment used in
// conflict explanations.
func (inc *Incompatibility) String() string {
	switch inc.kind {
	case causeRoot:
		return "resolving dependencies of root"
	case causeNoVersions:
		t := inc.terms[0]
		if v, ok := t.Range.singleton(); ok {
			return fmt.Sprintf("%s %s is unavailable", t.Pkg, v)
		}
		return fmt.Sprintf("no versions of %s match %s", t.Pkg, t.Range)
	case causeDependency:
		return fmt.Sprintf("%s depends on %s", inc.terms[0].describe(), inc.terms[1].describe())
	}

	if inc.isTerminal() {
		return "version solving failed"
	}

	var pos, neg []string
	for _, t := range inc.terms {
		if t.Positive {
			pos = append(pos, t.describe())
		} else {
			neg = append(neg, t.describe())
		}
	}
	switch {
	case len(pos) == 1 && len(neg) == 0:
		return fmt.Sprintf("%s is forbidden", pos[0])
	case len(pos) == 0 && len(neg) == 1:
		return fmt.Sprintf("%s is required", neg[0])
	case len(pos) == 2 && len(neg) == 0:
		return fmt.Sprintf("%s is incompatible with %s", pos[0], pos[1])
	case len(pos) == 1 && len(neg) == 1:
		return fmt.Sprintf("%s requires %s", pos[0], neg[0])
	case len(neg) == 0:
		return fmt.Sprintf("%s are incompatible", strings.Join(pos, " and "))
	default:
		return fmt.Sprintf("if %s then %s", strings.Join(pos, " and "), strings.Join(neg, " or "))
	}
}
