package pubgrub

import "fmt"

// Package identifies a package by name.
type Package string

// rootPackage is the synthetic package whose dependencies are the caller's
// root requirements. It never appears in solutions.
const rootPackage Package = "__root__"

// termRelation describes how a term relates to the partial solution's
// accumulated knowledge about its package.
type termRelation uint8

const (
	// termSatisfied: every assignment consistent with current knowledge
	// satisfies the term.
	termSatisfied termRelation = iota
	// termContradicted: no assignment consistent with current knowledge
	// satisfies the term.
	termContradicted
	// termInconclusive: the term could still go either way.
	termInconclusive
)

// A Term is a proposition about a single package: "the selected version of
// Pkg is in Range" when Positive, or its negation otherwise.
type Term struct {
	Pkg      Package
	Range    VersionRange
	Positive bool
}

// Negate returns the logical negation of the term.
func (t Term) Negate() Term {
	return Term{Pkg: t.Pkg, Range: t.Range, Positive: !t.Positive}
}

// Intersect returns the term allowing exactly the versions allowed by both
// terms. Both terms must concern the same package.
func (t Term) Intersect(o Term) Term {
	if t.Pkg != o.Pkg {
		panic(fmt.Sprintf("canary - intersecting terms for %s and %s", t.Pkg, o.Pkg))
	}
	switch {
	case t.Positive && o.Positive:
		return Term{Pkg: t.Pkg, Range: t.Range.Intersect(o.Range), Positive: true}
	case t.Positive:
		return Term{Pkg: t.Pkg, Range: t.Range.Intersect(o.Range.Complement()), Positive: true}
	case o.Positive:
		return Term{Pkg: t.Pkg, Range: t.Range.Complement().Intersect(o.Range), Positive: true}
	default:
		return Term{Pkg: t.Pkg, Range: t.Range.Union(o.Range), Positive: false}
	}
}

// Difference returns the versions allowed by t but not by o.
func (t Term) Difference(o Term) Term {
	return t.Intersect(o.Negate())
}

// isEmpty reports whether the term allows no versions at all. Negative terms
// are never empty: they always allow "none of the range", which at minimum
// admits leaving the package unselected.
func (t Term) isEmpty() bool {
	return t.Positive && t.Range.IsEmpty()
}

// Equal reports whether two terms allow exactly the same versions with the
// same polarity.
func (t Term) Equal(o Term) bool {
	return t.Pkg == o.Pkg && t.Positive == o.Positive && t.Range.Equal(o.Range)
}

// Satisfies reports whether t being true guarantees o is true; that is,
// whether the versions allowed by t are a subset of those allowed by o.
func (t Term) Satisfies(o Term) bool {
	return t.Intersect(o).Equal(t)
}

// relationTo computes the relation of t given acc, the intersection of
// everything the partial solution has recorded about t's package.
func (t Term) relationTo(acc Term) termRelation {
	full := t.Intersect(acc)
	switch {
	case full.Equal(acc):
		return termSatisfied
	case full.isEmpty():
		return termContradicted
	default:
		return termInconclusive
	}
}

// describe renders the term's package and range as prose, ignoring polarity.
func (t Term) describe() string {
	if t.Pkg == rootPackage {
		return "root"
	}
	if t.Range.IsAny() {
		return fmt.Sprintf("every version of %s", t.Pkg)
	}
	if v, ok := t.Range.singleton(); ok {
		return fmt.Sprintf("%s %s", t.Pkg, v)
	}
	return fmt.Sprintf("%s %s", t.Pkg, t.Range)
}

func (t Term) String() string {
	if !t.Positive {
		return "not " + t.describe()
	}
	return t.describe()
}
