package pubgrub

import "github.com/Masterminds/semver"

// assignment is one entry in the partial solution's chronological log. A
// decision carries a concrete version and no cause; a derivation carries the
// id of the incompatibility that forced it.
type assignment struct {
	term    Term
	version *semver.Version
	cause   incompatID
	level   int
	index   int
}

func (a assignment) isDecision() bool {
	return a.cause == noCause
}

// partialSolution is the solver's trail: an ordered log of assignments plus
// indexes for the lookups propagation needs. accum holds, per package, the
// intersection of every logged term about it.
type partialSolution struct {
	log       []assignment
	decisions map[Package]*semver.Version
	accum     map[Package]Term
	order     []Package
	level     int
	attempts  int
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		decisions: make(map[Package]*semver.Version),
		accum:     make(map[Package]Term),
	}
}

// decide selects a concrete version for pkg, opening a new decision level.
func (ps *partialSolution) decide(pkg Package, v *semver.Version) {
	ps.level++
	ps.attempts++
	ps.push(assignment{
		term:    Term{Pkg: pkg, Range: Exactly(v), Positive: true},
		version: v,
		cause:   noCause,
		level:   ps.level,
	})
}

// derive records a term forced by an incompatibility at the current level.
func (ps *partialSolution) derive(t Term, cause incompatID) {
	ps.push(assignment{term: t, cause: cause, level: ps.level})
}

func (ps *partialSolution) push(a assignment) {
	a.index = len(ps.log)
	ps.log = append(ps.log, a)
	if a.isDecision() {
		ps.decisions[a.term.Pkg] = a.version
	}
	if acc, ok := ps.accum[a.term.Pkg]; ok {
		ps.accum[a.term.Pkg] = acc.Intersect(a.term)
	} else {
		ps.accum[a.term.Pkg] = a.term
		ps.order = append(ps.order, a.term.Pkg)
	}
}

// relation reports how t fares against everything logged about its package.
// A package never mentioned is inconclusive.
func (ps *partialSolution) relation(t Term) termRelation {
	acc, ok := ps.accum[t.Pkg]
	if !ok {
		return termInconclusive
	}
	return t.relationTo(acc)
}

// satisfier returns the earliest assignment by which the log, up to and
// including it, satisfies t.
func (ps *partialSolution) satisfier(t Term) assignment {
	var acc Term
	first := true
	for _, a := range ps.log {
		if a.term.Pkg != t.Pkg {
			continue
		}
		if first {
			acc = a.term
			first = false
		} else {
			acc = acc.Intersect(a.term)
		}
		if acc.Satisfies(t) {
			return a
		}
	}
	panic("canary - no satisfier for " + t.String())
}

// backtrack discards every assignment above the given decision level and
// rebuilds the derived indexes. The attempt counter survives, so it reflects
// total work including abandoned branches.
func (ps *partialSolution) backtrack(level int) {
	kept := ps.log[:0]
	for _, a := range ps.log {
		if a.level <= level {
			kept = append(kept, a)
		}
	}
	replay := make([]assignment, len(kept))
	copy(replay, kept)

	ps.log = ps.log[:0]
	ps.decisions = make(map[Package]*semver.Version)
	ps.accum = make(map[Package]Term)
	ps.order = ps.order[:0]
	ps.level = level
	for _, a := range replay {
		ps.push(a)
	}
}

// undecided returns the packages with a positive accumulated term but no
// decision yet, in first-reference order.
func (ps *partialSolution) undecided() []Package {
	var out []Package
	for _, pkg := range ps.order {
		if _, ok := ps.decisions[pkg]; ok {
			continue
		}
		if acc, ok := ps.accum[pkg]; ok && acc.Positive {
			out = append(out, pkg)
		}
	}
	return out
}
