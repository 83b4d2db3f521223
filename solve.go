package pubgrub

import (
	"context"
	"sort"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Solver runs PubGrub version solving against a PackageSource.
type Solver struct {
	src PackageSource
	l   *logrus.Logger
}

// NewSolver returns a Solver reading metadata from src. Pass a logger to get
// a debug-level trace of propagation, decisions and conflict resolution; nil
// gets a quiet default.
func NewSolver(src PackageSource, l *logrus.Logger) *Solver {
	if l == nil {
		l = logrus.New()
		l.SetLevel(logrus.WarnLevel)
	}
	return &Solver{src: src, l: l}
}

// Solve finds a version assignment satisfying reqs and every transitive
// requirement, or explains why none exists.
//
// Unsatisfiable requirements return a *SolveFailure. Fatal metadata errors
// return a *SourceError. Context cancellation returns an error wrapping
// ErrCancelled. Each call is an independent run; incompatibilities learned
// in one run are not carried into the next.
func (s *Solver) Solve(ctx context.Context, reqs map[Package]VersionRange) (Solution, error) {
	rootVersion := semver.MustParse("0.0.0")
	deps := make(map[Package]VersionRange, len(reqs))
	for pkg, r := range reqs {
		deps[pkg] = r
	}

	run := &solveRun{
		l:   s.l,
		src: NewCachingSource(&rootSource{src: s.src, version: rootVersion, deps: deps}),
		st:  newIncompatStore(),
		ps:  newPartialSolution(),
	}
	return run.solve(ctx, rootVersion)
}

// solveRun holds the per-call state of one solve.
type solveRun struct {
	l   *logrus.Logger
	src PackageSource
	st  *incompatStore
	ps  *partialSolution
}

func (s *solveRun) solve(ctx context.Context, rootVersion *semver.Version) (Solution, error) {
	s.st.insert(notRootIncompat(rootVersion))

	next := rootPackage
	for {
		if err := s.propagate(ctx, next); err != nil {
			return nil, err
		}
		pkg, done, err := s.choosePackage(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			versions := make(map[Package]*semver.Version, len(s.ps.decisions))
			for pkg, v := range s.ps.decisions {
				if pkg == rootPackage {
					continue
				}
				versions[pkg] = v
			}
			if s.l.Level >= logrus.DebugLevel {
				s.l.WithFields(logrus.Fields{
					"packages": len(versions),
					"attempts": s.ps.attempts,
				}).Debug("solve succeeded")
			}
			return solution{versions: versions, attempts: s.ps.attempts}, nil
		}
		next = pkg
	}
}

type propResult uint8

const (
	propNone propResult = iota
	propDerived
	propConflict
)

// propagate runs unit propagation to fixpoint, starting from the package
// whose knowledge just changed.
func (s *solveRun) propagate(ctx context.Context, pkg Package) error {
	changed := []Package{pkg}
	for len(changed) > 0 {
		select {
		case <-ctx.Done():
			return errors.Wrap(ErrCancelled, ctx.Err().Error())
		default:
		}

		p := changed[0]
		changed = changed[1:]

		// Newest incompatibilities first, so freshly learned clauses
		// propagate before the old ones that led to them.
		ids := s.st.forPackage(p)
		for i := len(ids) - 1; i >= 0; i-- {
			inc := s.st.get(ids[i])
			res, dep := s.propagateIncompat(inc)
			if res == propDerived {
				changed = append(changed, dep)
				continue
			}
			if res == propConflict {
				rootCause, err := s.resolveConflict(inc)
				if err != nil {
					return err
				}
				// After the backjump the learned incompatibility is
				// almost-satisfied by construction, so it forces a
				// new derivation; restart propagation from there.
				res, dep = s.propagateIncompat(rootCause)
				if res != propDerived {
					panic("canary - root cause not unit after backjump")
				}
				changed = changed[:0]
				changed = append(changed, dep)
				break
			}
		}
	}
	return nil
}

// propagateIncompat checks one incompatibility against the partial solution.
// If every term but one is satisfied, the last term's negation is forced; if
// all are satisfied, the incompatibility is in conflict.
func (s *solveRun) propagateIncompat(inc *Incompatibility) (propResult, Package) {
	unit := -1
	for i, t := range inc.terms {
		switch s.ps.relation(t) {
		case termContradicted:
			return propNone, ""
		case termInconclusive:
			if unit >= 0 {
				return propNone, ""
			}
			unit = i
		}
	}
	if unit < 0 {
		return propConflict, ""
	}

	t := inc.terms[unit]
	s.ps.derive(t.Negate(), inc.id)
	if s.l.Level >= logrus.DebugLevel {
		s.l.WithFields(logrus.Fields{
			"term":  t.Negate().String(),
			"cause": inc.String(),
			"level": s.ps.level,
		}).Debug("derived")
	}
	return propDerived, t.Pkg
}

// resolveConflict performs conflict-driven clause learning: it repeatedly
// resolves the conflicting incompatibility against the cause of its most
// recently derived term, until the result pins the conflict on a single
// earlier decision level, then backjumps there. A terminal incompatibility
// means the root requirements themselves are unsatisfiable.
func (s *solveRun) resolveConflict(inc *Incompatibility) (*Incompatibility, error) {
	if s.l.Level >= logrus.DebugLevel {
		s.l.WithFields(logrus.Fields{"incompatibility": inc.String()}).Debug("conflict")
	}

	learned := false
	for {
		if inc.isTerminal() {
			return nil, s.failure(inc)
		}

		satIdx := -1
		var sat assignment
		var diff Term
		haveDiff := false
		prevLevel := 1
		for i, t := range inc.terms {
			a := s.ps.satisfier(t)
			switch {
			case satIdx < 0:
				satIdx, sat = i, a
			case a.index > sat.index:
				if sat.level > prevLevel {
					prevLevel = sat.level
				}
				satIdx, sat = i, a
				haveDiff = false
			default:
				if a.level > prevLevel {
					prevLevel = a.level
				}
			}
			if satIdx == i {
				diff = sat.term.Difference(t)
				haveDiff = !diff.isEmpty()
				if haveDiff {
					if lvl := s.ps.satisfier(diff.Negate()).level; lvl > prevLevel {
						prevLevel = lvl
					}
				}
			}
		}

		if prevLevel < sat.level || sat.isDecision() {
			s.ps.backtrack(prevLevel)
			if s.l.Level >= logrus.DebugLevel {
				s.l.WithFields(logrus.Fields{
					"level":   prevLevel,
					"learned": inc.String(),
				}).Debug("backjump")
			}
			if learned {
				inc, _ = s.st.insert(inc)
			}
			return inc, nil
		}

		// Resolution step: replace the latest-satisfied term with the
		// terms of its cause.
		cause := s.st.get(sat.cause)
		var terms []Term
		for i, t := range inc.terms {
			if i != satIdx {
				terms = append(terms, t)
			}
		}
		for _, t := range cause.terms {
			if t.Pkg != sat.term.Pkg {
				terms = append(terms, t)
			}
		}
		if haveDiff {
			terms = append(terms, diff.Negate())
		}

		prev := inc
		inc = derivedIncompat(terms, prev.id, cause.id)
		s.st.intern(inc)
		learned = true
		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"derived": inc.String(),
				"from":    prev.String(),
				"cause":   cause.String(),
			}).Debug("resolved")
		}
	}
}

func (s *solveRun) failure(inc *Incompatibility) error {
	return &SolveFailure{
		cause:       inc,
		explanation: "No solution found.\n\n" + newExplainer(s.st).report(inc),
	}
}

// choosePackage picks the undecided package with the fewest candidate
// versions and decides its most preferred one, inserting the version's
// dependency incompatibilities first. Fewest-first keeps contested packages
// early in the trail, which shortens backjumps.
func (s *solveRun) choosePackage(ctx context.Context) (Package, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, errors.Wrap(ErrCancelled, ctx.Err().Error())
	default:
	}

	undecided := s.ps.undecided()
	if len(undecided) == 0 {
		return "", true, nil
	}

	var best Package
	var bestVers []*semver.Version
	found := false
	for _, pkg := range undecided {
		acc := s.ps.accum[pkg]
		all, err := s.src.ListVersions(ctx, pkg)
		if err != nil {
			if !errors.Is(err, ErrPackageNotFound) {
				return "", false, &SourceError{Pkg: pkg, Err: err}
			}
			all = nil
		}
		var matching []*semver.Version
		for _, v := range all {
			if acc.Range.Contains(v) {
				matching = append(matching, v)
			}
		}
		if !found || len(matching) < len(bestVers) {
			best, bestVers, found = pkg, matching, true
		}
	}

	if len(bestVers) == 0 {
		s.st.insert(noVersionsIncompat(best, s.ps.accum[best].Range))
		return best, false, nil
	}
	v := bestVers[0]

	deps, err := s.src.Dependencies(ctx, best, v)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			// The version is listed but its metadata is gone; rule it
			// out and let propagation try the next one.
			s.st.insert(noVersionsIncompat(best, Exactly(v)))
			return best, false, nil
		}
		return "", false, &SourceError{Pkg: best, Err: err}
	}

	names := make([]Package, 0, len(deps))
	for dep := range deps {
		names = append(names, dep)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	conflict := false
	for _, dep := range names {
		r := deps[dep]
		var inc *Incompatibility
		if dep == best {
			if r.Contains(v) {
				continue
			}
			inc = noVersionsIncompat(best, Exactly(v))
		} else {
			inc = dependencyIncompat(best, v, dep, r)
		}
		inc, _ = s.st.insert(inc)

		all := true
		for _, t := range inc.terms {
			if t.Pkg == best {
				continue
			}
			if s.ps.relation(t) != termSatisfied {
				all = false
				break
			}
		}
		conflict = conflict || all
	}

	if !conflict {
		s.ps.decide(best, v)
		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"package": best,
				"version": v.String(),
				"level":   s.ps.level,
			}).Debug("decided")
		}
	}
	return best, false, nil
}
