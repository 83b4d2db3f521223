// Package pubgrub implements PubGrub-style version solving: given a set of
// root version requirements and a source of package metadata, it finds an
// assignment of exactly one version per package satisfying every constraint,
// or proves that no such assignment exists and explains why.
//
// The solver is an incompatibility-based constraint solver. It alternates
// unit propagation over a growing store of incompatibilities with decision
// making, and on conflict performs conflict-driven learning with backjumping,
// in the manner of CDCL SAT solvers. Failed runs carry a human-readable
// conflict derivation rather than a bare error.
//
// Basic usage:
//
//	src := pubgrub.NewMemorySource()
//	src.AddPackage("foo", "1.0.0", map[pubgrub.Package]string{"bar": ">=1.0.0"})
//	src.AddPackage("bar", "1.2.0", nil)
//
//	reqs, _ := pubgrub.ParseRequirements(map[string]string{"foo": ">=1.0.0"})
//	sol, err := pubgrub.NewSolver(src, nil).Solve(context.Background(), reqs)
//
// A failed run returns a *SolveFailure whose Explanation method renders the
// conflict derivation; fatal metadata errors return a *SourceError instead,
// so callers can distinguish "unsatisfiable" from "broken source".
//
// The solver itself performs no I/O. Lazy metadata sources (see the remote
// subpackage) sit behind the PackageSource interface. The solver asks about
// the same package repeatedly across backtracks but memoizes answers within
// a run; use NewCachingSource to share that cache across runs.
package pubgrub
