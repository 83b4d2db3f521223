package pubgrub

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCancelled is returned when the solve's context is cancelled. The
// context's own error is wrapped underneath.
var ErrCancelled = errors.New("version solving cancelled")

// ErrPackageNotFound is the sentinel a PackageSource returns (possibly
// wrapped) when it has no record of a package or version. The solver treats
// it as "no versions available" rather than as a fatal error.
var ErrPackageNotFound = errors.New("package not found")

// SolveFailure is the expected failure mode of a solve: the requirements are
// unsatisfiable, and the derivation of that fact is available as prose.
type SolveFailure struct {
	cause       *Incompatibility
	explanation string
}

func (e *SolveFailure) Error() string {
	return e.explanation
}

// Explanation returns the full conflict derivation, starting with
// "No solution found." and ending with the terminal conflict.
func (e *SolveFailure) Explanation() string {
	return e.explanation
}

// Cause returns the terminal incompatibility whose derivation graph the
// explanation renders.
func (e *SolveFailure) Cause() *Incompatibility {
	return e.cause
}

// SourceError wraps a fatal error from a PackageSource. Unlike a
// SolveFailure it says nothing about satisfiability; the solve simply could
// not proceed.
type SourceError struct {
	Pkg Package
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetching metadata for %s: %s", e.Pkg, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// MalformedVersionError reports an unparseable version string.
type MalformedVersionError struct {
	Version string
	Err     error
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("malformed version %q: %s", e.Version, e.Err)
}

func (e *MalformedVersionError) Unwrap() error {
	return e.Err
}

// MalformedConstraintError reports an unparseable constraint string.
type MalformedConstraintError struct {
	Constraint string
	Err        error
}

func (e *MalformedConstraintError) Error() string {
	return fmt.Sprintf("malformed constraint %q: %s", e.Constraint, e.Err)
}

func (e *MalformedConstraintError) Unwrap() error {
	return e.Err
}
