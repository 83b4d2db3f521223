package pubgrub

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
)

// ParseVersion parses a semantic version string.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, &MalformedVersionError{Version: s, Err: err}
	}
	return v, nil
}

// ParseRange parses a constraint string into a VersionRange.
//
// Supported clauses: ">=", "<=", ">", "<", "==", "!=", the compatible-release
// operator "~=X.Y.Z" (equivalent to ">=X.Y.Z, <X.(Y+1).0"), a bare version
// (exact match), and "*" or the empty string for any version. Comma-separated
// clauses are intersected.
func ParseRange(s string) (VersionRange, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return AnyRange(), nil
	}
	out := AnyRange()
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		r, err := parseClause(clause)
		if err != nil {
			return EmptyRange(), err
		}
		out = out.Intersect(r)
	}
	return out, nil
}

// ParseRequirements parses a map of constraint strings, as accepted by
// Solver.Solve.
func ParseRequirements(reqs map[string]string) (map[Package]VersionRange, error) {
	out := make(map[Package]VersionRange, len(reqs))
	for pkg, c := range reqs {
		r, err := ParseRange(c)
		if err != nil {
			return nil, err
		}
		out[Package(pkg)] = r
	}
	return out, nil
}

func parseClause(clause string) (VersionRange, error) {
	version := func(s string) (*semver.Version, error) {
		v, err := ParseVersion(s)
		if err != nil {
			return nil, &MalformedConstraintError{Constraint: clause, Err: err}
		}
		return v, nil
	}

	switch {
	case strings.HasPrefix(clause, "~="):
		v, err := version(clause[2:])
		if err != nil {
			return EmptyRange(), err
		}
		next := semver.MustParse(fmt.Sprintf("%d.%d.0", v.Major(), v.Minor()+1))
		return AtLeast(v).Intersect(Below(next)), nil
	case strings.HasPrefix(clause, ">="):
		v, err := version(clause[2:])
		if err != nil {
			return EmptyRange(), err
		}
		return AtLeast(v), nil
	case strings.HasPrefix(clause, "<="):
		v, err := version(clause[2:])
		if err != nil {
			return EmptyRange(), err
		}
		return AtMost(v), nil
	case strings.HasPrefix(clause, "=="):
		v, err := version(clause[2:])
		if err != nil {
			return EmptyRange(), err
		}
		return Exactly(v), nil
	case strings.HasPrefix(clause, "!="):
		v, err := version(clause[2:])
		if err != nil {
			return EmptyRange(), err
		}
		return Exactly(v).Complement(), nil
	case strings.HasPrefix(clause, ">"):
		v, err := version(clause[1:])
		if err != nil {
			return EmptyRange(), err
		}
		return GreaterThan(v), nil
	case strings.HasPrefix(clause, "<"):
		v, err := version(clause[1:])
		if err != nil {
			return EmptyRange(), err
		}
		return Below(v), nil
	default:
		v, err := version(clause)
		if err != nil {
			return EmptyRange(), err
		}
		return Exactly(v), nil
	}
}
