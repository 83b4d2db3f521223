package pubgrub

import "github.com/Masterminds/semver"

// A Solution is the output of a successful solve: exactly one version per
// reachable package, satisfying every requirement.
type Solution interface {
	// Versions returns the full assignment as a map from package to
	// selected version.
	Versions() map[Package]*semver.Version

	// Version returns the selected version of pkg, if pkg is part of the
	// solution.
	Version(pkg Package) (*semver.Version, bool)

	// Attempts returns the number of decisions the solver made on the way
	// here, including those undone by backtracking. It is a rough measure
	// of how contested the solve was.
	Attempts() int
}

type solution struct {
	versions map[Package]*semver.Version
	attempts int
}

func (s solution) Versions() map[Package]*semver.Version {
	out := make(map[Package]*semver.Version, len(s.versions))
	for pkg, v := range s.versions {
		out[pkg] = v
	}
	return out
}

func (s solution) Version(pkg Package) (*semver.Version, bool) {
	v, ok := s.versions[pkg]
	return v, ok
}

func (s solution) Attempts() int {
	return s.attempts
}
