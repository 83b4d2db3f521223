package pubgrub

import (
	"context"
	"sort"
	"sync"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// PackageSource supplies package metadata to the solver.
//
// Implementations signal an unknown package or version by returning an error
// wrapping ErrPackageNotFound; any other error aborts the solve as a
// *SourceError. Both methods must be safe for concurrent use and must honor
// context cancellation if they block.
type PackageSource interface {
	// ListVersions returns the available versions of pkg in preference
	// order, most preferred first. The solver tries them in this order, so
	// sources wanting newest-wins behavior return descending versions.
	ListVersions(ctx context.Context, pkg Package) ([]*semver.Version, error)

	// Dependencies returns the requirements of one concrete package
	// version as a map from dependency name to allowed range.
	Dependencies(ctx context.Context, pkg Package, v *semver.Version) (map[Package]VersionRange, error)
}

// rootSource overlays the synthetic root package on top of a real source.
// The root has exactly one version whose dependencies are the caller's
// requirements.
type rootSource struct {
	src     PackageSource
	version *semver.Version
	deps    map[Package]VersionRange
}

func (rs *rootSource) ListVersions(ctx context.Context, pkg Package) ([]*semver.Version, error) {
	if pkg == rootPackage {
		return []*semver.Version{rs.version}, nil
	}
	return rs.src.ListVersions(ctx, pkg)
}

func (rs *rootSource) Dependencies(ctx context.Context, pkg Package, v *semver.Version) (map[Package]VersionRange, error) {
	if pkg == rootPackage {
		return rs.deps, nil
	}
	return rs.src.Dependencies(ctx, pkg, v)
}

type memVersion struct {
	v    *semver.Version
	deps map[Package]VersionRange
}

type memPackage struct {
	// versions sorted descending, so ListVersions prefers the newest.
	versions []memVersion
}

// MemorySource is an in-memory PackageSource populated through AddPackage.
// It is safe for concurrent use.
type MemorySource struct {
	mu   sync.RWMutex
	trie packageTrie
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{trie: newPackageTrie()}
}

// AddPackage registers one version of a package together with its
// requirements. Versions and constraints are parsed eagerly, so malformed
// metadata surfaces here rather than mid-solve. Re-adding an existing
// version replaces its requirements.
func (ms *MemorySource) AddPackage(pkg string, version string, deps map[Package]string) error {
	v, err := ParseVersion(version)
	if err != nil {
		return err
	}
	parsed := make(map[Package]VersionRange, len(deps))
	for dep, c := range deps {
		r, err := ParseRange(c)
		if err != nil {
			return err
		}
		parsed[dep] = r
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	mp, ok := ms.trie.Get(pkg)
	if !ok {
		mp = &memPackage{}
		ms.trie.Insert(pkg, mp)
	}
	for i, mv := range mp.versions {
		if mv.v.Equal(v) {
			mp.versions[i].deps = parsed
			return nil
		}
	}
	mp.versions = append(mp.versions, memVersion{v: v, deps: parsed})
	sort.Slice(mp.versions, func(i, j int) bool {
		return mp.versions[i].v.GreaterThan(mp.versions[j].v)
	})
	return nil
}

// Packages returns the names of every known package in lexical order.
func (ms *MemorySource) Packages() []Package {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]Package, 0, ms.trie.Len())
	ms.trie.Walk(func(s string, _ *memPackage) bool {
		out = append(out, Package(s))
		return false
	})
	return out
}

// ListVersions implements PackageSource, returning versions newest first.
func (ms *MemorySource) ListVersions(_ context.Context, pkg Package) ([]*semver.Version, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	mp, ok := ms.trie.Get(string(pkg))
	if !ok {
		return nil, errors.Wrapf(ErrPackageNotFound, "no package %s", pkg)
	}
	out := make([]*semver.Version, len(mp.versions))
	for i, mv := range mp.versions {
		out[i] = mv.v
	}
	return out, nil
}

// Dependencies implements PackageSource.
func (ms *MemorySource) Dependencies(_ context.Context, pkg Package, v *semver.Version) (map[Package]VersionRange, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	mp, ok := ms.trie.Get(string(pkg))
	if !ok {
		return nil, errors.Wrapf(ErrPackageNotFound, "no package %s", pkg)
	}
	for _, mv := range mp.versions {
		if mv.v.Equal(v) {
			return mv.deps, nil
		}
	}
	return nil, errors.Wrapf(ErrPackageNotFound, "no version %s of %s", v, pkg)
}

type versionsResult struct {
	versions []*semver.Version
	missing  bool
}

type depsResult struct {
	deps    map[Package]VersionRange
	missing bool
}

// cachingSource memoizes another source's answers. Successful answers and
// not-found answers are cached; transient failures are not, so a retry can
// still succeed. Concurrent lookups of the same key are collapsed through
// singleflight.
type cachingSource struct {
	src PackageSource

	group singleflight.Group

	mu       sync.Mutex
	versions map[Package]versionsResult
	deps     map[string]depsResult
}

// NewCachingSource wraps src with per-key memoization. The solver revisits
// packages across backtracks, so expensive sources should always be wrapped.
func NewCachingSource(src PackageSource) PackageSource {
	return &cachingSource{
		src:      src,
		versions: make(map[Package]versionsResult),
		deps:     make(map[string]depsResult),
	}
}

func (cs *cachingSource) ListVersions(ctx context.Context, pkg Package) ([]*semver.Version, error) {
	cs.mu.Lock()
	if res, ok := cs.versions[pkg]; ok {
		cs.mu.Unlock()
		if res.missing {
			return nil, errors.Wrapf(ErrPackageNotFound, "no package %s", pkg)
		}
		return res.versions, nil
	}
	cs.mu.Unlock()

	v, err, _ := cs.group.Do("v/"+string(pkg), func() (interface{}, error) {
		versions, err := cs.src.ListVersions(ctx, pkg)
		if err != nil {
			if errors.Is(err, ErrPackageNotFound) {
				cs.storeVersions(pkg, versionsResult{missing: true})
			}
			return nil, err
		}
		cs.storeVersions(pkg, versionsResult{versions: versions})
		return versions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*semver.Version), nil
}

func (cs *cachingSource) Dependencies(ctx context.Context, pkg Package, ver *semver.Version) (map[Package]VersionRange, error) {
	key := string(pkg) + "@" + ver.String()

	cs.mu.Lock()
	if res, ok := cs.deps[key]; ok {
		cs.mu.Unlock()
		if res.missing {
			return nil, errors.Wrapf(ErrPackageNotFound, "no version %s of %s", ver, pkg)
		}
		return res.deps, nil
	}
	cs.mu.Unlock()

	v, err, _ := cs.group.Do("d/"+key, func() (interface{}, error) {
		deps, err := cs.src.Dependencies(ctx, pkg, ver)
		if err != nil {
			if errors.Is(err, ErrPackageNotFound) {
				cs.storeDeps(key, depsResult{missing: true})
			}
			return nil, err
		}
		cs.storeDeps(key, depsResult{deps: deps})
		return deps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[Package]VersionRange), nil
}

func (cs *cachingSource) storeVersions(pkg Package, res versionsResult) {
	cs.mu.Lock()
	cs.versions[pkg] = res
	cs.mu.Unlock()
}

func (cs *cachingSource) storeDeps(key string, res depsResult) {
	cs.mu.Lock()
	cs.deps[key] = res
	cs.mu.Unlock()
}
