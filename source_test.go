package pubgrub

import (
	"context"
	"sync"
	"testing"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenSource fails every call with a non-NotFound error.
type brokenSource struct{}

func (brokenSource) ListVersions(context.Context, Package) ([]*semver.Version, error) {
	return nil, errors.New("registry on fire")
}

func (brokenSource) Dependencies(context.Context, Package, *semver.Version) (map[Package]VersionRange, error) {
	return nil, errors.New("registry on fire")
}

// countingSource counts calls through to an inner source.
type countingSource struct {
	inner PackageSource

	mu       sync.Mutex
	versions int
	deps     int
}

func (cs *countingSource) ListVersions(ctx context.Context, pkg Package) ([]*semver.Version, error) {
	cs.mu.Lock()
	cs.versions++
	cs.mu.Unlock()
	return cs.inner.ListVersions(ctx, pkg)
}

func (cs *countingSource) Dependencies(ctx context.Context, pkg Package, v *semver.Version) (map[Package]VersionRange, error) {
	cs.mu.Lock()
	cs.deps++
	cs.mu.Unlock()
	return cs.inner.Dependencies(ctx, pkg, v)
}

func TestMemorySourceListVersionsDescending(t *testing.T) {
	src := NewMemorySource()
	require.NoError(t, src.AddPackage("foo", "1.0.0", nil))
	require.NoError(t, src.AddPackage("foo", "2.1.0", nil))
	require.NoError(t, src.AddPackage("foo", "1.5.0", nil))

	vs, err := src.ListVersions(context.Background(), "foo")
	require.NoError(t, err)
	require.Len(t, vs, 3)
	assert.Equal(t, "2.1.0", vs[0].String())
	assert.Equal(t, "1.5.0", vs[1].String())
	assert.Equal(t, "1.0.0", vs[2].String())
}

func TestMemorySourceNotFound(t *testing.T) {
	src := NewMemorySource()
	require.NoError(t, src.AddPackage("foo", "1.0.0", nil))

	_, err := src.ListVersions(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrPackageNotFound))

	_, err = src.Dependencies(context.Background(), "foo", semver.MustParse("9.9.9"))
	assert.True(t, errors.Is(err, ErrPackageNotFound))
}

func TestMemorySourceRejectsMalformedMetadata(t *testing.T) {
	src := NewMemorySource()

	var mve *MalformedVersionError
	err := src.AddPackage("foo", "banana", nil)
	require.True(t, errors.As(err, &mve))

	var mce *MalformedConstraintError
	err = src.AddPackage("foo", "1.0.0", map[Package]string{"bar": ">=banana"})
	require.True(t, errors.As(err, &mce))
}

func TestMemorySourceReplacesVersion(t *testing.T) {
	src := NewMemorySource()
	require.NoError(t, src.AddPackage("foo", "1.0.0", map[Package]string{"bar": ">=1.0.0"}))
	require.NoError(t, src.AddPackage("foo", "1.0.0", map[Package]string{"baz": ">=1.0.0"}))

	vs, err := src.ListVersions(context.Background(), "foo")
	require.NoError(t, err)
	require.Len(t, vs, 1)

	deps, err := src.Dependencies(context.Background(), "foo", vs[0])
	require.NoError(t, err)
	_, ok := deps["baz"]
	assert.True(t, ok, "re-added version should carry the new requirements")
	_, ok = deps["bar"]
	assert.False(t, ok)
}

func TestMemorySourcePackages(t *testing.T) {
	src := NewMemorySource()
	require.NoError(t, src.AddPackage("zeta", "1.0.0", nil))
	require.NoError(t, src.AddPackage("alpha", "1.0.0", nil))

	assert.Equal(t, []Package{"alpha", "zeta"}, src.Packages())
}

func TestCachingSourceMemoizes(t *testing.T) {
	inner := NewMemorySource()
	require.NoError(t, inner.AddPackage("foo", "1.0.0", nil))
	counting := &countingSource{inner: inner}
	src := NewCachingSource(counting)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := src.ListVersions(ctx, "foo")
		require.NoError(t, err)
		_, err = src.Dependencies(ctx, "foo", semver.MustParse("1.0.0"))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, counting.versions)
	assert.Equal(t, 1, counting.deps)
}

func TestCachingSourceMemoizesNotFound(t *testing.T) {
	counting := &countingSource{inner: NewMemorySource()}
	src := NewCachingSource(counting)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := src.ListVersions(ctx, "ghost")
		assert.True(t, errors.Is(err, ErrPackageNotFound))
	}
	assert.Equal(t, 1, counting.versions)
}

func TestCachingSourceDoesNotCacheFailures(t *testing.T) {
	counting := &countingSource{inner: brokenSource{}}
	src := NewCachingSource(counting)

	ctx := context.Background()
	_, err := src.ListVersions(ctx, "foo")
	require.Error(t, err)
	_, err = src.ListVersions(ctx, "foo")
	require.Error(t, err)

	assert.Equal(t, 2, counting.versions, "transient failures should be retried")
}
