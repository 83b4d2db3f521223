package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YassinCh/pubgrub-go"
)

const fooDoc = `{
	"name": "foo",
	"versions": [
		{"version": "2.0.0", "dependencies": {"bar": ">=1.0.0"}},
		{"version": "1.0.0", "dependencies": {}}
	]
}`

func newTestSource(t *testing.T, handler http.Handler) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := NewSource(srv.URL, WithHTTPClient(srv.Client()), WithMaxRetries(2))
	require.NoError(t, err)
	return src
}

func TestSourceListVersions(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/packages/foo", r.URL.Path)
		fmt.Fprint(w, fooDoc)
	}))

	vs, err := src.ListVersions(context.Background(), "foo")
	require.NoError(t, err)
	require.Len(t, vs, 2)
	// document order, so the registry controls preference
	assert.Equal(t, "2.0.0", vs[0].String())
	assert.Equal(t, "1.0.0", vs[1].String())
}

func TestSourceDependencies(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fooDoc)
	}))

	v, err := pubgrub.ParseVersion("2.0.0")
	require.NoError(t, err)
	deps, err := src.Dependencies(context.Background(), "foo", v)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	r, ok := deps["bar"]
	require.True(t, ok)
	assert.Equal(t, ">=1.0.0", r.String())
}

func TestSourceNotFound(t *testing.T) {
	src := newTestSource(t, http.NotFoundHandler())

	_, err := src.ListVersions(context.Background(), "ghost")
	assert.True(t, errors.Is(err, pubgrub.ErrPackageNotFound))
}

func TestSourceRetriesServerErrors(t *testing.T) {
	var calls int32
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, fooDoc)
	}))

	vs, err := src.ListVersions(context.Background(), "foo")
	require.NoError(t, err)
	assert.Len(t, vs, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSourceDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusForbidden)
	}))

	_, err := src.ListVersions(context.Background(), "foo")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSourceEndToEndSolve(t *testing.T) {
	docs := map[string]string{
		"foo": fooDoc,
		"bar": `{"name": "bar", "versions": [{"version": "1.2.0", "dependencies": {}}]}`,
	}
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path[len("/packages/"):]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, doc)
	}))

	reqs, err := pubgrub.ParseRequirements(map[string]string{"foo": ">=1.0.0"})
	require.NoError(t, err)

	sol, err := pubgrub.NewSolver(src, nil).Solve(context.Background(), reqs)
	require.NoError(t, err)

	foo, ok := sol.Version("foo")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", foo.String())
	bar, ok := sol.Version("bar")
	require.True(t, ok)
	assert.Equal(t, "1.2.0", bar.String())
}
