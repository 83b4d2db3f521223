// Package remote implements a pubgrub.PackageSource backed by an HTTP
// package registry.
//
// The registry protocol is a single JSON document per package, fetched from
// GET <base>/packages/<name>:
//
//	{
//	  "name": "foo",
//	  "versions": [
//	    {"version": "2.0.0", "dependencies": {"bar": ">=1.0.0"}},
//	    {"version": "1.0.0", "dependencies": {}}
//	  ]
//	}
//
// Versions are returned in the document's order, so the registry controls
// solver preference. Transient failures are retried with exponential
// backoff, and a circuit breaker sheds load from a registry that keeps
// failing. The solver memoizes metadata per run, so each package document is
// fetched at most once per solve; wrap a Source with
// pubgrub.NewCachingSource to share the cache across solves.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/cenk/backoff"
	"github.com/pkg/errors"
	"github.com/rs/dnscache"
	"github.com/rubyist/circuitbreaker"
	"github.com/sirupsen/logrus"

	"github.com/YassinCh/pubgrub-go"
)

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "pubgrub-go"

	// consecutive failures before the breaker opens
	breakerThreshold = 5
)

var errRegistryUnavailable = errors.New("registry unavailable")

type versionDoc struct {
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

type packageDoc struct {
	Name     string       `json:"name"`
	Versions []versionDoc `json:"versions"`
}

// Source fetches package metadata from an HTTP registry.
type Source struct {
	base       *url.URL
	client     *http.Client
	breaker    *circuit.Breaker
	l          *logrus.Logger
	userAgent  string
	maxRetries uint64
	resolver   *dnscache.Resolver
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient overrides the HTTP client. The default caches DNS lookups
// and applies a 30 second timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithLogger sets the logger for retry and breaker events.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Source) { s.l = l }
}

// WithUserAgent sets the User-Agent header on registry requests.
func WithUserAgent(ua string) Option {
	return func(s *Source) { s.userAgent = ua }
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n uint64) Option {
	return func(s *Source) { s.maxRetries = n }
}

// NewSource returns a Source reading from the registry at base.
func NewSource(base string, opts ...Option) (*Source, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing registry url %q", base)
	}

	s := &Source{
		base: u,
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    backoff.NewExponentialBackOff(),
			ShouldTrip: circuit.ThresholdTripFunc(breakerThreshold),
		}),
		userAgent:  defaultUserAgent,
		maxRetries: defaultMaxRetries,
		resolver:   &dnscache.Resolver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.l == nil {
		s.l = logrus.New()
		s.l.SetLevel(logrus.WarnLevel)
	}
	if s.client == nil {
		s.client = &http.Client{
			Timeout:   defaultTimeout,
			Transport: &http.Transport{DialContext: s.dialContext},
		}
	}
	return s, nil
}

// dialContext resolves hostnames through the DNS cache, trying each cached
// address in turn.
func (s *Source) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ips, err := s.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	var lastErr error
	for _, ip := range ips {
		conn, err := d.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ListVersions implements pubgrub.PackageSource.
func (s *Source) ListVersions(ctx context.Context, pkg pubgrub.Package) ([]*semver.Version, error) {
	doc, err := s.fetch(ctx, pkg)
	if err != nil {
		return nil, err
	}
	out := make([]*semver.Version, 0, len(doc.Versions))
	for _, vd := range doc.Versions {
		v, err := pubgrub.ParseVersion(vd.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "registry document for %s", pkg)
		}
		out = append(out, v)
	}
	return out, nil
}

// Dependencies implements pubgrub.PackageSource.
func (s *Source) Dependencies(ctx context.Context, pkg pubgrub.Package, v *semver.Version) (map[pubgrub.Package]pubgrub.VersionRange, error) {
	doc, err := s.fetch(ctx, pkg)
	if err != nil {
		return nil, err
	}
	for _, vd := range doc.Versions {
		pv, err := pubgrub.ParseVersion(vd.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "registry document for %s", pkg)
		}
		if !pv.Equal(v) {
			continue
		}
		deps := make(map[pubgrub.Package]pubgrub.VersionRange, len(vd.Dependencies))
		for dep, c := range vd.Dependencies {
			r, err := pubgrub.ParseRange(c)
			if err != nil {
				return nil, errors.Wrapf(err, "registry document for %s", pkg)
			}
			deps[pubgrub.Package(dep)] = r
		}
		return deps, nil
	}
	return nil, errors.Wrapf(pubgrub.ErrPackageNotFound, "no version %s of %s", v, pkg)
}

// fetch retrieves a package document through the breaker, retrying
// transient failures with exponential backoff. A missing package is a
// successful answer as far as the breaker is concerned; only transport and
// server errors count against it.
func (s *Source) fetch(ctx context.Context, pkg pubgrub.Package) (*packageDoc, error) {
	if !s.breaker.Ready() {
		return nil, errors.Wrapf(errRegistryUnavailable, "circuit open for %s", s.base)
	}

	var doc *packageDoc
	var missing bool
	err := s.breaker.Call(func() error {
		op := func() error {
			d, err := s.doFetch(ctx, pkg)
			if err != nil {
				if errors.Is(err, pubgrub.ErrPackageNotFound) {
					missing = true
					return nil
				}
				return err
			}
			doc = d
			return nil
		}
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
		return backoff.RetryNotify(op, bo, func(err error, wait time.Duration) {
			s.l.WithFields(logrus.Fields{
				"package": pkg,
				"wait":    wait,
			}).WithError(err).Warn("registry fetch failed, retrying")
		})
	}, 0)
	if err != nil {
		return nil, err
	}
	if missing {
		return nil, errors.Wrapf(pubgrub.ErrPackageNotFound, "no package %s", pkg)
	}
	return doc, nil
}

func (s *Source) doFetch(ctx context.Context, pkg pubgrub.Package) (*packageDoc, error) {
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/packages/" + url.PathEscape(string(pkg))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var doc packageDoc
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return nil, backoff.Permanent(errors.Wrapf(err, "decoding document for %s", pkg))
		}
		return &doc, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(errors.Wrapf(pubgrub.ErrPackageNotFound, "no package %s", pkg))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.Errorf("registry returned %s for %s", resp.Status, pkg)
	default:
		return nil, backoff.Permanent(fmt.Errorf("registry returned %s for %s", resp.Status, pkg))
	}
}
