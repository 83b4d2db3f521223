package main

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/YassinCh/pubgrub-go"
)

// universeFile is the TOML schema for an offline package universe:
//
//	[requirements]
//	foo = ">=1.0.0"
//
//	[[packages]]
//	name = "foo"
//	version = "1.0.0"
//	  [packages.dependencies]
//	  bar = ">=1.0.0, <2.0.0"
type universeFile struct {
	Requirements map[string]string `toml:"requirements"`
	Packages     []packageStanza   `toml:"packages"`
}

type packageStanza struct {
	Name         string            `toml:"name"`
	Version      string            `toml:"version"`
	Dependencies map[string]string `toml:"dependencies"`
}

type universe struct {
	source       *pubgrub.MemorySource
	requirements map[string]string
}

func loadUniverse(path string) (*universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var uf universeFile
	if err := toml.Unmarshal(data, &uf); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	src := pubgrub.NewMemorySource()
	for _, ps := range uf.Packages {
		if ps.Name == "" || ps.Version == "" {
			return nil, errors.Errorf("%s: every package stanza needs a name and a version", path)
		}
		deps := make(map[pubgrub.Package]string, len(ps.Dependencies))
		for dep, c := range ps.Dependencies {
			deps[pubgrub.Package(dep)] = c
		}
		if err := src.AddPackage(ps.Name, ps.Version, deps); err != nil {
			return nil, errors.Wrapf(err, "%s: package %s", path, ps.Name)
		}
	}

	reqs := uf.Requirements
	if reqs == nil {
		reqs = map[string]string{}
	}
	return &universe{source: src, requirements: reqs}, nil
}

// splitRequirement parses a "-r" flag value of the form "pkg constraint";
// a bare package name means any version.
func splitRequirement(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", errors.New("empty requirement")
	}
	parts := strings.SplitN(s, " ", 2)
	if len(parts) == 1 {
		return parts[0], "*", nil
	}
	return parts[0], strings.TrimSpace(parts[1]), nil
}
