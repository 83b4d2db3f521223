package pubgrub

import "github.com/armon/go-radix"

// Typed wrapper around the radix tree so the rest of the code never type
// asserts. Only the operations MemorySource needs are implemented.

type packageTrie struct {
	t *radix.Tree
}

func newPackageTrie() packageTrie {
	return packageTrie{
		t: radix.New(),
	}
}

// Get is used to lookup a specific key, returning the value and if it was found
func (t packageTrie) Get(s string) (*memPackage, bool) {
	if v, has := t.t.Get(s); has {
		return v.(*memPackage), has
	}
	return nil, false
}

// Insert is used to add a new entry or update an existing entry. Returns if updated.
func (t packageTrie) Insert(s string, v *memPackage) (*memPackage, bool) {
	if v2, had := t.t.Insert(s, v); had {
		return v2.(*memPackage), had
	}
	return nil, false
}

// Len is used to return the number of elements in the tree
func (t packageTrie) Len() int {
	return t.t.Len()
}

// Walk visits every entry in key order.
func (t packageTrie) Walk(fn func(s string, p *memPackage) bool) {
	t.t.Walk(func(s string, v interface{}) bool {
		return fn(s, v.(*memPackage))
	})
}
