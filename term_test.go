package pubgrub

import "testing"

func pos(t *testing.T, pkg, r string) Term {
	t.Helper()
	return Term{Pkg: Package(pkg), Range: mkr(t, r), Positive: true}
}

func neg(t *testing.T, pkg, r string) Term {
	t.Helper()
	return Term{Pkg: Package(pkg), Range: mkr(t, r), Positive: false}
}

func TestTermIntersect(t *testing.T) {
	table := []struct {
		a, b Term
		want Term
	}{
		// positive ∩ positive narrows the range
		{pos(t, "foo", ">=1.0.0"), pos(t, "foo", "<2.0.0"), pos(t, "foo", ">=1.0.0, <2.0.0")},
		// positive ∩ negative carves the negative's range out
		{pos(t, "foo", ">=1.0.0"), neg(t, "foo", ">=2.0.0"), pos(t, "foo", ">=1.0.0, <2.0.0")},
		// negative ∩ negative widens the forbidden range
		{neg(t, "foo", "<1.0.0"), neg(t, "foo", ">=2.0.0"), neg(t, "foo", "<1.0.0 || >=2.0.0")},
	}

	for _, tc := range table {
		got := tc.a.Intersect(tc.b)
		if !got.Equal(tc.want) {
			t.Errorf("(%s) ∩ (%s) = %s, want %s", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestTermIntersectDifferentPackagesPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	pos(t, "foo", "*").Intersect(pos(t, "bar", "*"))
}

func TestTermSatisfies(t *testing.T) {
	table := []struct {
		a, b Term
		want bool
	}{
		{pos(t, "foo", ">=1.5.0, <2.0.0"), pos(t, "foo", ">=1.0.0"), true},
		{pos(t, "foo", ">=1.0.0"), pos(t, "foo", ">=1.5.0"), false},
		// selecting inside the forbidden range violates the negation
		{pos(t, "foo", "==1.0.0"), neg(t, "foo", ">=1.0.0"), false},
		{pos(t, "foo", "==0.9.0"), neg(t, "foo", ">=1.0.0"), true},
		{neg(t, "foo", ">=1.0.0"), neg(t, "foo", ">=2.0.0"), true},
		{neg(t, "foo", ">=2.0.0"), neg(t, "foo", ">=1.0.0"), false},
	}

	for _, tc := range table {
		if got := tc.a.Satisfies(tc.b); got != tc.want {
			t.Errorf("(%s).Satisfies(%s) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestTermRelation(t *testing.T) {
	acc := pos(t, "foo", ">=1.0.0, <2.0.0")

	table := []struct {
		term Term
		want termRelation
	}{
		{pos(t, "foo", ">=1.0.0"), termSatisfied},
		{pos(t, "foo", ">=2.0.0"), termContradicted},
		{pos(t, "foo", ">=1.5.0"), termInconclusive},
		{neg(t, "foo", ">=2.0.0"), termSatisfied},
		{neg(t, "foo", ">=1.0.0"), termContradicted},
		{neg(t, "foo", ">=1.5.0"), termInconclusive},
	}

	for _, tc := range table {
		if got := tc.term.relationTo(acc); got != tc.want {
			t.Errorf("(%s).relationTo(%s) = %v, want %v", tc.term, acc, got, tc.want)
		}
	}
}

func TestTermDescribe(t *testing.T) {
	table := []struct {
		term Term
		want string
	}{
		{pos(t, "foo", "*"), "every version of foo"},
		{pos(t, "foo", "==1.2.3"), "foo 1.2.3"},
		{pos(t, "foo", ">=1.0.0"), "foo >=1.0.0"},
		{pos(t, string(rootPackage), "==0.0.0"), "root"},
	}

	for _, tc := range table {
		if got := tc.term.describe(); got != tc.want {
			t.Errorf("describe(%#v) = %q, want %q", tc.term, got, tc.want)
		}
	}

	if got := neg(t, "foo", ">=1.0.0").String(); got != "not foo >=1.0.0" {
		t.Errorf("negative String() = %q", got)
	}
}
