package pubgrub

import "testing"

func TestPartialSolutionAccumulates(t *testing.T) {
	ps := newPartialSolution()
	ps.derive(pos(t, "foo", ">=1.0.0"), 0)
	ps.derive(pos(t, "foo", "<2.0.0"), 1)

	if got := ps.relation(pos(t, "foo", ">=1.0.0, <2.0.0")); got != termSatisfied {
		t.Errorf("relation = %v, want satisfied", got)
	}
	if got := ps.relation(pos(t, "foo", ">=2.0.0")); got != termContradicted {
		t.Errorf("relation = %v, want contradicted", got)
	}
	if got := ps.relation(pos(t, "bar", "*")); got != termInconclusive {
		t.Errorf("unknown package relation = %v, want inconclusive", got)
	}
}

func TestPartialSolutionDecide(t *testing.T) {
	ps := newPartialSolution()
	ps.derive(pos(t, "foo", ">=1.0.0"), 0)
	if ps.level != 0 {
		t.Fatalf("derivations alone should not open a level, got %d", ps.level)
	}

	ps.decide("foo", mkv(t, "1.5.0"))
	if ps.level != 1 {
		t.Errorf("level = %d, want 1", ps.level)
	}
	if ps.attempts != 1 {
		t.Errorf("attempts = %d, want 1", ps.attempts)
	}
	if v, ok := ps.decisions["foo"]; !ok || v.String() != "1.5.0" {
		t.Errorf("decision = %v, %v", v, ok)
	}
	if len(ps.undecided()) != 0 {
		t.Errorf("undecided = %v, want none", ps.undecided())
	}
}

func TestPartialSolutionUndecidedOrder(t *testing.T) {
	ps := newPartialSolution()
	ps.derive(pos(t, "b", "*"), 0)
	ps.derive(pos(t, "a", "*"), 1)
	ps.derive(neg(t, "c", ">=1.0.0"), 2)

	// first-reference order, and only positively constrained packages
	und := ps.undecided()
	if len(und) != 2 || und[0] != "b" || und[1] != "a" {
		t.Errorf("undecided = %v, want [b a]", und)
	}
}

func TestPartialSolutionSatisfier(t *testing.T) {
	ps := newPartialSolution()
	ps.derive(pos(t, "foo", ">=1.0.0"), 0)
	ps.derive(pos(t, "foo", "<2.0.0"), 1)
	ps.derive(pos(t, "foo", "<1.8.0"), 2)

	// >=1.0.0 alone satisfies the first term
	if a := ps.satisfier(pos(t, "foo", ">=1.0.0")); a.index != 0 {
		t.Errorf("satisfier index = %d, want 0", a.index)
	}
	// the conjunction is needed for the narrower term
	if a := ps.satisfier(pos(t, "foo", ">=1.0.0, <2.0.0")); a.index != 1 {
		t.Errorf("satisfier index = %d, want 1", a.index)
	}
}

func TestPartialSolutionBacktrack(t *testing.T) {
	ps := newPartialSolution()
	ps.derive(pos(t, "root", "==0.0.0"), 0)
	ps.decide("root", mkv(t, "0.0.0"))
	ps.derive(pos(t, "foo", ">=1.0.0"), 1)
	ps.decide("foo", mkv(t, "2.0.0"))
	ps.derive(pos(t, "bar", ">=1.0.0"), 2)
	ps.decide("bar", mkv(t, "1.0.0"))

	ps.backtrack(1)

	if ps.level != 1 {
		t.Errorf("level = %d, want 1", ps.level)
	}
	if _, ok := ps.decisions["foo"]; ok {
		t.Error("foo decision should be gone")
	}
	if _, ok := ps.decisions["root"]; !ok {
		t.Error("root decision should survive")
	}
	// foo's level-1 derivation survives, so it is undecided again
	und := ps.undecided()
	if len(und) != 1 || und[0] != "foo" {
		t.Errorf("undecided = %v, want [foo]", und)
	}
	// attempts measure total work, not current depth
	if ps.attempts != 3 {
		t.Errorf("attempts = %d, want 3", ps.attempts)
	}
}
