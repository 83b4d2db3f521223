package pubgrub

import (
	"fmt"
	"strings"
)

// explainer renders the derivation graph of a terminal incompatibility as
// prose. Shared sub-derivations are written once and referenced by a
// parenthesized line number, so the output stays linear even when the graph
// is a DAG.
type explainer struct {
	st      *incompatStore
	lines   []string
	lineFor map[incompatID]int
	refNum  map[incompatID]int
	refs    map[incompatID]int
	nextRef int
}

func newExplainer(st *incompatStore) *explainer {
	return &explainer{
		st:      st,
		lineFor: make(map[incompatID]int),
		refNum:  make(map[incompatID]int),
		refs:    make(map[incompatID]int),
	}
}

// report renders the full derivation ending at root.
func (e *explainer) report(root *Incompatibility) string {
	e.countRefs(root)
	if root.kind != causeDerived {
		return fmt.Sprintf("Because %s, version solving failed.", root)
	}
	e.visit(root)
	return strings.Join(e.lines, "\n")
}

// countRefs counts how often each incompatibility appears as a parent, so
// shared ones get a line number instead of being rendered twice.
func (e *explainer) countRefs(inc *Incompatibility) {
	e.refs[inc.id]++
	if e.refs[inc.id] > 1 || inc.kind != causeDerived {
		return
	}
	e.countRefs(e.st.get(inc.p1))
	e.countRefs(e.st.get(inc.p2))
}

func (e *explainer) visit(inc *Incompatibility) {
	p1 := e.st.get(inc.p1)
	p2 := e.st.get(inc.p2)
	d1 := p1.kind == causeDerived
	d2 := p2.kind == causeDerived
	incStr := inc.String()

	switch {
	case d1 && d2:
		n1, ok1 := e.refNum[p1.id]
		n2, ok2 := e.refNum[p2.id]
		switch {
		case ok1 && ok2:
			e.write(inc, fmt.Sprintf("Because %s (%d) and %s (%d), %s.", p1, n1, p2, n2, incStr))
		case ok1:
			e.visit(p2)
			e.write(inc, fmt.Sprintf("And because %s (%d), %s.", p1, n1, incStr))
		case ok2:
			e.visit(p1)
			e.write(inc, fmt.Sprintf("And because %s (%d), %s.", p2, n2, incStr))
		case e.singleLine(p1) || e.singleLine(p2):
			// Put the one-line derivation right before the
			// conclusion, where it reads naturally.
			first, second := p2, p1
			if e.singleLine(p2) {
				first, second = p1, p2
			}
			e.visit(first)
			e.visit(second)
			e.write(inc, fmt.Sprintf("Thus, %s.", incStr))
		default:
			e.visitRef(p1)
			e.lines = append(e.lines, "")
			e.visit(p2)
			e.write(inc, fmt.Sprintf("And because %s (%d), %s.", p1, e.refNum[p1.id], incStr))
		}
	case d1 || d2:
		derived, ext := p1, p2
		if d2 {
			derived, ext = p2, p1
		}
		if n, ok := e.refNum[derived.id]; ok {
			e.write(inc, fmt.Sprintf("Because %s and %s (%d), %s.", ext, derived, n, incStr))
		} else if inner, innerExt, ok := e.collapsible(derived); ok {
			e.visit(inner)
			e.write(inc, fmt.Sprintf("And because %s and %s, %s.", innerExt, ext, incStr))
		} else {
			e.visit(derived)
			e.write(inc, fmt.Sprintf("And because %s, %s.", ext, incStr))
		}
	default:
		e.write(inc, fmt.Sprintf("Because %s and %s, %s.", p1, p2, incStr))
	}
}

// singleLine reports whether a derived incompatibility renders as a single
// "Because X and Y" line, which is the case when both parents are external.
func (e *explainer) singleLine(inc *Incompatibility) bool {
	return e.st.get(inc.p1).kind != causeDerived && e.st.get(inc.p2).kind != causeDerived
}

// collapsible reports whether derived's own derivation can be folded into
// its consumer's line: it is referenced once, has exactly one derived and
// one external parent, and the derived parent has not been numbered.
func (e *explainer) collapsible(derived *Incompatibility) (inner, innerExt *Incompatibility, ok bool) {
	if e.refs[derived.id] > 1 {
		return nil, nil, false
	}
	p1 := e.st.get(derived.p1)
	p2 := e.st.get(derived.p2)
	d1 := p1.kind == causeDerived
	d2 := p2.kind == causeDerived
	if d1 == d2 {
		return nil, nil, false
	}
	inner, innerExt = p1, p2
	if d2 {
		inner, innerExt = p2, p1
	}
	if _, numbered := e.refNum[inner.id]; numbered {
		return nil, nil, false
	}
	return inner, innerExt, true
}

func (e *explainer) write(inc *Incompatibility, line string) {
	if e.refs[inc.id] > 1 {
		e.nextRef++
		e.refNum[inc.id] = e.nextRef
		line += fmt.Sprintf(" (%d)", e.nextRef)
	}
	e.lineFor[inc.id] = len(e.lines)
	e.lines = append(e.lines, line)
}

// visitRef renders inc and guarantees its concluding line carries a number,
// so a later line can reference it across the paragraph break.
func (e *explainer) visitRef(inc *Incompatibility) {
	e.visit(inc)
	if _, ok := e.refNum[inc.id]; ok {
		return
	}
	e.nextRef++
	e.refNum[inc.id] = e.nextRef
	i := e.lineFor[inc.id]
	e.lines[i] += fmt.Sprintf(" (%d)", e.nextRef)
}
