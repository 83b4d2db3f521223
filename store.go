package pubgrub

// incompatStore owns every incompatibility created during a solve. Arena
// ownership keeps derived incompatibilities free of pointer cycles: parents
// are referenced by id and looked up on demand.
type incompatStore struct {
	arena []*Incompatibility
	byPkg map[Package][]incompatID
	seen  map[string]incompatID
}

func newIncompatStore() *incompatStore {
	return &incompatStore{
		byPkg: make(map[Package][]incompatID),
		seen:  make(map[string]incompatID),
	}
}

// intern records the incompatibility in the arena without making it visible
// to propagation. Derived incompatibilities created mid-resolution are
// interned so their ids are stable before the final learned clause is
// inserted. No-op if already recorded.
func (st *incompatStore) intern(inc *Incompatibility) incompatID {
	if inc.id >= 0 {
		return inc.id
	}
	inc.id = incompatID(len(st.arena))
	st.arena = append(st.arena, inc)
	return inc.id
}

// insert records the incompatibility and indexes it for propagation. If an
// incompatibility with the same term set already exists, the existing one is
// returned and the second return is false.
func (st *incompatStore) insert(inc *Incompatibility) (*Incompatibility, bool) {
	key := inc.key()
	if id, ok := st.seen[key]; ok {
		return st.arena[id], false
	}
	id := st.intern(inc)
	st.seen[key] = id
	for _, t := range inc.terms {
		st.byPkg[t.Pkg] = append(st.byPkg[t.Pkg], id)
	}
	return inc, true
}

func (st *incompatStore) get(id incompatID) *Incompatibility {
	return st.arena[id]
}

// forPackage returns the ids of every inserted incompatibility mentioning
// pkg, in insertion order.
func (st *incompatStore) forPackage(pkg Package) []incompatID {
	return st.byPkg[pkg]
}
