package scope

// Snapshot is a copy of the bindings of one scope, taken so that a failed
// change to the scope can be undone.
type Snapshot struct {
	id      ID
	entries map[string]Entry
}

// Snapshot copies the bindings currently held directly by scope id.
func (t *Tree) Snapshot(id ID) Snapshot {
	r := t.get(id)
	snap := Snapshot{id: id, entries: make(map[string]Entry, len(r.entries))}
	for name, e := range r.entries {
		snap.entries[name] = *e
	}
	return snap
}

// Restore puts the scope captured by snap back the way it was: names bound
// since are removed and rebound names get their earlier symbol and value.
// Child scopes pushed since are left in the tree.
func (t *Tree) Restore(snap Snapshot) {
	r := t.get(snap.id)
	for name, e := range r.entries {
		prior, ok := snap.entries[name]
		if !ok {
			delete(r.entries, name)
			continue
		}
		*e = prior
	}
	for name, prior := range snap.entries {
		if _, ok := r.entries[name]; !ok {
			e := prior
			r.entries[name] = &e
		}
	}
}
