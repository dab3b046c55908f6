package scope

import "github.com/thomasrohde/piske/pkg/value"

// Activation is one live call of a function whose locals sit in the
// subtree rooted at a function scope.
type Activation struct {
	root  ID
	saved map[ID]map[string]value.Value
}

// Enter starts a fresh activation of root: every value stored in root's
// subtree is cleared. If root is already active (a re-entrant call) the
// current values are saved first and restored by Leave.
func (t *Tree) Enter(root ID) Activation {
	act := Activation{root: root}
	r := t.get(root)
	if r.active > 0 {
		act.saved = map[ID]map[string]value.Value{}
		t.walk(root, func(id ID, rec *record) {
			vals := make(map[string]value.Value, len(rec.entries))
			for name, e := range rec.entries {
				vals[name] = e.Value
			}
			act.saved[id] = vals
		})
	}
	t.walk(root, func(_ ID, rec *record) {
		for _, e := range rec.entries {
			e.Value = nil
		}
	})
	r.active++
	return act
}

// Leave ends an activation started by Enter.
func (t *Tree) Leave(act Activation) {
	t.get(act.root).active--
	if act.saved == nil {
		return
	}
	t.walk(act.root, func(id ID, rec *record) {
		vals := act.saved[id]
		for name, e := range rec.entries {
			e.Value = vals[name]
		}
	})
}

// Active reports how many activations of root are currently live.
func (t *Tree) Active(root ID) int {
	return t.get(root).active
}
