// Package scope implements the piske scope tree: a hierarchy of symbol
// tables that also holds the runtime value of every bound name.
package scope

import (
	"fmt"
	"sort"

	"github.com/thomasrohde/piske/pkg/value"
)

// ID addresses a scope within a Tree. The zero ID is None.
type ID int

// None means "no scope".
const None ID = 0

// Entry is the record behind one name in one scope.
type Entry struct {
	Symbol Symbol
	Value  value.Value
}

type record struct {
	parent   ID
	children []ID
	entries  map[string]*Entry
	active   int
}

// Tree is an arena of scopes. It is not safe for concurrent use.
type Tree struct {
	scopes []*record
}

// NewTree creates a tree holding only the global scope.
func NewTree() *Tree {
	t := &Tree{scopes: []*record{nil}}
	t.scopes = append(t.scopes, &record{parent: None, entries: map[string]*Entry{}})
	return t
}

// Global returns the root scope.
func (t *Tree) Global() ID {
	return 1
}

func (t *Tree) get(id ID) *record {
	if id <= None || int(id) >= len(t.scopes) {
		panic(fmt.Sprintf("scope: invalid scope id %d", id))
	}
	return t.scopes[id]
}

// Len returns the number of scopes allocated so far.
func (t *Tree) Len() int {
	return len(t.scopes) - 1
}

// Push allocates a new child of parent.
func (t *Tree) Push(parent ID) ID {
	id := ID(len(t.scopes))
	t.scopes = append(t.scopes, &record{parent: parent, entries: map[string]*Entry{}})
	p := t.get(parent)
	p.children = append(p.children, id)
	return id
}

// Pop returns the parent of id. Popping the root is an invariant violation.
func (t *Tree) Pop(id ID) (ID, error) {
	parent := t.get(id).parent
	if parent == None {
		return None, fmt.Errorf("attempt to pop the global scope")
	}
	return parent, nil
}

// Parent returns the enclosing scope of id, or None for the root.
func (t *Tree) Parent(id ID) ID {
	return t.get(id).parent
}

// Define binds name to sym in exactly scope id, replacing any previous
// binding there. A value already stored under name is kept.
func (t *Tree) Define(id ID, name string, sym Symbol) (Symbol, bool) {
	r := t.get(id)
	if e, ok := r.entries[name]; ok {
		prior := e.Symbol
		e.Symbol = sym
		return prior, true
	}
	r.entries[name] = &Entry{Symbol: sym}
	return nil, false
}

func (t *Tree) find(id ID, name string) (*Entry, ID) {
	for cur := id; cur != None; cur = t.get(cur).parent {
		if e, ok := t.get(cur).entries[name]; ok {
			return e, cur
		}
	}
	return nil, None
}

// Resolve looks name up in id and then in each ancestor, returning the
// nearest symbol and the scope holding it.
func (t *Tree) Resolve(id ID, name string) (Symbol, ID, bool) {
	e, at := t.find(id, name)
	if e == nil {
		return nil, None, false
	}
	return e.Symbol, at, true
}

// ResolveLocal looks name up in scope id only.
func (t *Tree) ResolveLocal(id ID, name string) (Symbol, bool) {
	e, ok := t.get(id).entries[name]
	if !ok {
		return nil, false
	}
	return e.Symbol, true
}

// Assign stores v under name in the nearest scope that defines it.
func (t *Tree) Assign(id ID, name string, v value.Value) error {
	e, _ := t.find(id, name)
	if e == nil {
		return fmt.Errorf("symbol '%s' does not exist in scope", name)
	}
	e.Value = v
	return nil
}

// Lookup reads the value of name through the scope chain. ok is false when
// the name is unbound or has not been given a value yet.
func (t *Tree) Lookup(id ID, name string) (value.Value, bool) {
	e, _ := t.find(id, name)
	if e == nil || e.Value == nil {
		return nil, false
	}
	return e.Value, true
}

// Names lists every name visible from id, sorted.
func (t *Tree) Names(id ID) []string {
	seen := map[string]bool{}
	var out []string
	for cur := id; cur != None; cur = t.get(cur).parent {
		for name := range t.get(cur).entries {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

// IsWithin reports whether id is root or one of its descendants.
func (t *Tree) IsWithin(id, root ID) bool {
	for cur := id; cur != None; cur = t.get(cur).parent {
		if cur == root {
			return true
		}
	}
	return false
}

func (t *Tree) walk(root ID, fn func(ID, *record)) {
	r := t.get(root)
	fn(root, r)
	for _, child := range r.children {
		t.walk(child, fn)
	}
}
