// Package analysis holds the side table the semantic passes fill in for
// each syntax tree node, and the context shared between passes.
package analysis

import (
	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/scope"
	"github.com/thomasrohde/piske/pkg/types"
)

// Annotation is what the passes know about one node.
type Annotation struct {
	// Scope is the scope active when the node was visited.
	Scope scope.ID
	// Binding is the scope a name reference resolved to in the symbol
	// pass, or None. Later passes read the name from there, so a let
	// initializer keeps seeing the outer binding it shadows.
	Binding scope.ID
	// Type is the computed static type; Unknown until the type pass runs.
	Type types.Type
	// Promote is the type the node's value is widened to before use,
	// or Unknown for no promotion.
	Promote types.Type
	// Elem is the element type of a set node.
	Elem types.Type
}

// Table maps nodes to their annotations by node identity.
type Table struct {
	entries map[ast.Node]*Annotation
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: map[ast.Node]*Annotation{}}
}

// Of returns the annotation for n, creating an empty one if needed.
func (t *Table) Of(n ast.Node) *Annotation {
	if a, ok := t.entries[n]; ok {
		return a
	}
	a := &Annotation{}
	t.entries[n] = a
	return a
}

// Get returns the annotation for n without creating it.
func (t *Table) Get(n ast.Node) (*Annotation, bool) {
	a, ok := t.entries[n]
	return a, ok
}

// ScopeOf returns the scope a name used at n should be read from: the
// recorded binding when there is one, else the scope of n itself.
func (t *Table) ScopeOf(n ast.Node) scope.ID {
	a := t.Of(n)
	if a.Binding != scope.None {
		return a.Binding
	}
	return a.Scope
}

// Len returns the number of annotated nodes.
func (t *Table) Len() int {
	return len(t.entries)
}

// Context is the state shared by the symbol pass, the type pass and the
// evaluator. A REPL session reuses one context so globals persist.
type Context struct {
	Scopes *scope.Tree
	Table  *Table
}

// NewContext creates a context with an empty global scope.
func NewContext() *Context {
	return &Context{Scopes: scope.NewTree(), Table: NewTable()}
}
