package scope_test

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/thomasrohde/piske/pkg/scope"
	"github.com/thomasrohde/piske/pkg/types"
	"github.com/thomasrohde/piske/pkg/value"
)

func TestGlobalAndPush(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()
	be.Equal(t, tree.Len(), 1)
	be.Equal(t, tree.Parent(g), scope.None)

	child := tree.Push(g)
	be.True(t, child != g)
	be.Equal(t, tree.Parent(child), g)

	parent, err := tree.Pop(child)
	be.Err(t, err, nil)
	be.Equal(t, parent, g)

	_, err = tree.Pop(g)
	be.Err(t, err, "global scope")
}

func TestDefineAndResolve(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()
	inner := tree.Push(tree.Push(g))

	tree.Define(g, "a", &scope.Variable{Name: "a", Type: types.Int})

	sym, at, ok := tree.Resolve(inner, "a")
	be.True(t, ok)
	be.Equal(t, at, g)
	be.Equal(t, sym.SymbolName(), "a")

	_, ok = tree.ResolveLocal(inner, "a")
	be.True(t, !ok)

	_, _, ok = tree.Resolve(inner, "missing")
	be.True(t, !ok)
}

func TestShadowing(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()
	inner := tree.Push(g)

	tree.Define(g, "a", &scope.Variable{Name: "a", Type: types.Int})
	tree.Define(inner, "a", &scope.Variable{Name: "a", Type: types.Float})

	sym, at, _ := tree.Resolve(inner, "a")
	be.Equal(t, at, inner)
	be.Equal(t, sym.(*scope.Variable).Type, types.Float)

	sym, _, _ = tree.Resolve(g, "a")
	be.Equal(t, sym.(*scope.Variable).Type, types.Int)
}

func TestRedefineKeepsValue(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()

	prior, existed := tree.Define(g, "a", &scope.Variable{Name: "a"})
	be.True(t, !existed)
	be.True(t, prior == nil)

	be.Err(t, tree.Assign(g, "a", value.Int{Value: 4}), nil)

	prior, existed = tree.Define(g, "a", &scope.Variable{Name: "a", Type: types.Int})
	be.True(t, existed)
	be.Equal(t, prior.(*scope.Variable).Type, types.Unknown)

	v, ok := tree.Lookup(g, "a")
	be.True(t, ok)
	be.Equal(t, v, value.Value(value.Int{Value: 4}))
}

func TestAssignWalksToDefiningScope(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()
	inner := tree.Push(g)
	tree.Define(g, "a", &scope.Variable{Name: "a"})

	be.Err(t, tree.Assign(inner, "a", value.Int{Value: 1}), nil)
	v, ok := tree.Lookup(g, "a")
	be.True(t, ok)
	be.Equal(t, v, value.Value(value.Int{Value: 1}))

	err := tree.Assign(inner, "b", value.Int{Value: 1})
	be.Err(t, err, "does not exist")
}

func TestLookupUninitialised(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()
	tree.Define(g, "a", &scope.Variable{Name: "a"})

	_, ok := tree.Lookup(g, "a")
	be.True(t, !ok)
	_, ok = tree.Lookup(g, "nope")
	be.True(t, !ok)
}

func TestNames(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()
	inner := tree.Push(g)
	tree.Define(g, "zeta", &scope.Variable{Name: "zeta"})
	tree.Define(g, "alpha", &scope.Variable{Name: "alpha"})
	tree.Define(inner, "alpha", &scope.Variable{Name: "alpha"})
	tree.Define(inner, "mid", &scope.Variable{Name: "mid"})

	be.Equal(t, tree.Names(inner), []string{"alpha", "mid", "zeta"})
	be.Equal(t, tree.Names(g), []string{"alpha", "zeta"})
}

func TestSnapshotRestore(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()
	a := &scope.Variable{Name: "a", Type: types.Int}
	tree.Define(g, "a", a)
	be.Err(t, tree.Assign(g, "a", value.Int{Value: 1}), nil)

	snap := tree.Snapshot(g)
	tree.Define(g, "a", &scope.Variable{Name: "a", Type: types.String})
	be.Err(t, tree.Assign(g, "a", value.String{Value: "x"}), nil)
	tree.Define(g, "b", &scope.Variable{Name: "b"})
	tree.Restore(snap)

	sym, ok := tree.ResolveLocal(g, "a")
	be.True(t, ok)
	be.Equal(t, sym, scope.Symbol(a))
	v, ok := tree.Lookup(g, "a")
	be.True(t, ok)
	be.Equal(t, v, value.Value(value.Int{Value: 1}))
	_, ok = tree.ResolveLocal(g, "b")
	be.True(t, !ok)
	be.Equal(t, tree.Names(g), []string{"a"})
}

func TestIsWithin(t *testing.T) {
	tree := scope.NewTree()
	g := tree.Global()
	fn := tree.Push(g)
	body := tree.Push(fn)
	other := tree.Push(g)

	be.True(t, tree.IsWithin(body, fn))
	be.True(t, tree.IsWithin(fn, fn))
	be.True(t, !tree.IsWithin(other, fn))
	be.True(t, tree.IsWithin(other, g))
}

func TestActivationClearsValues(t *testing.T) {
	tree := scope.NewTree()
	fn := tree.Push(tree.Global())
	body := tree.Push(fn)
	tree.Define(fn, "x", &scope.Variable{Name: "x"})
	tree.Define(body, "tmp", &scope.Variable{Name: "tmp"})

	act := tree.Enter(fn)
	be.Err(t, tree.Assign(fn, "x", value.Int{Value: 1}), nil)
	be.Err(t, tree.Assign(body, "tmp", value.Int{Value: 2}), nil)
	tree.Leave(act)

	act = tree.Enter(fn)
	_, ok := tree.Lookup(body, "tmp")
	be.True(t, !ok)
	_, ok = tree.Lookup(fn, "x")
	be.True(t, !ok)
	tree.Leave(act)
	be.Equal(t, tree.Active(fn), 0)
}

func TestReentrantActivationRestores(t *testing.T) {
	tree := scope.NewTree()
	fn := tree.Push(tree.Global())
	tree.Define(fn, "x", &scope.Variable{Name: "x"})

	outer := tree.Enter(fn)
	be.Err(t, tree.Assign(fn, "x", value.Int{Value: 10}), nil)

	inner := tree.Enter(fn)
	be.Equal(t, tree.Active(fn), 2)
	_, ok := tree.Lookup(fn, "x")
	be.True(t, !ok)
	be.Err(t, tree.Assign(fn, "x", value.Int{Value: 20}), nil)
	tree.Leave(inner)

	v, ok := tree.Lookup(fn, "x")
	be.True(t, ok)
	be.Equal(t, v, value.Value(value.Int{Value: 10}))
	tree.Leave(outer)
}

func TestSymbolKinds(t *testing.T) {
	be.Equal(t, scope.Kind(&scope.BuiltinType{Name: "int"}), "type")
	be.Equal(t, scope.Kind(&scope.Variable{Name: "a"}), "variable")

	fn := &scope.Function{Name: "re", External: "re"}
	be.Equal(t, scope.Kind(fn), "function")
	be.True(t, fn.IsExternal())
}
