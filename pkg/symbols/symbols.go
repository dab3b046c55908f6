// Package symbols implements the symbol definition pass: it walks a parsed
// program, builds the scope tree, binds every declared name and reports
// names that do not resolve.
package symbols

import (
	"fmt"

	"github.com/thomasrohde/piske/pkg/analysis"
	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/diagnostics"
	"github.com/thomasrohde/piske/pkg/scope"
	"github.com/thomasrohde/piske/pkg/types"
)

type definer struct {
	ctx    *analysis.Context
	sink   *diagnostics.Sink
	tree   *scope.Tree
	global scope.ID
	cur    scope.ID
	// loops counts the loops enclosing the current node within the
	// current function body.
	loops int
	// fn is the name of the function whose body is being visited.
	fn string
}

// Define runs the symbol definition pass over program. Built-in type names
// and the given external functions are registered in the global scope
// first; a name already bound there is left alone, so the pass can run
// again on later inputs of the same session. Diagnostics are recorded in
// sink and never stop the walk.
func Define(ctx *analysis.Context, program *ast.Program, externals []*scope.Function, sink *diagnostics.Sink) {
	d := &definer{
		ctx:    ctx,
		sink:   sink,
		tree:   ctx.Scopes,
		global: ctx.Scopes.Global(),
	}
	d.cur = d.global

	d.registerBuiltins(externals)

	d.annotate(program)
	for _, stmt := range program.Statements {
		d.visitStmt(stmt)
	}
}

func (d *definer) registerBuiltins(externals []*scope.Function) {
	for _, t := range types.Builtins() {
		name := t.String()
		if _, ok := d.tree.ResolveLocal(d.global, name); !ok {
			d.tree.Define(d.global, name, &scope.BuiltinType{Name: name, Type: t})
		}
	}
	for _, fn := range externals {
		if _, ok := d.tree.ResolveLocal(d.global, fn.Name); !ok {
			d.tree.Define(d.global, fn.Name, fn)
		}
	}
}

func (d *definer) annotate(n ast.Node) {
	d.ctx.Table.Of(n).Scope = d.cur
}

// valueNames lists the names visible from the current scope that can be
// used in an expression. Type names are left out.
func (d *definer) valueNames() []string {
	var out []string
	for _, name := range d.tree.Names(d.cur) {
		sym, _, _ := d.tree.Resolve(d.cur, name)
		if _, isType := sym.(*scope.BuiltinType); !isType {
			out = append(out, name)
		}
	}
	return out
}

func (d *definer) unbound(name string, span ast.Span) {
	hint := suggest(name, d.valueNames())
	if name == d.fn {
		hint = fmt.Sprintf("a function cannot call itself; '%s' is bound only after its body", name)
	}
	d.sink.Add(diagnostics.MakeDiag(diagnostics.EUnbound,
		fmt.Sprintf("symbol '%s' does not exist in scope", name), &span, hint))
}

// --- Blocks ---

// visitBlock visits the statements of blk in a new child scope.
func (d *definer) visitBlock(blk *ast.Block) {
	saved := d.cur
	d.cur = d.tree.Push(saved)
	d.visitBody(blk)
	d.cur = saved
}

// visitBody visits the statements of blk in the current scope. Function
// and loop bodies share the scope that holds their parameters.
func (d *definer) visitBody(blk *ast.Block) {
	d.annotate(blk)
	for _, stmt := range blk.Statements {
		d.visitStmt(stmt)
	}
}

// --- Statements ---

func (d *definer) visitStmt(stmt ast.Stmt) {
	d.annotate(stmt)

	switch s := stmt.(type) {
	case *ast.LetStmt:
		d.visitExpr(s.Value)
		// A variable already declared here keeps its symbol until the
		// type pass redefines it, so a typed session global stays typed.
		if prior, ok := d.tree.ResolveLocal(d.cur, s.Name); ok {
			if _, isVar := prior.(*scope.Variable); isVar {
				break
			}
		}
		d.tree.Define(d.cur, s.Name, &scope.Variable{Name: s.Name})

	case *ast.AssignStmt:
		d.visitExpr(s.Value)
		if _, _, ok := d.tree.Resolve(d.cur, s.Name); !ok {
			d.unbound(s.Name, s.Span)
		}

	case *ast.FnDecl:
		d.visitFnDecl(s)

	case *ast.ReturnStmt:
		d.visitExpr(s.Value)

	case *ast.BreakStmt:
		d.visitExpr(s.Value)
		if d.loops == 0 {
			d.sink.Errorf(diagnostics.EBreakOutsideLoop, s.Span, "break outside of a loop")
		}

	case *ast.PrintStmt:
		for _, arg := range s.Args {
			d.visitExpr(arg)
		}

	case *ast.ExprStmt:
		d.visitExpr(s.Expr)
	}
}

func (d *definer) visitFnDecl(fn *ast.FnDecl) {
	if d.cur != d.global {
		d.sink.Add(diagnostics.MakeDiag(diagnostics.ENestedFn,
			fmt.Sprintf("function '%s' must be defined at global scope", fn.Name),
			&fn.Span, "move the definition to the top level of the program"))
		return
	}

	savedScope, savedLoops, savedFn := d.cur, d.loops, d.fn
	fnScope := d.tree.Push(d.global)
	d.cur, d.loops, d.fn = fnScope, 0, fn.Name

	params := make([]scope.Param, 0, len(fn.Params))
	for _, p := range fn.Params {
		d.annotate(p)
		if _, dup := d.tree.ResolveLocal(fnScope, p.Name); dup {
			d.sink.Errorf(diagnostics.EDupParam, p.Span, "duplicate parameter '%s' in function '%s'", p.Name, fn.Name)
		}
		d.tree.Define(fnScope, p.Name, &scope.Variable{Name: p.Name})
		params = append(params, scope.Param{Name: p.Name, TypeName: p.TypeName})
	}
	d.visitBody(fn.Body)

	d.cur, d.loops, d.fn = savedScope, savedLoops, savedFn

	sym := &scope.Function{
		Name:   fn.Name,
		Params: params,
		Body:   fn.Body,
		Scope:  fnScope,
	}
	// the return type of an earlier definition is kept so the type pass
	// can reject a redefinition that changes it
	if prior, ok := d.tree.ResolveLocal(d.cur, fn.Name); ok {
		if pf, ok := prior.(*scope.Function); ok {
			sym.Return = pf.Return
		}
	}
	d.tree.Define(d.cur, fn.Name, sym)
}

// --- Expressions ---

func (d *definer) visitExpr(expr ast.Expr) {
	if expr == nil {
		return
	}
	d.annotate(expr)

	switch e := expr.(type) {
	case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral, *ast.StrLiteral:
		// nothing to bind

	case *ast.Ident:
		d.bind(e, e.Name, e.Span)

	case *ast.BinaryExpr:
		d.visitExpr(e.Left)
		d.visitExpr(e.Right)

	case *ast.PrefixExpr:
		d.visitExpr(e.Operand)

	case *ast.PostfixExpr:
		d.visitExpr(e.Operand)

	case *ast.CallExpr:
		d.visitCall(e)

	case *ast.Block:
		d.visitBlock(e)

	case *ast.IfExpr:
		d.visitExpr(e.Cond)
		d.visitExpr(e.Then)
		d.visitExpr(e.Else)

	case *ast.SetExpr:
		d.visitExpr(e.Start)
		d.visitExpr(e.End)
		d.visitExpr(e.Step)

	case *ast.IterateExpr:
		d.visitIterate(e)
	}
}

// bind resolves a name reference at n and records the scope it resolved
// to, reporting it as unbound when it does not resolve.
func (d *definer) bind(n ast.Node, name string, span ast.Span) (scope.Symbol, bool) {
	sym, at, ok := d.tree.Resolve(d.cur, name)
	if !ok {
		d.unbound(name, span)
		return nil, false
	}
	d.ctx.Table.Of(n).Binding = at
	return sym, true
}

func (d *definer) visitCall(call *ast.CallExpr) {
	for _, arg := range call.Args {
		d.visitExpr(arg)
	}

	sym, ok := d.bind(call, call.Name, call.Span)
	if !ok {
		return
	}
	fn, ok := sym.(*scope.Function)
	if !ok {
		d.sink.Errorf(diagnostics.ENotFn, call.Span, "'%s' is a %s, not a function", call.Name, scope.Kind(sym))
		return
	}
	if len(call.Args) != len(fn.Params) {
		d.sink.Errorf(diagnostics.EArity, call.Span,
			"function '%s' expects %d argument(s), got %d", call.Name, len(fn.Params), len(call.Args))
	}
}

// visitIterate binds the loop variable in a scope of its own that the
// loop body shares. The set is visited in the enclosing scope, so its
// bounds never see the loop variable.
func (d *definer) visitIterate(it *ast.IterateExpr) {
	d.visitExpr(it.Set)

	saved := d.cur
	d.cur = d.tree.Push(saved)
	if it.Var != "" {
		d.tree.Define(d.cur, it.Var, &scope.Variable{Name: it.Var})
	}
	d.loops++
	d.visitBody(it.Body)
	d.loops--
	d.cur = saved
}
