// Package typecheck implements the type computation pass. It runs after the
// symbol pass, computes the static type of every node, records where a
// value must be widened before use and writes inferred types back into
// variable and function symbols.
package typecheck

import (
	"github.com/thomasrohde/piske/pkg/analysis"
	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/diagnostics"
	"github.com/thomasrohde/piske/pkg/scope"
	"github.com/thomasrohde/piske/pkg/types"
)

type checker struct {
	table *analysis.Table
	tree  *scope.Tree
	sink  *diagnostics.Sink
	// returns collects the return statements of the function being checked.
	returns []*ast.ReturnStmt
	// breaks collects, per enclosing loop, the break statements that exit it.
	breaks [][]*ast.BreakStmt
}

// Check runs the type computation pass over a program the symbol pass has
// already annotated. Diagnostics accumulate in sink; the pass never stops
// early.
func Check(ctx *analysis.Context, program *ast.Program, sink *diagnostics.Sink) {
	c := &checker{table: ctx.Table, tree: ctx.Scopes, sink: sink}
	var last types.Type = types.Void
	for _, stmt := range program.Statements {
		last = c.stmt(stmt)
	}
	c.set(program, last)
}

func (c *checker) set(n ast.Node, t types.Type) types.Type {
	c.table.Of(n).Type = t
	return t
}

func (c *checker) promote(n ast.Node, t types.Type) {
	c.table.Of(n).Promote = t
}

func (c *checker) scopeOf(n ast.Node) scope.ID {
	return c.table.Of(n).Scope
}

// resolveType maps a source type name to a builtin type symbol.
func (c *checker) resolveType(at ast.Node, name string, span ast.Span) types.Type {
	sym, _, ok := c.tree.Resolve(c.scopeOf(at), name)
	if !ok {
		c.sink.Errorf(diagnostics.ETypeName, span, "unknown type '%s'", name)
		return types.Unknown
	}
	bt, ok := sym.(*scope.BuiltinType)
	if !ok {
		c.sink.Errorf(diagnostics.ETypeName, span, "'%s' is a %s, not a type", name, scope.Kind(sym))
		return types.Unknown
	}
	return bt.Type
}

// --- Statements ---

func (c *checker) stmt(stmt ast.Stmt) types.Type {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		t := c.expr(s.Value)
		c.tree.Define(c.scopeOf(s), s.Name, &scope.Variable{Name: s.Name, Type: t})
		return c.set(s, t)

	case *ast.AssignStmt:
		return c.set(s, c.assign(s))

	case *ast.FnDecl:
		c.fnDecl(s)
		return c.set(s, types.Void)

	case *ast.ReturnStmt:
		c.returns = append(c.returns, s)
		return c.set(s, c.expr(s.Value))

	case *ast.BreakStmt:
		if n := len(c.breaks); n > 0 {
			c.breaks[n-1] = append(c.breaks[n-1], s)
		}
		return c.set(s, c.expr(s.Value))

	case *ast.PrintStmt:
		for _, arg := range s.Args {
			c.expr(arg)
		}
		return c.set(s, types.Void)

	case *ast.ExprStmt:
		return c.set(s, c.expr(s.Expr))
	}
	return types.Unknown
}

func (c *checker) assign(s *ast.AssignStmt) types.Type {
	vt := c.expr(s.Value)
	sym, _, ok := c.tree.Resolve(c.scopeOf(s), s.Name)
	if !ok {
		// reported by the symbol pass
		return types.Unknown
	}
	v, ok := sym.(*scope.Variable)
	if !ok {
		c.sink.Errorf(diagnostics.ENotLvalue, s.Span, "cannot assign to %s '%s'", scope.Kind(sym), s.Name)
		return types.Unknown
	}
	if v.Type == types.Unknown {
		v.Type = vt
		return vt
	}
	if vt == types.Unknown {
		return v.Type
	}
	p, ok := types.Promotion(vt, v.Type)
	if !ok {
		c.sink.Errorf(diagnostics.EPromote, s.Span,
			"attempt to change variable type of '%s' from %s to %s", s.Name, v.Type, vt)
		return v.Type
	}
	c.promote(s, p)
	return v.Type
}

func (c *checker) fnDecl(fn *ast.FnDecl) {
	// nested definitions were rejected by the symbol pass and never
	// annotated
	if _, ok := c.table.Get(fn.Body); !ok {
		return
	}
	fnScope := c.scopeOf(fn.Body)

	sym, _, _ := c.tree.Resolve(c.scopeOf(fn), fn.Name)
	fsym, _ := sym.(*scope.Function)
	current := fsym != nil && fsym.Body == fn.Body

	for i, p := range fn.Params {
		pt := c.resolveType(p, p.TypeName, p.Span)
		c.tree.Define(fnScope, p.Name, &scope.Variable{Name: p.Name, Type: pt})
		if current {
			fsym.Params[i].Type = pt
		}
	}

	outerReturns := c.returns
	c.returns = nil
	bodyType := c.block(fn.Body)
	returns := c.returns
	c.returns = outerReturns

	declared := bodyType
	if fn.ReturnType != "" {
		declared = c.resolveType(fn, fn.ReturnType, fn.Span)
	}

	result := declared
	if declared != types.Unknown && bodyType != types.Unknown && bodyType != declared {
		if p, ok := types.Promotion(bodyType, declared); ok {
			c.promote(fn.Body, p)
		} else {
			// the body's values are returned as they are
			c.sink.Warnf(diagnostics.WReturnMismatch, fn.Body.Span,
				"body of '%s' has type %s, declared return type is %s", fn.Name, bodyType, declared)
			result = bodyType
		}
	}
	for _, ret := range returns {
		rt := c.table.Of(ret).Type
		if rt == types.Unknown || rt == result {
			continue
		}
		if p, ok := types.Promotion(rt, result); ok {
			c.promote(ret, p)
			continue
		}
		c.sink.Warnf(diagnostics.WReturnMismatch, ret.Span,
			"'%s' returns a %s value, expected %s", fn.Name, rt, result)
	}

	if fsym == nil {
		return
	}
	if fsym.Return != types.Unknown && result != types.Unknown && fsym.Return != result {
		c.sink.Errorf(diagnostics.EReturnType, fn.Span,
			"attempt to change return type of '%s' from %s to %s", fn.Name, fsym.Return, result)
		return
	}
	if fsym.Return == types.Unknown {
		fsym.Return = result
	}
}

func (c *checker) block(blk *ast.Block) types.Type {
	var last types.Type = types.Void
	for _, stmt := range blk.Statements {
		last = c.stmt(stmt)
	}
	return c.set(blk, last)
}

// --- Expressions ---

func (c *checker) expr(expr ast.Expr) types.Type {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return c.set(e, types.Int)
	case *ast.FloatLiteral:
		return c.set(e, types.Float)
	case *ast.BoolLiteral:
		return c.set(e, types.Boolean)
	case *ast.StrLiteral:
		return c.set(e, types.String)

	case *ast.Ident:
		return c.set(e, c.ident(e))

	case *ast.BinaryExpr:
		return c.set(e, c.binary(e))

	case *ast.PrefixExpr:
		t := c.expr(e.Operand)
		r := types.Prefix(t)
		if r == types.Unknown && t != types.Unknown {
			c.sink.Errorf(diagnostics.EType, e.Span, "incompatible type for unary %s: %s", e.Op, t)
		}
		return c.set(e, r)

	case *ast.PostfixExpr:
		return c.set(e, c.postfix(e))

	case *ast.CallExpr:
		return c.set(e, c.call(e))

	case *ast.Block:
		return c.block(e)

	case *ast.IfExpr:
		return c.set(e, c.ifExpr(e))

	case *ast.SetExpr:
		return c.set(e, c.setExpr(e))

	case *ast.IterateExpr:
		return c.set(e, c.iterate(e))
	}
	return types.Unknown
}

func (c *checker) ident(e *ast.Ident) types.Type {
	sym, _, ok := c.tree.Resolve(c.table.ScopeOf(e), e.Name)
	if !ok {
		return types.Unknown
	}
	switch s := sym.(type) {
	case *scope.Variable:
		return s.Type
	case *scope.Function:
		return s.Return
	case *scope.BuiltinType:
		return s.Type
	}
	return types.Unknown
}

func (c *checker) binary(e *ast.BinaryExpr) types.Type {
	lt := c.expr(e.Left)
	rt := c.expr(e.Right)
	if lt == types.Unknown || rt == types.Unknown {
		return types.Unknown
	}

	switch {
	case e.Op.IsComparison():
		res, common, ok := types.Compare(e.Op, lt, rt)
		if !ok {
			c.sink.Errorf(diagnostics.EType, e.Span, "incompatible types for %s: %s, %s", e.Op, lt, rt)
			return types.Unknown
		}
		c.promoteOperands(e, common)
		return res

	case e.Op == ast.OpPow:
		res := types.Power(lt, rt)
		if res == types.Unknown {
			c.sink.Errorf(diagnostics.EType, e.Span, "incompatible types for ^: %s, %s", lt, rt)
			return types.Unknown
		}
		// complex operands are left as they are and rejected at run time
		c.promoteOperands(e, types.Float)
		return res

	default:
		res := types.Arith(lt, rt)
		if res == types.Unknown {
			c.sink.Errorf(diagnostics.EType, e.Span, "incompatible types for %s: %s, %s", e.Op, lt, rt)
			return types.Unknown
		}
		c.promoteOperands(e, res)
		return res
	}
}

func (c *checker) promoteOperands(e *ast.BinaryExpr, target types.Type) {
	for _, operand := range []ast.Expr{e.Left, e.Right} {
		if p, ok := types.Promotion(c.table.Of(operand).Type, target); ok {
			c.promote(operand, p)
		}
	}
}

func (c *checker) postfix(e *ast.PostfixExpr) types.Type {
	t := c.expr(e.Operand)
	if t == types.Unknown {
		return types.Unknown
	}
	var r types.Type
	if e.Op == ast.OpImaginary {
		r = types.Imaginary(t)
	} else {
		r = types.Conjugate(t)
	}
	if r == types.Unknown {
		c.sink.Errorf(diagnostics.EType, e.Span, "incompatible type for postfix %s: %s", e.Op, t)
		return types.Unknown
	}
	// real operands are computed in floating point
	if types.IsReal(t) {
		if p, ok := types.Promotion(t, types.Float); ok {
			c.promote(e.Operand, p)
		}
	}
	return r
}

func (c *checker) call(e *ast.CallExpr) types.Type {
	argTypes := make([]types.Type, len(e.Args))
	for i, arg := range e.Args {
		argTypes[i] = c.expr(arg)
	}

	sym, _, ok := c.tree.Resolve(c.table.ScopeOf(e), e.Name)
	if !ok {
		return types.Unknown
	}
	fn, ok := sym.(*scope.Function)
	if !ok {
		return types.Unknown
	}

	for i, arg := range e.Args {
		if i >= len(fn.Params) {
			break
		}
		pt, at := fn.Params[i].Type, argTypes[i]
		if pt == types.Unknown || at == types.Unknown || pt == at {
			continue
		}
		if p, ok := types.Promotion(at, pt); ok {
			c.promote(arg, p)
			continue
		}
		c.sink.Errorf(diagnostics.EArgType, arg.NodeSpan(),
			"argument %d of '%s' must be %s, got %s", i+1, e.Name, pt, at)
	}
	return fn.Return
}

func (c *checker) ifExpr(e *ast.IfExpr) types.Type {
	ct := c.expr(e.Cond)
	if ct != types.Unknown && ct != types.Boolean {
		c.sink.Errorf(diagnostics.ECond, e.Cond.NodeSpan(), "condition must be bool, got %s", ct)
	}
	then := c.block(e.Then)
	if e.Else == nil {
		return types.Void
	}
	other := c.expr(e.Else)
	if then == other {
		return then
	}
	if then != types.Unknown && other != types.Unknown {
		c.sink.Errorf(diagnostics.EBranch, e.Span, "if branches have different types: %s and %s", then, other)
	}
	return types.Void
}

func (c *checker) setExpr(e *ast.SetExpr) types.Type {
	parts := []ast.Expr{e.Start, e.End, e.Step}
	elem := types.Int
	valid := true
	for _, part := range parts {
		t := c.expr(part)
		switch {
		case t == types.Unknown:
			valid = false
		case !types.IsReal(t):
			c.sink.Errorf(diagnostics.ESet, part.NodeSpan(), "set bounds and step must be int or float, got %s", t)
			valid = false
		default:
			elem = types.Arith(elem, t)
		}
	}
	if !valid {
		return types.Set
	}
	for _, part := range parts {
		if p, ok := types.Promotion(c.table.Of(part).Type, elem); ok {
			c.promote(part, p)
		}
	}
	c.table.Of(e).Elem = elem
	return types.Set
}

func (c *checker) iterate(e *ast.IterateExpr) types.Type {
	c.expr(e.Set)
	loopScope := c.scopeOf(e.Body)
	if e.Var != "" {
		elem := c.table.Of(e.Set).Elem
		c.tree.Define(loopScope, e.Var, &scope.Variable{Name: e.Var, Type: elem})
	}

	c.breaks = append(c.breaks, nil)
	bt := c.block(e.Body)
	breaks := c.breaks[len(c.breaks)-1]
	c.breaks = c.breaks[:len(c.breaks)-1]

	for _, brk := range breaks {
		t := c.table.Of(brk).Type
		if t == types.Unknown || bt == types.Unknown || t == bt {
			continue
		}
		if p, ok := types.Promotion(t, bt); ok {
			c.promote(brk, p)
			continue
		}
		c.sink.Warnf(diagnostics.WBreakMismatch, brk.Span, "break yields %s, loop body yields %s", t, bt)
	}
	return bt
}
