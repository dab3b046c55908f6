// Package evaluator implements the piske tree-walking evaluator. It runs a
// program after the symbol and type passes have annotated it.
package evaluator

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/piske/pkg/analysis"
	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/diagnostics"
	"github.com/thomasrohde/piske/pkg/scope"
	"github.com/thomasrohde/piske/pkg/types"
	"github.com/thomasrohde/piske/pkg/value"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
	TraceLoopStart   TraceEventType = "loop_start"
	TraceLoopEnd     TraceEventType = "loop_end"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Name      string         `json:"name,omitempty"`
	Span      *ast.Span      `json:"span,omitempty"`
}

// Host dispatches calls to external functions.
type Host interface {
	Call(name string, args []value.Value) (value.Value, error)
}

// Options configures an evaluation.
type Options struct {
	// Stdout receives the output of print. Defaults to io.Discard.
	Stdout io.Writer
	Host   Host
	Logger zerolog.Logger
	Limits Limits
	Trace  func(event TraceEvent)
	RunID  string
	// Done, when closed, stops the evaluation at the next loop iteration
	// or call.
	Done <-chan struct{}
}

// RuntimeError represents a fatal error during evaluation.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

type evaluator struct {
	tree  *scope.Tree
	table *analysis.Table
	opts  Options
	log   zerolog.Logger
	usage usage
}

// Eval evaluates program with the annotations in ctx. A top-level return
// or break ends the program and yields its operand.
func Eval(ctx *analysis.Context, program *ast.Program, opts Options) (value.Value, error) {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	ev := &evaluator{
		tree:  ctx.Scopes,
		table: ctx.Table,
		opts:  opts,
		log:   opts.Logger,
		usage: usage{Start: time.Now()},
	}

	span := program.Span
	ev.emit(TraceRunStart, "", &span)
	defer ev.emit(TraceRunEnd, "", &span)

	var last value.Value = value.Empty{}
	for _, stmt := range program.Statements {
		v, err := ev.stmt(stmt)
		if err != nil {
			return nil, err
		}
		if value.IsSignal(v) {
			return value.Unwrap(v), nil
		}
		last = v
	}
	return last, nil
}

func (ev *evaluator) emit(event TraceEventType, name string, span *ast.Span) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Name:      name,
			Span:      span,
		})
	}
}

func (ev *evaluator) fail(n ast.Node, code, format string, args ...any) error {
	span := n.NodeSpan()
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: &span}
}

// located attaches n's span to a runtime error that has none and wraps
// plain errors as E_RUNTIME.
func (ev *evaluator) located(n ast.Node, err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.Span == nil {
			span := n.NodeSpan()
			re.Span = &span
		}
		return re
	}
	return ev.fail(n, diagnostics.ERuntime, "%s", err.Error())
}

func (ev *evaluator) scopeOf(n ast.Node) scope.ID {
	return ev.table.Of(n).Scope
}

// coerce applies the promotion the type pass recorded for n.
func (ev *evaluator) coerce(n ast.Node, v value.Value) (value.Value, error) {
	a, ok := ev.table.Get(n)
	if !ok || a.Promote == types.Unknown {
		return v, nil
	}
	out, err := value.Coerce(v, a.Promote)
	if err != nil {
		return nil, ev.fail(n, diagnostics.ERuntime, "%s", err.Error())
	}
	return out, nil
}

// --- Statements ---

func (ev *evaluator) block(blk *ast.Block) (value.Value, error) {
	var last value.Value = value.Empty{}
	for _, stmt := range blk.Statements {
		v, err := ev.stmt(stmt)
		if err != nil {
			return nil, err
		}
		if value.IsSignal(v) {
			return v, nil
		}
		last = v
	}
	return last, nil
}

func (ev *evaluator) stmt(stmt ast.Stmt) (value.Value, error) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		return ev.store(s, s.Name, s.Value)

	case *ast.AssignStmt:
		return ev.store(s, s.Name, s.Value)

	case *ast.FnDecl:
		return value.Empty{}, nil

	case *ast.ReturnStmt:
		v, err := ev.expr(s.Value)
		if err != nil || value.IsSignal(v) {
			return v, err
		}
		if v, err = ev.coerce(s, v); err != nil {
			return nil, err
		}
		return value.Return{Inner: v}, nil

	case *ast.BreakStmt:
		v, err := ev.expr(s.Value)
		if err != nil || value.IsSignal(v) {
			return v, err
		}
		if v, err = ev.coerce(s, v); err != nil {
			return nil, err
		}
		return value.Break{Inner: v}, nil

	case *ast.PrintStmt:
		return ev.print(s)

	case *ast.ExprStmt:
		return ev.expr(s.Expr)
	}
	return nil, ev.fail(stmt, diagnostics.EInternal, "unsupported statement %s", stmt.Kind())
}

// store evaluates an initializer or assigned value and writes it to the
// nearest scope binding name.
func (ev *evaluator) store(s ast.Stmt, name string, expr ast.Expr) (value.Value, error) {
	v, err := ev.expr(expr)
	if err != nil || value.IsSignal(v) {
		return v, err
	}
	if v, err = ev.coerce(s, v); err != nil {
		return nil, err
	}
	if err := ev.tree.Assign(ev.scopeOf(s), name, v); err != nil {
		return nil, ev.fail(s, diagnostics.ERuntime, "%s", err.Error())
	}
	return v, nil
}

func (ev *evaluator) print(s *ast.PrintStmt) (value.Value, error) {
	var sb strings.Builder
	for _, arg := range s.Args {
		v, err := ev.operand(arg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte('\n')
	if _, err := io.WriteString(ev.opts.Stdout, sb.String()); err != nil {
		return nil, ev.fail(s, diagnostics.EIO, "print: %s", err.Error())
	}
	return value.Empty{}, nil
}

// --- Expressions ---

// expr evaluates e and applies its recorded promotion. Return and Break
// carriers are passed through untouched.
func (ev *evaluator) expr(e ast.Expr) (value.Value, error) {
	v, err := ev.eval(e)
	if err != nil || value.IsSignal(v) {
		return v, err
	}
	return ev.coerce(e, v)
}

// operand evaluates e where a plain value is required.
func (ev *evaluator) operand(e ast.Expr) (value.Value, error) {
	v, err := ev.expr(e)
	if err != nil {
		return nil, err
	}
	if value.IsSignal(v) {
		return nil, ev.fail(e, diagnostics.ERuntime, "control flow value cannot be used as an operand")
	}
	return v, nil
}

func (ev *evaluator) eval(expr ast.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return value.Int{Value: e.Value}, nil
	case *ast.FloatLiteral:
		return value.Float{Value: e.Value}, nil
	case *ast.BoolLiteral:
		return value.Bool{Value: e.Value}, nil
	case *ast.StrLiteral:
		return value.String{Value: e.Value}, nil

	case *ast.Ident:
		return ev.ident(e)

	case *ast.BinaryExpr:
		l, err := ev.operand(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := ev.operand(e.Right)
		if err != nil {
			return nil, err
		}
		v, err := binaryOp(e.Op, ev.table.Of(e).Type, l, r)
		if err != nil {
			return nil, ev.located(e, err)
		}
		return v, nil

	case *ast.PrefixExpr:
		operand, err := ev.operand(e.Operand)
		if err != nil {
			return nil, err
		}
		v, err := prefixOp(e.Op, ev.table.Of(e).Type, operand)
		if err != nil {
			return nil, ev.located(e, err)
		}
		return v, nil

	case *ast.PostfixExpr:
		operand, err := ev.operand(e.Operand)
		if err != nil {
			return nil, err
		}
		v, err := postfixOp(e.Op, ev.table.Of(e).Type, operand)
		if err != nil {
			return nil, ev.located(e, err)
		}
		return v, nil

	case *ast.CallExpr:
		return ev.call(e)

	case *ast.Block:
		return ev.block(e)

	case *ast.IfExpr:
		return ev.ifExpr(e)

	case *ast.SetExpr:
		return ev.set(e)

	case *ast.IterateExpr:
		return ev.iterate(e)
	}
	return nil, ev.fail(expr, diagnostics.EInternal, "unsupported expression %s", expr.Kind())
}

func (ev *evaluator) ident(e *ast.Ident) (value.Value, error) {
	at := ev.table.ScopeOf(e)
	if v, ok := ev.tree.Lookup(at, e.Name); ok {
		return v, nil
	}
	if _, _, ok := ev.tree.Resolve(at, e.Name); ok {
		return nil, ev.fail(e, diagnostics.ERuntime, "'%s' has no value", e.Name)
	}
	return nil, ev.fail(e, diagnostics.EUnbound, "symbol '%s' does not exist in scope", e.Name)
}

func (ev *evaluator) ifExpr(e *ast.IfExpr) (value.Value, error) {
	cond, err := ev.operand(e.Cond)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(value.Bool)
	if !ok {
		return nil, ev.fail(e.Cond, diagnostics.ERuntime, "condition must be bool, got %s", cond.Type())
	}
	if b.Value {
		return ev.block(e.Then)
	}
	if e.Else == nil {
		return value.Empty{}, nil
	}
	return ev.expr(e.Else)
}

func (ev *evaluator) set(e *ast.SetExpr) (value.Value, error) {
	parts := make([]value.Value, 3)
	for i, part := range []ast.Expr{e.Start, e.End, e.Step} {
		v, err := ev.operand(part)
		if err != nil {
			return nil, err
		}
		parts[i] = v
	}
	return &value.Interval{Start: parts[0], End: parts[1], Step: parts[2], EndInclusive: e.EndInclusive}, nil
}

func (ev *evaluator) iterate(e *ast.IterateExpr) (value.Value, error) {
	sv, err := ev.operand(e.Set)
	if err != nil {
		return nil, err
	}
	set, ok := sv.(*value.Interval)
	if !ok {
		return nil, ev.fail(e.Set, diagnostics.ERuntime, "expected a set, got %s", sv.Type())
	}
	it, err := set.Iter()
	if err != nil {
		return nil, ev.fail(e.Set, diagnostics.ERuntime, "%s", err.Error())
	}

	span := e.Span
	ev.emit(TraceLoopStart, e.Var, &span)
	defer ev.emit(TraceLoopEnd, e.Var, &span)

	loopScope := ev.scopeOf(e.Body)
	var last value.Value = value.Empty{}
	for elem, ok := it.Next(); ok; elem, ok = it.Next() {
		if err := ev.countIteration(); err != nil {
			return nil, ev.located(e, err)
		}
		if e.Var != "" {
			if err := ev.tree.Assign(loopScope, e.Var, elem); err != nil {
				return nil, ev.fail(e, diagnostics.EInternal, "%s", err.Error())
			}
		}
		v, err := ev.block(e.Body)
		if err != nil {
			return nil, err
		}
		switch v.(type) {
		case value.Break:
			return value.Unwrap(v), nil
		case value.Return:
			return v, nil
		}
		last = v
	}
	return last, nil
}

func (ev *evaluator) call(e *ast.CallExpr) (value.Value, error) {
	args := make([]value.Value, len(e.Args))
	for i, arg := range e.Args {
		v, err := ev.operand(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	sym, _, ok := ev.tree.Resolve(ev.table.ScopeOf(e), e.Name)
	if !ok {
		return nil, ev.fail(e, diagnostics.EUnbound, "symbol '%s' does not exist in scope", e.Name)
	}
	fn, ok := sym.(*scope.Function)
	if !ok {
		return nil, ev.fail(e, diagnostics.ENotFn, "'%s' is a %s, not a function", e.Name, scope.Kind(sym))
	}
	if len(args) != len(fn.Params) {
		return nil, ev.fail(e, diagnostics.EArity, "function '%s' expects %d argument(s), got %d", e.Name, len(fn.Params), len(args))
	}

	span := e.Span
	ev.emit(TraceFnCallStart, e.Name, &span)
	defer ev.emit(TraceFnCallEnd, e.Name, &span)

	if fn.IsExternal() {
		return ev.callExternal(e, fn, args)
	}

	if err := ev.enterCall(); err != nil {
		ev.leaveCall()
		return nil, ev.located(e, err)
	}
	defer ev.leaveCall()

	ev.log.Trace().Str("fn", fn.Name).Int("depth", ev.usage.Depth).Msg("call")

	act := ev.tree.Enter(fn.Scope)
	defer ev.tree.Leave(act)

	for i, p := range fn.Params {
		if err := ev.tree.Assign(fn.Scope, p.Name, args[i]); err != nil {
			return nil, ev.fail(e, diagnostics.EInternal, "%s", err.Error())
		}
	}

	v, err := ev.block(fn.Body)
	if err != nil {
		return nil, err
	}
	if value.IsSignal(v) {
		// return values were promoted by their statement
		return value.Unwrap(v), nil
	}
	return ev.coerce(fn.Body, v)
}

func (ev *evaluator) callExternal(e *ast.CallExpr, fn *scope.Function, args []value.Value) (value.Value, error) {
	if ev.opts.Host == nil {
		return nil, ev.fail(e, diagnostics.EHost, "no host available to call '%s'", fn.Name)
	}
	v, err := ev.opts.Host.Call(fn.External, args)
	if err != nil {
		return nil, ev.fail(e, diagnostics.EHost, "%s: %s", fn.Name, err.Error())
	}
	if v == nil {
		return value.Empty{}, nil
	}
	return v, nil
}
