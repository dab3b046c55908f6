package evaluator_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rs/zerolog"

	"github.com/thomasrohde/piske/pkg/analysis"
	"github.com/thomasrohde/piske/pkg/diagnostics"
	"github.com/thomasrohde/piske/pkg/evaluator"
	"github.com/thomasrohde/piske/pkg/parser"
	"github.com/thomasrohde/piske/pkg/scope"
	"github.com/thomasrohde/piske/pkg/symbols"
	"github.com/thomasrohde/piske/pkg/typecheck"
	"github.com/thomasrohde/piske/pkg/types"
	"github.com/thomasrohde/piske/pkg/value"
)

var externals = []*scope.Function{
	{
		Name:     "re",
		Return:   types.Float,
		Params:   []scope.Param{{Name: "c", TypeName: "complex", Type: types.Complex}},
		External: "re",
	},
	{
		Name:     "fail",
		Return:   types.Void,
		External: "fail",
	},
}

type fakeHost struct {
	calls []string
}

func (h *fakeHost) Call(name string, args []value.Value) (value.Value, error) {
	h.calls = append(h.calls, name)
	switch name {
	case "re":
		return value.Float{Value: args[0].(value.Complex).Re}, nil
	case "fail":
		return nil, errors.New("host exploded")
	}
	return nil, errors.New("unknown function")
}

// analyze parses and runs both analysis passes, failing on any diagnostic.
func analyze(t *testing.T, src string) (*analysis.Context, func(evaluator.Options) (value.Value, error)) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.psk")
	if len(diags) > 0 {
		t.Fatalf("parse failed: %v", diags)
	}
	ctx := analysis.NewContext()
	sink := diagnostics.NewSink(zerolog.Nop())
	symbols.Define(ctx, prog, externals, sink)
	if sink.Flush() {
		t.Fatalf("symbol pass failed: %v", sink.Errors())
	}
	typecheck.Check(ctx, prog, sink)
	if sink.Flush() {
		t.Fatalf("type pass failed: %v", sink.Errors())
	}
	return ctx, func(opts evaluator.Options) (value.Value, error) {
		return evaluator.Eval(ctx, prog, opts)
	}
}

func run(t *testing.T, src string) value.Value {
	t.Helper()
	_, eval := analyze(t, src)
	v, err := eval(evaluator.Options{Host: &fakeHost{}})
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	return v
}

func runErr(t *testing.T, src string) *evaluator.RuntimeError {
	t.Helper()
	_, eval := analyze(t, src)
	_, err := eval(evaluator.Options{Host: &fakeHost{}})
	if err == nil {
		t.Fatal("expected runtime error")
	}
	var re *evaluator.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	return re
}

func TestLiterals(t *testing.T) {
	be.Equal(t, run(t, "42"), value.Value(value.Int{Value: 42}))
	be.Equal(t, run(t, "2.5"), value.Value(value.Float{Value: 2.5}))
	be.Equal(t, run(t, "true"), value.Value(value.Bool{Value: true}))
	be.Equal(t, run(t, `"hi"`), value.Value(value.String{Value: "hi"}))
	be.Equal(t, run(t, ""), value.Value(value.Empty{}))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want value.Value
	}{
		{"1 + 2 * 3", value.Int{Value: 7}},
		{"(1 + 2) * 3", value.Int{Value: 9}},
		{"7 / 2", value.Int{Value: 3}},
		{"7.0 / 2", value.Float{Value: 3.5}},
		{"1 + 2.5", value.Float{Value: 3.5}},
		{"10 - 4 - 3", value.Int{Value: 3}},
		{"-3 + 1", value.Int{Value: -2}},
		{"+3", value.Int{Value: 3}},
		{"2 ^ 3", value.Float{Value: 8}},
		{"-2 ^ 2", value.Float{Value: -4}},
		{"2 ^ 3 ^ 2", value.Float{Value: 512}},
		{"2 ^ -1", value.Float{Value: 0.5}},
		{"4`", value.Float{Value: 0.25}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			be.Equal(t, run(t, tt.src), tt.want)
		})
	}
}

func TestComplexArithmetic(t *testing.T) {
	be.Equal(t, run(t, "(1 + 2i) * (2 + 3i)"), value.Value(value.Complex{Re: -4, Im: 7}))
	be.Equal(t, run(t, "(1 + 2i)`"), value.Value(value.Complex{Re: 1, Im: -2}))
	be.Equal(t, run(t, "-(1 + 2i)"), value.Value(value.Complex{Re: -1, Im: -2}))
	be.Equal(t, run(t, "2.5i"), value.Value(value.Complex{Re: 0, Im: 2.5}))

	got := run(t, "1 + 2i / (2 + 3i)").(value.Complex)
	be.True(t, math.Abs(got.Re-19.0/13) < 1e-12)
	be.True(t, math.Abs(got.Im-4.0/13) < 1e-12)
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"1 < 2", true},
		{"2 <= 1", false},
		{"1 == 1.0", true},
		{"3 != 3", false},
		{"2.5 > 2", true},
		{`"a" == "a"`, true},
		{"true != false", true},
		{"(1 + 2i) == (1 + 2i)", true},
		{"2i != 2", true},
		{"1 == 1 + 0i", true},
		{"[0, 3) == [0, 3)", true},
		{"[0, 3) == [0, 3]", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			be.Equal(t, run(t, tt.src), value.Value(value.Bool{Value: tt.want}))
		})
	}
}

func TestVariables(t *testing.T) {
	be.Equal(t, run(t, "let a = 1; a = a + 2; a"), value.Value(value.Int{Value: 3}))
	// an int assigned to a float variable is widened
	be.Equal(t, run(t, "let f = 1.5; f = 2; f"), value.Value(value.Float{Value: 2}))
	// let yields its value
	be.Equal(t, run(t, "let a = 4"), value.Value(value.Int{Value: 4}))
}

func TestShadowing(t *testing.T) {
	be.Equal(t, run(t, "let a = 1; { let a = 2.5; a }"), value.Value(value.Float{Value: 2.5}))
	be.Equal(t, run(t, "let a = 1; { let a = 2.5; a }; a"), value.Value(value.Int{Value: 1}))
	// assignment in an inner block writes the outer binding
	be.Equal(t, run(t, "let a = 1; { a = 5 }; a"), value.Value(value.Int{Value: 5}))
	// an initializer still reads the binding it shadows
	be.Equal(t, run(t, "let a = 1; { let a = a + 1; a }"), value.Value(value.Int{Value: 2}))
	be.Equal(t, run(t, "let a = 1; { let a = a + 0.5; a }; a"), value.Value(value.Int{Value: 1}))
	be.Equal(t, run(t, "fn f() -> int { 3 }; { let f = f() * 2; f }"), value.Value(value.Int{Value: 6}))
}

func TestIfElse(t *testing.T) {
	be.Equal(t, run(t, "if 1 < 2 { 10 } else { 20 }"), value.Value(value.Int{Value: 10}))
	be.Equal(t, run(t, "if 1 > 2 { 10 } else { 20 }"), value.Value(value.Int{Value: 20}))
	be.Equal(t, run(t, "if 1 > 2 { 10 }"), value.Value(value.Empty{}))
	be.Equal(t, run(t, "let x = 5; if x < 3 { 1 } else if x < 6 { 2 } else { 3 }"), value.Value(value.Int{Value: 2}))
}

func TestLoopBreak(t *testing.T) {
	v := run(t, "iterate i = [1, 100) { if i > 50 { break 101; } i }")
	be.Equal(t, v, value.Value(value.Int{Value: 101}))
}

func TestLoopAccumulates(t *testing.T) {
	v := run(t, "let a = 0; iterate i = [1, 11) { a = a + i; }; a")
	be.Equal(t, v, value.Value(value.Int{Value: 55}))
}

func TestLoopResult(t *testing.T) {
	// the last body value is the loop's value
	be.Equal(t, run(t, "iterate i = [0, 10) { i * 2 }"), value.Value(value.Int{Value: 18}))
	be.Equal(t, run(t, "iterate i = [0, 10] { i * 2 }"), value.Value(value.Int{Value: 20}))
	// an empty sequence yields nothing
	be.Equal(t, run(t, "iterate i = [5, 5) { i }"), value.Value(value.Empty{}))
	be.Equal(t, run(t, "let n = 0; iterate over [0, 10, 2) { n = n + 1 }; n"), value.Value(value.Int{Value: 5}))
	be.Equal(t, run(t, "iterate x = [0.0, 1.0, 0.25] { x }"), value.Value(value.Float{Value: 1}))
	// mixed parts are widened to float
	be.Equal(t, run(t, "iterate x = [0, 1.5) { x }"), value.Value(value.Float{Value: 1}))
}

func TestBreakInnermostLoop(t *testing.T) {
	src := `
let total = 0
iterate i = [0, 3) {
	let inner = iterate j = [0, 100) { if j == 2 { break j } j }
	total = total + inner
}
total`
	be.Equal(t, run(t, src), value.Value(value.Int{Value: 6}))
}

func TestSetValue(t *testing.T) {
	v := run(t, "[0, 10, 2]")
	set, ok := v.(*value.Interval)
	be.True(t, ok)
	be.Equal(t, set.String(), "[0, 10, 2]")
	be.Equal(t, set.EndInclusive, true)
}

func TestFunctionCall(t *testing.T) {
	v := run(t, "fn add5(a:int)->int { a + 5 } let b = 5; add5(b)")
	be.Equal(t, v, value.Value(value.Int{Value: 10}))

	v = run(t, "fn add(a: int, b: float) -> float { a + b } add(2, 5)")
	be.Equal(t, v, value.Value(value.Float{Value: 7}))

	// the body value is widened to the declared return type
	v = run(t, "fn half(a: int) -> float { a / 2 } half(5)")
	be.Equal(t, v, value.Value(value.Float{Value: 2}))
}

func TestFunctionCallsDoNotLeakState(t *testing.T) {
	src := `
fn sum(n: int) -> int {
	let acc = 0
	iterate i = [0, n) { acc = acc + i }
	acc
}
sum(4) + sum(3)`
	be.Equal(t, run(t, src), value.Value(value.Int{Value: 9}))

	ctx, eval := analyze(t, "fn f(x: int) -> int { x * 2 } f(1); f(3)")
	v, err := eval(evaluator.Options{})
	be.Err(t, err, nil)
	be.Equal(t, v, value.Value(value.Int{Value: 6}))

	sym, _, _ := ctx.Scopes.Resolve(ctx.Scopes.Global(), "f")
	fn := sym.(*scope.Function)
	be.Equal(t, ctx.Scopes.Active(fn.Scope), 0)
}

func TestFunctionCallsFunction(t *testing.T) {
	src := `
fn sq(x: float) -> float { x * x }
fn norm(a: float, b: float) -> float { sq(a) + sq(b) }
norm(3, 4)`
	be.Equal(t, run(t, src), value.Value(value.Float{Value: 25}))
}

func TestReturn(t *testing.T) {
	src := `
fn clamp(x: int) -> int {
	if x > 10 { return 10 }
	x
}
clamp(3) + clamp(42)`
	be.Equal(t, run(t, src), value.Value(value.Int{Value: 13}))

	// return exits an enclosing loop too
	src = `
fn first(limit: int) -> int {
	iterate i = [0, 100) { if i * i > limit { return i } i }
}
first(50)`
	be.Equal(t, run(t, src), value.Value(value.Int{Value: 8}))

	// the returned value is widened to the result type
	src = "fn f(x: int) -> float { if x > 0 { return 1 } 2.5 } f(1)"
	be.Equal(t, run(t, src), value.Value(value.Float{Value: 1}))
}

func TestTopLevelReturn(t *testing.T) {
	be.Equal(t, run(t, "return 7; 8"), value.Value(value.Int{Value: 7}))
}

func TestExternalCall(t *testing.T) {
	host := &fakeHost{}
	_, eval := analyze(t, "re(3 + 4i) + 1")
	v, err := eval(evaluator.Options{Host: host})
	be.Err(t, err, nil)
	be.Equal(t, v, value.Value(value.Float{Value: 4}))
	be.Equal(t, host.calls, []string{"re"})

	// a real argument is widened before it reaches the host
	be.Equal(t, run(t, "re(2)"), value.Value(value.Float{Value: 2}))
}

func TestExternalCallErrors(t *testing.T) {
	re := runErr(t, "fail()")
	be.Equal(t, re.Code, diagnostics.EHost)
	be.True(t, strings.Contains(re.Message, "host exploded"))
	be.True(t, re.Span != nil)

	_, eval := analyze(t, "re(1i)")
	_, err := eval(evaluator.Options{})
	be.Err(t, err, "no host available")
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	_, eval := analyze(t, `let a = 2; print("a = ", a, " ", 1.5, " ", 1 - 2i)`)
	v, err := eval(evaluator.Options{Stdout: &out})
	be.Err(t, err, nil)
	be.Equal(t, v, value.Value(value.Empty{}))
	be.Equal(t, out.String(), "a = 2 1.5 1-2i\n")
}

func TestRuntimeErrors(t *testing.T) {
	re := runErr(t, "let z = 0; 1 / z")
	be.Equal(t, re.Code, diagnostics.ERuntime)
	be.Equal(t, re.Message, "integer division by zero")
	be.Equal(t, re.Span.StartCol, 12)

	re = runErr(t, "2i ^ 2")
	be.Equal(t, re.Message, "exponentiation of complex numbers currently unimplemented")

	re = runErr(t, "2i < 3i")
	be.Equal(t, re.Code, diagnostics.ERuntime)
	be.Equal(t, re.Message, "unable to compare values of type 'complex' and 'complex' with <")

	// the int operand is widened before the comparison fails
	re = runErr(t, "1 >= 2i")
	be.Equal(t, re.Message, "unable to compare values of type 'complex' and 'complex' with >=")
}

func TestLimits(t *testing.T) {
	_, eval := analyze(t, "iterate i = [0, 1000) { i }")
	_, err := eval(evaluator.Options{Limits: evaluator.Limits{MaxIterations: 10}})
	var re *evaluator.RuntimeError
	be.True(t, errors.As(err, &re))
	be.Equal(t, re.Code, diagnostics.ELimit)
	be.True(t, re.Span != nil)

	_, eval = analyze(t, "fn f(x: int) -> int { x } fn g(x: int) -> int { f(x) } g(1)")
	_, err = eval(evaluator.Options{Limits: evaluator.Limits{MaxCallDepth: 1}})
	be.Err(t, err, "call depth limit exceeded")

	_, err = eval(evaluator.Options{Limits: evaluator.Limits{MaxCallDepth: 2}})
	be.Err(t, err, nil)
}

func TestTrace(t *testing.T) {
	var events []evaluator.TraceEventType
	_, eval := analyze(t, "fn f(x: int) -> int { x } iterate i = [0, 2) { f(i) }")
	_, err := eval(evaluator.Options{
		RunID: "r1",
		Trace: func(ev evaluator.TraceEvent) {
			be.Equal(t, ev.RunID, "r1")
			events = append(events, ev.Event)
		},
	})
	be.Err(t, err, nil)
	be.Equal(t, events, []evaluator.TraceEventType{
		evaluator.TraceRunStart,
		evaluator.TraceLoopStart,
		evaluator.TraceFnCallStart, evaluator.TraceFnCallEnd,
		evaluator.TraceFnCallStart, evaluator.TraceFnCallEnd,
		evaluator.TraceLoopEnd,
		evaluator.TraceRunEnd,
	})
}

func TestDeterministicAcrossRuns(t *testing.T) {
	src := "fn f(x: int) -> float { x / 2.0 } let s = 0.0; iterate i = [0, 5] { s = s + f(i) }; s"
	first := run(t, src)
	second := run(t, src)
	be.Equal(t, first, second)
	be.Equal(t, first, value.Value(value.Float{Value: 7.5}))
}

func TestCancelled(t *testing.T) {
	done := make(chan struct{})
	close(done)
	_, eval := analyze(t, "iterate i = [0, 10) { i }")
	_, err := eval(evaluator.Options{Done: done})
	be.Err(t, err, "evaluation cancelled")
}
