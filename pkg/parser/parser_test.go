package parser_test

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/diagnostics"
	"github.com/thomasrohde/piske/pkg/parser"
)

// helper: parse source and assert no diagnostics
func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, diags := parser.Parse(source, "test.psk")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if prog == nil {
		t.Fatal("expected non-nil program")
	}
	return prog
}

// helper: parse source and assert diagnostics are returned (or a panic occurs)
func mustFail(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	var prog *ast.Program
	var diags []diagnostics.Diagnostic
	panicked := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
			}
		}()
		prog, diags = parser.Parse(source, "test.psk")
	}()

	if panicked {
		t.Fatalf("parser panicked on %q", source)
	}
	if len(diags) == 0 || prog != nil {
		t.Fatalf("expected parse of %q to fail with diagnostics, but it succeeded", source)
	}
	return diags
}

// helper: extract the single statement from a program, assert it is an ExprStmt, return its Expr
func singleExpr(t *testing.T, source string) ast.Expr {
	t.Helper()
	prog := mustParse(t, source)
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	es, ok := prog.Statements[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", prog.Statements[0])
	}
	return es.Expr
}

// ---- 1. Literals ----

func TestIntLiteral(t *testing.T) {
	tests := []struct {
		source string
		want   int64
	}{
		{"0", 0},
		{"42", 42},
		{"1000000", 1000000},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			lit, ok := singleExpr(t, tt.source).(*ast.IntLiteral)
			if !ok {
				t.Fatalf("expected IntLiteral")
			}
			if lit.Value != tt.want {
				t.Errorf("got %d, want %d", lit.Value, tt.want)
			}
		})
	}
}

func TestFloatLiteral(t *testing.T) {
	tests := []struct {
		source string
		want   float64
	}{
		{"3.14", 3.14},
		{"0.5", 0.5},
		{"4.3e2", 430},
		{"43e-2", 0.43},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			lit, ok := singleExpr(t, tt.source).(*ast.FloatLiteral)
			if !ok {
				t.Fatalf("expected FloatLiteral")
			}
			if lit.Value != tt.want {
				t.Errorf("got %f, want %f", lit.Value, tt.want)
			}
		})
	}
}

func TestIntLiteralOverflow(t *testing.T) {
	diags := mustFail(t, "99999999999999999999")
	be.Equal(t, diags[0].Code, diagnostics.EParse)
}

func TestStringAndBoolLiterals(t *testing.T) {
	str, ok := singleExpr(t, `"foo bar"`).(*ast.StrLiteral)
	be.True(t, ok)
	be.Equal(t, str.Value, "foo bar")

	b, ok := singleExpr(t, "false").(*ast.BoolLiteral)
	be.True(t, ok)
	be.Equal(t, b.Value, false)
}

func TestImaginaryLiteral(t *testing.T) {
	post, ok := singleExpr(t, "2i").(*ast.PostfixExpr)
	if !ok {
		t.Fatal("expected PostfixExpr")
	}
	be.Equal(t, post.Op, ast.OpImaginary)
	lit, ok := post.Operand.(*ast.IntLiteral)
	be.True(t, ok)
	be.Equal(t, lit.Value, int64(2))

	post = singleExpr(t, "1.5i").(*ast.PostfixExpr)
	_, ok = post.Operand.(*ast.FloatLiteral)
	be.True(t, ok)
}

// ---- 2. Operators ----

func TestPrecedence(t *testing.T) {
	// 1 + 2 * 3 => 1 + (2 * 3)
	bin := singleExpr(t, "1 + 2 * 3").(*ast.BinaryExpr)
	be.Equal(t, bin.Op, ast.OpAdd)
	right, ok := bin.Right.(*ast.BinaryExpr)
	be.True(t, ok)
	be.Equal(t, right.Op, ast.OpMul)

	// 1 < 2 + 3 => 1 < (2 + 3)
	bin = singleExpr(t, "1 < 2 + 3").(*ast.BinaryExpr)
	be.Equal(t, bin.Op, ast.OpLt)
	_, ok = bin.Right.(*ast.BinaryExpr)
	be.True(t, ok)
}

func TestLeftAssociativity(t *testing.T) {
	// 10 - 3 - 2 => (10 - 3) - 2
	bin := singleExpr(t, "10 - 3 - 2").(*ast.BinaryExpr)
	be.Equal(t, bin.Op, ast.OpSub)
	left, ok := bin.Left.(*ast.BinaryExpr)
	be.True(t, ok)
	be.Equal(t, left.Op, ast.OpSub)
	_, ok = bin.Right.(*ast.IntLiteral)
	be.True(t, ok)
}

func TestPowerRightAssociative(t *testing.T) {
	// 2 ^ 3 ^ 2 => 2 ^ (3 ^ 2)
	bin := singleExpr(t, "2 ^ 3 ^ 2").(*ast.BinaryExpr)
	be.Equal(t, bin.Op, ast.OpPow)
	_, ok := bin.Left.(*ast.IntLiteral)
	be.True(t, ok)
	right, ok := bin.Right.(*ast.BinaryExpr)
	be.True(t, ok)
	be.Equal(t, right.Op, ast.OpPow)
}

func TestPowerBindsTighterThanNegation(t *testing.T) {
	// -2 ^ 2 => -(2 ^ 2)
	pre, ok := singleExpr(t, "-2 ^ 2").(*ast.PrefixExpr)
	if !ok {
		t.Fatal("expected PrefixExpr at the root")
	}
	be.Equal(t, pre.Op, ast.OpNeg)
	pow, ok := pre.Operand.(*ast.BinaryExpr)
	be.True(t, ok)
	be.Equal(t, pow.Op, ast.OpPow)

	// 2 ^ -1 => 2 ^ (-1)
	pow = singleExpr(t, "2 ^ -1").(*ast.BinaryExpr)
	_, ok = pow.Right.(*ast.PrefixExpr)
	be.True(t, ok)
}

func TestConjugatePostfix(t *testing.T) {
	post := singleExpr(t, "(1 + 2i)``").(*ast.PostfixExpr)
	be.Equal(t, post.Op, ast.OpConjugate)
	inner, ok := post.Operand.(*ast.PostfixExpr)
	be.True(t, ok)
	be.Equal(t, inner.Op, ast.OpConjugate)
	_, ok = inner.Operand.(*ast.BinaryExpr)
	be.True(t, ok)
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		source string
		op     ast.BinaryOp
	}{
		{"a > b", ast.OpGt},
		{"a < b", ast.OpLt},
		{"a >= b", ast.OpGtEq},
		{"a <= b", ast.OpLtEq},
		{"a == b", ast.OpEqEq},
		{"a != b", ast.OpNeq},
	}
	for _, tt := range tests {
		bin, ok := singleExpr(t, tt.source).(*ast.BinaryExpr)
		if !ok {
			t.Fatalf("%q: expected BinaryExpr", tt.source)
		}
		if bin.Op != tt.op {
			t.Errorf("%q: got op %q, want %q", tt.source, bin.Op, tt.op)
		}
	}
}

func TestParenthesizedGrouping(t *testing.T) {
	bin := singleExpr(t, "(1 + 2) * 3").(*ast.BinaryExpr)
	be.Equal(t, bin.Op, ast.OpMul)
	left, ok := bin.Left.(*ast.BinaryExpr)
	be.True(t, ok)
	be.Equal(t, left.Op, ast.OpAdd)
}

// ---- 3. Statements ----

func TestLetAndAssign(t *testing.T) {
	prog := mustParse(t, "let a = 4;\na = a + 1")
	be.Equal(t, len(prog.Statements), 2)

	let, ok := prog.Statements[0].(*ast.LetStmt)
	be.True(t, ok)
	be.Equal(t, let.Name, "a")

	assign, ok := prog.Statements[1].(*ast.AssignStmt)
	be.True(t, ok)
	be.Equal(t, assign.Name, "a")
	_, ok = assign.Value.(*ast.BinaryExpr)
	be.True(t, ok)
}

func TestIdentifierIsNotAssignment(t *testing.T) {
	bin := singleExpr(t, "a == 1").(*ast.BinaryExpr)
	be.Equal(t, bin.Op, ast.OpEqEq)
}

func TestFnDecl(t *testing.T) {
	prog := mustParse(t, "fn add(a: int, b: float) -> int { a + b }")
	fn, ok := prog.Statements[0].(*ast.FnDecl)
	if !ok {
		t.Fatalf("expected FnDecl, got %T", prog.Statements[0])
	}
	be.Equal(t, fn.Name, "add")
	be.Equal(t, fn.ReturnType, "int")
	be.Equal(t, len(fn.Params), 2)
	be.Equal(t, fn.Params[0].Name, "a")
	be.Equal(t, fn.Params[0].TypeName, "int")
	be.Equal(t, fn.Params[1].TypeName, "float")
	be.Equal(t, len(fn.Body.Statements), 1)
}

func TestFnDeclWithoutReturnType(t *testing.T) {
	prog := mustParse(t, "fn noop() { 1 }")
	fn := prog.Statements[0].(*ast.FnDecl)
	be.Equal(t, fn.ReturnType, "")
	be.Equal(t, len(fn.Params), 0)
}

func TestCallExpr(t *testing.T) {
	call, ok := singleExpr(t, "add(2, b * 3)").(*ast.CallExpr)
	if !ok {
		t.Fatal("expected CallExpr")
	}
	be.Equal(t, call.Name, "add")
	be.Equal(t, len(call.Args), 2)

	call = singleExpr(t, "get_image_width()").(*ast.CallExpr)
	be.Equal(t, len(call.Args), 0)
}

func TestReturnBreakPrint(t *testing.T) {
	prog := mustParse(t, "return true; break 101; print(1, \"a\")")
	be.Equal(t, len(prog.Statements), 3)
	_, ok := prog.Statements[0].(*ast.ReturnStmt)
	be.True(t, ok)
	brk, ok := prog.Statements[1].(*ast.BreakStmt)
	be.True(t, ok)
	be.Equal(t, brk.Value.(*ast.IntLiteral).Value, int64(101))
	pr, ok := prog.Statements[2].(*ast.PrintStmt)
	be.True(t, ok)
	be.Equal(t, len(pr.Args), 2)
}

// ---- 4. Compound expressions ----

func TestIfElse(t *testing.T) {
	ifx, ok := singleExpr(t, "if a < 3 { 1 } else { 2 }").(*ast.IfExpr)
	if !ok {
		t.Fatal("expected IfExpr")
	}
	_, ok = ifx.Cond.(*ast.BinaryExpr)
	be.True(t, ok)
	be.Equal(t, len(ifx.Then.Statements), 1)
	_, ok = ifx.Else.(*ast.Block)
	be.True(t, ok)
}

func TestIfWithoutElse(t *testing.T) {
	ifx := singleExpr(t, "if true { 1 }").(*ast.IfExpr)
	be.True(t, ifx.Else == nil)
}

func TestElseIfChain(t *testing.T) {
	ifx := singleExpr(t, "if a { 1 } else if b { 2 } else { 3 }").(*ast.IfExpr)
	nested, ok := ifx.Else.(*ast.IfExpr)
	be.True(t, ok)
	_, ok = nested.Else.(*ast.Block)
	be.True(t, ok)
}

func TestIterateWithVariable(t *testing.T) {
	it, ok := singleExpr(t, "iterate i = [1, 11) { a = a + i }").(*ast.IterateExpr)
	if !ok {
		t.Fatal("expected IterateExpr")
	}
	be.Equal(t, it.Var, "i")
	be.Equal(t, it.Set.EndInclusive, false)
	be.True(t, it.Set.ImplicitStep)
	step, ok := it.Set.Step.(*ast.IntLiteral)
	be.True(t, ok)
	be.Equal(t, step.Value, int64(1))
	be.Equal(t, len(it.Body.Statements), 1)
}

func TestIterateOverWithStep(t *testing.T) {
	it := singleExpr(t, "iterate over [0, 10, 2] { break 1 }").(*ast.IterateExpr)
	be.Equal(t, it.Var, "")
	be.True(t, it.Set.EndInclusive)
	be.True(t, !it.Set.ImplicitStep)
	step, ok := it.Set.Step.(*ast.IntLiteral)
	be.True(t, ok)
	be.Equal(t, step.Value, int64(2))
}

func TestIterateAsLetValue(t *testing.T) {
	prog := mustParse(t, "let a = iterate over [0, 10] { break 3 };")
	let := prog.Statements[0].(*ast.LetStmt)
	_, ok := let.Value.(*ast.IterateExpr)
	be.True(t, ok)
}

func TestBlockExpression(t *testing.T) {
	blk, ok := singleExpr(t, "{ let x = 1; x + 1 }").(*ast.Block)
	be.True(t, ok)
	be.Equal(t, len(blk.Statements), 2)
}

func TestOptionalSemicolons(t *testing.T) {
	prog := mustParse(t, "let a = 1 let b = 2; a\nb;")
	be.Equal(t, len(prog.Statements), 4)
}

func TestSpans(t *testing.T) {
	prog := mustParse(t, "let a = 1\nlet bb = 22")
	s := prog.Statements[1].NodeSpan()
	be.Equal(t, s.StartLine, 2)
	be.Equal(t, s.StartCol, 1)
	be.Equal(t, s.EndCol, 12)
	be.Equal(t, s.File, "test.psk")
}

// ---- 5. Failures ----

func TestParseErrors(t *testing.T) {
	sources := []string{
		"let = 1",
		"let a 1",
		"1 +",
		"fn (a: int) { a }",
		"fn f(a) { a }",
		"fn f(a: int) -> { a }",
		"fn f(a: int)",
		"iterate [0, 1) { 1 }",
		"iterate i [0, 1) { 1 }",
		"iterate i = [0) { 1 }",
		"iterate i = [0, 1} { 1 }",
		"if a { 1 } else 2",
		"print 1",
		"(1 + 2",
		"{ 1",
		"break",
		")",
	}
	for _, src := range sources {
		diags := mustFail(t, src)
		if diags[0].Code != diagnostics.EParse {
			t.Errorf("%q: got code %s, want %s", src, diags[0].Code, diagnostics.EParse)
		}
		if diags[0].Span == nil {
			t.Errorf("%q: expected a span on the diagnostic", src)
		}
	}
}

func TestLexErrorsSurface(t *testing.T) {
	diags := mustFail(t, `let a = "unterminated`)
	be.Equal(t, diags[0].Code, diagnostics.ELex)
}
