// Package formatter implements the piske source code formatter.
package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/thomasrohde/piske/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpEqEq: 1, ast.OpNeq: 1,
	ast.OpGt: 1, ast.OpLt: 1, ast.OpGtEq: 1, ast.OpLtEq: 1,
	ast.OpAdd: 2, ast.OpSub: 2,
	ast.OpMul: 3, ast.OpDiv: 3,
	ast.OpPow: 5,
}

// prefix operators bind between multiplication and power
const prefixPrec = 4

func exprPrec(e ast.Expr) int {
	switch expr := e.(type) {
	case *ast.BinaryExpr:
		return precedence[expr.Op]
	case *ast.PrefixExpr:
		return prefixPrec
	}
	return 6
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	childPrec := exprPrec(child)
	parentPrec := precedence[parentOp]
	if parentOp == ast.OpPow {
		// the base of ^ is a postfix expression; the exponent may be unary
		if isRight {
			return childPrec < prefixPrec
		}
		return childPrec <= parentPrec
	}
	if childPrec < parentPrec {
		return true
	}
	// left-associative: same precedence on the right side needs parens
	return childPrec == parentPrec && isRight
}

// Format pretty-prints a piske AST back to source code.
func Format(program *ast.Program) string {
	lines := make([]string, len(program.Statements))
	for i, s := range program.Statements {
		lines[i] = formatStmt(s, 0)
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains piske comments (# prefix).
func HasComments(source string) bool {
	lines := strings.Split(source, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return true
		}
		// Check for inline comments (# after code)
		// Be careful not to flag # inside strings
		inString := false
		for i := 0; i < len(trimmed); i++ {
			if trimmed[i] == '\\' && inString {
				i++
				continue
			}
			if trimmed[i] == '"' {
				inString = !inString
			}
			if !inString && trimmed[i] == '#' {
				return true
			}
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.LetStmt:
		return prefix + "let " + stmt.Name + " = " + formatExpr(stmt.Value, depth)
	case *ast.AssignStmt:
		return prefix + stmt.Name + " = " + formatExpr(stmt.Value, depth)
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr, depth)
	case *ast.ReturnStmt:
		return prefix + "return " + formatExpr(stmt.Value, depth)
	case *ast.BreakStmt:
		return prefix + "break " + formatExpr(stmt.Value, depth)
	case *ast.PrintStmt:
		return prefix + "print(" + formatArgs(stmt.Args, depth) + ")"
	case *ast.FnDecl:
		params := make([]string, len(stmt.Params))
		for i, p := range stmt.Params {
			params[i] = p.Name + ": " + p.TypeName
		}
		ret := ""
		if stmt.ReturnType != "" {
			ret = " -> " + stmt.ReturnType
		}
		return prefix + "fn " + stmt.Name + "(" + strings.Join(params, ", ") + ")" + ret + " " + formatBlock(stmt.Body, depth)
	}
	return ""
}

// formatBlock renders a braced block whose closing brace sits at depth.
func formatBlock(blk *ast.Block, depth int) string {
	if len(blk.Statements) == 0 {
		return "{}"
	}
	lines := make([]string, len(blk.Statements))
	for i, s := range blk.Statements {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatArgs(args []ast.Expr, depth int) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatExpr(a, depth)
	}
	return strings.Join(parts, ", ")
}

func formatExpr(e ast.Expr, depth int) string {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(expr.Value, 10)
	case *ast.FloatLiteral:
		return formatFloatLiteral(expr.Value)
	case *ast.BoolLiteral:
		if expr.Value {
			return "true"
		}
		return "false"
	case *ast.StrLiteral:
		return quote(expr.Value)
	case *ast.Ident:
		return expr.Name
	case *ast.CallExpr:
		return expr.Name + "(" + formatArgs(expr.Args, depth) + ")"
	case *ast.Block:
		return formatBlock(expr, depth)
	case *ast.IfExpr:
		out := "if " + formatExpr(expr.Cond, depth) + " " + formatBlock(expr.Then, depth)
		if expr.Else != nil {
			out += " else " + formatExpr(expr.Else, depth)
		}
		return out
	case *ast.SetExpr:
		closer := ")"
		if expr.EndInclusive {
			closer = "]"
		}
		out := "[" + formatExpr(expr.Start, depth) + ", " + formatExpr(expr.End, depth)
		if !expr.ImplicitStep {
			out += ", " + formatExpr(expr.Step, depth)
		}
		return out + closer
	case *ast.IterateExpr:
		head := "iterate over "
		if expr.Var != "" {
			head = "iterate " + expr.Var + " = "
		}
		return head + formatExpr(expr.Set, depth) + " " + formatBlock(expr.Body, depth)
	case *ast.BinaryExpr:
		leftStr := formatExpr(expr.Left, depth)
		rightStr := formatExpr(expr.Right, depth)
		if needsParens(expr.Left, expr.Op, false) {
			leftStr = "(" + leftStr + ")"
		}
		if needsParens(expr.Right, expr.Op, true) {
			rightStr = "(" + rightStr + ")"
		}
		return leftStr + " " + string(expr.Op) + " " + rightStr
	case *ast.PrefixExpr:
		operandStr := formatExpr(expr.Operand, depth)
		if exprPrec(expr.Operand) <= prefixPrec {
			return string(expr.Op) + "(" + operandStr + ")"
		}
		return string(expr.Op) + operandStr
	case *ast.PostfixExpr:
		operandStr := formatExpr(expr.Operand, depth)
		if expr.Op == ast.OpImaginary {
			return operandStr + "i"
		}
		if exprPrec(expr.Operand) < 6 {
			operandStr = "(" + operandStr + ")"
		}
		return operandStr + string(expr.Op)
	}
	return ""
}

// quote renders s as a piske string literal.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if unicode.IsPrint(r) {
				sb.WriteRune(r)
			} else {
				fmt.Fprintf(&sb, `\u{%x}`, r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatFloatLiteral(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	raw := strconv.FormatFloat(value, 'g', -1, 64)
	// Check if it's in scientific notation
	if strings.ContainsAny(raw, "eE") {
		expanded := expandScientificNotation(raw)
		if !strings.Contains(expanded, ".") {
			expanded += ".0"
		}
		return expanded
	}
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}

func expandScientificNotation(value string) string {
	lower := strings.ToLower(value)
	parts := strings.SplitN(lower, "e", 2)
	if len(parts) != 2 {
		return value
	}

	mantissa := parts[0]
	exponent, err := strconv.Atoi(parts[1])
	if err != nil {
		return value
	}

	sign := ""
	digits := mantissa
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	} else if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}

	dotIdx := strings.Index(digits, ".")
	intPart := digits
	fracPart := ""
	if dotIdx >= 0 {
		intPart = digits[:dotIdx]
		fracPart = digits[dotIdx+1:]
	}

	compact := intPart + fracPart
	decimalIndex := len(intPart) + exponent

	if decimalIndex <= 0 {
		return sign + "0." + strings.Repeat("0", -decimalIndex) + compact
	}
	if decimalIndex >= len(compact) {
		return sign + compact + strings.Repeat("0", decimalIndex-len(compact)) + ".0"
	}
	return sign + compact[:decimalIndex] + "." + compact[decimalIndex:]
}
