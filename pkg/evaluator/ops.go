package evaluator

import (
	"fmt"
	"math"

	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/types"
	"github.com/thomasrohde/piske/pkg/value"
)

// binaryOp applies op to operands that have already been promoted. ty is
// the static type of the whole expression and selects the arithmetic.
func binaryOp(op ast.BinaryOp, ty types.Type, left, right value.Value) (value.Value, error) {
	if op == ast.OpPow {
		if left.Type() == types.Complex || right.Type() == types.Complex {
			return nil, fmt.Errorf("exponentiation of complex numbers currently unimplemented")
		}
	}

	switch ty {
	case types.Float:
		l, err := extractFloat(left)
		if err != nil {
			return nil, err
		}
		r, err := extractFloat(right)
		if err != nil {
			return nil, err
		}
		return floatOp(op, l, r)

	case types.Int:
		l, err := extractInt(left)
		if err != nil {
			return nil, err
		}
		r, err := extractInt(right)
		if err != nil {
			return nil, err
		}
		return intOp(op, l, r)

	case types.Complex:
		l, err := extractComplex(left)
		if err != nil {
			return nil, err
		}
		r, err := extractComplex(right)
		if err != nil {
			return nil, err
		}
		return complexOp(op, l, r)

	case types.Boolean:
		if !op.IsComparison() {
			return nil, fmt.Errorf("unable to interpret type '%s' as boolean", ty)
		}
		return compare(op, left, right)
	}
	return nil, fmt.Errorf("infix operators invalid for type %s", ty)
}

func floatOp(op ast.BinaryOp, l, r float64) (value.Value, error) {
	switch op {
	case ast.OpAdd:
		return value.Float{Value: l + r}, nil
	case ast.OpSub:
		return value.Float{Value: l - r}, nil
	case ast.OpMul:
		return value.Float{Value: l * r}, nil
	case ast.OpDiv:
		return value.Float{Value: l / r}, nil
	case ast.OpPow:
		return value.Float{Value: math.Pow(l, r)}, nil
	}
	return nil, fmt.Errorf("comparisons cannot be interpreted as floating point")
}

func intOp(op ast.BinaryOp, l, r int64) (value.Value, error) {
	switch op {
	case ast.OpAdd:
		return value.Int{Value: l + r}, nil
	case ast.OpSub:
		return value.Int{Value: l - r}, nil
	case ast.OpMul:
		return value.Int{Value: l * r}, nil
	case ast.OpDiv:
		if r == 0 {
			return nil, fmt.Errorf("integer division by zero")
		}
		return value.Int{Value: l / r}, nil
	case ast.OpPow:
		if r < 0 {
			return nil, fmt.Errorf("attempt to raise integer value to negative power")
		}
		return value.Int{Value: ipow(l, r)}, nil
	}
	return nil, fmt.Errorf("comparisons cannot be interpreted as integers")
}

// ipow computes base^exp by squaring; overflow wraps like the other
// integer operators.
func ipow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func complexOp(op ast.BinaryOp, l, r value.Complex) (value.Value, error) {
	a, b, c, d := l.Re, l.Im, r.Re, r.Im
	switch op {
	case ast.OpAdd:
		return value.Complex{Re: a + c, Im: b + d}, nil
	case ast.OpSub:
		return value.Complex{Re: a - c, Im: b - d}, nil
	case ast.OpMul:
		return value.Complex{Re: a*c - b*d, Im: b*c + a*d}, nil
	case ast.OpDiv:
		denom := c*c + d*d
		return value.Complex{Re: (a*c + b*d) / denom, Im: (b*c - a*d) / denom}, nil
	case ast.OpPow:
		return nil, fmt.Errorf("exponentiation of complex numbers currently unimplemented")
	}
	return nil, fmt.Errorf("comparisons cannot be interpreted as complex")
}

func compare(op ast.BinaryOp, left, right value.Value) (value.Value, error) {
	switch l := left.(type) {
	case value.Int:
		if r, ok := right.(value.Int); ok {
			return value.Bool{Value: compareOrdered(op, l.Value, r.Value)}, nil
		}
		if r, ok := right.(value.Float); ok {
			return value.Bool{Value: compareOrdered(op, float64(l.Value), r.Value)}, nil
		}
	case value.Float:
		if r, ok := right.(value.Float); ok {
			return value.Bool{Value: compareOrdered(op, l.Value, r.Value)}, nil
		}
		if r, ok := right.(value.Int); ok {
			return value.Bool{Value: compareOrdered(op, l.Value, float64(r.Value))}, nil
		}
	case value.String:
		if r, ok := right.(value.String); ok && !op.IsOrdering() {
			return value.Bool{Value: (l.Value == r.Value) == (op == ast.OpEqEq)}, nil
		}
	default:
		if !op.IsOrdering() && left.Type() == right.Type() {
			return value.Bool{Value: value.Equal(left, right) == (op == ast.OpEqEq)}, nil
		}
	}
	return nil, fmt.Errorf("unable to compare values of type '%s' and '%s' with %s", left.Type(), right.Type(), op)
}

func compareOrdered[T int64 | float64](op ast.BinaryOp, l, r T) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLtEq:
		return l <= r
	case ast.OpGt:
		return l > r
	case ast.OpGtEq:
		return l >= r
	case ast.OpEqEq:
		return l == r
	case ast.OpNeq:
		return l != r
	}
	return false
}

func prefixOp(op ast.PrefixOp, ty types.Type, operand value.Value) (value.Value, error) {
	switch ty {
	case types.Float:
		f, err := extractFloat(operand)
		if err != nil {
			return nil, err
		}
		if op == ast.OpNeg {
			f = -f
		}
		return value.Float{Value: f}, nil
	case types.Int:
		i, err := extractInt(operand)
		if err != nil {
			return nil, err
		}
		if op == ast.OpNeg {
			i = -i
		}
		return value.Int{Value: i}, nil
	case types.Complex:
		c, err := extractComplex(operand)
		if err != nil {
			return nil, err
		}
		if op == ast.OpNeg {
			c = value.Complex{Re: -c.Re, Im: -c.Im}
		}
		return c, nil
	}
	return nil, fmt.Errorf("prefix operators invalid for type %s", ty)
}

// postfixOp applies conjugate or the imaginary suffix. The conjugate of a
// real number is its reciprocal.
func postfixOp(op ast.PostfixOp, ty types.Type, operand value.Value) (value.Value, error) {
	switch {
	case op == ast.OpImaginary && ty == types.Complex:
		f, err := extractFloat(operand)
		if err != nil {
			return nil, err
		}
		return value.Complex{Re: 0, Im: f}, nil
	case op == ast.OpConjugate && ty == types.Float:
		f, err := extractFloat(operand)
		if err != nil {
			return nil, err
		}
		return value.Float{Value: 1 / f}, nil
	case op == ast.OpConjugate && ty == types.Complex:
		c, err := extractComplex(operand)
		if err != nil {
			return nil, err
		}
		return value.Complex{Re: c.Re, Im: -c.Im}, nil
	}
	return nil, fmt.Errorf("postfix operator %s invalid for type %s", op, ty)
}

func extractFloat(v value.Value) (float64, error) {
	if f, ok := v.(value.Float); ok {
		return f.Value, nil
	}
	return 0, fmt.Errorf("unable to extract float from type %s", v.Type())
}

func extractInt(v value.Value) (int64, error) {
	if i, ok := v.(value.Int); ok {
		return i.Value, nil
	}
	return 0, fmt.Errorf("unable to extract int from type %s", v.Type())
}

func extractComplex(v value.Value) (value.Complex, error) {
	if c, ok := v.(value.Complex); ok {
		return c, nil
	}
	return value.Complex{}, fmt.Errorf("unable to extract complex from type %s", v.Type())
}
