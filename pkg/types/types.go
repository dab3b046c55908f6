// Package types defines the piske static types and the operator tables the
// type pass and the evaluator share.
package types

import "github.com/thomasrohde/piske/pkg/ast"

// Type is a piske static type. The zero value is Unknown.
type Type int

const (
	Unknown Type = iota
	String
	Float
	Int
	Boolean
	Complex
	Set
	Void
)

var names = map[Type]string{
	Unknown: "unknown",
	String:  "string",
	Float:   "float",
	Int:     "int",
	Boolean: "bool",
	Complex: "complex",
	Set:     "set",
	Void:    "void",
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return "unknown"
}

// Builtins lists the types that are addressable by name in source code.
func Builtins() []Type {
	return []Type{String, Float, Int, Boolean, Complex, Set, Void}
}

// Lookup maps a source-level type name to its Type.
func Lookup(name string) (Type, bool) {
	for _, t := range Builtins() {
		if names[t] == name {
			return t, true
		}
	}
	return Unknown, false
}

// IsNumeric reports whether arithmetic is defined on t.
func IsNumeric(t Type) bool {
	return t == Int || t == Float || t == Complex
}

// IsReal reports whether t is Int or Float.
func IsReal(t Type) bool {
	return t == Int || t == Float
}

// Arith returns the result type of + - * / on the pair, or Unknown when the
// combination is not defined.
func Arith(l, r Type) Type {
	if !IsNumeric(l) || !IsNumeric(r) {
		return Unknown
	}
	switch {
	case l == Complex || r == Complex:
		return Complex
	case l == Int && r == Int:
		return Int
	default:
		return Float
	}
}

// Power returns the result type of ^. Every pair without a string operand
// is accepted; the result is always Float.
func Power(l, r Type) Type {
	if l == Unknown || r == Unknown || l == String || r == String {
		return Unknown
	}
	return Float
}

// Compare returns the result type of a comparison together with the type
// both operands are compared at. ok is false when the comparison is not
// defined for the pair. Any two numeric types compare at the richer one
// under every operator; ordering complex values is a runtime error.
func Compare(op ast.BinaryOp, l, r Type) (result, common Type, ok bool) {
	switch {
	case IsNumeric(l) && IsNumeric(r):
		return Boolean, Arith(l, r), true
	case op.IsOrdering():
		return Unknown, Unknown, false
	case l == r && (l == String || l == Boolean || l == Set):
		return Boolean, l, true
	}
	return Unknown, Unknown, false
}

// Prefix returns the result type of unary - and +.
func Prefix(t Type) Type {
	if IsNumeric(t) {
		return t
	}
	return Unknown
}

// Conjugate returns the result type of the postfix ` operator: the
// reciprocal of a real number, the complex conjugate of a complex one.
func Conjugate(t Type) Type {
	switch t {
	case Int, Float:
		return Float
	case Complex:
		return Complex
	}
	return Unknown
}

// Imaginary returns the result type of the imaginary literal suffix.
func Imaginary(t Type) Type {
	if IsReal(t) {
		return Complex
	}
	return Unknown
}

// Promotion reports how a value of type src is widened to dst. Equal types
// need no promotion and yield (Unknown, true).
func Promotion(src, dst Type) (Type, bool) {
	if src == dst {
		return Unknown, true
	}
	switch {
	case src == Int && dst == Float,
		src == Int && dst == Complex,
		src == Float && dst == Complex:
		return dst, true
	}
	return Unknown, false
}
