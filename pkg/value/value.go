// Package value implements piske runtime values.
package value

import (
	"fmt"
	"math"
	"strconv"

	"github.com/thomasrohde/piske/pkg/types"
)

// Value is the interface for all piske runtime values.
// The sealed marker method restricts implementations to this package.
type Value interface {
	piskeValue() // sealed marker
	Type() types.Type
	String() string
}

// String holds a string value.
type String struct {
	Value string
}

// Float holds a 64-bit floating point value.
type Float struct {
	Value float64
}

// Int holds a 64-bit signed integer value.
type Int struct {
	Value int64
}

// Bool holds a boolean value.
type Bool struct {
	Value bool
}

// Complex holds a complex number as a real and imaginary pair.
type Complex struct {
	Re, Im float64
}

// Return carries the operand of a return statement up to the enclosing call.
type Return struct {
	Inner Value
}

// Break carries the operand of a break statement up to the enclosing loop.
type Break struct {
	Inner Value
}

// Empty is the value of statements and of expressions with nothing to yield.
type Empty struct{}

func (String) piskeValue()  {}
func (Float) piskeValue()   {}
func (Int) piskeValue()     {}
func (Bool) piskeValue()    {}
func (Complex) piskeValue() {}
func (Return) piskeValue()  {}
func (Break) piskeValue()   {}
func (Empty) piskeValue()   {}

func (String) Type() types.Type  { return types.String }
func (Float) Type() types.Type   { return types.Float }
func (Int) Type() types.Type     { return types.Int }
func (Bool) Type() types.Type    { return types.Boolean }
func (Complex) Type() types.Type { return types.Complex }
func (v Return) Type() types.Type {
	return v.Inner.Type()
}
func (v Break) Type() types.Type {
	return v.Inner.Type()
}
func (Empty) Type() types.Type { return types.Void }

func (v String) String() string { return v.Value }
func (v Float) String() string  { return formatFloat(v.Value) }
func (v Int) String() string    { return strconv.FormatInt(v.Value, 10) }
func (v Bool) String() string   { return strconv.FormatBool(v.Value) }
func (v Complex) String() string {
	if math.Signbit(v.Im) && !math.IsNaN(v.Im) {
		return formatFloat(v.Re) + "-" + formatFloat(-v.Im) + "i"
	}
	return formatFloat(v.Re) + "+" + formatFloat(v.Im) + "i"
}
func (v Return) String() string { return v.Inner.String() }
func (v Break) String() string  { return v.Inner.String() }
func (Empty) String() string    { return "<null>" }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IsSignal reports whether v is a control-flow carrier (Return or Break).
func IsSignal(v Value) bool {
	switch v.(type) {
	case Return, Break:
		return true
	}
	return false
}

// Unwrap strips a Return or Break carrier. Other values are returned as is.
func Unwrap(v Value) Value {
	switch val := v.(type) {
	case Return:
		return val.Inner
	case Break:
		return val.Inner
	}
	return v
}

// Coerce applies a silent promotion to v. A target of types.Unknown, or the
// value's own type, leaves v unchanged.
func Coerce(v Value, target types.Type) (Value, error) {
	if target == types.Unknown || v.Type() == target {
		return v, nil
	}
	switch val := v.(type) {
	case Int:
		switch target {
		case types.Float:
			return Float{Value: float64(val.Value)}, nil
		case types.Complex:
			return Complex{Re: float64(val.Value)}, nil
		}
	case Float:
		if target == types.Complex {
			return Complex{Re: val.Value}, nil
		}
	}
	return nil, fmt.Errorf("unable to promote %s value to %s", v.Type(), target)
}

// Equal reports whether two values of the same runtime type are equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		return ok && x.Value == y.Value
	case Float:
		y, ok := b.(Float)
		return ok && x.Value == y.Value
	case Int:
		y, ok := b.(Int)
		return ok && x.Value == y.Value
	case Bool:
		y, ok := b.(Bool)
		return ok && x.Value == y.Value
	case Complex:
		y, ok := b.(Complex)
		return ok && x.Re == y.Re && x.Im == y.Im
	case *Interval:
		y, ok := b.(*Interval)
		return ok && x.EndInclusive == y.EndInclusive &&
			Equal(x.Start, y.Start) && Equal(x.End, y.End) && Equal(x.Step, y.Step)
	case Empty:
		_, ok := b.(Empty)
		return ok
	}
	return false
}
