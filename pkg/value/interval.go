package value

import (
	"fmt"

	"github.com/thomasrohde/piske/pkg/types"
)

// Interval is a stepped range of numbers, the only kind of set.
type Interval struct {
	Start        Value
	End          Value
	Step         Value
	EndInclusive bool
}

func (*Interval) piskeValue()      {}
func (*Interval) Type() types.Type { return types.Set }

func (v *Interval) String() string {
	closer := ")"
	if v.EndInclusive {
		closer = "]"
	}
	if isUnitStep(v.Step) {
		return fmt.Sprintf("[%s, %s%s", v.Start, v.End, closer)
	}
	return fmt.Sprintf("[%s, %s, %s%s", v.Start, v.End, v.Step, closer)
}

func isUnitStep(step Value) bool {
	switch s := step.(type) {
	case Int:
		return s.Value == 1
	case Float:
		return s.Value == 1
	}
	return false
}

// Iterator walks an interval lazily. It is not restartable; call Iter again.
type Iterator interface {
	Next() (Value, bool)
}

// Iter returns a fresh iterator positioned at the interval's start.
// The start, end and step must share one runtime type, Int or Float.
func (v *Interval) Iter() (Iterator, error) {
	st, et, pt := v.Start.Type(), v.End.Type(), v.Step.Type()
	if st != et || st != pt {
		return nil, fmt.Errorf("set bounds and step must share one type, got %s, %s and %s", st, et, pt)
	}
	switch start := v.Start.(type) {
	case Int:
		return &intIter{
			cur:       start.Value,
			end:       v.End.(Int).Value,
			step:      v.Step.(Int).Value,
			inclusive: v.EndInclusive,
		}, nil
	case Float:
		return &floatIter{
			cur:       start.Value,
			end:       v.End.(Float).Value,
			step:      v.Step.(Float).Value,
			inclusive: v.EndInclusive,
		}, nil
	}
	return nil, fmt.Errorf("unable to iterate over a set of %s", st)
}

type intIter struct {
	cur, end, step int64
	inclusive      bool
}

func (it *intIter) Next() (Value, bool) {
	if it.cur > it.end || (!it.inclusive && it.cur == it.end) {
		return nil, false
	}
	v := Int{Value: it.cur}
	it.cur += it.step
	return v, true
}

type floatIter struct {
	cur, end, step float64
	inclusive      bool
}

func (it *floatIter) Next() (Value, bool) {
	if it.cur > it.end || (!it.inclusive && it.cur == it.end) {
		return nil, false
	}
	v := Float{Value: it.cur}
	it.cur += it.step
	return v, true
}
