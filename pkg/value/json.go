package value

import (
	"encoding/json"
	"math"
)

// ToJSON marshals a value to JSON bytes. Complex numbers become
// {"re":..,"im":..} objects, intervals become objects with their bounds,
// and non-finite floats are written as strings.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toRaw(v))
}

// ToJSONString is a convenience that returns a string.
func ToJSONString(v Value) string {
	b, err := ToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

type complexJSON struct {
	Re any `json:"re"`
	Im any `json:"im"`
}

type intervalJSON struct {
	Start        any  `json:"start"`
	End          any  `json:"end"`
	Step         any  `json:"step"`
	EndInclusive bool `json:"endInclusive"`
}

func toRaw(v Value) any {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case Empty:
		return nil
	case String:
		return val.Value
	case Bool:
		return val.Value
	case Int:
		return val.Value
	case Float:
		return floatRaw(val.Value)
	case Complex:
		return complexJSON{Re: floatRaw(val.Re), Im: floatRaw(val.Im)}
	case *Interval:
		return intervalJSON{
			Start:        toRaw(val.Start),
			End:          toRaw(val.End),
			Step:         toRaw(val.Step),
			EndInclusive: val.EndInclusive,
		}
	case Return:
		return toRaw(val.Inner)
	case Break:
		return toRaw(val.Inner)
	}
	return nil
}

func floatRaw(f float64) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return formatFloat(f)
	}
	return f
}
