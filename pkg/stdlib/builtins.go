package stdlib

import (
	"github.com/thomasrohde/piske/pkg/scope"
	"github.com/thomasrohde/piske/pkg/types"
	"github.com/thomasrohde/piske/pkg/value"
)

// RegisterDefaults adds all stdlib functions.
func RegisterDefaults(r *Registry) {
	// Image
	r.Register(Fn{
		Name:    "set_image_dims",
		Params:  []scope.Param{param("height", types.Int), param("width", types.Int)},
		Return:  types.Void,
		Execute: stdlibSetImageDims,
	})
	r.Register(Fn{Name: "get_image_height", Return: types.Int, Execute: stdlibGetImageHeight})
	r.Register(Fn{Name: "get_image_width", Return: types.Int, Execute: stdlibGetImageWidth})
	r.Register(Fn{
		Name:    "set_pixel_data",
		Params:  []scope.Param{param("row", types.Int), param("col", types.Int), param("value", types.Float)},
		Return:  types.Void,
		Execute: stdlibSetPixelData,
	})
	r.Register(Fn{
		Name:    "write",
		Params:  []scope.Param{param("file", types.String)},
		Return:  types.Void,
		Execute: stdlibWrite,
	})
	r.Register(Fn{
		Name: "project",
		Params: []scope.Param{
			param("row", types.Int), param("col", types.Int),
			param("center", types.Complex), param("size", types.Complex),
		},
		Return:  types.Complex,
		Execute: stdlibProject,
	})

	// Complex
	r.Register(Fn{Name: "re", Params: []scope.Param{param("c", types.Complex)}, Return: types.Float, Execute: stdlibRe})
	r.Register(Fn{Name: "im", Params: []scope.Param{param("c", types.Complex)}, Return: types.Float, Execute: stdlibIm})
}

// Defaults returns a registry holding every stdlib function.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// re(c: complex) -> float
func stdlibRe(_ *Environment, args []value.Value) (value.Value, error) {
	c, err := argComplex("re", args, 0)
	if err != nil {
		return nil, err
	}
	return value.Float{Value: c.Re}, nil
}

// im(c: complex) -> float
func stdlibIm(_ *Environment, args []value.Value) (value.Value, error) {
	c, err := argComplex("im", args, 0)
	if err != nil {
		return nil, err
	}
	return value.Float{Value: c.Im}, nil
}
