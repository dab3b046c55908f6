// Package stdlib provides the piske host environment and its external
// function registry.
package stdlib

import (
	"fmt"
	"sort"

	"github.com/thomasrohde/piske/pkg/scope"
	"github.com/thomasrohde/piske/pkg/types"
	"github.com/thomasrohde/piske/pkg/value"
)

// Fn represents a standard library function.
type Fn struct {
	Name    string
	Params  []scope.Param
	Return  types.Type
	Execute func(env *Environment, args []value.Value) (value.Value, error)
}

// Registry holds registered stdlib functions.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty stdlib registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Register adds a stdlib function to the registry.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a stdlib function by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// All returns all registered stdlib functions.
func (r *Registry) All() map[string]*Fn {
	return r.fns
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Externals returns one function symbol per registered function, ready to
// be defined in a global scope. Each call returns fresh symbols.
func (r *Registry) Externals() []*scope.Function {
	out := make([]*scope.Function, 0, len(r.fns))
	for _, name := range r.Names() {
		fn := r.fns[name]
		params := make([]scope.Param, len(fn.Params))
		copy(params, fn.Params)
		out = append(out, &scope.Function{
			Name:     fn.Name,
			Return:   fn.Return,
			Params:   params,
			External: fn.Name,
		})
	}
	return out
}

// Host dispatches external calls to a registry against one environment.
type Host struct {
	reg *Registry
	env *Environment
}

// NewHost binds reg to env.
func NewHost(reg *Registry, env *Environment) *Host {
	return &Host{reg: reg, env: env}
}

// Call runs the named function with already evaluated arguments.
func (h *Host) Call(name string, args []value.Value) (value.Value, error) {
	fn := h.reg.Get(name)
	if fn == nil {
		return nil, fmt.Errorf("unknown external function '%s'", name)
	}
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("expects %d argument(s), got %d", len(fn.Params), len(args))
	}
	v, err := fn.Execute(h.env, args)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return value.Empty{}, nil
	}
	return v, nil
}

func param(name string, t types.Type) scope.Param {
	return scope.Param{Name: name, TypeName: t.String(), Type: t}
}

func argInt(name string, args []value.Value, i int) (int64, error) {
	v, ok := args[i].(value.Int)
	if !ok {
		return 0, fmt.Errorf("%s: argument %d must be int, got %s", name, i+1, args[i].Type())
	}
	return v.Value, nil
}

func argFloat(name string, args []value.Value, i int) (float64, error) {
	switch v := args[i].(type) {
	case value.Float:
		return v.Value, nil
	case value.Int:
		return float64(v.Value), nil
	}
	return 0, fmt.Errorf("%s: argument %d must be float, got %s", name, i+1, args[i].Type())
}

func argComplex(name string, args []value.Value, i int) (value.Complex, error) {
	c, err := value.Coerce(args[i], types.Complex)
	if err != nil {
		return value.Complex{}, fmt.Errorf("%s: argument %d must be complex, got %s", name, i+1, args[i].Type())
	}
	return c.(value.Complex), nil
}

func argString(name string, args []value.Value, i int) (string, error) {
	v, ok := args[i].(value.String)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be string, got %s", name, i+1, args[i].Type())
	}
	return v.Value, nil
}
