package scope

import (
	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/types"
)

// Symbol is a named entity bound in a scope.
type Symbol interface {
	symbol() // sealed marker
	SymbolName() string
}

// BuiltinType binds a type name such as "int".
type BuiltinType struct {
	Name string
	Type types.Type
}

// Variable binds a value name. Type is types.Unknown until the type pass
// has computed it.
type Variable struct {
	Name string
	Type types.Type
}

// Param is a declared function parameter. Type is filled in once the type
// name has been resolved.
type Param struct {
	Name     string
	TypeName string
	Type     types.Type
}

// Function binds a callable. Exactly one of Body and External is set:
// Body for functions defined in source, External for host functions
// looked up by name in the registry.
type Function struct {
	Name     string
	Return   types.Type
	Params   []Param
	Body     *ast.Block
	External string
	Scope    ID
}

func (*BuiltinType) symbol() {}
func (*Variable) symbol()    {}
func (*Function) symbol()    {}

func (s *BuiltinType) SymbolName() string { return s.Name }
func (s *Variable) SymbolName() string    { return s.Name }
func (s *Function) SymbolName() string    { return s.Name }

// IsExternal reports whether the function is provided by the host.
func (s *Function) IsExternal() bool {
	return s.Body == nil
}

// Kind returns a short description used in diagnostics.
func Kind(s Symbol) string {
	switch s.(type) {
	case *BuiltinType:
		return "type"
	case *Variable:
		return "variable"
	case *Function:
		return "function"
	}
	return "symbol"
}
