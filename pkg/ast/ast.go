// Package ast defines the piske syntax tree node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all syntax tree nodes.
// Nodes are always handled by pointer, so a node's address is its identity.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents an infix operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpPow  BinaryOp = "^"
	OpGt   BinaryOp = ">"
	OpLt   BinaryOp = "<"
	OpGtEq BinaryOp = ">="
	OpLtEq BinaryOp = "<="
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
)

// IsComparison reports whether op is one of the six comparison operators.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpGt, OpLt, OpGtEq, OpLtEq, OpEqEq, OpNeq:
		return true
	}
	return false
}

// IsOrdering reports whether op orders its operands (as opposed to testing equality).
func (op BinaryOp) IsOrdering() bool {
	switch op {
	case OpGt, OpLt, OpGtEq, OpLtEq:
		return true
	}
	return false
}

// PrefixOp represents a prefix operator.
type PrefixOp string

const (
	OpNeg PrefixOp = "-"
	OpPos PrefixOp = "+"
)

// PostfixOp represents a postfix operator.
type PostfixOp string

const (
	OpConjugate PostfixOp = "`"
	OpImaginary PostfixOp = "i"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Program ---

type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }

// --- Literal Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}

type FloatLiteral struct {
	Span  Span
	Value float64
}

func (n *FloatLiteral) Kind() string   { return "FloatLiteral" }
func (n *FloatLiteral) NodeSpan() Span { return n.Span }
func (n *FloatLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}

// --- Identifiers ---

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

// --- Operators ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type PrefixExpr struct {
	Span    Span
	Op      PrefixOp
	Operand Expr
}

func (n *PrefixExpr) Kind() string   { return "PrefixExpr" }
func (n *PrefixExpr) NodeSpan() Span { return n.Span }
func (n *PrefixExpr) exprNode()      {}

type PostfixExpr struct {
	Span    Span
	Op      PostfixOp
	Operand Expr
}

func (n *PostfixExpr) Kind() string   { return "PostfixExpr" }
func (n *PostfixExpr) NodeSpan() Span { return n.Span }
func (n *PostfixExpr) exprNode()      {}

// --- Calls ---

type CallExpr struct {
	Span Span
	Name string
	Args []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

// --- Blocks and control flow ---

// Block is a braced statement list; it is also an expression whose value
// is the value of its last statement.
type Block struct {
	Span       Span
	Statements []Stmt
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) exprNode()      {}

// IfExpr is a conditional. Else is nil, a *Block, or a nested *IfExpr.
type IfExpr struct {
	Span Span
	Cond Expr
	Then *Block
	Else Expr
}

func (n *IfExpr) Kind() string   { return "IfExpr" }
func (n *IfExpr) NodeSpan() Span { return n.Span }
func (n *IfExpr) exprNode()      {}

// SetExpr is an interval literal: [start, end) or [start, end], with an optional step.
type SetExpr struct {
	Span         Span
	Start        Expr
	End          Expr
	Step         Expr
	EndInclusive bool
	// ImplicitStep is set when the source omitted the step and the parser
	// supplied the literal 1.
	ImplicitStep bool
}

func (n *SetExpr) Kind() string   { return "SetExpr" }
func (n *SetExpr) NodeSpan() Span { return n.Span }
func (n *SetExpr) exprNode()      {}

// IterateExpr loops over a set. Var is empty for `iterate over`.
type IterateExpr struct {
	Span    Span
	Var     string
	VarSpan Span
	Set     *SetExpr
	Body    *Block
}

func (n *IterateExpr) Kind() string   { return "IterateExpr" }
func (n *IterateExpr) NodeSpan() Span { return n.Span }
func (n *IterateExpr) exprNode()      {}

// --- Statements ---

type LetStmt struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *LetStmt) Kind() string   { return "LetStmt" }
func (n *LetStmt) NodeSpan() Span { return n.Span }
func (n *LetStmt) stmtNode()      {}

type AssignStmt struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

type Param struct {
	Span     Span
	Name     string
	TypeName string
}

func (n *Param) Kind() string   { return "Param" }
func (n *Param) NodeSpan() Span { return n.Span }

// FnDecl defines a function. ReturnType is empty when no `-> type` was written.
type FnDecl struct {
	Span       Span
	Name       string
	Params     []*Param
	ReturnType string
	Body       *Block
}

func (n *FnDecl) Kind() string   { return "FnDecl" }
func (n *FnDecl) NodeSpan() Span { return n.Span }
func (n *FnDecl) stmtNode()      {}

type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

type BreakStmt struct {
	Span  Span
	Value Expr
}

func (n *BreakStmt) Kind() string   { return "BreakStmt" }
func (n *BreakStmt) NodeSpan() Span { return n.Span }
func (n *BreakStmt) stmtNode()      {}

type PrintStmt struct {
	Span Span
	Args []Expr
}

func (n *PrintStmt) Kind() string   { return "PrintStmt" }
func (n *PrintStmt) NodeSpan() Span { return n.Span }
func (n *PrintStmt) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}
