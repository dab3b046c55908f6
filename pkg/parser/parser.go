// Package parser implements the piske language parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/diagnostics"
	"github.com/thomasrohde/piske/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into a syntax tree.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got %s", tokenName(typ), describe(tok)), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) spanFrom(start ast.Span) ast.Span {
	prev := start
	if p.pos > 0 {
		prev = p.tokens[p.pos-1].Span
	}
	return p.spanFromTo(start, prev)
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of file"
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLBrace:
		return "'{'"
	case lexer.TokRBrace:
		return "'}'"
	case lexer.TokLBracket:
		return "'['"
	case lexer.TokRBracket:
		return "']'"
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokColon:
		return "':'"
	case lexer.TokComma:
		return "','"
	case lexer.TokEquals:
		return "'='"
	case lexer.TokArrow:
		return "'->'"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokStringLit:
		return "string"
	case lexer.TokIntLit:
		return "integer"
	case lexer.TokEOF:
		return "end of file"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}

	return &ast.Program{
		Span:       p.spanFromTo(startSpan, p.current().Span),
		Statements: stmts,
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	stmt := p.parseStmtInner()
	if stmt == nil {
		return nil
	}
	if p.peek() == lexer.TokSemicolon {
		p.advance()
	}
	return stmt
}

func (p *parser) parseStmtInner() ast.Stmt {
	switch p.peek() {
	case lexer.TokLet:
		if s := p.parseLetStmt(); s != nil {
			return s
		}
	case lexer.TokFn:
		if s := p.parseFnDecl(); s != nil {
			return s
		}
	case lexer.TokReturn:
		if s := p.parseReturnStmt(); s != nil {
			return s
		}
	case lexer.TokBreak:
		if s := p.parseBreakStmt(); s != nil {
			return s
		}
	case lexer.TokPrint:
		if s := p.parsePrintStmt(); s != nil {
			return s
		}
	case lexer.TokIdent:
		if p.peekAt(1) == lexer.TokEquals {
			if s := p.parseAssignStmt(); s != nil {
				return s
			}
			return nil
		}
		fallthrough
	default:
		if s := p.parseExprStmt(); s != nil {
			return s
		}
	}
	return nil
}

func (p *parser) parseLetStmt() *ast.LetStmt {
	start := p.advance() // consume 'let'
	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokEquals); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.LetStmt{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Name:  nameTok.Value,
		Value: value,
	}
}

func (p *parser) parseAssignStmt() *ast.AssignStmt {
	nameTok := p.advance()
	p.advance() // consume '='
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.AssignStmt{
		Span:  p.spanFromTo(nameTok.Span, value.NodeSpan()),
		Name:  nameTok.Value,
		Value: value,
	}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // consume 'return'
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.ReturnStmt{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Value: value,
	}
}

func (p *parser) parseBreakStmt() *ast.BreakStmt {
	start := p.advance() // consume 'break'
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.BreakStmt{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Value: value,
	}
}

func (p *parser) parsePrintStmt() *ast.PrintStmt {
	start := p.advance() // consume 'print'
	args, ok := p.parseArgs()
	if !ok {
		return nil
	}
	return &ast.PrintStmt{
		Span: p.spanFrom(start.Span),
		Args: args,
	}
}

func (p *parser) parseFnDecl() *ast.FnDecl {
	start := p.advance() // consume 'fn'
	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}

	// Parse params: ( name: type, ... )
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	var params []*ast.Param
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		paramTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.TokColon); !ok {
			return nil
		}
		typeTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		params = append(params, &ast.Param{
			Span:     p.spanFromTo(paramTok.Span, typeTok.Span),
			Name:     paramTok.Value,
			TypeName: typeTok.Value,
		})
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	retType := ""
	if p.peek() == lexer.TokArrow {
		p.advance()
		retTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		retType = retTok.Value
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}

	return &ast.FnDecl{
		Span:       p.spanFromTo(start.Span, body.Span),
		Name:       nameTok.Value,
		Params:     params,
		ReturnType: retType,
		Body:       body,
	}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{
		Span: expr.NodeSpan(),
		Expr: expr,
	}
}

// --- Block ---

func (p *parser) parseBlock() *ast.Block {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}
	var stmts []ast.Stmt
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil
	}
	return &ast.Block{
		Span:       p.spanFromTo(start.Span, end.Span),
		Statements: stmts,
	}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseComparison()
}

func (p *parser) parseIf() ast.Expr {
	start := p.advance() // consume 'if'
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}
	node := &ast.IfExpr{
		Span: p.spanFromTo(start.Span, then.Span),
		Cond: cond,
		Then: then,
	}
	if p.peek() != lexer.TokElse {
		return node
	}
	p.advance() // consume 'else'
	var elseExpr ast.Expr
	if p.peek() == lexer.TokIf {
		elseExpr = p.parseIf()
	} else if blk := p.parseBlock(); blk != nil {
		elseExpr = blk
	}
	if elseExpr == nil {
		return nil
	}
	node.Else = elseExpr
	node.Span = p.spanFromTo(start.Span, elseExpr.NodeSpan())
	return node
}

func (p *parser) parseIterate() ast.Expr {
	start := p.advance() // consume 'iterate'
	node := &ast.IterateExpr{}
	switch p.peek() {
	case lexer.TokOver:
		p.advance()
	case lexer.TokIdent:
		varTok := p.advance()
		node.Var = varTok.Value
		node.VarSpan = varTok.Span
		if _, ok := p.expect(lexer.TokEquals); !ok {
			return nil
		}
	default:
		tok := p.current()
		p.addError(fmt.Sprintf("expected loop variable or 'over', got %s", describe(tok)), &tok.Span)
		return nil
	}

	set := p.parseSet()
	if set == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	node.Span = p.spanFromTo(start.Span, body.Span)
	node.Set = set
	node.Body = body
	return node
}

func (p *parser) parseSet() *ast.SetExpr {
	start, ok := p.expect(lexer.TokLBracket)
	if !ok {
		return nil
	}
	first := p.parseExpr()
	if first == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokComma); !ok {
		return nil
	}
	second := p.parseExpr()
	if second == nil {
		return nil
	}
	set := &ast.SetExpr{Start: first, End: second}
	if p.peek() == lexer.TokComma {
		p.advance()
		step := p.parseExpr()
		if step == nil {
			return nil
		}
		set.Step = step
	}

	switch p.peek() {
	case lexer.TokRParen:
		set.EndInclusive = false
	case lexer.TokRBracket:
		set.EndInclusive = true
	default:
		tok := p.current()
		p.addError(fmt.Sprintf("expected ')' or ']' to close set, got %s", describe(tok)), &tok.Span)
		return nil
	}
	end := p.advance()
	set.Span = p.spanFromTo(start.Span, end.Span)
	if set.Step == nil {
		set.Step = &ast.IntLiteral{Span: end.Span, Value: 1}
		set.ImplicitStep = true
	}
	return set
}

// --- Precedence climbing ---

func (p *parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokGt:
			op = ast.OpGt
		case lexer.TokLt:
			op = ast.OpLt
		case lexer.TokGtEq:
			op = ast.OpGtEq
		case lexer.TokLtEq:
			op = ast.OpLtEq
		case lexer.TokEqEq:
			op = ast.OpEqEq
		case lexer.TokBangEq:
			op = ast.OpNeq
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseUnary() ast.Expr {
	var op ast.PrefixOp
	switch p.peek() {
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokPlus:
		op = ast.OpPos
	default:
		return p.parsePower()
	}
	start := p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.PrefixExpr{
		Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
		Op:      op,
		Operand: operand,
	}
}

// parsePower is right associative and binds tighter than prefix operators,
// so -2^2 is -(2^2) and 2^-1 is allowed.
func (p *parser) parsePower() ast.Expr {
	base := p.parsePostfix()
	if base == nil {
		return nil
	}
	if p.peek() != lexer.TokCaret {
		return base
	}
	p.advance()
	exp := p.parseUnary()
	if exp == nil {
		return nil
	}
	return &ast.BinaryExpr{
		Span:  p.spanFromTo(base.NodeSpan(), exp.NodeSpan()),
		Op:    ast.OpPow,
		Left:  base,
		Right: exp,
	}
}

func (p *parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for p.peek() == lexer.TokBacktick {
		tok := p.advance()
		expr = &ast.PostfixExpr{
			Span:    p.spanFromTo(expr.NodeSpan(), tok.Span),
			Op:      ast.OpConjugate,
			Operand: expr,
		}
	}
	return expr
}

// imaginary wraps a number literal in the imaginary postfix when the lexer
// emitted a trailing `i`.
func (p *parser) imaginary(lit ast.Expr) ast.Expr {
	if p.peek() != lexer.TokImag {
		return lit
	}
	tok := p.advance()
	return &ast.PostfixExpr{
		Span:    p.spanFromTo(lit.NodeSpan(), tok.Span),
		Op:      ast.OpImaginary,
		Operand: lit,
	}
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokLBrace:
		blk := p.parseBlock()
		if blk == nil {
			return nil
		}
		return blk

	case lexer.TokIf:
		return p.parseIf()

	case lexer.TokIterate:
		return p.parseIterate()

	case lexer.TokLBracket:
		set := p.parseSet()
		if set == nil {
			return nil
		}
		return set

	case lexer.TokIntLit:
		tok := p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("integer literal out of range: %s", tok.Value), &tok.Span)
			return nil
		}
		return p.imaginary(&ast.IntLiteral{Span: tok.Span, Value: val})

	case lexer.TokFloatLit:
		tok := p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.addError(fmt.Sprintf("float literal out of range: %s", tok.Value), &tok.Span)
			return nil
		}
		return p.imaginary(&ast.FloatLiteral{Span: tok.Span, Value: val})

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokTrue:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}

	case lexer.TokFalse:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}

	case lexer.TokIdent:
		return p.parseIdentOrCall()

	default:
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected token %s", describe(tok)), &tok.Span)
		return nil
	}
}

func (p *parser) parseIdentOrCall() ast.Expr {
	nameTok := p.advance()
	if p.peek() != lexer.TokLParen {
		return &ast.Ident{Span: nameTok.Span, Name: nameTok.Value}
	}
	args, ok := p.parseArgs()
	if !ok {
		return nil
	}
	return &ast.CallExpr{
		Span: p.spanFrom(nameTok.Span),
		Name: nameTok.Value,
		Args: args,
	}
}

// parseArgs parses a parenthesized, comma separated expression list.
func (p *parser) parseArgs() ([]ast.Expr, bool) {
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil, false
	}
	var args []ast.Expr
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		arg := p.parseExpr()
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil, false
	}
	return args, true
}
