// Package lexer implements the piske tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokLet TokenType = iota
	TokFn
	TokReturn
	TokBreak
	TokPrint
	TokIf
	TokElse
	TokIterate
	TokOver
	TokTrue
	TokFalse

	// Literals
	TokIntLit
	TokFloatLit
	TokStringLit
	TokImag // `i` directly after a number literal

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokLParen    // (
	TokRParen    // )
	TokColon     // :
	TokComma     // ,
	TokSemicolon // ;
	TokArrow     // ->
	TokEquals    // =

	// Comparison operators
	TokGtEq   // >=
	TokLtEq   // <=
	TokEqEq   // ==
	TokBangEq // !=
	TokGt     // >
	TokLt     // <

	// Arithmetic operators
	TokPlus     // +
	TokMinus    // -
	TokStar     // *
	TokSlash    // /
	TokCaret    // ^
	TokBacktick // `

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"let":     TokLet,
	"fn":      TokFn,
	"return":  TokReturn,
	"break":   TokBreak,
	"print":   TokPrint,
	"if":      TokIf,
	"else":    TokElse,
	"iterate": TokIterate,
	"over":    TokOver,
	"true":    TokTrue,
	"false":   TokFalse,
}

// IsKeyword reports whether t is a reserved word.
func IsKeyword(t TokenType) bool {
	return t >= TokLet && t <= TokFalse
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '#' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	s.advance() // consume opening "

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance()
			return Token{
				Type:  TokStringLit,
				Value: buf.String(),
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\\' {
			s.advance()
			if s.atEnd() {
				return Token{}, s.lexError(startLine, startCol, "unterminated string escape")
			}
			esc := s.advance()
			switch esc {
			case '"':
				buf.WriteByte('"')
			case '\\':
				buf.WriteByte('\\')
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case '0':
				buf.WriteByte(0)
			case 'x':
				// \xHH, ASCII only
				if !isHexDigit(s.peek()) || !isHexDigit(s.peekAt(1)) {
					return Token{}, s.lexError(startLine, startCol, "incomplete hex escape")
				}
				hexStr := s.source[s.pos : s.pos+2]
				b, _ := strconv.ParseUint(hexStr, 16, 8)
				if b > 0x7f {
					return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("hex escape out of range: \\x%s", hexStr))
				}
				buf.WriteByte(byte(b))
				s.advance()
				s.advance()
			case 'u':
				// \u{H...H}, one to six hex digits
				if s.peek() != '{' {
					return Token{}, s.lexError(startLine, startCol, "expected '{' in unicode escape")
				}
				s.advance()
				start := s.pos
				for !s.atEnd() && isHexDigit(s.peek()) {
					s.advance()
				}
				hexStr := s.source[start:s.pos]
				if s.peek() != '}' || len(hexStr) == 0 || len(hexStr) > 6 {
					return Token{}, s.lexError(startLine, startCol, "malformed unicode escape")
				}
				s.advance()
				codepoint, err := strconv.ParseUint(hexStr, 16, 32)
				if err != nil || !utf8.ValidRune(rune(codepoint)) {
					return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid unicode escape: \\u{%s}", hexStr))
				}
				buf.WriteRune(rune(codepoint))
			default:
				return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid escape character: \\%c", esc))
			}
		} else if ch == '\n' {
			return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
		} else {
			r, size := utf8.DecodeRuneInString(s.source[s.pos:])
			if r == utf8.RuneError && size == 1 {
				return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character in string")
			}
			buf.WriteRune(r)
			for i := 0; i < size; i++ {
				s.advance()
			}
		}
	}
	return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
}

// scanNumber scans an integer or float literal. A directly following `i`
// that does not start a longer identifier is returned as a TokImag token.
func (s *scanner) scanNumber() (Token, *Token) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	isFloat := false

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		isFloat = true
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	// Exponent only when digits follow, so `2e` stays a number then an identifier.
	if s.peek() == 'e' || s.peek() == 'E' {
		off := 1
		if s.peekAt(1) == '+' || s.peekAt(1) == '-' {
			off = 2
		}
		if isDigit(s.peekAt(off)) {
			isFloat = true
			for i := 0; i < off; i++ {
				s.advance()
			}
			for !s.atEnd() && isDigit(s.peek()) {
				s.advance()
			}
		}
	}

	text := s.source[startPos:s.pos]
	tokType := TokIntLit
	if isFloat {
		tokType = TokFloatLit
	}
	num := Token{
		Type:  tokType,
		Value: text,
		Span:  s.span(startLine, startCol),
	}

	if s.peek() == 'i' && !isAlphaNumeric(s.peekAt(1)) {
		imLine, imCol := s.line, s.col
		s.advance()
		return num, &Token{Type: TokImag, Value: "i", Span: s.span(imLine, imCol)}
	}
	return num, nil
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]

	if tokType, ok := keywords[text]; ok {
		return Token{
			Type:  tokType,
			Value: text,
			Span:  s.span(startLine, startCol),
		}
	}

	return Token{
		Type:  TokIdent,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func (s *scanner) single(typ TokenType) Token {
	startLine, startCol := s.line, s.col
	ch := s.advance()
	return Token{Type: typ, Value: string(ch), Span: s.span(startLine, startCol)}
}

// pair scans a one- or two-character operator: `first` alone, or `first=`.
func (s *scanner) pair(alone, withEq TokenType) Token {
	startLine, startCol := s.line, s.col
	ch := s.advance()
	if s.peek() == '=' {
		s.advance()
		return Token{Type: withEq, Value: string(ch) + "=", Span: s.span(startLine, startCol)}
	}
	return Token{Type: alone, Value: string(ch), Span: s.span(startLine, startCol)}
}

func (s *scanner) nextToken() ([]Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return []Token{{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	switch ch {
	case '{':
		return []Token{s.single(TokLBrace)}, nil
	case '}':
		return []Token{s.single(TokRBrace)}, nil
	case '[':
		return []Token{s.single(TokLBracket)}, nil
	case ']':
		return []Token{s.single(TokRBracket)}, nil
	case '(':
		return []Token{s.single(TokLParen)}, nil
	case ')':
		return []Token{s.single(TokRParen)}, nil
	case ':':
		return []Token{s.single(TokColon)}, nil
	case ',':
		return []Token{s.single(TokComma)}, nil
	case ';':
		return []Token{s.single(TokSemicolon)}, nil
	case '+':
		return []Token{s.single(TokPlus)}, nil
	case '*':
		return []Token{s.single(TokStar)}, nil
	case '/':
		return []Token{s.single(TokSlash)}, nil
	case '^':
		return []Token{s.single(TokCaret)}, nil
	case '`':
		return []Token{s.single(TokBacktick)}, nil
	case '=':
		return []Token{s.pair(TokEquals, TokEqEq)}, nil
	case '>':
		return []Token{s.pair(TokGt, TokGtEq)}, nil
	case '<':
		return []Token{s.pair(TokLt, TokLtEq)}, nil
	case '-':
		s.advance()
		if s.peek() == '>' {
			s.advance()
			return []Token{{Type: TokArrow, Value: "->", Span: s.span(startLine, startCol)}}, nil
		}
		return []Token{{Type: TokMinus, Value: "-", Span: s.span(startLine, startCol)}}, nil
	case '!':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return []Token{{Type: TokBangEq, Value: "!=", Span: s.span(startLine, startCol)}}, nil
		}
		return nil, s.lexError(startLine, startCol, "unexpected character '!'")
	case '"':
		tok, err := s.scanString()
		if err != nil {
			return nil, err
		}
		return []Token{tok}, nil
	}

	if isDigit(ch) {
		num, imag := s.scanNumber()
		if imag != nil {
			return []Token{num, *imag}, nil
		}
		return []Token{num}, nil
	}

	if isAlpha(ch) {
		return []Token{s.scanIdentOrKeyword()}, nil
	}

	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	s.advance()
	return nil, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", r))
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		toks, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, toks...)
		if toks[len(toks)-1].Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
