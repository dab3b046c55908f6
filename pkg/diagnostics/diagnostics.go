// Package diagnostics defines piske diagnostic types for parse, analysis, and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/piske/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex              = "E_LEX"
	EParse            = "E_PARSE"
	EUnbound          = "E_UNBOUND"
	ENotFn            = "E_NOT_FN"
	EArity            = "E_ARITY"
	ENestedFn         = "E_NESTED_FN"
	EDupParam         = "E_DUP_PARAM"
	EBreakOutsideLoop = "E_BREAK_OUTSIDE_LOOP"
	EType             = "E_TYPE"
	ETypeName         = "E_TYPE_NAME"
	EPromote          = "E_PROMOTE"
	ENotLvalue        = "E_NOT_LVALUE"
	EReturnType       = "E_RETURN_TYPE"
	EArgType          = "E_ARG_TYPE"
	ECond             = "E_COND"
	EBranch           = "E_BRANCH"
	ESet              = "E_SET"
	ERuntime          = "E_RUNTIME"
	EHost             = "E_HOST"
	ELimit            = "E_LIMIT"
	EInternal         = "E_INTERNAL"
	EIO               = "E_IO"

	WReturnMismatch = "W_RETURN_MISMATCH"
	WBreakMismatch  = "W_BREAK_MISMATCH"
)

// Severity classifies a diagnostic. Only errors stop the pipeline.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic represents a parse, analysis, or runtime diagnostic.
type Diagnostic struct {
	Code     string    `json:"code"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Span     *ast.Span `json:"span,omitempty"`
	Hint     string    `json:"hint,omitempty"`
}

// IsError reports whether d has error severity.
func (d Diagnostic) IsError() bool {
	return d.Severity != SeverityWarning
}

// MakeDiag creates a new error Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Message:  message,
		Span:     span,
		Hint:     hint,
	}
}

// MakeWarning creates a new warning Diagnostic.
func MakeWarning(code, message string, span *ast.Span, hint string) Diagnostic {
	d := MakeDiag(code, message, span, hint)
	d.Severity = SeverityWarning
	return d
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	sev := d.Severity
	if sev == "" {
		sev = SeverityError
	}
	out := fmt.Sprintf("%s[%s]: %s\n  --> %s", sev, d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// Sink is an append-only diagnostic stream shared by the analysis passes.
// Flush reports whether an error arrived since the previous flush.
type Sink struct {
	pending []Diagnostic
	flushed []Diagnostic
	log     zerolog.Logger
}

// NewSink creates a sink that logs flushed diagnostics to log.
func NewSink(log zerolog.Logger) *Sink {
	return &Sink{log: log}
}

// Add appends a diagnostic.
func (s *Sink) Add(d Diagnostic) {
	s.pending = append(s.pending, d)
}

// Errorf appends an error diagnostic with a formatted message.
func (s *Sink) Errorf(code string, span ast.Span, format string, args ...any) {
	s.Add(MakeDiag(code, fmt.Sprintf(format, args...), &span, ""))
}

// Warnf appends a warning diagnostic with a formatted message.
func (s *Sink) Warnf(code string, span ast.Span, format string, args ...any) {
	s.Add(MakeWarning(code, fmt.Sprintf(format, args...), &span, ""))
}

// Pending returns the diagnostics recorded since the last flush.
func (s *Sink) Pending() []Diagnostic {
	return s.pending
}

// Flush moves pending diagnostics into the history and reports whether any
// of them had error severity.
func (s *Sink) Flush() bool {
	hadError := false
	for _, d := range s.pending {
		ev := s.log.Debug()
		if d.IsError() {
			hadError = true
		} else {
			ev = s.log.Warn()
		}
		ev.Str("code", d.Code).Str("severity", string(d.Severity)).Msg(d.Message)
	}
	s.flushed = append(s.flushed, s.pending...)
	s.pending = nil
	return hadError
}

// All returns every diagnostic recorded, flushed or not.
func (s *Sink) All() []Diagnostic {
	out := make([]Diagnostic, 0, len(s.flushed)+len(s.pending))
	out = append(out, s.flushed...)
	return append(out, s.pending...)
}

// Errors returns only the error-severity diagnostics recorded so far.
func (s *Sink) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range s.All() {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}
