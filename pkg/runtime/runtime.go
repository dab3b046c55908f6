// Package runtime provides the top-level piske pipeline: parse, define
// symbols, compute types and evaluate.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/piske/pkg/analysis"
	"github.com/thomasrohde/piske/pkg/ast"
	"github.com/thomasrohde/piske/pkg/diagnostics"
	"github.com/thomasrohde/piske/pkg/evaluator"
	"github.com/thomasrohde/piske/pkg/formatter"
	"github.com/thomasrohde/piske/pkg/parser"
	"github.com/thomasrohde/piske/pkg/stdlib"
	"github.com/thomasrohde/piske/pkg/symbols"
	"github.com/thomasrohde/piske/pkg/typecheck"
	"github.com/thomasrohde/piske/pkg/value"
)

// ErrStopped is wrapped by every DiagnosticError: the pipeline stopped
// before evaluation because a pass reported errors.
var ErrStopped = errors.New("stopping due to previous error(s)")

// Result holds the outcome of a program execution.
type Result struct {
	Value value.Value
	// Diagnostics holds the warnings the analysis passes reported.
	Diagnostics []diagnostics.Diagnostic
}

// Analysis is a program together with the annotations of both passes.
// Consumers must treat it as read-only.
type Analysis struct {
	Program     *ast.Program
	Context     *analysis.Context
	Diagnostics []diagnostics.Diagnostic
}

// Runtime wires together all piske components for program execution.
type Runtime struct {
	registry *stdlib.Registry
	env      *stdlib.Environment
	stdout   io.Writer
	log      zerolog.Logger
	limits   evaluator.Limits
	runID    string
	trace    func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithRegistry sets the external function registry.
func WithRegistry(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.registry = r
	}
}

// WithEnvironment sets the host environment external functions act on.
func WithEnvironment(env *stdlib.Environment) Option {
	return func(rt *Runtime) {
		rt.env = env
	}
}

// WithStdout sets the writer that receives print output.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithLogger sets the logger used by the pipeline.
func WithLogger(log zerolog.Logger) Option {
	return func(rt *Runtime) {
		rt.log = log
	}
}

// WithLimits bounds every evaluation.
func WithLimits(l evaluator.Limits) Option {
	return func(rt *Runtime) {
		rt.limits = l
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with the given options.
// By default the stdlib functions are registered against a fresh
// environment, print output is discarded and logging is off.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		registry: stdlib.Defaults(),
		env:      stdlib.NewEnvironment(),
		stdout:   io.Discard,
		log:      zerolog.Nop(),
		runID:    "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Environment returns the host environment.
func (rt *Runtime) Environment() *stdlib.Environment {
	return rt.env
}

// Run parses, analyzes, and executes a piske program.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	return rt.run(ctx, analysis.NewContext(), source, filename)
}

func (rt *Runtime) run(ctx context.Context, actx *analysis.Context, source, filename string) (*Result, error) {
	program, sink, err := rt.analyze(actx, source, filename)
	if err != nil {
		return nil, err
	}
	warnings := sink.All()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rt.log.Trace().Str("file", filename).Msg("evaluate")
	v, err := evaluator.Eval(actx, program, evaluator.Options{
		Stdout: rt.stdout,
		Host:   stdlib.NewHost(rt.registry, rt.env),
		Logger: rt.log,
		Limits: rt.limits,
		Trace:  rt.trace,
		RunID:  rt.runID,
		Done:   ctx.Done(),
	})
	if err != nil {
		return &Result{Diagnostics: warnings}, err
	}
	return &Result{Value: v, Diagnostics: warnings}, nil
}

// analyze runs the parser and both analysis passes into actx, stopping
// after the first stage that reports an error.
func (rt *Runtime) analyze(actx *analysis.Context, source, filename string) (*ast.Program, *diagnostics.Sink, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, nil, &DiagnosticError{Diagnostics: diags}
	}

	sink := diagnostics.NewSink(rt.log)
	rt.log.Trace().Str("file", filename).Msg("define symbols")
	symbols.Define(actx, program, rt.registry.Externals(), sink)
	if sink.Flush() {
		return nil, sink, &DiagnosticError{Diagnostics: sink.All()}
	}

	rt.log.Trace().Str("file", filename).Msg("compute types")
	typecheck.Check(actx, program, sink)
	if sink.Flush() {
		return nil, sink, &DiagnosticError{Diagnostics: sink.All()}
	}
	return program, sink, nil
}

// Check parses and analyzes a piske program without executing it. Warnings
// are included.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	_, sink, err := rt.analyze(analysis.NewContext(), source, filename)
	var derr *DiagnosticError
	if errors.As(err, &derr) {
		return derr.Diagnostics
	}
	if sink == nil {
		return nil
	}
	return sink.All()
}

// Analyze returns the annotated program for read-only consumers such as
// an AST dump or a code generator.
func (rt *Runtime) Analyze(source, filename string) (*Analysis, error) {
	actx := analysis.NewContext()
	program, sink, err := rt.analyze(actx, source, filename)
	if err != nil {
		return nil, err
	}
	return &Analysis{Program: program, Context: actx, Diagnostics: sink.All()}, nil
}

// Format parses and formats a piske program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Session evaluates successive inputs against one global scope, so
// variables and functions defined by one input are visible to the next.
type Session struct {
	rt    *Runtime
	ctx   *analysis.Context
	count int
}

// NewSession starts an empty session.
func (rt *Runtime) NewSession() *Session {
	return &Session{rt: rt, ctx: analysis.NewContext()}
}

// Eval runs one input through the full pipeline. An input that never
// reaches evaluation leaves the global scope as it was before; one that
// fails at run time keeps whatever it bound before failing.
func (s *Session) Eval(ctx context.Context, source string) (*Result, error) {
	s.count++
	snap := s.ctx.Scopes.Snapshot(s.ctx.Scopes.Global())
	res, err := s.rt.run(ctx, s.ctx, source, fmt.Sprintf("<repl:%d>", s.count))
	var rerr *evaluator.RuntimeError
	if err != nil && !errors.As(err, &rerr) {
		s.ctx.Scopes.Restore(snap)
	}
	return res, err
}

// Names returns the names bound in the session's global scope.
func (s *Session) Names() []string {
	return s.ctx.Scopes.Names(s.ctx.Scopes.Global())
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	var msgs []string
	for _, d := range e.Diagnostics {
		if d.IsError() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", d.Code, d.Message))
		}
	}
	return strings.Join(msgs, "; ")
}

func (e *DiagnosticError) Unwrap() error {
	return ErrStopped
}
