// Command piske is the piske CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kr/pretty"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/thomasrohde/piske/pkg/config"
	"github.com/thomasrohde/piske/pkg/diagnostics"
	"github.com/thomasrohde/piske/pkg/evaluator"
	"github.com/thomasrohde/piske/pkg/formatter"
	"github.com/thomasrohde/piske/pkg/help"
	"github.com/thomasrohde/piske/pkg/lexer"
	"github.com/thomasrohde/piske/pkg/runtime"
	"github.com/thomasrohde/piske/pkg/stdlib"
	"github.com/thomasrohde/piske/pkg/value"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: piske <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, ast, repl, help, config")
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "ast":
		os.Exit(cmdAST(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	case "config":
		os.Exit(cmdConfig(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

// options are the flags shared by the subcommands that run the pipeline.
type options struct {
	file     string
	pretty   bool
	json     bool
	logLevel string
	cfg      *config.Config
}

func parseOptions(args []string) (*options, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	o := &options{cfg: cfg, pretty: cfg.Pretty, logLevel: cfg.LogLevel}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			o.pretty = true
		case "--json":
			o.json = true
		case "--log-level":
			if i+1 < len(args) {
				i++
				o.logLevel = args[i]
			}
		case "-":
			o.file = "-"
		default:
			if !strings.HasPrefix(args[i], "-") {
				o.file = args[i]
			}
		}
	}
	return o, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func (o *options) runtime(stdout io.Writer) *runtime.Runtime {
	return runtime.New(
		runtime.WithStdout(stdout),
		runtime.WithEnvironment(o.cfg.Environment()),
		runtime.WithLimits(o.cfg.EvalLimits()),
		runtime.WithLogger(newLogger(o.logLevel)),
	)
}

func cmdRun(args []string) int {
	o, err := parseOptions(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %s\n", err)
		return 1
	}
	if o.file == "" {
		fmt.Fprintln(os.Stderr, "usage: piske run <file|-> [--pretty] [--json] [--log-level <level>]")
		return 1
	}

	source, filename, exitCode := readSource(o.file, o.pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := o.runtime(os.Stdout)
	result, execErr := rt.Run(context.Background(), source, filename)
	if result != nil && len(result.Diagnostics) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(result.Diagnostics, o.pretty))
	}
	if execErr != nil {
		return reportError(execErr, o.pretty)
	}

	if _, empty := result.Value.(value.Empty); result.Value != nil && !empty {
		if o.json {
			b, err := value.ToJSON(result.Value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error serializing result: %s\n", err)
				return 3
			}
			fmt.Println(string(b))
		} else {
			fmt.Println(result.Value.String())
		}
	}
	return 0
}

// reportError prints a pipeline error and returns the matching exit code.
func reportError(err error, pretty bool) int {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, pretty))
		return 2
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		diag := diagnostics.MakeDiag(rtErr.Code, rtErr.Message, rtErr.Span, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return 3
	}
	fmt.Fprintln(os.Stderr, err.Error())
	return 3
}

func cmdCheck(args []string) int {
	o, err := parseOptions(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %s\n", err)
		return 1
	}
	if o.file == "" {
		fmt.Fprintln(os.Stderr, "usage: piske check <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(o.file, o.pretty)
	if exitCode != 0 {
		return exitCode
	}

	diags := o.runtime(io.Discard).Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, o.pretty))
		for _, d := range diags {
			if d.IsError() {
				return 2
			}
		}
		return 0
	}

	if o.pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: piske fmt <file> [--write]")
		return 1
	}

	source, _, exitCode := readSource(file, false)
	if exitCode != 0 {
		return exitCode
	}

	formatted, fmtErr := runtime.New().Format(source, file)
	if fmtErr != nil {
		return reportError(fmtErr, false)
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return 1
		}
	} else {
		fmt.Print(formatted)
	}
	return 0
}

func cmdAST(args []string) int {
	o, err := parseOptions(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %s\n", err)
		return 1
	}
	if o.file == "" {
		fmt.Fprintln(os.Stderr, "usage: piske ast <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(o.file, o.pretty)
	if exitCode != 0 {
		return exitCode
	}

	an, err := o.runtime(io.Discard).Analyze(source, filename)
	if err != nil {
		return reportError(err, o.pretty)
	}
	if len(an.Diagnostics) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(an.Diagnostics, o.pretty))
	}

	for _, stmt := range an.Program.Statements {
		span := stmt.NodeSpan()
		typ := "?"
		if a, ok := an.Context.Table.Get(stmt); ok {
			typ = a.Type.String()
		}
		fmt.Printf("%d:%d %s : %s\n", span.StartLine, span.StartCol, stmt.Kind(), typ)
		_, _ = pretty.Println(stmt)
	}
	return 0
}

func cmdRepl(args []string) int {
	o, err := parseOptions(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %s\n", err)
		return 1
	}

	fmt.Printf("piske %s. Type :help for commands, :quit to exit.\n", help.Version)

	histPath := o.cfg.REPL.HistoryFile
	if histPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			histPath = filepath.Join(home, config.UserDir, "history")
		}
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			_ = os.MkdirAll(filepath.Dir(histPath), 0755)
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	rt := o.runtime(os.Stdout)
	session := rt.NewSession()
	ln.SetCompleter(func(line string) []string {
		return complete(session.Names(), line)
	})

	for {
		code, ok := readInput(ln, o.cfg.REPL.Prompt, "..  ")
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if replCommand(trimmed, session, rt.Environment()) {
				return 0
			}
			continue
		}

		result, err := session.Eval(context.Background(), code)
		if result != nil && len(result.Diagnostics) > 0 {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(result.Diagnostics, true))
		}
		if err != nil {
			reportError(err, true)
			continue
		}
		if _, empty := result.Value.(value.Empty); result.Value != nil && !empty {
			fmt.Println(result.Value.String())
		}
	}
}

// replCommand handles a ':' command and reports whether the REPL should exit.
func replCommand(cmd string, session *runtime.Session, env *stdlib.Environment) bool {
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Println(":names   list global names")
		fmt.Println(":image   show the image dimensions")
		fmt.Println(":quit    leave the REPL")
	case ":names":
		fmt.Println(strings.Join(session.Names(), " "))
	case ":image":
		fmt.Printf("%dx%d\n", env.Image.Rows, env.Image.Cols)
	default:
		fmt.Println("unknown command. Type :help for commands.")
	}
	return false
}

// complete returns the names that extend the last word of line.
func complete(names []string, line string) []string {
	cut := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	head, word := line[:cut+1], line[cut+1:]
	if word == "" {
		return nil
	}
	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, word) {
			out = append(out, head+name)
		}
	}
	sort.Strings(out)
	return out
}

// readInput reads lines until the braces, brackets and parentheses of the
// input are balanced.
func readInput(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if depth(b.String()) <= 0 {
			return b.String(), true
		}
	}
}

// depth counts unclosed delimiters. Input that does not lex is treated
// as complete so the error is reported.
func depth(src string) int {
	toks, err := lexer.Tokenize(src, "<repl>")
	if err != nil {
		return 0
	}
	n := 0
	for _, tok := range toks {
		switch tok.Type {
		case lexer.TokLBrace, lexer.TokLParen, lexer.TokLBracket:
			n++
		case lexer.TokRBrace, lexer.TokRParen, lexer.TokRBracket:
			n--
		}
	}
	return n
}

func cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	name, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Print(content)
	if name == "stdlib" {
		fmt.Println()
		fmt.Print(help.StdlibIndex(stdlib.Defaults()))
	}
	return 0
}

func cmdConfig(_ []string) int {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %s\n", err)
		return 1
	}
	b, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error serializing config: %s\n", err)
		return 1
	}
	if cfg.Source != "" {
		fmt.Printf("# %s\n", cfg.Source)
	} else {
		fmt.Println("# defaults")
	}
	fmt.Print(string(b))
	return 0
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", "", 1
	}
	return string(source), file, 0
}
