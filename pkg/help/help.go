// Package help holds the piske quick reference and help topics shown by
// `piske help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/thomasrohde/piske/pkg/stdlib"
)

// Version is the language version the reference describes.
const Version = "v0.3"

// TopicList is the display order of the help topics.
var TopicList = []string{"syntax", "types", "promotion", "functions", "loops", "stdlib", "diagnostics", "config", "examples"}

// QUICKREF is printed by `piske help` without a topic.
var QUICKREF = `piske ` + Version + ` quick reference

  let x = 1            declare          x = x + 1         assign
  fn f(a: int) -> int { a * 2 }         functions are global only
  if c { 1 } else { 2 }                 conditionals are expressions
  iterate i = [0, 10) { i }             loops yield their last value
  break v   return v   print(a, b)

Types: int float complex string bool set void
Operators: + - * / ^ (power) ` + "`" + ` (conjugate) 2i (imaginary)

Topics: syntax, types, promotion, functions, loops, stdlib, diagnostics, config, examples
Run 'piske help <topic>' for details.
`

// Topics maps each topic name to its text.
var Topics = map[string]string{
	"syntax": `Syntax

A program is a list of statements. Semicolons are optional.

  let name = expr        declares name in the current block
  name = expr            assigns the nearest declaration of name
  fn name(p: type, ...) -> type { ... }
  return expr            leaves the enclosing function
  break expr             leaves the innermost loop
  print(expr, ...)       writes the values with no separator, then a newline
  # comment              runs to the end of the line

Blocks { ... } are expressions whose value is their last statement.
Precedence, loosest first: comparisons, + -, * /, unary - +, ^, postfix.
^ is right-associative: 2 ^ 3 ^ 2 is 2 ^ 9, and -2 ^ 2 is -(2 ^ 2).
`,
	"types": `Types

  int      64-bit signed integer        1, -7
  float    64-bit floating point        2.5, 1e3
  complex  pair of floats               2i, 1 + 2i
  string   UTF-8 text                   "a\tb"
  bool     true / false
  set      stepped interval             [0, 10), [0, 1, 0.25]
  void     no value

Every expression has a static type computed before the program runs.
An if without else has type void. Both branches of an if/else must agree.
`,
	"promotion": `Promotion

Values widen silently along int -> float -> complex.

  1 + 2.5        the int operand is widened, result float
  1 + 2i         result complex
  7 / 2          int division truncates: 3
  7.0 / 2        3.5
  2 ^ 3          power always yields float: 8
  4` + "`" + `             conjugate of a real is its reciprocal: 0.25

A variable keeps its first type. Assigning an int to a float variable
widens the value; assigning a float to an int variable is an error.
`,
	"functions": `Functions

  fn add(a: int, b: float) -> float { a + b }

Functions may only be defined at the top level. A body sees global
names and its parameters; it cannot call itself. Arguments are widened
to the parameter types. Without '-> type' the body's type is the
return type. Every call starts with fresh local variables.
`,
	"loops": `Loops

  iterate i = [1, 100) { if i > 50 { break 101 } i }     -> 101
  iterate over [0, 3) { print("hi") }

The set is evaluated once. [a, b) excludes b, [a, b] includes it, and a
third part sets the step. The loop yields the value of the last body
run, the operand of a break, or nothing when the set is empty.
`,
	"stdlib": `Standard library

The host keeps one image buffer (1024x1024 by default). Functions:

  set_image_dims(height: int, width: int)
  get_image_height() -> int          get_image_width() -> int
  set_pixel_data(row: int, col: int, value: float)
  write(file: string)                renders the buffer to a PNG file
  project(row: int, col: int, center: complex, size: complex) -> complex
  re(c: complex) -> float            im(c: complex) -> float

Every registered function is listed in the index that follows.
`,
	"diagnostics": `Diagnostics

Analysis errors are collected per pass; evaluation stops at the first
runtime error.

  E_LEX E_PARSE                 malformed source
  E_UNBOUND E_NOT_FN E_ARITY    names and calls
  E_NESTED_FN E_DUP_PARAM       function definitions
  E_BREAK_OUTSIDE_LOOP
  E_TYPE E_TYPE_NAME E_PROMOTE E_NOT_LVALUE E_RETURN_TYPE
  E_ARG_TYPE E_COND E_BRANCH E_SET
  E_RUNTIME E_HOST E_LIMIT      evaluation
  W_RETURN_MISMATCH W_BREAK_MISMATCH   warnings

Exit codes: 0 ok, 1 usage or I/O, 2 diagnostics, 3 runtime error.
`,
	"config": `Configuration

piske reads .piske.yaml in the current directory, else
~/.piske/config.yaml, else built-in defaults.

  image:   { rows: 1024, cols: 1024 }
  render:  { power: 0.8, magnifier: 1.0 }
  limits:  { time_ms: 0, max_iterations: 0, max_call_depth: 0 }
  repl:    { history_file: "", prompt: ">> " }
  log_level: warn
  pretty: false

'piske config' prints the effective configuration.
`,
	"examples": `Examples

  fn add5(a: int) -> int { a + 5 }
  add5(5)                                   -> 10

  let a = 0
  iterate i = [1, 11) { a = a + i }
  a                                         -> 55

  (1 + 2i) * (2 + 3i)                       -> -4+7i

  fn escape(c: complex) -> int {
    let z = 0 + 0i
    iterate n = [0, 50) {
      z = z * z + c
      if re(z) * re(z) + im(z) * im(z) > 4.0 { return n }
      n
    }
  }
`,
}

// MatchTopic resolves a topic by exact name, then by unique prefix, then
// by closest fuzzy match.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}

	var prefixed []string
	for _, name := range TopicList {
		if strings.HasPrefix(name, q) {
			prefixed = append(prefixed, name)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], Topics[prefixed[0]], nil
	}
	if len(prefixed) > 1 {
		return "", "", fmt.Errorf("ambiguous help topic '%s': %s", query, strings.Join(prefixed, ", "))
	}

	ranks := fuzzy.RankFindFold(q, TopicList)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		name := ranks[0].Target
		return name, Topics[name], nil
	}
	return "", "", fmt.Errorf("unknown help topic '%s'", query)
}

// StdlibIndex lists the registered external functions with signatures.
func StdlibIndex(reg *stdlib.Registry) string {
	var sb strings.Builder
	sb.WriteString("Standard library functions\n\n")
	names := reg.Names()
	for _, name := range names {
		fn := reg.Get(name)
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Name + ": " + p.TypeName
		}
		fmt.Fprintf(&sb, "  %s(%s) -> %s\n", name, strings.Join(params, ", "), fn.Return)
	}
	fmt.Fprintf(&sb, "\nTotal: %d functions\n", len(names))
	return sb.String()
}
