// Package testutil extracts piske conformance cases from Markdown files.
//
// A case starts at a heading "Test: <name>" and holds one ```piske fence
// with the program and one or more assertion fences.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CasesDir is the directory, relative to the module root, holding the
// conformance case files.
const CasesDir = "testdata"

// InputFence is the fence language of the program under test.
const InputFence = "piske"

// AssertionType is the fence language of an assertion.
type AssertionType string

const (
	// AssertValue compares the String form of the program's final value.
	AssertValue AssertionType = "value"
	// AssertOutput compares everything the program printed.
	AssertOutput AssertionType = "output"
	// AssertDiagnostics lists the expected diagnostic codes, one per line,
	// each optionally followed by a line:col position.
	AssertDiagnostics AssertionType = "diagnostics"
	// AssertRuntimeError holds the error code followed by a fragment of
	// the message.
	AssertRuntimeError AssertionType = "runtime-error"
	// AssertTypes lists "name: type" pairs for global symbols.
	AssertTypes AssertionType = "types"
)

var assertionTypes = map[string]AssertionType{
	string(AssertValue):        AssertValue,
	string(AssertOutput):       AssertOutput,
	string(AssertDiagnostics):  AssertDiagnostics,
	string(AssertRuntimeError): AssertRuntimeError,
	string(AssertTypes):        AssertTypes,
}

// Assertion is one assertion fence.
type Assertion struct {
	Type    AssertionType
	Content string
}

// Case is a single conformance case.
type Case struct {
	Name       string
	File       string
	Line       int
	Input      string
	Assertions []Assertion
}

// ExtractCases parses a Markdown document and returns its cases in order.
func ExtractCases(file, markdown string) ([]Case, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []Case
	var current *Case
	finish := func() error {
		if current == nil {
			return nil
		}
		if current.Input == "" {
			return fmt.Errorf("%s:%d: test '%s' has no %s fence", file, current.Line, current.Name, InputFence)
		}
		if len(current.Assertions) == 0 {
			return fmt.Errorf("%s:%d: test '%s' has no assertion fences", file, current.Line, current.Name)
		}
		cases = append(cases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{
				Name: strings.TrimPrefix(heading, "Test: "),
				File: file,
				Line: lineOf(n, source),
			}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			if lang == "" {
				return ast.WalkContinue, nil
			}
			if current == nil {
				return ast.WalkStop, fmt.Errorf("%s:%d: %s fence found outside of a test", file, line, lang)
			}
			content := fenceContent(n, source)
			if lang == InputFence {
				if current.Input != "" {
					return ast.WalkStop, fmt.Errorf("%s:%d: multiple %s fences in test '%s'", file, line, InputFence, current.Name)
				}
				current.Input = content
				return ast.WalkContinue, nil
			}
			typ, ok := assertionTypes[lang]
			if !ok {
				return ast.WalkStop, fmt.Errorf("%s:%d: unknown fence language '%s' in test '%s'", file, line, lang, current.Name)
			}
			current.Assertions = append(current.Assertions, Assertion{
				Type:    typ,
				Content: strings.TrimRight(content, "\n"),
			})
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

// LoadCases reads every .md file under dir, sorted by file name.
func LoadCases(dir string) ([]Case, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var all []Case
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		cases, err := ExtractCases(filepath.Base(path), string(data))
		if err != nil {
			return nil, err
		}
		all = append(all, cases...)
	}
	return all, nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based line of the node's first content line.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")) + 1
}
