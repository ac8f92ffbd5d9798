// Package fixture loads conformance corpora for the resolution engine.
//
// A corpus is a txtar archive; every file is one compilation unit written
// in a compact declaration syntax (not the language grammar — a harness
// convenience that stands in for the external parser):
//
//	extension<T: Order> Vec<T> as VecExt {
//	    fn isNotEmpty(self) -> Bool
//	}
//	use std::VecExt::isNotEmpty
//	resolve Vec<Int>.isNotEmpty
//	call VecExt::isNotEmpty
//
// An optional "expect" file lists expected diagnostics, one per line:
//
//	E001 unitA:3
package fixture

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/tools/txtar"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/pipeline"
	"github.com/lumenlang/lumen/internal/token"
)

// QueryForm distinguishes the two call forms a fixture may exercise.
type QueryForm int

const (
	// ByReceiver: resolve <type>.<method> — receiver-type inference form.
	ByReceiver QueryForm = iota
	// ByPath: call <block_or_alias>::<method> — free-function form.
	ByPath
)

// Query is one resolution request recorded in a unit.
type Query struct {
	Unit     ast.UnitID
	Form     QueryForm
	Receiver ast.TypeExpr // ByReceiver only; always concrete
	Path     string       // ByPath only
	Method   string
	Token    token.Token
	File     string
}

// ExpectedDiagnostic is one line of the "expect" file.
type ExpectedDiagnostic struct {
	Code string
	File string
	Line int
}

// Fixture is a parsed corpus.
type Fixture struct {
	Units   []pipeline.Unit
	Queries []Query
	Expect  []ExpectedDiagnostic
}

// Load reads and parses a txtar corpus from disk.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return Parse(data)
}

// Parse parses a txtar corpus.
func Parse(data []byte) (*Fixture, error) {
	archive := txtar.Parse(data)
	fx := &Fixture{}
	for _, file := range archive.Files {
		name := strings.TrimSpace(file.Name)
		if name == "expect" {
			expect, err := parseExpect(string(file.Data))
			if err != nil {
				return nil, err
			}
			fx.Expect = expect
			continue
		}
		unit, queries, err := parseUnit(name, string(file.Data))
		if err != nil {
			return nil, err
		}
		fx.Units = append(fx.Units, unit)
		fx.Queries = append(fx.Queries, queries...)
	}
	return fx, nil
}

func parseExpect(body string) ([]ExpectedDiagnostic, error) {
	var out []ExpectedDiagnostic
	for i, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("expect line %d: want \"CODE file:line\", got %q", i+1, line)
		}
		loc := strings.SplitN(fields[1], ":", 2)
		if len(loc) != 2 {
			return nil, fmt.Errorf("expect line %d: bad location %q", i+1, fields[1])
		}
		lineNo, err := strconv.Atoi(loc[1])
		if err != nil {
			return nil, fmt.Errorf("expect line %d: bad line number %q", i+1, loc[1])
		}
		out = append(out, ExpectedDiagnostic{Code: fields[0], File: loc[0], Line: lineNo})
	}
	return out, nil
}

type unitParser struct {
	unit  ast.UnitID
	file  string
	lines []string
	at    int
}

func parseUnit(name, body string) (pipeline.Unit, []Query, error) {
	p := &unitParser{unit: ast.UnitID(name), file: name, lines: strings.Split(body, "\n")}
	unit := pipeline.Unit{ID: p.unit}
	var queries []Query

	for p.at < len(p.lines) {
		lineNo := p.at + 1
		line := strings.TrimSpace(p.lines[p.at])
		p.at++

		switch {
		case line == "" || strings.HasPrefix(line, "//"):
		case strings.HasPrefix(line, "extension"):
			decl, err := p.parseExtension(line, lineNo)
			if err != nil {
				return unit, nil, err
			}
			unit.Decls = append(unit.Decls, decl)
		case strings.HasPrefix(line, "use "):
			decl, err := p.parseUse(line, lineNo)
			if err != nil {
				return unit, nil, err
			}
			unit.Decls = append(unit.Decls, decl)
		case strings.HasPrefix(line, "resolve "):
			q, err := p.parseResolve(line, lineNo)
			if err != nil {
				return unit, nil, err
			}
			queries = append(queries, q)
		case strings.HasPrefix(line, "call "):
			q, err := p.parseCall(line, lineNo)
			if err != nil {
				return unit, nil, err
			}
			queries = append(queries, q)
		default:
			return unit, nil, p.errf(lineNo, "unrecognized line %q", line)
		}
	}
	return unit, queries, nil
}

func (p *unitParser) errf(line int, format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", p.file, line, fmt.Sprintf(format, args...))
}

// parseExtension handles both single-line and multi-line block bodies.
func (p *unitParser) parseExtension(line string, lineNo int) (*ast.ExtensionDecl, error) {
	decl := &ast.ExtensionDecl{
		Token:   token.At(lineNo, 1, "extension"),
		File:    p.file,
		OwnUnit: p.unit,
	}

	rest := strings.TrimPrefix(line, "extension")

	// Generics clause: extension<T: Eq + Order, U> ...
	if strings.HasPrefix(rest, "<") {
		end := strings.Index(rest, ">")
		if end < 0 {
			return nil, p.errf(lineNo, "unterminated generics clause")
		}
		generics, err := parseGenerics(rest[1:end])
		if err != nil {
			return nil, p.errf(lineNo, "%v", err)
		}
		decl.Generics = generics
		rest = rest[end+1:]
	}
	rest = strings.TrimSpace(rest)

	open := strings.Index(rest, "{")
	header := rest
	var inline string
	if open >= 0 {
		header = strings.TrimSpace(rest[:open])
		inline = strings.TrimSpace(rest[open+1:])
	}

	// Optional alias: <type> as <Name>
	if idx := strings.LastIndex(header, " as "); idx >= 0 {
		decl.Alias = strings.TrimSpace(header[idx+4:])
		header = strings.TrimSpace(header[:idx])
	}

	params := make(map[string]bool, len(decl.Generics))
	for _, g := range decl.Generics {
		params[g.Name] = true
	}
	target, err := ParseTypeExpr(header, params)
	if err != nil {
		return nil, p.errf(lineNo, "target type: %v", err)
	}
	decl.Target = target

	if open < 0 {
		return decl, nil // headerless block: no methods
	}

	// Body: either the remainder of this line up to '}', or the
	// following lines until a lone '}'.
	if closing := strings.Index(inline, "}"); closing >= 0 {
		for _, stmt := range strings.Split(inline[:closing], ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			m, err := parseMethod(stmt, lineNo, params)
			if err != nil {
				return nil, p.errf(lineNo, "%v", err)
			}
			decl.Methods = append(decl.Methods, m)
		}
		return decl, nil
	}

	for p.at < len(p.lines) {
		bodyLineNo := p.at + 1
		bodyLine := strings.TrimSpace(p.lines[p.at])
		p.at++
		if bodyLine == "}" {
			return decl, nil
		}
		if bodyLine == "" || strings.HasPrefix(bodyLine, "//") {
			continue
		}
		m, err := parseMethod(bodyLine, bodyLineNo, params)
		if err != nil {
			return nil, p.errf(bodyLineNo, "%v", err)
		}
		decl.Methods = append(decl.Methods, m)
	}
	return nil, p.errf(lineNo, "unterminated extension block")
}

func parseGenerics(clause string) ([]ast.GenericParam, error) {
	var out []ast.GenericParam
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		g := ast.GenericParam{Name: part}
		if idx := strings.Index(part, ":"); idx >= 0 {
			g.Name = strings.TrimSpace(part[:idx])
			for _, bound := range strings.Split(part[idx+1:], "+") {
				bound = strings.TrimSpace(bound)
				if bound == "" {
					return nil, fmt.Errorf("empty bound in generics clause %q", clause)
				}
				g.Bounds = append(g.Bounds, bound)
			}
		}
		if g.Name == "" {
			return nil, fmt.Errorf("empty type parameter in generics clause %q", clause)
		}
		out = append(out, g)
	}
	return out, nil
}

// parseMethod parses "fn name(self[, type]...) [-> type]" with an
// optional "pub " prefix.
func parseMethod(stmt string, lineNo int, params map[string]bool) (*ast.MethodDecl, error) {
	m := &ast.MethodDecl{Token: token.At(lineNo, 1, "fn")}
	if strings.HasPrefix(stmt, "pub ") {
		m.Public = true
		stmt = strings.TrimSpace(strings.TrimPrefix(stmt, "pub "))
	}
	if !strings.HasPrefix(stmt, "fn ") {
		return nil, fmt.Errorf("expected method declaration, got %q", stmt)
	}
	stmt = strings.TrimSpace(strings.TrimPrefix(stmt, "fn "))

	open := strings.Index(stmt, "(")
	closing := matchingParen(stmt, open)
	if open <= 0 || closing < 0 {
		return nil, fmt.Errorf("malformed method %q", stmt)
	}
	m.Name = strings.TrimSpace(stmt[:open])

	args := splitTopLevel(stmt[open+1 : closing])
	for i, arg := range args {
		arg = strings.TrimSpace(arg)
		if i == 0 && (arg == "self" || arg == "&self" || arg == "&mut self") {
			m.HasReceiver = true
			continue
		}
		t, err := ParseTypeExpr(arg, params)
		if err != nil {
			return nil, fmt.Errorf("parameter %d of %s: %v", i, m.Name, err)
		}
		m.Params = append(m.Params, t)
	}

	tail := strings.TrimSpace(stmt[closing+1:])
	if strings.HasPrefix(tail, "->") {
		t, err := ParseTypeExpr(strings.TrimSpace(tail[2:]), params)
		if err != nil {
			return nil, fmt.Errorf("result of %s: %v", m.Name, err)
		}
		m.Result = t
	} else if tail != "" {
		return nil, fmt.Errorf("trailing junk after method %s: %q", m.Name, tail)
	}
	return m, nil
}

// matchingParen returns the index of the ')' closing the '(' at open, or
// -1. Result types may themselves contain parentheses, so a depth scan is
// needed rather than LastIndex.
func matchingParen(s string, open int) int {
	if open < 0 || open >= len(s) || s[open] != '(' {
		return -1
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseUse handles "use <module>::<type_or_alias>[::<method>]".
func (p *unitParser) parseUse(line string, lineNo int) (*ast.UseDecl, error) {
	path := strings.TrimSpace(strings.TrimPrefix(line, "use "))
	segments := strings.Split(path, "::")
	if len(segments) < 2 {
		return nil, p.errf(lineNo, "use path needs at least <module>::<name>, got %q", path)
	}
	decl := &ast.UseDecl{
		Token:   token.At(lineNo, 1, "use"),
		File:    p.file,
		OwnUnit: p.unit,
	}
	last := strings.TrimSpace(segments[len(segments)-1])
	// A lowercase trailing segment is a method import; type names and
	// aliases are capitalized in the corpus.
	if len(segments) >= 3 && last != "" && last[0] >= 'a' && last[0] <= 'z' {
		decl.Kind = ast.UseMethod
		decl.Method = last
		decl.Name = strings.TrimSpace(segments[len(segments)-2])
		decl.Module = strings.Join(segments[:len(segments)-2], "::")
	} else {
		decl.Kind = ast.UseBlock
		decl.Name = last
		decl.Module = strings.Join(segments[:len(segments)-1], "::")
	}
	if decl.Name == "" {
		return nil, p.errf(lineNo, "empty block name in use path %q", path)
	}
	return decl, nil
}

// parseResolve handles "resolve <type>.<method>".
func (p *unitParser) parseResolve(line string, lineNo int) (Query, error) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "resolve "))
	dot := strings.LastIndex(body, ".")
	if dot <= 0 || dot+1 >= len(body) {
		return Query{}, p.errf(lineNo, "resolve wants <type>.<method>, got %q", body)
	}
	recv, err := ParseTypeExpr(strings.TrimSpace(body[:dot]), nil)
	if err != nil {
		return Query{}, p.errf(lineNo, "receiver type: %v", err)
	}
	return Query{
		Unit:     p.unit,
		Form:     ByReceiver,
		Receiver: recv,
		Method:   strings.TrimSpace(body[dot+1:]),
		Token:    token.At(lineNo, 1, "resolve"),
		File:     p.file,
	}, nil
}

// parseCall handles "call <block_or_alias>::<method>".
func (p *unitParser) parseCall(line string, lineNo int) (Query, error) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "call "))
	idx := strings.LastIndex(body, "::")
	if idx <= 0 || idx+2 >= len(body) {
		return Query{}, p.errf(lineNo, "call wants <block>::<method>, got %q", body)
	}
	return Query{
		Unit:   p.unit,
		Form:   ByPath,
		Path:   body,
		Method: body[idx+2:],
		Token:  token.At(lineNo, 1, "call"),
		File:   p.file,
	}, nil
}
