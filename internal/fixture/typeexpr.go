package fixture

import (
	"fmt"
	"strings"

	"github.com/lumenlang/lumen/internal/ast"
)

// ParseTypeExpr parses the corpus type syntax:
//
//	Vec<Int>   std::Map<K, V>   []T   (Int, String)   &mut T   &Vec<Int>
//
// Names listed in params parse as type parameters; everything else is
// nominal.
func ParseTypeExpr(s string, params map[string]bool) (ast.TypeExpr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	switch {
	case strings.HasPrefix(s, "&mut "):
		inner, err := ParseTypeExpr(s[len("&mut "):], params)
		if err != nil {
			return nil, err
		}
		return &ast.RefType{Mutable: true, Inner: inner}, nil
	case strings.HasPrefix(s, "&"):
		inner, err := ParseTypeExpr(s[1:], params)
		if err != nil {
			return nil, err
		}
		return &ast.RefType{Inner: inner}, nil
	case strings.HasPrefix(s, "[]"):
		elem, err := ParseTypeExpr(s[2:], params)
		if err != nil {
			return nil, err
		}
		return &ast.SliceType{Elem: elem}, nil
	case strings.HasPrefix(s, "("):
		if !strings.HasSuffix(s, ")") {
			return nil, fmt.Errorf("unterminated tuple %q", s)
		}
		elems := splitTopLevel(s[1 : len(s)-1])
		// Element types are parsed for validation but only the arity
		// participates in matching.
		for _, e := range elems {
			if strings.TrimSpace(e) == "" {
				return nil, fmt.Errorf("empty tuple element in %q", s)
			}
			if _, err := ParseTypeExpr(e, params); err != nil {
				return nil, err
			}
		}
		return &ast.TupleType{Arity: len(elems)}, nil
	}

	// Nominal or parameter: Path or Path<args>.
	open := strings.Index(s, "<")
	if open < 0 {
		if params[s] {
			return &ast.ParamType{Name: s}, nil
		}
		if !validPath(s) {
			return nil, fmt.Errorf("malformed type name %q", s)
		}
		return &ast.NamedType{Path: s}, nil
	}

	if !strings.HasSuffix(s, ">") {
		return nil, fmt.Errorf("unterminated generic arguments in %q", s)
	}
	path := strings.TrimSpace(s[:open])
	if params[path] {
		return nil, fmt.Errorf("type parameter %q cannot take arguments", path)
	}
	if !validPath(path) {
		return nil, fmt.Errorf("malformed type name %q", path)
	}
	named := &ast.NamedType{Path: path}
	for _, arg := range splitTopLevel(s[open+1 : len(s)-1]) {
		t, err := ParseTypeExpr(arg, params)
		if err != nil {
			return nil, err
		}
		named.Args = append(named.Args, t)
	}
	if len(named.Args) == 0 {
		return nil, fmt.Errorf("empty generic argument list in %q", s)
	}
	return named, nil
}

// splitTopLevel splits on commas that are not nested inside <>, () or [].
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(s[start:]) != "" || len(out) > 0 {
		out = append(out, s[start:])
	}
	return out
}

func validPath(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, "::") {
		if seg == "" {
			return false
		}
		for i, r := range seg {
			alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			digit := r >= '0' && r <= '9'
			if !alpha && !(digit && i > 0) {
				return false
			}
		}
	}
	return true
}
