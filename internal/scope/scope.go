// Package scope builds, per lexical scope, the set of extension methods
// visible at a use site from use declarations. Scopes form a chain of
// non-owning outer pointers; resolution walks outward from the innermost
// scope, an inner binding for the same (target type, method name) pair
// shadowing an outer one while bindings for different pairs accumulate.
package scope

import (
	"fmt"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/extensions"
	"github.com/lumenlang/lumen/internal/typedesc"
)

// ImportErrorKind classifies import failures.
type ImportErrorKind int

const (
	// NotFound: the path does not resolve to a registered block/method.
	NotFound ImportErrorKind = iota
	// CrossUnitAccess: the target block belongs to a different
	// compilation unit. Extension methods are never importable across
	// that boundary.
	CrossUnitAccess
)

type ImportError struct {
	Kind ImportErrorKind
	Path string
}

func (e *ImportError) Error() string {
	switch e.Kind {
	case CrossUnitAccess:
		return fmt.Sprintf("cannot import %s: extension blocks are not visible outside their compilation unit", e.Path)
	default:
		return fmt.Sprintf("cannot resolve import %s: no such extension block or method", e.Path)
	}
}

// Binding maps an imported identifier to one extension method together
// with the target descriptor it applies to. Many bindings may reference
// the same block; the block is shared and read-only.
type Binding struct {
	Target     typedesc.Descriptor
	MethodName string
	Method     *extensions.Method
	Block      *extensions.Block
}

func (b Binding) key() string {
	return typedesc.CanonicalKey(b.Target) + "::" + b.MethodName
}

// Scope is a node in the lexical scope nesting. A scope owns its bindings
// and dies with them; the outer pointer is non-owning. The extension
// table reference is inherited from the root.
type Scope struct {
	outer    *Scope
	unit     ast.UnitID
	table    *extensions.Table
	bindings []Binding
}

// New creates the root scope of a compilation unit.
func New(table *extensions.Table, unit ast.UnitID) *Scope {
	return &Scope{table: table, unit: unit}
}

// Enclosed creates a child scope. Bindings of the parent stay visible;
// the child may shadow them pair-wise.
func (s *Scope) Enclosed() *Scope {
	return &Scope{outer: s, unit: s.unit, table: s.table}
}

// Outer returns the enclosing scope, or nil for the root.
func (s *Scope) Outer() *Scope { return s.outer }

// Unit returns the compilation unit this scope belongs to.
func (s *Scope) Unit() ast.UnitID { return s.unit }

// ImportMethod adds a fine-grained binding for
// use <module>::<type_or_alias>::<method>.
func (s *Scope) ImportMethod(name, method string) error {
	blocks, err := s.resolveBlocks(name, name+"::"+method)
	if err != nil {
		return err
	}
	found := false
	for _, b := range blocks {
		if m, ok := b.Find(method); ok {
			s.add(Binding{Target: b.Target, MethodName: method, Method: m, Block: b})
			found = true
		}
	}
	if !found {
		return &ImportError{Kind: NotFound, Path: name + "::" + method}
	}
	return nil
}

// ImportBlock adds a group binding for use <module>::<type_or_alias>,
// covering every method currently defined on the block. Blocks are
// immutable after collection, so "currently" is simply "all".
func (s *Scope) ImportBlock(name string) error {
	blocks, err := s.resolveBlocks(name, name)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		for _, m := range b.Methods {
			s.add(Binding{Target: b.Target, MethodName: m.Name, Method: m, Block: b})
		}
	}
	return nil
}

// resolveBlocks maps a type-or-alias segment to the blocks it names
// within this scope's unit. Blocks of foreign units are rejected, not
// hidden: naming one is a CrossUnitAccess error, never a silent miss.
func (s *Scope) resolveBlocks(name, path string) ([]*extensions.Block, error) {
	all := s.table.LookupByName(name)
	if len(all) == 0 {
		return nil, &ImportError{Kind: NotFound, Path: path}
	}
	var local []*extensions.Block
	for _, b := range all {
		if b.Unit == s.unit {
			local = append(local, b)
		}
	}
	if len(local) == 0 {
		return nil, &ImportError{Kind: CrossUnitAccess, Path: path}
	}
	return local, nil
}

// add inserts a binding unless this scope already holds one for the same
// underlying method. A group import and a fine-grained import of the same
// method therefore coexist as one binding; redundant imports are not
// errors. Identity of the method, not its (target, method-name) key,
// decides redundancy: two blocks targeting alpha-equivalent bare type
// parameters share a key but are distinct candidates and must both stay
// visible for the call site to report them as ambiguous.
func (s *Scope) add(b Binding) {
	for i, existing := range s.bindings {
		if existing.Method == b.Method {
			s.bindings[i] = b
			return
		}
	}
	s.bindings = append(s.bindings, b)
}

// VisibleBindings merges bindings from this scope and all enclosing
// scopes. For each (target, method) pair the innermost scope declaring it
// owns it: every binding of that scope for the pair is visible, every
// outer binding for it is shadowed. Distinct pairs accumulate. The
// returned order is deterministic: outer-before-inner insertion order,
// which the resolution engine re-sorts by block declaration order anyway.
func (s *Scope) VisibleBindings() []Binding {
	owner := make(map[string]*Scope)
	for sc := s; sc != nil; sc = sc.outer {
		for _, b := range sc.bindings {
			key := b.key()
			if _, claimed := owner[key]; !claimed {
				owner[key] = sc
			}
		}
	}
	var out []Binding
	s.collect(&out, owner)
	return out
}

func (s *Scope) collect(out *[]Binding, owner map[string]*Scope) {
	if s.outer != nil {
		s.outer.collect(out, owner)
	}
	for _, b := range s.bindings {
		if owner[b.key()] == s {
			*out = append(*out, b)
		}
	}
}

// BlockInScope reports whether any binding of this scope chain comes from
// the given block. The function-call form requires this: an extension
// method is never callable, in either form, without an import.
func (s *Scope) BlockInScope(b *extensions.Block) bool {
	for _, binding := range s.VisibleBindings() {
		if binding.Block == b {
			return true
		}
	}
	return false
}
