// Package extensions holds the process-wide registry of declared
// extension blocks. The table is filled once during item collection and
// is read-only afterwards, so resolution queries can run concurrently
// without locking.
package extensions

import (
	"fmt"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/token"
	"github.com/lumenlang/lumen/internal/typedesc"
)

// Visibility of an extension method.
type Visibility int

const (
	Private Visibility = iota
	Public
)

// Method is one method of an extension block. The block owns its methods
// exclusively; everything referencing a method elsewhere holds a shared,
// read-only pointer.
type Method struct {
	Name       string
	Params     []typedesc.Descriptor // excluding the receiver
	Result     typedesc.Descriptor   // nil for no return value
	Visibility Visibility
	BodyRef    int
	Token      token.Token
	File       string

	// Block points back to the declaring extension block. It is nil for
	// methods supplied by the external inherent/trait collaborators,
	// which reuse this shape at the resolution boundary.
	Block *Block
}

// Origin describes where a method comes from, for diagnostics.
func (m *Method) Origin() string {
	if m.Block == nil {
		return m.Name
	}
	return fmt.Sprintf("%s::%s", m.Block.DisplayName(), m.Name)
}

// Block is a declared extension block: a target descriptor, an optional
// alias, the owning compilation unit, and an ordered method set. Blocks
// are immutable after registration.
type Block struct {
	Target  typedesc.Descriptor
	Alias   string
	Unit    ast.UnitID
	Methods []*Method
	Token   token.Token
	File    string

	// seq is the registration sequence number. Declaration order is
	// user-observable through ambiguity diagnostics, so it is preserved
	// exactly as ingested.
	seq int
}

// Seq returns the block's registration sequence number.
func (b *Block) Seq() int { return b.seq }

// DisplayName is the name the block is referred to by in diagnostics and
// function-form calls: its alias when present, the target's type path
// otherwise.
func (b *Block) DisplayName() string {
	if b.Alias != "" {
		return b.Alias
	}
	if n, ok := b.Target.(typedesc.Nominal); ok {
		return n.Path
	}
	return b.Target.String()
}

// Find returns the block's method with the given name.
func (b *Block) Find(name string) (*Method, bool) {
	for _, m := range b.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// ConflictError reports two blocks of one compilation unit declaring the
// same method name on unifiable targets. This is a declaration-time
// invariant, distinct from call-site ambiguity.
type ConflictError struct {
	MethodName string
	Existing   *Block
	New        *Block
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting extension method %q: %s and %s both apply to a common receiver",
		e.MethodName, e.Existing.Target, e.New.Target)
}

// Table is the process-wide extension block registry.
type Table struct {
	blocks []*Block
	// byAlias keeps declaration order per alias. Distinct units may reuse
	// an alias; imports are unit-local, so the reader filters by unit.
	byAlias map[string][]*Block
	bounds  typedesc.BoundResolver
}

func NewTable(bounds typedesc.BoundResolver) *Table {
	return &Table{byAlias: make(map[string][]*Block), bounds: bounds}
}

// Register adds a block to the table. It fails with *ConflictError when
// another block of the same unit declares an identically-named method on
// a unifiable target, and with a plain error for invalid alias usage.
// Cross-unit collisions are never checked: extension blocks cannot be
// referenced across unit boundaries, so they cannot collide.
//
// Registration is a check-then-insert and must stay single-writer.
func (t *Table) Register(b *Block) error {
	if b.Alias == "" && !typedesc.Nameable(b.Target) {
		return fmt.Errorf("extension block on %s has no nameable target and requires an alias", b.Target)
	}
	if b.Alias != "" {
		for _, existing := range t.byAlias[b.Alias] {
			if existing.Unit == b.Unit {
				return fmt.Errorf("alias %q already used by the extension block on %s", b.Alias, existing.Target)
			}
		}
	}

	if err := t.checkConflicts(b); err != nil {
		return err
	}

	b.seq = len(t.blocks)
	for _, m := range b.Methods {
		m.Block = b
	}
	t.blocks = append(t.blocks, b)
	if b.Alias != "" {
		t.byAlias[b.Alias] = append(t.byAlias[b.Alias], b)
	}
	return nil
}

func (t *Table) checkConflicts(b *Block) error {
	// A block whose whole target is a bare type parameter overlaps every
	// other target only possibly, depending on the receiver chosen at
	// each call site. Such pairs are left to call-site ambiguity; the
	// eager check fires on definite overlap only.
	if isBareParam(b.Target) {
		return nil
	}
	target := typedesc.RenameParams(b.Target, "new")
	for _, existing := range t.blocks {
		if existing.Unit != b.Unit || isBareParam(existing.Target) {
			continue
		}
		if !typedesc.Unifies(typedesc.RenameParams(existing.Target, "reg"), target, t.bounds) {
			continue
		}
		for _, m := range b.Methods {
			if _, clash := existing.Find(m.Name); clash {
				return &ConflictError{MethodName: m.Name, Existing: existing, New: b}
			}
		}
	}
	return nil
}

func isBareParam(d typedesc.Descriptor) bool {
	_, ok := d.(typedesc.Param)
	return ok
}

// LookupByType returns every block whose target unifies with the given
// descriptor, in declaration order.
func (t *Table) LookupByType(d typedesc.Descriptor) []*Block {
	var out []*Block
	for _, b := range t.blocks {
		if typedesc.Unifies(typedesc.RenameParams(b.Target, "tbl"), d, t.bounds) {
			out = append(out, b)
		}
	}
	return out
}

// LookupByAlias returns the first block registered under the alias, if
// any. When units reuse an alias, LookupByName filtered by unit is the
// right entry point.
func (t *Table) LookupByAlias(name string) (*Block, bool) {
	if bs := t.byAlias[name]; len(bs) > 0 {
		return bs[0], true
	}
	return nil, false
}

// LookupByTypePath returns every block whose target is a nominal type
// with the given path, in declaration order. Several blocks may extend
// the same type, as long as their method sets do not clash.
func (t *Table) LookupByTypePath(path string) []*Block {
	var out []*Block
	for _, b := range t.blocks {
		if n, ok := b.Target.(typedesc.Nominal); ok && n.Path == path {
			out = append(out, b)
		}
	}
	return out
}

// LookupByName resolves a type-or-alias segment of an import path. The
// alias namespace and the type-path namespace feed one lookup: an alias
// is just another key for the same structure.
func (t *Table) LookupByName(name string) []*Block {
	if bs := t.byAlias[name]; len(bs) > 0 {
		return bs
	}
	return t.LookupByTypePath(name)
}

// Blocks returns all registered blocks in declaration order.
func (t *Table) Blocks() []*Block {
	return t.blocks
}

// OwningUnit exposes the block's compilation unit for the advisory lint
// layer.
func (t *Table) OwningUnit(b *Block) ast.UnitID {
	return b.Unit
}
