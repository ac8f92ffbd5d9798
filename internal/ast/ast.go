package ast

import (
	"github.com/lumenlang/lumen/internal/token"
)

// UnitID identifies a compilation unit (a crate, in surface terms).
// Extension blocks are never importable across this boundary.
type UnitID string

// TokenProvider is implemented by any item that can report its primary
// token for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Decl is a parsed top-level item delivered by the parser. This subsystem
// only ever sees the two item kinds it owns: extension blocks and use
// declarations.
type Decl interface {
	TokenProvider
	declNode()
	Unit() UnitID
}

// ExtensionDecl is a parsed extension block:
//
//	impl <generics> extern <type> [as <alias>] { methods }
type ExtensionDecl struct {
	Token    token.Token // The 'impl' token
	File     string
	OwnUnit  UnitID
	Generics []GenericParam // declared type parameters, possibly empty
	Target   TypeExpr
	Alias    string // "" when the target is nameable by its own path
	Methods  []*MethodDecl
}

func (d *ExtensionDecl) declNode()             {}
func (d *ExtensionDecl) Unit() UnitID          { return d.OwnUnit }
func (d *ExtensionDecl) GetToken() token.Token { return d.Token }

// GenericParam declares one type parameter of an extension block together
// with its trait bounds.
type GenericParam struct {
	Name   string
	Bounds []string
}

// MethodDecl is one method of an extension block. Extension methods always
// take a receiver; associated functions are not part of the mechanism.
type MethodDecl struct {
	Token       token.Token
	Name        string
	HasReceiver bool
	Params      []TypeExpr // excluding the receiver
	Result      TypeExpr   // nil for no return value
	Public      bool
	// BodyRef is an opaque handle into the parser's body storage; this
	// subsystem never looks inside method bodies.
	BodyRef int
}

func (d *MethodDecl) GetToken() token.Token { return d.Token }

// UseKind distinguishes the two import forms.
type UseKind int

const (
	// UseMethod: use <path>::<type_or_alias>::<method>
	UseMethod UseKind = iota
	// UseBlock: use <path>::<type_or_alias>
	UseBlock
)

// UseDecl is a parsed use declaration targeting an extension block or one
// of its methods.
type UseDecl struct {
	Token   token.Token // The 'use' token
	File    string
	OwnUnit UnitID
	Kind    UseKind
	// Module is the path prefix up to the block name. Resolution of the
	// prefix itself belongs to the module system; this subsystem only
	// checks the trailing block/method segments.
	Module string
	// Name is the type name or alias segment.
	Name string
	// Method is the trailing method segment for UseMethod imports.
	Method string
}

func (d *UseDecl) declNode()             {}
func (d *UseDecl) Unit() UnitID          { return d.OwnUnit }
func (d *UseDecl) GetToken() token.Token { return d.Token }

// TypeExpr is the parsed form of a receiver/target type, before interning.
type TypeExpr interface {
	typeExprNode()
}

// NamedType is a (possibly generic) nominal type: Vec, Vec<T>, std::Map<K, V>.
type NamedType struct {
	Path string
	Args []TypeExpr
}

// SliceType is the builtin slice shape: []T.
type SliceType struct {
	Elem TypeExpr
}

// TupleType is the builtin tuple shape. Only the arity takes part in
// matching; element types do not discriminate extension targets.
type TupleType struct {
	Arity int
}

// ParamType references a type parameter declared in the enclosing block's
// generics clause.
type ParamType struct {
	Name string
}

// RefType is a reference: &T or &mut T.
type RefType struct {
	Mutable bool
	Inner   TypeExpr
}

func (*NamedType) typeExprNode() {}
func (*SliceType) typeExprNode() {}
func (*TupleType) typeExprNode() {}
func (*ParamType) typeExprNode() {}
func (*RefType) typeExprNode()   {}
