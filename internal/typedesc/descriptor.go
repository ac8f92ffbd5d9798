// Package typedesc normalizes receiver types into comparable descriptors.
//
// A Descriptor is the canonical representation of a type for extension
// matching: nominal types with their generic arguments, slices, tuples,
// bare type parameters, and references. Two descriptors are considered
// equal exactly when they would accept the same set of concrete receiver
// types under unification.
package typedesc

import (
	"fmt"
	"sort"
	"strings"
)

// Descriptor is the interface for all type descriptors.
type Descriptor interface {
	String() string
	Apply(Subst) Descriptor
	FreeParams() []Param
}

// Subst maps type-parameter names to descriptors.
type Subst map[string]Descriptor

// Compose combines two substitutions, applying s2 to the range of s1.
func (s1 Subst) Compose(s2 Subst) Subst {
	out := Subst{}
	for k, v := range s2 {
		out[k] = v
	}
	for k, v := range s1 {
		out[k] = v.Apply(s2)
	}
	return out
}

// Nominal is a named type, possibly with generic arguments:
// Vec<Int>, std::Map<K, V>, Bool.
type Nominal struct {
	Path string
	Args []Descriptor
}

func (n Nominal) Arity() int { return len(n.Args) }

func (n Nominal) String() string {
	if len(n.Args) == 0 {
		return n.Path
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", n.Path, strings.Join(args, ", "))
}

func (n Nominal) Apply(s Subst) Descriptor {
	if len(n.Args) == 0 {
		return n
	}
	args := make([]Descriptor, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.Apply(s)
	}
	return Nominal{Path: n.Path, Args: args}
}

func (n Nominal) FreeParams() []Param {
	var params []Param
	for _, a := range n.Args {
		params = append(params, a.FreeParams()...)
	}
	return uniqueParams(params)
}

// Slice is the builtin slice shape []T.
type Slice struct {
	Elem Descriptor
}

func (sl Slice) String() string { return "[]" + sl.Elem.String() }

func (sl Slice) Apply(s Subst) Descriptor {
	return Slice{Elem: sl.Elem.Apply(s)}
}

func (sl Slice) FreeParams() []Param { return sl.Elem.FreeParams() }

// Tuple is the builtin tuple shape. Only the arity participates in
// matching: an extension on 2-tuples applies to every pair regardless of
// element types.
type Tuple struct {
	Arity int
}

func (t Tuple) String() string {
	slots := make([]string, t.Arity)
	for i := range slots {
		slots[i] = "_"
	}
	return fmt.Sprintf("(%s)", strings.Join(slots, ", "))
}

func (t Tuple) Apply(Subst) Descriptor { return t }

func (t Tuple) FreeParams() []Param { return nil }

// Param is a bare type parameter with its trait bounds. A Param unifies
// with any descriptor whose type satisfies every bound.
type Param struct {
	Name   string
	Bounds []string
}

func (p Param) String() string {
	if len(p.Bounds) == 0 {
		return p.Name
	}
	return fmt.Sprintf("%s: %s", p.Name, strings.Join(sortedBounds(p.Bounds), " + "))
}

func (p Param) Apply(s Subst) Descriptor {
	if replacement, ok := s[p.Name]; ok {
		// Direct self-reference stays as-is.
		if rp, isParam := replacement.(Param); isParam && rp.Name == p.Name {
			return p
		}
		return replacement
	}
	return p
}

func (p Param) FreeParams() []Param { return []Param{p} }

// Ref is a reference type: &T or &mut T.
type Ref struct {
	Mutable bool
	Inner   Descriptor
}

func (r Ref) String() string {
	if r.Mutable {
		return "&mut " + r.Inner.String()
	}
	return "&" + r.Inner.String()
}

func (r Ref) Apply(s Subst) Descriptor {
	return Ref{Mutable: r.Mutable, Inner: r.Inner.Apply(s)}
}

func (r Ref) FreeParams() []Param { return r.Inner.FreeParams() }

// IsGeneric reports whether the descriptor has any free type parameter.
func IsGeneric(d Descriptor) bool {
	return len(d.FreeParams()) > 0
}

// Nameable reports whether the descriptor can be referenced by a type
// path in an import. Slices, tuples and bare parameters have no nameable
// identifier and require an alias on the declaring block.
func Nameable(d Descriptor) bool {
	_, ok := d.(Nominal)
	return ok
}

// RenameParams rewrites every free type-parameter name with a suffix so
// descriptors from different declarations never collide during a
// unification check.
func RenameParams(d Descriptor, suffix string) Descriptor {
	subst := make(Subst)
	for _, p := range d.FreeParams() {
		subst[p.Name] = Param{Name: p.Name + "_" + suffix, Bounds: p.Bounds}
	}
	return d.Apply(subst)
}

func sortedBounds(bounds []string) []string {
	out := append([]string(nil), bounds...)
	sort.Strings(out)
	return out
}

func uniqueParams(params []Param) []Param {
	var unique []Param
	seen := map[string]bool{}
	for _, p := range params {
		if !seen[p.Name] {
			seen[p.Name] = true
			unique = append(unique, p)
		}
	}
	return unique
}
