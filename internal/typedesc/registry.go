package typedesc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lumenlang/lumen/internal/ast"
)

// Registry interns type expressions into shared descriptors. Interning is
// keyed by a canonical form that erases parameter names, so Vec<T> and
// Vec<U> with identical bounds intern to the same descriptor identity.
//
// Malformed type expressions are rejected at the parser boundary; seeing
// one here is an internal invariant violation and panics rather than
// producing a user diagnostic.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Descriptor)}
}

// Intern converts a parsed type expression into a canonical descriptor.
// The generics list supplies trait bounds for ParamType references.
func (r *Registry) Intern(expr ast.TypeExpr, generics []ast.GenericParam) Descriptor {
	bounds := make(map[string][]string, len(generics))
	for _, g := range generics {
		bounds[g.Name] = g.Bounds
	}
	d := fromExpr(expr, bounds)
	return r.canonical(d)
}

// InternDescriptor interns an already-built descriptor, returning the
// shared instance for its canonical key.
func (r *Registry) InternDescriptor(d Descriptor) Descriptor {
	return r.canonical(d)
}

func (r *Registry) canonical(d Descriptor) Descriptor {
	key := CanonicalKey(d)

	r.mu.RLock()
	cached, ok := r.byKey[key]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.byKey[key]; ok {
		return cached
	}
	r.byKey[key] = d
	return d
}

// Len reports the number of distinct interned descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

func fromExpr(expr ast.TypeExpr, bounds map[string][]string) Descriptor {
	switch e := expr.(type) {
	case *ast.NamedType:
		if e.Path == "" {
			panic("typedesc: named type with empty path")
		}
		args := make([]Descriptor, len(e.Args))
		for i, a := range e.Args {
			args[i] = fromExpr(a, bounds)
		}
		return Nominal{Path: e.Path, Args: args}
	case *ast.SliceType:
		return Slice{Elem: fromExpr(e.Elem, bounds)}
	case *ast.TupleType:
		if e.Arity < 0 {
			panic(fmt.Sprintf("typedesc: negative tuple arity %d", e.Arity))
		}
		return Tuple{Arity: e.Arity}
	case *ast.ParamType:
		b, declared := bounds[e.Name]
		if !declared {
			panic(fmt.Sprintf("typedesc: undeclared type parameter %q", e.Name))
		}
		return Param{Name: e.Name, Bounds: b}
	case *ast.RefType:
		return Ref{Mutable: e.Mutable, Inner: fromExpr(e.Inner, bounds)}
	case nil:
		panic("typedesc: nil type expression")
	default:
		panic(fmt.Sprintf("typedesc: unknown type expression %T", expr))
	}
}

// CanonicalKey renders a descriptor with parameter names normalized to
// first-occurrence indices, so alpha-equivalent descriptors share one key
// while repeated parameters (Map<K, K> vs Map<K, V>) stay distinct.
// Bounds are kept, sorted: parameters with different bound sets accept
// different receiver sets and must not be conflated.
func CanonicalKey(d Descriptor) string {
	return canonicalKey(d, map[string]int{})
}

func canonicalKey(d Descriptor, slots map[string]int) string {
	switch d := d.(type) {
	case Nominal:
		if len(d.Args) == 0 {
			return d.Path
		}
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = canonicalKey(a, slots)
		}
		return fmt.Sprintf("%s<%s>", d.Path, strings.Join(args, ", "))
	case Slice:
		return "[]" + canonicalKey(d.Elem, slots)
	case Tuple:
		return d.String()
	case Param:
		idx, seen := slots[d.Name]
		if !seen {
			idx = len(slots)
			slots[d.Name] = idx
		}
		return fmt.Sprintf("$%d{%s}", idx, strings.Join(sortedBounds(d.Bounds), "+"))
	case Ref:
		if d.Mutable {
			return "&mut " + canonicalKey(d.Inner, slots)
		}
		return "&" + canonicalKey(d.Inner, slots)
	default:
		panic(fmt.Sprintf("typedesc: unknown descriptor kind %T", d))
	}
}
