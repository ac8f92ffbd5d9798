package typedesc

import "fmt"

// BoundResolver answers whether a descriptor's type satisfies a trait
// bound. The trait subsystem provides the real implementation; a nil
// resolver treats every bound as satisfied, which is the conservative
// reading during item collection where trait facts may not be final yet.
type BoundResolver interface {
	Implements(d Descriptor, trait string) bool
}

// Unify attempts to find a substitution that makes a and b match.
func Unify(a, b Descriptor) (Subst, error) {
	return unify(a, b, nil)
}

// UnifyWithResolver unifies using a resolver for type-parameter bounds.
func UnifyWithResolver(a, b Descriptor, res BoundResolver) (Subst, error) {
	return unify(a, b, res)
}

// Unifies reports whether a and b accept a common concrete receiver.
// It is reflexive and symmetric.
func Unifies(a, b Descriptor, res BoundResolver) bool {
	_, err := unify(a, b, res)
	return err == nil
}

func unify(a, b Descriptor, res BoundResolver) (Subst, error) {
	if ap, ok := a.(Param); ok {
		return Bind(ap, b, res)
	}

	switch a := a.(type) {
	case Nominal:
		switch b := b.(type) {
		case Param:
			return Bind(b, a, res)
		case Nominal:
			if a.Path != b.Path {
				return nil, errUnifyMsg(a, b, "type path mismatch")
			}
			if len(a.Args) != len(b.Args) {
				return nil, errMismatch(fmt.Sprintf("generic arity mismatch: %d vs %d", len(a.Args), len(b.Args)))
			}
			s1 := Subst{}
			for i := range a.Args {
				arg1 := a.Args[i].Apply(s1)
				arg2 := b.Args[i].Apply(s1)
				s2, err := unify(arg1, arg2, res)
				if err != nil {
					return nil, err
				}
				s1 = s1.Compose(s2)
			}
			return s1, nil
		default:
			return nil, errUnify(a, b)
		}
	case Slice:
		switch b := b.(type) {
		case Param:
			return Bind(b, a, res)
		case Slice:
			return unify(a.Elem, b.Elem, res)
		default:
			return nil, errUnify(a, b)
		}
	case Tuple:
		switch b := b.(type) {
		case Param:
			return Bind(b, a, res)
		case Tuple:
			if a.Arity != b.Arity {
				return nil, errMismatch(fmt.Sprintf("tuple arity mismatch: %d vs %d", a.Arity, b.Arity))
			}
			return Subst{}, nil
		default:
			return nil, errUnify(a, b)
		}
	case Ref:
		switch b := b.(type) {
		case Param:
			return Bind(b, a, res)
		case Ref:
			if a.Mutable != b.Mutable {
				return nil, errMismatch("reference mutability mismatch")
			}
			return unify(a.Inner, b.Inner, res)
		default:
			return nil, errUnify(a, b)
		}
	default:
		return nil, errMismatch(fmt.Sprintf("unknown descriptor kind: %T", a))
	}
}

// Bind binds a type parameter to a descriptor, performing the occurs
// check and verifying the parameter's trait bounds.
func Bind(p Param, d Descriptor, res BoundResolver) (Subst, error) {
	if dp, ok := d.(Param); ok && dp.Name == p.Name {
		return Subst{}, nil
	}

	// Occurs check: no infinite descriptors like T = Vec<T>.
	if occursCheck(p, d) {
		return nil, errMismatch(fmt.Sprintf("infinite descriptor: %s in %s", p, d))
	}

	// Two parameters unify unconditionally; whichever concrete type is
	// eventually chosen must satisfy the union of both bound sets, and
	// that obligation belongs to the trait subsystem.
	if _, ok := d.(Param); !ok && res != nil {
		for _, bound := range p.Bounds {
			if !res.Implements(d, bound) {
				return nil, errMismatch(fmt.Sprintf("%s does not satisfy bound %s of %s", d, bound, p.Name))
			}
		}
	}

	return Subst{p.Name: d}, nil
}

func occursCheck(p Param, d Descriptor) bool {
	for _, free := range d.FreeParams() {
		if free.Name == p.Name {
			return true
		}
	}
	return false
}

func errUnify(a, b Descriptor) error {
	return fmt.Errorf("cannot unify %s with %s", a, b)
}

func errUnifyMsg(a, b Descriptor, msg string) error {
	return fmt.Errorf("%s: %s vs %s", msg, a, b)
}

func errMismatch(msg string) error {
	return fmt.Errorf("descriptor mismatch: %s", msg)
}
