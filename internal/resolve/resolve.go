// Package resolve decides, for a method-call or function-form expression,
// which definition binds. Candidates are gathered into priority tiers and
// the lowest non-empty tier wins outright: extension methods
// unconditionally outrank inherent and trait methods, so adding or
// changing inherent/trait methods on a receiver type can never change the
// meaning of code already using an extension method of the same name.
package resolve

import (
	"sort"
	"strings"

	"github.com/lumenlang/lumen/internal/extensions"
	"github.com/lumenlang/lumen/internal/scope"
	"github.com/lumenlang/lumen/internal/typedesc"
)

// Tier is a priority class in method resolution.
type Tier int

const (
	TierExtension Tier = iota
	TierInherent
	TierTrait
)

func (t Tier) String() string {
	switch t {
	case TierExtension:
		return "extension"
	case TierInherent:
		return "inherent"
	default:
		return "trait"
	}
}

// InherentSource supplies tier-1 candidates. The inherent-method table of
// the front end implements it.
type InherentSource interface {
	InherentMethods(recv typedesc.Descriptor, name string) []*extensions.Method
}

// TraitSource supplies tier-2 candidates: trait methods reachable through
// traits in scope for the receiver. The trait-resolution subsystem
// implements it, including its own ambiguity semantics; multiplicity is
// passed through here untouched.
type TraitSource interface {
	TraitMethodsInScope(recv typedesc.Descriptor, name string, sc *scope.Scope) []*extensions.Method
}

// ResolutionKind classifies the outcome of a resolution query.
type ResolutionKind int

const (
	Resolved ResolutionKind = iota
	Ambiguous
	NotFound
)

// Resolution is the result of one query. Candidates is populated for
// Ambiguous outcomes, listing every competing definition in declaration
// order so diagnostics reproduce across runs on unchanged input.
type Resolution struct {
	Kind       ResolutionKind
	Tier       Tier
	Method     *extensions.Method
	Candidates []*extensions.Method
}

// Engine answers resolution queries. It is a pure, read-only view over
// the immutable post-collection state; queries may run concurrently.
type Engine struct {
	inherent InherentSource
	traits   TraitSource
	bounds   typedesc.BoundResolver
}

func NewEngine(inherent InherentSource, traits TraitSource, bounds typedesc.BoundResolver) *Engine {
	return &Engine{inherent: inherent, traits: traits, bounds: bounds}
}

// Resolve computes the winning candidate for (receiver, name) in the
// given scope, or reports ambiguity / no candidate.
func (e *Engine) Resolve(receiver typedesc.Descriptor, name string, sc *scope.Scope) Resolution {
	if candidates := e.extensionCandidates(receiver, name, sc); len(candidates) > 0 {
		return fromTier(TierExtension, candidates)
	}
	if e.inherent != nil {
		if candidates := e.inherent.InherentMethods(receiver, name); len(candidates) > 0 {
			return fromTier(TierInherent, candidates)
		}
	}
	if e.traits != nil {
		if candidates := e.traits.TraitMethodsInScope(receiver, name, sc); len(candidates) > 0 {
			return fromTier(TierTrait, candidates)
		}
	}
	return Resolution{Kind: NotFound}
}

// extensionCandidates gathers tier 0: every visible binding whose target
// unifies with the receiver. The same method reached through both a group
// import and a fine-grained import counts once. Order follows block
// declaration order, then method order within the block.
func (e *Engine) extensionCandidates(receiver typedesc.Descriptor, name string, sc *scope.Scope) []*extensions.Method {
	if sc == nil {
		return nil
	}
	seen := make(map[*extensions.Method]bool)
	var out []*extensions.Method
	for _, binding := range sc.VisibleBindings() {
		if binding.MethodName != name {
			continue
		}
		target := typedesc.RenameParams(binding.Target, "cand")
		if !typedesc.Unifies(target, receiver, e.bounds) {
			continue
		}
		if seen[binding.Method] {
			continue
		}
		seen[binding.Method] = true
		out = append(out, binding.Method)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Block.Seq() != b.Block.Seq() {
			return a.Block.Seq() < b.Block.Seq()
		}
		return methodIndex(a) < methodIndex(b)
	})
	return out
}

func methodIndex(m *extensions.Method) int {
	for i, candidate := range m.Block.Methods {
		if candidate == m {
			return i
		}
	}
	return -1
}

func fromTier(tier Tier, candidates []*extensions.Method) Resolution {
	if len(candidates) == 1 {
		return Resolution{Kind: Resolved, Tier: tier, Method: candidates[0]}
	}
	return Resolution{Kind: Ambiguous, Tier: tier, Candidates: candidates}
}

// ResolveAsFunction resolves the free-function-call form Block::method or
// alias::method. The explicit path replaces receiver-type inference, but
// the block must still be bound in scope: an extension method is never
// callable, in either form, without an import.
func (e *Engine) ResolveAsFunction(path string, sc *scope.Scope) Resolution {
	qualifier, method, ok := splitFunctionPath(path)
	if !ok || sc == nil {
		return Resolution{Kind: NotFound}
	}

	seen := make(map[*extensions.Method]bool)
	var out []*extensions.Method
	for _, binding := range sc.VisibleBindings() {
		if binding.MethodName != method {
			continue
		}
		if binding.Block.DisplayName() != qualifier {
			continue
		}
		if seen[binding.Method] {
			continue
		}
		seen[binding.Method] = true
		out = append(out, binding.Method)
	}
	if len(out) == 0 {
		return Resolution{Kind: NotFound}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Block.Seq() < out[j].Block.Seq()
	})
	return fromTier(TierExtension, out)
}

func splitFunctionPath(path string) (qualifier, method string, ok bool) {
	idx := strings.LastIndex(path, "::")
	if idx <= 0 || idx+2 >= len(path) {
		return "", "", false
	}
	return path[:idx], path[idx+2:], true
}
