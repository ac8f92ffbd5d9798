package typedesc

import (
	"testing"

	"github.com/lumenlang/lumen/internal/ast"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name string
		a, b Descriptor
		same bool
	}{
		{
			name: "alpha-equivalent params share a key",
			a:    vecOf(Param{Name: "T", Bounds: []string{"Eq"}}),
			b:    vecOf(Param{Name: "U", Bounds: []string{"Eq"}}),
			same: true,
		},
		{
			name: "bound order does not matter",
			a:    vecOf(Param{Name: "T", Bounds: []string{"Eq", "Order"}}),
			b:    vecOf(Param{Name: "T", Bounds: []string{"Order", "Eq"}}),
			same: true,
		},
		{
			name: "different bounds stay distinct",
			a:    vecOf(Param{Name: "T", Bounds: []string{"Eq"}}),
			b:    vecOf(Param{Name: "T"}),
			same: false,
		},
		{
			name: "repeated param is not two params",
			a:    Nominal{Path: "Map", Args: []Descriptor{Param{Name: "K"}, Param{Name: "K"}}},
			b:    Nominal{Path: "Map", Args: []Descriptor{Param{Name: "K"}, Param{Name: "V"}}},
			same: false,
		},
		{
			name: "concrete types keyed by rendering",
			a:    vecOf(Nominal{Path: "Int"}),
			b:    vecOf(Nominal{Path: "Int"}),
			same: true,
		},
		{
			name: "tuples keyed by arity",
			a:    Tuple{Arity: 2},
			b:    Tuple{Arity: 3},
			same: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := CanonicalKey(tt.a), CanonicalKey(tt.b)
			if (ka == kb) != tt.same {
				t.Errorf("CanonicalKey(%s) = %q, CanonicalKey(%s) = %q, want same=%v", tt.a, ka, tt.b, kb, tt.same)
			}
		})
	}
}

func TestRegistryInterning(t *testing.T) {
	r := NewRegistry()

	generics := []ast.GenericParam{{Name: "T", Bounds: []string{"Eq"}}}
	expr := &ast.NamedType{Path: "Vec", Args: []ast.TypeExpr{&ast.ParamType{Name: "T"}}}

	d1 := r.Intern(expr, generics)
	r.Intern(expr, generics)
	if r.Len() != 1 {
		t.Fatalf("interning one expression twice left %d entries, want 1", r.Len())
	}

	// Alpha-equivalent declaration with a different parameter name
	// interns to the same entry; the first-seen spelling is kept.
	other := r.Intern(
		&ast.NamedType{Path: "Vec", Args: []ast.TypeExpr{&ast.ParamType{Name: "U"}}},
		[]ast.GenericParam{{Name: "U", Bounds: []string{"Eq"}}},
	)
	if r.Len() != 1 {
		t.Errorf("Vec<T: Eq> and Vec<U: Eq> must intern to one entry, registry has %d", r.Len())
	}
	if other.String() != d1.String() {
		t.Errorf("alpha-equivalent intern returned %s, want the cached %s", other, d1)
	}
}

func TestRegistryInternShapes(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name string
		expr ast.TypeExpr
		want string
	}{
		{"slice", &ast.SliceType{Elem: &ast.NamedType{Path: "Int"}}, "[]Int"},
		{"tuple", &ast.TupleType{Arity: 2}, "(_, _)"},
		{"ref", &ast.RefType{Mutable: true, Inner: &ast.NamedType{Path: "String"}}, "&mut String"},
		{"qualified nominal", &ast.NamedType{Path: "std::Vec", Args: []ast.TypeExpr{&ast.NamedType{Path: "Int"}}}, "std::Vec<Int>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Intern(tt.expr, nil).String(); got != tt.want {
				t.Errorf("Intern(%s) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestRegistryPanicsOnMalformedInput(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name string
		expr ast.TypeExpr
	}{
		{"nil expression", nil},
		{"empty path", &ast.NamedType{}},
		{"undeclared param", &ast.ParamType{Name: "T"}},
		{"negative arity", &ast.TupleType{Arity: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for %s", tt.name)
				}
			}()
			r.Intern(tt.expr, nil)
		})
	}
}
