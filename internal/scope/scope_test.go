package scope

import (
	"testing"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/extensions"
	"github.com/lumenlang/lumen/internal/typedesc"
)

func buildTable(t *testing.T, blocks ...*extensions.Block) *extensions.Table {
	t.Helper()
	table := extensions.NewTable(nil)
	for _, b := range blocks {
		if err := table.Register(b); err != nil {
			t.Fatalf("Register(%s) failed: %v", b.DisplayName(), err)
		}
	}
	return table
}

func block(unit, alias string, target typedesc.Descriptor, methods ...string) *extensions.Block {
	b := &extensions.Block{Target: target, Alias: alias, Unit: ast.UnitID(unit)}
	for _, name := range methods {
		b.Methods = append(b.Methods, &extensions.Method{Name: name})
	}
	return b
}

func vecT() typedesc.Descriptor {
	return typedesc.Nominal{Path: "Vec", Args: []typedesc.Descriptor{typedesc.Param{Name: "T"}}}
}

func expectImportError(t *testing.T, err error, kind ImportErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected import error of kind %d, got nil", kind)
	}
	imp, ok := err.(*ImportError)
	if !ok {
		t.Fatalf("expected *ImportError, got %T: %v", err, err)
	}
	if imp.Kind != kind {
		t.Fatalf("import error kind = %d, want %d (%s)", imp.Kind, kind, imp)
	}
}

func TestImportBlock(t *testing.T) {
	table := buildTable(t, block("app", "VecExt", vecT(), "len", "isNotEmpty"))
	sc := New(table, "app")

	if err := sc.ImportBlock("VecExt"); err != nil {
		t.Fatalf("ImportBlock failed: %v", err)
	}
	if got := len(sc.VisibleBindings()); got != 2 {
		t.Errorf("group import made %d bindings, want 2", got)
	}
}

func TestImportMethod(t *testing.T) {
	table := buildTable(t, block("app", "VecExt", vecT(), "len", "isNotEmpty"))
	sc := New(table, "app")

	if err := sc.ImportMethod("VecExt", "len"); err != nil {
		t.Fatalf("ImportMethod failed: %v", err)
	}
	bindings := sc.VisibleBindings()
	if len(bindings) != 1 || bindings[0].MethodName != "len" {
		t.Fatalf("fine-grained import bound %d methods", len(bindings))
	}

	err := sc.ImportMethod("VecExt", "missing")
	expectImportError(t, err, NotFound)
}

func TestImportNotFound(t *testing.T) {
	sc := New(buildTable(t), "app")
	expectImportError(t, sc.ImportBlock("Nothing"), NotFound)
}

func TestImportCrossUnit(t *testing.T) {
	table := buildTable(t, block("std", "VecExt", vecT(), "len"))
	sc := New(table, "app")

	// The block exists but belongs to another unit: an explicit error,
	// never a silent miss.
	expectImportError(t, sc.ImportBlock("VecExt"), CrossUnitAccess)
	expectImportError(t, sc.ImportMethod("VecExt", "len"), CrossUnitAccess)

	// From the owning unit the same import succeeds.
	own := New(table, "std")
	if err := own.ImportBlock("VecExt"); err != nil {
		t.Errorf("owning unit import failed: %v", err)
	}
}

func TestImportByTypePath(t *testing.T) {
	table := buildTable(t,
		block("app", "", typedesc.Nominal{Path: "Foo"}, "a"),
		block("app", "", typedesc.Nominal{Path: "Foo"}, "b"),
	)
	sc := New(table, "app")

	// A type path names every block extending that type.
	if err := sc.ImportBlock("Foo"); err != nil {
		t.Fatalf("ImportBlock(Foo) failed: %v", err)
	}
	if got := len(sc.VisibleBindings()); got != 2 {
		t.Errorf("type-path import bound %d methods, want 2", got)
	}
}

func TestGroupAndFineImportsCoexist(t *testing.T) {
	table := buildTable(t, block("app", "VecExt", vecT(), "len", "isNotEmpty"))
	sc := New(table, "app")

	if err := sc.ImportBlock("VecExt"); err != nil {
		t.Fatal(err)
	}
	if err := sc.ImportMethod("VecExt", "len"); err != nil {
		t.Fatal(err)
	}
	// Redundant imports collapse to one binding per (target, method).
	if got := len(sc.VisibleBindings()); got != 2 {
		t.Errorf("redundant import duplicated bindings: %d, want 2", got)
	}
}

func TestInnerScopeShadowsSamePair(t *testing.T) {
	// Declaration-time conflict checking guarantees one unit never holds
	// two same-named methods on one target, so a shadowing pair is always
	// a re-import of the same method. The inner binding supersedes the
	// outer one instead of duplicating it.
	table := buildTable(t, block("app", "VecExt", vecT(), "len"))

	outer := New(table, "app")
	if err := outer.ImportBlock("VecExt"); err != nil {
		t.Fatal(err)
	}
	inner := outer.Enclosed()
	if err := inner.ImportMethod("VecExt", "len"); err != nil {
		t.Fatal(err)
	}

	if got := len(inner.VisibleBindings()); got != 1 {
		t.Fatalf("re-imported pair must shadow, got %d bindings", got)
	}
	if got := len(outer.VisibleBindings()); got != 1 {
		t.Errorf("outer scope bindings = %d, want 1", got)
	}
}

func TestBareParamSiblingsAccumulate(t *testing.T) {
	// Two blocks targeting bare type parameters with the same bound set
	// share a canonical (target, method) key, yet they are distinct
	// candidates: both bindings must survive in one scope so the call
	// site can report the ambiguity.
	extA := block("app", "ExtA", typedesc.Param{Name: "T"}, "sum")
	extB := block("app", "ExtB", typedesc.Param{Name: "U"}, "sum")
	table := buildTable(t, extA, extB)

	sc := New(table, "app")
	if err := sc.ImportBlock("ExtA"); err != nil {
		t.Fatal(err)
	}
	if err := sc.ImportBlock("ExtB"); err != nil {
		t.Fatal(err)
	}
	bindings := sc.VisibleBindings()
	if len(bindings) != 2 {
		t.Fatalf("bare-param sibling bindings = %d, want 2", len(bindings))
	}
	if bindings[0].Block == bindings[1].Block {
		t.Errorf("both bindings come from %s, want one per block", bindings[0].Block.DisplayName())
	}

	// An inner fine-grained import of one block owns the shared pair and
	// shadows both outer bindings, disambiguating the call site.
	inner := sc.Enclosed()
	if err := inner.ImportMethod("ExtA", "sum"); err != nil {
		t.Fatal(err)
	}
	narrowed := inner.VisibleBindings()
	if len(narrowed) != 1 || narrowed[0].Block != extA {
		t.Errorf("inner import must shadow the shared pair, got %d bindings", len(narrowed))
	}
}

func TestDistinctPairsAccumulate(t *testing.T) {
	vecInt := typedesc.Nominal{Path: "Vec", Args: []typedesc.Descriptor{typedesc.Nominal{Path: "Int"}}}
	table := buildTable(t,
		block("app", "ExtA", vecInt, "sum"),
		block("app", "ExtB", vecInt, "len"),
	)

	outer := New(table, "app")
	if err := outer.ImportBlock("ExtA"); err != nil {
		t.Fatal(err)
	}
	inner := outer.Enclosed()
	if err := inner.ImportBlock("ExtB"); err != nil {
		t.Fatal(err)
	}

	if got := len(inner.VisibleBindings()); got != 2 {
		t.Errorf("distinct pairs must accumulate across scopes, got %d", got)
	}
}

func TestBlockInScope(t *testing.T) {
	b := block("app", "VecExt", vecT(), "len")
	other := block("app", "Other", typedesc.Nominal{Path: "Foo"}, "x")
	table := buildTable(t, b, other)

	sc := New(table, "app")
	if err := sc.ImportBlock("VecExt"); err != nil {
		t.Fatal(err)
	}
	if !sc.BlockInScope(b) {
		t.Errorf("imported block should be in scope")
	}
	if sc.BlockInScope(other) {
		t.Errorf("unimported block should not be in scope")
	}
}
