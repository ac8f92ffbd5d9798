package queryd

import (
	"testing"

	"github.com/jhump/protoreflect/dynamic"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/diagnostics"
	"github.com/lumenlang/lumen/internal/extensions"
	"github.com/lumenlang/lumen/internal/resolve"
	"github.com/lumenlang/lumen/internal/scope"
	"github.com/lumenlang/lumen/internal/token"
	"github.com/lumenlang/lumen/internal/typedesc"
)

func testState(t *testing.T) *State {
	t.Helper()
	table := extensions.NewTable(nil)
	block := &extensions.Block{
		Target: typedesc.Nominal{Path: "Vec", Args: []typedesc.Descriptor{typedesc.Param{Name: "T"}}},
		Alias:  "VecExt",
		Unit:   ast.UnitID("app"),
		Methods: []*extensions.Method{
			{Name: "len"},
		},
	}
	if err := table.Register(block); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sc := scope.New(table, "app")
	if err := sc.ImportBlock("VecExt"); err != nil {
		t.Fatalf("ImportBlock failed: %v", err)
	}

	warn := diagnostics.NewWarning(diagnostics.ErrL001, token.At(1, 1, "impl"), "advisory")
	warn.File = "app.lum"
	return &State{
		Engine:      resolve.NewEngine(nil, nil, nil),
		Registry:    typedesc.NewRegistry(),
		Scopes:      map[ast.UnitID]*scope.Scope{"app": sc},
		Diagnostics: []*diagnostics.DiagnosticError{warn},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(testState(t))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

func TestServiceDesc(t *testing.T) {
	s := newTestServer(t)
	gd := s.serviceDesc()

	if gd.ServiceName != "lumen.resolve.v1.Resolver" {
		t.Errorf("service name = %s", gd.ServiceName)
	}
	want := map[string]bool{"Resolve": true, "ResolveFunction": true, "Diagnostics": true}
	if len(gd.Methods) != len(want) {
		t.Fatalf("service has %d methods, want %d", len(gd.Methods), len(want))
	}
	for _, m := range gd.Methods {
		if !want[m.MethodName] {
			t.Errorf("unexpected method %s", m.MethodName)
		}
	}
}

func (s *Server) call(t *testing.T, method string, fields map[string]interface{}) *dynamic.Message {
	t.Helper()
	md := s.sd.FindMethodByName(method)
	if md == nil {
		t.Fatalf("method %s missing from descriptor", method)
	}
	in := dynamic.NewMessage(md.GetInputType())
	for name, value := range fields {
		in.SetFieldByName(name, value)
	}
	out := dynamic.NewMessage(md.GetOutputType())
	if err := s.handlerFor(method)(in, out); err != nil {
		t.Fatalf("%s failed: %v", method, err)
	}
	return out
}

func TestHandleResolve(t *testing.T) {
	s := newTestServer(t)
	out := s.call(t, "Resolve", map[string]interface{}{
		"unit": "app", "receiver": "Vec<Int>", "method": "len",
	})

	if got := out.GetFieldByName("outcome"); got != "resolved" {
		t.Errorf("outcome = %v, want resolved", got)
	}
	if got := out.GetFieldByName("bound_to"); got != "VecExt::len" {
		t.Errorf("bound_to = %v", got)
	}
}

func TestHandleResolveNotFound(t *testing.T) {
	s := newTestServer(t)
	out := s.call(t, "Resolve", map[string]interface{}{
		"unit": "app", "receiver": "Bool", "method": "len",
	})
	if got := out.GetFieldByName("outcome"); got != "not_found" {
		t.Errorf("outcome = %v, want not_found", got)
	}
}

func TestHandleResolveUnknownUnit(t *testing.T) {
	s := newTestServer(t)
	md := s.sd.FindMethodByName("Resolve")
	in := dynamic.NewMessage(md.GetInputType())
	in.SetFieldByName("unit", "nope")
	in.SetFieldByName("receiver", "Bool")
	in.SetFieldByName("method", "len")
	out := dynamic.NewMessage(md.GetOutputType())
	if err := s.handleResolve(in, out); err == nil {
		t.Errorf("unknown unit must error")
	}
}

func TestHandleResolveFunction(t *testing.T) {
	s := newTestServer(t)
	out := s.call(t, "ResolveFunction", map[string]interface{}{
		"unit": "app", "path": "VecExt::len",
	})
	if got := out.GetFieldByName("outcome"); got != "resolved" {
		t.Errorf("outcome = %v, want resolved", got)
	}
}

func TestHandleDiagnostics(t *testing.T) {
	s := newTestServer(t)
	out := s.call(t, "Diagnostics", nil)

	entries, ok := out.GetFieldByName("diagnostics").([]interface{})
	if !ok || len(entries) != 1 {
		t.Fatalf("diagnostics field = %#v, want 1 entry", out.GetFieldByName("diagnostics"))
	}
	entry := entries[0].(*dynamic.Message)
	if got := entry.GetFieldByName("code"); got != "L001" {
		t.Errorf("code = %v", got)
	}
	if got := entry.GetFieldByName("severity"); got != "warning" {
		t.Errorf("severity = %v", got)
	}
}
