package pipeline

import (
	"testing"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/config"
	"github.com/lumenlang/lumen/internal/diagnostics"
	"github.com/lumenlang/lumen/internal/token"
)

// pathOwnership owns every path beginning with the unit's name.
type pathOwnership struct{}

func (pathOwnership) IsLocalType(path string, unit ast.UnitID) bool {
	prefix := string(unit) + "::"
	return len(path) > len(prefix) && path[:len(prefix)] == prefix
}

func sampleUnits() []Unit {
	return []Unit{
		{
			ID: "app",
			Decls: []ast.Decl{
				&ast.ExtensionDecl{
					Token:   token.At(1, 1, "impl"),
					File:    "app.lum",
					OwnUnit: "app",
					Target:  &ast.NamedType{Path: "app::Config"},
					Methods: []*ast.MethodDecl{
						{Token: token.At(2, 5, "fn"), Name: "reload", HasReceiver: true},
					},
				},
				&ast.UseDecl{
					Token: token.At(4, 1, "use"), File: "app.lum", OwnUnit: "app",
					Kind: ast.UseBlock, Module: "app", Name: "app::Config",
				},
			},
		},
	}
}

func countCode(diags []*diagnostics.DiagnosticError, code diagnostics.ErrorCode) int {
	n := 0
	for _, d := range diags {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestDefaultPipeline(t *testing.T) {
	ctx := Default().Run(&Context{
		Units:     sampleUnits(),
		Config:    config.Default(),
		Ownership: pathOwnership{},
	})

	if ctx.Registry == nil || ctx.Table == nil || ctx.Collector == nil {
		t.Fatalf("collect stage did not initialize shared state")
	}
	if len(ctx.Table.Blocks()) != 1 {
		t.Errorf("registered %d blocks, want 1", len(ctx.Table.Blocks()))
	}
	if got := countCode(ctx.Diagnostics, diagnostics.ErrL001); got != 1 {
		t.Errorf("local-extension warnings = %d, want 1", got)
	}
	if got := len(ctx.Collector.RootScope("app").VisibleBindings()); got != 1 {
		t.Errorf("root scope bindings = %d, want 1", got)
	}
}

func TestLintDisabledByConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Lint.LocalExtensions = false

	ctx := Default().Run(&Context{
		Units:     sampleUnits(),
		Config:    cfg,
		Ownership: pathOwnership{},
	})
	if got := countCode(ctx.Diagnostics, diagnostics.ErrL001); got != 0 {
		t.Errorf("lint ran despite being disabled: %d warnings", got)
	}
}

func TestStagesContinueOnErrors(t *testing.T) {
	units := sampleUnits()
	units[0].Decls = append(units[0].Decls, &ast.UseDecl{
		Token: token.At(6, 1, "use"), File: "app.lum", OwnUnit: "app",
		Kind: ast.UseBlock, Module: "app", Name: "Missing",
	})

	ctx := Default().Run(&Context{
		Units:     units,
		Config:    config.Default(),
		Ownership: pathOwnership{},
	})
	if countCode(ctx.Diagnostics, diagnostics.ErrI001) != 1 {
		t.Errorf("import error missing from diagnostics")
	}
	// The lint stage still ran after the collect-stage error.
	if countCode(ctx.Diagnostics, diagnostics.ErrL001) != 1 {
		t.Errorf("later stage skipped after an earlier error")
	}
}
