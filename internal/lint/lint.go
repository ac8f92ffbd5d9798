// Package lint is the advisory layer over the extension block table.
// Nothing here affects resolution; findings are warning-level policy.
package lint

import (
	"fmt"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/diagnostics"
	"github.com/lumenlang/lumen/internal/extensions"
	"github.com/lumenlang/lumen/internal/typedesc"
)

// Ownership is the single predicate the module/visibility system exposes
// to this engine: whether a type path is defined by the given unit.
type Ownership interface {
	IsLocalType(path string, unit ast.UnitID) bool
}

// Advisor flags extension blocks on non-generic local types: a local,
// non-generic receiver could carry an inherent impl instead, and an
// extension adds an import obligation for no gain.
type Advisor struct {
	ownership Ownership
}

func NewAdvisor(ownership Ownership) *Advisor {
	return &Advisor{ownership: ownership}
}

// Check walks every registered block and returns the advisory findings.
func (a *Advisor) Check(table *extensions.Table) []*diagnostics.DiagnosticError {
	if a.ownership == nil {
		return nil
	}
	var out []*diagnostics.DiagnosticError
	for _, block := range table.Blocks() {
		nominal, ok := block.Target.(typedesc.Nominal)
		if !ok || typedesc.IsGeneric(nominal) {
			continue
		}
		if !a.ownership.IsLocalType(nominal.Path, table.OwningUnit(block)) {
			continue
		}
		warn := diagnostics.NewWarning(
			diagnostics.ErrL001,
			block.Token,
			fmt.Sprintf("extension block on local type %s; an inherent impl would not need an import", nominal.Path),
		)
		warn.File = block.File
		out = append(out, warn)
	}
	return out
}
