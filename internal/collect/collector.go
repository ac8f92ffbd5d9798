// Package collect ingests a unit's parsed items: it interns target types,
// registers extension blocks, and applies use declarations to the unit's
// root scope. Every failure becomes a diagnostic and collection moves on;
// the whole unit is always processed and the complete diagnostic set
// returned.
package collect

import (
	"fmt"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/diagnostics"
	"github.com/lumenlang/lumen/internal/extensions"
	"github.com/lumenlang/lumen/internal/scope"
	"github.com/lumenlang/lumen/internal/typedesc"
)

// Collector runs the item-collection phase. It is single-writer: the
// registry and table it fills are write-once and become read-only for the
// resolution phase.
type Collector struct {
	registry  *typedesc.Registry
	table     *extensions.Table
	collector *diagnostics.Collector
	scopes    map[ast.UnitID]*scope.Scope
}

func New(registry *typedesc.Registry, table *extensions.Table) *Collector {
	return &Collector{
		registry:  registry,
		table:     table,
		collector: diagnostics.NewCollector(),
		scopes:    make(map[ast.UnitID]*scope.Scope),
	}
}

// CollectUnit processes one unit's declarations in source order:
// extension blocks first (item collection), then use declarations against
// the unit's root scope. Declaration order is preserved exactly as
// ingested; it is user-observable in ambiguity diagnostics.
func (c *Collector) CollectUnit(unit ast.UnitID, decls []ast.Decl) {
	for _, d := range decls {
		if ext, ok := d.(*ast.ExtensionDecl); ok {
			c.collectExtension(ext)
		}
	}
	for _, d := range decls {
		if use, ok := d.(*ast.UseDecl); ok {
			c.collectUse(unit, use)
		}
	}
}

func (c *Collector) collectExtension(d *ast.ExtensionDecl) {
	target := c.registry.Intern(d.Target, d.Generics)

	if d.Alias == "" && !typedesc.Nameable(target) {
		c.collector.Add(withFile(d.File, diagnostics.NewError(
			diagnostics.ErrE002,
			d.Token,
			fmt.Sprintf("extension block on %s has no nameable target and requires an alias", target),
		)))
		return
	}

	block := &extensions.Block{
		Target: target,
		Alias:  d.Alias,
		Unit:   d.OwnUnit,
		Token:  d.Token,
		File:   d.File,
	}

	for _, m := range d.Methods {
		if !m.HasReceiver {
			c.collector.Add(withFile(d.File, diagnostics.NewError(
				diagnostics.ErrE004,
				m.Token,
				fmt.Sprintf("extension method %q has no receiver; associated functions cannot be declared in extension blocks", m.Name),
			)))
			continue
		}
		method := &extensions.Method{
			Name:    m.Name,
			BodyRef: m.BodyRef,
			Token:   m.Token,
			File:    d.File,
		}
		if m.Public {
			method.Visibility = extensions.Public
		}
		for _, p := range m.Params {
			method.Params = append(method.Params, c.registry.Intern(p, d.Generics))
		}
		if m.Result != nil {
			method.Result = c.registry.Intern(m.Result, d.Generics)
		}
		block.Methods = append(block.Methods, method)
	}

	if err := c.table.Register(block); err != nil {
		if conflict, ok := err.(*extensions.ConflictError); ok {
			// Report at both declaration sites.
			c.collector.Add(withFile(conflict.New.File, diagnostics.NewError(
				diagnostics.ErrE001, conflict.New.Token, conflict.Error())))
			c.collector.Add(withFile(conflict.Existing.File, diagnostics.NewError(
				diagnostics.ErrE001, conflict.Existing.Token,
				fmt.Sprintf("extension method %q declared here conflicts with a later block", conflict.MethodName))))
			return
		}
		c.collector.Add(withFile(d.File, diagnostics.NewError(diagnostics.ErrE003, d.Token, err.Error())))
	}
}

func (c *Collector) collectUse(unit ast.UnitID, d *ast.UseDecl) {
	sc := c.RootScope(unit)

	var err error
	switch d.Kind {
	case ast.UseMethod:
		err = sc.ImportMethod(d.Name, d.Method)
	default:
		err = sc.ImportBlock(d.Name)
	}
	if err == nil {
		return
	}

	code := diagnostics.ErrI001
	if imp, ok := err.(*scope.ImportError); ok && imp.Kind == scope.CrossUnitAccess {
		code = diagnostics.ErrI002
	}
	c.collector.Add(withFile(d.File, diagnostics.NewError(code, d.Token, err.Error())))
}

// RootScope returns (creating on first use) the root scope of a unit.
func (c *Collector) RootScope(unit ast.UnitID) *scope.Scope {
	sc, ok := c.scopes[unit]
	if !ok {
		sc = scope.New(c.table, unit)
		c.scopes[unit] = sc
	}
	return sc
}

// Diagnostics returns the collected diagnostics in source order.
func (c *Collector) Diagnostics() []*diagnostics.DiagnosticError {
	return c.collector.Sorted()
}

// AddDiagnostic lets later phases (lint, resolution reporting) feed the
// same collector so the caller sees one diagnostic set.
func (c *Collector) AddDiagnostic(err *diagnostics.DiagnosticError) {
	c.collector.Add(err)
}

func withFile(file string, err *diagnostics.DiagnosticError) *diagnostics.DiagnosticError {
	if err.File == "" {
		err.File = file
	}
	return err
}
