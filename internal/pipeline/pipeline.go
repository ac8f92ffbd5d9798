// Package pipeline sequences the engine's phases over a shared context.
package pipeline

import (
	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/collect"
	"github.com/lumenlang/lumen/internal/config"
	"github.com/lumenlang/lumen/internal/diagnostics"
	"github.com/lumenlang/lumen/internal/extensions"
	"github.com/lumenlang/lumen/internal/lint"
	"github.com/lumenlang/lumen/internal/typedesc"
)

// Unit is one compilation unit's parsed items, in source order.
type Unit struct {
	ID    ast.UnitID
	Decls []ast.Decl
}

// Context carries the evolving state through the stages.
type Context struct {
	Units  []Unit
	Config *config.Config

	Registry  *typedesc.Registry
	Table     *extensions.Table
	Collector *collect.Collector
	Ownership lint.Ownership

	Diagnostics []*diagnostics.DiagnosticError
}

// Processor is a single pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Stages continue on errors so every stage
// contributes its diagnostics to the final set.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

// Default returns the standard stage sequence: item collection, then the
// advisory lint pass.
func Default() *Pipeline {
	return New(CollectProcessor{}, LintProcessor{})
}

// CollectProcessor runs item collection over every unit.
type CollectProcessor struct{}

func (CollectProcessor) Process(ctx *Context) *Context {
	if ctx.Registry == nil {
		ctx.Registry = typedesc.NewRegistry()
	}
	if ctx.Table == nil {
		ctx.Table = extensions.NewTable(nil)
	}
	c := collect.New(ctx.Registry, ctx.Table)
	for _, unit := range ctx.Units {
		c.CollectUnit(unit.ID, unit.Decls)
	}
	ctx.Collector = c
	ctx.Diagnostics = c.Diagnostics()
	return ctx
}

// LintProcessor runs the advisory pass when the config enables it.
type LintProcessor struct{}

func (LintProcessor) Process(ctx *Context) *Context {
	if ctx.Table == nil || ctx.Ownership == nil {
		return ctx
	}
	if ctx.Config != nil && !ctx.Config.Lint.LocalExtensions {
		return ctx
	}
	for _, warn := range lint.NewAdvisor(ctx.Ownership).Check(ctx.Table) {
		if ctx.Collector != nil {
			ctx.Collector.AddDiagnostic(warn)
		} else {
			ctx.Diagnostics = append(ctx.Diagnostics, warn)
		}
	}
	if ctx.Collector != nil {
		ctx.Diagnostics = ctx.Collector.Diagnostics()
	}
	return ctx
}
