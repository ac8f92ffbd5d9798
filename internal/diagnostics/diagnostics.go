package diagnostics

import (
	"fmt"
	"sort"

	"github.com/lumenlang/lumen/internal/token"
)

type ErrorCode string

// Error codes, grouped by phase. E-codes are declaration-time, I-codes are
// import-time, R-codes are resolution-time, L-codes are advisory lints.
const (
	// ErrE001: two blocks of one compilation unit declare the same method
	// name on targets that can unify for some receiver.
	ErrE001 ErrorCode = "E001"
	// ErrE002: block targets an unnameable type (slice, tuple, type
	// parameter) but declares no alias.
	ErrE002 ErrorCode = "E002"
	// ErrE003: duplicate alias within a compilation unit.
	ErrE003 ErrorCode = "E003"
	// ErrE004: extension method without a receiver parameter.
	ErrE004 ErrorCode = "E004"

	// ErrI001: import path does not resolve to a registered block or method.
	ErrI001 ErrorCode = "I001"
	// ErrI002: import path targets a block in a different compilation unit.
	ErrI002 ErrorCode = "I002"

	// ErrR001: no candidate in any tier for a call site.
	ErrR001 ErrorCode = "R001"
	// ErrR002: two or more equal-tier candidates apply at a call site.
	ErrR002 ErrorCode = "R002"

	// ErrL001: extension block on a non-generic type owned by the same
	// unit; an inherent impl would serve. Warning-level.
	ErrL001 ErrorCode = "L001"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// DiagnosticError is the single user-facing error shape of the engine.
// Rendering is owned by the caller; this type only carries content.
type DiagnosticError struct {
	Code     ErrorCode
	Token    token.Token
	File     string
	Message  string
	Severity Severity
}

func (e *DiagnosticError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("[%s] %s:%d:%d: %s", e.Code, e.File, e.Token.Line, e.Token.Column, e.Message)
	}
	return fmt.Sprintf("[%s] %d:%d: %s", e.Code, e.Token.Line, e.Token.Column, e.Message)
}

func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Message: msg, Severity: SeverityError}
}

func NewWarning(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Message: msg, Severity: SeverityWarning}
}

// Collector accumulates diagnostics across a whole unit, deduplicating by
// position and code so multi-pass collection does not double-report.
// Errors never abort collection; the full set is returned at the end.
type Collector struct {
	set   map[string]*DiagnosticError
	order []string
}

func NewCollector() *Collector {
	return &Collector{set: make(map[string]*DiagnosticError)}
}

func (c *Collector) Add(err *DiagnosticError) {
	key := fmt.Sprintf("%s:%d:%d:%s", err.File, err.Token.Line, err.Token.Column, err.Code)
	if _, seen := c.set[key]; !seen {
		c.order = append(c.order, key)
	}
	c.set[key] = err
}

func (c *Collector) AddAll(errs []*DiagnosticError) {
	for _, e := range errs {
		c.Add(e)
	}
}

// All returns collected diagnostics in insertion order.
func (c *Collector) All() []*DiagnosticError {
	out := make([]*DiagnosticError, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.set[key])
	}
	return out
}

// Sorted returns collected diagnostics ordered by file, line, column, code.
func (c *Collector) Sorted() []*DiagnosticError {
	out := c.All()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Token.Line != b.Token.Line {
			return a.Token.Line < b.Token.Line
		}
		if a.Token.Column != b.Token.Column {
			return a.Token.Column < b.Token.Column
		}
		return a.Code < b.Code
	})
	return out
}

func (c *Collector) HasErrors() bool {
	for _, e := range c.set {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (c *Collector) Len() int {
	return len(c.set)
}
