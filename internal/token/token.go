package token

import "fmt"

// Token carries the source position of a parsed item. The parser sits
// outside this subsystem; declarations and imports arrive already tagged
// with the token of their defining keyword so diagnostics can point back
// at the source.
type Token struct {
	Lexeme string
	Line   int
	Column int
}

func (t Token) Pos() string {
	return fmt.Sprintf("%d:%d", t.Line, t.Column)
}

// At is a convenience constructor used by the fixture loader and tests.
func At(line, column int, lexeme string) Token {
	return Token{Lexeme: lexeme, Line: line, Column: column}
}
