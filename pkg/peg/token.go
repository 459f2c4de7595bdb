package peg

import "github.com/prism-lang/prismc/pkg/source"

// TokenKind tags one entry of the token stream spec.md §6's run() entry
// point returns alongside the parsed value and errors: every span the
// engine actually consumes is classified into exactly one of these kinds.
type TokenKind int

const (
	TokenLayout TokenKind = iota
	TokenKeyword
	TokenSymbol
	TokenCharClass
	TokenSlice
)

func (k TokenKind) String() string {
	switch k {
	case TokenLayout:
		return "Layout"
	case TokenKeyword:
		return "Keyword"
	case TokenSymbol:
		return "Symbol"
	case TokenCharClass:
		return "CharClass"
	case TokenSlice:
		return "Slice"
	default:
		return "Unknown"
	}
}

// Token is one {span, kind} pair. CharClass and Slice tokens come from
// Expr.CharClass matches and SliceInput collapses respectively; Keyword and
// Symbol come from Expr.Literal matches, split on whether the literal text
// is alphanumeric; Layout tokens come from the layout rule invocations
// withLayout splices between ordinary matches.
type Token struct {
	Span source.Span
	Kind TokenKind
}

func isAlphanumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isAlnumRune(r) {
			return false
		}
	}
	return true
}

func isAlnumRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}
