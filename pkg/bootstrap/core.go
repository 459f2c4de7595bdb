package bootstrap

import (
	"fmt"

	"github.com/prism-lang/prismc/pkg/arena"
	"github.com/prism-lang/prismc/pkg/source"
)

// LoadCore parses the small surface syntax `prismc check` reads for core
// calculus terms (spec.md §3.5's CorePrismExpr), reusing this package's
// lexer (SPEC_FULL.md §4.14: "reusing C16's tokenizer"). There is no
// surface syntax for core terms in spec.md beyond naming the variants
// (DESIGN.md records the grammar chosen below as an Open Question
// resolution):
//
//	Type                  -> Type
//	fn(x : A) B           -> FnType, with x bound in B
//	\x . body             -> FnConstruct, with x bound in body
//	f a                   -> FnDestruct (juxtaposition, left-associative)
//	(e : T)               -> TypeAssert
//	let x = v in b        -> Let, with x bound in b
//	x                     -> DeBruijn, resolved against the enclosing names
func LoadCore(files *source.Table, file source.FileID, a *arena.Arena) (arena.Index, error) {
	p := &coreParser{lex: newLexer(files, file), arena: a}
	if err := p.advance(); err != nil {
		return 0, err
	}
	i, err := p.parseApp(nil)
	if err != nil {
		return 0, err
	}
	if p.tok.kind != tokEOF {
		return 0, fmt.Errorf("bootstrap: trailing input at %s", p.tok.pos)
	}
	return i, nil
}

type coreParser struct {
	lex   *lexer
	tok   token
	arena *arena.Arena
}

func (p *coreParser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *coreParser) atSymbol(s string) bool {
	return p.tok.kind == tokSymbol && p.tok.text == s
}

func (p *coreParser) expectSymbol(s string) error {
	if !p.atSymbol(s) {
		return fmt.Errorf("bootstrap: expected %q, got %q at %s", s, p.tok.text, p.tok.pos)
	}
	return p.advance()
}

func (p *coreParser) here(pos source.Position) arena.Origin {
	return arena.Origin{Kind: arena.OriginSourceCode, SpanFile: uint32(pos.File), SpanLo: pos.Offset, SpanHi: pos.Offset}
}

// parseApp reads a left-associative juxtaposition chain of parsePrimary,
// the FnDestruct surface form.
func (p *coreParser) parseApp(names []string) (arena.Index, error) {
	fn, err := p.parsePrimary(names)
	if err != nil {
		return 0, err
	}
	for p.startsPrimary() {
		pos := p.tok.pos
		arg, err := p.parsePrimary(names)
		if err != nil {
			return 0, err
		}
		fn = p.arena.Insert(arena.Expr{Kind: arena.ExprFnDestruct, DestructFn: fn, DestructArg: arg}, p.here(pos))
	}
	return fn, nil
}

func (p *coreParser) startsPrimary() bool {
	switch p.tok.kind {
	case tokIdent:
		// "in" closes a let's bound value; it never starts an argument.
		return p.tok.text != "in"
	case tokSymbol:
		return p.tok.text == "(" || p.tok.text == "\\"
	default:
		return false
	}
}

func (p *coreParser) parsePrimary(names []string) (arena.Index, error) {
	pos := p.tok.pos
	switch {
	case p.tok.kind == tokIdent && p.tok.text == "Type":
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.arena.Insert(arena.Expr{Kind: arena.ExprType}, p.here(pos)), nil

	case p.tok.kind == tokIdent && p.tok.text == "fn":
		return p.parseFnType(names, pos)

	case p.tok.kind == tokIdent && p.tok.text == "let":
		return p.parseLet(names, pos)

	case p.atSymbol("\\"):
		return p.parseLambda(names, pos)

	case p.atSymbol("("):
		return p.parseParenOrAssert(names)

	case p.tok.kind == tokIdent:
		return p.resolveName(names, pos)

	default:
		return 0, fmt.Errorf("bootstrap: unexpected token %q in core term at %s", p.tok.text, p.tok.pos)
	}
}

func (p *coreParser) resolveName(names []string, pos source.Position) (arena.Index, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return 0, err
	}
	for i, n := range names { // names[0] is the innermost (most recently bound)
		if n == name {
			return p.arena.Insert(arena.Expr{Kind: arena.ExprDeBruijn, DeBruijnN: i}, p.here(pos)), nil
		}
	}
	return 0, fmt.Errorf("bootstrap: unbound name %q at %s", name, pos)
}

// parseFnType reads "fn(x : A) B".
func (p *coreParser) parseFnType(names []string, pos source.Position) (arena.Index, error) {
	if err := p.advance(); err != nil { // "fn"
		return 0, err
	}
	if err := p.expectSymbol("("); err != nil {
		return 0, err
	}
	if p.tok.kind != tokIdent {
		return 0, fmt.Errorf("bootstrap: expected a binder name at %s", p.tok.pos)
	}
	bound := p.tok.text
	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return 0, err
	}
	dom, err := p.parseApp(names)
	if err != nil {
		return 0, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return 0, err
	}
	cod, err := p.parseApp(append([]string{bound}, names...))
	if err != nil {
		return 0, err
	}
	return p.arena.Insert(arena.Expr{Kind: arena.ExprFnType, FnA: dom, FnB: cod}, p.here(pos)), nil
}

// parseLambda reads "\x . body".
func (p *coreParser) parseLambda(names []string, pos source.Position) (arena.Index, error) {
	if err := p.advance(); err != nil { // "\"
		return 0, err
	}
	if p.tok.kind != tokIdent {
		return 0, fmt.Errorf("bootstrap: expected a binder name at %s", p.tok.pos)
	}
	bound := p.tok.text
	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.expectSymbol("."); err != nil {
		return 0, err
	}
	body, err := p.parseApp(append([]string{bound}, names...))
	if err != nil {
		return 0, err
	}
	return p.arena.Insert(arena.Expr{Kind: arena.ExprFnConstruct, FnB: body}, p.here(pos)), nil
}

// parseLet reads "let x = v in b".
func (p *coreParser) parseLet(names []string, pos source.Position) (arena.Index, error) {
	if err := p.advance(); err != nil { // "let"
		return 0, err
	}
	if p.tok.kind != tokIdent {
		return 0, fmt.Errorf("bootstrap: expected a binder name at %s", p.tok.pos)
	}
	bound := p.tok.text
	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.expectSymbol("="); err != nil {
		return 0, err
	}
	val, err := p.parseApp(names)
	if err != nil {
		return 0, err
	}
	if p.tok.kind != tokIdent || p.tok.text != "in" {
		return 0, fmt.Errorf("bootstrap: expected \"in\" at %s", p.tok.pos)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	body, err := p.parseApp(append([]string{bound}, names...))
	if err != nil {
		return 0, err
	}
	return p.arena.Insert(arena.Expr{Kind: arena.ExprLet, LetValue: val, LetBody: body}, p.here(pos)), nil
}

// parseParenOrAssert reads "(" app [":" app] ")": a grouped term, or a
// TypeAssert when a colon follows.
func (p *coreParser) parseParenOrAssert(names []string) (arena.Index, error) {
	pos := p.tok.pos
	if err := p.advance(); err != nil { // "("
		return 0, err
	}
	inner, err := p.parseApp(names)
	if err != nil {
		return 0, err
	}
	if p.atSymbol(":") {
		if err := p.advance(); err != nil {
			return 0, err
		}
		typ, err := p.parseApp(names)
		if err != nil {
			return 0, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return 0, err
		}
		return p.arena.Insert(arena.Expr{Kind: arena.ExprTypeAssert, AssertExpr: inner, AssertType: typ}, p.here(pos)), nil
	}
	return inner, p.expectSymbol(")")
}
