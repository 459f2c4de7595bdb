package bootstrap

import (
	"fmt"

	"github.com/prism-lang/prismc/pkg/charclass"
	"github.com/prism-lang/prismc/pkg/grammar"
	"github.com/prism-lang/prismc/pkg/source"
)

// parser is a one-token-lookahead hand-written recursive-descent reader,
// in the spirit of ast/parser.go's generated parser but table-free: each
// grammar production below is one Go function reading exactly the surface
// syntax spec.md §6 describes.
type parser struct {
	lex *lexer
	tok token
}

// Load reads the surface grammar source registered under file and returns
// its IR. This is the bootstrap entry point: nothing upstream of it is a
// PEG-engine parse.
func Load(files *source.Table, file source.FileID) (*grammar.GrammarFile, error) {
	p := &parser{lex: newLexer(files, file)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseFile()
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expectSymbol(sym string) error {
	if p.tok.kind != tokSymbol || p.tok.text != sym {
		return fmt.Errorf("bootstrap: expected %q, got %q at %s", sym, p.tok.text, p.tok.pos)
	}
	return p.advance()
}

func (p *parser) expectIdent() (string, error) {
	if p.tok.kind != tokIdent {
		return "", fmt.Errorf("bootstrap: expected identifier, got %q at %s", p.tok.text, p.tok.pos)
	}
	name := p.tok.text
	return name, p.advance()
}

func (p *parser) atSymbol(sym string) bool {
	return p.tok.kind == tokSymbol && p.tok.text == sym
}

func (p *parser) parseFile() (*grammar.GrammarFile, error) {
	gf := &grammar.GrammarFile{}
	for p.tok.kind != tokEOF {
		r, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		gf.Rules = append(gf.Rules, r)
	}
	return gf, nil
}

// parseRule reads: [ "adapt" ] "rule" name "(" args ")" "{" block* "}"
func (p *parser) parseRule() (*grammar.Rule, error) {
	adapt := false
	if p.tok.kind == tokIdent && p.tok.text == "adapt" {
		adapt = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	kw, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if kw != "rule" {
		return nil, fmt.Errorf("bootstrap: expected \"rule\", got %q at %s", kw, p.tok.pos)
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	r := &grammar.Rule{Name: name, Args: args, Adapt: adapt}
	for !p.atSymbol("}") {
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		// Alternatives sharing a constructor name are one
		// precedence level (spec.md §3.2's Block groups an "ordered
		// sequence of Constructor"), so fold into the existing Block
		// rather than starting a new one.
		if existing := r.BlockByName(b.Name); existing != nil {
			existing.Exprs = append(existing.Exprs, b.Exprs...)
		} else {
			r.Blocks = append(r.Blocks, b)
		}
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *parser) parseArgList() ([]string, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var args []string
	for !p.atSymbol(")") {
		a, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.atSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return args, p.expectSymbol(")")
}

// parseBlock reads one "Ctor(x, y) <- expr { action } ;" production, using
// the constructor name as the implicit block grouping. A block boundary is
// a blank constructor-name change; since the surface syntax names one
// alternative per line, each alternative is wrapped as its own
// single-expression Block unless the grammar author groups several under
// one name — BlockByName merges same-named alternatives into one ordered
// precedence level, per spec.md §3.2.
func (p *parser) parseBlock() (*grammar.Block, error) {
	ctorName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	// Constructor argument list is purely documentary in the surface
	// syntax (the real binder positions come from NameBind inside the
	// body); skip it.
	if p.atSymbol("(") {
		if _, err := p.parseArgList(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tokArrow {
		return nil, fmt.Errorf("bootstrap: expected \"<-\", got %q at %s", p.tok.text, p.tok.pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	ae, err := p.parseAnnotatedExpr()
	if err != nil {
		return nil, err
	}
	if p.atSymbol("{") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		act, err := p.parseAction()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("}"); err != nil {
			return nil, err
		}
		body := ae.Expr
		ae.Expr = grammar.Expr{Kind: grammar.ExprAction, ActionExpr: &body, Act: act}
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &grammar.Block{Name: ctorName, Exprs: []*grammar.AnnotatedExpr{ae}}, nil
}

// parseAction reads the braced action-code form. There is no surface
// syntax given for this in spec.md beyond "{ action }", so this reader
// defines a small concrete grammar for grammar.Action's five variants
// (DESIGN.md records this as an Open Question resolution):
//
//	name                        -> ActName
//	"literal"                   -> ActLiteral
//	ns.Ctor(arg, arg, ...)      -> ActConstruct
//	cons(head, tail)            -> ActCons
//	nil                         -> ActNil
//	capture(action)             -> ActCaptureEnv
func (p *parser) parseAction() (grammar.Action, error) {
	switch {
	case p.tok.kind == tokString:
		lit := p.tok.text
		return grammar.Action{Kind: grammar.ActLiteral, Literal: lit}, p.advance()

	case p.tok.kind == tokIdent && p.tok.text == "nil":
		return grammar.Action{Kind: grammar.ActNil}, p.advance()

	case p.tok.kind == tokIdent && p.tok.text == "cons":
		if err := p.advance(); err != nil {
			return grammar.Action{}, err
		}
		if err := p.expectSymbol("("); err != nil {
			return grammar.Action{}, err
		}
		head, err := p.parseAction()
		if err != nil {
			return grammar.Action{}, err
		}
		if err := p.expectSymbol(","); err != nil {
			return grammar.Action{}, err
		}
		tail, err := p.parseAction()
		if err != nil {
			return grammar.Action{}, err
		}
		return grammar.Action{Kind: grammar.ActCons, Head: &head, Tail: &tail}, p.expectSymbol(")")

	case p.tok.kind == tokIdent && p.tok.text == "capture":
		if err := p.advance(); err != nil {
			return grammar.Action{}, err
		}
		if err := p.expectSymbol("("); err != nil {
			return grammar.Action{}, err
		}
		inner, err := p.parseAction()
		if err != nil {
			return grammar.Action{}, err
		}
		return grammar.Action{Kind: grammar.ActCaptureEnv, Value: &inner}, p.expectSymbol(")")

	case p.tok.kind == tokIdent:
		name, err := p.expectIdent()
		if err != nil {
			return grammar.Action{}, err
		}
		if p.atSymbol(".") {
			if err := p.advance(); err != nil {
				return grammar.Action{}, err
			}
			ctor, err := p.expectIdent()
			if err != nil {
				return grammar.Action{}, err
			}
			if err := p.expectSymbol("("); err != nil {
				return grammar.Action{}, err
			}
			var args []grammar.Action
			for !p.atSymbol(")") {
				a, err := p.parseAction()
				if err != nil {
					return grammar.Action{}, err
				}
				args = append(args, a)
				if p.atSymbol(",") {
					if err := p.advance(); err != nil {
						return grammar.Action{}, err
					}
				}
			}
			return grammar.Action{Kind: grammar.ActConstruct, NS: name, Ctor: ctor, Args: args}, p.advance()
		}
		return grammar.Action{Kind: grammar.ActName, Name: name}, nil

	default:
		return grammar.Action{}, fmt.Errorf("bootstrap: unexpected token %q in action at %s", p.tok.text, p.tok.pos)
	}
}

func (p *parser) parseAnnotatedExpr() (*grammar.AnnotatedExpr, error) {
	var anns []grammar.Annotation
	for p.atSymbol("@") {
		a, err := p.parseAnnotation()
		if err != nil {
			return nil, err
		}
		anns = append(anns, a)
	}
	e, err := p.parseChoice()
	if err != nil {
		return nil, err
	}
	return &grammar.AnnotatedExpr{Annotations: anns, Expr: e}, nil
}

func (p *parser) parseAnnotation() (grammar.Annotation, error) {
	if err := p.advance(); err != nil { // consume '@'
		return grammar.Annotation{}, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return grammar.Annotation{}, err
	}
	switch name {
	case "error":
		if err := p.expectSymbol("("); err != nil {
			return grammar.Annotation{}, err
		}
		if p.tok.kind != tokString {
			return grammar.Annotation{}, fmt.Errorf("bootstrap: @error expects a string argument at %s", p.tok.pos)
		}
		msg := p.tok.text
		if err := p.advance(); err != nil {
			return grammar.Annotation{}, err
		}
		return grammar.Annotation{Kind: grammar.AnnError, Msg: msg}, p.expectSymbol(")")
	case "disable-layout":
		return grammar.Annotation{Kind: grammar.AnnDisableLayout}, nil
	case "enable-layout":
		return grammar.Annotation{Kind: grammar.AnnEnableLayout}, nil
	case "disable-recovery":
		return grammar.Annotation{Kind: grammar.AnnDisableRecovery}, nil
	case "enable-recovery":
		return grammar.Annotation{Kind: grammar.AnnEnableRecovery}, nil
	default:
		return grammar.Annotation{}, fmt.Errorf("bootstrap: unknown annotation @%s at %s", name, p.tok.pos)
	}
}

// parseChoice reads "seq ( '|' seq )*".
func (p *parser) parseChoice() (grammar.Expr, error) {
	first, err := p.parseSequence()
	if err != nil {
		return grammar.Expr{}, err
	}
	subs := []grammar.Expr{first}
	for p.atSymbol("|") {
		if err := p.advance(); err != nil {
			return grammar.Expr{}, err
		}
		next, err := p.parseSequence()
		if err != nil {
			return grammar.Expr{}, err
		}
		subs = append(subs, next)
	}
	if len(subs) == 1 {
		return subs[0], nil
	}
	return grammar.Expr{Kind: grammar.ExprChoice, Subs: subs}, nil
}

// parseSequence reads a run of postfix expressions until a sequence
// terminator ('{', ';', '|', ')') is seen.
func (p *parser) parseSequence() (grammar.Expr, error) {
	var subs []grammar.Expr
	for !p.atSequenceEnd() {
		e, err := p.parsePostfix()
		if err != nil {
			return grammar.Expr{}, err
		}
		subs = append(subs, e)
	}
	if len(subs) == 0 {
		return grammar.Expr{}, fmt.Errorf("bootstrap: empty sequence at %s", p.tok.pos)
	}
	if len(subs) == 1 {
		return subs[0], nil
	}
	return grammar.Expr{Kind: grammar.ExprSequence, Subs: subs}, nil
}

func (p *parser) atSequenceEnd() bool {
	if p.tok.kind == tokEOF {
		return true
	}
	if p.tok.kind != tokSymbol {
		return false
	}
	switch p.tok.text {
	case "{", ";", "|", ")":
		return true
	}
	return false
}

// parsePostfix reads a primary followed by any number of repeat suffixes
// ('*', '+', '?'). A "name:" NameBind prefix is handled inside parsePrimary.
func (p *parser) parsePostfix() (grammar.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return grammar.Expr{}, err
	}
	for {
		if p.tok.kind != tokSymbol {
			return e, nil
		}
		switch p.tok.text {
		case "*":
			if err := p.advance(); err != nil {
				return grammar.Expr{}, err
			}
			inner := e
			e = grammar.Expr{Kind: grammar.ExprRepeat, RepeatExpr: &inner, RepeatMin: 0, RepeatMax: -1}
		case "+":
			if err := p.advance(); err != nil {
				return grammar.Expr{}, err
			}
			inner := e
			e = grammar.Expr{Kind: grammar.ExprRepeat, RepeatExpr: &inner, RepeatMin: 1, RepeatMax: -1}
		case "?":
			if err := p.advance(); err != nil {
				return grammar.Expr{}, err
			}
			inner := e
			e = grammar.Expr{Kind: grammar.ExprRepeat, RepeatExpr: &inner, RepeatMin: 0, RepeatMax: 1}
		default:
			return e, nil
		}
	}
}

// parsePrimary reads one of: NameBind ("name:" primary), CharClass,
// Literal, PosLookahead "#pos(e)", NegLookahead "#neg(e)", SliceInput
// "#str(e)", AtAdapt "#adapt(ns, var) : body", a parenthesized
// sub-expression, or a bare identifier RunVar (with optional call args).
func (p *parser) parsePrimary() (grammar.Expr, error) {
	switch {
	case p.tok.kind == tokString:
		lit := p.tok.text
		if err := p.advance(); err != nil {
			return grammar.Expr{}, err
		}
		return grammar.Expr{Kind: grammar.ExprLiteral, Literal: lit}, nil

	case p.atSymbol("["):
		return p.parseCharClass()

	case p.atSymbol("("):
		if err := p.advance(); err != nil {
			return grammar.Expr{}, err
		}
		inner, err := p.parseChoice()
		if err != nil {
			return grammar.Expr{}, err
		}
		return inner, p.expectSymbol(")")

	case p.atSymbol("!"):
		if err := p.advance(); err != nil {
			return grammar.Expr{}, err
		}
		inner, err := p.parsePrimary()
		if err != nil {
			return grammar.Expr{}, err
		}
		return grammar.Expr{Kind: grammar.ExprNegLookahead, Inner: &inner}, nil

	case p.atSymbol("&"):
		if err := p.advance(); err != nil {
			return grammar.Expr{}, err
		}
		inner, err := p.parsePrimary()
		if err != nil {
			return grammar.Expr{}, err
		}
		return grammar.Expr{Kind: grammar.ExprPosLookahead, Inner: &inner}, nil

	case p.tok.kind == tokIdent:
		return p.parseIdentForm()

	default:
		return grammar.Expr{}, fmt.Errorf("bootstrap: unexpected token %q at %s", p.tok.text, p.tok.pos)
	}
}

func (p *parser) parseIdentForm() (grammar.Expr, error) {
	name, err := p.expectIdent()
	if err != nil {
		return grammar.Expr{}, err
	}

	switch name {
	case "#str":
		inner, err := p.parseParenExpr()
		if err != nil {
			return grammar.Expr{}, err
		}
		return grammar.Expr{Kind: grammar.ExprSliceInput, Inner: &inner}, nil
	case "#pos":
		inner, err := p.parseParenExpr()
		if err != nil {
			return grammar.Expr{}, err
		}
		return grammar.Expr{Kind: grammar.ExprPosLookahead, Inner: &inner}, nil
	case "#neg":
		inner, err := p.parseParenExpr()
		if err != nil {
			return grammar.Expr{}, err
		}
		return grammar.Expr{Kind: grammar.ExprNegLookahead, Inner: &inner}, nil
	case "#adapt":
		return p.parseAtAdapt()
	}

	// "name:" prefix indicates a NameBind around the postfix form that
	// follows; distinguish it from a plain RunVar by lookahead on ':'.
	if p.atSymbol(":") {
		if err := p.advance(); err != nil {
			return grammar.Expr{}, err
		}
		inner, err := p.parsePostfix()
		if err != nil {
			return grammar.Expr{}, err
		}
		return grammar.Expr{Kind: grammar.ExprNameBind, BindName: name, BindExpr: &inner}, nil
	}

	var args []grammar.Expr
	if p.atSymbol("(") {
		if err := p.advance(); err != nil {
			return grammar.Expr{}, err
		}
		for !p.atSymbol(")") {
			a, err := p.parseChoice()
			if err != nil {
				return grammar.Expr{}, err
			}
			args = append(args, a)
			if p.atSymbol(",") {
				if err := p.advance(); err != nil {
					return grammar.Expr{}, err
				}
			}
		}
		if err := p.advance(); err != nil { // ')'
			return grammar.Expr{}, err
		}
	}
	return grammar.Expr{Kind: grammar.ExprRunVar, RunVarName: name, RunVarArgs: args}, nil
}

func (p *parser) parseParenExpr() (grammar.Expr, error) {
	if err := p.expectSymbol("("); err != nil {
		return grammar.Expr{}, err
	}
	e, err := p.parseChoice()
	if err != nil {
		return grammar.Expr{}, err
	}
	return e, p.expectSymbol(")")
}

// parseAtAdapt reads "#adapt(ns, var) : body", the host-namespace-value form
// spec.md §4.4 and §6 describe.
func (p *parser) parseAtAdapt() (grammar.Expr, error) {
	if err := p.expectSymbol("("); err != nil {
		return grammar.Expr{}, err
	}
	ns, err := p.expectIdent()
	if err != nil {
		return grammar.Expr{}, err
	}
	if err := p.expectSymbol(","); err != nil {
		return grammar.Expr{}, err
	}
	varName, err := p.expectIdent()
	if err != nil {
		return grammar.Expr{}, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return grammar.Expr{}, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return grammar.Expr{}, err
	}
	body, err := p.parsePostfix()
	if err != nil {
		return grammar.Expr{}, err
	}
	return grammar.Expr{Kind: grammar.ExprAtAdapt, AdaptNS: ns, AdaptVarName: varName, AdaptBody: &body}, nil
}

// parseCharClass reads "[ ['^'] ( range ( '|' range )* )? ]", per
// spec.md §6: "[ 'a'-'z' | '0'-'9' | '_' ]", negated with '^'.
func (p *parser) parseCharClass() (grammar.Expr, error) {
	if err := p.expectSymbol("["); err != nil {
		return grammar.Expr{}, err
	}
	negated := false
	if p.atSymbol("^") {
		negated = true
		if err := p.advance(); err != nil {
			return grammar.Expr{}, err
		}
	}
	var ranges []charclass.Range
	for !p.atSymbol("]") {
		r, err := p.parseCharRange()
		if err != nil {
			return grammar.Expr{}, err
		}
		ranges = append(ranges, r)
		if p.atSymbol("|") {
			if err := p.advance(); err != nil {
				return grammar.Expr{}, err
			}
		}
	}
	if err := p.advance(); err != nil { // ']'
		return grammar.Expr{}, err
	}
	cls := charclass.New(ranges...)
	if negated {
		cls = cls.Negate()
	}
	return grammar.Expr{Kind: grammar.ExprCharClass, Class: cls}, nil
}

func (p *parser) parseCharRange() (charclass.Range, error) {
	if p.tok.kind != tokChar {
		return charclass.Range{}, fmt.Errorf("bootstrap: expected a char literal, got %q at %s", p.tok.text, p.tok.pos)
	}
	lo := []rune(p.tok.text)[0]
	if err := p.advance(); err != nil {
		return charclass.Range{}, err
	}
	hi := lo
	if p.atSymbol("-") {
		if err := p.advance(); err != nil {
			return charclass.Range{}, err
		}
		if p.tok.kind != tokChar {
			return charclass.Range{}, fmt.Errorf("bootstrap: expected a char literal, got %q at %s", p.tok.text, p.tok.pos)
		}
		hi = []rune(p.tok.text)[0]
		if err := p.advance(); err != nil {
			return charclass.Range{}, err
		}
	}
	return charclass.Range{Lo: lo, Hi: hi}, nil
}
