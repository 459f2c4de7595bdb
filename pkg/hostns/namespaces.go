package hostns

import (
	"fmt"

	"github.com/prism-lang/prismc/pkg/charclass"
	"github.com/prism-lang/prismc/pkg/grammar"
)

// ActionResult is the generic "opaque parsed value" namespace: every
// Construct it doesn't special-case is stored verbatim as a tagged record,
// the way an untyped AST node is stored by a grammar with no dedicated
// host type for it yet.
type ActionResult struct {
	Ctor string
	Args []Value
}

type actionResultNS struct{}

// NewActionResultNamespace returns the namespace grounding the original
// source's `ActionResult` — a catch-all constructor store with no
// grammar-conversion ability of its own (AtAdapt against one of its values
// always fails with ErrNotAGrammar).
func NewActionResultNamespace() Namespace { return actionResultNS{} }

func (actionResultNS) Name() string { return "ActionResult" }

func (actionResultNS) FromConstruct(ctor string, args []Value) (Value, error) {
	return &ActionResult{Ctor: ctor, Args: args}, nil
}

func (actionResultNS) CreateEvalCtx(v Value) EvalCtx { return nil }

func (ns actionResultNS) EvalToGrammar(v Value, ctx EvalCtx) (*grammar.GrammarFile, error) {
	return nil, &ErrNotAGrammar{NS: ns.Name()}
}

// ParsedList is a cons-list of Values, grounding spec.md §3.2's Action
// variants Cons/Nil surfaced as a namespace so grammar actions can build
// and consume lists without the host needing a dedicated slice type.
type ParsedList struct {
	Head Value
	Tail *ParsedList // nil at the end of the list
}

// ToSlice flattens l into a Go slice, nil-safe.
func (l *ParsedList) ToSlice() []Value {
	var out []Value
	for n := l; n != nil; n = n.Tail {
		out = append(out, n.Head)
	}
	return out
}

type parsedListNS struct{}

// NewParsedListNamespace returns the "Cons"/"Nil" namespace.
func NewParsedListNamespace() Namespace { return parsedListNS{} }

func (parsedListNS) Name() string { return "ParsedList" }

func (parsedListNS) FromConstruct(ctor string, args []Value) (Value, error) {
	switch ctor {
	case "Nil":
		return (*ParsedList)(nil), nil
	case "Cons":
		if len(args) != 2 {
			return nil, fmt.Errorf("hostns: ParsedList.Cons expects 2 args, got %d", len(args))
		}
		tail, _ := args[1].(*ParsedList)
		return &ParsedList{Head: args[0], Tail: tail}, nil
	default:
		return nil, &ErrUnknownConstructor{NS: "ParsedList", Ctor: ctor}
	}
}

func (parsedListNS) CreateEvalCtx(v Value) EvalCtx { return nil }

func (ns parsedListNS) EvalToGrammar(v Value, ctx EvalCtx) (*grammar.GrammarFile, error) {
	return nil, &ErrNotAGrammar{NS: ns.Name()}
}

// RuleAction is the namespace grammar-level actions use to build fresh
// grammar.Rule/Block/Expr fragments at parse time — the values an AtAdapt
// actually splices in, grounding spec.md §4.3's "AtAdapt ... invoke
// ns.eval_to_grammar(value, eval_ctx) to obtain an immutable GrammarFile".
//
// Constructors mirror grammar.ExprKind/Action one-for-one: "Literal",
// "CharClass", "Sequence", "Choice", "NameBind", "Rule", "Block", "File".
type RuleActionValue struct {
	// Exactly one of these is set, selected by Tag.
	Tag   string
	Expr  *grammar.Expr
	Block *grammar.Block
	Rule  *grammar.Rule
	File  *grammar.GrammarFile
}

type ruleActionNS struct{}

// NewRuleActionNamespace returns the "RuleAction" namespace.
func NewRuleActionNamespace() Namespace { return ruleActionNS{} }

func (ruleActionNS) Name() string { return "RuleAction" }

func exprArg(v Value) (*grammar.Expr, error) {
	rv, ok := v.(*RuleActionValue)
	if !ok || rv.Tag != "Expr" {
		return nil, fmt.Errorf("hostns: RuleAction constructor expected an Expr value")
	}
	return rv.Expr, nil
}

func (ns ruleActionNS) FromConstruct(ctor string, args []Value) (Value, error) {
	switch ctor {
	case "Literal":
		if len(args) != 1 {
			return nil, fmt.Errorf("hostns: RuleAction.Literal expects 1 arg")
		}
		s, _ := args[0].(string)
		return &RuleActionValue{Tag: "Expr", Expr: &grammar.Expr{Kind: grammar.ExprLiteral, Literal: s}}, nil

	case "CharClass":
		if len(args) != 1 {
			return nil, fmt.Errorf("hostns: RuleAction.CharClass expects 1 arg")
		}
		cc, _ := args[0].(charclass.Class)
		return &RuleActionValue{Tag: "Expr", Expr: &grammar.Expr{Kind: grammar.ExprCharClass, Class: cc}}, nil

	case "Sequence", "Choice":
		subs := make([]grammar.Expr, 0, len(args))
		for _, a := range args {
			e, err := exprArg(a)
			if err != nil {
				return nil, err
			}
			subs = append(subs, *e)
		}
		kind := grammar.ExprSequence
		if ctor == "Choice" {
			kind = grammar.ExprChoice
		}
		return &RuleActionValue{Tag: "Expr", Expr: &grammar.Expr{Kind: kind, Subs: subs}}, nil

	case "NameBind":
		if len(args) != 2 {
			return nil, fmt.Errorf("hostns: RuleAction.NameBind expects 2 args")
		}
		name, _ := args[0].(string)
		e, err := exprArg(args[1])
		if err != nil {
			return nil, err
		}
		return &RuleActionValue{Tag: "Expr", Expr: &grammar.Expr{Kind: grammar.ExprNameBind, BindName: name, BindExpr: e}}, nil

	case "Block":
		if len(args) < 1 {
			return nil, fmt.Errorf("hostns: RuleAction.Block expects a name and expressions")
		}
		name, _ := args[0].(string)
		block := &grammar.Block{Name: name}
		for _, a := range args[1:] {
			e, err := exprArg(a)
			if err != nil {
				return nil, err
			}
			block.Exprs = append(block.Exprs, &grammar.AnnotatedExpr{Expr: *e})
		}
		return &RuleActionValue{Tag: "Block", Block: block}, nil

	case "Rule":
		if len(args) < 1 {
			return nil, fmt.Errorf("hostns: RuleAction.Rule expects a name and blocks")
		}
		name, _ := args[0].(string)
		rule := &grammar.Rule{Name: name}
		for _, a := range args[1:] {
			rv, ok := a.(*RuleActionValue)
			if !ok || rv.Tag != "Block" {
				return nil, fmt.Errorf("hostns: RuleAction.Rule expected Block values")
			}
			rule.Blocks = append(rule.Blocks, rv.Block)
		}
		return &RuleActionValue{Tag: "Rule", Rule: rule}, nil

	case "File":
		file := &grammar.GrammarFile{}
		for _, a := range args {
			rv, ok := a.(*RuleActionValue)
			if !ok || rv.Tag != "Rule" {
				return nil, fmt.Errorf("hostns: RuleAction.File expected Rule values")
			}
			file.Rules = append(file.Rules, rv.Rule)
		}
		return &RuleActionValue{Tag: "File", File: file}, nil

	default:
		return nil, &ErrUnknownConstructor{NS: ns.Name(), Ctor: ctor}
	}
}

func (ruleActionNS) CreateEvalCtx(v Value) EvalCtx { return nil }

func (ns ruleActionNS) EvalToGrammar(v Value, ctx EvalCtx) (*grammar.GrammarFile, error) {
	rv, ok := v.(*RuleActionValue)
	if !ok || rv.Tag != "File" {
		return nil, &ErrNotAGrammar{NS: ns.Name()}
	}
	return rv.File, nil
}

// CoreExprNamespace is "the host-provided expression namespace" of
// spec.md §4.6: it lets an AtAdapt operand be the *grammar.GrammarFile
// that a core-calculus GrammarValue node carries, passed directly as the
// Value (not the arena.Expr itself), the case where the adapting grammar was
// itself computed by the dependently-typed core rather than assembled by
// RuleAction constructors.
type CoreExprNamespace struct{}

func (CoreExprNamespace) Name() string { return "CoreExpr" }

func (ns CoreExprNamespace) FromConstruct(ctor string, args []Value) (Value, error) {
	return nil, &ErrUnknownConstructor{NS: ns.Name(), Ctor: ctor}
}

func (CoreExprNamespace) CreateEvalCtx(v Value) EvalCtx { return nil }

func (ns CoreExprNamespace) EvalToGrammar(v Value, ctx EvalCtx) (*grammar.GrammarFile, error) {
	gf, ok := v.(*grammar.GrammarFile)
	if !ok {
		return nil, &ErrNotAGrammar{NS: ns.Name()}
	}
	return gf, nil
}

// Standard registers the four built-in namespaces the original source
// ships (spec.md §4.6/§9): ActionResult, ParsedList, RuleAction, CoreExpr.
func Standard() *Registry {
	r := NewRegistry()
	r.Register(NewActionResultNamespace())
	r.Register(NewParsedListNamespace())
	r.Register(NewRuleActionNamespace())
	r.Register(CoreExprNamespace{})
	return r
}
