// Package grammar defines the immutable-after-construction grammar IR of
// spec.md §3.2/§3.3: GrammarFile, Rule, Block, AnnotatedExpr, Annotation,
// Expr and Action.
//
// Grounded on ast/policy.go's shape (an immutable tree built once by a
// parser, walked many times by the engine/checker), generalized from Rego's
// fixed rule structure to a meta-grammar that can describe itself.
package grammar

import "github.com/prism-lang/prismc/pkg/charclass"

// GrammarFile is an ordered sequence of rules.
type GrammarFile struct {
	Rules []*Rule
}

// Rule is a named, possibly-parametric production with an ordered sequence
// of blocks.
type Rule struct {
	Name   string
	Args   []string // formal-arg list
	Adapt  bool
	Blocks []*Block
}

// Block is a named, ordered sequence of annotated expressions that form one
// precedence level (or similar grouping) of a rule.
type Block struct {
	Name  string
	Adapt bool
	Exprs []*AnnotatedExpr
}

// AnnotatedExpr pairs an ordered list of annotations with the expression
// they modify.
type AnnotatedExpr struct {
	Annotations []Annotation
	Expr        Expr
}

// AnnotationKind tags the variant of Annotation.
type AnnotationKind int

const (
	AnnError AnnotationKind = iota
	AnnDisableLayout
	AnnEnableLayout
	AnnDisableRecovery
	AnnEnableRecovery
)

// Annotation is one of: Error(msg), DisableLayout, EnableLayout,
// DisableRecovery, EnableRecovery.
type Annotation struct {
	Kind AnnotationKind
	Msg  string // only set when Kind == AnnError
}

// ExprKind tags the variant of Expr.
type ExprKind int

const (
	ExprRunVar ExprKind = iota
	ExprCharClass
	ExprLiteral
	ExprRepeat
	ExprSequence
	ExprChoice
	ExprNameBind
	ExprAction
	ExprSliceInput
	ExprPosLookahead
	ExprNegLookahead
	ExprAtAdapt
	ExprGuid
)

// Expr is the tagged-variant expression type of spec.md §3.3. Only the
// fields relevant to Kind are meaningful; this mirrors ast/policy.go's
// pattern of one struct per tagged union arm kept in separate Go types,
// but spec.md's Expr is recursive over a single closed set so a single
// struct with a Kind tag (the pigeon-generated parser.go idiom for
// `expr interface{}` dispatch, made concrete) is the more idiomatic fit.
type Expr struct {
	Kind ExprKind

	// ExprRunVar
	RunVarName string
	RunVarArgs []Expr

	// ExprCharClass
	Class charclass.Class

	// ExprLiteral
	Literal string

	// ExprRepeat
	RepeatExpr  *Expr
	RepeatMin   int
	RepeatMax   int // -1 means unbounded
	RepeatDelim *Expr

	// ExprSequence / ExprChoice
	Subs []Expr

	// ExprNameBind
	BindName string
	BindExpr *Expr

	// ExprAction
	ActionExpr *Expr
	Act        Action

	// ExprSliceInput / ExprPosLookahead / ExprNegLookahead
	Inner *Expr

	// ExprAtAdapt
	AdaptNS      string
	AdaptVarName string
	AdaptBody    *Expr
}

// ActionKind tags the variant of Action.
type ActionKind int

const (
	ActName ActionKind = iota
	ActLiteral
	ActConstruct
	ActCons
	ActNil
	ActCaptureEnv
)

// Action is a tagged variant: Name, Literal, Construct(ns,ctor,args), Cons,
// Nil, CaptureEnv.
type Action struct {
	Kind ActionKind

	Name    string // ActName
	Literal string // ActLiteral

	NS    string   // ActConstruct
	Ctor  string   // ActConstruct
	Args  []Action // ActConstruct

	Head *Action // ActCons
	Tail *Action // ActCons

	Value *Action // ActCaptureEnv: the wrapped action whose var-map is captured
}

// ReservedThis and ReservedNext are the reserved RunVar names of spec.md §3.2.
const (
	ReservedThis = "#this"
	ReservedNext = "#next"
)

// RuleByName returns the rule with the given name, or nil.
func (g *GrammarFile) RuleByName(name string) *Rule {
	for _, r := range g.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// BlockByName returns the block with the given name, or nil.
func (r *Rule) BlockByName(name string) *Block {
	for _, b := range r.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// HasArg reports whether name is a formal argument of r.
func (r *Rule) HasArg(name string) bool {
	for _, a := range r.Args {
		if a == name {
			return true
		}
	}
	return false
}
