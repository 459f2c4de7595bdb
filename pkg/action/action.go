// Package action implements the Action Evaluator of spec.md §4.6: actions
// are total functions from (span, var-map, arena) to opaque parsed values,
// dispatched through the pkg/hostns namespace registry.
//
// Grounded on ast/parser.go's `onAction`/value-construction callbacks
// (pigeon actions are themselves "total functions from the current match
// to a value"), generalized from one fixed Go AST to namespace-dispatched
// construction.
package action

import (
	"fmt"

	"github.com/prism-lang/prismc/pkg/gramstate"
	"github.com/prism-lang/prismc/pkg/grammar"
	"github.com/prism-lang/prismc/pkg/hostns"
	"github.com/prism-lang/prismc/pkg/source"
)

// EnvCapture is the value produced by a CaptureEnv action: the wrapped
// value together with the var-map visible at the point it was captured,
// used by grammar-aware hosts to embed source positions' variable scopes
// (spec.md §4.6).
type EnvCapture struct {
	Value hostns.Value
	Vars  *gramstate.VarMap
}

// Evaluator evaluates grammar.Action values against a namespace registry.
type Evaluator struct {
	registry *hostns.Registry
}

// New returns an Evaluator dispatching Construct actions through registry.
func New(registry *hostns.Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Eval evaluates act over span and the currently visible vars, per
// spec.md §4.6's per-variant rules. Panics if a Name action references a
// binding absent from vars — the parser guarantees by construction
// (grammar IR's invariant, spec.md §3.2) that every RunVar the action set
// references is actually bound by the expression it annotates.
func (ev *Evaluator) Eval(act grammar.Action, span source.Span, vars *gramstate.VarMap) (hostns.Value, error) {
	switch act.Kind {
	case grammar.ActName:
		v, ok := vars.Get(act.Name)
		if !ok {
			panic(fmt.Sprintf("action: Name(%q) not bound in var-map", act.Name))
		}
		if v.IsRule || v.Closure != nil {
			panic(fmt.Sprintf("action: Name(%q) resolved to a rule/closure, not a parsed value", act.Name))
		}
		return v.Value, nil

	case grammar.ActLiteral:
		return act.Literal, nil

	case grammar.ActConstruct:
		ns, ok := ev.registry.Lookup(act.NS)
		if !ok {
			return nil, &hostns.ErrUnknownNamespace{Name: act.NS}
		}
		args := make([]hostns.Value, len(act.Args))
		for i, a := range act.Args {
			v, err := ev.Eval(a, span, vars)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return ns.FromConstruct(act.Ctor, args)

	case grammar.ActCons:
		head, err := ev.Eval(*act.Head, span, vars)
		if err != nil {
			return nil, err
		}
		tailV, err := ev.Eval(*act.Tail, span, vars)
		if err != nil {
			return nil, err
		}
		tail, _ := tailV.(*hostns.ParsedList)
		return &hostns.ParsedList{Head: head, Tail: tail}, nil

	case grammar.ActNil:
		return (*hostns.ParsedList)(nil), nil

	case grammar.ActCaptureEnv:
		v, err := ev.Eval(*act.Value, span, vars)
		if err != nil {
			return nil, err
		}
		return &EnvCapture{Value: v, Vars: vars}, nil

	default:
		panic(fmt.Sprintf("action: unhandled ActionKind %d", act.Kind))
	}
}
