// Package hostns implements the Host Namespaces registry of spec.md §4.6/§9:
// a `ns-name -> vtable` table of constructor dispatchers that the action
// evaluator (pkg/action) and the AtAdapt parser rule (pkg/peg) use to turn
// grammar Action values into opaque parsed values, and opaque parsed values
// back into grammars.
//
// Grounded on ast/parser.go's currentParser-style dispatch, generalized from
// "one hardcoded AST" to spec.md §9's "dynamic namespaces for action
// values": each namespace is registered by name and supplies the three
// operations spec.md's action evaluator needs.
package hostns

import (
	"fmt"

	"github.com/prism-lang/prismc/pkg/grammar"
)

// Value is an opaque parsed value, produced by one namespace and consumed
// by another (or returned to the caller of a `run`).
type Value any

// EvalCtx is an opaque evaluation context handed back by CreateEvalCtx and
// threaded into EvalToGrammar — its shape is private to each namespace.
type EvalCtx any

// Namespace is the vtable a ctor-name resolves into, per spec.md §4.6.
type Namespace interface {
	// Name is the namespace identifier actions reference (e.g. "ActionResult").
	Name() string
	// FromConstruct builds a Value for Construct{ns, ctor, args}.
	FromConstruct(ctor string, args []Value) (Value, error)
	// CreateEvalCtx derives an evaluation context from v, used when v is
	// the grammar-var operand of an AtAdapt.
	CreateEvalCtx(v Value) EvalCtx
	// EvalToGrammar turns v (with ctx) into the GrammarFile an AtAdapt
	// splices into the running grammar state.
	EvalToGrammar(v Value, ctx EvalCtx) (*grammar.GrammarFile, error)
}

// Registry is the `ns-name -> vtable` table.
type Registry struct {
	namespaces map[string]Namespace
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]Namespace)}
}

// Register adds ns under its own Name(), panicking on a duplicate name —
// namespace registration happens once at startup, not per-parse.
func (r *Registry) Register(ns Namespace) {
	if _, exists := r.namespaces[ns.Name()]; exists {
		panic(fmt.Sprintf("hostns: namespace %q already registered", ns.Name()))
	}
	r.namespaces[ns.Name()] = ns
}

// Lookup resolves a namespace by name.
func (r *Registry) Lookup(name string) (Namespace, bool) {
	ns, ok := r.namespaces[name]
	return ns, ok
}

// ErrUnknownNamespace reports a Construct/AtAdapt referencing an
// unregistered namespace.
type ErrUnknownNamespace struct{ Name string }

func (e *ErrUnknownNamespace) Error() string {
	return fmt.Sprintf("hostns: unknown namespace %q", e.Name)
}

// ErrUnknownConstructor reports a Construct naming a ctor the namespace
// doesn't recognize.
type ErrUnknownConstructor struct{ NS, Ctor string }

func (e *ErrUnknownConstructor) Error() string {
	return fmt.Sprintf("hostns: namespace %q has no constructor %q", e.NS, e.Ctor)
}

// ErrNotAGrammar reports an AtAdapt whose grammar-var operand could not be
// converted to a grammar.GrammarFile.
type ErrNotAGrammar struct{ NS string }

func (e *ErrNotAGrammar) Error() string {
	return fmt.Sprintf("hostns: namespace %q cannot evaluate this value to a grammar", e.NS)
}
