package gramstate

import "github.com/prism-lang/prismc/pkg/grammar"

// RuleClosure is a stored expression together with the blocks, arguments
// and variables it captured at the site it was created — the "reparse this
// expression in its captured context" value of spec.md §4.3's RunVar rule.
// Grounded on spec.md §9's "cyclic let-bindings in closures: capture by
// immutable persistent map."
type RuleClosure struct {
	Expr     *grammar.Expr
	Blocks   []*BlockState
	ArgNames []string // formal arg names of the enclosing rule, for rebinding on #this/#next
	CapArgs  []VarMapValue
	CapVars  *VarMap
}

// NewClosure captures expr together with the current block list, the
// enclosing rule's formal argument names, the caller-supplied argument
// values, and the currently visible variables.
func NewClosure(expr *grammar.Expr, blocks []*BlockState, argNames []string, args []VarMapValue, vars *VarMap) *RuleClosure {
	return &RuleClosure{Expr: expr, Blocks: blocks, ArgNames: argNames, CapArgs: args, CapVars: vars}
}
