// Package gramstate implements the Adaptive Grammar State of spec.md §3.4
// and §4.4: an append-only, versioned table of rule states, where
// adaptation produces a new state by extending the rule table and
// (for rules flagged adapt) appending new blocks/constructors while
// enforcing a topological invariant on block order.
//
// Grounded directly on
// original_source/prism-parser/src/core/adaptive.rs.
package gramstate

import (
	"fmt"

	"github.com/prism-lang/prismc/pkg/grammar"
	"github.com/prism-lang/prismc/pkg/source"
)

// RuleID addresses a RuleState by index into a State's rule table.
// Append-only semantics (spec.md §3.4 invariant): any RuleId valid in state
// S remains valid in any state derived from S.
type RuleID int

func (id RuleID) String() string { return fmt.Sprintf("#%d", int(id)) }

// Constructor pairs an annotated expression with the VarMap visible from
// the site where it was introduced (spec.md §3.4).
type Constructor struct {
	Expr *grammar.AnnotatedExpr
	Ctx  *VarMap
}

// BlockState is a named, ordered sequence of Constructors.
type BlockState struct {
	Name         string
	Constructors []Constructor
}

// RuleState is the adaptive counterpart of grammar.Rule: a name, formal
// args, and an ordered sequence of BlockStates.
type RuleState struct {
	Name   string
	Args   []string
	Blocks []*BlockState
}

func newEmptyRuleState(name string, args []string) *RuleState {
	return &RuleState{Name: name, Args: args}
}

func newBlockState(b *grammar.Block, ctx *VarMap) *BlockState {
	bs := &BlockState{Name: b.Name}
	for _, e := range b.Exprs {
		bs.Constructors = append(bs.Constructors, Constructor{Expr: e, Ctx: ctx})
	}
	return bs
}

// update zips bs with a new grammar.Block by name, appending the new
// block's constructors (tagged with ctx).
func (bs *BlockState) update(b *grammar.Block, ctx *VarMap) *BlockState {
	out := &BlockState{Name: bs.Name}
	out.Constructors = append(out.Constructors, bs.Constructors...)
	for _, e := range b.Exprs {
		out.Constructors = append(out.Constructors, Constructor{Expr: e, Ctx: ctx})
	}
	return out
}

// ErrToposortCycle is returned by RuleState.update when a new adapt-flagged
// block cannot be matched against an old block without contradicting block
// order (spec.md §4.4: "a new block marked adapt must appear after the
// matching old block").
var ErrToposortCycle = fmt.Errorf("gramstate: adapt-flagged block order contradicts existing topological order")

// update applies a grammar.Rule's blocks onto rs: non-adapt blocks are
// appended as fresh BlockStates; adapt blocks are matched, in order,
// against rs's existing blocks by name.
func (rs *RuleState) update(r *grammar.Rule, ctx *VarMap) (*RuleState, error) {
	out := &RuleState{Name: rs.Name, Args: rs.Args}
	oldIdx := 0
	for _, newBlock := range r.Blocks {
		if !newBlock.Adapt {
			out.Blocks = append(out.Blocks, newBlockState(newBlock, ctx))
			continue
		}
		matched := false
		for oldIdx < len(rs.Blocks) {
			old := rs.Blocks[oldIdx]
			oldIdx++
			if old.Name != newBlock.Name {
				out.Blocks = append(out.Blocks, old)
				continue
			}
			out.Blocks = append(out.Blocks, old.update(newBlock, ctx))
			matched = true
			break
		}
		if !matched {
			return nil, ErrToposortCycle
		}
	}
	for ; oldIdx < len(rs.Blocks); oldIdx++ {
		out.Blocks = append(out.Blocks, rs.Blocks[oldIdx])
	}
	return out, nil
}

// State is the GrammarState of spec.md §3.4/§4.4: an ordered table of
// RuleStates plus the position at which the last adaptation occurred.
type State struct {
	rules     []*RuleState
	lastMutAt *source.Position
}

// New returns the empty grammar state.
func New() *State {
	return &State{}
}

// Get resolves a RuleID. Safe for any RuleID ever returned by an earlier
// adaptation of this or an ancestor state, per the append-only invariant.
func (s *State) Get(id RuleID) *RuleState {
	if int(id) < 0 || int(id) >= len(s.rules) {
		return nil
	}
	return s.rules[id]
}

// ErrInvalidRuleMutation mirrors spec.md §7's InvalidRuleMutation(name).
type ErrInvalidRuleMutation struct{ Name string }

func (e *ErrInvalidRuleMutation) Error() string {
	return fmt.Sprintf("gramstate: invalid mutation of rule %q: %v", e.Name, ErrToposortCycle)
}

// ErrSamePositionAdaptation mirrors spec.md §7's SamePositionAdaptation(pos).
type ErrSamePositionAdaptation struct{ Pos source.Position }

func (e *ErrSamePositionAdaptation) Error() string {
	return fmt.Sprintf("gramstate: repeated adaptation at the same position %v", e.Pos)
}

// AdaptWith implements spec.md §4.4's adapt_with: refuses same-position
// re-adaptation; for each new rule, either resolves an existing RuleID (if
// adapt-flagged, looked up via ctx) or appends a fresh RuleState; then
// updates each matched rule's blocks. Returns the new state and the VarMap
// extended with name -> RuleID bindings for every rule named by g.
func (s *State) AdaptWith(g *grammar.GrammarFile, ctx *VarMap, pos *source.Position) (*State, *VarMap, error) {
	if pos != nil && s.lastMutAt != nil && *pos == *s.lastMutAt {
		return nil, nil, &ErrSamePositionAdaptation{Pos: *pos}
	}

	newRules := append([]*RuleState(nil), s.rules...)
	newCtx := ctx
	ids := make([]RuleID, len(g.Rules))

	for i, nr := range g.Rules {
		var id RuleID
		if nr.Adapt {
			v, ok := ctx.Get(nr.Name)
			if !ok || !v.IsRule {
				return nil, nil, &ErrInvalidRuleMutation{Name: nr.Name}
			}
			id = v.RuleID
		} else {
			newRules = append(newRules, newEmptyRuleState(nr.Name, nr.Args))
			id = RuleID(len(newRules) - 1)
		}
		ids[i] = id
		newCtx = newCtx.Insert(nr.Name, RuleIDValue(id))
	}

	for i, nr := range g.Rules {
		id := ids[i]
		updated, err := newRules[id].update(nr, newCtx)
		if err != nil {
			return nil, nil, &ErrInvalidRuleMutation{Name: nr.Name}
		}
		newRules[id] = updated
	}

	out := &State{rules: newRules, lastMutAt: pos}
	return out, newCtx, nil
}

// NewWith adapts an empty state with g, giving the initial GrammarState and
// VarMap for a fresh parse.
func NewWith(g *grammar.GrammarFile) (*State, *VarMap) {
	s, ctx, err := New().AdaptWith(g, Empty, nil)
	if err != nil {
		// Adapting into an empty state with pos=nil can only fail via
		// InvalidRuleMutation if g itself references an adapt-flagged rule
		// that doesn't exist yet, which is a malformed GrammarFile.
		panic(err)
	}
	return s, ctx
}
