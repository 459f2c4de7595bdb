// Package unify implements the Equality / Unifier of spec.md §4.9:
// structural beta-equality with metavariable filling, occurs-checked via a
// "toxic" set, and a queue of constraints on Free/Free pairs replayed when
// either side is later filled.
//
// Grounded on original_source/prism-compiler/src/coc/expect_beq.rs and
// .../lang/expect_beq_internal.rs (see DESIGN.md's Open Question #1 for how
// the queued-constraint replay timing was decided).
package unify

import (
	"fmt"

	"github.com/prism-lang/prismc/internal/plog"
	"github.com/prism-lang/prismc/pkg/arena"
	"github.com/prism-lang/prismc/pkg/reduce"
)

// ErrorKind tags the Unifier's error taxonomy (spec.md §7).
type ErrorKind int

const (
	ErrMismatch ErrorKind = iota
	ErrInfiniteType
	ErrExpectedFn
)

// Error is one unification failure.
type Error struct {
	Kind ErrorKind
	I, J arena.Index // meaningful for ErrInfiniteType
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrInfiniteType:
		return fmt.Sprintf("unify: infinite type: %v occurs in %v", e.I, e.J)
	case ErrExpectedFn:
		return "unify: expected a function type"
	default:
		return "unify: beta-equality mismatch"
	}
}

// side pairs an index with the environment it must be read in, plus the
// var-map used to relocate UniqueVariableIDs across the two sides being
// compared (spec.md §4.9's Var i / Var j rule).
type side struct {
	i      arena.Index
	env    *arena.Env
	varMap map[arena.UniqueVariableID]int // id -> depth recorded when entering a binder on this side
}

type queuedConstraint struct {
	self  side
	other side
}

// Unifier runs expect_beq over one Arena. Its queue/toxic state is scoped
// to one elaboration session (spec.md §5: the arena is exclusively owned by
// one elaborator session).
type Unifier struct {
	arena *arena.Arena
	queue map[arena.Index][]queuedConstraint
	toxic map[arena.Index]bool
}

// New returns a Unifier over a.
func New(a *arena.Arena) *Unifier {
	return &Unifier{arena: a, queue: make(map[arena.Index][]queuedConstraint), toxic: make(map[arena.Index]bool)}
}

// ExpectBeq is spec.md §4.9's expect_beq(i1@s1, i2@s2): head-reduces both
// sides and checks structural beta-equality, filling Free holes as needed.
// Errors are appended to errs rather than aborting (the checker continues
// past a single failed equality, per spec.md §7).
func (u *Unifier) ExpectBeq(i1 arena.Index, s1 *arena.Env, i2 arena.Index, s2 *arena.Env, errs *[]error) {
	u.expectBeq(side{i1, s1, map[arena.UniqueVariableID]int{}}, side{i2, s2, map[arena.UniqueVariableID]int{}}, errs)
}

func (u *Unifier) expectBeq(a, b side, errs *[]error) {
	hi1, hs1 := reduce.Head(u.arena, a.i, a.env)
	hi2, hs2 := reduce.Head(u.arena, b.i, b.env)
	a = side{hi1, hs1, a.varMap}
	b = side{hi2, hs2, b.varMap}

	e1 := u.arena.Get(hi1)
	e2 := u.arena.Get(hi2)

	switch {
	case e1.Kind == arena.ExprType && e2.Kind == arena.ExprType:
		return

	case e1.Kind == arena.ExprDeBruijn && e2.Kind == arena.ExprDeBruijn:
		id1 := binderID(hs1.At(e1.DeBruijnN))
		id2 := binderID(hs2.At(e2.DeBruijnN))
		if id1 != id2 {
			*errs = append(*errs, &Error{Kind: ErrMismatch})
		}

	case e1.Kind == arena.ExprFnType && e2.Kind == arena.ExprFnType:
		u.expectBeq(side{e1.FnA, hs1, a.varMap}, side{e2.FnA, hs2, b.varMap}, errs)
		id := u.arena.NewUniqueVariableID()
		u.expectBeq(side{e1.FnB, hs1.Cons(arena.RType(id)), a.varMap},
			side{e2.FnB, hs2.Cons(arena.RType(id)), b.varMap}, errs)

	case e1.Kind == arena.ExprFnConstruct && e2.Kind == arena.ExprFnConstruct:
		id := u.arena.NewUniqueVariableID()
		u.expectBeq(side{e1.FnB, hs1.Cons(arena.RType(id)), a.varMap},
			side{e2.FnB, hs2.Cons(arena.RType(id)), b.varMap}, errs)

	case e1.Kind == arena.ExprFnDestruct && e2.Kind == arena.ExprFnDestruct:
		u.expectBeq(side{e1.DestructFn, hs1, a.varMap}, side{e2.DestructFn, hs2, b.varMap}, errs)
		u.expectBeq(side{e1.DestructArg, hs1, a.varMap}, side{e2.DestructArg, hs2, b.varMap}, errs)

	case e1.Kind == arena.ExprFree && e2.Kind == arena.ExprFree:
		u.queue[hi1] = append(u.queue[hi1], queuedConstraint{self: a, other: b})
		u.queue[hi2] = append(u.queue[hi2], queuedConstraint{self: b, other: a})

	case e2.Kind == arena.ExprFree:
		u.fill(a, e1, b, errs)

	case e1.Kind == arena.ExprFree:
		u.fill(b, e2, a, errs)

	case e1.Kind == arena.ExprFnDestruct:
		// Spine elimination: unify f with lambda _. Shift(rhs, 1).
		u.eliminateSpine(a, e1, b, errs)

	case e2.Kind == arena.ExprFnDestruct:
		u.eliminateSpine(b, e2, a, errs)

	default:
		*errs = append(*errs, &Error{Kind: ErrMismatch})
	}
}

func binderID(entry arena.EnvEntry) arena.UniqueVariableID {
	switch entry.Kind {
	case arena.EnvCType, arena.EnvRType:
		return entry.ID
	default:
		panic("unify: head-normal DeBruijn must resolve to an opaque binder")
	}
}

// fill handles "otherFree is Free; fill it with a structural copy of
// concrete whose children are fresh Free nodes, then recurse
// (occurs-checked via the toxic set)" — spec.md §4.9.
func (u *Unifier) fill(concreteSide side, concrete arena.Expr, freeSide side, errs *[]error) {
	freeIdx := freeSide.i
	if u.toxic[concreteSide.i] {
		*errs = append(*errs, &Error{Kind: ErrInfiniteType, I: concreteSide.i, J: freeIdx})
		return
	}
	u.toxic[freeIdx] = true
	defer delete(u.toxic, freeIdx)

	origin := arena.Origin{Kind: arena.OriginFreeSub, Of: concreteSide.i}
	switch concrete.Kind {
	case arena.ExprType:
		u.arena.Fill(freeIdx, arena.Expr{Kind: arena.ExprType})
	case arena.ExprFnType:
		a2 := u.arena.Free(origin)
		b2 := u.arena.Free(origin)
		u.arena.Fill(freeIdx, arena.Expr{Kind: arena.ExprFnType, FnA: a2, FnB: b2})
	case arena.ExprFnConstruct:
		b2 := u.arena.Free(origin)
		u.arena.Fill(freeIdx, arena.Expr{Kind: arena.ExprFnConstruct, FnB: b2})
	case arena.ExprFnDestruct:
		f2 := u.arena.Free(origin)
		arg2 := u.arena.Free(origin)
		u.arena.Fill(freeIdx, arena.Expr{Kind: arena.ExprFnDestruct, DestructFn: f2, DestructArg: arg2})
	case arena.ExprDeBruijn:
		u.arena.Fill(freeIdx, concrete)
	default:
		*errs = append(*errs, &Error{Kind: ErrMismatch})
		return
	}
	u.expectBeq(concreteSide, freeSide, errs)
	u.HandleConstraints(freeIdx, freeSide.env, errs)
}

// eliminateSpine unifies a FnDestruct(f,_) against a non-destruct term by
// unifying f with lambda _. Shift(rhs, 1) (spec.md §4.9's last case).
func (u *Unifier) eliminateSpine(destructSide side, destruct arena.Expr, other side, errs *[]error) {
	shifted := u.arena.Insert(arena.Expr{Kind: arena.ExprShift, ShiftVal: other.i, ShiftK: 1},
		arena.Origin{Kind: arena.OriginFreeSub, Of: other.i})
	lam := u.arena.Insert(arena.Expr{Kind: arena.ExprFnConstruct, FnB: shifted},
		arena.Origin{Kind: arena.OriginFreeSub, Of: other.i})
	u.expectBeq(side{destruct.DestructFn, destructSide.env, destructSide.varMap}, side{lam, other.env, other.varMap}, errs)
}

// HandleConstraints replays every queued constraint referencing i (now
// filled), per spec.md §4.9's "whenever a Free is later filled, replay all
// queued constraints referencing it."
func (u *Unifier) HandleConstraints(i arena.Index, s *arena.Env, errs *[]error) {
	qs := u.queue[i]
	delete(u.queue, i)
	plog.TraceConstraint(int(i), len(qs), u.toxic[i])
	for _, q := range qs {
		u.expectBeq(side{i, s, q.self.varMap}, q.other, errs)
	}
}

// ExpectBeqFnType implements spec.md §4.10's expect_beq_fn_type(ft, at, rt,
// s): head-reduces ft; if FnType, unifies the argument type and returns the
// (already-known) return type; if Free, expands it structurally to
// FnType(?,?) first; otherwise reports ExpectedFn.
func (u *Unifier) ExpectBeqFnType(ft arena.Index, s *arena.Env, at arena.Index, as *arena.Env, errs *[]error) (dom, cod arena.Index, codEnv *arena.Env, ok bool) {
	hi, hs := reduce.Head(u.arena, ft, s)
	e := u.arena.Get(hi)
	if e.Kind == arena.ExprFree {
		origin := arena.Origin{Kind: arena.OriginFreeSub, Of: hi}
		a2 := u.arena.Free(origin)
		b2 := u.arena.Free(origin)
		u.arena.Fill(hi, arena.Expr{Kind: arena.ExprFnType, FnA: a2, FnB: b2})
		u.HandleConstraints(hi, hs, errs)
		e = u.arena.Get(hi)
	}
	if e.Kind != arena.ExprFnType {
		*errs = append(*errs, &Error{Kind: ErrExpectedFn})
		return 0, 0, nil, false
	}
	u.ExpectBeq(e.FnA, hs, at, as, errs)
	return e.FnA, e.FnB, hs, true
}
