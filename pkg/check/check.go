// Package check implements the Type Checker of spec.md §4.10: a
// bidirectional, mode-less synthesizer over the term arena, emitting
// unification constraints through pkg/unify and recording its own
// checked-type memo in the arena's side table.
//
// Grounded on ast/check.go's typeChecker shape (a single-pass synthesizer
// that accumulates *Errors rather than aborting on the first failure) and
// original_source/prism_compiler/src/type_check/mod.rs for the exact
// per-constructor synthesis rules.
package check

import (
	"fmt"

	"github.com/prism-lang/prismc/pkg/arena"
	"github.com/prism-lang/prismc/pkg/reduce"
	"github.com/prism-lang/prismc/pkg/unify"
)

// ErrorKind tags the checker's own error taxonomy (distinct from
// unify.Error, which reports beta-equality failures).
type ErrorKind int

const (
	ErrIndexOutOfBound ErrorKind = iota
	ErrFailedTypeAssert
)

// Error is one type-checking failure.
type Error struct {
	Kind ErrorKind
	Expr arena.Index
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrIndexOutOfBound:
		return fmt.Sprintf("check: de Bruijn index out of bound at %v", e.Expr)
	default:
		return fmt.Sprintf("check: failed type assertion at %v", e.Expr)
	}
}

// Checker walks the arena synthesizing a type for every CorePrismExpr it
// visits, memoizing through arena.SetCheckedType/CheckedType.
//
// Per DESIGN.md's Open Question #1 decision, a Free node's type is queued
// (queued) rather than eagerly retyped when the Free is later
// filled by pkg/unify; re-synthesis instead happens lazily, the next time
// something actually queries the type of that index (Synth re-checks
// queued indices whose backing node is no longer Free before trusting any
// stale memo).
type Checker struct {
	arena   *arena.Arena
	unifier *unify.Unifier
	queued  map[arena.Index]*arena.Env
}

// New returns a Checker sharing a with u.
func New(a *arena.Arena, u *unify.Unifier) *Checker {
	return &Checker{arena: a, unifier: u, queued: make(map[arena.Index]*arena.Env)}
}

// Synth synthesizes the type of (i, s), per spec.md §4.10's table. Errors
// are appended to errs; on error the returned type is still usable (a
// fresh Free stands in for "unknown"), matching the checker's
// continue-past-errors discipline.
func (c *Checker) Synth(i arena.Index, s *arena.Env, errs *[]error) arena.Index {
	if env, wasQueued := c.queued[i]; wasQueued && !c.arena.IsFree(i) {
		// The hole behind this queued index was filled since we last
		// memoized it: the old memo (computed against Free) is stale.
		delete(c.queued, i)
		c.arena.SetCheckedType(i, -1)
		_ = env
	}
	if t, ok := c.arena.CheckedType(i); ok {
		return t
	}

	e := c.arena.Get(i)
	var result arena.Index

	switch e.Kind {
	case arena.ExprType:
		result = c.typeIndex()

	case arena.ExprLet:
		vt := c.Synth(e.LetValue, s, errs)
		bodyEnv := s.Cons(arena.CSubst(e.LetValue, vt))
		result = c.Synth(e.LetBody, bodyEnv, errs)

	case arena.ExprDeBruijn:
		if e.DeBruijnN >= s.Len() {
			*errs = append(*errs, &Error{Kind: ErrIndexOutOfBound, Expr: i})
			result = c.arena.Free(arena.Origin{Kind: arena.OriginFailure})
			break
		}
		entry := s.At(e.DeBruijnN)
		var entryType arena.Index
		switch entry.Kind {
		case arena.EnvCType, arena.EnvCSubst:
			entryType = entry.Type
		default:
			panic("check: DeBruijnIndex resolved to a reduction-only env entry")
		}
		result = c.arena.Insert(arena.Expr{Kind: arena.ExprShift, ShiftVal: entryType, ShiftK: e.DeBruijnN + 1},
			arena.Origin{Kind: arena.OriginTypeOf, Of: i})

	case arena.ExprFnType:
		c.expectBeqType(e.FnA, s, errs)
		id := c.arena.NewUniqueVariableID()
		bodyEnv := s.Cons(arena.CType(id, e.FnA))
		c.expectBeqType(e.FnB, bodyEnv, errs)
		result = c.typeIndex()

	case arena.ExprFnConstruct:
		a2 := c.arena.Free(arena.Origin{Kind: arena.OriginTypeOf, Of: i})
		id := c.arena.NewUniqueVariableID()
		bodyEnv := s.Cons(arena.CType(id, a2))
		t := c.Synth(e.FnB, bodyEnv, errs)
		result = c.arena.Insert(arena.Expr{Kind: arena.ExprFnType, FnA: a2, FnB: t},
			arena.Origin{Kind: arena.OriginTypeOf, Of: i})

	case arena.ExprFnDestruct:
		at := c.Synth(e.DestructArg, s, errs)
		ft := c.Synth(e.DestructFn, s, errs)
		_, rt, rtEnv, ok := c.unifier.ExpectBeqFnType(ft, s, at, s, errs)
		if !ok {
			result = c.arena.Free(arena.Origin{Kind: arena.OriginFailure})
			break
		}
		result = c.arena.Insert(arena.Expr{Kind: arena.ExprLet, LetValue: e.DestructArg, LetBody: rt},
			arena.Origin{Kind: arena.OriginTypeOf, Of: i})
		_ = rtEnv

	case arena.ExprTypeAssert:
		et := c.Synth(e.AssertExpr, s, errs)
		tt := c.Synth(e.AssertType, s, errs)
		c.expectBeqTypeIndex(tt, s, errs)
		c.expectBeqAssert(e.AssertExpr, et, e.AssertType, s, errs)
		result = et

	case arena.ExprFree:
		tid := c.arena.Free(arena.Origin{Kind: arena.OriginTypeOf, Of: i})
		c.queued[i] = s
		result = tid

	case arena.ExprGrammarValue:
		result = c.grammarTypeIndex()

	case arena.ExprGrammarType:
		result = c.typeIndex()

	default:
		panic(fmt.Sprintf("check: unhandled ExprKind %d", e.Kind))
	}

	c.arena.SetCheckedType(i, result)
	return result
}

func (c *Checker) typeIndex() arena.Index {
	return c.arena.Insert(arena.Expr{Kind: arena.ExprType}, arena.Origin{Kind: arena.OriginFreeSub})
}

func (c *Checker) grammarTypeIndex() arena.Index {
	return c.arena.Insert(arena.Expr{Kind: arena.ExprGrammarType}, arena.Origin{Kind: arena.OriginFreeSub})
}

// expectBeqType synthesizes i's type and unifies it against Type, per
// expect_beq_type(io, s).
func (c *Checker) expectBeqType(i arena.Index, s *arena.Env, errs *[]error) {
	t := c.Synth(i, s, errs)
	c.expectBeqTypeIndex(t, s, errs)
}

func (c *Checker) expectBeqTypeIndex(t arena.Index, s *arena.Env, errs *[]error) {
	hi, hs := reduce.Head(c.arena, t, s)
	e := c.arena.Get(hi)
	switch e.Kind {
	case arena.ExprType:
		return
	case arena.ExprFree:
		c.arena.Fill(hi, arena.Expr{Kind: arena.ExprType})
		c.unifier.HandleConstraints(hi, hs, errs)
	default:
		*errs = append(*errs, &Error{Kind: ErrFailedTypeAssert, Expr: t})
	}
}

// expectBeqAssert implements expect_beq_assert(expr, expr_type,
// expected_type, s): unify expr_type against expected_type, reporting a
// FailedTypeAssert (tagged with expr) rather than a raw unify.Error on
// mismatch.
func (c *Checker) expectBeqAssert(expr, exprType, expectedType arena.Index, s *arena.Env, errs *[]error) {
	var sub []error
	c.unifier.ExpectBeq(exprType, s, expectedType, s, &sub)
	if len(sub) > 0 {
		*errs = append(*errs, &Error{Kind: ErrFailedTypeAssert, Expr: expr})
	}
}
