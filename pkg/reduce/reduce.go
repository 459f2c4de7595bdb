// Package reduce implements the Beta Reducer of spec.md §4.8:
// head-normalization under an explicit environment, plus beta_reduce_full
// which recursively reduces under binders.
//
// Grounded on original_source/prism-compiler/src/lang/beta_reduce.rs.
package reduce

import "github.com/prism-lang/prismc/pkg/arena"

// Head reduces (i, s) to head-normal form: consults s only as far as
// needed to expose the outermost constructor, per spec.md §4.8's case
// table. Returns the (possibly different) index and the environment it
// must be read in.
func Head(a *arena.Arena, i arena.Index, s *arena.Env) (arena.Index, *arena.Env) {
	for {
		e := a.Get(i)
		switch e.Kind {
		case arena.ExprType, arena.ExprFnType, arena.ExprFnConstruct,
			arena.ExprFree, arena.ExprGrammarType, arena.ExprGrammarValue:
			return i, s

		case arena.ExprLet:
			i, s = e.LetBody, s.Cons(arena.RSubst(e.LetValue, s))

		case arena.ExprDeBruijn:
			entry := s.At(e.DeBruijnN)
			switch entry.Kind {
			case arena.EnvCSubst:
				i, s = entry.Value, arena.Nil
			case arena.EnvRSubst:
				i, s = entry.Value, entry.SubstEnv
			case arena.EnvCType, arena.EnvRType:
				// Opaque (free variable): already head-normal at this
				// index/env pair.
				return i, s
			}

		case arena.ExprFnDestruct:
			fi, fs := Head(a, e.DestructFn, s)
			fe := a.Get(fi)
			if fe.Kind != arena.ExprFnConstruct {
				return i, s
			}
			i, s = fe.FnB, fs.Cons(arena.RSubst(e.DestructArg, s))

		case arena.ExprShift:
			i, s = e.ShiftVal, s.Shift(e.ShiftK)

		case arena.ExprTypeAssert:
			i, s = e.AssertExpr, s

		default:
			return i, s
		}
	}
}

// Full recursively reduces i under binders, returning a new arena.Index
// that is self-contained (valid under arena.Nil): every reachable
// DeBruijnIndex has been substituted away or relocated into the caller's
// frame using freshly minted UniqueVariableIDs, per spec.md §4.8's
// beta_reduce_full.
func Full(a *arena.Arena, i arena.Index, s *arena.Env) arena.Index {
	hi, hs := Head(a, i, s)
	e := a.Get(hi)
	switch e.Kind {
	case arena.ExprType, arena.ExprFree, arena.ExprGrammarType, arena.ExprGrammarValue:
		return hi

	case arena.ExprDeBruijn:
		entry := hs.At(e.DeBruijnN)
		switch entry.Kind {
		case arena.EnvCType, arena.EnvRType:
			// Opaque free variable: relocate to the caller's frame by
			// reinserting a DeBruijnIndex pointing at the binder with this
			// UniqueVariableID, found by walking hs from the front.
			depth := indexOf(hs, entry.ID)
			return a.Insert(arena.Expr{Kind: arena.ExprDeBruijn, DeBruijnN: depth},
				arena.Origin{Kind: arena.OriginFreeSub, Of: hi})
		default:
			panic("reduce: head-normal DeBruijn must resolve to an opaque binder")
		}

	case arena.ExprFnType:
		a2 := Full(a, e.FnA, hs)
		id := a.NewUniqueVariableID()
		b2 := Full(a, e.FnB, hs.Cons(arena.RType(id)))
		return a.Insert(arena.Expr{Kind: arena.ExprFnType, FnA: a2, FnB: b2},
			arena.Origin{Kind: arena.OriginFreeSub, Of: hi})

	case arena.ExprFnConstruct:
		id := a.NewUniqueVariableID()
		b2 := Full(a, e.FnB, hs.Cons(arena.RType(id)))
		return a.Insert(arena.Expr{Kind: arena.ExprFnConstruct, FnB: b2},
			arena.Origin{Kind: arena.OriginFreeSub, Of: hi})

	case arena.ExprFnDestruct:
		f2 := Full(a, e.DestructFn, hs)
		arg2 := Full(a, e.DestructArg, hs)
		return a.Insert(arena.Expr{Kind: arena.ExprFnDestruct, DestructFn: f2, DestructArg: arg2},
			arena.Origin{Kind: arena.OriginFreeSub, Of: hi})

	default:
		// TypeAssert/Let/Shift are stripped away by Head; anything left is
		// already one of the handled shapes.
		return hi
	}
}

// indexOf finds how many Cons steps from the front of env the binder with
// id sits at.
func indexOf(env *arena.Env, id arena.UniqueVariableID) int {
	depth := 0
	for n := env; n != nil; {
		entry := n.At(0)
		if (entry.Kind == arena.EnvCType || entry.Kind == arena.EnvRType) && entry.ID == id {
			return depth
		}
		depth++
		n = n.Shift(1)
	}
	panic("reduce: UniqueVariableID not found while relocating")
}
