package exhaust

import "github.com/prism-lang/prismc/pkg/arena"

// CoreExpr exhaustively generates small well-scoped core terms (no test
// in this module calls it). scope lists the UniqueVariableIDs of binders
// currently in view, innermost last, mirroring the de Bruijn convention
// of pkg/arena.Env.
func CoreExpr(t *Taker, a *arena.Arena, scope []arena.UniqueVariableID) arena.Index {
	base := func(t *Taker) arena.Index {
		if len(scope) > 0 && t.Bool() {
			depth := t.Choice(len(scope))
			return a.Insert(arena.Expr{Kind: arena.ExprDeBruijn, DeBruijnN: depth},
				arena.Origin{Kind: arena.OriginSourceCode})
		}
		return a.Insert(arena.Expr{Kind: arena.ExprType}, arena.Origin{Kind: arena.OriginSourceCode})
	}
	recurse := func(t *Taker) arena.Index {
		switch t.Choice(3) {
		case 0:
			dom := CoreExpr(t, a, scope)
			id := a.NewUniqueVariableID()
			cod := CoreExpr(t, a, append(append([]arena.UniqueVariableID{}, scope...), id))
			return a.Insert(arena.Expr{Kind: arena.ExprFnType, FnA: dom, FnB: cod}, arena.Origin{Kind: arena.OriginSourceCode})
		case 1:
			id := a.NewUniqueVariableID()
			body := CoreExpr(t, a, append(append([]arena.UniqueVariableID{}, scope...), id))
			return a.Insert(arena.Expr{Kind: arena.ExprFnConstruct, FnB: body}, arena.Origin{Kind: arena.OriginSourceCode})
		default:
			fn := CoreExpr(t, a, scope)
			arg := CoreExpr(t, a, scope)
			return a.Insert(arena.Expr{Kind: arena.ExprFnDestruct, DestructFn: fn, DestructArg: arg}, arena.Origin{Kind: arena.OriginSourceCode})
		}
	}
	return Recurse(t, base, recurse)
}

// CoreExprs enumerates every well-scoped closed core term (empty scope)
// up to maxLen choice-units, freshly inserted into a itself.
func CoreExprs(a *arena.Arena, maxLen int) func(yield func(arena.Index) bool) {
	return func(yield func(arena.Index) bool) {
		for i := range All(maxLen, func(t *Taker) arena.Index { return CoreExpr(t, a, nil) }) {
			if !yield(i) {
				return
			}
		}
	}
}
