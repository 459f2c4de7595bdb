// Package arena implements the Term Arena of spec.md §3.5: an append-only
// store of partial expressions with origin tags, plus the memoized
// checked_types side table.
//
// Grounded on ast/term.go's append-only Value storage discipline (terms
// referenced by identity, never freed), generalized to spec.md's
// CoreIndex/CorePrismExpr/ValueOrigin and the monotone-refinement-only
// mutation rule of spec.md §3.5/§5 ("nodes are mutable in place only to
// fill a Free hole").
package arena

import "fmt"

// Index is an index into the arena's append-only node vector. Numbering
// starts at 0, so the zero value is the index of the first inserted node,
// not a "no index" sentinel — callers that need one use a pointer or bool
// alongside.
type Index int

func (i Index) String() string { return fmt.Sprintf("@%d", int(i)) }

// UniqueVariableID identifies a binder across alpha-conversion. Minted
// monotonically; per spec.md §9, binder equality must never be compared by
// raw name — only by this id.
type UniqueVariableID uint64

// ExprKind tags the variant of Expr.
type ExprKind int

const (
	ExprFree ExprKind = iota
	ExprType
	ExprLet
	ExprDeBruijn
	ExprFnType
	ExprFnConstruct
	ExprFnDestruct
	ExprShift
	ExprTypeAssert
	ExprGrammarValue
	ExprGrammarType
)

// Expr is one CorePrismExpr node. Only the fields relevant to Kind are
// meaningful.
type Expr struct {
	Kind ExprKind

	// ExprLet: v is the bound value, b is the body (de Bruijn index 0 in b
	// refers to v).
	LetValue Index
	LetBody  Index

	// ExprDeBruijn
	DeBruijnN int

	// ExprFnType / ExprFnConstruct: a is the domain (FnType only),
	// b is the codomain/body.
	FnA Index
	FnB Index

	// ExprFnDestruct
	DestructFn  Index
	DestructArg Index

	// ExprShift
	ShiftVal Index
	ShiftK   int

	// ExprTypeAssert
	AssertExpr Index
	AssertType Index

	// ExprGrammarValue: an opaque handle into a grammar value (e.g. a
	// grammar.GrammarFile produced by an action and stored here so core
	// terms can carry grammar values, per spec.md §3.5).
	GrammarValue any
}

// OriginKind tags the variant of ValueOrigin.
type OriginKind int

const (
	OriginSourceCode OriginKind = iota
	OriginTypeOf
	OriginFreeSub
	OriginFailure
)

// Origin is a ValueOrigin tag: SourceCode(span), TypeOf(i), FreeSub(i), or
// Failure. SpanStart/SpanEnd are only meaningful for OriginSourceCode; Of is
// only meaningful for OriginTypeOf/OriginFreeSub.
type Origin struct {
	Kind     OriginKind
	SpanFile uint32
	SpanLo   int
	SpanHi   int
	Of       Index
}

// Arena is the append-only store of Expr nodes with a parallel vector of
// Origin tags and a memoized checked_types side table, exclusively owned by
// one elaborator session (spec.md §5).
type Arena struct {
	nodes   []Expr
	origins []Origin
	checked []Index // parallel to nodes; -1 means "not yet computed"
	nextUID uint64
}

// New returns an empty arena.
func New() *Arena {
	return &Arena{}
}

// Insert appends a new node, owned by the arena from now on, and returns
// its Index.
func (a *Arena) Insert(e Expr, origin Origin) Index {
	a.nodes = append(a.nodes, e)
	a.origins = append(a.origins, origin)
	a.checked = append(a.checked, -1)
	return Index(len(a.nodes) - 1)
}

// Free inserts a fresh metavariable hole whose origin says why it exists
// (e.g. OriginFreeSub(i) for a hole introduced while unifying against i).
func (a *Arena) Free(origin Origin) Index {
	return a.Insert(Expr{Kind: ExprFree}, origin)
}

// Get returns the node at i. Panics on an out-of-range index: every Index
// in circulation was handed out by this same arena and is never freed.
func (a *Arena) Get(i Index) Expr {
	return a.nodes[i]
}

// Origin returns the origin tag for i.
func (a *Arena) Origin(i Index) Origin {
	return a.origins[i]
}

// Fill overwrites a Free hole at i with a concrete node, the arena's only
// form of in-place mutation (spec.md §3.5/§5: "monotone refinement" — Fill
// must never be called twice on the same index, and the unifier enforces
// this via its toxic-set/occurs-check discipline in pkg/unify).
func (a *Arena) Fill(i Index, e Expr) {
	if a.nodes[i].Kind != ExprFree {
		panic(fmt.Sprintf("arena: Fill called on non-Free node %v", i))
	}
	a.nodes[i] = e
	// Filling invalidates any memoized type for this node (it was memoized
	// against the hole, not the concrete value).
	a.checked[i] = -1
}

// IsFree reports whether i currently holds an unfilled metavariable.
func (a *Arena) IsFree(i Index) bool {
	return a.nodes[i].Kind == ExprFree
}

// CheckedType returns the memoized type-of for i, if any has been recorded
// by the checker.
func (a *Arena) CheckedType(i Index) (Index, bool) {
	if int(i) >= len(a.checked) {
		return 0, false
	}
	t := a.checked[i]
	if t < 0 {
		return 0, false
	}
	return t, true
}

// SetCheckedType memoizes the type-of for i.
func (a *Arena) SetCheckedType(i, t Index) {
	a.checked[i] = t
}

// NewUniqueVariableID mints a fresh binder identity.
func (a *Arena) NewUniqueVariableID() UniqueVariableID {
	a.nextUID++
	return UniqueVariableID(a.nextUID)
}

// Len returns the number of nodes currently in the arena.
func (a *Arena) Len() int { return len(a.nodes) }
