// Scenario and property tests for the dependently-typed core calculus
// (spec.md §8): S7-S8 dependent-typing scenarios plus testable properties
// 5-7 (beta-reduction idempotence, beta-equality reflexivity, type
// preservation under reduction).
package check

import (
	"testing"

	"github.com/prism-lang/prismc/pkg/arena"
	"github.com/prism-lang/prismc/pkg/reduce"
	"github.com/prism-lang/prismc/pkg/unify"
)

var srcOrigin = arena.Origin{Kind: arena.OriginSourceCode}

// buildIdentity inserts the identity function fn(x) { x } as a bare
// FnConstruct whose body is DeBruijn(0), with no domain type asserted.
func buildIdentity(a *arena.Arena) arena.Index {
	body := a.Insert(arena.Expr{Kind: arena.ExprDeBruijn, DeBruijnN: 0}, srcOrigin)
	return a.Insert(arena.Expr{Kind: arena.ExprFnConstruct, FnB: body}, srcOrigin)
}

// buildTypeToType inserts the (Type) -> Type function type.
func buildTypeToType(a *arena.Arena) arena.Index {
	dom := a.Insert(arena.Expr{Kind: arena.ExprType}, srcOrigin)
	cod := a.Insert(arena.Expr{Kind: arena.ExprType}, srcOrigin)
	return a.Insert(arena.Expr{Kind: arena.ExprFnType, FnA: dom, FnB: cod}, srcOrigin)
}

// S7: the identity function checks against an explicit (Type) -> Type
// assertion, filling its inferred domain metavariable with Type along the
// way (unify.Unifier.fill's ExprType arm).
func TestScenarioIdentityTypeChecks(t *testing.T) {
	a := arena.New()
	u := unify.New(a)
	c := New(a, u)

	id := buildIdentity(a)
	want := buildTypeToType(a)
	assertExpr := a.Insert(arena.Expr{Kind: arena.ExprTypeAssert, AssertExpr: id, AssertType: want}, srcOrigin)

	var errs []error
	c.Synth(assertExpr, arena.Nil, &errs)
	if len(errs) != 0 {
		t.Fatalf("expected the identity function to check against (Type) -> Type, got %v", errs)
	}
}

// S8: asserting Type has type GrammarType is rejected — the two have no
// common head shape, so expect_beq falls to its default mismatch case.
func TestScenarioTypeAssertMismatchIsRejected(t *testing.T) {
	a := arena.New()
	u := unify.New(a)
	c := New(a, u)

	typeNode := a.Insert(arena.Expr{Kind: arena.ExprType}, srcOrigin)
	grammarTypeNode := a.Insert(arena.Expr{Kind: arena.ExprGrammarType}, srcOrigin)
	assertExpr := a.Insert(arena.Expr{Kind: arena.ExprTypeAssert, AssertExpr: typeNode, AssertType: grammarTypeNode}, srcOrigin)

	var errs []error
	c.Synth(assertExpr, arena.Nil, &errs)
	if len(errs) == 0 {
		t.Fatal("expected Type : GrammarType to be rejected")
	}
	if ce, ok := errs[0].(*Error); !ok || ce.Kind != ErrFailedTypeAssert {
		t.Errorf("expected a FailedTypeAssert error, got %v", errs[0])
	}
}

// Property 5: beta-reduction idempotence. Reducing an already-fully-reduced
// term again yields an alpha-equivalent result (unify.ExpectBeq mints the
// same fresh UniqueVariableID for corresponding binders on both sides, so
// it checks alpha-equivalence regardless of the raw ids reduce.Full mints).
func TestPropertyBetaReductionIdempotence(t *testing.T) {
	a := arena.New()
	u := unify.New(a)

	id := buildIdentity(a)
	once := reduce.Full(a, id, arena.Nil)
	twice := reduce.Full(a, once, arena.Nil)

	var errs []error
	u.ExpectBeq(once, arena.Nil, twice, arena.Nil, &errs)
	if len(errs) != 0 {
		t.Errorf("expected a second reduction to be alpha-equivalent to the first, got %v", errs)
	}
}

// Property 6: beta-equality reflexivity. Any term is beta-equal to itself.
func TestPropertyBetaEqualityReflexivity(t *testing.T) {
	a := arena.New()
	u := unify.New(a)

	id := buildIdentity(a)

	var errs []error
	u.ExpectBeq(id, arena.Nil, id, arena.Nil, &errs)
	if len(errs) != 0 {
		t.Errorf("expected a term to be beta-equal to itself, got %v", errs)
	}
}

// Property 7: type preservation. Synthesizing the identity function's type
// before and after a full beta-reduction pass yields beta-equal types.
func TestPropertyTypePreservationUnderReduction(t *testing.T) {
	a := arena.New()
	u := unify.New(a)
	c := New(a, u)

	id := buildIdentity(a)

	var errsBefore []error
	before := c.Synth(id, arena.Nil, &errsBefore)
	if len(errsBefore) != 0 {
		t.Fatalf("unexpected errors synthesizing the identity function's type: %v", errsBefore)
	}

	reduced := reduce.Full(a, id, arena.Nil)

	var errsAfter []error
	after := c.Synth(reduced, arena.Nil, &errsAfter)
	if len(errsAfter) != 0 {
		t.Fatalf("unexpected errors synthesizing the reduced identity function's type: %v", errsAfter)
	}

	var errs []error
	u.ExpectBeq(before, arena.Nil, after, arena.Nil, &errs)
	if len(errs) != 0 {
		t.Errorf("expected the type to be preserved across reduction, got %v", errs)
	}
}
