package peg

import (
	"bytes"
	"testing"

	"github.com/prism-lang/prismc/pkg/gramstate"
	"github.com/prism-lang/prismc/pkg/grammar"
	"github.com/prism-lang/prismc/pkg/source"
)

func TestExprGuidMintsFromGuidSource(t *testing.T) {
	e := &Engine{GuidSource: bytes.NewReader(make([]byte, 16))}
	files := source.NewTable()
	file := files.Add("<test>", nil)
	pos := source.Position{File: file, Offset: 0}

	r := e.parseExprOnce(nil, ruleCtx{}, gramstate.Empty, &grammar.Expr{Kind: grammar.ExprGuid}, pos, Ctx{})
	if !r.IsOk() {
		t.Fatalf("expected a successful Guid parse, got error: %v", r)
	}
	id, ok := r.Value().Value.(string)
	if !ok {
		t.Fatalf("expected a string id, got %T", r.Value().Value)
	}
	if id != "00000000-0000-4000-8000-000000000000" {
		t.Errorf("unexpected id from zero entropy: %q", id)
	}
}

func TestExprGuidFailsOnShortEntropy(t *testing.T) {
	e := &Engine{GuidSource: bytes.NewReader(make([]byte, 2))}
	files := source.NewTable()
	file := files.Add("<test>", nil)
	pos := source.Position{File: file, Offset: 0}

	r := e.parseExprOnce(nil, ruleCtx{}, gramstate.Empty, &grammar.Expr{Kind: grammar.ExprGuid}, pos, Ctx{})
	if r.IsOk() {
		t.Fatal("expected a short entropy source to fail Guid minting")
	}
}
