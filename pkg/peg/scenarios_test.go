// Scenario and property tests for the PEG engine (spec.md §8): S1-S6, one
// test function each, plus testable properties 1-4 and 8.
package peg

import (
	"testing"

	"github.com/prism-lang/prismc/pkg/bootstrap"
	"github.com/prism-lang/prismc/pkg/gramstate"
	"github.com/prism-lang/prismc/pkg/grammar"
	"github.com/prism-lang/prismc/pkg/hostns"
	"github.com/prism-lang/prismc/pkg/pcache"
	"github.com/prism-lang/prismc/pkg/presult"
	"github.com/prism-lang/prismc/pkg/recovery"
	"github.com/prism-lang/prismc/pkg/source"
)

// loadTestGrammar parses src as a grammar file through the bootstrap
// loader, the same entry point cmd/prismc uses.
func loadTestGrammar(t *testing.T, src string) *grammar.GrammarFile {
	t.Helper()
	gf, err := bootstrap.Load(newSourceWith("<grammar>", src))
	if err != nil {
		t.Fatalf("loading grammar: %v", err)
	}
	return gf
}

func newSourceWith(name, src string) (*source.Table, source.FileID) {
	files := source.NewTable()
	return files, files.Add(name, []byte(src))
}

// parseRule builds a fresh engine over gf and parses ruleName against
// input end to end, the same assembly cmd/prismc's runRun performs.
func parseRule(t *testing.T, gf *grammar.GrammarFile, ruleName, input string, capacity int) presult.Result[Out] {
	t.Helper()
	gs, vars := gramstate.NewWith(gf)
	ruleVal, ok := vars.Get(ruleName)
	if !ok || !ruleVal.IsRule {
		t.Fatalf("no rule named %q", ruleName)
	}
	files := source.NewTable()
	file := files.Add("<input>", []byte(input))
	engine := NewEngine(files, pcache.New(capacity), hostns.Standard())
	return engine.ParseRule(gs, ruleVal.RuleID, nil, source.Position{File: file, Offset: 0}, Ctx{})
}

func mustFullParse(t *testing.T, r presult.Result[Out], input string) Out {
	t.Helper()
	if !r.IsOk() {
		t.Fatalf("expected a successful parse, got error")
	}
	if got, want := r.EndPos().Offset, len(input); got != want {
		t.Fatalf("expected to consume the whole input (%d bytes), consumed %d", want, got)
	}
	return r.Value()
}

// S1: a bare literal matches and consumes exactly itself.
func TestScenarioLiteral(t *testing.T) {
	gf := loadTestGrammar(t, `
rule greeting() {
  word <- "hello" ;
}
`)
	r := parseRule(t, gf, "greeting", "hello", 1<<12)
	out := mustFullParse(t, r, "hello")
	if out.Value.(string) != "hello" {
		t.Errorf("expected the literal text back, got %v", out.Value)
	}
	if len(out.Tokens) != 1 || out.Tokens[0].Kind != TokenKeyword {
		t.Errorf("expected a single Keyword token, got %+v", out.Tokens)
	}
}

// S2: a char-class captures the single matched rune as a CharClass token.
func TestScenarioCharClassCapture(t *testing.T) {
	gf := loadTestGrammar(t, `
rule digit() {
  one <- ['0'-'9'] ;
}
`)
	r := parseRule(t, gf, "digit", "7", 1<<12)
	out := mustFullParse(t, r, "7")
	if out.Value.(string) != "7" {
		t.Errorf("expected the matched digit back, got %v", out.Value)
	}
	if len(out.Tokens) != 1 || out.Tokens[0].Kind != TokenCharClass {
		t.Errorf("expected a single CharClass token, got %+v", out.Tokens)
	}
}

// S3: #this/#next drive a precedence chain. "sum" (blocks[0]) left-recurses
// into itself via #this for the addition chain and falls through to "num"
// (blocks[1]) via #next for the tighter-binding operand.
func TestScenarioPrecedenceChain(t *testing.T) {
	gf := loadTestGrammar(t, `
rule expr() {
  sum <- #str(#this "+" #next) | #next ;
  num <- #str(['0'-'9']+) ;
}
`)
	r := parseRule(t, gf, "expr", "2+3+4", 1<<12)
	out := mustFullParse(t, r, "2+3+4")
	if out.Value.(string) != "2+3+4" {
		t.Errorf("expected the full expression slice back, got %v", out.Value)
	}
}

// S4 / property 8: adapting a rule's blocks is append-only — parses valid
// before the adaptation stay valid afterward, and the newly spliced
// alternative becomes available alongside them.
func TestScenarioAdaptiveGrammarIsMonotone(t *testing.T) {
	gf := loadTestGrammar(t, `
rule kw() {
  base <- "if" ;
}
rule program() {
  one <- kw() ;
}
`)
	gs, vars := gramstate.NewWith(gf)

	files := source.NewTable()
	registry := hostns.Standard()
	engine := NewEngine(files, pcache.New(1<<12), registry)

	// Before adaptation: only "if" parses as a keyword.
	ifFile := files.Add("<if>", []byte("if"))
	before := engine.ParseRule(gs, mustRule(t, vars, "program").RuleID, nil, source.Position{File: ifFile, Offset: 0}, Ctx{})
	mustFullParse(t, before, "if")

	whileFile := files.Add("<while-before>", []byte("while"))
	beforeWhile := engine.ParseRule(gs, mustRule(t, vars, "program").RuleID, nil, source.Position{File: whileFile, Offset: 0}, Ctx{})
	if beforeWhile.IsOk() {
		t.Fatal("expected \"while\" to be rejected before adaptation")
	}

	extension := &grammar.GrammarFile{Rules: []*grammar.Rule{{
		Name:  "kw",
		Adapt: true,
		Blocks: []*grammar.Block{{
			Name:  "base",
			Adapt: true,
			Exprs: []*grammar.AnnotatedExpr{{Expr: grammar.Expr{Kind: grammar.ExprLiteral, Literal: "while"}}},
		}},
	}}}
	adaptPos := source.Position{File: whileFile, Offset: 0}
	newState, newVars, err := gs.AdaptWith(extension, vars, &adaptPos)
	if err != nil {
		t.Fatalf("AdaptWith: %v", err)
	}

	// After adaptation: the new alternative parses (on a fresh file, since
	// the shared cache still holds the pre-adaptation Err for whileFile)...
	whileFile2 := files.Add("<while-after>", []byte("while"))
	afterWhile := engine.ParseRule(newState, mustRule(t, newVars, "program").RuleID, nil, source.Position{File: whileFile2, Offset: 0}, Ctx{})
	mustFullParse(t, afterWhile, "while")

	// ...and the pre-adaptation alternative still does, via the very same
	// RuleID minted before adaptation (the append-only invariant).
	ifFile2 := files.Add("<if-after>", []byte("if"))
	afterIf := engine.ParseRule(newState, mustRule(t, vars, "program").RuleID, nil, source.Position{File: ifFile2, Offset: 0}, Ctx{})
	mustFullParse(t, afterIf, "if")
}

func mustRule(t *testing.T, vars *gramstate.VarMap, name string) gramstate.VarMapValue {
	t.Helper()
	v, ok := vars.Get(name)
	if !ok || !v.IsRule {
		t.Fatalf("no rule named %q", name)
	}
	return v
}

// S5: a parametric rule receives another rule as an argument and invokes it
// through RunVar's trivial-rule-reference fast path.
func TestScenarioParametricRule(t *testing.T) {
	gf := loadTestGrammar(t, `
rule wrap(inner) {
  w <- "(" v:inner() ")" ;
}
rule num() {
  n <- #str(['0'-'9']+) ;
}
rule top() {
  t <- wrap(num) ;
}
`)
	r := parseRule(t, gf, "top", "(42)", 1<<12)
	mustFullParse(t, r, "(42)")
}

// S6: recovery splices a synthetic skip past a hard failure so a later
// segment of the input can still be reached, and the errors list records
// what was actually wrong.
func TestScenarioRecoverySkipsBadInput(t *testing.T) {
	gf := loadTestGrammar(t, `
rule letters() {
  many <- #str(['a'-'z']+) ;
}
rule list() {
  items <- letters "," letters "," letters ;
}
`)
	gs, vars := gramstate.NewWith(gf)
	ruleVal := mustRule(t, vars, "list")

	files := source.NewTable()
	file := files.Add("<input>", []byte("aa,#,cc"))
	engine := NewEngine(files, pcache.New(1<<12), hostns.Standard())
	driver := recovery.NewDriver(engine)

	_, tokens, errs := driver.Run(gs, ruleVal.RuleID, nil, source.Position{File: file, Offset: 0}, Ctx{})
	if len(errs) == 0 {
		t.Fatal("expected recovery to record at least one error for the bad \"#\" segment")
	}
	for _, tok := range tokens {
		if tok.Kind > TokenSlice {
			t.Errorf("unexpected token kind %v", tok.Kind)
		}
	}
}

// Property 1: determinism. Parsing the same grammar/input twice from
// scratch produces identical values and end positions.
func TestPropertyDeterminism(t *testing.T) {
	gf := loadTestGrammar(t, `
rule greeting() {
  word <- "hello" "world" ;
}
`)
	r1 := parseRule(t, gf, "greeting", "helloworld", 1<<12)
	r2 := parseRule(t, gf, "greeting", "helloworld", 1<<12)
	if r1.IsOk() != r2.IsOk() {
		t.Fatalf("nondeterministic success: %v vs %v", r1.IsOk(), r2.IsOk())
	}
	if r1.IsOk() {
		if r1.EndPos() != r2.EndPos() {
			t.Errorf("nondeterministic end position: %v vs %v", r1.EndPos(), r2.EndPos())
		}
		if r1.Value().Value != r2.Value().Value {
			t.Errorf("nondeterministic value: %v vs %v", r1.Value().Value, r2.Value().Value)
		}
	}
}

// Property 2: left-recursion soundness, the classic E = E "a" / "b" test.
func TestPropertyLeftRecursionSoundness(t *testing.T) {
	gf := loadTestGrammar(t, `
rule e() {
  alt <- #str(#this "a" | "b") ;
}
`)
	r := parseRule(t, gf, "e", "baaa", 1<<12)
	out := mustFullParse(t, r, "baaa")
	if out.Value.(string) != "baaa" {
		t.Errorf("expected the full left-recursive chain back, got %v", out.Value)
	}
}

// Property 3: memo correctness. The packrat cache is pure memoization
// (pcache.Cache.Get's doc comment: "a miss ... is always safe: the caller
// re-parses"); a parse run with a generous cache must agree with the same
// parse run over a cache too small to hold more than a few entries. Uses a
// non-left-recursive grammar so the comparison isn't also exercising the
// seed-grower's own reliance on its in-flight sentinel surviving eviction.
func TestPropertyMemoCorrectness(t *testing.T) {
	gf := loadTestGrammar(t, `
rule word() {
  w <- #str(['a'-'z']+) ;
}
rule pair() {
  p <- word "," word ;
}
`)
	memoized := parseRule(t, gf, "pair", "abc,def", 1<<16)
	unmemoized := parseRule(t, gf, "pair", "abc,def", 4)
	if memoized.IsOk() != unmemoized.IsOk() {
		t.Fatalf("cache presence changed success: %v vs %v", memoized.IsOk(), unmemoized.IsOk())
	}
	if memoized.IsOk() {
		if memoized.EndPos() != unmemoized.EndPos() {
			t.Errorf("cache presence changed end position: %v vs %v", memoized.EndPos(), unmemoized.EndPos())
		}
		if memoized.Value().Value != unmemoized.Value().Value {
			t.Errorf("cache presence changed value: %v vs %v", memoized.Value().Value, unmemoized.Value().Value)
		}
	}
}

// Property 4: layout transparency. A rule named "layout" is picked up
// automatically (every rule name is bound in the var-map by AdaptWith) and
// spliced between ordinary matches, collapsed into Layout tokens.
func TestPropertyLayoutTransparency(t *testing.T) {
	gf := loadTestGrammar(t, `
rule layout() {
  ws <- [' '|'\n']* ;
}
rule greeting() {
  word <- "hello" "world" ;
}
`)
	r := parseRule(t, gf, "greeting", "hello   world", 1<<12)
	out := mustFullParse(t, r, "hello   world")
	if out.Value.(string) != "world" {
		t.Errorf("expected the sequence's last value back, got %v", out.Value)
	}
	var sawLayout bool
	for _, tok := range out.Tokens {
		if tok.Kind == TokenLayout {
			sawLayout = true
		}
	}
	if !sawLayout {
		t.Errorf("expected a Layout token for the whitespace between \"hello\" and \"world\", got %+v", out.Tokens)
	}
}
