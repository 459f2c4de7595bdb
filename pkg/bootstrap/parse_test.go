package bootstrap

import (
	"testing"

	"github.com/prism-lang/prismc/pkg/grammar"
	"github.com/prism-lang/prismc/pkg/source"
)

func loadGrammar(t *testing.T, src string) *grammar.GrammarFile {
	t.Helper()
	files := source.NewTable()
	file := files.Add("<test>", []byte(src))
	gf, err := Load(files, file)
	if err != nil {
		t.Fatalf("Load(%q): %v", src, err)
	}
	return gf
}

func TestParseSimpleRule(t *testing.T) {
	gf := loadGrammar(t, `
rule digit() {
  one <- ['0'-'9'] ;
}
`)
	if len(gf.Rules) != 1 {
		t.Fatalf("expected one rule, got %d", len(gf.Rules))
	}
	r := gf.Rules[0]
	if r.Name != "digit" {
		t.Errorf("expected rule name digit, got %q", r.Name)
	}
	if len(r.Blocks) != 1 || r.Blocks[0].Name != "one" {
		t.Fatalf("expected one block named one, got %+v", r.Blocks)
	}
	if len(r.Blocks[0].Exprs) != 1 {
		t.Fatalf("expected one annotated expr, got %d", len(r.Blocks[0].Exprs))
	}
	if r.Blocks[0].Exprs[0].Expr.Kind != grammar.ExprCharClass {
		t.Errorf("expected a char-class expr, got %v", r.Blocks[0].Exprs[0].Expr.Kind)
	}
}

func TestParseSameNamedBlocksFold(t *testing.T) {
	gf := loadGrammar(t, `
rule letter() {
  lower <- ['a'-'z'] ;
  lower <- ['A'-'Z'] ;
}
`)
	r := gf.Rules[0]
	if len(r.Blocks) != 1 {
		t.Fatalf("expected same-named blocks to fold into one, got %d blocks", len(r.Blocks))
	}
	if len(r.Blocks[0].Exprs) != 2 {
		t.Errorf("expected both alternatives under the folded block, got %d", len(r.Blocks[0].Exprs))
	}
}

func TestParseErrorAnnotation(t *testing.T) {
	gf := loadGrammar(t, `
rule greeting() {
  word <- @error("expected a greeting") "hello" ;
}
`)
	ann := gf.Rules[0].Blocks[0].Exprs[0].Annotations
	if len(ann) != 1 || ann[0].Kind != grammar.AnnError || ann[0].Msg != "expected a greeting" {
		t.Errorf("expected a single error annotation with the given message, got %+v", ann)
	}
}

func TestParseRepeatSuffix(t *testing.T) {
	gf := loadGrammar(t, `
rule digits() {
  many <- ['0'-'9']+ ;
}
`)
	e := gf.Rules[0].Blocks[0].Exprs[0].Expr
	if e.Kind != grammar.ExprRepeat || e.RepeatMin != 1 || e.RepeatMax != -1 {
		t.Errorf("expected a one-or-more repeat, got %+v", e)
	}
}

func TestParseAdaptRule(t *testing.T) {
	gf := loadGrammar(t, `
adapt rule keyword() {
  kw <- "if" ;
}
`)
	if !gf.Rules[0].Adapt {
		t.Error("expected the adapt modifier to mark the rule Adapt=true")
	}
}
