package bootstrap

import (
	"testing"

	"github.com/prism-lang/prismc/pkg/source"
)

func tokensOf(t *testing.T, src string) []token {
	t.Helper()
	files := source.NewTable()
	file := files.Add("<test>", []byte(src))
	l := newLexer(files, file)
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			t.Fatalf("lexing %q: %v", src, err)
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks
		}
	}
}

func TestLexIdentAllowsHyphen(t *testing.T) {
	toks := tokensOf(t, "disable-layout")
	if len(toks) != 2 || toks[0].kind != tokIdent || toks[0].text != "disable-layout" {
		t.Fatalf("expected a single hyphenated ident, got %+v", toks)
	}
}

func TestLexSkipsLineComments(t *testing.T) {
	toks := tokensOf(t, "a // a comment\nb")
	if len(toks) != 3 || toks[0].text != "a" || toks[1].text != "b" {
		t.Fatalf("expected [a, b, EOF] skipping the comment, got %+v", toks)
	}
}

func TestLexArrowToken(t *testing.T) {
	toks := tokensOf(t, "<-")
	if len(toks) != 2 || toks[0].kind != tokArrow || toks[0].text != "<-" {
		t.Fatalf("expected a single arrow token, got %+v", toks)
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks := tokensOf(t, `"a\nb\"c"`)
	if len(toks) != 2 || toks[0].kind != tokString {
		t.Fatalf("expected a single string token, got %+v", toks)
	}
	if toks[0].text != "a\nb\"c" {
		t.Errorf("expected decoded escapes, got %q", toks[0].text)
	}
}

func TestLexCharLiteral(t *testing.T) {
	toks := tokensOf(t, `'\n'`)
	if len(toks) != 2 || toks[0].kind != tokChar || toks[0].text != "\n" {
		t.Fatalf("expected a decoded newline char token, got %+v", toks)
	}
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	files := source.NewTable()
	file := files.Add("<test>", []byte(`"unterminated`))
	l := newLexer(files, file)
	if _, err := l.next(); err == nil {
		t.Error("expected an error for an unterminated string literal")
	}
}
