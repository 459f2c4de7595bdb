package bootstrap

import (
	"testing"

	"github.com/prism-lang/prismc/pkg/arena"
	"github.com/prism-lang/prismc/pkg/source"
)

func loadCore(t *testing.T, src string) (arena.Index, *arena.Arena) {
	t.Helper()
	files := source.NewTable()
	file := files.Add("<test>", []byte(src))
	a := arena.New()
	i, err := LoadCore(files, file, a)
	if err != nil {
		t.Fatalf("LoadCore(%q): %v", src, err)
	}
	return i, a
}

func TestLoadCoreType(t *testing.T) {
	i, a := loadCore(t, "Type")
	if a.Get(i).Kind != arena.ExprType {
		t.Errorf("expected ExprType, got %v", a.Get(i).Kind)
	}
}

func TestLoadCoreLambdaDotSeparator(t *testing.T) {
	i, a := loadCore(t, `\x . x`)
	e := a.Get(i)
	if e.Kind != arena.ExprFnConstruct {
		t.Fatalf("expected ExprFnConstruct, got %v", e.Kind)
	}
	body := a.Get(e.FnB)
	if body.Kind != arena.ExprDeBruijn || body.DeBruijnN != 0 {
		t.Errorf("expected the bound variable at de Bruijn index 0, got %+v", body)
	}
}

func TestLoadCoreFnTypeBindsDomainNameInCodomain(t *testing.T) {
	i, a := loadCore(t, "fn(x : Type) x")
	e := a.Get(i)
	if e.Kind != arena.ExprFnType {
		t.Fatalf("expected ExprFnType, got %v", e.Kind)
	}
	cod := a.Get(e.FnB)
	if cod.Kind != arena.ExprDeBruijn || cod.DeBruijnN != 0 {
		t.Errorf("expected codomain to reference the bound name at index 0, got %+v", cod)
	}
}

func TestLoadCoreApplicationIsLeftAssociative(t *testing.T) {
	i, a := loadCore(t, `(\x . x) (\y . y) Type`)
	outer := a.Get(i)
	if outer.Kind != arena.ExprFnDestruct {
		t.Fatalf("expected ExprFnDestruct, got %v", outer.Kind)
	}
	inner := a.Get(outer.DestructFn)
	if inner.Kind != arena.ExprFnDestruct {
		t.Errorf("expected left-associative nesting, got %v at the outer application's function position", inner.Kind)
	}
}

func TestLoadCoreTypeAssert(t *testing.T) {
	i, a := loadCore(t, "(Type : Type)")
	e := a.Get(i)
	if e.Kind != arena.ExprTypeAssert {
		t.Fatalf("expected ExprTypeAssert, got %v", e.Kind)
	}
}

func TestLoadCoreLet(t *testing.T) {
	i, a := loadCore(t, "let x = Type in x")
	e := a.Get(i)
	if e.Kind != arena.ExprLet {
		t.Fatalf("expected ExprLet, got %v", e.Kind)
	}
	body := a.Get(e.LetBody)
	if body.Kind != arena.ExprDeBruijn || body.DeBruijnN != 0 {
		t.Errorf("expected let body to reference the bound name at index 0, got %+v", body)
	}
}

func TestLoadCoreUnboundNameErrors(t *testing.T) {
	files := source.NewTable()
	file := files.Add("<test>", []byte("nope"))
	a := arena.New()
	if _, err := LoadCore(files, file, a); err == nil {
		t.Error("expected an error resolving an unbound name")
	}
}

func TestLoadCoreTrailingInputErrors(t *testing.T) {
	files := source.NewTable()
	file := files.Add("<test>", []byte("Type Type )"))
	a := arena.New()
	if _, err := LoadCore(files, file, a); err == nil {
		t.Error("expected an error on trailing unparsed input")
	}
}
