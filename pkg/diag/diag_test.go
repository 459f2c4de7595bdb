package diag

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/prism-lang/prismc/pkg/source"
)

func testTable(t *testing.T) (*source.Table, source.FileID) {
	t.Helper()
	files := source.NewTable()
	file := files.Add("in.prism", []byte("first\nsecond line"))
	return files, file
}

func TestNewLocatesByLineCol(t *testing.T) {
	files, file := testTable(t)
	pos := source.Position{File: file, Offset: 6} // start of "second"
	e := New(files, CodeParse, pos, "boom")
	if e.Line != 2 || e.Col != 1 {
		t.Errorf("expected line 2 col 1, got line %d col %d", e.Line, e.Col)
	}
	if e.File != "in.prism" {
		t.Errorf("expected file name in.prism, got %q", e.File)
	}
}

func TestErrorsErrorSummarizesCount(t *testing.T) {
	files, file := testTable(t)
	pos := source.Position{File: file, Offset: 0}
	var es Errors
	if es.Error() != "no errors" {
		t.Errorf("expected 'no errors', got %q", es.Error())
	}
	es = append(es, New(files, CodeParse, pos, "one"))
	if !strings.HasPrefix(es.Error(), "1 error occurred") {
		t.Errorf("unexpected singular summary: %q", es.Error())
	}
	es = append(es, New(files, CodeCheck, pos, "two"))
	if !strings.HasPrefix(es.Error(), "2 errors occurred") {
		t.Errorf("unexpected plural summary: %q", es.Error())
	}
}

func TestRenderJSONRoundTrips(t *testing.T) {
	files, file := testTable(t)
	pos := source.Position{File: file, Offset: 0}
	es := Errors{New(files, CodeParse, pos, "boom")}
	b, err := RenderJSON(es)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"message": "boom"`) {
		t.Errorf("expected rendered JSON to contain the message field, got %s", b)
	}
	var back Errors
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 1 || back[0].Code != es[0].Code || back[0].Message != es[0].Message ||
		back[0].File != es[0].File || back[0].Line != es[0].Line || back[0].Col != es[0].Col {
		t.Errorf("expected the error to survive a JSON round trip, got %+v", back)
	}
}

func TestUnknownNameSuggestsClosestCandidate(t *testing.T) {
	files, file := testTable(t)
	pos := source.Position{File: file, Offset: 0}
	e := UnknownName(files, pos, "expresion", []string{"expression", "statement"})
	if len(e.Notes) != 1 || !strings.Contains(e.Notes[0], "expression") {
		t.Errorf("expected a did-you-mean note for 'expression', got %v", e.Notes)
	}
}

func TestUnknownNameNoSuggestionBeyondThreshold(t *testing.T) {
	files, file := testTable(t)
	pos := source.Position{File: file, Offset: 0}
	e := UnknownName(files, pos, "xyz", []string{"completely-different-name"})
	if len(e.Notes) != 0 {
		t.Errorf("expected no suggestion for a far-away candidate, got %v", e.Notes)
	}
}
