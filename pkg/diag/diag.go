// Package diag implements the Diagnostics renderer (C15, SPEC_FULL.md
// §4.11): a unified taxonomy over parse errors (pkg/peg), unification
// errors (pkg/unify), type-checker errors (pkg/check), and adaptation
// errors (pkg/gramstate), rendered as either a human-readable report or a
// JSON array.
//
// Grounded on ast/errors.go's Error/Errors/ErrCode/NewError shape —
// unclassified-by-default codes, a Location, a message, and an
// Errors.Error() that summarizes "N errors occurred" — generalized from
// one compiler phase's error code space to every phase in this repository.
package diag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prism-lang/prismc/pkg/check"
	"github.com/prism-lang/prismc/pkg/gramstate"
	"github.com/agnivade/levenshtein"

	"github.com/prism-lang/prismc/pkg/peg"
	"github.com/prism-lang/prismc/pkg/recovery"
	"github.com/prism-lang/prismc/pkg/source"
	"github.com/prism-lang/prismc/pkg/unify"
)

// Code classifies which phase/kind of failure an Error reports.
type Code int

const (
	CodeParse Code = iota
	CodeUnify
	CodeCheck
	CodeAdapt
	CodeAction
	CodeUnknownName
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeParse:
		return "parse"
	case CodeUnify:
		return "unify"
	case CodeCheck:
		return "check"
	case CodeAdapt:
		return "adapt"
	case CodeAction:
		return "action"
	case CodeUnknownName:
		return "unknown-name"
	default:
		return "internal"
	}
}

// Error is one diagnostic: a code, an optional source location, and a
// human-readable message, plus any secondary annotations (e.g. "note:
// previous definition here").
type Error struct {
	Code     Code     `json:"code"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Col      int      `json:"col,omitempty"`
	Message  string   `json:"message"`
	Notes    []string `json:"notes,omitempty"`
}

func (e *Error) Error() string {
	if e.File == "" && e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Message)
}

// New builds an Error located at pos within files.
func New(files *source.Table, code Code, pos source.Position, message string) *Error {
	line, col := files.LineCol(pos)
	return &Error{Code: code, File: files.Path(pos.File), Line: line, Col: col, Message: message}
}

// Errors is a collection of Error accumulated across a run, mirroring
// ast/errors.go's Errors type: its Error() string summarizes the count the
// way a top-level CLI wants to report it.
type Errors []*Error

func (es Errors) Error() string {
	switch len(es) {
	case 0:
		return "no errors"
	case 1:
		return fmt.Sprintf("1 error occurred: %v", es[0].Error())
	default:
		lines := make([]string, len(es))
		for i, e := range es {
			lines[i] = e.Error()
		}
		return fmt.Sprintf("%d errors occurred:\n%s", len(es), strings.Join(lines, "\n"))
	}
}

// RenderText produces the multi-line human-readable report used by
// `prismc`'s default `--format text` output: one "file:row:col: message"
// line per error, with any Notes indented beneath.
func RenderText(es Errors) string {
	var b strings.Builder
	for _, e := range es {
		b.WriteString(e.Error())
		b.WriteByte('\n')
		for _, n := range e.Notes {
			b.WriteString("    note: ")
			b.WriteString(n)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderJSON produces the `--format json` array of errors. No binary
// format is offered, per spec.md §6.
func RenderJSON(es Errors) ([]byte, error) {
	return json.MarshalIndent(es, "", "  ")
}

// FromPositioned adapts a recovery.PositionedError (itself wrapping one of
// the peg.ParseError kinds) into a diag.Error.
func FromPositioned(files *source.Table, pe *recovery.PositionedError) *Error {
	e := New(files, CodeParse, pe.Pos, pe.Err.Error())
	if pp, ok := pe.Err.(*peg.ParseError); ok {
		e.Notes = append(e.Notes, fmt.Sprintf("kind=%d", pp.Kind))
	}
	return e
}

// FromUnify adapts a unify.Error into a diag.Error. Unification errors
// arise during type checking and carry no source position of their own
// (they're about two core-calculus terms, not surface syntax), so the
// caller supplies the position of the checked expression that triggered
// them.
func FromUnify(files *source.Table, pos source.Position, err *unify.Error) *Error {
	var msg string
	switch err.Kind {
	case unify.ErrInfiniteType:
		msg = "infinite type"
	case unify.ErrExpectedFn:
		msg = "expected a function type"
	default:
		msg = "type mismatch"
	}
	return New(files, CodeUnify, pos, msg)
}

// FromCheck adapts a check.Error into a diag.Error.
func FromCheck(files *source.Table, pos source.Position, err *check.Error) *Error {
	var msg string
	switch err.Kind {
	case check.ErrIndexOutOfBound:
		msg = "de Bruijn index out of bound"
	case check.ErrFailedTypeAssert:
		msg = "type assertion failed"
	default:
		msg = "type error"
	}
	return New(files, CodeCheck, pos, msg)
}

// FromGramstate adapts the two grammar-adaptation error types
// (gramstate.ErrInvalidRuleMutation / gramstate.ErrSamePositionAdaptation)
// into a diag.Error. pos is the position of the AtAdapt expression that
// triggered the failure.
func FromGramstate(files *source.Table, pos source.Position, err error) *Error {
	switch e := err.(type) {
	case *gramstate.ErrInvalidRuleMutation:
		return New(files, CodeAdapt, pos, e.Error())
	case *gramstate.ErrSamePositionAdaptation:
		return New(files, CodeAdapt, pos, e.Error())
	default:
		return New(files, CodeAdapt, pos, err.Error())
	}
}

// FromAction adapts an action-evaluation error (pkg/action reports plain
// errors, wrapping ErrActionFailed detail strings from the engine) into a
// diag.Error.
func FromAction(files *source.Table, pos source.Position, err error) *Error {
	return New(files, CodeAction, pos, err.Error())
}

// UnknownName builds the UnknownName(name) diagnostic of spec.md §7 for a
// reference to an unbound rule/parameter name. No package in this module
// calls it; pkg/bootstrap has no name-resolution pass. candidates is every name
// visible at the reference site (e.g. gramstate.VarMap.Names()); the
// closest one within editDistance<=2 is offered as a "did you mean"
// suggestion, the way a human proofreader would rather than an exhaustive
// spell-checker.
func UnknownName(files *source.Table, pos source.Position, name string, candidates []string) *Error {
	e := New(files, CodeUnknownName, pos, fmt.Sprintf("unknown name %q", name))
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if d <= 2 && (bestDist < 0 || d < bestDist) {
			best, bestDist = c, d
		}
	}
	if best != "" {
		e.Notes = append(e.Notes, fmt.Sprintf("did you mean %q?", best))
	}
	return e
}
