// Package recovery implements the Recovery Driver of spec.md §4.7: an
// outer retry loop around the PEG engine that turns the first hard parse
// failure into a registered recovery point, lets the engine splice a
// synthetic Ok past it, and keeps going until the whole input parses or
// the recovery-point budget is exhausted.
//
// Grounded on ast/parser.go's top-level `Parse` retry shape, generalized
// from "fail the whole parse" to spec.md's synthetic-skip recovery.
package recovery

import (
	"github.com/prism-lang/prismc/internal/plog"
	"github.com/prism-lang/prismc/pkg/gramstate"
	"github.com/prism-lang/prismc/pkg/peg"
	"github.com/prism-lang/prismc/pkg/presult"
	"github.com/prism-lang/prismc/pkg/source"
)

// Driver wraps a peg.Engine with the recovery-point bookkeeping of
// spec.md §4.7.
type Driver struct {
	Engine *peg.Engine
	// Cap bounds the number of distinct recovery points attempted before
	// giving up (spec.md §4.7: "at most a small constant (~5)"). Zero uses
	// DefaultCap.
	Cap int
}

// DefaultCap is spec.md §4.7's "small constant (~5)".
const DefaultCap = 5

// NewDriver returns a Driver wrapping engine with the default cap.
func NewDriver(engine *peg.Engine) *Driver {
	return &Driver{Engine: engine, Cap: DefaultCap}
}

// Run parses id at startPos, retrying through synthetic recovery points on
// failure until it succeeds, the input is exhausted, or the recovery-point
// cap is reached. Returns the final result (which may still be an Err if
// recovery was exhausted), the token stream accumulated by that result
// (spec.md §6's run() third return value; nil if the final result is an
// Err), together with every error accumulated along the way, oldest first.
func (d *Driver) Run(gs *gramstate.State, id gramstate.RuleID, args []gramstate.VarMapValue, startPos source.Position, ctx peg.Ctx) (presult.Result[peg.Out], []peg.Token, []error) {
	cap := d.Cap
	if cap <= 0 {
		cap = DefaultCap
	}

	recoveryPoints := make(map[source.Position]source.Position)
	var errs []error
	fileLen := d.Engine.Files.Len(startPos.File)

	for {
		d.Engine.Recovery = recoveryPoints
		result := d.Engine.ParseRule(gs, id, args, startPos, ctx)
		if result.IsOk() {
			return result, result.Value().Tokens, errs
		}

		failPos := result.EndPos()
		if failErr, pos, ok := result.Err_(); ok {
			errs = append(errs, wrapPositioned(failErr, pos))
		}

		resume, known := recoveryPoints[failPos]
		if !known {
			if len(recoveryPoints) >= cap {
				return result, nil, errs
			}
			recoveryPoints[failPos] = failPos
			plog.TraceRecoveryPoint(failPos.Offset, failPos.Offset, true)
		} else {
			next := resume.Offset + 1
			if next > fileLen {
				return result, nil, errs
			}
			recoveryPoints[failPos] = source.Position{File: failPos.File, Offset: next}
			plog.TraceRecoveryPoint(failPos.Offset, next, false)
		}

		// Recovery mutates the grammar's effective behavior at failPos, so
		// every previously memoized outcome downstream of it is suspect:
		// the whole cache must be dropped before retrying (spec.md §4.7:
		// "clear cache; retry").
		d.Engine.Cache.Clear()
	}
}

// PositionedError pairs a ParseError with the position it was recorded at,
// for the errors list Run returns and for pkg/diag to render.
type PositionedError struct {
	Err error
	Pos source.Position
}

func (p *PositionedError) Error() string { return p.Err.Error() }
func (p *PositionedError) Unwrap() error { return p.Err }

func wrapPositioned(err presult.ParseError, pos source.Position) error {
	if e, ok := err.(error); ok {
		return &PositionedError{Err: e, Pos: pos}
	}
	return &PositionedError{Err: errString("parse error"), Pos: pos}
}

type errString string

func (e errString) Error() string { return string(e) }
