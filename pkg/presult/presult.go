// Package presult implements the three-valued parse result monad of
// spec.md §4.1: Ok(value, start, end, best_err?) / Err(err, end_pos), with
// the merge operators that the PEG engine composes expressions with.
//
// Grounded line for line on
// original_source/prism-parser/src/core/presult.rs, re-expressed as a Go
// generic type instead of Rust's PResult<O,E>.
package presult

import "github.com/prism-lang/prismc/pkg/source"

// ParseError is the minimal interface a parse error type must satisfy so
// Result can merge error alternatives without knowing their concrete shape.
type ParseError interface {
	// Combine returns the error that should win when two errors share the
	// same (furthest) end position: ties union their label sets.
	Combine(other ParseError) ParseError
}

// bestErr pairs a non-winning error with the position it was recorded at.
type bestErr struct {
	err ParseError
	pos source.Position
}

// Result is the parse result monad, parameterized over the value type O.
// Exactly one of the two shapes holds:
//   - ok == true:  value/start/end are meaningful, best may be present
//   - ok == false: err/errPos are meaningful
type Result[O any] struct {
	ok    bool
	value O
	start source.Position
	end   source.Position
	best  *bestErr

	err    ParseError
	errPos source.Position
}

// Ok builds a successful, non-empty result.
func Ok[O any](value O, start, end source.Position) Result[O] {
	return Result[O]{ok: true, value: value, start: start, end: end}
}

// OkEmpty builds a successful, zero-width result at pos.
func OkEmpty[O any](value O, pos source.Position) Result[O] {
	return Result[O]{ok: true, value: value, start: pos, end: pos}
}

// Err builds a failed result recorded at pos.
func Err[O any](err ParseError, pos source.Position) Result[O] {
	return Result[O]{ok: false, err: err, errPos: pos}
}

// OkWithBestErr builds a successful result that carries a best_err
// sidecar, used by the recovery driver's synthetic Ok (spec.md §4.7:
// "a primitive parser ... may produce a synthetic Ok ... attaching the
// original error as best_err").
func OkWithBestErr[O any](value O, start, end source.Position, err ParseError, errPos source.Position) Result[O] {
	return Result[O]{ok: true, value: value, start: start, end: end, best: &bestErr{err: err, pos: errPos}}
}

// IsOk reports success.
func (r Result[O]) IsOk() bool { return r.ok }

// IsErr reports failure.
func (r Result[O]) IsErr() bool { return !r.ok }

// Value returns the Ok payload. Panics if r is an Err.
func (r Result[O]) Value() O {
	if !r.ok {
		panic("presult: Value called on Err result")
	}
	return r.value
}

// Start returns the start position of an Ok result.
func (r Result[O]) Start() source.Position { return r.start }

// EndPos returns the end position: the Ok end, or the Err position.
func (r Result[O]) EndPos() source.Position {
	if r.ok {
		return r.end
	}
	return r.errPos
}

// Err_ returns the carried error (Err shape) or the best_err sidecar (Ok
// shape), and whether one was present.
func (r Result[O]) Err_() (ParseError, source.Position, bool) {
	if !r.ok {
		return r.err, r.errPos, true
	}
	if r.best != nil {
		return r.best.err, r.best.pos, true
	}
	return nil, source.Position{}, false
}

// combineErr implements the "ties union the label sets, otherwise the
// furthest position wins" rule of spec.md §4.1/§7.
func combineErr(e1 ParseError, p1 source.Position, e2 ParseError, p2 source.Position) (ParseError, source.Position) {
	switch {
	case p1.Offset > p2.Offset:
		return e1, p1
	case p2.Offset > p1.Offset:
		return e2, p2
	default:
		return e1.Combine(e2), p1
	}
}

func combineOpt(a *bestErr, b *bestErr) *bestErr {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		err, pos := combineErr(a.err, a.pos, b.err, b.pos)
		return &bestErr{err: err, pos: pos}
	}
}

// Map transforms the Ok payload, leaving Err results untouched.
func Map[O, P any](r Result[O], f func(O) P) Result[P] {
	if !r.ok {
		return Result[P]{ok: false, err: r.err, errPos: r.errPos}
	}
	return Result[P]{ok: true, value: f(r.value), start: r.start, end: r.end, best: r.best}
}

// MergeChoice implements spec.md §4.1's ordered-choice merge: prefers Ok;
// between two Errs picks the one whose end_pos is further (ties merge
// label sets); between Ok and Err, the Ok absorbs the Err as its best_err.
func MergeChoice[O any](a, b Result[O]) Result[O] {
	if a.ok {
		return a
	}
	if b.ok {
		merged := combineOpt(&bestErr{err: a.err, pos: a.errPos}, b.best)
		return Result[O]{ok: true, value: b.value, start: b.start, end: b.end, best: merged}
	}
	err, pos := combineErr(a.err, a.errPos, b.err, b.errPos)
	return Result[O]{ok: false, err: err, errPos: pos}
}

// MergeChoiceChain is MergeChoice with a short-circuit: if a already
// succeeded, other is never evaluated (mirrors presult.rs's
// merge_choice_chain "quick out").
func MergeChoiceChain[O any](a Result[O], other func() Result[O]) Result[O] {
	if a.ok {
		return a
	}
	return MergeChoice(a, other())
}

// Seq is the paired-value result of MergeSeq.
type Seq[O1, O2 any] struct {
	First  O1
	Second O2
}

// MergeSeq implements spec.md §4.1's sequencing merge: if a is Err, pass
// through; else combine spans and best-errors with b (which has already
// been parsed starting at a's end position). An empty Ok followed by a
// non-empty Ok takes the non-empty one's start.
func MergeSeq[O1, O2 any](a Result[O1], b Result[O2]) Result[Seq[O1, O2]] {
	if !a.ok {
		return Result[Seq[O1, O2]]{ok: false, err: a.err, errPos: a.errPos}
	}
	if !b.ok {
		merged := combineOpt(a.best, &bestErr{err: b.err, pos: b.errPos})
		return Result[Seq[O1, O2]]{ok: false, err: merged.err, errPos: merged.pos}
	}
	start := a.start
	if a.start == a.end && b.start != b.end {
		start = b.start
	}
	return Result[Seq[O1, O2]]{
		ok:    true,
		value: Seq[O1, O2]{a.value, b.value},
		start: start,
		end:   b.end,
		best:  combineOpt(a.best, b.best),
	}
}

// MergeSeqChain evaluates other at a's end position only if a succeeded
// (mirrors presult.rs's merge_seq_chain "quick out" for Err).
func MergeSeqChain[O1, O2 any](a Result[O1], other func(pos source.Position) Result[O2]) Result[Seq[O1, O2]] {
	if !a.ok {
		return Result[Seq[O1, O2]]{ok: false, err: a.err, errPos: a.errPos}
	}
	return MergeSeq(a, other(a.end))
}

// PositiveLookahead implements spec.md §4.1: on Ok, rewinds end_pos to the
// start pos; on Err, passes through.
func PositiveLookahead[O any](r Result[O], startPos source.Position) Result[O] {
	if !r.ok {
		return r
	}
	return Result[O]{ok: true, value: r.value, start: startPos, end: startPos, best: r.best}
}

// NegLookaheadError is the ParseError used when a negative lookahead fails
// because its inner expression matched.
type NegLookaheadError interface {
	ParseError
}

// NegativeLookahead implements spec.md §4.1: Ok <-> Err are swapped.
func NegativeLookahead(r Result[struct{}], startPos source.Position, onMatch func() ParseError) Result[struct{}] {
	if r.ok {
		return Result[struct{}]{ok: false, err: onMatch(), errPos: startPos}
	}
	return Result[struct{}]{ok: true, value: struct{}{}, start: startPos, end: startPos}
}
