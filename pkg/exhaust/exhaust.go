// Package exhaust implements the Exhaustive Generator of spec.md §4
// ("Enumerates all finite data-shapes up to a size budget"): a
// depth-first enumeration of every value reachable from a budget of
// "choice points", for covering small terms exhaustively rather than
// randomly. No test in this module uses it.
//
// Grounded on original_source/exhaustive-arbitrary/src/lib.rs and
// impls.rs: the same two-pass "run the generator once to discover how
// many choice points it made, then replay with the next digit vector in
// odometer order" algorithm, translated from the Rust trait-based
// design to Go closures (Go's lack of `Self`-bounded trait methods makes
// a single `ExhaustiveArbitrary` interface awkward for slice/option
// wrapper types; closures play that role instead).
package exhaust

import "iter"

// Taker hands a generator function() choices within a fixed length
// budget, recording the maximum seen at each choice point so Source can
// later replay the next combination in odometer order.
type Taker struct {
	lenLeft  int
	bufData  []int
	bufMax   []int
	bufIdx   int
}

// Choice returns an integer in [0, n) as decided by the current run.
// The first time a generator visits a given choice point it always
// returns 0 ("first run" per the Rust source); later replays return
// whatever the Source odometer has advanced it to.
func (t *Taker) Choice(n int) int {
	if n <= 0 {
		panic("exhaust: Choice requires n > 0")
	}
	if n == 1 {
		return 0
	}
	if t.lenLeft < n-1 {
		t.lenLeft = 0
	} else {
		t.lenLeft -= n - 1
	}
	if t.bufIdx < len(t.bufData) {
		v := t.bufData[t.bufIdx]
		t.bufIdx++
		return v
	}
	t.bufData = append(t.bufData, 0)
	t.bufMax = append(t.bufMax, n-1)
	t.bufIdx++
	return 0
}

// LenLeft reports the remaining size budget.
func (t *Taker) LenLeft() int { return t.lenLeft }

// TakeLen reserves n units of budget, reporting false if unavailable.
func (t *Taker) TakeLen(n int) bool {
	if t.lenLeft < n {
		return false
	}
	t.lenLeft -= n
	return true
}

// TakeAnyLen consumes a variable-length allotment up to the remaining
// budget, returning how much it took (used to decide slice lengths).
func (t *Taker) TakeAnyLen() int {
	left := t.lenLeft
	n := t.Choice(left + 1)
	t.lenLeft = left - n
	return n
}

// Bool is the base-case generator every composite generator bottoms out
// on for binary decisions (construct-or-recurse, Some-or-None, ...).
func (t *Taker) Bool() bool { return t.Choice(2) != 0 }

// Recurse picks base() once the budget is exhausted, else flips a coin
// between base and recurse — the standard shape for "is this node a
// leaf or does it have a child" in a recursive generator.
func Recurse[T any](t *Taker, base, recurse func(*Taker) T) T {
	if t.LenLeft() > 0 && t.Bool() {
		return recurse(t)
	}
	return base(t)
}

// SliceOf generates a slice of T using TakeAnyLen for its length.
func SliceOf[T any](t *Taker, arbitrary func(*Taker) T) []T {
	n := t.TakeAnyLen()
	out := make([]T, n)
	for i := range out {
		out[i] = arbitrary(t)
	}
	return out
}

// OptionOf generates a *T, nil half the time.
func OptionOf[T any](t *Taker, arbitrary func(*Taker) T) *T {
	if t.Bool() {
		return nil
	}
	v := arbitrary(t)
	return &v
}

// Source drives the odometer: repeated calls to NextRun() produce a
// fresh Taker seeded with the next combination in the digit vector built
// up by all prior runs, until every combination up to maxLen has been
// exhausted.
type Source struct {
	maxLen   int
	bufData  []int
	bufMax   []int
	firstRun bool
}

// NewSource returns a Source bounding every Taker it hands out to maxLen
// units of choice budget.
func NewSource(maxLen int) *Source {
	return &Source{maxLen: maxLen, firstRun: true}
}

// NextRun returns the next Taker in the enumeration, or ok=false once
// every combination has been visited.
func (s *Source) NextRun() (t *Taker, ok bool) {
	if !s.firstRun {
		i := len(s.bufData) - 1
		for ; i >= 0; i-- {
			if s.bufData[i] == s.bufMax[i] {
				s.bufData = s.bufData[:i]
				s.bufMax = s.bufMax[:i]
			} else {
				s.bufData[i]++
				break
			}
		}
		if len(s.bufData) == 0 {
			return nil, false
		}
	}
	s.firstRun = false
	return &Taker{lenLeft: s.maxLen, bufData: s.bufData, bufMax: s.bufMax}, true
}

// fixup copies the Taker's (possibly grown) buffers back, since Taker
// holds value-typed slice headers, not pointers into Source's fields.
func (s *Source) fixup(t *Taker) {
	s.bufData = t.bufData
	s.bufMax = t.bufMax
}

// All enumerates every value arbitrary can produce from a size budget of
// maxLen choice-units, as a range-over-func iterator.
func All[T any](maxLen int, arbitrary func(*Taker) T) iter.Seq[T] {
	return func(yield func(T) bool) {
		src := NewSource(maxLen)
		for {
			t, ok := src.NextRun()
			if !ok {
				return
			}
			v := arbitrary(t)
			src.fixup(t)
			if !yield(v) {
				return
			}
		}
	}
}
