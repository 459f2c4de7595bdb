// Package peg implements the PEG Engine of spec.md §4.3/§4.5: scannerless
// parsing over the adaptive grammar state, with seed-growing left recursion
// and layout interleaving.
//
// Grounded on ast/parser.go's parser struct and parseRule/parseExpr dispatch
// (a hand-rolled recursive-descent/packrat engine over a fixed grammar),
// generalized to an adaptive block-list structure and a fully dynamic
// expression set per spec.md §3.3/§3.4.
package peg

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/prism-lang/prismc/internal/plog"
	"github.com/prism-lang/prismc/internal/uuid"
	"github.com/prism-lang/prismc/pkg/action"
	"github.com/prism-lang/prismc/pkg/gramstate"
	"github.com/prism-lang/prismc/pkg/grammar"
	"github.com/prism-lang/prismc/pkg/hostns"
	"github.com/prism-lang/prismc/pkg/pcache"
	"github.com/prism-lang/prismc/pkg/presult"
	"github.com/prism-lang/prismc/pkg/source"
)

// Ctx is the ParserContext of spec.md §4.2: layout/recovery toggles that
// participate in the memo key alongside position and block-list identity.
type Ctx struct {
	LayoutDisabled   bool
	RecoveryDisabled bool
}

func (c Ctx) key() uint64 {
	var k uint64
	if c.LayoutDisabled {
		k |= 1
	}
	if c.RecoveryDisabled {
		k |= 2
	}
	return k
}

// Out is the value threaded through Result: the parsed payload plus the
// var-map as extended by any NameBind encountered along the way (spec.md
// §4.3's "NameBind(n, e): binds n -> result in the outgoing free-variable
// map").
type Out struct {
	Value hostns.Value
	Vars  *gramstate.VarMap

	// Tokens is the token stream accumulated so far (spec.md §6's run()
	// third return value), in match order. Lookahead strips it back to nil
	// since a lookahead never consumes input; SliceInput and layout
	// invocations collapse their inner tokens into one coarser token.
	Tokens []Token
}

// ErrorKind tags the engine's ParseError taxonomy (spec.md §7).
type ErrorKind int

const (
	ErrExpectedLiteral ErrorKind = iota
	ErrExpectedCharClass
	ErrInfLoop
	ErrNoBlocksMatch
	ErrNegLookaheadMatched
	ErrActionFailed
	ErrAdaptScopeEscape
	ErrInvalidRuleMutation
	ErrSamePositionAdaptation
	ErrLeftRecSentinel
)

// ParseError is the engine's concrete presult.ParseError. Labels collects
// "expected X" alternatives so ties at the same furthest position merge
// into one readable message instead of picking arbitrarily.
type ParseError struct {
	Kind   ErrorKind
	Labels []string
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Labels) > 0 {
		return fmt.Sprintf("expected one of %v", e.Labels)
	}
	return "parse error"
}

// Combine implements presult.ParseError: ties at the same position union
// their label sets (spec.md §4.1).
func (e *ParseError) Combine(other presult.ParseError) presult.ParseError {
	o, ok := other.(*ParseError)
	if !ok {
		return e
	}
	if e.Kind != o.Kind {
		merged := &ParseError{Kind: ErrNoBlocksMatch}
		merged.Labels = append(merged.Labels, e.Labels...)
		merged.Labels = append(merged.Labels, o.Labels...)
		return merged
	}
	merged := &ParseError{Kind: e.Kind, Detail: e.Detail}
	seen := make(map[string]bool)
	for _, l := range append(append([]string{}, e.Labels...), o.Labels...) {
		if !seen[l] {
			seen[l] = true
			merged.Labels = append(merged.Labels, l)
		}
	}
	return merged
}

func errResult(pos source.Position, kind ErrorKind, label string) presult.Result[Out] {
	var labels []string
	if label != "" {
		labels = []string{label}
	}
	return presult.Err[Out](&ParseError{Kind: kind, Labels: labels}, pos)
}

// ruleCtx is the "current block list" threading spec.md §4.3's RunVar
// #this/#next resolution needs, plus the enclosing rule's formal argument
// names/values so a fresh invocation (#this, #next, or a reparsed closure)
// can rebind them into each constructor's own captured scope.
type ruleCtx struct {
	cur      []*gramstate.BlockState
	argNames []string
	args     []gramstate.VarMapValue
}

// Engine drives the PEG operations of spec.md §4.3 over one grammar state,
// one packrat cache, and one action-evaluation/namespace registry. Not
// safe for concurrent use (spec.md §5: single-threaded per parse).
type Engine struct {
	Files    *source.Table
	Cache    *pcache.Cache
	Registry *hostns.Registry
	Actions  *action.Evaluator

	// Recovery maps a registered recovery point to its resume position
	// (spec.md §4.7). Nil disables recovery entirely. Owned and mutated by
	// pkg/recovery's Driver between retries, never by the engine itself.
	Recovery map[source.Position]source.Position

	// GuidSource is the entropy source Guid expressions (spec.md §3.3) read
	// fresh identifiers from. Defaults to crypto/rand.Reader; tests swap in
	// a fixed reader for reproducible output.
	GuidSource io.Reader
}

// NewEngine returns an Engine reading from files, memoizing in cache,
// dispatching actions through registry.
func NewEngine(files *source.Table, cache *pcache.Cache, registry *hostns.Registry) *Engine {
	return &Engine{Files: files, Cache: cache, Registry: registry, Actions: action.New(registry), GuidSource: rand.Reader}
}

// ParseRule invokes the named rule id with args at pos, the top-level
// entry point RunVar(name,...) resolves to when name names a rule.
func (e *Engine) ParseRule(gs *gramstate.State, id gramstate.RuleID, args []gramstate.VarMapValue, pos source.Position, ctx Ctx) presult.Result[Out] {
	rs := gs.Get(id)
	if rs == nil {
		return errResult(pos, ErrNoBlocksMatch, fmt.Sprintf("rule #%d", id))
	}
	plog.TraceParseRule(rs.Name, pos.Offset, blockListKey(rs.Blocks))
	rc := ruleCtx{cur: rs.Blocks, argNames: rs.Args, args: args}
	return e.parseBlockListMemo(gs, rc, pos, ctx)
}

// blockListKey hashes the identity of blocks (pointer addresses, not
// content) into the cache key's BlockList field: two calls with the same
// backing BlockState pointers — the common case, since AdaptWith only
// allocates new BlockStates for genuinely new/changed blocks — collide
// deterministically; a structurally different slice reliably does not.
func blockListKey(blocks []*gramstate.BlockState) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, b := range blocks {
		binary.LittleEndian.PutUint64(buf[:], uint64(reflect.ValueOf(b).Pointer()))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// parseBlockListMemo implements spec.md §4.3.1's memoized, seed-growing
// entry point for one (pos, block-list) pair.
func (e *Engine) parseBlockListMemo(gs *gramstate.State, rc ruleCtx, pos source.Position, ctx Ctx) presult.Result[Out] {
	if len(rc.cur) == 0 {
		return errResult(pos, ErrNoBlocksMatch, "")
	}
	key := pcache.Key{Pos: pos, BlockList: blockListKey(rc.cur), Ctx: ctx.key()}

	if entry, ok := e.Cache.Get(key); ok {
		e.Cache.MarkSeen(key)
		return entryToResult(entry, pos)
	}

	e.Cache.Set(key, &pcache.Entry{Ok: false, End: pos})
	result := e.parseBlockListOnce(gs, rc, pos, ctx)

	entry, _ := e.Cache.Get(key)
	if entry == nil || !entry.Seen {
		e.Cache.Set(key, resultToEntry(result))
		return result
	}

	// Left recursion detected: seed-grow.
	if !result.IsOk() {
		e.Cache.Set(key, resultToEntry(result))
		return result
	}
	best := result
	for {
		layer := e.Cache.LayerPush()
		e.Cache.Set(key, resultToEntry(best))
		next := e.parseBlockListOnce(gs, rc, pos, ctx)
		if next.IsOk() && next.EndPos().Offset > best.EndPos().Offset {
			best = next
			e.Cache.LayerCommit(layer)
			continue
		}
		e.Cache.LayerRevert(layer)
		break
	}
	e.Cache.Set(key, resultToEntry(best))
	return best
}

func entryToResult(entry *pcache.Entry, start source.Position) presult.Result[Out] {
	if entry.Ok {
		out, _ := entry.Value.(Out)
		if start == entry.End {
			return presult.OkEmpty(out, start)
		}
		return presult.Ok(out, start, entry.End)
	}
	return errResult(entry.End, ErrLeftRecSentinel, "")
}

func resultToEntry(r presult.Result[Out]) *pcache.Entry {
	if r.IsOk() {
		return &pcache.Entry{Ok: true, Value: r.Value(), End: r.EndPos()}
	}
	return &pcache.Entry{Ok: false, End: r.EndPos()}
}

// parseBlockListOnce tries rc.cur[0]'s constructors as an ordered choice,
// each under its own captured VarMap extended by rc.args bound to the
// enclosing rule's formal arg names (spec.md §3.4).
func (e *Engine) parseBlockListOnce(gs *gramstate.State, rc ruleCtx, pos source.Position, ctx Ctx) presult.Result[Out] {
	block := rc.cur[0]
	if len(block.Constructors) == 0 {
		return errResult(pos, ErrNoBlocksMatch, block.Name)
	}
	var acc presult.Result[Out]
	for i, c := range block.Constructors {
		vars := bindRuleArgs(rc.argNames, rc.args, c.Ctx)
		r := e.parseAnnotatedExpr(gs, rc, vars, c.Expr, pos, ctx)
		if i == 0 {
			acc = r
		} else {
			acc = presult.MergeChoice(acc, r)
		}
		if acc.IsOk() {
			break
		}
	}
	return acc
}

func bindRuleArgs(names []string, args []gramstate.VarMapValue, captured *gramstate.VarMap) *gramstate.VarMap {
	vars := captured
	for i, name := range names {
		if i < len(args) {
			vars = vars.Insert(name, args[i])
		}
	}
	return vars
}

// parseAnnotatedExpr applies ae's annotations (layout/recovery toggles,
// custom error message) before dispatching ae.Expr.
func (e *Engine) parseAnnotatedExpr(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, ae *grammar.AnnotatedExpr, pos source.Position, ctx Ctx) presult.Result[Out] {
	innerCtx := ctx
	var customMsg string
	for _, a := range ae.Annotations {
		switch a.Kind {
		case grammar.AnnDisableLayout:
			innerCtx.LayoutDisabled = true
		case grammar.AnnEnableLayout:
			innerCtx.LayoutDisabled = false
		case grammar.AnnDisableRecovery:
			innerCtx.RecoveryDisabled = true
		case grammar.AnnEnableRecovery:
			innerCtx.RecoveryDisabled = false
		case grammar.AnnError:
			customMsg = a.Msg
		}
	}
	r := e.parseExpr(gs, rc, vars, &ae.Expr, pos, innerCtx)
	if r.IsErr() && customMsg != "" {
		return presult.Err[Out](&ParseError{Kind: ErrNoBlocksMatch, Detail: customMsg}, r.EndPos())
	}
	return r
}

// parseExpr dispatches one grammar.Expr, wrapped in the layout-skipping
// retry loop of spec.md §4.5.
func (e *Engine) parseExpr(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, expr *grammar.Expr, pos source.Position, ctx Ctx) presult.Result[Out] {
	return e.withLayout(gs, rc, vars, pos, ctx, func(p source.Position) presult.Result[Out] {
		return e.parseExprOnce(gs, rc, vars, expr, p, ctx)
	})
}

// withLayout implements parse_with_layout (spec.md §4.5): try inner; on
// failure, and while layout is enabled and a `layout` rule is visible,
// consume one layout invocation (with layout disabled inside itself) and
// retry, stopping when layout fails, makes no progress, or inner succeeds.
func (e *Engine) withLayout(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, pos source.Position, ctx Ctx, inner func(source.Position) presult.Result[Out]) presult.Result[Out] {
	if ctx.LayoutDisabled {
		return inner(pos)
	}
	layoutVal, ok := vars.Get("layout")
	if !ok {
		return inner(pos)
	}
	p := pos
	var layoutToks []Token
	for {
		r := inner(p)
		if r.IsOk() {
			if len(layoutToks) == 0 {
				return r
			}
			return presult.Map(r, func(o Out) Out {
				toks := append(append([]Token{}, layoutToks...), o.Tokens...)
				return Out{Value: o.Value, Vars: o.Vars, Tokens: toks}
			})
		}
		layoutCtx := ctx
		layoutCtx.LayoutDisabled = true
		lr := e.invoke(gs, rc, vars, layoutVal, nil, p, layoutCtx)
		if lr.IsErr() || lr.EndPos().Offset == p.Offset {
			return r
		}
		layoutToks = append(layoutToks, Token{Span: source.Span{Start: p, End: lr.EndPos()}, Kind: TokenLayout})
		p = lr.EndPos()
	}
}

// invoke dispatches a resolved VarMapValue (rule id or closure) the way
// RunVar does, used both by RunVar itself and by withLayout's "invoke the
// layout rule" step.
func (e *Engine) invoke(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, v gramstate.VarMapValue, args []gramstate.VarMapValue, pos source.Position, ctx Ctx) presult.Result[Out] {
	if v.IsRule {
		return e.ParseRule(gs, v.RuleID, args, pos, ctx)
	}
	if v.Closure != nil {
		c := v.Closure
		crc := ruleCtx{cur: c.Blocks, argNames: c.ArgNames, args: c.CapArgs}
		return e.parseExpr(gs, crc, c.CapVars, c.Expr, pos, ctx)
	}
	panic("peg: invoke called on a non-rule, non-closure var-map value")
}

func (e *Engine) parseExprOnce(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, expr *grammar.Expr, pos source.Position, ctx Ctx) presult.Result[Out] {
	switch expr.Kind {
	case grammar.ExprCharClass:
		return e.parseCharClass(expr, vars, pos)

	case grammar.ExprLiteral:
		return e.parseLiteral(expr, vars, pos)

	case grammar.ExprSequence:
		return e.parseSequence(gs, rc, vars, expr, pos, ctx)

	case grammar.ExprChoice:
		return e.parseChoice(gs, rc, vars, expr, pos, ctx)

	case grammar.ExprRepeat:
		return e.parseRepeat(gs, rc, vars, expr, pos, ctx)

	case grammar.ExprNameBind:
		r := e.parseExpr(gs, rc, vars, expr.BindExpr, pos, ctx)
		return presult.Map(r, func(o Out) Out {
			return Out{Value: o.Value, Vars: o.Vars.Insert(expr.BindName, gramstate.OpaqueValue(o.Value)), Tokens: o.Tokens}
		})

	case grammar.ExprAction:
		return e.parseAction(gs, rc, vars, expr, pos, ctx)

	case grammar.ExprSliceInput:
		r := e.parseExpr(gs, rc, vars, expr.Inner, pos, ctx)
		if r.IsErr() {
			return r
		}
		span := source.Span{Start: r.Start(), End: r.EndPos()}
		slice := string(e.Files.Slice(span))
		return presult.Map(r, func(o Out) Out {
			var toks []Token
			if span.Start != span.End {
				toks = []Token{{Span: span, Kind: TokenSlice}}
			}
			return Out{Value: slice, Vars: o.Vars, Tokens: toks}
		})

	case grammar.ExprPosLookahead:
		r := e.parseExpr(gs, rc, vars, expr.Inner, pos, ctx)
		stripped := presult.Map(r, func(o Out) Out { return Out{Value: o.Value, Vars: o.Vars} })
		return presult.PositiveLookahead(stripped, pos)

	case grammar.ExprNegLookahead:
		r := e.parseExpr(gs, rc, vars, expr.Inner, pos, ctx)
		stripped := presult.Map(r, func(Out) struct{} { return struct{}{} })
		neg := presult.NegativeLookahead(stripped, pos, func() presult.ParseError {
			return &ParseError{Kind: ErrNegLookaheadMatched}
		})
		return presult.Map(neg, func(struct{}) Out { return Out{Vars: vars} })

	case grammar.ExprRunVar:
		return e.parseRunVar(gs, rc, vars, expr, pos, ctx)

	case grammar.ExprGuid:
		id, err := uuid.New(e.GuidSource)
		if err != nil {
			return errResult(pos, ErrActionFailed, fmt.Sprintf("guid: %v", err))
		}
		return presult.OkEmpty(Out{Value: id, Vars: vars}, pos)

	case grammar.ExprAtAdapt:
		return e.parseAtAdapt(gs, rc, vars, expr, pos, ctx)

	default:
		panic(fmt.Sprintf("peg: unhandled ExprKind %d", expr.Kind))
	}
}

// recover implements spec.md §4.7's "any primitive parser that fails at a
// position equal to a recovery point may produce a synthetic Ok that
// advances to the registered resume_pos, attaching the original error as
// best_err". Returns ok=false if pos isn't a registered recovery point.
func (e *Engine) recover(pos source.Position, vars *gramstate.VarMap, failure presult.ParseError) (presult.Result[Out], bool) {
	if e.Recovery == nil {
		return presult.Result[Out]{}, false
	}
	resume, ok := e.Recovery[pos]
	if !ok {
		return presult.Result[Out]{}, false
	}
	return presult.OkWithBestErr(Out{Vars: vars}, pos, resume, failure, pos), true
}

func (e *Engine) parseCharClass(expr *grammar.Expr, vars *gramstate.VarMap, pos source.Position) presult.Result[Out] {
	b := e.Files.Bytes(pos.File)
	fail := func() presult.Result[Out] {
		err := &ParseError{Kind: ErrExpectedCharClass, Labels: []string{expr.Class.String()}}
		if r, ok := e.recover(pos, vars, err); ok {
			return r
		}
		return presult.Err[Out](err, pos)
	}
	if pos.Offset >= len(b) {
		return fail()
	}
	r, size := utf8.DecodeRune(b[pos.Offset:])
	if !expr.Class.Contains(r) {
		return fail()
	}
	end := source.Position{File: pos.File, Offset: pos.Offset + size}
	tok := Token{Span: source.Span{Start: pos, End: end}, Kind: TokenCharClass}
	return presult.Ok(Out{Value: string(r), Vars: vars, Tokens: []Token{tok}}, pos, end)
}

func (e *Engine) parseLiteral(expr *grammar.Expr, vars *gramstate.VarMap, pos source.Position) presult.Result[Out] {
	b := e.Files.Bytes(pos.File)
	lit := expr.Literal
	if pos.Offset+len(lit) > len(b) || string(b[pos.Offset:pos.Offset+len(lit)]) != lit {
		err := &ParseError{Kind: ErrExpectedLiteral, Labels: []string{fmt.Sprintf("%q", lit)}}
		if r, ok := e.recover(pos, vars, err); ok {
			return r
		}
		return presult.Err[Out](err, pos)
	}
	if len(lit) == 0 {
		return presult.OkEmpty(Out{Value: lit, Vars: vars}, pos)
	}
	end := source.Position{File: pos.File, Offset: pos.Offset + len(lit)}
	kind := TokenSymbol
	if isAlphanumericLiteral(lit) {
		kind = TokenKeyword
	}
	tok := Token{Span: source.Span{Start: pos, End: end}, Kind: kind}
	return presult.Ok(Out{Value: lit, Vars: vars, Tokens: []Token{tok}}, pos, end)
}

func (e *Engine) parseSequence(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, expr *grammar.Expr, pos source.Position, ctx Ctx) presult.Result[Out] {
	acc := presult.OkEmpty(Out{Vars: vars}, pos)
	for i := range expr.Subs {
		if acc.IsErr() {
			return acc
		}
		next := e.parseExpr(gs, rc, acc.Value().Vars, &expr.Subs[i], acc.EndPos(), ctx)
		merged := presult.MergeSeq(acc, next)
		acc = presult.Map(merged, func(s presult.Seq[Out, Out]) Out {
			toks := append(append([]Token{}, s.First.Tokens...), s.Second.Tokens...)
			return Out{Value: s.Second.Value, Vars: s.Second.Vars, Tokens: toks}
		})
	}
	return acc
}

func (e *Engine) parseChoice(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, expr *grammar.Expr, pos source.Position, ctx Ctx) presult.Result[Out] {
	if len(expr.Subs) == 0 {
		return errResult(pos, ErrNoBlocksMatch, "empty choice")
	}
	acc := e.parseExpr(gs, rc, vars, &expr.Subs[0], pos, ctx)
	for i := 1; i < len(expr.Subs) && acc.IsErr(); i++ {
		next := e.parseExpr(gs, rc, vars, &expr.Subs[i], pos, ctx)
		acc = presult.MergeChoice(acc, next)
	}
	return acc
}

func (e *Engine) parseRepeat(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, expr *grammar.Expr, pos source.Position, ctx Ctx) presult.Result[Out] {
	curPos := pos
	curVars := vars
	var items []hostns.Value
	var tokens []Token
	count := 0
	for expr.RepeatMax < 0 || count < expr.RepeatMax {
		tryPos, tryVars := curPos, curVars
		var delimToks []Token
		if count > 0 && expr.RepeatDelim != nil {
			dres := e.parseExpr(gs, rc, curVars, expr.RepeatDelim, curPos, ctx)
			if dres.IsErr() {
				break
			}
			tryPos, tryVars = dres.EndPos(), dres.Value().Vars
			delimToks = dres.Value().Tokens
		}
		ir := e.parseExpr(gs, rc, tryVars, expr.RepeatExpr, tryPos, ctx)
		if ir.IsErr() {
			break
		}
		if ir.EndPos().Offset == tryPos.Offset && tryPos.Offset == curPos.Offset {
			return errResult(curPos, ErrInfLoop, "")
		}
		items = append(items, ir.Value().Value)
		tokens = append(tokens, delimToks...)
		tokens = append(tokens, ir.Value().Tokens...)
		curPos, curVars = ir.EndPos(), ir.Value().Vars
		count++
	}
	if count < expr.RepeatMin {
		return errResult(curPos, ErrNoBlocksMatch, "repeat minimum not met")
	}
	if pos == curPos {
		return presult.OkEmpty(Out{Value: items, Vars: curVars, Tokens: tokens}, pos)
	}
	return presult.Ok(Out{Value: items, Vars: curVars, Tokens: tokens}, pos, curPos)
}

func (e *Engine) parseAction(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, expr *grammar.Expr, pos source.Position, ctx Ctx) presult.Result[Out] {
	r := e.parseExpr(gs, rc, vars, expr.ActionExpr, pos, ctx)
	if r.IsErr() {
		return r
	}
	o := r.Value()
	v, err := e.Actions.Eval(expr.Act, source.Span{Start: r.Start(), End: r.EndPos()}, o.Vars)
	if err != nil {
		return errResult(r.EndPos(), ErrActionFailed, err.Error())
	}
	if r.Start() == r.EndPos() {
		return presult.OkEmpty(Out{Value: v, Vars: o.Vars, Tokens: o.Tokens}, r.Start())
	}
	return presult.Ok(Out{Value: v, Vars: o.Vars, Tokens: o.Tokens}, r.Start(), r.EndPos())
}

func (e *Engine) parseRunVar(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, expr *grammar.Expr, pos source.Position, ctx Ctx) presult.Result[Out] {
	switch expr.RunVarName {
	case grammar.ReservedThis:
		return e.parseBlockListMemo(gs, ruleCtx{cur: rc.cur, argNames: rc.argNames, args: rc.args}, pos, ctx)
	case grammar.ReservedNext:
		if len(rc.cur) <= 1 {
			return errResult(pos, ErrNoBlocksMatch, grammar.ReservedNext)
		}
		return e.parseBlockListMemo(gs, ruleCtx{cur: rc.cur[1:], argNames: rc.argNames, args: rc.args}, pos, ctx)
	}

	v, ok := vars.Get(expr.RunVarName)
	if !ok {
		panic(fmt.Sprintf("peg: RunVar(%q) not bound in var-map", expr.RunVarName))
	}

	args := make([]gramstate.VarMapValue, len(expr.RunVarArgs))
	for i := range expr.RunVarArgs {
		args[i] = e.resolveArg(rc, vars, &expr.RunVarArgs[i])
	}
	return e.invoke(gs, rc, vars, v, args, pos, ctx)
}

// resolveArg implements "each argument is passed as a closure unless it is
// a trivial rule reference, in which case the rule id is forwarded
// directly" (spec.md §4.3's RunVar rule).
func (e *Engine) resolveArg(rc ruleCtx, vars *gramstate.VarMap, argExpr *grammar.Expr) gramstate.VarMapValue {
	if argExpr.Kind == grammar.ExprRunVar && len(argExpr.RunVarArgs) == 0 {
		if v, ok := vars.Get(argExpr.RunVarName); ok && v.IsRule {
			return v
		}
	}
	closure := gramstate.NewClosure(argExpr, rc.cur, rc.argNames, rc.args, vars)
	return gramstate.ClosureValue(closure)
}

// parseAtAdapt implements spec.md §4.3's AtAdapt(ns, grammar-var, body):
// look up grammar-var, ask its namespace to evaluate it to a GrammarFile,
// splice it into the grammar state at the current position, parse body
// under the new state, and restore the state on exit.
func (e *Engine) parseAtAdapt(gs *gramstate.State, rc ruleCtx, vars *gramstate.VarMap, expr *grammar.Expr, pos source.Position, ctx Ctx) presult.Result[Out] {
	v, ok := vars.Get(expr.AdaptVarName)
	if !ok {
		panic(fmt.Sprintf("peg: AtAdapt var %q not bound in var-map", expr.AdaptVarName))
	}
	if v.IsRule || v.Closure != nil {
		return errResult(pos, ErrAdaptScopeEscape, expr.AdaptVarName)
	}
	ns, ok := e.Registry.Lookup(expr.AdaptNS)
	if !ok {
		return errResult(pos, ErrAdaptScopeEscape, expr.AdaptNS)
	}
	evalCtx := ns.CreateEvalCtx(v.Value)
	grammarFile, err := ns.EvalToGrammar(v.Value, evalCtx)
	if err != nil {
		return errResult(pos, ErrAdaptScopeEscape, err.Error())
	}

	newState, newVars, err := gs.AdaptWith(grammarFile, vars, &pos)
	if err != nil {
		return presult.Err[Out](adaptErr(err), pos)
	}

	return e.parseExpr(newState, rc, newVars, expr.AdaptBody, pos, ctx)
}

func adaptErr(err error) *ParseError {
	switch err.(type) {
	case *gramstate.ErrInvalidRuleMutation:
		return &ParseError{Kind: ErrInvalidRuleMutation, Detail: err.Error()}
	case *gramstate.ErrSamePositionAdaptation:
		return &ParseError{Kind: ErrSamePositionAdaptation, Detail: err.Error()}
	default:
		return &ParseError{Kind: ErrAdaptScopeEscape, Detail: err.Error()}
	}
}
