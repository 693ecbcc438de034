// Copyright 2026 The lx Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lx

import (
	"github.com/Beariish/lx/internal/arena"
	"github.com/Beariish/lx/internal/debug"
	"github.com/Beariish/lx/internal/zc"
)

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_'
}
func isAlnum(b byte) bool { return isDigit(b) || isAlpha(b) }

func isEOF(r arena.Ref) bool { return r == arena.EofRef }

// evalValue is eval with the "no value produced" signal (used internally by
// the backtick comment to leave a surrounding statement sequence's running
// result untouched) coalesced to nil. Every call site that's about to treat
// the result as a real value -- as opposed to a parseBody loop threading it
// through to a possible merge -- goes through this instead of eval
// directly, so an operand that happens to be a bare comment never produces
// a reference too-free for Context.arena.Cell to dereference.
func (c *Context) evalValue(call arena.Ref, pos int, evalSymbol, sideEffects bool) (arena.Ref, int) {
	r, next := c.eval(call, pos, evalSymbol, sideEffects)
	if r == arena.Null {
		r = arena.NilRef
	}
	return r, next
}

// atEnd reports whether pos has run off the live portion of text: past its
// length, or onto the NUL byte a Run appends after every program to mark
// where that run's source ends.
func atEnd(text []byte, pos int) bool { return pos >= len(text) || text[pos] == 0 }

func eatSpace(text []byte, pos int) int {
	for pos < len(text) && isSpace(text[pos]) {
		pos++
	}
	return pos
}

func wordLen(text []byte, pos int) int {
	n := 0
	for pos+n < len(text) && isAlnum(text[pos+n]) {
		n++
	}
	return n
}

// parseNumber reads a decimal literal (digits with at most one '.') from
// text starting at pos and returns its value and the position just past it.
func parseNumber(text []byte, pos int) (float64, int) {
	val, scale := 0.0, 1.0
	dot := false
	for pos < len(text) && (isDigit(text[pos]) || (text[pos] == '.' && !dot)) {
		if dot {
			scale /= 10
			val += float64(text[pos]-'0') * scale
		} else if text[pos] == '.' {
			dot = true
		} else {
			val = val*10 + float64(text[pos]-'0')
		}
		pos++
	}
	return val, pos
}

// internSymbolSpan allocates a Symbol cell whose text is the given span of
// the arena's program-text buffer.
func (c *Context) internSymbolSpan(span zc.Range) arena.Ref {
	r := c.alloc(arena.Symbol, false)
	if cell := c.arena.Cell(r); cell != nil {
		cell.Span = span
	}
	return r
}

// evalPair evaluates two consecutive operand expressions starting at pos,
// protecting the first while the second is evaluated. It's the shared
// shape behind every binary operator.
func (c *Context) evalPair(call arena.Ref, pos int, sideEffects bool) (a, b arena.Ref, next int, eof bool) {
	a, next = c.evalValue(call, pos, true, sideEffects)
	if isEOF(a) {
		return a, arena.NilRef, next, true
	}
	done := c.protectAll(a)
	b, next = c.evalValue(call, next, true, sideEffects)
	done()
	if isEOF(b) {
		return a, b, next, true
	}
	return a, b, next, false
}

// parseBody evaluates expressions in call's scope until it consumes endCh,
// merging results the way a comment ("no value produced") leaves the
// running result untouched, and invoking after (if non-nil) with the
// merged result once per expression parsed.
func (c *Context) parseBody(call arena.Ref, pos int, endCh byte, sideEffects bool, after func(arena.Ref)) (arena.Ref, int, bool) {
	text := c.arena.Text()
	pos = eatSpace(text, pos)
	if atEnd(text, pos) {
		return arena.EofRef, pos, true
	}

	result := arena.Ref(arena.NilRef)
	if text[pos] == endCh {
		return result, pos + 1, false
	}

	for {
		value, next := c.eval(call, pos, true, sideEffects)
		if value != arena.Null {
			result = value
		}
		if isEOF(result) {
			return arena.EofRef, next, true
		}
		pos = eatSpace(text, next)
		if atEnd(text, pos) {
			return arena.EofRef, pos, true
		}
		if after != nil {
			done := c.protectAll(result)
			after(result)
			done()
		}
		if text[pos] == endCh {
			break
		}
	}
	return result, pos + 1, false
}

// eval is the fused lexer/parser/evaluator: it reads one expression
// starting at pos and returns its value together with the position just
// past it. evalSymbol controls whether a bare word looks itself up (and,
// if callable, is invoked) or is returned as a literal symbol; sideEffects
// controls whether assignment, printing, and function application actually
// happen, or are merely parsed through to advance the cursor correctly
// (used for the untaken branch of ?, the body of a false ^, and similar).
func (c *Context) eval(call arena.Ref, pos int, evalSymbol, sideEffects bool) (arena.Ref, int) {
	text := c.arena.Text()
	pos = eatSpace(text, pos)
	if atEnd(text, pos) {
		return arena.EofRef, pos
	}

	ch := text[pos]
	pos++

	switch ch {
	case '~':
		return arena.NilRef, pos

	case '"':
		start := pos
		for pos < len(text) && text[pos] != '"' && text[pos] != 0 {
			pos++
		}
		if atEnd(text, pos) {
			return arena.EofRef, pos
		}
		r := c.alloc(arena.String, false)
		if cell := c.arena.Cell(r); cell != nil {
			cell.Span = zc.New(start, pos-start)
		}
		pos++
		return r, pos

	case '+', '-', '*', '/':
		a, b, next, eof := c.evalPair(call, pos, sideEffects)
		if eof {
			return arena.EofRef, next
		}
		ca, cb := c.arena.Cell(a), c.arena.Cell(b)
		if ca.Tag != cb.Tag {
			return arena.NilRef, next
		}
		if ca.Tag != arena.Number {
			return arena.NilRef, next
		}
		return c.numberRef(arithOp(ch, ca.Num, cb.Num)), next

	case '<', '>':
		op := ch
		if pos < len(text) && text[pos] == '=' {
			pos++
			if op == '<' {
				op = 'l' // <=
			} else {
				op = 'g' // >=
			}
		}
		a, b, next, eof := c.evalPair(call, pos, sideEffects)
		if eof {
			return arena.EofRef, next
		}
		ca, cb := c.arena.Cell(a), c.arena.Cell(b)
		if ca.Tag != cb.Tag {
			return arena.ZeroRef, next
		}
		if ca.Tag != arena.Number {
			return arena.NilRef, next
		}
		if compOp(op, ca.Num, cb.Num) {
			return arena.OneRef, next
		}
		return arena.ZeroRef, next

	case '&', '|':
		a, b, next, eof := c.evalPair(call, pos, sideEffects)
		if eof {
			return arena.EofRef, next
		}
		at, bt := c.wrap(a).Truthy(), c.wrap(b).Truthy()
		truthy := at && bt
		if ch == '|' {
			truthy = at || bt
		}
		if truthy {
			return arena.OneRef, next
		}
		return arena.ZeroRef, next

	case '!':
		a, next := c.evalValue(call, pos, true, sideEffects)
		if isEOF(a) {
			return a, next
		}
		if c.wrap(a).Truthy() {
			return arena.ZeroRef, next
		}
		return arena.OneRef, next

	case '_':
		a, next := c.evalValue(call, pos, true, sideEffects)
		if isEOF(a) {
			return a, next
		}
		cell := c.arena.Cell(a)
		if cell == nil || cell.Tag != arena.Number {
			return arena.NilRef, next
		}
		n := cell.Num
		var rounded int64
		if n > 0 {
			rounded = int64(n + 0.5)
		} else {
			rounded = int64(n - 0.5)
		}
		return c.numberRef(float64(rounded)), next

	case '(':
		result, next, eof := c.parseBody(call, pos, ')', sideEffects, nil)
		if eof {
			return arena.EofRef, next
		}
		return result, next

	case '{':
		return c.evalBlock(call, pos, sideEffects)

	case '[':
		return c.evalListLiteral(call, pos, sideEffects)

	case '.':
		return c.evalIndexGet(call, pos, sideEffects)

	case ':':
		return c.evalIndexSet(call, pos, sideEffects)

	case '=':
		return c.evalAssignOrEqual(call, pos, sideEffects)

	case '`':
		for pos < len(text) && text[pos] != '\n' && text[pos] != 0 {
			pos++
		}
		return arena.Null, pos

	case ',':
		v, next := c.evalValue(call, pos, true, sideEffects)
		if isEOF(v) {
			return v, next
		}
		if sideEffects {
			c.printer(c.Format(c.wrap(v)))
		}
		return arena.NilRef, next

	case ';':
		if sideEffects {
			c.printer("\n")
		}
		return arena.NilRef, pos

	case '@':
		sym, next := c.evalValue(call, pos, false, sideEffects)
		if isEOF(sym) {
			return sym, next
		}
		return c.lookupCall(call, sym), next

	case '?':
		return c.evalConditional(call, pos, sideEffects)

	case '#':
		return c.evalListAppendExpr(call, pos, sideEffects)

	case '\\':
		list, next := c.evalValue(call, pos, true, sideEffects)
		if isEOF(list) {
			return list, next
		}
		if !sideEffects {
			return arena.NilRef, next
		}
		done := c.protectAll(list)
		r := c.listPop(list)
		done()
		return r, next

	case '%':
		return c.evalForEach(call, pos, sideEffects)

	case '^':
		return c.evalWhile(call, pos, sideEffects)

	case '$':
		v, next := c.evalValue(call, pos, true, sideEffects)
		if isEOF(v) {
			return v, next
		}
		n := c.wrap(v).Len()
		if n < 0 {
			return arena.NilRef, next
		}
		return c.numberRef(float64(n)), next

	case '\'':
		return c.evalFnLiteral(call, pos)

	default:
		pos--
		return c.evalLiteralOrSymbol(call, pos, evalSymbol, sideEffects)
	}
}

func arithOp(op byte, a, b float64) float64 {
	switch op {
	case '+':
		return a + b
	case '-':
		return a - b
	case '*':
		return a * b
	default:
		return a / b
	}
}

func compOp(op byte, a, b float64) bool {
	switch op {
	case '<':
		return a < b
	case '>':
		return a > b
	case 'l':
		return a <= b
	default:
		return a >= b
	}
}

func (c *Context) evalBlock(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	newCall := c.alloc(arena.Call, false)
	if nc := c.arena.Cell(newCall); nc != nil {
		nc.A, nc.B, nc.C = call, arena.Null, arena.Null
	}
	prev := c.current
	c.current = newCall
	_, next, eof := c.parseBody(newCall, pos, '}', sideEffects, nil)
	c.current = prev
	if eof {
		return arena.EofRef, next
	}
	if nc := c.arena.Cell(newCall); nc != nil && nc.B != arena.Null {
		return nc.B, next
	}
	return arena.NilRef, next
}

func (c *Context) evalListLiteral(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	listStart := c.alloc(arena.List, false)
	if lc := c.arena.Cell(listStart); lc != nil {
		lc.A, lc.B = arena.Null, arena.Null
	}
	done := c.protectAll(listStart)
	defer done()

	listCurrent := listStart
	_, next, eof := c.parseBody(call, pos, ']', sideEffects, func(merged arena.Ref) {
		listCurrent = c.listAppend(listCurrent, merged)
	})
	if eof {
		return arena.EofRef, next
	}
	return listStart, next
}

func (c *Context) evalIndexGet(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	env, next := c.evalValue(call, pos, true, sideEffects)
	if isEOF(env) {
		return env, next
	}
	done := c.protectAll(env)
	defer done()

	envCell := c.arena.Cell(env)
	switch {
	case envCell != nil && envCell.Tag == arena.Env:
		sym, next2 := c.evalValue(call, next, false, sideEffects)
		if isEOF(sym) {
			return sym, next2
		}
		return c.envGet(env, sym), next2

	case envCell != nil && envCell.Tag == arena.List:
		sym, next2 := c.evalValue(call, next, true, sideEffects)
		if isEOF(sym) {
			return sym, next2
		}
		symCell := c.arena.Cell(sym)
		if symCell == nil || symCell.Tag != arena.Number {
			return arena.NilRef, next2
		}
		cur := env
		for i := 0; i < int(symCell.Num); i++ {
			n := c.listNext(cur)
			if n == arena.NilRef {
				cur = arena.Null
				break
			}
			cur = n
		}
		if cur == arena.Null {
			return arena.NilRef, next2
		}
		return c.listValue(cur), next2

	default:
		sym, next2 := c.evalValue(call, next, false, sideEffects)
		if isEOF(sym) {
			return sym, next2
		}
		return arena.NilRef, next2
	}
}

func (c *Context) evalIndexSet(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	env, next := c.evalValue(call, pos, true, sideEffects)
	if isEOF(env) {
		return env, next
	}
	done := c.protectAll(env)
	defer done()
	envCell := c.arena.Cell(env)

	if !sideEffects {
		sym, next2 := c.evalValue(call, next, false, sideEffects)
		if isEOF(sym) {
			return sym, next2
		}
		val, next3 := c.evalValue(call, next2, true, sideEffects)
		if isEOF(val) {
			return val, next3
		}
		return arena.NilRef, next3
	}

	switch {
	case envCell != nil && envCell.Tag == arena.Env:
		sym, next2 := c.evalValue(call, next, false, sideEffects)
		if isEOF(sym) {
			return sym, next2
		}
		doneSym := c.protectAll(sym)
		val, next3 := c.evalValue(call, next2, true, sideEffects)
		if isEOF(val) {
			doneSym()
			return val, next3
		}
		doneBind := c.protectAll(sym, val)
		c.envSet(env, sym, val)
		doneBind()
		doneSym()
		return arena.NilRef, next3

	case envCell != nil && envCell.Tag == arena.List:
		sym, next2 := c.evalValue(call, next, true, sideEffects)
		if isEOF(sym) {
			return sym, next2
		}
		doneSym := c.protectAll(sym)
		val, next3 := c.evalValue(call, next2, true, sideEffects)
		if isEOF(val) {
			doneSym()
			return val, next3
		}
		doneBind := c.protectAll(sym, val)
		symCell := c.arena.Cell(sym)
		if symCell != nil && symCell.Tag == arena.Number {
			cur := env
			ok := true
			for i := 0; i < int(symCell.Num); i++ {
				n := c.listNext(cur)
				if n == arena.NilRef {
					ok = false
					break
				}
				cur = n
			}
			if ok {
				if cell := c.arena.Cell(cur); cell != nil {
					cell.A = val
				}
			}
		}
		doneBind()
		doneSym()
		return arena.NilRef, next3

	default:
		sym, next2 := c.evalValue(call, next, false, sideEffects)
		if isEOF(sym) {
			return sym, next2
		}
		val, next3 := c.evalValue(call, next2, true, sideEffects)
		if isEOF(val) {
			return val, next3
		}
		return arena.NilRef, next3
	}
}

func (c *Context) evalAssignOrEqual(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	text := c.arena.Text()
	if pos < len(text) && text[pos] == '=' {
		pos++
		a, b, next, eof := c.evalPair(call, pos, sideEffects)
		if eof {
			return arena.EofRef, next
		}
		ca, cb := c.arena.Cell(a), c.arena.Cell(b)
		if ca.Tag != cb.Tag {
			return arena.ZeroRef, next
		}
		switch ca.Tag {
		case arena.Number:
			if ca.Num == cb.Num {
				return arena.OneRef, next
			}
			return arena.ZeroRef, next
		case arena.String:
			if c.cellText(ca) == c.cellText(cb) {
				return arena.OneRef, next
			}
			return arena.ZeroRef, next
		default:
			if a == b {
				return arena.OneRef, next
			}
			return arena.NilRef, next
		}
	}

	sym, next := c.evalValue(call, pos, false, sideEffects)
	if isEOF(sym) {
		return sym, next
	}
	doneSym := c.protectAll(sym)
	val, next2 := c.evalValue(call, next, true, sideEffects)
	if isEOF(val) {
		doneSym()
		return val, next2
	}
	if sideEffects {
		doneBind := c.protectAll(sym, val)
		env := c.ensureCallEnv(call)
		c.envSet(env, sym, val)
		doneBind()
	}
	doneSym()
	return arena.NilRef, next2
}

func (c *Context) evalConditional(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	cond, next := c.evalValue(call, pos, true, sideEffects)
	if isEOF(cond) {
		return cond, next
	}
	done := c.protectAll(cond)
	truthy := c.wrap(cond).Truthy()

	trueResult, next2 := c.evalValue(call, next, true, sideEffects && truthy)
	if isEOF(trueResult) {
		done()
		return trueResult, next2
	}
	done2 := c.protectAll(trueResult)
	falseResult, next3 := c.evalValue(call, next2, true, sideEffects && !truthy)
	done2()
	done()
	if isEOF(falseResult) {
		return falseResult, next3
	}
	if truthy {
		return trueResult, next3
	}
	return falseResult, next3
}

func (c *Context) evalListAppendExpr(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	list, next := c.evalValue(call, pos, true, sideEffects)
	if isEOF(list) {
		return list, next
	}
	done := c.protectAll(list)
	item, next2 := c.evalValue(call, next, true, sideEffects)
	done()
	if isEOF(item) {
		return item, next2
	}
	if !sideEffects {
		return arena.NilRef, next2
	}
	done2 := c.protectAll(list, item)
	result := c.listAppend(list, item)
	done2()
	return result, next2
}

func (c *Context) evalForEach(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	list, next := c.evalValue(call, pos, true, sideEffects)
	if isEOF(list) {
		return list, next
	}
	doneList := c.protectAll(list)
	name, next2 := c.evalValue(call, next, false, sideEffects)
	if isEOF(name) {
		doneList()
		return name, next2
	}

	bodyStart := next2
	if !sideEffects || c.listValue(list) == arena.NilRef {
		doneList()
		_, dryNext := c.eval(call, bodyStart, false, false)
		return arena.NilRef, dryNext
	}

	env := c.ensureCallEnv(call)
	result := arena.Ref(arena.NilRef)
	finalNext := bodyStart
	cur := list
	for cur != arena.NilRef && c.listValue(cur) != arena.NilRef {
		val := c.listValue(cur)
		d := c.protectAll(cur, name, val)
		c.envSet(env, name, val)
		d()

		// list stays on the shadow stack for the whole loop: gc.mark follows
		// its B chain, so the entire spine -- including cur, further ahead --
		// survives any collection the body triggers.
		result, finalNext = c.evalValue(call, bodyStart, true, sideEffects)
		cur = c.listNext(cur)
	}
	doneList()
	return result, finalNext
}

func (c *Context) evalWhile(call arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	condStart := pos
	cond, next := c.evalValue(call, condStart, true, sideEffects)
	if isEOF(cond) {
		return cond, next
	}
	bodyStart := next

	if !c.wrap(cond).Truthy() {
		_, dryNext := c.eval(call, bodyStart, false, false)
		return arena.NilRef, dryNext
	}

	result := arena.Ref(arena.NilRef)
	finalNext := bodyStart
	for c.wrap(cond).Truthy() {
		result, finalNext = c.evalValue(call, bodyStart, true, sideEffects)
		cond, _ = c.evalValue(call, condStart, true, sideEffects)
		if !sideEffects {
			break
		}
	}
	return result, finalNext
}

func (c *Context) evalFnLiteral(call arena.Ref, pos int) (arena.Ref, int) {
	text := c.arena.Text()
	r := c.alloc(arena.Fn, true)

	pos = eatSpace(text, pos)
	argStart := pos
	if pos < len(text) && text[pos] == '(' {
		for pos < len(text) && text[pos] != ')' && text[pos] != 0 {
			pos++
		}
		if atEnd(text, pos) {
			return arena.EofRef, pos
		}
		pos++
	} else {
		pos += wordLen(text, pos)
	}
	pos = eatSpace(text, pos)
	bodyStart := pos

	_, dryNext := c.eval(call, pos, false, false)

	if cell := c.arena.Cell(r); cell != nil {
		cell.I0 = int32(argStart)
		cell.I1 = int32(bodyStart)
	}
	return r, dryNext
}

// evalLiteralOrSymbol handles everything not covered by a dedicated
// operator: number literals, bare words (either a self-evaluating symbol
// or, when evalSymbol is set, a dynamically-scoped variable reference that
// is invoked if it resolves to a function), and anything else, which is an
// unexpected token and ends evaluation the same way running off the end of
// the program does.
func (c *Context) evalLiteralOrSymbol(call arena.Ref, pos int, evalSymbol, sideEffects bool) (arena.Ref, int) {
	text := c.arena.Text()
	ch := text[pos]

	if isDigit(ch) {
		n, next := parseNumber(text, pos)
		return c.numberRef(n), next
	}

	if isAlpha(ch) {
		wlen := wordLen(text, pos)
		span := zc.New(pos, wlen)
		tokenEnd := pos + wlen

		if !evalSymbol {
			return c.internSymbolSpan(span), tokenEnd
		}

		name := c.internSymbolSpan(span)
		done := c.protectAll(name)
		found := c.lookupCall(call, name)
		done()

		foundCell := c.arena.Cell(found)
		if foundCell != nil && (foundCell.Tag == arena.Fn || foundCell.Tag == arena.CFn) {
			return c.invoke(call, found, tokenEnd, sideEffects)
		}
		return found, tokenEnd
	}

	return arena.EofRef, pos
}

// invoke parses fn's argument list against the call-site text starting at
// pos (evaluated in caller's scope), then, if sideEffects, runs fn's body
// (a user Fn) or native implementation (a CFn) in the freshly bound frame.
// The returned cursor position is always the call site's, just past the
// parsed argument list -- never anywhere inside a Fn's body text, which is
// a disjoint region of the program-text buffer.
func (c *Context) invoke(caller, fn arena.Ref, pos int, sideEffects bool) (arena.Ref, int) {
	doneFn := c.protectAll(fn)
	defer doneFn()
	fnCell := c.arena.Cell(fn)

	env := c.alloc(arena.Env, true)
	if e := c.arena.Cell(env); e != nil {
		e.A, e.B, e.C = arena.Null, arena.Null, arena.Null
	}
	doneEnv := c.protectAll(env)
	defer doneEnv()

	newCall := c.alloc(arena.Call, false)
	if nc := c.arena.Cell(newCall); nc != nil {
		nc.A, nc.B, nc.C = caller, env, fn
	}
	doneCall := c.protectAll(newCall)
	defer doneCall()

	text := c.arena.Text()
	specPos := int(fnCell.I0)
	callPos := pos

	bindOne := func() bool {
		specPos = eatSpace(text, specPos)
		wordStart := specPos
		wlen := wordLen(text, specPos)
		specPos += wlen

		argVal, nextCall := c.evalValue(caller, callPos, true, sideEffects)
		callPos = nextCall
		if isEOF(argVal) {
			return false
		}

		nameRef := c.internSymbolSpan(zc.New(wordStart, wlen))
		d := c.protectAll(nameRef, argVal)
		c.envSet(env, nameRef, argVal)
		d()
		return true
	}

	if specPos < len(text) && text[specPos] == '(' {
		specPos++
		for {
			specPos = eatSpace(text, specPos)
			if specPos >= len(text) || text[specPos] == ')' || text[specPos] == 0 {
				break
			}
			if !bindOne() {
				return arena.EofRef, callPos
			}
		}
		if specPos < len(text) && text[specPos] == ')' {
			specPos++
		}
	} else {
		if !bindOne() {
			return arena.EofRef, callPos
		}
	}

	result := arena.Ref(arena.NilRef)
	if sideEffects {
		prev := c.current
		c.current = newCall
		switch fnCell.Tag {
		case arena.Fn:
			result, _ = c.evalValue(newCall, int(fnCell.I1), true, sideEffects)
		case arena.CFn:
			result = c.natives[fnCell.I1](c, c.wrap(env)).ref
		}
		c.current = prev
	}

	return result, callPos
}

// Run executes code as a sequence of top-level expressions in env's scope
// and returns the last value produced, or nil if code produced nothing (an
// empty program, or one consisting only of comments).
//
// code is copied into the Context's program-text buffer; Run returns the
// nil value without copying anything if it doesn't fit.
func (c *Context) Run(env Value, code string) Value {
	debug.EnterContext(c.key())
	defer debug.ExitContext(c.key())

	span, ok := c.arena.AppendText(code + "\x00")
	if !ok {
		debug.Log(nil, "run", "%d bytes of source do not fit: %v", len(code)+1, c.arena)
		return c.Nil()
	}
	start := span.Start()
	limit := start + len(code) + 1

	newCall := c.alloc(arena.Call, false)
	if nc := c.arena.Cell(newCall); nc != nil {
		nc.A, nc.B, nc.C = c.current, env.ref, arena.Null
	}
	prev := c.current
	c.current = newCall

	result := arena.Ref(arena.NilRef)
	pos := start
	for pos < limit {
		val, next := c.eval(newCall, pos, true, true)
		if isEOF(val) {
			break
		}
		if val != arena.Null {
			result = val
		}
		if next <= pos {
			break
		}
		pos = next
	}

	c.current = prev
	return c.wrap(result)
}
