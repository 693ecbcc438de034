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
	"reflect"
	"time"

	"github.com/Beariish/lx/internal/arena"
	"github.com/Beariish/lx/internal/debug"
	"github.com/Beariish/lx/internal/gc"
	"github.com/Beariish/lx/internal/stats"
)

// NativeFunc is a host-provided function invoked from source text. It
// receives the context and the call's freshly-bound local env, and returns
// the call's result.
type NativeFunc func(ctx *Context, env Value) Value

// Context is a single, self-contained instance of the interpreter: its
// arena, its printer callback, its registered native functions, and its GC
// root bookkeeping. A Context is not safe for concurrent use from more than
// one goroutine at a time; in builds tagged "debug" this is asserted at
// runtime.
type Context struct {
	arena   *arena.Arena
	printer func(string)

	current arena.Ref   // GC root: the currently-executing call frame.
	protect []arena.Ref // shadow root stack for sub-evaluations that might GC.

	natives []NativeFunc

	formatBuf []byte

	gcRuns   stats.Counter
	gcMicros stats.Mean
}

// Open creates a Context with the given cell-area capacity and
// program-text buffer size, and the given printer callback for `,`/`;`.
//
// A nil printer is valid; output is simply discarded.
func Open(cellCount, textSize int, printer func(string)) (*Context, error) {
	if cellCount <= 0 {
		return nil, &errOpen{code: errCodeNoCells}
	}
	if textSize < 0 {
		return nil, &errOpen{code: errCodeTooSmall}
	}
	if printer == nil {
		printer = func(string) {}
	}

	c := &Context{
		arena:   arena.New(cellCount, textSize),
		printer: printer,
		current: arena.Null,
	}
	debug.Log(nil, "open", "%v", c.arena)
	return c, nil
}

// key returns a stable identity for this Context, used to scope the debug
// reentrancy check to this Context alone.
func (c *Context) key() uintptr { return reflect.ValueOf(c).Pointer() }

// alloc allocates a cell, triggering a GC cycle if the free list is empty,
// and returns the nil singleton if the arena is exhausted even after
// collecting.
func (c *Context) alloc(tag arena.Tag, mark bool) arena.Ref {
	if r, ok := c.arena.Alloc(tag, mark); ok {
		return r
	}
	c.GC()
	if r, ok := c.arena.Alloc(tag, mark); ok {
		return r
	}
	debug.Log(nil, "alloc", "exhausted: %v", c.arena)
	return arena.NilRef
}

// protectValue pushes r onto the shadow root stack so that it survives any
// GC cycle a subsequent allocation might trigger, and returns a function
// that pops it back off. This replaces the C original's "mark before you
// recurse" convention with an explicit, always-balanced stack.
func (c *Context) protectValue(r arena.Ref) (unprotect func()) {
	c.protect = append(c.protect, r)
	i := len(c.protect) - 1
	return func() {
		c.protect = append(c.protect[:i], c.protect[i+1:]...)
	}
}

// protectAll protects every ref in refs at once and returns a single
// function that releases all of them, in reverse order.
func (c *Context) protectAll(refs ...arena.Ref) (unprotect func()) {
	fns := make([]func(), len(refs))
	for i, r := range refs {
		fns[i] = c.protectValue(r)
	}
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}

// ensureCallEnv returns call's env, creating and attaching an empty one if
// it doesn't have one yet.
func (c *Context) ensureCallEnv(call arena.Ref) arena.Ref {
	frame := c.arena.Cell(call)
	if frame == nil || frame.Tag != arena.Call {
		return arena.NilRef
	}
	if frame.B == arena.Null {
		env := c.alloc(arena.Env, true)
		if e := c.arena.Cell(env); e != nil {
			e.A, e.B, e.C = arena.Null, arena.Null, arena.Null
		}
		frame.B = env
	}
	return frame.B
}

// GC runs one mark-and-sweep collection cycle and returns the number of
// cells freed.
func (c *Context) GC() int {
	start := time.Now()
	freed := gc.Collect(c.arena, gc.Roots{Current: c.current, Shadow: c.protect})
	c.gcRuns.Add(1)
	c.gcMicros.Record(float64(time.Since(start).Microseconds()))
	return freed
}

// CellCount returns the total number of cells available in this Context's
// arena.
func (c *Context) CellCount() int { return c.arena.Len() }

// Stats returns lifetime allocation and GC-freed cell counters, plus the
// number of collection cycles run and their mean wall-clock cost -- the
// diagnostics a host embedding this package would want to expose on its own
// metrics surface.
func (c *Context) Stats() (allocs, freed int64, gcRuns int64, meanGCMicros float64) {
	allocs, freed = c.arena.Stats()
	return allocs, freed, c.gcRuns.Get(), c.gcMicros.Get()
}

// Nil returns the shared nil value.
func (c *Context) Nil() Value { return c.wrap(arena.NilRef) }

// Eof returns the shared eof value.
func (c *Context) Eof() Value { return c.wrap(arena.EofRef) }

// Number constructs a new number value.
func (c *Context) Number(n float64) Value { return c.wrap(c.numberRef(n)) }

func (c *Context) numberRef(n float64) arena.Ref {
	if n == 0 {
		return arena.ZeroRef
	}
	if n == 1 {
		return arena.OneRef
	}
	r := c.alloc(arena.Number, false)
	if cell := c.arena.Cell(r); cell != nil {
		cell.Num = n
	}
	return r
}

// NewString constructs a string value. s must outlive the Context.
func (c *Context) NewString(s string) Value { return c.newHostString(arena.String, s) }

// Symbol constructs a symbol value. s must outlive the Context.
func (c *Context) Symbol(s string) Value { return c.newHostString(arena.Symbol, s) }

func (c *Context) newHostString(tag arena.Tag, s string) Value {
	r := c.alloc(tag, false)
	if cell := c.arena.Cell(r); cell != nil {
		cell.FromHost = true
		cell.HostStr = s
	}
	return c.wrap(r)
}

// NewList constructs an empty list value.
func (c *Context) NewList() Value {
	r := c.alloc(arena.List, false)
	if cell := c.arena.Cell(r); cell != nil {
		cell.A, cell.B = arena.Null, arena.Null
	}
	return c.wrap(r)
}

// NewEnv constructs an empty environment value.
func (c *Context) NewEnv() Value {
	r := c.alloc(arena.Env, true)
	if cell := c.arena.Cell(r); cell != nil {
		cell.A, cell.B, cell.C = arena.Null, arena.Null, arena.Null
	}
	return c.wrap(r)
}

// Fn constructs a user-defined function value. args is either a single
// word or a parenthesized, space-separated parameter list; body is the
// expression evaluated when the function is called. Both strings are
// copied into the Context's program-text buffer, each followed by a NUL
// terminator.
func (c *Context) Fn(args, body string) Value {
	argSpan, ok1 := c.arena.AppendText(args + "\x00")
	bodySpan, ok2 := c.arena.AppendText(body + "\x00")
	if !ok1 || !ok2 {
		return c.Nil()
	}
	r := c.alloc(arena.Fn, true)
	if cell := c.arena.Cell(r); cell != nil {
		cell.I0 = int32(argSpan.Start())
		cell.I1 = int32(bodySpan.Start())
	}
	return c.wrap(r)
}

// CFn registers fn as a native function callable from source text as a
// symbol with the given arg spec (the same grammar as Fn's args).
func (c *Context) CFn(args string, fn NativeFunc) Value {
	argSpan, ok := c.arena.AppendText(args + "\x00")
	if !ok {
		return c.Nil()
	}
	c.natives = append(c.natives, fn)
	idx := len(c.natives) - 1

	r := c.alloc(arena.CFn, true)
	if cell := c.arena.Cell(r); cell != nil {
		cell.I0 = int32(argSpan.Start())
		cell.I1 = int32(idx)
	}
	return c.wrap(r)
}
