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

import "github.com/Beariish/lx/internal/arena"

// Value is a handle to a cell living in some Context's arena. The zero
// Value is not meaningful on its own; use Context.Nil or any of the
// constructors below.
type Value struct {
	ctx *Context
	ref arena.Ref
}

func (c *Context) wrap(r arena.Ref) Value { return Value{ctx: c, ref: r} }

func (v Value) cell() *arena.Cell {
	if v.ctx == nil {
		return nil
	}
	return v.ctx.arena.Cell(v.ref)
}

// Tag reports which variant this value holds.
func (v Value) Tag() arena.Tag {
	if c := v.cell(); c != nil {
		return c.Tag
	}
	return arena.Free
}

// IsNil reports whether v is the nil singleton.
func (v Value) IsNil() bool { return v.ref == arena.NilRef }

// IsEof reports whether v is the eof singleton -- unexpected end of input.
func (v Value) IsEof() bool { return v.ref == arena.EofRef }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.Tag() == arena.Number }

// IsString reports whether v holds a string.
func (v Value) IsString() bool { return v.Tag() == arena.String }

// IsSymbol reports whether v holds a symbol.
func (v Value) IsSymbol() bool { return v.Tag() == arena.Symbol }

// IsList reports whether v holds a list.
func (v Value) IsList() bool { return v.Tag() == arena.List }

// IsEnv reports whether v holds an environment.
func (v Value) IsEnv() bool { return v.Tag() == arena.Env }

// IsFn reports whether v holds a user-defined function.
func (v Value) IsFn() bool { return v.Tag() == arena.Fn }

// IsCFn reports whether v holds a native function.
func (v Value) IsCFn() bool { return v.Tag() == arena.CFn }

// IsCallable reports whether v can be invoked from the source language.
func (v Value) IsCallable() bool { return v.IsFn() || v.IsCFn() }

// Number returns v's numeric payload, or 0 if v is not a number.
func (v Value) Number() float64 {
	c := v.cell()
	if c == nil || c.Tag != arena.Number {
		return 0
	}
	return c.Num
}

// String returns v's string payload, or "" if v is not a string or symbol.
//
// The returned string aliases the Context's program-text buffer when v was
// produced by parsing source text. That buffer is append-only, so a later
// Run does not overwrite those bytes.
func (v Value) String() string {
	c := v.cell()
	if c == nil || (c.Tag != arena.String && c.Tag != arena.Symbol) {
		return ""
	}
	return v.ctx.cellText(c)
}

// cellText returns the text payload of a String/Symbol cell, whichever of
// the two representations (host-owned or arena-text span) it uses.
func (c *Context) cellText(cell *arena.Cell) string {
	if cell.FromHost {
		return cell.HostStr
	}
	return cell.Span.String(c.arena.Text())
}

// Truthy reports whether v is truthy: everything except nil and the
// number 0 is truthy.
func (v Value) Truthy() bool {
	c := v.cell()
	if c == nil || c.Tag == arena.Free || c.Tag == arena.Nil {
		return false
	}
	if c.Tag == arena.Number && c.Num == 0 {
		return false
	}
	return true
}

// Persist marks v's cell as a permanent GC root. Persistent cells are
// never reclaimed by Context.GC, regardless of reachability.
//
// Singletons (nil, eof, the shared zero/one constants) live outside any
// arena and are already permanent, so this is a no-op for them -- and must
// be, since mutating a singleton's flags would be visible across every
// Context that shares it.
func (v Value) Persist() {
	if arena.IsSingleton(v.ref) {
		return
	}
	if c := v.cell(); c != nil {
		c.Persist = true
	}
}

// Equal implements the == operator's identity/value semantics outside of
// source evaluation: numeric equality by value, string equality byte-wise,
// everything else by cell identity.
func (v Value) Equal(other Value) bool {
	a, b := v.cell(), other.cell()
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case arena.Number:
		return a.Num == b.Num
	case arena.String:
		return v.String() == other.String()
	default:
		return v.ref == other.ref
	}
}
