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

// symbolEqual reports whether a and b are both Symbol cells with identical
// byte contents.
func (c *Context) symbolEqual(a, b arena.Ref) bool {
	ca, cb := c.arena.Cell(a), c.arena.Cell(b)
	if ca == nil || cb == nil || ca.Tag != arena.Symbol || cb.Tag != arena.Symbol {
		return false
	}
	return c.cellText(ca) == c.cellText(cb)
}

// envSet walks head's binding chain looking for name; if found, the
// binding's value is overwritten in place. Otherwise a new binding is
// appended at the tail. head must refer to a valid Env cell (callers are
// responsible for creating one first -- this mirrors the `=` operator's
// "create the env if absent" rule living at the call site, not here).
func (c *Context) envSet(head, name, value arena.Ref) {
	cell := c.arena.Cell(head)
	if cell == nil || cell.Tag != arena.Env {
		return
	}
	for {
		if cell.A == arena.Null {
			cell.A, cell.B = name, value
			return
		}
		if c.symbolEqual(cell.A, name) {
			cell.B = value
			return
		}
		if cell.C == arena.Null {
			break
		}
		cell = c.arena.Cell(cell.C)
	}

	next := c.alloc(arena.Env, true)
	if nc := c.arena.Cell(next); nc != nil {
		nc.A, nc.B, nc.C = name, value, arena.Null
		cell.C = next
	}
}

// envGet returns the value bound to name in head's chain, or the nil
// singleton if no binding matches.
func (c *Context) envGet(head, name arena.Ref) arena.Ref {
	cell := c.arena.Cell(head)
	for cell != nil && cell.Tag == arena.Env {
		if c.symbolEqual(cell.A, name) {
			return cell.B
		}
		cell = c.arena.Cell(cell.C)
	}
	return arena.NilRef
}

// envLen counts the bindings in head's chain, or -1 if head is not an Env.
func (c *Context) envLen(head arena.Ref) int {
	cell := c.arena.Cell(head)
	if cell == nil || cell.Tag != arena.Env {
		return -1
	}
	if cell.A == arena.Null {
		return 0
	}
	n := 0
	for cell != nil {
		n++
		cell = c.arena.Cell(cell.C)
	}
	return n
}

// lookupCall performs dynamic call-chain lookup: try call's own env, then
// recurse into its parent frame.
func (c *Context) lookupCall(call, name arena.Ref) arena.Ref {
	frame := c.arena.Cell(call)
	if frame == nil || frame.Tag != arena.Call {
		return arena.NilRef
	}
	if v := c.envGet(frame.B, name); v != arena.NilRef {
		return v
	}
	if frame.A == arena.Null {
		return arena.NilRef
	}
	return c.lookupCall(frame.A, name)
}

// SetEnv sets name to value inside env, creating the binding if absent.
func (c *Context) SetEnv(env, name, value Value) {
	if !env.IsEnv() || !name.IsSymbol() {
		return
	}
	c.envSet(env.ref, name.ref, value.ref)
}

// SetEnvName is like SetEnv, but takes the binding name as a plain Go
// string instead of a pre-built Symbol value.
func (c *Context) SetEnvName(env Value, name string, value Value) {
	c.SetEnv(env, c.Symbol(name), value)
}

// GetEnv returns the value bound to name in env, or nil if absent or env
// is not an environment.
func (c *Context) GetEnv(env, name Value) Value {
	if !env.IsEnv() {
		return c.Nil()
	}
	return c.wrap(c.envGet(env.ref, name.ref))
}

// GetEnvName is like GetEnv, but takes name as a plain Go string.
func (c *Context) GetEnvName(env Value, name string) Value {
	return c.GetEnv(env, c.Symbol(name))
}
