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

// listAppend appends item to list's tail and returns the ref of the node
// that now holds it -- the first node itself, if the list was empty.
func (c *Context) listAppend(list, item arena.Ref) arena.Ref {
	head := c.arena.Cell(list)
	if head == nil || head.Tag != arena.List {
		return arena.NilRef
	}
	if head.A == arena.Null {
		head.A = item
		return list
	}

	cur, curRef := head, list
	for cur.B != arena.Null {
		curRef = cur.B
		cur = c.arena.Cell(curRef)
	}

	next := c.alloc(arena.List, false)
	if nc := c.arena.Cell(next); nc != nil {
		nc.A, nc.B = item, arena.Null
		cur.B = next
	}
	return next
}

// listPop detaches list's tail node and returns it. Popping the only node
// in a one-element list clears that node's value in place instead of
// detaching it, since the head node itself can never be removed.
func (c *Context) listPop(list arena.Ref) arena.Ref {
	head := c.arena.Cell(list)
	if head == nil || head.Tag != arena.List {
		return arena.NilRef
	}

	prev, prevRef := head, list
	cur, curRef := head, list
	for cur.B != arena.Null {
		prev, prevRef = cur, curRef
		curRef = cur.B
		cur = c.arena.Cell(curRef)
	}
	prev.B = arena.Null
	if prevRef == curRef {
		cur.A = arena.Null
	}
	return curRef
}

// listValue returns list's own element, or nil if list isn't a list or its
// slot is empty (a freshly built list, or one that's been popped back down
// to its lone placeholder node).
func (c *Context) listValue(list arena.Ref) arena.Ref {
	cell := c.arena.Cell(list)
	if cell == nil || cell.Tag != arena.List {
		return arena.NilRef
	}
	if cell.A == arena.Null {
		return arena.NilRef
	}
	return cell.A
}

// listNext returns the node following list, or nil if list isn't a list or
// has no successor.
func (c *Context) listNext(list arena.Ref) arena.Ref {
	cell := c.arena.Cell(list)
	if cell == nil || cell.Tag != arena.List {
		return arena.NilRef
	}
	if cell.B == arena.Null {
		return arena.NilRef
	}
	return cell.B
}

// listLen counts list's occupied elements: zero for a freshly-built empty
// list (whose single placeholder node holds no value), and the node count
// otherwise.
func (c *Context) listLen(list arena.Ref) int {
	cell := c.arena.Cell(list)
	if cell == nil || cell.Tag != arena.List {
		return -1
	}
	if cell.A == arena.Null {
		return 0
	}
	n := 0
	for cell != nil {
		n++
		if cell.B == arena.Null {
			break
		}
		cell = c.arena.Cell(cell.B)
	}
	return n
}

// The public list API is below (Value.ListAppend, ListPop, ListValue,
// ListNext, Len); lists are constructed with Context.NewList in context.go.

// ListAppend appends item to v's tail, returning the value the new element
// now lives at. v must be a list.
func (v Value) ListAppend(item Value) Value {
	return v.ctx.wrap(v.ctx.listAppend(v.ref, item.ref))
}

// ListPop removes v's tail element and returns the (possibly now-empty)
// node it lived in.
func (v Value) ListPop() Value {
	return v.ctx.wrap(v.ctx.listPop(v.ref))
}

// ListValue returns v's own element.
func (v Value) ListValue() Value {
	return v.ctx.wrap(v.ctx.listValue(v.ref))
}

// ListNext returns the list node following v.
func (v Value) ListNext() Value {
	return v.ctx.wrap(v.ctx.listNext(v.ref))
}

// Len returns the element count of a list or the binding count of an env,
// the string length of a string, or -1 if v is none of those.
func (v Value) Len() int {
	c := v.cell()
	if c == nil {
		return -1
	}
	switch c.Tag {
	case arena.String:
		return len(v.String())
	case arena.Env:
		return v.ctx.envLen(v.ref)
	case arena.List:
		return v.ctx.listLen(v.ref)
	default:
		return -1
	}
}
