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

// Package arena implements the fixed-capacity cell array and program-text
// buffer that back an lx.Context.
//
// # Design
//
// Unlike a conventional arena that carves out raw memory and casts it to
// Go values, this arena owns its backing storage as a single []Cell slice
// allocated once at Open and never grown: the host picks the cell-area
// size up front, exactly as the C original accepts a caller-provided
// memory block. A Ref is a zero-based index into that slice rather than a
// pointer, which sidesteps the aliasing hazards a true arena built out of
// unsafe.Pointer arithmetic would need to manage, at the cost of one
// indirection per dereference.
//
// Cells that are not part of the slice at all -- nil, eof, and the two
// numeric constants zero/one -- are represented by Refs outside the valid
// index range (see the Ref constants below) and resolved to fixed,
// package-level Cells that the GC never visits.
package arena

import (
	"fmt"

	"github.com/Beariish/lx/internal/debug"
	"github.com/Beariish/lx/internal/zc"
)

// Tag identifies which variant of value a Cell holds.
type Tag uint8

const (
	Free Tag = iota
	Nil
	Number
	String
	Symbol
	List
	Env
	Fn
	CFn
	Call
	Eof
)

func (t Tag) String() string {
	switch t {
	case Free:
		return "<free>"
	case Nil:
		return "<nil>"
	case Number:
		return "<number>"
	case String:
		return "<string>"
	case Symbol:
		return "<symbol>"
	case List:
		return "<list>"
	case Env:
		return "<env>"
	case Fn:
		return "<fn>"
	case CFn:
		return "<cfn>"
	case Call:
		return "<call>"
	case Eof:
		return "<eof>"
	default:
		return "<invalid>"
	}
}

// Ref is a reference to a Cell: either an index into an Arena's cell slice,
// or one of the negative singleton/sentinel values below.
type Ref int32

const (
	// Null is the absence of a value (an empty list's value pointer, an
	// env's trailing next pointer, the root call frame's parent).
	Null Ref = -1
	// NilRef is the one and only nil value.
	NilRef Ref = -2
	// EofRef is the one and only eof value.
	EofRef Ref = -3
	// ZeroRef and OneRef are shared numeric constants used to avoid
	// allocation for comparison/logical results.
	ZeroRef Ref = -4
	OneRef  Ref = -5
)

var (
	nilCell   = Cell{Tag: Nil}
	eofCell   = Cell{Tag: Eof}
	zeroCell  = Cell{Tag: Number, Num: 0}
	oneCell   = Cell{Tag: Number, Num: 1}
	singleton = map[Ref]*Cell{
		NilRef:  &nilCell,
		EofRef:  &eofCell,
		ZeroRef: &zeroCell,
		OneRef:  &oneCell,
	}
)

// Cell is the uniform tagged record every lx value lives in. Payload fields
// are reused across tags exactly as documented per field below.
type Cell struct {
	Tag     Tag
	Mark    bool
	Persist bool

	Num float64 // Number

	Span     zc.Range // String/Symbol: span into Text, when !FromHost
	HostStr  string   // String/Symbol: host-owned string, when FromHost
	FromHost bool

	// List(value=A, next=B); Env(name=A, value=B, next=C);
	// Call(parent=A, env=B, callable=C); Free(next=A).
	A, B, C Ref

	// Fn(argSpecCursor=I0, bodyCursor=I1); CFn(argSpecCursor=I0, nativeIndex=I1).
	I0, I1 int32
}

// Arena owns the fixed-capacity cell array and the append-only program-text
// buffer of a Context.
type Arena struct {
	cells []Cell
	free  Ref

	text    []byte
	textLen int

	allocs int64
	freed  int64
}

// New creates an Arena with the given cell-area capacity and program-text
// buffer size.
func New(cellCount, textSize int) *Arena {
	a := &Arena{
		cells: make([]Cell, cellCount),
		text:  make([]byte, textSize),
	}
	a.reset()
	return a
}

func (a *Arena) reset() {
	for i := range a.cells {
		a.cells[i] = Cell{Tag: Free}
		if i+1 < len(a.cells) {
			a.cells[i].A = Ref(i + 1)
		} else {
			a.cells[i].A = Null
		}
	}
	if len(a.cells) > 0 {
		a.free = 0
	} else {
		a.free = Null
	}
}

// Len returns the total number of cells in the arena, free or not.
func (a *Arena) Len() int { return len(a.cells) }

// Cell resolves a Ref to its backing Cell. Returns nil for Null.
func (a *Arena) Cell(r Ref) *Cell {
	if r == Null {
		return nil
	}
	if r < 0 {
		if c, ok := singleton[r]; ok {
			return c
		}
		return nil
	}
	if int(r) >= len(a.cells) {
		return nil
	}
	return &a.cells[r]
}

// IsSingleton reports whether r refers to one of the cells living outside
// the arena (nil, eof, zero, one), which the GC must never mark or free.
func IsSingleton(r Ref) bool {
	_, ok := singleton[r]
	return ok
}

// At returns the cell at raw slice index i, for GC sweep iteration.
func (a *Arena) At(i int) *Cell { return &a.cells[i] }

// Alloc pops a cell off the free list, tags it, and returns its Ref. It
// does not trigger GC itself -- that policy belongs to the caller (see
// Context.alloc), so that this package stays decoupled from internal/gc.
//
// Returns (Null, false) if the free list is empty.
func (a *Arena) Alloc(tag Tag, mark bool) (Ref, bool) {
	if a.free == Null {
		return Null, false
	}

	r := a.free
	cell := &a.cells[r]
	a.free = cell.A
	*cell = Cell{Tag: tag, Mark: mark}
	a.allocs++
	debug.Log(nil, "alloc", "%v %d", tag, r)
	return r, true
}

// PushFree relinks cell i onto the head of the free list. Used by the GC
// sweep phase; i must be a valid slice index, not a singleton Ref.
func (a *Arena) PushFree(i int) {
	a.cells[i] = Cell{Tag: Free, A: a.free}
	a.free = Ref(i)
	a.freed++
}

// Stats returns lifetime allocation and free counters, for host-facing
// diagnostics.
func (a *Arena) Stats() (allocs, freed int64) { return a.allocs, a.freed }

// AppendText copies s into the program-text buffer and returns a Range
// describing its location, or ok=false if it would not fit.
func (a *Arena) AppendText(s string) (zc.Range, bool) {
	if a.textLen+len(s) > len(a.text) {
		return 0, false
	}
	start := a.textLen
	copy(a.text[start:], s)
	a.textLen += len(s)
	return zc.New(start, len(s)), true
}

// Text returns the program-text buffer backing Ranges created by
// AppendText.
func (a *Arena) Text() []byte { return a.text }

// String implements fmt.Stringer for diagnostics.
func (a *Arena) String() string {
	return fmt.Sprintf("arena(%d cells, %d/%d text bytes)", len(a.cells), a.textLen, len(a.text))
}
