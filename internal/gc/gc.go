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

// Package gc implements the mark-and-sweep collector that reclaims cells
// from an internal/arena.Arena.
//
// lx's arena holds values with real internal structure -- lists, envs, and
// call frames can all form cycles through mutation -- and lives entirely
// inside host-provided cell storage, so it needs an explicit collector
// rather than riding on Go's own runtime GC: a cell is alive if anything
// points at it, applied to cell indices instead of memory addresses.
package gc

import (
	"github.com/Beariish/lx/internal/arena"
	"github.com/Beariish/lx/internal/debug"
)

// Roots describes everything a Collect call must treat as reachable
// besides persistent cells: the current call frame, and a shadow stack of
// transiently-protected refs.
type Roots struct {
	Current Ref
	Shadow  []Ref
}

// Ref is a re-export of arena.Ref to keep this package's public signature
// readable without forcing every caller to import arena too.
type Ref = arena.Ref

// Collect runs one mark-and-sweep cycle over a and returns the number of
// cells freed.
func Collect(a *arena.Arena, roots Roots) int {
	// A cell allocated with its mark bit already set survives this cycle:
	// clear the bit and mark it as a root, so that its children are traced
	// too instead of being cut off by mark's early return.
	var premarked []Ref
	for i := 0; i < a.Len(); i++ {
		if c := a.At(i); c.Mark {
			c.Mark = false
			premarked = append(premarked, arena.Ref(i))
		}
	}
	mark(a, roots.Current)
	for _, r := range roots.Shadow {
		mark(a, r)
	}
	for _, r := range premarked {
		mark(a, r)
	}
	for i := 0; i < a.Len(); i++ {
		c := a.At(i)
		if c.Persist {
			mark(a, arena.Ref(i))
		}
	}

	freed := 0
	for i := 0; i < a.Len(); i++ {
		c := a.At(i)
		if c.Tag == arena.Free {
			continue
		}
		if c.Mark {
			c.Mark = false
			continue
		}
		a.PushFree(i)
		freed++
	}

	debug.Log(nil, "gc", "freed %d/%d cells", freed, a.Len())
	return freed
}

// mark sets the Mark bit on r and recurses into its tag-specific children.
// Re-marking an already-marked cell is a correct no-op terminal case, so
// cycles through List/Env/Call chains cannot cause infinite recursion.
func mark(a *arena.Arena, r Ref) {
	if r == arena.Null || arena.IsSingleton(r) {
		return
	}
	c := a.Cell(r)
	if c == nil || c.Mark || c.Tag == arena.Free {
		return
	}
	c.Mark = true

	switch c.Tag {
	case arena.List:
		mark(a, c.A)
		mark(a, c.B)
	case arena.Env, arena.Call:
		mark(a, c.A)
		mark(a, c.B)
		mark(a, c.C)
	}
}
