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

package gc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beariish/lx/internal/arena"
	"github.com/Beariish/lx/internal/gc"
)

func TestCollectFreesUnreachable(t *testing.T) {
	t.Parallel()

	a := arena.New(4, 0)
	keep, ok := a.Alloc(arena.Number, false)
	require.True(t, ok)
	_, ok = a.Alloc(arena.Number, false)
	require.True(t, ok)

	freed := gc.Collect(a, gc.Roots{Current: arena.Null, Shadow: []arena.Ref{keep}})
	assert.Equal(t, 1, freed)

	// keep must have survived and still be usable.
	c := a.Cell(keep)
	require.NotNil(t, c)
	assert.Equal(t, arena.Number, c.Tag)
}

func TestCollectFollowsChains(t *testing.T) {
	t.Parallel()

	a := arena.New(8, 0)

	// Build a three-node list chain: head -> mid -> tail, reachable only
	// through head.
	tail, ok := a.Alloc(arena.List, false)
	require.True(t, ok)
	mid, ok := a.Alloc(arena.List, false)
	require.True(t, ok)
	a.Cell(mid).B = tail
	head, ok := a.Alloc(arena.List, false)
	require.True(t, ok)
	a.Cell(head).B = mid

	freed := gc.Collect(a, gc.Roots{Current: arena.Null, Shadow: []arena.Ref{head}})
	assert.Equal(t, 0, freed, "the whole chain must be reachable through head alone")

	for _, r := range []arena.Ref{head, mid, tail} {
		assert.Equal(t, arena.List, a.Cell(r).Tag)
	}
}

func TestCollectHandlesCycles(t *testing.T) {
	t.Parallel()

	a := arena.New(4, 0)
	env1, ok := a.Alloc(arena.Env, false)
	require.True(t, ok)
	env2, ok := a.Alloc(arena.Env, false)
	require.True(t, ok)
	a.Cell(env1).C = env2
	a.Cell(env2).C = env1

	done := make(chan struct{})
	go func() {
		gc.Collect(a, gc.Roots{Current: arena.Null})
		close(done)
	}()
	<-done // a cyclic chain must not infinitely recurse during mark.
}

func TestCollectRespectsPersist(t *testing.T) {
	t.Parallel()

	a := arena.New(2, 0)
	r, ok := a.Alloc(arena.Number, false)
	require.True(t, ok)
	a.Cell(r).Persist = true

	freed := gc.Collect(a, gc.Roots{Current: arena.Null})
	assert.Equal(t, 0, freed)
	assert.Equal(t, arena.Number, a.Cell(r).Tag)
}
