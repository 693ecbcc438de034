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

package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beariish/lx/internal/arena"
)

func TestSingletons(t *testing.T) {
	t.Parallel()

	a := arena.New(4, 16)
	assert.Nil(t, a.Cell(arena.Null))

	nilCell := a.Cell(arena.NilRef)
	require.NotNil(t, nilCell)
	assert.Equal(t, arena.Nil, nilCell.Tag)

	eofCell := a.Cell(arena.EofRef)
	require.NotNil(t, eofCell)
	assert.Equal(t, arena.Eof, eofCell.Tag)

	zero := a.Cell(arena.ZeroRef)
	require.NotNil(t, zero)
	assert.Equal(t, 0.0, zero.Num)

	one := a.Cell(arena.OneRef)
	require.NotNil(t, one)
	assert.Equal(t, 1.0, one.Num)

	for _, r := range []arena.Ref{arena.NilRef, arena.EofRef, arena.ZeroRef, arena.OneRef} {
		assert.True(t, arena.IsSingleton(r))
	}
	assert.False(t, arena.IsSingleton(0))
}

func TestAllocExhaustion(t *testing.T) {
	t.Parallel()

	a := arena.New(2, 0)
	r1, ok := a.Alloc(arena.Number, false)
	require.True(t, ok)
	r2, ok := a.Alloc(arena.Number, false)
	require.True(t, ok)
	assert.NotEqual(t, r1, r2)

	_, ok = a.Alloc(arena.Number, false)
	assert.False(t, ok, "free list should be exhausted after allocating every cell")
}

func TestPushFreeRecyclesCells(t *testing.T) {
	t.Parallel()

	a := arena.New(1, 0)
	r, ok := a.Alloc(arena.Number, false)
	require.True(t, ok)
	if c := a.Cell(r); c != nil {
		c.Num = 42
	}

	a.PushFree(int(r))
	r2, ok := a.Alloc(arena.Symbol, false)
	require.True(t, ok)
	assert.Equal(t, r, r2, "the only cell in a 1-cell arena must be recycled")
	assert.Equal(t, arena.Symbol, a.Cell(r2).Tag, "recycling must reset the old payload")
}

func TestAppendText(t *testing.T) {
	t.Parallel()

	a := arena.New(1, 8)
	span, ok := a.AppendText("abcd")
	require.True(t, ok)
	assert.Equal(t, "abcd", span.String(a.Text()))

	span2, ok := a.AppendText("wxyz")
	require.True(t, ok)
	assert.Equal(t, "wxyz", span2.String(a.Text()))

	_, ok = a.AppendText("o")
	assert.False(t, ok, "program text buffer is exactly full at 8 bytes")
}

func TestZeroCapacityArena(t *testing.T) {
	t.Parallel()

	a := arena.New(0, 0)
	_, ok := a.Alloc(arena.Number, false)
	assert.False(t, ok)
	assert.Equal(t, 0, a.Len())
}
