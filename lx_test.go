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

package lx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beariish/lx"
)

func open(t *testing.T) *lx.Context {
	t.Helper()
	ctx, err := lx.Open(1<<12, 1<<12, nil)
	require.NoError(t, err)
	return ctx
}

func TestOpenRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := lx.Open(0, 64, nil)
	assert.Error(t, err)

	_, err = lx.Open(64, -1, nil)
	assert.Error(t, err)
}

func TestArithmetic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code string
		want float64
	}{
		{"add", "+ 1 2", 3},
		{"sub", "- 5 3", 2},
		{"mul", "* 2 4", 8},
		{"div", "/ 8 2", 4},
		{"lt-true", "< 1 2", 1},
		{"gt-false", "> 1 2", 0},
		{"le-eq", "<= 2 2", 1},
		{"ge-false", ">= 1 2", 0},
		{"and-true", "& 1 1", 1},
		{"and-false", "& 1 0", 0},
		{"or-false", "| 0 0", 0},
		{"or-true", "| 0 1", 1},
		{"not-zero", "! 0", 1},
		{"not-one", "! 1", 0},
		{"round-up", "_ 3.7", 4},
		{"round-down", "_ 3.2", 3},
		// The language never lexes a unary minus (a literal "-3.7" is the
		// two-operand subtraction operator short one operand), so a
		// negative number under test has to be produced by subtraction.
		{"round-neg", "_ - 0 3.7", -4},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := open(t)
			env := ctx.NewEnv()
			got := ctx.Run(env, tt.code)
			require.True(t, got.IsNumber(), "code %q did not produce a number", tt.code)
			assert.Equal(t, tt.want, got.Number())
		})
	}
}

func TestArithmeticTypeMismatchIsNil(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, `+ 1 "x"`)
	assert.True(t, got.IsNil())
}

func TestEnvSetGet(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= x 5 x")
	require.True(t, got.IsNumber())
	assert.Equal(t, 5.0, got.Number())

	// Reassignment overwrites in place rather than shadowing.
	got = ctx.Run(env, "= x 9 x")
	assert.Equal(t, 9.0, got.Number())
}

func TestEquality(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()

	assert.Equal(t, 1.0, ctx.Run(env, "== 1 1").Number())
	assert.Equal(t, 0.0, ctx.Run(env, "== 1 2").Number())
	assert.Equal(t, 0.0, ctx.Run(env, `== 1 "1"`).Number())
	assert.Equal(t, 1.0, ctx.Run(env, `== "ab" "ab"`).Number())
}

func TestListLiteralAppendPop(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()

	got := ctx.Run(env, "= l [ 1 2 3 ] $ l")
	assert.Equal(t, 3.0, got.Number())

	got = ctx.Run(env, "= l [ 1 2 3 ] \\ l $ l")
	assert.Equal(t, 2.0, got.Number())

	got = ctx.Run(env, "= l [ 1 ] # l 2 $ l")
	assert.Equal(t, 2.0, got.Number())
}

func TestConditional(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	assert.Equal(t, 10.0, ctx.Run(env, "? 1 10 20").Number())
	assert.Equal(t, 20.0, ctx.Run(env, "? 0 10 20").Number())
}

func TestForEachAccumulates(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= total 0 = l [ 1 2 3 ] % l v = total + total v total")
	require.True(t, got.IsNumber())
	assert.Equal(t, 6.0, got.Number())
}

func TestForEachOverEmptyListIsNoop(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= hit 0 = l [ ] % l v = hit 1 hit")
	assert.Equal(t, 0.0, got.Number())
}

func TestWhileLoop(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= i 0 = sum 0 ^ < i 5 ( = sum + sum i = i + i 1 ) sum")
	require.True(t, got.IsNumber())
	assert.Equal(t, 10.0, got.Number())
}

func TestWhileLoopNeverEnteredDryRunsBodyOnce(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= hit 0 ^ 0 ( = hit 1 ) hit")
	assert.Equal(t, 0.0, got.Number(), "body under a false condition must never run with side effects")
}

func TestBlockCreatesFreshEnv(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= e { = x 5 } . e x")
	require.True(t, got.IsNumber())
	assert.Equal(t, 5.0, got.Number())

	// x must not have leaked into the outer env.
	outer := ctx.GetEnvName(env, "x")
	assert.True(t, outer.IsNil())
}

func TestFnDefinitionSingleArg(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= double ' x * x 2 double 5")
	require.True(t, got.IsNumber())
	assert.Equal(t, 10.0, got.Number())
}

func TestFnDefinitionMultiArg(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= add ' (x y) + x y add 3 4")
	require.True(t, got.IsNumber())
	assert.Equal(t, 7.0, got.Number())
}

func TestFnArgsAreScopedToCall(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	ctx.Run(env, "= id ' x x id 5")

	// x must not leak into the calling env once the call returns.
	leaked := ctx.GetEnvName(env, "x")
	assert.True(t, leaked.IsNil())
}

func TestAtOperatorLooksUpWithoutInvoking(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "= id ' x x @ id")
	assert.True(t, got.IsFn(), "@ must return the function value itself, not call it")
}

func TestCFnNative(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	ctx.SetEnvName(env, "double", ctx.CFn("x", func(ctx *lx.Context, callEnv lx.Value) lx.Value {
		x := ctx.GetEnvName(callEnv, "x")
		return ctx.Number(x.Number() * 2)
	}))

	got := ctx.Run(env, "double 21")
	require.True(t, got.IsNumber())
	assert.Equal(t, 42.0, got.Number())
}

func TestCommentIsIgnoredAndDoesNotCrash(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "` a leading comment\n5")
	require.True(t, got.IsNumber())
	assert.Equal(t, 5.0, got.Number())
}

func TestCommentInOperandPositionDoesNotCrash(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	assert.NotPanics(t, func() {
		got := ctx.Run(env, "+ 5 `")
		assert.True(t, got.IsNil())
	})
}

func TestRunMultiStatementKeepsLastValue(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "1 2 3")
	assert.Equal(t, 3.0, got.Number())
}

func TestRunOnEmptyProgramIsNil(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	env := ctx.NewEnv()
	got := ctx.Run(env, "")
	assert.True(t, got.IsNil())
}

func TestRunSourceTooLargeForTextBufferReturnsNil(t *testing.T) {
	t.Parallel()

	ctx, err := lx.Open(64, 4, nil)
	require.NoError(t, err)
	env := ctx.NewEnv()
	got := ctx.Run(env, "123456789")
	assert.True(t, got.IsNil())
}

func TestFormat(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	assert.Equal(t, "3.5", ctx.Format(ctx.Number(3.5)))
	assert.Equal(t, "3", ctx.Format(ctx.Number(3)))
	assert.Equal(t, "-2", ctx.Format(ctx.Number(-2)))
	assert.Equal(t, "hi", ctx.Format(ctx.NewString("hi")))
	assert.Equal(t, "<nil>", ctx.Format(ctx.Nil()))
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	assert.False(t, ctx.Nil().Truthy())
	assert.False(t, ctx.Number(0).Truthy())
	assert.True(t, ctx.Number(1).Truthy())
	assert.True(t, ctx.NewString("").Truthy())
	assert.True(t, ctx.NewList().Truthy())
}

func TestListAPI(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	l := ctx.NewList()
	assert.Equal(t, 0, l.Len())

	l2 := l.ListAppend(ctx.Number(1))
	l3 := l2.ListAppend(ctx.Number(2))
	_ = l3
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1.0, l.ListValue().Number())
	assert.Equal(t, 2.0, l.ListNext().ListValue().Number())
}

func TestPersistSurvivesGC(t *testing.T) {
	t.Parallel()

	ctx, err := lx.Open(4, 64, nil)
	require.NoError(t, err)

	kept := ctx.Number(123)
	kept.Persist()

	for i := 0; i < 3; i++ {
		ctx.Number(float64(i)) // allocate and drop; 0 and 1 are shared singletons, so only 2 takes a cell.
	}
	ctx.GC()

	assert.Equal(t, 123.0, kept.Number(), "a persisted cell must survive collection")
}

func TestStatsTrackAllocationsAndGC(t *testing.T) {
	t.Parallel()

	ctx := open(t)
	allocsBefore, _, gcBefore, _ := ctx.Stats()

	ctx.Number(7)
	ctx.GC()

	allocsAfter, _, gcAfter, _ := ctx.Stats()
	assert.Greater(t, allocsAfter, allocsBefore)
	assert.Greater(t, gcAfter, gcBefore)
}

func TestAllocationExhaustionFallsBackToNil(t *testing.T) {
	t.Parallel()

	ctx, err := lx.Open(1, 64, nil)
	require.NoError(t, err)

	// The single cell is consumed by the first allocation and persisted so
	// GC can never free it; every later allocation must degrade to nil
	// instead of panicking. 5 and 9 are used instead of 0/1 since those two
	// numbers are shared singletons that never consume an arena cell.
	first := ctx.Number(5)
	first.Persist()

	got := ctx.Number(9)
	assert.True(t, got.IsNil())
}
